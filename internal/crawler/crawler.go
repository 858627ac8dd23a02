// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package crawler walks the review listing newest first, one page per call.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
	"github.com/ManuGH/amgplay/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
)

// ErrEndOfListing reports that no further listing pages exist.
var ErrEndOfListing = errors.New("end of listing")

// Crawler paginates the review listing. It is not safe for concurrent use.
type Crawler struct {
	getter  PageGetter
	base    *url.URL
	page    int
	ordinal int
	seen    map[string]struct{}
	done    bool
	logger  zerolog.Logger
}

// New creates a Crawler rooted at baseURL (listing page 1).
func New(baseURL string, getter PageGetter) (*Crawler, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}
	return &Crawler{
		getter: getter,
		base:   base,
		page:   1,
		seen:   make(map[string]struct{}),
		logger: log.WithComponent("crawler"),
	}, nil
}

// PageURL returns the listing URL for a 1-based page number.
func (c *Crawler) PageURL(page int) string {
	if page <= 1 {
		return c.base.String()
	}
	return c.base.ResolveReference(&url.URL{Path: fmt.Sprintf("page/%d/", page)}).String()
}

// NextPage fetches and parses the next listing page. Reviews already seen
// on an earlier page are dropped so pagination shifts never duplicate.
// It returns ErrEndOfListing once the listing is exhausted; fetch failures
// are returned as model.ErrFetch and do not advance the page cursor.
func (c *Crawler) NextPage(ctx context.Context) ([]model.Review, error) {
	if c.done {
		return nil, ErrEndOfListing
	}

	pageURL := c.PageURL(c.page)
	ctx, span := telemetry.Tracer("amgplay.crawler").Start(ctx, "amgplay.crawl.page")
	defer span.End()

	body, err := c.getter.Get(ctx, pageURL, false)
	if err != nil {
		var se *StatusError
		if c.page > 1 && errors.As(err, &se) && se.Code == http.StatusNotFound {
			c.done = true
			return nil, ErrEndOfListing
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	parsed, err := ParseListing(body, c.base)
	if err != nil {
		span.RecordError(err)
		return nil, model.FetchError("crawl.parse", pageURL, err)
	}
	if len(parsed) == 0 {
		c.done = true
		return nil, ErrEndOfListing
	}

	reviews := make([]model.Review, 0, len(parsed))
	for _, r := range parsed {
		if _, dup := c.seen[r.URL]; dup {
			continue
		}
		c.seen[r.URL] = struct{}{}
		r.Ordinal = c.ordinal
		c.ordinal++
		reviews = append(reviews, r)
	}

	span.SetAttributes(telemetry.PageAttributes(c.page, len(reviews))...)
	metrics.AddReviewsCrawled(len(reviews))
	c.logger.Debug().
		Int(log.FieldPage, c.page).
		Int("reviews", len(reviews)).
		Msg("listing page parsed")

	c.page++
	return reviews, nil
}
