// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package prefetch crawls and extracts the next listing page in the
// background while the current one is being consumed.
package prefetch

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/amgplay/internal/crawler"
	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by Next after Stop.
var ErrStopped = errors.New("prefetcher stopped")

// PageSource yields listing pages in order.
type PageSource interface {
	NextPage(ctx context.Context) ([]model.Review, error)
}

// TrackExtractor turns one review into its tracks.
type TrackExtractor interface {
	Extract(ctx context.Context, review model.Review) ([]model.Track, error)
}

// Config wires a Prefetcher.
type Config struct {
	Pages     PageSource
	Extractor TrackExtractor
	// MaxReviews bounds how many reviews are handed out; 0 means unbounded.
	MaxReviews int
	// AbortOnFetchError turns listing fetch failures into run failures.
	// Otherwise a failing page is treated as the end of the listing.
	AbortOnFetchError bool
	Logger            *zerolog.Logger
}

// Item is one review with the tracks extracted from it.
type Item struct {
	Review model.Review
	Tracks []model.Track
}

// Batch is the extracted content of one listing page.
type Batch struct {
	Page  int
	Items []Item
}

// Tracks flattens the batch in review order, then on-page order.
func (b Batch) Tracks() []model.Track {
	var out []model.Track
	for _, it := range b.Items {
		out = append(out, it.Tracks...)
	}
	return out
}

type result struct {
	batch Batch
	err   error
}

// Prefetcher holds at most one completed page that has not been consumed.
type Prefetcher struct {
	cfg    Config
	out    chan result
	cancel context.CancelFunc
	g      *errgroup.Group
	logger zerolog.Logger

	mu       sync.Mutex
	terminal error
	stopOnce sync.Once
}

// Start launches the background producer. Call Stop to release it.
func Start(ctx context.Context, cfg Config) *Prefetcher {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	logger := log.WithComponent("prefetch")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	p := &Prefetcher{
		cfg:    cfg,
		out:    make(chan result),
		cancel: cancel,
		g:      g,
		logger: logger,
	}
	g.Go(func() error {
		defer close(p.out)
		p.produce(gctx)
		return nil
	})
	return p
}

// Next blocks until the next batch is ready. It returns
// crawler.ErrEndOfListing once the listing or the review bound is
// exhausted; under the abort policy a listing fetch failure is returned as
// is and is terminal as well.
func (p *Prefetcher) Next(ctx context.Context) (Batch, error) {
	p.mu.Lock()
	terminal := p.terminal
	p.mu.Unlock()
	if terminal != nil {
		return Batch{}, terminal
	}

	select {
	case <-ctx.Done():
		return Batch{}, ctx.Err()
	case r, ok := <-p.out:
		if !ok {
			return Batch{}, p.finish(crawler.ErrEndOfListing)
		}
		if r.err != nil {
			return Batch{}, p.finish(r.err)
		}
		return r.batch, nil
	}
}

// Stop cancels background work and waits for it to exit. It is idempotent.
func (p *Prefetcher) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		_ = p.g.Wait()
		p.mu.Lock()
		if p.terminal == nil {
			p.terminal = ErrStopped
		}
		p.mu.Unlock()
	})
}

func (p *Prefetcher) finish(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal == nil {
		p.terminal = err
	}
	return p.terminal
}

func (p *Prefetcher) produce(ctx context.Context) {
	remaining := p.cfg.MaxReviews
	page := 0
	for {
		reviews, err := p.cfg.Pages.NextPage(ctx)
		switch {
		case errors.Is(err, crawler.ErrEndOfListing):
			return
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			if !p.cfg.AbortOnFetchError && errors.Is(err, model.ErrFetch) {
				p.logger.Warn().Err(err).
					Str(log.FieldEvent, "prefetch.fetch_failed").
					Msg("listing fetch failed, treating as end of listing")
				return
			}
			p.send(ctx, result{err: err})
			return
		}
		page++

		if p.cfg.MaxReviews > 0 && len(reviews) > remaining {
			reviews = reviews[:remaining]
		}
		batch := Batch{Page: page, Items: make([]Item, 0, len(reviews))}
		for _, r := range reviews {
			tracks, err := p.cfg.Extractor.Extract(ctx, r)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn().Err(err).
					Str(log.FieldEvent, "prefetch.extract_failed").
					Str(log.FieldReviewURL, r.URL).
					Msg("review yielded no tracks")
				tracks = nil
			}
			batch.Items = append(batch.Items, Item{Review: r, Tracks: tracks})
		}

		if !p.send(ctx, result{batch: batch}) {
			return
		}
		if p.cfg.MaxReviews > 0 {
			remaining -= len(reviews)
			if remaining <= 0 {
				return
			}
		}
	}
}

func (p *Prefetcher) send(ctx context.Context, r result) bool {
	select {
	case p.out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
