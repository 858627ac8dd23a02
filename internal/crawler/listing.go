// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/PuerkitoBio/goquery"
)

const (
	reviewBlockSelector = "article.tag-review"
	reviewLinkSelector  = ".entry-title a"
	reviewCoverSelector = "img.wp-post-image"
	reviewDateSelector  = "time.published"
)

// titleDashes are the separators tried, in order, between artist and album.
var titleDashes = []string{"–", "—", " - "}

// ParseListing parses one listing page into reviews in document order.
// Entries without a review link are skipped. Ordinal is left zero.
func ParseListing(body []byte, base *url.URL) ([]model.Review, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var reviews []model.Review
	doc.Find(reviewBlockSelector).Each(func(_ int, s *goquery.Selection) {
		if r, ok := parseReviewBlock(s, base); ok {
			reviews = append(reviews, r)
		}
	})
	return reviews, nil
}

func parseReviewBlock(s *goquery.Selection, base *url.URL) (model.Review, bool) {
	link := s.Find(reviewLinkSelector).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return model.Review{}, false
	}
	reviewURL := resolve(base, href)
	if reviewURL == "" {
		return model.Review{}, false
	}

	title := strings.Join(strings.Fields(link.Text()), " ")
	artist, album := SplitTitle(title)

	r := model.Review{
		URL:    reviewURL,
		Title:  title,
		Artist: artist,
		Album:  album,
		Tags:   parseTags(s.AttrOr("class", "")),
	}

	img := s.Find(reviewCoverSelector).First()
	if src, ok := img.Attr("src"); ok {
		r.ThumbURL = resolve(base, src)
	}
	if srcset, ok := img.Attr("srcset"); ok {
		r.CoverURL = resolve(base, largestSrcsetCandidate(srcset))
	}

	if dt, ok := s.Find(reviewDateSelector).First().Attr("datetime"); ok {
		r.Published = parsePublished(dt)
	}
	return r, true
}

// SplitTitle turns "Artist – Album Review" into artist and album. Titles
// that cannot be split keep the whole text as album.
func SplitTitle(title string) (artist, album string) {
	t := strings.TrimSpace(title)
	if i := strings.Index(t, "[Things You Might Have Missed"); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, " Review"))

	for _, dash := range titleDashes {
		if a, b, ok := strings.Cut(t, dash); ok {
			a, b = strings.TrimSpace(a), strings.TrimSpace(b)
			if a != "" && b != "" {
				return a, b
			}
		}
	}
	return "", t
}

func parseTags(class string) []string {
	var tags []string
	for _, c := range strings.Fields(class) {
		tag, ok := strings.CutPrefix(c, "tag-")
		if !ok || tag == "" || strings.HasPrefix(tag, "review") {
			continue
		}
		if _, err := strconv.Atoi(tag); err == nil {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// largestSrcsetCandidate returns the URL of the last srcset candidate,
// which the site orders by ascending width.
func largestSrcsetCandidate(srcset string) string {
	candidates := strings.Split(srcset, ",")
	for i := len(candidates) - 1; i >= 0; i-- {
		fields := strings.Fields(candidates[i])
		if len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

func parsePublished(v string) time.Time {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
