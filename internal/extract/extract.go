// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package extract turns review pages into ordered, de-duplicated tracks.
package extract

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/ManuGH/amgplay/internal/crawler"
	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
	"github.com/ManuGH/amgplay/internal/telemetry"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// scopes are tried in order; the first one containing iframes wins.
var scopes = []string{"div.entry_content iframe", "article iframe", "iframe"}

const (
	contextSelector   = "h1, h2, h3, h4, h5, h6, p, figcaption"
	containerSelector = "div.entry_content, article, body"
)

// markupRe strips tags from iframe fallback content, which parses as raw text.
var markupRe = regexp.MustCompile(`<[^>]*>`)

// Extractor fetches review pages and extracts their tracks.
type Extractor struct {
	getter    crawler.PageGetter
	detectors []Detector
	matcher   Matcher
	logger    zerolog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithDetectors replaces the detector list (priority order).
func WithDetectors(d ...Detector) Option {
	return func(e *Extractor) { e.detectors = d }
}

// WithMatcher replaces the same-song matcher.
func WithMatcher(m Matcher) Option {
	return func(e *Extractor) { e.matcher = m }
}

// New creates an Extractor reading review pages through getter.
func New(getter crawler.PageGetter, opts ...Option) *Extractor {
	e := &Extractor{
		getter:    getter,
		detectors: DefaultDetectors(),
		matcher:   TitleMatcher{},
		logger:    log.WithComponent("extract"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract fetches the review page and returns its tracks in document order.
// A review without recognised embeds yields an empty slice and no error.
func (e *Extractor) Extract(ctx context.Context, review model.Review) ([]model.Track, error) {
	ctx, span := telemetry.Tracer("amgplay.extract").Start(ctx, "amgplay.extract.review")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.ReviewURLKey, review.URL))

	body, err := e.getter.Get(ctx, review.URL, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	tracks, err := e.ExtractBody(review, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.TracksKey, len(tracks)))
	return tracks, nil
}

// ExtractBody extracts tracks from an already fetched review page.
func (e *Extractor) ExtractBody(review model.Review, body []byte) ([]model.Track, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, model.ExtractionError("extract.parse", review.URL, err)
	}
	base, err := url.Parse(review.URL)
	if err != nil {
		return nil, model.ExtractionError("extract.base", review.URL, err)
	}

	embeds := e.detect(iframes(doc, base))
	groups := group(embeds, e.matcher)

	parent := review
	tracks := make([]model.Track, 0, len(groups))
	for _, g := range groups {
		t := buildTrack(g, &parent)
		metrics.IncTracksExtracted(string(t.Provider()))
		tracks = append(tracks, t)
	}

	e.logger.Debug().
		Str(log.FieldReviewURL, review.URL).
		Int("embeds", len(embeds)).
		Int("tracks", len(tracks)).
		Msg("review extracted")
	return tracks, nil
}

func iframes(doc *goquery.Document, base *url.URL) []Iframe {
	var sel *goquery.Selection
	for _, scope := range scopes {
		sel = doc.Find(scope)
		if sel.Length() > 0 {
			break
		}
	}

	var (
		out     []Iframe
		nearby  []bool
		counted = map[string]int{}
	)
	sel.Each(func(_ int, s *goquery.Selection) {
		src := firstAttr(s, "src", "data-src", "data-lazy-src")
		if src == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(src))
		if err != nil {
			return
		}
		text, fromContext := displayText(s)
		if fromContext {
			counted[text]++
		}
		out = append(out, Iframe{Src: base.ResolveReference(ref).String(), Text: text})
		nearby = append(nearby, fromContext)
	})

	// surrounding text shared by several embeds describes none of them
	for i := range out {
		if nearby[i] && counted[out[i].Text] > 1 {
			out[i].Text = ""
		}
	}
	return out
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(s.AttrOr(n, "")); v != "" && !strings.HasPrefix(v, "about:") {
			return v
		}
	}
	return ""
}

// displayText prefers the iframe title, then its fallback content, then
// text right next to it: the element just before it, or the block holding
// it and the element just before that block. fromContext reports that the
// text came from the surroundings.
func displayText(s *goquery.Selection) (text string, fromContext bool) {
	if t := clean(s.AttrOr("title", "")); t != "" {
		return t, false
	}
	if t := clean(markupRe.ReplaceAllString(s.Text(), " ")); t != "" {
		return t, false
	}
	if t := contextText(s.Prev()); t != "" {
		return t, true
	}
	block := s.Parent()
	if block.Length() == 0 || block.Is(containerSelector) {
		return "", false
	}
	if t := textWithoutFrames(block); t != "" {
		return t, true
	}
	if t := contextText(block.Prev()); t != "" {
		return t, true
	}
	return "", false
}

func contextText(s *goquery.Selection) string {
	if s.Length() == 0 || !s.Is(contextSelector) {
		return ""
	}
	return textWithoutFrames(s)
}

func textWithoutFrames(s *goquery.Selection) string {
	c := s.Clone()
	c.Find("iframe").Remove()
	return clean(c.Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (e *Extractor) detect(frames []Iframe) []model.EmbedRef {
	var out []model.EmbedRef
	seen := map[model.TrackID]struct{}{}
	for _, f := range frames {
		for _, d := range e.detectors {
			ref, ok := d.Detect(f)
			if !ok {
				continue
			}
			id := ref.Source.ID()
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, ref)
			}
			break
		}
	}
	return out
}

// group collapses same-song embeds. Groups keep the document position of
// their first member and never hold two sources of one provider.
func group(embeds []model.EmbedRef, m Matcher) [][]model.EmbedRef {
	var groups [][]model.EmbedRef
next:
	for _, ref := range embeds {
		for gi, g := range groups {
			if hasProvider(g, ref.Source.Provider) {
				continue
			}
			for _, member := range g {
				if m.Same(member, ref) {
					groups[gi] = append(g, ref)
					continue next
				}
			}
		}
		groups = append(groups, []model.EmbedRef{ref})
	}
	return groups
}

func hasProvider(g []model.EmbedRef, p model.Provider) bool {
	return slices.ContainsFunc(g, func(r model.EmbedRef) bool { return r.Source.Provider == p })
}

func buildTrack(g []model.EmbedRef, parent *model.Review) model.Track {
	ordered := slices.Clone(g)
	// video-capable providers first, document order otherwise
	slices.SortStableFunc(ordered, func(a, b model.EmbedRef) int {
		av, bv := a.Source.Provider.HasVideo(), b.Source.Provider.HasVideo()
		switch {
		case av == bv:
			return 0
		case av:
			return -1
		default:
			return 1
		}
	})

	t := model.Track{
		ID:     ordered[0].Source.ID(),
		Review: parent,
	}
	for _, r := range ordered {
		t.Sources = append(t.Sources, r.Source)
		if r.Source.Provider.HasVideo() {
			t.HasVideo = true
		}
		if t.Title == "" {
			t.Title = r.Text
		}
	}
	return t
}
