package model

import "time"

// Review is one listing entry on the review site. It is immutable once built
// and referenced, not owned, by the tracks extracted from it.
type Review struct {
	// URL is the canonical review URL and doubles as its identifier.
	URL       string
	Title     string
	Artist    string
	Album     string
	Tags      []string
	ThumbURL  string
	CoverURL  string
	Published time.Time
	// Ordinal is the zero-based position in crawl order (newest first).
	Ordinal int
}

// BestCover returns the full-size cover if known, otherwise the thumbnail.
func (r Review) BestCover() string {
	if r.CoverURL != "" {
		return r.CoverURL
	}
	return r.ThumbURL
}
