package model

import (
	"fmt"
	"strings"
)

// Provider identifies the platform hosting a track's media.
type Provider string

const (
	ProviderYouTube      Provider = "youtube"
	ProviderBandcamp     Provider = "bandcamp"
	ProviderSoundCloud   Provider = "soundcloud"
	ProviderReverbNation Provider = "reverbnation"
)

// HasVideo reports whether the provider serves native video.
func (p Provider) HasVideo() bool {
	return p == ProviderYouTube
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderYouTube, ProviderBandcamp, ProviderSoundCloud, ProviderReverbNation:
		return true
	}
	return false
}

// TrackID is the stable "<provider>:<native id>" identifier used for dedup.
type TrackID string

// NewTrackID derives the identifier from provider and provider-native id only.
func NewTrackID(p Provider, nativeID string) TrackID {
	return TrackID(string(p) + ":" + nativeID)
}

// ParseTrackID splits an identifier into provider and native id.
func ParseTrackID(s string) (Provider, string, error) {
	p, native, ok := strings.Cut(s, ":")
	if !ok || native == "" || !Provider(p).Valid() {
		return "", "", fmt.Errorf("invalid track id %q", s)
	}
	return Provider(p), native, nil
}

// SourceRef points at one embedded media source for a track.
type SourceRef struct {
	Provider Provider
	NativeID string
	// EmbedURL is the absolute iframe URL found on the review page.
	EmbedURL string
}

// ID returns the identifier a track would carry with this source as primary.
func (s SourceRef) ID() TrackID {
	return NewTrackID(s.Provider, s.NativeID)
}

func (s SourceRef) String() string {
	return string(s.ID())
}

// EmbedRef is a detected embed before same-song grouping.
type EmbedRef struct {
	Source SourceRef
	// Text is the display text associated with the embed, used only by
	// same-song matching.
	Text string
}

// Track is one playable song extracted from a review.
type Track struct {
	ID       TrackID
	Title    string
	Review   *Review
	Sources  []SourceRef
	HasVideo bool
}

// Provider returns the provider of the primary source.
func (t Track) Provider() Provider {
	if len(t.Sources) == 0 {
		return ""
	}
	return t.Sources[0].Provider
}

// Primary returns the preferred source reference.
func (t Track) Primary() SourceRef {
	if len(t.Sources) == 0 {
		return SourceRef{}
	}
	return t.Sources[0]
}

// DisplayName renders a short human label for logs and prompts.
func (t Track) DisplayName() string {
	var b strings.Builder
	if t.Review != nil {
		switch {
		case t.Review.Artist != "" && t.Review.Album != "":
			fmt.Fprintf(&b, "%s - %s", t.Review.Artist, t.Review.Album)
		default:
			b.WriteString(t.Review.Title)
		}
	}
	if t.Title != "" {
		if b.Len() > 0 {
			b.WriteString(" / ")
		}
		b.WriteString(t.Title)
	}
	if b.Len() == 0 {
		return string(t.ID)
	}
	return b.String()
}
