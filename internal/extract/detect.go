// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ManuGH/amgplay/internal/domain/model"
)

// Iframe is an embed candidate found on a review page.
type Iframe struct {
	// Src is the absolute iframe URL.
	Src string
	// Text is the display text associated with the embed.
	Text string
}

// Detector recognises one provider's embeds.
type Detector interface {
	Provider() model.Provider
	Detect(f Iframe) (model.EmbedRef, bool)
}

// DefaultDetectors returns all supported detectors in priority order.
func DefaultDetectors() []Detector {
	return []Detector{
		YouTubeDetector{},
		BandcampDetector{},
		SoundCloudDetector{},
		ReverbNationDetector{},
	}
}

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)
	numericPattern   = regexp.MustCompile(`^[0-9]+$`)
	rnSongPathRe     = regexp.MustCompile(`/song_([0-9]+)`)
)

func parseSrc(src string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

func hostIs(u *url.URL, domain string) bool {
	h := strings.ToLower(u.Hostname())
	return h == domain || strings.HasSuffix(h, "."+domain)
}

func embedRef(p model.Provider, native string, f Iframe) model.EmbedRef {
	return model.EmbedRef{
		Source: model.SourceRef{Provider: p, NativeID: native, EmbedURL: f.Src},
		Text:   f.Text,
	}
}

// YouTubeDetector matches youtube.com and youtube-nocookie.com /embed/<id> iframes.
type YouTubeDetector struct{}

func (YouTubeDetector) Provider() model.Provider { return model.ProviderYouTube }

func (YouTubeDetector) Detect(f Iframe) (model.EmbedRef, bool) {
	u, ok := parseSrc(f.Src)
	if !ok || !(hostIs(u, "youtube.com") || hostIs(u, "youtube-nocookie.com")) {
		return model.EmbedRef{}, false
	}
	rest, ok := strings.CutPrefix(u.Path, "/embed/")
	if !ok {
		return model.EmbedRef{}, false
	}
	id, _, _ := strings.Cut(rest, "/")
	if !youtubeIDPattern.MatchString(id) || id == "videoseries" {
		return model.EmbedRef{}, false
	}
	return embedRef(model.ProviderYouTube, id, f), true
}

// BandcampDetector matches bandcamp.com/EmbeddedPlayer iframes. The native
// id is "track=<n>" when a track is pinned, otherwise "album=<n>".
type BandcampDetector struct{}

func (BandcampDetector) Provider() model.Provider { return model.ProviderBandcamp }

func (BandcampDetector) Detect(f Iframe) (model.EmbedRef, bool) {
	u, ok := parseSrc(f.Src)
	if !ok || !hostIs(u, "bandcamp.com") || !strings.HasPrefix(strings.ToLower(u.Path), "/embeddedplayer") {
		return model.EmbedRef{}, false
	}
	params := map[string]string{}
	for _, seg := range strings.Split(u.Path, "/") {
		if k, v, ok := strings.Cut(seg, "="); ok {
			params[strings.ToLower(k)] = v
		}
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			params[strings.ToLower(k)] = vs[0]
		}
	}
	for _, key := range []string{"track", "album"} {
		if v := params[key]; numericPattern.MatchString(v) {
			return embedRef(model.ProviderBandcamp, key+"="+v, f), true
		}
	}
	return model.EmbedRef{}, false
}

// SoundCloudDetector matches w.soundcloud.com/player iframes carrying an
// api url of a track or playlist.
type SoundCloudDetector struct{}

func (SoundCloudDetector) Provider() model.Provider { return model.ProviderSoundCloud }

func (SoundCloudDetector) Detect(f Iframe) (model.EmbedRef, bool) {
	u, ok := parseSrc(f.Src)
	if !ok || !hostIs(u, "soundcloud.com") || !strings.HasPrefix(u.Path, "/player") {
		return model.EmbedRef{}, false
	}
	api, ok := parseSrc(u.Query().Get("url"))
	if !ok {
		return model.EmbedRef{}, false
	}
	parts := strings.Split(strings.Trim(api.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if (parts[i] == "tracks" || parts[i] == "playlists") && numericPattern.MatchString(parts[i+1]) {
			return embedRef(model.ProviderSoundCloud, parts[i]+"/"+parts[i+1], f), true
		}
	}
	return model.EmbedRef{}, false
}

// ReverbNationDetector matches reverbnation.com widget iframes.
type ReverbNationDetector struct{}

func (ReverbNationDetector) Provider() model.Provider { return model.ProviderReverbNation }

func (ReverbNationDetector) Detect(f Iframe) (model.EmbedRef, bool) {
	u, ok := parseSrc(f.Src)
	if !ok || !hostIs(u, "reverbnation.com") || !strings.Contains(u.Path, "widget_code") {
		return model.EmbedRef{}, false
	}
	q := u.Query()
	for _, key := range []string{"pwc[song_ids]", "pwc[song_id]", "song_ids", "song_id"} {
		v := q.Get(key)
		if first, _, _ := strings.Cut(v, ","); numericPattern.MatchString(first) {
			return embedRef(model.ProviderReverbNation, "song="+first, f), true
		}
	}
	if m := rnSongPathRe.FindStringSubmatch(u.Path); m != nil {
		return embedRef(model.ProviderReverbNation, "song="+m[1], f), true
	}
	return model.EmbedRef{}, false
}
