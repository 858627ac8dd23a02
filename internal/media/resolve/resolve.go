// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resolve turns embed references into directly playable media.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
)

// ErrUnsupported is returned when no resolver handles a provider.
var ErrUnsupported = errors.New("no resolver for provider")

// Resolver maps one source to a media descriptor.
type Resolver interface {
	Resolve(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error)
}

// PageGetter fetches a page body.
type PageGetter interface {
	Get(ctx context.Context, rawURL string, cacheable bool) ([]byte, error)
}

// Chain tries every resolver registered for the source's provider in
// order and returns the first success.
type Chain struct {
	byProvider map[model.Provider][]Resolver
}

func NewChain() *Chain {
	return &Chain{byProvider: make(map[model.Provider][]Resolver)}
}

// Register appends resolvers for p.
func (c *Chain) Register(p model.Provider, rs ...Resolver) *Chain {
	c.byProvider[p] = append(c.byProvider[p], rs...)
	return c
}

func (c *Chain) Resolve(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
	rs := c.byProvider[ref.Provider]
	if len(rs) == 0 {
		return model.MediaDescriptor{}, model.ResolutionError("resolve", ref.ID(), fmt.Errorf("%w: %s", ErrUnsupported, ref.Provider))
	}

	logger := log.WithComponent("resolve")
	var errs []error
	for _, r := range rs {
		desc, err := r.Resolve(ctx, ref)
		if err == nil {
			metrics.IncResolve(string(ref.Provider), "ok")
			desc.Source = ref
			return desc, nil
		}
		if ctx.Err() != nil {
			return model.MediaDescriptor{}, ctx.Err()
		}
		logger.Debug().Err(err).
			Str(log.FieldTrackID, string(ref.ID())).
			Str(log.FieldSource, fmt.Sprintf("%T", r)).
			Msg("resolver failed, trying next")
		errs = append(errs, err)
	}
	metrics.IncResolve(string(ref.Provider), "failed")
	return model.MediaDescriptor{}, model.ResolutionError("resolve", ref.ID(), errors.Join(errs...))
}

// PageURL returns the public page for a source, suitable for yt-dlp.
func PageURL(ref model.SourceRef) (string, error) {
	switch ref.Provider {
	case model.ProviderYouTube:
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(ref.NativeID), nil
	case model.ProviderSoundCloud:
		if u, err := url.Parse(ref.EmbedURL); err == nil {
			if inner := u.Query().Get("url"); inner != "" {
				return inner, nil
			}
		}
		return "https://api.soundcloud.com/" + ref.NativeID, nil
	case model.ProviderReverbNation:
		if id, ok := strings.CutPrefix(ref.NativeID, "song="); ok {
			return "https://www.reverbnation.com/amgplay/song/" + id, nil
		}
	case model.ProviderBandcamp:
		if ref.EmbedURL != "" {
			return ref.EmbedURL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, ref)
}

// extFromMime maps "audio/mp4; codecs=..." style types to an extension.
func extFromMime(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok {
		return "bin"
	}
	switch {
	case sub == "3gpp":
		return "3gp"
	case sub == "mpeg":
		return "mp3"
	case sub == "mp4" && strings.HasPrefix(mime, "audio/"):
		return "m4a"
	}
	return sub
}

func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(path.Ext(u.Path), ".")
}

// Options configures the default resolver chain.
type Options struct {
	Getter     PageGetter
	HTTPClient *http.Client
	YtdlpBin   string
	Timeout    time.Duration
	AudioOnly  bool
}

// Default wires the provider resolvers in preference order.
func Default(opts Options) *Chain {
	ytdlp := NewYtdlp(opts.YtdlpBin, opts.Timeout, opts.AudioOnly)
	return NewChain().
		Register(model.ProviderYouTube, NewYouTube(opts.HTTPClient, opts.AudioOnly), ytdlp).
		Register(model.ProviderBandcamp, NewBandcamp(opts.Getter, ytdlp)).
		Register(model.ProviderSoundCloud, ytdlp).
		Register(model.ProviderReverbNation, ytdlp)
}
