package resolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/PuerkitoBio/goquery"
)

const playerDataMarker = "var playerdata ="

// PlayerData is the subset of the embedded player's state we rely on.
type PlayerData struct {
	Artist     string        `json:"artist"`
	AlbumTitle string        `json:"album_title"`
	Linkback   string        `json:"linkback"`
	AlbumArt   string        `json:"album_art"`
	Tracks     []PlayerTrack `json:"tracks"`
}

type PlayerTrack struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Artist string            `json:"artist"`
	File   map[string]string `json:"file"`
}

// Bandcamp reads the stream URL out of the embedded player page. When
// the track is not streamable it hands the album page to Fallback.
type Bandcamp struct {
	getter   PageGetter
	Fallback *Ytdlp
}

func NewBandcamp(getter PageGetter, fallback *Ytdlp) *Bandcamp {
	return &Bandcamp{getter: getter, Fallback: fallback}
}

func (b *Bandcamp) Resolve(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
	if ref.Provider != model.ProviderBandcamp {
		return model.MediaDescriptor{}, fmt.Errorf("%w: %s", ErrUnsupported, ref.Provider)
	}
	body, err := b.getter.Get(ctx, ref.EmbedURL, false)
	if err != nil {
		return model.MediaDescriptor{}, err
	}
	pd, err := ParsePlayerData(body)
	if err != nil {
		return model.MediaDescriptor{}, err
	}

	if t, ok := pd.track(ref.NativeID); ok {
		title := t.Title
		if title == "" {
			title = pd.AlbumTitle
		}
		return model.MediaDescriptor{
			Source: ref,
			URL:    t.File["mp3-128"],
			Ext:    "mp3",
			Title:  title,
		}, nil
	}

	if b.Fallback != nil && pd.Linkback != "" {
		return b.Fallback.ResolveURL(ctx, ref, pd.Linkback)
	}
	return model.MediaDescriptor{}, errors.New("bandcamp: no streamable track")
}

// ParsePlayerData extracts the player state JSON from an embed page.
func ParsePlayerData(body []byte) (*PlayerData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse embed page: %w", err)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for line := range strings.Lines(s.Text()) {
			if _, after, ok := strings.Cut(line, playerDataMarker); ok {
				raw = strings.TrimRight(strings.TrimSpace(after), ";")
				return false
			}
		}
		return true
	})
	if raw == "" {
		return nil, errors.New("bandcamp: player data not found")
	}

	var pd PlayerData
	if err := json.Unmarshal([]byte(raw), &pd); err != nil {
		return nil, fmt.Errorf("bandcamp: decode player data: %w", err)
	}
	return &pd, nil
}

// track picks the pinned track when native is "track=<id>", otherwise the
// first streamable one.
func (pd *PlayerData) track(native string) (PlayerTrack, bool) {
	var want int64
	if v, ok := strings.CutPrefix(native, "track="); ok {
		want, _ = strconv.ParseInt(v, 10, 64)
	}
	for _, t := range pd.Tracks {
		if t.File["mp3-128"] == "" {
			continue
		}
		if want == 0 || t.ID == want {
			return t, true
		}
	}
	return PlayerTrack{}, false
}
