//go:build unix

package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeYtdlp(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func TestYtdlp_Resolve(t *testing.T) {
	// echo the page url back so the test sees what was requested
	bin := fakeYtdlp(t, `for last; do :; done
printf '{"url":"https://media.example/a.webm","ext":"webm","title":"%s","vcodec":"vp9","acodec":"opus"}' "$last"`)

	y := NewYtdlp(bin, 5*time.Second, false)
	desc, err := y.Resolve(context.Background(), model.SourceRef{Provider: model.ProviderYouTube, NativeID: "xyz"})
	require.NoError(t, err)
	assert.True(t, desc.Video)
	assert.Equal(t, "webm", desc.Ext)
	assert.Equal(t, "https://www.youtube.com/watch?v=xyz", desc.Title)
}

func TestYtdlp_Failure(t *testing.T) {
	bin := fakeYtdlp(t, `echo "ERROR: Unsupported URL" >&2; exit 1`)
	_, err := NewYtdlp(bin, time.Second, true).Resolve(context.Background(), model.SourceRef{Provider: model.ProviderReverbNation, NativeID: "song=5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported URL")
}

func TestBandcamp_FallsBackToLinkback(t *testing.T) {
	bin := fakeYtdlp(t, `for last; do :; done
printf '{"url":"https://bcbits.example/full.mp3","ext":"mp3","title":"%s","vcodec":"none"}' "$last"`)

	g := &staticGetter{body: loadEmbed(t)}
	b := NewBandcamp(g, NewYtdlp(bin, time.Second, true))
	desc, err := b.Resolve(context.Background(), model.SourceRef{
		Provider: model.ProviderBandcamp,
		NativeID: "track=1001",
		EmbedURL: "https://bandcamp.com/EmbeddedPlayer/track=1001/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://gravetitan.bandcamp.com/album/wastelands", desc.Title)
	assert.Equal(t, "https://bcbits.example/full.mp3", desc.URL)
}
