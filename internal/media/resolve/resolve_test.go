package resolve

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error)

func (f resolverFunc) Resolve(ctx context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
	return f(ctx, ref)
}

func failing(msg string) Resolver {
	return resolverFunc(func(context.Context, model.SourceRef) (model.MediaDescriptor, error) {
		return model.MediaDescriptor{}, errors.New(msg)
	})
}

func TestChain_FallsThroughResolvers(t *testing.T) {
	ok := resolverFunc(func(_ context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
		return model.MediaDescriptor{URL: "https://cdn.example/" + ref.NativeID}, nil
	})
	c := NewChain().Register(model.ProviderYouTube, failing("quota"), ok)

	ref := model.SourceRef{Provider: model.ProviderYouTube, NativeID: "abc"}
	desc, err := c.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/abc", desc.URL)
	assert.Equal(t, ref, desc.Source)
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain().Register(model.ProviderSoundCloud, failing("first"), failing("second"))

	_, err := c.Resolve(context.Background(), model.SourceRef{Provider: model.ProviderSoundCloud, NativeID: "tracks/1"})
	require.ErrorIs(t, err, model.ErrResolution)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
}

func TestChain_UnknownProvider(t *testing.T) {
	_, err := NewChain().Resolve(context.Background(), model.SourceRef{Provider: model.ProviderReverbNation, NativeID: "song=1"})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, model.ErrResolution)
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		name string
		ref  model.SourceRef
		want string
	}{
		{"youtube", model.SourceRef{Provider: model.ProviderYouTube, NativeID: "dQw4w9WgXcQ"}, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{
			"soundcloud from embed",
			model.SourceRef{
				Provider: model.ProviderSoundCloud,
				NativeID: "tracks/42",
				EmbedURL: "https://w.soundcloud.com/player/?url=https%3A//api.soundcloud.com/tracks/42&color=ff5500",
			},
			"https://api.soundcloud.com/tracks/42",
		},
		{"soundcloud bare", model.SourceRef{Provider: model.ProviderSoundCloud, NativeID: "tracks/42"}, "https://api.soundcloud.com/tracks/42"},
		{"reverbnation", model.SourceRef{Provider: model.ProviderReverbNation, NativeID: "song=123"}, "https://www.reverbnation.com/amgplay/song/123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PageURL(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := PageURL(model.SourceRef{Provider: model.ProviderBandcamp, NativeID: "album=1"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtFromMime(t *testing.T) {
	assert.Equal(t, "mp4", extFromMime(`video/mp4; codecs="avc1.42001E, mp4a.40.2"`))
	assert.Equal(t, "m4a", extFromMime(`audio/mp4; codecs="mp4a.40.2"`))
	assert.Equal(t, "webm", extFromMime("audio/webm"))
	assert.Equal(t, "3gp", extFromMime("video/3gpp"))
	assert.Equal(t, "mp3", extFromMime("audio/mpeg"))
	assert.Equal(t, "bin", extFromMime("garbage"))
}

func TestPickFormat(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: "video/mp4", Width: 640, Height: 360, AudioChannels: 2, Bitrate: 500000},
		{ItagNo: 22, MimeType: "video/mp4", Width: 1280, Height: 720, AudioChannels: 2, Bitrate: 1500000},
		{ItagNo: 137, MimeType: "video/mp4", Width: 1920, Height: 1080, Bitrate: 4000000},
		{ItagNo: 140, MimeType: "audio/mp4", AudioChannels: 2, Bitrate: 130000, AverageBitrate: 128000},
		{ItagNo: 251, MimeType: "audio/webm", AudioChannels: 2, Bitrate: 160000, AverageBitrate: 150000},
	}

	v, err := pickFormat(formats, false)
	require.NoError(t, err)
	assert.Equal(t, 22, v.ItagNo, "video-only 1080p has no audio")

	a, err := pickFormat(formats, true)
	require.NoError(t, err)
	assert.Equal(t, 251, a.ItagNo)

	_, err = pickFormat(formats[2:3], false)
	assert.Error(t, err)
}

type staticGetter struct {
	body []byte
	err  error
	urls []string
}

func (g *staticGetter) Get(_ context.Context, rawURL string, _ bool) ([]byte, error) {
	g.urls = append(g.urls, rawURL)
	return g.body, g.err
}

func loadEmbed(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/bandcamp_embed.html")
	require.NoError(t, err)
	return b
}

func TestParsePlayerData(t *testing.T) {
	pd, err := ParsePlayerData(loadEmbed(t))
	require.NoError(t, err)
	assert.Equal(t, "Grave Titan", pd.Artist)
	assert.Equal(t, "Wastelands", pd.AlbumTitle)
	assert.Equal(t, "https://gravetitan.bandcamp.com/album/wastelands", pd.Linkback)
	require.Len(t, pd.Tracks, 3)

	_, err = ParsePlayerData([]byte("<html><script>var x = 1;</script></html>"))
	assert.Error(t, err)
}

func TestBandcamp_Resolve(t *testing.T) {
	const embed = "https://bandcamp.com/EmbeddedPlayer/album=77/size=large/"
	g := &staticGetter{body: loadEmbed(t)}
	b := NewBandcamp(g, nil)

	t.Run("pinned track", func(t *testing.T) {
		desc, err := b.Resolve(context.Background(), model.SourceRef{Provider: model.ProviderBandcamp, NativeID: "track=1003", EmbedURL: embed})
		require.NoError(t, err)
		assert.Equal(t, "https://t4.bcbits.com/stream/def/mp3-128/1003", desc.URL)
		assert.Equal(t, "Hollow Sun", desc.Title)
		assert.Equal(t, "mp3", desc.Ext)
		assert.False(t, desc.Video)
	})

	t.Run("album picks first streamable", func(t *testing.T) {
		desc, err := b.Resolve(context.Background(), model.SourceRef{Provider: model.ProviderBandcamp, NativeID: "album=77", EmbedURL: embed})
		require.NoError(t, err)
		assert.Equal(t, "Iron Tide", desc.Title)
	})

	t.Run("non streamable without fallback", func(t *testing.T) {
		_, err := b.Resolve(context.Background(), model.SourceRef{Provider: model.ProviderBandcamp, NativeID: "track=1001", EmbedURL: embed})
		assert.Error(t, err)
	})

	assert.Equal(t, embed, g.urls[0])
}

func TestParseYtdlpInfo(t *testing.T) {
	ref := model.SourceRef{Provider: model.ProviderSoundCloud, NativeID: "tracks/9"}
	out := []byte(`{"url":"https://cf-media.sndcdn.com/x.mp3?Policy=1","ext":"","title":"Dirge","vcodec":"none","acodec":"mp3","http_headers":{"User-Agent":"ua"}}`)

	desc, err := parseYtdlpInfo(ref, out)
	require.NoError(t, err)
	assert.Equal(t, "mp3", desc.Ext)
	assert.False(t, desc.Video)
	assert.Equal(t, "ua", desc.Headers["User-Agent"])
	assert.Equal(t, "Dirge", desc.Title)

	_, err = parseYtdlpInfo(ref, []byte(`{"title":"no url"}`))
	assert.Error(t, err)
}
