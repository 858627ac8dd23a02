package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/history"
	"github.com/ManuGH/amgplay/internal/media/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func yt(id string) model.SourceRef {
	return model.SourceRef{Provider: model.ProviderYouTube, NativeID: id}
}

func bc(id string) model.SourceRef {
	return model.SourceRef{Provider: model.ProviderBandcamp, NativeID: "track=" + id}
}

func mkTrack(review *model.Review, srcs ...model.SourceRef) model.Track {
	return model.Track{ID: srcs[0].ID(), Review: review, Sources: srcs, HasVideo: srcs[0].Provider.HasVideo()}
}

func play(t model.Track) model.Decision {
	return model.Decision{Action: model.ActionPlayAuto, Track: t}
}

type harness struct {
	res     *fakeResolver
	dlRes   *fakeResolver
	player  *fakePlayer
	fetcher *fakeFetcher
	synth   *fakeSynth
	hist    *history.MemoryStore
}

func newHarness() *harness {
	return &harness{
		res:     &fakeResolver{},
		player:  &fakePlayer{},
		fetcher: &fakeFetcher{},
		synth:   &fakeSynth{},
		hist:    history.NewMemoryStore(),
	}
}

func (h *harness) orchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	deps := Deps{
		Resolver:    h.res,
		Player:      h.player,
		Fetcher:     h.fetcher,
		Synthesizer: h.synth,
		History:     h.hist,
		Now:         func() time.Time { return fixedNow },
	}
	if h.dlRes != nil {
		deps.DownloadResolver = h.dlRes
	}
	return New(cfg, deps)
}

func ids(entries []model.HistoryEntry) []model.TrackID {
	out := make([]model.TrackID, len(entries))
	for i, e := range entries {
		out[i] = e.TrackID
	}
	return out
}

func TestRun_PlaysVideoAndRecords(t *testing.T) {
	h := newHarness()
	r := &model.Review{URL: "https://site.test/r1/", Artist: "A", Album: "B"}
	tr := mkTrack(r, yt("vid1"))

	sum, err := h.orchestrator(t, Config{RequireVideo: true}).Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(tr)}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Decisions: 1, Played: 1}, sum)

	require.Len(t, h.player.calls, 1)
	assert.Equal(t, playCall{"https://media.test/vid1", false}, h.player.calls[0])
	assert.Zero(t, h.synth.calls)

	entries := h.hist.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.HistoryEntry{
		TrackID:   tr.ID,
		Outcome:   model.OutcomePlayed,
		At:        fixedNow,
		ReviewURL: r.URL,
		Title:     "A - B",
	}, entries[0])
}

func TestRun_SkipsAreNotActedOn(t *testing.T) {
	h := newHarness()
	tr := mkTrack(nil, yt("x"))
	src := &sliceDecisions{ds: []model.Decision{
		{Action: model.ActionSkipAlreadyPlayed, Track: tr, Reason: model.ReasonAlreadyPlayed},
		{Action: model.ActionSkipUser, Track: tr, Reason: model.ReasonUserSkip},
	}}

	sum, err := h.orchestrator(t, Config{}).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Summary{Decisions: 2, Skipped: 2}, sum)
	assert.Empty(t, h.res.calls)
	assert.Empty(t, h.hist.Entries())
}

func TestRun_FallsBackToAlternateSource(t *testing.T) {
	h := newHarness()
	tr := mkTrack(nil, yt("blocked"), bc("42"))
	h.res.fail = map[model.TrackID]bool{yt("blocked").ID(): true}

	sum, err := h.orchestrator(t, Config{}).Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(tr)}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Played)
	assert.Zero(t, sum.Failed)

	assert.Equal(t, []model.TrackID{yt("blocked").ID(), bc("42").ID()}, h.res.calls)
	require.Len(t, h.player.calls, 1)
	assert.Equal(t, playCall{"https://media.test/track=42", true}, h.player.calls[0])
	assert.Equal(t, []model.TrackID{tr.ID}, ids(h.hist.Entries()), "recorded under the track id, not the alternate")
}

func TestRun_UnresolvableTrackIsSkipped(t *testing.T) {
	h := newHarness()
	bad := mkTrack(nil, yt("gone"))
	good := mkTrack(nil, yt("ok"))
	h.res.fail = map[model.TrackID]bool{bad.ID: true}

	sum, err := h.orchestrator(t, Config{}).Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(bad), play(good)}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Decisions: 2, Played: 1, Failed: 1}, sum)
	assert.Equal(t, []model.TrackID{good.ID}, ids(h.hist.Entries()))
}

func TestRun_PlayerCrashIsNotFatal(t *testing.T) {
	h := newHarness()
	a := mkTrack(nil, yt("a"))
	b := mkTrack(nil, yt("b"))
	h.player.fail = map[string]bool{"https://media.test/a": true}

	sum, err := h.orchestrator(t, Config{}).Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(a), play(b)}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []model.TrackID{b.ID}, ids(h.hist.Entries()))
}

func TestRun_SynthesizesVideoForAudio(t *testing.T) {
	h := newHarness()
	r := &model.Review{URL: "https://site.test/r/", CoverURL: "https://site.test/cover.jpg"}
	tr := mkTrack(r, bc("7"))

	_, err := h.orchestrator(t, Config{RequireVideo: true}).Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(tr)}})
	require.NoError(t, err)

	assert.Equal(t, 1, h.synth.calls)
	require.Len(t, h.player.calls, 1)
	assert.False(t, h.player.calls[0].audioOnly)
	assert.True(t, strings.HasSuffix(h.player.calls[0].target, "video.mkv"))
	assert.Len(t, h.hist.Entries(), 1)
}

func TestRun_SynthesisFailure(t *testing.T) {
	r := &model.Review{URL: "https://site.test/r/", CoverURL: "https://site.test/cover.jpg"}
	tr := mkTrack(r, bc("7"))

	t.Run("falls back to audio", func(t *testing.T) {
		h := newHarness()
		h.synth.err = errors.New("ffmpeg exploded")
		work := t.TempDir()

		_, err := h.orchestrator(t, Config{RequireVideo: true, AudioFallback: true, WorkDir: work}).
			Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(tr)}})
		require.NoError(t, err)
		require.Len(t, h.player.calls, 1)
		assert.True(t, h.player.calls[0].audioOnly)
		assert.Equal(t, "audio.mp3", filepath.Base(h.player.calls[0].target))
		assert.Len(t, h.hist.Entries(), 1)

		left, err := os.ReadDir(work)
		require.NoError(t, err)
		assert.Empty(t, left, "scratch files are removed")
	})

	t.Run("skips without fallback", func(t *testing.T) {
		h := newHarness()
		h.synth.err = errors.New("ffmpeg exploded")

		sum, err := h.orchestrator(t, Config{RequireVideo: true}).
			Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(tr)}})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Failed)
		assert.Empty(t, h.player.calls)
		assert.Empty(t, h.hist.Entries())
	})

	t.Run("missing cover counts as synthesis failure", func(t *testing.T) {
		h := newHarness()
		noCover := mkTrack(&model.Review{URL: "https://site.test/r/"}, bc("8"))

		_, err := h.orchestrator(t, Config{RequireVideo: true, AudioFallback: true}).
			Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(noCover)}})
		require.NoError(t, err)
		assert.Zero(t, h.synth.calls)
		require.Len(t, h.player.calls, 1)
		assert.True(t, h.player.calls[0].audioOnly)
	})
}

func TestRun_InterruptLeavesOnlyCompletedEntries(t *testing.T) {
	h := newHarness()
	var ds []model.Decision
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		ds = append(ds, play(mkTrack(nil, yt(id))))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the signal arrives while the third track is playing
	h.player.onPlay = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	sum, err := h.orchestrator(t, Config{}).Run(ctx, &sliceDecisions{ds: ds})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, sum.Played)
	assert.Equal(t, []model.TrackID{yt("t1").ID(), yt("t2").ID()}, ids(h.hist.Entries()))
}

func TestRun_TrackFinishedAtInterruptIsRecorded(t *testing.T) {
	h := newHarness()
	h.player.finish = true
	ds := []model.Decision{play(mkTrack(nil, yt("t1"))), play(mkTrack(nil, yt("t2"))), play(mkTrack(nil, yt("t3")))}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the signal lands as the second track ends on its own
	h.player.onPlay = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	sum, err := h.orchestrator(t, Config{}).Run(ctx, &sliceDecisions{ds: ds})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, sum.Played)
	assert.Len(t, h.player.calls, 2)
	assert.Equal(t, []model.TrackID{yt("t1").ID(), yt("t2").ID()}, ids(h.hist.Entries()))
}

func TestRun_PersistenceErrorIsFatal(t *testing.T) {
	h := newHarness()
	o := New(Config{}, Deps{Resolver: h.res, Player: h.player, Fetcher: h.fetcher, Synthesizer: h.synth, History: failingHistory{}})

	a := mkTrack(nil, yt("a"))
	b := mkTrack(nil, yt("b"))
	_, err := o.Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(a), play(b)}})
	require.ErrorIs(t, err, model.ErrPersistence)
	assert.True(t, model.IsFatal(err))
	assert.Len(t, h.player.calls, 1, "run stops at the first unwritable append")
}

// mpegFrame is enough of an MP3 for the tagger.
var mpegFrame = append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)

func TestRun_DownloadMode(t *testing.T) {
	h := newHarness()
	h.fetcher.content = mpegFrame
	root := t.TempDir()
	r := &model.Review{
		URL:       "https://site.test/grave-pact/",
		Artist:    "Grave Pact",
		Album:     "Ashen Crown",
		Tags:      []string{"death-metal"},
		CoverURL:  "https://site.test/cover.jpg",
		Published: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	first := mkTrack(r, bc("1"))
	first.Title = "Opening"
	second := mkTrack(r, bc("2"))
	second.Title = "Closer"

	sum, err := h.orchestrator(t, Config{Download: true, DownloadDir: root}).
		Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(first), play(second)}})
	require.NoError(t, err)
	assert.Equal(t, Summary{Decisions: 2, Downloaded: 2}, sum)
	assert.Empty(t, h.player.calls)

	dir := filepath.Join(root, "Grave Pact - Ashen Crown")
	assert.FileExists(t, filepath.Join(dir, "01 - Opening.mp3"))
	assert.FileExists(t, filepath.Join(dir, "02 - Closer.mp3"))
	assert.FileExists(t, filepath.Join(dir, coverFileName))

	info, hasCover, err := tag.ReadMP3(filepath.Join(dir, "02 - Closer.mp3"))
	require.NoError(t, err)
	assert.True(t, hasCover)
	assert.Equal(t, "Grave Pact", info.Artist)
	assert.Equal(t, "Ashen Crown", info.Album)
	assert.Equal(t, 2, info.Track)
	assert.Equal(t, "2024", info.Year)

	for _, e := range h.hist.Entries() {
		assert.Equal(t, model.OutcomeDownloaded, e.Outcome)
	}
}

func TestRun_PerTrackDownloadChoice(t *testing.T) {
	h := newHarness()
	h.dlRes = &fakeResolver{audioOnly: true}
	root := t.TempDir()
	tr := mkTrack(&model.Review{URL: "https://site.test/r/", Album: "Solo"}, yt("v"))
	tr.Title = "Solo"

	_, err := h.orchestrator(t, Config{DownloadDir: root}).Run(context.Background(), &sliceDecisions{ds: []model.Decision{
		{Action: model.ActionPlayInteractive, Track: tr, Download: true},
	}})
	require.NoError(t, err)
	assert.Empty(t, h.player.calls)
	assert.Empty(t, h.res.calls, "downloads go through the download resolver")
	assert.Equal(t, []model.TrackID{tr.ID}, h.dlRes.calls)
	assert.FileExists(t, filepath.Join(root, "Solo", "01 - Solo.m4a"))
	assert.NoFileExists(t, filepath.Join(root, "Solo", "01 - Solo.mp4"))
	require.Len(t, h.hist.Entries(), 1)
	assert.Equal(t, model.OutcomeDownloaded, h.hist.Entries()[0].Outcome)
}

func TestRun_DownloadKeepsVideoWhenConfigured(t *testing.T) {
	h := newHarness()
	root := t.TempDir()
	tr := mkTrack(&model.Review{URL: "https://site.test/r/", Album: "Solo"}, yt("v"))
	tr.Title = "Solo"

	_, err := h.orchestrator(t, Config{Download: true, DownloadDir: root}).
		Run(context.Background(), &sliceDecisions{ds: []model.Decision{play(tr)}})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "Solo", "01 - Solo.mp4"))
}
