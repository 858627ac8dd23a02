package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/history"
	"github.com/ManuGH/amgplay/internal/pipeline/sequencer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrack() model.Track {
	r := &model.Review{
		URL:       "https://site.test/band-album/",
		Artist:    "Band",
		Album:     "Album",
		Tags:      []string{"doom", "sludge"},
		Published: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	return model.Track{
		ID:      "youtube:abcdef",
		Title:   "Opener",
		Review:  r,
		Sources: []model.SourceRef{{Provider: model.ProviderYouTube, NativeID: "abcdef"}},
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in   string
		want sequencer.Choice
		ok   bool
	}{
		{"", sequencer.ChoicePlay, true},
		{"  P ", sequencer.ChoicePlay, true},
		{"skip", sequencer.ChoiceSkip, true},
		{"d", sequencer.ChoiceDownload, true},
		{"Q", sequencer.ChoiceQuit, true},
		{"later", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseChoice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestTerminal_OfferReadsSuccessiveAnswers(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader("what\ns\nd\n"), &out, nil)

	c, err := term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	assert.Equal(t, sequencer.ChoiceSkip, c)

	c, err = term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	assert.Equal(t, sequencer.ChoiceDownload, c)

	c, err = term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	assert.Equal(t, sequencer.ChoiceQuit, c, "end of input quits")

	text := out.String()
	assert.Contains(t, text, "Band - Album / Opener")
	assert.Contains(t, text, "doom, sludge")
	assert.Contains(t, text, "2024-01-02")
	assert.Contains(t, text, `unknown answer "what"`)
}

func TestTerminal_ShowsHistoryStats(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	store := history.NewMemoryStore(
		model.HistoryEntry{TrackID: "youtube:abcdef", Outcome: model.OutcomePlayed, At: now.Add(-72 * time.Hour)},
		model.HistoryEntry{TrackID: "youtube:abcdef", Outcome: model.OutcomePlayed, At: now.Add(-3 * time.Hour)},
	)
	var out bytes.Buffer
	term := New(strings.NewReader("p\n"), &out, store)
	term.now = func() time.Time { return now }

	_, err := term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "played 2 time(s), last 3 h ago")
}

func TestTerminal_OfferHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	term := New(pr, io.Discard, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c, err := term.Offer(ctx, sampleTrack())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, sequencer.ChoiceQuit, c)
}

func TestTerminal_LeavesInputAloneBetweenOffers(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := New(pr, io.Discard, nil)

	go func() { _, _ = pw.Write([]byte("p\n")) }()
	c, err := term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	require.Equal(t, sequencer.ChoicePlay, c)

	// keys meant for the player while a track is playing
	written := make(chan struct{})
	go func() {
		_, _ = pw.Write([]byte("q\n"))
		close(written)
	}()
	select {
	case <-written:
		t.Fatal("input was read while no offer was waiting")
	case <-time.After(50 * time.Millisecond):
	}

	c, err = term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	assert.Equal(t, sequencer.ChoiceQuit, c)
	<-written
}

func TestTerminal_AbandonedReadServesNextOffer(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := New(pr, io.Discard, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := term.Offer(ctx, sampleTrack())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() { _, _ = pw.Write([]byte("s\n")) }()
	c, err := term.Offer(context.Background(), sampleTrack())
	require.NoError(t, err)
	assert.Equal(t, sequencer.ChoiceSkip, c)
}

func TestHumanAgo(t *testing.T) {
	assert.Equal(t, "just now", humanAgo(10*time.Second))
	assert.Equal(t, "5 min ago", humanAgo(5*time.Minute))
	assert.Equal(t, "30 h ago", humanAgo(30*time.Hour))
	assert.Equal(t, "3 days ago", humanAgo(80*time.Hour))
}
