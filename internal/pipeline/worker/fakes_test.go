package worker

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/pipeline/sequencer"
)

type fakeResolver struct {
	mu        sync.Mutex
	fail      map[model.TrackID]bool
	audioOnly bool
	calls     []model.TrackID
}

func (r *fakeResolver) Resolve(_ context.Context, ref model.SourceRef) (model.MediaDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ref.ID())
	if r.fail[ref.ID()] {
		return model.MediaDescriptor{}, model.ResolutionError("fake", ref.ID(), errors.New("unavailable"))
	}
	video := ref.Provider.HasVideo() && !r.audioOnly
	ext := "mp3"
	switch {
	case video:
		ext = "mp4"
	case ref.Provider.HasVideo():
		ext = "m4a"
	}
	return model.MediaDescriptor{
		Source: ref,
		URL:    "https://media.test/" + ref.NativeID,
		Video:  video,
		Ext:    ext,
	}, nil
}

type playCall struct {
	target    string
	audioOnly bool
}

type fakePlayer struct {
	mu     sync.Mutex
	calls  []playCall
	fail   map[string]bool
	onPlay func(n int)
	// finish ignores cancellation that arrives during playback
	finish bool
}

func (p *fakePlayer) Play(ctx context.Context, target string, audioOnly bool) error {
	p.mu.Lock()
	p.calls = append(p.calls, playCall{target, audioOnly})
	n := len(p.calls)
	p.mu.Unlock()
	if p.onPlay != nil {
		p.onPlay(n)
	}
	if err := ctx.Err(); err != nil && !p.finish {
		return err
	}
	if p.fail[target] {
		return errors.New("player crashed")
	}
	return nil
}

type fakeFetcher struct {
	fail    map[string]bool
	content []byte
}

func (f *fakeFetcher) Fetch(_ context.Context, desc model.MediaDescriptor, dest string) (string, error) {
	if f.fail[desc.URL] {
		return "", errors.New("404")
	}
	body := f.content
	if body == nil {
		body = []byte(desc.URL)
	}
	if err := os.WriteFile(dest, body, 0o600); err != nil {
		return "", err
	}
	return dest, nil
}

type fakeSynth struct {
	err   error
	calls int
}

func (s *fakeSynth) Synthesize(_ context.Context, cover, audio, out string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	if _, err := os.Stat(cover); err != nil {
		return err
	}
	if _, err := os.Stat(audio); err != nil {
		return err
	}
	return os.WriteFile(out, []byte("mkv"), 0o600)
}

type sliceDecisions struct {
	ds []model.Decision
}

func (s *sliceDecisions) Next(ctx context.Context) (model.Decision, error) {
	if err := ctx.Err(); err != nil {
		return model.Decision{}, err
	}
	if len(s.ds) == 0 {
		return model.Decision{}, sequencer.ErrExhausted
	}
	d := s.ds[0]
	s.ds = s.ds[1:]
	return d, nil
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, model.HistoryEntry) error {
	return errors.New("disk full")
}
