// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
)

// TrackStatus describes one track in a status snapshot.
type TrackStatus struct {
	ID        model.TrackID `json:"id"`
	Name      string        `json:"name"`
	ReviewURL string        `json:"review_url,omitempty"`
	Action    string        `json:"action,omitempty"`
	Outcome   string        `json:"outcome,omitempty"`
	At        time.Time     `json:"at"`
}

// Snapshot is the body of GET /status.
type Snapshot struct {
	RunID     string       `json:"run_id"`
	Mode      string       `json:"mode"`
	State     string       `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	Decisions int          `json:"decisions"`
	Skipped   int          `json:"skipped"`
	Completed int          `json:"completed"`
	Current   *TrackStatus `json:"current,omitempty"`
	Last      *TrackStatus `json:"last_completed,omitempty"`
}

// Tracker accumulates run progress for the status endpoint. It is safe for
// concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	state func() string
	now   func() time.Time
}

func NewTracker(runID, mode string) *Tracker {
	t := &Tracker{now: time.Now}
	t.snap = Snapshot{RunID: runID, Mode: mode, StartedAt: t.now().UTC()}
	return t
}

// SetStateFunc installs the lookup used for Snapshot.State.
func (t *Tracker) SetStateFunc(f func() string) {
	t.mu.Lock()
	t.state = f
	t.mu.Unlock()
}

// Observe records a decision about to be acted on.
func (t *Tracker) Observe(d model.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Decisions++
	if d.Action.IsSkip() {
		t.snap.Skipped++
		return
	}
	t.snap.Current = &TrackStatus{
		ID:        d.Track.ID,
		Name:      d.Track.DisplayName(),
		ReviewURL: reviewURL(d.Track),
		Action:    string(d.Action),
		At:        t.now().UTC(),
	}
}

// Completed records a track written to history.
func (t *Tracker) Completed(e model.HistoryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Completed++
	t.snap.Last = &TrackStatus{
		ID:        e.TrackID,
		Name:      e.Title,
		ReviewURL: e.ReviewURL,
		Outcome:   string(e.Outcome),
		At:        e.At,
	}
	if t.snap.Current != nil && t.snap.Current.ID == e.TrackID {
		t.snap.Current = nil
	}
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	if s.Current != nil {
		c := *s.Current
		s.Current = &c
	}
	if s.Last != nil {
		l := *s.Last
		s.Last = &l
	}
	if t.state != nil {
		s.State = t.state()
	}
	return s
}

func reviewURL(tr model.Track) string {
	if tr.Review == nil {
		return ""
	}
	return tr.Review.URL
}

// DecisionSource mirrors the orchestrator's input.
type DecisionSource interface {
	Next(ctx context.Context) (model.Decision, error)
}

// HistoryWriter mirrors the orchestrator's history sink.
type HistoryWriter interface {
	Append(ctx context.Context, e model.HistoryEntry) error
}

// TapDecisions reports every decision pulled from src to t.
func TapDecisions(src DecisionSource, t *Tracker) DecisionSource {
	return decisionTap{src: src, t: t}
}

// TapHistory reports every successful append to t.
func TapHistory(w HistoryWriter, t *Tracker) HistoryWriter {
	return historyTap{w: w, t: t}
}

type decisionTap struct {
	src DecisionSource
	t   *Tracker
}

func (d decisionTap) Next(ctx context.Context) (model.Decision, error) {
	dec, err := d.src.Next(ctx)
	if err == nil {
		d.t.Observe(dec)
	}
	return dec, err
}

type historyTap struct {
	w HistoryWriter
	t *Tracker
}

func (h historyTap) Append(ctx context.Context, e model.HistoryEntry) error {
	if err := h.w.Append(ctx, e); err != nil {
		return err
	}
	h.t.Completed(e)
	return nil
}
