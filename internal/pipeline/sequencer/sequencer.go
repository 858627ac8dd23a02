// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sequencer turns the stream of extracted tracks into playback
// decisions according to the selected mode.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ManuGH/amgplay/internal/crawler"
	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
	"github.com/ManuGH/amgplay/internal/pipeline/fsm"
	"github.com/ManuGH/amgplay/internal/pipeline/prefetch"
	"github.com/rs/zerolog"
)

// ErrExhausted is returned once no further decisions will be produced.
var ErrExhausted = errors.New("sequencer exhausted")

type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StatePaused    State = "paused"
	StateDraining  State = "draining"
)

type Event string

const (
	EventStart   Event = "start"
	EventOffer   Event = "offer"
	EventChoose  Event = "choose"
	EventQuit    Event = "quit"
	EventExhaust Event = "exhaust"
	EventFinish  Event = "finish"
)

func transitions() []fsm.Transition[State, Event] {
	return []fsm.Transition[State, Event]{
		{From: StateIdle, Event: EventStart, To: StateStreaming},
		{From: StateStreaming, Event: EventOffer, To: StatePaused},
		{From: StatePaused, Event: EventChoose, To: StateStreaming},
		{From: StatePaused, Event: EventQuit, To: StateDraining},
		{From: StateStreaming, Event: EventQuit, To: StateDraining},
		{From: StateStreaming, Event: EventExhaust, To: StateDraining},
		{From: StateDraining, Event: EventFinish, To: StateIdle},
	}
}

// Source yields extracted pages in listing order.
type Source interface {
	Next(ctx context.Context) (prefetch.Batch, error)
}

// Sequencer is driven by a single consumer; Quit may be called from any
// goroutine.
type Sequencer struct {
	policy  Policy
	source  Source
	machine *fsm.Machine[State, Event]
	logger  zerolog.Logger

	queue    []model.Track
	finished bool
	quit     atomic.Bool
}

// New builds a Sequencer in the idle state.
func New(policy Policy, source Source) (*Sequencer, error) {
	m, err := fsm.New(StateIdle, transitions())
	if err != nil {
		return nil, err
	}
	s := &Sequencer{
		policy:  policy,
		source:  source,
		machine: m,
		logger:  log.WithComponent("sequencer").With().Str(log.FieldMode, policy.Mode()).Logger(),
	}
	m.Observe(func(from, to State, ev Event) {
		metrics.SetSequencerState(string(to))
		s.logger.Debug().
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str(log.FieldEvent, string(ev)).
			Msg("sequencer transition")
	})
	metrics.SetSequencerState(string(StateIdle))
	return s, nil
}

// State returns the current lifecycle state.
func (s *Sequencer) State() State { return s.machine.State() }

// Quit stops pulling new tracks. The decision currently being acted on is
// unaffected; the next call to Next returns ErrExhausted.
func (s *Sequencer) Quit() {
	s.quit.Store(true)
	if s.machine.Can(EventQuit) {
		_, _ = s.machine.Fire(context.Background(), EventQuit)
	}
}

// Next returns the next decision, including skips.
func (s *Sequencer) Next(ctx context.Context) (model.Decision, error) {
	if s.finished {
		return model.Decision{}, ErrExhausted
	}
	if s.State() == StateIdle {
		if _, err := s.machine.Fire(ctx, EventStart); err != nil {
			return model.Decision{}, err
		}
	}

	for {
		if s.quit.Load() || s.State() == StateDraining {
			return model.Decision{}, s.drain(ctx)
		}
		if err := ctx.Err(); err != nil {
			return model.Decision{}, err
		}

		if len(s.queue) == 0 {
			batch, err := s.source.Next(ctx)
			if errors.Is(err, crawler.ErrEndOfListing) {
				if s.machine.Can(EventExhaust) {
					_, _ = s.machine.Fire(ctx, EventExhaust)
				}
				return model.Decision{}, s.drain(ctx)
			}
			if err != nil {
				return model.Decision{}, err
			}
			s.queue = append(s.queue, batch.Tracks()...)
			continue
		}

		t := s.queue[0]
		s.queue = s.queue[1:]

		d, err := s.decide(ctx, t)
		if errors.Is(err, ErrQuit) {
			s.quit.Store(true)
			continue
		}
		if err != nil {
			return model.Decision{}, err
		}

		metrics.IncDecision(s.policy.Mode(), string(d.Action))
		ev := s.logger.Info()
		if d.Action.IsSkip() {
			ev = s.logger.Debug()
		}
		ev.Str(log.FieldTrackID, string(t.ID)).
			Str(log.FieldDecision, string(d.Action)).
			Str(log.FieldReason, d.Reason).
			Msg(t.DisplayName())
		return d, nil
	}
}

func (s *Sequencer) decide(ctx context.Context, t model.Track) (model.Decision, error) {
	if !s.policy.Offers(t) {
		return s.policy.Decide(ctx, t)
	}
	if _, err := s.machine.Fire(ctx, EventOffer); err != nil {
		if s.State() == StateDraining {
			return model.Decision{}, ErrQuit
		}
		return model.Decision{}, err
	}
	d, err := s.policy.Decide(ctx, t)
	if err != nil {
		switch {
		case errors.Is(err, ErrQuit) && s.machine.Can(EventQuit):
			_, _ = s.machine.Fire(ctx, EventQuit)
		case s.machine.Can(EventChoose):
			_, _ = s.machine.Fire(context.WithoutCancel(ctx), EventChoose)
		}
		return model.Decision{}, err
	}
	if _, err := s.machine.Fire(ctx, EventChoose); err != nil {
		if s.State() == StateDraining {
			return model.Decision{}, ErrQuit
		}
		return model.Decision{}, err
	}
	return d, nil
}

func (s *Sequencer) drain(ctx context.Context) error {
	if s.machine.Can(EventQuit) {
		_, _ = s.machine.Fire(ctx, EventQuit)
	}
	if s.machine.Can(EventFinish) {
		if _, err := s.machine.Fire(ctx, EventFinish); err != nil {
			return fmt.Errorf("finish: %w", err)
		}
	}
	s.finished = true
	s.queue = nil
	return ErrExhausted
}
