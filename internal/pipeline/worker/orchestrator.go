// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package worker acts on playback decisions: resolve, play or download,
// and record completions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/infra/ffmpeg"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/media/fetch"
	"github.com/ManuGH/amgplay/internal/media/player"
	"github.com/ManuGH/amgplay/internal/media/resolve"
	"github.com/ManuGH/amgplay/internal/metrics"
	"github.com/ManuGH/amgplay/internal/pipeline/sequencer"
	"github.com/ManuGH/amgplay/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DecisionSource yields decisions until sequencer.ErrExhausted.
type DecisionSource interface {
	Next(ctx context.Context) (model.Decision, error)
}

// HistoryWriter records completed tracks.
type HistoryWriter interface {
	Append(ctx context.Context, e model.HistoryEntry) error
}

// Prober reports stream details of a local file.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.StreamInfo, error)
}

// Config selects what the orchestrator does with a decision.
type Config struct {
	// Download saves every track instead of playing it.
	Download    bool
	DownloadDir string
	// RequireVideo synthesizes a video for audio-only media before playback.
	RequireVideo bool
	// AudioFallback plays audio alone when synthesis fails.
	AudioFallback bool
	// WorkDir holds per-track scratch files; defaults to os.TempDir.
	WorkDir string
}

// Deps are the collaborators of an Orchestrator. Prober and
// DownloadResolver are optional.
type Deps struct {
	Resolver         resolve.Resolver
	DownloadResolver resolve.Resolver
	Player           player.Player
	Fetcher          fetch.Fetcher
	Synthesizer      ffmpeg.Synthesizer
	Prober           Prober
	History          HistoryWriter
	Now              func() time.Time
}

// Summary counts what happened during a run.
type Summary struct {
	Decisions  int
	Skipped    int
	Played     int
	Downloaded int
	Failed     int
}

func (s *Summary) count(outcome model.Outcome) {
	if outcome == model.OutcomeDownloaded {
		s.Downloaded++
		return
	}
	s.Played++
}

// Orchestrator handles one decision at a time, in order.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	// track numbers per review for the download layout
	trackNo map[string]int
}

func New(cfg Config, deps Deps) *Orchestrator {
	if deps.DownloadResolver == nil {
		deps.DownloadResolver = deps.Resolver
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		logger:  log.WithComponent("orchestrator"),
		trackNo: make(map[string]int),
	}
}

// Run consumes src until it is exhausted, ctx is cancelled, or a fatal
// error occurs. Per-track failures are logged and skipped. A track is
// recorded in history once its action fully completed, even when ctx was
// cancelled just after; a track whose action was interrupted leaves no entry.
func (o *Orchestrator) Run(ctx context.Context, src DecisionSource) (Summary, error) {
	var sum Summary
	for {
		d, err := src.Next(ctx)
		switch {
		case errors.Is(err, sequencer.ErrExhausted):
			return sum, nil
		case err != nil:
			return sum, err
		}
		sum.Decisions++

		if d.Action.IsSkip() {
			sum.Skipped++
			continue
		}

		outcome, err := o.handle(ctx, d)
		if ctx.Err() != nil {
			if err == nil {
				if rerr := o.record(context.WithoutCancel(ctx), d.Track, outcome); rerr != nil {
					return sum, rerr
				}
				sum.count(outcome)
			}
			return sum, ctx.Err()
		}
		if err != nil {
			if model.IsFatal(err) {
				return sum, err
			}
			sum.Failed++
			metrics.IncTrackFailure(failureStage(err))
			o.logger.Warn().Err(err).
				Str(log.FieldEvent, "track.failed").
				Str(log.FieldTrackID, string(d.Track.ID)).
				Str(log.FieldReason, failureStage(err)).
				Msg("skipping track")
			continue
		}

		if err := o.record(ctx, d.Track, outcome); err != nil {
			return sum, err
		}
		sum.count(outcome)
	}
}

func (o *Orchestrator) handle(ctx context.Context, d model.Decision) (model.Outcome, error) {
	t := d.Track
	reviewURL := ""
	if t.Review != nil {
		reviewURL = t.Review.URL
	}
	ctx = log.ContextWithTrackID(ctx, string(t.ID))
	ctx, span := telemetry.Tracer("amgplay.worker").Start(ctx, "amgplay.track")
	defer span.End()
	span.SetAttributes(telemetry.TrackAttributes(string(t.ID), string(t.Provider()), reviewURL)...)
	span.SetAttributes(attribute.String(telemetry.ActionKey, string(d.Action)))

	var (
		outcome model.Outcome
		err     error
	)
	if o.cfg.Download || d.Download {
		outcome, err = model.OutcomeDownloaded, o.download(ctx, t)
	} else {
		outcome, err = model.OutcomePlayed, o.play(ctx, t)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return outcome, nil
}

// resolveAny tries the track's sources in preference order.
func (o *Orchestrator) resolveAny(ctx context.Context, r resolve.Resolver, t model.Track) (model.MediaDescriptor, error) {
	var errs []error
	for _, src := range t.Sources {
		desc, err := r.Resolve(ctx, src)
		if err == nil {
			if desc.Source.Provider == "" {
				desc.Source = src
			}
			return desc, nil
		}
		if ctx.Err() != nil {
			return model.MediaDescriptor{}, ctx.Err()
		}
		o.logger.Debug().Err(err).
			Str(log.FieldTrackID, string(t.ID)).
			Str(log.FieldSource, src.String()).
			Msg("source unresolvable, trying alternate")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("track has no sources"))
	}
	return model.MediaDescriptor{}, model.ResolutionError("resolve", t.ID, errors.Join(errs...))
}

func (o *Orchestrator) record(ctx context.Context, t model.Track, outcome model.Outcome) error {
	e := model.HistoryEntry{
		TrackID: t.ID,
		Outcome: outcome,
		At:      o.deps.Now().UTC(),
		Title:   t.DisplayName(),
	}
	if t.Review != nil {
		e.ReviewURL = t.Review.URL
	}
	if err := o.deps.History.Append(ctx, e); err != nil {
		if !errors.Is(err, model.ErrPersistence) {
			err = model.PersistenceError("history.append", t.ID, err)
		}
		return err
	}
	metrics.IncTrackCompleted(string(outcome))
	o.logger.Info().
		Str(log.FieldEvent, "track.completed").
		Str(log.FieldTrackID, string(t.ID)).
		Str("outcome", string(outcome)).
		Msg(t.DisplayName())
	return nil
}

func failureStage(err error) string {
	switch {
	case errors.Is(err, model.ErrResolution):
		return "resolve"
	case errors.Is(err, model.ErrPlayback):
		return "playback"
	case errors.Is(err, model.ErrFetch):
		return "fetch"
	}
	return "other"
}

func wrapStage(kind error, op string, id model.TrackID, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	switch kind {
	case model.ErrPlayback:
		return model.PlaybackError(op, id, err)
	case model.ErrResolution:
		return model.ResolutionError(op, id, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
