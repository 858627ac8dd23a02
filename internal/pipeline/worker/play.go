package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
)

var errNoCover = errors.New("review has no cover image")

func (o *Orchestrator) play(ctx context.Context, t model.Track) error {
	desc, err := o.resolveAny(ctx, o.deps.Resolver, t)
	if err != nil {
		return err
	}

	if desc.Video || !o.cfg.RequireVideo {
		return wrapStage(model.ErrPlayback, "play", t.ID, o.deps.Player.Play(ctx, desc.Target(), !desc.Video))
	}

	work, err := os.MkdirTemp(o.cfg.WorkDir, "amgplay-")
	if err != nil {
		return model.PlaybackError("workdir", t.ID, err)
	}
	defer func() { _ = os.RemoveAll(work) }()

	video, audio, err := o.synthesize(ctx, work, t, desc)
	if err == nil {
		return wrapStage(model.ErrPlayback, "play", t.ID, o.deps.Player.Play(ctx, video, false))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !o.cfg.AudioFallback {
		return model.ResolutionError("synthesize", t.ID, err)
	}

	o.logger.Warn().Err(err).
		Str(log.FieldEvent, "synthesis.fallback").
		Str(log.FieldTrackID, string(t.ID)).
		Msg("video synthesis failed, playing audio only")
	target := desc.Target()
	if audio != "" {
		target = audio
	}
	return wrapStage(model.ErrPlayback, "play", t.ID, o.deps.Player.Play(ctx, target, true))
}

// synthesize fetches audio and cover into work and muxes them. The local
// audio path is returned even when muxing fails so a fallback can reuse it.
func (o *Orchestrator) synthesize(ctx context.Context, work string, t model.Track, desc model.MediaDescriptor) (video, audio string, err error) {
	ext := desc.Ext
	if ext == "" {
		ext = "audio"
	}
	audio, err = o.deps.Fetcher.Fetch(ctx, desc, filepath.Join(work, "audio."+ext))
	if err != nil {
		return "", "", fmt.Errorf("fetch audio: %w", err)
	}

	cover, err := o.fetchCover(ctx, t, filepath.Join(work, "cover.jpg"))
	if err != nil {
		return "", audio, err
	}

	video = filepath.Join(work, "video.mkv")
	if err := o.deps.Synthesizer.Synthesize(ctx, cover, audio, video); err != nil {
		return "", audio, err
	}
	return video, audio, nil
}

func (o *Orchestrator) fetchCover(ctx context.Context, t model.Track, dest string) (string, error) {
	if t.Review == nil || t.Review.BestCover() == "" {
		return "", errNoCover
	}
	path, err := o.deps.Fetcher.Fetch(ctx, model.MediaDescriptor{Source: t.Primary(), URL: t.Review.BestCover()}, dest)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	return path, nil
}
