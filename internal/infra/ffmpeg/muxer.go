// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ffmpeg wraps the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/amgplay/internal/fsutil"
	"github.com/ManuGH/amgplay/internal/infra/proc"
	"github.com/ManuGH/amgplay/internal/log"
	"golang.org/x/sync/errgroup"
)

// ErrMissingInput is returned when the cover or the audio file is absent.
var ErrMissingInput = errors.New("synthesis input missing")

// Synthesizer turns a still image and an audio track into a video file.
type Synthesizer interface {
	Synthesize(ctx context.Context, cover, audio, out string) error
}

var _ Synthesizer = (*Muxer)(nil)

// Muxer produces a video file from a still image and an audio track.
type Muxer struct {
	Bin   string
	FPS   int
	Grace time.Duration
	// StartTimeout and StallTimeout bound how long ffmpeg may go without
	// reporting progress; zero disables the check.
	StartTimeout time.Duration
	StallTimeout time.Duration
}

func NewMuxer(bin string) *Muxer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Muxer{
		Bin:          bin,
		FPS:          1,
		Grace:        3 * time.Second,
		StartTimeout: 20 * time.Second,
		StallTimeout: 30 * time.Second,
	}
}

// Synthesize writes a Matroska file at out whose video is cover and whose
// audio is audio. A partial output is removed on failure.
func (m *Muxer) Synthesize(ctx context.Context, cover, audio, out string) error {
	for _, in := range []string{cover, audio} {
		if in == "" {
			return fmt.Errorf("%w: empty path", ErrMissingInput)
		}
		if err := fsutil.IsRegularFile(in); err != nil {
			return fmt.Errorf("%w: %v", ErrMissingInput, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	start := time.Now()
	wd := newWatchdog(m.StartTimeout, m.StallTimeout)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return wd.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		_, err := proc.Run(gctx, proc.Spec{
			Tool:   "ffmpeg",
			Bin:    m.Bin,
			Args:   synthArgs(cover, audio, out, m.FPS),
			Stdout: wd,
			Grace:  m.Grace,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("synthesize video: %w", err)
	}
	logger := log.WithComponent("ffmpeg")
	logger.Debug().
		Str(log.FieldPath, out).
		Dur("took", time.Since(start)).
		Msg("video synthesized")
	return nil
}

// ProbeBin derives the ffprobe path that ships next to ffmpegBin.
func ProbeBin(ffmpegBin string) string {
	if ffmpegBin == "" || filepath.Base(ffmpegBin) == ffmpegBin {
		return "ffprobe"
	}
	return filepath.Join(filepath.Dir(ffmpegBin), "ffprobe")
}
