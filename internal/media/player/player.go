// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package player drives the external media player.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"syscall"
	"time"

	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
)

// Player plays a file or URL to completion.
type Player interface {
	Play(ctx context.Context, target string, audioOnly bool) error
}

// MPV runs mpv in the foreground. It stays in our process group so it
// keeps the terminal for its own key bindings and receives Ctrl-C along
// with us.
type MPV struct {
	Bin   string
	Args  []string
	Grace time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewMPV(bin string, args []string, grace time.Duration) *MPV {
	if bin == "" {
		bin = "mpv"
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &MPV{
		Bin:    bin,
		Args:   args,
		Grace:  grace,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (p *MPV) args(target string, audioOnly bool) []string {
	args := slices.Clone(p.Args)
	if audioOnly {
		args = append(args, "--no-video")
	}
	return append(args, "--", target)
}

// Play blocks until the player exits. Cancelling ctx sends SIGTERM and
// escalates to SIGKILL after Grace.
func (p *MPV) Play(ctx context.Context, target string, audioOnly bool) error {
	// #nosec G204 -- player binary and flags come from configuration
	cmd := exec.CommandContext(ctx, p.Bin, p.args(target, audioOnly)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = p.Stdin, p.Stdout, p.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = p.Grace

	logger := log.WithComponent("player")
	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.IncProcExit("player", "start_failed")
		return fmt.Errorf("start %s: %w", p.Bin, err)
	}
	metrics.IncProcStart("player")
	logger.Debug().Int(log.FieldPID, cmd.Process.Pid).Bool("audio_only", audioOnly).Msg("player started")

	err := cmd.Wait()
	switch {
	case ctx.Err() != nil:
		metrics.IncProcExit("player", "cancelled")
		return ctx.Err()
	case err != nil:
		metrics.IncProcExit("player", "failed")
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("player exited with status %d: %w", exitErr.ExitCode(), err)
		}
		return fmt.Errorf("player: %w", err)
	}
	metrics.IncProcExit("player", "ok")
	logger.Debug().Dur("took", time.Since(start)).Msg("player finished")
	return nil
}
