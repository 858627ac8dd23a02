// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package proc runs helper binaries (ffmpeg, ffprobe, yt-dlp) under
// process-group supervision with a bounded stderr tail.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
	"github.com/ManuGH/amgplay/internal/procgroup"
)

const (
	defaultGrace   = 3 * time.Second
	stderrTailSize = 50
)

// ErrNotFound is returned when the binary cannot be located.
var ErrNotFound = errors.New("binary not found")

// Spec describes one invocation.
type Spec struct {
	// Tool labels metrics and logs, e.g. "ffmpeg".
	Tool string
	Bin  string
	Args []string
	Dir  string
	// Stdout receives standard output. When nil it is buffered into
	// Result.Stdout.
	Stdout io.Writer
	// Grace is the SIGTERM to SIGKILL window on cancellation.
	Grace time.Duration
}

// Result carries captured output of a finished process.
type Result struct {
	Stdout []byte
	Stderr []string
}

// ExitError is returned when the process exits unsuccessfully.
type ExitError struct {
	Tool   string
	Err    error
	Stderr []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Tool, e.Err)
	if n := len(e.Stderr); n > 0 {
		msg += ": " + strings.TrimSpace(e.Stderr[n-1])
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Run executes spec and waits for it. Cancelling ctx terminates the whole
// process group and returns ctx's error.
func Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Tool == "" {
		spec.Tool = spec.Bin
	}
	if spec.Grace <= 0 {
		spec.Grace = defaultGrace
	}
	logger := log.WithComponentFromContext(ctx, "proc").With().Str(log.FieldBinary, spec.Tool).Logger()

	path, err := exec.LookPath(spec.Bin)
	if err != nil {
		metrics.IncProcExit(spec.Tool, "not_found")
		return Result{}, fmt.Errorf("%w: %s: %v", ErrNotFound, spec.Bin, err)
	}

	// #nosec G204 -- binaries come from configuration, arguments are built internally
	cmd := exec.Command(path, spec.Args...)
	cmd.Dir = spec.Dir
	procgroup.Set(cmd)

	var stdout bytes.Buffer
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%s: stderr pipe: %w", spec.Tool, err)
	}

	if err := cmd.Start(); err != nil {
		metrics.IncProcExit(spec.Tool, "start_failed")
		return Result{}, fmt.Errorf("%s: start: %w", spec.Tool, err)
	}
	metrics.IncProcStart(spec.Tool)
	logger.Debug().Int(log.FieldPID, cmd.Process.Pid).Strs("args", spec.Args).Msg("process started")

	ring := NewRingBuffer(stderrTailSize)
	waitCh := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			ring.Add(sc.Text())
		}
		waitCh <- cmd.Wait()
	}()

	select {
	case err = <-waitCh:
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, spec.Grace)
		metrics.IncProcExit(spec.Tool, "cancelled")
		return Result{Stdout: stdout.Bytes(), Stderr: ring.Lines()}, ctx.Err()
	}

	res := Result{Stdout: stdout.Bytes(), Stderr: ring.Lines()}
	if err != nil {
		metrics.IncProcExit(spec.Tool, "failed")
		logger.Debug().Err(err).Strs("stderr", res.Stderr).Msg("process failed")
		return res, &ExitError{Tool: spec.Tool, Err: err, Stderr: res.Stderr}
	}
	metrics.IncProcExit(spec.Tool, "ok")
	return res, nil
}
