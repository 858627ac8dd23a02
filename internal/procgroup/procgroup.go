// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup starts helper binaries in their own process group so
// the whole tree can be stopped together.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/amgplay/internal/log"
)

// Terminate stops cmd's process group: SIGTERM first, SIGKILL once grace
// elapses. waitCh must deliver the result of cmd.Wait; Terminate drains it
// and returns that error. Nil commands are a no-op.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup").With().
		Str(log.FieldBinary, cmd.Path).
		Int(log.FieldPID, cmd.Process.Pid).
		Logger()

	if err := Kill(cmd, syscall.SIGTERM); err != nil && !gone(err) {
		logger.Debug().Err(err).Msg("SIGTERM failed")
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		return err
	case <-timer.C:
	}

	logger.Warn().Dur("grace", grace).Msg("grace period exceeded, sending SIGKILL to process group")
	if err := Kill(cmd, syscall.SIGKILL); err != nil && !gone(err) {
		logger.Error().Err(err).Msg("SIGKILL failed")
	}
	return <-waitCh
}

func gone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
