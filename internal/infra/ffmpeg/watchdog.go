// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/amgplay/internal/log"
)

// ErrStalled is returned when ffmpeg stops reporting progress.
var ErrStalled = errors.New("ffmpeg made no progress")

type watchState int

const (
	watchStarting watchState = iota
	watchRunning
	watchStalled
	watchCompleted
)

// watchdog consumes the key=value stream of `-progress pipe:1` and fails
// a run that never starts or stops advancing.
type watchdog struct {
	mu sync.Mutex

	startTimeout time.Duration
	stallTimeout time.Duration
	interval     time.Duration
	now          func() time.Time
	tick         func(time.Duration) (<-chan time.Time, func())

	partial   []byte
	outTime   int64
	totalSize int64
	heartbeat time.Time
	state     watchState
}

func newWatchdog(startTimeout, stallTimeout time.Duration) *watchdog {
	return &watchdog{
		startTimeout: startTimeout,
		stallTimeout: stallTimeout,
		interval:     time.Second,
		now:          time.Now,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Write implements io.Writer for the process stdout.
func (w *watchdog) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.parseLine(string(w.partial[:i]))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

// Run checks progress until ctx is done. It returns ErrStalled on timeout
// and nil otherwise.
func (w *watchdog) Run(ctx context.Context) error {
	w.mu.Lock()
	w.heartbeat = w.now()
	w.mu.Unlock()

	c, stop := w.tick(w.interval)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-c:
			if err := w.check(now); err != nil {
				return err
			}
		}
	}
}

func (w *watchdog) parseLine(line string) {
	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// both keys carry microseconds
		if v, err := strconv.ParseInt(val, 10, 64); err == nil && v > w.outTime {
			w.outTime = v
			w.beat()
		}
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil && v > w.totalSize {
			w.totalSize = v
			w.beat()
		}
	case "progress":
		if val == "end" {
			w.state = watchCompleted
		}
	}
}

func (w *watchdog) beat() {
	w.heartbeat = w.now()
	if w.state == watchStarting {
		w.state = watchRunning
		logger := log.WithComponent("ffmpeg")
		logger.Debug().Msg("mux progressing")
	}
}

// check judges progress as of now, the time the tick fired.
func (w *watchdog) check(now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idle := now.Sub(w.heartbeat)
	switch w.state {
	case watchStarting:
		if w.startTimeout > 0 && idle > w.startTimeout {
			w.state = watchStalled
			return errors.Join(ErrStalled, errors.New("no output after "+w.startTimeout.String()))
		}
	case watchRunning:
		if w.stallTimeout > 0 && idle > w.stallTimeout {
			w.state = watchStalled
			return errors.Join(ErrStalled, errors.New("stalled for "+idle.Truncate(time.Second).String()))
		}
	}
	return nil
}

func (w *watchdog) current() watchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
