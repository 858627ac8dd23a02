// Package prompt asks the user, on a terminal, what to do with each offered
// track.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/history"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/pipeline/sequencer"
)

// StatsSource looks up how often a track was played before.
type StatsSource interface {
	Stats(ctx context.Context, id model.TrackID) (history.Stats, error)
}

// Terminal is a line-based sequencer.Offerer. A background goroutine reads
// one line per request, so nothing is taken from the input while no offer
// is waiting and the player owns the terminal. An offer can be abandoned
// when ctx ends.
type Terminal struct {
	out   io.Writer
	stats StatsSource
	now   func() time.Time

	in        io.Reader
	startOnce sync.Once
	reqs      chan struct{}
	answers   chan string
	readErr   error

	// owned by the goroutine calling Offer
	pending bool
	eof     bool
}

var _ sequencer.Offerer = (*Terminal)(nil)

// New reads answers from in and writes offers to out. stats may be nil.
func New(in io.Reader, out io.Writer, stats StatsSource) *Terminal {
	return &Terminal{
		in:      in,
		out:     out,
		stats:   stats,
		now:     time.Now,
		reqs:    make(chan struct{}, 1),
		answers: make(chan string, 1),
	}
}

func (t *Terminal) start() {
	t.startOnce.Do(func() {
		go func() {
			sc := bufio.NewScanner(t.in)
			for range t.reqs {
				if !sc.Scan() {
					t.readErr = sc.Err()
					close(t.answers)
					return
				}
				t.answers <- sc.Text()
			}
		}()
	})
}

// Offer prints the track and waits for a choice. End of input counts as
// quit. Unknown answers are asked again.
func (t *Terminal) Offer(ctx context.Context, tr model.Track) (sequencer.Choice, error) {
	t.start()
	t.describe(ctx, tr)
	for {
		fmt.Fprint(t.out, "  [p]lay, [s]kip, [d]ownload, [q]uit (default play): ")
		if t.eof {
			fmt.Fprintln(t.out)
			return sequencer.ChoiceQuit, nil
		}
		// a read left over from an abandoned offer is still in flight
		if !t.pending {
			t.reqs <- struct{}{}
			t.pending = true
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(t.out)
			return sequencer.ChoiceQuit, ctx.Err()
		case line, ok := <-t.answers:
			t.pending = false
			if !ok {
				t.eof = true
				fmt.Fprintln(t.out)
				if t.readErr != nil && !errors.Is(t.readErr, io.EOF) {
					return sequencer.ChoiceQuit, fmt.Errorf("read answer: %w", t.readErr)
				}
				return sequencer.ChoiceQuit, nil
			}
			if c, ok := ParseChoice(line); ok {
				return c, nil
			}
			fmt.Fprintf(t.out, "  unknown answer %q\n", strings.TrimSpace(line))
		}
	}
}

func (t *Terminal) describe(ctx context.Context, tr model.Track) {
	fmt.Fprintf(t.out, "\n%s\n", tr.DisplayName())
	if r := tr.Review; r != nil {
		if len(r.Tags) > 0 {
			fmt.Fprintf(t.out, "  tags:     %s\n", strings.Join(r.Tags, ", "))
		}
		if !r.Published.IsZero() {
			fmt.Fprintf(t.out, "  reviewed: %s\n", r.Published.Format("2006-01-02"))
		}
		fmt.Fprintf(t.out, "  review:   %s\n", r.URL)
	}
	srcs := make([]string, 0, len(tr.Sources))
	for _, s := range tr.Sources {
		srcs = append(srcs, string(s.Provider))
	}
	if len(srcs) > 0 {
		fmt.Fprintf(t.out, "  sources:  %s\n", strings.Join(srcs, ", "))
	}

	if t.stats == nil {
		return
	}
	st, err := t.stats.Stats(ctx, tr.ID)
	if err != nil {
		logger := log.WithComponent("prompt")
		logger.Debug().Err(err).Str(log.FieldTrackID, string(tr.ID)).Msg("history stats unavailable")
		return
	}
	if st.PlayCount == 0 {
		fmt.Fprintln(t.out, "  history:  never played")
		return
	}
	fmt.Fprintf(t.out, "  history:  played %d time(s), last %s\n", st.PlayCount, humanAgo(t.now().Sub(st.LastPlayed)))
}

// ParseChoice maps an answer to a Choice. An empty answer means play.
func ParseChoice(s string) (sequencer.Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "p", "play", "y", "yes":
		return sequencer.ChoicePlay, true
	case "s", "skip", "n", "no":
		return sequencer.ChoiceSkip, true
	case "d", "download":
		return sequencer.ChoiceDownload, true
	case "q", "quit", "exit":
		return sequencer.ChoiceQuit, true
	}
	return 0, false
}

func humanAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d h ago", int(d/time.Hour))
	}
	return fmt.Sprintf("%d days ago", int(d/(24*time.Hour)))
}
