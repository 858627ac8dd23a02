package sequencer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/amgplay/internal/domain/model"
)

// ErrQuit is returned by a policy when the user asked to stop.
var ErrQuit = errors.New("user quit")

// Choice is the user's answer to an offered track.
type Choice int

const (
	ChoicePlay Choice = iota
	ChoiceSkip
	ChoiceDownload
	ChoiceQuit
)

func (c Choice) String() string {
	switch c {
	case ChoicePlay:
		return "play"
	case ChoiceSkip:
		return "skip"
	case ChoiceDownload:
		return "download"
	case ChoiceQuit:
		return "quit"
	}
	return fmt.Sprintf("choice(%d)", int(c))
}

// Offerer presents a track to the user and waits for a choice.
type Offerer interface {
	Offer(ctx context.Context, t model.Track) (Choice, error)
}

// PlayedChecker reports whether a track already completed in the past.
type PlayedChecker interface {
	Contains(ctx context.Context, id model.TrackID) (bool, error)
}

// Policy turns candidate tracks into decisions for one mode.
type Policy interface {
	Mode() string
	// Offers reports whether Decide will wait on the user for t.
	Offers(t model.Track) bool
	Decide(ctx context.Context, t model.Track) (model.Decision, error)
}

// Interactive offers every track and follows the user's choice.
type Interactive struct {
	offerer Offerer
}

func NewInteractive(o Offerer) *Interactive { return &Interactive{offerer: o} }

func (*Interactive) Mode() string { return "interactive" }

func (*Interactive) Offers(model.Track) bool { return true }

func (p *Interactive) Decide(ctx context.Context, t model.Track) (model.Decision, error) {
	c, err := p.offerer.Offer(ctx, t)
	if err != nil {
		return model.Decision{}, err
	}
	return fromChoice(c, t)
}

// Radio lets the user pick a starting track, then plays everything after
// it in order regardless of history.
type Radio struct {
	offerer Offerer
	started bool
}

func NewRadio(o Offerer) *Radio { return &Radio{offerer: o} }

func (*Radio) Mode() string { return "radio" }

func (p *Radio) Offers(model.Track) bool { return !p.started && p.offerer != nil }

func (p *Radio) Decide(ctx context.Context, t model.Track) (model.Decision, error) {
	if !p.Offers(t) {
		p.started = true
		return model.Decision{Action: model.ActionPlayAuto, Track: t}, nil
	}
	c, err := p.offerer.Offer(ctx, t)
	if err != nil {
		return model.Decision{}, err
	}
	d, err := fromChoice(c, t)
	if err == nil && !d.Action.IsSkip() {
		p.started = true
	}
	return d, err
}

// Discover plays only tracks absent from history, without prompting.
type Discover struct {
	history PlayedChecker
}

func NewDiscover(h PlayedChecker) *Discover { return &Discover{history: h} }

func (*Discover) Mode() string { return "discover" }

func (*Discover) Offers(model.Track) bool { return false }

func (p *Discover) Decide(ctx context.Context, t model.Track) (model.Decision, error) {
	played, err := p.history.Contains(ctx, t.ID)
	if err != nil {
		return model.Decision{}, err
	}
	if played {
		return model.Decision{Action: model.ActionSkipAlreadyPlayed, Track: t, Reason: model.ReasonAlreadyPlayed}, nil
	}
	return model.Decision{Action: model.ActionPlayAuto, Track: t}, nil
}

func fromChoice(c Choice, t model.Track) (model.Decision, error) {
	switch c {
	case ChoicePlay:
		return model.Decision{Action: model.ActionPlayInteractive, Track: t}, nil
	case ChoiceDownload:
		return model.Decision{Action: model.ActionPlayInteractive, Track: t, Download: true}, nil
	case ChoiceSkip:
		return model.Decision{Action: model.ActionSkipUser, Track: t, Reason: model.ReasonUserSkip}, nil
	case ChoiceQuit:
		return model.Decision{}, ErrQuit
	}
	return model.Decision{}, fmt.Errorf("unknown choice %d", int(c))
}
