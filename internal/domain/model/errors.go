package model

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the pipeline boundaries.
	ErrFetch       = errors.New("fetch failed")
	ErrExtraction  = errors.New("extraction failed")
	ErrResolution  = errors.New("resolution failed")
	ErrPlayback    = errors.New("playback failed")
	ErrPersistence = errors.New("history store unwritable")
)

// Error wraps one of the sentinel kinds with operation context.
type Error struct {
	Kind    error
	Op      string
	TrackID TrackID
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.TrackID != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.TrackID)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause so either can be matched.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FetchError reports a page fetch failure after retries.
func FetchError(op, url string, err error) error {
	return &Error{Kind: ErrFetch, Op: op, URL: url, Err: err}
}

// ExtractionError reports a malformed review page.
func ExtractionError(op, url string, err error) error {
	return &Error{Kind: ErrExtraction, Op: op, URL: url, Err: err}
}

// ResolutionError reports that a source could not be resolved.
func ResolutionError(op string, id TrackID, err error) error {
	return &Error{Kind: ErrResolution, Op: op, TrackID: id, Err: err}
}

// PlaybackError reports a player or muxer subprocess failure.
func PlaybackError(op string, id TrackID, err error) error {
	return &Error{Kind: ErrPlayback, Op: op, TrackID: id, Err: err}
}

// PersistenceError reports a history store failure. It is fatal to a run.
func PersistenceError(op string, id TrackID, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, TrackID: id, Err: err}
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPersistence)
}
