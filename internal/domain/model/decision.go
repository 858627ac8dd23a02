package model

import "time"

// Action is what the sequencer decided for a track.
type Action string

const (
	ActionPlayInteractive   Action = "play-interactive"
	ActionPlayAuto          Action = "play-auto"
	ActionSkipAlreadyPlayed Action = "skip-already-played"
	ActionSkipUser          Action = "skip-user"
)

// IsSkip reports whether the action skips the track.
func (a Action) IsSkip() bool {
	return a == ActionSkipAlreadyPlayed || a == ActionSkipUser
}

// Skip reason codes.
const (
	ReasonAlreadyPlayed = "already_played"
	ReasonUserSkip      = "user_skip"
)

// Decision is the ephemeral per-track output of the sequencer.
type Decision struct {
	Action Action
	Track  Track
	Reason string
	// Download asks the orchestrator to save this track instead of playing it.
	Download bool
}

// Outcome is the action recorded in history.
type Outcome string

const (
	OutcomePlayed     Outcome = "played"
	OutcomeDownloaded Outcome = "downloaded"
)

// HistoryEntry is one persisted completion record.
type HistoryEntry struct {
	TrackID   TrackID
	Outcome   Outcome
	At        time.Time
	ReviewURL string
	Title     string
}

// MediaDescriptor is a resolved, locally reachable media source.
type MediaDescriptor struct {
	Source SourceRef
	// URL is a direct stream URL; Path is set once the media lives on disk.
	URL  string
	Path string
	// Video is false for audio-only media.
	Video bool
	// Ext is the file extension without dot, used when saving.
	Ext     string
	Title   string
	Headers map[string]string
}

// Target returns the local path when present, otherwise the stream URL.
func (m MediaDescriptor) Target() string {
	if m.Path != "" {
		return m.Path
	}
	return m.URL
}
