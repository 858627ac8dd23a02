// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Catalog fields
	FieldReviewURL = "review_url"
	FieldArtist    = "artist"
	FieldAlbum     = "album"
	FieldTrackID   = "track_id"
	FieldProvider  = "provider"
	FieldSource    = "source"

	// Sequencing fields
	FieldMode     = "mode"
	FieldDecision = "decision"
	FieldReason   = "reason"
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Crawl fields
	FieldPage    = "page"
	FieldURL     = "url"
	FieldAttempt = "attempt"
	FieldStatus  = "status"

	// Process fields
	FieldBinary = "binary"
	FieldPID    = "pid"
	FieldPath   = "path"
)
