// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package history persists completed tracks. Entries are append-only and
// keyed by track identifier.
package history

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
)

// DBFileName is the sqlite file created inside the data directory.
const DBFileName = "history.sqlite"

// Stats summarises the history of one track.
type Stats struct {
	PlayCount  int
	LastPlayed time.Time
}

// Store is the history store. Writes come from a single goroutine.
type Store interface {
	// Contains reports whether id has ever been completed.
	Contains(ctx context.Context, id model.TrackID) (bool, error)
	// Append records one completed track atomically.
	Append(ctx context.Context, e model.HistoryEntry) error
	// Stats returns the play count and last completion time of id.
	Stats(ctx context.Context, id model.TrackID) (Stats, error)
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	Close() error
}

// NewStore creates a Store for the configured backend. An empty backend
// defaults to sqlite, or memory when dataDir is empty.
func NewStore(backend, dataDir string) (Store, error) {
	switch backend {
	case "":
		if dataDir == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Join(dataDir, DBFileName))
	case "sqlite":
		if dataDir == "" {
			return nil, fmt.Errorf("history store: sqlite backend requires a data directory")
		}
		return NewSqliteStore(filepath.Join(dataDir, DBFileName))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history store backend: %q", backend)
	}
}
