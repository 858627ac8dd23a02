// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
)

// MemoryStore is an ephemeral Store for tests and --history-backend=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []model.HistoryEntry
	index   map[model.TrackID][]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(seed ...model.HistoryEntry) *MemoryStore {
	s := &MemoryStore{index: make(map[model.TrackID][]int)}
	for _, e := range seed {
		_ = s.Append(context.Background(), e)
	}
	return s
}

func (s *MemoryStore) Contains(_ context.Context, id model.TrackID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok, nil
}

func (s *MemoryStore) Append(_ context.Context, e model.HistoryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[e.TrackID] = append(s.index[e.TrackID], len(s.entries))
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context, id model.TrackID) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, i := range s.index[id] {
		st.PlayCount++
		if at := s.entries[i].At; at.After(st.LastPlayed) {
			st.LastPlayed = at
		}
	}
	return st, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(limit, len(s.entries))
	if n <= 0 {
		return nil, nil
	}
	out := slices.Clone(s.entries[len(s.entries)-n:])
	slices.Reverse(out)
	return out, nil
}

// Entries returns all entries in append order.
func (s *MemoryStore) Entries() []model.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
