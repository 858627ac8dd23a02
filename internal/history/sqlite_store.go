// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/persistence/sqlite"
)

const schemaVersion = 1

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB   *sql.DB
	path string
}

// NewSqliteStore opens (or creates) the history database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, model.PersistenceError("history.open", "", err)
	}
	s := &SqliteStore{DB: db, path: dbPath}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, model.PersistenceError("history.migrate", "", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SqliteStore) Path() string { return s.path }

func (s *SqliteStore) migrate(ctx context.Context) error {
	current, err := sqlite.UserVersion(ctx, s.DB)
	if err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS history (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id   TEXT NOT NULL,
		outcome    TEXT NOT NULL,
		at_ms      INTEGER NOT NULL,
		review_url TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_history_track ON history(track_id);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Contains(ctx context.Context, id model.TrackID) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM history WHERE track_id = ?)`, string(id)).Scan(&exists)
	if err != nil {
		return false, model.PersistenceError("history.contains", id, err)
	}
	return exists, nil
}

func (s *SqliteStore) Append(ctx context.Context, e model.HistoryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO history (track_id, outcome, at_ms, review_url, title) VALUES (?, ?, ?, ?, ?)`,
		string(e.TrackID), string(e.Outcome), e.At.UnixMilli(), e.ReviewURL, e.Title)
	if err != nil {
		return model.PersistenceError("history.append", e.TrackID, err)
	}
	return nil
}

func (s *SqliteStore) Stats(ctx context.Context, id model.TrackID) (Stats, error) {
	var (
		count int
		last  sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(at_ms) FROM history WHERE track_id = ?`, string(id)).Scan(&count, &last)
	if err != nil {
		return Stats{}, model.PersistenceError("history.stats", id, err)
	}
	st := Stats{PlayCount: count}
	if last.Valid {
		st.LastPlayed = time.UnixMilli(last.Int64)
	}
	return st, nil
}

func (s *SqliteStore) Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT track_id, outcome, at_ms, review_url, title FROM history ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, model.PersistenceError("history.recent", "", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.HistoryEntry
	for rows.Next() {
		var (
			e           model.HistoryEntry
			id, outcome string
			atMS        int64
		)
		if err := rows.Scan(&id, &outcome, &atMS, &e.ReviewURL, &e.Title); err != nil {
			return nil, model.PersistenceError("history.recent", "", err)
		}
		e.TrackID = model.TrackID(id)
		e.Outcome = model.Outcome(outcome)
		e.At = time.UnixMilli(atMS)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.PersistenceError("history.recent", "", err)
	}
	return out, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
