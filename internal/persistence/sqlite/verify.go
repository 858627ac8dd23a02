package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Report is the outcome of an integrity check.
type Report struct {
	Path          string
	Full          bool
	SchemaVersion int
	// Problems holds the diagnostic rows; empty means the file is healthy.
	Problems []string
}

func (r Report) Healthy() bool { return len(r.Problems) == 0 }

// Verify opens path read-only and runs PRAGMA quick_check, or
// PRAGMA integrity_check when full is set. An error means the check could
// not run at all; corruption is reported through Report.Problems.
func Verify(ctx context.Context, path string, full bool) (Report, error) {
	rep := Report{Path: path, Full: full}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path))
	if err != nil {
		return rep, fmt.Errorf("sqlite: open for verification: %w", err)
	}
	defer func() { _ = db.Close() }()

	pragma := "PRAGMA quick_check"
	if full {
		pragma = "PRAGMA integrity_check"
	}
	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return rep, fmt.Errorf("sqlite: %s: %w", strings.ToLower(pragma), err)
	}
	defer func() { _ = rows.Close() }()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return rep, fmt.Errorf("sqlite: scan check row: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return rep, fmt.Errorf("sqlite: check rows: %w", err)
	}

	switch {
	case len(lines) == 0:
		rep.Problems = []string{"integrity check returned no rows"}
		return rep, nil
	case len(lines) > 1 || !strings.EqualFold(lines[0], "ok"):
		rep.Problems = lines
		return rep, nil
	}

	if rep.SchemaVersion, err = UserVersion(ctx, db); err != nil {
		return rep, err
	}
	return rep, nil
}
