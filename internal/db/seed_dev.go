package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Now anchors the demo timestamps. Zero means time.Now().
	Now time.Time
}

// SeedDev fills an empty entries table with a handful of demo registrations
// spread over today and yesterday so the kiosk list shows two day groups.
// A table that already has rows is left alone.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) (int, error) {
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("seed count entries: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	demo := []struct {
		plate  string
		status string
		ago    time.Duration
	}{
		{"1234", "done", 26 * time.Hour},
		{"5678", "done", 25 * time.Hour},
		{"2580", "pending", 2 * time.Hour},
		{"8007", "pending", 30 * time.Minute},
	}

	for _, d := range demo {
		if _, err := db.ExecContext(ctx, `
INSERT INTO entries(plate_number, status, created_at_ms)
VALUES (?, ?, ?);`, d.plate, d.status, now.Add(-d.ago).UnixMilli()); err != nil {
			return 0, fmt.Errorf("seed entry %s: %w", d.plate, err)
		}
	}

	return len(demo), nil
}
