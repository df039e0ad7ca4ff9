package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/dongtanms/parking-kiosk/internal/db"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// EntryStore persists entries in the entries table. Reads go straight to
// db; every write is a transaction on the shared Worker.
type EntryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
	now    store.Clock
}

func NewEntryStore(db *sql.DB, writer *dbpkg.Worker, now store.Clock) *EntryStore {
	if now == nil {
		now = time.Now
	}
	return &EntryStore{db: db, writer: writer, now: now}
}

func (s *EntryStore) List(ctx context.Context) ([]types.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, plate_number, status, created_at_ms
FROM entries
ORDER BY created_at_ms DESC, id DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("%w: List query: %w", store.ErrStorage, err)
	}
	defer rows.Close()

	out := []types.Entry{}
	for rows.Next() {
		var (
			e         types.Entry
			status    string
			createdMs int64
		)
		if err := rows.Scan(&e.ID, &e.PlateNumber, &status, &createdMs); err != nil {
			return nil, fmt.Errorf("%w: List scan: %w", store.ErrStorage, err)
		}
		e.Status = types.Status(status)
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List rows: %w", store.ErrStorage, err)
	}
	return out, nil
}

func (s *EntryStore) Insert(ctx context.Context, plate string) (types.Entry, error) {
	return s.InsertAt(ctx, plate, s.now())
}

func (s *EntryStore) InsertAt(ctx context.Context, plate string, createdAt time.Time) (types.Entry, error) {
	e := types.Entry{
		PlateNumber: plate,
		Status:      types.StatusPending,
		CreatedAt:   store.TruncateMs(createdAt),
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO entries(plate_number, status, created_at_ms)
VALUES (?, ?, ?);
`, e.PlateNumber, string(e.Status), e.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("InsertAt: %w", err)
		}
		e.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("InsertAt last id: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Entry{}, wrapStorage(err)
	}
	return e, nil
}

func (s *EntryStore) UpdateStatus(ctx context.Context, id int64, status types.Status) error {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM entries WHERE id = ?;`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("UpdateStatus lookup: %w", err)
		}

		if err := store.CheckTransition(types.Status(current), status); err != nil {
			return err
		}
		if types.Status(current) == status {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE entries SET status = ? WHERE id = ?;`, string(status), id); err != nil {
			return fmt.Errorf("UpdateStatus: %w", err)
		}
		return nil
	})
	return wrapStorage(err)
}

func (s *EntryStore) Delete(ctx context.Context, id int64) error {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("Delete: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Delete rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return wrapStorage(err)
}

func (s *EntryStore) Clear(ctx context.Context) error {
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// sqlite_sequence is left untouched so AUTOINCREMENT keeps counting.
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries;`); err != nil {
			return fmt.Errorf("Clear: %w", err)
		}
		return nil
	})
	return wrapStorage(err)
}
