package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// Restorer replays a backup document into the store.
//
// Restore is additive: existing entries stay, and replaying the same file
// twice duplicates its records. It is also not atomic. The whole document is
// decoded before the first insert, but a store failure halfway through
// leaves the records inserted so far in place.
type Restorer struct {
	store  store.EntryStore
	logger *slog.Logger
}

func NewRestorer(s store.EntryStore, logger *slog.Logger) *Restorer {
	return &Restorer{store: s, logger: logger}
}

// Restore imports every record of the backup at path and returns how many
// were imported. Each record gets a fresh id but keeps its createdAt.
func (r *Restorer) Restore(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrBackupFileMissing, path)
	}
	if err != nil {
		return 0, fmt.Errorf("read backup %s: %w", path, err)
	}

	recs, err := backup.Decode(data)
	if err != nil {
		return 0, err
	}

	imported := 0
	for i, rec := range recs {
		e, err := r.store.InsertAt(ctx, rec.PlateNumber, time.UnixMilli(rec.CreatedAt))
		if err != nil {
			return imported, fmt.Errorf("restore record %d: %w", i, err)
		}
		if status := types.Status(rec.Status); status != types.StatusPending {
			if err := r.store.UpdateStatus(ctx, e.ID, status); err != nil {
				// Drop the row rather than keep it with the wrong status.
				if derr := r.store.Delete(ctx, e.ID); derr != nil {
					r.logger.Error("restore: could not remove half-restored entry", "id", e.ID, "err", derr)
					return imported, fmt.Errorf("restore record %d status: %w (entry %d left as pending)", i, err, e.ID)
				}
				return imported, fmt.Errorf("restore record %d status: %w", i, err)
			}
		}
		imported++
	}

	r.logger.Info("backup restored", "path", path, "imported", imported)
	return imported, nil
}
