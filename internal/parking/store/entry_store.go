package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

var (
	// ErrNotFound is returned when an update or delete names an id that does
	// not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrInvalidTransition is returned when a finished entry would be moved
	// back to pending.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStorage wraps failures of the underlying persistence layer. A
	// mutation that returns it did not durably happen.
	ErrStorage = errors.New("storage failure")
)

// EntryStore owns every parking entry. Implementations serialize mutations
// and make each one durable before returning.
type EntryStore interface {
	// List returns all entries, newest first. Entries created in the same
	// millisecond are ordered by id, highest first.
	List(ctx context.Context) ([]types.Entry, error)

	Insert(ctx context.Context, plate string) (types.Entry, error)

	// InsertAt inserts with an explicit creation time. Used by restore so
	// replayed entries keep their original timestamps.
	InsertAt(ctx context.Context, plate string, createdAt time.Time) (types.Entry, error)

	UpdateStatus(ctx context.Context, id int64, status types.Status) error
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}

// Clock returns the current time. Stores take one so tests can pin it.
type Clock func() time.Time

// CheckTransition reports whether an entry in state from may be set to to.
// Only a pending entry changes status. Setting the current status again is
// a no-op.
func CheckTransition(from, to types.Status) error {
	if from != types.StatusPending && from != to {
		return ErrInvalidTransition
	}
	return nil
}

// SortNewestFirst orders entries by CreatedAt desc, then ID desc.
func SortNewestFirst(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// TruncateMs drops sub-millisecond precision, which no backend persists.
func TruncateMs(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
