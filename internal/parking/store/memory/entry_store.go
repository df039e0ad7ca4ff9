package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// EntryStore keeps entries in process memory. Nothing survives a restart,
// so it is intended for tests and dev environments.
type EntryStore struct {
	mu      sync.RWMutex
	now     store.Clock
	lastID  int64
	entries map[int64]types.Entry
}

func NewEntryStore(now store.Clock) *EntryStore {
	if now == nil {
		now = time.Now
	}
	return &EntryStore{
		now:     now,
		entries: make(map[int64]types.Entry),
	}
}

func (s *EntryStore) List(_ context.Context) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	store.SortNewestFirst(out)
	return out, nil
}

func (s *EntryStore) Insert(ctx context.Context, plate string) (types.Entry, error) {
	return s.InsertAt(ctx, plate, s.now())
}

func (s *EntryStore) InsertAt(_ context.Context, plate string, createdAt time.Time) (types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	e := types.Entry{
		ID:          s.lastID,
		PlateNumber: plate,
		Status:      types.StatusPending,
		CreatedAt:   store.TruncateMs(createdAt),
	}
	s.entries[e.ID] = e
	return e, nil
}

func (s *EntryStore) UpdateStatus(_ context.Context, id int64, status types.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := store.CheckTransition(e.Status, status); err != nil {
		return err
	}
	e.Status = status
	s.entries[id] = e
	return nil
}

func (s *EntryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Clear drops every entry. The id counter is kept so ids are never reused.
func (s *EntryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[int64]types.Entry)
	return nil
}
