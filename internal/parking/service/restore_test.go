package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongtanms/parking-kiosk/internal/logging"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/memory"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// flakyStore fails InsertAt once failAfter inserts have succeeded.
type flakyStore struct {
	*memory.EntryStore
	failAfter int
	inserts   int
}

func (f *flakyStore) InsertAt(ctx context.Context, plate string, createdAt time.Time) (types.Entry, error) {
	if f.inserts >= f.failAfter {
		return types.Entry{}, store.ErrStorage
	}
	f.inserts++
	return f.EntryStore.InsertAt(ctx, plate, createdAt)
}

func writeDoc(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parking_backup.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRestore_PartialImportKeepsInserted(t *testing.T) {
	fs := &flakyStore{EntryStore: memory.NewEntryStore(nil), failAfter: 2}
	r := service.NewRestorer(fs, logging.Discard())

	path := writeDoc(t, `[
  {"plateNumber":"1111","status":"pending","createdAt":1000},
  {"plateNumber":"2222","status":"done","createdAt":2000},
  {"plateNumber":"3333","status":"pending","createdAt":3000}
]`)

	n, err := r.Restore(context.Background(), path)
	assert.True(t, errors.Is(err, store.ErrStorage), "got %v", err)
	assert.Equal(t, 2, n)

	got, err := fs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2222", got[0].PlateNumber)
	assert.Equal(t, types.StatusDone, got[0].Status)
}

func TestRestore_UnknownStatusCarried(t *testing.T) {
	ms := memory.NewEntryStore(nil)
	r := service.NewRestorer(ms, logging.Discard())

	path := writeDoc(t, `[{"plateNumber":"1111","status":"towed","createdAt":1000}]`)
	n, err := r.Restore(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := ms.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Status("towed"), got[0].Status)
}

func TestRestore_MissingFile(t *testing.T) {
	r := service.NewRestorer(memory.NewEntryStore(nil), logging.Discard())
	_, err := r.Restore(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, service.ErrBackupFileMissing)
}

// statusFailStore rejects every status update.
type statusFailStore struct {
	*memory.EntryStore
}

func (s statusFailStore) UpdateStatus(context.Context, int64, types.Status) error {
	return store.ErrStorage
}

func TestRestore_StatusFailureDropsRow(t *testing.T) {
	ss := statusFailStore{memory.NewEntryStore(nil)}
	r := service.NewRestorer(ss, logging.Discard())

	path := writeDoc(t, `[
  {"plateNumber":"1111","status":"pending","createdAt":1000},
  {"plateNumber":"2222","status":"done","createdAt":2000}
]`)

	n, err := r.Restore(context.Background(), path)
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.Equal(t, 1, n)

	got, err := ss.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1, "the done record must not linger as pending")
	assert.Equal(t, "1111", got[0].PlateNumber)
}
