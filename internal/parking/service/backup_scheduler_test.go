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
	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/memory"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

func TestBackupNow_EmptyStore(t *testing.T) {
	ms, sched := startScheduler(t)
	ctx := context.Background()

	res := wait(t, sched.BackupNow(ctx))
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.Entries)
	assert.Equal(t, sched.Paths().Admin(), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data[:len(data)-1]))

	rr := wait(t, sched.RestoreNow(ctx))
	require.NoError(t, rr.Err)
	assert.Equal(t, 0, rr.Imported)

	got, err := ms.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClear_LeavesWrittenBackup(t *testing.T) {
	ms, sched := startScheduler(t)
	ctx := context.Background()

	for _, p := range []string{"1111", "2222"} {
		_, err := ms.Insert(ctx, p)
		require.NoError(t, err)
	}
	res := wait(t, sched.BackupNow(ctx))
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Entries)

	require.NoError(t, ms.Clear(ctx))
	got, err := ms.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	recs := readBackup(t, res.Path)
	plates := []string{recs[0].PlateNumber, recs[1].PlateNumber}
	assert.ElementsMatch(t, []string{"1111", "2222"}, plates)
}

func TestRestoreNow_DoneRecordKeepsTimestamp(t *testing.T) {
	ms, sched := startScheduler(t)
	ctx := context.Background()

	doc := `[{"plateNumber":"5678","status":"done","createdAt":1717000100000}]`
	require.NoError(t, os.WriteFile(sched.Paths().Admin(), []byte(doc), 0o644))

	before := time.Now()
	rr := wait(t, sched.RestoreNow(ctx))
	require.NoError(t, rr.Err)
	assert.Equal(t, 1, rr.Imported)

	got, err := ms.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5678", got[0].PlateNumber)
	assert.Equal(t, types.StatusDone, got[0].Status)
	assert.Equal(t, int64(1717000100000), got[0].CreatedAt.UnixMilli())
	assert.True(t, got[0].CreatedAt.Before(before))
}

func TestRestoreNow_MissingFile(t *testing.T) {
	_, sched := startScheduler(t)

	rr := wait(t, sched.RestoreNow(context.Background()))
	assert.ErrorIs(t, rr.Err, service.ErrBackupFileMissing)
	assert.Equal(t, 0, rr.Imported)
}

func TestRestoreNow_MalformedAppliesNothing(t *testing.T) {
	ms, sched := startScheduler(t)
	ctx := context.Background()

	doc := `[{"plateNumber":"1111","status":"pending","createdAt":1},{"plateNumber":"2222"}]`
	require.NoError(t, os.WriteFile(sched.Paths().Admin(), []byte(doc), 0o644))

	rr := wait(t, sched.RestoreNow(ctx))
	assert.ErrorIs(t, rr.Err, backup.ErrMalformedBackup)

	got, err := ms.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRestoreNow_IsAdditive(t *testing.T) {
	ms, sched := startScheduler(t)
	ctx := context.Background()

	_, err := ms.Insert(ctx, "1111")
	require.NoError(t, err)
	require.NoError(t, wait(t, sched.BackupNow(ctx)).Err)

	for i := 0; i < 2; i++ {
		rr := wait(t, sched.RestoreNow(ctx))
		require.NoError(t, rr.Err)
		assert.Equal(t, 1, rr.Imported)
	}

	got, err := ms.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3, "restore does not deduplicate")
	ids := map[int64]bool{}
	for _, e := range got {
		assert.Equal(t, "1111", e.PlateNumber)
		ids[e.ID] = true
	}
	assert.Len(t, ids, 3, "every restored record gets a fresh id")
}

func TestTriggerAutosave_WritesAutosaveFileOnly(t *testing.T) {
	ms, sched := startScheduler(t)
	ctx := context.Background()

	_, err := ms.Insert(ctx, "4321")
	require.NoError(t, err)
	sched.TriggerAutosave()
	sched.TriggerAutosave() // merged with the first

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(sched.Paths().Autosave())
		if err != nil {
			return false
		}
		recs, err := backup.Decode(data)
		return err == nil && len(recs) == 1 && recs[0].PlateNumber == "4321"
	}, 5*time.Second, 10*time.Millisecond)

	_, err = os.Stat(sched.Paths().Admin())
	assert.True(t, os.IsNotExist(err), "autosave must not write the admin backup")
}

func TestPeriodicAutosave(t *testing.T) {
	ms := memory.NewEntryStore(nil)
	sched := service.NewBackupScheduler(ms, service.SchedulerConfig{
		Paths:    backup.Paths{Dir: t.TempDir()},
		Interval: 20 * time.Millisecond,
	}, logging.Discard())
	sched.Start(context.Background())
	defer sched.Stop()

	_, err := ms.Insert(context.Background(), "7777")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(sched.Paths().Autosave())
		if err != nil {
			return false
		}
		recs, err := backup.Decode(data)
		return err == nil && len(recs) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStop_WritesFinalSnapshot(t *testing.T) {
	ms := memory.NewEntryStore(nil)
	sched := service.NewBackupScheduler(ms, service.SchedulerConfig{
		Paths:    backup.Paths{Dir: t.TempDir()},
		Interval: -1,
	}, logging.Discard())
	sched.Start(context.Background())

	_, err := ms.Insert(context.Background(), "1357")
	require.NoError(t, err)

	sched.Stop()
	sched.Stop()

	recs := readBackup(t, sched.Paths().Autosave())
	require.Len(t, recs, 1)
	assert.Equal(t, "1357", recs[0].PlateNumber)
}

func TestStop_BeforeStart(t *testing.T) {
	sched := service.NewBackupScheduler(memory.NewEntryStore(nil), service.SchedulerConfig{
		Paths: backup.Paths{Dir: t.TempDir()},
	}, logging.Discard())
	sched.Stop()
}

func TestBackupNow_AfterStop(t *testing.T) {
	ms := memory.NewEntryStore(nil)
	sched := service.NewBackupScheduler(ms, service.SchedulerConfig{
		Paths:    backup.Paths{Dir: t.TempDir()},
		Interval: -1,
	}, logging.Discard())
	sched.Start(context.Background())
	sched.Stop()

	res := wait(t, sched.BackupNow(context.Background()))
	assert.True(t, errors.Is(res.Err, service.ErrSchedulerStopped), "got %v", res.Err)
}

func TestBackupNow_UnwritableDirReported(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "downloads")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	sched := service.NewBackupScheduler(memory.NewEntryStore(nil), service.SchedulerConfig{
		Paths:    backup.Paths{Dir: blocker},
		Interval: -1,
	}, logging.Discard())
	sched.Start(context.Background())
	defer sched.Stop()

	res := wait(t, sched.BackupNow(context.Background()))
	assert.Error(t, res.Err)
}
