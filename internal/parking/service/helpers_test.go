package service_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dongtanms/parking-kiosk/internal/logging"
	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/memory"
)

// startScheduler runs a scheduler over a fresh memory store with the
// periodic autosave switched off, stopped when the test ends.
func startScheduler(t *testing.T) (*memory.EntryStore, *service.BackupScheduler) {
	t.Helper()

	ms := memory.NewEntryStore(nil)
	sched := service.NewBackupScheduler(ms, service.SchedulerConfig{
		Paths:    backup.Paths{Dir: t.TempDir()},
		Interval: -1,
	}, logging.Discard())

	sched.Start(context.Background())
	t.Cleanup(sched.Stop)
	return ms, sched
}

func readBackup(t *testing.T, path string) []backup.Record {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	recs, err := backup.Decode(data)
	require.NoError(t, err)
	return recs
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		var zero T
		return zero
	}
}

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) TriggerAutosave() { c.n.Add(1) }
