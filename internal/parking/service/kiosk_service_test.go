package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongtanms/parking-kiosk/internal/logging"
	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/listing"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/memory"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

func newKiosk(t *testing.T, now store.Clock) (*service.KioskService, *countingTrigger) {
	t.Helper()
	trig := &countingTrigger{}
	g := listing.NewGrouper(time.UTC, listing.EnglishLabel)
	return service.NewKioskService(memory.NewEntryStore(now), g, trig, logging.Discard()), trig
}

func TestKiosk_Register(t *testing.T) {
	k, trig := newKiosk(t, nil)

	e, err := k.Register(context.Background(), " 1234 ")
	require.NoError(t, err)
	assert.Equal(t, "1234", e.PlateNumber)
	assert.Equal(t, types.StatusPending, e.Status)
	assert.Equal(t, int32(1), trig.n.Load())
}

func TestKiosk_Register_InvalidPlate(t *testing.T) {
	k, trig := newKiosk(t, nil)

	for _, p := range []string{"", "123", "12345", "12a4", "１２３４"} {
		_, err := k.Register(context.Background(), p)
		assert.ErrorIs(t, err, service.ErrInvalidPlate, "plate %q", p)
	}
	assert.Equal(t, int32(0), trig.n.Load(), "rejected input must not trigger an autosave")
}

func TestKiosk_MarkDoneAndDelete(t *testing.T) {
	k, trig := newKiosk(t, nil)
	ctx := context.Background()

	e, err := k.Register(ctx, "1234")
	require.NoError(t, err)

	require.NoError(t, k.MarkDone(ctx, e.ID))
	require.NoError(t, k.MarkDone(ctx, e.ID))
	require.NoError(t, k.Delete(ctx, e.ID))
	assert.Equal(t, int32(4), trig.n.Load())

	assert.ErrorIs(t, k.Delete(ctx, e.ID), store.ErrNotFound)
	assert.ErrorIs(t, k.MarkDone(ctx, e.ID), store.ErrNotFound)
	assert.Equal(t, int32(4), trig.n.Load(), "failed mutations must not trigger an autosave")
}

func TestKiosk_Grouped(t *testing.T) {
	now := time.Date(2024, 5, 28, 23, 0, 0, 0, time.UTC)
	k, _ := newKiosk(t, func() time.Time { return now })
	ctx := context.Background()

	_, err := k.Register(ctx, "1111")
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)
	_, err = k.Register(ctx, "2222")
	require.NoError(t, err)

	items, err := k.Grouped(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "2024-05-29 (Wed)", items[0].Label)
	assert.Equal(t, "2222", items[1].Entry.PlateNumber)
	assert.Equal(t, "2024-05-28 (Tue)", items[2].Label)
	assert.Equal(t, "1111", items[3].Entry.PlateNumber)
}

// A failing autosave never undoes or fails the kiosk mutation.
func TestKiosk_AutosaveFailureDoesNotFailMutation(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "downloads")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	ms := memory.NewEntryStore(nil)
	sched := service.NewBackupScheduler(ms, service.SchedulerConfig{
		Paths:    backup.Paths{Dir: blocker},
		Interval: -1,
	}, logging.Discard())
	sched.Start(context.Background())
	defer sched.Stop()

	k := service.NewKioskService(ms, listing.NewGrouper(time.UTC, nil), sched, logging.Discard())
	e, err := k.Register(context.Background(), "1234")
	require.NoError(t, err)

	got, err := ms.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.ID, got[0].ID)
}

func TestValidPlate(t *testing.T) {
	assert.True(t, service.ValidPlate("0000"))
	assert.True(t, service.ValidPlate("8007"))
	assert.False(t, service.ValidPlate("800"))
	assert.False(t, service.ValidPlate("80-7"))
}

func TestKiosk_RefreshReportsChangesSinceLastRender(t *testing.T) {
	now := time.Date(2024, 5, 29, 9, 0, 0, 0, time.UTC)
	k, _ := newKiosk(t, func() time.Time { return now })
	ctx := context.Background()

	a, err := k.Register(ctx, "1111")
	require.NoError(t, err)

	items, changes, err := k.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.ElementsMatch(t, []string{"2024-05-29 (Wed)", "1"}, changes.Added)

	_, changes, err = k.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changes.Empty(), "nothing happened between renders")

	require.NoError(t, k.MarkDone(ctx, a.ID))
	b, err := k.Register(ctx, "2222")
	require.NoError(t, err)

	_, changes, err = k.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, changes.Added)
	assert.Equal(t, []string{"1"}, changes.Changed)
	assert.Empty(t, changes.Removed)

	require.NoError(t, k.Delete(ctx, b.ID))
	_, changes, err = k.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, changes.Removed)
}
