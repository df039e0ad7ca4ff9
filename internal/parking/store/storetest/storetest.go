// Package storetest holds the behavioural suite every EntryStore backend
// must pass.
package storetest

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// FakeClock is a settable store.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Factory builds a fresh, empty store driven by clock.
type Factory func(t *testing.T, clock store.Clock) store.EntryStore

var epoch = time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.EntryStore, clock *FakeClock)
	}{
		{"ListEmpty", testListEmpty},
		{"InsertDefaults", testInsertDefaults},
		{"ListNewestFirst", testListNewestFirst},
		{"SameMillisecondTieBreak", testTieBreak},
		{"InsertAtKeepsTimestamp", testInsertAt},
		{"UpdateStatusIdempotent", testUpdateIdempotent},
		{"UpdateStatusNotFound", testUpdateNotFound},
		{"NoTransitionBackToPending", testNoBackToPending},
		{"DoneIsTerminal", testDoneIsTerminal},
		{"UnknownStatusCarried", testUnknownStatus},
		{"DeleteThenNotFound", testDeleteThenNotFound},
		{"ClearKeepsIDsUnique", testClear},
		{"RandomOpsStaySorted", testRandomOps},
		{"ConcurrentMutationsAndReads", testConcurrent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock := NewFakeClock(epoch)
			s := newStore(t, clock.Now)
			tc.fn(t, s, clock)
		})
	}
}

func testListEmpty(t *testing.T, s store.EntryStore, _ *FakeClock) {
	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testInsertDefaults(t *testing.T, s store.EntryStore, clock *FakeClock) {
	ctx := context.Background()

	e, err := s.Insert(ctx, "1234")
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, "1234", e.PlateNumber)
	assert.Equal(t, types.StatusPending, e.Status)
	assert.Equal(t, clock.Now().UnixMilli(), e.CreatedAt.UnixMilli())

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.ID, got[0].ID)
	assert.Equal(t, types.StatusPending, got[0].Status)

	clock.Advance(time.Second)
	e2, err := s.Insert(ctx, "5678")
	require.NoError(t, err)
	assert.Greater(t, e2.ID, e.ID)
}

func testListNewestFirst(t *testing.T, s store.EntryStore, clock *FakeClock) {
	ctx := context.Background()
	for _, p := range []string{"1111", "2222", "3333"} {
		_, err := s.Insert(ctx, p)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "3333", got[0].PlateNumber)
	assert.Equal(t, "2222", got[1].PlateNumber)
	assert.Equal(t, "1111", got[2].PlateNumber)
}

func testTieBreak(t *testing.T, s store.EntryStore, _ *FakeClock) {
	ctx := context.Background()
	a, err := s.Insert(ctx, "1111")
	require.NoError(t, err)
	b, err := s.Insert(ctx, "2222")
	require.NoError(t, err)

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID, "higher id first on equal timestamps")
	assert.Equal(t, a.ID, got[1].ID)
}

func testInsertAt(t *testing.T, s store.EntryStore, clock *FakeClock) {
	ctx := context.Background()
	orig := time.UnixMilli(1717000100000)

	e, err := s.InsertAt(ctx, "5678", orig)
	require.NoError(t, err)
	assert.Equal(t, orig.UnixMilli(), e.CreatedAt.UnixMilli())
	assert.NotEqual(t, clock.Now().UnixMilli(), e.CreatedAt.UnixMilli())

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orig.UnixMilli(), got[0].CreatedAt.UnixMilli())
}

func testUpdateIdempotent(t *testing.T, s store.EntryStore, _ *FakeClock) {
	ctx := context.Background()
	e, err := s.Insert(ctx, "1234")
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, e.ID, types.StatusDone))
	once, err := s.List(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, e.ID, types.StatusDone))
	twice, err := s.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	require.Len(t, twice, 1)
	assert.Equal(t, types.StatusDone, twice[0].Status)
	assert.Equal(t, e.ID, twice[0].ID)
	assert.Equal(t, e.CreatedAt.UnixMilli(), twice[0].CreatedAt.UnixMilli())
}

func testUpdateNotFound(t *testing.T, s store.EntryStore, _ *FakeClock) {
	err := s.UpdateStatus(context.Background(), 999, types.StatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testNoBackToPending(t *testing.T, s store.EntryStore, _ *FakeClock) {
	ctx := context.Background()
	e, err := s.Insert(ctx, "1234")
	require.NoError(t, err)

	// pending -> pending is a no-op
	require.NoError(t, s.UpdateStatus(ctx, e.ID, types.StatusPending))

	require.NoError(t, s.UpdateStatus(ctx, e.ID, types.StatusDone))
	err = s.UpdateStatus(ctx, e.ID, types.StatusPending)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, got[0].Status)
}

func testDoneIsTerminal(t *testing.T, s store.EntryStore, _ *FakeClock) {
	ctx := context.Background()
	e, err := s.Insert(ctx, "1234")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, e.ID, types.StatusDone))

	err = s.UpdateStatus(ctx, e.ID, types.Status("towed"))
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, got[0].Status)
}

func testUnknownStatus(t *testing.T, s store.EntryStore, _ *FakeClock) {
	ctx := context.Background()
	e, err := s.Insert(ctx, "1234")
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, e.ID, types.Status("towed")))

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Status("towed"), got[0].Status)
}

func testDeleteThenNotFound(t *testing.T, s store.EntryStore, _ *FakeClock) {
	ctx := context.Background()
	e, err := s.Insert(ctx, "1234")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, e.ID))
	assert.ErrorIs(t, s.Delete(ctx, e.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateStatus(ctx, e.ID, types.StatusDone), store.ErrNotFound)

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testClear(t *testing.T, s store.EntryStore, clock *FakeClock) {
	ctx := context.Background()
	seen := map[int64]bool{}
	for _, p := range []string{"1111", "2222"} {
		e, err := s.Insert(ctx, p)
		require.NoError(t, err)
		seen[e.ID] = true
		clock.Advance(time.Second)
	}

	require.NoError(t, s.Clear(ctx))
	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Clearing an empty store still succeeds.
	require.NoError(t, s.Clear(ctx))

	e, err := s.Insert(ctx, "3333")
	require.NoError(t, err)
	assert.False(t, seen[e.ID], "id %d reused after clear", e.ID)
}

func testRandomOps(t *testing.T, s store.EntryStore, clock *FakeClock) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	var live []int64
	used := map[int64]bool{}

	for i := 0; i < 200; i++ {
		switch op := rng.Intn(4); {
		case op <= 1 || len(live) == 0:
			// Jump the clock back and forth so inserts are not already ordered.
			clock.Advance(time.Duration(rng.Intn(7200)-3600) * time.Second)
			e, err := s.Insert(ctx, "0000")
			require.NoError(t, err)
			require.False(t, used[e.ID], "id %d reused", e.ID)
			used[e.ID] = true
			live = append(live, e.ID)
		case op == 2:
			k := rng.Intn(len(live))
			require.NoError(t, s.Delete(ctx, live[k]))
			live = append(live[:k], live[k+1:]...)
		default:
			require.NoError(t, s.UpdateStatus(ctx, live[rng.Intn(len(live))], types.StatusDone))
		}

		got, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(live))
		for j := 1; j < len(got); j++ {
			prev, cur := got[j-1], got[j]
			ordered := prev.CreatedAt.After(cur.CreatedAt) ||
				(prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID > cur.ID)
			require.True(t, ordered, "list out of order at %d: %+v before %+v", j, prev, cur)
		}
	}
}

// testConcurrent runs writers and readers side by side. Every read must see
// a sorted list of whole entries and every id must be handed out once.
func testConcurrent(t *testing.T, s store.EntryStore, clock *FakeClock) {
	const workers, perWorker = 8, 25
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker*3)
	ids := make(chan int64, workers*perWorker)
	unsorted := make(chan []types.Entry, workers*perWorker)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				clock.Advance(time.Millisecond)
				e, err := s.Insert(ctx, "1234")
				if err != nil {
					errs <- err
					continue
				}
				ids <- e.ID
				if err := s.UpdateStatus(ctx, e.ID, types.StatusDone); err != nil {
					errs <- err
				}
				got, err := s.List(ctx)
				if err != nil {
					errs <- err
					continue
				}
				if !sort.SliceIsSorted(got, func(a, b int) bool { return newerFirst(got[a], got[b]) }) {
					unsorted <- got
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	close(ids)
	close(unsorted)

	for err := range errs {
		t.Errorf("concurrent op: %v", err)
	}
	for got := range unsorted {
		t.Errorf("list out of order under concurrent writes: %d entries", len(got))
	}

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d handed out twice", id)
		seen[id] = true
	}

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, workers*perWorker)
	for _, e := range got {
		assert.Equal(t, types.StatusDone, e.Status, "entry %d", e.ID)
	}
}

func newerFirst(a, b types.Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
