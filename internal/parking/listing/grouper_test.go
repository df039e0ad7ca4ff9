package listing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dongtanms/parking-kiosk/internal/parking/listing"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

var kst = time.FixedZone("KST", 9*60*60)

func at(id int64, y int, m time.Month, d, hh, mm int) types.Entry {
	return types.Entry{
		ID:          id,
		PlateNumber: "0000",
		Status:      types.StatusPending,
		CreatedAt:   time.Date(y, m, d, hh, mm, 0, 0, kst).UTC(),
	}
}

func TestGroup_ThreeDays(t *testing.T) {
	// newest first, as the store returns them
	entries := []types.Entry{
		at(6, 2024, time.May, 29, 10, 0),
		at(5, 2024, time.May, 29, 9, 0),
		at(4, 2024, time.May, 28, 23, 30),
		at(3, 2024, time.May, 28, 0, 10), // previous UTC day, same KST day
		at(2, 2024, time.May, 27, 18, 0),
		at(1, 2024, time.May, 27, 8, 0),
	}

	items := listing.NewGrouper(kst, listing.KoreanLabel).Group(entries)

	var headers []string
	entryCount := 0
	for _, it := range items {
		if it.Kind == types.ItemDateHeader {
			headers = append(headers, it.Label)
		} else {
			entryCount++
		}
	}

	assert.Equal(t, []string{
		"2024년 5월 29일 (수)",
		"2024년 5월 28일 (화)",
		"2024년 5월 27일 (월)",
	}, headers)
	assert.Equal(t, len(entries), entryCount)

	want := []string{
		"2024년 5월 29일 (수)", "6", "5",
		"2024년 5월 28일 (화)", "4", "3",
		"2024년 5월 27일 (월)", "2", "1",
	}
	require.Len(t, items, len(want))
	for i, it := range items {
		assert.Equal(t, want[i], it.Key(), "item %d", i)
	}
}

func TestGroup_Empty(t *testing.T) {
	items := listing.NewGrouper(kst, nil).Group(nil)
	assert.Empty(t, items)
}

func TestGroup_SingleEntry(t *testing.T) {
	items := listing.NewGrouper(kst, listing.EnglishLabel).Group([]types.Entry{at(1, 2024, time.May, 29, 10, 0)})
	require.Len(t, items, 2)
	assert.Equal(t, types.DateHeader("2024-05-29 (Wed)"), items[0])
	assert.Equal(t, int64(1), items[1].Entry.ID)
}

func TestGroup_LocationDecidesDay(t *testing.T) {
	// 2024-05-28 16:00 UTC is already the 29th in Seoul.
	e := types.Entry{ID: 1, CreatedAt: time.Date(2024, 5, 28, 16, 0, 0, 0, time.UTC)}

	inUTC := listing.NewGrouper(time.UTC, listing.EnglishLabel).Group([]types.Entry{e})
	inKST := listing.NewGrouper(kst, listing.EnglishLabel).Group([]types.Entry{e})

	assert.Equal(t, "2024-05-28 (Tue)", inUTC[0].Label)
	assert.Equal(t, "2024-05-29 (Wed)", inKST[0].Label)
}

func TestLabelerFor(t *testing.T) {
	day := time.Date(2024, 5, 26, 12, 0, 0, 0, kst)
	assert.Equal(t, "2024년 5월 26일 (일)", listing.LabelerFor("ko")(day))
	assert.Equal(t, "2024년 5월 26일 (일)", listing.LabelerFor("")(day))
	assert.Equal(t, "2024-05-26 (Sun)", listing.LabelerFor("EN")(day))
}

func TestHourlyHistogram(t *testing.T) {
	entries := []types.Entry{
		at(1, 2024, time.May, 29, 9, 0),
		at(2, 2024, time.May, 29, 9, 59),
		at(3, 2024, time.May, 28, 9, 30),
		at(4, 2024, time.May, 28, 23, 0),
		at(5, 2024, time.May, 28, 0, 0),
	}

	h := listing.HourlyHistogram(entries, kst)

	assert.Equal(t, 3, h[9])
	assert.Equal(t, 1, h[23])
	assert.Equal(t, 1, h[0])
	total := 0
	for _, n := range h {
		total += n
	}
	assert.Equal(t, len(entries), total)
}
