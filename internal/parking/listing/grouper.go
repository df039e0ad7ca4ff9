// Package listing turns the flat, newest-first entry list into what the
// kiosk and admin screens display.
package listing

import (
	"time"

	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

type Grouper struct {
	Location *time.Location
	Label    Labeler
}

func NewGrouper(loc *time.Location, label Labeler) Grouper {
	if loc == nil {
		loc = time.Local
	}
	if label == nil {
		label = KoreanLabel
	}
	return Grouper{Location: loc, Label: label}
}

// Group walks entries in the order given (store order, newest first) and
// emits a date header each time the day label changes, followed by the
// entries of that day.
func (g Grouper) Group(entries []types.Entry) []types.ListItem {
	items := make([]types.ListItem, 0, len(entries)+len(entries)/4)
	last := ""
	for i, e := range entries {
		label := g.Label(e.CreatedAt.In(g.Location))
		if i == 0 || label != last {
			items = append(items, types.DateHeader(label))
			last = label
		}
		items = append(items, types.EntryItem(e))
	}
	return items
}

// HourlyHistogram counts entries per hour of day in loc.
func HourlyHistogram(entries []types.Entry, loc *time.Location) [24]int {
	if loc == nil {
		loc = time.Local
	}
	var h [24]int
	for _, e := range entries {
		h[e.CreatedAt.In(loc).Hour()]++
	}
	return h
}
