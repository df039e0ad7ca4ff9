package listing

import "github.com/dongtanms/parking-kiosk/internal/parking/types"

// Changes is the keyed difference between two renderings of the list.
type Changes struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares prev and next by ListItem.Key. An item present in both is
// changed when its content differs (an entry's status flipped).
func Diff(prev, next []types.ListItem) Changes {
	old := make(map[string]types.ListItem, len(prev))
	for _, it := range prev {
		old[it.Key()] = it
	}

	c := Changes{Added: []string{}, Removed: []string{}, Changed: []string{}}
	seen := make(map[string]struct{}, len(next))
	for _, it := range next {
		k := it.Key()
		seen[k] = struct{}{}
		was, ok := old[k]
		switch {
		case !ok:
			c.Added = append(c.Added, k)
		case !sameItem(was, it):
			c.Changed = append(c.Changed, k)
		}
	}
	for _, it := range prev {
		if _, ok := seen[it.Key()]; !ok {
			c.Removed = append(c.Removed, it.Key())
		}
	}
	return c
}

func sameItem(a, b types.ListItem) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == types.ItemDateHeader {
		return a.Label == b.Label
	}
	return a.Entry.ID == b.Entry.ID &&
		a.Entry.PlateNumber == b.Entry.PlateNumber &&
		a.Entry.Status == b.Entry.Status &&
		a.Entry.CreatedAt.Equal(b.Entry.CreatedAt)
}
