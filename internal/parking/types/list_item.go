package types

import (
	"encoding/json"
	"strconv"
)

type ListItemKind int

const (
	ItemDateHeader ListItemKind = iota
	ItemEntry
)

// ListItem is a row of the grouped kiosk list: either a day header or an
// entry. Only the field matching Kind is meaningful.
type ListItem struct {
	Kind  ListItemKind
	Label string
	Entry Entry
}

func DateHeader(label string) ListItem {
	return ListItem{Kind: ItemDateHeader, Label: label}
}

func EntryItem(e Entry) ListItem {
	return ListItem{Kind: ItemEntry, Entry: e}
}

// Key identifies the item across renderings: the label for headers and the
// decimal entry ID for entries.
func (i ListItem) Key() string {
	if i.Kind == ItemDateHeader {
		return i.Label
	}
	return strconv.FormatInt(i.Entry.ID, 10)
}

type listItemJSON struct {
	Type  string     `json:"type"`
	Key   string     `json:"key"`
	Label string     `json:"label,omitempty"`
	Entry *EntryJSON `json:"entry,omitempty"`
}

func (i ListItem) MarshalJSON() ([]byte, error) {
	out := listItemJSON{Key: i.Key()}
	switch i.Kind {
	case ItemDateHeader:
		out.Type = "date"
		out.Label = i.Label
	default:
		out.Type = "entry"
		e := i.Entry.JSON()
		out.Entry = &e
	}
	return json.Marshal(out)
}
