package types

import "time"

// Status is the lifecycle state of a parking entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Entry is one parking registration.
type Entry struct {
	ID          int64
	PlateNumber string
	Status      Status
	CreatedAt   time.Time
}

// EntryJSON is the wire form used by the kiosk API.
type EntryJSON struct {
	ID          int64  `json:"id"`
	PlateNumber string `json:"plate_number"`
	Status      string `json:"status"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

func (e Entry) JSON() EntryJSON {
	return EntryJSON{
		ID:          e.ID,
		PlateNumber: e.PlateNumber,
		Status:      string(e.Status),
		CreatedAtMs: e.CreatedAt.UnixMilli(),
	}
}

type RegisterRequest struct {
	PlateNumber string `json:"plate_number"`
}

type Stats struct {
	Total    int     `json:"total"`
	Done     int     `json:"done"`
	Pending  int     `json:"pending"`
	DoneRate int     `json:"done_rate"` // rounded percent
	Hourly   [24]int `json:"hourly"`
}

type BackupResponse struct {
	OK      bool   `json:"ok"`
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

type RestoreResponse struct {
	OK       bool   `json:"ok"`
	Path     string `json:"path"`
	Imported int    `json:"imported"`
}
