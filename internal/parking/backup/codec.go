// Package backup converts the entry collection to and from the JSON backup
// document and writes it to the well-known backup files.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// ErrMalformedBackup is returned by Decode for anything that is not an array
// of complete, well-typed records.
var ErrMalformedBackup = errors.New("malformed backup")

// Record is one element of the backup array. Field order matches the file
// format: plateNumber, status, createdAt.
type Record struct {
	PlateNumber string `json:"plateNumber"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"createdAt"` // unix milliseconds
}

// Encode renders entries, in the order given, as a 2-space indented JSON
// array. An empty collection encodes as [].
func Encode(entries []types.Entry) ([]byte, error) {
	recs := make([]Record, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, Record{
			PlateNumber: e.PlateNumber,
			Status:      string(e.Status),
			CreatedAt:   e.CreatedAt.UnixMilli(),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a backup document. Status values are passed through without
// checking them against the known statuses.
func Decode(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: top-level value is not an array", ErrMalformedBackup)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}

	recs := make([]Record, 0, len(raw))
	for i, elem := range raw {
		r, err := decodeRecord(elem)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformedBackup, i, err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

func decodeRecord(elem json.RawMessage) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return Record{}, errors.New("not an object")
	}

	var r Record
	if err := field(fields, "plateNumber", &r.PlateNumber); err != nil {
		return Record{}, err
	}
	if err := field(fields, "status", &r.Status); err != nil {
		return Record{}, err
	}
	if err := field(fields, "createdAt", &r.CreatedAt); err != nil {
		return Record{}, err
	}
	return r, nil
}

// field decodes fields[name] into dst. A missing key or a JSON null is an
// error; so is a value of the wrong type (a fractional or quoted createdAt).
func field(fields map[string]json.RawMessage, name string, dst any) error {
	v, ok := fields[name]
	if !ok {
		return fmt.Errorf("missing %q", name)
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return fmt.Errorf("%q is null", name)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%q has wrong type", name)
	}
	return nil
}
