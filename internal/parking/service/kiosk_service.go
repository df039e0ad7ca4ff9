package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/dongtanms/parking-kiosk/internal/parking/listing"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// PlateLength is the number of digits the kiosk keypad accepts.
const PlateLength = 4

// AutosaveTrigger is notified after every successful kiosk mutation.
type AutosaveTrigger interface {
	TriggerAutosave()
}

// KioskService backs the attendant screen: register, complete, delete and
// the grouped list.
type KioskService struct {
	store    store.EntryStore
	grouper  listing.Grouper
	autosave AutosaveTrigger
	logger   *slog.Logger

	// shown is the list the display rendered last.
	mu    sync.Mutex
	shown []types.ListItem
}

func NewKioskService(s store.EntryStore, g listing.Grouper, autosave AutosaveTrigger, logger *slog.Logger) *KioskService {
	return &KioskService{store: s, grouper: g, autosave: autosave, logger: logger}
}

func (k *KioskService) Register(ctx context.Context, plate string) (types.Entry, error) {
	plate = strings.TrimSpace(plate)
	if !ValidPlate(plate) {
		return types.Entry{}, ErrInvalidPlate
	}

	e, err := k.store.Insert(ctx, plate)
	if err != nil {
		return types.Entry{}, err
	}
	k.logger.Info("entry registered", "id", e.ID, "plate", e.PlateNumber)
	k.autosave.TriggerAutosave()
	return e, nil
}

func (k *KioskService) MarkDone(ctx context.Context, id int64) error {
	if err := k.store.UpdateStatus(ctx, id, types.StatusDone); err != nil {
		return err
	}
	k.logger.Info("entry done", "id", id)
	k.autosave.TriggerAutosave()
	return nil
}

func (k *KioskService) Delete(ctx context.Context, id int64) error {
	if err := k.store.Delete(ctx, id); err != nil {
		return err
	}
	k.logger.Info("entry deleted", "id", id)
	k.autosave.TriggerAutosave()
	return nil
}

// Grouped returns the kiosk list: day headers with that day's entries,
// newest first.
func (k *KioskService) Grouped(ctx context.Context) ([]types.ListItem, error) {
	entries, err := k.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return k.grouper.Group(entries), nil
}

// Refresh returns the grouped list together with its changes against the
// list the previous Refresh handed out, so the display can update only the
// rows that moved. There is one display per kiosk, so one previous
// rendering is kept.
func (k *KioskService) Refresh(ctx context.Context) ([]types.ListItem, listing.Changes, error) {
	items, err := k.Grouped(ctx)
	if err != nil {
		return nil, listing.Changes{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	changes := listing.Diff(k.shown, items)
	k.shown = items
	return items, changes, nil
}

// ValidPlate reports whether plate is exactly PlateLength ASCII digits.
func ValidPlate(plate string) bool {
	if len(plate) != PlateLength {
		return false
	}
	for i := 0; i < len(plate); i++ {
		if plate[i] < '0' || plate[i] > '9' {
			return false
		}
	}
	return true
}
