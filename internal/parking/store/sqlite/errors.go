package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/dongtanms/parking-kiosk/internal/parking/store"
)

// wrapStorage tags driver and transaction errors with store.ErrStorage.
// Domain errors and context errors pass through unchanged.
func wrapStorage(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", store.ErrStorage, err)
	}
}
