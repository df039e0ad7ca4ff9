package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/dongtanms/parking-kiosk/internal/parking/listing"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// CodeVerifier checks the admin unlock code.
type CodeVerifier interface {
	Verify(code string) bool
}

// AdminService backs the admin screen: raw entries, statistics, bulk clear
// and manual backup/restore.
type AdminService struct {
	store     store.EntryStore
	scheduler *BackupScheduler
	verifier  CodeVerifier
	loc       *time.Location
	logger    *slog.Logger
}

func NewAdminService(s store.EntryStore, sched *BackupScheduler, v CodeVerifier, loc *time.Location, logger *slog.Logger) *AdminService {
	if loc == nil {
		loc = time.Local
	}
	return &AdminService{store: s, scheduler: sched, verifier: v, loc: loc, logger: logger}
}

func (a *AdminService) VerifyCode(code string) error {
	if !a.verifier.Verify(code) {
		a.logger.Warn("admin code rejected")
		return ErrAdminCode
	}
	return nil
}

func (a *AdminService) Entries(ctx context.Context) ([]types.Entry, error) {
	return a.store.List(ctx)
}

func (a *AdminService) Stats(ctx context.Context) (types.Stats, error) {
	entries, err := a.store.List(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	return ComputeStats(entries, a.loc), nil
}

// Clear removes every entry. Backup files already written are untouched.
func (a *AdminService) Clear(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	a.logger.Info("all entries cleared")
	return nil
}

func (a *AdminService) BackupNow(ctx context.Context) <-chan BackupResult {
	return a.scheduler.BackupNow(ctx)
}

func (a *AdminService) RestoreNow(ctx context.Context) <-chan RestoreResult {
	return a.scheduler.RestoreNow(ctx)
}

// ComputeStats aggregates entries for the admin screen. DoneRate is the done
// share in percent, rounded; 0 for an empty store.
func ComputeStats(entries []types.Entry, loc *time.Location) types.Stats {
	st := types.Stats{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case types.StatusDone:
			st.Done++
		case types.StatusPending:
			st.Pending++
		}
	}
	if st.Total > 0 {
		st.DoneRate = int(math.Round(float64(st.Done) * 100 / float64(st.Total)))
	}
	st.Hourly = listing.HourlyHistogram(entries, loc)
	return st
}
