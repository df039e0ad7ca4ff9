package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
)

// DefaultAutosaveInterval is how often the kiosk snapshots while running.
const DefaultAutosaveInterval = 5 * time.Minute

// finalSnapshotTimeout bounds the snapshot written on Stop.
const finalSnapshotTimeout = 5 * time.Second

type BackupResult struct {
	Path    string
	Entries int
	Err     error
}

type RestoreResult struct {
	Path     string
	Imported int
	Err      error
}

type SchedulerConfig struct {
	Paths backup.Paths

	// Interval between periodic autosaves. Zero means
	// DefaultAutosaveInterval; negative disables the periodic autosave.
	Interval time.Duration
}

// BackupScheduler decides when the store is snapshotted and performs every
// backup and restore on a single background goroutine, so they never
// interleave and never run on the kiosk's request path.
//
// Autosaves go to the autosave file; BackupNow and RestoreNow use the admin
// file. Autosave failures are logged and dropped.
type BackupScheduler struct {
	store    store.EntryStore
	restorer *Restorer
	paths    backup.Paths
	interval time.Duration
	logger   *slog.Logger

	autosave chan struct{}
	jobs     chan func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBackupScheduler creates a scheduler but does not start it.
func NewBackupScheduler(s store.EntryStore, cfg SchedulerConfig, logger *slog.Logger) *BackupScheduler {
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultAutosaveInterval
	}

	return &BackupScheduler{
		store:    s,
		restorer: NewRestorer(s, logger),
		paths:    cfg.Paths,
		interval: interval,
		logger:   logger,
		autosave: make(chan struct{}, 1),
		jobs:     make(chan func(ctx context.Context)),
		done:     make(chan struct{}),
	}
}

func (b *BackupScheduler) Paths() backup.Paths { return b.paths }

// Start launches the background loop. It exits when ctx is cancelled or
// Stop is called, writing one last autosave on the way out. Calling Start
// twice has no effect.
func (b *BackupScheduler) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, b.cancel = context.WithCancel(ctx)
	go b.loop(ctx)

	if b.interval > 0 {
		b.logger.Info("backup scheduler started", "dir", b.paths.Dir, "interval", b.interval.String())
	} else {
		b.logger.Info("backup scheduler started", "dir", b.paths.Dir, "interval", "off")
	}
}

// Stop signals the loop to exit and waits for the final snapshot. Safe to
// call more than once, and before Start.
func (b *BackupScheduler) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-b.done
}

// TriggerAutosave requests an autosave soon. It never blocks; requests made
// while one is already pending are merged, since the snapshot always reads
// the latest state.
func (b *BackupScheduler) TriggerAutosave() {
	select {
	case b.autosave <- struct{}{}:
	default:
	}
}

// BackupNow writes the admin backup file on the background goroutine. The
// returned channel yields exactly one result. Until Start is called the
// request waits for ctx.
func (b *BackupScheduler) BackupNow(ctx context.Context) <-chan BackupResult {
	out := make(chan BackupResult, 1)
	path := b.paths.Admin()
	b.submit(ctx, func(ctx context.Context) {
		n, err := b.Snapshot(ctx, path)
		if err != nil {
			b.logger.Error("admin backup failed", "path", path, "err", err)
		} else {
			b.logger.Info("admin backup written", "path", path, "entries", n)
		}
		out <- BackupResult{Path: path, Entries: n, Err: err}
	}, func(err error) {
		out <- BackupResult{Path: path, Err: err}
	})
	return out
}

// RestoreNow replays the admin backup file on the background goroutine. The
// returned channel yields exactly one result.
func (b *BackupScheduler) RestoreNow(ctx context.Context) <-chan RestoreResult {
	out := make(chan RestoreResult, 1)
	path := b.paths.Admin()
	b.submit(ctx, func(ctx context.Context) {
		n, err := b.restorer.Restore(ctx, path)
		if err != nil {
			b.logger.Warn("restore failed", "path", path, "imported", n, "err", err)
		}
		out <- RestoreResult{Path: path, Imported: n, Err: err}
	}, func(err error) {
		out <- RestoreResult{Path: path, Err: err}
	})
	return out
}

// Snapshot encodes the current store contents to path and returns the
// number of entries written. It runs on the caller's goroutine; the one-shot
// CLI commands use it directly.
func (b *BackupScheduler) Snapshot(ctx context.Context, path string) (int, error) {
	entries, err := b.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot list: %w", err)
	}
	data, err := backup.Encode(entries)
	if err != nil {
		return 0, err
	}
	if err := backup.WriteFile(path, data); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// submit hands job to the loop. If the loop is gone or ctx ends first,
// reject is called instead so the caller's channel still gets a result.
func (b *BackupScheduler) submit(ctx context.Context, job func(ctx context.Context), reject func(error)) {
	go func() {
		select {
		case b.jobs <- job:
		case <-b.done:
			reject(ErrSchedulerStopped)
		case <-ctx.Done():
			reject(ctx.Err())
		}
	}()
}

func (b *BackupScheduler) loop(ctx context.Context) {
	defer close(b.done)

	var tick <-chan time.Time
	if b.interval > 0 {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			b.finalSnapshot()
			return
		case <-tick:
			b.autosaveNow(ctx, "interval")
		case <-b.autosave:
			b.autosaveNow(ctx, "mutation")
		case job := <-b.jobs:
			job(ctx)
		}
	}
}

func (b *BackupScheduler) autosaveNow(ctx context.Context, reason string) {
	path := b.paths.Autosave()
	n, err := b.Snapshot(ctx, path)
	if err != nil {
		b.logger.Warn("autosave failed", "reason", reason, "path", path, "err", err)
		return
	}
	b.logger.Debug("autosave written", "reason", reason, "path", path, "entries", n)
}

func (b *BackupScheduler) finalSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), finalSnapshotTimeout)
	defer cancel()
	b.autosaveNow(ctx, "shutdown")
}
