// Package app wires config, store, services and the HTTP server into one
// runnable kiosk backend.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dongtanms/parking-kiosk/internal/adminauth"
	"github.com/dongtanms/parking-kiosk/internal/config"
	"github.com/dongtanms/parking-kiosk/internal/db"
	"github.com/dongtanms/parking-kiosk/internal/httpapi"
	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/listing"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/bolt"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/memory"
	"github.com/dongtanms/parking-kiosk/internal/parking/store/sqlite"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Location  *time.Location
	Store     store.EntryStore
	Scheduler *service.BackupScheduler
	Kiosk     *service.KioskService
	Admin     *service.AdminService
	Server    *httpapi.Server

	closers []func() error
}

// New opens the configured store and builds every service on top of it.
// The scheduler is not started; Run does that.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	a := &App{Config: cfg, Logger: logger, Location: loc}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	verifier, err := adminauth.NewVerifier(cfg.AdminCode, cfg.AdminCodeFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	interval := time.Duration(cfg.AutosaveMinutes) * time.Minute
	if interval == 0 {
		interval = -1
	}
	a.Scheduler = service.NewBackupScheduler(a.Store, service.SchedulerConfig{
		Paths:    backup.Paths{Dir: cfg.BackupDir},
		Interval: interval,
	}, logger.With("component", "backup"))

	grouper := listing.NewGrouper(loc, listing.LabelerFor(cfg.Locale))
	a.Kiosk = service.NewKioskService(a.Store, grouper, a.Scheduler, logger.With("component", "kiosk"))
	a.Admin = service.NewAdminService(a.Store, a.Scheduler, verifier, loc, logger.With("component", "admin"))

	a.Server = httpapi.NewServer(httpapi.Dependencies{
		Logger: logger.With("component", "http"),
		Addr:   cfg.HTTPAddr,
		Kiosk:  a.Kiosk,
		Admin:  a.Admin,
	})

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Store {
	case "memory":
		a.Store = memory.NewEntryStore(nil)

	case "bolt":
		bs, err := bolt.Open(a.Config.DBPath, nil)
		if err != nil {
			return err
		}
		a.Store = bs
		a.closers = append(a.closers, bs.Close)

	case "sqlite":
		conn, err := db.Open(ctx, db.Config{Path: a.Config.DBPath, Env: a.Config.Env})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, conn.Close)

		if err := a.seedDev(ctx, conn); err != nil {
			return err
		}

		writer := db.NewWorker(conn)
		a.closers = append(a.closers, func() error { writer.Close(); return nil })
		a.Store = sqlite.NewEntryStore(conn, writer, nil)

	default:
		return fmt.Errorf("unknown store %q", a.Config.Store)
	}

	a.Logger.Info("store opened", "store", a.Config.Store, "path", a.Config.DBPath)
	return nil
}

func (a *App) seedDev(ctx context.Context, conn *sql.DB) error {
	if a.Config.Env != "dev" || !a.Config.SeedDev {
		return nil
	}
	n, err := db.SeedDev(ctx, conn, db.SeedDevOptions{})
	if err != nil {
		return err
	}
	if n > 0 {
		a.Logger.Info("seeded demo entries", "count", n)
	}
	return nil
}

// Run listens on the configured address and serves until ctx is cancelled
// or the server fails. See Serve for the shutdown order.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.HTTPAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve starts the backup scheduler and serves HTTP on ln until ctx is
// cancelled or the server fails. The scheduler outlives ctx: in-flight
// requests are drained first, and only then does Stop write the final
// autosave, so a mutation finishing during the drain is still saved.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.Scheduler.Start(context.WithoutCancel(ctx))

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http shutdown", "err", err)
	}
	a.Scheduler.Stop()
	return runErr
}

// Close stops the scheduler and releases the store. Safe to call more than
// once and after a failed New.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close", "err", err)
		}
	}
	a.closers = nil
}
