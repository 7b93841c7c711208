// Package app wires the store, responder, service and HTTP surface into a
// runnable server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chatrelay/pkg/api"
	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/responder"
	"chatrelay/pkg/service"
	"chatrelay/pkg/store"
)

// App holds the assembled components for one server process.
type App struct {
	cfg     *config.Config
	st      store.Store
	sched   *responder.Scheduler
	hub     *api.Hub
	srv     *api.Server
	httpSrv *http.Server
}

// New builds the application from configuration. The store backend is chosen
// by cfg.Storage.Backend; everything downstream receives its dependencies
// explicitly.
func New(cfg *config.Config) (*App, error) {
	var st store.Store
	switch cfg.Storage.Backend {
	case "", "memory":
		st = store.NewMemoryStore()
	case "pebble":
		ps, err := store.OpenPebble(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open pebble store: %w", err)
		}
		st = ps
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	gen := responder.NewGenerator(cfg.Responder.Seed)
	var opts []responder.SchedulerOption
	if cfg.Responder.BaseDelayMs > 0 || cfg.Responder.JitterMs > 0 {
		base := time.Duration(cfg.Responder.BaseDelayMs) * time.Millisecond
		jitter := time.Duration(cfg.Responder.JitterMs) * time.Millisecond
		opts = append(opts, responder.WithDelay(base, jitter))
	}
	if cfg.Responder.MaxPending > 0 {
		opts = append(opts, responder.WithMaxPending(cfg.Responder.MaxPending))
	}
	sched := responder.NewScheduler(gen, st, cfg.Responder.Seed, opts...)

	svc := service.New(st, sched)
	hub := api.NewHub()

	return &App{
		cfg:   cfg,
		st:    st,
		sched: sched,
		hub:   hub,
		srv:   api.NewServer(svc, hub),
	}, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails, then tears
// down the scheduler and the store.
func (a *App) Run(ctx context.Context) error {
	errCh, err := a.startHTTP(ctx)
	if err != nil {
		a.teardown()
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("server_stopping", "addr", a.cfg.Addr())
	case err = <-errCh:
		logger.Error("server_listen_failed", "error", err)
	}

	a.shutdownHTTP()
	a.teardown()
	return err
}

func (a *App) teardown() {
	a.sched.Stop()
	if err := a.st.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
}
