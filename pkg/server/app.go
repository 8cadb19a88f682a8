package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "BarView/internal/domain/repository"
	"BarView/internal/service/catalog"
	"BarView/internal/service/ratelimit"
	"BarView/pkg/config"
	xhttp "BarView/pkg/http"
	applogger "BarView/pkg/logger"
)

const limiterIdle = 10 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	drawings   domrepo.DrawingStore
	catalog    *catalog.Catalog
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	drawings domrepo.DrawingStore,
	cat *catalog.Catalog,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		drawings:   drawings,
		catalog:    cat,
		limiter:    limiter,
	}
}

// Run prepares the store, serves HTTP and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Prepare(ctx); err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	go a.pruneLimiter(ctx)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// Prepare creates the drawings table and logs the trading tables found.
// An unreadable catalog is logged, not fatal: /health reports the store state.
func (a *App) Prepare(ctx context.Context) error {
	if err := a.drawings.Init(ctx); err != nil {
		a.l.Error("drawings schema init failed", applogger.Error(err))
		return err
	}

	items, err := a.catalog.List(ctx)
	if err != nil {
		a.l.Warn("instrument detection failed", applogger.Error(err))
		return nil
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Instrument
	}
	a.l.Info("instruments detected",
		applogger.String("store", a.cfg.Store.Type),
		applogger.Int("count", len(items)),
		applogger.Strings("instruments", names),
	)
	return nil
}

func (a *App) pruneLimiter(ctx context.Context) {
	if a.limiter == nil {
		return
	}
	t := time.NewTicker(limiterIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("keys", n))
			}
		}
	}
}

// shutdown stops accepting requests and flushes collected logs.
// Store clients and the kafka producer are closed by the injector cleanup.
func (a *App) shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	a.l.RemoveCollector()

	a.l.Info("shutdown complete")
	return nil
}
