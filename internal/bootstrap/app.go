package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yanqian/rockwatch/internal/domain/monitor"
	"github.com/yanqian/rockwatch/internal/infra/config"
	"github.com/yanqian/rockwatch/internal/infra/notify"
)

// App encapsulates the HTTP server, the monitor loop and the alert stream.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	monitor *monitor.Runner
	hub     *notify.Hub
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, runner *monitor.Runner, hub *notify.Hub) *App {
	return &App{
		cfg:     cfg,
		logger:  logger.With("component", "bootstrap"),
		server:  server,
		monitor: runner,
		hub:     hub,
	}
}

// Run starts every component and blocks until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if a.hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.hub.Run(ctx)
		}()
	}

	if a.monitor != nil && a.cfg.Monitor.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info("monitor loop starting", "interval", a.cfg.Monitor.Interval)
			if err := a.monitor.Run(ctx); err != nil {
				a.logger.Error("monitor loop stopped", "error", err)
			}
		}()
	}

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	wg.Wait()
	return runErr
}
