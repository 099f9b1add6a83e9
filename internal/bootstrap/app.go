package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/iso-insight/internal/infra/config"
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	runtime *Runtime
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *Runtime) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, runtime: runtime}
}

// Run starts the HTTP server and blocks until shutdown. The page is served
// even when startup was blocked so the failure can be shown.
func (a *App) Run(ctx context.Context) error {
	defer a.closeRuntime()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting",
			"address", a.cfg.HTTP.Address,
			"ready", a.runtime.Err() == nil,
			"documents", a.runtime.Documents(),
		)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) closeRuntime() {
	if err := a.runtime.Close(); err != nil {
		a.logger.Warn("failed to release startup resources", "error", err)
	}
}
