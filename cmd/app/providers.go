package main

import (
	"context"
	"log/slog"

	"github.com/yanqian/iso-insight/internal/bootstrap"
	"github.com/yanqian/iso-insight/internal/infra/config"
)

// provideRuntime runs the startup phase before the server is built, so the
// first request already sees the ready or blocked state.
func provideRuntime(cfg *config.Config, logger *slog.Logger) *bootstrap.Runtime {
	return bootstrap.Startup(context.Background(), cfg, logger)
}
