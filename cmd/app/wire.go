//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/iso-insight/internal/bootstrap"
	"github.com/yanqian/iso-insight/internal/infra/config"
	httpiface "github.com/yanqian/iso-insight/internal/interface/http"
	"github.com/yanqian/iso-insight/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRuntime,
		wire.Bind(new(httpiface.Readiness), new(*bootstrap.Runtime)),
		httpiface.NewPageHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
