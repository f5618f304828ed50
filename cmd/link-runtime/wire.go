//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"link-runtime/internal/biz"
	"link-runtime/internal/conf"
	"link-runtime/internal/data"
	"link-runtime/internal/enrichment"
	"link-runtime/internal/infra/emitter"
	"link-runtime/internal/infra/eventbus"
	"link-runtime/internal/server"
	"link-runtime/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Redirect, *conf.Cache, *conf.Store, *conf.Secrets, *conf.Redis, *conf.GeoIP, *conf.Emitter, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		server.ProviderSet,
		data.ProviderSet,
		biz.ProviderSet,
		enrichment.ProviderSet,
		service.ProviderSet,
		eventbus.ProviderSet,
		emitter.ProviderSet,
		newApp,
	))
}
