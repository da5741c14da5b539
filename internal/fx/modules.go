package fx

import (
	"battle-tracker/internal/api"
	"battle-tracker/internal/config"
	"battle-tracker/internal/database"
	"battle-tracker/internal/engine"
	"battle-tracker/internal/events"
	"battle-tracker/internal/logger"
	"battle-tracker/internal/push"
	"battle-tracker/internal/repository"
	"battle-tracker/internal/server"
	"battle-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(events.NewBus),
	// engine + store
	fx.Provide(engine.New),
	fx.Provide(repository.NewStateRepository),
	// transport gateways
	fx.Provide(api.NewStatsClient),
	fx.Provide(push.NewListener),
	// svc
	fx.Provide(service.NewTrackerService),
	// server
	fx.Provide(server.NewTrackerServer),
)
