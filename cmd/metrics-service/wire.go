//go:build wireinject
// +build wireinject

package main

import (
	"propfolio/cmd/metrics-service/internal/app"
	"propfolio/cmd/metrics-service/internal/biz"
	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/data"
	"propfolio/cmd/metrics-service/internal/infra/billing"
	"propfolio/cmd/metrics-service/internal/infra/event"
	"propfolio/cmd/metrics-service/internal/server"
	"propfolio/cmd/metrics-service/internal/service"
	"propfolio/pkg/auth"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// initApp 初始化应用
func initApp(config *conf.Config, logger *zap.Logger) (*app.App, func(), error) {
	wire.Build(
		// Data 层
		data.NewDB,
		data.NewClickHouseClient,
		data.NewRedisClient,
		data.NewUsageRepository,
		data.NewSpendRepository,
		data.NewSnapshotRepository,
		data.NewSnapshotCache,

		// 外部依赖
		billing.NewClient,
		event.NewPublisher,

		// Biz 层
		provideTierTable,
		provideBillingCollector,
		provideUsageAggregator,
		provideSpendReader,
		biz.NewCohortBuilder,
		biz.NewSnapshotUsecase,

		// Service 层
		service.NewMetricsService,

		// Server 层
		provideJWTManager,
		auth.NewRBACManager,
		wire.Bind(new(server.Logger), new(*zap.Logger)),
		server.NewHTTPServer,

		app.NewApp,
	)

	return nil, nil, nil
}
