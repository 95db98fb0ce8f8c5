package app

import (
	"context"

	"propfolio/cmd/metrics-service/internal/data"
	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/cmd/metrics-service/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App 应用程序
type App struct {
	Logger     *zap.Logger
	HTTPServer *server.HTTPServer
	DB         *data.DB
	ClickHouse *data.ClickHouseClient
	Redis      *redis.Client
	Events     domain.EventPublisher
}

// NewApp 创建应用程序
func NewApp(
	logger *zap.Logger,
	httpServer *server.HTTPServer,
	db *data.DB,
	clickHouse *data.ClickHouseClient,
	redisClient *redis.Client,
	events domain.EventPublisher,
) *App {
	return &App{
		Logger:     logger,
		HTTPServer: httpServer,
		DB:         db,
		ClickHouse: clickHouse,
		Redis:      redisClient,
		Events:     events,
	}
}

// Start 启动应用
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("Application started successfully")
	return nil
}

// Cleanup 清理资源
func (a *App) Cleanup() error {
	a.Logger.Info("Cleaning up resources...")

	// 关闭事件发布器
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.Logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}

	// 关闭 Redis 连接
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close Redis", zap.Error(err))
		}
	}

	// 关闭 ClickHouse 连接
	if a.ClickHouse != nil {
		if err := a.ClickHouse.Close(); err != nil {
			a.Logger.Error("Failed to close ClickHouse", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if a.DB != nil {
		if err := data.CloseDB(a.DB); err != nil {
			a.Logger.Error("Failed to close database", zap.Error(err))
		}
	}

	return nil
}
