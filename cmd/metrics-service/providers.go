package main

import (
	"time"

	"propfolio/cmd/metrics-service/internal/biz"
	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/pkg/auth"

	"go.uber.org/zap"
)

// provideTierTable 从配置构建价格标识到档位的映射表
func provideTierTable(config *conf.Config) *domain.TierTable {
	mapping := make(map[string]domain.TierName, len(config.Tiers.PriceMap))
	for priceID, tier := range config.Tiers.PriceMap {
		mapping[priceID] = domain.TierName(tier)
	}
	return domain.NewTierTable(config.Tiers.Version, mapping)
}

// provideJWTManager 创建 JWT 管理器
func provideJWTManager(config *conf.Config) *auth.JWTManager {
	return auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTExpiry)
}

// provideBillingCollector 按配置窗口创建计费采集器
func provideBillingCollector(
	provider domain.BillingProvider,
	tiers *domain.TierTable,
	config *conf.Config,
	logger *zap.Logger,
) *biz.BillingCollector {
	churnWindow := time.Duration(config.Metrics.ChurnWindowDays) * 24 * time.Hour
	return biz.NewBillingCollector(provider, tiers, churnWindow, logger)
}

// provideUsageAggregator 按配置窗口创建使用量聚合器
func provideUsageAggregator(
	repo domain.UsageRepository,
	config *conf.Config,
	logger *zap.Logger,
) *biz.UsageAggregator {
	weeklySpan := time.Duration(config.Metrics.WeeklyActiveDays) * 24 * time.Hour
	monthlySpan := time.Duration(config.Metrics.MonthlyActiveDays) * 24 * time.Hour
	return biz.NewUsageAggregator(repo, weeklySpan, monthlySpan, logger)
}

// provideSpendReader 按配置窗口创建投放读取器
func provideSpendReader(
	repo domain.SpendRepository,
	config *conf.Config,
	logger *zap.Logger,
) *biz.SpendReader {
	window := time.Duration(config.Metrics.SpendWindowDays) * 24 * time.Hour
	return biz.NewSpendReader(repo, window, logger)
}
