package service

import (
	"context"

	"propfolio/cmd/metrics-service/internal/biz"
	"propfolio/cmd/metrics-service/internal/domain"
)

// MetricsService 指标服务实现
type MetricsService struct {
	snapshotUc *biz.SnapshotUsecase
}

// NewMetricsService 创建指标服务
func NewMetricsService(snapshotUc *biz.SnapshotUsecase) *MetricsService {
	return &MetricsService{
		snapshotUc: snapshotUc,
	}
}

// GenerateSnapshot 按需计算一份新快照
func (s *MetricsService) GenerateSnapshot(ctx context.Context, generatedBy string) (*domain.MetricsSnapshot, error) {
	return s.snapshotUc.Generate(ctx, generatedBy)
}

// GetLatestSnapshot 返回最近一次持久化的快照
func (s *MetricsService) GetLatestSnapshot(ctx context.Context) (*domain.MetricsSnapshot, error) {
	return s.snapshotUc.Latest(ctx)
}
