package biz

import (
	"context"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/pkg/monitoring"
	"propfolio/pkg/resilience"

	"go.uber.org/zap"
)

// SpendReader 市场投放读取器
// 读失败不在计费关键路径上：降级为零投放并附加告警
type SpendReader struct {
	repo   domain.SpendRepository
	window time.Duration
	logger *zap.Logger
}

// NewSpendReader 创建读取器
func NewSpendReader(repo domain.SpendRepository, window time.Duration, logger *zap.Logger) *SpendReader {
	return &SpendReader{
		repo:   repo,
		window: window,
		logger: logger,
	}
}

// Read 汇总尾随窗口内的投放与转化
// 保证 TotalAdSpend >= 0 且 TotalConversions >= 1：
// 转化下限是刻意的平滑策略，保证 CAC 除法有定义
func (r *SpendReader) Read(ctx context.Context, now time.Time) (domain.SpendSummary, []domain.Warning) {
	days := int(r.window.Hours() / 24)
	summary := domain.SpendSummary{WindowDays: days}

	var adSpend, conversions int64
	err := resilience.Retry(ctx, datastoreRetryPolicy(), func() error {
		callCtx, cancel := context.WithTimeout(ctx, datastoreTimeout)
		defer cancel()

		var err error
		adSpend, conversions, err = r.repo.SumSpend(callCtx, now.Add(-r.window))
		return err
	})
	if err != nil {
		r.logger.Warn("marketing spend read failed, degrading to zero spend",
			zap.Error(err),
		)
		monitoring.DegradedFieldsTotal.WithLabelValues("marketingSpend").Inc()
		summary.TotalConversions = 1
		return summary, []domain.Warning{{
			Field:  "marketingSpend",
			Reason: "query failed: " + err.Error(),
		}}
	}

	if adSpend > 0 {
		summary.TotalAdSpend = adSpend
	}
	summary.TotalConversions = conversions
	if summary.TotalConversions < 1 {
		summary.TotalConversions = 1
	}

	return summary, nil
}
