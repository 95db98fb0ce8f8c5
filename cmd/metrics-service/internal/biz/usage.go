package biz

import (
	"context"
	"sort"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/pkg/monitoring"

	"go.uber.org/zap"
)

// UsageAggregator 使用量聚合器
// 每个计数独立查询、并行执行；单个查询失败只把对应字段
// 降级为 0 并附加告警，绝不拖垮整个快照
type UsageAggregator struct {
	repo        domain.UsageRepository
	weeklySpan  time.Duration
	monthlySpan time.Duration
	logger      *zap.Logger
}

// NewUsageAggregator 创建聚合器
func NewUsageAggregator(repo domain.UsageRepository, weeklySpan, monthlySpan time.Duration, logger *zap.Logger) *UsageAggregator {
	return &UsageAggregator{
		repo:        repo,
		weeklySpan:  weeklySpan,
		monthlySpan: monthlySpan,
		logger:      logger,
	}
}

// countResult 单个计数查询结果
type countResult struct {
	field string
	value int64
	err   error
}

// Aggregate 并行执行全部计数查询并归并
func (a *UsageAggregator) Aggregate(ctx context.Context, now time.Time) (domain.UsageCounts, []domain.Warning) {
	queries := []struct {
		field string
		run   func(context.Context) (int64, error)
	}{
		{"totalUsers", a.repo.CountUsers},
		{"totalProperties", a.repo.CountProperties},
		{"totalLessons", a.repo.CountLessons},
		{"lessonsCompleted", a.repo.CountLessonsCompleted},
		{"totalPosts", a.repo.CountPosts},
		{"aiQueriesCount", a.repo.CountAIQueries},
		{"weeklyActiveUsers", func(ctx context.Context) (int64, error) {
			return a.repo.CountActiveSince(ctx, now.Add(-a.weeklySpan))
		}},
		{"monthlyActiveUsers", func(ctx context.Context) (int64, error) {
			return a.repo.CountActiveSince(ctx, now.Add(-a.monthlySpan))
		}},
	}

	results := make(chan countResult, len(queries))
	for _, q := range queries {
		go func(field string, run func(context.Context) (int64, error)) {
			value, err := runCount(ctx, run)
			results <- countResult{field: field, value: value, err: err}
		}(q.field, q.run)
	}

	var counts domain.UsageCounts
	var warnings []domain.Warning

	for range queries {
		result := <-results
		if result.err != nil {
			a.logger.Warn("usage count query failed, degrading field to zero",
				zap.String("field", result.field),
				zap.Error(result.err),
			)
			monitoring.DegradedFieldsTotal.WithLabelValues(result.field).Inc()
			warnings = append(warnings, domain.Warning{
				Field:  result.field,
				Reason: "query failed: " + result.err.Error(),
			})
			continue
		}
		counts.Set(result.field, result.value)
	}

	// 告警顺序与字段名绑定，保证重复运行输出可比
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Field < warnings[j].Field
	})

	return counts, warnings
}
