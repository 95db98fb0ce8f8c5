package biz

import (
	"time"

	"propfolio/cmd/metrics-service/internal/domain"
)

// Growth 环比增长结果
type Growth struct {
	MRRGrowthMoM     float64
	UserGrowthMoM    float64
	RevenueGrowthMoM float64
}

// ComputeGrowth 由持久化历史推导环比增长
// history 按生成时间倒序；基线取距今 lookback 之前最近的一条。
// 无历史或基线为零时增长为 0 —— 无先验数据不是错误，只是无信息
func ComputeGrowth(history []*domain.MetricsSnapshot, now time.Time, lookback time.Duration) Growth {
	var g Growth

	if len(history) == 0 {
		return g
	}

	latest := history[0]

	cutoff := now.Add(-lookback)
	var baseline *domain.MetricsSnapshot
	for _, snapshot := range history {
		if !snapshot.GeneratedAt.After(cutoff) {
			baseline = snapshot
			break
		}
	}

	if baseline == nil {
		return g
	}

	if baseline.MRR != 0 {
		g.MRRGrowthMoM = percentDelta(float64(latest.MRR), float64(baseline.MRR))
	}
	if baseline.Usage.TotalUsers != 0 {
		g.UserGrowthMoM = percentDelta(float64(latest.Usage.TotalUsers), float64(baseline.Usage.TotalUsers))
	}
	if baseline.TotalRevenueAllTime != 0 {
		g.RevenueGrowthMoM = percentDelta(float64(latest.TotalRevenueAllTime), float64(baseline.TotalRevenueAllTime))
	}

	return g
}

// percentDelta (latest - baseline) / baseline * 100
func percentDelta(latest, baseline float64) float64 {
	return (latest - baseline) / baseline * 100
}
