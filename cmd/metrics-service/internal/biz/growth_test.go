package biz

import (
	"testing"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestComputeGrowth(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	lookback := 30 * 24 * time.Hour

	history := []*domain.MetricsSnapshot{
		{
			GeneratedAt:         now.Add(-1 * time.Hour),
			MRR:                 120000,
			TotalRevenueAllTime: 2400000,
			Usage:               domain.UsageCounts{TotalUsers: 110},
		},
		{
			GeneratedAt:         now.Add(-10 * 24 * time.Hour),
			MRR:                 110000,
			TotalRevenueAllTime: 2200000,
			Usage:               domain.UsageCounts{TotalUsers: 105},
		},
		{
			GeneratedAt:         now.Add(-35 * 24 * time.Hour),
			MRR:                 100000,
			TotalRevenueAllTime: 2000000,
			Usage:               domain.UsageCounts{TotalUsers: 100},
		},
	}

	growth := ComputeGrowth(history, now, lookback)

	// 基线为 35 天前的快照（距今最近且超过回看窗口）
	assert.InDelta(t, 20, growth.MRRGrowthMoM, 0.001)
	assert.InDelta(t, 10, growth.UserGrowthMoM, 0.001)
	assert.InDelta(t, 20, growth.RevenueGrowthMoM, 0.001)
}

func TestComputeGrowth_NoHistory(t *testing.T) {
	growth := ComputeGrowth(nil, time.Now(), 30*24*time.Hour)

	assert.Zero(t, growth.MRRGrowthMoM)
	assert.Zero(t, growth.UserGrowthMoM)
	assert.Zero(t, growth.RevenueGrowthMoM)
}

func TestComputeGrowth_NoBaselineOldEnough(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	// 全部快照都在回看窗口之内，没有可用基线
	history := []*domain.MetricsSnapshot{
		{GeneratedAt: now.Add(-1 * 24 * time.Hour), MRR: 120000},
		{GeneratedAt: now.Add(-5 * 24 * time.Hour), MRR: 110000},
	}

	growth := ComputeGrowth(history, now, 30*24*time.Hour)

	assert.Zero(t, growth.MRRGrowthMoM)
}

func TestComputeGrowth_ZeroBaselineMeansNoSignal(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	history := []*domain.MetricsSnapshot{
		{GeneratedAt: now.Add(-1 * time.Hour), MRR: 120000, TotalRevenueAllTime: 500000},
		{GeneratedAt: now.Add(-40 * 24 * time.Hour), MRR: 0, TotalRevenueAllTime: 0},
	}

	growth := ComputeGrowth(history, now, 30*24*time.Hour)

	// 基线为零时不计算增长，避免除零
	assert.Zero(t, growth.MRRGrowthMoM)
	assert.Zero(t, growth.RevenueGrowthMoM)
}

func TestComputeGrowth_NegativeGrowth(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	history := []*domain.MetricsSnapshot{
		{GeneratedAt: now.Add(-1 * time.Hour), MRR: 80000},
		{GeneratedAt: now.Add(-40 * 24 * time.Hour), MRR: 100000},
	}

	growth := ComputeGrowth(history, now, 30*24*time.Hour)

	assert.InDelta(t, -20, growth.MRRGrowthMoM, 0.001)
}
