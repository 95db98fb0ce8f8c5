package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierTable_Classify(t *testing.T) {
	table := NewTierTable("2024-03", map[string]TierName{
		"price_investor":    TierInvestor,
		"price_agent_basic": TierAgentBasic,
	})

	assert.Equal(t, "2024-03", table.Version())

	tier, ok := table.Classify("price_investor")
	assert.True(t, ok)
	assert.Equal(t, TierInvestor, tier)

	// 未知价格归入 unmapped，调用方据此区分统计口径
	tier, ok = table.Classify("price_legacy_2019")
	assert.False(t, ok)
	assert.Equal(t, TierUnmapped, tier)
}

func TestTierName_IsB2B(t *testing.T) {
	assert.True(t, TierAgentBasic.IsB2B())
	assert.True(t, TierAgentPreferred.IsB2B())
	assert.True(t, TierAgentPremium.IsB2B())
	assert.False(t, TierInvestor.IsB2B())
	assert.False(t, TierElite.IsB2B())
	assert.False(t, TierUnmapped.IsB2B())
}

func TestUsageCounts_Set(t *testing.T) {
	var counts UsageCounts

	counts.Set("totalUsers", 100)
	counts.Set("aiQueriesCount", 42)
	counts.Set("unknownField", 7) // 未知字段忽略

	assert.Equal(t, int64(100), counts.TotalUsers)
	assert.Equal(t, int64(42), counts.AIQueriesCount)
	assert.Equal(t, UsageCounts{TotalUsers: 100, AIQueriesCount: 42}, counts)
}
