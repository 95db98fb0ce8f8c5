package domain

import "time"

// SubscriptionStatus 订阅状态（由计费服务商返回，本地不做变更）
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusOther    SubscriptionStatus = "other"
)

// LineItem 订阅行项目
type LineItem struct {
	PriceID    string
	UnitAmount int64 // 最小货币单位（分）
}

// SubscriptionRecord 计费服务商订阅快照，拉取后不可变
type SubscriptionRecord struct {
	ID         string
	Items      []LineItem
	Status     SubscriptionStatus
	CreatedAt  time.Time
	CanceledAt *time.Time
}

// TierName 会员档位
type TierName string

const (
	TierInvestor       TierName = "investor"
	TierElite          TierName = "elite"
	TierAgentBasic     TierName = "agent-basic"
	TierAgentPreferred TierName = "agent-preferred"
	TierAgentPremium   TierName = "agent-premium"
	TierUnmapped       TierName = "unmapped"
)

// IsB2B 经纪人档位按 B2B 收入统计
func (t TierName) IsB2B() bool {
	switch t {
	case TierAgentBasic, TierAgentPreferred, TierAgentPremium:
		return true
	default:
		return false
	}
}

// KnownTiers 已识别档位列表（不含 unmapped）
func KnownTiers() []TierName {
	return []TierName{
		TierInvestor,
		TierElite,
		TierAgentBasic,
		TierAgentPreferred,
		TierAgentPremium,
	}
}

// TierTable 价格标识到档位的版本化映射表，构造时注入
// 新增档位只需变更配置数据，不需要改代码
type TierTable struct {
	version string
	mapping map[string]TierName
}

// NewTierTable 创建映射表
func NewTierTable(version string, mapping map[string]TierName) *TierTable {
	m := make(map[string]TierName, len(mapping))
	for priceID, tier := range mapping {
		m[priceID] = tier
	}
	return &TierTable{
		version: version,
		mapping: m,
	}
}

// Version 返回映射表版本
func (t *TierTable) Version() string {
	return t.version
}

// Classify 按价格标识归档；未知价格返回 (TierUnmapped, false)
func (t *TierTable) Classify(priceID string) (TierName, bool) {
	tier, ok := t.mapping[priceID]
	if !ok {
		return TierUnmapped, false
	}
	return tier, true
}
