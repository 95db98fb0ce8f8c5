package domain

import "time"

// TierBreakdown 单个档位的订阅数与月收入，派生只读，每次运行重算
type TierBreakdown struct {
	Tier           TierName `json:"tier"`
	ActiveCount    int      `json:"activeCount"`
	MonthlyRevenue int64    `json:"monthlyRevenue"` // 最小货币单位
}

// BillingSummary 计费采集器输出
type BillingSummary struct {
	MRR                 int64
	ARR                 int64
	TotalRevenueAllTime int64
	B2CRevenue          int64
	B2BRevenue          int64
	ByTier              map[TierName]*TierBreakdown
	TotalSubscribers    int
	UnmappedActive      int
	ChurnCount          int
	ChurnRate           float64
	RetentionRate       float64
}

// UsageCounts 产品使用量统计，每个字段独立查询、独立降级
type UsageCounts struct {
	TotalUsers         int64 `json:"totalUsers"`
	WeeklyActiveUsers  int64 `json:"weeklyActiveUsers"`
	MonthlyActiveUsers int64 `json:"monthlyActiveUsers"`
	TotalProperties    int64 `json:"totalProperties"`
	TotalLessons       int64 `json:"totalLessons"`
	LessonsCompleted   int64 `json:"lessonsCompleted"`
	TotalPosts         int64 `json:"totalPosts"`
	AIQueriesCount     int64 `json:"aiQueriesCount"`
}

// Set 按字段名写入计数，与聚合器的查询清单一一对应
func (u *UsageCounts) Set(field string, value int64) {
	switch field {
	case "totalUsers":
		u.TotalUsers = value
	case "weeklyActiveUsers":
		u.WeeklyActiveUsers = value
	case "monthlyActiveUsers":
		u.MonthlyActiveUsers = value
	case "totalProperties":
		u.TotalProperties = value
	case "totalLessons":
		u.TotalLessons = value
	case "lessonsCompleted":
		u.LessonsCompleted = value
	case "totalPosts":
		u.TotalPosts = value
	case "aiQueriesCount":
		u.AIQueriesCount = value
	}
}

// SpendSummary 市场投放窗口汇总
type SpendSummary struct {
	TotalAdSpend     int64 // 最小货币单位，>= 0
	TotalConversions int64 // >= 1（平滑策略，保证 CAC 除法有定义）
	WindowDays       int
}

// UserSignup 用户注册时间线条目，用于同期群构建
type UserSignup struct {
	CreatedAt time.Time
	Tier      string // 当前档位，"free" 表示未转化
}

// CohortBucket 按注册月份分组的同期群
type CohortBucket struct {
	Signups     int `json:"signups"`
	Conversions int `json:"conversions"`
}

// Warning 非致命降级信息，随响应返回，消费方据此区分
// “零活动”与“数据不可用”
type Warning struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// MetricsSnapshot 一次完整的指标快照
// 只追加持久化，生成后不再修改
type MetricsSnapshot struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	GeneratedBy string    `json:"generatedBy,omitempty"`
	TierVersion string    `json:"tierVersion,omitempty"`

	// 收入
	MRR                 int64                          `json:"mrr"`
	ARR                 int64                          `json:"arr"`
	TotalRevenueAllTime int64                          `json:"totalRevenueAllTime"`
	B2CRevenue          int64                          `json:"b2cRevenue"`
	B2BRevenue          int64                          `json:"b2bRevenue"`
	RevenueByTier       map[TierName]*TierBreakdown    `json:"revenueByTier"`
	TotalSubscribers    int                            `json:"totalSubscribers"`
	UnmappedSubscribers int                            `json:"unmappedSubscribers"`

	// 单位经济
	ARPU          float64 `json:"arpu"`
	LTV           float64 `json:"ltv"`
	CAC           float64 `json:"cac"`
	LTVCACRatio   float64 `json:"ltvCacRatio"`
	PaybackMonths float64 `json:"paybackMonths"`

	// 流失与留存
	ChurnRate     float64 `json:"churnRate"`
	ChurnCount    int     `json:"churnCount"`
	RetentionRate float64 `json:"retentionRate"`

	// 增长（环比）
	MRRGrowthMoM     float64 `json:"mrrGrowthMoM"`
	UserGrowthMoM    float64 `json:"userGrowthMoM"`
	RevenueGrowthMoM float64 `json:"revenueGrowthMoM"`

	// 产品
	Usage UsageCounts `json:"usage"`

	// 同期群：月份（YYYY-MM）-> 注册/转化
	Cohorts map[string]CohortBucket `json:"cohorts"`

	// 现金
	MonthlyBurn int64 `json:"monthlyBurn"`
	NetMRR      int64 `json:"netMRR"`

	// 市场投放
	TotalAdSpend     int64 `json:"totalAdSpend"`
	TotalConversions int64 `json:"totalConversions"`

	Warnings []Warning `json:"warnings,omitempty"`
}
