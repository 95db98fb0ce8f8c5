package domain

import (
	"context"
	"time"
)

// BillingProvider 计费服务商只读接口
type BillingProvider interface {
	// ListActiveSubscriptions 分页拉取全部有效订阅（展开行项目）
	ListActiveSubscriptions(ctx context.Context) ([]SubscriptionRecord, error)

	// ListCanceledSubscriptions 拉取 since 之后取消的订阅，用于流失统计
	ListCanceledSubscriptions(ctx context.Context, since time.Time) ([]SubscriptionRecord, error)

	// TotalSucceededCharges 已结算交易总额，用于历史总收入
	TotalSucceededCharges(ctx context.Context) (int64, error)
}

// UsageRepository 产品使用量仓储接口
type UsageRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountProperties(ctx context.Context) (int64, error)
	CountLessons(ctx context.Context) (int64, error)
	CountLessonsCompleted(ctx context.Context) (int64, error)
	CountPosts(ctx context.Context) (int64, error)

	// CountAIQueries AI 问答事件总数（分析库）
	CountAIQueries(ctx context.Context) (int64, error)

	// CountActiveSince 最近登录时间 >= since 的用户数（分析库）
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)

	// ListUserSignups 完整注册时间线（无分页上限），用于同期群
	ListUserSignups(ctx context.Context) ([]UserSignup, error)
}

// SpendRepository 市场投放仓储接口
type SpendRepository interface {
	// SumSpend 汇总 since 之后的投放与转化
	SumSpend(ctx context.Context, since time.Time) (adSpend int64, conversions int64, err error)
}

// SnapshotRepository 历史快照仓储，只追加
type SnapshotRepository interface {
	// Append 追加一条快照，不覆盖历史
	Append(ctx context.Context, snapshot *MetricsSnapshot) error

	// ListRecent 按生成时间倒序返回最近 limit 条
	ListRecent(ctx context.Context, limit int) ([]*MetricsSnapshot, error)
}

// SnapshotCache 最新快照缓存（只服务读路径，计算路径不读缓存）
type SnapshotCache interface {
	GetLatest(ctx context.Context) (*MetricsSnapshot, error)
	SetLatest(ctx context.Context, snapshot *MetricsSnapshot) error
}

// EventPublisher 快照生成事件发布器
type EventPublisher interface {
	PublishSnapshotGenerated(ctx context.Context, snapshot *MetricsSnapshot) error
	Close() error
}
