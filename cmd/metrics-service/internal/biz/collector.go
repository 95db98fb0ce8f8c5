package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"

	"go.uber.org/zap"
)

// BillingCollector 计费快照采集器
// 三个列表调用并行执行；任一失败对整个请求致命，
// 因为每个下游指标都依赖计费数据
type BillingCollector struct {
	provider    domain.BillingProvider
	tiers       *domain.TierTable
	churnWindow time.Duration
	logger      *zap.Logger
}

// NewBillingCollector 创建采集器
func NewBillingCollector(provider domain.BillingProvider, tiers *domain.TierTable, churnWindow time.Duration, logger *zap.Logger) *BillingCollector {
	return &BillingCollector{
		provider:    provider,
		tiers:       tiers,
		churnWindow: churnWindow,
		logger:      logger,
	}
}

// Collect 拉取并归并计费服务商状态
func (c *BillingCollector) Collect(ctx context.Context, now time.Time) (*domain.BillingSummary, error) {
	var (
		wg           sync.WaitGroup
		active       []domain.SubscriptionRecord
		canceled     []domain.SubscriptionRecord
		totalRevenue int64
		activeErr    error
		canceledErr  error
		chargesErr   error
	)

	since := now.Add(-c.churnWindow)

	wg.Add(3)
	go func() {
		defer wg.Done()
		active, activeErr = c.provider.ListActiveSubscriptions(ctx)
	}()
	go func() {
		defer wg.Done()
		canceled, canceledErr = c.provider.ListCanceledSubscriptions(ctx, since)
	}()
	go func() {
		defer wg.Done()
		totalRevenue, chargesErr = c.provider.TotalSucceededCharges(ctx)
	}()
	wg.Wait()

	for _, err := range []error{activeErr, canceledErr, chargesErr} {
		if err != nil {
			return nil, err
		}
	}

	summary := c.classify(active)
	summary.TotalRevenueAllTime = totalRevenue

	// 流失：窗口内取消数 / 当前订阅数
	summary.ChurnCount = len(canceled)
	if summary.TotalSubscribers > 0 {
		summary.ChurnRate = float64(summary.ChurnCount) / float64(summary.TotalSubscribers) * 100
	}
	// 窗口内取消数可能超过当前订阅数（如批量退订后），按 100% 封顶
	if summary.ChurnRate > 100 {
		summary.ChurnRate = 100
	}
	summary.RetentionRate = 100 - summary.ChurnRate

	if err := validateSummary(summary); err != nil {
		return nil, err
	}

	c.logger.Info("billing snapshot collected",
		zap.Int("total_subscribers", summary.TotalSubscribers),
		zap.Int("unmapped_active", summary.UnmappedActive),
		zap.Int64("mrr", summary.MRR),
		zap.Int("churn_count", summary.ChurnCount),
	)

	return summary, nil
}

// classify 档位归并
// 订阅计数以订阅为单位：多行项目的订阅按收入最高的已映射行项目
// 归入唯一档位，保证各档位订阅数与未映射数之和等于订阅总数。
// 收入按行项目逐条累计；未映射金额计入 MRR，但不进入
// revenueByTier 明细
func (c *BillingCollector) classify(active []domain.SubscriptionRecord) *domain.BillingSummary {
	summary := &domain.BillingSummary{
		ByTier: make(map[domain.TierName]*domain.TierBreakdown),
	}

	mappedCount := 0
	for _, sub := range active {
		if sub.Status != domain.StatusActive {
			continue
		}
		summary.TotalSubscribers++

		var primaryTier domain.TierName
		primaryAmount := int64(-1)

		for _, item := range sub.Items {
			summary.MRR += item.UnitAmount

			tier, ok := c.tiers.Classify(item.PriceID)
			if !ok {
				c.logger.Debug("unmapped price identifier",
					zap.String("subscription_id", sub.ID),
					zap.String("price_id", item.PriceID),
				)
				continue
			}

			breakdown, exists := summary.ByTier[tier]
			if !exists {
				breakdown = &domain.TierBreakdown{Tier: tier}
				summary.ByTier[tier] = breakdown
			}
			breakdown.MonthlyRevenue += item.UnitAmount

			if tier.IsB2B() {
				summary.B2BRevenue += item.UnitAmount
			} else {
				summary.B2CRevenue += item.UnitAmount
			}

			if item.UnitAmount > primaryAmount {
				primaryAmount = item.UnitAmount
				primaryTier = tier
			}
		}

		if primaryAmount >= 0 {
			summary.ByTier[primaryTier].ActiveCount++
			mappedCount++
		}
	}

	summary.ARR = summary.MRR * 12
	summary.UnmappedActive = summary.TotalSubscribers - mappedCount

	return summary
}

// validateSummary 聚合不变量校验，违反即为内部计算错误
func validateSummary(s *domain.BillingSummary) error {
	if s.MRR < 0 {
		return fmt.Errorf("%w: negative mrr %d", domain.ErrComputation, s.MRR)
	}
	if s.TotalSubscribers < 0 {
		return fmt.Errorf("%w: negative subscriber count %d", domain.ErrComputation, s.TotalSubscribers)
	}
	if s.ChurnRate < 0 || s.ChurnRate > 100 {
		return fmt.Errorf("%w: churn rate %.2f out of range", domain.ErrComputation, s.ChurnRate)
	}
	var tierRevenue int64
	tierActive := 0
	for _, breakdown := range s.ByTier {
		if breakdown.ActiveCount < 0 || breakdown.MonthlyRevenue < 0 {
			return fmt.Errorf("%w: negative tier aggregate for %s", domain.ErrComputation, breakdown.Tier)
		}
		tierRevenue += breakdown.MonthlyRevenue
		tierActive += breakdown.ActiveCount
	}
	if tierRevenue > s.MRR {
		return fmt.Errorf("%w: tier revenue %d exceeds mrr %d", domain.ErrComputation, tierRevenue, s.MRR)
	}
	if tierActive+s.UnmappedActive != s.TotalSubscribers {
		return fmt.Errorf("%w: tier counts %d + unmapped %d != subscribers %d",
			domain.ErrComputation, tierActive, s.UnmappedActive, s.TotalSubscribers)
	}
	return nil
}
