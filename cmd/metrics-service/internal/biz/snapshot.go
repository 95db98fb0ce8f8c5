package biz

import (
	"context"
	"sort"
	"sync"
	"time"

	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/pkg/monitoring"
	"propfolio/pkg/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SnapshotUsecase 指标快照引擎
//
// 执行模型：计费 ∥ 使用量 ∥ 投放 ∥ 注册时间线 四路并行扇出，
// 同步屏障后运行依赖采集结果的计算器（单位经济、同期群、增长），
// 最终装配为一个完整快照。扇出阶段没有共享可变状态：
// 每个分支只写自己的结果槽，屏障之后才读
type SnapshotUsecase struct {
	billing *BillingCollector
	usage   *UsageAggregator
	spend   *SpendReader
	cohorts *CohortBuilder

	snapshots domain.SnapshotRepository
	cache     domain.SnapshotCache
	events    domain.EventPublisher

	tierVersion    string
	growthLookback time.Duration
	historyLimit   int
	monthlyBurn    int64
	persistTimeout time.Duration

	logger *zap.Logger
}

// NewSnapshotUsecase 创建快照引擎
func NewSnapshotUsecase(
	billing *BillingCollector,
	usage *UsageAggregator,
	spend *SpendReader,
	cohorts *CohortBuilder,
	snapshots domain.SnapshotRepository,
	cache domain.SnapshotCache,
	events domain.EventPublisher,
	tiers *domain.TierTable,
	config *conf.Config,
	logger *zap.Logger,
) *SnapshotUsecase {
	return &SnapshotUsecase{
		billing:        billing,
		usage:          usage,
		spend:          spend,
		cohorts:        cohorts,
		snapshots:      snapshots,
		cache:          cache,
		events:         events,
		tierVersion:    tiers.Version(),
		growthLookback: time.Duration(config.Metrics.GrowthLookbackDays) * 24 * time.Hour,
		historyLimit:   config.Metrics.HistoryLimit,
		monthlyBurn:    config.Metrics.MonthlyBurn,
		persistTimeout: 10 * time.Second,
		logger:         logger,
	}
}

// Generate 计算一份新的指标快照
// 致命错误在任何持久化之前返回；历史序列只包含完整一致的快照
func (uc *SnapshotUsecase) Generate(ctx context.Context, generatedBy string) (*domain.MetricsSnapshot, error) {
	start := time.Now()
	now := start.UTC()

	tracer := observability.Tracer("metrics-service")
	ctx, span := observability.StartSpan(ctx, tracer, "snapshot.generate",
		attribute.String("generated_by", generatedBy),
	)
	defer span.End()

	// 扇出阶段
	var (
		wg sync.WaitGroup

		billingSummary *domain.BillingSummary
		billingErr     error

		usageCounts   domain.UsageCounts
		usageWarnings []domain.Warning

		spendSummary  domain.SpendSummary
		spendWarnings []domain.Warning

		cohortBuckets  map[string]domain.CohortBucket
		cohortWarnings []domain.Warning
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		billingSummary, billingErr = uc.billing.Collect(ctx, now)
	}()
	go func() {
		defer wg.Done()
		usageCounts, usageWarnings = uc.usage.Aggregate(ctx, now)
	}()
	go func() {
		defer wg.Done()
		spendSummary, spendWarnings = uc.spend.Read(ctx, now)
	}()
	go func() {
		defer wg.Done()
		cohortBuckets, cohortWarnings = uc.cohorts.Build(ctx)
	}()
	wg.Wait()

	// 同步屏障：此后所有扇出结果已定（成功或降级）

	if billingErr != nil {
		observability.RecordError(span, billingErr)
		monitoring.SnapshotTotal.WithLabelValues("error").Inc()
		return nil, billingErr
	}
	if err := ctx.Err(); err != nil {
		// 调用方断开或全局截止时间到期：不持久化任何部分结果
		observability.RecordError(span, err)
		monitoring.SnapshotTotal.WithLabelValues("canceled").Inc()
		return nil, err
	}

	warnings := make([]domain.Warning, 0, len(usageWarnings)+len(spendWarnings)+len(cohortWarnings)+1)
	warnings = append(warnings, usageWarnings...)
	warnings = append(warnings, spendWarnings...)
	warnings = append(warnings, cohortWarnings...)

	// 依赖阶段
	economics := ComputeUnitEconomics(EconomicsInput{
		MRR:              billingSummary.MRR,
		TotalSubscribers: billingSummary.TotalSubscribers,
		ChurnRate:        billingSummary.ChurnRate,
		TotalAdSpend:     spendSummary.TotalAdSpend,
		TotalConversions: spendSummary.TotalConversions,
	})

	var growth Growth
	history, err := uc.snapshots.ListRecent(ctx, uc.historyLimit)
	if err != nil {
		uc.logger.Warn("snapshot history read failed, growth defaults to zero",
			zap.Error(err),
		)
		monitoring.DegradedFieldsTotal.WithLabelValues("growth").Inc()
		warnings = append(warnings, domain.Warning{
			Field:  "growth",
			Reason: "history read failed: " + err.Error(),
		})
	} else {
		growth = ComputeGrowth(history, now, uc.growthLookback)
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Field < warnings[j].Field
	})

	snapshot := uc.assemble(now, generatedBy, billingSummary, usageCounts, spendSummary, cohortBuckets, economics, growth, warnings)

	// 追加持久化相对响应是 fire-and-forget：
	// 调用方不等待持久化结果，失败只记日志
	go uc.persist(snapshot)

	monitoring.SnapshotTotal.WithLabelValues("ok").Inc()
	monitoring.SnapshotDuration.Observe(time.Since(start).Seconds())

	uc.logger.Info("metrics snapshot generated",
		zap.String("snapshot_id", snapshot.ID),
		zap.Int64("mrr", snapshot.MRR),
		zap.Int("total_subscribers", snapshot.TotalSubscribers),
		zap.Int("warnings", len(snapshot.Warnings)),
		zap.Duration("took", time.Since(start)),
	)

	return snapshot, nil
}

// Latest 返回最近一次持久化的快照，缓存优先
func (uc *SnapshotUsecase) Latest(ctx context.Context) (*domain.MetricsSnapshot, error) {
	if snapshot, err := uc.cache.GetLatest(ctx); err == nil {
		return snapshot, nil
	}

	history, err := uc.snapshots.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, domain.ErrSnapshotNotFound
	}

	return history[0], nil
}

// assemble 装配最终快照
func (uc *SnapshotUsecase) assemble(
	now time.Time,
	generatedBy string,
	billing *domain.BillingSummary,
	usage domain.UsageCounts,
	spend domain.SpendSummary,
	cohorts map[string]domain.CohortBucket,
	economics UnitEconomics,
	growth Growth,
	warnings []domain.Warning,
) *domain.MetricsSnapshot {
	// 净 MRR 按窗口内流失订阅的平均收入估算
	churnedRevenue := int64(float64(billing.ChurnCount) * economics.ARPU)

	return &domain.MetricsSnapshot{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		GeneratedBy: generatedBy,
		TierVersion: uc.tierVersion,

		MRR:                 billing.MRR,
		ARR:                 economics.ARR,
		TotalRevenueAllTime: billing.TotalRevenueAllTime,
		B2CRevenue:          billing.B2CRevenue,
		B2BRevenue:          billing.B2BRevenue,
		RevenueByTier:       billing.ByTier,
		TotalSubscribers:    billing.TotalSubscribers,
		UnmappedSubscribers: billing.UnmappedActive,

		ARPU:          economics.ARPU,
		LTV:           economics.LTV,
		CAC:           economics.CAC,
		LTVCACRatio:   economics.LTVCACRatio,
		PaybackMonths: economics.PaybackMonths,

		ChurnRate:     billing.ChurnRate,
		ChurnCount:    billing.ChurnCount,
		RetentionRate: billing.RetentionRate,

		MRRGrowthMoM:     growth.MRRGrowthMoM,
		UserGrowthMoM:    growth.UserGrowthMoM,
		RevenueGrowthMoM: growth.RevenueGrowthMoM,

		Usage:   usage,
		Cohorts: cohorts,

		MonthlyBurn: uc.monthlyBurn,
		NetMRR:      billing.MRR - churnedRevenue,

		TotalAdSpend:     spend.TotalAdSpend,
		TotalConversions: spend.TotalConversions,

		Warnings: warnings,
	}
}

// persist 异步追加历史、刷新缓存、发布事件
func (uc *SnapshotUsecase) persist(snapshot *domain.MetricsSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), uc.persistTimeout)
	defer cancel()

	if err := uc.snapshots.Append(ctx, snapshot); err != nil {
		monitoring.SnapshotPersistFailures.Inc()
		uc.logger.Error("failed to append snapshot history",
			zap.String("snapshot_id", snapshot.ID),
			zap.Error(err),
		)
		return
	}

	if uc.cache != nil {
		if err := uc.cache.SetLatest(ctx, snapshot); err != nil {
			uc.logger.Warn("failed to refresh latest snapshot cache",
				zap.String("snapshot_id", snapshot.ID),
				zap.Error(err),
			)
		}
	}

	if uc.events != nil {
		if err := uc.events.PublishSnapshotGenerated(ctx, snapshot); err != nil {
			uc.logger.Warn("failed to publish snapshot event",
				zap.String("snapshot_id", snapshot.ID),
				zap.Error(err),
			)
		}
	}
}
