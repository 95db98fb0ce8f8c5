package biz

import (
	"context"

	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/pkg/monitoring"
	"propfolio/pkg/resilience"

	"go.uber.org/zap"
)

// freeTier 未转化档位
const freeTier = "free"

// CohortBuilder 同期群构建器
// 读取完整注册时间线（无分页上限）；读失败降级为空同期群并附加告警
type CohortBuilder struct {
	repo   domain.UsageRepository
	logger *zap.Logger
}

// NewCohortBuilder 创建构建器
func NewCohortBuilder(repo domain.UsageRepository, logger *zap.Logger) *CohortBuilder {
	return &CohortBuilder{
		repo:   repo,
		logger: logger,
	}
}

// Build 构建全量同期群
func (b *CohortBuilder) Build(ctx context.Context) (map[string]domain.CohortBucket, []domain.Warning) {
	var signups []domain.UserSignup
	err := resilience.Retry(ctx, datastoreRetryPolicy(), func() error {
		callCtx, cancel := context.WithTimeout(ctx, datastoreTimeout)
		defer cancel()

		var err error
		signups, err = b.repo.ListUserSignups(callCtx)
		return err
	})
	if err != nil {
		b.logger.Warn("user signup timeline read failed, degrading to empty cohorts",
			zap.Error(err),
		)
		monitoring.DegradedFieldsTotal.WithLabelValues("cohorts").Inc()
		return map[string]domain.CohortBucket{}, []domain.Warning{{
			Field:  "cohorts",
			Reason: "query failed: " + err.Error(),
		}}
	}

	return BuildCohorts(signups), nil
}

// BuildCohorts 按注册月份（YYYY-MM）分组构建同期群
// 转化口径为用户当前档位 != free，即终身转化而非注册时点转化；
// 后注册的同期群会被后期升级抬高
func BuildCohorts(signups []domain.UserSignup) map[string]domain.CohortBucket {
	cohorts := make(map[string]domain.CohortBucket)

	for _, signup := range signups {
		month := signup.CreatedAt.UTC().Format("2006-01")

		bucket := cohorts[month]
		bucket.Signups++
		if signup.Tier != "" && signup.Tier != freeTier {
			bucket.Conversions++
		}
		cohorts[month] = bucket
	}

	return cohorts
}
