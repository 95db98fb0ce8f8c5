package data

import (
	"context"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"
)

// SpendRepository 市场投放仓储实现
type SpendRepository struct {
	db *DB
}

// NewSpendRepository 创建投放仓储
func NewSpendRepository(db *DB) domain.SpendRepository {
	return &SpendRepository{
		db: db,
	}
}

// SumSpend 汇总 since 之后的投放与转化
func (r *SpendRepository) SumSpend(ctx context.Context, since time.Time) (int64, int64, error) {
	var result struct {
		AdSpend     int64
		Conversions int64
	}

	err := r.db.WithContext(ctx).
		Raw(`SELECT COALESCE(SUM(ad_spend), 0) AS ad_spend,
		            COALESCE(SUM(conversions), 0) AS conversions
		     FROM marketing_spend
		     WHERE date >= ?`, since).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}

	return result.AdSpend, result.Conversions, nil
}
