package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"

	"go.uber.org/zap"
)

// SnapshotDO 快照数据对象
// 历史序列只追加：仓储不提供更新或删除
type SnapshotDO struct {
	ID          string    `gorm:"primaryKey"`
	GeneratedAt time.Time `gorm:"index:idx_snapshots_generated_at,sort:desc"`
	GeneratedBy string
	Payload     string // JSON string
	CreatedAt   time.Time
}

// TableName 指定表名
func (SnapshotDO) TableName() string {
	return "metrics.snapshots"
}

// SnapshotRepository 快照仓储实现
type SnapshotRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSnapshotRepository 创建快照仓储
func NewSnapshotRepository(db *DB, logger *zap.Logger) domain.SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Append 追加一条快照
func (r *SnapshotRepository) Append(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	do, err := r.toDataObject(snapshot)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(do).Error
}

// ListRecent 按生成时间倒序返回最近 limit 条
func (r *SnapshotRepository) ListRecent(ctx context.Context, limit int) ([]*domain.MetricsSnapshot, error) {
	var dos []SnapshotDO

	if err := r.db.WithContext(ctx).
		Order("generated_at DESC").
		Limit(limit).
		Find(&dos).Error; err != nil {
		return nil, err
	}

	return r.toDomainList(dos), nil
}

// toDomainList 批量转换，损坏的历史记录不应拖垮增长计算，跳过并告警
func (r *SnapshotRepository) toDomainList(dos []SnapshotDO) []*domain.MetricsSnapshot {
	snapshots := make([]*domain.MetricsSnapshot, 0, len(dos))
	for i := range dos {
		snapshot, err := r.toDomain(&dos[i])
		if err != nil {
			r.logger.Warn("skipping corrupt snapshot payload",
				zap.String("snapshot_id", dos[i].ID),
				zap.Error(err),
			)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// toDataObject 转换为数据对象
func (r *SnapshotRepository) toDataObject(snapshot *domain.MetricsSnapshot) (*SnapshotDO, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot payload: %w", err)
	}

	return &SnapshotDO{
		ID:          snapshot.ID,
		GeneratedAt: snapshot.GeneratedAt,
		GeneratedBy: snapshot.GeneratedBy,
		Payload:     string(payload),
		CreatedAt:   time.Now(),
	}, nil
}

// toDomain 转换为领域对象
func (r *SnapshotRepository) toDomain(do *SnapshotDO) (*domain.MetricsSnapshot, error) {
	var snapshot domain.MetricsSnapshot
	if err := json.Unmarshal([]byte(do.Payload), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot payload: %w", err)
	}
	return &snapshot, nil
}
