package data

import (
	"context"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"
)

// UsageRepository 产品使用量仓储实现
// 关系型计数走主库，事件型计数（活跃、AI 问答）走 ClickHouse，
// 与平台埋点管道的写入侧保持一致
type UsageRepository struct {
	db *DB
	ch *ClickHouseClient
}

// NewUsageRepository 创建使用量仓储
func NewUsageRepository(db *DB, ch *ClickHouseClient) domain.UsageRepository {
	return &UsageRepository{
		db: db,
		ch: ch,
	}
}

// CountUsers 用户总数
func (r *UsageRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.countTable(ctx, "users")
}

// CountProperties 房源总数
func (r *UsageRepository) CountProperties(ctx context.Context) (int64, error) {
	return r.countTable(ctx, "properties")
}

// CountLessons 课程总数
func (r *UsageRepository) CountLessons(ctx context.Context) (int64, error) {
	return r.countTable(ctx, "lessons")
}

// CountLessonsCompleted 已完成课程数
func (r *UsageRepository) CountLessonsCompleted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM lesson_progress WHERE completed_at IS NOT NULL").
		Scan(&count).Error
	return count, err
}

// CountPosts 社区帖子总数
func (r *UsageRepository) CountPosts(ctx context.Context) (int64, error) {
	return r.countTable(ctx, "posts")
}

// CountAIQueries AI 问答事件总数
func (r *UsageRepository) CountAIQueries(ctx context.Context) (int64, error) {
	var count uint64
	err := r.ch.QueryRow(ctx,
		"SELECT COUNT(*) FROM ai_query_events",
	).Scan(&count)
	return int64(count), err
}

// CountActiveSince 最近登录时间 >= since 的用户数
func (r *UsageRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count uint64
	err := r.ch.QueryRow(ctx,
		"SELECT COUNT(DISTINCT user_id) FROM signin_events WHERE occurred_at >= ?",
		since,
	).Scan(&count)
	return int64(count), err
}

// ListUserSignups 完整注册时间线，按注册时间升序
func (r *UsageRepository) ListUserSignups(ctx context.Context) ([]domain.UserSignup, error) {
	rows, err := r.db.WithContext(ctx).
		Raw("SELECT created_at, COALESCE(membership_tier, 'free') FROM users ORDER BY created_at ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signups []domain.UserSignup
	for rows.Next() {
		var s domain.UserSignup
		if err := rows.Scan(&s.CreatedAt, &s.Tier); err != nil {
			return nil, err
		}
		signups = append(signups, s)
	}

	return signups, rows.Err()
}

// countTable 单表计数
func (r *UsageRepository) countTable(ctx context.Context, table string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM " + table).
		Scan(&count).Error
	return count, err
}
