package biz

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"propfolio/cmd/metrics-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeUsageRepo 使用量仓储测试替身
// counts/errs 按查询名索引；CountActiveSince 统一用 "active"；
// transient 记录每个查询在成功前还要失败几次
type fakeUsageRepo struct {
	mu     sync.Mutex
	counts map[string]int64
	errs   map[string]error

	transient map[string]int

	signups    []domain.UserSignup
	signupsErr error
}

func (f *fakeUsageRepo) get(name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transient[name] > 0 {
		f.transient[name]--
		return 0, errors.New("transient failure")
	}
	if err := f.errs[name]; err != nil {
		return 0, err
	}
	return f.counts[name], nil
}

func (f *fakeUsageRepo) CountUsers(ctx context.Context) (int64, error)    { return f.get("users") }
func (f *fakeUsageRepo) CountProperties(ctx context.Context) (int64, error) {
	return f.get("properties")
}
func (f *fakeUsageRepo) CountLessons(ctx context.Context) (int64, error) { return f.get("lessons") }
func (f *fakeUsageRepo) CountLessonsCompleted(ctx context.Context) (int64, error) {
	return f.get("completed")
}
func (f *fakeUsageRepo) CountPosts(ctx context.Context) (int64, error)     { return f.get("posts") }
func (f *fakeUsageRepo) CountAIQueries(ctx context.Context) (int64, error) { return f.get("ai") }
func (f *fakeUsageRepo) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return f.get("active")
}
func (f *fakeUsageRepo) ListUserSignups(ctx context.Context) ([]domain.UserSignup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transient["signups"] > 0 {
		f.transient["signups"]--
		return nil, errors.New("transient failure")
	}
	return f.signups, f.signupsErr
}

func TestUsageAggregator_AllQueriesSucceed(t *testing.T) {
	repo := &fakeUsageRepo{
		counts: map[string]int64{
			"users":      1500,
			"properties": 320,
			"lessons":    48,
			"completed":  910,
			"posts":      2700,
			"ai":         8800,
			"active":     430,
		},
	}

	aggregator := NewUsageAggregator(repo, 7*24*time.Hour, 30*24*time.Hour, zap.NewNop())

	counts, warnings := aggregator.Aggregate(context.Background(), time.Now().UTC())

	assert.Empty(t, warnings)
	assert.Equal(t, int64(1500), counts.TotalUsers)
	assert.Equal(t, int64(320), counts.TotalProperties)
	assert.Equal(t, int64(48), counts.TotalLessons)
	assert.Equal(t, int64(910), counts.LessonsCompleted)
	assert.Equal(t, int64(2700), counts.TotalPosts)
	assert.Equal(t, int64(8800), counts.AIQueriesCount)
	assert.Equal(t, int64(430), counts.WeeklyActiveUsers)
	assert.Equal(t, int64(430), counts.MonthlyActiveUsers)
}

func TestUsageAggregator_SingleFailureDegradesOnlyThatField(t *testing.T) {
	repo := &fakeUsageRepo{
		counts: map[string]int64{
			"users":      1500,
			"properties": 320,
			"lessons":    48,
			"completed":  910,
			"ai":         8800,
			"active":     430,
		},
		errs: map[string]error{
			"posts": errors.New("relation does not exist"),
		},
	}

	aggregator := NewUsageAggregator(repo, 7*24*time.Hour, 30*24*time.Hour, zap.NewNop())

	counts, warnings := aggregator.Aggregate(context.Background(), time.Now().UTC())

	// 失败字段归零，其余字段不受影响
	assert.Zero(t, counts.TotalPosts)
	assert.Equal(t, int64(1500), counts.TotalUsers)
	assert.Equal(t, int64(8800), counts.AIQueriesCount)

	assert.Len(t, warnings, 1)
	assert.Equal(t, "totalPosts", warnings[0].Field)
	assert.Contains(t, warnings[0].Reason, "relation does not exist")
}

func TestUsageAggregator_TransientFailureRetried(t *testing.T) {
	repo := &fakeUsageRepo{
		counts: map[string]int64{
			"users":      1500,
			"properties": 320,
			"lessons":    48,
			"completed":  910,
			"posts":      2700,
			"ai":         8800,
			"active":     430,
		},
		transient: map[string]int{"posts": 1},
	}

	aggregator := NewUsageAggregator(repo, 7*24*time.Hour, 30*24*time.Hour, zap.NewNop())

	counts, warnings := aggregator.Aggregate(context.Background(), time.Now().UTC())

	// 首次失败在重试后恢复，不产生降级
	assert.Empty(t, warnings)
	assert.Equal(t, int64(2700), counts.TotalPosts)
}

func TestUsageAggregator_MultipleFailuresWarningsSorted(t *testing.T) {
	repo := &fakeUsageRepo{
		counts: map[string]int64{"users": 100},
		errs: map[string]error{
			"posts":   errors.New("unavailable"),
			"ai":      errors.New("unavailable"),
			"lessons": errors.New("unavailable"),
		},
	}

	aggregator := NewUsageAggregator(repo, 7*24*time.Hour, 30*24*time.Hour, zap.NewNop())

	_, warnings := aggregator.Aggregate(context.Background(), time.Now().UTC())

	assert.Len(t, warnings, 3)

	// 告警按字段名排序，重复运行输出可比
	fields := make([]string, len(warnings))
	for i, w := range warnings {
		fields[i] = w.Field
	}
	assert.True(t, sort.StringsAreSorted(fields))
	assert.Equal(t, []string{"aiQueriesCount", "totalLessons", "totalPosts"}, fields)
}
