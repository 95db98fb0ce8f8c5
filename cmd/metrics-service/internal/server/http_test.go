package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"propfolio/cmd/metrics-service/internal/biz"
	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/cmd/metrics-service/internal/service"
	"propfolio/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 测试替身：健康的上游与空仓储

type stubBillingProvider struct {
	err error
}

func (s *stubBillingProvider) ListActiveSubscriptions(ctx context.Context) ([]domain.SubscriptionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []domain.SubscriptionRecord{
		{
			ID:     "sub_1",
			Status: domain.StatusActive,
			Items:  []domain.LineItem{{PriceID: "price_investor", UnitAmount: 2900}},
		},
	}, nil
}

func (s *stubBillingProvider) ListCanceledSubscriptions(ctx context.Context, since time.Time) ([]domain.SubscriptionRecord, error) {
	return nil, s.err
}

func (s *stubBillingProvider) TotalSucceededCharges(ctx context.Context) (int64, error) {
	return 100000, s.err
}

type stubUsageRepo struct{}

func (stubUsageRepo) CountUsers(ctx context.Context) (int64, error)            { return 42, nil }
func (stubUsageRepo) CountProperties(ctx context.Context) (int64, error)       { return 7, nil }
func (stubUsageRepo) CountLessons(ctx context.Context) (int64, error)          { return 3, nil }
func (stubUsageRepo) CountLessonsCompleted(ctx context.Context) (int64, error) { return 12, nil }
func (stubUsageRepo) CountPosts(ctx context.Context) (int64, error)            { return 90, nil }
func (stubUsageRepo) CountAIQueries(ctx context.Context) (int64, error)        { return 55, nil }
func (stubUsageRepo) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return 20, nil
}
func (stubUsageRepo) ListUserSignups(ctx context.Context) ([]domain.UserSignup, error) {
	return nil, nil
}

type stubSpendRepo struct{}

func (stubSpendRepo) SumSpend(ctx context.Context, since time.Time) (int64, int64, error) {
	return 5000, 2, nil
}

type stubSnapshotRepo struct {
	latest *domain.MetricsSnapshot
}

func (s *stubSnapshotRepo) Append(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	return nil
}

func (s *stubSnapshotRepo) ListRecent(ctx context.Context, limit int) ([]*domain.MetricsSnapshot, error) {
	if s.latest == nil {
		return nil, nil
	}
	return []*domain.MetricsSnapshot{s.latest}, nil
}

type stubSnapshotCache struct{}

func (stubSnapshotCache) GetLatest(ctx context.Context) (*domain.MetricsSnapshot, error) {
	return nil, domain.ErrSnapshotNotFound
}

func (stubSnapshotCache) SetLatest(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	return nil
}

type stubEventPublisher struct{}

func (stubEventPublisher) PublishSnapshotGenerated(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	return nil
}

func (stubEventPublisher) Close() error { return nil }

func newTestServer(provider domain.BillingProvider, repo domain.SnapshotRepository) (*HTTPServer, *auth.JWTManager) {
	logger := zap.NewNop()
	config := &conf.Config{
		Metrics: conf.MetricsConfig{
			GrowthLookbackDays: 30,
			HistoryLimit:       60,
		},
	}
	tiers := domain.NewTierTable("2024-03", map[string]domain.TierName{
		"price_investor": domain.TierInvestor,
	})

	usecase := biz.NewSnapshotUsecase(
		biz.NewBillingCollector(provider, tiers, 30*24*time.Hour, logger),
		biz.NewUsageAggregator(stubUsageRepo{}, 7*24*time.Hour, 30*24*time.Hour, logger),
		biz.NewSpendReader(stubSpendRepo{}, 30*24*time.Hour, logger),
		biz.NewCohortBuilder(stubUsageRepo{}, logger),
		repo,
		stubSnapshotCache{},
		stubEventPublisher{},
		tiers,
		config,
		logger,
	)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	srv := NewHTTPServer(service.NewMetricsService(usecase), jwtManager, auth.NewRBACManager(), logger)
	return srv, jwtManager
}

func doRequest(srv *HTTPServer, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	srv.Engine().ServeHTTP(recorder, req)
	return recorder
}

func TestGenerateSnapshot_RequiresAuthentication(t *testing.T) {
	srv, _ := newTestServer(&stubBillingProvider{}, &stubSnapshotRepo{})

	t.Run("缺少令牌", func(t *testing.T) {
		recorder := doRequest(srv, http.MethodPost, "/api/v1/metrics/snapshot", "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("无效令牌", func(t *testing.T) {
		recorder := doRequest(srv, http.MethodPost, "/api/v1/metrics/snapshot", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("过期令牌", func(t *testing.T) {
		expired := auth.NewJWTManager("test-secret", -time.Hour)
		token, err := expired.GenerateAccessToken("user-1", "user@example.com", []string{"admin"})
		require.NoError(t, err)

		recorder := doRequest(srv, http.MethodPost, "/api/v1/metrics/snapshot", token)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestGenerateSnapshot_RequiresAdminRole(t *testing.T) {
	srv, jwtManager := newTestServer(&stubBillingProvider{}, &stubSnapshotRepo{})

	token, err := jwtManager.GenerateAccessToken("user-1", "member@example.com", []string{"member"})
	require.NoError(t, err)

	recorder := doRequest(srv, http.MethodPost, "/api/v1/metrics/snapshot", token)

	// 已认证但无管理员权限
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestGenerateSnapshot_AdminGetsFullSnapshot(t *testing.T) {
	srv, jwtManager := newTestServer(&stubBillingProvider{}, &stubSnapshotRepo{})

	token, err := jwtManager.GenerateAccessToken("admin-1", "admin@example.com", []string{"admin"})
	require.NoError(t, err)

	recorder := doRequest(srv, http.MethodPost, "/api/v1/metrics/snapshot", token)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	assert.Equal(t, float64(2900), body["mrr"])
	assert.Equal(t, float64(34800), body["arr"])
	assert.Equal(t, "admin-1", body["generatedBy"])
	assert.Contains(t, body, "usage")
	assert.Contains(t, body, "cohorts")
}

func TestGenerateSnapshot_UpstreamFailureReturns500(t *testing.T) {
	srv, jwtManager := newTestServer(&stubBillingProvider{err: domain.ErrUpstreamBilling}, &stubSnapshotRepo{})

	token, err := jwtManager.GenerateAccessToken("admin-1", "admin@example.com", []string{"admin"})
	require.NoError(t, err)

	recorder := doRequest(srv, http.MethodPost, "/api/v1/metrics/snapshot", token)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
}

func TestGetLatestSnapshot(t *testing.T) {
	t.Run("无历史返回 404", func(t *testing.T) {
		srv, jwtManager := newTestServer(&stubBillingProvider{}, &stubSnapshotRepo{})

		token, err := jwtManager.GenerateAccessToken("admin-1", "admin@example.com", []string{"admin"})
		require.NoError(t, err)

		recorder := doRequest(srv, http.MethodGet, "/api/v1/metrics/snapshot/latest", token)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("返回最近一条快照", func(t *testing.T) {
		repo := &stubSnapshotRepo{latest: &domain.MetricsSnapshot{ID: "snap-1", MRR: 12345}}
		srv, jwtManager := newTestServer(&stubBillingProvider{}, repo)

		token, err := jwtManager.GenerateAccessToken("admin-1", "admin@example.com", []string{"admin"})
		require.NoError(t, err)

		recorder := doRequest(srv, http.MethodGet, "/api/v1/metrics/snapshot/latest", token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "snap-1", body["id"])
		assert.Equal(t, float64(12345), body["mrr"])
	})
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	srv, _ := newTestServer(&stubBillingProvider{}, &stubSnapshotRepo{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/metrics/snapshot", nil)
	req.Header.Set("Origin", "https://app.propfolio.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	srv.Engine().ServeHTTP(recorder, req)

	// 预检不过认证，直接 204
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, recorder.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestHealthEndpointsAreUnauthenticated(t *testing.T) {
	srv, _ := newTestServer(&stubBillingProvider{}, &stubSnapshotRepo{})

	for _, path := range []string{"/health", "/ready"} {
		recorder := doRequest(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, recorder.Code, path)
	}
}
