package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/domain"
	"propfolio/pkg/monitoring"
	"propfolio/pkg/resilience"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// errUnauthorized 服务商拒绝凭证，不可重试
var errUnauthorized = errors.New("billing credentials rejected")

// Client 计费服务商 REST 客户端
// 列表端点按服务商游标分页（starting_after / has_more），
// 每次调用独立超时，重试耗尽或凭证被拒时返回 ErrUpstreamBilling
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	pageSize   int
	maxPages   int
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker
	retry      resilience.RetryPolicy
	logger     *zap.Logger
}

// NewClient 创建计费客户端
func NewClient(config *conf.Config, logger *zap.Logger) domain.BillingProvider {
	c := config.Billing

	settings := gobreaker.Settings{
		Name:        "billing-provider",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 失败率 >= 60% 且请求数 >= 5 时触发熔断
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	}

	retry := resilience.DefaultRetryPolicy()
	retry.MaxRetries = c.MaxRetries
	retry.InitialDelay = c.RetryDelay
	retry.RetryableErrors = func(err error) bool {
		return !errors.Is(err, errUnauthorized) &&
			!errors.Is(err, gobreaker.ErrOpenState) &&
			!errors.Is(err, gobreaker.ErrTooManyRequests)
	}

	return &Client{
		httpClient: &http.Client{Timeout: c.Timeout},
		baseURL:    c.BaseURL,
		secretKey:  c.SecretKey,
		pageSize:   c.PageSize,
		maxPages:   c.MaxPages,
		timeout:    c.Timeout,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		retry:      retry,
		logger:     logger,
	}
}

// 服务商响应结构

type subscriptionPage struct {
	Data    []subscriptionJSON `json:"data"`
	HasMore bool               `json:"has_more"`
}

type subscriptionJSON struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Created    int64  `json:"created"`
	CanceledAt *int64 `json:"canceled_at"`
	Items      struct {
		Data []lineItemJSON `json:"data"`
	} `json:"items"`
}

type lineItemJSON struct {
	Price struct {
		ID         string `json:"id"`
		UnitAmount *int64 `json:"unit_amount"`
	} `json:"price"`
	Quantity int64 `json:"quantity"`
}

type chargePage struct {
	Data    []chargeJSON `json:"data"`
	HasMore bool         `json:"has_more"`
}

type chargeJSON struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
}

// ListActiveSubscriptions 分页拉取全部有效订阅
func (c *Client) ListActiveSubscriptions(ctx context.Context) ([]domain.SubscriptionRecord, error) {
	return c.listSubscriptions(ctx, "active")
}

// ListCanceledSubscriptions 拉取 since 之后取消的订阅
func (c *Client) ListCanceledSubscriptions(ctx context.Context, since time.Time) ([]domain.SubscriptionRecord, error) {
	subs, err := c.listSubscriptions(ctx, "canceled")
	if err != nil {
		return nil, err
	}

	// 服务商按状态过滤，取消时间窗口在本地收敛
	filtered := subs[:0]
	for _, sub := range subs {
		if sub.CanceledAt != nil && !sub.CanceledAt.Before(since) {
			filtered = append(filtered, sub)
		}
	}
	return filtered, nil
}

// TotalSucceededCharges 已结算交易总额
func (c *Client) TotalSucceededCharges(ctx context.Context) (int64, error) {
	var total int64
	startingAfter := ""

	for page := 0; page < c.maxPages; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageSize))
		if startingAfter != "" {
			query.Set("starting_after", startingAfter)
		}

		body, err := c.get(ctx, "/v1/charges", query)
		if err != nil {
			monitoring.UpstreamCallsTotal.WithLabelValues("billing", "list_charges", "error").Inc()
			return 0, fmt.Errorf("%w: list charges: %v", domain.ErrUpstreamBilling, err)
		}
		monitoring.UpstreamCallsTotal.WithLabelValues("billing", "list_charges", "ok").Inc()

		var pageData chargePage
		if err := json.Unmarshal(body, &pageData); err != nil {
			return 0, fmt.Errorf("%w: decode charges page: %v", domain.ErrUpstreamBilling, err)
		}

		for _, charge := range pageData.Data {
			if charge.Status == "succeeded" && charge.Paid {
				total += charge.Amount
			}
		}

		if !pageData.HasMore || len(pageData.Data) == 0 {
			break
		}
		startingAfter = pageData.Data[len(pageData.Data)-1].ID
	}

	return total, nil
}

// listSubscriptions 按状态分页拉取订阅，展开行项目
func (c *Client) listSubscriptions(ctx context.Context, status string) ([]domain.SubscriptionRecord, error) {
	var records []domain.SubscriptionRecord
	startingAfter := ""

	for page := 0; page < c.maxPages; page++ {
		query := url.Values{}
		query.Set("status", status)
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Add("expand[]", "data.items")
		if startingAfter != "" {
			query.Set("starting_after", startingAfter)
		}

		body, err := c.get(ctx, "/v1/subscriptions", query)
		if err != nil {
			monitoring.UpstreamCallsTotal.WithLabelValues("billing", "list_subscriptions", "error").Inc()
			return nil, fmt.Errorf("%w: list %s subscriptions: %v", domain.ErrUpstreamBilling, status, err)
		}
		monitoring.UpstreamCallsTotal.WithLabelValues("billing", "list_subscriptions", "ok").Inc()

		var pageData subscriptionPage
		if err := json.Unmarshal(body, &pageData); err != nil {
			return nil, fmt.Errorf("%w: decode subscriptions page: %v", domain.ErrUpstreamBilling, err)
		}

		for _, sub := range pageData.Data {
			records = append(records, c.normalize(sub))
		}

		if !pageData.HasMore || len(pageData.Data) == 0 {
			break
		}
		startingAfter = pageData.Data[len(pageData.Data)-1].ID
	}

	return records, nil
}

// normalize 规范化为内部订阅记录
// 单个异常行项目记录日志后跳过，不影响同订阅的其它行项目
func (c *Client) normalize(sub subscriptionJSON) domain.SubscriptionRecord {
	record := domain.SubscriptionRecord{
		ID:        sub.ID,
		Status:    normalizeStatus(sub.Status),
		CreatedAt: time.Unix(sub.Created, 0).UTC(),
	}

	if sub.CanceledAt != nil {
		canceledAt := time.Unix(*sub.CanceledAt, 0).UTC()
		record.CanceledAt = &canceledAt
	}

	for _, item := range sub.Items.Data {
		if item.Price.ID == "" || item.Price.UnitAmount == nil || *item.Price.UnitAmount < 0 {
			c.logger.Warn("skipping malformed subscription line item",
				zap.String("subscription_id", sub.ID),
				zap.String("price_id", item.Price.ID),
			)
			continue
		}

		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		record.Items = append(record.Items, domain.LineItem{
			PriceID:    item.Price.ID,
			UnitAmount: *item.Price.UnitAmount * quantity,
		})
	}

	return record
}

// get 带重试与熔断的 GET 调用
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var body []byte

	err := resilience.Retry(ctx, c.retry, func() error {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doGet(ctx, path, query)
		})
		if err != nil {
			return err
		}
		body = result.([]byte)
		return nil
	})

	return body, err
}

// doGet 执行实际的 HTTP 调用
func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return respBody, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", errUnauthorized, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
}

// normalizeStatus 服务商状态映射
func normalizeStatus(status string) domain.SubscriptionStatus {
	switch status {
	case "active", "trialing", "past_due":
		return domain.StatusActive
	case "canceled":
		return domain.StatusCanceled
	default:
		return domain.StatusOther
	}
}
