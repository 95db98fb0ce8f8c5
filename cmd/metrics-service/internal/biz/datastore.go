package biz

import (
	"context"
	"time"

	"propfolio/pkg/resilience"
)

// 数据仓储调用纪律：每次调用独立超时，外加一次有界重试。
// 单条慢查询只拖慢自己的字段，不拖垮整个扇出屏障
const datastoreTimeout = 10 * time.Second

// datastoreRetryPolicy 仓储读取重试策略
func datastoreRetryPolicy() resilience.RetryPolicy {
	policy := resilience.DefaultRetryPolicy()
	policy.MaxRetries = 1
	policy.InitialDelay = 100 * time.Millisecond
	return policy
}

// runCount 在超时与重试纪律下执行单个计数查询
func runCount(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	var value int64

	err := resilience.Retry(ctx, datastoreRetryPolicy(), func() error {
		callCtx, cancel := context.WithTimeout(ctx, datastoreTimeout)
		defer cancel()

		v, err := fn(callCtx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})

	return value, err
}
