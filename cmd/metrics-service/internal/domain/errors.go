package domain

import "errors"

var (
	// ErrUpstreamBilling 计费服务商不可达或拒绝凭证，对整个请求致命
	ErrUpstreamBilling = errors.New("upstream billing provider error")

	// ErrComputation 聚合过程中的内部不变量被破坏（如负数计数）
	ErrComputation = errors.New("metrics computation error")

	// ErrSnapshotNotFound 尚无历史快照
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
