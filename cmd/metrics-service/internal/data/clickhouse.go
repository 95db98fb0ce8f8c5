package data

import (
	"context"
	"fmt"

	"propfolio/cmd/metrics-service/internal/conf"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseClient ClickHouse 客户端
type ClickHouseClient struct {
	conn driver.Conn
}

// NewClickHouseClient 创建 ClickHouse 客户端
func NewClickHouseClient(config *conf.Config) (*ClickHouseClient, error) {
	c := config.ClickHouse
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{c.Addr},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// 测试连接
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseClient{
		conn: conn,
	}, nil
}

// QueryRow 查询单行
func (c *ClickHouseClient) QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row {
	return c.conn.QueryRow(ctx, query, args...)
}

// Query 执行查询
func (c *ClickHouseClient) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

// Close 关闭连接
func (c *ClickHouseClient) Close() error {
	return c.conn.Close()
}
