package event

import (
	"context"
	"encoding/json"
	"time"

	"propfolio/cmd/metrics-service/internal/conf"
	"propfolio/cmd/metrics-service/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// SnapshotGeneratedEvent 快照生成事件，供下游消费（仪表盘刷新、告警）
type SnapshotGeneratedEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	EventVersion string    `json:"event_version"`
	SnapshotID   string    `json:"snapshot_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	MRR          int64     `json:"mrr"`
	TotalUsers   int64     `json:"total_users"`
	WarningCount int       `json:"warning_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher Kafka 快照事件发布器
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher 创建事件发布器；Kafka 未启用时返回空实现
func NewPublisher(config *conf.Config) domain.EventPublisher {
	if !config.Kafka.Enabled {
		return &NoopPublisher{}
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(config.Kafka.Brokers...),
			Topic:        config.Kafka.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// PublishSnapshotGenerated 发布快照生成事件
func (p *Publisher) PublishSnapshotGenerated(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	evt := SnapshotGeneratedEvent{
		EventID:      uuid.NewString(),
		EventType:    "metrics.snapshot.generated",
		EventVersion: "v1",
		SnapshotID:   snapshot.ID,
		GeneratedAt:  snapshot.GeneratedAt,
		MRR:          snapshot.MRR,
		TotalUsers:   snapshot.Usage.TotalUsers,
		WarningCount: len(snapshot.Warnings),
		Timestamp:    time.Now().UTC(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(snapshot.ID),
		Value: data,
		Time:  evt.Timestamp,
	})
}

// Close 关闭发布器
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher 空实现，本地开发或未接入 Kafka 时使用
type NoopPublisher struct{}

func (p *NoopPublisher) PublishSnapshotGenerated(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
