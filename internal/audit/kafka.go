package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/supervision/pkg/logger"
)

// KafkaRecorder 把审计记录发布到 Kafka topic，作为合规事件流消费
type KafkaRecorder struct {
	writer *kafka.Writer
}

// NewKafkaRecorder 创建 Kafka 审计记录器
func NewKafkaRecorder(brokers []string, topic string) *KafkaRecorder {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &KafkaRecorder{writer: writer}
}

// Record 实现 Recorder.Record，以 agent 为 key 保证同环节记录有序
func (r *KafkaRecorder) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(entry.Agent),
		Value: value,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "failed to publish audit entry", "agent", entry.Agent, "error", err)
		return fmt.Errorf("failed to publish audit entry: %w", err)
	}
	return nil
}

// Close 实现 Recorder.Close
func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
