package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/crmhub/docquery-go/internal/logger"
)

// Producer 审计事件生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// AuditEvent RAG操作审计事件
type AuditEvent struct {
	Operation string    `json:"operation"` // ingest | query
	IndexName string    `json:"index_name"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewProducer 初始化Kafka生产者
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("Kafka audit producer initialized",
		zap.Strings("brokers", brokers), zap.String("topic", topic))

	return &Producer{
		producer: producer,
		topic:    topic,
	}, nil
}

// SendAuditEvent 发送审计事件
// producer为nil（事件发送未启用）时静默跳过
func (p *Producer) SendAuditEvent(event *AuditEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.IndexName),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("operation"),
				Value: []byte(event.Operation),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("Failed to send audit event", zap.Error(err))
		return fmt.Errorf("failed to send audit event: %w", err)
	}

	logger.Debug("Audit event sent",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("operation", event.Operation),
		zap.String("index_name", event.IndexName))

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
