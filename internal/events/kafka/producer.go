package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Security event types published to the platform bus.
const (
	EventUserLoggedIn       = "auth.user.logged_in"
	EventUserLoggedOut      = "auth.user.logged_out"
	EventAllSessionsRevoked = "auth.sessions.revoked_all"
	EventTokenReuseDetected = "auth.token.reuse_detected"
)

// SecurityEvent is the wire form of an auth/session event.
type SecurityEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Time      time.Time   `json:"time"`
	UserID    int64       `json:"user_id"`
	Data      interface{} `json:"data,omitempty"`
	IPAddress string      `json:"ip_address,omitempty"`
}

// Producer publishes security events to a Kafka topic.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	source   string
	logger   *zap.Logger
}

// NewProducer creates a synchronous idempotent Kafka producer.
func NewProducer(brokers []string, topic, source string, logger *zap.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Producer{producer: producer, topic: topic, source: source, logger: logger}, nil
}

// Publish sends a security event. Failures are logged and returned; callers
// treat event delivery as best-effort and never fail business operations
// over it.
func (p *Producer) Publish(eventType string, userID int64, ipAddress string, data interface{}) error {
	event := SecurityEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    p.source,
		Time:      time.Now().UTC(),
		UserID:    userID,
		Data:      data,
		IPAddress: ipAddress,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal security event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", userID)),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to publish security event",
			zap.String("event_type", eventType), zap.Error(err))
		return fmt.Errorf("failed to publish security event: %w", err)
	}
	p.logger.Debug("Published security event",
		zap.String("event_type", eventType),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close shuts the producer down.
func (p *Producer) Close() error {
	return p.producer.Close()
}
