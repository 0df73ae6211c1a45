// Package kafka provides the audit event sink backed by a Kafka topic.
// Kafka carries the externally indexed copy of the audit trail; the
// relational store remains the durable source inside the service.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "quorumpay/pkg/platform/audit"
)

// Producer publishes audit events as JSON records. Records are keyed by
// transaction id so all events for one transaction land in the same
// partition, preserving their order for consumers.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the brokers and returns a producer for topic.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: topic}, nil
}

// eventPayload is the wire format published to Kafka.
type eventPayload struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	Timestamp     string `json:"timestamp"`
	TransactionID uint64 `json:"transaction_id"`
	Actor         string `json:"actor,omitempty"`
	Recipient     string `json:"recipient,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Publish sends one event and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(eventPayload{
		ID:            event.ID.String(),
		Action:        string(event.Action),
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		TransactionID: event.TransactionID,
		Actor:         event.Actor.String(),
		Recipient:     event.Recipient.String(),
		Amount:        event.Amount,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(strconv.FormatUint(event.TransactionID, 10)),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
