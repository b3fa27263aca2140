package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockledger/internal/models"
	"stockledger/pkg/utils"

	"github.com/segmentio/kafka-go"
)

// LedgerPublisher announces committed ledger writes to downstream consumers.
type LedgerPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *models.LedgerEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaProducer struct {
	writer messageWriter
}

// NewKafkaProducer builds an asynchronous producer: WriteMessages returns once
// the message is queued and delivery failures are logged.
func NewKafkaProducer(brokers []string, topic string) LedgerPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				utils.LogWarn(err, "Failed to deliver ledger events", map[string]interface{}{"count": len(messages), "topic": topic})
			}
		},
	}
	return &kafkaProducer{writer: writer}
}

func (p *kafkaProducer) PublishLedgerEvent(ctx context.Context, event *models.LedgerEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}

	// Keyed by item so one item's events stay ordered within a partition.
	message := kafka.Message{
		Key:   []byte(utils.Int64ToStr(event.ItemID)),
		Value: eventJSON,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.EventID)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write ledger event to kafka: %w", err)
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() LedgerPublisher { return noopPublisher{} }

func (noopPublisher) PublishLedgerEvent(context.Context, *models.LedgerEvent) error { return nil }
func (noopPublisher) Close() error                                                  { return nil }
