package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"farcaster-trader/internal/model"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes execution requests for a downstream swap executor. Messages
// are keyed by EventKey so a consumer can drop replays of the same event.
type Kafka struct {
	writer *kafka.Writer
	Topic  string
}

func NewKafka(brokers []string, topic string) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Kafka{writer: writer, Topic: topic}
}

func (k *Kafka) Execute(ctx context.Context, req model.ExecutionRequest) error {
	msg, err := buildMessage(req)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func buildMessage(req model.ExecutionRequest) (kafka.Message, error) {
	value, err := json.Marshal(req)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal execution request: %w", err)
	}
	return kafka.Message{
		Key:   []byte(req.EventKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: "dispatch_id", Value: []byte(req.DispatchID)},
		},
	}, nil
}
