package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/types"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits one ReloadEvent per snapshot swap, keyed by the
// watched path.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
}

var _ interfaces.SnapshotListener = (*KafkaPublisher)(nil)

// NewKafkaWriter builds an async writer so publishing never blocks a
// refresh. Delivery failures are reported through the completion callback.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		BatchTimeout:           100 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.ErrorWithErr(context.Background(), "Failed to deliver reload events", err,
					"topic", topic,
					"count", len(msgs),
				)
			}
		},
	}
}

func NewKafkaPublisher(writer MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) OnSnapshot(ctx context.Context, change types.SnapshotChange) {
	if err := p.Publish(ctx, change.Event()); err != nil {
		logger.ErrorWithErr(ctx, "Failed to publish reload event", err, "topic", p.topic)
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev types.ReloadEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Path),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
