package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// Kafka implements Bus on single-partition Kafka topics, one per pair, so
// per-topic ordering is the broker's ordering.
type Kafka struct {
	broker string
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafka creates a Kafka bus against one broker. Topics are created on
// first publish.
func NewKafka(broker string, logger *slog.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Kafka{broker: broker, writer: writer, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, topic string, payload []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := k.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Subscribe tails a topic from its current end. Live snapshots are
// ephemeral, so replaying history on attach is pointless.
func (k *Kafka) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{k.broker},
		Topic:       topic,
		Partition:   0,
		StartOffset: kafka.LastOffset,
	})

	out := make(chan []byte, 64)

	go func() {
		defer close(out)
		defer reader.Close()

		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				k.logger.Error("Kafka read failed", "topic", topic, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
					continue
				}
			}

			select {
			case out <- m.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
