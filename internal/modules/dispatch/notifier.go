// README: Assignment notification sink over Kafka (fire-and-forget).
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gelis/internal/logger"
)

// Notifier delivers an assignment to the driver's client. The coordinator
// never waits on it and tolerates loss; the driver-side poll is the fallback.
type Notifier interface {
	NotifyAssignment(ctx context.Context, a Assignment) error
}

type KafkaNotifier struct {
	w *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			// Async: errors are logged by the writer loop, not returned.
			Async: true,
		},
	}
}

func (n *KafkaNotifier) NotifyAssignment(ctx context.Context, a Assignment) error {
	value, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return n.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.OrderID),
		Value: value,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}

// LogNotifier is used in tests and local runs without a broker.
type LogNotifier struct{}

func (LogNotifier) NotifyAssignment(_ context.Context, a Assignment) error {
	logger.L().Info("driver assignment",
		zap.String("orderId", a.OrderID),
		zap.String("driverId", a.DriverID),
	)
	return nil
}
