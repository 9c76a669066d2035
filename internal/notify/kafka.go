package notify

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageWriter = (*kafka.Writer)(nil)

// KafkaNotifier publishes events to a Kafka topic keyed by user id, so events
// of one user stay ordered within a partition.
type KafkaNotifier struct {
	writer MessageWriter
}

// NewKafkaWriter returns an async writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaNotifier creates a KafkaNotifier.
func NewKafkaNotifier(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

// Notify encodes e and hands it to the writer. Write errors are logged.
func (k *KafkaNotifier) Notify(ctx context.Context, e Event) {
	enc := jx.GetEncoder()
	defer jx.PutEncoder(enc)
	e.Encode(enc)

	msg := kafka.Message{
		Key:   []byte(e.UserID.String()),
		Value: append([]byte(nil), enc.Bytes()...),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.Type)},
		},
	}
	if err := k.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("event", string(e.Type)),
			zap.Stringer("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

// Close flushes pending messages and closes the writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// PingBrokers dials brokers in order and succeeds on the first reachable one.
func PingBrokers(ctx context.Context, brokers []string) error {
	var (
		d    kafka.Dialer
		last = errors.New("no brokers configured")
	)
	for _, addr := range brokers {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			last = errors.Wrapf(err, "dial %s", addr)
			continue
		}
		return conn.Close()
	}
	return last
}
