package notify

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingNotifier struct {
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, e Event) {
	r.events = append(r.events, e)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() Event {
	return Event{
		Type:        OrderCreated,
		UserID:      uuid.MustParse("6f1c0a3e-7d38-4f0a-9d1e-2b4f6c8e0a11"),
		OrderID:     uuid.MustParse("0b9c6d42-1f5e-4a8b-b2c7-93e1d0f4a566"),
		OrderNumber: "ORD-01HZY3J8K0000000000000000",
		Status:      "pending",
		Total:       decimal.RequireFromString("417.96"),
		OccurredAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventEncode(t *testing.T) {
	var enc jx.Encoder
	testEvent().Encode(&enc)

	fields := map[string]string{}
	d := jx.DecodeBytes(enc.Bytes())
	require.NoError(t, d.Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		fields[key] = v
		return err
	}))

	assert.Equal(t, "order.created", fields["type"])
	assert.Equal(t, "417.96", fields["total"])
	assert.Equal(t, "2026-03-01T12:00:00Z", fields["occurred_at"])
	assert.NotContains(t, fields, "coupon_code")
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifier(w)
	e := testEvent()

	n.Notify(context.Background(), e)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, e.UserID.String(), string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"order_number":"ORD-01HZY3J8K0000000000000000"`)
	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_ErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	n := NewKafkaNotifier(&fakeWriter{err: errors.New("broker down")})
	n.Notify(ctx, testEvent())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Publish order event", logs.All()[0].Message)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	LogNotifier{}.Notify(ctx, testEvent())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "order.created", logs.All()[0].ContextMap()["event"])
}

func TestMulti(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	Multi{a, Nop{}, b}.Notify(context.Background(), testEvent())
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestMetered(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	next := &recordingNotifier{}

	m, err := NewMetered(next, mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	e := testEvent()
	m.Notify(ctx, e)
	m.Notify(ctx, e)
	e.Type = CouponApplied
	m.Notify(ctx, e)
	assert.Len(t, next.events, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok, md.Name)
			for _, dp := range sum.DataPoints {
				got[md.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), got["orders.created"])
	assert.Equal(t, int64(1), got["coupons.applied"])
	assert.Zero(t, got["order.status_changes"])
}

func TestPingBrokers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.EqualError(t, PingBrokers(ctx, nil), "no brokers configured")

	err := PingBrokers(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial 127.0.0.1:1")
}
