package notify

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
)

// Metered counts events per type before passing them on.
type Metered struct {
	next     Notifier
	counters map[Type]metric.Int64Counter
}

// NewMetered wraps next with per-type counters created from meter.
func NewMetered(next Notifier, meter metric.Meter) (*Metered, error) {
	names := map[Type]string{
		OrderCreated:       "orders.created",
		OrderStatusChanged: "order.status_changes",
		CouponApplied:      "coupons.applied",
	}
	m := &Metered{
		next:     next,
		counters: make(map[Type]metric.Int64Counter, len(names)),
	}
	for t, name := range names {
		c, err := meter.Int64Counter(name, metric.WithUnit("{event}"))
		if err != nil {
			return nil, errors.Wrapf(err, "create %s counter", name)
		}
		m.counters[t] = c
	}
	return m, nil
}

// Notify increments the counter for e.Type and forwards e.
func (m *Metered) Notify(ctx context.Context, e Event) {
	if c, ok := m.counters[e.Type]; ok {
		c.Add(ctx, 1)
	}
	m.next.Notify(ctx, e)
}
