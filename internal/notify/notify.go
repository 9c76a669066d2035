// Package notify publishes order lifecycle events. Delivery is best effort:
// notifiers log failures and never report them to the caller.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type names an event.
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	CouponApplied      Type = "coupon.applied"
)

// Event describes something that happened to an order.
type Event struct {
	Type        Type
	UserID      uuid.UUID
	OrderID     uuid.UUID
	OrderNumber string
	Status      string
	Total       decimal.Decimal
	CouponCode  string
	OccurredAt  time.Time
}

// Encode writes e as a JSON object.
func (e Event) Encode(enc *jx.Encoder) {
	enc.ObjStart()
	enc.FieldStart("type")
	enc.Str(string(e.Type))
	enc.FieldStart("user_id")
	enc.Str(e.UserID.String())
	enc.FieldStart("order_id")
	enc.Str(e.OrderID.String())
	enc.FieldStart("order_number")
	enc.Str(e.OrderNumber)
	enc.FieldStart("status")
	enc.Str(e.Status)
	enc.FieldStart("total")
	enc.Str(e.Total.StringFixed(2))
	if e.CouponCode != "" {
		enc.FieldStart("coupon_code")
		enc.Str(e.CouponCode)
	}
	enc.FieldStart("occurred_at")
	enc.Str(e.OccurredAt.UTC().Format(time.RFC3339Nano))
	enc.ObjEnd()
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

// Notify calls each notifier.
func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}

// Nop discards events.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, Event) {}
