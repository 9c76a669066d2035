package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// LogNotifier writes events to the request logger.
type LogNotifier struct{}

// Notify logs e at info level.
func (LogNotifier) Notify(ctx context.Context, e Event) {
	zctx.From(ctx).Info("Order event",
		zap.String("event", string(e.Type)),
		zap.Stringer("user_id", e.UserID),
		zap.Stringer("order_id", e.OrderID),
		zap.String("order_number", e.OrderNumber),
		zap.String("status", e.Status),
		zap.String("total", e.Total.StringFixed(2)),
	)
}
