package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types published on the orders topic
const (
	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
)

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// OrderEvent is the payload of every order lifecycle event. The order id
// is also the message key.
type OrderEvent struct {
	Type            string    `json:"type"`
	OrderID         string    `json:"orderId"`
	ItemCount       int       `json:"itemCount"`
	TotalCents      int64     `json:"totalCents"`
	DiscountCents   int64     `json:"discountCents"`
	FinalTotalCents int64     `json:"finalTotalCents"`
	CouponCode      string    `json:"couponCode,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishEvent(_ context.Context, topic string, key string, event any) error {
	p.logger.Info("Event published",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Any("event", event),
	)
	return nil
}
