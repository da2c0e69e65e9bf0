package payment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/backend"
)

// Outcome is how a payment wait ended
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeExpired   Outcome = "expired"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// ErrNotConfirmed is returned when a free order is not reported as paid
// by its confirmation call.
var ErrNotConfirmed = errors.New("free order was not confirmed")

// ErrMissingToken is returned when a paid order comes without a delivery token.
var ErrMissingToken = errors.New("paid order has no delivery token")

// Checker reports the payment status of an order
type Checker interface {
	CheckPayment(ctx context.Context, orderID string) (*backend.PaymentStatusResult, error)
}

// Result of a payment wait. DeliveryToken is set when Outcome is paid,
// Err when it is failed.
type Result struct {
	Outcome       Outcome
	DeliveryToken string
	Err           error
}

type Poller struct {
	checker  Checker
	interval time.Duration
	maxWait  time.Duration
	logger   *zap.Logger
}

// NewPoller creates a payment poller. A zero maxWait polls until the
// context is cancelled.
func NewPoller(checker Checker, interval, maxWait time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		checker:  checker,
		interval: interval,
		maxWait:  maxWait,
		logger:   logger,
	}
}

// Run waits for the order to be paid. Free orders are confirmed with a
// single call instead of polling.
func (p *Poller) Run(ctx context.Context, orderID string, free bool) Result {
	if free {
		return p.confirm(ctx, orderID)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.maxWait > 0 {
		timer := time.NewTimer(p.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Payment polling cancelled", zap.String("order_id", orderID), zap.Int("attempts", attempts))
			return Result{Outcome: OutcomeCancelled}
		case <-deadline:
			p.logger.Info("Payment still pending after max wait",
				zap.String("order_id", orderID),
				zap.Duration("max_wait", p.maxWait),
				zap.Int("attempts", attempts),
			)
			return Result{Outcome: OutcomeExpired}
		case <-ticker.C:
			attempts++
			res, err := p.checker.CheckPayment(ctx, orderID)
			if err != nil {
				if ctx.Err() != nil {
					return Result{Outcome: OutcomeCancelled}
				}
				p.logger.Warn("Payment status check failed",
					zap.String("order_id", orderID),
					zap.Int("attempt", attempts),
					zap.Error(err),
				)
				continue
			}
			if res.Status.IsPaid() && res.DeliveryToken == "" {
				p.logger.Warn("Payment reported paid without delivery token",
					zap.String("order_id", orderID),
					zap.Int("attempt", attempts),
				)
				continue
			}
			if res.Status.IsPaid() {
				p.logger.Info("Payment confirmed", zap.String("order_id", orderID), zap.Int("attempts", attempts))
				return Result{Outcome: OutcomePaid, DeliveryToken: res.DeliveryToken}
			}
		}
	}
}

func (p *Poller) confirm(ctx context.Context, orderID string) Result {
	res, err := p.checker.CheckPayment(ctx, orderID)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Outcome: OutcomeCancelled}
		}
		p.logger.Error("Failed to confirm free order", zap.String("order_id", orderID), zap.Error(err))
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if !res.Status.IsPaid() {
		p.logger.Error("Free order not confirmed",
			zap.String("order_id", orderID),
			zap.String("status", string(res.Status)),
		)
		return Result{Outcome: OutcomeFailed, Err: ErrNotConfirmed}
	}

	if res.DeliveryToken == "" {
		p.logger.Error("Free order confirmed without delivery token", zap.String("order_id", orderID))
		return Result{Outcome: OutcomeFailed, Err: ErrMissingToken}
	}

	p.logger.Info("Free order confirmed", zap.String("order_id", orderID))
	return Result{Outcome: OutcomePaid, DeliveryToken: res.DeliveryToken}
}
