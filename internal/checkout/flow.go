package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/backend"
	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/coupon"
	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/messaging"
	"github.com/lumenstudio/fotofacil/internal/payment"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

var (
	// ErrEmptyCart blocks leaving the cart step with nothing selected.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmitted is returned for cart or coupon changes once the order exists.
	ErrSubmitted = errors.New("order already submitted")
	// ErrSubmitting is returned for changes while the order request is in flight.
	ErrSubmitting = errors.New("order submission in progress")
)

// OrderCreator creates an order and returns its payment instructions
type OrderCreator interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.PaymentData, error)
}

// CouponValidator validates a coupon code against the cart
type CouponValidator interface {
	ValidateAndApply(ctx context.Context, code string, cart coupon.CartSnapshot) (*coupon.Applied, error)
}

// PaymentWaiter blocks until the order is paid or the wait ends
type PaymentWaiter interface {
	Run(ctx context.Context, orderID string, free bool) payment.Result
}

// Deps are the collaborators shared by every flow
type Deps struct {
	Orders    OrderCreator
	Coupons   CouponValidator
	Payments  PaymentWaiter
	Publisher messaging.Publisher
	Topic     string
	Logger    *zap.Logger
}

// Totals are the amounts shown on every step
type Totals struct {
	ItemCount       int   `json:"itemCount"`
	TotalCents      int64 `json:"totalCents"`
	DiscountCents   int64 `json:"discountCents"`
	FinalTotalCents int64 `json:"finalTotalCents"`
}

// Snapshot is a read-only view of a flow
type Snapshot struct {
	Step           domain.CheckoutStep  `json:"step"`
	Groups         []cart.Group         `json:"groups"`
	Totals         Totals               `json:"totals"`
	Coupon         *coupon.Applied      `json:"coupon,omitempty"`
	Payment        *backend.PaymentData `json:"payment,omitempty"`
	PaymentOutcome payment.Outcome      `json:"paymentOutcome,omitempty"`
	DeliveryRoute  string               `json:"deliveryRoute,omitempty"`
}

// Flow is the checkout state machine of one session: cart, checkout,
// then payment. Once paid it clears the cart and exposes the delivery
// route exactly once.
type Flow struct {
	mu   sync.Mutex
	cart *cart.Store
	deps *Deps

	step       domain.CheckoutStep
	submitting bool
	applied    *coupon.Applied
	payment    *backend.PaymentData
	items      []cart.Item
	totals     Totals
	outcome    payment.Outcome
	route      string
	lastUsed   time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	polling chan struct{}
}

func newFlow(parent context.Context, store *cart.Store, deps *Deps) *Flow {
	ctx, cancel := context.WithCancel(parent)
	return &Flow{
		cart:     store,
		deps:     deps,
		step:     domain.StepCart,
		lastUsed: time.Now(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// DeliveryRoute is the storefront path of the delivery view for a paid order.
func DeliveryRoute(orderID, token string) string {
	return fmt.Sprintf("/entrega/%s/%s", orderID, token)
}

func (f *Flow) transition(next domain.CheckoutStep) error {
	if !f.step.CanTransitionTo(next) {
		return &apperrors.ErrInvalidStateTransition{From: f.step, To: next}
	}
	f.step = next
	return nil
}

// editable must be called with f.mu held.
func (f *Flow) editable() error {
	switch {
	case f.submitting:
		return ErrSubmitting
	case f.step == domain.StepPayment:
		return ErrSubmitted
	}
	return nil
}

// Cart returns the session's cart for reads. Changes go through the flow.
func (f *Flow) Cart() *cart.Store {
	return f.cart
}

// AddItem adds item to the cart and reports whether it was new.
func (f *Flow) AddItem(ctx context.Context, item cart.Item) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if err := f.editable(); err != nil {
		return false, err
	}
	return f.cart.AddItem(ctx, item), nil
}

// RemoveItem removes a photo from the cart.
func (f *Flow) RemoveItem(ctx context.Context, photoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if err := f.editable(); err != nil {
		return err
	}
	f.cart.RemoveItem(ctx, photoID)
	return nil
}

// ClearCart empties the cart.
func (f *Flow) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if err := f.editable(); err != nil {
		return err
	}
	f.cart.Clear(ctx)
	return nil
}

// Continue moves from the cart to the checkout form.
func (f *Flow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if f.step == domain.StepCart && f.cart.ItemCount() == 0 {
		return ErrEmptyCart
	}
	return f.transition(domain.StepCheckout)
}

// Back returns from the checkout form to the cart.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if f.submitting {
		return ErrSubmitting
	}
	return f.transition(domain.StepCart)
}

// ApplyCoupon validates code against the current cart and keeps it on success.
func (f *Flow) ApplyCoupon(ctx context.Context, code string) (*coupon.Applied, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if err := f.editable(); err != nil {
		return nil, err
	}

	applied, err := f.deps.Coupons.ValidateAndApply(ctx, code, coupon.CartSnapshot{
		TotalCents: f.cart.TotalCents(),
		ItemCount:  f.cart.ItemCount(),
	})
	if err != nil {
		return nil, err
	}
	f.applied = applied
	return applied, nil
}

// RemoveCoupon forgets the applied coupon. The cart is untouched.
func (f *Flow) RemoveCoupon() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if err := f.editable(); err != nil {
		return err
	}
	f.applied = nil
	return nil
}

// Totals computes the amounts for the current cart and coupon.
func (f *Flow) Totals() Totals {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentTotals()
}

func (f *Flow) currentTotals() Totals {
	if f.step == domain.StepPayment {
		return f.totals
	}
	return totalsFor(f.cart.Items(), f.applied)
}

func totalsFor(items []cart.Item, applied *coupon.Applied) Totals {
	var total int64
	for _, it := range items {
		total += it.PriceCents
	}
	return Totals{
		ItemCount:       len(items),
		TotalCents:      total,
		DiscountCents:   coupon.Discount(applied, total),
		FinalTotalCents: coupon.FinalTotal(applied, total),
	}
}

// pendingOrder is what Submit sends, captured before the remote call.
type pendingOrder struct {
	req    backend.CreateOrderRequest
	items  []cart.Item
	totals Totals
}

// Submit validates the form and creates the order. On failure the flow
// stays on the checkout step so the customer can retry. On success it
// moves to payment and starts waiting for the payment in the background.
// The flow is not locked during the order request; cart, coupon and step
// changes are refused with ErrSubmitting until it returns.
func (f *Flow) Submit(ctx context.Context, form FormData) (*backend.PaymentData, error) {
	order, err := f.beginSubmit(form)
	if err != nil {
		return nil, err
	}

	data, err := f.deps.Orders.CreateOrder(ctx, order.req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	f.lastUsed = time.Now()

	if err != nil {
		f.deps.Logger.Error("Failed to create order", zap.Int("items", len(order.items)), zap.Error(err))
		return nil, err
	}
	if err := f.transition(domain.StepPayment); err != nil {
		return nil, err
	}
	f.payment = data
	f.items = order.items
	f.totals = order.totals

	f.deps.Logger.Info("Order created",
		zap.String("order_id", data.OrderID),
		zap.Int64("final_total_cents", order.totals.FinalTotalCents),
	)
	f.publish(ctx, messaging.EventOrderCreated)

	free := order.totals.FinalTotalCents == 0
	f.startPolling(data.OrderID, free)

	return data, nil
}

func (f *Flow) beginSubmit(form FormData) (*pendingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	if f.submitting {
		return nil, ErrSubmitting
	}
	if f.step != domain.StepCheckout {
		return nil, &apperrors.ErrInvalidStateTransition{From: f.step, To: domain.StepPayment}
	}
	items := f.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	form = form.normalized()
	req := backend.CreateOrderRequest{
		Customer: backend.Customer{Name: form.Name, Email: form.Email, CPF: form.CPF},
		Items:    make([]backend.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		req.Items = append(req.Items, backend.OrderItem{
			PhotoID:    it.PhotoID,
			Title:      it.Title,
			PriceCents: it.PriceCents,
		})
	}
	if f.applied != nil {
		id := f.applied.ID.String()
		req.CouponID = &id
	}

	f.submitting = true
	return &pendingOrder{req: req, items: items, totals: totalsFor(items, f.applied)}, nil
}

// startPolling must be called with f.mu held.
func (f *Flow) startPolling(orderID string, free bool) {
	done := make(chan struct{})
	f.polling = done

	go func() {
		defer close(done)
		res := f.deps.Payments.Run(f.ctx, orderID, free)
		f.finishPayment(orderID, res)
	}()
}

func (f *Flow) finishPayment(orderID string, res payment.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.outcome == payment.OutcomePaid {
		return
	}
	f.outcome = res.Outcome
	if res.Outcome != payment.OutcomePaid {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f.cart.Clear(ctx)
	f.route = DeliveryRoute(orderID, res.DeliveryToken)
	f.publish(ctx, messaging.EventOrderPaid)
}

// publish must be called with f.mu held. Failures are logged only.
func (f *Flow) publish(ctx context.Context, eventType string) {
	if f.deps.Publisher == nil || f.payment == nil {
		return
	}

	event := messaging.OrderEvent{
		Type:            eventType,
		OrderID:         f.payment.OrderID,
		ItemCount:       f.totals.ItemCount,
		TotalCents:      f.totals.TotalCents,
		DiscountCents:   f.totals.DiscountCents,
		FinalTotalCents: f.totals.FinalTotalCents,
		OccurredAt:      time.Now().UTC(),
	}
	if f.applied != nil {
		event.CouponCode = f.applied.Code
	}

	if err := f.deps.Publisher.PublishEvent(ctx, f.deps.Topic, f.payment.OrderID, event); err != nil {
		f.deps.Logger.Warn("Failed to publish order event",
			zap.String("type", eventType),
			zap.String("order_id", f.payment.OrderID),
			zap.Error(err),
		)
	}
}

// Snapshot returns the current state of the flow.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUsed = time.Now()

	groups := f.cart.Groups()
	if f.step == domain.StepPayment {
		groups = cart.GroupItems(f.items)
	}

	return Snapshot{
		Step:           f.step,
		Groups:         groups,
		Totals:         f.currentTotals(),
		Coupon:         f.applied,
		Payment:        f.payment,
		PaymentOutcome: f.outcome,
		DeliveryRoute:  f.route,
	}
}

// Finished reports whether the payment wait has ended.
func (f *Flow) Finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome != ""
}

// Done is closed when the payment wait ends. It is nil before Submit succeeds.
func (f *Flow) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polling
}

// Close cancels the payment wait, if any, and waits for it to stop.
func (f *Flow) Close() {
	f.cancel()
	if done := f.Done(); done != nil {
		<-done
	}
}

func (f *Flow) idle(cutoff time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	waiting := f.submitting || (f.polling != nil && f.outcome == "")
	return !waiting && f.lastUsed.Before(cutoff)
}
