package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/backend"
	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/coupon"
	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/messaging"
	"github.com/lumenstudio/fotofacil/internal/payment"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

type fakeOrders struct {
	mu       sync.Mutex
	requests []backend.CreateOrderRequest
	err      error
	// during runs while the order request is in flight
	during func()
}

func (f *fakeOrders) CreateOrder(_ context.Context, req backend.CreateOrderRequest) (*backend.PaymentData, error) {
	if f.during != nil {
		f.during()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &backend.PaymentData{OrderID: "ord-1", QRCode: "qr", QRCodeBase64: "b64", PixCopiaCola: "000201"}, nil
}

type couponTable map[string]*domain.Coupon

func (c couponTable) GetActiveByCode(_ context.Context, code string) (*domain.Coupon, error) {
	if cp, ok := c[code]; ok {
		return cp, nil
	}
	return nil, &apperrors.ErrNotFound{Resource: "coupon", ID: code}
}

type paymentChecker struct {
	mu     sync.Mutex
	calls  int
	paidAt int
}

func (c *paymentChecker) CheckPayment(context.Context, string) (*backend.PaymentStatusResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls >= c.paidAt {
		return &backend.PaymentStatusResult{Status: domain.PaymentPaid, DeliveryToken: "tok-1"}, nil
	}
	return &backend.PaymentStatusResult{Status: domain.PaymentPending}, nil
}

func (c *paymentChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.OrderEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(messaging.OrderEvent))
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	manager   *Manager
	orders    *fakeOrders
	checker   *paymentChecker
	publisher *recordingPublisher
}

func newHarness(t *testing.T, interval time.Duration, coupons ...*domain.Coupon) *harness {
	t.Helper()
	table := couponTable{}
	for _, cp := range coupons {
		table[cp.Code] = cp
	}
	h := &harness{
		orders:    &fakeOrders{},
		checker:   &paymentChecker{paidAt: 3},
		publisher: &recordingPublisher{},
	}
	logger := zap.NewNop()
	h.manager = NewManager(cart.NewRegistry(cart.NewMemoryKV(), logger), Deps{
		Orders:    h.orders,
		Coupons:   coupon.NewCalculator(table, logger),
		Payments:  payment.NewPoller(h.checker, interval, time.Minute, logger),
		Publisher: h.publisher,
		Topic:     "fotofacil.orders",
		Logger:    logger,
	})
	t.Cleanup(h.manager.Shutdown)
	return h
}

func item(id string, price int64) cart.Item {
	return cart.Item{PhotoID: id, EventID: "ev-1", EventTitle: "Maratona", Title: "Foto " + id, PriceCents: price}
}

func percentCoupon(code string, pct int64) *domain.Coupon {
	return &domain.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(pct),
		ValidFrom:     time.Now().Add(-time.Hour),
		IsActive:      true,
	}
}

var validForm = FormData{Name: "Ana Souza", Email: "ana@example.com", CPF: "529.982.247-25"}

func waitDone(t *testing.T, f *Flow) {
	t.Helper()
	done := f.Done()
	require.NotNil(t, done)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("payment wait did not finish")
	}
}

func TestFlow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	promo := percentCoupon("VERAO20", 20)
	h := newHarness(t, time.Millisecond, promo)

	store := h.manager.Cart(ctx, "s1")
	store.AddItem(ctx, item("p1", 1000))
	store.AddItem(ctx, item("p2", 1500))
	flow := h.manager.Flow(ctx, "s1")

	assert.Equal(t, Totals{ItemCount: 2, TotalCents: 2500, DiscountCents: 0, FinalTotalCents: 2500}, flow.Totals())

	_, err := flow.ApplyCoupon(ctx, "verao20")
	require.NoError(t, err)
	assert.Equal(t, Totals{ItemCount: 2, TotalCents: 2500, DiscountCents: 500, FinalTotalCents: 2000}, flow.Totals())

	require.NoError(t, flow.Continue())
	data, err := flow.Submit(ctx, validForm)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", data.OrderID)

	waitDone(t, flow)

	snap := flow.Snapshot()
	assert.Equal(t, domain.StepPayment, snap.Step)
	assert.Equal(t, payment.OutcomePaid, snap.PaymentOutcome)
	assert.Equal(t, "/entrega/ord-1/tok-1", snap.DeliveryRoute)
	assert.Equal(t, int64(2000), snap.Totals.FinalTotalCents)
	assert.Zero(t, store.ItemCount())
	assert.Equal(t, []string{messaging.EventOrderCreated, messaging.EventOrderPaid}, h.publisher.types())
	assert.Equal(t, 3, h.checker.callCount())

	require.Len(t, h.orders.requests, 1)
	req := h.orders.requests[0]
	assert.Equal(t, "52998224725", req.Customer.CPF)
	assert.Equal(t, []backend.OrderItem{
		{PhotoID: "p1", Title: "Foto p1", PriceCents: 1000},
		{PhotoID: "p2", Title: "Foto p2", PriceCents: 1500},
	}, req.Items)
	require.NotNil(t, req.CouponID)
	assert.Equal(t, promo.ID.String(), *req.CouponID)
}

func TestFlow_FreeOrderSkipsPolling(t *testing.T) {
	ctx := context.Background()
	gift := &domain.Coupon{
		ID:            uuid.New(),
		Code:          "BRINDE",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: decimal.NewFromInt(5000),
		ValidFrom:     time.Now().Add(-time.Hour),
		IsActive:      true,
	}
	h := newHarness(t, time.Hour, gift)
	h.checker.paidAt = 1

	store := h.manager.Cart(ctx, "s1")
	store.AddItem(ctx, item("p1", 3000))
	flow := h.manager.Flow(ctx, "s1")
	_, err := flow.ApplyCoupon(ctx, "BRINDE")
	require.NoError(t, err)
	assert.Zero(t, flow.Totals().FinalTotalCents)

	require.NoError(t, flow.Continue())
	_, err = flow.Submit(ctx, validForm)
	require.NoError(t, err)

	waitDone(t, flow)

	assert.Equal(t, 1, h.checker.callCount())
	assert.Equal(t, "/entrega/ord-1/tok-1", flow.Snapshot().DeliveryRoute)
	assert.Zero(t, store.ItemCount())
}

func TestFlow_ContinueBlockedOnEmptyCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	flow := h.manager.Flow(ctx, "s1")

	assert.ErrorIs(t, flow.Continue(), ErrEmptyCart)
	assert.Equal(t, domain.StepCart, flow.Snapshot().Step)
}

func TestFlow_StepTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")

	var transition *apperrors.ErrInvalidStateTransition
	assert.ErrorAs(t, flow.Back(), &transition)

	require.NoError(t, flow.Continue())
	assert.Equal(t, domain.StepCheckout, flow.Snapshot().Step)
	assert.ErrorAs(t, flow.Continue(), &transition)

	require.NoError(t, flow.Back())
	assert.Equal(t, domain.StepCart, flow.Snapshot().Step)

	_, err := flow.Submit(ctx, validForm)
	assert.ErrorAs(t, err, &transition)
	assert.Empty(t, h.orders.requests)
}

func TestFlow_SubmitValidationKeepsCheckout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")
	require.NoError(t, flow.Continue())

	_, err := flow.Submit(ctx, FormData{Name: "Ana", Email: "ana@example.com", CPF: "111.111.111-11"})

	var verr *apperrors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cpf", verr.Field)
	assert.Equal(t, domain.StepCheckout, flow.Snapshot().Step)
	assert.Empty(t, h.orders.requests)
}

func TestFlow_OrderFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")
	require.NoError(t, flow.Continue())

	h.orders.err = &apperrors.ErrRemote{Op: backend.FunctionCreateOrder, Message: "unavailable"}
	_, err := flow.Submit(ctx, validForm)
	var remote *apperrors.ErrRemote
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, domain.StepCheckout, flow.Snapshot().Step)
	assert.Nil(t, flow.Done())

	h.orders.err = nil
	_, err = flow.Submit(ctx, validForm)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, flow.Snapshot().Step)
	assert.Len(t, h.orders.requests, 2)
}

func TestFlow_CouponRulesAndRemoval(t *testing.T) {
	ctx := context.Background()
	minOrder := percentCoupon("MIN50", 10)
	threshold := int64(5000)
	minOrder.MinOrderCents = &threshold
	h := newHarness(t, time.Millisecond, minOrder)
	store := h.manager.Cart(ctx, "s1")
	store.AddItem(ctx, item("p1", 4999))
	flow := h.manager.Flow(ctx, "s1")

	_, err := flow.ApplyCoupon(ctx, "MIN50")
	var rej *coupon.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, coupon.ReasonMinOrder, rej.Reason)

	store.AddItem(ctx, item("p2", 1))
	_, err = flow.ApplyCoupon(ctx, "MIN50")
	require.NoError(t, err)
	assert.Equal(t, int64(500), flow.Totals().DiscountCents)

	require.NoError(t, flow.RemoveCoupon())
	assert.Nil(t, flow.Snapshot().Coupon)
	assert.Equal(t, 2, store.ItemCount())
	assert.Zero(t, flow.Totals().DiscountCents)

	_, err = flow.ApplyCoupon(ctx, " ")
	assert.ErrorIs(t, err, coupon.ErrEmptyCode)
}

func TestFlow_CouponLockedAfterSubmit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Hour, percentCoupon("OFF10", 10))
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")
	require.NoError(t, flow.Continue())
	_, err := flow.Submit(ctx, validForm)
	require.NoError(t, err)

	_, err = flow.ApplyCoupon(ctx, "OFF10")
	assert.ErrorIs(t, err, ErrSubmitted)
	assert.ErrorIs(t, flow.RemoveCoupon(), ErrSubmitted)
}

func TestFlow_CartLockedAfterSubmit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Hour)
	store := h.manager.Cart(ctx, "s1")
	store.AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")
	require.NoError(t, flow.Continue())
	_, err := flow.Submit(ctx, validForm)
	require.NoError(t, err)

	added, err := flow.AddItem(ctx, item("p9", 900))
	assert.ErrorIs(t, err, ErrSubmitted)
	assert.False(t, added)
	assert.ErrorIs(t, flow.RemoveItem(ctx, "p1"), ErrSubmitted)
	assert.ErrorIs(t, flow.ClearCart(ctx), ErrSubmitted)
	assert.Equal(t, []string{"p1"}, photoIDs(store.Items()))

	snap := flow.Snapshot()
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, []string{"p1"}, photoIDs(snap.Groups[0].Items))
	assert.Equal(t, Totals{ItemCount: 1, TotalCents: 1000, FinalTotalCents: 1000}, snap.Totals)
}

func TestFlow_SubmitUsesSubmittedItems(t *testing.T) {
	ctx := context.Background()
	fixed := &domain.Coupon{
		ID:            uuid.New(),
		Code:          "MIL",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: decimal.NewFromInt(1000),
		ValidFrom:     time.Now().Add(-time.Hour),
		IsActive:      true,
	}
	h := newHarness(t, time.Millisecond, fixed)
	store := h.manager.Cart(ctx, "s1")
	store.AddItem(ctx, item("p1", 1000))
	store.AddItem(ctx, item("p2", 1500))
	flow := h.manager.Flow(ctx, "s1")
	_, err := flow.ApplyCoupon(ctx, "MIL")
	require.NoError(t, err)
	require.NoError(t, flow.Continue())

	var (
		during    Snapshot
		couponErr error
		addErr    error
		backErr   error
		submitErr error
	)
	h.orders.during = func() {
		// The flow is readable while the order request is in flight
		during = flow.Snapshot()
		_, couponErr = flow.ApplyCoupon(ctx, "MIL")
		_, addErr = flow.AddItem(ctx, item("p3", 700))
		backErr = flow.Back()
		_, submitErr = flow.Submit(ctx, validForm)
		// A change that bypasses the flow must not alter the order
		store.RemoveItem(ctx, "p2")
	}

	_, err = flow.Submit(ctx, validForm)
	require.NoError(t, err)
	waitDone(t, flow)

	assert.Equal(t, domain.StepCheckout, during.Step)
	assert.ErrorIs(t, couponErr, ErrSubmitting)
	assert.ErrorIs(t, addErr, ErrSubmitting)
	assert.ErrorIs(t, backErr, ErrSubmitting)
	assert.ErrorIs(t, submitErr, ErrSubmitting)
	require.Len(t, h.orders.requests, 1)

	snap := flow.Snapshot()
	assert.Equal(t, Totals{ItemCount: 2, TotalCents: 2500, DiscountCents: 1000, FinalTotalCents: 1500}, snap.Totals)
	assert.Equal(t, payment.OutcomePaid, snap.PaymentOutcome)
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, []string{"p1", "p2"}, photoIDs(snap.Groups[0].Items))
	// Polled to paid rather than taking the single free-order call
	assert.Equal(t, 3, h.checker.callCount())
}

func photoIDs(items []cart.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.PhotoID)
	}
	return ids
}

func TestManager_FinishedFlowRestartsClean(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond, percentCoupon("OFF10", 10))
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	first := h.manager.Flow(ctx, "s1")
	_, err := first.ApplyCoupon(ctx, "OFF10")
	require.NoError(t, err)
	require.NoError(t, first.Continue())
	_, err = first.Submit(ctx, validForm)
	require.NoError(t, err)
	waitDone(t, first)

	second := h.manager.Flow(ctx, "s1")

	assert.NotSame(t, first, second)
	snap := second.Snapshot()
	assert.Equal(t, domain.StepCart, snap.Step)
	assert.Nil(t, snap.Coupon)
	assert.Empty(t, snap.DeliveryRoute)
}

func TestManager_SameFlowWhileActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)

	assert.Same(t, h.manager.Flow(ctx, "s1"), h.manager.Flow(ctx, "s1"))
	assert.NotSame(t, h.manager.Flow(ctx, "s1"), h.manager.Flow(ctx, "s2"))
}

func TestManager_LeaveCancelsPolling(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	h.checker.paidAt = 1 << 30
	store := h.manager.Cart(ctx, "s1")
	store.AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")
	require.NoError(t, flow.Continue())
	_, err := flow.Submit(ctx, validForm)
	require.NoError(t, err)

	h.manager.Leave("s1")

	waitDone(t, flow)
	assert.Equal(t, payment.OutcomeCancelled, flow.Snapshot().PaymentOutcome)
	assert.Equal(t, 1, store.ItemCount())
	assert.Equal(t, []string{messaging.EventOrderCreated}, h.publisher.types())

	calls := h.checker.callCount()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, calls, h.checker.callCount())
}

func TestManager_ShutdownStopsPolling(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	h.checker.paidAt = 1 << 30
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	flow := h.manager.Flow(ctx, "s1")
	require.NoError(t, flow.Continue())
	_, err := flow.Submit(ctx, validForm)
	require.NoError(t, err)

	h.manager.Shutdown()

	select {
	case <-flow.Done():
	default:
		t.Fatal("shutdown returned before the poller stopped")
	}
}

func TestManager_SweepKeepsWaitingFlows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Millisecond)
	h.checker.paidAt = 1 << 30
	h.manager.Cart(ctx, "s1").AddItem(ctx, item("p1", 1000))
	waiting := h.manager.Flow(ctx, "s1")
	require.NoError(t, waiting.Continue())
	_, err := waiting.Submit(ctx, validForm)
	require.NoError(t, err)
	idle := h.manager.Flow(ctx, "s2")

	assert.Equal(t, 1, h.manager.Sweep(-time.Second))
	assert.Same(t, waiting, h.manager.Flow(ctx, "s1"))
	assert.NotSame(t, idle, h.manager.Flow(ctx, "s2"))
}

func TestDeliveryRoute(t *testing.T) {
	assert.Equal(t, "/entrega/ord-9/abc", DeliveryRoute("ord-9", "abc"))
}
