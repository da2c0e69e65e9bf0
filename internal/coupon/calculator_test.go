package coupon

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/domain"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

type fakeLookup struct {
	coupons map[string]*domain.Coupon
	err     error
	calls   []string
}

func (f *fakeLookup) GetActiveByCode(_ context.Context, code string) (*domain.Coupon, error) {
	f.calls = append(f.calls, code)
	if f.err != nil {
		return nil, f.err
	}
	if cp, ok := f.coupons[code]; ok {
		return cp, nil
	}
	return nil, &apperrors.ErrNotFound{Resource: "coupon", ID: code}
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func baseCoupon(code string) *domain.Coupon {
	return &domain.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		ValidFrom:     fixedNow.Add(-24 * time.Hour),
		IsActive:      true,
	}
}

func newCalculator(coupons ...*domain.Coupon) (*Calculator, *fakeLookup) {
	lookup := &fakeLookup{coupons: map[string]*domain.Coupon{}}
	for _, cp := range coupons {
		lookup.coupons[cp.Code] = cp
	}
	c := NewCalculator(lookup, zap.NewNop())
	c.nowFunc = func() time.Time { return fixedNow }
	return c, lookup
}

func requireRejected(t *testing.T, err error, reason Reason) *RejectionError {
	t.Helper()
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, reason, rej.Reason)
	return rej
}

func TestValidateAndApply_NormalizesCode(t *testing.T) {
	c, lookup := newCalculator(baseCoupon("VERAO10"))

	applied, err := c.ValidateAndApply(context.Background(), "  verao10 ", CartSnapshot{TotalCents: 1000, ItemCount: 1})

	require.NoError(t, err)
	assert.Equal(t, "VERAO10", applied.Code)
	assert.Equal(t, []string{"VERAO10"}, lookup.calls)
}

func TestValidateAndApply_EmptyCodeSkipsLookup(t *testing.T) {
	c, lookup := newCalculator()

	_, err := c.ValidateAndApply(context.Background(), "   ", CartSnapshot{})

	assert.ErrorIs(t, err, ErrEmptyCode)
	assert.Empty(t, lookup.calls)
}

func TestValidateAndApply_Rejections(t *testing.T) {
	inactive := baseCoupon("OFF")
	inactive.IsActive = false

	future := baseCoupon("FUTURE")
	future.ValidFrom = fixedNow.Add(time.Hour)

	expired := baseCoupon("OLD")
	expired.ValidUntil = timePtr(fixedNow.Add(-time.Minute))

	minPhotos := baseCoupon("COMBO")
	minPhotos.MinPhotos = intPtr(3)

	exhausted := baseCoupon("GONE")
	exhausted.MaxUses = intPtr(5)
	exhausted.CurrentUses = 5

	c, _ := newCalculator(inactive, future, expired, minPhotos, exhausted)
	cart := CartSnapshot{TotalCents: 10000, ItemCount: 2}

	tests := []struct {
		code   string
		reason Reason
	}{
		{"MISSING", ReasonInvalid},
		{"OFF", ReasonInvalid},
		{"FUTURE", ReasonNotYetActive},
		{"OLD", ReasonExpired},
		{"COMBO", ReasonMinPhotos},
		{"GONE", ReasonExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := c.ValidateAndApply(context.Background(), tt.code, cart)
			rej := requireRejected(t, err, tt.reason)
			assert.NotEmpty(t, rej.Message)
		})
	}
}

func TestValidateAndApply_RulesCheckedInOrder(t *testing.T) {
	cp := baseCoupon("MANY")
	cp.ValidUntil = timePtr(fixedNow.Add(-time.Hour))
	cp.MinOrderCents = int64Ptr(999999)
	cp.MaxUses = intPtr(1)
	cp.CurrentUses = 1
	c, _ := newCalculator(cp)

	_, err := c.ValidateAndApply(context.Background(), "MANY", CartSnapshot{TotalCents: 100, ItemCount: 1})

	requireRejected(t, err, ReasonExpired)
}

func TestValidateAndApply_MinimumOrderGate(t *testing.T) {
	cp := baseCoupon("MIN50")
	cp.MinOrderCents = int64Ptr(5000)
	c, _ := newCalculator(cp)

	_, err := c.ValidateAndApply(context.Background(), "MIN50", CartSnapshot{TotalCents: 4999, ItemCount: 1})
	rej := requireRejected(t, err, ReasonMinOrder)
	assert.Contains(t, rej.Message, "R$ 50,00")

	applied, err := c.ValidateAndApply(context.Background(), "MIN50", CartSnapshot{TotalCents: 5000, ItemCount: 1})
	require.NoError(t, err)
	assert.Equal(t, cp.ID, applied.ID)
}

func TestValidateAndApply_ValidUntilStillOpen(t *testing.T) {
	cp := baseCoupon("LAST")
	cp.ValidUntil = timePtr(fixedNow.Add(time.Minute))
	cp.MaxUses = intPtr(10)
	cp.CurrentUses = 9
	c, _ := newCalculator(cp)

	_, err := c.ValidateAndApply(context.Background(), "LAST", CartSnapshot{TotalCents: 100, ItemCount: 1})

	assert.NoError(t, err)
}

func TestValidateAndApply_LookupFailure(t *testing.T) {
	c, lookup := newCalculator()
	lookup.err = errors.New("connection refused")

	_, err := c.ValidateAndApply(context.Background(), "ANY", CartSnapshot{})

	require.Error(t, err)
	var rej *RejectionError
	assert.False(t, errors.As(err, &rej))
}

func TestDiscount(t *testing.T) {
	pct := func(v string) *Applied {
		return &Applied{DiscountType: domain.DiscountPercentage, DiscountValue: decimal.RequireFromString(v)}
	}
	fixed := func(v int64) *Applied {
		return &Applied{DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(v)}
	}

	tests := []struct {
		name         string
		applied      *Applied
		total        int64
		wantDiscount int64
		wantFinal    int64
	}{
		{"no coupon", nil, 1000, 0, 1000},
		{"ten percent", pct("10"), 1000, 100, 900},
		{"twenty percent", pct("20"), 2500, 500, 2000},
		{"rounds half up", pct("15"), 1010, 152, 858},
		{"rounds down", pct("10"), 1004, 100, 904},
		{"fractional percentage", pct("12.5"), 1000, 125, 875},
		{"fixed below total", fixed(500), 3000, 500, 2500},
		{"fixed above total floors at zero", fixed(5000), 3000, 5000, 0},
		{"over one hundred percent", pct("150"), 1000, 1500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantDiscount, Discount(tt.applied, tt.total))
			assert.Equal(t, tt.wantFinal, FinalTotal(tt.applied, tt.total))
		})
	}
}

func TestFinalTotal_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		total := rng.Int63n(1_000_000)
		var applied *Applied
		if rng.Intn(2) == 0 {
			applied = &Applied{DiscountType: domain.DiscountPercentage, DiscountValue: decimal.NewFromInt(rng.Int63n(101))}
		} else {
			applied = &Applied{DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(rng.Int63n(2_000_000))}
		}

		final := FinalTotal(applied, total)
		require.GreaterOrEqual(t, final, int64(0))
		require.LessOrEqual(t, final, total)
	}
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 0,00", FormatBRL(0))
	assert.Equal(t, "R$ 0,05", FormatBRL(5))
	assert.Equal(t, "R$ 50,00", FormatBRL(5000))
	assert.Equal(t, "R$ 1.234,56", FormatBRL(123456))
	assert.Equal(t, "R$ 1.000.000,00", FormatBRL(100000000))
}
