package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/domain"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

// Lookup finds an active coupon by its normalized code. It returns
// *errors.ErrNotFound when no active coupon matches.
type Lookup interface {
	GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// CartSnapshot is what coupon rules are checked against.
type CartSnapshot struct {
	TotalCents int64
	ItemCount  int
}

type Calculator struct {
	coupons Lookup
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewCalculator creates a coupon calculator
func NewCalculator(coupons Lookup, logger *zap.Logger) *Calculator {
	return &Calculator{
		coupons: coupons,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// NormalizeCode trims and upper-cases a code as typed by the customer.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateAndApply checks the coupon rules in order and returns the coupon
// to apply. Rule failures are *RejectionError; a blank code is ErrEmptyCode.
func (c *Calculator) ValidateAndApply(ctx context.Context, code string, cart CartSnapshot) (*Applied, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	cp, err := c.coupons.GetActiveByCode(ctx, code)
	if err != nil {
		var notFound *apperrors.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, reject(ReasonInvalid, "Cupom inválido ou expirado")
		}
		c.logger.Error("Failed to look up coupon", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("lookup coupon: %w", err)
	}
	if cp == nil || !cp.IsActive {
		return nil, reject(ReasonInvalid, "Cupom inválido ou expirado")
	}

	now := c.nowFunc()
	if !cp.ValidFrom.IsZero() && now.Before(cp.ValidFrom) {
		return nil, reject(ReasonNotYetActive, "Este cupom ainda não está ativo")
	}
	if cp.ValidUntil != nil && now.After(*cp.ValidUntil) {
		return nil, reject(ReasonExpired, "Este cupom expirou")
	}
	if cp.MinOrderCents != nil && cart.TotalCents < *cp.MinOrderCents {
		return nil, reject(ReasonMinOrder, "Pedido mínimo de %s para este cupom", FormatBRL(*cp.MinOrderCents))
	}
	if cp.MinPhotos != nil && cart.ItemCount < *cp.MinPhotos {
		return nil, reject(ReasonMinPhotos, "Mínimo de %d fotos para este cupom", *cp.MinPhotos)
	}
	if cp.MaxUses != nil && cp.CurrentUses >= *cp.MaxUses {
		return nil, reject(ReasonExhausted, "Este cupom atingiu o limite de usos")
	}

	c.logger.Info("Coupon applied",
		zap.String("code", cp.Code),
		zap.String("discount_type", string(cp.DiscountType)),
	)

	return &Applied{
		ID:            cp.ID,
		Code:          cp.Code,
		DiscountType:  cp.DiscountType,
		DiscountValue: cp.DiscountValue,
	}, nil
}
