package coupon

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumenstudio/fotofacil/internal/domain"
)

// Applied is the part of a validated coupon kept by the checkout flow.
type Applied struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	DiscountType  domain.DiscountType `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
}

var hundred = decimal.NewFromInt(100)

// Discount computes the discount in cents for a cart total. Percentage
// coupons round half up; fixed coupons already hold cents. A nil coupon
// gives no discount.
func Discount(applied *Applied, totalCents int64) int64 {
	if applied == nil {
		return 0
	}
	switch applied.DiscountType {
	case domain.DiscountPercentage:
		return decimal.NewFromInt(totalCents).
			Mul(applied.DiscountValue).
			Div(hundred).
			Round(0).
			IntPart()
	case domain.DiscountFixed:
		return applied.DiscountValue.Round(0).IntPart()
	default:
		return 0
	}
}

// FinalTotal is the cart total after discount, never below zero.
func FinalTotal(applied *Applied, totalCents int64) int64 {
	final := totalCents - Discount(applied, totalCents)
	if final < 0 {
		return 0
	}
	return final
}

// FormatBRL renders cents as Brazilian reais, e.g. 123456 -> "R$ 1.234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	fixed := decimal.New(cents, -2).StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "R$ " + sign + b.String() + "," + frac
}
