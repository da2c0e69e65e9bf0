package service

import (
	"time"

	"github.com/lumenstudio/fotofacil/internal/cart"
)

// AddItemRequest adds a catalog photo to the session cart
type AddItemRequest struct {
	PhotoID string `json:"photo_id" binding:"required,uuid"`
}

// ApplyCouponRequest applies a coupon code to the session checkout
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"max=64"`
}

// SubmitCheckoutRequest carries the checkout form. Field rules run inside
// the checkout flow so only the first failure is reported.
type SubmitCheckoutRequest struct {
	Name  string `json:"name" binding:"max=200"`
	Email string `json:"email" binding:"max=254"`
	CPF   string `json:"cpf" binding:"max=20"`
}

// CreateCouponRequest is the admin payload for a new coupon
type CreateCouponRequest struct {
	Code          string     `json:"code" binding:"required,min=3,max=32"`
	DiscountType  string     `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue string     `json:"discount_value" binding:"required"`
	MinOrderCents *int64     `json:"min_order_cents,omitempty" binding:"omitempty,min=0"`
	MinPhotos     *int       `json:"min_photos,omitempty" binding:"omitempty,min=1"`
	MaxUses       *int       `json:"max_uses,omitempty" binding:"omitempty,min=1"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
}

// CartResponse is the cart as shown on every view
type CartResponse struct {
	Items      []cart.Item  `json:"items"`
	Groups     []cart.Group `json:"groups"`
	ItemCount  int          `json:"itemCount"`
	TotalCents int64        `json:"totalCents"`
}

// NewCartResponse reads a consistent view of the store
func NewCartResponse(s *cart.Store) CartResponse {
	items := s.Items()
	var total int64
	for _, it := range items {
		total += it.PriceCents
	}
	groups := s.Groups()
	if groups == nil {
		groups = []cart.Group{}
	}
	return CartResponse{
		Items:      items,
		Groups:     groups,
		ItemCount:  len(items),
		TotalCents: total,
	}
}
