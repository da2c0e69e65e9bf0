package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon is a discount code stored in the coupons table.
// DiscountValue is a percentage for percentage coupons and an amount in
// cents for fixed coupons.
type Coupon struct {
	ID            uuid.UUID
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderCents *int64
	MinPhotos     *int
	MaxUses       *int
	CurrentUses   int
	ValidFrom     time.Time
	ValidUntil    *time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event is a photographed event whose photos are sold individually
type Event struct {
	ID          uuid.UUID
	Slug        string
	Title       string
	EventDate   *time.Time
	CoverURL    *string
	IsPublished bool
	CreatedAt   time.Time
}

// Photo is a purchasable photo of an event
type Photo struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	Title      string
	ThumbURL   string
	PriceCents int64
	IsActive   bool
	CreatedAt  time.Time
}
