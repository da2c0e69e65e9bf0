package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/coupon"
	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/repository"
	"github.com/lumenstudio/fotofacil/pkg/errors"
)

type couponService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCouponService creates a new coupon administration service
func NewCouponService(repos *repository.Repositories, logger *zap.Logger) *couponService {
	return &couponService{
		repos:  repos,
		logger: logger,
	}
}

// CreateCoupon validates the request and stores a new coupon
func (s *couponService) CreateCoupon(ctx context.Context, req *CreateCouponRequest) (*domain.Coupon, error) {
	code := coupon.NormalizeCode(req.Code)
	if code == "" {
		return nil, &errors.ErrValidation{Field: "code", Message: "code is required"}
	}

	discountType := domain.DiscountType(req.DiscountType)
	if !discountType.IsValid() {
		return nil, &errors.ErrValidation{Field: "discount_type", Message: "discount_type must be percentage or fixed"}
	}

	value, err := decimal.NewFromString(req.DiscountValue)
	if err != nil || !value.IsPositive() {
		return nil, &errors.ErrValidation{Field: "discount_value", Message: "discount_value must be a positive number"}
	}
	if discountType == domain.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, &errors.ErrValidation{Field: "discount_value", Message: "percentage discount cannot exceed 100"}
	}
	if discountType == domain.DiscountFixed && !value.Equal(value.Truncate(0)) {
		return nil, &errors.ErrValidation{Field: "discount_value", Message: "fixed discount is a whole number of cents"}
	}

	validFrom := time.Now()
	if req.ValidFrom != nil {
		validFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(validFrom) {
		return nil, &errors.ErrValidation{Field: "valid_until", Message: "valid_until must be after valid_from"}
	}

	c := &domain.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: value,
		MinOrderCents: req.MinOrderCents,
		MinPhotos:     req.MinPhotos,
		MaxUses:       req.MaxUses,
		ValidFrom:     validFrom,
		ValidUntil:    req.ValidUntil,
		IsActive:      true,
	}
	if err := s.repos.Coupon.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Coupon created",
		zap.String("coupon_id", c.ID.String()),
		zap.String("code", c.Code),
	)
	return c, nil
}

// ListCoupons returns coupons, newest first
func (s *couponService) ListCoupons(ctx context.Context, limit, offset int) ([]*domain.Coupon, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Coupon.List(ctx, limit, offset)
}

// SetActive enables or disables a coupon and returns its new state
func (s *couponService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Coupon, error) {
	if err := s.repos.Coupon.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	s.logger.Info("Coupon updated",
		zap.String("coupon_id", id.String()),
		zap.Bool("is_active", active),
	)
	return s.repos.Coupon.GetByID(ctx, id)
}
