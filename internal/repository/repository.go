package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumenstudio/fotofacil/internal/domain"
)

// CouponRepository reads and manages discount coupons
type CouponRepository interface {
	GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Coupon, error)
	Create(ctx context.Context, coupon *domain.Coupon) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// CatalogRepository reads the published events and their photos
type CatalogRepository interface {
	ListPublishedEvents(ctx context.Context, limit, offset int) ([]*domain.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*domain.Event, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	ListPhotosByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Photo, error)
	GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error)
}

// Repositories groups every repository used by the API
type Repositories struct {
	Coupon  CouponRepository
	Catalog CatalogRepository
}
