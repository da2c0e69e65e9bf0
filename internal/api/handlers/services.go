package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenstudio/fotofacil/internal/api/middleware"
	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/checkout"
	"github.com/lumenstudio/fotofacil/internal/delivery"
	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/service"
)

// CatalogService is the read side of events and photos
type CatalogService interface {
	ListEvents(ctx context.Context, limit, offset int) ([]*domain.Event, error)
	EventPhotos(ctx context.Context, slug string) (*domain.Event, []*domain.Photo, error)
	ResolveCartItem(ctx context.Context, photoID string) (cart.Item, error)
}

// CouponAdmin manages coupons for the admin routes
type CouponAdmin interface {
	CreateCoupon(ctx context.Context, req *service.CreateCouponRequest) (*domain.Coupon, error)
	ListCoupons(ctx context.Context, limit, offset int) ([]*domain.Coupon, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Coupon, error)
}

// DeliveryOpener validates delivery links
type DeliveryOpener interface {
	Open(ctx context.Context, orderID, token string) (*delivery.Delivery, error)
}

// sessionFlow returns the checkout flow of the caller's session.
func sessionFlow(c *gin.Context, flows *checkout.Manager) (*checkout.Flow, bool) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return nil, false
	}
	return flows.Flow(c.Request.Context(), id), true
}

// currentFlow returns the session's flow without replacing a finished one.
func currentFlow(c *gin.Context, flows *checkout.Manager) (*checkout.Flow, bool) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return nil, false
	}
	return flows.Current(c.Request.Context(), id), true
}

// sessionCart returns the shared cart store of the caller's session.
func sessionCart(c *gin.Context, flows *checkout.Manager) (*cart.Store, bool) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return nil, false
	}
	return flows.Cart(c.Request.Context(), id), true
}
