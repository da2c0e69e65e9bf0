package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/checkout"
	"github.com/lumenstudio/fotofacil/internal/coupon"
	"github.com/lumenstudio/fotofacil/internal/service"
)

// HandleGetCart handles GET /v1/cart
func HandleGetCart(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := sessionCart(c, flows)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, service.NewCartResponse(store))
	}
}

// HandleAddCartItem handles POST /v1/cart/items. Adding a photo that is
// already in the cart is a no-op answered with 200.
func HandleAddCartItem(flows *checkout.Manager, catalog CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}
		store := flow.Cart()

		// Parse request
		var req service.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		if store.Contains(req.PhotoID) {
			c.JSON(http.StatusOK, service.NewCartResponse(store))
			return
		}

		// Price is taken from the catalog, never from the request
		item, err := catalog.ResolveCartItem(c.Request.Context(), req.PhotoID)
		if err != nil {
			if errors.Is(err, cart.ErrUnknownPhoto) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Foto indisponível"})
				return
			}
			logger.Error("Failed to resolve photo", zap.String("photo_id", req.PhotoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		added, err := flow.AddItem(c.Request.Context(), item)
		if err != nil {
			writeLockedCart(c, err)
			return
		}
		status := http.StatusOK
		if added {
			status = http.StatusCreated
		}
		c.JSON(status, service.NewCartResponse(store))
	}
}

// HandleRemoveCartItem handles DELETE /v1/cart/items/:photoId
func HandleRemoveCartItem(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}
		if err := flow.RemoveItem(c.Request.Context(), c.Param("photoId")); err != nil {
			writeLockedCart(c, err)
			return
		}
		c.JSON(http.StatusOK, service.NewCartResponse(flow.Cart()))
	}
}

// HandleClearCart handles DELETE /v1/cart
func HandleClearCart(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}
		if err := flow.ClearCart(c.Request.Context()); err != nil {
			writeLockedCart(c, err)
			return
		}
		c.JSON(http.StatusOK, service.NewCartResponse(flow.Cart()))
	}
}

// HandleApplyCoupon handles POST /v1/cart/coupon. A blank code is ignored
// with 204.
func HandleApplyCoupon(flows *checkout.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}

		var req service.ApplyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		applied, err := flow.ApplyCoupon(c.Request.Context(), req.Code)
		if err != nil {
			var rejected *coupon.RejectionError
			switch {
			case errors.Is(err, coupon.ErrEmptyCode):
				c.Status(http.StatusNoContent)
			case errors.As(err, &rejected):
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":  rejected.Message,
					"reason": rejected.Reason,
				})
			case errors.Is(err, checkout.ErrSubmitted), errors.Is(err, checkout.ErrSubmitting):
				writeLockedCart(c, err)
			default:
				logger.Error("Failed to apply coupon", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"coupon": applied,
			"totals": flow.Totals(),
		})
	}
}

// HandleRemoveCoupon handles DELETE /v1/cart/coupon
func HandleRemoveCoupon(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}
		if err := flow.RemoveCoupon(); err != nil {
			writeLockedCart(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"totals": flow.Totals()})
	}
}

// writeLockedCart answers a change refused because the order was sent or
// is being sent.
func writeLockedCart(c *gin.Context, err error) {
	message := "Pedido já enviado"
	if errors.Is(err, checkout.ErrSubmitting) {
		message = "Pedido em processamento"
	}
	c.JSON(http.StatusConflict, gin.H{"error": message})
}
