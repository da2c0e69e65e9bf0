package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/service"
	"github.com/lumenstudio/fotofacil/pkg/errors"
)

// CouponResponse is the admin view of a coupon
type CouponResponse struct {
	ID            string              `json:"id"`
	Code          string              `json:"code"`
	DiscountType  domain.DiscountType `json:"discount_type"`
	DiscountValue string              `json:"discount_value"`
	MinOrderCents *int64              `json:"min_order_cents,omitempty"`
	MinPhotos     *int                `json:"min_photos,omitempty"`
	MaxUses       *int                `json:"max_uses,omitempty"`
	CurrentUses   int                 `json:"current_uses"`
	ValidFrom     string              `json:"valid_from"`
	ValidUntil    *string             `json:"valid_until,omitempty"`
	IsActive      bool                `json:"is_active"`
}

func newCouponResponse(c *domain.Coupon) CouponResponse {
	resp := CouponResponse{
		ID:            c.ID.String(),
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue.String(),
		MinOrderCents: c.MinOrderCents,
		MinPhotos:     c.MinPhotos,
		MaxUses:       c.MaxUses,
		CurrentUses:   c.CurrentUses,
		ValidFrom:     c.ValidFrom.Format(time.RFC3339),
		IsActive:      c.IsActive,
	}
	if c.ValidUntil != nil {
		until := c.ValidUntil.Format(time.RFC3339)
		resp.ValidUntil = &until
	}
	return resp
}

// HandleListCoupons handles GET /v1/admin/coupons
func HandleListCoupons(coupons CouponAdmin, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		list, err := coupons.ListCoupons(c.Request.Context(), limit, offset)
		if err != nil {
			logger.Error("Failed to list coupons", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		response := make([]CouponResponse, 0, len(list))
		for _, cp := range list {
			response = append(response, newCouponResponse(cp))
		}

		c.JSON(http.StatusOK, gin.H{
			"coupons": response,
			"limit":   limit,
			"offset":  offset,
		})
	}
}

// HandleCreateCoupon handles POST /v1/admin/coupons
func HandleCreateCoupon(coupons CouponAdmin, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse request
		var req service.CreateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		created, err := coupons.CreateCoupon(c.Request.Context(), &req)
		if err != nil {
			if verr, ok := err.(*errors.ErrValidation); ok {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":   "validation failed",
					"details": verr.Message,
					"field":   verr.Field,
				})
				return
			}
			logger.Error("Failed to create coupon", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create coupon"})
			return
		}

		c.JSON(http.StatusCreated, newCouponResponse(created))
	}
}

// HandleSetCouponActive handles POST /v1/admin/coupons/:id/activate and
// POST /v1/admin/coupons/:id/deactivate
func HandleSetCouponActive(coupons CouponAdmin, active bool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse coupon ID
		couponID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon ID"})
			return
		}

		updated, err := coupons.SetActive(c.Request.Context(), couponID, active)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
				return
			}
			logger.Error("Failed to update coupon", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update coupon"})
			return
		}

		c.JSON(http.StatusOK, newCouponResponse(updated))
	}
}
