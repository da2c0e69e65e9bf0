package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/api/middleware"
	"github.com/lumenstudio/fotofacil/internal/checkout"
	"github.com/lumenstudio/fotofacil/internal/service"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

// HandleGetCheckout handles GET /v1/checkout
func HandleGetCheckout(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := currentFlow(c, flows)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, flow.Snapshot())
	}
}

// HandleContinue handles POST /v1/checkout/continue
func HandleContinue(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}
		if err := flow.Continue(); err != nil {
			if !writeStepError(c, err) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}
		c.JSON(http.StatusOK, flow.Snapshot())
	}
}

// HandleBack handles POST /v1/checkout/back
func HandleBack(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}
		if err := flow.Back(); err != nil {
			if !writeStepError(c, err) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}
		c.JSON(http.StatusOK, flow.Snapshot())
	}
}

// HandleSubmit handles POST /v1/checkout/submit
func HandleSubmit(flows *checkout.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flow, ok := sessionFlow(c, flows)
		if !ok {
			return
		}

		// Parse request
		var req service.SubmitCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		_, err := flow.Submit(c.Request.Context(), checkout.FormData{
			Name:  req.Name,
			Email: req.Email,
			CPF:   req.CPF,
		})
		if err != nil {
			var invalid *apperrors.ErrValidation
			var remote *apperrors.ErrRemote
			switch {
			case errors.As(err, &invalid):
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error": invalid.Message,
					"field": invalid.Field,
				})
			case errors.As(err, &remote):
				c.JSON(http.StatusBadGateway, gin.H{"error": "Não foi possível criar o pedido. Tente novamente."})
			default:
				if !writeStepError(c, err) {
					logger.Error("Failed to submit checkout", zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				}
			}
			return
		}

		c.JSON(http.StatusCreated, flow.Snapshot())
	}
}

// HandleLeaveCheckout handles DELETE /v1/checkout. It stops waiting for
// the payment; the next checkout starts from the cart.
func HandleLeaveCheckout(flows *checkout.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetSessionID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}
		flows.Leave(id)
		c.Status(http.StatusNoContent)
	}
}

// writeStepError answers the errors shared by every step change and
// reports whether err was one of them.
func writeStepError(c *gin.Context, err error) bool {
	var transition *apperrors.ErrInvalidStateTransition
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Seu carrinho está vazio"})
	case errors.Is(err, checkout.ErrSubmitting):
		writeLockedCart(c, err)
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		return false
	}
	return true
}
