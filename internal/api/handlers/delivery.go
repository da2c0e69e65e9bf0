package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/delivery"
)

// HandleOpenDelivery handles GET /v1/delivery/:orderId/:token. A rejected
// link answers 410 and is not worth retrying.
func HandleOpenDelivery(gate DeliveryOpener, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := gate.Open(c.Request.Context(), c.Param("orderId"), c.Param("token"))
		if err != nil {
			if errors.Is(err, delivery.ErrLinkInvalid) {
				c.JSON(http.StatusGone, gin.H{"error": "Link expirado ou inválido"})
				return
			}
			logger.Error("Failed to open delivery", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, d)
	}
}
