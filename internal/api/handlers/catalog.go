package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/pkg/errors"
)

// HandleListEvents handles GET /v1/events
func HandleListEvents(catalog CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		events, err := catalog.ListEvents(c.Request.Context(), limit, offset)
		if err != nil {
			logger.Error("Failed to list events", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"events": events,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// HandleEventPhotos handles GET /v1/events/:slug/photos
func HandleEventPhotos(catalog CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, photos, err := catalog.EventPhotos(c.Request.Context(), c.Param("slug"))
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
				return
			}
			logger.Error("Failed to get event photos", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"event":  event,
			"photos": photos,
		})
	}
}
