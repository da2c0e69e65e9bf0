package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/api/handlers"
	"github.com/lumenstudio/fotofacil/internal/api/middleware"
	"github.com/lumenstudio/fotofacil/internal/checkout"
	"github.com/lumenstudio/fotofacil/internal/config"
)

// Dependencies are the services the routes are built on
type Dependencies struct {
	Sessions sessions.Store
	Flows    *checkout.Manager
	Catalog  handlers.CatalogService
	Coupons  handlers.CouponAdmin
	Delivery handlers.DeliveryOpener
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Catalog and delivery links need no session
		v1.GET("/events", handlers.HandleListEvents(deps.Catalog, logger))
		v1.GET("/events/:slug/photos", handlers.HandleEventPhotos(deps.Catalog, logger))
		v1.GET("/delivery/:orderId/:token", handlers.HandleOpenDelivery(deps.Delivery, logger))

		// Storefront routes (browser session)
		storefront := v1.Group("")
		storefront.Use(middleware.SessionMiddleware(deps.Sessions, cfg.Session.CookieName, logger))
		{
			storefront.GET("/cart", handlers.HandleGetCart(deps.Flows))
			storefront.POST("/cart/items", handlers.HandleAddCartItem(deps.Flows, deps.Catalog, logger))
			storefront.DELETE("/cart/items/:photoId", handlers.HandleRemoveCartItem(deps.Flows))
			storefront.DELETE("/cart", handlers.HandleClearCart(deps.Flows))
			storefront.POST("/cart/coupon", handlers.HandleApplyCoupon(deps.Flows, logger))
			storefront.DELETE("/cart/coupon", handlers.HandleRemoveCoupon(deps.Flows))

			storefront.GET("/checkout", handlers.HandleGetCheckout(deps.Flows))
			storefront.DELETE("/checkout", handlers.HandleLeaveCheckout(deps.Flows))
			storefront.POST("/checkout/continue", handlers.HandleContinue(deps.Flows))
			storefront.POST("/checkout/back", handlers.HandleBack(deps.Flows))
			storefront.POST("/checkout/submit", handlers.HandleSubmit(deps.Flows, logger))
		}

		// Admin routes
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuthMiddleware(cfg.Admin.APIKeyHash, logger))
		{
			adminRoutes.GET("/coupons", handlers.HandleListCoupons(deps.Coupons, logger))
			adminRoutes.POST("/coupons", handlers.HandleCreateCoupon(deps.Coupons, logger))
			adminRoutes.POST("/coupons/:id/activate", handlers.HandleSetCouponActive(deps.Coupons, true, logger))
			adminRoutes.POST("/coupons/:id/deactivate", handlers.HandleSetCouponActive(deps.Coupons, false, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests. Matched routes are logged by
// pattern so delivery tokens stay out of the logs.
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
