package api

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/realtime"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups everything the HTTP layer calls into
type Services struct {
	Auth          *service.AuthService
	Otp           *service.OtpService
	Addresses     *service.AddressService
	Products      *service.ProductService
	Reviews       *service.ReviewService
	Carts         *service.CartService
	Orders        *service.OrderService
	Coupons       *service.CouponService
	Notifications *service.NotificationService
	Webhooks      *service.PaymobWebhookService
}

type Options struct {
	AllowedOrigins []string
	CookieSecure   bool
	CookieDomain   string
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	tokens *auth.TokenManager
	hub    *realtime.Hub
	opts   Options
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, tokens *auth.TokenManager, hub *realtime.Hub, opts Options) *Handler {
	return &Handler{
		svc:    svc,
		tokens: tokens,
		hub:    hub,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     h.opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a := router.Group("/api")
	authed := h.requireAuth()
	sellers := requireRole(models.RoleSeller, models.RoleAdmin)
	admins := requireRole(models.RoleAdmin)

	users := a.Group("/users")
	{
		users.POST("/register", h.register)
		users.POST("/login", h.login)
		users.POST("/refresh", h.refresh)
		users.POST("/logout", h.logout)
		users.POST("/forgot-password", h.forgotPassword)
		users.POST("/verify-otp", h.verifyOtp)
		users.POST("/reset-password", h.resetPassword)
		users.GET("/me", authed, h.getProfile)
		users.PUT("/me", authed, h.updateProfile)
		users.POST("/change-password", authed, h.changePassword)
	}
	a.POST("/auth/google", h.googleLogin)

	addresses := a.Group("/addresses", authed)
	{
		addresses.GET("", h.listAddresses)
		addresses.POST("", h.createAddress)
		addresses.GET("/:id", h.getAddress)
		addresses.PUT("/:id", h.updateAddress)
		addresses.PUT("/:id/default", h.setDefaultAddress)
		addresses.DELETE("/:id", h.deleteAddress)
	}

	categories := a.Group("/categories")
	{
		categories.GET("", h.listCategories)
		categories.GET("/:id", h.getCategory)
		categories.POST("", authed, admins, h.createCategory)
		categories.PUT("/:id", authed, admins, h.updateCategory)
		categories.DELETE("/:id", authed, admins, h.deleteCategory)
	}

	products := a.Group("/products")
	{
		products.GET("", h.listProducts)
		products.GET("/:id", h.getProduct)
		products.GET("/:id/reviews", h.listReviews)
		products.POST("/:id/reviews", authed, h.addReview)
		products.POST("", authed, sellers, h.createProduct)
		products.PUT("/:id", authed, sellers, h.updateProduct)
		products.DELETE("/:id", authed, sellers, h.deleteProduct)
	}

	reviews := a.Group("/reviews", authed)
	{
		reviews.PUT("/:id", h.updateReview)
		reviews.DELETE("/:id", h.deleteReview)
	}

	carts := a.Group("/carts", authed)
	{
		carts.GET("", h.getCart)
		carts.DELETE("", h.clearCart)
		carts.POST("/items", h.addCartItem)
		carts.PUT("/items/:productId", h.updateCartItem)
		carts.DELETE("/items/:productId", h.removeCartItem)
		carts.POST("/coupon", h.applyCoupon)
		carts.DELETE("/coupon", h.removeCoupon)
	}

	orders := a.Group("/orders", authed)
	{
		orders.POST("/checkout", h.checkout)
		orders.GET("", h.listMyOrders)
		orders.GET("/:id", h.getOrder)
		orders.POST("/:id/cancel", h.cancelOrder)
	}

	seller := a.Group("/seller", authed, sellers)
	{
		seller.GET("/orders", h.listSellerOrders)
		seller.POST("/products/import", h.importProducts)
	}

	admin := a.Group("/admin", authed, admins)
	{
		admin.GET("/orders", h.listAllOrders)
		admin.PUT("/orders/:id/status", h.updateOrderStatus)
		admin.GET("/products/export", h.exportProducts)
		admin.GET("/coupons", h.listCoupons)
		admin.POST("/coupons", h.createCoupon)
		admin.GET("/coupons/:id", h.getCoupon)
		admin.PUT("/coupons/:id", h.updateCoupon)
		admin.DELETE("/coupons/:id", h.deleteCoupon)
		admin.GET("/users", h.listUsers)
		admin.PUT("/users/:id/role", h.setUserRole)
	}

	notifications := a.Group("/notifications", authed)
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.PUT("/read-all", h.markAllRead)
		notifications.PUT("/:id/read", h.markRead)
		notifications.GET("/ws", h.notificationStream)
	}

	a.POST("/paymob/webhook", h.paymobWebhook)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Ready(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
