package routes

import (
	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Options struct {
	CORSOrigin  string
	RateLimiter *middleware.RateLimiterStore // nil disables rate limiting
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(h.Log))
	router.Use(middleware.RequestLogger(h.Log))
	// CORS must run before anything that can abort, or preflights fail.
	router.Use(middleware.CORSMiddleware(opts.CORSOrigin))
	if opts.RateLimiter != nil {
		router.Use(middleware.RateLimit(opts.RateLimiter))
	}

	requireAuth := middleware.AuthMiddleware(h.Tokens)
	requireAdmin := middleware.AdminMiddleware(h.Store)

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		// --- Auth Routes (Public) ---
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", h.Logout)

		// --- Catalog (Public) ---
		api.GET("/products", h.ListProducts)
		api.GET("/products/stock", h.ProductStock)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/reviews", h.ListReviews)
		api.GET("/categories", h.ListCategories)

		// Stripe authenticates with the signature header, not a session.
		api.POST("/payments/webhook", h.StripeWebhook)

		// --- Protected Routes (Login Required) ---
		auth := api.Group("/")
		auth.Use(requireAuth)
		{
			auth.GET("/auth/me", h.Me)
			auth.GET("/users/:id", h.GetUser)
			auth.PUT("/users/:id", h.UpdateUser)

			cart := auth.Group("/cart")
			{
				cart.GET("", h.GetCart)
				cart.POST("", h.AddToCart)
				cart.PUT("", h.UpdateCartItem)
				cart.DELETE("", h.ClearCart)
				cart.DELETE("/:productId", h.RemoveCartItem)
				cart.POST("/reconcile", h.ReconcileCart)
			}

			wishlist := auth.Group("/wishlist")
			{
				wishlist.GET("", h.GetWishlist)
				wishlist.POST("", h.AddToWishlist)
				wishlist.PATCH("", h.RemoveFromWishlist)
				wishlist.DELETE("", h.ClearWishlist)
			}

			auth.POST("/orders", h.PlaceOrder)
			auth.GET("/orders", h.ListMyOrders)
			auth.GET("/orders/:id", h.GetOrder)
			auth.POST("/orders/:id/pay", h.PayOrder)

			auth.POST("/products/:id/reviews", h.CreateReview)
			auth.POST("/coupons/validate", h.ValidateCoupon)

			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationRead)

			auth.POST("/assistant/chat", h.ChatAssistant)
			auth.GET("/assistant/history", h.AssistantHistory)
		}

		// --- Admin-Only Routes ---
		admin := api.Group("/")
		admin.Use(requireAuth, requireAdmin)
		{
			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)

			admin.GET("/coupons", h.ListCoupons)
			admin.POST("/coupons", h.CreateCoupon)
			admin.PUT("/coupons/:id", h.UpdateCoupon)
			admin.DELETE("/coupons/:id", h.DeleteCoupon)

			admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
			admin.GET("/admin/orders", h.ListAllOrders)
			admin.GET("/admin/dashboard", h.GetDashboardStats)
		}
	}

	return router
}
