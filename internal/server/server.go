package server

import (
	"fmt"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/florakart/florakart/config"
	"github.com/florakart/florakart/internal/cart"
	"github.com/florakart/florakart/internal/gateway"
	"github.com/florakart/florakart/internal/handlers"
	"github.com/florakart/florakart/internal/middleware"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %v", err)
	}
	redisClient, err := config.InitRedis(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %v", err)
	}
	cartStore := cart.NewStore(redisClient, redisCfg.CartTTL)

	razorpayCfg, err := config.LoadRazorpayConfig()
	if err != nil {
		return fmt.Errorf("failed to load razorpay config: %v", err)
	}
	gatewayClient := gateway.NewRazorpayClient(razorpayCfg.KeyID, razorpayCfg.KeySecret, razorpayCfg.WebhookSecret)
	if razorpayCfg.WebhookSecret == "" {
		log.Warn().Msg("razorpay webhook secret not set, webhook signature verification disabled")
	}

	r := gin.Default()
	r.Use(cors.Default())

	setupRoutes(r, db, cartStore, gatewayClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, cartStore *cart.Store, gatewayClient gateway.Client) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.SessionMiddleware(cartStore))
	r.Use(middleware.GatewayMiddleware(gatewayClient))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		public.GET("/products", handlers.ListProducts)
		public.GET("/products/:id", handlers.GetProduct)
		public.GET("/delivery/pincode-check", handlers.CheckPincode)

		cartPublic := public.Group("/cart")
		{
			cartPublic.GET("", handlers.CartDetail)
			cartPublic.GET("/count", handlers.CartCount)
			cartPublic.POST("/items/:productId", handlers.AddCartItem)
			cartPublic.DELETE("/items/:productId", handlers.RemoveCartItem)
			cartPublic.POST("/clear", handlers.ClearCart)
			cartPublic.POST("/coupon", handlers.ApplyCoupon)
			cartPublic.DELETE("/coupon", handlers.RemoveCoupon)
		}

		// Gateway-initiated endpoints carry no user session.
		public.POST("/payments/callback", handlers.PaymentCallback)
		public.POST("/payments/webhook", handlers.PaymentWebhook)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.POST("/checkout", handlers.Checkout)

		orderProtected := protected.Group("/orders")
		{
			orderProtected.GET("", handlers.ListOrders)
			orderProtected.GET("/:orderId", handlers.GetOrder)
			orderProtected.GET("/:orderId/tracking", handlers.TrackOrder)
			orderProtected.GET("/:orderId/qr", handlers.OrderQR)
			orderProtected.POST("/:orderId/cancel", handlers.CancelOrder)
		}

		protected.POST("/addresses", handlers.CreateAddress)
		protected.GET("/addresses", handlers.ListAddresses)

		protected.POST("/payments/process", handlers.ProcessPayment)
		protected.POST("/payments/retry/:orderId", handlers.RetryPayment)
	}

	staff := r.Group("/v1/manage")
	staff.Use(middleware.JWTAuthMiddleware(), middleware.StaffMiddleware())
	{
		staff.GET("/orders", handlers.ListAllOrders)
		staff.GET("/orders/:orderId", handlers.GetOrderManage)
		staff.POST("/orders/:orderId/status", handlers.UpdateOrderStatus)
		staff.POST("/orders/:orderId/tracking", handlers.AddOrderTracking)
		staff.GET("/settings", handlers.GetSettings)
		staff.PUT("/settings", handlers.UpdateSettings)
		staff.POST("/coupons", handlers.CreateCoupon)
	}
}
