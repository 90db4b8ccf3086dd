package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"paybridge/internal/gateway"
	"paybridge/internal/handlers"
	appMiddleware "paybridge/internal/middleware"
	"paybridge/internal/provider"
	"paybridge/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional: without it the adapter runs without cross-process
	// locks and webhook dedup, relying on the ledger constraints alone.
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			log.Println("Continuing without distributed locks and webhook dedup")
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, running without distributed locks")
	}

	// Gateway configuration
	cfg := provider.ConfigFromEnv()
	gw, err := gateway.NewStripeGateway(cfg.ActiveSecretKey(), cfg.Livemode)
	if err != nil {
		log.Fatalf("Failed to initialize Stripe gateway: %v", err)
	}

	p := provider.New(db, gw, cache, cfg)

	// Create Echo instance
	e := echo.New()
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(db, p)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(db, p)
	providerHandler := handlers.NewProviderHandler(p)
	webhookHandler := handlers.NewWebhookHandler(db, cache, p)

	// Payment routes
	api := e.Group("/api")
	api.POST("/payments/init", paymentHandler.InitPayment)
	api.POST("/payments/:pid/charge", paymentHandler.ChargeTransaction)
	api.POST("/payments/:pid/refund", paymentHandler.RefundTransaction)
	api.POST("/payments/:pid/sync", paymentHandler.SyncTransaction)

	// Saved instrument routes
	api.POST("/payment-methods", paymentMethodHandler.SavePaymentMethod)
	api.DELETE("/payment-methods/:pid", paymentMethodHandler.RemovePaymentMethod)
	api.POST("/payment-methods/sync", paymentMethodHandler.SyncPaymentMethods)

	// Customer and lifecycle routes
	api.POST("/customers", providerHandler.CreateCustomer)
	api.POST("/provider/up", providerHandler.Up)
	api.POST("/provider/down", providerHandler.Down)
	api.GET("/provider/ping", providerHandler.Ping)

	// Gateway webhook delivery
	e.POST("/stripe/webhook", webhookHandler.HandleWebhook)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
