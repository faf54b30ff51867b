// Package server assembles the HTTP API from configuration.
package server

import (
	"fmt"
	"net/http"

	"github.com/fullmargin/factures/config"
	"github.com/fullmargin/factures/gateway"
	"github.com/fullmargin/factures/handlers"
	"github.com/fullmargin/factures/ledger"
	"github.com/fullmargin/factures/middleware"
	"github.com/fullmargin/factures/models"
	"github.com/fullmargin/factures/stores"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const serviceName = "factures-api"

type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Gateway gateway.Gateway
	Logger  zerolog.Logger

	// Locker defaults to an in-process lock.
	Locker ledger.Locker
}

// New returns the router serving /health and the /api routes.
func New(d Deps) *gin.Engine {
	cfg := d.Config

	router := gin.New()
	router.Use(middleware.RequestLogger(d.Logger), middleware.Recovery(d.Logger), middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	svc := ledger.NewService(d.DB, ledger.Options{
		Gateway:        d.Gateway,
		Notifier:       stores.CreateNotificationStore(d.DB),
		Locker:         d.Locker,
		Logger:         d.Logger.With().Str("component", "ledger").Logger(),
		GatewayTimeout: cfg.GatewayTimeout,
	})

	authHandler := handlers.NewAuthHandler(d.DB, cfg, d.Logger)
	invoiceHandler := handlers.NewInvoiceHandler(svc, d.Logger)
	paymentHandler := handlers.NewPaymentHandler(svc, d.Logger)
	clientHandler := handlers.NewClientHandler(d.DB, d.Logger)
	notificationHandler := handlers.NewNotificationHandler(d.DB, d.Logger)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		limiter := middleware.NewRateLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)
		auth.POST("/register", limiter.Middleware(), authHandler.Register)
		auth.POST("/login", limiter.Middleware(), authHandler.Login)
		auth.POST("/refresh", limiter.Middleware(), authHandler.Refresh)
		auth.GET("/profile", middleware.JwtAuthMiddleware(cfg.JWTSecret), authHandler.Profile)
	}

	protected := api.Group("")
	protected.Use(middleware.JwtAuthMiddleware(cfg.JWTSecret))

	suppliersOnly := middleware.RequireRole(models.RoleSupplier)
	merchantsOnly := middleware.RequireRole(models.RoleMerchant)

	factures := protected.Group("/factures")
	{
		factures.POST("", suppliersOnly, invoiceHandler.CreateInvoice)
		factures.GET("", invoiceHandler.ListInvoices)
		factures.GET("/stats", invoiceHandler.Stats)
		factures.GET("/:id", invoiceHandler.GetInvoice)
		factures.PUT("/:id", suppliersOnly, invoiceHandler.UpdateInvoice)
		factures.DELETE("/:id", suppliersOnly, invoiceHandler.DeleteInvoice)
	}

	paiements := protected.Group("/paiements")
	{
		paiements.POST("/payer", merchantsOnly, paymentHandler.Pay)
		paiements.GET("/historique", paymentHandler.History)
		paiements.GET("/facture/:id", paymentHandler.InvoicePayments)
	}

	clients := protected.Group("/clients")
	{
		clients.POST("", clientHandler.CreateClient)
		clients.GET("", clientHandler.ListClients)
		clients.GET("/:id", clientHandler.GetClient)
		clients.PUT("/:id", clientHandler.UpdateClient)
		clients.DELETE("/:id", clientHandler.DeleteClient)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.PUT("/lire-toutes", notificationHandler.MarkAllRead)
		notifications.PUT("/:id/lire", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.DeleteNotification)
	}

	return router
}

// NewGateway builds the payment gateway selected by PAYMENT_GATEWAY.
func NewGateway(cfg *config.Config) (gateway.Gateway, error) {
	switch cfg.Gateway {
	case "simulated":
		return gateway.NewSimulated(cfg.GatewayDelay, cfg.GatewaySuccessRate), nil
	case "stellar":
		return gateway.NewStellar(gateway.StellarConfig{
			HorizonURL:        cfg.HorizonURL,
			NetworkPassphrase: cfg.NetworkPassphrase,
			SourceSecret:      cfg.StellarSecret,
			SettlementAccount: cfg.SettlementAccount,
			AssetCode:         cfg.StellarAssetCode,
			AssetIssuer:       cfg.StellarIssuer,
			Timeout:           cfg.GatewayTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported PAYMENT_GATEWAY %q", cfg.Gateway)
	}
}

// NewLocker returns a redis lease locker when REDIS_ADDR is set and an in-process
// locker otherwise. The returned func closes the redis connection.
func NewLocker(cfg *config.Config, log zerolog.Logger) (ledger.Locker, func() error) {
	if cfg.RedisAddr == "" {
		return ledger.NewMemoryLocker(), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return ledger.NewRedisLocker(client, cfg.LockTTL, log), client.Close
}
