package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"points-wallet/pkg/cache"
	"points-wallet/pkg/config"
	"points-wallet/pkg/database"
	"points-wallet/pkg/jwt"
	"points-wallet/pkg/logger"
	"points-wallet/pkg/middleware"
	"points-wallet/pkg/queue"
	"points-wallet/pkg/s3"
	walletHTTP "points-wallet/services/wallet/internal/controller/http"
	"points-wallet/services/wallet/internal/entity"
	"points-wallet/services/wallet/internal/repo/persistent"
	"points-wallet/services/wallet/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "points-wallet/services/wallet/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		return nil, err
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v (continuing without statement export)", err)
		s3Client = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without events)", err)
		queueClient = nil
	}

	jwtService := jwt.NewService(cfg.JWTSecret)

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwtService,
		queueClient: queueClient,
	}, nil
}

func catalogFromConfig(cfg *config.Config) *entity.Catalog {
	return entity.NewCatalog(map[entity.SKU]int{
		entity.SKUExtraParticipantSlot: cfg.PriceExtraParticipantSlot,
		entity.SKUVisibilityBoost24H:   cfg.PriceVisibilityBoost24H,
		entity.SKUVisibilityBoost7D:    cfg.PriceVisibilityBoost7D,
		entity.SKUPremiumAnalytics30D:  cfg.PricePremiumAnalytics30D,
		entity.SKUFeaturedPlacement24H: cfg.PriceFeaturedPlacement24H,
		entity.SKUPrioritySupport30D:   cfg.PricePrioritySupport30D,
	})
}

func (a *App) Run() error {
	// Initialize repositories
	walletRepo := persistent.NewWalletRepository(a.db)
	poolRepo := persistent.NewAllocationRepository(a.db)

	// Initialize use cases
	walletUseCase := usecase.NewWalletUseCase(
		walletRepo,
		poolRepo,
		catalogFromConfig(a.cfg),
		a.redisClient,
		a.queueClient,
		a.s3Client,
		a.log,
	)

	// Initialize HTTP handlers
	walletHandler := walletHTTP.NewWalletHandler(walletUseCase, a.log)

	// Setup router
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, 100, time.Minute))

	{
		api.GET("/wallet", walletHandler.GetWallet)
		api.GET("/wallet/summary", walletHandler.GetWalletSummary)
		api.GET("/wallet/transactions", walletHandler.GetTransactions)
		api.GET("/wallet/statement", walletHandler.ExportStatement)
		api.POST("/wallet/purchases/slots", walletHandler.PurchaseSlots)
		api.POST("/wallet/purchases/boost", walletHandler.PurchaseBoost)
		api.POST("/wallet/purchases/feature", walletHandler.PurchaseFeature)
		api.POST("/wallet/refunds", walletHandler.RefundSlots)

		// Redemption collaborator hook
		api.POST("/internal/redemptions", middleware.RequireRole("service"), walletHandler.OnCustomerRedemption)
	}

	// Create HTTP server
	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		a.log.Info("Wallet service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down wallet service...")
}

func (a *App) Shutdown() error {
	// The context is used to inform the server it has 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Close database connection
	sqlDB, err := a.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	// Close Redis connection
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	// Close RabbitMQ connection
	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.log.Error("Error closing RabbitMQ: %v", err)
		}
	}

	// Shutdown server
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	a.log.Info("Wallet service exited")
	return nil
}
