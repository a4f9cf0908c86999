package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sisb-tech/backoffice-billing-api/api/swagger"
	"github.com/sisb-tech/backoffice-billing-api/internal/handler"
	"github.com/sisb-tech/backoffice-billing-api/internal/middleware"
	"github.com/sisb-tech/backoffice-billing-api/internal/models"
	"github.com/sisb-tech/backoffice-billing-api/internal/repository"
	"github.com/sisb-tech/backoffice-billing-api/internal/service"
	"github.com/sisb-tech/backoffice-billing-api/pkg/cache"
	"github.com/sisb-tech/backoffice-billing-api/pkg/config"
	"github.com/sisb-tech/backoffice-billing-api/pkg/database"
	"github.com/sisb-tech/backoffice-billing-api/pkg/jobs"
	"github.com/sisb-tech/backoffice-billing-api/pkg/logger"
	corsmiddleware "github.com/sisb-tech/backoffice-billing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sisb-tech/backoffice-billing-api/pkg/middleware/requestid"
)

// @title SISB Backoffice Billing API
// @version 0.1.0
// @description Fee catalog, selection, pricing and invoicing for campus back offices
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsService := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Catalog.CacheTTL, logr, cacheRepo != nil)

	catalogRepo := repository.NewCatalogRepository(db)
	pricingRepo := repository.NewPricingRuleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "backoffice-billing-api",
	})
	catalogService := service.NewCatalogService(catalogRepo, cacheService, validate, logr)
	selectionService := service.NewSelectionService(catalogService, metricsService, cfg.Selection.SessionTTL, logr)
	defer selectionService.Close()
	pricingService := service.NewPricingService(pricingRepo, metricsService, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var invoiceService *service.InvoiceService
	var notifyQueue *jobs.Queue
	if cfg.Invoices.NotifyEnabled {
		notifyQueue = jobs.NewQueue("invoice-notify", func(ctx context.Context, job jobs.Job) error {
			return invoiceService.HandleNotifyJob(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Invoices.WorkerConcurrency,
			MaxRetries: cfg.Invoices.WorkerRetries,
			Logger:     logr,
		})
		notifyQueue.Start(ctx)
		defer notifyQueue.Stop()
	}
	var queue service.JobQueue
	if notifyQueue != nil {
		queue = notifyQueue
	}
	invoiceService = service.NewInvoiceService(invoiceRepo, studentRepo, selectionService, queue, metricsService, validate, logr)

	authHandler := handler.NewAuthHandler(authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	selectionHandler := handler.NewSelectionHandler(selectionService)
	pricingHandler := handler.NewPricingHandler(pricingService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
			auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authService))

		catalogAdmin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
		finance := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleFinance)

		protected.GET("/fee-items", catalogHandler.ListItems)
		protected.GET("/fee-items/:id", catalogHandler.GetItem)
		protected.POST("/fee-items", catalogAdmin, catalogHandler.CreateItem)
		protected.PUT("/fee-items/:id", catalogAdmin, catalogHandler.UpdateItem)
		protected.DELETE("/fee-items/:id", catalogAdmin, catalogHandler.RetireItem)

		protected.GET("/fee-templates", catalogHandler.ListTemplates)
		protected.GET("/fee-templates/:id/items", catalogHandler.ResolveTemplate)
		protected.POST("/fee-templates", catalogAdmin, catalogHandler.CreateTemplate)
		protected.DELETE("/fee-templates/:id", catalogAdmin, catalogHandler.RetireTemplate)

		selections := protected.Group("/selections", finance)
		{
			selections.POST("", selectionHandler.Start)
			selections.GET("/:id", selectionHandler.Get)
			selections.POST("/:id/category", selectionHandler.SelectCategory)
			selections.POST("/:id/items/:itemId/toggle", selectionHandler.ToggleItem)
			selections.POST("/:id/templates/:templateId/apply", selectionHandler.ApplyTemplate)
			selections.DELETE("/:id/templates/:templateId", selectionHandler.ClearTemplate)
			selections.POST("/:id/payment-mode", selectionHandler.SetPaymentMode)
			selections.POST("/:id/finalize", selectionHandler.Finalize)
		}

		protected.GET("/pricing-rules", pricingHandler.ListRules)
		protected.GET("/pricing-rules/:id", pricingHandler.GetRule)
		protected.POST("/pricing-rules", catalogAdmin, pricingHandler.CreateRule)
		protected.PUT("/pricing-rules/:id", catalogAdmin, pricingHandler.UpdateRule)
		protected.POST("/pricing/quote", finance, pricingHandler.Quote)

		protected.POST("/invoices", finance, invoiceHandler.Generate)
		protected.GET("/invoices", invoiceHandler.List)
		protected.GET("/invoices/export", invoiceHandler.Export)
		protected.GET("/invoices/:id", invoiceHandler.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
