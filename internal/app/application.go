package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"payflow-backend/internal/analytics"
	"payflow-backend/internal/background"
	"payflow-backend/internal/config"
	"payflow-backend/internal/flow"
	"payflow-backend/internal/handlers"
	"payflow-backend/internal/middleware"
	"payflow-backend/internal/models"
	"payflow-backend/internal/payments"
	"payflow-backend/internal/payments/stripe"
	"payflow-backend/internal/repository"
	"payflow-backend/internal/wallet"
	"payflow-backend/pkg/cache"
	"payflow-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	baseCtx    context.Context
	baseCancel context.CancelFunc

	db    *gorm.DB
	cache *cache.Cache

	gateway     payments.Gateway
	preferences repository.PreferenceRepository
	hintPruner  repository.HintPruner
	reporter    *analytics.BusReporter

	store      *handlers.SessionStore
	rateLimits *middleware.RateLimitManager
	scheduler  *background.Scheduler

	flowHandler    *handlers.FlowHandler
	webhookHandler *handlers.WebhookHandler

	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	app := &Application{
		cfg:        cfg,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}

	if cfg.EnableDatabase {
		if err := app.initDatabase(); err != nil {
			baseCancel()
			return nil, err
		}

		if err := app.runMigrations(); err != nil {
			baseCancel()
			return nil, err
		}

		if err := app.createIndexes(); err != nil {
			baseCancel()
			return nil, err
		}
	}

	if err := app.initCache(); err != nil {
		baseCancel()
		return nil, err
	}

	if err := app.initGateway(); err != nil {
		baseCancel()
		return nil, err
	}

	app.initPreferences()
	app.initReporter()
	app.initSessions()
	app.initBackground()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

// Shutdown drains the HTTP server, closes every live flow session, then
// releases external connections. Order matters: first no new requests, then
// no live sessions, then the sinks they report to.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.store != nil {
		if err := a.store.Shutdown(ctx); err != nil {
			logger.Error(err, "Failed to drain flow sessions", nil)
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Failed to stop background jobs", nil)
		}
	}

	a.baseCancel()

	if a.rateLimits != nil {
		a.rateLimits.Shutdown()
	}

	if a.reporter != nil {
		a.reporter.Flush()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.SavedSelectionRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) createIndexes() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_saved_selections_updated_at ON saved_selections(updated_at DESC)",
	}

	for _, stmt := range statements {
		if err := a.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func (a *Application) initCache() error {
	c, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableRedis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cache = c
	return nil
}

func (a *Application) initGateway() error {
	client, err := stripe.NewClient(a.cfg.StripeSecretKey)
	if err != nil {
		return fmt.Errorf("failed to initialize stripe gateway: %w", err)
	}
	if a.cfg.StripeAPIBase != "" {
		client.WithAPIBase(a.cfg.StripeAPIBase)
	}

	a.gateway = client
	return nil
}

func (a *Application) initPreferences() {
	if a.db == nil {
		logger.Warn("Database disabled, selection hints are kept in memory", nil)
		a.preferences = repository.NewMemoryPreferenceRepository()
		return
	}

	prefs := repository.NewPreferenceRepository(a.db)
	if pruner, ok := prefs.(repository.HintPruner); ok {
		a.hintPruner = pruner
	}

	if a.cfg.EnableRedis {
		prefs = repository.NewCachedPreferenceRepository(prefs, a.cache)
	}
	a.preferences = prefs
}

func (a *Application) initReporter() {
	a.reporter = analytics.NewBusReporter(analytics.Options{
		CollectorURL:    a.cfg.CollectorURL,
		CaptureFailures: a.cfg.CaptureFailures,
	})
}

func (a *Application) initSessions() {
	a.store = handlers.NewSessionStore(time.Duration(a.cfg.SessionTTLMinutes) * time.Minute)
	a.store.StartSweeper(a.baseCtx)

	a.rateLimits = middleware.NewRateLimitManager(a.baseCtx)
}

func (a *Application) initBackground() {
	if a.hintPruner == nil || a.cfg.HintRetentionDays <= 0 {
		return
	}

	a.scheduler = background.NewScheduler(background.SchedulerConfig{WorkerCount: 1})
	a.scheduler.Start(a.baseCtx)

	retention := time.Duration(a.cfg.HintRetentionDays) * 24 * time.Hour
	err := a.scheduler.ScheduleUnique(background.Job{
		Name:    "prune_stale_hints",
		Delay:   time.Minute,
		Every:   12 * time.Hour,
		Timeout: 5 * time.Minute,
		RetryPolicy: background.RetryPolicy{
			MaxRetries: 2,
			Backoff:    30 * time.Second,
		},
		Run: func(ctx context.Context) error {
			pruned, err := a.hintPruner.PruneHintsBefore(time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if pruned > 0 {
				logger.Info("Pruned stale selection hints", map[string]interface{}{"count": pruned})
			}
			return nil
		},
	})
	if err != nil {
		logger.Error(err, "Failed to schedule hint pruning", nil)
	}
}

func (a *Application) initHandlers() {
	a.flowHandler = handlers.NewFlowHandler(
		a.baseCtx,
		a.cfg,
		a.gateway,
		a.preferences,
		wallet.NewReadinessChecker(),
		a.reporter,
		flow.NewSessionRegistry(),
		a.store,
	)

	a.webhookHandler = handlers.NewWebhookHandler(a.cfg.StripeWebhookSecret, a.reporter)
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitMiddleware(a.rateLimits, a.cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"sessions": a.store.Count(),
			"time":     time.Now().Format(time.RFC3339),
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/v1")
	{
		flows := v1.Group("/flows")
		{
			flows.POST("", a.flowHandler.Create)

			session := flows.Group("/:session_id")
			session.Use(middleware.SessionTokenMiddleware(a.cfg.JWTSecret))
			{
				session.POST("/configure", a.flowHandler.Configure)
				session.GET("/option", a.flowHandler.CurrentOption)
				session.POST("/options/present", a.flowHandler.PresentOptions)
				session.POST("/options/result", a.flowHandler.OptionResult)
				session.POST("/confirm", middleware.ConfirmRateLimitMiddleware(a.rateLimits, a.cfg), a.flowHandler.Confirm)
				session.POST("/wallet/result", a.flowHandler.WalletResult)
				session.POST("/redirect/result", a.flowHandler.RedirectResult)
				session.GET("/events", a.flowHandler.Events)
				session.DELETE("", a.flowHandler.Delete)
			}
		}

		v1.POST("/webhooks/stripe", a.webhookHandler.HandleStripe)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}
