package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/billing/backend/internal/application/billing"
	partnerapp "github.com/billing/backend/internal/application/partner"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/infrastructure/auth"
	"github.com/billing/backend/internal/infrastructure/cache"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/billing/backend/internal/infrastructure/event"
	"github.com/billing/backend/internal/infrastructure/logger"
	"github.com/billing/backend/internal/infrastructure/persistence"
	"github.com/billing/backend/internal/infrastructure/persistence/memory"
	"github.com/billing/backend/internal/infrastructure/scheduler"
	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/billing/backend/internal/interfaces/http/handler"
	"github.com/billing/backend/internal/interfaces/http/middleware"
	"github.com/billing/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

//	@title			Billing Backend API
//	@version		1.0
//	@description	Quote, invoice and payment ledger for small businesses

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Initialize telemetry providers (no-op when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Ship log lines to the collector alongside traces when configured
	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		log = telemetry.NewBridgedLogger(
			log.Core(),
			telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
				ServiceName:    cfg.Telemetry.ServiceName,
				LoggerProvider: loggerProvider,
				Level:          zapcore.InfoLevel,
			}),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		log.Info("Log export to collector enabled")
	}

	// Initialize storage. The memory driver keeps everything in-process and
	// is meant for development and demos; postgres is the production path.
	var (
		db           *persistence.Database
		quoteRepo    billing.QuoteRepository
		invoiceRepo  billing.InvoiceRepository
		paymentRepo  billing.PaymentRepository
		customerRepo partner.CustomerRepository
	)

	switch cfg.Database.Driver {
	case "memory":
		quoteRepo = memory.NewQuoteRepository()
		invoiceRepo = memory.NewInvoiceRepository()
		paymentRepo = memory.NewPaymentRepository()
		customerRepo = memory.NewCustomerRepository()
		log.Info("Using in-memory storage")

	default:
		gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
		gormLog := logger.NewGormLogger(log, gormLogLevel)

		db, err = persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		log.Info("Database connected successfully")

		// Register query tracing on the GORM connection
		if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
			tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:          true,
				SlowQueryThresh:  200 * time.Millisecond,
				DBSystem:         "postgresql",
				WithoutVariables: true,
			}, log)
			if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
				log.Warn("Failed to register database tracing", zap.Error(err))
			}
		}

		// Query and connection pool metrics
		if cfg.Telemetry.Enabled {
			dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("database"), telemetry.DefaultDBMetricsConfig(), log)
			if err != nil {
				log.Warn("Failed to initialize database metrics", zap.Error(err))
			} else {
				if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
					log.Warn("Failed to register query metrics plugin", zap.Error(err))
				}
				if sqlDB, err := db.DB.DB(); err == nil {
					dbMetrics.SetSQLDB(sqlDB)
					dbMetrics.StartPoolStatsCollection(context.Background())
					defer dbMetrics.Stop()
				}
			}
		}

		quoteRepo = persistence.NewGormQuoteRepository(db.DB)
		invoiceRepo = persistence.NewGormInvoiceRepository(db.DB)
		paymentRepo = persistence.NewGormPaymentRepository(db.DB)
		customerRepo = persistence.NewGormCustomerRepository(db.DB)
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Summary cache: Redis when enabled, in-memory otherwise
	var summaryCache billingapp.SummaryCache
	if cfg.Redis.Enabled {
		cacheFactory := cache.NewSummaryCacheFactory(cfg.Redis, cache.WithLogger(log))
		summaryCache, err = cacheFactory.CreateCache()
		if err != nil {
			log.Fatal("Failed to create summary cache", zap.Error(err))
		}
	} else {
		summaryCache = cache.NewInMemorySummaryCache()
	}

	// Initialize application services
	quoteService := billingapp.NewQuoteService(quoteRepo, invoiceRepo, customerRepo, eventBus, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, customerRepo, eventBus, log)
	paymentService := billingapp.NewPaymentService(paymentRepo, invoiceRepo, customerRepo, eventBus, log)
	summaryService := billingapp.NewSummaryService(quoteRepo, invoiceRepo, paymentRepo, summaryCache, log)
	customerService := partnerapp.NewCustomerService(customerRepo, log)

	// Every ledger write invalidates cached summaries
	summaryInvalidator := billingapp.NewSummaryInvalidator(summaryService)
	eventBus.Subscribe(summaryInvalidator)

	// Billing business metrics with periodic receivables gauges
	if cfg.Telemetry.Enabled {
		billingMetrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
			Meter:               meterProvider.Meter("billing"),
			Logger:              log,
			ReceivablesProvider: &receivablesProvider{invoices: invoiceRepo},
		})
		if err != nil {
			log.Warn("Failed to initialize billing metrics", zap.Error(err))
		} else {
			billingMetrics.StartPeriodicCollection(context.Background(), 5*time.Minute)
			defer billingMetrics.Stop()
		}
	}

	// Overdue sweeper rolls undue invoices past their due date into overdue
	if cfg.Sweeper.Enabled {
		sweeper := scheduler.NewOverdueSweeper(scheduler.OverdueSweeperConfig{
			CheckInterval: cfg.Sweeper.CheckInterval,
		}, invoiceService, log)
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start overdue sweeper", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sweeper.Stop(stopCtx); err != nil {
				log.Error("Error stopping overdue sweeper", zap.Error(err))
			}
		}()
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Distributed tracing (if enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("http"), true))
	}

	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// JWT authentication. When no secret is configured (development), tokens
	// are still parsed if present so created_by attribution keeps working.
	var adminGuard gin.HandlerFunc
	jwtService := auth.NewJWTService(cfg.JWT)
	if cfg.JWT.Secret != "" {
		engine.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			SkipPaths: []string{
				"/api/v1/health",
				"/api/v1/info",
				"/api/v1/ping",
			},
			Logger: log,
		}))
		adminGuard = middleware.RequireAdmin()
		log.Info("JWT authentication enabled", zap.String("issuer", cfg.JWT.Issuer))
	} else {
		engine.Use(middleware.OptionalJWTAuthMiddleware(jwtService))
		log.Warn("JWT secret not configured, running without authentication")
	}

	// Initialize HTTP handlers and register routes under /api/v1
	quoteHandler := handler.NewQuoteHandler(quoteService).WithAdminGuard(adminGuard)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService).WithAdminGuard(adminGuard)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	summaryHandler := handler.NewSummaryHandler(summaryService, log)
	customerHandler := handler.NewCustomerHandler(customerService)
	systemHandler := handler.NewSystemHandler(db, version)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(quoteHandler).
		Register(invoiceHandler).
		Register(paymentHandler).
		Register(summaryHandler).
		Register(customerHandler).
		Register(systemHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// receivablesProvider adapts the invoice repository to the telemetry gauges
type receivablesProvider struct {
	invoices billing.InvoiceRepository
}

func (p *receivablesProvider) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	// All-time window: outstanding receivables are not period-scoped
	stats, err := p.invoices.SummarizeWindow(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return decimal.Zero, err
	}
	return stats.TotalUndue, nil
}

func (p *receivablesProvider) GetOverdueCount(ctx context.Context) (int64, error) {
	status := billing.InvoiceStatusOverdue
	return p.invoices.Count(ctx, billing.InvoiceFilter{Status: &status})
}
