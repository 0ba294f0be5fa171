package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	conflictapp "github.com/channelsync/backend/internal/application/conflict"
	dlqapp "github.com/channelsync/backend/internal/application/dlq"
	appevent "github.com/channelsync/backend/internal/application/event"
	syncapp "github.com/channelsync/backend/internal/application/sync"
	"github.com/channelsync/backend/internal/domain/conflict"
	domainsync "github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/cache"
	"github.com/channelsync/backend/internal/infrastructure/calendar"
	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/event"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/marketplace"
	"github.com/channelsync/backend/internal/infrastructure/persistence"
	"github.com/channelsync/backend/internal/infrastructure/resilience"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/infrastructure/storage"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/channelsync/backend/internal/interfaces/http/middleware"
	"github.com/channelsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

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

	log.Info("Starting ChannelSync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Ship log output to the OTEL Collector alongside stdout when enabled
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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			Level:          log.Level(),
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
		log.Info("OTEL log bridge enabled",
			zap.String("collector_endpoint", cfg.Telemetry.CollectorEndpoint),
		)
	}

	// Continuous profiling ships CPU, heap and goroutine profiles to Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.ProfilingEndpoint,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry tracing and metrics (no-op providers when disabled)
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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
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
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register database query tracing (otelgorm) when enabled
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Connection pool gauges and query histograms from the GORM pool
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBMetricsEnabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		} else if dbMetrics != nil {
			dbMetrics.StartPoolStatsCollection(context.Background())
			defer dbMetrics.Stop()
		}
	}

	// Initialize repositories
	deadLetterRepo := persistence.NewGormDeadLetterRepository(db.DB)
	conflictRepo := persistence.NewGormConflictRepository(db.DB)
	syncMetricsRepo := persistence.NewGormSyncMetricsRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

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

	// Initialize and start outbox processor for guaranteed event delivery.
	// It drains the outbox_events table into the event bus.
	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if err := outboxProcessor.Start(context.Background()); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}
	defer func() {
		if err := outboxProcessor.Stop(context.Background()); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()
	log.Info("Outbox processor started",
		zap.Int("batch_size", outboxProcessorConfig.BatchSize),
		zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
	)

	// Alert-bearing events are staged in the outbox within the same database
	// transaction as the state change, then relayed to the bus by the processor
	alertPublisher := event.NewTransactionalPublisher(db.DB, event.NewOutboxPublisher(eventSerializer), log)

	// Register marketplace adapters for the platforms with configured credentials
	var adapters []domainsync.MarketplacePlatform
	if cfg.Marketplace.Tokopedia.Enabled {
		tokopediaAdapter, err := marketplace.NewTokopediaAdapter(marketplace.NewTokopediaConfig(
			cfg.Marketplace.Tokopedia.ClientID,
			cfg.Marketplace.Tokopedia.ClientSecret,
			cfg.Marketplace.Tokopedia.FsID,
			cfg.Marketplace.Tokopedia.ShopID,
		))
		if err != nil {
			log.Fatal("Failed to initialize Tokopedia adapter", zap.Error(err))
		}
		adapters = append(adapters, tokopediaAdapter)
	}
	if cfg.Marketplace.Shopee.Enabled {
		shopeeAdapter, err := marketplace.NewShopeeAdapter(marketplace.NewShopeeConfig(
			cfg.Marketplace.Shopee.PartnerID,
			cfg.Marketplace.Shopee.PartnerKey,
			cfg.Marketplace.Shopee.ShopID,
			cfg.Marketplace.Shopee.AccessToken,
		))
		if err != nil {
			log.Fatal("Failed to initialize Shopee adapter", zap.Error(err))
		}
		adapters = append(adapters, shopeeAdapter)
	}
	if cfg.Marketplace.Lazada.Enabled {
		lazadaAdapter, err := marketplace.NewLazadaAdapter(marketplace.NewLazadaConfig(
			cfg.Marketplace.Lazada.AppKey,
			cfg.Marketplace.Lazada.AppSecret,
			cfg.Marketplace.Lazada.AccessToken,
		))
		if err != nil {
			log.Fatal("Failed to initialize Lazada adapter", zap.Error(err))
		}
		adapters = append(adapters, lazadaAdapter)
	}
	registry := marketplace.NewRegistry(adapters...)
	platformCodes := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		platformCodes = append(platformCodes, string(adapter.PlatformCode()))
	}
	log.Info("Marketplace adapters registered", zap.Strings("platforms", platformCodes))

	// Resilience pipeline: retry engine and per-tenant circuit breaker
	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxRetries:     cfg.Retry.MaxRetries,
		BaseDelay:      cfg.Retry.BaseDelay(),
		MaxDelay:       cfg.Retry.MaxDelay(),
		JitterFraction: cfg.Retry.JitterFraction,
	}, log)
	breaker := resilience.NewCircuitBreaker(resilience.CircuitConfig{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		Window:           cfg.Circuit.Window(),
		CoolDown:         cfg.Circuit.CoolDown(),
	}, log)

	// Idempotency store: Redis, with optional in-memory fallback
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.DLQ.InMemoryFallback),
	)
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Alert rendering is a subscriber on the bus; the idempotency wrapper keeps
	// one log line per event when the relay redelivers
	alertHandler := event.NewIdempotentHandler(appevent.NewAlertHandler(log), idempotencyStore, log)
	eventBus.Subscribe(alertHandler, alertHandler.EventTypes()...)

	// DLQ manager captures permanently-failed jobs with their full payloads
	dlqManager := dlqapp.NewManager(deadLetterRepo, alertPublisher, dlqapp.Config{
		MaxRetries: cfg.Retry.MaxRetries,
	}, log)

	// Dead-letter payload archiver: S3 when enabled, in-memory otherwise
	if cfg.DLQ.ArchiveEnabled {
		archiver, err := storage.NewS3PayloadArchiver(&cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize S3 payload archiver", zap.Error(err))
		}
		dlqManager.SetArchiver(archiver)
		log.Info("S3 payload archiver enabled", zap.String("bucket", cfg.Archive.Bucket))
	} else {
		dlqManager.SetArchiver(storage.NewInMemoryPayloadArchiver())
	}

	// Sync orchestrator: breaker gate, retry engine, dead-letter handoff
	orchestrator := syncapp.NewOrchestrator(registry, retrier, breaker, dlqManager, syncMetricsRepo, syncapp.Config{
		MaxRetries:     cfg.Retry.MaxRetries,
		IdempotencyTTL: cfg.DLQ.IdempotencyTTL,
	}, log)
	orchestrator.SetIdempotencyStore(idempotencyStore)

	// Indonesian business calendar annotates syncs landing outside seller hours
	businessCalendar := calendar.NewIndonesianCalendar()
	businessCalendar.SetDefaultHours(calendar.BusinessHours{
		StartHour:       cfg.Calendar.BusinessStartHour,
		EndHour:         cfg.Calendar.BusinessEndHour,
		IncludeSaturday: cfg.Calendar.IncludeSaturday,
	})
	orchestrator.SetCalendar(businessCalendar)

	// Requeued dead-letter jobs replay through the same orchestrator pipeline
	dlqManager.SetReplayer(orchestrator)

	// Cross-channel conflict detection
	detector := conflict.NewDetector(conflict.Tolerances{
		PriceVarianceIDR: decimal.NewFromInt(cfg.Conflict.PriceVarianceToleranceIDR),
		StatusGrace:      cfg.Conflict.StatusGrace(),
	})
	conflictService := conflictapp.NewService(detector, conflictRepo, alertPublisher, log)

	// Business metrics: sync outcomes, DLQ backlog gauges, conflict counters
	if cfg.Telemetry.Enabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:       meterProvider.Meter("channelsync.business"),
			Logger:      log,
			DLQProvider: telemetry.NewGormDLQBacklogProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			orchestrator.SetBusinessMetrics(businessMetrics)
			dlqManager.SetBusinessMetrics(businessMetrics)
			businessMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormTenantProvider(db.DB), 0)
			defer businessMetrics.Stop()
		}
	}

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(orchestrator)
	dlqHandler := handler.NewDLQHandler(dlqManager)
	conflictHandler := handler.NewConflictHandler(conflictService)
	outboxHandler := handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log))
	systemHandler := handler.NewSystemHandler()

	// Background workers: async sync pool and periodic sweeps
	if cfg.Scheduler.Enabled {
		workerPool, err := scheduler.NewSyncWorkerPool(scheduler.WorkerPoolConfig{
			Workers:    cfg.Scheduler.SyncWorkers,
			QueueSize:  cfg.Scheduler.QueueSize,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, orchestrator, log)
		if err != nil {
			log.Fatal("Failed to create sync worker pool", zap.Error(err))
		}
		if err := workerPool.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync worker pool", zap.Error(err))
		}
		defer func() {
			if err := workerPool.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync worker pool", zap.Error(err))
			}
		}()
		syncHandler.SetWorkerPool(workerPool)
		log.Info("Sync worker pool started",
			zap.Int("workers", cfg.Scheduler.SyncWorkers),
			zap.Int("queue_size", cfg.Scheduler.QueueSize),
		)

		escalationSweeper := scheduler.NewEscalationSweeper(conflictService, cfg.Scheduler.EscalationInterval, log)
		if err := escalationSweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start escalation sweeper", zap.Error(err))
		}
		defer func() {
			if err := escalationSweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping escalation sweeper", zap.Error(err))
			}
		}()

		dlqSweeper := scheduler.NewDLQSweeper(dlqManager, telemetry.NewGormTenantProvider(db.DB), scheduler.DLQSweepConfig{
			Interval:      cfg.Scheduler.DLQRetryInterval,
			RetentionDays: cfg.DLQ.RetentionDays,
		}, log)
		if err := dlqSweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start DLQ sweeper", zap.Error(err))
		}
		defer func() {
			if err := dlqSweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping DLQ sweeper", zap.Error(err))
			}
		}()
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
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
	// 4. Tracing - OpenTelemetry request spans (if enabled)
	// 5. Metrics - HTTP request metrics (if enabled)
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	// 9. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			Enabled:     true,
			ServiceName: cfg.Telemetry.ServiceName,
		}))
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("channelsync.http"), true))
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply tenant resolution middleware to API routes.
	// Public endpoints skip tenant extraction.
	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Logger = log
	tenantConfig.SkipPaths = append(tenantConfig.SkipPaths,
		"/api/v1/ping",
		"/api/v1/system/ping",
		"/api/v1/system/info",
	)
	r.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))

	// Profiling labels carry tenant and route, so this runs after tenant resolution
	if profiler.IsEnabled() {
		r.Use(middleware.Profiling())
	}

	// Sync domain (order push, inventory push, price push, status pull, async jobs)
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/orders", syncHandler.SyncOrder)
	syncRoutes.POST("/inventory", syncHandler.PushInventory)
	syncRoutes.POST("/prices", syncHandler.PushPrice)
	syncRoutes.GET("/orders/:platform_order_id/status", syncHandler.PullOrderStatus)
	syncRoutes.POST("/jobs", syncHandler.SubmitJob)
	syncRoutes.GET("/jobs/history", syncHandler.JobHistory)

	// Dead letter queue domain (inspection, requeue, archive, pattern analysis)
	dlqRoutes := router.NewDomainGroup("dlq", "/dlq")
	dlqRoutes.GET("/jobs", dlqHandler.List)
	dlqRoutes.GET("/jobs/:id", dlqHandler.Get)
	dlqRoutes.POST("/jobs/:id/requeue", dlqHandler.Requeue)
	dlqRoutes.POST("/jobs/:id/archive", dlqHandler.Archive)
	dlqRoutes.GET("/patterns", dlqHandler.Patterns)
	dlqRoutes.GET("/stats/count", dlqHandler.CountByStatus)

	// Conflict domain (listing, manual resolution, snapshot evaluation, escalation)
	conflictRoutes := router.NewDomainGroup("conflict", "/conflicts")
	conflictRoutes.GET("", conflictHandler.List)
	conflictRoutes.GET("/:id", conflictHandler.Get)
	conflictRoutes.POST("/:id/resolve", conflictHandler.Resolve)
	conflictRoutes.POST("/snapshots", conflictHandler.EvaluateSnapshot)
	conflictRoutes.POST("/escalate-overdue", conflictHandler.EscalateOverdue)
	conflictRoutes.GET("/stats/count", conflictHandler.CountByStatus)

	// Outbox relay administration (dead entry inspection and replay)
	outboxRoutes := router.NewDomainGroup("outbox", "/outbox")
	outboxRoutes.GET("/dead", outboxHandler.ListDead)
	outboxRoutes.GET("/stats", outboxHandler.Stats)
	outboxRoutes.POST("/retry-dead", outboxHandler.RetryAllDead)
	outboxRoutes.GET("/:id", outboxHandler.Get)
	outboxRoutes.POST("/:id/retry", outboxHandler.RetryDead)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(syncRoutes).
		Register(dlqRoutes).
		Register(conflictRoutes).
		Register(outboxRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
