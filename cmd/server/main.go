package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/karthickst/agenticosv2.0/internal/events"
	"github.com/karthickst/agenticosv2.0/internal/featureflags"
	"github.com/karthickst/agenticosv2.0/internal/handler"
	"github.com/karthickst/agenticosv2.0/internal/infrastructure/llm"
	"github.com/karthickst/agenticosv2.0/internal/infrastructure/logger"
	"github.com/karthickst/agenticosv2.0/internal/infrastructure/redis"
	"github.com/karthickst/agenticosv2.0/internal/observability/metrics"
	"github.com/karthickst/agenticosv2.0/internal/observability/tracing"
	"github.com/karthickst/agenticosv2.0/internal/repository"
	"github.com/karthickst/agenticosv2.0/internal/security/audit"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
	"github.com/karthickst/agenticosv2.0/internal/security/middleware"
	"github.com/karthickst/agenticosv2.0/internal/security/ratelimit"
	"github.com/karthickst/agenticosv2.0/internal/service"
	"github.com/karthickst/agenticosv2.0/internal/worker"
	"github.com/karthickst/agenticosv2.0/pkg/config"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

const maxBodyBytes = 4 << 20

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	log.Info("starting AgenticOS server", slog.String("environment", cfg.Environment))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: "agenticos",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTELEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	}, log)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Database
	db, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.DatabaseURL,
		AuthToken:    cfg.DatabaseAuthToken,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Initialize(ctx, db); err != nil {
		log.Error("failed to initialize schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Repositories, all publishing on one change bus
	bus := events.NewBus(log)
	repos := handler.Repositories{
		Projects:     repository.NewProjectRepository(db, bus, log),
		Domains:      repository.NewDomainRepository(db, bus, log),
		Requirements: repository.NewRequirementRepository(db, bus, log),
		TestCases:    repository.NewTestCaseRepository(db, bus, log),
		DataBags:     repository.NewDataBagRepository(db, bus, log),
		Board:        repository.NewBoardRepository(db, bus, log),
		Tracker:      repository.NewTrackerRepository(db, bus, log),
	}
	users := repository.NewUserRepository(db, bus, log)
	specRepo := repository.NewGeneratedSpecRepository(db, bus, log)

	// 6. Services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "agenticos", cfg.JWTTTL)
	authService := service.NewAuthService(users, tokenManager, log)
	if featureflags.Enabled(featureflags.SeedDemoUser) {
		if err := authService.SeedDemoUser(ctx); err != nil {
			log.Warn("failed to seed demo user", slog.String("error", err.Error()))
		}
	}

	generator := llm.NewGenerator(llm.Config{
		APIKey:     cfg.AnthropicAPIKey,
		BaseURL:    cfg.AnthropicBaseURL,
		MaxRetries: 2,
	}, log)
	specService := service.NewSpecService(service.SpecRepositories{
		Domains:      repos.Domains,
		Requirements: repos.Requirements,
		TestCases:    repos.TestCases,
		DataBags:     repos.DataBags,
		Specs:        specRepo,
	}, generator, nil, log)

	access := service.NewProjectAccess(repos.Projects, bus, cfg.AccessCacheTTL, log)
	defer access.Close()

	checks := map[string]handler.Check{"database": db.Health, "redis": nil}

	// 7. Optional cross-replica change relay
	var redisClient *redis.Client
	if cfg.RedisURL != "" && featureflags.Enabled(featureflags.ChangeRelay) {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		checks["redis"] = redisClient.Ping
		go worker.NewChangeRelay(bus, redisClient, log).Start(ctx)
	}

	// 8. Security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer rateLimiter.Stop()
	auditLogger := audit.NewLogger(log)

	// 9. Routes
	mux := handler.NewRouter(handler.Dependencies{
		Repos:          repos,
		Auth:           authService,
		Specs:          specService,
		Access:         access,
		Bus:            bus,
		Audit:          auditLogger,
		Checks:         checks,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultModel:   cfg.AnthropicModel,
		SpecGeneration: featureflags.Enabled(featureflags.SpecGeneration),
		Logger:         log,
	})

	// Chain middleware: request ID -> CORS -> JWT -> rate limit -> audit ->
	// request validation -> metrics
	var root http.Handler = metrics.HTTPMetricsMiddleware(mux)
	root = middleware.RejectTraversal(log)(root)
	root = middleware.LimitBody(maxBodyBytes)(root)
	root = middleware.ValidateJSONContentType(log)(root)
	root = middleware.AuditMiddleware(auditLogger)(root)
	root = middleware.RateLimitMiddleware(rateLimiter, cfg.AuthRateLimit, time.Minute, log)(root)
	root = middleware.JWTMiddleware(tokenManager, log)(root)
	root = middleware.CORS(cfg.CORSAllowedOrigins)(root)
	root = middleware.RequestID(log)(root)
	root = otelhttp.NewHandler(root, "agenticos")

	// 10. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("database", string(db.Driver())),
		slog.Bool("change_relay", redisClient != nil),
		slog.Int("rate_limit", cfg.RateLimitRequests),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
