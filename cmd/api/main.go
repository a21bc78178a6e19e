// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hearsayhq/hearsay/internal/api"
	"github.com/hearsayhq/hearsay/internal/auth"
	"github.com/hearsayhq/hearsay/internal/config"
	"github.com/hearsayhq/hearsay/internal/example"
	"github.com/hearsayhq/hearsay/internal/figure"
	"github.com/hearsayhq/hearsay/internal/health"
	"github.com/hearsayhq/hearsay/internal/listing"
	"github.com/hearsayhq/hearsay/internal/middleware"
	"github.com/hearsayhq/hearsay/internal/scoring"
	"github.com/hearsayhq/hearsay/internal/tracing"
	"github.com/hearsayhq/hearsay/internal/upload"
	"github.com/hearsayhq/hearsay/internal/vote"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Hearsay API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	params := &scoring.Params{
		Z:                   cfg.RankingZ,
		VisibilityThreshold: cfg.VisibilityThreshold,
		PageSize:            cfg.PageSize,
	}

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "hearsay-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown tracer provider", "error", err)
		}
	}()

	// Metrics registry: Go runtime collectors plus application metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}
	voteMetrics := vote.NewMetrics()
	if err := voteMetrics.Register(registry); err != nil {
		logger.Error("failed to register vote metrics", "error", err)
		os.Exit(1)
	}

	// Repositories: Postgres when a DATABASE_URL is configured, otherwise
	// in-memory for local development.
	var (
		figures   figure.Repository
		examples  example.Repository
		votes     vote.Repository
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("database not reachable at startup", "error", err)
		}
		cancel()

		figures = figure.NewPostgresRepository(db, logger)
		examples = example.NewPostgresRepository(db, logger)
		votes = vote.NewPostgresRepository(db, params, logger).WithMetrics(voteMetrics)
		dbChecker = health.NewDBChecker(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		figures = figure.NewInMemoryRepository()
		exampleRepo := example.NewInMemoryRepository()
		examples = exampleRepo
		votes = vote.NewInMemoryRepository(params, exampleRepo).WithMetrics(voteMetrics)
	}

	// Rate limit store: Redis when configured, in-memory otherwise.
	var (
		rateLimitStore middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithLogger(logger)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		store := middleware.NewInMemoryRateLimitStore()
		stopCleanup := make(chan struct{})
		defer close(stopCleanup)
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					store.Cleanup()
				case <-stopCleanup:
					return
				}
			}
		}()
		rateLimitStore = store
	}

	globalLimit := middleware.RateLimitConfig{RequestsPerWindow: cfg.GlobalRateLimit, WindowDuration: time.Minute}
	voteLimit := middleware.RateLimitConfig{RequestsPerWindow: cfg.VoteRateLimit, WindowDuration: time.Minute}
	submitLimit := middleware.RateLimitConfig{RequestsPerWindow: cfg.SubmitRateLimit, WindowDuration: time.Minute}

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	listingService := listing.NewService(examples, votes, params, logger)

	figureHandlers := api.NewFigureHandlers(figures, listingService)
	exampleHandlers := api.NewExampleHandlers(examples, figures, listingService)
	voteHandlers := api.NewVoteHandlers(votes, examples)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	voteLimiter := middleware.RateLimiter(rateLimitStore, voteLimit, middleware.UserKeyFunc(), httpMetrics)
	submitLimiter := middleware.RateLimiter(rateLimitStore, submitLimit, middleware.UserKeyFunc(), httpMetrics)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /figures", figureHandlers.ListFigures)
	mux.Handle("POST /figures", submitLimiter(middleware.RequireAuth(http.HandlerFunc(figureHandlers.CreateFigure))))
	mux.HandleFunc("GET /figures/{slug}", figureHandlers.GetFigure)
	mux.HandleFunc("GET /figures/{slug}/examples", exampleHandlers.ListExamples)

	mux.Handle("POST /examples", submitLimiter(middleware.RequireAuth(http.HandlerFunc(exampleHandlers.CreateExample))))
	mux.HandleFunc("GET /examples/{id}", exampleHandlers.GetExample)
	mux.Handle("DELETE /examples/{id}", middleware.RequireAuth(http.HandlerFunc(exampleHandlers.DeleteExample)))

	mux.HandleFunc("GET /examples/{id}/vote", voteHandlers.GetVote)
	mux.Handle("PUT /examples/{id}/vote", voteLimiter(middleware.RequireAuth(http.HandlerFunc(voteHandlers.CastVote))))
	mux.Handle("DELETE /examples/{id}/vote", voteLimiter(middleware.RequireAuth(http.HandlerFunc(voteHandlers.RemoveVote))))

	// Portrait uploads only mount when R2 is configured.
	if cfg.UploadsEnabled() {
		uploadService, err := upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.R2BucketName,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
			MaxSizeMB:       cfg.R2MaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to create upload service", "error", err)
			os.Exit(1)
		}
		uploadHandlers := api.NewUploadHandlers(uploadService)
		mux.Handle("POST /uploads/figure-portrait", submitLimiter(middleware.RequireAuth(http.HandlerFunc(uploadHandlers.SignUpload))))
	} else {
		logger.Info("R2 not configured, portrait uploads disabled")
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"hearsay-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain, outermost first:
	// RequestID -> Logging -> Tracing -> CORS -> HTTPMetrics ->
	// global rate limit -> Authenticate -> Profiling.
	var handler http.Handler = mux
	// pprof endpoints mount in development only.
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.Env == "development",
		Environment: cfg.Env,
	})(handler)
	handler = middleware.Authenticate(jwtService)(handler)
	handler = middleware.RateLimiter(rateLimitStore, globalLimit, middleware.IPKeyFunc(), httpMetrics)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("hearsay-api")(handler)
	}
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
