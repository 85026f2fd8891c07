package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/caredesk-cloud/caredesk/internal/config"
	"github.com/caredesk-cloud/caredesk/internal/db"
	dbRedis "github.com/caredesk-cloud/caredesk/internal/db/redis"
	"github.com/caredesk-cloud/caredesk/internal/domain"
	logpkg "github.com/caredesk-cloud/caredesk/internal/logger"
	"github.com/caredesk-cloud/caredesk/internal/metrics"
	"github.com/caredesk-cloud/caredesk/internal/repository/embcache"
	indexrepo "github.com/caredesk-cloud/caredesk/internal/repository/index"
	ownershiprepo "github.com/caredesk-cloud/caredesk/internal/repository/ownership"
	trendrepo "github.com/caredesk-cloud/caredesk/internal/repository/trend"
	chiTransport "github.com/caredesk-cloud/caredesk/internal/transport/chi"
	openaiTransport "github.com/caredesk-cloud/caredesk/internal/transport/openai"
	embeddinguc "github.com/caredesk-cloud/caredesk/internal/usecase/embedding"
	healthuc "github.com/caredesk-cloud/caredesk/internal/usecase/health"
	indexuc "github.com/caredesk-cloud/caredesk/internal/usecase/index"
	retrievaluc "github.com/caredesk-cloud/caredesk/internal/usecase/retrieval"
	sentimentuc "github.com/caredesk-cloud/caredesk/internal/usecase/sentiment"
	trenduc "github.com/caredesk-cloud/caredesk/internal/usecase/trend"
	"github.com/caredesk-cloud/caredesk/internal/version"
)

func main() {
	// .env is optional; config values can reference ${VAR} placeholders
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting caredesk API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterInferenceMetrics()

	// Build embedder chain (composition root)
	embedder := buildEmbedder(cfg, store, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	classifier := openaiTransport.NewClassifier(&openaiTransport.ClassifierConfig{
		APIKey:  cfg.Sentiment.APIKey,
		BaseURL: cfg.Sentiment.BaseURL,
		Model:   cfg.Sentiment.Model,
		Timeout: time.Duration(cfg.Sentiment.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Create repositories (domain-native, no adapters)
	prefix := cfg.Storage.KeyPrefix
	idxRepo := indexrepo.New(store, prefix, cfg.Embedding.Dimensions).WithHNSW(indexrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	ownRepo := ownershiprepo.New(store, prefix)
	trRepo := trendrepo.New(store, prefix)

	// Create use case services
	embeddingSvc := embeddinguc.New(embedder, logger)
	indexSvc := indexuc.New(idxRepo, ownRepo, embeddingSvc, cfg.Embedding.Dimensions, logger).
		WithMaxBatchSize(cfg.Index.MaxBatchSize)
	retrievalSvc := retrievaluc.New(idxRepo, embeddingSvc, logger).
		WithTopKLimits(cfg.Index.DefaultTopK, cfg.Index.MaxTopK)
	sentimentSvc := sentimentuc.New(classifier, logger)
	trendSvc := trenduc.New(trRepo, logger)
	healthSvc := healthuc.New(store, newBackendHealthChecker(embedder), classifier)

	server := chiTransport.NewServer(indexSvc, retrievalSvc, sentimentSvc, trendSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		cacheTTL := time.Duration(cfg.Embedding.CacheTTL) * time.Second
		embedder = embcache.New(base, store, cfg.Storage.KeyPrefix, cacheTTL, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, 0, logger)
}

// backendHealthChecker wraps domain.Embedder to implement health.BackendChecker.
type backendHealthChecker struct {
	embedder domain.Embedder
}

func newBackendHealthChecker(embedder domain.Embedder) *backendHealthChecker {
	return &backendHealthChecker{embedder: embedder}
}

func (h *backendHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
