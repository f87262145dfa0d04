package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/app"
	"github.com/kailas-cloud/jobrec/internal/config"
	logpkg "github.com/kailas-cloud/jobrec/internal/logger"
	"github.com/kailas-cloud/jobrec/internal/metrics"
	amqpTransport "github.com/kailas-cloud/jobrec/internal/transport/amqp"
	chiTransport "github.com/kailas-cloud/jobrec/internal/transport/chi"
	healthuc "github.com/kailas-cloud/jobrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/jobrec/internal/usecase/recommend"
	"github.com/kailas-cloud/jobrec/internal/version"
)

func main() {
	// .env is optional; real environment wins
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

	logger.Info("Starting jobrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("artifacts_driver", cfg.Artifacts.Driver),
		zap.Bool("cache", cfg.Recommend.Cache),
		zap.Bool("events", cfg.Events.Enabled()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterRecommendMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := app.New(cfg, logger)
	defer deps.Close()

	store, err := deps.ArtifactStore(ctx)
	if err != nil {
		logger.Fatal("Failed to open artifact store", zap.Error(err))
	}

	// Pass nil interfaces (not typed nil pointers) when the cache is off.
	var (
		cache  recommenduc.Cache
		pinger healthuc.CachePinger
	)
	resultCache, err := deps.ResultCache(ctx)
	if err != nil {
		logger.Fatal("Failed to open result cache", zap.Error(err))
	}
	if resultCache != nil {
		cache = resultCache
		redis, err := deps.Redis(ctx)
		if err != nil {
			logger.Fatal("Failed to open database", zap.Error(err))
		}
		pinger = redis
	}

	recSvc := recommenduc.New(store, cache, logger.Named("recommend"))
	if err := recSvc.Load(ctx); err != nil {
		logger.Fatal("Failed to load recommendation artifact", zap.Error(err))
	}
	healthSvc := healthuc.New(recSvc, pinger)

	if cfg.Events.Enabled() {
		conn, err := amqpTransport.Dial(cfg.Events.AMQPURL)
		if err != nil {
			logger.Fatal("Failed to connect to broker", zap.Error(err))
		}
		defer func() { _ = conn.Close() }()

		sub := amqpTransport.NewSubscriber(conn, cfg.Events.Exchange, recSvc, logger.Named("events"))
		go func() {
			if err := sub.Run(ctx); err != nil {
				logger.Error("Artifact event subscription stopped", zap.Error(err))
			}
		}()
	}

	server := chiTransport.NewServer(recSvc, healthSvc, chiTransport.Options{
		Limits:    cfg.Recommend.Limits(),
		MaxUpload: int64(cfg.HTTP.MaxUploadMB) << 20,
		APIKeys:   cfg.Auth.APIKeys,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
