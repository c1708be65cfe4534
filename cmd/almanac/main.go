package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/almanac-etl-service/internal/adapter/cache"
	"github.com/couchcryptid/almanac-etl-service/internal/adapter/gemini"
	"github.com/couchcryptid/almanac-etl-service/internal/adapter/goodday"
	"github.com/couchcryptid/almanac-etl-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/almanac-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/almanac-etl-service/internal/adapter/zangli"
	"github.com/couchcryptid/almanac-etl-service/internal/config"
	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/couchcryptid/almanac-etl-service/internal/observability"
	"github.com/couchcryptid/almanac-etl-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// alwaysReady reports readiness when the Kafka pipeline is disabled and the
// service only answers HTTP requests.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	source := goodday.NewClient(cfg.AlmanacBaseURL, cfg.UserAgent, cfg.AlmanacTimeout, cfg.AlmanacRateLimit, metrics, logger)
	opts := []pipeline.Option{
		pipeline.WithCache(store),
		pipeline.WithCooldown(cfg.CommentaryCooldown),
	}

	// Commentary is feature-flagged via GEMINI_ENABLED / GEMINI_API_KEY.
	if cfg.GeminiEnabled {
		commentator, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.GeminiTemperature,
			Timeout:     cfg.GeminiTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithCommentator(commentator), pipeline.WithFortuneTeller(commentator))
	} else {
		logger.Info("gemini commentary disabled")
	}

	if cfg.TibetanLookupEnabled {
		lookup := zangli.NewClient(cfg.TibetanBaseURL, cfg.UserAgent, cfg.TibetanTimeout, cfg.AlmanacRateLimit, metrics, logger)
		opts = append(opts, pipeline.WithObservanceLookup(lookup))
		logger.Info("tibetan observance lookup enabled", "base_url", cfg.TibetanBaseURL)
	}

	transformer := pipeline.NewTransformer(source, metrics, logger, opts...)

	var (
		ready  sharedobs.ReadinessChecker = alwaysReady{}
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		ready = p

		// Start ETL pipeline.
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, transformer, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openCache builds the configured cache backend and its close function.
func openCache(cfg *config.Config, logger *slog.Logger) (domain.Cache, func(), error) {
	if cfg.CacheBackend == config.CacheBadger {
		b, err := cache.OpenBadger(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("badger cache opened", "path", cfg.CachePath)
		return b, func() {
			if err := b.Close(); err != nil {
				logger.Error("cache close error", "error", err)
			}
		}, nil
	}
	logger.Info("memory cache enabled", "size", cfg.CacheSize)
	return cache.NewMemory(cfg.CacheSize), func() {}, nil
}
