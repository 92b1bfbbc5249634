package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/climate-trend-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-trend-etl/internal/adapter/kafka"
	"github.com/couchcryptid/climate-trend-etl/internal/config"
	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	"github.com/couchcryptid/climate-trend-etl/internal/observability"
	"github.com/couchcryptid/climate-trend-etl/internal/pipeline"
	"github.com/couchcryptid/climate-trend-etl/internal/store"
	"github.com/couchcryptid/climate-trend-etl/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var story domain.Story
	if cfg.StoryFile != "" {
		story, err = domain.LoadStory(cfg.StoryFile)
		if err != nil {
			logger.Error("failed to load story", "path", cfg.StoryFile, "error", err)
			os.Exit(1)
		}
		logger.Info("story loaded", "path", cfg.StoryFile, "steps", len(story))
	}

	fields := make([]domain.FieldName, len(cfg.SmoothingFields))
	for i, f := range cfg.SmoothingFields {
		fields[i] = domain.FieldName(f)
	}

	series := store.New()
	views := view.NewService(series, story, cfg.ViewCacheSize, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(series, cfg.SmoothingWindow, fields, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, views, cfg.SmoothingWindow, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("climate trend etl started",
		"window", cfg.SmoothingWindow,
		"fields", cfg.SmoothingFields,
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
