package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"videoGateway/cache"
	"videoGateway/config"
	"videoGateway/events"
	"videoGateway/fetch"
	"videoGateway/ffmpeg"
	"videoGateway/handlers"
	"videoGateway/jobs"
	"videoGateway/middleware"
	"videoGateway/probe"
	"videoGateway/service"
	"videoGateway/store"
	"videoGateway/thumbnail"
)

const janitorInterval = 10 * time.Minute

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("Gateway starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	if err := os.MkdirAll(cfg.ScratchDir, 0755); err != nil {
		logger.Fatal("Failed to create scratch dir", zap.Error(err))
	}

	artifacts, err := store.NewArtifactStore(cfg.OutputDir, logger)
	if err != nil {
		logger.Fatal("Failed to create artifact store", zap.Error(err))
	}

	var statusCache *cache.StatusCache
	if cfg.RedisAddr != "" {
		statusCache, err = cache.Connect(cfg.RedisAddr)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer statusCache.Close()
	}

	var feed *events.Producer
	if cfg.KafkaBrokers != "" {
		feed, err = events.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		if err != nil {
			logger.Fatal("Failed to connect to kafka", zap.Error(err))
		}
		defer feed.Close()
	}

	manager := jobs.NewManager(logger, statusCache, feed, cfg.MaxActiveJobs, cfg.JobTTL)
	if cfg.JobTTL <= 0 {
		logger.Warn("Job eviction disabled; job table and artifact directory grow without bound")
	}

	fetcher := fetch.NewFetcher(logger, cfg.FetchConnectTimeout, cfg.FetchReadTimeout)
	prober := probe.NewProber(logger)
	encoder := ffmpeg.NewEncoder(logger)
	thumbs := thumbnail.NewGenerator(encoder, logger)
	pipeline := service.NewPipeline(fetcher, prober, encoder, thumbs, artifacts, cfg.ScratchDir, logger)

	gateway := handlers.NewGateway(manager, pipeline, artifacts, cfg.ScratchDir, cfg.MaxUploadSize, logger)

	mux := http.NewServeMux()
	gateway.Register(mux)

	handler := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(
				middleware.NoStore(mux))))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		manager.Janitor(ctx, janitorInterval, func(jobID string) {
			if err := artifacts.Delete(jobID); err != nil {
				logger.Warn("Artifact cleanup failed", zap.String("job_id", jobID), zap.Error(err))
			}
		})
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server shutdown failed", zap.Error(err))
		}
		return manager.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("Gateway exited", zap.Error(err))
	}
	logger.Info("Gateway stopped")
}
