package main

import (
	"context"
	"fmt"
	"time"

	"github.com/phambaophuc/media-compress/internal/config"
	"github.com/phambaophuc/media-compress/internal/http/handlers"
	"github.com/phambaophuc/media-compress/internal/metrics"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/bundle"
	"github.com/phambaophuc/media-compress/internal/services/compressor"
	"github.com/phambaophuc/media-compress/internal/services/intake"
	"github.com/phambaophuc/media-compress/internal/services/location"
	"github.com/phambaophuc/media-compress/internal/services/processor"
	"github.com/phambaophuc/media-compress/internal/services/queue"
	"github.com/phambaophuc/media-compress/internal/services/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthy = "healthy"

// pipeline is everything needed to compress a batch, with or without HTTP.
type pipeline struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	images    *compressor.Service
	documents *compressor.Service
	queue     *queue.QueueService
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newPipeline wires the compression services. With useQueue set and RabbitMQ
// configured, large documents go to remote workers; otherwise they are
// optimized in-process.
func newPipeline(cfg *config.Config, logger *zap.Logger, useQueue bool) *pipeline {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	p := &pipeline{cfg: cfg, logger: logger, registry: registry, metrics: m}

	var remote processor.DocumentOptimizer = processor.NewStrongOptimizer(cfg.Compression.DocumentImageQuality)
	if useQueue && cfg.RabbitMQ.URL != "" {
		q, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Warn("Failed to initialize queue service, optimizing documents in-process", zap.Error(err))
		} else if ro, err := queue.NewRemoteOptimizer(q, cfg.RabbitMQ.RPCTimeout); err != nil {
			logger.Warn("Failed to initialize remote optimizer, optimizing documents in-process", zap.Error(err))
			q.Close()
		} else {
			p.queue = q
			remote = ro
		}
	}

	opts := processor.Options{
		MinQuality:  cfg.Compression.MinQuality,
		QualityStep: cfg.Compression.QualityStep,
		MaxAttempts: cfg.Compression.MaxAttempts,
	}
	proc := processor.NewImageProcessor(opts, processor.LightOptimizer{}, remote, logger)
	selector := location.NewSelector(cfg.Limits.DocumentRemoteThreshold)
	svcOpts := compressor.Options{Workers: cfg.Compression.Workers, Timeout: cfg.Server.BatchTimeout}

	p.images = compressor.NewService(
		models.MediaImage,
		intake.NewValidator(models.MediaImage, intake.Limits{
			MaxFiles:    cfg.Limits.MaxBatchFiles,
			MaxFileSize: cfg.Limits.MaxImageFileSize,
		}, logger),
		selector,
		proc,
		bundle.NewBundler(bundle.ImageArchiveName),
		svcOpts,
		m,
		logger,
	)
	p.documents = compressor.NewService(
		models.MediaDocument,
		intake.NewValidator(models.MediaDocument, intake.Limits{
			MaxFiles:    cfg.Limits.MaxBatchFiles,
			MaxFileSize: cfg.Limits.MaxDocumentFileSize,
		}, logger),
		selector,
		proc,
		bundle.NewBundler(bundle.DocumentArchiveName),
		svcOpts,
		m,
		logger,
	)

	return p
}

func (p *pipeline) Close() {
	if p.queue != nil {
		p.queue.Close()
	}
}

// limiters builds the image and document limiters over one shared store and
// returns the health probe for that store.
func (p *pipeline) limiters() (images, documents *ratelimit.Limiter, probe handlers.HealthProbe, closeFn func(), err error) {
	cfg := p.cfg

	var store ratelimit.Store
	switch cfg.RateLimit.Backend {
	case config.RateLimitRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs := ratelimit.NewRedisStore(client, cfg.RateLimit.Prefix)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			// Admission fails open, so the service can still start.
			p.logger.Warn("Redis unavailable, rate limiting is disabled until it recovers", zap.Error(err))
		}

		store = rs
		probe = func(ctx context.Context) string {
			if err := rs.Ping(ctx); err != nil {
				return "unhealthy: " + err.Error()
			}
			return healthy
		}
		closeFn = func() { client.Close() }
	case config.RateLimitMemory:
		ms := ratelimit.NewMemoryStore(cfg.Limits.Window)
		store = ms
		probe = func(context.Context) string { return healthy }
		closeFn = ms.Close
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}

	images = ratelimit.NewLimiter("images", ratelimit.Policy{
		Limit:  cfg.Limits.ImageRequestsPerWindow,
		Window: cfg.Limits.Window,
	}, store, p.logger)
	documents = ratelimit.NewLimiter("documents", ratelimit.Policy{
		Limit:  cfg.Limits.DocumentRequestsPerWindow,
		Window: cfg.Limits.Window,
	}, store, p.logger)

	return images, documents, probe, closeFn, nil
}

func (p *pipeline) queueProbe(context.Context) string {
	if p.queue == nil {
		return "not configured"
	}
	return p.queue.HealthCheck()
}
