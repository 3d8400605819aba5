package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/phambaophuc/media-compress/internal/config"
	"github.com/phambaophuc/media-compress/internal/services/processor"
	"github.com/phambaophuc/media-compress/internal/services/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Optimize documents received over RabbitMQ",
	Long: `Consume document optimization jobs from RABBITMQ_QUEUE and reply with
the optimized PDF. Each consumer is paced by WORKER_MAX_PER_SECOND.

Examples:
  # Run four consumers
  server worker --concurrency 4`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "number of consumers (default COMPRESSION_WORKERS)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RabbitMQ.URL == "" {
		return errors.New("RABBITMQ_URL is required to run a worker")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	q, err := queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
	if err != nil {
		return err
	}
	defer q.Close()

	if stats, err := q.Stats(); err == nil {
		logger.Info("Queue ready",
			zap.String("queue", stats.Name),
			zap.Int("waiting", stats.Messages),
			zap.Int("consumers", stats.Consumers),
		)
	}

	concurrency := workerConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Compression.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := queue.NewWorker(q, processor.NewStrongOptimizer(cfg.Compression.DocumentImageQuality), cfg.RabbitMQ.MaxPerSecond, cfg.RabbitMQ.RPCTimeout)

	g, ctx := errgroup.WithContext(ctx)
	for i := 1; i <= concurrency; i++ {
		g.Go(func() error {
			return worker.Start(ctx, i, cfg.RabbitMQ.Prefetch)
		})
	}

	err = g.Wait()
	logger.Info("Workers exited", zap.Error(err))
	return err
}
