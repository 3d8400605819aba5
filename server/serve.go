package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/media-compress/internal/config"
	"github.com/phambaophuc/media-compress/internal/http/handlers"
	"github.com/phambaophuc/media-compress/internal/http/routes"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP compression API",
	Long: `Run the HTTP compression API.

Configuration comes from the environment and an optional .env file.
When RABBITMQ_URL is set, large documents are sent to "server worker"
processes; otherwise they are optimized in-process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize services
	p := newPipeline(cfg, logger, true)
	defer p.Close()

	imageLimiter, documentLimiter, storeProbe, closeStore, err := p.limiters()
	if err != nil {
		return err
	}
	defer closeStore()

	// Initialize handlers
	compressHandler := handlers.NewCompressHandler(p.images, p.documents, cfg.Compression.DefaultQuality,
		map[string]handlers.HealthProbe{
			"rate_limiter": storeProbe,
			"queue":        p.queueProbe,
		}, logger)

	router := routes.NewRouter(compressHandler, imageLimiter, documentLimiter, p.metrics, p.registry, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend),
			zap.Bool("remote_documents", p.queue != nil),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("Server failed to start", zap.Error(err))
		return err
	}

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}
