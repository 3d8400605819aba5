package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/media-compress/internal/http/handlers"
	"github.com/phambaophuc/media-compress/internal/http/middleware"
	"github.com/phambaophuc/media-compress/internal/metrics"
	"github.com/phambaophuc/media-compress/internal/services/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	compressHandler *handlers.CompressHandler
	imageLimiter    *ratelimit.Limiter
	documentLimiter *ratelimit.Limiter
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	logger          *zap.Logger
}

func NewRouter(
	compressHandler *handlers.CompressHandler,
	imageLimiter *ratelimit.Limiter,
	documentLimiter *ratelimit.Limiter,
	metrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Router {
	return &Router{
		compressHandler: compressHandler,
		imageLimiter:    imageLimiter,
		documentLimiter: documentLimiter,
		metrics:         metrics,
		gatherer:        gatherer,
		logger:          logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.compressHandler.HealthCheck)

		images := v1.Group("/images")
		{
			images.POST("/compress",
				middleware.RateLimit(r.imageLimiter, r.metrics),
				middleware.ValidateContentType(),
				r.compressHandler.CompressImages,
			)
		}

		documents := v1.Group("/documents")
		{
			documents.GET("/processing-mode", r.compressHandler.ProcessingMode)
			documents.POST("/compress",
				middleware.RateLimit(r.documentLimiter, r.metrics),
				middleware.ValidateContentType(),
				r.compressHandler.CompressDocuments,
			)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Media compression is running",
		})
	})

	return router
}
