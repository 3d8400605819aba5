package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/compressor"
	"go.uber.org/zap"
)

// HealthProbe reports the status of one dependency, "healthy" when fine.
type HealthProbe func(ctx context.Context) string

type CompressHandler struct {
	images         *compressor.Service
	documents      *compressor.Service
	defaultQuality int
	probes         map[string]HealthProbe
	logger         *zap.Logger
}

func NewCompressHandler(
	images *compressor.Service,
	documents *compressor.Service,
	defaultQuality int,
	probes map[string]HealthProbe,
	logger *zap.Logger,
) *CompressHandler {
	return &CompressHandler{
		images:         images,
		documents:      documents,
		defaultQuality: defaultQuality,
		probes:         probes,
		logger:         logger,
	}
}

// === MAIN API ENDPOINTS ===

func (h *CompressHandler) CompressImages(c *gin.Context) {
	h.compress(c, h.images)
}

func (h *CompressHandler) CompressDocuments(c *gin.Context) {
	h.compress(c, h.documents)
}

// ProcessingMode tells a caller where a document of the given size would be
// optimized, without uploading it.
func (h *CompressHandler) ProcessingMode(c *gin.Context) {
	size, err := strconv.ParseInt(c.Query("size"), 10, 64)
	if err != nil || size < 0 {
		h.respondError(c, models.NewError(models.KindValidationFailed, "size must be a non-negative integer", err))
		return
	}

	selector := h.documents.Selector()
	c.JSON(http.StatusOK, models.ProcessingModeResponse{
		ProcessingMode: selector.Select(models.MediaDocument, size).Mode(),
		ThresholdBytes: selector.Threshold,
	})
}

// HealthCheck
func (h *CompressHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string, len(h.probes))
	for name, probe := range h.probes {
		services[name] = probe(c.Request.Context())
	}
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

// === PROCESSING LOGIC ===

func (h *CompressHandler) compress(c *gin.Context, svc *compressor.Service) {
	batch, err := h.parseBatch(c, svc)
	if err != nil {
		h.respondError(c, err)
		return
	}

	deliverable, err := svc.Process(c.Request.Context(), batch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondDeliverable(c, deliverable)
}
