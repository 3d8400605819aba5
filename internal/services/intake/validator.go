// Package intake enforces batch and per-file constraints before any processing.
package intake

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phambaophuc/media-compress/internal/models"
	"go.uber.org/zap"
)

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/bmp",
	"image/tiff",
}

var allowedDocumentTypes = []string{
	models.ContentTypePDF,
}

type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

type Validator struct {
	kind   models.MediaKind
	limits Limits
	logger *zap.Logger
}

func NewValidator(kind models.MediaKind, limits Limits, logger *zap.Logger) *Validator {
	return &Validator{kind: kind, limits: limits, logger: logger}
}

func (v *Validator) Limits() Limits { return v.limits }

// Validate fails the whole batch on batch-level violations and silently drops
// oversized or mistyped items. Dropping every item is a batch failure.
func (v *Validator) Validate(batch *models.UploadBatch) (models.IntakeResult, error) {
	switch {
	case len(batch.Items) == 0:
		return models.IntakeResult{}, models.NewError(models.KindValidationFailed, "no files provided", nil)
	case len(batch.Items) > v.limits.MaxFiles:
		return models.IntakeResult{}, models.NewError(models.KindValidationFailed,
			fmt.Sprintf("too many files: %d exceeds the limit of %d per batch", len(batch.Items), v.limits.MaxFiles), nil)
	}

	v.normalizeFormat(batch)

	result := models.IntakeResult{Accepted: make([]models.SourceItem, 0, len(batch.Items))}
	for _, item := range batch.Items {
		size := int64(len(item.Data))
		if size > v.limits.MaxFileSize || item.SizeBytes > v.limits.MaxFileSize {
			v.logger.Info("Skipping oversized file",
				zap.String("name", item.Name),
				zap.Int64("size", size),
				zap.Int64("max_size", v.limits.MaxFileSize),
			)
			result.RejectedCount++
			continue
		}

		detected := mimetype.Detect(item.Data)
		if !v.allowed(detected) {
			v.logger.Info("Skipping file with unsupported content",
				zap.String("name", item.Name),
				zap.String("declared", item.MIMEType),
				zap.String("detected", detected.String()),
			)
			result.RejectedCount++
			continue
		}

		item.MIMEType = detected.String()
		item.SizeBytes = size
		result.Accepted = append(result.Accepted, item)
	}

	if len(result.Accepted) == 0 {
		return result, models.NewError(models.KindValidationFailed,
			fmt.Sprintf("no valid files: all %d files exceed %d bytes or have an unsupported type", result.RejectedCount, v.limits.MaxFileSize), nil)
	}

	return result, nil
}

func (v *Validator) normalizeFormat(batch *models.UploadBatch) {
	if v.kind == models.MediaDocument {
		batch.Format = models.FormatPDF
		return
	}
	if !batch.Format.IsImage() {
		batch.Format = models.DefaultImageFormat
	}
}

func (v *Validator) allowed(m *mimetype.MIME) bool {
	types := allowedImageTypes
	if v.kind == models.MediaDocument {
		types = allowedDocumentTypes
	}
	for _, t := range types {
		if m.Is(t) {
			return true
		}
	}
	return false
}
