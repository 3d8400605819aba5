package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/compressor"
	"github.com/phambaophuc/media-compress/internal/services/ratelimit"
	"go.uber.org/zap"
)

// multipartMemory is how much of a form is buffered in memory before spilling to disk.
const multipartMemory = 32 << 20

// fileFieldKeys are the multipart fields that may carry files.
var fileFieldKeys = []string{"files", "file", "images", "image", "documents", "document"}

// === REQUEST PARSING ===

func (h *CompressHandler) parseBatch(c *gin.Context, svc *compressor.Service) (*models.UploadBatch, error) {
	limits := svc.Validator().Limits()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(limits.MaxFiles)*limits.MaxFileSize+multipartMemory)

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, multipartError(err)
	}

	var form models.CompressForm
	if err := c.ShouldBind(&form); err != nil {
		return nil, models.NewError(models.KindValidationFailed, validationMessage(err), err)
	}

	headers := collectFiles(c.Request.MultipartForm)
	if len(headers) > limits.MaxFiles {
		// Fail before reading any payload.
		return nil, models.NewError(models.KindValidationFailed,
			fmt.Sprintf("too many files: %d exceeds the limit of %d per batch", len(headers), limits.MaxFiles), nil)
	}

	items, err := readItems(headers, limits.MaxFileSize)
	if err != nil {
		return nil, err
	}

	format := models.FormatPDF
	if svc.Kind() == models.MediaImage {
		format, _ = models.ParseImageFormat(form.Format)
	}

	return &models.UploadBatch{
		Kind:      svc.Kind(),
		Requester: ratelimit.ClientIdentity(c.Request),
		Format:    format,
		Quality:   h.parseQuality(form.Quality),
		Items:     items,
		CreatedAt: time.Now(),
	}, nil
}

func (h *CompressHandler) parseQuality(value string) int {
	if value == "" {
		return h.defaultQuality
	}

	quality, err := strconv.Atoi(value)
	if err != nil || quality < 1 || quality > 100 {
		return h.defaultQuality
	}

	return quality
}

func collectFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	var headers []*multipart.FileHeader
	for _, key := range fileFieldKeys {
		headers = append(headers, form.File[key]...)
	}
	return headers
}

// readItems loads at most maxSize+1 bytes per file; anything longer is
// oversized and will be dropped by intake without holding it in memory.
func readItems(headers []*multipart.FileHeader, maxSize int64) ([]models.SourceItem, error) {
	items := make([]models.SourceItem, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, models.NewError(models.KindInternal, "failed to read uploaded file", err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
		f.Close()
		if err != nil {
			return nil, models.NewError(models.KindInternal, "failed to read uploaded file", err)
		}

		items = append(items, models.SourceItem{
			Name:      fh.Filename,
			MIMEType:  fh.Header.Get("Content-Type"),
			SizeBytes: max(fh.Size, int64(len(data))),
			Data:      data,
		})
	}
	return items, nil
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return models.NewError(models.KindValidationFailed, "request body exceeds the maximum allowed size", err)
	}
	if errors.Is(err, http.ErrNotMultipart) {
		return models.NewError(models.KindValidationFailed, "invalid content type, expected multipart/form-data", err)
	}
	return models.NewError(models.KindValidationFailed, "failed to parse form data", err)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid form data"
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "numeric":
			msgs = append(msgs, field+" must be a number")
		case "max":
			msgs = append(msgs, field+" is too long")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// === RESPONSE HANDLING ===

func (h *CompressHandler) respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	status := kind.HTTPStatus()

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("error_kind", kind.String()), zap.Error(err))
	} else {
		h.logger.Info("Request rejected", zap.String("error_kind", kind.String()), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: models.PublicMessage(err)})
}

func (h *CompressHandler) respondDeliverable(c *gin.Context, d *models.Deliverable) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("X-Rejected-Count", strconv.Itoa(d.Rejected))
	c.Header("X-Failed-Count", strconv.Itoa(d.Failed))

	if d.ContentType != models.ContentTypeZIP && len(d.Items) > 0 {
		r := d.Items[0]
		c.Header("X-Original-Size", strconv.FormatInt(r.OriginalSize, 10))
		c.Header("X-Compressed-Size", strconv.FormatInt(r.FinalSize, 10))
		c.Header("X-Reduction-Percent", strconv.FormatFloat(r.ReductionPercent, 'f', 1, 64))
		if r.ProcessingMode != "" {
			c.Header("X-Processing-Mode", string(r.ProcessingMode))
		}
	}

	if report, err := json.Marshal(d.Items); err == nil {
		c.Header("X-Compression-Report", base64.StdEncoding.EncodeToString(report))
	} else {
		h.logger.Warn("Failed to encode compression report", zap.Error(err))
	}

	c.Data(http.StatusOK, d.ContentType, d.Data)
}

// === UTILITY METHODS ===

func (h *CompressHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}
