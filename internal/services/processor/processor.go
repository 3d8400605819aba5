// Package processor turns source items into compressed items.
package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultQuality     = 80
	DefaultMinQuality  = 5
	DefaultQualityStep = 0.85
	DefaultMaxAttempts = 6
)

type Options struct {
	MinQuality  int
	QualityStep float64
	MaxAttempts int
}

func DefaultOptions() Options {
	return Options{
		MinQuality:  DefaultMinQuality,
		QualityStep: DefaultQualityStep,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// DocumentOptimizer rewrites a PDF. Implementations may return output larger
// than the input; the caller decides whether to keep it.
type DocumentOptimizer interface {
	Optimize(ctx context.Context, data []byte) ([]byte, error)
}

// ImageProcessor is the adaptive compression engine.
type ImageProcessor struct {
	opts       Options
	transcoder *Transcoder
	local      DocumentOptimizer
	remote     DocumentOptimizer
	logger     *zap.Logger
}

func NewImageProcessor(opts Options, local, remote DocumentOptimizer, logger *zap.Logger) *ImageProcessor {
	return &ImageProcessor{
		opts:       opts,
		transcoder: NewTranscoder(),
		local:      local,
		remote:     remote,
		logger:     logger,
	}
}

// CompressImage re-encodes item as format, lowering quality geometrically until
// the output is smaller than the source. If no attempt is smaller the source
// bytes are returned unchanged.
func (p *ImageProcessor) CompressImage(ctx context.Context, item models.SourceItem, format models.Format, quality int) (*models.CompressedItem, error) {
	img, err := decodeRaster(item.Data)
	if err != nil {
		return nil, models.NewError(models.KindDecodeFailed, fmt.Sprintf("could not decode %s", item.Name), err)
	}

	originalSize := int64(len(item.Data))
	attempts, best, err := p.searchQuality(ctx, p.encoderFor(img, format), quality, originalSize)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, models.NewError(models.KindTimeout, "compression timed out", err)
		}
		return nil, models.NewError(models.KindEncodeFailed, fmt.Sprintf("could not encode %s as %s", item.Name, format), err)
	}

	if best == nil {
		p.logger.Info("No attempt beat the original, keeping source bytes",
			zap.String("name", item.Name),
			zap.Int("attempts", len(attempts)),
			zap.Int64("original_size", originalSize),
		)
		return keepOriginal(item, len(attempts), ""), nil
	}

	last := attempts[len(attempts)-1]
	p.logger.Debug("Image compressed",
		zap.String("name", item.Name),
		zap.String("format", string(format)),
		zap.Int("quality", last.QualityUsed),
		zap.Int("attempts", len(attempts)),
		zap.Int64("original_size", originalSize),
		zap.Int64("final_size", last.ResultSizeBytes),
	)

	return &models.CompressedItem{
		SourceName:       item.Name,
		OutputName:       utils.ReplaceExtension(item.Name, format.Extension()),
		MIMEType:         format.MIMEType(),
		Data:             best,
		OriginalSize:     originalSize,
		FinalSize:        int64(len(best)),
		ReductionPercent: models.ReductionPercent(originalSize, int64(len(best))),
		Attempts:         len(attempts),
	}, nil
}

// encoderFor reuses the previous output when a lower quality maps to the same
// encoder setting, so a step that cannot change the bytes costs nothing.
func (p *ImageProcessor) encoderFor(img image.Image, format models.Format) func(quality int) ([]byte, error) {
	lastKey := -1
	var last []byte
	return func(q int) ([]byte, error) {
		key := p.transcoder.EffectiveQuality(format, q)
		if key == lastKey {
			return last, nil
		}
		data, err := p.transcoder.Transcode(img, format, q)
		if err != nil {
			return nil, err
		}
		lastKey, last = key, data
		return data, nil
	}
}

// searchQuality runs at most MaxAttempts encodes. It returns the attempts made
// and the first output smaller than originalSize, or nil if none was.
func (p *ImageProcessor) searchQuality(ctx context.Context, encode func(quality int) ([]byte, error), quality int, originalSize int64) ([]models.CompressionAttempt, []byte, error) {
	minQuality := clampQuality(p.opts.MinQuality)
	// The floor bounds the reduction only; a lower requested quality is used as is.
	q := clampQuality(quality)
	attempts := make([]models.CompressionAttempt, 0, p.opts.MaxAttempts)

	for i := 0; i < p.opts.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return attempts, nil, err
		}

		data, err := encode(q)
		if err != nil {
			return attempts, nil, err
		}
		attempts = append(attempts, models.CompressionAttempt{
			AttemptIndex:    i,
			QualityUsed:     q,
			ResultSizeBytes: int64(len(data)),
		})

		if int64(len(data)) < originalSize {
			return attempts, data, nil
		}

		next := max(minQuality, int(math.Floor(float64(q)*p.opts.QualityStep)))
		if next >= q {
			// At the floor; another pass would produce the same bytes.
			break
		}
		q = next
	}

	return attempts, nil, nil
}

// CompressDocument runs the optimizer for mode and keeps the source bytes
// unless the optimized document is strictly smaller.
func (p *ImageProcessor) CompressDocument(ctx context.Context, item models.SourceItem, mode models.ProcessingMode) (*models.CompressedItem, error) {
	optimizer := p.local
	if mode == models.ProcessingRemote {
		optimizer = p.remote
	}

	out, err := optimizer.Optimize(ctx, item.Data)
	if err != nil {
		var perr *models.Error
		if errors.As(err, &perr) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, models.NewError(models.KindTimeout, "compression timed out", err)
		}
		return nil, models.NewError(models.KindEncodeFailed, fmt.Sprintf("could not optimize %s", item.Name), err)
	}

	originalSize := int64(len(item.Data))
	if int64(len(out)) >= originalSize {
		p.logger.Info("Optimized document is not smaller, keeping source bytes",
			zap.String("name", item.Name),
			zap.String("mode", string(mode)),
			zap.Int64("original_size", originalSize),
			zap.Int("optimized_size", len(out)),
		)
		return keepOriginal(item, 1, mode), nil
	}

	return &models.CompressedItem{
		SourceName:       item.Name,
		OutputName:       utils.ReplaceExtension(item.Name, models.FormatPDF.Extension()),
		MIMEType:         models.ContentTypePDF,
		Data:             out,
		OriginalSize:     originalSize,
		FinalSize:        int64(len(out)),
		ReductionPercent: models.ReductionPercent(originalSize, int64(len(out))),
		Attempts:         1,
		ProcessingMode:   mode,
	}, nil
}

func keepOriginal(item models.SourceItem, attempts int, mode models.ProcessingMode) *models.CompressedItem {
	size := int64(len(item.Data))
	return &models.CompressedItem{
		SourceName:     item.Name,
		OutputName:     item.Name,
		MIMEType:       item.MIMEType,
		Data:           item.Data,
		OriginalSize:   size,
		FinalSize:      size,
		Attempts:       attempts,
		KeptOriginal:   true,
		ProcessingMode: mode,
	}
}
