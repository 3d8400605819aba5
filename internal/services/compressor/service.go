// Package compressor runs a batch through intake, routing, compression and bundling.
package compressor

import (
	"context"
	"errors"
	"time"

	"github.com/phambaophuc/media-compress/internal/metrics"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/bundle"
	"github.com/phambaophuc/media-compress/internal/services/intake"
	"github.com/phambaophuc/media-compress/internal/services/location"
	"github.com/phambaophuc/media-compress/internal/services/processor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type Options struct {
	Workers int
	Timeout time.Duration
}

type Service struct {
	kind      models.MediaKind
	validator *intake.Validator
	selector  location.Selector
	processor *processor.ImageProcessor
	bundler   *bundle.Bundler
	opts      Options
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewService(
	kind models.MediaKind,
	validator *intake.Validator,
	selector location.Selector,
	processor *processor.ImageProcessor,
	bundler *bundle.Bundler,
	opts Options,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Service{
		kind:      kind,
		validator: validator,
		selector:  selector,
		processor: processor,
		bundler:   bundler,
		opts:      opts,
		metrics:   metrics,
		logger:    logger.With(zap.String("kind", string(kind))),
	}
}

func (s *Service) Kind() models.MediaKind { return s.kind }

func (s *Service) Selector() location.Selector { return s.selector }

func (s *Service) Validator() *intake.Validator { return s.validator }

type itemResult struct {
	item *models.CompressedItem
	err  error
}

// Process handles one batch within the configured time budget. Item failures
// are skipped while at least one item succeeds; exceeding the budget fails the
// whole batch without partial output.
func (s *Service) Process(ctx context.Context, batch *models.UploadBatch) (deliverable *models.Deliverable, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = models.KindOf(err).String()
		}
		s.metrics.BatchDuration.WithLabelValues(string(s.kind), result).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	intakeResult, err := s.validator.Validate(batch)
	s.metrics.ItemsTotal.WithLabelValues(string(s.kind), "rejected").Add(float64(intakeResult.RejectedCount))
	if err != nil {
		return nil, err
	}

	results, err := s.compressAll(ctx, batch, intakeResult.Accepted)
	if err != nil {
		return nil, err
	}

	var (
		items    []*models.CompressedItem
		failures []models.ItemReport
		firstErr error
	)
	for i, r := range results {
		if r.err != nil {
			if models.KindOf(r.err) == models.KindTimeout {
				return nil, r.err
			}
			if firstErr == nil {
				firstErr = r.err
			}
			failures = append(failures, models.ItemReport{
				Name:         intakeResult.Accepted[i].Name,
				OriginalSize: intakeResult.Accepted[i].SizeBytes,
				Error:        models.PublicMessage(r.err),
			})
			continue
		}
		items = append(items, r.item)
	}

	if len(items) == 0 && len(results) == 1 {
		return nil, firstErr
	}

	deliverable, err = s.bundler.Bundle(items)
	if err != nil {
		return nil, err
	}
	deliverable.Rejected = intakeResult.RejectedCount
	deliverable.Failed = len(failures)
	deliverable.Items = append(deliverable.Items, failures...)

	s.logger.Info("Batch compressed",
		zap.String("requester", batch.Requester),
		zap.Int("accepted", len(intakeResult.Accepted)),
		zap.Int("rejected", intakeResult.RejectedCount),
		zap.Int("failed", len(failures)),
		zap.String("deliverable", deliverable.Filename),
		zap.Duration("elapsed", time.Since(start)),
	)
	return deliverable, nil
}

// compressAll fans items out to at most Workers goroutines and waits for all
// of them, or for ctx to expire.
func (s *Service) compressAll(ctx context.Context, batch *models.UploadBatch, accepted []models.SourceItem) ([]itemResult, error) {
	results := make([]itemResult, len(accepted))
	done := make(chan struct{})

	go func() {
		defer close(done)

		var g errgroup.Group
		g.SetLimit(s.opts.Workers)
		for i := range accepted {
			g.Go(func() error {
				if ctx.Err() != nil {
					results[i] = itemResult{err: models.NewError(models.KindTimeout, "compression timed out", ctx.Err())}
					return nil
				}
				item, err := s.compressItem(ctx, batch, accepted[i])
				results[i] = itemResult{item: item, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, s.timeoutError(ctx)
	}

	if ctx.Err() != nil {
		return nil, s.timeoutError(ctx)
	}
	return results, nil
}

func (s *Service) timeoutError(ctx context.Context) error {
	s.logger.Warn("Batch exceeded its time budget", zap.Duration("timeout", s.opts.Timeout))
	return models.NewError(models.KindTimeout, "batch processing timed out", ctx.Err())
}

func (s *Service) compressItem(ctx context.Context, batch *models.UploadBatch, item models.SourceItem) (*models.CompressedItem, error) {
	var (
		out *models.CompressedItem
		err error
	)

	if s.kind == models.MediaDocument {
		loc := s.selector.SelectItem(s.kind, item)
		out, err = s.processor.CompressDocument(ctx, item, loc.Mode())
	} else {
		out, err = s.processor.CompressImage(ctx, item, batch.Format, batch.Quality)
	}

	if err != nil {
		if !errors.Is(err, models.ErrTimeout) {
			s.metrics.ItemsTotal.WithLabelValues(string(s.kind), "failed").Inc()
		}
		s.logger.Warn("Item compression failed",
			zap.String("name", item.Name),
			zap.String("error_kind", models.KindOf(err).String()),
			zap.Error(err),
		)
		return nil, err
	}

	outcome := "compressed"
	if out.KeptOriginal {
		outcome = "original"
	}
	s.metrics.ItemsTotal.WithLabelValues(string(s.kind), outcome).Inc()
	s.metrics.BytesSavedTotal.WithLabelValues(string(s.kind)).Add(float64(out.OriginalSize - out.FinalSize))
	if s.kind == models.MediaImage {
		s.metrics.QualityAttempts.WithLabelValues(string(batch.Format)).Observe(float64(out.Attempts))
	}

	s.logger.Info("Item compressed",
		zap.String("name", item.Name),
		zap.String("output", out.OutputName),
		zap.Int64("original_size", out.OriginalSize),
		zap.Int64("final_size", out.FinalSize),
		zap.Float64("reduction_percent", out.ReductionPercent),
		zap.Int("attempts", out.Attempts),
		zap.Bool("kept_original", out.KeptOriginal),
		zap.String("processing_mode", string(out.ProcessingMode)),
	)
	return out, nil
}
