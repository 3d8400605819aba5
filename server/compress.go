package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phambaophuc/media-compress/internal/config"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/compressor"
	"github.com/phambaophuc/media-compress/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	compressFormat    string
	compressQuality   int
	compressDocuments bool
	compressOutputDir string
)

var compressCmd = &cobra.Command{
	Use:   "compress [files...]",
	Short: "Compress local files with the same pipeline as the API",
	Long: `Compress local images or PDFs and write the result to the output directory.
One input produces one file; several inputs produce a ZIP archive.

Examples:
  # Convert photos to WebP
  server compress --format webp --quality 80 a.jpg b.png

  # Optimize PDFs
  server compress --documents --output out/ report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().StringVar(&compressFormat, "format", string(models.DefaultImageFormat), "output image format: jpeg, png or webp")
	compressCmd.Flags().IntVar(&compressQuality, "quality", 0, "starting quality 1-100 (default DEFAULT_QUALITY)")
	compressCmd.Flags().BoolVar(&compressDocuments, "documents", false, "treat inputs as PDF documents")
	compressCmd.Flags().StringVarP(&compressOutputDir, "output", "o", ".", "directory to write the result into")
}

func runCompress(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p := newPipeline(cfg, logger, false)
	defer p.Close()

	svc := p.images
	if compressDocuments {
		svc = p.documents
	}

	batch, err := buildLocalBatch(svc, args, cfg.Compression.DefaultQuality)
	if err != nil {
		return err
	}

	d, err := svc.Process(cmd.Context(), batch)
	if err != nil {
		return err
	}

	path, err := writeDeliverable(compressOutputDir, d)
	if err != nil {
		return err
	}

	logger.Debug("Deliverable written", zap.String("path", path))
	printReport(cmd.OutOrStdout(), path, d)
	return nil
}

func buildLocalBatch(svc *compressor.Service, paths []string, defaultQuality int) (*models.UploadBatch, error) {
	items := make([]models.SourceItem, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		items = append(items, models.SourceItem{
			Name:      filepath.Base(path),
			SizeBytes: int64(len(data)),
			Data:      data,
		})
	}

	format := models.FormatPDF
	if svc.Kind() == models.MediaImage {
		format, _ = models.ParseImageFormat(compressFormat)
	}

	quality := compressQuality
	if quality < 1 || quality > 100 {
		quality = defaultQuality
	}

	return &models.UploadBatch{
		Kind:      svc.Kind(),
		Requester: "cli",
		Format:    format,
		Quality:   quality,
		Items:     items,
		CreatedAt: time.Now(),
	}, nil
}

func writeDeliverable(dir string, d *models.Deliverable) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, d.Filename)
	if _, err := os.Stat(path); err == nil {
		// Never overwrite an earlier result.
		ext := filepath.Ext(d.Filename)
		path = filepath.Join(dir, utils.GenerateFilename(strings.TrimSuffix(d.Filename, ext), ext))
	}
	if err := os.WriteFile(path, d.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func printReport(w io.Writer, path string, d *models.Deliverable) {
	fmt.Fprintf(w, "wrote %s (%d bytes)\n", path, len(d.Data))
	for _, r := range d.Items {
		if r.Error != "" {
			fmt.Fprintf(w, "  %s: failed: %s\n", r.Name, r.Error)
			continue
		}
		note := ""
		if r.KeptOriginal {
			note = " (kept original)"
		}
		fmt.Fprintf(w, "  %s -> %s: %d -> %d bytes, -%s%%%s\n",
			r.Name, r.OutputName, r.OriginalSize, r.FinalSize,
			strconv.FormatFloat(r.ReductionPercent, 'f', 1, 64), note)
	}
	if d.Rejected > 0 {
		fmt.Fprintf(w, "  %d file(s) rejected by intake\n", d.Rejected)
	}
}
