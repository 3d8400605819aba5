// Package bundle packages compressed items into a single deliverable.
package bundle

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/phambaophuc/media-compress/internal/models"
)

const (
	ImageArchiveName    = "compressed-images.zip"
	DocumentArchiveName = "compressed-documents.zip"
)

type Bundler struct {
	archiveName string
	now         func() time.Time
}

func NewBundler(archiveName string) *Bundler {
	return &Bundler{archiveName: archiveName, now: time.Now}
}

// Bundle returns the single item as-is, or a ZIP holding every item.
// Entries are stored, not deflated; their payloads are already compressed.
func (b *Bundler) Bundle(items []*models.CompressedItem) (*models.Deliverable, error) {
	switch len(items) {
	case 0:
		return nil, models.NewError(models.KindBundleEmpty, "no files could be compressed", nil)
	case 1:
		item := items[0]
		return &models.Deliverable{
			Filename:    item.OutputName,
			ContentType: item.MIMEType,
			Data:        item.Data,
			Items:       []models.ItemReport{item.Report()},
		}, nil
	}

	archive, err := b.writeArchive(items)
	if err != nil {
		return nil, models.NewError(models.KindInternal, "could not build archive", err)
	}

	reports := make([]models.ItemReport, 0, len(items))
	for _, item := range items {
		reports = append(reports, item.Report())
	}

	return &models.Deliverable{
		Filename:    b.archiveName,
		ContentType: models.ContentTypeZIP,
		Data:        archive,
		Items:       reports,
	}, nil
}

func (b *Bundler) writeArchive(items []*models.CompressedItem) ([]byte, error) {
	size := 0
	for _, item := range items {
		size += len(item.Data)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size+len(items)*128))
	zw := zip.NewWriter(buf)
	modified := b.now()

	for _, item := range items {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     item.OutputName,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", item.OutputName, err)
		}
		if _, err := w.Write(item.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", item.OutputName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
