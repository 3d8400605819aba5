package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/phambaophuc/media-compress/internal/models"
)

// SuggestedDocumentImageQuality is the default JPEG quality for re-encoding
// images embedded in remotely optimized PDFs.
const SuggestedDocumentImageQuality = 75

// infoKeys are the document information entries removed by every pass.
var infoKeys = []string{"Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate"}

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	api.DisableConfigDir()
}

// LightOptimizer strips metadata and rewrites the document with object and
// cross-reference streams. It never re-encodes content.
type LightOptimizer struct{}

func (LightOptimizer) Optimize(ctx context.Context, data []byte) ([]byte, error) {
	return rewritePDF(ctx, data, func(pdf *model.Context) error {
		return stripMetadata(pdf)
	})
}

// StrongOptimizer additionally deduplicates fonts, images and other resources.
// With ImageQuality above zero it also re-encodes embedded baseline JPEG images
// when that makes them smaller.
type StrongOptimizer struct {
	ImageQuality int
}

func NewStrongOptimizer(imageQuality int) *StrongOptimizer {
	return &StrongOptimizer{ImageQuality: imageQuality}
}

func (o *StrongOptimizer) Optimize(ctx context.Context, data []byte) ([]byte, error) {
	return rewritePDF(ctx, data, func(pdf *model.Context) error {
		if err := stripMetadata(pdf); err != nil {
			return err
		}
		if err := api.OptimizeContext(pdf); err != nil {
			return fmt.Errorf("optimize: %w", err)
		}
		if o.ImageQuality > 0 {
			recompressImages(pdf, o.ImageQuality)
		}
		return nil
	})
}

func rewritePDF(ctx context.Context, data []byte, transform func(*model.Context) error) (out []byte, err error) {
	// pdfcpu panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, models.NewError(models.KindDecodeFailed, "could not parse document", fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true

	pdf, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, models.NewError(models.KindDecodeFailed, "could not parse document", err)
	}

	if err := transform(pdf); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pdf, &buf); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return buf.Bytes(), nil
}

func stripMetadata(pdf *model.Context) error {
	if pdf.Info != nil {
		info, err := pdf.DereferenceDict(*pdf.Info)
		if err != nil {
			return fmt.Errorf("info dict: %w", err)
		}
		for _, key := range infoKeys {
			info.Delete(key)
		}
	}

	root, err := pdf.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	root.Delete("Metadata")
	return nil
}

// recompressImages re-encodes DCT images in RGB or gray at quality, replacing
// a stream only when the result is smaller. CMYK and filtered chains are left alone.
func recompressImages(pdf *model.Context, quality int) {
	for _, entry := range pdf.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || !isRecompressibleImage(sd) {
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(sd.Raw))
		if err != nil {
			continue
		}
		switch img.(type) {
		case *image.YCbCr, *image.Gray:
		default:
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil || buf.Len() >= len(sd.Raw) {
			continue
		}

		length := int64(buf.Len())
		sd.Raw = buf.Bytes()
		sd.Content = nil
		sd.StreamLength = &length
		sd.StreamLengthObjNr = nil
		sd.Dict.Update("Length", types.Integer(int(length)))
		entry.Object = sd
	}
}

func isRecompressibleImage(sd types.StreamDict) bool {
	if st := sd.Dict.Subtype(); st == nil || *st != "Image" {
		return false
	}
	if len(sd.FilterPipeline) != 1 || sd.FilterPipeline[0].Name != "DCTDecode" {
		return false
	}
	cs := sd.Dict.NameEntry("ColorSpace")
	if cs == nil || (*cs != "DeviceRGB" && *cs != "DeviceGray") {
		return false
	}
	return len(sd.Raw) > 0
}
