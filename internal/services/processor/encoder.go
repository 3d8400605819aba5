package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/phambaophuc/media-compress/internal/models"
)

// losslessPNGQuality is the quality at and above which PNG output keeps full color.
const losslessPNGQuality = 95

type encodeFunc func(w io.Writer, img image.Image, quality int) error

// Transcoder encodes rasters into one of a closed set of formats.
type Transcoder struct {
	encoders map[models.Format]encodeFunc
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		encoders: map[models.Format]encodeFunc{
			models.FormatJPEG: encodeJPEG,
			models.FormatPNG:  encodePNG,
			models.FormatWebP: encodeWebP,
		},
	}
}

// EffectiveQuality returns a key that is equal for two qualities exactly when
// the encoder for format produces the same output for both.
func (t *Transcoder) EffectiveQuality(format models.Format, quality int) int {
	quality = clampQuality(quality)
	if format == models.FormatPNG {
		if quality >= losslessPNGQuality {
			return 100
		}
		return paletteLevels(quality)
	}
	return quality
}

// Transcode encodes img as format. quality is a percentage in 1..100.
func (t *Transcoder) Transcode(img image.Image, format models.Format, quality int) ([]byte, error) {
	encode, ok := t.encoders[format]
	if !ok {
		return nil, fmt.Errorf("unsupported target format %q", format)
	}

	buffer := &bytes.Buffer{}
	if err := encode(buffer, img, clampQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buffer.Bytes(), nil
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	if !isOpaque(img) {
		img = flatten(img)
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
}

// encodePNG maps quality to channel depth: below losslessPNGQuality opaque
// images are reduced to a uniform palette and images with alpha are
// posterized per channel before deflate.
func encodePNG(w io.Writer, img image.Image, quality int) error {
	if quality < losslessPNGQuality {
		levels := paletteLevels(quality)
		if isOpaque(img) {
			img = quantize(img, levels)
		} else {
			img = posterize(img, levels)
		}
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func clampQuality(q int) int {
	return min(100, max(1, q))
}
