package processor

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeRaster decodes data and applies any EXIF orientation to the pixels,
// so the re-encoded output (which carries no EXIF) keeps the displayed orientation.
func decodeRaster(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}
