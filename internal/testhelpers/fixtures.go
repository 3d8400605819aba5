// Package testhelpers builds in-memory fixtures for package tests.
package testhelpers

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// NoiseImage returns an opaque image of random pixels. It compresses poorly.
func NoiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 0xff
	}
	return img
}

// GradientImage returns a smooth opaque image. It compresses well.
func GradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(1, w-1)),
				G: uint8(y * 255 / max(1, h-1)),
				B: 128,
				A: 0xff,
			})
		}
	}
	return img
}

func EncodeJPEG(t testing.TB, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// PDFOptions controls what MinimalPDF embeds.
type PDFOptions struct {
	// Title and Author go into the document information dictionary.
	Title  string
	Author string
	// JPEG, when set, is embedded as a DCTDecode image XObject drawn on the page.
	JPEG          []byte
	Width, Height int
	// Padding appends an uncompressed comment stream of this many bytes.
	Padding int
}

// MinimalPDF writes a single-page PDF with a correct cross-reference table.
func MinimalPDF(t testing.TB, opts PDFOptions) []byte {
	t.Helper()

	content := "BT /F1 12 Tf 72 720 Td (compression fixture) Tj ET\n"
	if opts.JPEG != nil {
		content = fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im1 Do Q\n", opts.Width, opts.Height) + content
	}

	var objects []string
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
	)

	resources := "/Font << /F1 5 0 R >>"
	if opts.JPEG != nil {
		resources += " /XObject << /Im1 7 0 R >>"
	}
	objects = append(objects,
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << %s >> /Contents 4 0 R >>", resources),
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Title (%s) /Author (%s) /Producer (testhelpers) >>", opts.Title, opts.Author),
	)
	if opts.JPEG != nil {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream",
			opts.Width, opts.Height, len(opts.JPEG), opts.JPEG))
	}
	if opts.Padding > 0 {
		pad := bytes.Repeat([]byte("%"), opts.Padding)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(pad), pad))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}
