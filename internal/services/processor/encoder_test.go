package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscodeAnyToAny(t *testing.T) {
	tr := NewTranscoder()
	img := testhelpers.GradientImage(32, 24)

	for _, f := range []models.Format{models.FormatJPEG, models.FormatPNG, models.FormatWebP} {
		t.Run(string(f), func(t *testing.T) {
			out, err := tr.Transcode(img, f, 70)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, string(f), format)
			assert.Equal(t, 32, cfg.Width)
			assert.Equal(t, 24, cfg.Height)
		})
	}
}

func TestTranscodeRejectsUnknownFormat(t *testing.T) {
	_, err := NewTranscoder().Transcode(testhelpers.GradientImage(4, 4), models.FormatPDF, 80)
	assert.Error(t, err)
}

func TestPNGQualityReducesPalette(t *testing.T) {
	tr := NewTranscoder()
	img := testhelpers.NoiseImage(64, 64, 9)

	lossless, err := tr.Transcode(img, models.FormatPNG, 100)
	require.NoError(t, err)
	reduced, err := tr.Transcode(img, models.FormatPNG, 20)
	require.NoError(t, err)
	assert.Less(t, len(reduced), len(lossless))

	decoded, err := png.Decode(bytes.NewReader(reduced))
	require.NoError(t, err)
	paletted, ok := decoded.(*image.Paletted)
	require.True(t, ok)
	assert.LessOrEqual(t, len(paletted.Palette), paletteLevels(20)*paletteLevels(20)*paletteLevels(20))

	for levels := 2; levels <= 5; levels++ {
		p := uniformPalette(levels)
		assert.Equal(t, color.RGBA{0, 0, 0, 0xff}, p[0], "levels=%d", levels)
		assert.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, p[len(p)-1], "levels=%d", levels)
	}
}

func TestQuantizeKeepsBlackAndWhite(t *testing.T) {
	for _, q := range []int{1, 30, 50, 80} {
		levels := paletteLevels(q)
		for _, want := range []color.NRGBA{{0, 0, 0, 0xff}, {0xff, 0xff, 0xff, 0xff}} {
			img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
			draw.Draw(img, img.Bounds(), image.NewUniform(want), image.Point{}, draw.Src)

			out := quantize(img, levels)
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					got := color.NRGBAModel.Convert(out.At(x, y)).(color.NRGBA)
					require.Equal(t, want, got, "levels=%d at (%d,%d)", levels, x, y)
				}
			}
		}
	}
}

func TestPNGQualityAppliesToAlphaImages(t *testing.T) {
	img := testhelpers.NoiseImage(64, 64, 11)
	img.Pix[3] = 0x80
	tr := NewTranscoder()

	lossless, err := tr.Transcode(img, models.FormatPNG, 100)
	require.NoError(t, err)
	reduced, err := tr.Transcode(img, models.FormatPNG, 80)
	require.NoError(t, err)
	assert.Less(t, len(reduced), len(lossless))

	decoded, err := png.Decode(bytes.NewReader(reduced))
	require.NoError(t, err)
	_, paletted := decoded.(*image.Paletted)
	assert.False(t, paletted, "alpha images are not forced onto an opaque palette")
}

func TestPosterizeKeepsAlphaEndpoints(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{0xff, 0xff, 0xff, 0xff})
		img.SetNRGBA(x, 1, color.NRGBA{0x12, 0x34, 0x56, 0x00})
	}

	out := posterize(img, paletteLevels(40))
	for x := 0; x < 8; x++ {
		assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, out.NRGBAAt(x, 0))
		assert.Equal(t, color.NRGBA{}, out.NRGBAAt(x, 1))
	}
}

func TestEffectiveQuality(t *testing.T) {
	tr := NewTranscoder()

	assert.Equal(t, tr.EffectiveQuality(models.FormatPNG, 68), tr.EffectiveQuality(models.FormatPNG, 48))
	assert.NotEqual(t, tr.EffectiveQuality(models.FormatPNG, 80), tr.EffectiveQuality(models.FormatPNG, 68))
	assert.Equal(t, 100, tr.EffectiveQuality(models.FormatPNG, 97))
	assert.NotEqual(t, tr.EffectiveQuality(models.FormatJPEG, 68), tr.EffectiveQuality(models.FormatJPEG, 57))
}

func TestJPEGFlattensAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))

	out, err := NewTranscoder().Transcode(img, models.FormatJPEG, 90)
	require.NoError(t, err)
	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(4, 4).RGBA()
	assert.Greater(t, r, uint32(0xf000))
	assert.Greater(t, g, uint32(0xf000))
	assert.Greater(t, b, uint32(0xf000))
}

func TestPaletteLevels(t *testing.T) {
	assert.Equal(t, 2, paletteLevels(1))
	assert.Equal(t, 4, paletteLevels(50))
	assert.Equal(t, 5, paletteLevels(94))
	assert.Len(t, uniformPalette(3), 27)
}
