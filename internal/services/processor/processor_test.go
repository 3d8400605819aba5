package processor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	xwebp "golang.org/x/image/webp"
)

func newTestProcessor() *ImageProcessor {
	return NewImageProcessor(DefaultOptions(), LightOptimizer{}, NewStrongOptimizer(0), zap.NewNop())
}

func item(name, mime string, data []byte) models.SourceItem {
	return models.SourceItem{Name: name, MIMEType: mime, SizeBytes: int64(len(data)), Data: data}
}

func TestSearchQualitySchedule(t *testing.T) {
	p := newTestProcessor()

	var used []int
	attempts, best, err := p.searchQuality(context.Background(), func(q int) ([]byte, error) {
		used = append(used, q)
		return make([]byte, 100), nil
	}, 80, 50)

	require.NoError(t, err)
	assert.Nil(t, best)
	assert.Len(t, attempts, DefaultMaxAttempts)
	assert.Equal(t, []int{80, 68, 57, 48, 40, 34}, used)
	for i, a := range attempts {
		assert.Equal(t, i, a.AttemptIndex)
	}
}

func TestSearchQualityStopsAtFloor(t *testing.T) {
	p := newTestProcessor()

	var used []int
	attempts, best, err := p.searchQuality(context.Background(), func(q int) ([]byte, error) {
		used = append(used, q)
		return make([]byte, 100), nil
	}, 6, 50)

	require.NoError(t, err)
	assert.Nil(t, best)
	assert.Len(t, attempts, 2)
	assert.Equal(t, []int{6, 5}, used)
}

func TestSearchQualityStartsBelowFloor(t *testing.T) {
	p := newTestProcessor()

	var used []int
	attempts, _, err := p.searchQuality(context.Background(), func(q int) ([]byte, error) {
		used = append(used, q)
		return make([]byte, 100), nil
	}, 3, 50)

	require.NoError(t, err)
	assert.Equal(t, []int{3}, used)
	assert.Equal(t, 3, attempts[0].QualityUsed)
}

func TestCompressTranslucentPNGShrinks(t *testing.T) {
	img := testhelpers.NoiseImage(128, 128, 21)
	img.Pix[3] = 0x80
	src := testhelpers.EncodePNG(t, img)

	res, err := newTestProcessor().CompressImage(context.Background(), item("overlay.png", "image/png", src), models.FormatPNG, 80)
	require.NoError(t, err)
	assert.False(t, res.KeptOriginal)
	assert.Equal(t, 1, res.Attempts)
	assert.Less(t, res.FinalSize, int64(len(src)))
}

func TestEncoderForSkipsEquivalentQualities(t *testing.T) {
	p := newTestProcessor()
	encode := p.encoderFor(testhelpers.GradientImage(16, 16), models.FormatPNG)

	a, err := encode(68)
	require.NoError(t, err)
	b, err := encode(48)
	require.NoError(t, err)
	// Same palette depth, so the earlier buffer is returned without re-encoding.
	assert.Same(t, &a[0], &b[0])

	c, err := encode(40)
	require.NoError(t, err)
	assert.NotSame(t, &a[0], &c[0])
}

func TestSearchQualityReturnsFirstSmaller(t *testing.T) {
	p := newTestProcessor()

	attempts, best, err := p.searchQuality(context.Background(), func(q int) ([]byte, error) {
		return make([]byte, q), nil
	}, 80, 60)

	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Len(t, best, 57)
	assert.Len(t, attempts, 3)
}

func TestSearchQualityHonorsContext(t *testing.T) {
	p := newTestProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.searchQuality(ctx, func(int) ([]byte, error) { return nil, nil }, 80, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompressImageNeverInflates(t *testing.T) {
	p := newTestProcessor()
	noise := testhelpers.NoiseImage(64, 64, 1)

	sources := map[string][]byte{
		"noise.jpg": testhelpers.EncodeJPEG(t, noise, 30),
		"noise.png": testhelpers.EncodePNG(t, noise),
		"tiny.jpg":  testhelpers.EncodeJPEG(t, testhelpers.GradientImage(8, 8), 5),
	}
	for name, data := range sources {
		for _, format := range []models.Format{models.FormatJPEG, models.FormatPNG, models.FormatWebP} {
			t.Run(name+"->"+string(format), func(t *testing.T) {
				out, err := p.CompressImage(context.Background(), item(name, "", data), format, 100)
				require.NoError(t, err)
				assert.LessOrEqual(t, out.FinalSize, out.OriginalSize)
				assert.Equal(t, int64(len(out.Data)), out.FinalSize)
				assert.GreaterOrEqual(t, out.ReductionPercent, 0.0)
				if out.KeptOriginal {
					assert.Equal(t, data, out.Data)
					assert.Equal(t, name, out.OutputName)
					assert.Equal(t, 0.0, out.ReductionPercent)
				}
			})
		}
	}
}

func TestCompressPNGToJPEG(t *testing.T) {
	p := newTestProcessor()
	src := testhelpers.EncodePNG(t, testhelpers.NoiseImage(128, 128, 7))

	out, err := p.CompressImage(context.Background(), item("photo.png", "image/png", src), models.FormatJPEG, 50)
	require.NoError(t, err)

	require.False(t, out.KeptOriginal)
	assert.Less(t, out.FinalSize, int64(len(src)))
	assert.Equal(t, "photo.jpg", out.OutputName)
	assert.Equal(t, "image/jpeg", out.MIMEType)
	assert.Greater(t, out.ReductionPercent, 0.0)

	_, err = jpeg.Decode(bytes.NewReader(out.Data))
	assert.NoError(t, err)
}

func TestCompressJPEGToWebP(t *testing.T) {
	p := newTestProcessor()
	src := testhelpers.EncodeJPEG(t, testhelpers.GradientImage(256, 128), 100)

	out, err := p.CompressImage(context.Background(), item("banner.jpeg", "image/jpeg", src), models.FormatWebP, 80)
	require.NoError(t, err)
	require.False(t, out.KeptOriginal)
	assert.Equal(t, "banner.webp", out.OutputName)

	img, err := xwebp.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 128), img.Bounds())
}

func TestRecompressionIsBounded(t *testing.T) {
	p := newTestProcessor()
	src := testhelpers.EncodeJPEG(t, testhelpers.NoiseImage(64, 64, 3), 95)

	first, err := p.CompressImage(context.Background(), item("a.jpg", "image/jpeg", src), models.FormatJPEG, DefaultMinQuality)
	require.NoError(t, err)

	second, err := p.CompressImage(context.Background(), item(first.OutputName, first.MIMEType, first.Data), models.FormatJPEG, DefaultMinQuality)
	require.NoError(t, err)
	assert.LessOrEqual(t, second.FinalSize, first.FinalSize)
	assert.LessOrEqual(t, second.Attempts, DefaultMaxAttempts)
}

func TestCompressImageDecodeFailure(t *testing.T) {
	p := newTestProcessor()

	_, err := p.CompressImage(context.Background(), item("broken.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff, 0x00}), models.FormatJPEG, 80)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDecodeFailed))
}

func TestCompressImageTimeout(t *testing.T) {
	p := newTestProcessor()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	src := testhelpers.EncodePNG(t, testhelpers.GradientImage(16, 16))
	_, err := p.CompressImage(ctx, item("a.png", "image/png", src), models.FormatJPEG, 80)
	require.Error(t, err)
	assert.Equal(t, models.KindTimeout, models.KindOf(err))
}

// withOrientation inserts an EXIF APP1 segment carrying the orientation tag.
func withOrientation(jpg []byte, orientation uint16) []byte {
	tiff := []byte{'M', 'M', 0, 42, 0, 0, 0, 8, 0, 1}
	entry := make([]byte, 12)
	binary.BigEndian.PutUint16(entry[0:], 0x0112)
	binary.BigEndian.PutUint16(entry[2:], 3)
	binary.BigEndian.PutUint32(entry[4:], 1)
	binary.BigEndian.PutUint16(entry[8:], orientation)
	tiff = append(tiff, entry...)
	tiff = append(tiff, 0, 0, 0, 0)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xff, 0xe1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func TestDecodeAppliesOrientation(t *testing.T) {
	src := withOrientation(testhelpers.EncodeJPEG(t, testhelpers.GradientImage(40, 20), 90), 6)

	img, err := decodeRaster(src)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	p := newTestProcessor()
	out, err := p.CompressImage(context.Background(), item("rotated.jpg", "image/jpeg", src), models.FormatPNG, 100)
	require.NoError(t, err)
	if !out.KeptOriginal {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Width)
		assert.Equal(t, 40, cfg.Height)
	}
}
