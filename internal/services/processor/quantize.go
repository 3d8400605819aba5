package processor

import (
	"image"
	"image/color"
)

// bayer4 is the 4x4 ordered-dither threshold matrix.
var bayer4 = [4][4]int{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// paletteLevels returns how many levels per channel a quality keeps (2..5).
func paletteLevels(quality int) int {
	return 2 + clampQuality(quality)*4/losslessPNGQuality
}

// levelValue is the 8-bit value of level i out of levels; 0 and 255 are exact.
func levelValue(i, levels int) uint8 {
	return uint8(i * 255 / (levels - 1))
}

func uniformPalette(levels int) color.Palette {
	p := make(color.Palette, 0, levels*levels*levels)
	for r := 0; r < levels; r++ {
		for g := 0; g < levels; g++ {
			for b := 0; b < levels; b++ {
				p = append(p, color.RGBA{levelValue(r, levels), levelValue(g, levels), levelValue(b, levels), 0xff})
			}
		}
	}
	return p
}

// ditherThreshold is in [-0.5, 0.5) of one level step.
func ditherThreshold(x, y int) float64 {
	return (float64(bayer4[y&3][x&3])+0.5)/16.0 - 0.5
}

// quantize maps an opaque img onto a uniform palette with ordered dithering.
// The palette index is computed directly, so the cost is linear in the pixel count.
func quantize(img image.Image, levels int) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(b, uniformPalette(levels))
	span := levels - 1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			t := ditherThreshold(x, y)
			ri := level(r, span, t)
			gi := level(g, span, t)
			bi := level(bl, span, t)
			out.Pix[out.PixOffset(x, y)] = uint8((ri*levels+gi)*levels + bi)
		}
	}
	return out
}

// posterize is quantize for images with transparency: every channel, alpha
// included, is reduced to levels values. Fully transparent pixels lose their
// color so deflate sees long runs.
func posterize(img image.Image, levels int) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	span := levels - 1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			t := ditherThreshold(x, y)
			i := out.PixOffset(x, y)

			a := levelValue(level(uint32(c.A)*0x101, span, t), levels)
			if a == 0 {
				out.Pix[i+0], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = 0, 0, 0, 0
				continue
			}
			out.Pix[i+0] = levelValue(level(uint32(c.R)*0x101, span, t), levels)
			out.Pix[i+1] = levelValue(level(uint32(c.G)*0x101, span, t), levels)
			out.Pix[i+2] = levelValue(level(uint32(c.B)*0x101, span, t), levels)
			out.Pix[i+3] = a
		}
	}
	return out
}

func level(v uint32, span int, t float64) int {
	l := int(float64(v)/0xffff*float64(span) + 0.5 + t)
	return min(span, max(0, l))
}
