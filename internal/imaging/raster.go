// Package imaging rasterises text into the packed 1-bit bitmaps label
// printers take.
package imaging

import (
	"image"
	"image/color"
)

// DefaultThreshold separates dark from light pixels.
const DefaultThreshold = 128

// Pack converts img to a width x height 1-bit bitmap, row-major, MSB first.
// Pixels darker than threshold become set bits; anything outside img is
// treated as white. width must be a multiple of 8.
func Pack(img image.Image, width, height int, threshold uint8, invert bool) []byte {
	b := img.Bounds()
	stride := width / 8
	data := make([]byte, stride*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := uint8(255)
			if x < b.Dx() && y < b.Dy() {
				gray = luminance(img.At(b.Min.X+x, b.Min.Y+y))
			}

			dark := gray < threshold
			if dark != invert {
				data[y*stride+x/8] |= 1 << (7 - x%8)
			}
		}
	}

	return data
}

// Unpack turns a packed bitmap back into a grayscale image, set bits black.
func Unpack(data []byte, width, height int) *image.Gray {
	stride := width / 8
	img := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := color.Gray{Y: 255}
			if data[y*stride+x/8]>>(7-x%8)&1 == 1 {
				v = color.Gray{Y: 0}
			}
			img.SetGray(x, y, v)
		}
	}

	return img
}

func luminance(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	return uint8((0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256)
}
