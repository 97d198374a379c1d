package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/freetype/truetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func testFace(t *testing.T) font.Face {
	t.Helper()
	f, err := regular()
	require.NoError(t, err)
	return truetype.NewFace(f, &truetype.Options{Size: 10, DPI: DPI})
}

func TestPackUnpack(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 2))
	for x := 0; x < 16; x++ {
		img.SetGray(x, 0, color.Gray{Y: 255})
		img.SetGray(x, 1, color.Gray{Y: 255})
	}
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(9, 1, color.Gray{Y: 10})

	data := Pack(img, 16, 2, DefaultThreshold, false)

	assert.Equal(t, []byte{0x80, 0x00, 0x00, 0x40}, data)

	back := Unpack(data, 16, 2)
	assert.Equal(t, uint8(0), back.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), back.GrayAt(9, 1).Y)
	assert.Equal(t, uint8(255), back.GrayAt(1, 0).Y)
}

func TestPackInvert(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 1))
	for x := 0; x < 8; x++ {
		img.SetGray(x, 0, color.Gray{Y: 255})
	}

	assert.Equal(t, []byte{0x00}, Pack(img, 8, 1, DefaultThreshold, false))
	assert.Equal(t, []byte{0xFF}, Pack(img, 8, 1, DefaultThreshold, true))
}

func TestPackOutsideImageIsWhite(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))

	data := Pack(img, 8, 2, DefaultThreshold, false)

	assert.Equal(t, []byte{0x80, 0x00}, data)
}

func TestRenderTextDimensions(t *testing.T) {
	img, err := RenderText("Hello", 96, 284, TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 96, 284), img.Bounds())

	img, err = RenderText("Hello", 96, 284, TextOptions{Orientation: Vertical})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 96, 284), img.Bounds())
}

func TestRenderTextDrawsInk(t *testing.T) {
	img, err := RenderText("Hello", 200, 80, TextOptions{FontSize: 12})
	require.NoError(t, err)

	data := Pack(img, 200, 80, DefaultThreshold, false)
	var ink int
	for _, b := range data {
		if b != 0 {
			ink++
		}
	}
	assert.Positive(t, ink)
}

func TestWrapKeepsNewlines(t *testing.T) {
	face := testFace(t)

	lines := wrap("a\n\nb", face, 1000, false)

	assert.Equal(t, []string{"a", "", "b"}, lines)
}

func TestWrapRunesSplitsLongLine(t *testing.T) {
	face := testFace(t)
	width := measure(face, "abcd")

	lines := wrapRunes("abcdabcd", face, width)

	require.Len(t, lines, 2)
	assert.Equal(t, []string{"abcd", "abcd"}, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, measure(face, l), width)
	}
}

func TestWrapWordsBreaksAtSpaces(t *testing.T) {
	face := testFace(t)
	width := measure(face, "hello world")

	lines := wrapWords("hello world again", face, width)

	assert.Equal(t, []string{"hello world", "again"}, lines)
}
