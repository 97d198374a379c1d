package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// DPI of the print head.
const DPI = 203

type Orientation int

const (
	Horizontal Orientation = iota
	Vertical               // text runs along the feed direction
)

// TextOptions configures RenderText.
type TextOptions struct {
	FontSize      float64 // points; 0 means 10
	Orientation   Orientation
	Invert        bool // white text on black
	WordBreakOnly bool // wrap at spaces, splitting only words wider than a line
}

const margin = 10

var regular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// RenderText draws text centred on a width x height canvas, wrapping lines
// to fit. Newlines in text always start a new line.
func RenderText(text string, width, height int, opts TextOptions) (*image.RGBA, error) {
	f, err := regular()
	if err != nil {
		return nil, err
	}

	size := opts.FontSize
	if size <= 0 {
		size = 10
	}

	renderW, renderH := width, height
	if opts.Orientation == Vertical {
		renderW, renderH = height, width
	}

	bg, fg := color.Color(color.White), color.Color(color.Black)
	if opts.Invert {
		bg, fg = fg, bg
	}

	img := image.NewRGBA(image.Rect(0, 0, renderW, renderH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(DPI)
	c.SetFont(f)
	c.SetFontSize(size)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(&image.Uniform{C: fg})
	c.SetHinting(font.HintingFull)

	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: DPI})
	defer face.Close()

	lines := wrap(text, face, renderW-margin, opts.WordBreakOnly)

	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	y := (renderH-len(lines)*lineHeight)/2 + metrics.Ascent.Ceil()

	for _, line := range lines {
		x := (renderW - measure(face, line)) / 2
		if _, err := c.DrawString(line, freetype.Pt(x, y)); err != nil {
			return nil, err
		}
		y += lineHeight
	}

	if opts.Orientation == Vertical {
		return rotateCW(img), nil
	}

	return img, nil
}

func wrap(text string, face font.Face, maxWidth int, wordsOnly bool) []string {
	var lines []string

	for _, para := range strings.Split(text, "\n") {
		if wordsOnly {
			lines = append(lines, wrapWords(para, face, maxWidth)...)
		} else {
			lines = append(lines, wrapRunes(para, face, maxWidth)...)
		}
	}

	return lines
}

// wrapRunes breaks anywhere a line would overflow.
func wrapRunes(para string, face font.Face, maxWidth int) []string {
	var (
		lines []string
		cur   string
	)

	for _, r := range para {
		next := cur + string(r)
		if cur != "" && measure(face, next) > maxWidth {
			lines = append(lines, cur)
			next = string(r)
		}
		cur = next
	}

	return append(lines, cur)
}

func wrapWords(para string, face font.Face, maxWidth int) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	cur := ""

	for _, word := range words {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if measure(face, next) <= maxWidth {
			cur = next
			continue
		}

		if cur != "" {
			lines = append(lines, cur)
		}
		if measure(face, word) <= maxWidth {
			cur = word
			continue
		}

		// A single word wider than the line is split by runes.
		parts := wrapRunes(word, face, maxWidth)
		lines = append(lines, parts[:len(parts)-1]...)
		cur = parts[len(parts)-1]
	}

	return append(lines, cur)
}

func measure(face font.Face, s string) int {
	var w fixed.Int26_6
	for _, r := range s {
		if adv, ok := face.GlyphAdvance(r); ok {
			w += adv
		}
	}

	return w.Ceil()
}

func rotateCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}

	return dst
}
