// Package job turns the text of a print call into the bytes a printer
// understands: plain text in a chosen character set, or a TSPL label.
package job

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"spp-print/internal/imaging"
	"spp-print/internal/printer"
	"spp-print/internal/tspl"
)

// Output formats.
const (
	FormatText = "text"
	FormatTSPL = "tspl"
)

var (
	ErrUnknownFormat  = errors.New("unknown output format")
	ErrUnknownCharset = errors.New("unknown charset")
	ErrUnknownLabel   = errors.New("unknown label size")
)

// Options selects how text is encoded.
type Options struct {
	Format    string
	Charset   string // IANA name; empty or UTF-8 sends the text unchanged
	Columns   int    // wrap text lines at this display width; 0 disables
	LabelSize string
	Density   int
	FontSize  float64
}

// Encoder implements printer.Encoder.
type Encoder struct {
	format  string
	charset encoding.Encoding
	columns int
	label   tspl.LabelSize
	density int
	font    float64
}

var _ printer.Encoder = (*Encoder)(nil)

// New validates opts and returns the matching encoder.
func New(opts Options) (*Encoder, error) {
	e := &Encoder{
		format:  strings.ToLower(opts.Format),
		columns: opts.Columns,
		density: opts.Density,
		font:    opts.FontSize,
	}

	switch e.format {
	case "", FormatText:
		e.format = FormatText

		enc, err := lookupCharset(opts.Charset)
		if err != nil {
			return nil, err
		}
		e.charset = enc

	case FormatTSPL:
		size, ok := tspl.LookupSize(opts.LabelSize)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownLabel, opts.LabelSize)
		}
		e.label = size

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, opts.Format)
	}

	return e, nil
}

// Encode implements printer.Encoder.
func (e *Encoder) Encode(text string) ([]byte, error) {
	if e.columns > 0 {
		text = runewidth.Wrap(text, e.columns)
	}

	if e.format == FormatTSPL {
		return e.renderLabel(text)
	}

	if e.charset == nil {
		return []byte(text), nil
	}

	return encoding.ReplaceUnsupported(e.charset.NewEncoder()).Bytes([]byte(text))
}

func (e *Encoder) renderLabel(text string) ([]byte, error) {
	img, err := imaging.RenderText(text, e.label.PixelW, e.label.PixelH, imaging.TextOptions{
		FontSize:      e.font,
		WordBreakOnly: e.columns == 0,
	})
	if err != nil {
		return nil, fmt.Errorf("render label: %w", err)
	}

	// TSPL prints the cleared bits of a BITMAP.
	bitmap := imaging.Pack(img, e.label.PixelW, e.label.PixelH, imaging.DefaultThreshold, true)

	return tspl.Job{Size: e.label, Density: e.density, Copies: 1, Bitmap: bitmap}.Build()
}

// lookupCharset returns nil for UTF-8, which needs no conversion.
func lookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownCharset, name)
	}

	return enc, nil
}
