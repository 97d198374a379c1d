// Package tspl builds TSPL2 command streams for 203 dpi label printers.
package tspl

import (
	"bytes"
	"fmt"
	"strings"
)

// LabelSize is a label stock the printer can be loaded with.
type LabelSize struct {
	Name   string
	Width  float64 // mm
	Height float64 // mm
	PixelW int     // printable dots across, a multiple of 8
	PixelH int     // dots along the feed
}

// WidthBytes is the bitmap row stride in bytes.
func (s LabelSize) WidthBytes() int {
	return s.PixelW / 8
}

var (
	Label12x40 = LabelSize{"12x40mm", 12.0, 40.0, 96, 284}
	Label14x40 = LabelSize{"14x40mm", 14.0, 40.0, 96, 284}
	Label14x50 = LabelSize{"14x50mm", 14.0, 50.0, 96, 355}
	Label14x75 = LabelSize{"14x75mm", 14.0, 75.0, 96, 532}
	Label15x30 = LabelSize{"15x30mm", 15.0, 30.0, 96, 213}
	Label40x30 = LabelSize{"40x30mm", 40.0, 30.0, 320, 240}
	Label50x30 = LabelSize{"50x30mm", 50.0, 30.0, 400, 240}
	Label58x40 = LabelSize{"58x40mm", 58.0, 40.0, 464, 320}
)

// AllSizes lists the known label stocks.
var AllSizes = []LabelSize{
	Label12x40, Label14x40, Label14x50, Label14x75, Label15x30,
	Label40x30, Label50x30, Label58x40,
}

// LookupSize finds a label size by name. The "mm" suffix is optional.
func LookupSize(name string) (LabelSize, bool) {
	want := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "mm")
	for _, s := range AllSizes {
		if strings.TrimSuffix(s.Name, "mm") == want {
			return s, true
		}
	}

	return LabelSize{}, false
}

// SizeNames returns the names of AllSizes.
func SizeNames() []string {
	names := make([]string, 0, len(AllSizes))
	for _, s := range AllSizes {
		names = append(names, s.Name)
	}

	return names
}

// Command accumulates TSPL2 statements. Every statement ends in CRLF.
type Command struct {
	buf bytes.Buffer
}

func New() *Command {
	return &Command{}
}

// Size sets label dimensions.
func (c *Command) Size(width, height float64) *Command {
	fmt.Fprintf(&c.buf, "SIZE %.1f mm,%.1f mm\r\n", width, height)
	return c
}

// Gap sets the gap between labels.
func (c *Command) Gap(gap, offset float64) *Command {
	fmt.Fprintf(&c.buf, "GAP %.1f mm,%.1f mm\r\n", gap, offset)
	return c
}

// Direction sets the print direction (0 or 1) and mirroring.
func (c *Command) Direction(dir, mirror int) *Command {
	fmt.Fprintf(&c.buf, "DIRECTION %d,%d\r\n", dir, mirror)
	return c
}

// Density sets print darkness, clamped to 0-15.
func (c *Command) Density(level int) *Command {
	fmt.Fprintf(&c.buf, "DENSITY %d\r\n", min(max(level, 0), 15))
	return c
}

// CLS clears the image buffer.
func (c *Command) CLS() *Command {
	c.buf.WriteString("CLS\r\n")
	return c
}

// Bitmap places a packed 1-bit image at (x, y) in dots.
func (c *Command) Bitmap(x, y, widthBytes, height int, data []byte) *Command {
	fmt.Fprintf(&c.buf, "BITMAP %d,%d,%d,%d,1,", x, y, widthBytes, height)
	c.buf.Write(data)
	c.buf.WriteString("\r\n")
	return c
}

// Print prints n copies.
func (c *Command) Print(copies int) *Command {
	fmt.Fprintf(&c.buf, "PRINT %d\r\n", max(copies, 1))
	return c
}

// Bytes returns the raw command stream.
func (c *Command) Bytes() []byte {
	return bytes.Clone(c.buf.Bytes())
}

func (c *Command) String() string {
	return c.buf.String()
}

// Job is one label print.
type Job struct {
	Size    LabelSize
	Density int
	Copies  int
	Bitmap  []byte // WidthBytes()*PixelH bytes, row-major, MSB first
}

// Build renders the job into a command stream.
func (j Job) Build() ([]byte, error) {
	if want := j.Size.WidthBytes() * j.Size.PixelH; len(j.Bitmap) != want {
		return nil, fmt.Errorf("bitmap is %d bytes, %s needs %d", len(j.Bitmap), j.Size.Name, want)
	}

	cmd := New().
		Size(j.Size.Width, j.Size.Height).
		Gap(5.0, 0).
		Direction(0, 0).
		Density(j.Density).
		CLS().
		Bitmap(0, 0, j.Size.WidthBytes(), j.Size.PixelH, j.Bitmap).
		Print(j.Copies)

	return cmd.Bytes(), nil
}
