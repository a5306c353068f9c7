package storedpng

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// ColorFormat is the layout of a single pixel. All formats use 8 bits per
// channel.
type ColorFormat uint8

const (
	// Gray is one luminance channel.
	Gray ColorFormat = iota + 1
	// GrayAlpha is luminance followed by alpha.
	GrayAlpha
	// RGB is red, green, blue.
	RGB
	// RGBA is red, green, blue, alpha.
	RGBA
)

// BitDepth is the number of bits per channel of every format.
const BitDepth = 8

type colorFormatInfo struct {
	name      string
	channels  int
	colorType byte
}

var colorFormats = map[ColorFormat]colorFormatInfo{
	Gray:      {"gray", 1, 0},
	GrayAlpha: {"grayalpha", 2, 4},
	RGB:       {"rgb", 3, 2},
	RGBA:      {"rgba", 4, 6},
}

// Valid reports whether `f` is one of the defined formats.
func (f ColorFormat) Valid() bool {
	_, ok := colorFormats[f]
	return ok
}

// Channels returns the number of bytes per pixel, or 0 for an invalid format.
func (f ColorFormat) Channels() int {
	return colorFormats[f].channels
}

// ColorType returns the PNG color type code written to the IHDR chunk.
func (f ColorFormat) ColorType() byte {
	return colorFormats[f].colorType
}

func (f ColorFormat) String() string {
	info, ok := colorFormats[f]
	if !ok {
		return fmt.Sprintf("ColorFormat(%d)", uint8(f))
	}
	return info.name
}

// ParseColorFormat is the inverse of [ColorFormat.String]. Case is ignored.
func ParseColorFormat(name string) (ColorFormat, error) {
	name = strings.ToLower(name)
	for format, info := range colorFormats {
		if info.name == name {
			return format, nil
		}
	}
	return 0, ErrContractViolation.WithMessage(
		fmt.Sprintf("unknown color format %q", name))
}

// colorFormatFromType maps a PNG color type back to a [ColorFormat].
func colorFormatFromType(colorType byte) (ColorFormat, bool) {
	for format, info := range colorFormats {
		if info.colorType == colorType {
			return format, true
		}
	}
	return 0, false
}

// Shape gives the dimensions of an image in pixels.
type Shape struct {
	Width  uint32
	Height uint32
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// RowBytes returns the number of bytes in one row of pixels.
func (s Shape) RowBytes(format ColorFormat) uint64 {
	return uint64(s.Width) * uint64(format.Channels())
}

// PixelBytes returns the length a pixel buffer of this shape must have. It
// saturates at math.MaxUint64 instead of overflowing.
func (s Shape) PixelBytes(format ColorFormat) uint64 {
	hi, lo := bits.Mul64(s.RowBytes(format), uint64(s.Height))
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
