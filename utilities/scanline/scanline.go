// Package scanline prepares raw pixel rows for a PNG image data stream.
//
// Every row of a PNG image is prefixed with a single byte naming the filter
// that was applied to it. This package only ever applies the None filter, so
// the row bytes are copied through unchanged.
package scanline

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/noxer/bytewriter"
)

// FilterNone is the filter type tag for a row stored without any transform.
const FilterNone byte = 0

// FramedSize returns the number of bytes produced by framing `height` rows of
// `rowBytes` bytes each: one tag byte plus the row itself, per row. The second
// return value is false if the size doesn't fit in 64 bits.
func FramedSize(rowBytes, height uint64) (uint64, bool) {
	if rowBytes == ^uint64(0) {
		return 0, height == 0
	}
	hi, lo := bits.Mul64(rowBytes+1, height)
	return lo, hi == 0
}

func checkLayout(pixels []byte, rowBytes, height int) error {
	if rowBytes < 0 || height < 0 {
		return fmt.Errorf("negative image layout: %d rows of %d bytes", height, rowBytes)
	}
	hi, lo := bits.Mul64(uint64(rowBytes), uint64(height))
	if hi != 0 || lo != uint64(len(pixels)) {
		return fmt.Errorf(
			"pixel buffer of %d bytes doesn't hold %d rows of %d bytes",
			len(pixels),
			height,
			rowBytes,
		)
	}
	return nil
}

// FrameRows writes `height` rows of `rowBytes` bytes from `pixels` to `output`,
// each preceded by [FilterNone]. Zero-width rows consist of the tag byte alone.
//
// The returned int64 gives the number of bytes written. If an error occurred,
// it's the number written before the failure.
func FrameRows(output io.Writer, pixels []byte, rowBytes, height int) (int64, error) {
	if err := checkLayout(pixels, rowBytes, height); err != nil {
		return 0, err
	}

	tag := []byte{FilterNone}
	totalBytesWritten := int64(0)
	for row := 0; row < height; row++ {
		n, err := output.Write(tag)
		totalBytesWritten += int64(n)
		if err != nil {
			return totalBytesWritten, err
		}

		if rowBytes == 0 {
			continue
		}
		start := row * rowBytes
		n, err = output.Write(pixels[start : start+rowBytes])
		totalBytesWritten += int64(n)
		if err != nil {
			return totalBytesWritten, err
		}
	}
	return totalBytesWritten, nil
}

// FrameBytes runs [FrameRows] into a new slice of exactly [FramedSize] bytes.
func FrameBytes(pixels []byte, rowBytes, height int) ([]byte, error) {
	if err := checkLayout(pixels, rowBytes, height); err != nil {
		return nil, err
	}

	size, ok := FramedSize(uint64(rowBytes), uint64(height))
	if !ok || size > uint64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%d rows of %d bytes are too large to frame", height, rowBytes)
	}

	framed := make([]byte, size)
	n, err := FrameRows(bytewriter.New(framed), pixels, rowBytes, height)
	if err != nil {
		return nil, err
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("framed %d bytes, expected %d", n, size)
	}
	return framed, nil
}
