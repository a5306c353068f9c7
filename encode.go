// Package storedpng writes PNG images without compressing them.
//
// The image data of a PNG is a zlib stream, and DEFLATE allows blocks to be
// stored verbatim. Using only stored blocks makes encoding a single copy of the
// pixels plus two checksums, and the size of the output depends only on the
// image's format and dimensions. [PredictedSize] gives that size up front.
//
// Every image is written with 8 bits per channel, no filtering, no interlacing,
// and an sRGB chunk declaring perceptual rendering intent. The chunks are
// always, in order: IHDR, sRGB, IDAT, IEND.
package storedpng

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dargueta/storedpng/utilities/chunk"
	"github.com/dargueta/storedpng/utilities/scanline"
	"github.com/dargueta/storedpng/utilities/zstored"
	"github.com/noxer/bytewriter"
)

// Signature is the eight bytes every PNG file starts with.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	headerPayloadSize = 13
	srgbPayloadSize   = 1

	compressionMethodDeflate = 0
	filterMethodAdaptive     = 0
	interlaceMethodNone      = 0

	renderingIntentPerceptual = 0
)

// framedSize returns the size of the scanline-framed pixel data, or false if it
// doesn't fit in 64 bits.
func framedSize(format ColorFormat, shape Shape) (uint64, bool) {
	return scanline.FramedSize(shape.RowBytes(format), uint64(shape.Height))
}

// PredictedSize returns the exact number of bytes [Encode] writes for an image
// of the given format and shape. It doesn't need the pixels.
//
// Shapes too large to be encoded at all give math.MaxInt64.
func PredictedSize(format ColorFormat, shape Shape) int64 {
	framed, ok := framedSize(format, shape)
	if !ok || framed > math.MaxInt64/2 {
		return math.MaxInt64
	}

	return int64(uint64(len(Signature)) +
		chunk.Size(headerPayloadSize) +
		chunk.Size(srgbPayloadSize) +
		chunk.Size(zstored.StreamSize(framed)) +
		chunk.Size(0))
}

// validate checks that `pixels` describes an image of the given format and
// shape that fits in a single IDAT chunk.
func validate(format ColorFormat, shape Shape, pixels []byte) EncodeError {
	if !format.Valid() {
		return ErrContractViolation.WithMessage(
			fmt.Sprintf("unknown color format %d", uint8(format)))
	}

	framed, ok := framedSize(format, shape)
	if !ok || framed > chunk.MaxLength || zstored.StreamSize(framed) > chunk.MaxLength {
		return ErrContractViolation.WithMessage(
			fmt.Sprintf("%s %s image is too large for one IDAT chunk", shape, format))
	}

	if expected := shape.PixelBytes(format); uint64(len(pixels)) != expected {
		return ErrContractViolation.WithMessage(
			fmt.Sprintf(
				"%s %s image needs %d bytes of pixel data, got %d",
				shape,
				format,
				expected,
				len(pixels),
			),
		)
	}
	return nil
}

// headerPayload builds the contents of the IHDR chunk.
func headerPayload(format ColorFormat, shape Shape) []byte {
	payload := make([]byte, headerPayloadSize)
	binary.BigEndian.PutUint32(payload[0:4], shape.Width)
	binary.BigEndian.PutUint32(payload[4:8], shape.Height)
	payload[8] = BitDepth
	payload[9] = format.ColorType()
	payload[10] = compressionMethodDeflate
	payload[11] = filterMethodAdaptive
	payload[12] = interlaceMethodNone
	return payload
}

// writeImage writes the complete PNG file for an already-validated image.
func writeImage(output io.Writer, format ColorFormat, shape Shape, pixels []byte) (int64, error) {
	framed, err := scanline.FrameBytes(
		pixels, int(shape.RowBytes(format)), int(shape.Height))
	if err != nil {
		return 0, err
	}

	stream, err := zstored.Pack(framed)
	if err != nil {
		return 0, err
	}

	n, err := output.Write(Signature[:])
	totalBytesWritten := int64(n)
	if err != nil {
		return totalBytesWritten, err
	}

	chunks := []struct {
		chunkType chunk.Type
		payload   []byte
	}{
		{chunk.IHDR, headerPayload(format, shape)},
		{chunk.SRGB, []byte{renderingIntentPerceptual}},
		{chunk.IDAT, stream},
		{chunk.IEND, nil},
	}
	for _, c := range chunks {
		n, err := chunk.Write(output, c.chunkType, c.payload)
		totalBytesWritten += n
		if err != nil {
			return totalBytesWritten, err
		}
	}
	return totalBytesWritten, nil
}

// EncodeToBytes returns the PNG encoding of `pixels`, an image of the given
// format and shape. `pixels` holds the rows top to bottom with no padding
// between them, so its length must be exactly width × height × channels.
//
// The returned slice is always [PredictedSize] bytes long.
func EncodeToBytes(format ColorFormat, shape Shape, pixels []byte) ([]byte, error) {
	if err := validate(format, shape, pixels); err != nil {
		return nil, err
	}

	expectedSize := PredictedSize(format, shape)
	output := make([]byte, expectedSize)

	n, err := writeImage(bytewriter.New(output), format, shape, pixels)
	if err != nil {
		panic(fmt.Sprintf(
			"BUG: encoding %s %s image into %d-byte buffer failed after %d bytes: %s",
			shape,
			format,
			expectedSize,
			n,
			err.Error(),
		))
	}
	if n != expectedSize {
		panic(fmt.Sprintf(
			"BUG: %s %s image is %d bytes, predicted %d", shape, format, n, expectedSize))
	}
	return output, nil
}

// Encode writes the PNG encoding of `pixels` to `output`. See [EncodeToBytes]
// for the layout `pixels` must have.
//
// If the arguments don't describe a valid image, an error matching
// [ErrContractViolation] is returned and nothing is written. If `output` fails,
// the error it returned is wrapped in [ErrSinkFailure]. There is no retry, and
// bytes it accepted before failing are not rolled back.
func Encode(output io.Writer, format ColorFormat, shape Shape, pixels []byte) error {
	encoded, err := EncodeToBytes(format, shape, pixels)
	if err != nil {
		return err
	}

	n, err := output.Write(encoded)
	if err != nil {
		return ErrSinkFailure.Wrap(err)
	}
	if n < len(encoded) {
		return ErrSinkFailure.Wrap(io.ErrShortWrite)
	}
	return nil
}
