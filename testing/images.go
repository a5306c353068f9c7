package testing

import (
	"bytes"
	"crypto/rand"
	"image"
	"image/png"
	"io"
	"testing"

	"github.com/dargueta/storedpng"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// CreateRandomPixels returns a pixel buffer of the right size for an image of
// the given format and shape, filled with random bytes. It is guaranteed to
// either return a valid slice or fail the test and abort.
func CreateRandomPixels(format storedpng.ColorFormat, shape storedpng.Shape, t *testing.T) []byte {
	pixels := make([]byte, shape.PixelBytes(format))

	_, err := rand.Read(pixels)
	require.NoErrorf(
		t,
		err,
		"failed to initialize %s %s image with random bytes",
		shape,
		format,
	)
	return pixels
}

// EncodeToStream encodes an image into a fixed-size stream of exactly
// [storedpng.PredictedSize] bytes and returns the stream, rewound to the
// beginning.
//
//   - The test fails if encoding fails, or if the encoder stops short of the
//     predicted size.
//   - The stream can't grow, so writing past the predicted size also fails.
func EncodeToStream(
	t *testing.T, format storedpng.ColorFormat, shape storedpng.Shape, pixels []byte,
) io.ReadWriteSeeker {
	size := storedpng.PredictedSize(format, shape)
	stream := bytesextra.NewReadWriteSeeker(make([]byte, size))

	err := storedpng.Encode(stream, format, shape, pixels)
	require.NoError(t, err, "failed to encode %s %s image", shape, format)

	written, err := stream.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	require.EqualValues(t, size, written, "encoder wrote the wrong number of bytes")

	_, err = stream.Seek(0, io.SeekStart)
	require.NoError(t, err)
	return stream
}

// EncodeToBytes is like [EncodeToStream] but returns the encoded image in a new
// byte slice.
func EncodeToBytes(
	t *testing.T, format storedpng.ColorFormat, shape storedpng.Shape, pixels []byte,
) []byte {
	stream := EncodeToStream(t, format, shape, pixels)

	encoded := make([]byte, storedpng.PredictedSize(format, shape))
	_, err := io.ReadFull(stream, encoded)
	require.NoError(t, err, "failed to read back encoded image")
	return encoded
}

// DecodePNG decodes `encoded` with the standard library's PNG decoder and
// converts the result back to a raw pixel buffer in the given format.
func DecodePNG(t *testing.T, encoded []byte, format storedpng.ColorFormat) (image.Image, []byte) {
	img, err := png.Decode(bytes.NewReader(encoded))
	require.NoError(t, err, "image/png rejected the image")

	pixels, err := storedpng.RawPixels(img, format)
	require.NoError(t, err)
	return img, pixels
}
