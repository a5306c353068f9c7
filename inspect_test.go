package storedpng_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/dargueta/storedpng"
	storedtest "github.com/dargueta/storedpng/testing"
	"github.com/dargueta/storedpng/utilities/chunk"
	"github.com/dargueta/storedpng/utilities/zstored"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect__EncodedImage(t *testing.T) {
	shape := storedpng.Shape{Width: 21, Height: 13}
	pixels := storedtest.CreateRandomPixels(storedpng.GrayAlpha, shape, t)
	encoded := storedtest.EncodeToBytes(t, storedpng.GrayAlpha, shape, pixels)

	report, err := storedpng.Inspect(bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, shape, report.Shape)
	assert.Equal(t, storedpng.GrayAlpha, report.Format)
	assert.True(t, report.Unfiltered)
	assert.Equal(t, pixels, report.Pixels)
	assert.Equal(t, 13*(21*2+1), report.FramedSize)
	assert.Equal(t, report.FramedSize+2+5+4, report.StreamSize)

	types := []string{}
	for _, info := range report.Chunks {
		types = append(types, info.Type)
	}
	assert.Equal(t, []string{"IHDR", "sRGB", "IDAT", "IEND"}, types)
	assert.EqualValues(t, 8, report.Chunks[0].Offset)
	assert.Equal(t, 13, report.Chunks[0].Length)
	assert.Equal(t, "aece1ce9", report.Chunks[1].CRC)
	assert.Equal(t, "ae426082", report.Chunks[3].CRC)
}

func TestInspect__BadSignature(t *testing.T) {
	_, err := storedpng.Inspect(bytes.NewReader([]byte("GIF89a..........")))
	assert.ErrorIs(t, err, storedpng.ErrMalformedImage)

	_, err = storedpng.Inspect(bytes.NewReader([]byte{0x89, 'P'}))
	assert.ErrorIs(t, err, storedpng.ErrMalformedImage)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestInspect__CorruptedCRCs(t *testing.T) {
	shape := storedpng.Shape{Width: 4, Height: 4}
	pixels := storedtest.CreateRandomPixels(storedpng.RGB, shape, t)
	encoded := storedtest.EncodeToBytes(t, storedpng.RGB, shape, pixels)

	// Flip a pixel byte inside IDAT and the last byte of the IEND CRC.
	encoded[8+25+13+8+10] ^= 0x55
	encoded[len(encoded)-1] ^= 0xff

	report, err := storedpng.Inspect(bytes.NewReader(encoded))
	require.Error(t, err)
	assert.ErrorIs(t, err, storedpng.ErrMalformedImage)
	assert.ErrorIs(t, err, chunk.ErrBadCRC)
	assert.Contains(t, err.Error(), "IDAT")
	assert.Contains(t, err.Error(), "IEND")
	assert.Len(t, report.Chunks, 4, "chunks with bad CRCs should still be listed")
}

func TestInspect__Truncated(t *testing.T) {
	shape := storedpng.Shape{Width: 4, Height: 4}
	encoded := storedtest.EncodeToBytes(
		t, storedpng.Gray, shape, storedtest.CreateRandomPixels(storedpng.Gray, shape, t))

	report, err := storedpng.Inspect(bytes.NewReader(encoded[:len(encoded)-20]))
	assert.ErrorIs(t, err, storedpng.ErrMalformedImage)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Len(t, report.Chunks, 2)
}

func TestInspect__RejectsUnsupportedHeader(t *testing.T) {
	buffer := bytes.Buffer{}
	buffer.Write(storedpng.Signature[:])

	header := make([]byte, 13)
	binary.BigEndian.PutUint32(header[0:], 2)
	binary.BigEndian.PutUint32(header[4:], 2)
	header[8] = 16 // bit depth
	header[9] = 3  // palette
	header[12] = 1 // Adam7
	_, err := chunk.Write(&buffer, chunk.IHDR, header)
	require.NoError(t, err)
	_, err = chunk.Write(&buffer, chunk.IEND, nil)
	require.NoError(t, err)

	_, err = storedpng.Inspect(&buffer)
	require.ErrorIs(t, err, storedpng.ErrMalformedImage)
	for _, fragment := range []string{"bit depth", "color type", "interlace", "no IDAT"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

// buildImage assembles a PNG from an arbitrary header and the stored-block
// encoding of `framed`.
func buildImage(t *testing.T, format storedpng.ColorFormat, shape storedpng.Shape, framed []byte) []byte {
	buffer := bytes.Buffer{}
	buffer.Write(storedpng.Signature[:])

	header := make([]byte, 13)
	binary.BigEndian.PutUint32(header[0:], shape.Width)
	binary.BigEndian.PutUint32(header[4:], shape.Height)
	header[8] = storedpng.BitDepth
	header[9] = format.ColorType()

	stream, err := zstored.Pack(framed)
	require.NoError(t, err)

	_, err = chunk.Write(&buffer, chunk.IHDR, header)
	require.NoError(t, err)
	_, err = chunk.Write(&buffer, chunk.IDAT, stream)
	require.NoError(t, err)
	_, err = chunk.Write(&buffer, chunk.IEND, nil)
	require.NoError(t, err)
	return buffer.Bytes()
}

type sizeMismatchTestCase struct {
	Name     string
	Format   storedpng.ColorFormat
	Shape    storedpng.Shape
	Fragment string
}

func TestInspect__ImageDataSizeMismatch(t *testing.T) {
	testCases := []sizeMismatchTestCase{
		// The framed size (3w+1)*h of this shape wraps around to exactly 64
		// in 64-bit arithmetic.
		{
			"wrapping RGB",
			storedpng.RGB,
			storedpng.Shape{Width: 1431743149, Height: 4294705160},
			"too large",
		},
		{
			"huge RGBA",
			storedpng.RGBA,
			storedpng.Shape{Width: 0xffffffff, Height: 0xffffffff},
			"too large",
		},
		{
			"short data",
			storedpng.GrayAlpha,
			storedpng.Shape{Width: 100, Height: 100},
			"inflates to 64 bytes",
		},
	}

	for _, test := range testCases {
		t.Run(
			test.Name,
			func(t *testing.T) {
				encoded := buildImage(t, test.Format, test.Shape, make([]byte, 64))

				var report storedpng.Report
				var err error
				require.NotPanics(t, func() {
					report, err = storedpng.Inspect(bytes.NewReader(encoded))
				})
				require.ErrorIs(t, err, storedpng.ErrMalformedImage)
				assert.Contains(t, err.Error(), test.Fragment)
				assert.Equal(t, test.Shape, report.Shape)
				assert.Equal(t, 64, report.FramedSize)
				assert.Nil(t, report.Pixels)
			},
		)
	}
}

func TestInspect__FilteredImage(t *testing.T) {
	// image/png filters rows when compressing, so the inspector can read the
	// shape but not hand back the pixels.
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	buffer := bytes.Buffer{}
	require.NoError(t, png.Encode(&buffer, img))

	report, err := storedpng.Inspect(&buffer)
	require.NoError(t, err)
	assert.Equal(t, storedpng.Shape{Width: 32, Height: 32}, report.Shape)
	assert.Equal(t, storedpng.Gray, report.Format)
	assert.Equal(t, 32*33, report.FramedSize)
	if !report.Unfiltered {
		assert.Nil(t, report.Pixels)
	}
}

func TestRawPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	img.SetNRGBA(1, 0, color.NRGBA{R: 5, G: 6, B: 7, A: 255})

	tests := []struct {
		Format   storedpng.ColorFormat
		Expected []byte
	}{
		{storedpng.Gray, []byte{1, 5}},
		{storedpng.GrayAlpha, []byte{1, 4, 5, 255}},
		{storedpng.RGB, []byte{1, 2, 3, 5, 6, 7}},
		{storedpng.RGBA, []byte{1, 2, 3, 4, 5, 6, 7, 255}},
	}
	for _, test := range tests {
		t.Run(
			test.Format.String(),
			func(t *testing.T) {
				pixels, err := storedpng.RawPixels(img, test.Format)
				require.NoError(t, err)
				assert.Equal(t, test.Expected, pixels)
			},
		)
	}

	_, err := storedpng.RawPixels(img, storedpng.ColorFormat(0))
	assert.ErrorIs(t, err, storedpng.ErrContractViolation)
}

func TestEncodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(3, 4, 8, 9))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	buffer := bytes.Buffer{}
	require.NoError(t, storedpng.EncodeImage(&buffer, img, storedpng.RGBA))

	decoded, err := png.Decode(&buffer)
	require.NoError(t, err)
	assert.Equal(t, 5, decoded.Bounds().Dx())
	assert.Equal(t, 5, decoded.Bounds().Dy())

	want, err := storedpng.RawPixels(img, storedpng.RGBA)
	require.NoError(t, err)
	got, err := storedpng.RawPixels(decoded, storedpng.RGBA)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
