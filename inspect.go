package storedpng

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dargueta/storedpng/utilities/chunk"
	"github.com/dargueta/storedpng/utilities/scanline"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zlib"
)

// ChunkInfo describes one chunk found by [Inspect].
type ChunkInfo struct {
	Type   string `csv:"type"`
	Offset int64  `csv:"offset"`
	Length int    `csv:"length"`
	CRC    string `csv:"crc"`
}

// Report is the result of [Inspect].
type Report struct {
	Shape  Shape
	Format ColorFormat
	Chunks []ChunkInfo
	// StreamSize is the total size of all IDAT payloads, i.e. the compressed
	// image data.
	StreamSize int
	// FramedSize is the size of the image data after inflating it, including
	// the filter tag at the start of each row.
	FramedSize int
	// Unfiltered is true if every row uses [scanline.FilterNone].
	Unfiltered bool
	// Pixels holds the raw pixel buffer. It's only filled in if the image
	// data is unfiltered and has the length the header says it should.
	Pixels []byte
}

// Inspect reads a PNG file and checks that it's something [Encode] could have
// produced: 8-bit, non-interlaced, in one of the [ColorFormat]s. It verifies
// every chunk's CRC, inflates the image data, and checks its length against
// the header.
//
// Every problem found is reported, combined into a single error matching
// [ErrMalformedImage]. Whatever could be determined is in the returned
// [Report] even when there's an error.
func Inspect(input io.Reader) (Report, error) {
	report := Report{}

	var signature [8]byte
	if _, err := io.ReadFull(input, signature[:]); err != nil {
		return report, ErrMalformedImage.Wrap(err)
	}
	if signature != Signature {
		return report, ErrMalformedImage.WithMessage(
			fmt.Sprintf("bad signature % x", signature[:]))
	}

	var problems *multierror.Error
	var imageData bytes.Buffer
	seenHeader := false
	seenImageData := false
	seenEnd := false

	reader := chunk.NewReader(input)
	for {
		current, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			problems = multierror.Append(problems, err)
			if !errors.Is(err, chunk.ErrBadCRC) {
				break
			}
		}

		report.Chunks = append(report.Chunks, ChunkInfo{
			Type:   current.Type.String(),
			Offset: current.Offset + int64(len(Signature)),
			Length: len(current.Payload),
			CRC:    fmt.Sprintf("%08x", current.CRC),
		})

		if !seenHeader && current.Type != chunk.IHDR {
			problems = multierror.Append(
				problems, fmt.Errorf("first chunk is %s, not IHDR", current.Type))
			seenHeader = true
		}

		switch current.Type {
		case chunk.IHDR:
			if len(report.Chunks) > 1 {
				problems = multierror.Append(problems, errors.New("IHDR isn't the first chunk"))
				continue
			}
			seenHeader = true
			if err := parseHeader(current.Payload, &report); err != nil {
				problems = multierror.Append(problems, err)
			}
		case chunk.SRGB:
			if seenImageData {
				problems = multierror.Append(problems, errors.New("sRGB chunk follows IDAT"))
			}
			if len(current.Payload) != srgbPayloadSize {
				problems = multierror.Append(
					problems, fmt.Errorf("sRGB chunk has %d bytes, expected 1", len(current.Payload)))
			}
		case chunk.IDAT:
			seenImageData = true
			imageData.Write(current.Payload)
		case chunk.IEND:
			seenEnd = true
		default:
			if current.Type.IsCritical() {
				problems = multierror.Append(
					problems, fmt.Errorf("unsupported critical chunk %s", current.Type))
			}
		}
	}

	if !seenImageData {
		problems = multierror.Append(problems, errors.New("no IDAT chunk"))
	}
	if !seenEnd {
		problems = multierror.Append(problems, errors.New("no IEND chunk"))
	}

	report.StreamSize = imageData.Len()
	if seenImageData {
		if err := inflateImageData(imageData.Bytes(), &report); err != nil {
			problems = multierror.Append(problems, err)
		}
	}

	if err := problems.ErrorOrNil(); err != nil {
		return report, ErrMalformedImage.Wrap(err)
	}
	return report, nil
}

// parseHeader decodes an IHDR payload into `report`. Values this package
// can't produce are errors.
func parseHeader(payload []byte, report *Report) error {
	if len(payload) != headerPayloadSize {
		return fmt.Errorf("IHDR chunk has %d bytes, expected %d", len(payload), headerPayloadSize)
	}

	var problems *multierror.Error
	report.Shape = Shape{
		Width:  binary.BigEndian.Uint32(payload[0:4]),
		Height: binary.BigEndian.Uint32(payload[4:8]),
	}
	if report.Shape.Width == 0 || report.Shape.Height == 0 {
		problems = multierror.Append(
			problems, fmt.Errorf("image dimensions %s must be non-zero", report.Shape))
	}
	if payload[8] != BitDepth {
		problems = multierror.Append(problems, fmt.Errorf("unsupported bit depth %d", payload[8]))
	}

	format, ok := colorFormatFromType(payload[9])
	if ok {
		report.Format = format
	} else {
		problems = multierror.Append(problems, fmt.Errorf("unsupported color type %d", payload[9]))
	}

	if payload[10] != compressionMethodDeflate {
		problems = multierror.Append(
			problems, fmt.Errorf("unknown compression method %d", payload[10]))
	}
	if payload[11] != filterMethodAdaptive {
		problems = multierror.Append(problems, fmt.Errorf("unknown filter method %d", payload[11]))
	}
	if payload[12] != interlaceMethodNone {
		problems = multierror.Append(
			problems, fmt.Errorf("unsupported interlace method %d", payload[12]))
	}
	return problems.ErrorOrNil()
}

// inflateImageData decompresses the concatenated IDAT payloads and, if the
// header was understood, pulls the pixel rows out of them.
func inflateImageData(stream []byte, report *Report) error {
	zr, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return fmt.Errorf("bad image data stream: %w", err)
	}
	defer zr.Close()

	framed, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("failed to inflate image data: %w", err)
	}
	report.FramedSize = len(framed)

	if !report.Format.Valid() {
		return nil
	}

	rowBytes := report.Shape.RowBytes(report.Format)
	height := uint64(report.Shape.Height)
	expected, ok := scanline.FramedSize(rowBytes, height)
	if !ok {
		return fmt.Errorf(
			"%s %s image is too large to hold in memory", report.Shape, report.Format)
	}
	if uint64(len(framed)) != expected {
		return fmt.Errorf(
			"image data inflates to %d bytes, expected %d for %s %s",
			len(framed),
			expected,
			report.Shape,
			report.Format,
		)
	}

	extractPixels(framed, int(rowBytes), int(height), report)
	return nil
}

// extractPixels copies the rows out of `framed`, which must already be known to
// hold exactly `height` framed rows of `rowBytes` bytes.
func extractPixels(framed []byte, rowBytes, height int, report *Report) {
	report.Unfiltered = true
	pixels := make([]byte, 0, rowBytes*height)
	for row := 0; row < height; row++ {
		offset := row * (rowBytes + 1)
		if framed[offset] != scanline.FilterNone {
			report.Unfiltered = false
			return
		}
		pixels = append(pixels, framed[offset+1:offset+1+rowBytes]...)
	}
	report.Pixels = pixels
}
