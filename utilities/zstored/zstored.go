package zstored

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/adler32"
	"io"

	"github.com/noxer/bytewriter"
)

// MaxBlockSize is the largest payload a single stored block can carry.
const MaxBlockSize = 0xffff

// HeaderSize is the size of the zlib stream header.
const HeaderSize = 2

// BlockHeaderSize is the size of a stored block's header: the BFINAL/BTYPE
// byte followed by LEN and NLEN.
const BlockHeaderSize = 5

// TrailerSize is the size of the Adler-32 checksum ending the stream.
const TrailerSize = 4

// Header is the zlib stream header: CM 8 (deflate) with a 32 KiB window
// (CMF 0x78), no preset dictionary, FLEVEL 0, and FCHECK chosen so that
// 0x7801 is a multiple of 31.
var Header = [HeaderSize]byte{0x78, 0x01}

const (
	blockNotFinal byte = 0x00 // BFINAL 0, BTYPE 00
	blockFinal    byte = 0x01 // BFINAL 1, BTYPE 00
)

// ErrSizeMismatch is returned by [Pack] if the number of bytes it produced
// differs from [StreamSize]. It indicates a bug.
var ErrSizeMismatch = errors.New("stored stream size doesn't match prediction")

// BlockCount returns the number of stored blocks used to carry a payload of
// `payloadSize` bytes. This is always at least 1.
func BlockCount(payloadSize uint64) uint64 {
	return payloadSize/MaxBlockSize + 1
}

// StreamSize returns the exact size of the zlib stream [WriteStream] produces
// for a payload of `payloadSize` bytes.
func StreamSize(payloadSize uint64) uint64 {
	return HeaderSize + BlockHeaderSize*BlockCount(payloadSize) + payloadSize + TrailerSize
}

// blockHeader builds the five-byte header for a stored block of `size` bytes.
func blockHeader(size int, final bool) [BlockHeaderSize]byte {
	var header [BlockHeaderSize]byte
	if final {
		header[0] = blockFinal
	} else {
		header[0] = blockNotFinal
	}
	binary.LittleEndian.PutUint16(header[1:3], uint16(size))
	binary.LittleEndian.PutUint16(header[3:5], ^uint16(size))
	return header
}

// WriteStream writes `payload` to `output` as a zlib stream of stored blocks.
//
// The returned int64 gives the number of bytes written. If an error occurred,
// it's the number written before the failure, and the stream is incomplete.
func WriteStream(output io.Writer, payload []byte) (int64, error) {
	checksum := adler32.New()
	totalBytesWritten := int64(0)

	write := func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		n, err := output.Write(data)
		totalBytesWritten += int64(n)
		if err == nil && n < len(data) {
			err = io.ErrShortWrite
		}
		return err
	}

	if err := write(Header[:]); err != nil {
		return totalBytesWritten, err
	}

	remaining := payload
	for len(remaining) >= MaxBlockSize {
		block := remaining[:MaxBlockSize]
		remaining = remaining[MaxBlockSize:]

		header := blockHeader(len(block), false)
		if err := write(header[:]); err != nil {
			return totalBytesWritten, err
		}
		if err := write(block); err != nil {
			return totalBytesWritten, err
		}
		checksum.Write(block)
	}

	// The final block carries what's left, possibly nothing.
	header := blockHeader(len(remaining), true)
	if err := write(header[:]); err != nil {
		return totalBytesWritten, err
	}
	if err := write(remaining); err != nil {
		return totalBytesWritten, err
	}
	checksum.Write(remaining)

	var trailer [TrailerSize]byte
	binary.BigEndian.PutUint32(trailer[:], checksum.Sum32())
	err := write(trailer[:])
	return totalBytesWritten, err
}

// Pack returns `payload` wrapped in a zlib stream of stored blocks.
//
// The output buffer is allocated once with [StreamSize] bytes and filled with
// bounds-checked writes. Writing past its end is an error, and so is leaving
// part of it unwritten.
func Pack(payload []byte) ([]byte, error) {
	expectedSize := StreamSize(uint64(len(payload)))
	output := make([]byte, expectedSize)

	n, err := WriteStream(bytewriter.New(output), payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSizeMismatch, err.Error())
	}
	if uint64(n) != expectedSize {
		return nil, fmt.Errorf(
			"%w: expected %d bytes, wrote %d", ErrSizeMismatch, expectedSize, n)
	}
	return output, nil
}
