// Package chunk reads and writes PNG chunks: a big-endian length, a four-byte
// type, the payload, and a CRC-32 over the type and payload.
package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Type is a four-byte chunk type such as "IHDR".
type Type [4]byte

var (
	IHDR = Type{'I', 'H', 'D', 'R'}
	SRGB = Type{'s', 'R', 'G', 'B'}
	IDAT = Type{'I', 'D', 'A', 'T'}
	IEND = Type{'I', 'E', 'N', 'D'}
)

func (t Type) String() string {
	return string(t[:])
}

// IsCritical reports whether a decoder must understand this chunk type to
// display the image. Bit 5 of the first byte (lowercase) marks it ancillary.
func (t Type) IsCritical() bool {
	return t[0]&0x20 == 0
}

// Overhead is the number of bytes a chunk adds around its payload.
const Overhead = 4 + 4 + 4

// MaxLength is the largest payload a chunk may declare.
const MaxLength = 1<<31 - 1

var ErrTooLarge = errors.New("chunk payload too large")
var ErrBadCRC = errors.New("chunk CRC mismatch")

// Size returns the total number of bytes taken by a chunk carrying
// `payloadSize` bytes.
func Size(payloadSize uint64) uint64 {
	return Overhead + payloadSize
}

// Checksum computes the CRC stored at the end of a chunk.
func Checksum(chunkType Type, payload []byte) uint32 {
	crc := crc32.NewIEEE()
	crc.Write(chunkType[:])
	crc.Write(payload)
	return crc.Sum32()
}

// Write writes one chunk to `output`.
//
// The returned int64 gives the number of bytes written. If an error occurred,
// it's the number written before the failure. An oversize payload is rejected
// before anything is written.
func Write(output io.Writer, chunkType Type, payload []byte) (int64, error) {
	if uint64(len(payload)) > MaxLength {
		return 0, fmt.Errorf(
			"%w: %s chunk of %d bytes exceeds %d",
			ErrTooLarge,
			chunkType,
			len(payload),
			uint64(MaxLength),
		)
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)))
	copy(header[4:], chunkType[:])

	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], Checksum(chunkType, payload))

	totalBytesWritten := int64(0)
	for _, part := range [][]byte{header[:], payload, footer[:]} {
		if len(part) == 0 {
			continue
		}
		n, err := output.Write(part)
		totalBytesWritten += int64(n)
		if err != nil {
			return totalBytesWritten, err
		}
		if n < len(part) {
			return totalBytesWritten, io.ErrShortWrite
		}
	}
	return totalBytesWritten, nil
}
