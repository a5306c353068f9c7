package chunk

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Chunk is a chunk read back from a stream.
type Chunk struct {
	Type    Type
	Payload []byte
	// CRC is the checksum as stored in the stream. [Reader.Next] has already
	// compared it against the payload by the time the chunk is returned.
	CRC uint32
	// Offset is the position of the chunk's length field from the start of the
	// stream given to [NewReader].
	Offset int64
}

// Reader reads a sequence of chunks. It doesn't consume a file signature;
// callers must skip past one themselves.
type Reader struct {
	rd       *bufio.Reader
	offset   int64
	finished bool
}

func NewReader(rd io.Reader) *Reader {
	return &Reader{rd: bufio.NewReader(rd)}
}

// Next returns the next chunk in the stream.
//
// It returns io.EOF once an IEND chunk has been returned, or when the input
// ends cleanly on a chunk boundary. Input ending partway through a chunk gives
// io.ErrUnexpectedEOF. If the stored CRC is wrong the chunk is returned anyway,
// along with an error wrapping [ErrBadCRC].
func (reader *Reader) Next() (Chunk, error) {
	if reader.finished {
		return Chunk{}, io.EOF
	}

	var header [8]byte
	n, err := io.ReadFull(reader.rd, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			reader.finished = true
			return Chunk{}, io.EOF
		}
		return Chunk{}, fmt.Errorf(
			"%w: truncated chunk header at offset %d", io.ErrUnexpectedEOF, reader.offset)
	}

	length := binary.BigEndian.Uint32(header[:4])
	current := Chunk{Offset: reader.offset}
	copy(current.Type[:], header[4:])

	if length > MaxLength {
		return current, fmt.Errorf(
			"%w: %s chunk at offset %d declares %d bytes",
			ErrTooLarge,
			current.Type,
			reader.offset,
			length,
		)
	}

	current.Payload = make([]byte, length)
	if _, err := io.ReadFull(reader.rd, current.Payload); err != nil {
		return current, fmt.Errorf(
			"%w: truncated %s payload at offset %d",
			io.ErrUnexpectedEOF,
			current.Type,
			reader.offset,
		)
	}

	var footer [4]byte
	if _, err := io.ReadFull(reader.rd, footer[:]); err != nil {
		return current, fmt.Errorf(
			"%w: missing %s CRC at offset %d",
			io.ErrUnexpectedEOF,
			current.Type,
			reader.offset,
		)
	}
	current.CRC = binary.BigEndian.Uint32(footer[:])
	reader.offset += int64(Size(uint64(length)))

	if current.Type == IEND {
		reader.finished = true
	}

	if expected := Checksum(current.Type, current.Payload); expected != current.CRC {
		return current, fmt.Errorf(
			"%w: %s chunk at offset %d has %08x, expected %08x",
			ErrBadCRC,
			current.Type,
			current.Offset,
			current.CRC,
			expected,
		)
	}
	return current, nil
}
