package testing

import (
	"errors"
	"fmt"
)

// ErrSinkFull is returned by a [LimitedSink] once its limit is reached.
var ErrSinkFull = errors.New("no space left on sink")

// LimitedSink is an io.Writer that accepts at most Limit bytes in total. The
// write that would cross the limit stores what fits and fails with
// [ErrSinkFull]; every write after that fails without storing anything.
type LimitedSink struct {
	Limit int
	// Data holds everything accepted so far.
	Data []byte
	// Calls counts the calls made to Write, including failed ones.
	Calls int
}

func (sink *LimitedSink) Write(p []byte) (int, error) {
	sink.Calls++
	room := sink.Limit - len(sink.Data)
	if room < 0 {
		room = 0
	}
	if len(p) <= room {
		sink.Data = append(sink.Data, p...)
		return len(p), nil
	}

	sink.Data = append(sink.Data, p[:room]...)
	return room, fmt.Errorf(
		"%w: tried to write %d bytes with %d left", ErrSinkFull, len(p), room)
}
