package storedpng

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// EncodeError is the type of every error returned by this package. Use
// [errors.Is] against the ErrXxx values to find out what kind of error it is.
type EncodeError interface {
	error
	WithMessage(message string) EncodeError
	Wrap(err error) EncodeError
}

// errorKind is the fixed description of one class of failure. Each ErrXxx value
// is the bare kind; everything derived from it shares the kind.
type errorKind string

const (
	kindContractViolation errorKind = "Pixel buffer doesn't match image"
	kindSinkFailure       errorKind = "Failed to write to output"
	kindMalformedImage    errorKind = "Malformed PNG image"
)

// ErrContractViolation means the arguments to an encoding function don't
// describe a valid image: an unknown color format, a pixel buffer whose length
// doesn't match the shape, or a shape too large for a PNG. Nothing is written
// to the output when this is returned.
var ErrContractViolation EncodeError = kindContractViolation.root()

// ErrSinkFailure means the output rejected a write. The error returned by the
// output is wrapped and can be found with [errors.Is] or [errors.As].
var ErrSinkFailure EncodeError = kindSinkFailure.root()

// ErrMalformedImage is returned by [Inspect] when the file it reads isn't a
// well-formed PNG.
var ErrMalformedImage EncodeError = kindMalformedImage.root()

func (k errorKind) root() encodeError {
	return encodeError{kind: k, message: string(k)}
}

type encodeError struct {
	kind    errorKind
	message string
	// cause is nil only for the ErrXxx values themselves.
	cause error
}

func (e encodeError) Error() string {
	return e.message
}

func (e encodeError) WithMessage(message string) EncodeError {
	return encodeError{
		kind:    e.kind,
		message: fmt.Sprintf("%s: %s", e.message, message),
		cause:   e,
	}
}

func (e encodeError) Wrap(err error) EncodeError {
	return encodeError{
		kind:    e.kind,
		message: fmt.Sprintf("%s: %s", e.message, err.Error()),
		cause:   multierror.Append(e, err),
	}
}

// Is matches any error against the bare ErrXxx value of its kind.
func (e encodeError) Is(target error) bool {
	other, ok := target.(encodeError)
	return ok && other.cause == nil && other.kind == e.kind
}

func (e encodeError) Unwrap() error {
	return e.cause
}
