package encio

import (
	"errors"
	"runtime"
)

// Error handling in didl is designed to provide an easy way to distinguish bad data from bad types and bad values,
// and to reuse a small set of common error kinds for as many errors as possible, with extra information wrapped as applicable.
// Panics are only used when there is a clear misuse of the library; programmer error, such as building a type with colliding field ids.
// To this end, errors are grouped into two wrappers; IOError and Error, the idea being that
// IOError errors indicate the data ran out or the io.Reader/io.Writer failed, and the caller should stop using it, and
// Error errors indicate a caller should stop using a type or value, or use it in a different way.
//
// In this way, errors can be checked with
//
//	if errors.Is(err, encio.ErrMalformed) {
//		// the message is corrupt or not a DIDL message
//	} else if errors.Is(err, encio.ErrBadType) {
//		// the message doesn't fit the expected types
//	}
//
// These errors will be wrapped by IOError or Error.
var (
	// ErrMalformed is returned when the read data is impossible to decode.
	ErrMalformed = errors.New("malformed")

	// ErrBadType is returned when a type is wrong, unresolvable or inappropriate.
	// This covers mismatches between the type on the wire and the expected type,
	// missing required fields, and types that can never be encoded or decoded.
	ErrBadType = errors.New("bad type")

	// ErrBadValue is returned when a host value does not fit the type it is being encoded as.
	ErrBadValue = errors.New("bad value")

	// ErrBadConfig is returned when the config cannot be used.
	ErrBadConfig = errors.New("bad config")
)

// NewIOError returns an IOError wrapping err with the given message.
// err is typically the error returned from the io.Reader/io.Writer, or io.ErrUnexpectedEOF when a buffer ran dry.
// message has extra information about the error; if empty, it is filled with the calling fucntions name.
func NewIOError(err error, message string) error {
	if err == nil {
		return NewError(errors.New("unknown error"), "trying to create new IOError", 0)
	}
	if message == "" {
		message = "in " + GetCaller(1)
	}

	return IOError{
		Err:     err,
		Message: message,
	}
}

// IOError is returned when io errors occour, or when the data ends early.
type IOError struct {
	Err     error
	Message string
}

// Error implements error
func (e IOError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap implements errors's Unwrap()
func (e IOError) Unwrap() error {
	return e.Err
}

// NewError returns an Error wrapping err with message.
// The caller is filled with the name of the function skip frames above the caller of NewError.
func NewError(err error, message string, skip int) error {
	return Error{
		Err:     err,
		Message: message,
		Caller:  GetCaller(skip + 1),
	}
}

// Error is returned when an error is encountered while encoding or decoding.
type Error struct {
	Err     error
	Message string
	Caller  string
}

// Error implements error
func (e Error) Error() (str string) {
	if e.Caller != "" {
		str = e.Caller + ": "
	}

	str += e.Err.Error()

	if e.Message != "" {
		str += " (" + e.Message + ")"
	}

	return str
}

// Unwrap implements errors's Unwrap()
func (e Error) Unwrap() error {
	return e.Err
}

// GetCaller returns the name of the calling function, skipping skip functions.
// i.e. 0 writes the calling function, 1 the function calling that etc...
func GetCaller(skip int) string {
	pcs := make([]uintptr, 1)
	n := runtime.Callers(2+skip, pcs)
	if n != 1 {
		return "Unknown Function"
	}

	frames := runtime.CallersFrames(pcs)
	frame, _ := frames.Next()
	return frame.Function
}
