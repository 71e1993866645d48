package cddb

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cddb/internal/transport"
	"cddb/internal/xmcd"
)

// Code classifies the outcome of a session operation. The last code is kept
// on the session until the next operation overwrites it.
type Code int

const (
	CodeOK Code = iota
	CodeOutOfMemory
	CodeNotImplemented
	CodeUnknown
	CodeServerError
	CodeUnknownHost
	CodeConnect
	CodePermissionDenied
	CodeNotConnected
	CodeUnexpectedEOF
	CodeInvalidResponse
	CodeDiscNotFound
	CodeDataMissing
	CodeTrackNotFound
	CodeRejected
	CodeTimeout
)

var codeNames = [...]string{
	CodeOK:               "ok",
	CodeOutOfMemory:      "out of memory",
	CodeNotImplemented:   "not implemented",
	CodeUnknown:          "unknown error",
	CodeServerError:      "server error",
	CodeUnknownHost:      "unknown host",
	CodeConnect:          "connect failed",
	CodePermissionDenied: "permission denied",
	CodeNotConnected:     "not connected",
	CodeUnexpectedEOF:    "unexpected end of stream",
	CodeInvalidResponse:  "invalid response",
	CodeDiscNotFound:     "disc not found",
	CodeDataMissing:      "data missing",
	CodeTrackNotFound:    "track not found",
	CodeRejected:         "submission rejected",
	CodeTimeout:          "timed out",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeNames[c]
}

// Error is returned by every failing session operation.
type Error struct {
	Code Code
	// Op names the operation, e.g. "read" or "connect".
	Op string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = "cddb " + e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the exported sentinels work
// with errors.Is regardless of Op and cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnknown          = &Error{Code: CodeUnknown}
	ErrNotImplemented   = &Error{Code: CodeNotImplemented}
	ErrServerError      = &Error{Code: CodeServerError}
	ErrUnknownHost      = &Error{Code: CodeUnknownHost}
	ErrConnect          = &Error{Code: CodeConnect}
	ErrPermissionDenied = &Error{Code: CodePermissionDenied}
	ErrNotConnected     = &Error{Code: CodeNotConnected}
	ErrUnexpectedEOF    = &Error{Code: CodeUnexpectedEOF}
	ErrInvalidResponse  = &Error{Code: CodeInvalidResponse}
	ErrDiscNotFound     = &Error{Code: CodeDiscNotFound}
	ErrDataMissing      = &Error{Code: CodeDataMissing}
	ErrTrackNotFound    = &Error{Code: CodeTrackNotFound}
	ErrRejected         = &Error{Code: CodeRejected}
	ErrTimeout          = &Error{Code: CodeTimeout}
)

// CodeOf extracts the code from err. Nil yields CodeOK and foreign errors
// CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// classify maps transport and parser failures onto codes. fallback is used
// for anything unrecognized.
func classify(err error, fallback Code) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, transport.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, transport.ErrUnknownHost):
		return CodeUnknownHost
	case errors.Is(err, transport.ErrConnect):
		return CodeConnect
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return CodeUnexpectedEOF
	case errors.Is(err, errMalformedStatus):
		return CodeInvalidResponse
	case errors.As(err, new(*httpStatusError)):
		return CodeServerError
	case errors.Is(err, xmcd.ErrTrackNotFound):
		return CodeTrackNotFound
	case errors.Is(err, xmcd.ErrIncompleteRecord), errors.Is(err, xmcd.ErrInvalidMatch):
		return CodeInvalidResponse
	default:
		return fallback
	}
}
