package xbis

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four error kinds of spec.md §7. Failures the
// codec detects itself wrap one of these with fmt.Errorf and %w so callers
// can tell them apart with errors.Is without string matching, the way
// netrack-openflow declares ErrUnknownVersion / ErrBodyTooLong /
// ErrHijacked as package-level sentinels in request.go and server.go.
// Errors from the underlying io.Reader or io.Writer, and errors from
// internal/varint and internal/sharedtable (an overlong value, invalid
// UTF-8, a shared-content handle out of range), are returned unwrapped.
var (
	// ErrIO is the sentinel for a failure in the underlying byte-buffer
	// read or write. No function in this package wraps an error in it;
	// such failures are returned as the underlying reader or writer
	// reported them.
	ErrIO = errors.New("xbis: i/o error")

	// ErrMalformed marks a bad stream header, an unknown node type byte,
	// an out-of-range element, attribute, attribute-value or namespace
	// index, or an end of stream where a node lead byte is expected. An
	// end of stream inside a record surfaces as io.EOF or
	// io.ErrUnexpectedEOF instead.
	ErrMalformed = errors.New("xbis: malformed stream")

	// ErrIllegalState marks a call made while the Writer or Reader is not
	// in a state where that call is defined.
	ErrIllegalState = errors.New("xbis: illegal state")

	// ErrUnsupportedOperation marks a request to emit a node kind this
	// codec's writer surface does not define (entity references,
	// processing instructions, DOCTYPE).
	ErrUnsupportedOperation = errors.New("xbis: unsupported operation")
)

// ErrUnknownNodeType is a subtype of ErrMalformed (spec.md §7): the
// reader encountered a lead byte whose discrete node-type value is not
// one of the kinds listed in §4.5.
var ErrUnknownNodeType = fmt.Errorf("%w: unknown node type", ErrMalformed)

func malformedf(format string, args ...interface{}) error {
	return fmt.Errorf("xbis: "+format+": %w", append(args, ErrMalformed)...)
}

func illegalStatef(format string, args ...interface{}) error {
	return fmt.Errorf("xbis: "+format+": %w", append(args, ErrIllegalState)...)
}
