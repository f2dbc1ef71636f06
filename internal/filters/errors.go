package filters

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Every error returned by a filter stage matches exactly one of
// these with errors.Is, so callers can tell corrupted data apart from a
// missing key or a failing file.
var (
	ErrDecodeFormat      = errors.New("filters: malformed encoded data")
	ErrBufferRange       = errors.New("filters: buffer range violation")
	ErrCryptoInit        = errors.New("filters: cipher setup failed")
	ErrSourceIO          = errors.New("filters: source read failed")
	ErrDuplicateFilter   = errors.New("filters: filter already registered")
	ErrUnknownFilter     = errors.New("filters: unknown filter")
	ErrEncodeUnsupported = errors.New("filters: encoding not supported for filter")
	ErrDecodedSizeLimit  = errors.New("filters: decoded size exceeds limit")
)

// FormatError reports malformed input detected by a codec.
type FormatError struct {
	Filter string // filter name, e.g. "ASCII85Decode"
	Offset int64  // input offset where the problem was found, -1 if unknown
	Msg    string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s at offset %d", e.Filter, e.Msg, e.Offset)
	}
	return fmt.Sprintf("%s: %s", e.Filter, e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrDecodeFormat }

func formatErrorf(filter string, offset int64, format string, a ...interface{}) error {
	return &FormatError{Filter: filter, Offset: offset, Msg: fmt.Sprintf(format, a...)}
}

// RangeError reports a Peek or Unread outside the preserved window. It
// always indicates a bug in the calling codec.
type RangeError struct {
	Op        string
	Requested int
	Available int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("filters: %s(%d) outside window (%d available)", e.Op, e.Requested, e.Available)
}

func (e *RangeError) Unwrap() error { return ErrBufferRange }

// InitError reports a cipher that could not be set up. A stream that fails
// with an InitError is undecryptable; retrying will not help.
type InitError struct {
	Method string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("filters: %s init: %v", e.Method, e.Err)
}

// Is makes errors.Is(err, ErrCryptoInit) hold while still exposing the cause
// through Unwrap.
func (e *InitError) Is(target error) bool { return target == ErrCryptoInit }

func (e *InitError) Unwrap() error { return e.Err }

// SourceError wraps a failure of the underlying byte source.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return "filters: source: " + e.Err.Error() }

func (e *SourceError) Is(target error) bool { return target == ErrSourceIO }

func (e *SourceError) Unwrap() error { return e.Err }

// sourceError wraps err with a stack trace unless an upstream stage already
// classified it.
func sourceError(err error) error {
	if err == nil || classified(err) {
		return err
	}
	return &SourceError{Err: errors.WithStack(err)}
}

func classified(err error) bool {
	for _, kind := range []error{ErrDecodeFormat, ErrBufferRange, ErrCryptoInit, ErrSourceIO, ErrDecodedSizeLimit} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
