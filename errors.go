package pdfstream

import (
	"github.com/tsawler/pdfstream/internal/crypt"
	"github.com/tsawler/pdfstream/internal/filters"
)

// Error kinds, matched with errors.Is.
var (
	// ErrDecodeFormat reports malformed encoded data.
	ErrDecodeFormat = filters.ErrDecodeFormat
	// ErrBufferRange reports a window access out of range inside a codec.
	ErrBufferRange = filters.ErrBufferRange
	// ErrCryptoInit reports a cipher that could not be set up, including a
	// wrong password.
	ErrCryptoInit = filters.ErrCryptoInit
	// ErrSourceIO reports a failure of the underlying byte source.
	ErrSourceIO          = filters.ErrSourceIO
	ErrDuplicateFilter   = filters.ErrDuplicateFilter
	ErrUnknownFilter     = filters.ErrUnknownFilter
	ErrEncodeUnsupported = filters.ErrEncodeUnsupported
	ErrDecodedSizeLimit  = filters.ErrDecodedSizeLimit
	ErrPassword          = crypt.ErrPassword
)

// Typed errors, matched with errors.As.
type (
	FormatError = filters.FormatError
	RangeError  = filters.RangeError
	InitError   = filters.InitError
	SourceError = filters.SourceError
)
