package pdfstream

import (
	"compress/flate"

	"github.com/tsawler/pdfstream/internal/filters"
	"github.com/tsawler/pdfstream/observability"
)

// decodeOptions holds the configuration of a Decoder.
type decodeOptions struct {
	logger observability.Logger

	// Chain construction
	registry   *filters.Registry // nil means the built-in filters
	bufferSize int               // 0 means filters.DefaultBufferSize
	strict     bool

	// Limits
	maxDecodedSize int64 // 0 means unlimited

	// Decryption
	security    filters.Security
	leadingSkip int

	// Encoding
	level int
}

// defaultOptions returns the default decode options.
func defaultOptions() decodeOptions {
	return decodeOptions{
		logger:         observability.NopLogger{},
		registry:       nil, // built-in filters
		bufferSize:     0,
		strict:         false,
		maxDecodedSize: 0,
		security:       nil,
		leadingSkip:    0,
		level:          flate.DefaultCompression,
	}
}

// clone creates a copy of decodeOptions. The registry, logger and security
// handler are shared; they are safe for concurrent use.
func (o decodeOptions) clone() decodeOptions {
	return decodeOptions{
		logger:         o.logger,
		registry:       o.registry,
		bufferSize:     o.bufferSize,
		strict:         o.strict,
		maxDecodedSize: o.maxDecodedSize,
		security:       o.security,
		leadingSkip:    o.leadingSkip,
		level:          o.level,
	}
}

// env builds the per-stream environment for ref, reporting warnings to warn.
func (o decodeOptions) env(ref filters.ObjectRef, warn func(Warning)) *filters.Env {
	return &filters.Env{
		BufferSize:     o.bufferSize,
		Logger:         o.logger,
		Warn:           warn,
		Ref:            ref,
		Security:       o.security,
		LeadingSkip:    o.leadingSkip,
		MaxDecodedSize: o.maxDecodedSize,
		Strict:         o.strict,
	}
}
