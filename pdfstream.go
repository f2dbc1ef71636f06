// Package pdfstream decodes the data of PDF stream objects through the
// filters named in their dictionaries.
//
// Basic usage:
//
//	data, warnings, err := pdfstream.New().Decode(stream)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfstream.FormatWarnings(warnings))
//	}
//
// Encrypted documents:
//
//	sec, err := pdfstream.Authenticate(encryptDict, fileID, "secret")
//	if err != nil {
//	    // handle error
//	}
//	data, _, err := pdfstream.New().WithSecurity(sec).Decode(stream)
//
// Large streams can be read incrementally with Decoder.Reader, which keeps at
// most one window per filter stage in memory.
//
// For lower-level access to the object model, see the core package.
package pdfstream

// New returns a Decoder with the default configuration: the built-in
// filters, 4096-byte windows, no size limit, no decryption, and unknown
// filters passed through with a warning.
//
// Example:
//
//	data, _, err := pdfstream.New().Decode(stream)
func New() *Decoder {
	return &Decoder{options: defaultOptions()}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	sec := pdfstream.Must(pdfstream.NewSecurityHandler(key, "AESV2"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustDecode is a helper that wraps a call to Decode or DecodeBytes and
// panics if the error is non-nil. It discards warnings and returns just the
// value.
func MustDecode[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
