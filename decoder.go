package pdfstream

import (
	"io"
	"time"

	"github.com/tsawler/pdfstream/core"
	"github.com/tsawler/pdfstream/internal/filters"
	"github.com/tsawler/pdfstream/observability"
)

// Params holds the decode parameters of one filter, keyed by the
// DecodeParms entry names.
type Params = filters.Params

// Source is a decode stage: a reader that can also skip, rewind and close.
type Source = filters.Source

// Factory builds a decode stage for a custom filter.
type Factory = filters.Factory

// Registry maps filter names to factories.
type Registry = filters.Registry

// Security produces decryption stages; *SecurityHandler implements it.
type Security = filters.Security

// Env is the per-stream environment handed to filter factories.
type Env = filters.Env

// NewRegistry returns a registry holding the built-in filters, to which
// custom filters can be added before passing it to Decoder.WithRegistry.
func NewRegistry() *Registry {
	return filters.NewBuiltinRegistry()
}

// Decoder decodes stream data through filter chains. Each configuration
// method returns a new Decoder, making it safe for concurrent use and
// allowing method chaining.
type Decoder struct {
	options decodeOptions
}

// clone creates a copy of the Decoder with a copy of its options.
func (d *Decoder) clone() *Decoder {
	return &Decoder{options: d.options.clone()}
}

// ============================================================================
// Configuration Methods (return new Decoder instance)
// ============================================================================

// WithLogger sets the logger receiving warnings and chain construction
// events. A nil logger discards them.
//
// Example:
//
//	dec := pdfstream.New().WithLogger(observability.NewSlogLogger(slog.Default()))
func (d *Decoder) WithLogger(l observability.Logger) *Decoder {
	newDec := d.clone()
	if l == nil {
		l = observability.NopLogger{}
	}
	newDec.options.logger = l
	return newDec
}

// BufferSize sets the window size of each filter stage. Sizes below 64 are
// raised to 64; zero restores the default of 4096.
func (d *Decoder) BufferSize(n int) *Decoder {
	newDec := d.clone()
	newDec.options.bufferSize = n
	return newDec
}

// MaxDecodedSize bounds the decoded size of a stream. Decoding more fails
// with ErrDecodedSizeLimit. Zero means no limit.
//
// Example:
//
//	data, _, err := pdfstream.New().MaxDecodedSize(64 << 20).Decode(stream)
func (d *Decoder) MaxDecodedSize(n int64) *Decoder {
	newDec := d.clone()
	newDec.options.maxDecodedSize = n
	return newDec
}

// WithSecurity decrypts streams with s. Streams whose filter list has no
// Crypt entry are decrypted with the document's default stream method.
func (d *Decoder) WithSecurity(s Security) *Decoder {
	newDec := d.clone()
	newDec.options.security = s
	return newDec
}

// WithRegistry resolves filter names with r instead of the built-in
// filters.
func (d *Decoder) WithRegistry(r *Registry) *Decoder {
	newDec := d.clone()
	newDec.options.registry = r
	return newDec
}

// Strict makes unknown filter names an error wrapping ErrUnknownFilter
// instead of passing the data through with a warning.
func (d *Decoder) Strict() *Decoder {
	newDec := d.clone()
	newDec.options.strict = true
	return newDec
}

// LeadingSkip makes AES decryption discard n bytes at the start of every
// stream body before reading the IV.
func (d *Decoder) LeadingSkip(n int) *Decoder {
	newDec := d.clone()
	newDec.options.leadingSkip = n
	return newDec
}

// CompressionLevel sets the Flate level used by Encode, as in
// compress/flate.
func (d *Decoder) CompressionLevel(level int) *Decoder {
	newDec := d.clone()
	newDec.options.level = level
	return newDec
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Decode returns the decoded data of stream together with any warnings.
//
// Example:
//
//	data, warnings, err := pdfstream.New().Decode(stream)
func (d *Decoder) Decode(stream *core.Stream) ([]byte, []Warning, error) {
	names, params, err := stream.Filters()
	if err != nil {
		return nil, nil, err
	}
	return d.DecodeBytes(stream.Data, names, params, stream.Ref)
}

// DecodeBytes decodes data through the filters names with their params.
// ref is the object the data belongs to and selects the decryption key.
//
// Example:
//
//	data, _, err := pdfstream.New().DecodeBytes(raw, []string{"AHx", "Fl"}, nil, core.IndirectRef{})
func (d *Decoder) DecodeBytes(data []byte, names []string, params []Params, ref core.IndirectRef) ([]byte, []Warning, error) {
	r, err := d.open(filters.NewBytesSource(data), names, params, ref)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	start := time.Now()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, r.Warnings(), err
	}
	d.options.logger.Debug("stream decoded",
		observability.String("object", ref.String()),
		observability.Int(observability.MetricDecodedBytes, len(out)),
		observability.Int64(observability.MetricFilterTime, time.Since(start).Microseconds()))
	return out, r.Warnings(), nil
}

// Reader returns a reader producing the decoded data of stream
// incrementally. The caller must close it.
//
// Example:
//
//	r, err := pdfstream.New().Reader(stream)
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	_, err = io.Copy(w, r)
func (d *Decoder) Reader(stream *core.Stream) (*StreamReader, error) {
	names, params, err := stream.Filters()
	if err != nil {
		return nil, err
	}
	return d.open(filters.NewBytesSource(stream.Data), names, params, stream.Ref)
}

// ReaderFrom is like Reader for a stream whose body is read from src, for
// example a section of the file. The returned reader closes src.
func (d *Decoder) ReaderFrom(src Source, names []string, params []Params, ref core.IndirectRef) (*StreamReader, error) {
	return d.open(src, names, params, ref)
}

func (d *Decoder) open(src Source, names []string, params []Params, ref core.IndirectRef) (*StreamReader, error) {
	r := &StreamReader{}
	env := d.options.env(ref.ObjectRef(), r.log.add)
	chain, err := filters.BuildDecodeChain(src, names, params, env, d.options.registry)
	if err != nil {
		return nil, err
	}
	r.src = chain
	return r, nil
}

// Encode returns a writer encoding with names, so that decoding the output
// with the same names yields what was written. Only FlateDecode can be
// encoded. Closing the writer flushes it but does not close w.
func (d *Decoder) Encode(w io.Writer, names ...string) (io.WriteCloser, error) {
	return filters.BuildEncodeChain(w, names, d.options.level)
}

// DecodeString decrypts a string object belonging to ref. Without a
// security handler, data is returned unchanged.
func (d *Decoder) DecodeString(ref core.IndirectRef, data []byte) ([]byte, error) {
	sd, ok := d.options.security.(stringDecrypter)
	if !ok {
		return data, nil
	}
	return sd.DecryptString(ref.ObjectRef(), data)
}

type stringDecrypter interface {
	DecryptString(ref filters.ObjectRef, data []byte) ([]byte, error)
}

// StreamReader reads the decoded data of one stream.
type StreamReader struct {
	src Source
	log warningLog
}

func (r *StreamReader) Read(p []byte) (int, error) { return r.src.Read(p) }

// Reset rewinds the reader to the start of the decoded data.
func (r *StreamReader) Reset() error { return r.src.Reset() }

// Close releases every stage of the chain. It is safe to call more than
// once.
func (r *StreamReader) Close() error { return r.src.Close() }

// Warnings returns the warnings reported so far.
func (r *StreamReader) Warnings() []Warning { return r.log.snapshot() }
