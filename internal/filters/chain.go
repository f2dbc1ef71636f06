package filters

import (
	"fmt"
	"io"
	"time"

	"github.com/tsawler/pdfstream/observability"
)

// IdentityCryptFilter is the crypt filter that leaves data unchanged.
const IdentityCryptFilter = "Identity"

// ObjectRef identifies the indirect object a stream belongs to. Decryption
// keys are derived from it.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Security produces decryption stages for encrypted documents.
type Security interface {
	// DecryptStream wraps src, the raw body of the stream object env.Ref,
	// in a decrypting stage. cryptFilter names the crypt filter to use; the
	// empty string selects the document's default stream filter.
	DecryptStream(src Source, cryptFilter string, env *Env) (Source, error)
}

// Warning describes a recoverable problem met while decoding. The stream
// still decodes, but the output may be incomplete.
type Warning struct {
	Filter  string
	Offset  int64 // input offset of the problem, -1 if unknown
	Message string
}

func (w Warning) String() string {
	if w.Offset >= 0 {
		return fmt.Sprintf("%s: %s (offset %d)", w.Filter, w.Message, w.Offset)
	}
	return fmt.Sprintf("%s: %s", w.Filter, w.Message)
}

// Env carries the per-stream settings shared by every stage of a chain.
// A nil *Env is valid and selects the defaults.
type Env struct {
	// BufferSize is the window capacity of each stage; 0 selects
	// DefaultBufferSize.
	BufferSize int
	Logger     observability.Logger
	// Warn, if set, receives every warning in addition to the logger.
	Warn     func(Warning)
	Ref      ObjectRef
	Security Security
	// LeadingSkip is the number of bytes an AES stage discards from a
	// stream body, once, before reading the IV.
	LeadingSkip int
	// MaxDecodedSize bounds the output of the chain; 0 means no limit.
	MaxDecodedSize int64
	// Strict turns unknown filters into errors instead of pass-through
	// stages.
	Strict bool
}

func (e *Env) bufferSize() int {
	if e == nil {
		return 0
	}
	return e.BufferSize
}

func (e *Env) logger() observability.Logger {
	if e == nil || e.Logger == nil {
		return observability.NopLogger{}
	}
	return e.Logger
}

// Warnf reports a warning for filter at input offset (-1 if unknown) to the
// logger and the Warn callback.
func (e *Env) Warnf(filter string, offset int64, format string, a ...interface{}) {
	if e == nil {
		return
	}
	w := Warning{Filter: filter, Offset: offset, Message: fmt.Sprintf(format, a...)}
	e.logger().Warn("filter warning",
		observability.String("filter", w.Filter),
		observability.Int64("offset", w.Offset),
		observability.String("object", e.Ref.String()),
		observability.String("msg", w.Message))
	if e.Warn != nil {
		e.Warn(w)
	}
}

// BuildDecodeChain composes the decode stages for names, left to right, on
// top of src. params[i] holds the decode parameters of names[i] and may be
// shorter than names. If env has a Security provider and names contains no
// Crypt stage, the document's default stream decryption is applied to src
// first.
//
// Closing the returned Source closes every stage and src. If building fails,
// everything built so far, src included, is closed before the error is
// returned.
func BuildDecodeChain(src Source, names []string, params []Params, env *Env, reg *Registry) (Source, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	log := env.logger()
	start := time.Now()

	cur := src
	if env != nil && env.Security != nil && !hasCrypt(names, reg) {
		dec, err := env.Security.DecryptStream(cur, "", env)
		if err != nil {
			cur.Close()
			return nil, err
		}
		cur = dec
	}

	for i, name := range names {
		var p Params
		if i < len(params) {
			p = params[i]
		}

		factory, full, ok := reg.Lookup(name)
		if !ok {
			if env != nil && env.Strict {
				cur.Close()
				return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
			}
			env.Warnf(name, -1, "unknown filter, data passed through undecoded")
			factory, full = passThrough, name
		}

		next, err := factory(cur, p, env)
		if err != nil {
			cur.Close()
			return nil, fmt.Errorf("filters: stage %d (%s): %w", i, full, err)
		}
		cur = next
		log.Debug("filter stage added",
			observability.Int("stage", i),
			observability.String("filter", full),
			observability.String("object", env.refString()))
	}

	if env != nil && env.MaxDecodedSize > 0 {
		cur = &limitSource{src: cur, max: env.MaxDecodedSize}
	}
	log.Debug("filter chain built",
		observability.Int("stages", len(names)),
		observability.Int64(observability.MetricFilterTime, time.Since(start).Microseconds()))
	return cur, nil
}

func (e *Env) refString() string {
	if e == nil {
		return ""
	}
	return e.Ref.String()
}

func hasCrypt(names []string, reg *Registry) bool {
	for _, n := range names {
		if _, full, ok := reg.Lookup(n); ok && full == "Crypt" {
			return true
		}
	}
	return false
}

// BuildEncodeChain returns a writer encoding with names so that
// BuildDecodeChain with the same names undoes it: the first name's encoder
// writes to w and each later one feeds the previous. Only FlateDecode can be
// encoded; any other name fails with ErrEncodeUnsupported. Closing the
// returned writer flushes every stage but does not close w.
func BuildEncodeChain(w io.Writer, names []string, level int) (io.WriteCloser, error) {
	var stages []io.WriteCloser
	cur := w
	for i := range names {
		switch names[i] {
		case "FlateDecode", "Fl":
			zw, err := NewFlateEncoder(cur, level)
			if err != nil {
				return nil, err
			}
			stages = append(stages, zw)
			cur = zw
		default:
			return nil, fmt.Errorf("%w: %s", ErrEncodeUnsupported, names[i])
		}
	}
	return &encodeChain{w: cur, stages: stages}, nil
}

type encodeChain struct {
	w      io.Writer
	stages []io.WriteCloser // innermost first
}

func (c *encodeChain) Write(p []byte) (int, error) { return c.w.Write(p) }

// Close flushes the outermost stage first so each stage sees all its input
// before it is closed.
func (c *encodeChain) Close() error {
	var first error
	for i := len(c.stages) - 1; i >= 0; i-- {
		if err := c.stages[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.stages = nil
	return first
}

// limitSource fails once more than max bytes have been produced.
type limitSource struct {
	src Source
	max int64
	n   int64
}

func (l *limitSource) Read(p []byte) (int, error) {
	remaining := l.max - l.n
	if remaining <= 0 {
		var extra [1]byte
		k, err := l.src.Read(extra[:])
		if k > 0 {
			return 0, fmt.Errorf("%w: more than %d bytes", ErrDecodedSizeLimit, l.max)
		}
		return 0, err
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.src.Read(p)
	l.n += int64(n)
	return n, err
}

func (l *limitSource) Skip(n int64) (int64, error) { return skipByReading(l, n) }

func (l *limitSource) Reset() error {
	l.n = 0
	return l.src.Reset()
}

func (l *limitSource) Close() error { return l.src.Close() }
