package filters

import (
	"compress/flate"
	"compress/zlib"
	"errors"
	"io"
)

const flateFilter = "FlateDecode"

// flateDecoder inflates FlateDecode data. The compressed bytes are pulled
// from a Buffer, which the inflater reads as an io.ByteReader, so the window
// is refilled in capacity-sized chunks whenever the inflater runs dry.
type flateDecoder struct {
	in   *Buffer
	zr   io.ReadCloser
	env  *Env
	done bool
}

// NewFlateDecoder returns a Source inflating src. Streams carrying a zlib
// header are read with compress/zlib; streams without one are treated as raw
// deflate data. A Predictor in params is applied to the inflated bytes.
func NewFlateDecoder(src Source, params Params, env *Env) (Source, error) {
	d := &flateDecoder{in: NewBuffer(src, env.bufferSize()), env: env}
	return wrapPredictor(d, flateFilter, params)
}

// hasZlibHeader reports whether the next two bytes form a valid zlib header
// (deflate method, check bits a multiple of 31).
func (d *flateDecoder) hasZlibHeader() bool {
	cmf, err := d.in.Peek(0)
	if err != nil {
		return false
	}
	flg, err := d.in.Peek(1)
	if err != nil {
		return false
	}
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func (d *flateDecoder) open() error {
	if d.hasZlibHeader() {
		zr, err := zlib.NewReader(d.in)
		if err != nil {
			return d.classify(err)
		}
		d.zr = zr
		return nil
	}
	d.env.Warnf(flateFilter, d.in.Offset(), "missing zlib header, reading raw deflate data")
	d.zr = flate.NewReader(d.in)
	return nil
}

// classify maps inflater errors onto the package error kinds.
func (d *flateDecoder) classify(err error) error {
	if classified(err) {
		return err
	}
	return formatErrorf(flateFilter, d.in.Offset(), "%v", err)
}

func (d *flateDecoder) Read(p []byte) (int, error) {
	if d.done {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if d.zr == nil {
		if err := d.open(); err != nil {
			d.done = true
			return 0, err
		}
	}

	n, err := d.zr.Read(p)
	switch {
	case err == nil:
		return n, nil
	case err == io.EOF:
		d.done = true
	case classified(err):
		return n, err
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Truncated streams are common; keep what was inflated.
		d.env.Warnf(flateFilter, d.in.Offset(), "truncated deflate data")
		d.done = true
	case errors.Is(err, zlib.ErrChecksum):
		d.env.Warnf(flateFilter, d.in.Offset(), "adler-32 checksum mismatch")
		d.done = true
	default:
		return n, d.classify(err)
	}
	if n > 0 {
		return n, nil
	}
	return 0, io.EOF
}

func (d *flateDecoder) Skip(n int64) (int64, error) { return skipByReading(d, n) }

func (d *flateDecoder) Reset() error {
	if d.zr != nil {
		d.zr.Close()
		d.zr = nil
	}
	d.done = false
	return d.in.Reset()
}

func (d *flateDecoder) Close() error {
	if d.zr != nil {
		d.zr.Close()
		d.zr = nil
	}
	return d.in.Close()
}

// NewFlateEncoder returns a writer compressing to w with zlib at the given
// level. The caller must Close it to flush the stream.
func NewFlateEncoder(w io.Writer, level int) (io.WriteCloser, error) {
	zw, err := zlib.NewWriterLevel(w, level)
	if err != nil {
		return nil, formatErrorf(flateFilter, -1, "%v", err)
	}
	return zw, nil
}

// FlateDecode decompresses Flate (zlib/deflate) compressed data.
// This is the most common compression filter in PDFs. It optionally applies
// a predictor algorithm for image data decompression.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	src, err := NewFlateDecoder(NewBytesSource(data), params, nil)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

