package filters

import (
	"io"
	"math/bits"
)

const (
	lzwFilter   = "LZWDecode"
	lzwClear    = 256
	lzwEOD      = 257
	lzwFirst    = 258
	lzwMaxCodes = 4096
	lzwMinWidth = 9
	lzwMaxWidth = 12
)

// lzwDecoder decodes LZWDecode data. Codes are read MSB first. The
// dictionary is kept as parallel prefix/suffix arrays so an entry costs four
// bytes regardless of the length of the sequence it stands for.
type lzwDecoder struct {
	in          *Buffer
	earlyChange int

	prefix [lzwMaxCodes]uint16
	suffix [lzwMaxCodes]byte
	length [lzwMaxCodes]uint16

	nextCode int
	width    uint
	prev     int // previous code, -1 right after a clear

	acc   uint32
	nbits uint

	out     [lzwMaxCodes + 1]byte
	pending []byte
	done    bool
}

// NewLZWDecoder returns a Source decoding LZW data from src. EarlyChange in
// params (default 1) selects when the code width grows: with 1 the width
// increases one code early, as PDF writers do by default. A Predictor in
// params is applied to the decoded bytes.
func NewLZWDecoder(src Source, params Params, env *Env) (Source, error) {
	ec := getIntParam(params, "EarlyChange", 1)
	if ec != 0 && ec != 1 {
		return nil, formatErrorf(lzwFilter, -1, "invalid EarlyChange %d", ec)
	}
	d := &lzwDecoder{in: NewBuffer(src, env.bufferSize()), earlyChange: ec}
	d.clear()
	for c := 0; c < 256; c++ {
		d.suffix[c] = byte(c)
		d.length[c] = 1
	}
	return wrapPredictor(d, lzwFilter, params)
}

// clear drops every multi-byte entry and returns to 9 bit codes.
func (d *lzwDecoder) clear() {
	d.nextCode = lzwFirst
	d.width = lzwMinWidth
	d.prev = -1
}

// codeWidth is the bit length of nextCode+earlyChange, capped at 12.
func (d *lzwDecoder) codeWidth() uint {
	w := uint(bits.Len(uint(d.nextCode + d.earlyChange)))
	if w < lzwMinWidth {
		return lzwMinWidth
	}
	if w > lzwMaxWidth {
		return lzwMaxWidth
	}
	return w
}

// readCode returns the next code, or io.EOF when the input ends before a
// whole code is available.
func (d *lzwDecoder) readCode() (int, error) {
	for d.nbits < d.width {
		c, err := d.in.ReadByte()
		if err != nil {
			return 0, err
		}
		d.acc = d.acc<<8 | uint32(c)
		d.nbits += 8
	}
	d.nbits -= d.width
	code := int(d.acc>>d.nbits) & (1<<d.width - 1)
	d.acc &= 1<<d.nbits - 1
	return code, nil
}

// expand writes the sequence for code to the start of d.out and returns it.
func (d *lzwDecoder) expand(code int) []byte {
	n := int(d.length[code])
	out := d.out[:n]
	for i := n - 1; i >= 0; i-- {
		out[i] = d.suffix[code]
		code = int(d.prefix[code])
	}
	return out
}

// decodeNext decodes codes until one produces output, and leaves it in
// pending.
func (d *lzwDecoder) decodeNext() error {
	for {
		offset := d.in.Offset()
		code, err := d.readCode()
		if err != nil {
			if err == io.EOF {
				d.done = true
			}
			return err
		}

		var seq []byte
		switch {
		case code == lzwClear:
			d.clear()
			continue
		case code == lzwEOD:
			d.done = true
			return io.EOF
		case code < 256 || (code >= lzwFirst && code < d.nextCode):
			seq = d.expand(code)
		case code == d.nextCode && d.prev >= 0:
			// KwKwK: the previous sequence followed by its own first byte.
			seq = d.expand(d.prev)
			seq = d.out[:len(seq)+1]
			seq[len(seq)-1] = seq[0]
		default:
			return formatErrorf(lzwFilter, offset, "code %d out of range (next %d)", code, d.nextCode)
		}

		if d.prev >= 0 && d.nextCode < lzwMaxCodes {
			d.prefix[d.nextCode] = uint16(d.prev)
			d.suffix[d.nextCode] = seq[0]
			d.length[d.nextCode] = d.length[d.prev] + 1
			d.nextCode++
		}
		d.prev = code
		d.width = d.codeWidth()
		d.pending = seq
		return nil
	}
}

func (d *lzwDecoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		if len(d.pending) > 0 {
			m := copy(p[n:], d.pending)
			d.pending = d.pending[m:]
			n += m
			continue
		}
		if d.done {
			break
		}
		if err := d.decodeNext(); err != nil {
			if err == io.EOF {
				break
			}
			return n, err
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (d *lzwDecoder) Skip(n int64) (int64, error) { return skipByReading(d, n) }

func (d *lzwDecoder) Reset() error {
	d.clear()
	d.acc, d.nbits = 0, 0
	d.pending = nil
	d.done = false
	return d.in.Reset()
}

func (d *lzwDecoder) Close() error { return d.in.Close() }

// LZWDecode decodes LZW compressed data held in memory.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	src, err := NewLZWDecoder(NewBytesSource(data), params, nil)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
