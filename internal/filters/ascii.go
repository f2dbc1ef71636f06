package filters

import (
	"fmt"
	"io"
)

const (
	hexFilter    = "ASCIIHexDecode"
	ascii85Filt  = "ASCII85Decode"
	hexEOD       = '>'
	ascii85EOD   = '~'
	ascii85Zero  = 'z'
	ascii85First = '!'
	ascii85Last  = 'u'
)

// groupReader pulls fixed-size groups of symbols from a Buffer, skipping
// whitespace between symbols and stopping at the terminator.
type groupReader struct {
	in         *Buffer
	filter     string
	terminator byte
	shorthand  byte // symbol that stands for a whole group on its own, 0 for none
	done       bool
}

// next fills group with up to len(group) symbols and returns how many were
// read. A count below len(group) means the data ended. short reports that
// the shorthand symbol was read as the first symbol of a group.
func (g *groupReader) next(group []byte) (n int, short bool, err error) {
	for n < len(group) && !g.done {
		c, err := g.in.ReadByte()
		if err == io.EOF {
			g.done = true
			break
		}
		if err != nil {
			return n, false, err
		}
		if isWhitespace(c) {
			continue
		}
		if c == g.terminator {
			g.done = true
			break
		}
		if g.shorthand != 0 && c == g.shorthand {
			if n != 0 {
				return n, false, formatErrorf(g.filter, g.in.Offset()-1, "%q inside a group", c)
			}
			return 1, true, nil
		}
		group[n] = c
		n++
	}
	return n, false, nil
}

// hexDecoder decodes ASCIIHexDecode data.
// Each pair of hexadecimal digits (0-9, A-F, a-f) represents one byte.
// Whitespace is ignored, and > marks end of data. An odd final digit is
// treated as if followed by 0.
type hexDecoder struct {
	in    *Buffer
	group groupReader
}

// NewASCIIHexDecoder returns a Source decoding src as ASCIIHexDecode data.
func NewASCIIHexDecoder(src Source, bufSize int) Source {
	in := NewBuffer(src, bufSize)
	return &hexDecoder{in: in, group: groupReader{in: in, filter: hexFilter, terminator: hexEOD}}
}

func (d *hexDecoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var pair [2]byte
	n := 0
	for n < len(p) {
		if d.group.done {
			break
		}
		k, _, err := d.group.next(pair[:])
		if err != nil {
			return n, err
		}
		if k == 0 {
			break
		}
		if k == 1 {
			pair[1] = '0'
		}
		b1, err := hexDigitToByte(pair[0])
		if err != nil {
			return n, formatErrorf(hexFilter, d.in.Offset(), "%v", err)
		}
		b2, err := hexDigitToByte(pair[1])
		if err != nil {
			return n, formatErrorf(hexFilter, d.in.Offset(), "%v", err)
		}
		p[n] = b1<<4 | b2
		n++
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (d *hexDecoder) Skip(n int64) (int64, error) { return skipByReading(d, n) }

func (d *hexDecoder) Reset() error {
	d.group.done = false
	return d.in.Reset()
}

func (d *hexDecoder) Close() error { return d.in.Close() }

// ascii85Decoder decodes ASCII base-85 (Ascii85) encoded data.
// Each group of 5 ASCII characters (! to u, values 33-117) represents 4 bytes.
// The special character 'z' represents four zero bytes. The sequence ~> marks
// end of data.
type ascii85Decoder struct {
	in      *Buffer
	group   groupReader
	started bool
	out     [4]byte
	pending []byte
}

// NewASCII85Decoder returns a Source decoding src as ASCII85Decode data.
func NewASCII85Decoder(src Source, bufSize int) Source {
	in := NewBuffer(src, bufSize)
	return &ascii85Decoder{
		in:    in,
		group: groupReader{in: in, filter: ascii85Filt, terminator: ascii85EOD, shorthand: ascii85Zero},
	}
}

// skipPrefix drops leading whitespace and an optional "<~" opening marker.
func (d *ascii85Decoder) skipPrefix() error {
	for {
		c, err := d.in.Peek(0)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isWhitespace(c) {
			break
		}
		d.in.ReadByte()
	}
	c0, err := d.in.Peek(0)
	if err != nil {
		return nil
	}
	c1, err := d.in.Peek(1)
	if err != nil {
		return nil
	}
	if c0 == '<' && c1 == '~' {
		_, err := d.in.Skip(2)
		return err
	}
	return nil
}

func (d *ascii85Decoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !d.started {
		d.started = true
		if err := d.skipPrefix(); err != nil {
			return 0, err
		}
	}
	n := 0
	for n < len(p) {
		if len(d.pending) > 0 {
			m := copy(p[n:], d.pending)
			d.pending = d.pending[m:]
			n += m
			continue
		}
		if d.group.done {
			break
		}
		k, err := d.decodeGroup()
		if err != nil {
			return n, err
		}
		if k == 0 {
			break
		}
		d.pending = d.out[:k]
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// decodeGroup decodes the next group into d.out and returns the number of
// output bytes.
func (d *ascii85Decoder) decodeGroup() (int, error) {
	var digits [5]byte
	k, short, err := d.group.next(digits[:])
	if err != nil {
		return 0, err
	}
	if short {
		d.out = [4]byte{}
		return 4, nil
	}
	if k < 2 {
		// A single trailing symbol carries no complete byte.
		return 0, nil
	}

	numBytes := k - 1
	for i := k; i < 5; i++ {
		// Pad incomplete group with 'u' (84 = highest ASCII85 value)
		digits[i] = ascii85Last
	}

	value := uint64(0)
	for i, c := range digits {
		if c < ascii85First || c > ascii85Last {
			return 0, formatErrorf(ascii85Filt, d.in.Offset(), "invalid ASCII85 character %q in group position %d", c, i)
		}
		value = value*85 + uint64(c-ascii85First)
	}
	// Well-formed partial groups never overflow once padded, so an overflow
	// is malformed input whatever the group length.
	if value > 0xFFFFFFFF {
		return 0, formatErrorf(ascii85Filt, d.in.Offset(), "group value %d overflows 32 bits", value)
	}

	// Extract bytes (big-endian)
	d.out = [4]byte{byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value)}
	return numBytes, nil
}

func (d *ascii85Decoder) Skip(n int64) (int64, error) { return skipByReading(d, n) }

func (d *ascii85Decoder) Reset() error {
	d.group.done = false
	d.started = false
	d.pending = nil
	return d.in.Reset()
}

func (d *ascii85Decoder) Close() error { return d.in.Close() }

// ASCIIHexDecode decodes ASCII hexadecimal encoded data held in memory.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	return io.ReadAll(NewASCIIHexDecoder(NewBytesSource(data), 0))
}

// ASCII85Decode decodes ASCII base-85 (Ascii85) encoded data held in memory.
func ASCII85Decode(data []byte) ([]byte, error) {
	return io.ReadAll(NewASCII85Decoder(NewBytesSource(data), 0))
}

// hexDigitToByte converts a hexadecimal character to its numeric value (0-15).
func hexDigitToByte(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit: %c", c)
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
