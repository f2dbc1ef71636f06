package filters

import "io"

// Buffer sizes for the windowed decoder.
const (
	DefaultBufferSize = 4096
	MinBufferSize     = 64
)

// maxEmptyReads bounds how often a source may return (0, nil) in a row.
const maxEmptyReads = 100

// Buffer is the windowed buffered decoder every codec reads through. It
// keeps a fixed-capacity window over its Source and supports forward reads,
// non-consuming Peek and bounded Unread without going back to the source.
//
// The window is split at its midpoint. Once the cursor passes the feed
// threshold (three quarters of the capacity) the bytes older than
// cursor-half are discarded, the rest is shifted to the front and the tail is
// refilled. At least half a window of lookback and lookahead is therefore
// always available.
//
// Invariant: 0 <= cursor <= end <= len(buf). When eod is set the source is
// exhausted and no byte exists beyond end.
type Buffer struct {
	src    Source
	buf    []byte
	cursor int   // next unread position
	end    int   // end of valid data
	base   int64 // stream offset of buf[0]
	eod    bool
	err    error // sticky source failure
	closed bool
}

// NewBuffer wraps src in a window of the given capacity. Sizes below
// MinBufferSize are raised to it; zero selects DefaultBufferSize.
func NewBuffer(src Source, size int) *Buffer {
	if size == 0 {
		size = DefaultBufferSize
	}
	if size < MinBufferSize {
		size = MinBufferSize
	}
	return &Buffer{src: src, buf: make([]byte, size)}
}

// Cap returns the window capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

func (b *Buffer) half() int { return len(b.buf) / 2 }
func (b *Buffer) feed() int { return len(b.buf) * 3 / 4 }

// Offset returns the stream offset of the next unread byte.
func (b *Buffer) Offset() int64 { return b.base + int64(b.cursor) }

// Buffered returns the number of bytes readable without touching the source.
func (b *Buffer) Buffered() int { return b.end - b.cursor }

// slide drops everything older than the lookback window and moves the
// remaining bytes to the front of buf.
func (b *Buffer) slide() {
	keep := b.cursor - b.half()
	if keep <= 0 {
		return
	}
	copy(b.buf, b.buf[keep:b.end])
	b.base += int64(keep)
	b.cursor -= keep
	b.end -= keep
}

// fill tops the window up from the source, sliding first when the cursor has
// crossed the feed threshold or the window is full.
func (b *Buffer) fill() error {
	if b.eod || b.err != nil {
		return b.err
	}
	if b.cursor >= b.feed() || b.end == len(b.buf) {
		b.slide()
	}
	empty := 0
	for b.end < len(b.buf) {
		n, err := b.src.Read(b.buf[b.end:])
		b.end += n
		if err == io.EOF {
			b.eod = true
			return nil
		}
		if err != nil {
			b.err = sourceError(err)
			return b.err
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				b.err = sourceError(io.ErrNoProgress)
				return b.err
			}
		}
	}
	return nil
}

// ensure tries to make n bytes available after the cursor and returns how
// many are. n must not exceed half the capacity.
func (b *Buffer) ensure(n int) int {
	for b.end-b.cursor < n && !b.eod && b.err == nil {
		b.fill()
	}
	return b.end - b.cursor
}

// Read copies up to len(p) bytes. Requests larger than the window are served
// straight from the source and the tail of the result is folded back into the
// window so later Unread calls still work. Read returns io.EOF once the
// source is exhausted and the window is drained.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		if b.cursor == b.end {
			if b.eod || b.err != nil {
				break
			}
			if len(p)-n >= len(b.buf) {
				n += b.readDirect(p, n)
				break
			}
			b.fill()
			continue
		}
		m := copy(p[n:], b.buf[b.cursor:b.end])
		b.cursor += m
		n += m
	}
	if n == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	return n, nil
}

// readDirect reads p[n:] from the source while the window is empty, then
// folds the last half-window of p[:total] back in as lookback.
func (b *Buffer) readDirect(p []byte, n int) int {
	start := b.base + int64(b.cursor)
	got := 0
	empty := 0
	for n+got < len(p) {
		m, err := b.src.Read(p[n+got:])
		got += m
		if err == io.EOF {
			b.eod = true
			break
		}
		if err != nil {
			b.err = sourceError(err)
			break
		}
		if m == 0 {
			empty++
			if empty >= maxEmptyReads {
				b.err = sourceError(io.ErrNoProgress)
				break
			}
		}
	}
	total := n + got
	keep := total
	if keep > b.half() {
		keep = b.half()
	}
	copy(b.buf, p[total-keep:total])
	b.base = start + int64(got) - int64(keep)
	b.cursor = keep
	b.end = keep
	return got
}

// ReadByte implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) {
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	if b.cursor == b.end {
		b.fill()
		if b.cursor == b.end {
			if b.err != nil {
				return 0, b.err
			}
			return 0, io.EOF
		}
	}
	c := b.buf[b.cursor]
	b.cursor++
	return c, nil
}

// UnreadByte implements io.ByteScanner.
func (b *Buffer) UnreadByte() error { return b.Unread(1) }

// Peek returns the byte i positions after the cursor without consuming it.
// i must lie in [0, Cap()/2); otherwise a *RangeError is returned. If the
// source ends before that position Peek returns io.EOF.
func (b *Buffer) Peek(i int) (byte, error) {
	if i < 0 || i >= b.half() {
		return 0, &RangeError{Op: "Peek", Requested: i, Available: b.half()}
	}
	if b.ensure(i+1) <= i {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	return b.buf[b.cursor+i], nil
}

// Unread moves the cursor back by k bytes. k may not exceed the bytes read
// that are still held in the window.
func (b *Buffer) Unread(k int) error {
	if k < 0 || k > b.cursor {
		return &RangeError{Op: "Unread", Requested: k, Available: b.cursor}
	}
	b.cursor -= k
	return nil
}

// Skip discards up to n bytes.
func (b *Buffer) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		if b.cursor == b.end {
			if b.eod {
				break
			}
			if b.err != nil {
				return skipped, b.err
			}
			if n-skipped >= int64(len(b.buf)) {
				m, err := b.src.Skip(n - skipped)
				b.base += int64(b.end) + m
				b.cursor, b.end = 0, 0
				skipped += m
				if err != nil {
					b.err = sourceError(err)
					return skipped, b.err
				}
				if skipped < n {
					b.eod = true
				}
				break
			}
			b.fill()
			continue
		}
		m := b.end - b.cursor
		if int64(m) > n-skipped {
			m = int(n - skipped)
		}
		b.cursor += m
		skipped += int64(m)
	}
	return skipped, nil
}

// Reset rewinds the source and empties the window; the first fill happens on
// the next read.
func (b *Buffer) Reset() error {
	if err := b.src.Reset(); err != nil {
		return err
	}
	b.cursor, b.end, b.base = 0, 0, 0
	b.eod = false
	b.err = nil
	return nil
}

// Close closes the underlying source once.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.src.Close()
}
