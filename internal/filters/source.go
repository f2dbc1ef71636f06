package filters

import (
	"bytes"
	"io"
)

// Source is the pull interface every filter stage consumes and produces.
//
// Read follows io.Reader and returns io.EOF once no data remains. Skip
// discards up to n bytes and reports how many were actually skipped. Reset
// rewinds the stage to its initial state, re-deriving any cipher keystream
// and reinitialising codec tables. Close releases the stage and its upstream
// source; calling it more than once is harmless.
//
// A Source is owned by the stage that wraps it and is not safe for
// concurrent use.
type Source interface {
	io.Reader
	io.Closer
	Skip(n int64) (int64, error)
	Reset() error
}

// skipByReading implements Skip for stages that can only move forward by
// decoding.
func skipByReading(r io.Reader, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	skipped, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		err = nil
	}
	return skipped, err
}

// bytesSource serves an in-memory stream body.
type bytesSource struct {
	r      *bytes.Reader
	closed bool
}

// NewBytesSource returns a Source reading data. Reset rewinds to the start.
func NewBytesSource(data []byte) Source {
	return &bytesSource{r: bytes.NewReader(data)}
}

func (s *bytesSource) Read(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	return s.r.Read(p)
}

func (s *bytesSource) Skip(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	if rem := int64(s.r.Len()); n > rem {
		n = rem
	}
	_, err := s.r.Seek(n, io.SeekCurrent)
	return n, err
}

func (s *bytesSource) Reset() error {
	_, err := s.r.Seek(0, io.SeekStart)
	return err
}

func (s *bytesSource) Close() error {
	s.closed = true
	return nil
}

// Len reports the number of unread bytes.
func (s *bytesSource) Len() int64 { return int64(s.r.Len()) }

// readerSource serves a stream body from a seekable reader, typically an
// *os.File positioned at the start of the body.
type readerSource struct {
	rs     io.ReadSeeker
	start  int64
	closer io.Closer
	closed bool
}

// NewReaderSource returns a Source reading rs from its current position.
// Reset seeks back to that position. If rs is also an io.Closer it is closed
// with the source.
func NewReaderSource(rs io.ReadSeeker) (Source, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, sourceError(err)
	}
	s := &readerSource{rs: rs, start: start}
	if c, ok := rs.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// NewSectionSource returns a Source reading n bytes of ra starting at off.
func NewSectionSource(ra io.ReaderAt, off, n int64) Source {
	return &readerSource{rs: io.NewSectionReader(ra, off, n)}
}

func (s *readerSource) Read(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := s.rs.Read(p)
	if err != nil && err != io.EOF {
		err = sourceError(err)
	}
	return n, err
}

func (s *readerSource) Skip(n int64) (int64, error) {
	return skipByReading(s, n)
}

func (s *readerSource) Reset() error {
	if _, err := s.rs.Seek(s.start, io.SeekStart); err != nil {
		return sourceError(err)
	}
	return nil
}

func (s *readerSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// readerAdapter lifts a plain io.Reader (for example a third-party decoder)
// into a Source. Reset is delegated to a caller supplied function. Errors the
// reader reports that are not already classified become format errors of
// filter.
type readerAdapter struct {
	filter string
	r      io.Reader
	reset  func() (io.Reader, error)
	closer func() error
	closed bool
}

func (a *readerAdapter) Read(p []byte) (int, error) {
	if a.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := a.r.Read(p)
	if err != nil && err != io.EOF && !classified(err) {
		err = formatErrorf(a.filter, -1, "%v", err)
	}
	return n, err
}

func (a *readerAdapter) Skip(n int64) (int64, error) { return skipByReading(a, n) }

func (a *readerAdapter) Reset() error {
	r, err := a.reset()
	if err != nil {
		return err
	}
	a.r = r
	return nil
}

func (a *readerAdapter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer != nil {
		return a.closer()
	}
	return nil
}
