package filters

import (
	"errors"
	"io"
)

// readAllChunks drains r using reads of at most chunk bytes.
func readAllChunks(r io.Reader, chunk int) ([]byte, error) {
	var out []byte
	buf := make([]byte, chunk)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

var errDisk = errors.New("disk on fire")

// failingSource returns data and then a fixed error.
type failingSource struct {
	data   []byte
	pos    int
	err    error
	closed int
}

func (s *failingSource) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, s.err
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func (s *failingSource) Skip(n int64) (int64, error) { return skipByReading(s, n) }
func (s *failingSource) Reset() error                { s.pos = 0; return nil }
func (s *failingSource) Close() error                { s.closed++; return nil }

// trickleSource hands out at most one byte per Read to exercise refills.
type trickleSource struct {
	Source
}

func (s trickleSource) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return s.Source.Read(p)
}
