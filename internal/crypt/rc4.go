package crypt

import (
	"crypto/rc4"
	"io"

	"github.com/tsawler/pdfstream/internal/filters"
)

// rc4Source XORs its input with the RC4 keystream.
type rc4Source struct {
	in  *filters.Buffer
	key []byte
	c   *rc4.Cipher
}

// NewRC4Source returns a Source decrypting src with key. Reset restarts the
// keystream from the same key.
func NewRC4Source(src filters.Source, key []byte, bufSize int) (filters.Source, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, &filters.InitError{Method: "RC4", Err: err}
	}
	return &rc4Source{
		in:  filters.NewBuffer(src, bufSize),
		key: append([]byte(nil), key...),
		c:   c,
	}, nil
}

func (s *rc4Source) Read(p []byte) (int, error) {
	n, err := s.in.Read(p)
	s.c.XORKeyStream(p[:n], p[:n])
	return n, err
}

func (s *rc4Source) Skip(n int64) (int64, error) {
	return skip(s, n)
}

func (s *rc4Source) Reset() error {
	if err := s.in.Reset(); err != nil {
		return err
	}
	c, err := rc4.NewCipher(s.key)
	if err != nil {
		return &filters.InitError{Method: "RC4", Err: err}
	}
	s.c = c
	return nil
}

func (s *rc4Source) Close() error { return s.in.Close() }

// skip advances a decrypting source by decrypting and discarding, which
// keeps the keystream or chaining state in step.
func skip(r io.Reader, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	k, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		err = nil
	}
	return k, err
}
