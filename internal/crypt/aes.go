package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"io"

	"github.com/tsawler/pdfstream/internal/filters"
)

const aesFilter = "AES"

// AESOptions configures an AES stage.
type AESOptions struct {
	// LeadingSkip bytes are discarded before the IV is read. Only stream
	// bodies use it; strings always start with the IV.
	LeadingSkip int
	BufferSize  int
	// Env receives padding and truncation warnings. It may be nil.
	Env *filters.Env
}

// aesSource decrypts AES-CBC data whose first block is the IV. Ciphertext is
// decrypted a window at a time; the last plaintext block is held back until
// the input is exhausted so the PKCS#5 padding can be removed.
type aesSource struct {
	in    *filters.Buffer
	block cipher.Block
	opts  AESOptions

	cbc     cipher.BlockMode
	chunk   []byte
	out     []byte
	held    [aes.BlockSize]byte
	heldN   int
	pending []byte
	done    bool
	err     error
}

// NewAESSource returns a Source decrypting src with key, which must be 16,
// 24 or 32 bytes long.
func NewAESSource(src filters.Source, key []byte, opts AESOptions) (filters.Source, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &filters.InitError{Method: "AES", Err: err}
	}
	in := filters.NewBuffer(src, opts.BufferSize)
	size := in.Cap() / 2
	size -= size % aes.BlockSize
	return &aesSource{
		in:    in,
		block: block,
		opts:  opts,
		chunk: make([]byte, size),
	}, nil
}

func (s *aesSource) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		if s.done {
			if s.err != nil {
				return 0, s.err
			}
			return 0, io.EOF
		}
		s.fill()
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// start skips the leading segment and reads the IV.
func (s *aesSource) start() bool {
	if s.opts.LeadingSkip > 0 {
		n, err := s.in.Skip(int64(s.opts.LeadingSkip))
		if err != nil {
			s.fail(err)
			return false
		}
		if n < int64(s.opts.LeadingSkip) {
			s.opts.Env.Warnf(aesFilter, s.in.Offset(), "stream shorter than its %d byte leading segment", s.opts.LeadingSkip)
			s.done = true
			return false
		}
	}

	var iv [aes.BlockSize]byte
	n, err := io.ReadFull(s.in, iv[:])
	switch {
	case err == io.EOF:
		s.done = true
		return false
	case err == io.ErrUnexpectedEOF:
		s.opts.Env.Warnf(aesFilter, s.in.Offset(), "truncated IV (%d bytes)", n)
		s.done = true
		return false
	case err != nil:
		s.fail(err)
		return false
	}
	s.cbc = cipher.NewCBCDecrypter(s.block, iv[:])
	return true
}

func (s *aesSource) fill() {
	if s.cbc == nil && !s.start() {
		return
	}

	n, err := io.ReadFull(s.in, s.chunk)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		s.fail(err)
		return
	}
	whole := n - n%aes.BlockSize
	s.cbc.CryptBlocks(s.chunk[:whole], s.chunk[:whole])

	s.out = append(s.out[:0], s.held[:s.heldN]...)
	s.out = append(s.out, s.chunk[:whole]...)

	if err == nil {
		// More may follow: keep the last block back.
		keep := len(s.out) - aes.BlockSize
		s.heldN = copy(s.held[:], s.out[keep:])
		s.pending = s.out[:keep]
		return
	}

	if n > whole {
		s.opts.Env.Warnf(aesFilter, s.in.Offset(), "dropped %d trailing bytes that do not fill a block", n-whole)
	}
	s.heldN = 0
	s.pending = s.unpad(s.out)
	s.done = true
}

// unpad strips valid PKCS#5 padding. Invalid padding is left in place.
func (s *aesSource) unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	pad := int(b[len(b)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(b) {
		s.opts.Env.Warnf(aesFilter, -1, "invalid padding length %d, left intact", pad)
		return b
	}
	for _, c := range b[len(b)-pad:] {
		if int(c) != pad {
			s.opts.Env.Warnf(aesFilter, -1, "inconsistent padding bytes, left intact")
			return b
		}
	}
	return b[:len(b)-pad]
}

func (s *aesSource) fail(err error) {
	s.err = err
	s.done = true
}

func (s *aesSource) Skip(n int64) (int64, error) { return skip(s, n) }

// Reset rewinds to the start of the input. The leading segment is skipped
// and the IV read again on the next Read.
func (s *aesSource) Reset() error {
	if err := s.in.Reset(); err != nil {
		return err
	}
	s.cbc = nil
	s.heldN = 0
	s.pending = nil
	s.done = false
	s.err = nil
	return nil
}

func (s *aesSource) Close() error { return s.in.Close() }
