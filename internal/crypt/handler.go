package crypt

import (
	"fmt"
	"io"
	"sort"

	"github.com/tsawler/pdfstream/internal/filters"
)

// Handler holds an authenticated document key and the crypt filters of the
// document. It implements filters.Security, so it can be placed in a
// filters.Env to decrypt streams as they are decoded.
type Handler struct {
	key    []byte
	method Method // used when no crypt filters are named
	cf     map[string]Method
	stmF   string
	strF   string
}

// NewHandler returns a handler decrypting everything with method and the
// document key key. The key length must suit the method: 5 to 16 bytes for
// RC4, 16 for AESV2, 32 for AESV3.
func NewHandler(key []byte, method Method) (*Handler, error) {
	if err := checkKey(key, method); err != nil {
		return nil, err
	}
	return &Handler{
		key:    append([]byte(nil), key...),
		method: method,
		cf:     make(map[string]Method),
	}, nil
}

func checkKey(key []byte, m Method) error {
	var ok bool
	switch m {
	case MethodNone:
		ok = true
	case MethodRC4:
		ok = len(key) >= 5 && len(key) <= 16
	case MethodAESV2:
		ok = len(key) == 16
	case MethodAESV3:
		ok = len(key) == 32
	default:
		return &filters.InitError{Method: m.String(), Err: fmt.Errorf("unknown method")}
	}
	if !ok {
		return &filters.InitError{Method: m.String(), Err: fmt.Errorf("invalid key length %d", len(key))}
	}
	return nil
}

// SetCryptFilter defines the named crypt filter (an entry of the CF
// dictionary).
func (h *Handler) SetCryptFilter(name string, m Method) {
	h.cf[name] = m
}

// SetDefaults names the crypt filters used for streams (StmF) and strings
// (StrF). An empty name keeps the handler's own method.
func (h *Handler) SetDefaults(stmF, strF string) {
	h.stmF, h.strF = stmF, strF
}

// Key returns a copy of the document key.
func (h *Handler) Key() []byte { return append([]byte(nil), h.key...) }

// CryptFilters returns the names of the defined crypt filters, sorted.
func (h *Handler) CryptFilters() []string {
	names := make([]string, 0, len(h.cf))
	for n := range h.cf {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// resolve returns the method of the crypt filter name. An empty name selects
// def, the document default for the data class.
func (h *Handler) resolve(name, def string) (Method, error) {
	if name == "" {
		name = def
	}
	switch name {
	case "":
		return h.method, nil
	case filters.IdentityCryptFilter:
		return MethodNone, nil
	}
	m, ok := h.cf[name]
	if !ok {
		return MethodNone, &filters.InitError{Method: name, Err: fmt.Errorf("crypt filter not defined")}
	}
	return m, nil
}

// DecryptStream wraps src, the raw body of the stream env.Ref, in a
// decrypting stage. Identity returns src itself.
func (h *Handler) DecryptStream(src filters.Source, cryptFilter string, env *filters.Env) (filters.Source, error) {
	m, err := h.resolve(cryptFilter, h.stmF)
	if err != nil {
		return nil, err
	}
	var ref filters.ObjectRef
	var opts AESOptions
	if env != nil {
		ref = env.Ref
		opts = AESOptions{LeadingSkip: env.LeadingSkip, BufferSize: env.BufferSize, Env: env}
	}
	return h.newSource(src, ref, m, opts)
}

// DecryptString decrypts a string object belonging to ref with the
// document's string crypt filter.
func (h *Handler) DecryptString(ref filters.ObjectRef, data []byte) ([]byte, error) {
	m, err := h.resolve("", h.strF)
	if err != nil {
		return nil, err
	}
	if m == MethodNone {
		return data, nil
	}
	src, err := h.newSource(filters.NewBytesSource(data), ref, m, AESOptions{})
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

func (h *Handler) newSource(src filters.Source, ref filters.ObjectRef, m Method, opts AESOptions) (filters.Source, error) {
	if m == MethodNone {
		return src, nil
	}
	// A named crypt filter may use a different method than the handler was
	// built for, so the key is checked again.
	if m == MethodAESV3 && len(h.key) != 32 || m != MethodAESV3 && len(h.key) > 16 {
		return nil, &filters.InitError{Method: m.String(), Err: fmt.Errorf("invalid key length %d", len(h.key))}
	}
	key := keyFor(h.key, ref, m)
	if m == MethodRC4 {
		return NewRC4Source(src, key, opts.BufferSize)
	}
	return NewAESSource(src, key, opts)
}
