package pdfstream

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tsawler/pdfstream/core"
	"github.com/tsawler/pdfstream/internal/crypt"
	"github.com/tsawler/pdfstream/internal/filters"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func rc4XOR(key, data []byte) []byte {
	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// TestDecode tests decoding a stream through its dictionary's filters
func TestDecode(t *testing.T) {
	original := []byte(strings.Repeat("BT /F1 12 Tf (Hello) Tj ET\n", 50))
	stream := &core.Stream{
		Dict: core.Dict{"Filter": core.Array{core.Name("AHx"), core.Name("FlateDecode")}},
		Data: []byte(strings.ToUpper(hex.EncodeToString(deflate(t, original))) + ">"),
	}

	data, warnings, err := New().Decode(stream)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %s", FormatWarnings(warnings))
	}
	if !bytes.Equal(data, original) {
		t.Errorf("decoded %d bytes, want %d", len(data), len(original))
	}
}

// TestDecoderImmutability tests that configuration methods leave the
// receiver unchanged
func TestDecoderImmutability(t *testing.T) {
	base := New()
	strict := base.Strict()
	limited := base.MaxDecodedSize(2)

	stream := &core.Stream{Dict: core.Dict{"Filter": core.Name("FooDecode")}, Data: []byte("data")}

	data, warnings, err := base.Decode(stream)
	if err != nil {
		t.Fatalf("base decoder: %v", err)
	}
	if string(data) != "data" || len(warnings) != 1 {
		t.Fatalf("base decoder: data %q, warnings %v", data, warnings)
	}
	if warnings[0].Filter != "FooDecode" {
		t.Errorf("warning filter = %q", warnings[0].Filter)
	}

	if _, _, err := strict.Decode(stream); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("strict decoder: expected ErrUnknownFilter, got %v", err)
	}
	if _, _, err := limited.Decode(stream); !errors.Is(err, ErrDecodedSizeLimit) {
		t.Errorf("limited decoder: expected ErrDecodedSizeLimit, got %v", err)
	}
	if base.options.strict || base.options.maxDecodedSize != 0 {
		t.Error("configuration leaked into the base decoder")
	}
}

// TestDecodeSmallWindows tests that the window size does not change the
// output
func TestDecodeSmallWindows(t *testing.T) {
	original := bytes.Repeat([]byte{0, 1, 2, 3, 250, 251, 252}, 1000)
	compressed := deflate(t, original)

	for _, size := range []int{0, 1, 64, 100, 1 << 16} {
		data, _, err := New().BufferSize(size).DecodeBytes(compressed, []string{"Fl"}, nil, core.IndirectRef{})
		if err != nil {
			t.Fatalf("BufferSize(%d): %v", size, err)
		}
		if !bytes.Equal(data, original) {
			t.Errorf("BufferSize(%d): output differs", size)
		}
	}
}

// TestDecodeCorrupt tests that malformed data is reported as a format error
func TestDecodeCorrupt(t *testing.T) {
	_, _, err := New().DecodeBytes([]byte("48 6Z>"), []string{"ASCIIHexDecode"}, nil, core.IndirectRef{})
	if !errors.Is(err, ErrDecodeFormat) {
		t.Fatalf("expected ErrDecodeFormat, got %v", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Filter == "" {
		t.Errorf("expected a *FormatError naming the filter, got %v", err)
	}
}

// TestReader tests incremental reading, Reset and Close
func TestReader(t *testing.T) {
	original := []byte(strings.Repeat("0123456789", 500))
	stream := &core.Stream{Dict: core.Dict{"Filter": core.Name("Fl")}, Data: deflate(t, original)}

	r, err := New().BufferSize(64).Reader(stream)
	if err != nil {
		t.Fatal(err)
	}

	var got []byte
	chunk := make([]byte, 7)
	for {
		n, err := r.Read(chunk)
		got = append(got, chunk[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("read %d bytes, want %d", len(got), len(original))
	}

	if err := r.Reset(); err != nil {
		t.Fatal(err)
	}
	again, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, original) {
		t.Error("output after Reset differs")
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings())
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// TestReaderFrom tests decoding a body read from a file section
func TestReaderFrom(t *testing.T) {
	file := []byte("%PDF-1.7\n4 0 obj <</Filter /AHx>> stream\n414243>\nendstream")
	start := bytes.Index(file, []byte("414243"))

	src := filters.NewSectionSource(bytes.NewReader(file), int64(start), 7)
	r, err := New().ReaderFrom(src, []string{"AHx"}, nil, core.IndirectRef{Number: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ABC" {
		t.Errorf("got %q", got)
	}
}

// TestEncode tests that Encode output decodes back with the same names
func TestEncode(t *testing.T) {
	original := []byte(strings.Repeat("stream content ", 200))

	var buf bytes.Buffer
	w, err := New().CompressionLevel(9).Encode(&buf, "FlateDecode")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(original); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() >= len(original) {
		t.Errorf("encoded %d bytes from %d", buf.Len(), len(original))
	}

	data, _, err := New().DecodeBytes(buf.Bytes(), []string{"FlateDecode"}, nil, core.IndirectRef{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, original) {
		t.Error("round trip differs")
	}

	if _, err := New().Encode(&buf, "ASCII85Decode"); !errors.Is(err, ErrEncodeUnsupported) {
		t.Errorf("expected ErrEncodeUnsupported, got %v", err)
	}
}

// TestCustomRegistry tests decoding with a registry holding a custom filter
func TestCustomRegistry(t *testing.T) {
	reg := NewRegistry()
	reverse := func(src Source, _ Params, _ *Env) (Source, error) {
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, err
		}
		src.Close()
		for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
			data[i], data[j] = data[j], data[i]
		}
		return filters.NewBytesSource(data), nil
	}
	if err := reg.Register("ReverseDecode", reverse); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("FlateDecode", reverse); !errors.Is(err, ErrDuplicateFilter) {
		t.Errorf("registering over a built-in filter: expected ErrDuplicateFilter, got %v", err)
	}

	data, _, err := New().WithRegistry(reg).DecodeBytes([]byte("6F6C6C6568>"), []string{"AHx", "ReverseDecode"}, nil, core.IndirectRef{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}

	// The default decoder does not know the custom filter.
	_, warnings, _ := New().DecodeBytes([]byte("x"), []string{"ReverseDecode"}, nil, core.IndirectRef{})
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", warnings)
	}
}

// TestSecurityHandlerDecode tests decrypting streams and strings with a
// known document key
func TestSecurityHandlerDecode(t *testing.T) {
	docKey := []byte("0123456789")
	sec, err := NewSecurityHandler(docKey, "V2")
	if err != nil {
		t.Fatal(err)
	}

	ref := core.IndirectRef{Number: 12, Generation: 0}
	objKey := crypt.ObjectKey(docKey, ref.ObjectRef(), false)
	original := []byte("0 0 m 100 100 l S")

	stream := &core.Stream{
		Dict: core.Dict{"Filter": core.Name("FlateDecode")},
		Data: rc4XOR(objKey, deflate(t, original)),
		Ref:  ref,
	}
	data, _, err := New().WithSecurity(sec).Decode(stream)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, original) {
		t.Errorf("got %q", data)
	}

	s, err := New().WithSecurity(sec).DecodeString(ref, rc4XOR(objKey, []byte("(title)")))
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "(title)" {
		t.Errorf("DecodeString = %q", s)
	}

	plain, err := New().DecodeString(ref, []byte("plain"))
	if err != nil || string(plain) != "plain" {
		t.Errorf("DecodeString without security = %q, %v", plain, err)
	}

	if _, err := NewSecurityHandler(docKey, "AESV2"); !errors.Is(err, ErrCryptoInit) {
		t.Errorf("10-byte AESV2 key: expected ErrCryptoInit, got %v", err)
	}
	if _, err := NewSecurityHandler(docKey, "ROT13"); !errors.Is(err, ErrCryptoInit) {
		t.Errorf("unknown method: expected ErrCryptoInit, got %v", err)
	}
}

// revision2Encrypt builds an R2 Encrypt dictionary for the given passwords
// and returns it with the document key.
func revision2Encrypt(user, owner string, id []byte) (core.Dict, []byte) {
	pad := func(pw string) []byte {
		padding := []byte{
			0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
			0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
			0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
			0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
		}
		return append([]byte(pw), padding...)[:32]
	}
	var p int32 = -44

	ownerSum := md5.Sum(pad(owner))
	o := rc4XOR(ownerSum[:5], pad(user))

	h := md5.New()
	h.Write(pad(user))
	h.Write(o)
	var pb [4]byte
	binary.LittleEndian.PutUint32(pb[:], uint32(p))
	h.Write(pb[:])
	h.Write(id)
	key := h.Sum(nil)[:5]

	u := rc4XOR(key, pad(""))

	return core.Dict{
		"Filter": core.Name("Standard"),
		"V":      core.Int(1),
		"R":      core.Int(2),
		"P":      core.Int(p),
		"O":      core.String(o),
		"U":      core.String(u),
	}, key
}

// TestAuthenticate tests opening a standard security handler with the user
// and owner passwords
func TestAuthenticate(t *testing.T) {
	id := []byte("0123456789abcdef")
	encrypt, key := revision2Encrypt("", "owner", id)

	for _, pw := range []string{"", "owner"} {
		sec, err := Authenticate(encrypt, id, pw)
		if err != nil {
			t.Fatalf("password %q: %v", pw, err)
		}
		if !bytes.Equal(sec.Key(), key) {
			t.Errorf("password %q: key %x, want %x", pw, sec.Key(), key)
		}
	}

	_, err := Authenticate(encrypt, id, "wrong")
	if !errors.Is(err, ErrPassword) || !errors.Is(err, ErrCryptoInit) {
		t.Errorf("wrong password: expected ErrPassword, got %v", err)
	}

	_, err = Authenticate(core.Dict{"Filter": core.Name("Adobe.PubSec")}, id, "")
	if !errors.Is(err, ErrCryptoInit) {
		t.Errorf("public key handler: expected ErrCryptoInit, got %v", err)
	}
}

// TestFormatWarnings tests the joining of warnings
func TestFormatWarnings(t *testing.T) {
	if got := FormatWarnings(nil); got != "" {
		t.Errorf("FormatWarnings(nil) = %q", got)
	}
	warnings := []Warning{
		{Filter: "ASCII85Decode", Offset: 12, Message: "missing end-of-data marker"},
		{Filter: "Foo", Offset: -1, Message: "unknown filter"},
	}
	want := "ASCII85Decode: missing end-of-data marker (offset 12); Foo: unknown filter"
	if got := FormatWarnings(warnings); got != want {
		t.Errorf("FormatWarnings = %q, want %q", got, want)
	}
}

// TestMust tests the Must helpers
func TestMust(t *testing.T) {
	data := MustDecode(New().DecodeBytes([]byte("41>"), []string{"AHx"}, nil, core.IndirectRef{}))
	if string(data) != "A" {
		t.Errorf("MustDecode = %q", data)
	}

	defer func() {
		if recover() == nil {
			t.Error("Must should panic on error")
		}
	}()
	Must(NewSecurityHandler(nil, "AESV2"))
}
