package pdfstream_test

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/tsawler/pdfstream"
	"github.com/tsawler/pdfstream/core"
	"github.com/tsawler/pdfstream/observability"
)

func Example() {
	stream := &core.Stream{
		Dict: core.Dict{"Filter": core.Name("ASCIIHexDecode")},
		Data: []byte("48656C6C6F>"),
	}

	data, warnings, err := pdfstream.New().Decode(stream)
	if err != nil {
		log.Fatal(err)
	}
	if len(warnings) > 0 {
		log.Println("Warnings:", pdfstream.FormatWarnings(warnings))
	}
	fmt.Println(string(data))
	// Output: Hello
}

func Example_filterChain() {
	// Filters are applied in the order listed: ASCII85 first, then
	// run-length.
	data, _, err := pdfstream.New().DecodeBytes(
		[]byte("rH`t~>"),
		[]string{"A85", "RL"},
		nil,
		core.IndirectRef{},
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%q\n", data)
	// Output: "zzzz"
}

func Example_warnings() {
	// Unknown filters pass data through with a warning unless the decoder
	// is strict.
	data, warnings, _ := pdfstream.New().DecodeBytes([]byte("raw"), []string{"BrotliDecode"}, nil, core.IndirectRef{})
	fmt.Println(string(data))
	fmt.Println(pdfstream.FormatWarnings(warnings))

	_, _, err := pdfstream.New().Strict().DecodeBytes([]byte("raw"), []string{"BrotliDecode"}, nil, core.IndirectRef{})
	fmt.Println(err)
	// Output:
	// raw
	// BrotliDecode: unknown filter, data passed through undecoded
	// filters: unknown filter: BrotliDecode
}

func Example_encode() {
	var buf bytes.Buffer
	w, err := pdfstream.New().Encode(&buf, "FlateDecode")
	if err != nil {
		log.Fatal(err)
	}
	io.WriteString(w, "BT /F1 12 Tf (Hi) Tj ET")
	w.Close()

	data := pdfstream.MustDecode(pdfstream.New().DecodeBytes(buf.Bytes(), []string{"Fl"}, nil, core.IndirectRef{}))
	fmt.Println(string(data))
	// Output: BT /F1 12 Tf (Hi) Tj ET
}

func Example_encrypted() {
	// encryptDict and fileID come from the document trailer.
	var encryptDict core.Dict
	var fileID []byte

	sec, err := pdfstream.Authenticate(encryptDict, fileID, "user password")
	if err != nil {
		log.Println(err)
		return
	}

	dec := pdfstream.New().WithSecurity(sec)
	stream := &core.Stream{Ref: core.IndirectRef{Number: 7}}
	data, _, err := dec.Decode(stream)
	_, _ = data, err
}

func Example_streaming() {
	stream := &core.Stream{
		Dict: core.Dict{"Filter": core.Name("AHx")},
		Data: []byte("4C 6F 6E 67 20 73 74 72 65 61 6D>"),
	}

	r, err := pdfstream.New().
		BufferSize(64).
		MaxDecodedSize(1 << 20).
		WithLogger(observability.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
		Reader(stream)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	if _, err := io.Copy(os.Stdout, r); err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	// Output: Long stream
}
