// Package filters implements the PDF stream decode filters as streaming
// stages.
//
// Every stage is a Source: an io.Reader that can also Skip, Reset and Close.
// Stages pull their input through a Buffer, a fixed window over the upstream
// Source that refills itself as it is consumed, so a chain decodes a stream
// of any length in bounded memory.
//
// # Supported Filters
//
//	ASCIIHexDecode  (AHx)   hexadecimal text
//	ASCII85Decode   (A85)   base-85 text, with the z shorthand
//	FlateDecode     (Fl)    zlib or raw deflate, optional predictor
//	LZWDecode       (LZW)   variable width LZW, EarlyChange 0 or 1, optional predictor
//	RunLengthDecode (RL)    byte-oriented run-length encoding
//	CCITTFaxDecode  (CCF)   Group 3 and Group 4 fax
//	Crypt                   decryption through the document's security handler
//
// DCTDecode, JPXDecode and JBIG2Decode are registered as pass-through stages;
// the data is left encoded for image consumers.
//
// Predictor 2 selects the TIFF predictor and 10 to 15 the PNG predictors.
// Predictor parameters are read from the same Params as the filter:
//
//	params := filters.Params{
//	    "Predictor": 12,
//	    "Columns":   100,
//	    "Colors":    3,
//	}
//
// # Chains
//
// BuildDecodeChain stacks the stages named by a stream's /Filter entry:
//
//	src := filters.NewBytesSource(body)
//	r, err := filters.BuildDecodeChain(src, []string{"A85", "FlateDecode"}, nil, env, nil)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	decoded, err := io.ReadAll(r)
//
// Filters are looked up in a Registry. DefaultRegistry holds the built-ins;
// callers needing extra filters build their own with NewRegistry.
//
// Damaged input is decoded as far as possible. Problems the decoder can work
// around are reported as Warnings through Env; the rest surface as errors
// matching ErrDecodeFormat, ErrSourceIO or ErrCryptoInit.
//
// For small in-memory bodies the helpers FlateDecode, LZWDecode,
// ASCIIHexDecode, ASCII85Decode, RunLengthDecode and CCITTFaxDecode decode a
// byte slice in one call.
package filters
