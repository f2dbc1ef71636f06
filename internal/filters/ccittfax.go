package filters

import (
	"io"

	"golang.org/x/image/ccitt"
)

const ccittFilter = "CCITTFaxDecode"

// NewCCITTFaxDecoder returns a Source decoding CCITT Group 3/4 fax data.
// This is commonly used for bi-level (black and white) images in PDFs,
// particularly for scanned documents. The output is one bit per pixel with
// each row byte aligned.
//
// Parameters from the PDF decode parameters dictionary:
//   - K: Group selector (-1=Group4, 0=Group3 1D, >0=Group3 2D)
//   - Columns: Image width in pixels (default 1728)
//   - Rows: Image height in pixels (default 0, uses AutoDetectHeight)
//   - EncodedByteAlign: rows start on byte boundaries (default false)
//   - BlackIs1: Bit interpretation (default false, maps to ccitt.Options.Invert)
func NewCCITTFaxDecoder(src Source, params Params, bufSize int) (Source, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	k := getIntParam(params, "K", 0)
	if columns <= 0 {
		return nil, formatErrorf(ccittFilter, -1, "invalid Columns %d", columns)
	}

	// K < 0: pure Group 4
	// K = 0: pure Group 3 (1-dimensional)
	// K > 0: mixed Group 3 (2-dimensional)
	sf := ccitt.Group3
	if k < 0 {
		sf = ccitt.Group4
	}

	// PDF uses MSB order, blackIs1 maps to Invert option
	opts := &ccitt.Options{
		Invert: getBoolParam(params, "BlackIs1", false),
		Align:  getBoolParam(params, "EncodedByteAlign", false),
	}

	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	in := NewBuffer(src, bufSize)
	open := func() (io.Reader, error) {
		return ccitt.NewReader(in, ccitt.MSB, sf, columns, rows, opts), nil
	}
	r, _ := open()
	return &readerAdapter{
		filter: ccittFilter,
		r:      r,
		reset: func() (io.Reader, error) {
			if err := in.Reset(); err != nil {
				return nil, err
			}
			return open()
		},
		closer: in.Close,
	}, nil
}

// CCITTFaxDecode decodes CCITT Group 3/4 fax compressed data held in memory.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	src, err := NewCCITTFaxDecoder(NewBytesSource(data), params, 0)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
