package filters

import "io"

// Predictor values from the DecodeParms dictionary.
const (
	PredictorNone = 1
	PredictorTIFF = 2
	PredictorPNG  = 10 // 10 through 15 all mean a per-row PNG tag
	pngMaxPredict = 15
)

// PNG row filter types.
const (
	pngNone    = 0
	pngSub     = 1
	pngUp      = 2
	pngAverage = 3
	pngPaeth   = 4
)

// predictor undoes TIFF or PNG prediction on the output of another stage.
// Rows are reconstructed one at a time; the previous row and any part of the
// current row the caller has not taken yet survive between Read calls.
type predictor struct {
	src    Source
	filter string
	png    bool
	bpc    int
	colors int

	bytesPerPixel int
	rowLength     int

	raw     []byte // one encoded row, including the PNG tag byte
	prev    []byte
	cur     []byte
	pending []byte
	row     int
	done    bool
}

// wrapPredictor applies the predictor described by params to src. Predictor 1
// (or no Predictor entry) returns src unchanged.
func wrapPredictor(src Source, filter string, params Params) (Source, error) {
	kind := getIntParam(params, "Predictor", PredictorNone)
	if kind == PredictorNone {
		return src, nil
	}
	p, err := newPredictor(src, filter, kind, params)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newPredictor(src Source, filter string, kind int, params Params) (*predictor, error) {
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	columns := getIntParam(params, "Columns", 1)

	switch {
	case kind == PredictorTIFF:
		if bpc != 8 && bpc != 16 {
			return nil, formatErrorf(filter, -1, "TIFF predictor does not support %d bits per component", bpc)
		}
	case kind >= PredictorPNG && kind <= pngMaxPredict:
	default:
		return nil, formatErrorf(filter, -1, "unsupported predictor: %d", kind)
	}
	if colors < 1 || columns < 1 || bpc < 1 || bpc > 16 {
		return nil, formatErrorf(filter, -1, "invalid predictor geometry: Colors=%d Columns=%d BitsPerComponent=%d", colors, columns, bpc)
	}

	p := &predictor{
		src:           src,
		filter:        filter,
		png:           kind != PredictorTIFF,
		bpc:           bpc,
		colors:        colors,
		bytesPerPixel: (colors*bpc + 7) / 8,
		rowLength:     (columns*colors*bpc + 7) / 8,
	}
	rawLen := p.rowLength
	if p.png {
		rawLen++
	}
	p.raw = make([]byte, rawLen)
	p.prev = make([]byte, p.rowLength)
	p.cur = make([]byte, p.rowLength)
	return p, nil
}

func (p *predictor) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(b) {
		if len(p.pending) > 0 {
			m := copy(b[n:], p.pending)
			p.pending = p.pending[m:]
			n += m
			continue
		}
		if p.done {
			break
		}
		if err := p.nextRow(); err != nil {
			if err == io.EOF {
				p.done = true
				break
			}
			return n, err
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// nextRow reads and reconstructs one row into pending. A short final row
// ends the data.
func (p *predictor) nextRow() error {
	if _, err := io.ReadFull(p.src, p.raw); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}

	var err error
	if p.png {
		err = p.decodePNG(p.raw[0], p.raw[1:])
	} else {
		p.decodeTIFF(p.raw)
	}
	if err != nil {
		return err
	}

	p.pending = p.cur
	p.prev, p.cur = p.cur, p.prev
	p.row++
	return nil
}

// decodePNG reconstructs a row with the given PNG filter type.
func (p *predictor) decodePNG(tag byte, in []byte) error {
	bpp := p.bytesPerPixel
	out, up := p.cur, p.prev

	switch tag {
	case pngNone:
		copy(out, in)

	case pngSub:
		for i := range in {
			var left byte
			if i >= bpp {
				left = out[i-bpp]
			}
			out[i] = in[i] + left
		}

	case pngUp:
		for i := range in {
			out[i] = in[i] + up[i]
		}

	case pngAverage:
		for i := range in {
			var left byte
			if i >= bpp {
				left = out[i-bpp]
			}
			out[i] = in[i] + byte((int(left)+int(up[i]))/2)
		}

	case pngPaeth:
		for i := range in {
			var left, upLeft byte
			if i >= bpp {
				left = out[i-bpp]
				upLeft = up[i-bpp]
			}
			out[i] = in[i] + paethPredictor(left, up[i], upLeft)
		}

	default:
		return formatErrorf(p.filter, -1, "unknown PNG predictor %d in row %d", tag, p.row)
	}
	return nil
}

// decodeTIFF applies TIFF Predictor 2, which predicts each sample from the
// same component of the pixel to its left.
func (p *predictor) decodeTIFF(in []byte) {
	out := p.cur
	if p.bpc == 8 {
		for i := range in {
			if i < p.colors {
				out[i] = in[i]
			} else {
				out[i] = in[i] + out[i-p.colors]
			}
		}
		return
	}

	// 16 bit samples, big-endian
	stride := 2 * p.colors
	for i := 0; i+1 < len(in); i += 2 {
		v := uint16(in[i])<<8 | uint16(in[i+1])
		if i >= stride {
			v += uint16(out[i-stride])<<8 | uint16(out[i-stride+1])
		}
		out[i] = byte(v >> 8)
		out[i+1] = byte(v)
	}
}

func (p *predictor) Skip(n int64) (int64, error) { return skipByReading(p, n) }

func (p *predictor) Reset() error {
	for i := range p.prev {
		p.prev[i] = 0
	}
	p.pending = nil
	p.row = 0
	p.done = false
	return p.src.Reset()
}

func (p *predictor) Close() error { return p.src.Close() }

// paethPredictor implements the Paeth predictor algorithm from the PNG specification.
// It selects the neighbor (left, above, or upper-left) closest to a linear prediction.
func paethPredictor(a, b, c byte) byte {
	// a = left, b = above, c = upper left
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
