package filters

import "io"

const (
	runLengthFilter = "RunLengthDecode"
	runLengthEOD    = 128
)

// runLengthDecoder decodes RunLengthDecode data. A length byte n of 0-127
// is followed by n+1 literal bytes, 129-255 by a single byte repeated 257-n
// times, and 128 ends the data.
type runLengthDecoder struct {
	in      *Buffer
	run     [128]byte
	pending []byte
	done    bool
}

// NewRunLengthDecoder returns a Source decoding run-length data from src.
func NewRunLengthDecoder(src Source, bufSize int) Source {
	return &runLengthDecoder{in: NewBuffer(src, bufSize)}
}

// nextRun decodes one run into pending. A run cut short by the end of the
// input yields the bytes that were present and ends the data.
func (d *runLengthDecoder) nextRun() error {
	n, err := d.in.ReadByte()
	if err != nil {
		return err
	}
	switch {
	case n == runLengthEOD:
		return io.EOF
	case n < runLengthEOD:
		count := int(n) + 1
		got, err := io.ReadFull(d.in, d.run[:count])
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			d.done = true
		} else if err != nil {
			return err
		}
		d.pending = d.run[:got]
	default:
		c, err := d.in.ReadByte()
		if err != nil {
			return err
		}
		count := 257 - int(n)
		for i := 0; i < count; i++ {
			d.run[i] = c
		}
		d.pending = d.run[:count]
	}
	return nil
}

func (d *runLengthDecoder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		if len(d.pending) > 0 {
			m := copy(p[n:], d.pending)
			d.pending = d.pending[m:]
			n += m
			continue
		}
		if d.done {
			break
		}
		if err := d.nextRun(); err != nil {
			if err == io.EOF {
				d.done = true
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

func (d *runLengthDecoder) Skip(n int64) (int64, error) { return skipByReading(d, n) }

func (d *runLengthDecoder) Reset() error {
	d.pending = nil
	d.done = false
	return d.in.Reset()
}

func (d *runLengthDecoder) Close() error { return d.in.Close() }

// RunLengthDecode decodes run-length encoded data held in memory.
func RunLengthDecode(data []byte) ([]byte, error) {
	return io.ReadAll(NewRunLengthDecoder(NewBytesSource(data), 0))
}
