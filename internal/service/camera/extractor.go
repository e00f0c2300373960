package camera

import "bytes"

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Extractor accumulates raw MJPEG bytes and cuts complete JPEG frames out of them.
// It is owned by a single connection loop and is not safe for concurrent use.
type Extractor struct {
	buf       []byte
	maxBuffer int
	overflows int
}

// NewExtractor creates an Extractor whose buffer never grows beyond maxBuffer bytes.
// A non-positive maxBuffer disables the bound.
func NewExtractor(maxBuffer int) *Extractor {
	return &Extractor{maxBuffer: maxBuffer}
}

// Write appends a chunk to the buffer.
func (e *Extractor) Write(chunk []byte) {
	e.buf = append(e.buf, chunk...)
}

// Trim enforces the buffer bound once Next has no frame left to return. Past the
// bound the buffer is reset, keeping only a trailing 0xFF that may be the first half
// of a marker. It reports whether a reset happened.
func (e *Extractor) Trim() bool {
	if e.maxBuffer <= 0 || len(e.buf) <= e.maxBuffer {
		return false
	}

	e.overflows++
	if e.buf[len(e.buf)-1] == 0xFF {
		e.buf = append(e.buf[:0], 0xFF)
	} else {
		e.buf = e.buf[:0]
	}
	return true
}

// Next returns the first complete frame in the buffer: the bytes from the first start
// marker through the first end marker after it, inclusive. The buffer then keeps
// only the bytes following that end marker.
func (e *Extractor) Next() ([]byte, bool) {
	start := bytes.Index(e.buf, jpegHeader)
	if start == -1 {
		return nil, false
	}

	end := bytes.Index(e.buf[start+len(jpegHeader):], jpegFooter)
	if end == -1 {
		return nil, false
	}
	end += start + len(jpegHeader) + len(jpegFooter)

	frame := make([]byte, end-start)
	copy(frame, e.buf[start:end])

	rest := copy(e.buf, e.buf[end:])
	e.buf = e.buf[:rest]

	return frame, true
}

// Buffered returns a copy of the bytes waiting for a complete frame.
func (e *Extractor) Buffered() []byte {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out
}

// Len returns the number of buffered bytes.
func (e *Extractor) Len() int {
	return len(e.buf)
}

// Overflows returns how many times the buffer was reset for exceeding its bound.
func (e *Extractor) Overflows() int {
	return e.overflows
}
