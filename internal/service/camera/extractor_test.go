package camera

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegFrame(payload ...byte) []byte {
	frame := append([]byte{0xFF, 0xD8}, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestExtractor_SingleFrame(t *testing.T) {
	tests := []struct {
		name     string
		prefix   []byte
		frame    []byte
		trailing []byte
	}{
		{"bare frame", nil, jpegFrame(0x01, 0x02), nil},
		{"multipart headers around frame", []byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n"), jpegFrame(0x10, 0x20, 0x30), []byte("\r\n--frame\r\n")},
		{"empty payload", []byte{0x00}, jpegFrame(), []byte{0xAA}},
		{"payload with lone 0xFF", nil, jpegFrame(0xFF, 0x00, 0xFF, 0xD7), []byte{0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(0)
			var stream []byte
			stream = append(stream, tt.prefix...)
			stream = append(stream, tt.frame...)
			stream = append(stream, tt.trailing...)
			e.Write(stream)

			frame, ok := e.Next()
			require.True(t, ok)
			assert.Equal(t, tt.frame, frame)
			assert.Equal(t, len(tt.trailing), e.Len())
			if len(tt.trailing) > 0 {
				assert.Equal(t, tt.trailing, e.Buffered())
			}

			_, ok = e.Next()
			assert.False(t, ok, "the extracted frame must not be produced twice")
		})
	}
}

func TestExtractor_NoStartMarker(t *testing.T) {
	e := NewExtractor(0)
	first := []byte{0x00, 0x11, 0xFF, 0xD9, 0x22}
	e.Write(first)

	_, ok := e.Next()
	assert.False(t, ok)
	assert.Equal(t, first, e.Buffered())

	second := []byte{0x33, 0x44}
	e.Write(second)

	_, ok = e.Next()
	assert.False(t, ok)
	assert.Equal(t, append(append([]byte{}, first...), second...), e.Buffered())
}

func TestExtractor_FrameCompletedAcrossChunks(t *testing.T) {
	e := NewExtractor(0)
	full := jpegFrame(0x01, 0x02, 0x03, 0x04)

	e.Write(full[:3])
	_, ok := e.Next()
	assert.False(t, ok, "no end marker yet")

	e.Write(full[3 : len(full)-1])
	_, ok = e.Next()
	assert.False(t, ok, "end marker split across chunks")

	e.Write(full[len(full)-1:])
	frame, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, full, frame)
	assert.Zero(t, e.Len())

	_, ok = e.Next()
	assert.False(t, ok)
}

func TestExtractor_EndMarkerBeforeStartIsIgnored(t *testing.T) {
	e := NewExtractor(0)
	frame := jpegFrame(0x42)
	e.Write(append([]byte{0xFF, 0xD9, 0x00}, frame...))

	got, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, frame, got)
}

func TestExtractor_ConsecutiveFrames(t *testing.T) {
	e := NewExtractor(0)
	a := jpegFrame(0x0A)
	b := jpegFrame(0x0B, 0x0B)
	e.Write(append(append([]byte{}, a...), b...))

	got, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok = e.Next()
	require.True(t, ok)
	assert.Equal(t, b, got)

	assert.Zero(t, e.Len())
}

func TestExtractor_FrameIsACopy(t *testing.T) {
	e := NewExtractor(0)
	e.Write(jpegFrame(0x01))
	frame, ok := e.Next()
	require.True(t, ok)

	e.Write([]byte{0x99, 0x99, 0x99, 0x99})
	assert.Equal(t, jpegFrame(0x01), frame)
}

func TestExtractor_OverflowResets(t *testing.T) {
	e := NewExtractor(8)

	e.Write(bytes.Repeat([]byte{0x00}, 8))
	assert.False(t, e.Trim())
	e.Write([]byte{0x01})
	_, ok := e.Next()
	require.False(t, ok)
	assert.True(t, e.Trim())
	assert.Zero(t, e.Len())
	assert.Equal(t, 1, e.Overflows())

	// a trailing 0xFF may be half of a start marker and survives the reset
	e.Write(append(bytes.Repeat([]byte{0x00}, 8), 0xFF))
	assert.True(t, e.Trim())
	assert.Equal(t, []byte{0xFF}, e.Buffered())

	e.Write([]byte{0xD8, 0x05, 0xFF, 0xD9})
	frame, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, jpegFrame(0x05), frame)
	assert.Equal(t, 2, e.Overflows())
}

func TestExtractor_FrameCompletingPastBoundIsKept(t *testing.T) {
	e := NewExtractor(8)

	// 4 bytes of noise plus a 9 byte frame lands past the bound in one chunk
	e.Write(append([]byte{0x00, 0x00, 0x00, 0x00}, jpegFrame(0x01, 0x02, 0x03, 0x04, 0x05)...))

	frame, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, jpegFrame(0x01, 0x02, 0x03, 0x04, 0x05), frame)
	assert.False(t, e.Trim())
	assert.Zero(t, e.Overflows())
}
