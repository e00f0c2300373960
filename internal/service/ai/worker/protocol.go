package worker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/vmihailenco/msgpack/v5"
)

// MaxMessageSize bounds a single framed message in either direction.
const MaxMessageSize = 32 << 20

// ErrMessageTooLarge is returned when a length prefix exceeds MaxMessageSize.
var ErrMessageTooLarge = errors.New("worker: message too large")

// Request asks the worker to run the model on one JPEG frame.
type Request struct {
	Seq       uint64  `msgpack:"seq"`
	FrameData []byte  `msgpack:"frame_data"`
	Threshold float64 `msgpack:"confidence"`
}

// Response carries the detections for the frame with the same Seq.
type Response struct {
	Seq        uint64                `msgpack:"seq"`
	Detections []dto.DetectionResult `msgpack:"detections"`
	Error      string                `msgpack:"error,omitempty"`
	TotalMS    float64               `msgpack:"total_ms"`
}

// WriteMessage writes v as msgpack behind a 4 byte big-endian length prefix.
func WriteMessage(w io.Writer, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(payload) > MaxMessageSize {
		return ErrMessageTooLarge
	}

	prefix := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(prefix, uint32(len(payload)))

	if _, err := w.Write(append(prefix, payload...)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed msgpack message into v.
func ReadMessage(r io.Reader, v any) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return err
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return nil
}
