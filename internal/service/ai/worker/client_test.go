package worker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorker answers every request on the other end of a pair of pipes.
func fakeWorker(t *testing.T, answer func(Request) Response) (io.WriteCloser, io.Reader) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	go func() {
		defer respW.Close()
		for {
			var req Request
			if err := ReadMessage(reqR, &req); err != nil {
				return
			}
			if err := WriteMessage(respW, answer(req)); err != nil {
				return
			}
		}
	}()

	t.Cleanup(func() {
		reqR.Close()
		respR.Close()
	})
	return reqW, respR
}

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sent := Request{Seq: 7, FrameData: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Threshold: 0.6}

	require.NoError(t, WriteMessage(&buf, sent))
	assert.Equal(t, uint32(buf.Len()-4), binary.BigEndian.Uint32(buf.Bytes()[:4]))

	var got Request
	require.NoError(t, ReadMessage(&buf, &got))
	assert.Equal(t, sent, got)
}

func TestReadMessage_RejectsOversizedPrefix(t *testing.T) {
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, MaxMessageSize+1)

	var req Request
	err := ReadMessage(bytes.NewReader(prefix), &req)
	assert.True(t, errors.Is(err, ErrMessageTooLarge))
}

func TestClient_Detect(t *testing.T) {
	in, out := fakeWorker(t, func(req Request) Response {
		return Response{
			Seq: req.Seq,
			Detections: []dto.DetectionResult{
				{Label: "banana", Confidence: 0.88, ClassID: 1, X: 4, Y: 5, Width: 20, Height: 30},
			},
		}
	})
	client := NewClient(in, out, time.Second, logger.NewWithWriter(io.Discard))

	for i := 0; i < 2; i++ {
		dets, err := client.Detect([]byte{0xFF, 0xD8, 0xFF, 0xD9}, 0.6)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.Equal(t, "banana", dets[0].Label)
		assert.Equal(t, 20, dets[0].Width)
	}
}

func TestClient_WorkerError(t *testing.T) {
	in, out := fakeWorker(t, func(req Request) Response {
		return Response{Seq: req.Seq, Error: "model not loaded"}
	})
	client := NewClient(in, out, time.Second, logger.NewWithWriter(io.Discard))

	_, err := client.Detect([]byte{1}, 0.6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")

	// an application error does not break the connection
	_, err = client.Detect([]byte{1}, 0.6)
	assert.False(t, errors.Is(err, ErrBroken))
}

func TestClient_TimeoutBreaksConnection(t *testing.T) {
	reqR, reqW := io.Pipe()
	go io.Copy(io.Discard, reqR)
	silent, silentW := io.Pipe()
	t.Cleanup(func() {
		reqR.Close()
		silentW.Close()
	})

	client := NewClient(reqW, silent, 50*time.Millisecond, logger.NewWithWriter(io.Discard))

	_, err := client.Detect([]byte{1}, 0.6)
	assert.True(t, errors.Is(err, ErrBroken))

	_, err = client.Detect([]byte{1}, 0.6)
	assert.True(t, errors.Is(err, ErrBroken))
}

func TestClient_SequenceMismatch(t *testing.T) {
	in, out := fakeWorker(t, func(req Request) Response {
		return Response{Seq: req.Seq + 10}
	})
	client := NewClient(in, out, time.Second, logger.NewWithWriter(io.Discard))

	_, err := client.Detect([]byte{1}, 0.6)
	assert.True(t, errors.Is(err, ErrBroken))
}

func TestSupervisor_ReplacesBrokenWorker(t *testing.T) {
	var spawned int
	spawn := func() (*Client, error) {
		spawned++
		if spawned == 1 {
			// the first worker never answers
			reqR, reqW := io.Pipe()
			go io.Copy(io.Discard, reqR)
			silent, silentW := io.Pipe()
			t.Cleanup(func() {
				reqR.Close()
				silentW.Close()
			})
			return NewClient(reqW, silent, 50*time.Millisecond, logger.NewWithWriter(io.Discard)), nil
		}
		in, out := fakeWorker(t, func(req Request) Response {
			return Response{Seq: req.Seq, Detections: []dto.DetectionResult{{Label: "mango", Confidence: 0.9}}}
		})
		return NewClient(in, out, time.Second, logger.NewWithWriter(io.Discard)), nil
	}

	s, err := NewSupervisor(spawn, logger.NewWithWriter(io.Discard))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Detect([]byte{1}, 0.6)
	assert.True(t, errors.Is(err, ErrBroken))

	dets, err := s.Detect([]byte{1}, 0.6)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "mango", dets[0].Label)
	assert.Equal(t, 1, s.Restarts())
	assert.Equal(t, 2, spawned)
}

func TestSupervisor_RetriesFailedRestart(t *testing.T) {
	var spawned int
	spawn := func() (*Client, error) {
		spawned++
		switch spawned {
		case 1:
			in, out := fakeWorker(t, func(req Request) Response {
				return Response{Seq: req.Seq + 1}
			})
			return NewClient(in, out, time.Second, logger.NewWithWriter(io.Discard)), nil
		case 2:
			return nil, errors.New("model still loading")
		default:
			in, out := fakeWorker(t, func(req Request) Response {
				return Response{Seq: req.Seq}
			})
			return NewClient(in, out, time.Second, logger.NewWithWriter(io.Discard)), nil
		}
	}

	s, err := NewSupervisor(spawn, logger.NewWithWriter(io.Discard))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Detect([]byte{1}, 0.6)
	assert.True(t, errors.Is(err, ErrBroken))

	_, err = s.Detect([]byte{1}, 0.6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model still loading")

	_, err = s.Detect([]byte{1}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Restarts())
}

func TestNewSupervisor_FirstSpawnFails(t *testing.T) {
	_, err := NewSupervisor(func() (*Client, error) {
		return nil, errors.New("no such command")
	}, logger.NewWithWriter(io.Discard))
	assert.Error(t, err)
}
