package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/benbjohnson/clock"
)

// ErrRetriesExhausted is returned by Run when a bounded backoff policy gives up.
var ErrRetriesExhausted = errors.New("camera: retries exhausted")

var errStreamEnded = errors.New("stream ended")

// Source opens a camera byte stream.
type Source interface {
	Connect(ctx context.Context) (io.ReadCloser, error)
	URL() string
}

// FrameHandler receives every complete JPEG frame, synchronously, in stream order.
type FrameHandler func(frame []byte)

// Stats counts what happened over the lifetime of a Stream.
type Stats struct {
	Connects       uint64
	ConnectErrors  uint64
	StreamFailures uint64
	Frames         uint64
	Overflows      uint64
}

// Stream keeps a camera connection alive and turns its bytes into frames.
type Stream struct {
	source    Source
	policy    ReconnectPolicy
	clock     clock.Clock
	logger    *logger.Logger
	chunkSize int
	maxBuffer int

	connects       atomic.Uint64
	connectErrors  atomic.Uint64
	streamFailures atomic.Uint64
	frames         atomic.Uint64
	overflows      atomic.Uint64
}

// StreamOptions configures a Stream.
type StreamOptions struct {
	Policy    ReconnectPolicy
	Clock     clock.Clock
	ChunkSize int
	MaxBuffer int
}

// NewStream creates a Stream reading from source.
func NewStream(source Source, opts StreamOptions, logger *logger.Logger) *Stream {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1024
	}
	return &Stream{
		source:    source,
		policy:    opts.Policy,
		clock:     opts.Clock,
		logger:    logger,
		chunkSize: opts.ChunkSize,
		maxBuffer: opts.MaxBuffer,
	}
}

// Run connects, reads and reconnects until ctx is cancelled, calling handle for every
// extracted frame. Connection failures and mid-stream failures are logged and retried
// according to the policy. Run returns nil on cancellation.
func (s *Stream) Run(ctx context.Context, handle FrameHandler) error {
	connectAttempt := 0
	streamAttempt := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Info("Connecting to camera stream %s", s.source.URL())
		body, err := s.source.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.connectErrors.Add(1)
			connectAttempt++
			s.logConnectError(err)

			if err := s.wait(ctx, s.policy.Connect, connectAttempt); err != nil {
				return s.stopReason(ctx, err)
			}
			continue
		}

		connectAttempt = 0
		s.connects.Add(1)
		s.logger.Info("Connected to camera stream, reading frames")

		frames, err := s.consume(ctx, body, handle)
		body.Close()
		if ctx.Err() != nil {
			return nil
		}

		if frames > 0 {
			streamAttempt = 0
		}
		streamAttempt++
		s.streamFailures.Add(1)
		s.logStreamError(err, frames)

		if err := s.wait(ctx, s.policy.Stream, streamAttempt); err != nil {
			return s.stopReason(ctx, err)
		}
	}
}

// consume reads body until it fails, feeding a connection-local Extractor.
func (s *Stream) consume(ctx context.Context, body io.Reader, handle FrameHandler) (int, error) {
	extractor := NewExtractor(s.maxBuffer)
	chunk := make([]byte, s.chunkSize)
	frames := 0

	for {
		if ctx.Err() != nil {
			return frames, ctx.Err()
		}

		n, err := body.Read(chunk)
		if n > 0 {
			extractor.Write(chunk[:n])

			for {
				frame, ok := extractor.Next()
				if !ok {
					break
				}
				frames++
				s.frames.Add(1)
				handle(frame)

				if ctx.Err() != nil {
					return frames, ctx.Err()
				}
			}

			if extractor.Trim() {
				s.overflows.Add(1)
				s.logger.Warning("Frame buffer exceeded %d bytes without a complete frame, buffer reset", s.maxBuffer)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return frames, errStreamEnded
			}
			return frames, err
		}
	}
}

func (s *Stream) wait(ctx context.Context, backoff Backoff, attempt int) error {
	delay, ok := backoff.Delay(attempt)
	if !ok {
		return fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, attempt)
	}

	s.logger.Info("Retrying in %s (attempt %d)", delay, attempt)

	timer := s.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Stream) stopReason(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	s.logger.Error("Giving up on camera stream %s: %v", s.source.URL(), err)
	return err
}

func (s *Stream) logConnectError(err error) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		s.logger.Error("Could not access camera stream, HTTP status %d", statusErr.StatusCode)
		return
	}
	s.logger.Error("Could not access camera stream: %v", err)
}

func (s *Stream) logStreamError(err error, frames int) {
	var netErr net.Error
	switch {
	case errors.Is(err, errStreamEnded):
		s.logger.Warning("Camera closed the stream after %d frame(s), reconnecting", frames)
	case errors.As(err, &netErr) && netErr.Timeout():
		s.logger.Warning("Read timeout on camera stream after %d frame(s), reconnecting", frames)
	default:
		s.logger.Warning("Camera stream interrupted after %d frame(s): %v, reconnecting", frames, err)
	}
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() Stats {
	return Stats{
		Connects:       s.connects.Load(),
		ConnectErrors:  s.connectErrors.Load(),
		StreamFailures: s.streamFailures.Load(),
		Frames:         s.frames.Load(),
		Overflows:      s.overflows.Load(),
	}
}
