package preview

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hybridgroup/mjpeg"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"github.com/Mikhail1201/FAYES/internal/service/storage"
)

// Server re-publishes the last sampled frame, annotated, as an MJPEG stream.
type Server struct {
	stream *mjpeg.Stream
	encode storage.Encoder
	server *http.Server
	frames atomic.Uint64
	logger *logger.Logger
}

// NewServer creates a preview server listening on addr.
func NewServer(addr string, encode storage.Encoder, logger *logger.Logger) *Server {
	stream := mjpeg.NewStream()
	mux := http.NewServeMux()
	mux.Handle("/", stream)

	return &Server{
		stream: stream,
		encode: encode,
		server: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Observe implements scanner.Observer.
func (s *Server) Observe(img scanner.Image, outcome dto.Outcome) {
	data, err := s.encode(img, outcome)
	if err != nil {
		s.logger.Warning("Failed to encode preview frame: %v", err)
		return
	}
	s.stream.UpdateJPEG(data)
	s.frames.Add(1)
}

// Frames returns how many frames were published.
func (s *Server) Frames() uint64 {
	return s.frames.Load()
}

// Handler exposes the stream for mounting on another server.
func (s *Server) Handler() http.Handler {
	return s.stream
}

// Run serves the stream until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Preview stream on http://%s/", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
