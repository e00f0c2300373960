package worker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
)

// SpawnFunc starts a fresh worker and returns its client.
type SpawnFunc func() (*Client, error)

// Supervisor keeps a worker available across failures. A broken client is closed
// and replaced; the cycle that hit the failure still gets its error.
type Supervisor struct {
	mu       sync.Mutex
	spawn    SpawnFunc
	client   *Client
	restarts int
	logger   *logger.Logger
}

// NewSupervisor starts the first worker. A worker that cannot start at all is an error.
func NewSupervisor(spawn SpawnFunc, logger *logger.Logger) (*Supervisor, error) {
	client, err := spawn()
	if err != nil {
		return nil, err
	}
	return &Supervisor{spawn: spawn, client: client, logger: logger}, nil
}

// Detect sends one frame to the current worker, starting a new one first if the
// previous worker broke.
func (s *Supervisor) Detect(frame []byte, threshold float64) ([]dto.DetectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		client, err := s.spawn()
		if err != nil {
			return nil, fmt.Errorf("failed to restart worker: %w", err)
		}
		s.client = client
		s.restarts++
		s.logger.Info("Detection worker restarted (%d so far)", s.restarts)
	}

	dets, err := s.client.Detect(frame, threshold)
	if errors.Is(err, ErrBroken) {
		s.logger.Warning("Detection worker broken, replacing it: %v", err)
		if cerr := s.client.Close(); cerr != nil {
			s.logger.Warning("Failed to close broken worker: %v", cerr)
		}
		s.client = nil
	}
	return dets, err
}

// Restarts returns how many times a broken worker was replaced.
func (s *Supervisor) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Close stops the current worker, if any.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
