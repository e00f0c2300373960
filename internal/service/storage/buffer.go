package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/repository"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
)

const (
	// ImageBufferLimit limits how many snapshots are buffered between flushes.
	ImageBufferLimit = 10
	// ImageBufferFlushInterval defines how often buffered snapshots are flushed to disk.
	ImageBufferFlushInterval = 30 * time.Second
)

const timestampLayout = "2006-01-02_15-04-05.000"

// Encoder turns the image of a finished cycle into JPEG bytes.
type Encoder func(img scanner.Image, outcome dto.Outcome) ([]byte, error)

// BufferService keeps annotated frames of reported cycles in memory and periodically
// flushes them to disk.
type BufferService struct {
	imagesDir   string
	images      []dto.BufferedImage
	encode      Encoder
	outcomeRepo repository.OutcomeRepository
	mu          sync.Mutex
	logger      *logger.Logger
}

// NewBufferService creates a BufferService. outcomeRepo may be nil.
func NewBufferService(config *config.Config, encode Encoder, outcomeRepo repository.OutcomeRepository, logger *logger.Logger) *BufferService {
	return &BufferService{
		imagesDir:   config.SnapshotDirectory,
		images:      make([]dto.BufferedImage, 0, ImageBufferLimit),
		encode:      encode,
		outcomeRepo: outcomeRepo,
		logger:      logger,
	}
}

// Run flushes on every tick until ctx ends, then flushes one last time.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(ImageBufferFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushImages()
			return
		case <-ticker.C:
			s.FlushImages()
		}
	}
}

// Observe implements scanner.Observer. Only reported cycles are kept.
func (s *BufferService) Observe(img scanner.Image, outcome dto.Outcome) {
	if outcome.Status != dto.StatusReported {
		return
	}

	s.mu.Lock()
	full := len(s.images) >= ImageBufferLimit
	s.mu.Unlock()
	if full {
		s.logger.Warning("Snapshot buffer full, dropping frame of cycle %s", outcome.CycleID)
		return
	}

	data, err := s.encode(img, outcome)
	if err != nil {
		s.logger.Error("Error encoding snapshot of cycle %s: %v", outcome.CycleID, err)
		return
	}

	s.AddImage(data, outcome)
}

// AddImage appends an encoded frame to the in-memory buffer.
func (s *BufferService) AddImage(imageData []byte, outcome dto.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) >= ImageBufferLimit {
		return
	}

	s.images = append(s.images, dto.BufferedImage{
		Timestamp: outcome.Time.Format(timestampLayout),
		CycleID:   outcome.CycleID,
		Product:   outcome.Product,
		Data:      imageData,
	})
	s.logger.Info("Snapshot buffer size: %d/%d", len(s.images), ImageBufferLimit)
}

// FlushImages writes buffered frames to disk, links them to their cycles and resets
// the buffer. It returns the number of files written.
func (s *BufferService) FlushImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, image := range s.images {
		filename := fmt.Sprintf("%s_%s_%s.jpg", image.Timestamp, image.Product, image.CycleID)
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}

		if s.outcomeRepo != nil {
			if err := s.outcomeRepo.AttachSnapshot(image.CycleID, fullpath); err != nil {
				s.logger.Warning("Error linking snapshot %s: %v", filename, err)
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.images = s.images[:0]
	return savedCount
}

// Buffered returns the number of frames waiting for the next flush.
func (s *BufferService) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}
