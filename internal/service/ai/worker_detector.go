package ai

import (
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/service/ai/worker"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
)

// WorkerDetector hands the original JPEG bytes to an external detection worker.
type WorkerDetector struct {
	client *worker.Supervisor
}

// NewWorkerDetector wraps a supervised worker.
func NewWorkerDetector(client *worker.Supervisor) *WorkerDetector {
	return &WorkerDetector{client: client}
}

// Detect implements scanner.Detector.
func (d *WorkerDetector) Detect(img scanner.Image, threshold float64) ([]dto.DetectionResult, error) {
	frame, err := asImage(img)
	if err != nil {
		return nil, err
	}
	return d.client.Detect(frame.Data, threshold)
}

// Close stops the worker.
func (d *WorkerDetector) Close() error {
	return d.client.Close()
}
