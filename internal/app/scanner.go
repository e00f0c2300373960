package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/repository"
	"github.com/Mikhail1201/FAYES/internal/repository/sqlite"
	"github.com/Mikhail1201/FAYES/internal/service/ai"
	"github.com/Mikhail1201/FAYES/internal/service/ai/worker"
	"github.com/Mikhail1201/FAYES/internal/service/camera"
	"github.com/Mikhail1201/FAYES/internal/service/emitter"
	"github.com/Mikhail1201/FAYES/internal/service/history"
	"github.com/Mikhail1201/FAYES/internal/service/inventory"
	"github.com/Mikhail1201/FAYES/internal/service/preview"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
	"github.com/Mikhail1201/FAYES/internal/service/storage"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// ErrMissingToken is returned when the scanner is started without a backend token.
var ErrMissingToken = errors.New("backend token is required")

type closer interface {
	Close() error
}

// Scanner is one run of the detection pipeline with its optional outputs.
type Scanner struct {
	config   *config.Config
	logger   *logger.Logger
	runID    string
	pipeline *scanner.Pipeline
	buffer   *storage.BufferService
	preview  *preview.Server
	mqtt     *emitter.MQTTEmitter
	closers  []closer
}

// NewScanner builds the pipeline for cfg. The detector is loaded here, so a missing
// model fails before any camera connection is attempted.
func NewScanner(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Scanner, error) {
	if cfg.BackendToken == "" {
		return nil, ErrMissingToken
	}

	s := &Scanner{config: cfg, logger: logger, runID: uuid.NewString()}

	detector, err := s.newDetector(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	clk := clock.New()
	connector := camera.NewConnector(cfg.StreamURL, cfg.ConnectTimeout, cfg.ReadTimeout)
	stream := camera.NewStream(connector, camera.StreamOptions{
		Policy:    camera.PolicyFromConfig(cfg),
		Clock:     clk,
		ChunkSize: cfg.ChunkSize,
		MaxBuffer: cfg.MaxFrameBuffer,
	}, logger)

	reporter := inventory.NewReporter(cfg.BackendURL, cfg.BackendToken, cfg.ReportTimeout, logger)

	observers, err := s.newObservers()
	if err != nil {
		s.Close()
		return nil, err
	}

	var display scanner.Display
	if cfg.Display {
		display = ai.NewWindow("FAYES scanner")
	}

	s.pipeline = scanner.New(stream, ai.Decoder{}, detector, reporter, scanner.Options{
		RunID:     s.runID,
		Threshold: cfg.ConfidenceThreshold,
		Sampler:   scanner.NewSampler(cfg.SampleDelay, clk),
		Clock:     clk,
		Display:   display,
		Observers: observers,
	}, logger)

	return s, nil
}

func (s *Scanner) newDetector(ctx context.Context) (scanner.Detector, error) {
	switch s.config.DetectorBackend {
	case config.BackendWorker:
		spawn := func() (*worker.Client, error) {
			return worker.Start(ctx, s.config.WorkerCommand, s.config.ModelPath, s.config.WorkerTimeout, s.logger)
		}
		supervisor, err := worker.NewSupervisor(spawn, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start detection worker: %w", err)
		}
		d := ai.NewWorkerDetector(supervisor)
		s.closers = append(s.closers, d)
		return d, nil
	default:
		d, err := ai.NewDetectorService(s.config, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load detection model: %w", err)
		}
		s.closers = append(s.closers, d)
		return d, nil
	}
}

// newObservers wires the outputs that are configured. History comes first so that
// snapshots can be linked to their stored cycle.
func (s *Scanner) newObservers() ([]scanner.Observer, error) {
	var observers []scanner.Observer
	var outcomes repository.OutcomeRepository

	if s.config.DatabasePath != "" {
		db, err := sqlite.New(s.config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		s.closers = append(s.closers, db)
		outcomes = sqlite.NewOutcomeRepository(db)
		observers = append(observers, history.NewRecorder(outcomes, s.logger))
	}

	if s.config.SnapshotDirectory != "" {
		s.buffer = storage.NewBufferService(s.config, ai.EncodeOutcome, outcomes, s.logger)
		observers = append(observers, s.buffer)
	}

	if s.config.PreviewAddr != "" {
		s.preview = preview.NewServer(s.config.PreviewAddr, ai.EncodeOutcome, s.logger)
		observers = append(observers, s.preview)
	}

	if s.config.MQTTBroker != "" {
		s.mqtt = emitter.NewMQTTEmitter(s.config, s.runID, s.logger)
		if err := s.mqtt.Connect(); err != nil {
			// publishing resumes once the client reconnects
			s.logger.Warning("MQTT unavailable: %v", err)
		}
		observers = append(observers, s.mqtt)
	}

	return observers, nil
}

// RunID identifies this run in logs, history and MQTT payloads.
func (s *Scanner) RunID() string {
	return s.runID
}

// Run blocks until ctx ends, the operator stops the display, or the camera policy
// gives up.
func (s *Scanner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background sync.WaitGroup
	if s.buffer != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			s.buffer.Run(ctx)
		}()
	}
	if s.preview != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := s.preview.Run(ctx); err != nil {
				s.logger.Error("Preview server failed: %v", err)
			}
		}()
	}

	s.logger.Info("Scanner run %s: camera %s, backend %s, sample every %s",
		s.runID, s.config.StreamURL, s.config.BackendURL, s.config.SampleDelay)

	err := s.pipeline.Run(ctx)

	cancel()
	background.Wait()
	return err
}

// Close releases the detector, the history store and the MQTT connection.
func (s *Scanner) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
