package scanner

import (
	"context"
	"sync/atomic"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/camera"
	"github.com/Mikhail1201/FAYES/internal/service/label"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Image is a decoded frame. It is only valid until Close.
type Image interface {
	Close() error
}

// Decoder turns JPEG frame bytes into an Image.
type Decoder interface {
	Decode(data []byte) (Image, error)
}

// Detector runs the detection model on a decoded frame.
type Detector interface {
	Detect(img Image, threshold float64) ([]dto.DetectionResult, error)
}

// Reporter tells the inventory that a product was seen.
type Reporter interface {
	Report(ctx context.Context, productName string) dto.Receipt
}

// Display shows decoded frames. Show returns true when the operator asked to stop.
type Display interface {
	Show(img Image) bool
	Close() error
}

// Observer is notified of every finished sampling cycle. img is only valid during the call.
type Observer interface {
	Observe(img Image, outcome dto.Outcome)
}

// FrameSource produces frames until its context is cancelled.
type FrameSource interface {
	Run(ctx context.Context, handle camera.FrameHandler) error
}

// Options configures a Pipeline. Display and Observers are optional.
type Options struct {
	RunID     string
	Threshold float64
	Sampler   *Sampler
	Clock     clock.Clock
	Display   Display
	Observers []Observer
}

// Stats counts frames and cycles handled by a Pipeline.
type Stats struct {
	Frames         uint64
	DecodeFailures uint64
	Cycles         uint64
	Reports        uint64
}

// Pipeline runs the detection loop: frame, decode, throttle, detect, normalize, report.
// Every step runs on the caller's goroutine, in order.
type Pipeline struct {
	source    FrameSource
	decoder   Decoder
	detector  Detector
	reporter  Reporter
	sampler   *Sampler
	threshold float64
	display   Display
	observers []Observer
	clock     clock.Clock
	runID     string
	logger    *logger.Logger

	frames         atomic.Uint64
	decodeFailures atomic.Uint64
	cycles         atomic.Uint64
	reports        atomic.Uint64
}

// New creates a Pipeline.
func New(source FrameSource, decoder Decoder, detector Detector, reporter Reporter, opts Options, logger *logger.Logger) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Sampler == nil {
		opts.Sampler = NewSampler(0, opts.Clock)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Pipeline{
		source:    source,
		decoder:   decoder,
		detector:  detector,
		reporter:  reporter,
		sampler:   opts.Sampler,
		threshold: opts.Threshold,
		display:   opts.Display,
		observers: opts.Observers,
		clock:     opts.Clock,
		runID:     opts.RunID,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, the display asks to stop, or the frame source
// gives up. Operator cancellation is a clean exit and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p.display != nil {
		defer func() {
			if err := p.display.Close(); err != nil {
				p.logger.Warning("Failed to close display: %v", err)
			}
		}()
	}

	p.logger.Info("Detection started (run %s)", p.runID)

	err := p.source.Run(ctx, func(frame []byte) {
		if p.HandleFrame(ctx, frame) {
			p.logger.Info("Manual cancellation requested, stopping detection")
			cancel()
		}
	})

	stats := p.Stats()
	p.logger.Info("Detection stopped: %d frames, %d undecodable, %d sampled, %d reported",
		stats.Frames, stats.DecodeFailures, stats.Cycles, stats.Reports)
	return err
}

// HandleFrame processes one extracted frame and reports whether the operator asked
// to stop.
func (p *Pipeline) HandleFrame(ctx context.Context, frame []byte) bool {
	p.frames.Add(1)

	img, err := p.decoder.Decode(frame)
	if err != nil {
		p.decodeFailures.Add(1)
		p.logger.Warning("Skipping undecodable frame (%d bytes): %v", len(frame), err)
		return false
	}
	defer img.Close()

	if p.display != nil && p.display.Show(img) {
		return true
	}

	if !p.sampler.Accept() {
		return false
	}

	p.Cycle(ctx, img)
	return false
}

// Cycle runs one sampling cycle on an accepted image.
func (p *Pipeline) Cycle(ctx context.Context, img Image) dto.Outcome {
	p.cycles.Add(1)

	outcome := dto.Outcome{
		RunID:   p.runID,
		CycleID: uuid.NewString(),
		Time:    p.clock.Now(),
	}
	defer func() { p.notify(img, outcome) }()

	detections, err := p.detector.Detect(img, p.threshold)
	if err != nil {
		p.logger.Error("Inference failed: %v", err)
		outcome.Status = dto.StatusFailed
		return outcome
	}

	best, ok := Best(detections, p.threshold)
	if !ok {
		p.logger.Info("No detection above %.2f", p.threshold)
		outcome.Status = dto.StatusNoDetection
		return outcome
	}
	outcome.Detection = &best
	p.logger.Info("[DETECTED] %s (%.2f)", best.Label, best.Confidence)

	product, ok := label.Normalize(best.Label)
	if !ok {
		p.logger.Warning("Label %q is not a known product, skipping report", best.Label)
		outcome.Status = dto.StatusUnrecognized
		return outcome
	}
	outcome.Product = product

	receipt := p.reporter.Report(ctx, product)
	p.reports.Add(1)
	outcome.Receipt = &receipt
	outcome.Status = dto.StatusReported
	return outcome
}

func (p *Pipeline) notify(img Image, outcome dto.Outcome) {
	for _, o := range p.observers {
		o.Observe(img, outcome)
	}
}

// RunID identifies this scanner run in logs and history.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:         p.frames.Load(),
		DecodeFailures: p.decodeFailures.Load(),
		Cycles:         p.cycles.Load(),
		Reports:        p.reports.Load(),
	}
}
