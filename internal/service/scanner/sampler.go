package scanner

import (
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

// Sampler throttles how often decoded frames reach the detection model.
type Sampler struct {
	delay   time.Duration
	clock   clock.Clock
	last    time.Time
	sampled bool
}

// NewSampler creates a Sampler that accepts at most one frame per delay.
func NewSampler(delay time.Duration, clk clock.Clock) *Sampler {
	if clk == nil {
		clk = clock.New()
	}
	return &Sampler{delay: delay, clock: clk}
}

// Accept reports whether a frame arriving now should be sampled. An accepted frame
// becomes the new reference point immediately, before any inference runs on it.
func (s *Sampler) Accept() bool {
	now := s.clock.Now()
	if s.sampled && now.Sub(s.last) < s.delay {
		return false
	}
	s.last = now
	s.sampled = true
	return true
}

// Best returns the most confident detection at or above threshold.
func Best(detections []dto.DetectionResult, threshold float64) (dto.DetectionResult, bool) {
	candidates := lo.Filter(detections, func(d dto.DetectionResult, _ int) bool {
		return d.Confidence >= threshold
	})
	if len(candidates) == 0 {
		return dto.DetectionResult{}, false
	}
	return lo.MaxBy(candidates, func(a, b dto.DetectionResult) bool {
		return a.Confidence > b.Confidence
	}), true
}
