package camera

import (
	"testing"
	"time"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestFixedBackoff(t *testing.T) {
	unbounded := FixedBackoff{Interval: 3 * time.Second}
	for _, attempt := range []int{1, 2, 50, 10000} {
		d, ok := unbounded.Delay(attempt)
		assert.True(t, ok)
		assert.Equal(t, 3*time.Second, d)
	}

	bounded := FixedBackoff{Interval: 2 * time.Second, MaxAttempts: 2}
	_, ok := bounded.Delay(2)
	assert.True(t, ok)
	_, ok = bounded.Delay(3)
	assert.False(t, ok)
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Initial: time.Second, Max: 30 * time.Second}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{200, 30 * time.Second},
	}

	for _, tt := range tests {
		d, ok := b.Delay(tt.attempt)
		assert.True(t, ok)
		assert.Equal(t, tt.expected, d, "attempt %d", tt.attempt)
	}

	limited := ExponentialBackoff{Initial: time.Second, Max: 4 * time.Second, MaxAttempts: 3}
	_, ok := limited.Delay(4)
	assert.False(t, ok)
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Default()
	policy := PolicyFromConfig(cfg)

	d, _ := policy.Connect.Delay(1)
	assert.Equal(t, 3*time.Second, d)
	d, _ = policy.Stream.Delay(1)
	assert.Equal(t, 2*time.Second, d)

	cfg.BackoffStrategy = config.BackoffExponential
	policy = PolicyFromConfig(cfg)
	d, _ = policy.Connect.Delay(3)
	assert.Equal(t, 12*time.Second, d)
	assert.IsType(t, ExponentialBackoff{}, policy.Stream)
}
