package camera

import (
	"time"

	"github.com/Mikhail1201/FAYES/internal/config"
)

// Backoff decides how long to wait before retry number attempt (1-based).
// The boolean is false once the policy gives up.
type Backoff interface {
	Delay(attempt int) (time.Duration, bool)
}

// FixedBackoff waits the same delay before every retry.
type FixedBackoff struct {
	Interval    time.Duration
	MaxAttempts int // 0 retries forever
}

func (b FixedBackoff) Delay(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}
	return b.Interval, true
}

// ExponentialBackoff waits Initial * 2^(attempt-1), capped at Max.
type ExponentialBackoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int // 0 retries forever
}

func (b ExponentialBackoff) Delay(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := b.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.Max > 0 && delay >= b.Max {
			return b.Max, true
		}
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay, true
}

// ReconnectPolicy pairs the backoff used after a failed connect with the one used
// after a connection drops mid-stream.
type ReconnectPolicy struct {
	Connect Backoff
	Stream  Backoff
}

// PolicyFromConfig builds the reconnect policy described by the configuration.
func PolicyFromConfig(cfg *config.Config) ReconnectPolicy {
	if cfg.BackoffStrategy == config.BackoffExponential {
		return ReconnectPolicy{
			Connect: ExponentialBackoff{Initial: cfg.ConnectRetryDelay, Max: cfg.MaxRetryDelay, MaxAttempts: cfg.MaxRetries},
			Stream:  ExponentialBackoff{Initial: cfg.StreamRetryDelay, Max: cfg.MaxRetryDelay, MaxAttempts: cfg.MaxRetries},
		}
	}
	return ReconnectPolicy{
		Connect: FixedBackoff{Interval: cfg.ConnectRetryDelay, MaxAttempts: cfg.MaxRetries},
		Stream:  FixedBackoff{Interval: cfg.StreamRetryDelay, MaxAttempts: cfg.MaxRetries},
	}
}
