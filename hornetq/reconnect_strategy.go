package hornetq

import (
	"math"
	"sync"
	"time"
)

// ReconnectDelayStrategy controls the delay between failover attempts.
type ReconnectDelayStrategy interface {
	GetConnectWaitDuration(uri string) (time.Duration, error)
	Reset()
}

// FixedDelayStrategy waits the same duration before every attempt.
type FixedDelayStrategy struct {
	Delay time.Duration
}

// NewFixedDelayStrategy returns a new FixedDelayStrategy.
func NewFixedDelayStrategy(delay time.Duration) *FixedDelayStrategy {
	if delay < 0 {
		delay = 0
	}
	return &FixedDelayStrategy{Delay: delay}
}

// GetConnectWaitDuration returns the configured delay.
func (strategy *FixedDelayStrategy) GetConnectWaitDuration(uri string) (time.Duration, error) {
	return strategy.Delay, nil
}

// Reset is a no-op for fixed delays.
func (strategy *FixedDelayStrategy) Reset() {}

// ExponentialDelayStrategy grows the delay per URI by a factor on every
// attempt, capped at MaxDelay.
type ExponentialDelayStrategy struct {
	lock      sync.Mutex
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Factor    float64
	attempts  map[string]uint32
}

// NewExponentialDelayStrategy returns a new ExponentialDelayStrategy.
func NewExponentialDelayStrategy(baseDelay time.Duration, maxDelay time.Duration, factor float64) *ExponentialDelayStrategy {
	if baseDelay < 0 {
		baseDelay = 0
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	if factor < 1 {
		factor = 2
	}
	return &ExponentialDelayStrategy{
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
		Factor:    factor,
		attempts:  make(map[string]uint32),
	}
}

// GetConnectWaitDuration returns the next delay for the URI and advances its
// attempt count.
func (strategy *ExponentialDelayStrategy) GetConnectWaitDuration(uri string) (time.Duration, error) {
	strategy.lock.Lock()
	defer strategy.lock.Unlock()

	if uri == "" {
		uri = "_default"
	}
	attempt := strategy.attempts[uri]
	strategy.attempts[uri] = attempt + 1

	delay := strategy.BaseDelay
	if attempt > 0 && delay > 0 {
		scaled := float64(delay) * math.Pow(strategy.Factor, float64(attempt))
		if scaled > float64(strategy.MaxDelay) {
			scaled = float64(strategy.MaxDelay)
		}
		delay = time.Duration(scaled)
	}
	if delay > strategy.MaxDelay {
		delay = strategy.MaxDelay
	}
	return delay, nil
}

// Reset forgets every attempt count, returning delays to the base value.
func (strategy *ExponentialDelayStrategy) Reset() {
	strategy.lock.Lock()
	strategy.attempts = make(map[string]uint32)
	strategy.lock.Unlock()
}
