package hornetq

import (
	"testing"
	"time"
)

func TestFixedDelayStrategy(t *testing.T) {
	strategy := NewFixedDelayStrategy(250 * time.Millisecond)
	first, err := strategy.GetConnectWaitDuration("ws://broker:5445")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := strategy.GetConnectWaitDuration("ws://broker:5445")
	if first != 250*time.Millisecond || second != 250*time.Millisecond {
		t.Fatalf("expected fixed 250ms delay, got %v and %v", first, second)
	}
}

func TestExponentialDelayStrategyGrowsAndResets(t *testing.T) {
	strategy := NewExponentialDelayStrategy(50*time.Millisecond, 400*time.Millisecond, 2)

	first, _ := strategy.GetConnectWaitDuration("ws://broker:5445")
	second, _ := strategy.GetConnectWaitDuration("ws://broker:5445")
	third, _ := strategy.GetConnectWaitDuration("ws://broker:5445")
	if !(first < second && second <= third) {
		t.Fatalf("expected growing delays, got %v, %v, %v", first, second, third)
	}
	if third > 400*time.Millisecond {
		t.Fatalf("delay exceeded the cap: %v", third)
	}

	strategy.Reset()
	reset, _ := strategy.GetConnectWaitDuration("ws://broker:5445")
	if reset != first {
		t.Fatalf("expected reset delay %v, got %v", first, reset)
	}
}

func TestExponentialDelayStrategyTracksPerURI(t *testing.T) {
	strategy := NewExponentialDelayStrategy(50*time.Millisecond, time.Second, 2)

	_, _ = strategy.GetConnectWaitDuration("ws://one:5445")
	_, _ = strategy.GetConnectWaitDuration("ws://one:5445")
	fresh, _ := strategy.GetConnectWaitDuration("ws://two:5445")
	if fresh != 50*time.Millisecond {
		t.Fatalf("expected base delay for a fresh URI, got %v", fresh)
	}
}
