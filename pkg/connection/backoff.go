package connection

import (
	"sync"
	"time"
)

// Default backoff schedule, matching the production client configuration.
const (
	// DefaultFlatCount is the number of attempts at each delay before doubling.
	DefaultFlatCount = 5

	// DefaultInitialDelay is the initial reconnection delay.
	DefaultInitialDelay = 1 * time.Second

	// DefaultMaxDelay is the saturating cap on the reconnection delay.
	DefaultMaxDelay = 30 * time.Second
)

// BackoffConfig allows customizing the reconnection delay schedule.
type BackoffConfig struct {
	// FlatCount is the number of attempts at the same delay before it
	// doubles. 0 disables doubling: the delay stays at InitialDelay.
	FlatCount int

	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration

	// MaxDelay saturates the schedule: once the doubled delay would
	// exceed it, the delay stays at MaxDelay. 0 means no cap.
	MaxDelay time.Duration
}

// Backoff computes successive reconnection delays. The delay is
// non-decreasing through a failure streak and returns to InitialDelay
// only via Reset, which the connection loop calls exactly on a
// successful connection.
type Backoff struct {
	mu sync.Mutex

	// Configuration
	flatCount int
	initial   time.Duration
	max       time.Duration

	// State
	current   time.Duration
	remaining int
	attempts  int
}

// NewBackoff creates a backoff timer with the default schedule
// (5 attempts per step, 1s initial, 30s cap).
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{
		FlatCount:    DefaultFlatCount,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
	})
}

// NewBackoffWithConfig creates a backoff timer with a custom schedule.
// A zero FlatCount and a zero MaxDelay are meaningful (never double,
// no cap); only a non-positive InitialDelay is replaced by the default.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.FlatCount < 0 {
		cfg.FlatCount = 0
	}

	return &Backoff{
		flatCount: cfg.FlatCount,
		initial:   cfg.InitialDelay,
		max:       cfg.MaxDelay,
		current:   cfg.InitialDelay,
		remaining: cfg.FlatCount,
	}
}

// Next returns the delay to wait before the next attempt and advances
// the schedule.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.current
	b.attempts++

	if b.flatCount != 0 {
		b.remaining--
		if b.remaining == 0 {
			b.remaining = b.flatCount
			b.current *= 2
			if b.max > 0 && b.current > b.max {
				b.current = b.max
			}
		}
	}

	return res
}

// Peek returns the current delay without advancing the schedule.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Reset restores the schedule to its start.
// Call this after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.remaining = b.flatCount
	b.attempts = 0
}

// Attempts returns the number of delays drawn since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
