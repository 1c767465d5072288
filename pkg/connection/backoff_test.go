package connection

import (
	"testing"
	"time"
)

func drawDelays(b *Backoff, n int) []time.Duration {
	delays := make([]time.Duration, n)
	for i := range delays {
		delays[i] = b.Next()
	}
	return delays
}

func assertDelays(t *testing.T, got, want []time.Duration) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d delays, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d = %v, want %v (got %v, want %v)", i, got[i], want[i], got, want)
			return
		}
	}
}

func TestBackoffDoublingSchedule(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		FlatCount:    2,
		InitialDelay: 1 * time.Second,
	})

	assertDelays(t, drawDelays(b, 6), []time.Duration{
		1 * time.Second, 1 * time.Second,
		2 * time.Second, 2 * time.Second,
		4 * time.Second, 4 * time.Second,
	})
}

func TestBackoffFlatSchedule(t *testing.T) {
	// FlatCount 0 never doubles
	b := NewBackoffWithConfig(BackoffConfig{
		FlatCount:    0,
		InitialDelay: 2500 * time.Millisecond,
	})

	assertDelays(t, drawDelays(b, 5), []time.Duration{
		2500 * time.Millisecond, 2500 * time.Millisecond, 2500 * time.Millisecond,
		2500 * time.Millisecond, 2500 * time.Millisecond,
	})
}

func TestBackoffSaturatesAtMaxDelay(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		FlatCount:    1,
		InitialDelay: 1 * time.Second,
		MaxDelay:     4 * time.Second,
	})

	assertDelays(t, drawDelays(b, 6), []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
		4 * time.Second, 4 * time.Second, 4 * time.Second,
	})
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff()

	want := make([]time.Duration, 0, 30)
	for _, d := range []time.Duration{1, 2, 4, 8, 16} {
		for i := 0; i < DefaultFlatCount; i++ {
			want = append(want, d*time.Second)
		}
	}
	// Doubling 16s would exceed the 30s cap
	for i := 0; i < DefaultFlatCount; i++ {
		want = append(want, 30*time.Second)
	}

	assertDelays(t, drawDelays(b, len(want)), want)
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		FlatCount:    1,
		InitialDelay: 1 * time.Second,
	})

	assertDelays(t, drawDelays(b, 3), []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
	})
	if got := b.Attempts(); got != 3 {
		t.Errorf("Attempts() = %d, want 3", got)
	}

	b.Reset()
	if got := b.Attempts(); got != 0 {
		t.Errorf("Attempts() after reset = %d, want 0", got)
	}

	// The schedule restarts from the beginning, not where it left off
	assertDelays(t, drawDelays(b, 3), []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
	})
}

func TestBackoffPeekDoesNotAdvance(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		FlatCount:    1,
		InitialDelay: 1 * time.Second,
	})

	if got := b.Peek(); got != 1*time.Second {
		t.Errorf("Peek() = %v, want 1s", got)
	}
	if got := b.Peek(); got != 1*time.Second {
		t.Errorf("repeated Peek() = %v, want 1s", got)
	}
	if got := b.Next(); got != 1*time.Second {
		t.Errorf("Next() = %v, want 1s", got)
	}
	if got := b.Peek(); got != 2*time.Second {
		t.Errorf("Peek() after Next() = %v, want 2s", got)
	}
}

func TestBackoffNegativeFlatCountNeverDoubles(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		FlatCount:    -3,
		InitialDelay: 1 * time.Second,
	})

	assertDelays(t, drawDelays(b, 4), []time.Duration{
		1 * time.Second, 1 * time.Second, 1 * time.Second, 1 * time.Second,
	})
}
