package clock

import (
	"testing"
	"time"
)

func TestMonotonicAdvances(t *testing.T) {
	c := Monotonic()
	first := c.Now()
	time.Sleep(2 * time.Millisecond)
	second := c.Now()

	if second <= first {
		t.Errorf("monotonic clock did not advance: %v -> %v", first, second)
	}
	if second-first < time.Millisecond {
		t.Errorf("expected at least 1ms between readings, got %v", second-first)
	}
}

func TestFake(t *testing.T) {
	f := NewFake(10 * time.Second)
	if got := f.Now(); got != 10*time.Second {
		t.Fatalf("Now() = %v, want 10s", got)
	}

	f.Advance(1500 * time.Millisecond)
	if got := f.Now(); got != 11500*time.Millisecond {
		t.Errorf("after Advance, Now() = %v, want 11.5s", got)
	}

	f.Set(time.Second)
	if got := f.Now(); got != time.Second {
		t.Errorf("after Set, Now() = %v, want 1s", got)
	}
}
