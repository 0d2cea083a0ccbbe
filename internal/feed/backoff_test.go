package feed

import (
	"testing"
	"time"
)

func TestBackoffDoublesToCap(t *testing.T) {
	b := DefaultBackoff()
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, expected := range want {
		if got := b.Next(); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, expected, got)
		}
	}
}

func TestBackoffResetRestoresBase(t *testing.T) {
	b := DefaultBackoff()
	for i := 0; i < 5; i++ {
		b.Next()
	}
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Fatalf("expected base delay after reset, got %s", got)
	}
}

func TestBackoffCustomSchedule(t *testing.T) {
	b := &Backoff{Base: 100 * time.Millisecond, Multiplier: 3, Max: 500 * time.Millisecond}
	want := []time.Duration{
		100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond,
	}
	for i, expected := range want {
		if got := b.Next(); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, expected, got)
		}
	}
}
