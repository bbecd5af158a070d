package clock_test

import (
	"testing"

	"github.com/xraph/chainstate/clock"
)

func TestManualAdvance(t *testing.T) {
	c := clock.NewManual(100)
	if got := c.Height(); got != 100 {
		t.Fatalf("expected height 100, got %d", got)
	}

	if got := c.Advance(10); got != 110 {
		t.Errorf("Advance(10) = %d, want 110", got)
	}
	if got := c.Advance(0); got != 110 {
		t.Errorf("Advance(0) = %d, want 110", got)
	}
	if got := c.Height(); got != 110 {
		t.Errorf("Height() = %d, want 110", got)
	}
}

func TestManualSetIsMonotonic(t *testing.T) {
	tests := []struct {
		name  string
		start uint64
		set   uint64
		want  uint64
	}{
		{"forward", 100, 200, 200},
		{"same height", 100, 100, 100},
		{"backward ignored", 100, 50, 100},
		{"from zero", 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := clock.NewManual(tt.start)
			if got := c.Set(tt.set); got != tt.want {
				t.Errorf("Set(%d) = %d, want %d", tt.set, got, tt.want)
			}
			if got := c.Height(); got != tt.want {
				t.Errorf("Height() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFixed(t *testing.T) {
	c := clock.Fixed(4242)
	if got := c.Height(); got != 4242 {
		t.Errorf("Height() = %d, want 4242", got)
	}
	// A Fixed clock never moves.
	if got := c.Height(); got != 4242 {
		t.Errorf("second Height() = %d, want 4242", got)
	}
}
