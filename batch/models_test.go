package batch_test

import (
	"testing"

	"github.com/xraph/chainstate/batch"
)

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state batch.State
		want  bool
	}{
		{batch.StatePending, false},
		{batch.StateExecuted, true},
		{batch.StateCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestBatchReady(t *testing.T) {
	tests := []struct {
		name   string
		state  batch.State
		exec   uint64
		height uint64
		want   bool
	}{
		{"pending before due", batch.StatePending, 200, 100, false},
		{"pending at due", batch.StatePending, 200, 200, true},
		{"pending past due", batch.StatePending, 200, 300, true},
		{"executed never ready", batch.StateExecuted, 200, 300, false},
		{"canceled never ready", batch.StateCanceled, 200, 300, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &batch.Batch{State: tt.state, ExecutionHeight: tt.exec}
			if got := b.Ready(tt.height); got != tt.want {
				t.Errorf("Ready(%d) = %t, want %t", tt.height, got, tt.want)
			}
		})
	}
}
