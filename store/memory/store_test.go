package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/record"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/store/memory"
)

func TestBatchRoundTrip(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	b := &batch.Batch{ID: 1, Creator: "alice", ExecutionHeight: 200, TotalAmount: 30, State: batch.StatePending}
	if err := s.PutBatch(ctx, b); err != nil {
		t.Fatalf("PutBatch: %v", err)
	}

	got, err := s.GetBatch(ctx, 1)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.Creator != "alice" || got.ExecutionHeight != 200 || got.State != batch.StatePending {
		t.Errorf("unexpected batch: %+v", got)
	}

	// Mutating the returned copy must not affect the stored record.
	got.State = batch.StateExecuted
	again, err := s.GetBatch(ctx, 1)
	if err != nil {
		t.Fatalf("GetBatch again: %v", err)
	}
	if again.State != batch.StatePending {
		t.Error("stored batch was mutated through a returned copy")
	}

	if _, err := s.GetBatch(ctx, 99); !errors.Is(err, chainstate.ErrBatchNotFound) {
		t.Errorf("GetBatch(99) error = %v, want %v", err, chainstate.ErrBatchNotFound)
	}
}

func TestTransferLinesOrderedByIndex(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for _, idx := range []uint64{2, 0, 1} {
		line := &batch.TransferLine{BatchID: 7, Index: idx, Recipient: "bob", Amount: 10}
		if err := s.PutTransferLine(ctx, line); err != nil {
			t.Fatalf("PutTransferLine(%d): %v", idx, err)
		}
	}

	lines, err := s.ListTransferLines(ctx, 7)
	if err != nil {
		t.Fatalf("ListTransferLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if line.Index != uint64(i) {
			t.Errorf("line %d has index %d", i, line.Index)
		}
	}
}

func TestLookupDefaults(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	counter, err := s.GetDailyCounter(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("GetDailyCounter: %v", err)
	}
	if counter.Count != 0 || counter.Account != "alice" || counter.Day != 5 {
		t.Errorf("unexpected default counter: %+v", counter)
	}

	settings, err := s.GetUserSettings(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if settings.DailyLimit != 0 || settings.Frozen {
		t.Errorf("unexpected default settings: %+v", settings)
	}

	stat, err := s.GetDailyStat(ctx, 5)
	if err != nil {
		t.Fatalf("GetDailyStat: %v", err)
	}
	if stat.TotalUpdates != 0 || stat.Day != 5 {
		t.Errorf("unexpected default stat: %+v", stat)
	}
}

func TestNotFoundErrors(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"user record", func() error { _, err := s.GetUserRecord(ctx, "nobody"); return err }, chainstate.ErrUserNotFound},
		{"history entry", func() error { _, err := s.GetHistoryEntry(ctx, "nobody", 10); return err }, chainstate.ErrBackupNotFound},
		{"shared access", func() error { _, err := s.GetSharedAccess(ctx, "a", "b"); return err }, chainstate.ErrGrantNotFound},
		{"delete grant", func() error { return s.DeleteSharedAccess(ctx, "a", "b") }, chainstate.ErrGrantNotFound},
		{"globals unset", func() error { _, err := s.GetGlobals(ctx); return err }, chainstate.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHistoryIsolatedPerAccount(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	entries := []*record.HistoryEntry{
		{Account: "alice", Height: 10, Value: 1, Type: record.UpdateAuto},
		{Account: "alice", Height: 20, Value: 2, Type: record.UpdateManual},
		{Account: "bob", Height: 15, Value: 9, Type: record.UpdateAuto},
	}
	for _, e := range entries {
		if err := s.PutHistoryEntry(ctx, e); err != nil {
			t.Fatalf("PutHistoryEntry: %v", err)
		}
	}

	got, err := s.ListHistoryEntries(ctx, "alice")
	if err != nil {
		t.Fatalf("ListHistoryEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for alice, got %d", len(got))
	}
	if got[0].Height != 10 || got[1].Height != 20 {
		t.Errorf("entries out of height order: %+v", got)
	}
}

func TestAuditListAfterAndLimit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		e := &audit.Event{ID: i, Account: "alice", Action: audit.ActionValueUpdated, Height: 100 + i}
		if err := s.AppendAuditEvent(ctx, e); err != nil {
			t.Fatalf("AppendAuditEvent(%d): %v", i, err)
		}
	}

	got, err := s.ListAuditEvents(ctx, audit.ListOpts{AfterID: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 4 {
		t.Errorf("unexpected event IDs: %d, %d", got[0].ID, got[1].ID)
	}
}

func TestAtomicRollsBackOnError(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.PutGlobals(ctx, &store.Globals{NextBatchID: 1}); err != nil {
		t.Fatalf("PutGlobals: %v", err)
	}

	sentinel := errors.New("boom")
	err := s.Atomic(ctx, func(tx store.Store) error {
		if err := tx.PutBatch(ctx, &batch.Batch{ID: 1, Creator: "alice"}); err != nil {
			return err
		}
		if err := tx.PutGlobals(ctx, &store.Globals{NextBatchID: 2}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Atomic error = %v, want %v", err, sentinel)
	}

	if _, err := s.GetBatch(ctx, 1); !errors.Is(err, chainstate.ErrBatchNotFound) {
		t.Errorf("batch write survived rollback: err = %v", err)
	}
	g, err := s.GetGlobals(ctx)
	if err != nil {
		t.Fatalf("GetGlobals: %v", err)
	}
	if g.NextBatchID != 1 {
		t.Errorf("globals write survived rollback: NextBatchID = %d", g.NextBatchID)
	}
}

func TestAtomicCommitsOnSuccess(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Store) error {
		return tx.PutBatch(ctx, &batch.Batch{ID: 1, Creator: "alice"})
	})
	if err != nil {
		t.Fatalf("Atomic: %v", err)
	}
	if _, err := s.GetBatch(ctx, 1); err != nil {
		t.Errorf("committed batch not readable: %v", err)
	}
}

func TestAtomicIsolatesConcurrentReaders(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	written := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	sentinel := errors.New("boom")

	go func() {
		done <- s.Atomic(ctx, func(tx store.Store) error {
			if err := tx.PutBatch(ctx, &batch.Batch{ID: 7, Creator: "alice", State: batch.StatePending}); err != nil {
				return err
			}
			close(written)
			<-release
			return sentinel
		})
	}()

	<-written
	readErr := make(chan error, 1)
	go func() {
		_, err := s.GetBatch(ctx, 7)
		readErr <- err
	}()

	// Let the reader park on the store mutex, then abort the scope.
	time.Sleep(10 * time.Millisecond)
	close(release)

	if err := <-done; !errors.Is(err, sentinel) {
		t.Fatalf("Atomic error = %v, want %v", err, sentinel)
	}
	if err := <-readErr; !errors.Is(err, chainstate.ErrBatchNotFound) {
		t.Errorf("concurrent reader observed uncommitted batch: err = %v", err)
	}
}

func TestNestedAtomicRejected(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Store) error {
		return tx.Atomic(ctx, func(store.Store) error { return nil })
	})
	if !errors.Is(err, chainstate.ErrTransactionFailed) {
		t.Errorf("nested Atomic error = %v, want %v", err, chainstate.ErrTransactionFailed)
	}
}

func TestClosedStore(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.PutBatch(ctx, &batch.Batch{ID: 1}); !errors.Is(err, chainstate.ErrStoreClosed) {
		t.Errorf("PutBatch after Close: error = %v, want %v", err, chainstate.ErrStoreClosed)
	}
	if err := s.Atomic(ctx, func(store.Store) error { return nil }); !errors.Is(err, chainstate.ErrStoreClosed) {
		t.Errorf("Atomic after Close: error = %v, want %v", err, chainstate.ErrStoreClosed)
	}
}
