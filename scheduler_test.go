package chainstate_test

import (
	"context"
	"errors"
	"testing"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/batch"
)

func TestCreateBatchEscrowsFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lines := []*chainstate.TransferLine{
		{Recipient: "bob", Amount: 30},
		{Recipient: "carol", Amount: 70},
	}
	b, err := env.engine.CreateBatch(ctx, "alice", 200, lines)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if b.ID != 1 {
		t.Errorf("batch ID = %d, want 1", b.ID)
	}
	if b.TotalAmount != 100 {
		t.Errorf("TotalAmount = %d, want 100", b.TotalAmount)
	}
	if b.State != batch.StatePending {
		t.Errorf("State = %v, want pending", b.State)
	}

	// The total moves into escrow at creation, not at execution.
	if got := env.bank.BalanceOf("alice"); got != 900 {
		t.Errorf("alice balance = %d, want 900", got)
	}
	if got := env.bank.BalanceOf("chainstate.vault"); got != 100 {
		t.Errorf("vault balance = %d, want 100", got)
	}
	if got := env.bank.BalanceOf("bob"); got != 1000 {
		t.Errorf("bob balance = %d, want 1000 before execution", got)
	}

	stored, err := env.engine.GetBatchTransfers(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatchTransfers: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(stored))
	}
	if stored[0].Recipient != "bob" || stored[1].Recipient != "carol" {
		t.Errorf("unexpected line order: %+v", stored)
	}

	count, err := env.engine.GetTransferCount(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetTransferCount: %v", err)
	}
	if count != 2 {
		t.Errorf("transfer count = %d, want 2", count)
	}

	next, err := env.engine.NextBatchID(ctx)
	if err != nil {
		t.Fatalf("NextBatchID: %v", err)
	}
	if next != 2 {
		t.Errorf("NextBatchID = %d, want 2", next)
	}
}

func TestCreateBatchValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	oversize := make([]*chainstate.TransferLine, 51)
	for i := range oversize {
		oversize[i] = &chainstate.TransferLine{Recipient: "bob", Amount: 1}
	}

	tests := []struct {
		name    string
		creator chainstate.Account
		height  uint64
		lines   []*chainstate.TransferLine
		wantErr error
	}{
		{"execution height in the past", "alice", 50, []*chainstate.TransferLine{{Recipient: "bob", Amount: 1}}, chainstate.ErrInvalidExecutionTime},
		{"execution height is now", "alice", 100, []*chainstate.TransferLine{{Recipient: "bob", Amount: 1}}, chainstate.ErrInvalidExecutionTime},
		{"no lines", "alice", 200, nil, chainstate.ErrInvalidBatch},
		{"too many lines", "alice", 200, oversize, chainstate.ErrBatchTooLarge},
		{"zero total", "alice", 200, []*chainstate.TransferLine{{Recipient: "bob", Amount: 0}, {Recipient: "carol", Amount: 0}}, chainstate.ErrInvalidAmount},
		{"empty recipient", "alice", 200, []*chainstate.TransferLine{{Recipient: "", Amount: 1}}, chainstate.ErrInvalidInput},
		{"empty creator", "", 200, []*chainstate.TransferLine{{Recipient: "bob", Amount: 1}}, chainstate.ErrInvalidInput},
		{"insufficient balance", "alice", 200, []*chainstate.TransferLine{{Recipient: "bob", Amount: 5000}}, chainstate.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.CreateBatch(ctx, tt.creator, tt.height, tt.lines)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBatch error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// None of the rejected calls may touch balances or the ID sequence.
	if got := env.bank.BalanceOf("alice"); got != 1000 {
		t.Errorf("alice balance = %d, want 1000", got)
	}
	next, err := env.engine.NextBatchID(ctx)
	if err != nil {
		t.Fatalf("NextBatchID: %v", err)
	}
	if next != 1 {
		t.Errorf("NextBatchID = %d, want 1", next)
	}
}

func TestCreateBatchAllowsZeroAmountLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lines := []*chainstate.TransferLine{
		{Recipient: "bob", Amount: 0},
		{Recipient: "carol", Amount: 100},
	}
	b, err := env.engine.CreateBatch(ctx, "alice", 150, lines)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if b.TotalAmount != 100 {
		t.Errorf("TotalAmount = %d, want 100", b.TotalAmount)
	}
	if got := env.bank.BalanceOf("alice"); got != 900 {
		t.Errorf("alice balance = %d, want 900", got)
	}

	env.clock.Advance(100)
	if _, err := env.engine.ExecuteBatch(ctx, "alice", b.ID); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if got := env.bank.BalanceOf("bob"); got != 1000 {
		t.Errorf("bob balance = %d, want 1000", got)
	}
	if got := env.bank.BalanceOf("carol"); got != 1100 {
		t.Errorf("carol balance = %d, want 1100", got)
	}
}

func TestExecuteBatchPaysAllRecipients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	lines := []*chainstate.TransferLine{
		{Recipient: "bob", Amount: 30},
		{Recipient: "carol", Amount: 70},
	}
	b, err := env.engine.CreateBatch(ctx, "alice", 150, lines)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	// Not yet due.
	if _, err := env.engine.ExecuteBatch(ctx, "bob", b.ID); !errors.Is(err, chainstate.ErrExecutionTooEarly) {
		t.Fatalf("early execute error = %v, want %v", err, chainstate.ErrExecutionTooEarly)
	}
	// The failed attempt must leave the batch untouched.
	got, err := env.engine.GetBatch(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if got.State != batch.StatePending {
		t.Fatalf("State after early execute = %v, want pending", got.State)
	}

	env.clock.Advance(50)

	ready, err := env.engine.IsBatchReady(ctx, b.ID)
	if err != nil {
		t.Fatalf("IsBatchReady: %v", err)
	}
	if !ready {
		t.Fatal("expected batch ready at execution height")
	}

	// Execution is permissionless: any caller may trigger a due batch.
	executed, err := env.engine.ExecuteBatch(ctx, "carol", b.ID)
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if executed.State != batch.StateExecuted {
		t.Errorf("State = %v, want executed", executed.State)
	}

	if got := env.bank.BalanceOf("bob"); got != 1030 {
		t.Errorf("bob balance = %d, want 1030", got)
	}
	if got := env.bank.BalanceOf("carol"); got != 1070 {
		t.Errorf("carol balance = %d, want 1070", got)
	}
	if got := env.bank.BalanceOf("chainstate.vault"); got != 0 {
		t.Errorf("vault balance = %d, want 0", got)
	}
}

func TestExecuteBatchIsFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.engine.CreateBatch(ctx, "alice", 150, []*chainstate.TransferLine{{Recipient: "bob", Amount: 10}})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	env.clock.Advance(50)
	if _, err := env.engine.ExecuteBatch(ctx, "alice", b.ID); err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}

	if _, err := env.engine.ExecuteBatch(ctx, "alice", b.ID); !errors.Is(err, chainstate.ErrBatchFinalized) {
		t.Errorf("second execute error = %v, want %v", err, chainstate.ErrBatchFinalized)
	}
	if _, err := env.engine.CancelBatch(ctx, "alice", b.ID); !errors.Is(err, chainstate.ErrBatchFinalized) {
		t.Errorf("cancel after execute error = %v, want %v", err, chainstate.ErrBatchFinalized)
	}

	// Recipient must be paid exactly once.
	if got := env.bank.BalanceOf("bob"); got != 1010 {
		t.Errorf("bob balance = %d, want 1010", got)
	}
}

func TestCancelBatchRefundsCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.engine.CreateBatch(ctx, "alice", 200, []*chainstate.TransferLine{{Recipient: "bob", Amount: 25}})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	// Only the creator may cancel; even the contract owner may not.
	for _, caller := range []chainstate.Account{"bob", "owner"} {
		if _, err := env.engine.CancelBatch(ctx, caller, b.ID); !errors.Is(err, chainstate.ErrNotAuthorized) {
			t.Errorf("CancelBatch by %s: error = %v, want %v", caller, err, chainstate.ErrNotAuthorized)
		}
	}

	canceled, err := env.engine.CancelBatch(ctx, "alice", b.ID)
	if err != nil {
		t.Fatalf("CancelBatch: %v", err)
	}
	if canceled.State != batch.StateCanceled {
		t.Errorf("State = %v, want canceled", canceled.State)
	}

	if got := env.bank.BalanceOf("alice"); got != 1000 {
		t.Errorf("alice balance = %d, want full refund of 1000", got)
	}
	if got := env.bank.BalanceOf("chainstate.vault"); got != 0 {
		t.Errorf("vault balance = %d, want 0", got)
	}

	// A canceled batch is terminal both ways.
	env.clock.Advance(200)
	if _, err := env.engine.ExecuteBatch(ctx, "bob", b.ID); !errors.Is(err, chainstate.ErrBatchFinalized) {
		t.Errorf("execute after cancel error = %v, want %v", err, chainstate.ErrBatchFinalized)
	}
	if _, err := env.engine.CancelBatch(ctx, "alice", b.ID); !errors.Is(err, chainstate.ErrBatchFinalized) {
		t.Errorf("second cancel error = %v, want %v", err, chainstate.ErrBatchFinalized)
	}
}

func TestCancelBatchBeforeOrAfterDue(t *testing.T) {
	// A pending batch can be canceled even after its execution height,
	// as long as nobody has executed it.
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := env.engine.CreateBatch(ctx, "alice", 150, []*chainstate.TransferLine{{Recipient: "bob", Amount: 10}})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	env.clock.Advance(500)

	canceled, err := env.engine.CancelBatch(ctx, "alice", b.ID)
	if err != nil {
		t.Fatalf("CancelBatch after due height: %v", err)
	}
	if canceled.State != batch.StateCanceled {
		t.Errorf("State = %v, want canceled", canceled.State)
	}
}

func TestBatchIDsAreSequential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		b, err := env.engine.CreateBatch(ctx, "alice", 200, []*chainstate.TransferLine{{Recipient: "bob", Amount: 1}})
		if err != nil {
			t.Fatalf("CreateBatch #%d: %v", want, err)
		}
		if b.ID != want {
			t.Errorf("batch ID = %d, want %d", b.ID, want)
		}
	}
}

func TestGetBatchNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.engine.GetBatch(ctx, 99); !errors.Is(err, chainstate.ErrBatchNotFound) {
		t.Errorf("GetBatch error = %v, want %v", err, chainstate.ErrBatchNotFound)
	}
	if _, err := env.engine.ExecuteBatch(ctx, "alice", 99); !errors.Is(err, chainstate.ErrBatchNotFound) {
		t.Errorf("ExecuteBatch error = %v, want %v", err, chainstate.ErrBatchNotFound)
	}
	if _, err := env.engine.CancelBatch(ctx, "alice", 99); !errors.Is(err, chainstate.ErrBatchNotFound) {
		t.Errorf("CancelBatch error = %v, want %v", err, chainstate.ErrBatchNotFound)
	}
}
