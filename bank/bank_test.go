package bank_test

import (
	"errors"
	"testing"

	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/types"
)

func TestMemoryTransfer(t *testing.T) {
	m := bank.NewMemory()
	if err := m.Mint("alice", types.Amount(100)); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := m.Transfer(types.Amount(30), "alice", "bob"); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := m.BalanceOf("alice"); got != 70 {
		t.Errorf("alice balance = %d, want 70", got)
	}
	if got := m.BalanceOf("bob"); got != 30 {
		t.Errorf("bob balance = %d, want 30", got)
	}
}

func TestMemoryTransferErrors(t *testing.T) {
	tests := []struct {
		name    string
		amount  types.Amount
		from    types.Account
		to      types.Account
		wantErr error
	}{
		{"insufficient balance", 101, "alice", "bob", bank.ErrInsufficientBalance},
		{"empty from", 10, "", "bob", bank.ErrInvalidAccount},
		{"empty to", 10, "alice", "", bank.ErrInvalidAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := bank.NewMemory()
			if err := m.Mint("alice", types.Amount(100)); err != nil {
				t.Fatalf("Mint: %v", err)
			}

			err := m.Transfer(tt.amount, tt.from, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transfer error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, bank.ErrTransferFailed) {
				t.Errorf("Transfer error = %v, want wrapped %v", err, bank.ErrTransferFailed)
			}

			// A failed transfer must leave balances untouched.
			if got := m.BalanceOf("alice"); got != 100 {
				t.Errorf("alice balance after failed transfer = %d, want 100", got)
			}
		})
	}
}

func TestMemoryTransferZeroIsNoop(t *testing.T) {
	m := bank.NewMemory()
	if err := m.Transfer(types.Amount(0), "alice", "bob"); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
	if got := m.BalanceOf("bob"); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
}

func TestMemoryMint(t *testing.T) {
	m := bank.NewMemory()
	if err := m.Mint("", types.Amount(1)); !errors.Is(err, bank.ErrInvalidAccount) {
		t.Errorf("Mint to empty account: error = %v, want %v", err, bank.ErrInvalidAccount)
	}

	if err := m.Mint("alice", types.Amount(40)); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := m.Mint("alice", types.Amount(2)); err != nil {
		t.Fatalf("second Mint: %v", err)
	}
	if got := m.BalanceOf("alice"); got != 42 {
		t.Errorf("alice balance = %d, want 42", got)
	}
}

func TestMemoryBalanceOfUnknownAccount(t *testing.T) {
	m := bank.NewMemory()
	if got := m.BalanceOf("nobody"); got != 0 {
		t.Errorf("BalanceOf unknown = %d, want 0", got)
	}
}
