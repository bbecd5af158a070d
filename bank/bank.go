// Package bank defines the external balance-ledger collaborator.
//
// ChainState does not custody real currency. Value movement is delegated to
// a Ledger implementation supplied by the host application; the engine only
// requires that individual transfers are atomic and that balances can never
// go negative. The in-memory implementation in this package satisfies that
// contract and doubles as the reference ledger for tests and simulations.
package bank

import (
	"errors"
	"sync"

	"github.com/xraph/chainstate/types"
)

// Ledger errors.
var (
	// ErrTransferFailed is returned when a transfer cannot be applied.
	// Wrapped causes carry the detail (insufficient balance, bad account).
	ErrTransferFailed = errors.New("bank: transfer failed")

	// ErrInsufficientBalance is returned when the source account does not
	// hold the transfer amount. It wraps ErrTransferFailed.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")

	// ErrInvalidAccount is returned for nil or malformed accounts.
	ErrInvalidAccount = errors.New("bank: invalid account")
)

// Ledger is the abstract balance store both subsystems move value through.
// Each Transfer call is atomic: it either fully applies or leaves both
// balances untouched. Implementations must never allow a negative balance.
type Ledger interface {
	// BalanceOf returns the current balance of an account.
	// Unknown accounts hold a zero balance.
	BalanceOf(account types.Account) types.Amount

	// Transfer moves amount from one account to another.
	// A zero-amount transfer is a no-op success.
	Transfer(amount types.Amount, from, to types.Account) error
}

// Memory is an in-process Ledger implementation.
type Memory struct {
	mu       sync.RWMutex
	balances map[types.Account]types.Amount
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[types.Account]types.Amount)}
}

// BalanceOf returns the current balance of an account.
func (m *Memory) BalanceOf(account types.Account) types.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[account]
}

// Transfer moves amount from one account to another, atomically.
func (m *Memory) Transfer(amount types.Amount, from, to types.Account) error {
	if !from.Valid() || !to.Valid() {
		return errors.Join(ErrTransferFailed, ErrInvalidAccount)
	}
	if amount.IsZero() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	debited, err := m.balances[from].Sub(amount)
	if err != nil {
		return errors.Join(ErrTransferFailed, ErrInsufficientBalance)
	}
	credited, err := m.balances[to].Add(amount)
	if err != nil {
		return errors.Join(ErrTransferFailed, err)
	}

	m.balances[from] = debited
	m.balances[to] = credited
	return nil
}

// Mint credits an account out of thin air. Test and simulation helper;
// a production Ledger adapter would not expose this.
func (m *Memory) Mint(account types.Account, amount types.Amount) error {
	if !account.Valid() {
		return ErrInvalidAccount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	credited, err := m.balances[account].Add(amount)
	if err != nil {
		return err
	}
	m.balances[account] = credited
	return nil
}
