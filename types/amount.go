// Package types provides common types used across ChainState.
package types

import (
	"errors"
	"math"
	"strconv"
)

// Arithmetic errors. Local to the types package; engine-level validation
// maps them onto the chainstate error taxonomy.
var (
	ErrAmountOverflow  = errors.New("types: amount overflow")
	ErrAmountUnderflow = errors.New("types: amount underflow")
)

// Amount represents a quantity of abstract ledger units.
// All arithmetic is unsigned-integer-only and checked: no floating point,
// no silent wraparound. A failed operation returns an error and leaves the
// operands untouched.
type Amount uint64

// MaxAmount is the largest representable Amount.
const MaxAmount = Amount(math.MaxUint64)

// Add returns a+b, or ErrAmountOverflow if the sum wraps.
func (a Amount) Add(b Amount) (Amount, error) {
	if b > MaxAmount-a {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// Sub returns a-b, or ErrAmountUnderflow if b exceeds a.
// Balances can never go negative, so underflow is always a caller error.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrAmountUnderflow
	}
	return a - b, nil
}

// Mul returns a*n, or ErrAmountOverflow if the product wraps.
func (a Amount) Mul(n uint64) (Amount, error) {
	if n == 0 || a == 0 {
		return 0, nil
	}
	if a > MaxAmount/Amount(n) {
		return 0, ErrAmountOverflow
	}
	return a * Amount(n), nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Uint64 returns the raw unit count.
func (a Amount) Uint64() uint64 { return uint64(a) }

// String formats the amount as a plain base-10 unit count.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Sum adds a slice of amounts with overflow checking.
// Returns ErrAmountOverflow as soon as the running total would wrap.
func Sum(amounts []Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		next, err := total.Add(a)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
