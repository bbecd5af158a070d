package types

import "strings"

// Account identifies a participant on the abstract ledger.
// ChainState does not do address cryptography; an account is an opaque,
// non-empty identifier supplied by the caller (wallet address, user id, ...).
type Account string

// NilAccount is the zero-value account.
const NilAccount Account = ""

// IsNil reports whether the account is the zero value.
func (a Account) IsNil() bool { return a == NilAccount }

// String returns the raw account identifier.
func (a Account) String() string { return string(a) }

// Valid reports whether the account is usable as a ledger participant:
// non-empty after trimming whitespace.
func (a Account) Valid() bool {
	return strings.TrimSpace(string(a)) != ""
}
