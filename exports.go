package chainstate

import (
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Account is re-exported from types package.
type Account = types.Account

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount helpers
var Sum = types.Sum

// Re-export Entity constructor
var NewEntity = types.NewEntity

// Batch is re-exported from batch package.
type Batch = batch.Batch

// TransferLine is re-exported from batch package.
type TransferLine = batch.TransferLine
