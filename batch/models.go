// Package batch defines the scheduled multi-recipient payment batch entities.
package batch

import "github.com/xraph/chainstate/types"

// State is the lifecycle state of a batch.
// Pending is the only non-terminal state; Executed and Canceled are both
// terminal and no transition ever leaves them.
type State string

const (
	StatePending  State = "pending"
	StateExecuted State = "executed"
	StateCanceled State = "canceled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateExecuted || s == StateCanceled
}

// Batch is a scheduled set of payments created together and executed or
// canceled as a unit. The escrowed TotalAmount always equals the sum of the
// batch's transfer line amounts.
type Batch struct {
	types.Entity
	ID              uint64        `json:"id"`
	Creator         types.Account `json:"creator"`
	ExecutionHeight uint64        `json:"execution_height"`
	TotalAmount     types.Amount  `json:"total_amount"`
	State           State         `json:"state"`
}

// Ready reports whether the batch can be executed at the given height.
func (b *Batch) Ready(height uint64) bool {
	return b.State == StatePending && height >= b.ExecutionHeight
}

// TransferLine is one recipient/amount pair of a batch. Lines are dense
// (0-based index, no gaps), fixed at creation, and owned exclusively by
// their batch.
type TransferLine struct {
	BatchID   uint64        `json:"batch_id"`
	Index     uint64        `json:"index"`
	Recipient types.Account `json:"recipient"`
	Amount    types.Amount  `json:"amount"`
}
