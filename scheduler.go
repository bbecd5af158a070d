package chainstate

import (
	"context"
	"fmt"

	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/types"
)

// ──────────────────────────────────────────────────
// Batch Scheduler
// ──────────────────────────────────────────────────

// CreateBatch schedules a multi-recipient payment batch for execution at a
// future block height. The total of all transfer lines is escrowed from
// the creator into the contract account immediately; execution later pays
// it out, cancellation refunds it. Lines are stored dense and 0-indexed in
// the order given; BatchID and Index on the inputs are assigned here.
func (e *Engine) CreateBatch(ctx context.Context, creator types.Account, executionHeight uint64, transfers []*batch.TransferLine) (*batch.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return nil, err
	}

	height := e.clock.Height()

	if !creator.Valid() {
		return nil, fmt.Errorf("%w: empty creator account", ErrInvalidInput)
	}
	if executionHeight <= height {
		return nil, ErrInvalidExecutionTime
	}
	if len(transfers) == 0 {
		return nil, ErrInvalidBatch
	}
	if uint64(len(transfers)) > e.params.MaxBatchTransfers {
		return nil, ErrBatchTooLarge
	}

	amounts := make([]types.Amount, 0, len(transfers))
	for _, line := range transfers {
		if !line.Recipient.Valid() {
			return nil, fmt.Errorf("%w: empty recipient account", ErrInvalidInput)
		}
		amounts = append(amounts, line.Amount)
	}

	// Individual zero-amount lines are allowed; the batch as a whole
	// must move value.
	total, err := types.Sum(amounts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if total.IsZero() {
		return nil, ErrInvalidAmount
	}

	if e.bank.BalanceOf(creator) < total {
		return nil, ErrInsufficientBalance
	}

	var b *batch.Batch
	err = e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		b = &batch.Batch{
			Entity:          types.NewEntity(height),
			ID:              g.NextBatchID,
			Creator:         creator,
			ExecutionHeight: executionHeight,
			TotalAmount:     total,
			State:           batch.StatePending,
		}
		g.NextBatchID++

		if err := tx.PutBatch(ctx, b); err != nil {
			return err
		}
		for i, line := range transfers {
			line.BatchID = b.ID
			line.Index = uint64(i)
			if err := tx.PutTransferLine(ctx, line); err != nil {
				return err
			}
		}
		if err := tx.PutTransferCount(ctx, b.ID, uint64(len(transfers))); err != nil {
			return err
		}

		details := fmt.Sprintf("batch %d: %d transfers, total %s, executes at %d", b.ID, len(transfers), total, executionHeight)
		if err := appendEvent(ctx, tx, g, creator, audit.ActionBatchCreated, height, details); err != nil {
			return err
		}
		if err := tx.PutGlobals(ctx, g); err != nil {
			return err
		}

		// Escrow last: a ledger failure here rolls back everything above.
		if err := e.bank.Transfer(total, creator, e.params.ContractAccount); err != nil {
			return fmt.Errorf("%w: escrow: %v", ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitBatchCreated(ctx, b)
	e.logger.Info("batch created",
		"batch_id", b.ID,
		"creator", creator,
		"transfers", len(transfers),
		"total", total,
		"execution_height", executionHeight,
	)

	return b, nil
}

// ExecuteBatch pays out a pending batch whose execution height has been
// reached. Any caller may trigger execution. All transfer lines pay out or
// none do: a ledger failure partway through reverses the lines already
// paid and rolls back the state change.
func (e *Engine) ExecuteBatch(ctx context.Context, caller types.Account, batchID uint64) (*batch.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return nil, err
	}

	height := e.clock.Height()

	var b *batch.Batch
	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		b, err = tx.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if b.State.Terminal() {
			return ErrBatchFinalized
		}
		if height < b.ExecutionHeight {
			return ErrExecutionTooEarly
		}

		lines, err := tx.ListTransferLines(ctx, batchID)
		if err != nil {
			return err
		}

		b.State = batch.StateExecuted
		b.Touch(height)
		if err := tx.PutBatch(ctx, b); err != nil {
			return err
		}

		details := fmt.Sprintf("batch %d: paid %d transfers, total %s", b.ID, len(lines), b.TotalAmount)
		if err := appendEvent(ctx, tx, g, caller, audit.ActionBatchExecuted, height, details); err != nil {
			return err
		}
		if err := tx.PutGlobals(ctx, g); err != nil {
			return err
		}

		// Pay out last. A failure at line i reverses lines [0, i) so the
		// ledger ends where it started, then the store rolls back too.
		for i, line := range lines {
			if err := e.bank.Transfer(line.Amount, e.params.ContractAccount, line.Recipient); err != nil {
				for j := i - 1; j >= 0; j-- {
					if rerr := e.bank.Transfer(lines[j].Amount, lines[j].Recipient, e.params.ContractAccount); rerr != nil {
						e.logger.Error("payout reversal failed",
							"batch_id", batchID,
							"line", j,
							"error", rerr,
						)
					}
				}
				return fmt.Errorf("%w: line %d: %v", ErrTransferFailed, i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitBatchExecuted(ctx, b)
	e.logger.Info("batch executed",
		"batch_id", b.ID,
		"caller", caller,
		"total", b.TotalAmount,
	)

	return b, nil
}

// CancelBatch cancels a pending batch and refunds the escrowed total to
// its creator. Only the creator may cancel. Cancellation is allowed at any
// height, including past the execution height, as long as the batch has
// not been executed.
func (e *Engine) CancelBatch(ctx context.Context, caller types.Account, batchID uint64) (*batch.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return nil, err
	}

	height := e.clock.Height()

	var b *batch.Batch
	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := gate(g); err != nil {
			return err
		}

		b, err = tx.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if caller != b.Creator {
			return ErrNotAuthorized
		}
		if b.State.Terminal() {
			return ErrBatchFinalized
		}

		b.State = batch.StateCanceled
		b.Touch(height)
		if err := tx.PutBatch(ctx, b); err != nil {
			return err
		}

		details := fmt.Sprintf("batch %d: refunded %s to %s", b.ID, b.TotalAmount, b.Creator)
		if err := appendEvent(ctx, tx, g, caller, audit.ActionBatchCanceled, height, details); err != nil {
			return err
		}
		if err := tx.PutGlobals(ctx, g); err != nil {
			return err
		}

		// Refund last so a ledger failure rolls the cancellation back.
		if err := e.bank.Transfer(b.TotalAmount, e.params.ContractAccount, b.Creator); err != nil {
			return fmt.Errorf("%w: refund: %v", ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitBatchCanceled(ctx, b)
	e.logger.Info("batch canceled",
		"batch_id", b.ID,
		"caller", caller,
		"refunded", b.TotalAmount,
	)

	return b, nil
}
