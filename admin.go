package chainstate

import (
	"context"
	"fmt"

	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/types"
)

// ──────────────────────────────────────────────────
// Governance
// ──────────────────────────────────────────────────
// Governance operations are owner-gated and do not pass through the
// pause/emergency gate: the owner must be able to steer the contract out
// of any state it can get into.

// requireOwner checks the caller against the stored contract owner.
func requireOwner(g *store.Globals, caller types.Account) error {
	if caller != g.Owner || g.Owner.IsNil() {
		return ErrNotOwner
	}
	return nil
}

// adminOp runs one governance mutation: owner check, the change itself,
// an audit event, and the globals write, all in one transactional scope.
func (e *Engine) adminOp(ctx context.Context, caller types.Account, action audit.Action, details string, mutate func(g *store.Globals) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireOwner(g, caller); err != nil {
			return err
		}
		if err := mutate(g); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, g, caller, action, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitAdminAction(ctx, string(action), details)
	e.logger.Info("admin action",
		"action", action,
		"caller", caller,
		"details", details,
	)

	return nil
}

// PauseContract halts all user mutations. Pausing an already paused
// contract is a no-op that still appends an audit event.
func (e *Engine) PauseContract(ctx context.Context, caller types.Account) error {
	return e.adminOp(ctx, caller, audit.ActionContractPaused, "contract paused", func(g *store.Globals) error {
		g.Paused = true
		return nil
	})
}

// ResumeContract lifts a pause. It does not clear emergency mode.
func (e *Engine) ResumeContract(ctx context.Context, caller types.Account) error {
	return e.adminOp(ctx, caller, audit.ActionContractResumed, "contract resumed", func(g *store.Globals) error {
		g.Paused = false
		return nil
	})
}

// ToggleFees flips update fee collection on or off.
func (e *Engine) ToggleFees(ctx context.Context, caller types.Account) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	var enabled bool
	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireOwner(g, caller); err != nil {
			return err
		}
		g.FeeEnabled = !g.FeeEnabled
		enabled = g.FeeEnabled

		details := fmt.Sprintf("fees enabled=%t", enabled)
		if err := appendEvent(ctx, tx, g, caller, audit.ActionFeesToggled, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitAdminAction(ctx, string(audit.ActionFeesToggled), fmt.Sprintf("enabled=%t", enabled))
	e.logger.Info("fees toggled", "caller", caller, "enabled", enabled)

	return nil
}

// FreezeUser sets or clears the frozen flag on an account's settings. A
// frozen user cannot mutate their record, settings, or backups until
// unfrozen; reads keep working.
func (e *Engine) FreezeUser(ctx context.Context, caller, target types.Account, frozen bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireStarted(); err != nil {
		return err
	}

	height := e.clock.Height()

	if !target.Valid() {
		return fmt.Errorf("%w: empty target account", ErrInvalidInput)
	}

	action := audit.ActionUserFrozen
	if !frozen {
		action = audit.ActionUserUnfrozen
	}

	err := e.store.Atomic(ctx, func(tx store.Store) error {
		g, err := e.globals(ctx, tx)
		if err != nil {
			return err
		}
		if err := requireOwner(g, caller); err != nil {
			return err
		}

		settings, err := tx.GetUserSettings(ctx, target)
		if err != nil {
			return err
		}
		settings.Account = target
		settings.Frozen = frozen
		if err := tx.PutUserSettings(ctx, settings); err != nil {
			return err
		}

		details := fmt.Sprintf("target %s frozen=%t", target, frozen)
		if err := appendEvent(ctx, tx, g, caller, action, height, details); err != nil {
			return err
		}
		return tx.PutGlobals(ctx, g)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitAdminAction(ctx, string(action), string(target))
	e.logger.Info("user freeze changed",
		"caller", caller,
		"target", target,
		"frozen", frozen,
	)

	return nil
}

// EmergencyStop pauses the contract and raises emergency mode in one
// step. Emergency mode outranks a plain pause: ResumeContract alone does
// not lift it, only ClearEmergency does.
func (e *Engine) EmergencyStop(ctx context.Context, caller types.Account) error {
	return e.adminOp(ctx, caller, audit.ActionEmergencyStop, "emergency stop", func(g *store.Globals) error {
		g.Paused = true
		g.EmergencyMode = true
		return nil
	})
}

// ClearEmergency lifts emergency mode. The contract stays paused until
// ResumeContract is called, so recovery is an explicit two-step.
func (e *Engine) ClearEmergency(ctx context.Context, caller types.Account) error {
	return e.adminOp(ctx, caller, audit.ActionContractResumed, "emergency cleared", func(g *store.Globals) error {
		g.EmergencyMode = false
		return nil
	})
}

// SetContractOwner hands ownership to a new account. The new owner takes
// effect immediately; the old owner keeps no residual authority.
func (e *Engine) SetContractOwner(ctx context.Context, caller, newOwner types.Account) error {
	if !newOwner.Valid() {
		return fmt.Errorf("%w: empty new owner", ErrInvalidInput)
	}
	return e.adminOp(ctx, caller, audit.ActionOwnerChanged, fmt.Sprintf("owner -> %s", newOwner), func(g *store.Globals) error {
		g.Owner = newOwner
		return nil
	})
}
