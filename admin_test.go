package chainstate_test

import (
	"context"
	"errors"
	"testing"

	chainstate "github.com/xraph/chainstate"
)

func TestAdminRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func(caller chainstate.Account) error
	}{
		{"pause", func(c chainstate.Account) error { return env.engine.PauseContract(ctx, c) }},
		{"resume", func(c chainstate.Account) error { return env.engine.ResumeContract(ctx, c) }},
		{"toggle fees", func(c chainstate.Account) error { return env.engine.ToggleFees(ctx, c) }},
		{"freeze", func(c chainstate.Account) error { return env.engine.FreezeUser(ctx, c, "alice", true) }},
		{"emergency stop", func(c chainstate.Account) error { return env.engine.EmergencyStop(ctx, c) }},
		{"clear emergency", func(c chainstate.Account) error { return env.engine.ClearEmergency(ctx, c) }},
		{"set owner", func(c chainstate.Account) error { return env.engine.SetContractOwner(ctx, c, "bob") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call("alice"); !errors.Is(err, chainstate.ErrNotOwner) {
				t.Errorf("by non-owner: error = %v, want %v", err, chainstate.ErrNotOwner)
			}
			if err := tt.call(""); !errors.Is(err, chainstate.ErrNotOwner) {
				t.Errorf("by empty caller: error = %v, want %v", err, chainstate.ErrNotOwner)
			}
		})
	}
}

func TestPauseBlocksMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.PauseContract(ctx, "owner"); err != nil {
		t.Fatalf("PauseContract: %v", err)
	}

	if err := env.engine.UpdateValue(ctx, "alice", 1); !errors.Is(err, chainstate.ErrContractPaused) {
		t.Errorf("UpdateValue error = %v, want %v", err, chainstate.ErrContractPaused)
	}
	if _, err := env.engine.CreateBatch(ctx, "alice", 200, []*chainstate.TransferLine{{Recipient: "bob", Amount: 1}}); !errors.Is(err, chainstate.ErrContractPaused) {
		t.Errorf("CreateBatch error = %v, want %v", err, chainstate.ErrContractPaused)
	}
	if err := env.engine.GrantAccess(ctx, "alice", "bob", true, false, 10); !errors.Is(err, chainstate.ErrContractPaused) {
		t.Errorf("GrantAccess error = %v, want %v", err, chainstate.ErrContractPaused)
	}

	// Reads stay available while paused.
	if _, err := env.engine.GetContractStats(ctx); err != nil {
		t.Errorf("GetContractStats while paused: %v", err)
	}

	if err := env.engine.ResumeContract(ctx, "owner"); err != nil {
		t.Fatalf("ResumeContract: %v", err)
	}
	if err := env.engine.UpdateValue(ctx, "alice", 1); err != nil {
		t.Errorf("UpdateValue after resume: %v", err)
	}
}

func TestEmergencyStopTwoStepRecovery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.EmergencyStop(ctx, "owner"); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}

	if err := env.engine.UpdateValue(ctx, "alice", 1); !errors.Is(err, chainstate.ErrEmergencyMode) {
		t.Errorf("UpdateValue error = %v, want %v", err, chainstate.ErrEmergencyMode)
	}

	// Clearing the emergency leaves the contract paused; recovery is an
	// explicit two-step sequence.
	if err := env.engine.ClearEmergency(ctx, "owner"); err != nil {
		t.Fatalf("ClearEmergency: %v", err)
	}
	if err := env.engine.UpdateValue(ctx, "alice", 1); !errors.Is(err, chainstate.ErrContractPaused) {
		t.Errorf("UpdateValue after clear error = %v, want %v", err, chainstate.ErrContractPaused)
	}

	if err := env.engine.ResumeContract(ctx, "owner"); err != nil {
		t.Fatalf("ResumeContract: %v", err)
	}
	if err := env.engine.UpdateValue(ctx, "alice", 1); err != nil {
		t.Errorf("UpdateValue after recovery: %v", err)
	}
}

func TestGovernanceWorksWhilePaused(t *testing.T) {
	// Pause must never lock the owner out of governance, or the contract
	// could not be recovered.
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.EmergencyStop(ctx, "owner"); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}
	if err := env.engine.ToggleFees(ctx, "owner"); err != nil {
		t.Errorf("ToggleFees while stopped: %v", err)
	}
	if err := env.engine.SetContractOwner(ctx, "owner", "successor"); err != nil {
		t.Errorf("SetContractOwner while stopped: %v", err)
	}
	if err := env.engine.ClearEmergency(ctx, "successor"); err != nil {
		t.Errorf("ClearEmergency by successor: %v", err)
	}
	if err := env.engine.ResumeContract(ctx, "successor"); err != nil {
		t.Errorf("ResumeContract by successor: %v", err)
	}
}

func TestToggleFees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.ToggleFees(ctx, "owner"); err != nil {
		t.Fatalf("ToggleFees: %v", err)
	}
	stats, err := env.engine.GetContractStats(ctx)
	if err != nil {
		t.Fatalf("GetContractStats: %v", err)
	}
	if stats.FeeEnabled {
		t.Fatal("expected fees disabled after toggle")
	}

	// Updates are free while fees are off.
	if err := env.engine.UpdateValue(ctx, "alice", 1); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if got := env.bank.BalanceOf("alice"); got != 1000 {
		t.Errorf("alice balance = %d, want 1000", got)
	}
	// Even an unfunded account can update.
	if err := env.engine.UpdateValue(ctx, "pauper", 1); err != nil {
		t.Errorf("unfunded update with fees off: %v", err)
	}

	if err := env.engine.ToggleFees(ctx, "owner"); err != nil {
		t.Fatalf("second ToggleFees: %v", err)
	}
	if err := env.engine.UpdateValue(ctx, "alice", 2); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if got := env.bank.BalanceOf("alice"); got != 999 {
		t.Errorf("alice balance = %d, want 999 after fee returns", got)
	}
}

func TestFreezeUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.UpdateValue(ctx, "alice", 1); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if err := env.engine.FreezeUser(ctx, "owner", "alice", true); err != nil {
		t.Fatalf("FreezeUser: %v", err)
	}

	if err := env.engine.UpdateValue(ctx, "alice", 2); !errors.Is(err, chainstate.ErrUserFrozen) {
		t.Errorf("frozen update error = %v, want %v", err, chainstate.ErrUserFrozen)
	}
	if err := env.engine.UpdateUserSettings(ctx, "alice", 10, false, false); !errors.Is(err, chainstate.ErrUserFrozen) {
		t.Errorf("frozen settings error = %v, want %v", err, chainstate.ErrUserFrozen)
	}
	if err := env.engine.CreateManualBackup(ctx, "alice"); !errors.Is(err, chainstate.ErrUserFrozen) {
		t.Errorf("frozen backup error = %v, want %v", err, chainstate.ErrUserFrozen)
	}

	// Other users are unaffected.
	if err := env.engine.UpdateValue(ctx, "bob", 1); err != nil {
		t.Errorf("UpdateValue by bob: %v", err)
	}

	if err := env.engine.FreezeUser(ctx, "owner", "alice", false); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if err := env.engine.UpdateValue(ctx, "alice", 2); err != nil {
		t.Errorf("UpdateValue after unfreeze: %v", err)
	}
}

func TestSetContractOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.SetContractOwner(ctx, "owner", "bob"); err != nil {
		t.Fatalf("SetContractOwner: %v", err)
	}

	current, err := env.engine.ContractOwner(ctx)
	if err != nil {
		t.Fatalf("ContractOwner: %v", err)
	}
	if current != "bob" {
		t.Errorf("owner = %q, want bob", current)
	}

	// The previous owner loses governance rights immediately.
	if err := env.engine.PauseContract(ctx, "owner"); !errors.Is(err, chainstate.ErrNotOwner) {
		t.Errorf("old owner pause error = %v, want %v", err, chainstate.ErrNotOwner)
	}
	if err := env.engine.PauseContract(ctx, "bob"); err != nil {
		t.Errorf("new owner pause: %v", err)
	}

	// Update fees now flow to the new owner.
	if err := env.engine.ResumeContract(ctx, "bob"); err != nil {
		t.Fatalf("ResumeContract: %v", err)
	}
	if err := env.engine.UpdateValue(ctx, "alice", 1); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if got := env.bank.BalanceOf("bob"); got != 1001 {
		t.Errorf("bob balance = %d, want 1001", got)
	}
}

func TestNoOwnerConfigured(t *testing.T) {
	// Without an owner all governance fails closed and fees fall back to
	// the contract account.
	env := newTestEnvNoOwner(t)
	ctx := context.Background()

	if err := env.engine.PauseContract(ctx, "alice"); !errors.Is(err, chainstate.ErrNotOwner) {
		t.Errorf("pause error = %v, want %v", err, chainstate.ErrNotOwner)
	}

	if err := env.engine.UpdateValue(ctx, "alice", 1); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if got := env.bank.BalanceOf("chainstate.vault"); got != 1 {
		t.Errorf("vault balance = %d, want 1", got)
	}
}
