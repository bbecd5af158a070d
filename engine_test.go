package chainstate_test

import (
	"context"
	"errors"
	"testing"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/clock"
	"github.com/xraph/chainstate/store/memory"
	"github.com/xraph/chainstate/types"
)

// testParams shrinks the day window so rollover tests do not have to
// advance thousands of blocks. Everything else matches the defaults.
func testParams() chainstate.Params {
	p := chainstate.DefaultParams()
	p.BlocksPerDay = 100
	return p
}

type testEnv struct {
	engine *chainstate.Engine
	clock  *clock.Manual
	bank   *bank.Memory
	store  *memory.Store
}

// newTestEnv starts an engine at height 100 with "owner" as contract
// owner and alice/bob/carol funded with 1000 each.
func newTestEnv(t *testing.T, opts ...chainstate.Option) *testEnv {
	t.Helper()

	env := &testEnv{
		clock: clock.NewManual(100),
		bank:  bank.NewMemory(),
		store: memory.New(),
	}
	for _, account := range []types.Account{"alice", "bob", "carol"} {
		if err := env.bank.Mint(account, 1000); err != nil {
			t.Fatalf("Mint(%s): %v", account, err)
		}
	}

	base := []chainstate.Option{
		chainstate.WithClock(env.clock),
		chainstate.WithParams(testParams()),
		chainstate.WithOwner("owner"),
	}
	env.engine = chainstate.New(env.store, env.bank, append(base, opts...)...)

	if err := env.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = env.engine.Stop() })

	return env
}

// newTestEnvNoOwner starts an engine with no contract owner configured.
func newTestEnvNoOwner(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, chainstate.WithOwner(""))
}

func TestStartSeedsGlobals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stats, err := env.engine.GetContractStats(ctx)
	if err != nil {
		t.Fatalf("GetContractStats: %v", err)
	}
	if stats.NextBatchID != 1 {
		t.Errorf("NextBatchID = %d, want 1", stats.NextBatchID)
	}
	if stats.Owner != "owner" {
		t.Errorf("Owner = %q, want %q", stats.Owner, "owner")
	}
	if !stats.FeeEnabled {
		t.Error("expected fees enabled by default")
	}
	if stats.Paused || stats.EmergencyMode {
		t.Errorf("expected clean flags, got paused=%t emergency=%t", stats.Paused, stats.EmergencyMode)
	}
	if stats.Height != 100 {
		t.Errorf("Height = %d, want 100", stats.Height)
	}
}

func TestStartPreservesExistingGlobals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.UpdateValue(ctx, "alice", 7); err != nil {
		t.Fatalf("UpdateValue: %v", err)
	}
	if err := env.engine.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// A restart over the same store must not reset counters or the owner.
	restarted := chainstate.New(env.store, env.bank,
		chainstate.WithClock(env.clock),
		chainstate.WithParams(testParams()),
		chainstate.WithOwner("usurper"),
	)
	if err := restarted.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer restarted.Stop()

	stats, err := restarted.GetContractStats(ctx)
	if err != nil {
		t.Fatalf("GetContractStats: %v", err)
	}
	if stats.Owner != "owner" {
		t.Errorf("Owner after restart = %q, want %q", stats.Owner, "owner")
	}
	if stats.TotalUpdates != 1 || stats.TotalUsers != 1 {
		t.Errorf("counters after restart: updates=%d users=%d, want 1/1", stats.TotalUpdates, stats.TotalUsers)
	}
}

func TestOperationsRequireStart(t *testing.T) {
	e := chainstate.New(memory.New(), bank.NewMemory())
	ctx := context.Background()

	if err := e.UpdateValue(ctx, "alice", 1); !errors.Is(err, chainstate.ErrNotStarted) {
		t.Errorf("UpdateValue error = %v, want %v", err, chainstate.ErrNotStarted)
	}
	if _, err := e.CreateBatch(ctx, "alice", 200, nil); !errors.Is(err, chainstate.ErrNotStarted) {
		t.Errorf("CreateBatch error = %v, want %v", err, chainstate.ErrNotStarted)
	}
	if err := e.PauseContract(ctx, "owner"); !errors.Is(err, chainstate.ErrNotStarted) {
		t.Errorf("PauseContract error = %v, want %v", err, chainstate.ErrNotStarted)
	}
}

func TestDeterministicReplay(t *testing.T) {
	// Two engines fed the identical call sequence must end in the
	// identical state.
	run := func() (*chainstate.ContractStats, uint64) {
		env := newTestEnv(t)
		ctx := context.Background()

		lines := []*chainstate.TransferLine{
			{Recipient: "bob", Amount: 40},
			{Recipient: "carol", Amount: 60},
		}
		b, err := env.engine.CreateBatch(ctx, "alice", 150, lines)
		if err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
		env.clock.Advance(50)
		if _, err := env.engine.ExecuteBatch(ctx, "bob", b.ID); err != nil {
			t.Fatalf("ExecuteBatch: %v", err)
		}
		if err := env.engine.UpdateValue(ctx, "alice", 11); err != nil {
			t.Fatalf("UpdateValue: %v", err)
		}
		if err := env.engine.UpdateValue(ctx, "bob", 22); err != nil {
			t.Fatalf("UpdateValue: %v", err)
		}

		stats, err := env.engine.GetContractStats(ctx)
		if err != nil {
			t.Fatalf("GetContractStats: %v", err)
		}
		value, err := env.engine.GetValue(ctx, "alice")
		if err != nil {
			t.Fatalf("GetValue: %v", err)
		}
		return stats, value
	}

	firstStats, firstValue := run()
	secondStats, secondValue := run()

	if *firstStats != *secondStats {
		t.Errorf("stats diverged:\n first: %+v\nsecond: %+v", firstStats, secondStats)
	}
	if firstValue != secondValue {
		t.Errorf("values diverged: %d vs %d", firstValue, secondValue)
	}
}
