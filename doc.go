// Package chainstate provides a deterministic state-transition engine for Go
// applications: a scheduled batch-payment scheduler with escrow, and a
// rate-limited per-user value store with premium tiers, backups, sharing,
// and an append-only audit trail.
//
// ChainState is designed as a library, not a service. Import it directly
// into your Go application. It provides:
//
//   - Scheduled multi-recipient payment batches with escrowed funds
//   - All-or-nothing execution: every transfer line pays out or none do
//   - Per-user daily update quotas with premium multipliers
//   - Backup snapshots, point-in-time restore, and bounded access sharing
//   - Owner-gated governance: pause, fees, freezes, emergency stop
//   - Append-only audit log in global sequence order
//
// # Quick Start
//
// Create an engine with your preferred store and ledger:
//
//	import (
//	    "github.com/xraph/chainstate"
//	    "github.com/xraph/chainstate/bank"
//	    "github.com/xraph/chainstate/store/memory"
//	)
//
//	// Initialize store and ledger (memory for demo, bolt in production)
//	st := memory.New()
//	bk := bank.NewMemory()
//
//	// Create engine
//	eng := chainstate.New(st, bk,
//	    chainstate.WithOwner("admin"),
//	)
//
//	// Start the engine (migrates the store, seeds global state)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Batches schedule payments for a future block height, escrowing the total
// at creation:
//
//	b, err := eng.CreateBatch(ctx, "alice", height+10, []*batch.TransferLine{
//	    {Recipient: "bob", Amount: 100},
//	    {Recipient: "carol", Amount: 200},
//	})
//
// Once the height arrives, anyone may trigger execution:
//
//	_, err = eng.ExecuteBatch(ctx, "alice", b.ID)
//
// The value store gives every account a rate-limited slot:
//
//	err = eng.UpdateValue(ctx, "alice", 42)
//	v, err := eng.GetValue(ctx, "alice")
//
// # Determinism
//
// The engine is deterministic: all mutating operations are serialized, the
// block clock is read exactly once per operation, and every mutation runs
// in a single transactional scope against the store with ledger transfers
// ordered last. Given the same starting state, clock, and call sequence,
// two engines always converge on the same ending state.
//
// All balances and fees use unsigned integer arithmetic with explicit
// overflow checks; there is no floating point anywhere in the state path.
package chainstate
