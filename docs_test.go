package chainstate_test

import (
	"context"
	"log/slog"
	"testing"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/clock"
	"github.com/xraph/chainstate/store/memory"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package doc
	t.Run("QuickStartExample", func(t *testing.T) {
		// Initialize store and ledger (memory for demo, bolt in production)
		st := memory.New()
		bk := bank.NewMemory()

		blocks := clock.NewManual(1)

		// Create engine
		eng := chainstate.New(st, bk,
			chainstate.WithLogger(slog.Default()),
			chainstate.WithClock(blocks),
			chainstate.WithOwner("admin"),
		)

		// Start the engine (migrates the store, seeds global state)
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Fund a creator so the examples below have something to spend.
		if err := bk.Mint("alice", 1000); err != nil {
			t.Fatal(err)
		}

		// Schedule a payment batch; the total is escrowed at creation.
		height := eng.Height()
		b, err := eng.CreateBatch(ctx, "alice", height+10, []*batch.TransferLine{
			{Recipient: "bob", Amount: 100},
			{Recipient: "carol", Amount: 200},
		})
		if err != nil {
			t.Fatal(err)
		}

		// Once the height arrives, anyone may trigger execution.
		blocks.Advance(10)
		if _, err := eng.ExecuteBatch(ctx, "alice", b.ID); err != nil {
			t.Fatal(err)
		}

		// The value store gives every account a rate-limited slot.
		if err := eng.UpdateValue(ctx, "alice", 42); err != nil {
			t.Fatal(err)
		}
		v, err := eng.GetValue(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if v != 42 {
			t.Fatalf("expected value 42, got %d", v)
		}
	})

	// Test the governance example: pause, resume, inspect
	t.Run("GovernanceExample", func(t *testing.T) {
		eng := chainstate.New(memory.New(), bank.NewMemory(),
			chainstate.WithOwner("admin"),
		)

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		if err := eng.PauseContract(ctx, "admin"); err != nil {
			t.Fatal(err)
		}
		if err := eng.ResumeContract(ctx, "admin"); err != nil {
			t.Fatal(err)
		}

		stats, err := eng.GetContractStats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Paused {
			t.Fatal("expected contract resumed")
		}
	})
}
