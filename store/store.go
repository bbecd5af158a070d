// Package store defines the unified persistence contract for ChainState.
package store

import (
	"context"

	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/record"
	"github.com/xraph/chainstate/types"
)

// Globals is the process-wide singleton state: monotonic counters, the
// privileged owner account, pause flags, and aggregate totals. It is read
// and written as one record so a transactional scope can update counters
// and flags together.
type Globals struct {
	NextBatchID   uint64        `json:"next_batch_id"`
	NextEventID   uint64        `json:"next_event_id"`
	Owner         types.Account `json:"owner"`
	Paused        bool          `json:"paused"`
	EmergencyMode bool          `json:"emergency_mode"`
	FeeEnabled    bool          `json:"fee_enabled"`
	TotalUsers    uint64        `json:"total_users"`
	TotalUpdates  uint64        `json:"total_updates"`
}

// Store is the unified storage interface for all ChainState entities.
// Instead of embedding the per-entity sub-interfaces, methods are declared
// explicitly to avoid naming conflicts.
//
// Lookup-with-default contract: GetDailyCounter and GetUserSettings never
// report absence: a missing row is the zero-valued record for that key.
// Every other Get returns a not-found error from the driver's package.
//
// Atomic is the all-or-nothing scope every engine mutation runs in: the
// callback receives a transaction-bound Store, and either every write it
// performed commits or none do.
type Store interface {
	// Batch scheduler methods
	PutBatch(ctx context.Context, b *batch.Batch) error
	GetBatch(ctx context.Context, batchID uint64) (*batch.Batch, error)
	PutTransferLine(ctx context.Context, line *batch.TransferLine) error
	GetTransferLine(ctx context.Context, batchID, index uint64) (*batch.TransferLine, error)
	ListTransferLines(ctx context.Context, batchID uint64) ([]*batch.TransferLine, error)
	PutTransferCount(ctx context.Context, batchID, count uint64) error
	GetTransferCount(ctx context.Context, batchID uint64) (uint64, error)

	// User record methods
	GetUserRecord(ctx context.Context, account types.Account) (*record.UserRecord, error)
	PutUserRecord(ctx context.Context, r *record.UserRecord) error
	GetDailyCounter(ctx context.Context, account types.Account, day uint64) (*record.DailyCounter, error)
	PutDailyCounter(ctx context.Context, c *record.DailyCounter) error
	GetUserSettings(ctx context.Context, account types.Account) (*record.UserSettings, error)
	PutUserSettings(ctx context.Context, s *record.UserSettings) error

	// Backup history methods
	PutHistoryEntry(ctx context.Context, h *record.HistoryEntry) error
	GetHistoryEntry(ctx context.Context, account types.Account, height uint64) (*record.HistoryEntry, error)
	ListHistoryEntries(ctx context.Context, account types.Account) ([]*record.HistoryEntry, error)

	// Statistics methods
	GetDailyStat(ctx context.Context, day uint64) (*record.DailyStat, error)
	PutDailyStat(ctx context.Context, s *record.DailyStat) error

	// Access sharing methods
	GetSharedAccess(ctx context.Context, owner, accessor types.Account) (*record.SharedAccess, error)
	PutSharedAccess(ctx context.Context, a *record.SharedAccess) error
	DeleteSharedAccess(ctx context.Context, owner, accessor types.Account) error

	// Audit log methods
	AppendAuditEvent(ctx context.Context, e *audit.Event) error
	ListAuditEvents(ctx context.Context, opts audit.ListOpts) ([]*audit.Event, error)

	// Globals methods
	GetGlobals(ctx context.Context) (*Globals, error)
	PutGlobals(ctx context.Context, g *Globals) error

	// Atomic runs fn in an all-or-nothing scope. Writes made through the
	// Store passed to fn commit together when fn returns nil and are all
	// discarded when it returns an error. Nested Atomic calls are not
	// supported.
	Atomic(ctx context.Context, fn func(tx Store) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
