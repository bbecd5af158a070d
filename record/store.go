package record

import (
	"context"

	"github.com/xraph/chainstate/types"
)

// Store is the persistence contract for the rate-limited store entities.
//
// GetCounter and GetSettings never report absence: a missing row comes back
// as the zero-valued record for that key. The implicit-default semantics of
// the daily counter reset and of unset user settings live here, in the data
// access layer, not in callers.
type Store interface {
	GetRecord(ctx context.Context, account types.Account) (*UserRecord, error)
	PutRecord(ctx context.Context, r *UserRecord) error

	GetCounter(ctx context.Context, account types.Account, day uint64) (*DailyCounter, error)
	PutCounter(ctx context.Context, c *DailyCounter) error

	GetSettings(ctx context.Context, account types.Account) (*UserSettings, error)
	PutSettings(ctx context.Context, s *UserSettings) error

	PutHistory(ctx context.Context, h *HistoryEntry) error
	GetHistory(ctx context.Context, account types.Account, height uint64) (*HistoryEntry, error)
	ListHistory(ctx context.Context, account types.Account) ([]*HistoryEntry, error)

	GetStat(ctx context.Context, day uint64) (*DailyStat, error)
	PutStat(ctx context.Context, s *DailyStat) error

	GetAccess(ctx context.Context, owner, accessor types.Account) (*SharedAccess, error)
	PutAccess(ctx context.Context, a *SharedAccess) error
	DeleteAccess(ctx context.Context, owner, accessor types.Account) error
}
