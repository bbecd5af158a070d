package chainstate

import (
	"context"
	"fmt"

	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/record"
	"github.com/xraph/chainstate/types"
)

// ──────────────────────────────────────────────────
// Read-only queries
// ──────────────────────────────────────────────────
// Queries do not take the engine mutex: each one is a point-in-time read
// against the store and never mutates state, so it cannot violate the
// serial execution of the mutating operations around it.

// GetBatch retrieves a batch by ID.
func (e *Engine) GetBatch(ctx context.Context, batchID uint64) (*batch.Batch, error) {
	return e.store.GetBatch(ctx, batchID)
}

// GetTransfer retrieves one transfer line of a batch by index.
func (e *Engine) GetTransfer(ctx context.Context, batchID, index uint64) (*batch.TransferLine, error) {
	return e.store.GetTransferLine(ctx, batchID, index)
}

// GetTransferCount returns the number of transfer lines in a batch.
func (e *Engine) GetTransferCount(ctx context.Context, batchID uint64) (uint64, error) {
	return e.store.GetTransferCount(ctx, batchID)
}

// GetBatchTransfers returns all transfer lines of a batch in index order.
func (e *Engine) GetBatchTransfers(ctx context.Context, batchID uint64) ([]*batch.TransferLine, error) {
	return e.store.ListTransferLines(ctx, batchID)
}

// IsBatchReady reports whether the batch is pending and its execution
// height has been reached.
func (e *Engine) IsBatchReady(ctx context.Context, batchID uint64) (bool, error) {
	b, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	return b.Ready(e.clock.Height()), nil
}

// NextBatchID returns the ID the next created batch will receive.
func (e *Engine) NextBatchID(ctx context.Context) (uint64, error) {
	g, err := e.store.GetGlobals(ctx)
	if err != nil {
		return 0, err
	}
	return g.NextBatchID, nil
}

// GetValue returns an account's stored value.
func (e *Engine) GetValue(ctx context.Context, account types.Account) (uint64, error) {
	r, err := e.store.GetUserRecord(ctx, account)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// GetUpdateCount returns an account's lifetime update count.
func (e *Engine) GetUpdateCount(ctx context.Context, account types.Account) (uint64, error) {
	r, err := e.store.GetUserRecord(ctx, account)
	if err != nil {
		return 0, err
	}
	return r.TotalUpdates, nil
}

// GetSharedData reads an owner's stored value on behalf of an accessor.
// The accessor needs a live read grant from the owner; a missing, expired,
// or write-only grant fails closed. Owners can always read themselves.
func (e *Engine) GetSharedData(ctx context.Context, accessor, owner types.Account) (uint64, error) {
	if accessor != owner {
		grant, err := e.store.GetSharedAccess(ctx, owner, accessor)
		if err != nil {
			if IsNotFound(err) {
				return 0, fmt.Errorf("%w: %w", ErrNotAuthorized, ErrGrantNotFound)
			}
			return 0, err
		}
		if !grant.Active(e.clock.Height()) {
			return 0, fmt.Errorf("%w: %w", ErrNotAuthorized, ErrGrantExpired)
		}
		if !grant.Read {
			return 0, fmt.Errorf("%w: grant is write-only", ErrNotAuthorized)
		}
	}

	r, err := e.store.GetUserRecord(ctx, owner)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// UserInfo is the combined per-user view returned by GetComprehensiveInfo.
type UserInfo struct {
	Record         *record.UserRecord   `json:"record"`
	Settings       *record.UserSettings `json:"settings"`
	PremiumActive  bool                 `json:"premium_active"`
	Day            uint64               `json:"day"`
	UsedToday      uint64               `json:"used_today"`
	EffectiveLimit uint64               `json:"effective_limit"`
	RemainingToday uint64               `json:"remaining_today"`
	BackupCount    int                  `json:"backup_count"`
}

// GetComprehensiveInfo assembles the full picture of one account: record,
// settings, premium status, today's quota usage, and backup count.
func (e *Engine) GetComprehensiveInfo(ctx context.Context, account types.Account) (*UserInfo, error) {
	height := e.clock.Height()

	r, err := e.store.GetUserRecord(ctx, account)
	if err != nil {
		return nil, err
	}
	settings, err := e.store.GetUserSettings(ctx, account)
	if err != nil {
		return nil, err
	}

	day := record.DayIndex(height, e.params.BlocksPerDay)
	counter, err := e.store.GetDailyCounter(ctx, account, day)
	if err != nil {
		return nil, err
	}
	backups, err := e.store.ListHistoryEntries(ctx, account)
	if err != nil {
		return nil, err
	}

	limit := e.effectiveLimit(settings, r, height)
	remaining := uint64(0)
	if counter.Count < limit {
		remaining = limit - counter.Count
	}

	return &UserInfo{
		Record:         r,
		Settings:       settings,
		PremiumActive:  r.PremiumActive(height),
		Day:            day,
		UsedToday:      counter.Count,
		EffectiveLimit: limit,
		RemainingToday: remaining,
		BackupCount:    len(backups),
	}, nil
}

// ListBackups returns an account's backup history in height order.
func (e *Engine) ListBackups(ctx context.Context, account types.Account) ([]*record.HistoryEntry, error) {
	return e.store.ListHistoryEntries(ctx, account)
}

// ContractStats is the global engine view returned by GetContractStats.
type ContractStats struct {
	Owner         types.Account `json:"owner"`
	Paused        bool          `json:"paused"`
	EmergencyMode bool          `json:"emergency_mode"`
	FeeEnabled    bool          `json:"fee_enabled"`
	TotalUsers    uint64        `json:"total_users"`
	TotalUpdates  uint64        `json:"total_updates"`
	NextBatchID   uint64        `json:"next_batch_id"`
	Height        uint64        `json:"height"`
}

// GetContractStats returns the global counters and flags.
func (e *Engine) GetContractStats(ctx context.Context) (*ContractStats, error) {
	g, err := e.store.GetGlobals(ctx)
	if err != nil {
		return nil, err
	}
	return &ContractStats{
		Owner:         g.Owner,
		Paused:        g.Paused,
		EmergencyMode: g.EmergencyMode,
		FeeEnabled:    g.FeeEnabled,
		TotalUsers:    g.TotalUsers,
		TotalUpdates:  g.TotalUpdates,
		NextBatchID:   g.NextBatchID,
		Height:        e.clock.Height(),
	}, nil
}

// GetDailyStatistics returns the aggregate statistics for one day window.
// Days with no activity read back as all zeros.
func (e *Engine) GetDailyStatistics(ctx context.Context, day uint64) (*record.DailyStat, error) {
	return e.store.GetDailyStat(ctx, day)
}

// ContractOwner returns the current contract owner.
func (e *Engine) ContractOwner(ctx context.Context) (types.Account, error) {
	g, err := e.store.GetGlobals(ctx)
	if err != nil {
		return types.NilAccount, err
	}
	return g.Owner, nil
}

// GetEventLog reads the audit log in ascending sequence order.
func (e *Engine) GetEventLog(ctx context.Context, opts audit.ListOpts) ([]*audit.Event, error) {
	return e.store.ListAuditEvents(ctx, opts)
}
