// Package record defines the rate-limited per-user store entities: user
// records, rolling daily counters, settings, backup history, aggregate
// statistics, and access-sharing grants.
package record

import "github.com/xraph/chainstate/types"

// UserRecord is a user's stored value plus bookkeeping. Created on the
// first update, mutated on every subsequent one, never deleted.
type UserRecord struct {
	types.Entity
	Account            types.Account `json:"account"`
	Value              uint64        `json:"value"`
	LastUpdated        uint64        `json:"last_updated"`
	TotalUpdates       uint64        `json:"total_updates"`
	Premium            bool          `json:"premium"`
	SubscriptionExpiry uint64        `json:"subscription_expiry"`
}

// PremiumActive reports whether the record holds a non-expired premium
// subscription at the given height.
func (r *UserRecord) PremiumActive(height uint64) bool {
	return r.Premium && height < r.SubscriptionExpiry
}

// DailyCounter tracks one account's update count within a single day
// window. Counters are keyed by day index, so a new day starts at an
// implicit zero: absence of a counter means count 0.
type DailyCounter struct {
	Account    types.Account `json:"account"`
	Day        uint64        `json:"day"`
	Count      uint64        `json:"count"`
	LastUpdate uint64        `json:"last_update"`
}

// UserSettings holds a user's preferences. Absence of a stored record
// implies the zero value, whose fields all mean "use defaults".
type UserSettings struct {
	Account       types.Account `json:"account"`
	DailyLimit    uint64        `json:"daily_limit"` // 0 = use the engine default
	AutoBackup    bool          `json:"auto_backup"`
	Notifications bool          `json:"notifications"`
	Frozen        bool          `json:"frozen"` // admin-controlled, not user-settable
}

// UpdateType tags how a history entry came to exist.
type UpdateType string

const (
	UpdateManual  UpdateType = "manual"  // explicit backup request
	UpdateAuto    UpdateType = "auto"    // auto-backup on value update
	UpdateRestore UpdateType = "restore" // written back by a restore
)

// HistoryEntry is an append-only backup snapshot keyed by (account, height).
// Two snapshots of one account in the same block overwrite each other.
type HistoryEntry struct {
	Account types.Account `json:"account"`
	Height  uint64        `json:"height"`
	Value   uint64        `json:"value"`
	Type    UpdateType    `json:"type"`
}

// DailyStat aggregates activity for one day window. Counters only ever
// accumulate; nothing decrements them.
type DailyStat struct {
	Day            uint64 `json:"day"`
	TotalUpdates   uint64 `json:"total_updates"`
	UniqueUsers    uint64 `json:"unique_users"`
	PremiumUpdates uint64 `json:"premium_updates"`
}

// SharedAccess is a grant from an owner to an accessor. Grants are keyed
// per (owner, accessor) pair, overwritten by re-granting, and implicitly
// void once ExpiresAt is no longer in the future.
type SharedAccess struct {
	Owner     types.Account `json:"owner"`
	Accessor  types.Account `json:"accessor"`
	Read      bool          `json:"read"`
	Write     bool          `json:"write"`
	ExpiresAt uint64        `json:"expires_at"`
}

// Active reports whether the grant is still live at the given height.
func (s *SharedAccess) Active(height uint64) bool {
	return s.ExpiresAt > height
}

// DayIndex buckets a block height into a day window.
// blocksPerDay must be nonzero; callers get it from engine parameters.
func DayIndex(height, blocksPerDay uint64) uint64 {
	return height / blocksPerDay
}
