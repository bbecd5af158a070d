// Package audit defines the append-only audit log shared by both
// subsystems. Every state-changing operation appends exactly one event
// inside the same transactional scope as its mutations, so the log is a
// faithful total order of what actually committed.
package audit

import (
	"github.com/xraph/chainstate/id"
	"github.com/xraph/chainstate/types"
)

// Action identifies what kind of state change an event records.
type Action string

// Action constants for audit events.
const (
	// Batch scheduler actions
	ActionBatchCreated  Action = "batch.created"
	ActionBatchExecuted Action = "batch.executed"
	ActionBatchCanceled Action = "batch.canceled"

	// Rate-limited store actions
	ActionValueUpdated    Action = "value.updated"
	ActionPremiumUpgraded Action = "premium.upgraded"
	ActionSettingsUpdated Action = "settings.updated"
	ActionBackupCreated   Action = "backup.created"
	ActionBackupRestored  Action = "backup.restored"
	ActionAccessGranted   Action = "access.granted"
	ActionAccessRevoked   Action = "access.revoked"

	// Governance actions
	ActionContractPaused  Action = "contract.paused"
	ActionContractResumed Action = "contract.resumed"
	ActionFeesToggled     Action = "fees.toggled"
	ActionUserFrozen      Action = "user.frozen"
	ActionUserUnfrozen    Action = "user.unfrozen"
	ActionEmergencyStop   Action = "emergency.stop"
	ActionOwnerChanged    Action = "owner.changed"
)

// Event is one append-only audit record. ID is the monotonic sequence
// number assigned under the global event counter; Ref is a globally unique
// tag for cross-system correlation. Events are never mutated or deleted.
type Event struct {
	ID      uint64        `json:"id"`
	Ref     id.ID         `json:"ref"`
	Account types.Account `json:"account"`
	Action  Action        `json:"action"`
	Height  uint64        `json:"height"`
	Details string        `json:"details,omitempty"`
}
