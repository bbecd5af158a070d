// Package plugin provides an extensible plugin system for the ChainState
// engine. Plugins can hook into lifecycle events of both the batch
// scheduler and the rate-limited store to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Batch scheduler hooks
// ──────────────────────────────────────────────────

// OnBatchCreated is called when a payment batch is scheduled.
type OnBatchCreated interface {
	Plugin
	OnBatchCreated(ctx context.Context, b interface{}) error
}

// OnBatchExecuted is called when a payment batch pays out.
type OnBatchExecuted interface {
	Plugin
	OnBatchExecuted(ctx context.Context, b interface{}) error
}

// OnBatchCanceled is called when a pending batch is canceled and refunded.
type OnBatchCanceled interface {
	Plugin
	OnBatchCanceled(ctx context.Context, b interface{}) error
}

// ──────────────────────────────────────────────────
// Rate-limited store hooks
// ──────────────────────────────────────────────────

// OnValueUpdated is called after a user's stored value changes.
type OnValueUpdated interface {
	Plugin
	OnValueUpdated(ctx context.Context, account string, oldValue, newValue uint64) error
}

// OnQuotaExceeded is called when an update is rejected by the daily limit.
type OnQuotaExceeded interface {
	Plugin
	OnQuotaExceeded(ctx context.Context, account string, used, limit uint64) error
}

// OnPremiumUpgraded is called when a user buys or extends premium.
type OnPremiumUpgraded interface {
	Plugin
	OnPremiumUpgraded(ctx context.Context, account string, expiryHeight uint64) error
}

// OnBackupCreated is called when a backup snapshot is written.
type OnBackupCreated interface {
	Plugin
	OnBackupCreated(ctx context.Context, account string, height uint64) error
}

// OnBackupRestored is called when a user restores from a snapshot.
type OnBackupRestored interface {
	Plugin
	OnBackupRestored(ctx context.Context, account string, height uint64) error
}

// OnAccessGranted is called when a sharing grant is created or replaced.
type OnAccessGranted interface {
	Plugin
	OnAccessGranted(ctx context.Context, owner, accessor string) error
}

// OnAccessRevoked is called when a sharing grant is removed.
type OnAccessRevoked interface {
	Plugin
	OnAccessRevoked(ctx context.Context, owner, accessor string) error
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnAdminAction is called for every owner-gated governance operation
// (pause, resume, fee toggle, freeze, emergency stop, ownership change).
type OnAdminAction interface {
	Plugin
	OnAdminAction(ctx context.Context, action string, target string) error
}
