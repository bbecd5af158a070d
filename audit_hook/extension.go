// Package audithook bridges ChainState lifecycle events to an external
// audit trail backend.
//
// The engine already keeps its own append-only audit log inside the
// store; this package is for forwarding the same events to an
// organization-wide trail. It defines a local Recorder interface so the
// package does not import any concrete backend; callers inject a
// RecorderFunc adapter at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/chainstate/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Extension)(nil)
	_ plugin.OnBatchCreated    = (*Extension)(nil)
	_ plugin.OnBatchExecuted   = (*Extension)(nil)
	_ plugin.OnBatchCanceled   = (*Extension)(nil)
	_ plugin.OnValueUpdated    = (*Extension)(nil)
	_ plugin.OnQuotaExceeded   = (*Extension)(nil)
	_ plugin.OnPremiumUpgraded = (*Extension)(nil)
	_ plugin.OnBackupCreated   = (*Extension)(nil)
	_ plugin.OnBackupRestored  = (*Extension)(nil)
	_ plugin.OnAccessGranted   = (*Extension)(nil)
	_ plugin.OnAccessRevoked   = (*Extension)(nil)
	_ plugin.OnAdminAction     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. Defined
// locally so this package carries no backend dependency; callers inject
// the concrete trail at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is the wire representation handed to the Recorder.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ChainState lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Batch scheduler hooks
// ──────────────────────────────────────────────────

// OnBatchCreated implements plugin.OnBatchCreated.
func (e *Extension) OnBatchCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionBatchCreated, SeverityInfo, OutcomeSuccess,
		ResourceBatch, "", CategoryPayment, nil,
		"event", "batch_created",
	)
}

// OnBatchExecuted implements plugin.OnBatchExecuted.
func (e *Extension) OnBatchExecuted(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionBatchExecuted, SeverityInfo, OutcomeSuccess,
		ResourceBatch, "", CategoryPayment, nil,
		"event", "batch_executed",
	)
}

// OnBatchCanceled implements plugin.OnBatchCanceled.
func (e *Extension) OnBatchCanceled(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionBatchCanceled, SeverityWarning, OutcomeSuccess,
		ResourceBatch, "", CategoryPayment, nil,
		"event", "batch_canceled",
	)
}

// ──────────────────────────────────────────────────
// Value store hooks
// ──────────────────────────────────────────────────

// OnValueUpdated implements plugin.OnValueUpdated.
func (e *Extension) OnValueUpdated(ctx context.Context, account string, oldValue, newValue uint64) error {
	return e.record(ctx, ActionValueUpdated, SeverityInfo, OutcomeSuccess,
		ResourceRecord, account, CategoryStorage, nil,
		"account", account,
		"old_value", oldValue,
		"new_value", newValue,
	)
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (e *Extension) OnQuotaExceeded(ctx context.Context, account string, used, limit uint64) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceRecord, account, CategoryStorage, nil,
		"account", account,
		"used", used,
		"limit", limit,
	)
}

// OnPremiumUpgraded implements plugin.OnPremiumUpgraded.
func (e *Extension) OnPremiumUpgraded(ctx context.Context, account string, expiryHeight uint64) error {
	return e.record(ctx, ActionPremiumUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceRecord, account, CategoryStorage, nil,
		"account", account,
		"expires_at", expiryHeight,
	)
}

// OnBackupCreated implements plugin.OnBackupCreated.
func (e *Extension) OnBackupCreated(ctx context.Context, account string, height uint64) error {
	return e.record(ctx, ActionBackupCreated, SeverityInfo, OutcomeSuccess,
		ResourceBackup, account, CategoryStorage, nil,
		"account", account,
		"height", height,
	)
}

// OnBackupRestored implements plugin.OnBackupRestored.
func (e *Extension) OnBackupRestored(ctx context.Context, account string, height uint64) error {
	return e.record(ctx, ActionBackupRestored, SeverityWarning, OutcomeSuccess,
		ResourceBackup, account, CategoryStorage, nil,
		"account", account,
		"backup_height", height,
	)
}

// ──────────────────────────────────────────────────
// Access sharing hooks
// ──────────────────────────────────────────────────

// OnAccessGranted implements plugin.OnAccessGranted.
func (e *Extension) OnAccessGranted(ctx context.Context, owner, accessor string) error {
	return e.record(ctx, ActionAccessGranted, SeverityInfo, OutcomeSuccess,
		ResourceGrant, owner, CategoryAccess, nil,
		"owner", owner,
		"accessor", accessor,
	)
}

// OnAccessRevoked implements plugin.OnAccessRevoked.
func (e *Extension) OnAccessRevoked(ctx context.Context, owner, accessor string) error {
	return e.record(ctx, ActionAccessRevoked, SeverityInfo, OutcomeSuccess,
		ResourceGrant, owner, CategoryAccess, nil,
		"owner", owner,
		"accessor", accessor,
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnAdminAction implements plugin.OnAdminAction.
func (e *Extension) OnAdminAction(ctx context.Context, action, target string) error {
	return e.record(ctx, ActionAdmin, SeverityCritical, OutcomeSuccess,
		ResourceContract, target, CategoryGovernance, nil,
		"admin_action", action,
		"target", target,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
