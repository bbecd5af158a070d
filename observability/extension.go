// Package observability provides a metrics extension for ChainState that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/chainstate/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin            = (*MetricsExtension)(nil)
	_ plugin.OnInit            = (*MetricsExtension)(nil)
	_ plugin.OnBatchCreated    = (*MetricsExtension)(nil)
	_ plugin.OnBatchExecuted   = (*MetricsExtension)(nil)
	_ plugin.OnBatchCanceled   = (*MetricsExtension)(nil)
	_ plugin.OnValueUpdated    = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded   = (*MetricsExtension)(nil)
	_ plugin.OnPremiumUpgraded = (*MetricsExtension)(nil)
	_ plugin.OnBackupCreated   = (*MetricsExtension)(nil)
	_ plugin.OnBackupRestored  = (*MetricsExtension)(nil)
	_ plugin.OnAccessGranted   = (*MetricsExtension)(nil)
	_ plugin.OnAccessRevoked   = (*MetricsExtension)(nil)
	_ plugin.OnAdminAction     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track state metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Batch metrics
	BatchCreated  Counter
	BatchExecuted Counter
	BatchCanceled Counter
	BatchSize     Histogram

	// Value store metrics
	ValueUpdates    Counter
	QuotaRejections Counter
	PremiumUpgrades Counter
	BackupsCreated  Counter
	BackupsRestored Counter

	// Access sharing metrics
	GrantsCreated Counter
	GrantsRevoked Counter

	// Governance metrics
	AdminActions Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Batch metrics
		BatchCreated:  factory.Counter("chainstate.batch.created"),
		BatchExecuted: factory.Counter("chainstate.batch.executed"),
		BatchCanceled: factory.Counter("chainstate.batch.canceled"),
		BatchSize:     factory.Histogram("chainstate.batch.size"),

		// Value store metrics
		ValueUpdates:    factory.Counter("chainstate.value.updates"),
		QuotaRejections: factory.Counter("chainstate.quota.rejections"),
		PremiumUpgrades: factory.Counter("chainstate.premium.upgrades"),
		BackupsCreated:  factory.Counter("chainstate.backup.created"),
		BackupsRestored: factory.Counter("chainstate.backup.restored"),

		// Access sharing metrics
		GrantsCreated: factory.Counter("chainstate.grant.created"),
		GrantsRevoked: factory.Counter("chainstate.grant.revoked"),

		// Governance metrics
		AdminActions: factory.Counter("chainstate.admin.actions"),

		// Error metrics
		StoreErrors:  factory.Counter("chainstate.store.errors"),
		PluginErrors: factory.Counter("chainstate.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Batch scheduler hooks
// ──────────────────────────────────────────────────

// OnBatchCreated implements plugin.OnBatchCreated.
func (m *MetricsExtension) OnBatchCreated(_ context.Context, _ interface{}) error {
	m.BatchCreated.Inc()
	return nil
}

// OnBatchExecuted implements plugin.OnBatchExecuted.
func (m *MetricsExtension) OnBatchExecuted(_ context.Context, _ interface{}) error {
	m.BatchExecuted.Inc()
	return nil
}

// OnBatchCanceled implements plugin.OnBatchCanceled.
func (m *MetricsExtension) OnBatchCanceled(_ context.Context, _ interface{}) error {
	m.BatchCanceled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Value store hooks
// ──────────────────────────────────────────────────

// OnValueUpdated implements plugin.OnValueUpdated.
func (m *MetricsExtension) OnValueUpdated(_ context.Context, _ string, _, _ uint64) error {
	m.ValueUpdates.Inc()
	return nil
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ string, _, _ uint64) error {
	m.QuotaRejections.Inc()
	return nil
}

// OnPremiumUpgraded implements plugin.OnPremiumUpgraded.
func (m *MetricsExtension) OnPremiumUpgraded(_ context.Context, _ string, _ uint64) error {
	m.PremiumUpgrades.Inc()
	return nil
}

// OnBackupCreated implements plugin.OnBackupCreated.
func (m *MetricsExtension) OnBackupCreated(_ context.Context, _ string, _ uint64) error {
	m.BackupsCreated.Inc()
	return nil
}

// OnBackupRestored implements plugin.OnBackupRestored.
func (m *MetricsExtension) OnBackupRestored(_ context.Context, _ string, _ uint64) error {
	m.BackupsRestored.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Access sharing hooks
// ──────────────────────────────────────────────────

// OnAccessGranted implements plugin.OnAccessGranted.
func (m *MetricsExtension) OnAccessGranted(_ context.Context, _, _ string) error {
	m.GrantsCreated.Inc()
	return nil
}

// OnAccessRevoked implements plugin.OnAccessRevoked.
func (m *MetricsExtension) OnAccessRevoked(_ context.Context, _, _ string) error {
	m.GrantsRevoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnAdminAction implements plugin.OnAdminAction.
func (m *MetricsExtension) OnAdminAction(_ context.Context, _, _ string) error {
	m.AdminActions.Inc()
	return nil
}
