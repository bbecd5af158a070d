package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onBatchCreated    []OnBatchCreated
	onBatchExecuted   []OnBatchExecuted
	onBatchCanceled   []OnBatchCanceled
	onValueUpdated    []OnValueUpdated
	onQuotaExceeded   []OnQuotaExceeded
	onPremiumUpgraded []OnPremiumUpgraded
	onBackupCreated   []OnBackupCreated
	onBackupRestored  []OnBackupRestored
	onAccessGranted   []OnAccessGranted
	onAccessRevoked   []OnAccessRevoked
	onAdminAction     []OnAdminAction
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnBatchCreated); ok {
		r.onBatchCreated = append(r.onBatchCreated, v)
	}
	if v, ok := p.(OnBatchExecuted); ok {
		r.onBatchExecuted = append(r.onBatchExecuted, v)
	}
	if v, ok := p.(OnBatchCanceled); ok {
		r.onBatchCanceled = append(r.onBatchCanceled, v)
	}
	if v, ok := p.(OnValueUpdated); ok {
		r.onValueUpdated = append(r.onValueUpdated, v)
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
	}
	if v, ok := p.(OnPremiumUpgraded); ok {
		r.onPremiumUpgraded = append(r.onPremiumUpgraded, v)
	}
	if v, ok := p.(OnBackupCreated); ok {
		r.onBackupCreated = append(r.onBackupCreated, v)
	}
	if v, ok := p.(OnBackupRestored); ok {
		r.onBackupRestored = append(r.onBackupRestored, v)
	}
	if v, ok := p.(OnAccessGranted); ok {
		r.onAccessGranted = append(r.onAccessGranted, v)
	}
	if v, ok := p.(OnAccessRevoked); ok {
		r.onAccessRevoked = append(r.onAccessRevoked, v)
	}
	if v, ok := p.(OnAdminAction); ok {
		r.onAdminAction = append(r.onAdminAction, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnBatchCreated)(nil)).Elem(), "OnBatchCreated")
	checkInterface(reflect.TypeOf((*OnBatchExecuted)(nil)).Elem(), "OnBatchExecuted")
	checkInterface(reflect.TypeOf((*OnBatchCanceled)(nil)).Elem(), "OnBatchCanceled")
	checkInterface(reflect.TypeOf((*OnValueUpdated)(nil)).Elem(), "OnValueUpdated")
	checkInterface(reflect.TypeOf((*OnQuotaExceeded)(nil)).Elem(), "OnQuotaExceeded")
	checkInterface(reflect.TypeOf((*OnPremiumUpgraded)(nil)).Elem(), "OnPremiumUpgraded")
	checkInterface(reflect.TypeOf((*OnAdminAction)(nil)).Elem(), "OnAdminAction")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBatchCreated emits a batch created event.
func (r *Registry) EmitBatchCreated(ctx context.Context, b interface{}) {
	r.mu.RLock()
	plugins := r.onBatchCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBatchCreated(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBatchCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBatchExecuted emits a batch executed event.
func (r *Registry) EmitBatchExecuted(ctx context.Context, b interface{}) {
	r.mu.RLock()
	plugins := r.onBatchExecuted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBatchExecuted(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBatchExecuted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBatchCanceled emits a batch canceled event.
func (r *Registry) EmitBatchCanceled(ctx context.Context, b interface{}) {
	r.mu.RLock()
	plugins := r.onBatchCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBatchCanceled(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBatchCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitValueUpdated emits a value updated event.
func (r *Registry) EmitValueUpdated(ctx context.Context, account string, oldValue, newValue uint64) {
	r.mu.RLock()
	plugins := r.onValueUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnValueUpdated(ctx, account, oldValue, newValue)
		}); err != nil {
			r.logger.Warn("plugin OnValueUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, account string, used, limit uint64) {
	r.mu.RLock()
	plugins := r.onQuotaExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnQuotaExceeded(ctx, account, used, limit)
		}); err != nil {
			r.logger.Warn("plugin OnQuotaExceeded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPremiumUpgraded emits a premium upgraded event.
func (r *Registry) EmitPremiumUpgraded(ctx context.Context, account string, expiryHeight uint64) {
	r.mu.RLock()
	plugins := r.onPremiumUpgraded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPremiumUpgraded(ctx, account, expiryHeight)
		}); err != nil {
			r.logger.Warn("plugin OnPremiumUpgraded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBackupCreated emits a backup created event.
func (r *Registry) EmitBackupCreated(ctx context.Context, account string, height uint64) {
	r.mu.RLock()
	plugins := r.onBackupCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBackupCreated(ctx, account, height)
		}); err != nil {
			r.logger.Warn("plugin OnBackupCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBackupRestored emits a backup restored event.
func (r *Registry) EmitBackupRestored(ctx context.Context, account string, height uint64) {
	r.mu.RLock()
	plugins := r.onBackupRestored
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBackupRestored(ctx, account, height)
		}); err != nil {
			r.logger.Warn("plugin OnBackupRestored failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccessGranted emits an access granted event.
func (r *Registry) EmitAccessGranted(ctx context.Context, owner, accessor string) {
	r.mu.RLock()
	plugins := r.onAccessGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccessGranted(ctx, owner, accessor)
		}); err != nil {
			r.logger.Warn("plugin OnAccessGranted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccessRevoked emits an access revoked event.
func (r *Registry) EmitAccessRevoked(ctx context.Context, owner, accessor string) {
	r.mu.RLock()
	plugins := r.onAccessRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccessRevoked(ctx, owner, accessor)
		}); err != nil {
			r.logger.Warn("plugin OnAccessRevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAdminAction emits a governance action event.
func (r *Registry) EmitAdminAction(ctx context.Context, action, target string) {
	r.mu.RLock()
	plugins := r.onAdminAction
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAdminAction(ctx, action, target)
		}); err != nil {
			r.logger.Warn("plugin OnAdminAction failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the state-transition pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
