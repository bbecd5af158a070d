package extension

import (
	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/plugin"
	"github.com/xraph/chainstate/store"
)

// Option configures the ChainState Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedger sets the bank ledger for the engine.
func WithLedger(l bank.Ledger) Option {
	return func(e *Extension) {
		e.ledger = l
	}
}

// WithEngineOption passes a chainstate.Option through to the underlying engine.
func WithEngineOption(opt chainstate.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, chainstate.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDataPath sets the bbolt state file path.
func WithDataPath(path string) Option {
	return func(e *Extension) { e.config.DataPath = path }
}

// WithOwner sets the initial contract owner account.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
