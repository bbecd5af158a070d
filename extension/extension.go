// Package extension provides the Forge extension adapter for ChainState.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.chainstate" or
// "chainstate" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/store/bolt"
	"github.com/xraph/chainstate/store/memory"
	"github.com/xraph/chainstate/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "chainstate"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Deterministic batch-payment and rate-limited value store engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts ChainState as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *chainstate.Engine
	store      store.Store
	ledger     bank.Ledger
	engineOpts []chainstate.Option
}

// New creates a new ChainState Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine instance.
// This is nil until Register is called.
func (e *Extension) Engine() *chainstate.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Resolve a store: programmatic > bolt file from config > memory.
	if e.store == nil {
		if e.config.DataPath != "" {
			st, err := bolt.Open(e.config.DataPath)
			if err != nil {
				return err
			}
			e.store = st
		} else {
			e.store = memory.New()
		}
	}

	// Use the in-memory ledger unless one was provided programmatically.
	if e.ledger == nil {
		e.ledger = bank.NewMemory()
	}

	eng := chainstate.New(e.store, e.ledger, e.buildEngineOpts()...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*chainstate.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("chainstate: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("chainstate: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs chainstate.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []chainstate.Option {
	opts := make([]chainstate.Option, 0, len(e.engineOpts)+2)

	params := chainstate.DefaultParams()
	params.MaxBatchTransfers = e.config.MaxBatchTransfers
	params.MaxBatchUpdates = e.config.MaxBatchUpdates
	params.DefaultDailyLimit = e.config.DefaultDailyLimit
	params.MaxCustomDailyLimit = e.config.MaxCustomDailyLimit
	params.PremiumMultiplier = e.config.PremiumMultiplier
	params.BlocksPerDay = e.config.BlocksPerDay
	params.UpdateFee = types.Amount(e.config.UpdateFee)
	params.MaxPremiumDays = e.config.MaxPremiumDays
	params.ContractAccount = types.Account(e.config.ContractAccount)
	opts = append(opts, chainstate.WithParams(params))

	if e.config.Owner != "" {
		opts = append(opts, chainstate.WithOwner(types.Account(e.config.Owner)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("chainstate: configuration is required but not found in config files; " +
				"ensure 'extensions.chainstate' or 'chainstate' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("chainstate: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("data_path", e.config.DataPath),
		forge.F("owner", e.config.Owner),
		forge.F("default_daily_limit", e.config.DefaultDailyLimit),
		forge.F("blocks_per_day", e.config.BlocksPerDay),
		forge.F("update_fee", e.config.UpdateFee),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.chainstate" first (namespaced pattern).
	if cm.IsSet("extensions.chainstate") {
		if err := cm.Bind("extensions.chainstate", &cfg); err == nil {
			e.Logger().Debug("chainstate: loaded config from file",
				forge.F("key", "extensions.chainstate"),
			)
			return cfg, true
		}
		e.Logger().Warn("chainstate: failed to bind extensions.chainstate config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "chainstate" key.
	if cm.IsSet("chainstate") {
		if err := cm.Bind("chainstate", &cfg); err == nil {
			e.Logger().Debug("chainstate: loaded config from file",
				forge.F("key", "chainstate"),
			)
			return cfg, true
		}
		e.Logger().Warn("chainstate: failed to bind chainstate config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxBatchTransfers == 0 {
		cfg.MaxBatchTransfers = defaults.MaxBatchTransfers
	}
	if cfg.MaxBatchUpdates == 0 {
		cfg.MaxBatchUpdates = defaults.MaxBatchUpdates
	}
	if cfg.DefaultDailyLimit == 0 {
		cfg.DefaultDailyLimit = defaults.DefaultDailyLimit
	}
	if cfg.MaxCustomDailyLimit == 0 {
		cfg.MaxCustomDailyLimit = defaults.MaxCustomDailyLimit
	}
	if cfg.PremiumMultiplier == 0 {
		cfg.PremiumMultiplier = defaults.PremiumMultiplier
	}
	if cfg.BlocksPerDay == 0 {
		cfg.BlocksPerDay = defaults.BlocksPerDay
	}
	if cfg.UpdateFee == 0 {
		cfg.UpdateFee = defaults.UpdateFee
	}
	if cfg.MaxPremiumDays == 0 {
		cfg.MaxPremiumDays = defaults.MaxPremiumDays
	}
	if cfg.ContractAccount == "" {
		cfg.ContractAccount = defaults.ContractAccount
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.DataPath == "" && programmaticConfig.DataPath != "" {
		yamlConfig.DataPath = programmaticConfig.DataPath
	}
	if yamlConfig.Owner == "" && programmaticConfig.Owner != "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.ContractAccount == "" && programmaticConfig.ContractAccount != "" {
		yamlConfig.ContractAccount = programmaticConfig.ContractAccount
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxBatchTransfers == 0 && programmaticConfig.MaxBatchTransfers != 0 {
		yamlConfig.MaxBatchTransfers = programmaticConfig.MaxBatchTransfers
	}
	if yamlConfig.MaxBatchUpdates == 0 && programmaticConfig.MaxBatchUpdates != 0 {
		yamlConfig.MaxBatchUpdates = programmaticConfig.MaxBatchUpdates
	}
	if yamlConfig.DefaultDailyLimit == 0 && programmaticConfig.DefaultDailyLimit != 0 {
		yamlConfig.DefaultDailyLimit = programmaticConfig.DefaultDailyLimit
	}
	if yamlConfig.MaxCustomDailyLimit == 0 && programmaticConfig.MaxCustomDailyLimit != 0 {
		yamlConfig.MaxCustomDailyLimit = programmaticConfig.MaxCustomDailyLimit
	}
	if yamlConfig.PremiumMultiplier == 0 && programmaticConfig.PremiumMultiplier != 0 {
		yamlConfig.PremiumMultiplier = programmaticConfig.PremiumMultiplier
	}
	if yamlConfig.BlocksPerDay == 0 && programmaticConfig.BlocksPerDay != 0 {
		yamlConfig.BlocksPerDay = programmaticConfig.BlocksPerDay
	}
	if yamlConfig.UpdateFee == 0 && programmaticConfig.UpdateFee != 0 {
		yamlConfig.UpdateFee = programmaticConfig.UpdateFee
	}
	if yamlConfig.MaxPremiumDays == 0 && programmaticConfig.MaxPremiumDays != 0 {
		yamlConfig.MaxPremiumDays = programmaticConfig.MaxPremiumDays
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
