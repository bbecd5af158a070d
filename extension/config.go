package extension

// Config holds the ChainState extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.chainstate" or "chainstate" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DataPath is the bbolt state file. When set and no store was provided
	// programmatically, the extension opens a bolt store there; when empty,
	// it falls back to an in-memory store.
	DataPath string `json:"data_path" mapstructure:"data_path" yaml:"data_path"`

	// Owner is the initial contract owner account. Only takes effect on
	// the first start against a fresh store.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// MaxBatchTransfers caps transfer lines per payment batch (default: 50).
	MaxBatchTransfers uint64 `json:"max_batch_transfers" mapstructure:"max_batch_transfers" yaml:"max_batch_transfers"`

	// MaxBatchUpdates caps items per bulk value update (default: 10).
	MaxBatchUpdates uint64 `json:"max_batch_updates" mapstructure:"max_batch_updates" yaml:"max_batch_updates"`

	// DefaultDailyLimit is the free-tier daily update quota (default: 5).
	DefaultDailyLimit uint64 `json:"default_daily_limit" mapstructure:"default_daily_limit" yaml:"default_daily_limit"`

	// MaxCustomDailyLimit bounds user-chosen daily limits (default: 100).
	MaxCustomDailyLimit uint64 `json:"max_custom_daily_limit" mapstructure:"max_custom_daily_limit" yaml:"max_custom_daily_limit"`

	// PremiumMultiplier scales the quota for premium users (default: 2).
	PremiumMultiplier uint64 `json:"premium_multiplier" mapstructure:"premium_multiplier" yaml:"premium_multiplier"`

	// BlocksPerDay converts block heights into day windows (default: 17280).
	BlocksPerDay uint64 `json:"blocks_per_day" mapstructure:"blocks_per_day" yaml:"blocks_per_day"`

	// UpdateFee is charged per value update when fees are enabled (default: 1).
	UpdateFee uint64 `json:"update_fee" mapstructure:"update_fee" yaml:"update_fee"`

	// MaxPremiumDays bounds a premium subscription purchase (default: 365).
	MaxPremiumDays uint64 `json:"max_premium_days" mapstructure:"max_premium_days" yaml:"max_premium_days"`

	// ContractAccount holds escrowed batch funds (default: "chainstate.vault").
	ContractAccount string `json:"contract_account" mapstructure:"contract_account" yaml:"contract_account"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config mirroring the engine's default parameters.
func DefaultConfig() Config {
	return Config{
		MaxBatchTransfers:   50,
		MaxBatchUpdates:     10,
		DefaultDailyLimit:   5,
		MaxCustomDailyLimit: 100,
		PremiumMultiplier:   2,
		BlocksPerDay:        17280,
		UpdateFee:           1,
		MaxPremiumDays:      365,
		ContractAccount:     "chainstate.vault",
	}
}
