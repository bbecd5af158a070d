package chainstate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/clock"
	"github.com/xraph/chainstate/id"
	"github.com/xraph/chainstate/plugin"
	"github.com/xraph/chainstate/store"
	"github.com/xraph/chainstate/types"
)

// Params holds the tunable constants of the engine. The zero value is not
// usable; DefaultParams returns the standard configuration.
type Params struct {
	// MaxBatchTransfers caps the number of transfer lines per payment batch.
	MaxBatchTransfers uint64
	// MaxBatchUpdates caps the number of items per bulk value update.
	MaxBatchUpdates uint64
	// DefaultDailyLimit is the free-tier update quota per day window.
	DefaultDailyLimit uint64
	// MaxCustomDailyLimit bounds user-chosen daily limits.
	MaxCustomDailyLimit uint64
	// PremiumMultiplier scales the effective quota for premium users.
	PremiumMultiplier uint64
	// BlocksPerDay converts block heights into day windows.
	BlocksPerDay uint64
	// UpdateFee is charged per value update when fees are enabled.
	UpdateFee types.Amount
	// MaxPremiumDays bounds a premium subscription purchase.
	MaxPremiumDays uint64
	// ContractAccount holds escrowed batch funds and collected fees.
	ContractAccount types.Account
}

// DefaultParams returns the standard engine parameters.
func DefaultParams() Params {
	return Params{
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

// Engine is the deterministic state-transition engine. It owns a payment
// batch scheduler and a rate-limited per-user value store, both persisted
// through a single transactional store and funded through an external
// ledger. All mutating operations are serialized: given the same starting
// state, clock and call sequence, the engine always produces the same
// ending state.
type Engine struct {
	store   store.Store
	bank    bank.Ledger
	clock   clock.Clock
	plugins *plugin.Registry
	logger  *slog.Logger
	params  Params

	// initialOwner seeds Globals.Owner on first Start.
	initialOwner types.Account

	// mu serializes mutating operations; determinism depends on it.
	mu      sync.Mutex
	started bool
}

// New creates a new Engine backed by the given store and ledger.
func New(s store.Store, b bank.Ledger, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		bank:    b,
		clock:   clock.NewManual(0),
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		params:  DefaultParams(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithClock sets the block height source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithParams overrides the default engine parameters.
func WithParams(p Params) Option {
	return func(e *Engine) {
		e.params = p
	}
}

// WithOwner sets the initial contract owner. It only takes effect on the
// first Start against a fresh store; afterwards ownership changes go
// through SetContractOwner.
func WithOwner(owner types.Account) Option {
	return func(e *Engine) {
		e.initialOwner = owner
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// Start migrates the store, seeds global state on first run, and
// initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Seed globals on a fresh store. NextBatchID starts at 1 so batch ID 0
	// never exists and NextBatchID doubles as "IDs handed out so far + 1".
	g, err := e.store.GetGlobals(ctx)
	if IsNotFound(err) {
		g = &store.Globals{
			NextBatchID: 1,
			NextEventID: 1,
			Owner:       e.initialOwner,
			FeeEnabled:  true,
		}
		if err := e.store.PutGlobals(ctx, g); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	e.started = true
	e.plugins.EmitInit(ctx, e)

	e.logger.Info("engine started",
		"owner", g.Owner,
		"next_batch_id", g.NextBatchID,
		"paused", g.Paused,
		"fee_enabled", g.FeeEnabled,
	)

	return nil
}

// Stop shuts down the engine and closes the store.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = false
	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// Params returns the engine parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Height returns the current block height from the engine clock.
func (e *Engine) Height() uint64 {
	return e.clock.Height()
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func (e *Engine) requireStarted() error {
	if !e.started {
		return ErrNotStarted
	}
	return nil
}

// globals loads the global record, which Start guarantees exists.
func (e *Engine) globals(ctx context.Context, s store.Store) (*store.Globals, error) {
	g, err := s.GetGlobals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load globals: %w", err)
	}
	return g, nil
}

// gate rejects mutations while the contract is paused or in emergency
// mode. Reads and governance operations bypass it.
func gate(g *store.Globals) error {
	if g.EmergencyMode {
		return ErrEmergencyMode
	}
	if g.Paused {
		return ErrContractPaused
	}
	return nil
}

// appendEvent writes one audit event under the global sequence counter.
// The caller persists g afterwards, inside the same transactional scope.
func appendEvent(ctx context.Context, tx store.Store, g *store.Globals, account types.Account, action audit.Action, height uint64, details string) error {
	e := &audit.Event{
		ID:      g.NextEventID,
		Ref:     id.NewAuditEventID(),
		Account: account,
		Action:  action,
		Height:  height,
		Details: details,
	}
	if err := tx.AppendAuditEvent(ctx, e); err != nil {
		return err
	}
	g.NextEventID++
	return nil
}
