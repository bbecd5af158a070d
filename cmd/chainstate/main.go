// Command chainstate is the operator CLI for a ChainState state file:
// inspect global stats, read the audit log, and run a deterministic
// simulation against an in-memory engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	chainstate "github.com/xraph/chainstate"
	"github.com/xraph/chainstate/audit"
	"github.com/xraph/chainstate/bank"
	"github.com/xraph/chainstate/batch"
	"github.com/xraph/chainstate/clock"
	"github.com/xraph/chainstate/extension"
	"github.com/xraph/chainstate/store/bolt"
	"github.com/xraph/chainstate/store/memory"
	"github.com/xraph/chainstate/types"
)

var (
	configFile string
	dataPath   string
	verbose    bool

	// events flags
	afterID uint64
	limit   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chainstate",
		Short: "Operator tooling for ChainState state files",
		Long:  "Inspect global stats, read the audit log, and run deterministic simulations against a ChainState engine.",
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "./chainstate.db", "bbolt state file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print global contract stats",
		RunE:  runStats,
	}

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Read the audit log",
		RunE:  runEvents,
	}
	eventsCmd.Flags().Uint64Var(&afterID, "after", 0, "start after this event sequence number")
	eventsCmd.Flags().IntVar(&limit, "limit", 100, "maximum events to print (0 = all)")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a deterministic demo scenario in memory",
		RunE:  runSim,
	}

	rootCmd.AddCommand(statsCmd, eventsCmd, simCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chainstate: %v\n", err)
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the engine configuration: defaults, overlaid by the
// YAML file when given, overlaid by the --data flag.
func loadConfig() (extension.Config, error) {
	cfg := extension.DefaultConfig()
	cfg.DataPath = dataPath

	if configFile == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DataPath == "" {
		cfg.DataPath = dataPath
	}
	return cfg, nil
}

func paramsFromConfig(cfg extension.Config) chainstate.Params {
	p := chainstate.DefaultParams()
	p.MaxBatchTransfers = cfg.MaxBatchTransfers
	p.MaxBatchUpdates = cfg.MaxBatchUpdates
	p.DefaultDailyLimit = cfg.DefaultDailyLimit
	p.MaxCustomDailyLimit = cfg.MaxCustomDailyLimit
	p.PremiumMultiplier = cfg.PremiumMultiplier
	p.BlocksPerDay = cfg.BlocksPerDay
	p.UpdateFee = types.Amount(cfg.UpdateFee)
	p.MaxPremiumDays = cfg.MaxPremiumDays
	p.ContractAccount = types.Account(cfg.ContractAccount)
	return p
}

// openEngine opens the bolt-backed engine for read commands.
func openEngine(ctx context.Context) (*chainstate.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := bolt.Open(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	opts := []chainstate.Option{
		chainstate.WithLogger(logger()),
		chainstate.WithParams(paramsFromConfig(cfg)),
	}
	if cfg.Owner != "" {
		opts = append(opts, chainstate.WithOwner(types.Account(cfg.Owner)))
	}

	eng := chainstate.New(st, bank.NewMemory(), opts...)
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Stop()

	stats, err := eng.GetContractStats(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Stop()

	events, err := eng.GetEventLog(ctx, audit.ListOpts{AfterID: afterID, Limit: limit})
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := printJSON(e); err != nil {
			return err
		}
	}
	return nil
}

// runSim exercises the full engine surface against an in-memory store: a
// scheduled batch through its lifecycle, a handful of rate-limited
// updates, a premium upgrade, and a governance round-trip. Running it
// twice prints identical state.
func runSim(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clk := clock.NewManual(100)
	bk := bank.NewMemory()
	eng := chainstate.New(memory.New(), bk,
		chainstate.WithLogger(logger()),
		chainstate.WithClock(clk),
		chainstate.WithOwner("operator"),
	)
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	for _, account := range []types.Account{"alice", "bob", "carol"} {
		if err := bk.Mint(account, 10_000); err != nil {
			return err
		}
	}

	b, err := eng.CreateBatch(ctx, "alice", 110, []*batch.TransferLine{
		{Recipient: "bob", Amount: 100},
		{Recipient: "carol", Amount: 200},
	})
	if err != nil {
		return err
	}

	clk.Advance(10)
	if _, err := eng.ExecuteBatch(ctx, "alice", b.ID); err != nil {
		return err
	}

	for i, v := range []uint64{7, 11, 13} {
		if err := eng.UpdateValue(ctx, "bob", v); err != nil {
			return fmt.Errorf("update %d: %w", i, err)
		}
	}
	if err := eng.UpgradeToPremium(ctx, "bob", 30); err != nil {
		return err
	}

	if err := eng.PauseContract(ctx, "operator"); err != nil {
		return err
	}
	if err := eng.ResumeContract(ctx, "operator"); err != nil {
		return err
	}

	stats, err := eng.GetContractStats(ctx)
	if err != nil {
		return err
	}
	if err := printJSON(stats); err != nil {
		return err
	}

	events, err := eng.GetEventLog(ctx, audit.ListOpts{})
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%4d %-18s %-10s h=%d %s\n", e.ID, e.Action, e.Account, e.Height, e.Details)
	}
	return nil
}
