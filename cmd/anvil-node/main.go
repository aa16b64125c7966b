// Command anvil-node runs a local, in-memory L2 node that emulates a
// ZK-rollup execution environment: it accepts transactions over JSON-RPC, executes them against deterministic in-memory state, seals
// blocks/batches on a cadence, and exposes an eth/zks/anvil-compatible
// RPC surface.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/config"
	"github.com/zkdev/anvil-node/internal/flags"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/node"
	"github.com/zkdev/anvil-node/internal/rpcserver"
	"github.com/zkdev/anvil-node/internal/txpool"
)

func main() {
	app := &cli.App{
		Name:  "anvil-node",
		Usage: "a local ZK-rollup execution environment",
		Flags: flags.NodeFlags,
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if _, ok := err.(fatalL1Error); ok {
		return 2
	}
	return 1
}

type fatalL1Error struct{ err error }

func (e fatalL1Error) Error() string { return e.err.Error() }
func (e fatalL1Error) Unwrap() error { return e.err }

func run(c *cli.Context) error {
	cfg := config.Defaults
	if path := c.String(flags.ConfigFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	applyFlagOverrides(c, &cfg)

	log.SetupShell(log.ShellConfig{
		Verbosity: cfg.VerbosityLevel,
		JSON:      cfg.LogJSON,
		LogFile:   cfg.LogFile,
	})
	logger := log.Root()

	seedDevAccounts(c, &cfg)

	n := node.New(cfg, nil)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n.Start(ctx)
	defer n.Stop()

	server := rpcserver.New(n, cfg.CORSOrigins)
	logger.Info("anvil-node ready", "listen_addr", cfg.ListenAddr, "chain_id", cfg.ChainID)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe(cfg.ListenAddr) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return fmt.Errorf("rpc server: %w", err)
	case err := <-n.FatalErrors():
		return fatalL1Error{err: err}
	}
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flags.ListenAddrFlag.Name) {
		cfg.ListenAddr = c.String(flags.ListenAddrFlag.Name)
	}
	if c.IsSet(flags.ChainIDFlag.Name) {
		cfg.ChainID = c.Uint64(flags.ChainIDFlag.Name)
	}
	if c.IsSet(flags.BlockTimeFlag.Name) {
		cfg.BlockTimeIntervalSeconds = c.Uint64(flags.BlockTimeFlag.Name)
		if cfg.BlockTimeIntervalSeconds > 0 {
			cfg.SealMode = txpool.SealInterval
		}
	}
	if c.IsSet(flags.NoMiningFlag.Name) && c.Bool(flags.NoMiningFlag.Name) {
		cfg.SealMode = txpool.SealManual
	}
	if c.IsSet(flags.CORSOriginsFlag.Name) {
		cfg.CORSOrigins = c.StringSlice(flags.CORSOriginsFlag.Name)
	}
	if c.IsSet(flags.L1PollIntervalFlag.Name) {
		cfg.L1PollIntervalMillis = c.Uint64(flags.L1PollIntervalFlag.Name)
	}
	if c.IsSet(flags.ForkURLFlag.Name) {
		cfg.ForkURL = c.String(flags.ForkURLFlag.Name)
	}
	if c.IsSet(flags.ForkBlockFlag.Name) {
		cfg.ForkBlockNumber = c.Uint64(flags.ForkBlockFlag.Name)
	}
	if c.IsSet(flags.VerbosityFlag.Name) {
		cfg.VerbosityLevel = c.Int(flags.VerbosityFlag.Name)
	}
	if c.IsSet(flags.LogJSONFlag.Name) {
		cfg.LogJSON = c.Bool(flags.LogJSONFlag.Name)
	}
	if c.IsSet(flags.LogFileFlag.Name) {
		cfg.LogFile = c.String(flags.LogFileFlag.Name)
	}
}

// seedDevAccounts pre-funds --accounts dev accounts with --balance ether
// each.
func seedDevAccounts(c *cli.Context, cfg *config.Config) {
	count := c.Uint64(flags.AccountsFlag.Name)
	etherBalance := c.Uint64(flags.BalanceFlag.Name)
	if count == 0 {
		return
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(etherBalance), big.NewInt(1_000_000_000_000_000_000))
	for i := uint64(0); i < count; i++ {
		var addr common.Address
		addr[len(addr)-1] = byte(i + 1)
		cfg.GenesisBalances = append(cfg.GenesisBalances, config.GenesisBalance{Address: addr, Balance: wei})
	}
}
