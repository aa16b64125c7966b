// Package config holds the node's static configuration: chain ids, the
// RPC listen address, genesis balances, predeployed system addresses, and
// the tunables TimeManager/TxPool/FeeModel/L1Watcher start from. Values
// load from a TOML file (github.com/naoina/toml) with an in-code Defaults
// fallback, a Defaults-var-plus-file-override convention.
package config

import (
	"math/big"
	"os"

	"github.com/naoina/toml"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/feemodel"
	"github.com/zkdev/anvil-node/internal/txpool"
)

// GenesisBalance seeds an account with a starting balance at node start,
// matching the --dev pre-funded-account convention.
type GenesisBalance struct {
	Address common.Address
	Balance *big.Int
}

// Config is the node's full static configuration.
type Config struct {
	ChainID   uint64
	L1ChainID uint64

	ListenAddr string
	CORSOrigins []string

	// PredeployAddresses are system/precompile addresses TraceArena's
	// skip-set collapses out of human-facing traces.
	PredeployAddresses []common.Address

	GenesisBalances []GenesisBalance

	BlockTimeIntervalSeconds uint64 // 0 means no fixed interval
	SealMode                 txpool.SealMode

	FeeModel feemodel.Config

	L1PollIntervalMillis uint64
	L1ContractAddresses  []common.Address

	// ForkURL is the JSON-RPC endpoint to read through to for state not
	// yet known locally (--fork-url). Empty means no fork source: every
	// local miss resolves to zero, per ForkStorage's default.
	ForkURL string
	// ForkBlockNumber pins reads to a historical block (--fork-block-number).
	// Zero means "latest at query time".
	ForkBlockNumber uint64

	VerbosityLevel int
	LogJSON        bool
	LogFile        string
}

// Defaults is every field a node can start with if the operator supplies
// no TOML file at all.
var Defaults = Config{
	ChainID:                  270,
	L1ChainID:                9,
	ListenAddr:               "127.0.0.1:8011",
	CORSOrigins:              []string{"*"},
	BlockTimeIntervalSeconds: 0,
	SealMode:                 txpool.SealImmediate,
	FeeModel:                 feemodel.DefaultConfig,
	L1PollIntervalMillis:     100,
	VerbosityLevel:           2,
}

// Load reads a TOML config file, starting from Defaults and overriding
// only the fields the file sets.
func Load(path string) (Config, error) {
	cfg := Defaults
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
