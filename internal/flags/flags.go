package flags

import "github.com/urfave/cli/v2"

// These are all the command line flags cmd/anvil-node supports. Defined
// here so names and help texts stay identical across any future
// subcommands.
var (
	ListenAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "Listen address for the JSON-RPC HTTP server",
		Value:    "127.0.0.1:8011",
		Category: NodeCategory,
	}
	ChainIDFlag = &cli.Uint64Flag{
		Name:     "chain-id",
		Usage:    "L2 chain id reported by eth_chainId",
		Value:    270,
		Category: NodeCategory,
	}
	ConfigFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "Path to a TOML configuration file",
		Category: NodeCategory,
	}

	ForkURLFlag = &cli.StringFlag{
		Name:     "fork-url",
		Usage:    "JSON-RPC endpoint of the network to fork state from",
		Category: ForkCategory,
	}
	ForkBlockFlag = &cli.Uint64Flag{
		Name:     "fork-block-number",
		Usage:    "Block number to fork from (default: latest)",
		Category: ForkCategory,
	}

	AccountsFlag = &cli.Uint64Flag{
		Name:     "accounts",
		Usage:    "Number of pre-funded dev accounts to create",
		Value:    10,
		Category: AccountCategory,
	}
	BalanceFlag = &cli.Uint64Flag{
		Name:     "balance",
		Usage:    "Starting balance (in ether) for each pre-funded dev account",
		Value:    10_000,
		Category: AccountCategory,
	}

	BlockTimeFlag = &cli.Uint64Flag{
		Name:     "block-time",
		Usage:    "Fixed interval (seconds) between sealed blocks; 0 disables interval sealing",
		Category: TxPoolCategory,
	}
	NoMiningFlag = &cli.BoolFlag{
		Name:     "no-mining",
		Usage:    "Disable automatic block sealing; only anvil_mine/evm_mine produce blocks",
		Category: TxPoolCategory,
	}

	CORSOriginsFlag = &cli.StringSliceFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests",
		Category: APICategory,
	}

	L1PollIntervalFlag = &cli.Uint64Flag{
		Name:     "l1.poll-interval-ms",
		Usage:    "L1 poll interval, in milliseconds; stored in the config only, the L1Watcher polls every 100ms",
		Value:    100,
		Category: L1Category,
	}
	L1ContractFlag = &cli.StringSliceFlag{
		Name:     "l1.contract",
		Usage:    "L1 contract address for priority requests (repeatable); accepted but not read by the node",
		Category: L1Category,
	}

	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=error, 1=warn, 2=info, 3=debug, 4+=trace",
		Value:    2,
		Category: LoggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format console logs as JSON",
		Category: LoggingCategory,
	}
	LogFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to this file in addition to stderr",
		Category: LoggingCategory,
	}
)

// NodeFlags is the full set registered on the root command.
var NodeFlags = []cli.Flag{
	ListenAddrFlag, ChainIDFlag, ConfigFlag,
	ForkURLFlag, ForkBlockFlag,
	AccountsFlag, BalanceFlag,
	BlockTimeFlag, NoMiningFlag,
	CORSOriginsFlag,
	L1PollIntervalFlag, L1ContractFlag,
	VerbosityFlag, LogJSONFlag, LogFileFlag,
}
