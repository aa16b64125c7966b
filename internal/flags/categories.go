// Package flags groups the CLI flag categories cmd/anvil-node registers
// with urfave/cli, and installs the help/version flag categories at init
// time.
package flags

import "github.com/urfave/cli/v2"

const (
	NodeCategory    = "NODE"
	ForkCategory    = "FORK"
	AccountCategory = "ACCOUNTS"
	TxPoolCategory  = "TRANSACTION POOL"
	APICategory     = "API AND CONSOLE"
	L1Category      = "L1 WATCHER"
	LoggingCategory = "LOGGING AND DEBUGGING"
	MiscCategory    = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
