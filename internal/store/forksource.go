package store

import (
	"context"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/types"
)

// ForkSource is the capability a ForkStorage consults once a requested key,
// block, tx or bytecode hash is missing locally. A node started without a
// fork target (no --fork-url) simply has no ForkSource configured, and
// every read that misses locally resolves to zero. HTTPForkSource is the
// concrete implementation node.New wires up when --fork-url is set.
type ForkSource interface {
	ReadSlot(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
	ReadBlock(ctx context.Context, number uint64) (*types.Block, error)
	ReadTx(ctx context.Context, hash common.Hash) (*types.Transaction, error)
	ResolveBytecode(ctx context.Context, codeHash common.Hash) ([]byte, error)
}
