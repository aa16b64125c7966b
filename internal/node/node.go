// Package node wires TimeManager, ForkStorage, TxPool, BlockProducer and
// L1Watcher into one runnable process and exposes the read/write
// operations internal/rpcserver needs - the only public surface the RPC
// layer is allowed to depend on.
package node

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/zkdev/anvil-node/internal/blockproducer"
	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/config"
	"github.com/zkdev/anvil-node/internal/dump"
	"github.com/zkdev/anvil-node/internal/feemodel"
	"github.com/zkdev/anvil-node/internal/l1watcher"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/store"
	"github.com/zkdev/anvil-node/internal/timemgr"
	"github.com/zkdev/anvil-node/internal/trace"
	"github.com/zkdev/anvil-node/internal/txpool"
	"github.com/zkdev/anvil-node/internal/types"
	"github.com/zkdev/anvil-node/internal/vm"
)

// defaultCallGas is the gas budget eth_call/debug_traceCall get when the
// caller doesn't specify one, matching the producer's per-block gas limit.
const defaultCallGas = 30_000_000

// Node is the assembled process: every component plus the goroutines
// driving them.
type Node struct {
	cfg config.Config

	Time     *timemgr.Manager
	Storage  *store.ForkStorage
	Pool     *txpool.Pool
	Producer *blockproducer.Producer
	Watcher  *l1watcher.Watcher // nil if no L1 source configured

	log *log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	fatal  chan error
}

// New assembles a Node from cfg; genesis balances are seeded directly
// into ForkStorage before anything else runs.
func New(cfg config.Config, l1Source l1watcher.L1Source) *Node {
	tm := timemgr.New(uint64(nowFunc().Unix()))
	storage := store.New()
	nodeLog := log.New("component", "node")
	if cfg.ForkURL != "" {
		source := store.NewHTTPForkSource(cfg.ForkURL, cfg.ForkBlockNumber)
		storage = storage.WithSource(source)
		logForkPoint(nodeLog, source, cfg.ForkURL, cfg.ForkBlockNumber)
	}

	for _, gb := range cfg.GenesisBalances {
		storage.SetBalance(gb.Address, bigToHash(gb.Balance))
	}

	pool := txpool.New(cfg.SealMode)
	fees := feemodel.New(cfg.FeeModel)
	skip := trace.NewSkipSet(cfg.PredeployAddresses...)

	producer := blockproducer.New(blockproducer.Config{ChainID: cfg.ChainID, GasLimit: 30_000_000}, pool, storage, tm, fees, skip)

	var watcher *l1watcher.Watcher
	if l1Source != nil {
		watcher = l1watcher.New(l1Source, pool, cfg.L1ContractAddresses)
	}

	return &Node{
		cfg: cfg, Time: tm, Storage: storage, Pool: pool, Producer: producer, Watcher: watcher,
		log:   nodeLog,
		fatal: make(chan error, 1),
	}
}

// logForkPoint resolves the pinned fork block (when one is configured) via
// ForkSource.ReadBlock and logs its hash, so --fork-url/--fork-block-number
// failures surface immediately at startup rather than silently on the
// first state read. An unpinned fork (block number 0, "latest") has no
// fixed number to resolve yet, so this only fires when pinned.
func logForkPoint(logger *log.Logger, source *store.HTTPForkSource, url string, blockNumber uint64) {
	if blockNumber == 0 {
		logger.Info("forking from latest block", "url", url)
		return
	}
	block, err := source.ReadBlock(context.Background(), blockNumber)
	if err != nil {
		logger.Error("failed to resolve fork point", "url", url, "block", blockNumber, "err", err)
		return
	}
	logger.Info("forking", "url", url, "block", blockNumber, "hash", block.Hash)
}

// nowFunc is indirected so tests can pin genesis time; production always
// uses wall-clock time.
var nowFunc = time.Now

func bigToHash(v *big.Int) common.Hash {
	var h common.Hash
	if v == nil {
		return h
	}
	b := v.Bytes()
	copy(h[len(h)-len(b):], b)
	return h
}

// Start launches the block producer loop and, if configured, the L1
// watcher, returning once both goroutines have been spawned (not once
// they exit).
func (n *Node) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.Producer.Run(ctx, 50*time.Millisecond)
	}()

	if n.Watcher != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.Watcher.Run(ctx); err != nil && ctx.Err() == nil {
				n.log.Error("l1 watcher exited fatally", "err", err)
				select {
				case n.fatal <- err:
				default:
				}
			}
		}()
	}
}

// FatalErrors delivers an L1Watcher error that should terminate the
// process with exit code 2 (a serial-id gap), if one occurs.
func (n *Node) FatalErrors() <-chan error { return n.fatal }

// Stop cancels the background goroutines and waits for them to exit.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
}

// SubmitTransaction validates and admits tx into the pool, sealing
// immediately if the pool's mode demands it. Resubmitting a tx hash that
// was already sealed into a block is a no-op: the pool is left untouched
// and the caller gets the same hash back to look up the original receipt
// with, rather than a duplicate inclusion.
func (n *Node) SubmitTransaction(tx *types.Transaction) error {
	if _, ok := n.Receipt(tx.Hash()); ok {
		return nil
	}
	if err := n.Pool.Add(tx, nonceAdapter{n}); err != nil {
		return err
	}
	if n.Pool.Mode() == txpool.SealImmediate {
		_, err := n.Producer.SealNow(context.Background())
		return err
	}
	return nil
}

type nonceAdapter struct{ n *Node }

func (a nonceAdapter) GetNonce(addr common.Address) uint64 {
	return a.n.Storage.NewView().GetNonce(addr)
}

// ChainID returns the configured L2 chain id.
func (n *Node) ChainID() uint64 { return n.cfg.ChainID }

// L1ChainID returns the configured L1 chain id.
func (n *Node) L1ChainID() uint64 { return n.cfg.L1ChainID }

// MineNow forces one block to seal regardless of the pool's sealing mode
// (anvil_mine / evm_mine).
func (n *Node) MineNow() (*types.Block, error) {
	return n.Producer.SealNow(context.Background())
}

// SetBalance is the anvil_setBalance admin operation.
func (n *Node) SetBalance(addr common.Address, balance *big.Int) {
	n.Storage.SetBalance(addr, bigToHash(balance))
}

// SetNonce is the anvil_setNonce admin operation.
func (n *Node) SetNonce(addr common.Address, nonce uint64) {
	var h common.Hash
	b := new(big.Int).SetUint64(nonce).Bytes()
	copy(h[len(h)-len(b):], b)
	n.Storage.SetNonce(addr, h)
}

// SetStorageAt is the anvil_setStorageAt admin operation.
func (n *Node) SetStorageAt(addr common.Address, slot, value common.Hash) {
	n.Storage.SetSlot(types.StorageKey{Address: addr, Slot: slot}, value)
}

// IncreaseTime is the anvil_increaseTime admin operation.
func (n *Node) IncreaseTime(seconds uint64) uint64 {
	return n.Time.IncreaseTime(seconds)
}

// SetNextBlockTimestamp is the anvil_setNextBlockTimestamp admin
// operation; rejects a non-future timestamp.
func (n *Node) SetNextBlockTimestamp(ts uint64) error {
	return n.Time.EnforceNext(ts)
}

// SetIntervalMining is the anvil_setIntervalMining admin operation.
func (n *Node) SetIntervalMining(seconds uint64) {
	if seconds == 0 {
		n.Time.RemoveInterval()
		n.Pool.SetMode(txpool.SealManual)
		return
	}
	n.Time.SetInterval(seconds)
	n.Pool.SetMode(txpool.SealInterval)
}

// AdvanceBatchStatus implements anvil_zks_{commit,prove,execute}Batch.
func (n *Node) AdvanceBatchStatus(batchNumber uint64, next types.BatchStatus) error {
	return n.Producer.AdvanceBatchStatus(batchNumber, next)
}

// Receipt looks up a sealed transaction's receipt.
func (n *Node) Receipt(hash common.Hash) (types.Receipt, bool) {
	return n.Producer.Index().Receipt(hash)
}

// Transaction looks up a sealed transaction's full record by hash, falling
// back to the configured ForkSource for hashes this node never itself
// included (e.g. a tx from before the fork point).
func (n *Node) Transaction(hash common.Hash) (types.Transaction, bool) {
	if tx, ok := n.Producer.Index().Transaction(hash); ok {
		return tx, true
	}
	tx, ok := n.Storage.ReadForkTx(context.Background(), hash)
	if !ok {
		return types.Transaction{}, false
	}
	return *tx, true
}

// BlockByNumber looks up a sealed block. Block numbers are this node's own
// sequence starting at genesis regardless of any fork point (see
// DESIGN.md), so unlike Transaction there is no fork-source fallback here.
// Sealed blocks 1..head are indexed locally; the genesis block 0 is not
// appended to the index, so BlockByNumber(0) reports not found.
func (n *Node) BlockByNumber(number uint64) (*types.Block, bool) {
	return n.Producer.Index().Block(number)
}

// Batch looks up an L1 batch's commitment record by number.
func (n *Node) Batch(number uint64) (*types.L1Batch, bool) {
	return n.Producer.Batch(number)
}

// HeadNumber returns the current chain head's block number.
func (n *Node) HeadNumber() uint64 {
	return n.Producer.Head().Number
}

// Logs scans [fromBlock, toBlock] for logs matching addrs (nil/empty
// means all addresses).
func (n *Node) Logs(fromBlock, toBlock uint64, addrs map[common.Address]struct{}) []types.Log {
	return n.Producer.Index().LogsInRange(fromBlock, toBlock, addrs)
}

// Trace returns the recorded call-trace arena for a transaction hash.
func (n *Node) Trace(hash common.Hash) (*trace.Arena, bool) {
	return n.Producer.Trace(hash)
}

// BytecodeByHash resolves a contract's bytecode by its keccak hash.
func (n *Node) BytecodeByHash(ctx context.Context, codeHash common.Hash) []byte {
	return n.Storage.ResolveBytecode(ctx, codeHash)
}

// Balance returns an account's current balance.
func (n *Node) Balance(addr common.Address) *big.Int {
	return n.Storage.NewView().GetBalance(addr)
}

// Nonce returns an account's current nonce.
func (n *Node) Nonce(addr common.Address) uint64 {
	return n.Storage.NewView().GetNonce(addr)
}

// CallResult is the outcome of a read-only message call: the VM's return
// data plus the call tree it produced, for the caller to render as either
// a plain result (eth_call) or a decoded trace (debug_traceCall).
type CallResult struct {
	ReturnData []byte
	Success    bool
	RevertErr  error
	Call       *vm.Call
}

// Call executes a read-only message call against a throwaway StateView
// scoped to the current chain head; the view is never committed, so no
// block is produced and no state persists (eth_call, debug_traceCall).
func (n *Node) Call(from, to common.Address, data []byte, gasLimit uint64, value *big.Int) CallResult {
	if gasLimit == 0 {
		gasLimit = defaultCallGas
	}
	if value == nil {
		value = big.NewInt(0)
	}
	view := n.Storage.NewView()
	head := n.Producer.Head()
	blockCtx := vm.BlockContext{
		GasLimit:    defaultCallGas,
		BlockNumber: new(big.Int).SetUint64(head.Number),
		Time:        head.Timestamp,
	}
	e := vm.NewEVM(blockCtx, vm.TxContext{Origin: from}, view, vm.Config{})
	result := e.Call(from, to, data, gasLimit, value)
	return CallResult{
		ReturnData: result.ReturnData, Success: result.Success,
		RevertErr: result.RevertErr, Call: result.Call,
	}
}

// TxTrace pairs a transaction hash with the call-trace arena recorded for
// it, for debug_traceBlockByNumber's per-tx result list.
type TxTrace struct {
	Hash  common.Hash
	Arena *trace.Arena
}

// TraceBlock returns the recorded call-trace arena for every transaction in
// block number (debug_traceBlockByNumber). Traces are whatever
// BlockProducer captured at seal time; a tx whose arena has since been
// evicted from the trace cache is omitted.
func (n *Node) TraceBlock(number uint64) ([]TxTrace, bool) {
	block, ok := n.BlockByNumber(number)
	if !ok {
		return nil, false
	}
	out := make([]TxTrace, 0, len(block.TxHashes))
	for _, h := range block.TxHashes {
		if arena, ok := n.Producer.Trace(h); ok {
			out = append(out, TxTrace{Hash: h, Arena: arena})
		}
	}
	return out, true
}

// DumpState serializes every sealed block and storage slot into the
// versioned dump container (config_dumpState), embedding filterCursors so
// the caller's log filters resume from where they left off after a load.
func (n *Node) DumpState(filterCursors map[string]uint64) ([]byte, error) {
	entries := n.Storage.Snapshot()
	kvs := make([]dump.KV, 0, len(entries))
	for k, v := range entries {
		kvs = append(kvs, dump.KV{Key: k, Value: v})
	}
	return dump.Write(dump.Dump{
		Blocks:        n.Producer.AllBlocks(),
		StateEntries:  kvs,
		FilterCursors: dump.FilterCursors{Cursors: filterCursors},
	})
}

// LoadState restores blocks and storage from a previously written dump
// (config_loadState), returning the filter cursors it carried so the
// caller can resume its own filters.
func (n *Node) LoadState(raw []byte) (map[string]uint64, error) {
	d, err := dump.Load(raw)
	if err != nil {
		return nil, err
	}
	entries := make(map[types.StorageKey]common.Hash, len(d.StateEntries))
	for _, kv := range d.StateEntries {
		entries[kv.Key] = kv.Value
	}
	n.Storage.LoadSnapshot(entries)
	n.Producer.LoadState(d.Blocks)
	return d.FilterCursors.Cursors, nil
}
