// Package blockproducer orchestrates one-block batches: it pulls ready
// transactions from the pool, drives a BatchExecutor through them, commits
// the resulting StateView, builds the block's trace arena, and indexes
// receipts and logs.
package blockproducer

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/zkdev/anvil-node/internal/batchexecutor"
	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/event"
	"github.com/zkdev/anvil-node/internal/feemodel"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/store"
	"github.com/zkdev/anvil-node/internal/timemgr"
	"github.com/zkdev/anvil-node/internal/trace"
	"github.com/zkdev/anvil-node/internal/txpool"
	"github.com/zkdev/anvil-node/internal/types"
	"github.com/zkdev/anvil-node/internal/vm"
)

// BlockMaxTxs is the current per-batch transaction cap: every sealed
// batch contains at most this many transactions. Left at 1, since this
// node models one block as exactly one L1 batch.
const BlockMaxTxs = 1

// Producer is the single orchestrator task. Its sealing methods take the
// Producer's mutex, so the RPC layer's "mine now" path and the background
// Run loop may both call into the same Producer; seals never overlap.
type Producer struct {
	mu sync.Mutex

	pool    *txpool.Pool
	storage *store.ForkStorage
	time    *timemgr.Manager
	fees    *feemodel.Model
	skip    *trace.SkipSet
	index   *Index
	log     *log.Logger

	chainHead event.Feed[event.ChainHeadEvent]
	logsFeed  event.Feed[event.LogsEvent]

	chainID     uint64
	gasLimit    uint64
	head        *types.Block
	batchNumber uint64
	batches     map[uint64]*types.L1Batch
	traces      *lru.Cache // common.Hash -> *trace.Arena, bounded so a long fuzzing run can't exhaust memory
}

// traceCacheSize bounds how many call-trace arenas blockproducer keeps
// resident; debug_traceTransaction for an evicted hash returns "not found"
// rather than growing the index without limit.
const traceCacheSize = 4096

// Config bundles the fixed parameters a Producer needs at construction.
type Config struct {
	ChainID  uint64
	GasLimit uint64
}

// New returns a Producer seeded at genesis (block 0, batch 0).
func New(cfg Config, pool *txpool.Pool, storage *store.ForkStorage, tm *timemgr.Manager, fees *feemodel.Model, skip *trace.SkipSet) *Producer {
	genesis := &types.Block{Number: 0, Timestamp: tm.Current()}
	genesis.Hash = genesis.ComputeHash()
	traces, _ := lru.New(traceCacheSize)
	return &Producer{
		pool: pool, storage: storage, time: tm, fees: fees, skip: skip,
		index:    NewIndex(),
		log:      log.New("component", "blockproducer"),
		chainID:  cfg.ChainID,
		gasLimit: cfg.GasLimit,
		head:     genesis,
		batches:  make(map[uint64]*types.L1Batch),
		traces:   traces,
	}
}

// SubscribeChainHead registers ch for every sealed block.
func (p *Producer) SubscribeChainHead(ch chan<- event.ChainHeadEvent) event.Subscription {
	return p.chainHead.Subscribe(ch)
}

// SubscribeLogs registers ch for every non-empty set of logs a sealed
// block produced.
func (p *Producer) SubscribeLogs(ch chan<- event.LogsEvent) event.Subscription {
	return p.logsFeed.Subscribe(ch)
}

// Index exposes the receipt/log index for RPC reads.
func (p *Producer) Index() *Index { return p.index }

// Head returns the current chain head.
func (p *Producer) Head() *types.Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.head
}

// Run drives sealing according to the pool's current mode until ctx is
// canceled: Immediate mode seals as soon as the pool is non-empty,
// Interval mode seals on a fixed cadence, Manual mode never seals on its
// own (only SealNow, called by the RPC layer, produces a block).
func (p *Producer) Run(ctx context.Context, intervalPoll time.Duration) {
	ticker := time.NewTicker(intervalPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch p.pool.Mode() {
			case txpool.SealImmediate:
				if p.pool.Len() > 0 {
					p.sealOnce(ctx)
				}
			case txpool.SealInterval:
				p.sealOnce(ctx)
			case txpool.SealManual:
				// no-op; only an explicit SealNow call seals
			}
		}
	}
}

// SealNow forces exactly one batch to seal regardless of mode, for
// anvil_mine / evm_mine style RPC calls. Returns the sealed block.
func (p *Producer) SealNow(ctx context.Context) (*types.Block, error) {
	return p.sealOnce(ctx)
}

func (p *Producer) sealOnce(ctx context.Context) (*types.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.time.Advance()
	feeInput := p.fees.Compute(1_000_000, 1.0, 1.0)

	view := p.storage.NewView()
	blockCtx := vm.BlockContext{
		Coinbase:    common.Address{},
		GasLimit:    p.gasLimit,
		BlockNumber: new(big.Int).SetUint64(p.head.Number + 1),
		Time:        ts,
		BaseFee:     big.NewInt(int64(feeInput.FairL2GasPrice)),
	}
	exec := batchexecutor.Start(view, blockCtx, vm.Config{})

	pending := p.pool.TakeReady(BlockMaxTxs)

	var (
		txHashes    []common.Hash
		receipts    []types.Receipt
		includedTxs []*types.Transaction
		gasUsed     uint64
		allLogs     []types.Log
	)

	for i, tx := range pending {
		result, err := exec.ExecuteTx(tx)
		if err != nil {
			// Catastrophic VM/infrastructure error: discard the tx, log and
			// move on. It was never included, so free its hash for
			// resubmission instead of leaving it stuck in the known set.
			p.log.Error("discarding tx after executor fault", "hash", tx.Hash(), "err", err)
			p.pool.Remove(tx.Hash())
			continue
		}

		hash := tx.Hash()
		txHashes = append(txHashes, hash)
		includedTxs = append(includedTxs, tx)
		gasUsed += result.GasUsed

		logs := make([]types.Log, len(result.Logs))
		for li, l := range result.Logs {
			logs[li] = types.Log{
				Address: l.Address, Topics: l.Topics, Data: l.Data,
				BlockNumber: p.head.Number + 1, TxIndex: uint32(i), LogIndex: uint32(len(allLogs) + li),
			}
		}
		allLogs = append(allLogs, logs...)

		receipts = append(receipts, types.Receipt{
			TxHash: hash, Block: p.head.Number + 1,
			Status: types.StatusFromExecution(result.Status), GasUsed: result.GasUsed, Logs: logs,
			ContractAddress: result.ContractAddress,
		})

		if result.Call != nil {
			arena := trace.BuildFiltered(result.Call, p.skip)
			p.traces.Add(hash, arena)
		}
	}

	finished, err := exec.FinishBatch()
	if err != nil {
		view.Drop()
		return nil, fmt.Errorf("blockproducer: finish batch: %w", err)
	}
	_ = finished

	view.Commit()

	block := &types.Block{
		Number:        p.head.Number + 1,
		ParentHash:    p.head.Hash,
		Timestamp:     ts,
		GasUsed:       gasUsed,
		GasLimit:      p.gasLimit,
		BaseFeePerGas: blockCtx.BaseFee,
		L1BatchNumber: p.batchNumber + 1,
		L1BatchTime:   ts,
		TxHashes:      txHashes,
	}
	block.Hash = block.ComputeHash()

	p.batches[block.L1BatchNumber] = &types.L1Batch{
		Number: block.L1BatchNumber, Status: types.BatchSealed,
		FeeInput: types.FeeInput{
			L1GasPrice:     new(big.Int).SetUint64(feeInput.L1GasPrice),
			FairL2GasPrice: new(big.Int).SetUint64(feeInput.FairL2GasPrice),
			L1PubdataPrice: new(big.Int).SetUint64(feeInput.FairPubdataPrice),
		},
	}
	p.batchNumber++
	p.head = block
	p.index.Append(block, receipts, includedTxs)

	// pending's hashes stay in the pool's known set: removing them here
	// would let a resubmitted, already-included tx be admitted again and
	// sealed into a second block under the same hash.

	p.chainHead.Send(event.ChainHeadEvent{Block: block})
	if len(allLogs) > 0 {
		p.logsFeed.Send(event.LogsEvent{Logs: allLogs})
	}

	return block, nil
}

// Trace returns the call-trace arena recorded for a given tx hash, if any.
func (p *Producer) Trace(hash common.Hash) (*trace.Arena, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.traces.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(*trace.Arena), true
}

// AllBlocks returns every sealed block, for state dump.
func (p *Producer) AllBlocks() []types.Block {
	return p.index.AllBlocks()
}

// LoadState restores the producer's head and block index from a state
// dump's block list; batch status and receipts are not part of the dump
// format and start fresh.
func (p *Producer) LoadState(blocks []types.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index.LoadBlocks(blocks)
	var head *types.Block
	for i := range blocks {
		b := blocks[i]
		if head == nil || b.Number >= head.Number {
			blockCopy := b
			head = &blockCopy
		}
	}
	if head != nil {
		p.head = head
		p.batchNumber = head.L1BatchNumber
	}
	p.batches = make(map[uint64]*types.L1Batch)
}

// Batch returns the L1Batch record for a given batch number.
func (p *Producer) Batch(number uint64) (*types.L1Batch, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.batches[number]
	return b, ok
}

// AdvanceBatchStatus transitions a batch's lifecycle state forward one
// step (Sealed->Committed->Proven->Executed), used by the
// anvil_zks_{commit,prove,execute}Batch RPC methods.
func (p *Producer) AdvanceBatchStatus(number uint64, next types.BatchStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.batches[number]
	if !ok {
		return fmt.Errorf("blockproducer: unknown batch %d", number)
	}
	if !b.Status.CanAdvanceTo(next) {
		return fmt.Errorf("blockproducer: batch %d cannot advance from %s to %s", number, b.Status, next)
	}
	b.Status = next
	return nil
}
