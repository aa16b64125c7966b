// Package l1watcher polls an L1 chain for NewPriorityRequest events and
// feeds the resulting priority transactions into the transaction pool, in
// strict serial-id order.
package l1watcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/txpool"
	"github.com/zkdev/anvil-node/internal/types"
)

// PollInterval is the L1 polling cadence.
const PollInterval = 100 * time.Millisecond

// L1Source is the capability this watcher polls: the latest L1 block
// number, and priority-request logs filtered to a set of contract
// addresses over a block range.
type L1Source interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	PriorityRequests(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address) ([]types.Transaction, error)
}

// nonceSource satisfies txpool.NonceSource trivially: priority txs never
// consult account nonces, since the nonce-ahead check is L2-only.
type nonceSource struct{}

func (nonceSource) GetNonce(common.Address) uint64 { return 0 }

// Watcher is the node component responsible for saving new priority L1
// transactions into the transaction pool.
type Watcher struct {
	source    L1Source
	pool      *txpool.Pool
	addresses []common.Address
	log       *log.Logger

	nextExpectedSerialID uint64
	fromBlock            uint64
}

// New returns a Watcher starting from L1 block 0 and priority serial id 0.
func New(source L1Source, pool *txpool.Pool, addresses []common.Address) *Watcher {
	return &Watcher{
		source:    source,
		pool:      pool,
		addresses: addresses,
		log:       log.New("component", "l1watcher"),
	}
}

// Run polls indefinitely at PollInterval until ctx is canceled. A
// transport error is retried on the next tick; a serial-id gap is a hard,
// process-fatal error, since silently skipping a priority transaction
// would desync the node from L1.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.poll(ctx); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}

func (w *Watcher) poll(ctx context.Context) error {
	toBlock, err := w.source.LatestBlockNumber(ctx)
	if err != nil {
		w.log.Warn("l1 latest block fetch failed, retrying next tick", "err", err)
		return nil
	}
	if w.fromBlock > toBlock {
		return nil
	}

	priorityTxs, err := w.source.PriorityRequests(ctx, w.fromBlock, toBlock, w.addresses)
	if err != nil {
		w.log.Warn("l1 priority request fetch failed, retrying next tick", "err", err)
		return nil
	}
	if len(priorityTxs) == 0 {
		w.fromBlock = toBlock + 1
		return nil
	}

	first, last := priorityTxs[0], priorityTxs[len(priorityTxs)-1]
	if last.SerialID-first.SerialID+1 != uint64(len(priorityTxs)) {
		return fmt.Errorf("l1watcher: gap in priority transactions: first=%d last=%d count=%d", first.SerialID, last.SerialID, len(priorityTxs))
	}
	w.log.Info("received priority requests", "first_serial_id", first.SerialID, "last_serial_id", last.SerialID, "to_block", toBlock)

	newTxs := priorityTxs
	for len(newTxs) > 0 && newTxs[0].SerialID < w.nextExpectedSerialID {
		newTxs = newTxs[1:]
	}
	if len(newTxs) == 0 {
		w.fromBlock = toBlock + 1
		return nil
	}
	if newTxs[0].SerialID != w.nextExpectedSerialID {
		return fmt.Errorf("l1watcher: priority transaction serial id mismatch: want %d, got %d", w.nextExpectedSerialID, newTxs[0].SerialID)
	}

	for i := range newTxs {
		tx := newTxs[i]
		w.log.Debug("adding priority transaction to pool", "hash", tx.Hash(), "serial_id", tx.SerialID)
		if err := w.pool.Add(&tx, nonceSource{}); err != nil {
			w.log.Error("priority transaction rejected by pool", "hash", tx.Hash(), "err", err)
		}
	}

	w.nextExpectedSerialID = last.SerialID + 1
	w.fromBlock = toBlock + 1
	return nil
}

// NextExpectedSerialID exposes the watcher's resumption cursor, for
// anvil_zks-style introspection and for tests.
func (w *Watcher) NextExpectedSerialID() uint64 { return w.nextExpectedSerialID }
