// Package txpool holds pending transactions in two FIFO lanes: priority
// (L1) and regular (L2). BlockProducer drains it once per sealing signal.
package txpool

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/types"
)

// MaxNonceAhead is the furthest an incoming L2 tx's nonce may sit beyond
// the account's current nonce before Add rejects it.
const MaxNonceAhead = 1000

var (
	ErrAlreadyKnown  = errors.New("txpool: transaction already known")
	ErrNonceTooLow   = errors.New("txpool: nonce too low")
	ErrNonceTooFar   = errors.New("txpool: nonce too far ahead")
	ErrUnknownTx     = errors.New("txpool: transaction not found")
)

// SealMode selects how the pool signals BlockProducer that it should seal.
type SealMode int

const (
	// SealImmediate requests a seal as soon as any tx is added.
	SealImmediate SealMode = iota
	// SealInterval requests a seal on a fixed cadence regardless of pool
	// occupancy; the interval itself is owned by BlockProducer's ticker.
	SealInterval
	// SealManual only seals in response to an explicit RPC call.
	SealManual
)

// NonceSource resolves an account's current on-chain nonce, used to reject
// txs submitted too far ahead. StateView satisfies this directly.
type NonceSource interface {
	GetNonce(addr common.Address) uint64
}

// Pool is a FIFO, dual-lane pending-transaction queue.
type Pool struct {
	mu sync.Mutex

	priority []*types.Transaction // L1, strict serial-id order
	regular  []*types.Transaction // L2, submission order

	known    mapset.Set[common.Hash]
	nextSerial uint64 // next expected L1 priority serial id

	mode SealMode
	log  *log.Logger
}

// New returns an empty pool in the given seal mode.
func New(mode SealMode) *Pool {
	return &Pool{
		known: mapset.NewSet[common.Hash](),
		mode:  mode,
		log:   log.New("component", "txpool"),
	}
}

// SetMode changes the sealing signal mode.
func (p *Pool) SetMode(mode SealMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// Mode returns the current sealing signal mode.
func (p *Pool) Mode() SealMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Add enqueues tx, deduping by hash and enforcing MaxNonceAhead for L2 txs.
// L1 priority txs must arrive in contiguous, strictly increasing serial-id
// order; a gap is the caller's (L1Watcher's) responsibility to avoid, so
// Add itself only checks for exact resumption, not arbitrary reordering.
func (p *Pool) Add(tx *types.Transaction, source NonceSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := tx.Hash()
	if p.known.Contains(h) {
		return ErrAlreadyKnown
	}

	if tx.Kind == types.KindL1Priority {
		if tx.SerialID != p.nextSerial {
			return fmt.Errorf("txpool: priority serial id %d does not match expected %d", tx.SerialID, p.nextSerial)
		}
		p.priority = append(p.priority, tx)
		p.nextSerial = tx.SerialID + 1
		p.known.Add(h)
		return nil
	}

	if source != nil {
		current := source.GetNonce(tx.From)
		if tx.Nonce < current {
			return ErrNonceTooLow
		}
		if tx.Nonce > current+MaxNonceAhead {
			return ErrNonceTooFar
		}
	}
	p.regular = append(p.regular, tx)
	p.known.Add(h)
	return nil
}

// TakeReady drains up to cap transactions: the priority lane first, in its
// existing order, then the regular lane. Drained txs are removed from the
// pool; their hashes stay in the known set so resubmission is rejected even
// after inclusion (a tx hash must never land in a second block). A tx that
// BlockProducer discards without including (an infrastructure fault, not a
// revert) calls Remove to free its hash back up.
func (p *Pool) TakeReady(cap int) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*types.Transaction, 0, cap)
	n := 0
	for n < len(p.priority) && len(out) < cap {
		out = append(out, p.priority[n])
		n++
	}
	p.priority = p.priority[n:]

	m := 0
	for m < len(p.regular) && len(out) < cap {
		out = append(out, p.regular[m])
		m++
	}
	p.regular = p.regular[m:]

	return out
}

// Remove drops a tx's hash from the known set. Only call this for a tx
// that was drained by TakeReady but never actually included in a block
// (an executor fault); an included tx's hash must stay known forever, or
// resubmitting it would seal it into a second block.
func (p *Pool) Remove(hash common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.known.Remove(hash)
}

// Contains reports whether hash is known to the pool (pending or recently
// drained and not yet explicitly removed).
func (p *Pool) Contains(hash common.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.known.Contains(hash)
}

// Len reports the combined pending count across both lanes.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.priority) + len(p.regular)
}

// ShouldSealOnAdd reports whether the current mode requests an immediate
// seal whenever a tx is added (BlockProducer checks this right after Add).
func (p *Pool) ShouldSealOnAdd() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode == SealImmediate
}
