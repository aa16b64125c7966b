// Package store holds the node's two layers of account/storage state:
// ForkStorage, the process-wide base layer, and StateView, the per-batch
// transactional overlay that BatchExecutor mutates while a batch is open.
package store

import (
	"context"
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/log"
	"github.com/zkdev/anvil-node/internal/types"
)

const bytecodeCacheBytes = 64 * 1024 * 1024

// ForkStorage is the process-wide base layer: a local StorageKey->Value
// mapping plus a bytecode cache, backed optionally by a ForkSource for
// anything not present locally. Reads may proceed from many goroutines
// concurrently; the only exclusive section is the commit step a StateView
// performs when a batch closes.
type ForkStorage struct {
	mu      sync.RWMutex
	slots   map[types.StorageKey]common.Hash
	source  ForkSource
	log     *log.Logger

	bytecode *fastcache.Cache // codeHash -> bytecode, process-wide and read-mostly
}

// New returns a ForkStorage with no fork target configured; every miss
// resolves to zero.
func New() *ForkStorage {
	return &ForkStorage{
		slots:    make(map[types.StorageKey]common.Hash),
		bytecode: fastcache.New(bytecodeCacheBytes),
		log:      log.New("component", "forkstorage"),
	}
}

// WithSource returns the same ForkStorage configured to consult src for
// keys, blocks, txs and bytecode not present locally.
func (f *ForkStorage) WithSource(src ForkSource) *ForkStorage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = src
	return f
}

// ReadSlot resolves a single storage word: local map, then fork source,
// then a default zero value.
func (f *ForkStorage) ReadSlot(ctx context.Context, key types.StorageKey) common.Hash {
	f.mu.RLock()
	v, ok := f.slots[key]
	src := f.source
	f.mu.RUnlock()
	if ok {
		return v
	}
	if src == nil {
		return common.Hash{}
	}
	resolved, err := src.ReadSlot(ctx, key.Address, key.Slot)
	if err != nil {
		f.log.Warn("fork source read_slot failed, defaulting to zero", "addr", key.Address, "err", err)
		return common.Hash{}
	}
	return resolved
}

// ResolveBytecode resolves code by hash: local cache, then fork source.
func (f *ForkStorage) ResolveBytecode(ctx context.Context, codeHash common.Hash) []byte {
	if v, ok := f.bytecode.HasGet(nil, codeHash.Bytes()); ok {
		return v
	}
	f.mu.RLock()
	src := f.source
	f.mu.RUnlock()
	if src == nil {
		return nil
	}
	code, err := src.ResolveBytecode(ctx, codeHash)
	if err != nil || len(code) == 0 {
		return nil
	}
	f.bytecode.Set(codeHash.Bytes(), code)
	return code
}

// ReadForkBlock looks up a block that predates (or is outside) this node's
// own in-memory chain via the configured ForkSource. Returns false if no
// source is configured or the source doesn't have it.
func (f *ForkStorage) ReadForkBlock(ctx context.Context, number uint64) (*types.Block, bool) {
	f.mu.RLock()
	src := f.source
	f.mu.RUnlock()
	if src == nil {
		return nil, false
	}
	block, err := src.ReadBlock(ctx, number)
	if err != nil {
		f.log.Warn("fork source read_block failed", "number", number, "err", err)
		return nil, false
	}
	return block, true
}

// ReadForkTx looks up a transaction via the configured ForkSource, for
// hashes this node never itself included. Returns false if no source is
// configured or the source doesn't have it.
func (f *ForkStorage) ReadForkTx(ctx context.Context, hash common.Hash) (*types.Transaction, bool) {
	f.mu.RLock()
	src := f.source
	f.mu.RUnlock()
	if src == nil {
		return nil, false
	}
	tx, err := src.ReadTx(ctx, hash)
	if err != nil {
		f.log.Warn("fork source read_tx failed", "hash", hash, "err", err)
		return nil, false
	}
	return tx, true
}

// SetBytecode registers code under its keccak hash, for use by Create and
// by admin operations that preload known contracts.
func (f *ForkStorage) SetBytecode(code []byte) common.Hash {
	h := common.Keccak256(code)
	f.bytecode.Set(h.Bytes(), code)
	return h
}

// commit drains a batch of writes into the local map under the exclusive
// lock. Only StateView.Commit calls this; no other write path exists
// outside the explicit admin setters below.
func (f *ForkStorage) commit(writes map[types.StorageKey]common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range writes {
		f.slots[k] = v
	}
}

// SetSlot is the admin-operation write path (anvil_setStorageAt and
// friends): it bypasses the StateView overlay entirely and mutates the
// base layer directly.
func (f *ForkStorage) SetSlot(key types.StorageKey, value common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[key] = value
}

// SetBalance is an admin operation (anvil_setBalance): writes the
// balance-token slot directly on the base layer.
func (f *ForkStorage) SetBalance(addr common.Address, balance common.Hash) {
	f.SetSlot(types.BalanceKey(addr), balance)
}

// SetNonce is an admin operation (anvil_setNonce).
func (f *ForkStorage) SetNonce(addr common.Address, nonce common.Hash) {
	f.SetSlot(types.NonceKey(addr), nonce)
}

// NewView opens a transactional overlay scoped to the batch about to run.
func (f *ForkStorage) NewView() *StateView {
	return newStateView(f)
}

// Snapshot copies every local storage slot, for state dump (anvil_dumpState
// / config_dumpState). The bytecode cache is not part of the dump format;
// code is re-resolved from the fork source (or re-deployed) after a load.
func (f *ForkStorage) Snapshot() map[types.StorageKey]common.Hash {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[types.StorageKey]common.Hash, len(f.slots))
	for k, v := range f.slots {
		out[k] = v
	}
	return out
}

// LoadSnapshot replaces the local slot map wholesale (state restore).
func (f *ForkStorage) LoadSnapshot(entries map[types.StorageKey]common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = entries
}
