package store

import (
	"context"
	"math/big"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/types"
)

// StateView is a scoped, single-owner overlay over a ForkStorage base,
// living for exactly one batch. BatchExecutor holds the only reference to
// a given StateView; nothing else may read or write through it while the
// batch is open.
type StateView struct {
	base    *ForkStorage
	written map[types.StorageKey]common.Hash
	readSet map[types.StorageKey]struct{}
	ctx     context.Context
}

func newStateView(base *ForkStorage) *StateView {
	return &StateView{
		base:    base,
		written: make(map[types.StorageKey]common.Hash),
		readSet: make(map[types.StorageKey]struct{}),
		ctx:     context.Background(),
	}
}

// Get consults the overlay's own writes first, then falls through to the
// base layer, recording the key in the read set either way.
func (v *StateView) Get(key types.StorageKey) common.Hash {
	v.readSet[key] = struct{}{}
	if val, ok := v.written[key]; ok {
		return val
	}
	return v.base.ReadSlot(v.ctx, key)
}

// Set stages a write in the overlay; nothing is visible to other StateViews
// or the base layer until Commit.
func (v *StateView) Set(key types.StorageKey, value common.Hash) {
	v.written[key] = value
}

// ReadSet returns the keys this view has read so far, for diagnostics and
// for a future conflict-detection pass (currently single-writer, so no
// conflicts are possible within one batch).
func (v *StateView) ReadSet() []types.StorageKey {
	keys := make([]types.StorageKey, 0, len(v.readSet))
	for k := range v.readSet {
		keys = append(keys, k)
	}
	return keys
}

// Commit drains the overlay's writes into the base ForkStorage. After
// Commit the view must not be used again.
func (v *StateView) Commit() {
	v.base.commit(v.written)
}

// Drop discards the overlay's writes without touching the base layer, used
// when a batch or an individual tx is rolled back.
func (v *StateView) Drop() {
	v.written = make(map[types.StorageKey]common.Hash)
	v.readSet = make(map[types.StorageKey]struct{})
}

// --- convenience accessors over the fixed-derivation account keys ---

// GetBalance returns the account's native balance, derived from the
// balance-token storage key.
func (v *StateView) GetBalance(addr common.Address) *big.Int {
	h := v.Get(types.BalanceKey(addr))
	return h.Big()
}

// SetBalance stages a balance write.
func (v *StateView) SetBalance(addr common.Address, amount *big.Int) {
	v.Set(types.BalanceKey(addr), common.BigToHash(amount))
}

// AddBalance stages balance += amount.
func (v *StateView) AddBalance(addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	cur := v.GetBalance(addr)
	v.SetBalance(addr, new(big.Int).Add(cur, amount))
}

// SubBalance stages balance -= amount.
func (v *StateView) SubBalance(addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	cur := v.GetBalance(addr)
	v.SetBalance(addr, new(big.Int).Sub(cur, amount))
}

// GetNonce returns the account's nonce, derived from the nonce storage key.
func (v *StateView) GetNonce(addr common.Address) uint64 {
	h := v.Get(types.NonceKey(addr))
	return h.Big().Uint64()
}

// SetNonce stages a nonce write.
func (v *StateView) SetNonce(addr common.Address, nonce uint64) {
	v.Set(types.NonceKey(addr), common.BigToHash(new(big.Int).SetUint64(nonce)))
}

// GetState reads a contract's own storage slot.
func (v *StateView) GetState(addr common.Address, slot common.Hash) common.Hash {
	return v.Get(types.StorageKey{Address: addr, Slot: slot})
}

// SetState stages a contract storage write.
func (v *StateView) SetState(addr common.Address, slot, value common.Hash) {
	v.Set(types.StorageKey{Address: addr, Slot: slot}, value)
}

// codeKey derives the fixed storage key a contract's code hash is kept
// under, mirroring NonceKey/BalanceKey's derivation convention.
func codeKey(addr common.Address) types.StorageKey {
	return types.StorageKey{Address: addr, Slot: common.Keccak256([]byte("codehash"), addr.Bytes())}
}

// GetCodeHash returns the code hash staged/stored for addr.
func (v *StateView) GetCodeHash(addr common.Address) common.Hash {
	return v.Get(codeKey(addr))
}

// GetCode resolves addr's bytecode via its stored code hash.
func (v *StateView) GetCode(addr common.Address) []byte {
	h := v.GetCodeHash(addr)
	if h.IsZero() {
		return nil
	}
	return v.base.ResolveBytecode(v.ctx, h)
}

// SetCode registers code in the bytecode cache and stages the code-hash
// pointer write for addr.
func (v *StateView) SetCode(addr common.Address, code []byte) {
	h := v.base.SetBytecode(code)
	v.Set(codeKey(addr), h)
}

// Exist reports whether addr has any observable state: nonzero nonce,
// balance, or code.
func (v *StateView) Exist(addr common.Address) bool {
	if v.GetNonce(addr) != 0 {
		return true
	}
	if v.GetBalance(addr).Sign() != 0 {
		return true
	}
	return !v.GetCodeHash(addr).IsZero()
}
