// Package types holds the node's wire/storage value objects: transactions,
// blocks, batches, receipts and logs. They are plain data carriers; the
// packages that mutate them (txpool, batchexecutor, blockproducer) own the
// behavior.
package types

import (
	"math/big"
	"sync/atomic"

	"github.com/zkdev/anvil-node/internal/common"
)

// Kind distinguishes an L1 priority transaction from a regular L2 one. The
// pool keeps separate lanes per Kind (see internal/txpool).
type Kind uint8

const (
	KindL2 Kind = iota
	KindL1Priority
)

func (k Kind) String() string {
	if k == KindL1Priority {
		return "l1-priority"
	}
	return "l2"
}

// Transaction is the canonical, kind-polymorphic tx record. Only the fields
// relevant to a given Kind are populated; the hash field is always the
// primary key across pool, index and receipts.
type Transaction struct {
	Kind Kind

	// Common to both kinds.
	From     common.Address
	To       *common.Address // nil for contract creation
	Value    *big.Int
	GasLimit uint64
	Data     []byte

	// L2-only fields.
	Nonce               uint64
	GasPrice             *big.Int
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasPerPubdataByteLimit uint64
	Paymaster            *common.Address
	PaymasterInput       []byte
	V, R, S              *big.Int

	// L1-priority-only fields.
	SerialID    uint64
	L1BlockHint uint64
	L1TxHash    common.Hash

	// hash caches the computed canonical hash; an empty Value means "not yet
	// computed".
	hash atomic.Value
}

// Hash returns the transaction's canonical hash, computing and caching it
// on first use. L1 priority txs use their L1 tx hash as-is; L2 txs are
// hashed over their signed fields.
func (tx *Transaction) Hash() common.Hash {
	if v := tx.hash.Load(); v != nil {
		return v.(common.Hash)
	}
	var h common.Hash
	if tx.Kind == KindL1Priority {
		h = tx.L1TxHash
	} else {
		h = tx.computeL2Hash()
	}
	tx.hash.Store(h)
	return h
}

func (tx *Transaction) computeL2Hash() common.Hash {
	var buf []byte
	buf = append(buf, tx.From.Bytes()...)
	if tx.To != nil {
		buf = append(buf, tx.To.Bytes()...)
	}
	buf = append(buf, uint64ToBytes(tx.Nonce)...)
	if tx.Value != nil {
		buf = append(buf, tx.Value.Bytes()...)
	}
	buf = append(buf, uint64ToBytes(tx.GasLimit)...)
	buf = append(buf, tx.Data...)
	if tx.MaxFeePerGas != nil {
		buf = append(buf, tx.MaxFeePerGas.Bytes()...)
	}
	if tx.MaxPriorityFeePerGas != nil {
		buf = append(buf, tx.MaxPriorityFeePerGas.Bytes()...)
	}
	return common.Keccak256(buf)
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// EffectiveGasPrice returns the gas price a legacy (gas-price-only) tx
// carries, or derives the EIP-1559-style effective price capped by
// baseFee + tip, matching the fee rule the FeeModel assumes callers apply.
func (tx *Transaction) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	if tx.MaxFeePerGas == nil {
		return tx.GasPrice
	}
	if baseFee == nil {
		return tx.MaxFeePerGas
	}
	tip := new(big.Int).Sub(tx.MaxFeePerGas, baseFee)
	if tx.MaxPriorityFeePerGas != nil && tip.Cmp(tx.MaxPriorityFeePerGas) > 0 {
		tip = tx.MaxPriorityFeePerGas
	}
	return new(big.Int).Add(baseFee, tip)
}
