package types

import (
	"math/big"

	"github.com/holiman/bloomfilter/v2"

	"github.com/zkdev/anvil-node/internal/common"
)

// Block is one-to-one with an L1Batch in this node: each block seals
// exactly one batch (invariant B.l1_batch_number strictly increasing with
// B.number, enforced by BlockProducer).
type Block struct {
	Number         uint64
	Hash           common.Hash
	ParentHash     common.Hash
	Timestamp      uint64
	GasUsed        uint64
	GasLimit       uint64
	BaseFeePerGas  *big.Int
	L1BatchNumber  uint64
	L1BatchTime    uint64
	LogsBloom      *bloomfilter.Filter
	TxHashes       []common.Hash
}

// ComputeHash derives the block hash deterministically from its header
// fields. Unlike mainnet Ethereum this is not an RLP hash of the full
// header; it is a keccak over the fields that make a block unique, which
// is sufficient for a single-node emulator with no external verifiers.
func (b *Block) ComputeHash() common.Hash {
	var buf []byte
	buf = append(buf, b.ParentHash.Bytes()...)
	buf = append(buf, uint64ToBytes(b.Number)...)
	buf = append(buf, uint64ToBytes(b.Timestamp)...)
	buf = append(buf, uint64ToBytes(b.L1BatchNumber)...)
	for _, h := range b.TxHashes {
		buf = append(buf, h.Bytes()...)
	}
	return common.Keccak256(buf)
}

// BatchStatus is the monotone, unidirectional lifecycle state of an
// L1Batch: Sealed -> Committed -> Proven -> Executed.
type BatchStatus uint8

const (
	BatchSealed BatchStatus = iota
	BatchCommitted
	BatchProven
	BatchExecuted
)

func (s BatchStatus) String() string {
	switch s {
	case BatchCommitted:
		return "Committed"
	case BatchProven:
		return "Proven"
	case BatchExecuted:
		return "Executed"
	default:
		return "Sealed"
	}
}

// CanAdvanceTo reports whether transitioning from s to next respects the
// monotone, unidirectional lifecycle (no skipping backward, no repeats).
func (s BatchStatus) CanAdvanceTo(next BatchStatus) bool {
	return next == s+1
}

// FeeInput snapshots the per-batch deterministic fee inputs produced by
// FeeModel at batch-open time.
type FeeInput struct {
	L1GasPrice       *big.Int
	FairL2GasPrice   *big.Int
	L1PubdataPrice   *big.Int
}

// L1Batch tracks one batch's commitment lifecycle.
type L1Batch struct {
	Number          uint64
	RootHash        common.Hash
	StateCommitment common.Hash
	Status          BatchStatus
	FeeInput        FeeInput
}
