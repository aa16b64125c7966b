package vm

import (
	"math/big"

	"github.com/zkdev/anvil-node/internal/common"
)

// StateDB is the storage capability the interpreter needs. StateView
// (internal/store) implements it; this keeps the VM package decoupled from
// the concrete overlay/fork-storage layering, per the "small capability
// set" guidance for dynamic dispatch over storage.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key, value common.Hash)
	GetBalance(addr common.Address) *big.Int
	AddBalance(addr common.Address, amount *big.Int)
	SubBalance(addr common.Address, amount *big.Int)
	GetNonce(addr common.Address) uint64
	SetNonce(addr common.Address, nonce uint64)
	GetCode(addr common.Address) []byte
	SetCode(addr common.Address, code []byte)
	GetCodeHash(addr common.Address) common.Hash
	Exist(addr common.Address) bool
}

// BlockContext carries per-block environment data into the interpreter.
type BlockContext struct {
	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *big.Int
	Time        uint64
	BaseFee     *big.Int
	GetHash     func(uint64) common.Hash
}

// TxContext carries per-transaction environment data.
type TxContext struct {
	Origin   common.Address
	GasPrice *big.Int
}

// CallKind distinguishes the flavor of a call captured in the trace arena.
type CallKind uint8

const (
	CallKindCall CallKind = iota
	CallKindStaticCall
	CallKindCreate
)

func (k CallKind) String() string {
	switch k {
	case CallKindStaticCall:
		return "STATICCALL"
	case CallKindCreate:
		return "CREATE"
	default:
		return "CALL"
	}
}

// Log is the VM's raw emission; BlockProducer assigns block-scoped indices
// when it ingests these (see internal/types.Log).
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// MemberKind distinguishes a log emission from a nested call within a
// Call's Ordering, so the trace arena can rebuild the exact interleaving
// the VM produced rather than grouping all logs after all subcalls.
type MemberKind uint8

const (
	MemberLog MemberKind = iota
	MemberCall
)

// OrderEntry records one emission in a Call's child sequence: either the
// index into Logs or the index into Calls, tagged by Kind.
type OrderEntry struct {
	Kind  MemberKind
	Index int
}

// Call is a single node of the recursive call tree the VM returns after
// executing a transaction. BlockProducer's trace-arena builder flattens
// this into the indexed TraceNode arena (internal/trace).
type Call struct {
	Kind    CallKind
	From    common.Address
	To      common.Address
	Input   []byte
	Output  []byte
	Value   *big.Int
	Gas     uint64
	GasUsed uint64
	Success bool
	Error   string
	Calls   []*Call
	Logs    []Log
	Ordering []OrderEntry
}
