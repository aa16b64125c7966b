package types

import "github.com/zkdev/anvil-node/internal/common"

// ExecutionStatus is the VM's structured result, kept separate from the
// Receipt's own Status so BlockProducer's Halt/Revert->Receipt mapping is
// one explicit function rather than scattered conditionals.
type ExecutionStatus uint8

const (
	ExecutionSuccess ExecutionStatus = iota
	ExecutionRevert
	ExecutionHalt
)

// ReceiptStatus mirrors ExecutionStatus at the receipt layer; kept as a
// distinct type since a receipt additionally needs "Success" regardless of
// which Execution path produced it (e.g. empty-input transfers).
type ReceiptStatus uint8

const (
	ReceiptSuccess ReceiptStatus = iota
	ReceiptReverted
	ReceiptHalted
)

// StatusFromExecution maps the VM's ExecutionResult onto the receipt
// taxonomy. The VM itself never raises an error for a reverted or halted
// call; only infrastructure faults propagate past this boundary.
func StatusFromExecution(s ExecutionStatus) ReceiptStatus {
	switch s {
	case ExecutionRevert:
		return ReceiptReverted
	case ExecutionHalt:
		return ReceiptHalted
	default:
		return ReceiptSuccess
	}
}

// Log is a single emitted event, block-scoped and ordered.
type Log struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	TxIndex     uint32
	LogIndex    uint32 // batch-scoped, strictly increasing in emission order
}

// Receipt records the outcome of one included transaction.
type Receipt struct {
	TxHash          common.Hash
	Block           uint64
	Status          ReceiptStatus
	GasUsed         uint64
	Logs            []Log
	ContractAddress *common.Address // set only for a successful contract-creation tx
	TraceRoot       int             // not set by BlockProducer (stays 0); trace arenas are looked up by tx hash
}
