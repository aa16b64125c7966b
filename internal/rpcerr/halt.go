package rpcerr

import (
	"encoding/hex"
	"errors"

	"github.com/zkdev/anvil-node/internal/vm"
)

// HaltKind enumerates the closed set of halt reasons the embedded VM can
// raise: out of gas, a bad jump target, an unrecognized opcode, stack
// over/underflow, a call-depth overrun, and a catch-all.
type HaltKind string

const (
	HaltOutOfGas       HaltKind = "out_of_gas"
	HaltInvalidJump    HaltKind = "invalid_jump"
	HaltInvalidOpcode  HaltKind = "invalid_opcode"
	HaltStackUnderflow HaltKind = "stack_underflow"
	HaltDepthLimit     HaltKind = "depth_limit"
	HaltUnknown        HaltKind = "unknown"
)

// HaltError is the structured form of a VM halt, as surfaced to RPC
// callers via debug/trace endpoints.
type HaltError struct {
	Kind    HaltKind
	Msg     string
	DataHex string
}

// ToHaltError maps an internal/vm execution error onto the closed
// HaltKind taxonomy via a table-driven switch.
func ToHaltError(err error, data []byte) HaltError {
	kind := HaltUnknown
	switch {
	case errors.Is(err, vm.ErrOutOfGas):
		kind = HaltOutOfGas
	case errors.Is(err, vm.ErrInvalidJump):
		kind = HaltInvalidJump
	case errors.Is(err, vm.ErrInvalidOpcode):
		kind = HaltInvalidOpcode
	case errors.Is(err, vm.ErrStackUnderflow), errors.Is(err, vm.ErrStackOverflow):
		kind = HaltStackUnderflow
	case errors.Is(err, vm.ErrDepthLimit):
		kind = HaltDepthLimit
	}
	msg := "unknown halt reason"
	if err != nil {
		msg = err.Error()
	}
	return HaltError{Kind: kind, Msg: msg, DataHex: hex.EncodeToString(data)}
}

// AsInternalError renders a HaltError as an InternalError code result,
// since a halt is always an infrastructure-level fault, never a normal
// submission rejection.
func (h HaltError) AsInternalError() *Error {
	return Internal(h.Msg)
}
