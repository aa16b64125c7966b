package rpcerr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zkdev/anvil-node/internal/vm"
)

func TestConstructorsSetCodes(t *testing.T) {
	assert.Equal(t, CodeInvalidParams, InvalidParams("bad %s", "input").Code)
	assert.Equal(t, CodeSubmitFailure, SubmitError("nonce too low", "0x01").Code)
	assert.Equal(t, CodeMethodNotFound, Unsupported("zks_foo").Code)
	assert.Equal(t, CodeInternalError, Internal("fork source unavailable").Code)
}

func TestErrorIncludesDataWhenPresent(t *testing.T) {
	e := SubmitError("reverted", "0xdead")
	assert.Contains(t, e.Error(), "0xdead")
}

func TestToRevertReasonGeneral(t *testing.T) {
	r := ToRevertReason("insufficient balance", []byte{0xde, 0xad})
	assert.Equal(t, "general", r.Kind)
	assert.Equal(t, "dead", r.DataHex)
	assert.Equal(t, CodeSubmitFailure, r.AsSubmitError().Code)
}

func TestToRevertReasonUnknownWhenEmpty(t *testing.T) {
	r := ToRevertReason("", nil)
	assert.Equal(t, "unknown", r.Kind)
}

func TestToHaltErrorMapsVMErrors(t *testing.T) {
	h := ToHaltError(vm.ErrOutOfGas, nil)
	assert.Equal(t, HaltOutOfGas, h.Kind)

	h = ToHaltError(vm.ErrInvalidOpcode, nil)
	assert.Equal(t, HaltInvalidOpcode, h.Kind)

	h = ToHaltError(nil, nil)
	assert.Equal(t, HaltUnknown, h.Kind)
}
