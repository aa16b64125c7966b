package rpcserver

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/rpcerr"
	"github.com/zkdev/anvil-node/internal/types"
	"github.com/zkdev/anvil-node/internal/vm"
)

// revertInitCode returns CREATE init code for a contract whose runtime
// unconditionally reverts with reason as its revert data; no jumps are
// needed so it's built directly rather than through a label-patching
// assembler.
func revertInitCode(reason string) []byte {
	var chunk [32]byte
	copy(chunk[:], reason)
	runtime := []byte{byte(vm.PUSH32)}
	runtime = append(runtime, chunk[:]...)
	runtime = append(runtime,
		byte(vm.PUSH1), 0,
		byte(vm.SWAP1),
		byte(vm.MSTORE),
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1), byte(len(reason)),
		byte(vm.REVERT),
	)

	var init []byte
	for off := 0; off < len(runtime); off += 32 {
		var rchunk [32]byte
		copy(rchunk[:], runtime[off:])
		init = append(init, byte(vm.PUSH1), byte(off), byte(vm.PUSH32))
		init = append(init, rchunk[:]...)
		init = append(init, byte(vm.MSTORE))
	}
	init = append(init,
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1), byte(len(runtime)),
		byte(vm.RETURN),
	)
	return init
}

// deployRevertContract submits and seals a contract-creation tx whose
// runtime reverts with reason, returning its address.
func deployRevertContract(t *testing.T, s *Server, reason string) common.Address {
	t.Helper()
	tx := &types.Transaction{
		Kind: types.KindL2, From: common.Address{0x01}, To: nil,
		Data: revertInitCode(reason), GasLimit: 3_000_000,
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	require.NoError(t, s.n.SubmitTransaction(tx))
	_, err := s.n.MineNow()
	require.NoError(t, err)

	receipt, ok := s.n.Receipt(tx.Hash())
	require.True(t, ok)
	require.Equal(t, types.ReceiptSuccess, receipt.Status)
	require.NotNil(t, receipt.ContractAddress)
	return *receipt.ContractAddress
}

func TestEthCallAgainstPlainAddressReturnsEmptyData(t *testing.T) {
	s := testServer()
	to := common.Address{0x02}
	resp := rpcCall(t, s, "eth_call", []any{map[string]any{"from": common.Address{0x01}.Hex(), "to": to.Hex()}})
	require.Nil(t, resp.Error)
	assert.Equal(t, "0x", resp.Result)
}

func TestEthCallAgainstRevertingContractReturnsRevertError(t *testing.T) {
	s := testServer()
	contractAddr := deployRevertContract(t, s, "boom")

	resp := rpcCall(t, s, "eth_call", []any{map[string]any{"from": common.Address{0x01}.Hex(), "to": contractAddr.Hex()}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcerr.CodeSubmitFailure, resp.Error.Code)
	reasonBytes, err := hex.DecodeString(resp.Error.Data)
	require.NoError(t, err)
	assert.Equal(t, "boom", string(reasonBytes))
}

func TestDebugTraceCallRendersRevertReason(t *testing.T) {
	s := testServer()
	contractAddr := deployRevertContract(t, s, "boom")

	resp := rpcCall(t, s, "debug_traceCall", []any{map[string]any{"from": common.Address{0x01}.Hex(), "to": contractAddr.Hex()}})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var view traceNodeView
	require.NoError(t, json.Unmarshal(raw, &view))

	assert.False(t, view.Success)
	outBytes, err := hex.DecodeString(view.Output[2:])
	require.NoError(t, err)
	assert.Equal(t, "boom", string(outBytes))
}

func TestDebugTraceBlockByNumberReturnsOneEntryPerTx(t *testing.T) {
	s := testServer()
	// deployRevertContract seals block 1 with a single contract-creation tx,
	// which succeeds (the deployment itself doesn't call the reverting
	// runtime, it only stores it).
	deployRevertContract(t, s, "boom")

	resp := rpcCall(t, s, "debug_traceBlockByNumber", []any{"0x1"})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var views []struct {
		TxHash string        `json:"txHash"`
		Result traceNodeView `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &views))
	require.Len(t, views, 1)
	assert.True(t, views[0].Result.Success)
	assert.NotEmpty(t, views[0].TxHash)
}

func TestDebugTraceBlockByNumberUnknownBlockIsInvalidParams(t *testing.T) {
	s := testServer()
	resp := rpcCall(t, s, "debug_traceBlockByNumber", []any{"0x99"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcerr.CodeInvalidParams, resp.Error.Code)
}
