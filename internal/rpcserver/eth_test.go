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
)

func submitAndSeal(t *testing.T, s *Server, tx *types.Transaction) {
	t.Helper()
	require.NoError(t, s.n.SubmitTransaction(tx))
	_, err := s.n.MineNow()
	require.NoError(t, err)
}

func TestEthGetTransactionByHashReturnsSubmittedFields(t *testing.T) {
	s := testServer()
	to := common.Address{0x02}
	tx := &types.Transaction{
		Kind: types.KindL2, From: common.Address{0x01}, To: &to,
		Value: big.NewInt(7), GasLimit: 21_000, Data: []byte{0xde, 0xad},
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	submitAndSeal(t, s, tx)

	resp := rpcCall(t, s, "eth_getTransactionByHash", []any{tx.Hash().Hex()})
	require.Nil(t, resp.Error)

	raw, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, common.Address{0x01}.Hex(), raw["from"])
	assert.Equal(t, "0xdead", raw["input"])
	assert.Equal(t, "0x1", raw["blockNumber"])
}

func TestEthGetTransactionByHashUnknownHashReturnsNull(t *testing.T) {
	s := testServer()
	resp := rpcCall(t, s, "eth_getTransactionByHash", []any{common.Hash{0x99}.Hex()})
	require.Nil(t, resp.Error)
	assert.Nil(t, resp.Result)
}

func TestResubmittingSealedTxOverRPCIsANoOp(t *testing.T) {
	s := testServer()
	to := common.Address{0x02}
	tx := &types.Transaction{
		Kind: types.KindL2, From: common.Address{0x01}, To: &to,
		Value: big.NewInt(1), GasLimit: 21_000,
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	submitAndSeal(t, s, tx)

	raw, err := json.Marshal(rawTxRequest{
		From: tx.From, To: tx.To, Value: tx.Value, Gas: tx.GasLimit,
		GasPrice: tx.GasPrice, MaxFeePerGas: tx.MaxFeePerGas, MaxPriorityFeePerGas: tx.MaxPriorityFeePerGas,
		Nonce: tx.Nonce, Data: "0x",
	})
	require.NoError(t, err)
	txHex := "0x" + hex.EncodeToString(raw)

	resp := rpcCall(t, s, "eth_sendRawTransaction", []any{txHex})
	require.Nil(t, resp.Error)
	assert.Equal(t, tx.Hash().Hex(), resp.Result)

	resp = rpcCall(t, s, "eth_blockNumber", []any{})
	assert.Equal(t, "0x1", resp.Result, "resubmitting an already-sealed tx must not seal a second block")

	resp = rpcCall(t, s, "eth_getTransactionReceipt", []any{tx.Hash().Hex()})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	raw, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0x1", raw["blockNumber"])
}

func TestEthSendRawTransactionInvalidEncodingIsInvalidParams(t *testing.T) {
	s := testServer()
	resp := rpcCall(t, s, "eth_sendRawTransaction", []any{"0xnotvalidhex"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcerr.CodeInvalidParams, resp.Error.Code)
}
