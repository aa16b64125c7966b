package blockproducer

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkdev/anvil-node/internal/batchexecutor"
	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/feemodel"
	"github.com/zkdev/anvil-node/internal/store"
	"github.com/zkdev/anvil-node/internal/timemgr"
	"github.com/zkdev/anvil-node/internal/trace"
	"github.com/zkdev/anvil-node/internal/txpool"
	"github.com/zkdev/anvil-node/internal/types"
	"github.com/zkdev/anvil-node/internal/vm"
)

// newScenarioProducer is newTestProducer plus the raw storage handle, which
// these tests need to drive read-only calls directly against (no Node in
// this package to route through).
func newScenarioProducer() (*Producer, *txpool.Pool, *store.ForkStorage) {
	pool := txpool.New(txpool.SealManual)
	storage := store.New()
	tm := timemgr.New(1_000)
	fees := feemodel.New(feemodel.DefaultConfig)
	p := New(Config{ChainID: 270, GasLimit: 30_000_000}, pool, storage, tm, fees, trace.NewSkipSet())
	return p, pool, storage
}

// callReadOnly runs a message call against a throwaway view of storage at
// head, exactly the pattern Node.Call uses for eth_call/debug_traceCall: the
// view is never committed, so the call leaves no trace on chain state.
func callReadOnly(storage *store.ForkStorage, head *types.Block, from, to common.Address, data []byte) *vm.Result {
	view := storage.NewView()
	blockCtx := vm.BlockContext{
		GasLimit:    30_000_000,
		BlockNumber: new(big.Int).SetUint64(head.Number),
		Time:        head.Timestamp,
	}
	e := vm.NewEVM(blockCtx, vm.TxContext{Origin: from}, view, vm.Config{})
	return e.Call(from, to, data, 1_000_000, big.NewInt(0))
}

func big32(v int64) []byte {
	var b [32]byte
	big.NewInt(v).FillBytes(b[:])
	return b[:]
}

func TestScenarioCounterDeployGetIncrement(t *testing.T) {
	p, pool, storage := newScenarioProducer()
	from := common.Address{0x01}

	deployTx := &types.Transaction{
		Kind: types.KindL2, From: from, To: nil,
		Data: deployInitCode(counterRuntime()), GasLimit: 3_000_000, Nonce: 0,
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	require.NoError(t, pool.Add(deployTx, zeroNonces{}))

	block1, err := p.SealNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block1.Number)
	assert.Len(t, block1.TxHashes, 1)

	deployReceipt, ok := p.Index().Receipt(deployTx.Hash())
	require.True(t, ok)
	require.Equal(t, types.ReceiptSuccess, deployReceipt.Status)
	require.NotNil(t, deployReceipt.ContractAddress)
	contractAddr := *deployReceipt.ContractAddress
	assert.Equal(t, batchexecutor.CreateAddress(from, 0), contractAddr)

	get := callReadOnly(storage, p.Head(), from, contractAddr, nil)
	require.NoError(t, get.RevertErr)
	assert.Equal(t, big32(0), get.ReturnData, "counter.get() before increment")

	incTx := &types.Transaction{
		Kind: types.KindL2, From: from, To: &contractAddr,
		Data: big32(1), GasLimit: 200_000, Nonce: 1,
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	require.NoError(t, pool.Add(incTx, zeroNonces{}))

	block2, err := p.SealNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block2.Number)
	assert.Len(t, block2.TxHashes, 1)

	incReceipt, ok := p.Index().Receipt(incTx.Hash())
	require.True(t, ok)
	assert.Equal(t, types.ReceiptSuccess, incReceipt.Status)

	get = callReadOnly(storage, p.Head(), from, contractAddr, nil)
	require.NoError(t, get.RevertErr)
	assert.Equal(t, big32(1), get.ReturnData, "counter.get() after increment(1)")
}

func TestScenarioRevertTraceCapturesReason(t *testing.T) {
	p, pool, storage := newScenarioProducer()
	from := common.Address{0x02}

	deployTx := &types.Transaction{
		Kind: types.KindL2, From: from, To: nil,
		Data: deployInitCode(revertRuntime("boom")), GasLimit: 3_000_000, Nonce: 0,
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	require.NoError(t, pool.Add(deployTx, zeroNonces{}))

	_, err := p.SealNow(context.Background())
	require.NoError(t, err)

	deployReceipt, ok := p.Index().Receipt(deployTx.Hash())
	require.True(t, ok)
	require.Equal(t, types.ReceiptSuccess, deployReceipt.Status)
	require.NotNil(t, deployReceipt.ContractAddress)
	contractAddr := *deployReceipt.ContractAddress

	result := callReadOnly(storage, p.Head(), from, contractAddr, nil)

	require.Equal(t, vm.ErrExecutionReverted, result.RevertErr)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", string(result.ReturnData))
	require.NotNil(t, result.Call)

	// This is the same tree debug_traceCall renders; build it through the
	// arena the way a sealed tx's trace would be, to exercise that path
	// too rather than asserting on the raw vm.Call directly.
	arena := trace.BuildFiltered(result.Call, trace.NewSkipSet())
	root, ok := arena.Root()
	require.True(t, ok)
	assert.False(t, root.Success)
	assert.Equal(t, "boom", string(root.Output))
	// The revert contract never issues a subcall, so there's nothing to
	// preserve ordering over; a separate nested-call/log test in
	// internal/trace already covers ordering against siblings.
	assert.Empty(t, root.Children)
}
