package blockproducer

import (
	"context"
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/feemodel"
	"github.com/zkdev/anvil-node/internal/store"
	"github.com/zkdev/anvil-node/internal/timemgr"
	"github.com/zkdev/anvil-node/internal/trace"
	"github.com/zkdev/anvil-node/internal/txpool"
	"github.com/zkdev/anvil-node/internal/types"
)

type zeroNonces struct{}

func (zeroNonces) GetNonce(common.Address) uint64 { return 0 }

func newTestProducer() (*Producer, *txpool.Pool) {
	pool := txpool.New(txpool.SealManual)
	storage := store.New()
	tm := timemgr.New(1_000)
	fees := feemodel.New(feemodel.DefaultConfig)
	p := New(Config{ChainID: 270, GasLimit: 30_000_000}, pool, storage, tm, fees, trace.NewSkipSet())
	return p, pool
}

func TestSealOnceWithNoTxsProducesEmptyBlock(t *testing.T) {
	p, _ := newTestProducer()

	block, err := p.SealNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Number)
	assert.Equal(t, uint64(0), block.GasUsed)
	assert.Empty(t, block.TxHashes)
	assert.Equal(t, uint64(1), block.L1BatchNumber)

	batch, ok := p.Batch(1)
	require.True(t, ok)
	assert.Equal(t, types.BatchSealed, batch.Status)
}

func TestSealOnceExecutesPendingTransfer(t *testing.T) {
	p, pool := newTestProducer()

	to := common.Address{0x02}
	tx := &types.Transaction{
		Kind: types.KindL2, From: common.Address{0x01}, To: &to,
		Value: big.NewInt(5), GasLimit: 100_000, Nonce: 0,
		GasPrice: big.NewInt(1), MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(0),
	}
	require.NoError(t, pool.Add(tx, zeroNonces{}))

	block, err := p.SealNow(context.Background())
	require.NoError(t, err)
	require.Len(t, block.TxHashes, 1)
	assert.Equal(t, tx.Hash(), block.TxHashes[0])

	receipt, ok := p.Index().Receipt(tx.Hash())
	if !assert.True(t, ok, "expected a receipt for %s", tx.Hash()) {
		t.Logf("pool state:\n%s", spew.Sdump(pool))
		t.FailNow()
	}
	assert.Equal(t, types.ReceiptSuccess, receipt.Status, "unexpected receipt:\n%s", spew.Sdump(receipt))

	assert.True(t, pool.Contains(tx.Hash()))
}

func TestAdvanceBatchStatusEnforcesMonotonicity(t *testing.T) {
	p, _ := newTestProducer()

	_, err := p.SealNow(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.AdvanceBatchStatus(1, types.BatchCommitted))
	assert.Error(t, p.AdvanceBatchStatus(1, types.BatchExecuted))
	assert.NoError(t, p.AdvanceBatchStatus(1, types.BatchProven))
}

func TestHeadAdvancesAcrossBlocks(t *testing.T) {
	p, _ := newTestProducer()

	genesis := p.Head()
	assert.Equal(t, uint64(0), genesis.Number)

	block, err := p.SealNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, block.Hash, p.Head().Hash)
	assert.Equal(t, genesis.Hash, block.ParentHash)
}
