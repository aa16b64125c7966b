package l1watcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/txpool"
	"github.com/zkdev/anvil-node/internal/types"
)

type fakeSource struct {
	latest uint64
	logs   []types.Transaction
	err    error
}

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, f.err }

func (f *fakeSource) PriorityRequests(_ context.Context, from, to uint64, _ []common.Address) ([]types.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []types.Transaction
	for _, tx := range f.logs {
		if tx.L1BlockHint >= from && tx.L1BlockHint <= to {
			out = append(out, tx)
		}
	}
	return out, nil
}

func priorityTx(serial, block uint64) types.Transaction {
	return types.Transaction{Kind: types.KindL1Priority, SerialID: serial, L1BlockHint: block, L1TxHash: common.Hash{byte(serial + 1)}}
}

func TestPollAddsContiguousPriorityTxsInOrder(t *testing.T) {
	pool := txpool.New(txpool.SealManual)
	src := &fakeSource{latest: 5, logs: []types.Transaction{priorityTx(0, 1), priorityTx(1, 2), priorityTx(2, 3)}}
	w := New(src, pool, nil)

	require.NoError(t, w.poll(context.Background()))
	assert.Equal(t, 3, pool.Len())
	assert.Equal(t, uint64(3), w.NextExpectedSerialID())
}

func TestPollRejectsGapInSerialIDs(t *testing.T) {
	pool := txpool.New(txpool.SealManual)
	src := &fakeSource{latest: 5, logs: []types.Transaction{priorityTx(0, 1), priorityTx(2, 2)}}
	w := New(src, pool, nil)

	err := w.poll(context.Background())
	assert.Error(t, err)
}

func TestPollSkipsAlreadySeenSerialIDs(t *testing.T) {
	pool := txpool.New(txpool.SealManual)
	src := &fakeSource{latest: 5, logs: []types.Transaction{priorityTx(0, 1)}}
	w := New(src, pool, nil)
	require.NoError(t, w.poll(context.Background()))
	require.Equal(t, uint64(1), w.NextExpectedSerialID())

	src.latest = 10
	src.logs = []types.Transaction{priorityTx(0, 6), priorityTx(1, 7)}
	require.NoError(t, w.poll(context.Background()))
	assert.Equal(t, uint64(2), w.NextExpectedSerialID())
	assert.Equal(t, 2, pool.Len())
}

func TestPollAdvancesFromBlockWhenNoEvents(t *testing.T) {
	pool := txpool.New(txpool.SealManual)
	src := &fakeSource{latest: 10}
	w := New(src, pool, nil)
	require.NoError(t, w.poll(context.Background()))
	assert.Equal(t, uint64(11), w.fromBlock)
	assert.Equal(t, uint64(0), w.NextExpectedSerialID())
}
