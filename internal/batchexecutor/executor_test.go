package batchexecutor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/store"
	"github.com/zkdev/anvil-node/internal/types"
	"github.com/zkdev/anvil-node/internal/vm"
)

func newTestExecutor(t *testing.T) (*Executor, *store.StateView) {
	t.Helper()
	fs := store.New()
	view := fs.NewView()
	exec := Start(view, vm.BlockContext{BlockNumber: big.NewInt(1), Time: 1000}, vm.Config{})
	return exec, view
}

func TestExecuteTxPlainTransferSucceeds(t *testing.T) {
	exec, _ := newTestExecutor(t)

	to := common.HexToAddress("0x1234000000000000000000000000000000abcd")
	tx := &types.Transaction{
		Kind: types.KindL2, From: common.HexToAddress("0x01"),
		To: &to, Value: big.NewInt(0), GasLimit: 100000,
	}

	res, err := exec.ExecuteTx(tx)
	assert.NoError(t, err)
	assert.Equal(t, types.ExecutionSuccess, res.Status)

	_, err = exec.FinishBatch()
	assert.NoError(t, err)
}

func TestFinishBatchReportsTxCount(t *testing.T) {
	exec, _ := newTestExecutor(t)
	to := common.HexToAddress("0x1234000000000000000000000000000000abcd")

	for i := 0; i < 3; i++ {
		tx := &types.Transaction{Kind: types.KindL2, From: common.HexToAddress("0x01"), To: &to, Value: big.NewInt(0), GasLimit: 21000}
		_, err := exec.ExecuteTx(tx)
		assert.NoError(t, err)
	}

	finished, err := exec.FinishBatch()
	assert.NoError(t, err)
	assert.Equal(t, 3, finished.TxCount)
}

func TestNoCommandAcceptedAfterFinishBatch(t *testing.T) {
	exec, _ := newTestExecutor(t)
	_, err := exec.FinishBatch()
	assert.NoError(t, err)

	to := common.HexToAddress("0x1234000000000000000000000000000000abcd")
	tx := &types.Transaction{Kind: types.KindL2, From: common.HexToAddress("0x01"), To: &to, Value: big.NewInt(0), GasLimit: 21000}
	_, err = exec.ExecuteTx(tx)
	assert.Error(t, err)
}

func TestRollbackLastTxDropsHistoryEntry(t *testing.T) {
	exec, _ := newTestExecutor(t)
	to := common.HexToAddress("0x1234000000000000000000000000000000abcd")
	tx := &types.Transaction{Kind: types.KindL2, From: common.HexToAddress("0x01"), To: &to, Value: big.NewInt(0), GasLimit: 21000}
	_, err := exec.ExecuteTx(tx)
	assert.NoError(t, err)

	assert.NoError(t, exec.RollbackLastTx())

	finished, err := exec.FinishBatch()
	assert.NoError(t, err)
	assert.Equal(t, 0, finished.TxCount)
}
