package txpool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/types"
)

type fixedNonce uint64

func (f fixedNonce) GetNonce(common.Address) uint64 { return uint64(f) }

func l2Tx(nonce uint64) *types.Transaction {
	to := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	return &types.Transaction{
		Kind: types.KindL2, From: common.HexToAddress("0x01"),
		To: &to, Nonce: nonce, Value: big.NewInt(0), GasLimit: 21000,
	}
}

func l1Tx(serial uint64) *types.Transaction {
	return &types.Transaction{
		Kind: types.KindL1Priority, SerialID: serial,
		L1TxHash: common.BytesToHash([]byte{byte(serial + 1)}),
	}
}

func TestAddDedupsByHash(t *testing.T) {
	p := New(SealManual)
	tx := l2Tx(0)
	assert.NoError(t, p.Add(tx, fixedNonce(0)))
	assert.ErrorIs(t, p.Add(tx, fixedNonce(0)), ErrAlreadyKnown)
}

func TestAddRejectsNonceTooLow(t *testing.T) {
	p := New(SealManual)
	err := p.Add(l2Tx(2), fixedNonce(5))
	assert.ErrorIs(t, err, ErrNonceTooLow)
}

func TestAddRejectsNonceTooFarAhead(t *testing.T) {
	p := New(SealManual)
	err := p.Add(l2Tx(MaxNonceAhead+1), fixedNonce(0))
	assert.ErrorIs(t, err, ErrNonceTooFar)
}

func TestTakeReadyDrainsPriorityFirst(t *testing.T) {
	p := New(SealManual)
	assert.NoError(t, p.Add(l2Tx(0), fixedNonce(0)))
	assert.NoError(t, p.Add(l1Tx(0), nil))
	assert.NoError(t, p.Add(l1Tx(1), nil))

	out := p.TakeReady(10)
	assert.Len(t, out, 3)
	assert.Equal(t, types.KindL1Priority, out[0].Kind)
	assert.Equal(t, types.KindL1Priority, out[1].Kind)
	assert.Equal(t, types.KindL2, out[2].Kind)
}

func TestPriorityLaneRejectsGap(t *testing.T) {
	p := New(SealManual)
	assert.NoError(t, p.Add(l1Tx(0), nil))
	err := p.Add(l1Tx(2), nil)
	assert.Error(t, err)
}

func TestTakeReadyRespectsCap(t *testing.T) {
	p := New(SealManual)
	assert.NoError(t, p.Add(l2Tx(0), fixedNonce(0)))
	assert.NoError(t, p.Add(l2Tx(1), fixedNonce(0)))
	out := p.TakeReady(1)
	assert.Len(t, out, 1)
	assert.Equal(t, 1, p.Len())
}

func TestShouldSealOnAdd(t *testing.T) {
	p := New(SealImmediate)
	assert.True(t, p.ShouldSealOnAdd())
	p.SetMode(SealManual)
	assert.False(t, p.ShouldSealOnAdd())
}
