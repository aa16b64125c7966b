package store

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zkdev/anvil-node/internal/common"
)

func TestStateViewOverlayThenBase(t *testing.T) {
	fs := New()
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	slot := common.HexToHash("0x01")

	view := fs.NewView()
	assert.True(t, view.GetState(addr, slot).IsZero())

	view.SetState(addr, slot, common.HexToHash("0x2a"))
	assert.Equal(t, common.HexToHash("0x2a"), view.GetState(addr, slot))

	// uncommitted writes are invisible on a fresh view over the same base
	other := fs.NewView()
	assert.True(t, other.GetState(addr, slot).IsZero())

	view.Commit()
	committed := fs.NewView()
	assert.Equal(t, common.HexToHash("0x2a"), committed.GetState(addr, slot))
}

func TestStateViewDropDiscardsWrites(t *testing.T) {
	fs := New()
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	view := fs.NewView()
	view.SetBalance(addr, big.NewInt(500))
	view.Drop()

	fresh := fs.NewView()
	assert.Equal(t, int64(0), fresh.GetBalance(addr).Int64())
}

func TestBalanceAddSub(t *testing.T) {
	fs := New()
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	view := fs.NewView()

	view.AddBalance(addr, big.NewInt(100))
	view.AddBalance(addr, big.NewInt(50))
	assert.Equal(t, int64(150), view.GetBalance(addr).Int64())

	view.SubBalance(addr, big.NewInt(30))
	assert.Equal(t, int64(120), view.GetBalance(addr).Int64())
}

func TestCodeRoundTrip(t *testing.T) {
	fs := New()
	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	view := fs.NewView()

	code := []byte{0x60, 0x01, 0x60, 0x02, 0x01}
	view.SetCode(addr, code)
	assert.Equal(t, code, view.GetCode(addr))
	assert.False(t, view.GetCodeHash(addr).IsZero())
	assert.True(t, view.Exist(addr))
}

func TestAdminSetSlotBypassesOverlay(t *testing.T) {
	fs := New()
	addr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	fs.SetBalance(addr, common.BigToHash(big.NewInt(999)))

	view := fs.NewView()
	assert.Equal(t, int64(999), view.GetBalance(addr).Int64())
}
