package vm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkdev/anvil-node/internal/common"
	"github.com/zkdev/anvil-node/internal/store"
)

func encodeAddress(addr common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], addr.Bytes())
	return out
}

func encodeUint(v *big.Int) []byte {
	out := make([]byte, 32)
	b := v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

func dealCalldata(who common.Address, newBalance *big.Int) []byte {
	data := append([]byte{}, dealSelector[:]...)
	data = append(data, encodeAddress(who)...)
	data = append(data, encodeUint(newBalance)...)
	return data
}

func setNonceCalldata(account common.Address, nonce uint64) []byte {
	data := append([]byte{}, setNonceSelector[:]...)
	data = append(data, encodeAddress(account)...)
	data = append(data, encodeUint(new(big.Int).SetUint64(nonce))...)
	return data
}

func TestCheatcodeDealSetsBalanceDirectly(t *testing.T) {
	fs := store.New()
	view := fs.NewView()
	e := NewEVM(BlockContext{}, TxContext{}, view, Config{})

	target := common.HexToAddress("0x1111111111111111111111111111111111111111")
	who := common.HexToAddress("0x2222222222222222222222222222222222222222")

	result := e.Call(target, CheatAddress, dealCalldata(who, big.NewInt(1337)), 1_000_000, big.NewInt(0))
	require.True(t, result.Success)
	assert.Equal(t, int64(1337), view.GetBalance(who).Int64())
}

func TestCheatcodeDealLowersBalanceToo(t *testing.T) {
	fs := store.New()
	view := fs.NewView()
	who := common.HexToAddress("0x3333333333333333333333333333333333333333")
	view.AddBalance(who, big.NewInt(5000))

	e := NewEVM(BlockContext{}, TxContext{}, view, Config{})
	result := e.Call(common.Address{}, CheatAddress, dealCalldata(who, big.NewInt(100)), 1_000_000, big.NewInt(0))
	require.True(t, result.Success)
	assert.Equal(t, int64(100), view.GetBalance(who).Int64())
}

func TestCheatcodeSetNonceAdvancesNonce(t *testing.T) {
	fs := store.New()
	view := fs.NewView()
	account := common.HexToAddress("0x4444444444444444444444444444444444444444")

	e := NewEVM(BlockContext{}, TxContext{}, view, Config{})
	result := e.Call(common.Address{}, CheatAddress, setNonceCalldata(account, 7), 1_000_000, big.NewInt(0))
	require.True(t, result.Success)
	assert.Equal(t, uint64(7), view.GetNonce(account))
}

func TestCheatcodeSetNonceRejectsNonIncreasing(t *testing.T) {
	fs := store.New()
	view := fs.NewView()
	account := common.HexToAddress("0x5555555555555555555555555555555555555555")
	view.SetNonce(account, 10)

	e := NewEVM(BlockContext{}, TxContext{}, view, Config{})
	result := e.Call(common.Address{}, CheatAddress, setNonceCalldata(account, 5), 1_000_000, big.NewInt(0))
	assert.False(t, result.Success)
	assert.Equal(t, uint64(10), view.GetNonce(account))
}

func TestCheatcodeInterceptedViaSubCall(t *testing.T) {
	fs := store.New()
	view := fs.NewView()
	who := common.HexToAddress("0x6666666666666666666666666666666666666666")

	// A contract that CALLs into CheatAddress with deal(who, 42) as its own
	// body: PUSH-loads calldata into memory then issues CALL. Exercising
	// execSubCall's interception path (as opposed to Call's top-level one)
	// is the point of this test, so the caller contract is minimal but real
	// bytecode rather than invoking dispatchCheatcode directly.
	caller := common.HexToAddress("0x7777777777777777777777777777777777777777")
	calldata := dealCalldata(who, big.NewInt(42))
	code := buildCallerBytecode(calldata, CheatAddress)
	view.SetCode(caller, code)

	e := NewEVM(BlockContext{}, TxContext{}, view, Config{})
	result := e.Call(common.Address{}, caller, nil, 1_000_000, big.NewInt(0))
	require.True(t, result.Success)
	assert.Equal(t, int64(42), view.GetBalance(who).Int64())
}

// buildCallerBytecode assembles a tiny program that stores calldata into
// memory via repeated PUSH32/MSTORE (pushing offset then word, matching this
// VM's pop2 "first-pushed, second-pushed" convention for MSTORE(offset,
// value)) then issues a CALL to target with that memory range as input. No
// CODECOPY exists in this VM subset, so the calldata is baked directly into
// the bytecode as MSTORE literals instead.
func buildCallerBytecode(calldata []byte, target common.Address) []byte {
	var code []byte
	push := func(v uint64) {
		code = append(code, byte(PUSH1), byte(v))
	}
	push32 := func(word []byte) {
		var padded [32]byte
		copy(padded[32-len(word):], word)
		code = append(code, byte(PUSH32))
		code = append(code, padded[:]...)
	}

	argsLen := uint64(len(calldata))
	offset := uint64(0)
	remaining := calldata
	for len(remaining) > 0 {
		chunk := remaining
		if len(chunk) > 32 {
			chunk = chunk[:32]
		}
		push(offset)
		var word [32]byte
		copy(word[:], chunk)
		push32(word[:])
		code = append(code, byte(MSTORE))
		remaining = remaining[len(chunk):]
		offset += 32
	}

	// CALL argument stack, bottom to top: retLen, retOffset, argsLen,
	// argsOffset, value, addr, gas - execSubCall pops plain top-to-bottom as
	// gas, addr, value, argsOff, argsLen, retOff, retLen.
	push(0)       // retLen
	push(0)       // retOffset
	push(argsLen) // argsLen
	push(0)       // argsOffset
	push(0)       // value
	push32(target.Bytes())
	push32(big.NewInt(1_000_000).Bytes()) // gas: generous fixed budget
	code = append(code, byte(CALL))
	code = append(code, byte(STOP))
	return code
}
