package vm

import (
	"math/big"

	"github.com/zkdev/anvil-node/internal/common"
)

// CheatAddress is the Foundry-style magic address a contract can CALL into
// mid-execution to reach cheatcodes directly, bypassing the anvil_* JSON-RPC
// surface entirely. address(uint160(uint256(keccak256("hevm cheat code")))).
var CheatAddress = common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D")

var (
	dealSelector     = selector4("deal(address,uint256)")
	setNonceSelector = selector4("setNonce(address,uint64)")
)

func selector4(sig string) [4]byte {
	var s [4]byte
	copy(s[:], common.Keccak256([]byte(sig)).Bytes())
	return s
}

// dispatchCheatcode decodes calldata sent to CheatAddress and applies it
// directly to statedb. Only deal and setNonce are supported, matching the
// two cheatcodes the embedded VM actually needs to emulate; an unrecognized
// selector or malformed calldata reverts the call rather than panicking.
func dispatchCheatcode(statedb StateDB, input []byte) (output []byte, success bool) {
	if len(input) < 4 {
		return nil, false
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	args := input[4:]

	switch sel {
	case dealSelector:
		if len(args) < 64 {
			return nil, false
		}
		who := common.BytesToAddress(args[:32])
		newBalance := new(big.Int).SetBytes(args[32:64])
		setBalance(statedb, who, newBalance)
		return nil, true

	case setNonceSelector:
		if len(args) < 64 {
			return nil, false
		}
		account := common.BytesToAddress(args[:32])
		nonce := new(big.Int).SetBytes(args[32:64]).Uint64()
		if nonce <= statedb.GetNonce(account) {
			return nil, false
		}
		statedb.SetNonce(account, nonce)
		return nil, true

	default:
		return nil, false
	}
}

// setBalance drives GetBalance/AddBalance/SubBalance to an absolute target,
// since StateDB only exposes balance deltas (see internal/vm/context.go).
func setBalance(statedb StateDB, addr common.Address, target *big.Int) {
	current := statedb.GetBalance(addr)
	switch current.Cmp(target) {
	case -1:
		statedb.AddBalance(addr, new(big.Int).Sub(target, current))
	case 1:
		statedb.SubBalance(addr, new(big.Int).Sub(current, target))
	}
}
