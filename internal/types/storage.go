package types

import "github.com/zkdev/anvil-node/internal/common"

// StorageKey addresses a single 32-byte storage word: a contract address
// plus a slot. ForkStorage and StateView key their maps on this.
type StorageKey struct {
	Address common.Address
	Slot    common.Hash
}

// StorageValue is a plain 32-byte word, an alias of common.Hash; the alias
// lets call sites read as storage, not hashes.
type StorageValue = common.Hash

// NonceKey derives the fixed storage key a given account's nonce lives at.
// Kept distinct from a plain account-balance key derivation per the
// "fixed derivation rules" the node's account model requires.
func NonceKey(addr common.Address) StorageKey {
	return StorageKey{Address: addr, Slot: common.Keccak256([]byte("nonce"), addr.Bytes())}
}

// BalanceKey derives the fixed storage key the native balance "token" is
// kept under for a given account.
func BalanceKey(addr common.Address) StorageKey {
	return StorageKey{Address: addr, Slot: common.Keccak256([]byte("balance"), addr.Bytes())}
}
