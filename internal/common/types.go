// Package common holds the small set of value types shared by every layer
// of the node: addresses, hashes and the hex-encoding helpers built on top
// of them. The shapes mirror the common.Address / common.Hash conventions
// used throughout the go-ethereum family of node implementations.
package common

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address represents a 20-byte account or contract address.
type Address [AddressLength]byte

// Hash represents a 32-byte Keccak-256 digest or storage word.
type Hash [HashLength]byte

// BytesToAddress left-pads or truncates b to fit an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a 0x-prefixed (or bare) hex string into an Address.
func HexToAddress(s string) Address { return BytesToAddress(FromHex(s)) }

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string { return a.Hex() }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	*a = BytesToAddress(FromHex(string(text)))
	return nil
}

// BytesToHash left-pads or truncates b to fit a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a 0x-prefixed (or bare) hex string into a Hash.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

// BigToHash encodes a non-negative big.Int as a big-endian 32-byte word.
func BigToHash(n *big.Int) Hash { return BytesToHash(n.Bytes()) }

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Big() *big.Int { return new(big.Int).SetBytes(h[:]) }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	*h = BytesToHash(FromHex(string(text)))
	return nil
}

// FromHex decodes a hex string that may or may not carry a 0x prefix.
// Odd-length input is left-padded with a zero nibble, matching how most
// wire-format clients emit short hex numbers.
func FromHex(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Bytes2Hex returns the hex encoding of b without a 0x prefix.
func Bytes2Hex(b []byte) string { return hex.EncodeToString(b) }

// CopyBytes returns an independent copy of b.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// HexOrDecimal64 is a uint64 amount whose String form is 0x-hex (the wire
// default); it has no parsing method.
type HexOrDecimal64 uint64

func (h HexOrDecimal64) String() string { return fmt.Sprintf("0x%x", uint64(h)) }
