package common

import "golang.org/x/crypto/sha3"

// Keccak256 hashes data and returns the digest as a Hash.
func Keccak256(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// Keccak256Bytes is like Keccak256 but returns a plain byte slice, for
// callers (e.g. bytecode hashing) that don't need the fixed-size type.
func Keccak256Bytes(data ...[]byte) []byte {
	h := Keccak256(data...)
	return h.Bytes()
}
