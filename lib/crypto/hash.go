package crypto

import (
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

const (
	HashSize = blake2b.Size256
)

/*
	Hash derives the fixed-size identifiers of the dex: position ids, auction ids, auction position nonces
	and commitment roots. Every derivation is domain separated by a tag so that ids of different kinds never collide.
*/

// Hasher() returns the global hashing algorithm used
func Hasher() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash() executes the global hashing algorithm on input bytes
func Hash(msg []byte) []byte {
	h := blake2b.Sum256(msg)
	return h[:]
}

// HashString() returns the hex byte version of a hash
func HashString(msg []byte) string { return hex.EncodeToString(Hash(msg)) }

// DomainHash() hashes the length prefixed domain tag followed by each part
func DomainHash(domain string, parts ...[]byte) [HashSize]byte {
	h := Hasher()
	h.Write([]byte{byte(len(domain))})
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// MerkleTree creates a merkle tree from a slice of bytes stored as a linear slice
// example: items = {a, b, c, d} -> store = {H(a), H(b), H(c), H(d), H(H(a),H(b)), H(H(c),H(d)), H(H(H(a),H(b)),H(H(c),H(d))) }
func MerkleTree(items [][]byte) (root []byte, store [][]byte) {
	if len(items) == 0 {
		return []byte{}, [][]byte{}
	}
	offset := nextPowerOfTwo(len(items))
	size := offset*2 - 1
	store = make([][]byte, size)
	for i, item := range items {
		store[i] = Hash(item)
	}
	for i := 0; i < size-1; i += 2 {
		switch {
		default:
			store[offset] = Hash(concat(store[i], store[i+1]))
		// no left child
		case store[i] == nil:
			store[offset] = nil
		// no right child, parent = hash(left || left)
		case store[i+1] == nil:
			store[offset] = Hash(concat(store[i], store[i]))
		}
		offset++
	}
	return store[size-1], store
}

// nextPowerOfTwo() calculates the smallest power of 2 that is greater than or equal to the input value
func nextPowerOfTwo(v int) int {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func concat(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}
