package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndString(t *testing.T) {
	msg := make([]byte, 100)
	_, err := rand.Read(msg)
	require.NoError(t, err)
	hasher := Hasher()
	_, err = hasher.Write(msg)
	require.NoError(t, err)
	byHasher := hasher.Sum(nil)
	hash := Hash(msg)
	require.Equal(t, hash, byHasher)
	require.Len(t, hash, HashSize)
	require.Equal(t, hex.EncodeToString(hash), HashString(msg))
}

func TestDomainHash(t *testing.T) {
	a := DomainHash("position", []byte("x"))
	b := DomainHash("auction", []byte("x"))
	require.NotEqual(t, a, b)
	require.Equal(t, a, DomainHash("position", []byte("x")))
	// moving bytes between the tag and the payload must change the digest
	require.NotEqual(t, DomainHash("ab", []byte("c")), DomainHash("a", []byte("bc")))
}

func TestMerkleTree(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		items    [][]byte
		expected []byte
	}{
		{
			name:     "empty",
			detail:   "no items yields an empty root",
			items:    nil,
			expected: []byte{},
		},
		{
			name:     "single",
			detail:   "a single item is its own root",
			items:    [][]byte{[]byte("a")},
			expected: Hash([]byte("a")),
		},
		{
			name:     "odd",
			detail:   "a missing right child duplicates the left",
			items:    [][]byte{[]byte("a"), []byte("b"), []byte("c")},
			expected: Hash(concat(Hash(concat(Hash([]byte("a")), Hash([]byte("b")))), Hash(concat(Hash([]byte("c")), Hash([]byte("c")))))),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root, _ := MerkleTree(test.items)
			require.Equal(t, test.expected, root)
		})
	}
}
