package fsm

import (
	"bytes"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/crypto"
)

/*
	The dex core doesn't own the shielded pool. Authorization of actions and the note commitment tree are
	reached through the two interfaces below so a host chain can plug in its own proof system and tree.
*/

// ProofVerifierI authorizes a single action of a transaction
type ProofVerifierI interface {
	VerifyAction(chainId string, action dex.Action, proof []byte) lib.ErrorI
}

// CommitmentTreeI is an append only set of commitments stored alongside the dex state
type CommitmentTreeI interface {
	// Insert() appends a commitment, returning its leaf index
	Insert(store lib.RWStoreI, c dex.Commitment) (uint64, lib.ErrorI)
	// Root() returns the root over every inserted commitment
	Root(store lib.RStoreI) ([]byte, lib.ErrorI)
}

var (
	_ ProofVerifierI  = BindingVerifier{}
	_ CommitmentTreeI = StateCommitmentTree{}
)

// BindingVerifier accepts a proof equal to the chain bound hash of the action
type BindingVerifier struct{}

// VerifyAction() recomputes the binding of the action and compares it to the proof
func (BindingVerifier) VerifyAction(chainId string, action dex.Action, proof []byte) lib.ErrorI {
	expected, err := dex.ActionBinding(chainId, action)
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, proof) {
		return dex.ErrInvalidProof()
	}
	return nil
}

// StateCommitmentTree keeps the commitment leaves in the dex store under an insertion index
type StateCommitmentTree struct{}

// Insert() appends a commitment, rejecting duplicates
func (StateCommitmentTree) Insert(store lib.RWStoreI, c dex.Commitment) (uint64, lib.ErrorI) {
	if c.IsZero() {
		return 0, dex.ErrInvalidCommitment()
	}
	bz, err := store.Get(KeyForCommitment(c))
	if err != nil {
		return 0, err
	}
	if bz != nil {
		return 0, dex.ErrDuplicateCommitment()
	}
	bz, err = store.Get(KeyForCommitmentCount())
	if err != nil {
		return 0, err
	}
	index := lib.BytesToUint64(bz)
	if err = store.Set(KeyForCommitment(c), lib.Uint64ToBytes(index)); err != nil {
		return 0, err
	}
	if err = store.Set(KeyForCommitmentLeaf(index), c.Bytes()); err != nil {
		return 0, err
	}
	return index, store.Set(KeyForCommitmentCount(), lib.Uint64ToBytes(index+1))
}

// Root() returns the merkle root over the leaves in insertion order
func (StateCommitmentTree) Root(store lib.RStoreI) ([]byte, lib.ErrorI) {
	it, err := store.Iterator(CommitmentLeafPrefix())
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var leaves [][]byte
	for ; it.Valid(); it.Next() {
		leaves = append(leaves, it.Value())
	}
	root, _ := crypto.MerkleTree(leaves)
	return root, nil
}

// CommitmentRoot() returns the root of the commitment tree
func (s *StateMachine) CommitmentRoot() ([]byte, lib.ErrorI) { return s.tree.Root(s.store) }

// SignAction() produces the proof the BindingVerifier accepts for an action
func SignAction(chainId string, action dex.Action) (lib.HexBytes, lib.ErrorI) {
	return dex.ActionBinding(chainId, action)
}
