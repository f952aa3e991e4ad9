package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/* This file contains transaction handling logic - for the payload handling check message.go */

// ApplyTransaction() processes the transaction within the state machine, returning the corresponding TxResult
// all actions of a transaction apply atomically: a single failing action rolls back the whole transaction
func (s *StateMachine) ApplyTransaction(index int, tx *dex.Transaction, hash string) *TxResult {
	s.events.Refer(hash)
	err := s.Atomic(func() lib.ErrorI {
		// perform basic validations against the tx object
		if err := s.CheckTx(tx, hash); err != nil {
			return err
		}
		// handle every action in order
		for _, action := range tx.Actions {
			if err := s.HandleAction(action); err != nil {
				return err
			}
		}
		// index the transaction to prevent replays
		return s.Set(KeyForTx(hash), []byte{1})
	})
	if err != nil {
		return s.rejectTx(index, hash, tx, err)
	}
	return newTxResult(index, s.height, hash, tx, nil)
}

// CheckTx() validates the transaction object statelessly and then authorizes each action
func (s *StateMachine) CheckTx(tx *dex.Transaction, hash string) lib.ErrorI {
	if tx == nil || len(tx.Actions) == 0 {
		return ErrEmptyTransaction()
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	// ensure the transaction wasn't applied before
	bz, err := s.Get(KeyForTx(hash))
	if err != nil {
		return err
	}
	if bz != nil {
		return ErrDuplicateTx(hash)
	}
	// check every proof against the action it authorizes
	for i, action := range tx.Actions {
		if err = s.verifier.VerifyAction(s.Config.ChainId, action, tx.Proofs[i]); err != nil {
			return err
		}
	}
	return nil
}

// rejectTx() logs and counts a rejected transaction
func (s *StateMachine) rejectTx(index int, hash string, tx *dex.Transaction, err lib.ErrorI) *TxResult {
	result := newTxResult(index, s.height, hash, tx, err)
	s.log.Debugf("Rejected tx %s at height %d (%s): %s", shortHash(hash), s.height, result.Class, err.Error())
	s.Metrics.RejectTx(string(result.Class))
	return result
}

// shortHash() truncates a hex hash for logging
func shortHash(hash string) string {
	if len(hash) > 10 {
		return hash[:10]
	}
	return hash
}
