package fsm

import (
	"fmt"

	"github.com/canopy-network/canopy-dex/lib"
)

// This file defines error objects for the State Machine module

func ErrWrongHeight(got, expected uint64) lib.ErrorI {
	return lib.NewError(lib.CodeWrongHeight, lib.StateMachineModule, fmt.Sprintf("wrong block height %d, expected %d", got, expected))
}

func ErrEmptyTransaction() lib.ErrorI {
	return lib.NewError(lib.CodeEmptyTransaction, lib.StateMachineModule, "transaction is empty")
}

func ErrDuplicateTx(hash string) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateTx, lib.StateMachineModule, fmt.Sprintf("duplicate transaction %s", hash))
}

func ErrBlockNotStarted() lib.ErrorI {
	return lib.NewError(lib.CodeBlockNotStarted, lib.StateMachineModule, "block not started")
}

func ErrWrongStoreType() lib.ErrorI {
	return lib.NewError(lib.CodeWrongStoreType, lib.StateMachineModule, "wrong store type")
}

func ErrInvalidKey(key []byte) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidKey, lib.StateMachineModule, fmt.Sprintf("invalid key %x", key))
}

func ErrInvalidGenesis(reason string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidGenesis, lib.StateMachineModule, fmt.Sprintf("invalid genesis: %s", reason))
}

func ErrNonEmptyState(version uint64) lib.ErrorI {
	return lib.NewError(lib.CodeNonEmptyState, lib.StateMachineModule, fmt.Sprintf("genesis requires an empty store, found version %d", version))
}
