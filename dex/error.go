package dex

import (
	"errors"
	"fmt"

	"github.com/canopy-network/canopy-dex/lib"
)

// This file defines error objects for the dex module

func ErrInvalidTradingPair() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidTradingPair, lib.DexModule, "trading pair assets must be distinct and canonically ordered")
}

func ErrInvalidTradingFunction() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidTradingFunction, lib.DexModule, "trading function p and q must be positive")
}

func ErrInvalidFee(fee uint32) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidFee, lib.DexModule, fmt.Sprintf("fee %d exceeds %d basis points", fee, FeeDenominator))
}

func ErrInvalidReserves() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidReserves, lib.DexModule, "position reserves are empty")
}

func ErrInvalidAssetId() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidAssetId, lib.DexModule, "asset id is invalid")
}

func ErrInvalidPositionState() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidPositionState, lib.DexModule, "position state is invalid")
}

func ErrInvalidStepCount() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidStepCount, lib.DexModule, "auction step count must be at least 2")
}

func ErrInvalidAuctionHeights() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidAuctionHeights, lib.DexModule, "auction height range is empty or not divisible by the step count")
}

func ErrInvalidAuctionOutputs() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidAuctionOutputs, lib.DexModule, "auction outputs must satisfy 0 < min <= max")
}

func ErrInvalidSwap() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidSwap, lib.DexModule, "swap has no input")
}

func ErrInvalidAction() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidAction, lib.DexModule, "action is invalid")
}

func ErrUnknownAction(t string) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownAction, lib.DexModule, fmt.Sprintf("unknown action type %q", t))
}

func ErrInvalidPositionId() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidPositionId, lib.DexModule, "position id is invalid")
}

func ErrAssetNotInPair() lib.ErrorI {
	return lib.NewError(lib.CodeAssetNotInPair, lib.DexModule, "asset is not part of the trading pair")
}

func ErrInvalidRoute() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidRoute, lib.DexModule, "route is invalid")
}

func ErrInvalidProof() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidProof, lib.DexModule, "action authorization proof failed verification")
}

func ErrInvalidNonce() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidNonce, lib.DexModule, "nonce must be 32 bytes")
}

func ErrInvalidCommitment() lib.ErrorI {
	return lib.NewError(lib.CodeInvalidCommitment, lib.DexModule, "commitment must be 32 bytes")
}

func ErrDuplicatePosition(id PositionId) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicatePosition, lib.DexModule, fmt.Sprintf("position %s already exists", id))
}

func ErrPositionNotFound(id PositionId) lib.ErrorI {
	return lib.NewError(lib.CodePositionNotFound, lib.DexModule, fmt.Sprintf("position %s not found", id))
}

func ErrIllegalTransition(from, to PositionState) lib.ErrorI {
	return lib.NewError(lib.CodeIllegalTransition, lib.DexModule, fmt.Sprintf("position can't transition from %s to %s", from, to))
}

func ErrStaleAuctionSeq(got, expected uint64) lib.ErrorI {
	return lib.NewError(lib.CodeStaleAuctionSeq, lib.DexModule, fmt.Sprintf("auction seq %d is stale, expected %d", got, expected))
}

func ErrDuplicateAuction(id AuctionId) lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateAuction, lib.DexModule, fmt.Sprintf("auction %s already exists", id))
}

func ErrAuctionNotFound(id AuctionId) lib.ErrorI {
	return lib.NewError(lib.CodeAuctionNotFound, lib.DexModule, fmt.Sprintf("auction %s not found", id))
}

func ErrAuctionNotEnded() lib.ErrorI {
	return lib.NewError(lib.CodeAuctionNotEnded, lib.DexModule, "auction has not ended")
}

func ErrAuctionEnded() lib.ErrorI {
	return lib.NewError(lib.CodeAuctionEnded, lib.DexModule, "auction already ended")
}

func ErrSwapNotFound() lib.ErrorI {
	return lib.NewError(lib.CodeSwapNotFound, lib.DexModule, "swap not found")
}

func ErrSwapAlreadyClaimed() lib.ErrorI {
	return lib.NewError(lib.CodeSwapAlreadyClaimed, lib.DexModule, "swap already claimed")
}

func ErrBatchOutputNotFound(height uint64, pair TradingPair) lib.ErrorI {
	return lib.NewError(lib.CodeBatchOutputNotFound, lib.DexModule, fmt.Sprintf("no batch output for %s at height %d", pair, height))
}

func ErrDuplicateSwap() lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateSwap, lib.DexModule, "swap commitment already exists")
}

func ErrSwapNotYetExecuted() lib.ErrorI {
	return lib.NewError(lib.CodeSwapNotYetExecuted, lib.DexModule, "swap batch has not been executed yet")
}

func ErrDuplicateCommitment() lib.ErrorI {
	return lib.NewError(lib.CodeDuplicateCommitment, lib.DexModule, "commitment already recorded")
}

func ErrCircuitBreakerUnderflow(asset AssetId, balance, debit lib.Amount) lib.ErrorI {
	return lib.NewError(lib.CodeCircuitBreakerUnderflow, lib.DexModule,
		fmt.Sprintf("value circuit breaker: debit %s of %s exceeds balance %s", debit, asset, balance))
}

func ErrConservationViolated(pair TradingPair) lib.ErrorI {
	return lib.NewError(lib.CodeConservationViolated, lib.DexModule, fmt.Sprintf("batch output of %s does not conserve value", pair))
}

// ErrorClass is the failure taxonomy of the trading engine
type ErrorClass string

const (
	ClassUnknown    ErrorClass = "unknown"
	ClassValidation ErrorClass = "validation" // malformed input, rejected before any state mutation
	ClassConflict   ErrorClass = "conflict"   // well formed but conflicts with the current state
	ClassArithmetic ErrorClass = "arithmetic" // checked math failed, fatal to the fill or transaction
	ClassInvariant  ErrorClass = "invariant"  // a protocol invariant would break, transaction rolled back
)

// ClassOf() classifies an error into the failure taxonomy
func ClassOf(err error) ErrorClass {
	var e lib.ErrorI
	if !errors.As(err, &e) {
		return ClassUnknown
	}
	code := e.Code()
	switch e.Module() {
	case lib.MainModule:
		switch code {
		case lib.CodeAmountOverflow, lib.CodeAmountUnderflow, lib.CodeDivideByZero:
			return ClassArithmetic
		case lib.CodeInvalidAmountText, lib.CodeInvalidArgument, lib.CodeUnmarshal, lib.CodeJSONUnmarshal:
			return ClassValidation
		}
	case lib.DexModule:
		switch {
		case code < lib.CodeDuplicatePosition:
			return ClassValidation
		case code < lib.CodeCircuitBreakerUnderflow:
			return ClassConflict
		default:
			return ClassInvariant
		}
	case lib.StateMachineModule:
		switch code {
		case lib.CodeEmptyTransaction:
			return ClassValidation
		case lib.CodeDuplicateTx:
			return ClassConflict
		}
	}
	return ClassUnknown
}
