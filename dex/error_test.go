package dex

import (
	"errors"
	"testing"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/stretchr/testify/require"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		err      error
		expected ErrorClass
	}{
		{name: "invalid pair", detail: "malformed input", err: ErrInvalidTradingPair(), expected: ClassValidation},
		{name: "zero step count", detail: "malformed auction", err: ErrInvalidStepCount(), expected: ClassValidation},
		{name: "duplicate position", detail: "nonce collision", err: ErrDuplicatePosition(PositionId{}), expected: ClassConflict},
		{name: "stale seq", detail: "auction revision mismatch", err: ErrStaleAuctionSeq(1, 2), expected: ClassConflict},
		{name: "illegal transition", detail: "lifecycle violation", err: ErrIllegalTransition(PositionStateOpened, PositionStateWithdrawn), expected: ClassConflict},
		{name: "overflow", detail: "checked arithmetic", err: lib.ErrAmountOverflow(), expected: ClassArithmetic},
		{name: "circuit breaker", detail: "invariant violation", err: ErrCircuitBreakerUnderflow(AssetId{}, lib.Amount{}, lib.NewAmount(1)), expected: ClassInvariant},
		{name: "foreign error", detail: "not a module error", err: errors.New("boom"), expected: ClassUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, ClassOf(test.err))
		})
	}
}
