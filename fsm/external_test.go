package fsm

import (
	"testing"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/stretchr/testify/require"
)

func TestBindingVerifier(t *testing.T) {
	action := &dex.PositionClose{PositionId: dex.PositionId{1}}
	proof, err := SignAction("chain", action)
	require.NoError(t, err)
	tests := []struct {
		name    string
		detail  string
		chainId string
		action  dex.Action
		proof   []byte
		error   lib.ErrorI
	}{
		{name: "valid", detail: "the proof binds the action to the chain", chainId: "chain", action: action, proof: proof},
		{name: "other chain", detail: "the proof can't be replayed on another chain", chainId: "other", action: action, proof: proof, error: dex.ErrInvalidProof()},
		{name: "other action", detail: "the proof can't authorize another action", chainId: "chain", action: &dex.PositionClose{PositionId: dex.PositionId{2}}, proof: proof, error: dex.ErrInvalidProof()},
		{name: "empty", detail: "a missing proof is rejected", chainId: "chain", action: action, error: dex.ErrInvalidProof()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := BindingVerifier{}.VerifyAction(test.chainId, test.action, test.proof)
			if test.error == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, test.error)
		})
	}
}

func TestStateCommitmentTree(t *testing.T) {
	sm := newTestStateMachine(t)
	tree := StateCommitmentTree{}
	empty, err := tree.Root(sm.Store())
	require.NoError(t, err)
	// leaves are indexed in insertion order
	for i, c := range []dex.Commitment{{1}, {2}, {3}} {
		index, e := tree.Insert(sm.Store(), c)
		require.NoError(t, e)
		require.EqualValues(t, i, index)
	}
	root, err := tree.Root(sm.Store())
	require.NoError(t, err)
	require.NotEqual(t, empty, root)
	// duplicates and zero commitments are rejected
	_, err = tree.Insert(sm.Store(), dex.Commitment{2})
	require.ErrorIs(t, err, dex.ErrDuplicateCommitment())
	_, err = tree.Insert(sm.Store(), dex.Commitment{})
	require.ErrorIs(t, err, dex.ErrInvalidCommitment())
	// the root is a pure function of the leaves
	other := newTestStateMachine(t)
	for _, c := range []dex.Commitment{{1}, {2}, {3}} {
		_, err = tree.Insert(other.Store(), c)
		require.NoError(t, err)
	}
	otherRoot, err := other.CommitmentRoot()
	require.NoError(t, err)
	require.Equal(t, root, otherRoot)
}

func TestCircuitBreaker(t *testing.T) {
	sm := newTestStateMachine(t)
	require.NoError(t, sm.VCBCredit(dex.NewValue(testAssetA, lib.NewAmount(100))))
	require.NoError(t, sm.VCBDebit(dex.NewValue(testAssetA, lib.NewAmount(40))))
	// a debit above the balance is refused and leaves the balance untouched
	err := sm.VCBDebit(dex.NewValue(testAssetA, lib.NewAmount(61)))
	require.ErrorIs(t, err, dex.ErrCircuitBreakerUnderflow(testAssetA, lib.Amount{}, lib.Amount{}))
	require.Equal(t, dex.ClassInvariant, dex.ClassOf(err))
	balance, err := sm.VCBBalance(testAssetA)
	require.NoError(t, err)
	require.Equal(t, lib.NewAmount(60), balance)
	// an asset never credited can't be debited
	require.Error(t, sm.VCBDebit(dex.NewValue(testAssetB, lib.NewAmount(1))))
	// draining the balance removes it
	require.NoError(t, sm.VCBDebit(dex.NewValue(testAssetA, lib.NewAmount(60))))
	balances, err := sm.VCBBalances()
	require.NoError(t, err)
	require.Empty(t, balances)
}

func TestGetEventsPaginated(t *testing.T) {
	sm := newTestStateMachine(t)
	positions := []*dex.Position{
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 100, 1),
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 100, 2),
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 100, 3),
	}
	var txs []*dex.Transaction
	for _, p := range positions {
		txs = append(txs, newTestTx(t, sm, &dex.PositionOpen{Position: *p}))
	}
	result := applyTestBlock(t, sm, txs...)
	require.Len(t, result.Events, 3)
	page, err := sm.GetEventsPaginated(result.Height, lib.PageParams{PageNumber: 1, PerPage: 2})
	require.NoError(t, err)
	require.Equal(t, 3, page.TotalCount)
	events, ok := page.Results.(*lib.Events)
	require.True(t, ok)
	require.Len(t, *events, 2)
	for _, e := range *events {
		require.Equal(t, lib.EventTypePositionOpen, e.Type)
		require.EqualValues(t, result.Height, e.Height)
	}
	// another height has no events
	page, err = sm.GetEventsPaginated(result.Height+1, lib.PageParams{PageNumber: 1, PerPage: 2})
	require.NoError(t, err)
	require.Zero(t, page.TotalCount)
}

func TestGetPositionsPaginated(t *testing.T) {
	sm := newTestStateMachine(t)
	ab, bc := newTestPair(t, testAssetA, testAssetB), newTestPair(t, testAssetB, testAssetC)
	openTestPositions(t, sm,
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 100, 1),
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 100, 2),
		newTestPosition(t, testAssetC, testAssetB, 1, 1, 30, 100, 3),
	)
	closed := newTestPosition(t, testAssetC, testAssetB, 1, 1, 30, 100, 4)
	openTestPositions(t, sm, closed)
	require.NoError(t, sm.ClosePosition(closed.Id()))
	tests := []struct {
		name   string
		detail string
		filter PositionFilter
		count  int
	}{
		{name: "all", detail: "no filter lists every position", count: 4},
		{name: "pair", detail: "positions of a pair", filter: PositionFilter{Pair: &ab}, count: 2},
		{name: "pair and state", detail: "opened positions of a pair", filter: PositionFilter{Pair: &bc, State: dex.PositionStateOpened}, count: 1},
		{name: "state", detail: "closed positions", filter: PositionFilter{State: dex.PositionStateClosed}, count: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page, err := sm.GetPositionsPaginated(lib.PageParams{PageNumber: 1, PerPage: 10}, test.filter)
			require.NoError(t, err)
			require.Equal(t, test.count, page.TotalCount)
		})
	}
}
