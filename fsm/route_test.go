package fsm

import (
	"math/big"
	"testing"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/stretchr/testify/require"
)

func TestRouteAndFill(t *testing.T) {
	a, b, c := testAssetA, testAssetB, testAssetC
	tests := []struct {
		name      string
		detail    string
		positions []*dex.Position
		input     dex.Value
		target    dex.AssetId
		routing   dex.Routing
		maxSteps  int
		maxHops   int
		traces    []dex.Trace
		unfilled  uint64
	}{
		{
			name:   "cheapest first",
			detail: "the cheaper position is drained before the more expensive one is touched",
			positions: []*dex.Position{
				newTestPosition(t, b, a, 1, 2, 0, 100, 1),
				newTestPosition(t, b, a, 1, 1, 0, 30, 2),
			},
			input:  dex.NewValue(a, lib.NewAmount(100)),
			target: b,
			traces: []dex.Trace{
				{dex.NewValue(a, lib.NewAmount(30)), dex.NewValue(b, lib.NewAmount(30))},
				{dex.NewValue(a, lib.NewAmount(70)), dex.NewValue(b, lib.NewAmount(35))},
			},
		},
		{
			name:   "step limit",
			detail: "routing stops after the configured number of steps",
			positions: []*dex.Position{
				newTestPosition(t, b, a, 1, 2, 0, 100, 1),
				newTestPosition(t, b, a, 1, 1, 0, 30, 2),
			},
			input:    dex.NewValue(a, lib.NewAmount(100)),
			target:   b,
			maxSteps: 1,
			traces:   []dex.Trace{{dex.NewValue(a, lib.NewAmount(30)), dex.NewValue(b, lib.NewAmount(30))}},
			unfilled: 70,
		},
		{
			name:   "multi hop",
			detail: "the input reaches the target through a routing candidate, bounded by the last hop",
			positions: []*dex.Position{
				newTestPosition(t, b, a, 1, 1, 0, 100, 1),
				newTestPosition(t, c, b, 1, 1, 0, 60, 2),
			},
			input:    dex.NewValue(a, lib.NewAmount(100)),
			target:   c,
			traces:   []dex.Trace{{dex.NewValue(a, lib.NewAmount(60)), dex.NewValue(b, lib.NewAmount(60)), dex.NewValue(c, lib.NewAmount(60))}},
			unfilled: 40,
		},
		{
			name:   "multi hop with fees",
			detail: "the intermediate hop must absorb everything it receives",
			positions: []*dex.Position{
				newTestPosition(t, b, a, 1, 1, 30, 1_000, 1),
				newTestPosition(t, c, b, 1, 1, 30, 50, 2),
			},
			input:    dex.NewValue(a, lib.NewAmount(100)),
			target:   c,
			traces:   []dex.Trace{{dex.NewValue(a, lib.NewAmount(52)), dex.NewValue(b, lib.NewAmount(51)), dex.NewValue(c, lib.NewAmount(50))}},
			unfilled: 48,
		},
		{
			name:   "single hop",
			detail: "single hop routing never crosses an intermediate asset",
			positions: []*dex.Position{
				newTestPosition(t, b, a, 1, 1, 0, 100, 1),
				newTestPosition(t, c, b, 1, 1, 0, 60, 2),
			},
			input:    dex.NewValue(a, lib.NewAmount(100)),
			target:   c,
			routing:  dex.RoutingSingleHop{},
			unfilled: 100,
		},
		{
			name:   "hop limit",
			detail: "a hop limit of one behaves like single hop routing",
			positions: []*dex.Position{
				newTestPosition(t, b, a, 1, 1, 0, 100, 1),
				newTestPosition(t, c, b, 1, 1, 0, 60, 2),
			},
			input:    dex.NewValue(a, lib.NewAmount(100)),
			target:   c,
			maxHops:  1,
			unfilled: 100,
		},
		{
			name:      "empty book",
			detail:    "everything is returned when there's no position",
			input:     dex.NewValue(a, lib.NewAmount(100)),
			target:    b,
			unfilled:  100,
			positions: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sm := newTestStateMachine(t)
			sm.Config.MaxExecutionSteps, sm.Config.MaxHops = test.maxSteps, test.maxHops
			openTestPositions(t, sm, test.positions...)
			routing := test.routing
			if routing == nil {
				routing = dex.RoutingDefault{}
			}
			exec, unfilled, err := sm.RouteAndFill(test.input, test.target, routing)
			require.NoError(t, err)
			require.Equal(t, test.traces, exec.Traces)
			require.Equal(t, lib.NewAmount(test.unfilled), unfilled)
			// consumed and unfilled always add up to the input
			total, err := unfilled.Add(exec.Input.Amount)
			require.NoError(t, err)
			require.Equal(t, test.input.Amount, total)
		})
	}
}

func TestRouteAndFillWidePrice(t *testing.T) {
	sm := newTestStateMachine(t)
	honest := newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 1_000, 1)
	// pays 2^120 B per A out of a reserve of 5 B
	dust := newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 5, 2)
	wide, err := lib.AmountFromBig(new(big.Int).Lsh(big.NewInt(1), 120))
	require.NoError(t, err)
	if dust.Phi.Pair.Asset1 == testAssetB {
		dust.Phi.Component.Q = wide
	} else {
		dust.Phi.Component.P = wide
	}
	openTestPositions(t, sm, honest, dust)
	exec, unfilled, err := sm.RouteAndFill(dex.NewValue(testAssetA, lib.NewAmount(1<<20)), testAssetB, dex.RoutingDefault{})
	require.NoError(t, err)
	// the dust position pays its whole reserve for one unit and the honest one absorbs the rest it can
	require.Equal(t, []dex.Trace{
		{dex.NewValue(testAssetA, lib.NewAmount(1)), dex.NewValue(testAssetB, lib.NewAmount(5))},
		{dex.NewValue(testAssetA, lib.NewAmount(1_000)), dex.NewValue(testAssetB, lib.NewAmount(1_000))},
	}, exec.Traces)
	require.Equal(t, lib.NewAmount(1_005), exec.Output.Amount)
	require.Equal(t, lib.NewAmount(1<<20-1_001), unfilled)
}

func TestRouteSkipsFailingPosition(t *testing.T) {
	sm := newTestStateMachine(t)
	pair := newTestPair(t, testAssetA, testAssetB)
	sell, buy := pair.Asset2, pair.Asset1
	honest := newTestPosition(t, sell, buy, 1, 1, 0, 1_000, 1)
	openTestPositions(t, sm, honest)
	// a corrupt position at the top of the book whose every fill divides by zero
	broken := newTestPosition(t, sell, buy, 1, 1, 0, 1_000, 2)
	broken.Phi.Component.Q = lib.Amount{}
	require.NoError(t, sm.SetPosition(broken))
	best, err := sm.BestPosition(dex.DirectedTradingPair{Start: buy, End: sell})
	require.NoError(t, err)
	require.Equal(t, broken.Id(), best.Id())
	exec, unfilled, err := sm.RouteAndFill(dex.NewValue(buy, lib.NewAmount(100)), sell, dex.RoutingDefault{})
	require.NoError(t, err)
	require.True(t, unfilled.IsZero())
	require.Equal(t, lib.NewAmount(100), exec.Output.Amount)
	// the failing position is untouched and the honest one traded
	got, err := sm.GetPosition(broken.Id())
	require.NoError(t, err)
	require.Equal(t, broken.Reserves, got.Reserves)
	got, err = sm.GetPosition(honest.Id())
	require.NoError(t, err)
	require.Equal(t, dex.Reserves{R1: lib.NewAmount(100), R2: lib.NewAmount(900)}, got.Reserves)
}

func TestRouteAndFillSameAsset(t *testing.T) {
	sm := newTestStateMachine(t)
	_, unfilled, err := sm.RouteAndFill(dex.NewValue(testAssetA, lib.NewAmount(1)), testAssetA, dex.RoutingDefault{})
	require.ErrorIs(t, err, dex.ErrInvalidRoute())
	require.Equal(t, lib.NewAmount(1), unfilled)
}

func TestRouteClosesOnFill(t *testing.T) {
	sm := newTestStateMachine(t)
	position := newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 100, 1)
	position.CloseOnFill = true
	openTestPositions(t, sm, position)
	exec, unfilled, err := sm.RouteAndFill(dex.NewValue(testAssetA, lib.NewAmount(10)), testAssetB, dex.RoutingDefault{})
	require.NoError(t, err)
	require.True(t, unfilled.IsZero())
	require.Equal(t, lib.NewAmount(10), exec.Output.Amount)
	// the position traded once and left the book
	got, err := sm.GetPosition(position.Id())
	require.NoError(t, err)
	require.Equal(t, dex.PositionStateClosed, got.State)
	d := dex.DirectedTradingPair{Start: testAssetA, End: testAssetB}
	best, err := sm.BestPosition(d)
	require.NoError(t, err)
	require.Nil(t, best)
}

func TestSimulateTrade(t *testing.T) {
	sm := newTestStateMachine(t)
	cheap, expensive := newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 30, 1), newTestPosition(t, testAssetB, testAssetA, 1, 2, 0, 100, 2)
	openTestPositions(t, sm, cheap, expensive)
	result, err := sm.SimulateTrade(dex.NewValue(testAssetA, lib.NewAmount(100)), testAssetB, nil)
	require.NoError(t, err)
	require.Equal(t, lib.NewAmount(65), result.Execution.Output.Amount)
	require.True(t, result.Unfilled.Amount.IsZero())
	// the book is untouched
	got, err := sm.GetPosition(cheap.Id())
	require.NoError(t, err)
	require.Equal(t, cheap.Reserves, got.Reserves)
	// the spread shows the cheapest position of the direction
	pair := newTestPair(t, testAssetA, testAssetB)
	spread, err := sm.GetSpread(pair)
	require.NoError(t, err)
	view, empty := spread.Forward, spread.Backward
	if pair.Asset1 != testAssetA {
		view, empty = spread.Backward, spread.Forward
	}
	require.NotNil(t, view)
	require.Nil(t, empty)
	require.Equal(t, cheap.Id(), view.Id)
	// a zero input is rejected
	_, err = sm.SimulateTrade(dex.NewValue(testAssetA, lib.Amount{}), testAssetB, nil)
	require.ErrorIs(t, err, dex.ErrInvalidSwap())
}

func TestRoutingCandidates(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.Config.RoutingCandidates = []lib.HexBytes{testAssetC.Bytes(), {1, 2, 3}, testAssetA.Bytes(), testAssetC.Bytes()}
	candidates := sm.RoutingCandidates()
	require.Len(t, candidates, 2)
	require.True(t, candidates[0].Less(candidates[1]))
	require.ElementsMatch(t, []dex.AssetId{testAssetA, testAssetC}, candidates)
}

func TestPriceIndex(t *testing.T) {
	sm := newTestStateMachine(t)
	positions := []*dex.Position{
		newTestPosition(t, testAssetB, testAssetA, 1, 3, 0, 10, 1),
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 10, 2),
		newTestPosition(t, testAssetB, testAssetA, 1, 2, 0, 10, 3),
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 100, 10, 4),
	}
	openTestPositions(t, sm, positions...)
	d := dex.DirectedTradingPair{Start: testAssetA, End: testAssetB}
	ordered, err := sm.PositionsByPrice(d, 0)
	require.NoError(t, err)
	var ids []dex.PositionId
	for _, p := range ordered {
		ids = append(ids, p.Id())
	}
	// cheapest first: 1:1, 1:1 with a fee, 2:1, 3:1
	require.Equal(t, []dex.PositionId{positions[1].Id(), positions[3].Id(), positions[2].Id(), positions[0].Id()}, ids)
	// nothing sells the other direction
	none, err := sm.PositionsByPrice(d.Flip(), 0)
	require.NoError(t, err)
	require.Empty(t, none)
	// a closed position leaves the index
	require.NoError(t, sm.ClosePosition(positions[1].Id()))
	best, err := sm.BestPosition(d)
	require.NoError(t, err)
	require.Equal(t, positions[3].Id(), best.Id())
}

// openTestPositions() opens user funded positions directly against the pending state
func openTestPositions(t *testing.T, sm *StateMachine, positions ...*dex.Position) {
	for _, p := range positions {
		_, err := sm.OpenPosition(p)
		require.NoError(t, err)
	}
}
