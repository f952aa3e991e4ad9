package fsm

import (
	"testing"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/stretchr/testify/require"
)

func TestArbitrage(t *testing.T) {
	tests := []struct {
		name      string
		detail    string
		enabled   bool
		positions []*dex.Position
		surplus   uint64
	}{
		{
			name:    "mispriced pair",
			detail:  "one position sells B at 1 A and another sells A at half a B, both cycles return 50",
			enabled: true,
			positions: []*dex.Position{
				newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 100, 1),
				newTestPosition(t, testAssetA, testAssetB, 2, 1, 0, 100, 2),
			},
			surplus: 50,
		},
		{
			name:    "disabled",
			detail:  "the executor doesn't run when disabled",
			enabled: false,
			positions: []*dex.Position{
				newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 100, 1),
				newTestPosition(t, testAssetA, testAssetB, 2, 1, 0, 100, 2),
			},
		},
		{
			name:    "consistent book",
			detail:  "a book whose cycles cost more than one has nothing to capture",
			enabled: true,
			positions: []*dex.Position{
				newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 100, 1),
				newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 2),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sm := newTestStateMachine(t)
			sm.Config.ArbitrageEnabled = test.enabled
			var actions []dex.Action
			for _, p := range test.positions {
				actions = append(actions, &dex.PositionOpen{Position: *p})
			}
			result := applyTestBlock(t, sm, newTestTx(t, sm, actions...))
			requireAccepted(t, result)
			reserves, err := sm.ArbitrageReserves()
			require.NoError(t, err)
			stored, err := sm.GetArbitrageExecution(result.Height)
			require.NoError(t, err)
			if test.surplus == 0 {
				require.Nil(t, result.Arbitrage)
				require.Nil(t, stored)
				require.Empty(t, reserves)
				return
			}
			// equal surpluses are broken by the smallest start asset
			start := testAssetA
			if testAssetB.Less(testAssetA) {
				start = testAssetB
			}
			require.NotNil(t, result.Arbitrage)
			require.Equal(t, start, result.Arbitrage.Input.Asset)
			require.Equal(t, lib.NewAmount(test.surplus), result.Arbitrage.Surplus())
			require.Equal(t, result.Arbitrage, stored)
			require.Equal(t, []dex.Value{dex.NewValue(start, lib.NewAmount(test.surplus))}, reserves)
			// the surplus moved from the positions to the reserve, the ledger is unchanged
			for _, asset := range []dex.AssetId{testAssetA, testAssetB} {
				balance, e := sm.VCBBalance(asset)
				require.NoError(t, e)
				require.Equal(t, lib.NewAmount(100), balance)
			}
			require.NoError(t, sm.CheckCustody())
			// the cycle is gone
			exec, err := sm.Arbitrage()
			require.NoError(t, err)
			require.Nil(t, exec)
		})
	}
}

func TestDefaultRoutingCandidates(t *testing.T) {
	newDefaultStateMachine := func(t *testing.T) *StateMachine {
		sm := newTestStateMachine(t)
		sm.Config.DexConfig = lib.DefaultDexConfig()
		require.Empty(t, sm.Config.RoutingCandidates)
		require.True(t, sm.Config.ArbitrageEnabled)
		require.Empty(t, sm.RoutingCandidates())
		return sm
	}
	t.Run("arbitrage", func(t *testing.T) {
		sm := newDefaultStateMachine(t)
		result := applyTestBlock(t, sm, newTestTx(t, sm,
			&dex.PositionOpen{Position: *newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 100, 1)},
			&dex.PositionOpen{Position: *newTestPosition(t, testAssetA, testAssetB, 2, 1, 0, 100, 2)},
		))
		requireAccepted(t, result)
		// the mispriced pair is captured from the assets the dex holds
		require.NotNil(t, result.Arbitrage)
		require.Equal(t, lib.NewAmount(50), result.Arbitrage.Surplus())
		require.ElementsMatch(t, []dex.AssetId{testAssetA, testAssetB}, sm.RoutingCandidates())
	})
	t.Run("multi hop", func(t *testing.T) {
		sm := newDefaultStateMachine(t)
		requireAccepted(t, applyTestBlock(t, sm, newTestTx(t, sm,
			&dex.PositionOpen{Position: *newTestPosition(t, testAssetB, testAssetA, 1, 1, 0, 100, 1)},
			&dex.PositionOpen{Position: *newTestPosition(t, testAssetC, testAssetB, 1, 1, 0, 100, 2)},
		)))
		candidates := sm.RoutingCandidates()
		require.ElementsMatch(t, []dex.AssetId{testAssetB, testAssetC}, candidates)
		require.True(t, candidates[0].Less(candidates[1]))
		// A reaches C through the held asset B
		exec, unfilled, err := sm.RouteAndFill(dex.NewValue(testAssetA, lib.NewAmount(10)), testAssetC, dex.RoutingDefault{})
		require.NoError(t, err)
		require.True(t, unfilled.IsZero())
		require.Equal(t, []dex.Trace{{
			dex.NewValue(testAssetA, lib.NewAmount(10)), dex.NewValue(testAssetB, lib.NewAmount(10)), dex.NewValue(testAssetC, lib.NewAmount(10)),
		}}, exec.Traces)
	})
}
