package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

// Spread is the best position of each direction of a pair
type Spread struct {
	Pair     dex.TradingPair   `json:"pair"`
	Forward  *dex.PositionView `json:"forward,omitempty"`  // sells asset 2 for asset 1
	Backward *dex.PositionView `json:"backward,omitempty"` // sells asset 1 for asset 2
}

// GetSpread() returns the best position of each direction of a pair
func (s *StateMachine) GetSpread(pair dex.TradingPair) (*Spread, lib.ErrorI) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	spread := &Spread{Pair: pair}
	for _, start := range []dex.AssetId{pair.Asset1, pair.Asset2} {
		d, err := pair.Directed(start)
		if err != nil {
			return nil, err
		}
		p, err := s.BestPosition(d)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		view := p.View()
		if d.StartsAtAsset1() {
			spread.Forward = &view
		} else {
			spread.Backward = &view
		}
	}
	return spread, nil
}

// SimulationResult is the outcome of routing an input against the current book without changing it
type SimulationResult struct {
	Execution *dex.SwapExecution `json:"execution"`
	Unfilled  dex.Value          `json:"unfilled"`
}

// SimulateTrade() routes an input against the current book and discards every change
func (s *StateMachine) SimulateTrade(input dex.Value, target dex.AssetId, routing dex.Routing) (result *SimulationResult, err lib.ErrorI) {
	if input.Amount.IsZero() {
		return nil, dex.ErrInvalidSwap()
	}
	if routing == nil {
		routing = dex.RoutingDefault{}
	}
	err = s.Simulate(func() lib.ErrorI {
		exec, unfilled, e := s.RouteAndFill(input, target, routing)
		if e != nil {
			return e
		}
		result = &SimulationResult{Execution: exec, Unfilled: dex.NewValue(input.Asset, unfilled)}
		return nil
	})
	return
}
