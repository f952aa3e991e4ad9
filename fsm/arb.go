package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/*
	After the batches clear, the book may hold cycles whose price product is below one: selling an asset around
	the cycle returns more of it than was put in. The arbitrage executor simulates a cycle from every routing
	candidate, executes only the most profitable one and keeps the surplus in a protocol controlled reserve.
	The cycle input is a flash input: it returns in full, so the circuit breaker ledger doesn't change.
*/

// Arbitrage() executes the most profitable cycle of the book, returning nil if none is profitable
func (s *StateMachine) Arbitrage() (*dex.SwapExecution, lib.ErrorI) {
	if !s.Config.ArbitrageEnabled {
		return nil, nil
	}
	var (
		best        *dex.AssetId
		bestSurplus lib.Amount
	)
	// candidates are ascending, so a tie keeps the smallest start asset
	for _, candidate := range s.RoutingCandidates() {
		var exec *dex.SwapExecution
		err := s.Simulate(func() (e lib.ErrorI) {
			exec, e = s.arbitrageFrom(candidate)
			return
		})
		if err != nil {
			s.log.Warnf("Arbitrage simulation from %s failed: %s", lib.BytesToTruncatedString(candidate.Bytes()), err.Error())
			continue
		}
		if surplus := exec.Surplus(); surplus.GT(bestSurplus) {
			start := candidate
			best, bestSurplus = &start, surplus
		}
	}
	if best == nil {
		return nil, nil
	}
	exec, err := s.arbitrageFrom(*best)
	if err != nil {
		return nil, err
	}
	surplus := exec.Surplus()
	if surplus.IsZero() {
		return nil, nil
	}
	if err = s.creditArbitrageReserve(dex.NewValue(*best, surplus)); err != nil {
		return nil, err
	}
	if err = s.setObject(KeyForArbExecution(s.height), exec); err != nil {
		return nil, err
	}
	s.log.Infof("Arbitrage at height %d captured %s", s.height, describe(dex.NewValue(*best, surplus)))
	s.Metrics.IncArbitrage()
	s.addEvent(lib.EventTypeArbitrage, exec)
	return exec, nil
}

// arbitrageFrom() repeatedly fills the cheapest cycle through start while a step returns more than it consumes
func (s *StateMachine) arbitrageFrom(start dex.AssetId) (*dex.SwapExecution, lib.ErrorI) {
	exec := &dex.SwapExecution{Input: dex.NewValue(start, lib.Amount{}), Output: dex.NewValue(start, lib.Amount{})}
	one, excluded := dex.OneToOne(), make(map[dex.PositionId]struct{})
	for steps := 0; steps < s.maxExecutionSteps(); {
		r, err := s.bestRoute(start, start, dex.RoutingDefault{}, excluded)
		if err != nil {
			return nil, err
		}
		if r == nil || r.price.Cmp(one) >= 0 {
			break
		}
		// the flash input is bounded only by what the cycle can carry
		st, failed := s.nextStep(r, lib.MaxAmount())
		if failed != nil {
			excluded[*failed] = struct{}{}
			continue
		}
		if st == nil || !st.output().Amount.GT(st.consumed) {
			break
		}
		if err = s.applyStep(start, st, exec); err != nil {
			return nil, err
		}
		steps++
	}
	return exec, nil
}

// creditArbitrageReserve() adds the captured surplus to the protocol controlled reserve
func (s *StateMachine) creditArbitrageReserve(v dex.Value) lib.ErrorI {
	balance, err := s.getAmount(KeyForArbReserve(v.Asset))
	if err != nil {
		return err
	}
	if balance, err = balance.Add(v.Amount); err != nil {
		return err
	}
	return s.setAmount(KeyForArbReserve(v.Asset), balance)
}

// ArbitrageReserves() returns the captured surplus of every asset
func (s *StateMachine) ArbitrageReserves() (reserves []dex.Value, err lib.ErrorI) {
	err = s.IterateAndExecute(ArbReservePrefix(), func(key, value []byte) lib.ErrorI {
		asset, e := AssetFromKey(key)
		if e != nil {
			return e
		}
		amount, e := lib.AmountFromBytes(value)
		if e != nil {
			return e
		}
		reserves = append(reserves, dex.NewValue(asset, amount))
		return nil
	})
	return
}

// GetArbitrageExecution() loads the arbitrage execution of a height, nil if none ran
func (s *StateMachine) GetArbitrageExecution(height uint64) (*dex.SwapExecution, lib.ErrorI) {
	exec := new(dex.SwapExecution)
	found, err := s.getObject(KeyForArbExecution(height), exec)
	if err != nil || !found {
		return nil, err
	}
	return exec, nil
}
