package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/*
	The position store keeps every position under its id and maintains a price index of the tradable ones:
	for each direction a position can sell into, a key ordered by (price key, id). Cheapest first iteration of
	that prefix is the order book of the direction. SetPosition() is the single writer of both, so the index
	never disagrees with the stored positions.
*/

// GetPosition() loads a position by id
func (s *StateMachine) GetPosition(id dex.PositionId) (*dex.Position, lib.ErrorI) {
	p := new(dex.Position)
	found, err := s.getObject(KeyForPosition(id), p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dex.ErrPositionNotFound(id)
	}
	return p, nil
}

// OpenPosition() opens a user funded position and credits its reserves to the circuit breaker
func (s *StateMachine) OpenPosition(p *dex.Position) (id dex.PositionId, err lib.ErrorI) {
	if id, err = s.openPosition(p); err != nil {
		return
	}
	for _, v := range p.Reserves.Values(p.Phi.Pair) {
		if err = s.VCBCredit(v); err != nil {
			return
		}
	}
	return
}

// openPosition() validates and inserts a new position without moving value through the circuit breaker
func (s *StateMachine) openPosition(p *dex.Position) (dex.PositionId, lib.ErrorI) {
	id := p.Id()
	if p.State != dex.PositionStateOpened {
		return id, dex.ErrInvalidPositionState()
	}
	if err := p.Validate(); err != nil {
		return id, err
	}
	// the id space is shared by every position ever opened, including withdrawn ones
	bz, err := s.Get(KeyForPosition(id))
	if err != nil {
		return id, err
	}
	if bz != nil {
		return id, dex.ErrDuplicatePosition(id)
	}
	if err = s.SetPosition(p); err != nil {
		return id, err
	}
	s.Metrics.UpdatePositions(1, 0)
	s.addEvent(lib.EventTypePositionOpen, snapshot(p))
	return id, nil
}

// ClosePosition() stops a position from trading
func (s *StateMachine) ClosePosition(id dex.PositionId) lib.ErrorI {
	p, err := s.GetPosition(id)
	if err != nil {
		return err
	}
	return s.closePosition(p)
}

// closePosition() moves an opened position to closed and removes it from the price index
func (s *StateMachine) closePosition(p *dex.Position) lib.ErrorI {
	if !p.State.CanTransitionTo(dex.PositionStateClosed) {
		return dex.ErrIllegalTransition(p.State, dex.PositionStateClosed)
	}
	p.State = dex.PositionStateClosed
	if err := s.SetPosition(p); err != nil {
		return err
	}
	s.Metrics.UpdatePositions(0, 1)
	s.addEvent(lib.EventTypePositionClose, snapshot(p))
	return nil
}

// WithdrawPosition() releases the reserves of a closed position and debits them from the circuit breaker
func (s *StateMachine) WithdrawPosition(id dex.PositionId) (reserves dex.Reserves, err lib.ErrorI) {
	p, err := s.GetPosition(id)
	if err != nil {
		return
	}
	if reserves, err = s.withdrawPosition(p); err != nil {
		return
	}
	for _, v := range reserves.Values(p.Phi.Pair) {
		if err = s.VCBDebit(v); err != nil {
			return
		}
	}
	return
}

// withdrawPosition() zeroes the reserves of a closed position and returns what it held
func (s *StateMachine) withdrawPosition(p *dex.Position) (dex.Reserves, lib.ErrorI) {
	if !p.State.CanTransitionTo(dex.PositionStateWithdrawn) {
		return dex.Reserves{}, dex.ErrIllegalTransition(p.State, dex.PositionStateWithdrawn)
	}
	reserves := p.Reserves
	p.State, p.Reserves = dex.PositionStateWithdrawn, dex.Reserves{}
	if err := s.SetPosition(p); err != nil {
		return dex.Reserves{}, err
	}
	s.addEvent(lib.EventTypePositionWithdraw, &PositionWithdrawal{Id: p.Id(), Reserves: reserves})
	return reserves, nil
}

// ClaimPosition() moves a withdrawn position into its terminal state
func (s *StateMachine) ClaimPosition(id dex.PositionId) lib.ErrorI {
	p, err := s.GetPosition(id)
	if err != nil {
		return err
	}
	if !p.State.CanTransitionTo(dex.PositionStateClaimed) {
		return dex.ErrIllegalTransition(p.State, dex.PositionStateClaimed)
	}
	p.State = dex.PositionStateClaimed
	if err = s.SetPosition(p); err != nil {
		return err
	}
	s.addEvent(lib.EventTypePositionRewardClaim, snapshot(p))
	return nil
}

// SetPosition() writes a position and re-indexes it in every direction it can sell into
func (s *StateMachine) SetPosition(p *dex.Position) lib.ErrorI {
	id, old := p.Id(), new(dex.Position)
	found, err := s.getObject(KeyForPosition(id), old)
	if err != nil {
		return err
	}
	if found {
		for _, key := range priceIndexKeys(old, id) {
			if err = s.Delete(key); err != nil {
				return err
			}
		}
	}
	if err = s.setObject(KeyForPosition(id), p); err != nil {
		return err
	}
	for _, key := range priceIndexKeys(p, id) {
		if err = s.Set(key, []byte{1}); err != nil {
			return err
		}
	}
	return nil
}

// BestPosition() returns the cheapest tradable position of a direction or nil if the direction is empty
func (s *StateMachine) BestPosition(d dex.DirectedTradingPair) (*dex.Position, lib.ErrorI) {
	return s.bestPositionExcept(d, nil)
}

// bestPositionExcept() returns the cheapest tradable position of a direction that isn't excluded
func (s *StateMachine) bestPositionExcept(d dex.DirectedTradingPair, excluded map[dex.PositionId]struct{}) (*dex.Position, lib.ErrorI) {
	positions, err := s.positionsByPrice(d, 1, excluded)
	if err != nil || len(positions) == 0 {
		return nil, err
	}
	return positions[0], nil
}

// PositionsByPrice() returns up to limit tradable positions of a direction, cheapest first
func (s *StateMachine) PositionsByPrice(d dex.DirectedTradingPair, limit int) ([]*dex.Position, lib.ErrorI) {
	return s.positionsByPrice(d, limit, nil)
}

func (s *StateMachine) positionsByPrice(d dex.DirectedTradingPair, limit int, excluded map[dex.PositionId]struct{}) (positions []*dex.Position, err lib.ErrorI) {
	it, err := s.Iterator(PriceIndexPrefix(d))
	if err != nil {
		return nil, err
	}
	var ids []dex.PositionId
	for ; it.Valid() && (limit <= 0 || len(ids) < limit); it.Next() {
		id, e := PositionIdFromPriceIndexKey(it.Key())
		if e != nil {
			it.Close()
			return nil, e
		}
		if _, skip := excluded[id]; !skip {
			ids = append(ids, id)
		}
	}
	it.Close()
	for _, id := range ids {
		p, e := s.GetPosition(id)
		if e != nil {
			return nil, e
		}
		positions = append(positions, p)
	}
	return
}

// PositionFilter narrows a position listing
type PositionFilter struct {
	Pair  *dex.TradingPair  // only positions of this pair
	State dex.PositionState // only positions in this state, unknown matches any
}

// matches() returns true if the position passes the filter
func (f PositionFilter) matches(p *dex.Position) bool {
	if f.Pair != nil && p.Phi.Pair != *f.Pair {
		return false
	}
	return f.State == dex.PositionStateUnknown || p.State == f.State
}

// GetPositionsPaginated() returns a page of the positions passing the filter in id order
func (s *StateMachine) GetPositionsPaginated(p lib.PageParams, filter PositionFilter) (page *lib.Page, err lib.ErrorI) {
	var matched dex.Positions
	err = s.IterateAndExecute(PositionPrefix(), func(_, value []byte) lib.ErrorI {
		position := new(dex.Position)
		if e := lib.Unmarshal(value, position); e != nil {
			return e
		}
		if filter.matches(position) {
			matched = append(matched, position.View())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	page, res := lib.NewPage(p, dex.PositionsPageName), make(dex.Positions, 0)
	err = page.LoadArray(matched, &res, func(i any) lib.ErrorI {
		v, ok := i.(dex.PositionView)
		if !ok {
			return lib.ErrInvalidArgument()
		}
		res = append(res, v)
		return nil
	})
	return
}

// priceIndexKeys() returns the price index keys of every direction the position can currently sell into
func priceIndexKeys(p *dex.Position, id dex.PositionId) (keys [][]byte) {
	for _, start := range []dex.AssetId{p.Phi.Pair.Asset1, p.Phi.Pair.Asset2} {
		d, err := p.Phi.Pair.Directed(start)
		if err != nil || !p.IsTradable(d) {
			continue
		}
		keys = append(keys, KeyForPriceIndex(d, p.Phi.Component.PriceKey(d.StartsAtAsset1()), id))
	}
	return
}

// PositionWithdrawal is the event payload of a withdrawn position
type PositionWithdrawal struct {
	Id       dex.PositionId `json:"id"`
	Reserves dex.Reserves   `json:"reserves"`
}

// snapshot() copies a position into an event payload that later mutations can't reach
func snapshot(p *dex.Position) dex.PositionView {
	c := *p
	return c.View()
}
