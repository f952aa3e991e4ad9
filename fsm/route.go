package fsm

import (
	"bytes"
	"sort"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/*
	Routing moves an input toward a target asset through the book in steps. Each step:
	  (1) finds the cheapest path of at most MaxHops hops, crossing only the configured routing candidates, where
	      the price of a path is the product of the effective prices of the best position of every hop
	  (2) fills as much input as the path can carry without stranding value in the middle of the path
	  (3) writes the new reserves of every crossed position and records the trace of the step
	Routing stops when no path is left, a step can't produce output, the input is exhausted or the step limit
	is reached; whatever is left is returned to the caller unfilled. A position whose fill fails is left
	untouched and skipped for the rest of the routing.
*/

const (
	defaultMaxHops           = 4
	defaultMaxExecutionSteps = 64
)

// route is a priced path through the book
type route struct {
	assets    []dex.AssetId   // start, the intermediates and the end
	positions []*dex.Position // the best position of every hop
	price     dex.Price       // product of the hop prices, lower is better
}

// key() is the concatenation of the path assets, used to break price ties deterministically
func (r *route) key() []byte {
	var bz []byte
	for _, a := range r.assets {
		bz = append(bz, a.Bytes()...)
	}
	return bz
}

// cheaper() returns true if r should be preferred over o
func (r *route) cheaper(o *route) bool {
	if o == nil {
		return true
	}
	if c := r.price.Cmp(o.price); c != 0 {
		return c < 0
	}
	return bytes.Compare(r.key(), o.key()) < 0
}

// hopFill is the in-memory result of crossing a single hop
type hopFill struct {
	position *dex.Position // the position with its post fill reserves
	input    dex.Value     // what the position absorbed
	output   dex.Value     // what the position paid
}

// step is a single simulated fill of a route
type step struct {
	consumed lib.Amount // input absorbed by the first hop
	fills    []hopFill
}

// output() returns what the last hop paid
func (st *step) output() dex.Value { return st.fills[len(st.fills)-1].output }

// trace() returns the input of the step followed by the output of every hop
func (st *step) trace(start dex.AssetId) dex.Trace {
	t := dex.Trace{dex.NewValue(start, st.consumed)}
	for _, f := range st.fills {
		t = append(t, f.output)
	}
	return t
}

// RouteAndFill() routes input toward the target asset, filling positions step by step
// the input the book could not absorb is returned as unfilled
func (s *StateMachine) RouteAndFill(input dex.Value, target dex.AssetId, routing dex.Routing) (exec *dex.SwapExecution, unfilled lib.Amount, err lib.ErrorI) {
	exec = &dex.SwapExecution{Input: dex.NewValue(input.Asset, lib.Amount{}), Output: dex.NewValue(target, lib.Amount{})}
	if input.Asset == target {
		return exec, input.Amount, dex.ErrInvalidRoute()
	}
	remaining, steps, excluded := input.Amount, 0, make(map[dex.PositionId]struct{})
	for steps < s.maxExecutionSteps() && !remaining.IsZero() {
		r, e := s.bestRoute(input.Asset, target, routing, excluded)
		if e != nil {
			return exec, remaining, e
		}
		if r == nil {
			break
		}
		st, failed := s.nextStep(r, remaining)
		if failed != nil {
			excluded[*failed] = struct{}{}
			continue
		}
		if st == nil || st.consumed.IsZero() || st.output().Amount.IsZero() {
			break
		}
		if err = s.applyStep(input.Asset, st, exec); err != nil {
			return exec, remaining, err
		}
		if remaining, err = remaining.Sub(st.consumed); err != nil {
			return exec, remaining, err
		}
		steps++
	}
	s.Metrics.UpdateExecution(steps)
	return exec, remaining, nil
}

// applyStep() writes the fills of a step to the book and appends its trace to the execution
func (s *StateMachine) applyStep(start dex.AssetId, st *step, exec *dex.SwapExecution) lib.ErrorI {
	for _, f := range st.fills {
		if err := s.applyFill(f); err != nil {
			return err
		}
	}
	return exec.AddTrace(st.trace(start))
}

// applyFill() persists the post fill reserves of a position, closing it if it only trades once
func (s *StateMachine) applyFill(f hopFill) lib.ErrorI {
	p, closed := f.position, false
	if p.CloseOnFill && p.State == dex.PositionStateOpened && !f.output.Amount.IsZero() {
		p.State, closed = dex.PositionStateClosed, true
	}
	if err := s.SetPosition(p); err != nil {
		return err
	}
	s.addEvent(lib.EventTypePositionFilled, &PositionFill{Id: p.Id(), Input: f.input, Output: f.output, Reserves: p.Reserves})
	if closed {
		s.Metrics.UpdatePositions(0, 1)
		s.addEvent(lib.EventTypePositionClose, snapshot(p))
	}
	return nil
}

// bestRoute() returns the cheapest path from start to end or nil if the assets aren't connected
// a cycle (start == end) must cross at least two hops; excluded positions are never crossed
func (s *StateMachine) bestRoute(start, end dex.AssetId, routing dex.Routing, excluded map[dex.PositionId]struct{}) (best *route, err lib.ErrorI) {
	maxHops, intermediates := s.maxHops(), []dex.AssetId(nil)
	if _, singleHop := routing.(dex.RoutingSingleHop); singleHop {
		maxHops = 1
	} else {
		for _, c := range s.RoutingCandidates() {
			if c != start && c != end {
				intermediates = append(intermediates, c)
			}
		}
	}
	// the best position of a direction doesn't change during the search
	book := make(map[dex.DirectedTradingPair]*dex.Position)
	lookup := func(from, to dex.AssetId) (*dex.Position, lib.ErrorI) {
		d := dex.DirectedTradingPair{Start: from, End: to}
		if p, cached := book[d]; cached {
			return p, nil
		}
		p, e := s.bestPositionExcept(d, excluded)
		if e != nil {
			return nil, e
		}
		book[d] = p
		return p, nil
	}
	var search func(assets []dex.AssetId, positions []*dex.Position, price dex.Price) lib.ErrorI
	search = func(assets []dex.AssetId, positions []*dex.Position, price dex.Price) lib.ErrorI {
		current, hops := assets[len(assets)-1], len(positions)
		// close the path at the end asset
		if start != end || hops > 0 {
			p, e := lookup(current, end)
			if e != nil {
				return e
			}
			if p != nil {
				candidate := &route{
					assets:    extend(assets, end),
					positions: append(append(make([]*dex.Position, 0, hops+1), positions...), p),
					price:     price.Mul(hopPrice(p, current)),
				}
				if candidate.cheaper(best) {
					best = candidate
				}
			}
		}
		// extending the path must leave room for the closing hop
		if hops+2 > maxHops {
			return nil
		}
		for _, next := range intermediates {
			if contains(assets, next) {
				continue
			}
			p, e := lookup(current, next)
			if e != nil {
				return e
			}
			if p == nil {
				continue
			}
			path := append(append(make([]*dex.Position, 0, hops+1), positions...), p)
			if e = search(extend(assets, next), path, price.Mul(hopPrice(p, current))); e != nil {
				return e
			}
		}
		return nil
	}
	err = search([]dex.AssetId{start}, nil, dex.OneToOne())
	return
}

// nextStep() finds the largest input not above remaining that the route fills without stranding value mid path
// returns a nil step if no input can be filled and the id of the position whose fill failed, if any
func (s *StateMachine) nextStep(r *route, remaining lib.Amount) (*step, *dex.PositionId) {
	// a single hop may fill partially, the unfilled part simply stays with the caller
	if len(r.positions) == 1 {
		st, _, failed := s.simulateStep(r, remaining)
		return st, failed
	}
	hi := lib.MinAmount(remaining, capacity(r))
	if hi.IsZero() {
		return nil, nil
	}
	st, ok, failed := s.simulateStep(r, hi)
	if ok || failed != nil {
		return st, failed
	}
	// binary search the largest complete input in (lo, hi)
	one, two := lib.NewAmount(1), lib.NewAmount(2)
	var best *step
	lo := lib.Amount{}
	for {
		gap, err := hi.Sub(lo)
		if err != nil || !gap.GT(one) {
			return best, nil
		}
		half, _ := gap.MulDiv(one, two)
		mid, _ := lo.Add(half)
		st, ok, failed = s.simulateStep(r, mid)
		switch {
		case failed != nil:
			return nil, failed
		case ok:
			lo, best = mid, st
		default:
			hi = mid
		}
	}
}

// simulateStep() fills input along the route in memory
// ok is false if a hop after the first can't absorb everything it receives or a fill fails, in which case
// failed identifies the position
func (s *StateMachine) simulateStep(r *route, input lib.Amount) (st *step, ok bool, failed *dex.PositionId) {
	// a position crossed twice must see its own earlier fill
	crossed := make(map[dex.PositionId]*dex.Position)
	current, st := dex.NewValue(r.assets[0], input), &step{}
	for i, original := range r.positions {
		id := original.Id()
		p, found := crossed[id]
		if !found {
			c := *original
			p = &c
			crossed[id] = p
		}
		fill, err := p.Phi.Fill(current, p.Reserves)
		if err != nil {
			s.log.Debugf("Simulated fill of %s failed: %s", lib.BytesToTruncatedString(id.Bytes()), err.Error())
			return nil, false, &id
		}
		if i > 0 && !fill.Unfilled.Amount.IsZero() {
			return nil, false, nil
		}
		absorbed, err := fill.Consumed(current)
		if err != nil {
			return nil, false, &id
		}
		if i == 0 {
			st.consumed = absorbed
		}
		p.Reserves = fill.Reserves
		st.fills = append(st.fills, hopFill{position: p, input: dex.NewValue(current.Asset, absorbed), output: fill.Output})
		current = fill.Output
	}
	return st, true, nil
}

// capacity() bounds the input of a route by walking backward from the last hop: each hop may produce at most
// what drains the next hop, so every hop after the first fills completely at or below the bound
func capacity(r *route) lib.Amount {
	var need lib.Amount
	for i := len(r.positions) - 1; i >= 0; i-- {
		p := r.positions[i]
		want, err := p.Reserves.ReserveOf(p.Phi.Pair, r.assets[i+1])
		if err != nil {
			return lib.MaxAmount()
		}
		if i < len(r.positions)-1 {
			want = lib.MinAmount(want, need)
		}
		if need, err = p.Phi.InputFor(r.assets[i], want); err != nil {
			return lib.MaxAmount()
		}
	}
	return need
}

// RoutingCandidates() returns the intermediate assets in ascending order: the configured list or, when none is
// configured, every asset the dex currently holds
func (s *StateMachine) RoutingCandidates() []dex.AssetId {
	if len(s.Config.RoutingCandidates) == 0 {
		return s.heldAssets()
	}
	deDupe, candidates := lib.NewDeDuplicator[dex.AssetId](), make([]dex.AssetId, 0, len(s.Config.RoutingCandidates))
	for _, bz := range s.Config.RoutingCandidates {
		asset, err := dex.NewAssetId(bz)
		if err != nil {
			s.log.Warnf("Ignoring invalid routing candidate %x", []byte(bz))
			continue
		}
		if !deDupe.Found(asset) {
			candidates = append(candidates, asset)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })
	return candidates
}

// heldAssets() returns every asset with a circuit breaker balance in ascending order
func (s *StateMachine) heldAssets() []dex.AssetId {
	balances, err := s.VCBBalances()
	if err != nil {
		s.log.Errorf("Listing held assets failed: %s", err.Error())
		return nil
	}
	assets := make([]dex.AssetId, 0, len(balances))
	for _, b := range balances {
		assets = append(assets, b.Asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Less(assets[j]) })
	return assets
}

// maxHops() returns the configured hop limit
func (s *StateMachine) maxHops() int {
	if s.Config.MaxHops <= 0 {
		return defaultMaxHops
	}
	return s.Config.MaxHops
}

// maxExecutionSteps() returns the configured step limit per routed direction
func (s *StateMachine) maxExecutionSteps() int {
	if s.Config.MaxExecutionSteps <= 0 {
		return defaultMaxExecutionSteps
	}
	return s.Config.MaxExecutionSteps
}

// hopPrice() is the effective price of crossing a position from the start asset
func hopPrice(p *dex.Position, start dex.AssetId) dex.Price {
	return p.Phi.Component.EffectivePrice(start == p.Phi.Pair.Asset1)
}

// extend() returns a copy of the path with one more asset
func extend(assets []dex.AssetId, next dex.AssetId) []dex.AssetId {
	return append(append(make([]dex.AssetId, 0, len(assets)+1), assets...), next)
}

// contains() returns true if the asset is already on the path
func contains(assets []dex.AssetId, a dex.AssetId) bool {
	for _, x := range assets {
		if x == a {
			return true
		}
	}
	return false
}

// PositionFill is the event payload of a position crossed by a route
type PositionFill struct {
	Id       dex.PositionId `json:"id"`
	Input    dex.Value      `json:"input"`
	Output   dex.Value      `json:"output"`
	Reserves dex.Reserves   `json:"reserves"`
}
