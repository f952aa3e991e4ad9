package fsm

import (
	"sort"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/*
	The value circuit breaker (VCB) is a per asset ledger of the value held by the dex on behalf of users:
	position reserves, pending swap inputs and outputs, auction reserves and the arbitrage reserve. Value enters
	with a credit and leaves with a debit; a debit that would drive a balance below zero is an invariant
	violation, so no bug in the trading logic can ever pay out more than was put in.
*/

// VCBBalance() returns the ledger balance of an asset
func (s *StateMachine) VCBBalance(asset dex.AssetId) (lib.Amount, lib.ErrorI) {
	return s.getAmount(KeyForVCB(asset))
}

// VCBCredit() records value entering the dex
func (s *StateMachine) VCBCredit(v dex.Value) lib.ErrorI {
	if v.Amount.IsZero() {
		return nil
	}
	balance, err := s.VCBBalance(v.Asset)
	if err != nil {
		return err
	}
	if balance, err = balance.Add(v.Amount); err != nil {
		return err
	}
	return s.setAmount(KeyForVCB(v.Asset), balance)
}

// VCBDebit() records value leaving the dex, refusing to go below zero
func (s *StateMachine) VCBDebit(v dex.Value) lib.ErrorI {
	if v.Amount.IsZero() {
		return nil
	}
	balance, err := s.VCBBalance(v.Asset)
	if err != nil {
		return err
	}
	if v.Amount.GT(balance) {
		s.log.Errorf("Circuit breaker tripped: debit of %s exceeds balance %s", describe(v), balance)
		return dex.ErrCircuitBreakerUnderflow(v.Asset, balance, v.Amount)
	}
	if balance, err = balance.Sub(v.Amount); err != nil {
		return err
	}
	return s.setAmount(KeyForVCB(v.Asset), balance)
}

// VCBBalances() returns every nonzero ledger balance in asset order
func (s *StateMachine) VCBBalances() (balances []dex.Value, err lib.ErrorI) {
	err = s.IterateAndExecute(VCBPrefix(), func(key, value []byte) lib.ErrorI {
		asset, e := AssetFromKey(key)
		if e != nil {
			return e
		}
		amount, e := lib.AmountFromBytes(value)
		if e != nil {
			return e
		}
		balances = append(balances, dex.NewValue(asset, amount))
		return nil
	})
	return
}

// CheckCustody() verifies the ledger covers every balance the dex can still owe to positions, auctions and the
// arbitrage reserve; pending swap claims make up the remainder so the ledger may only ever exceed the sum
func (s *StateMachine) CheckCustody() lib.ErrorI {
	owed := make(map[dex.AssetId]lib.Amount)
	add := func(v dex.Value) lib.ErrorI {
		sum, err := owed[v.Asset].Add(v.Amount)
		if err != nil {
			return err
		}
		owed[v.Asset] = sum
		return nil
	}
	// position reserves
	err := s.IterateAndExecute(PositionPrefix(), func(_, value []byte) lib.ErrorI {
		p := new(dex.Position)
		if e := lib.Unmarshal(value, p); e != nil {
			return e
		}
		for _, v := range p.Reserves.Values(p.Phi.Pair) {
			if e := add(v); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	// auction reserves
	err = s.IterateAndExecute(AuctionPrefix(), func(_, value []byte) lib.ErrorI {
		a := new(dex.DutchAuction)
		if e := lib.Unmarshal(value, a); e != nil {
			return e
		}
		if e := add(dex.NewValue(a.Description.Input.Asset, a.State.InputReserves)); e != nil {
			return e
		}
		return add(dex.NewValue(a.Description.OutputId, a.State.OutputReserves))
	})
	if err != nil {
		return err
	}
	// arbitrage reserve
	reserves, err := s.ArbitrageReserves()
	if err != nil {
		return err
	}
	for _, v := range reserves {
		if err = add(v); err != nil {
			return err
		}
	}
	assets := make([]dex.AssetId, 0, len(owed))
	for asset := range owed {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Less(assets[j]) })
	for _, asset := range assets {
		balance, e := s.VCBBalance(asset)
		if e != nil {
			return e
		}
		if owed[asset].GT(balance) {
			return dex.ErrCircuitBreakerUnderflow(asset, balance, owed[asset])
		}
	}
	return nil
}
