package dex

import (
	"math/big"

	"github.com/canopy-network/canopy-dex/lib"
)

/*
	The trading function of a position is the linear invariant phi(R) = p*R1 + q*R2 with a fee gamma = 1 - fee/10000.
	Selling asset 1 into the position yields p/q units of asset 2 per (fee adjusted) unit and selling asset 2 yields q/p.
	All math is integer only and rounds in favor of the position.
*/

const (
	FeeDenominator = 10_000 // fees are expressed in basis points
	PriceKeyShift  = 128    // fixed point precision of the price index key
	PriceKeySize   = 36     // holds num * 10000 * 2^128 for any 128-bit num
)

// BareTradingFunction is the pricing rule of a position independent of the pair it trades
type BareTradingFunction struct {
	Fee uint32     `json:"fee"` // basis points in [0, 10000]
	P   lib.Amount `json:"p"`
	Q   lib.Amount `json:"q"`
}

// TradingFunction binds a pricing rule to a canonical trading pair
type TradingFunction struct {
	Component BareTradingFunction `json:"component"`
	Pair      TradingPair         `json:"pair"`
}

// NewTradingFunction() constructs and validates a trading function
func NewTradingFunction(pair TradingPair, fee uint32, p, q lib.Amount) (TradingFunction, lib.ErrorI) {
	phi := TradingFunction{Component: BareTradingFunction{Fee: fee, P: p, Q: q}, Pair: pair}
	return phi, phi.Validate()
}

// Validate() checks the pair is canonical, the fee is in range and both prices are positive
func (t TradingFunction) Validate() lib.ErrorI {
	if err := t.Pair.Validate(); err != nil {
		return err
	}
	return t.Component.Validate()
}

// Validate() checks the fee is in range and both prices are positive
func (b BareTradingFunction) Validate() lib.ErrorI {
	if b.Fee > FeeDenominator {
		return ErrInvalidFee(b.Fee)
	}
	if b.P.IsZero() || b.Q.IsZero() {
		return ErrInvalidTradingFunction()
	}
	return nil
}

// Tradable() returns false for a 100% fee; such a position can never produce output
func (b BareTradingFunction) Tradable() bool { return b.Fee < FeeDenominator }

// gamma() returns the fee complement in basis points
func (b BareTradingFunction) gamma() lib.Amount { return lib.NewAmount(uint64(FeeDenominator - b.Fee)) }

// Phi() evaluates p*R1 + q*R2 exactly
func (b BareTradingFunction) Phi(r Reserves) *big.Int {
	v := new(big.Int).Mul(b.P.Big(), r.R1.Big())
	return v.Add(v, new(big.Int).Mul(b.Q.Big(), r.R2.Big()))
}

// Fill is the result of trading an input against a single position
type Fill struct {
	Unfilled Value    `json:"unfilled"` // the part of the input the position could not absorb
	Output   Value    `json:"output"`   // what the position paid out
	Reserves Reserves `json:"reserves"` // the position reserves after the fill
}

// Consumed() returns the part of the input that was absorbed
func (f Fill) Consumed(input Value) (lib.Amount, lib.ErrorI) {
	return input.Amount.Sub(f.Unfilled.Amount)
}

// Fill() trades the input against reserves, returning the unfilled input, the output and the new reserves
// the reserves are never mutated in place; any arithmetic failure leaves the caller's reserves untouched
func (t TradingFunction) Fill(input Value, reserves Reserves) (Fill, lib.ErrorI) {
	b := t.Component
	switch input.Asset {
	case t.Pair.Asset1:
		unfilled, out, rIn, rOut, err := b.fill(input.Amount, reserves.R1, reserves.R2, b.P, b.Q)
		if err != nil {
			return Fill{}, err
		}
		return Fill{
			Unfilled: NewValue(t.Pair.Asset1, unfilled),
			Output:   NewValue(t.Pair.Asset2, out),
			Reserves: Reserves{R1: rIn, R2: rOut},
		}, nil
	case t.Pair.Asset2:
		unfilled, out, rIn, rOut, err := b.fill(input.Amount, reserves.R2, reserves.R1, b.Q, b.P)
		if err != nil {
			return Fill{}, err
		}
		return Fill{
			Unfilled: NewValue(t.Pair.Asset2, unfilled),
			Output:   NewValue(t.Pair.Asset1, out),
			Reserves: Reserves{R1: rOut, R2: rIn},
		}, nil
	default:
		return Fill{}, ErrAssetNotInPair()
	}
}

// InputFor() returns the smallest input of the start asset whose output covers the requested output
// the result may exceed what the reserves can pay; callers cap it with the end reserve first
func (t TradingFunction) InputFor(start AssetId, output lib.Amount) (lib.Amount, lib.ErrorI) {
	b := t.Component
	if !b.Tradable() {
		return lib.Amount{}, ErrInvalidRoute()
	}
	var num, den lib.Amount
	switch start {
	case t.Pair.Asset1:
		num, den = b.P, b.Q
	case t.Pair.Asset2:
		num, den = b.Q, b.P
	default:
		return lib.Amount{}, ErrAssetNotInPair()
	}
	effective, err := output.MulDivCeil(den, num)
	if err != nil {
		return lib.Amount{}, err
	}
	return effective.MulDivCeil(lib.NewAmount(FeeDenominator), b.gamma())
}

// fill() is the direction agnostic fill where output = floor(floor(input*gamma/10000) * num / den)
// an output above the reserve, however wide, is a partial fill paying the whole reserve
func (b BareTradingFunction) fill(input, rIn, rOut, num, den lib.Amount) (unfilled, output, newIn, newOut lib.Amount, err lib.ErrorI) {
	if !b.Tradable() || input.IsZero() {
		return input, lib.Amount{}, rIn, rOut, nil
	}
	// the input reserve can't grow past 128 bits
	offered := lib.MinAmount(input, lib.MaxAmount().SaturatingSub(rIn))
	denominator := lib.NewAmount(FeeDenominator)
	effective, err := offered.MulDiv(b.gamma(), denominator)
	if err != nil {
		return
	}
	output, capped, err := effective.MulDivCapped(num, den, rOut)
	if err != nil {
		return
	}
	consumed := offered
	if capped {
		// consume the smallest input whose output covers the whole reserve
		var needEffective lib.Amount
		if needEffective, err = rOut.MulDivCeil(den, num); err != nil {
			return
		}
		if consumed, err = needEffective.MulDivCeil(denominator, b.gamma()); err != nil {
			return
		}
	}
	if unfilled, err = input.Sub(consumed); err != nil {
		return
	}
	if newIn, err = rIn.Add(consumed); err != nil {
		return
	}
	newOut, err = rOut.Sub(output)
	return
}

// Price is an exact non-negative rational, the amount of start asset paid per unit of end asset
type Price struct {
	Num *big.Int
	Den *big.Int
}

// OneToOne() is the neutral price used as the start of a path product
func OneToOne() Price { return Price{Num: big.NewInt(1), Den: big.NewInt(1)} }

// Mul() composes two hop prices into a path price
func (p Price) Mul(o Price) Price {
	return Price{Num: new(big.Int).Mul(p.Num, o.Num), Den: new(big.Int).Mul(p.Den, o.Den)}
}

// Cmp() compares two prices exactly by cross multiplication
func (p Price) Cmp(o Price) int {
	return new(big.Int).Mul(p.Num, o.Den).Cmp(new(big.Int).Mul(o.Num, p.Den))
}

// Float() renders an approximate price for display only
func (p Price) Float() *big.Rat { return new(big.Rat).SetFrac(p.Num, p.Den) }

// EffectivePrice() returns the cost of one unit of the end asset in start asset units including the fee
// lower is better
func (b BareTradingFunction) EffectivePrice(startIsAsset1 bool) Price {
	num, den := b.Q.Big(), b.P.Big()
	if !startIsAsset1 {
		num, den = den, num
	}
	num.Mul(num, big.NewInt(FeeDenominator))
	den.Mul(den, big.NewInt(int64(FeeDenominator-b.Fee)))
	return Price{Num: num, Den: den}
}

// PriceKey() returns the big endian fixed point effective price used to order the book
// key = num * 10000 * 2^128 / (den * gamma); never called for untradable functions
// prices closer than 2^-128 may share a key and are then ordered by position id
func (b BareTradingFunction) PriceKey(startIsAsset1 bool) (key [PriceKeySize]byte) {
	num, den := b.Q.Big(), b.P.Big()
	if !startIsAsset1 {
		num, den = den, num
	}
	num.Mul(num, big.NewInt(FeeDenominator))
	num.Lsh(num, PriceKeyShift)
	den.Mul(den, big.NewInt(int64(FeeDenominator-b.Fee)))
	if den.Sign() == 0 {
		for i := range key {
			key[i] = 0xff
		}
		return
	}
	num.Quo(num, den).FillBytes(key[:])
	return
}
