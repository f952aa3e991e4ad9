package dex

import (
	"bytes"
	"sort"

	"github.com/canopy-network/canopy-dex/lib"
)

/*
	Batch swaps: every swap of a block is aggregated per canonical trading pair into two independent deltas
	(input of asset 1 and input of asset 2). The batch is cleared once at the end of the block and each swap
	later claims a pro-rata share of the batch outputs. This hides individual flow amounts and removes any
	ordering advantage within a block.
*/

// BatchSwapOutputData is the clearing result of a single trading pair at a single height
type BatchSwapOutputData struct {
	Delta1              lib.Amount  `json:"delta1"`    // total asset 1 input
	Delta2              lib.Amount  `json:"delta2"`    // total asset 2 input
	Lambda1             lib.Amount  `json:"lambda1"`   // total asset 1 output (paid to asset 2 sellers)
	Lambda2             lib.Amount  `json:"lambda2"`   // total asset 2 output (paid to asset 1 sellers)
	Unfilled1           lib.Amount  `json:"unfilled1"` // asset 1 input returned unfilled
	Unfilled2           lib.Amount  `json:"unfilled2"` // asset 2 input returned unfilled
	Height              uint64      `json:"height"`
	TradingPair         TradingPair `json:"tradingPair"`
	EpochStartingHeight uint64      `json:"epochStartingHeight"`
}

// Validate() checks conservation: each delta must cover its unfilled remainder and a zero delta produces no output
func (b *BatchSwapOutputData) Validate() lib.ErrorI {
	if b.Unfilled1.GT(b.Delta1) || b.Unfilled2.GT(b.Delta2) {
		return ErrConservationViolated(b.TradingPair)
	}
	if (b.Delta1.IsZero() && !b.Lambda2.IsZero()) || (b.Delta2.IsZero() && !b.Lambda1.IsZero()) {
		return ErrConservationViolated(b.TradingPair)
	}
	return nil
}

// Consumed() returns the filled part of each delta
func (b *BatchSwapOutputData) Consumed() (consumed1, consumed2 lib.Amount, err lib.ErrorI) {
	if consumed1, err = b.Delta1.Sub(b.Unfilled1); err != nil {
		return
	}
	consumed2, err = b.Delta2.Sub(b.Unfilled2)
	return
}

// ProRataOutputs() returns what a single swap of (delta1, delta2) receives from the batch
// asset 1 sellers receive Lambda2 * delta1/Delta1 and a refund of Unfilled1 * delta1/Delta1, symmetrically for asset 2
// rounding is down so the sum of all claims never exceeds the batch outputs
func (b *BatchSwapOutputData) ProRataOutputs(delta1, delta2 lib.Amount) (out1, out2 lib.Amount, err lib.ErrorI) {
	if delta1.GT(b.Delta1) || delta2.GT(b.Delta2) {
		return out1, out2, ErrInvalidSwap()
	}
	if !delta1.IsZero() {
		var lambda, refund lib.Amount
		if lambda, err = b.Lambda2.MulDiv(delta1, b.Delta1); err != nil {
			return
		}
		if refund, err = b.Unfilled1.MulDiv(delta1, b.Delta1); err != nil {
			return
		}
		out2, out1 = lambda, refund
	}
	if !delta2.IsZero() {
		var lambda, refund lib.Amount
		if lambda, err = b.Lambda1.MulDiv(delta2, b.Delta2); err != nil {
			return
		}
		if refund, err = b.Unfilled2.MulDiv(delta2, b.Delta2); err != nil {
			return
		}
		if out1, err = out1.Add(lambda); err != nil {
			return
		}
		if out2, err = out2.Add(refund); err != nil {
			return
		}
	}
	return
}

// SwapFlow is the aggregated input of a trading pair
type SwapFlow struct {
	Pair   TradingPair `json:"pair"`
	Delta1 lib.Amount  `json:"delta1"`
	Delta2 lib.Amount  `json:"delta2"`
}

// BatchAggregator sums the swap inputs of a block per trading pair
type BatchAggregator struct {
	flows map[TradingPair]*SwapFlow
}

// NewBatchAggregator() returns an empty aggregator
func NewBatchAggregator() *BatchAggregator {
	return &BatchAggregator{flows: make(map[TradingPair]*SwapFlow)}
}

// AddSwap() adds a swap input to the flow of its pair using checked addition
func (b *BatchAggregator) AddSwap(pair TradingPair, delta1, delta2 lib.Amount) lib.ErrorI {
	if err := pair.Validate(); err != nil {
		return err
	}
	if delta1.IsZero() && delta2.IsZero() {
		return ErrInvalidSwap()
	}
	flow, found := b.flows[pair]
	if !found {
		flow = &SwapFlow{Pair: pair}
	}
	d1, err := flow.Delta1.Add(delta1)
	if err != nil {
		return err
	}
	d2, err := flow.Delta2.Add(delta2)
	if err != nil {
		return err
	}
	flow.Delta1, flow.Delta2, b.flows[pair] = d1, d2, flow
	return nil
}

// Flows() returns the aggregated flows sorted by canonical pair bytes
func (b *BatchAggregator) Flows() []SwapFlow {
	flows := make([]SwapFlow, 0, len(b.flows))
	for _, f := range b.flows {
		flows = append(flows, *f)
	}
	sort.Slice(flows, func(i, j int) bool { return bytes.Compare(flows[i].Pair.Bytes(), flows[j].Pair.Bytes()) < 0 })
	return flows
}

// Len() returns the number of pairs with flow
func (b *BatchAggregator) Len() int { return len(b.flows) }

// Reset() clears the aggregator for the next block
func (b *BatchAggregator) Reset() { b.flows = make(map[TradingPair]*SwapFlow) }

// EpochStartingHeight() rounds a height down to the start of its epoch
func EpochStartingHeight(height, epochLength uint64) uint64 {
	if epochLength == 0 {
		return height
	}
	return height - height%epochLength
}

// SwapRecord is a swap waiting to be claimed against the batch output of its height
type SwapRecord struct {
	Commitment Commitment  `json:"commitment"`
	Pair       TradingPair `json:"pair"`
	Delta1     lib.Amount  `json:"delta1"`
	Delta2     lib.Amount  `json:"delta2"`
	Height     uint64      `json:"height"`
	Claimed    bool        `json:"claimed"`
}
