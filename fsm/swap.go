package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/crypto"
)

/*
	Swaps never trade on their own. A swap escrows its inputs and records its commitment at the height it was
	submitted; at the end of the block every swap of a pair is aggregated into one batch that is cleared once.
	Afterward each swap claims its pro-rata share of the batch outputs, which mints a new output commitment.
*/

// HandleSwap() escrows the swap inputs and records the swap for the batch of the current height
func (s *StateMachine) HandleSwap(msg *dex.Swap) lib.ErrorI {
	bz, err := s.Get(KeyForSwap(msg.Commitment))
	if err != nil {
		return err
	}
	if bz != nil {
		return dex.ErrDuplicateSwap()
	}
	record := &dex.SwapRecord{
		Commitment: msg.Commitment,
		Pair:       msg.Pair,
		Delta1:     msg.Delta1,
		Delta2:     msg.Delta2,
		Height:     s.height,
	}
	if err = s.VCBCredit(dex.NewValue(msg.Pair.Asset1, msg.Delta1)); err != nil {
		return err
	}
	if err = s.VCBCredit(dex.NewValue(msg.Pair.Asset2, msg.Delta2)); err != nil {
		return err
	}
	if err = s.SetSwap(record); err != nil {
		return err
	}
	if err = s.Set(KeyForSwapHeight(s.height, msg.Commitment), []byte{1}); err != nil {
		return err
	}
	if _, err = s.tree.Insert(s.store, msg.Commitment); err != nil {
		return err
	}
	s.addEvent(lib.EventTypeSwap, record)
	return nil
}

// HandleSwapClaim() pays a swap its share of the batch it was cleared in and mints the output commitment
func (s *StateMachine) HandleSwapClaim(msg *dex.SwapClaim) lib.ErrorI {
	record, err := s.GetSwap(msg.Commitment)
	if err != nil {
		return err
	}
	if record.Claimed {
		return dex.ErrSwapAlreadyClaimed()
	}
	// the batch of the current height is cleared at the end of the block
	if record.Height >= s.height {
		return dex.ErrSwapNotYetExecuted()
	}
	bsod, err := s.GetBatchOutput(record.Height, record.Pair)
	if err != nil {
		return err
	}
	out1, out2, err := bsod.ProRataOutputs(record.Delta1, record.Delta2)
	if err != nil {
		return err
	}
	claim := &SwapClaimResult{
		Commitment:       record.Commitment,
		Outputs:          []dex.Value{dex.NewValue(record.Pair.Asset1, out1), dex.NewValue(record.Pair.Asset2, out2)},
		OutputCommitment: SwapClaimOutputCommitment(record.Commitment),
	}
	for _, v := range claim.Outputs {
		if err = s.VCBDebit(v); err != nil {
			return err
		}
	}
	record.Claimed = true
	if err = s.SetSwap(record); err != nil {
		return err
	}
	if claim.Position, err = s.tree.Insert(s.store, claim.OutputCommitment); err != nil {
		return err
	}
	s.addEvent(lib.EventTypeSwapClaim, claim)
	return nil
}

// GetSwap() loads a swap record by commitment
func (s *StateMachine) GetSwap(c dex.Commitment) (*dex.SwapRecord, lib.ErrorI) {
	record := new(dex.SwapRecord)
	found, err := s.getObject(KeyForSwap(c), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dex.ErrSwapNotFound()
	}
	return record, nil
}

// SetSwap() writes a swap record under its commitment
func (s *StateMachine) SetSwap(record *dex.SwapRecord) lib.ErrorI {
	return s.setObject(KeyForSwap(record.Commitment), record)
}

// AggregateSwaps() sums the swaps submitted at a height into one flow per trading pair
func (s *StateMachine) AggregateSwaps(height uint64) (*dex.BatchAggregator, lib.ErrorI) {
	var commitments []dex.Commitment
	err := s.IterateAndExecute(SwapHeightPrefix(height), func(key, _ []byte) lib.ErrorI {
		segments := lib.DecodeLengthPrefixed(key)
		if len(segments) != 3 {
			return ErrInvalidKey(key)
		}
		c, e := dex.NewCommitment(segments[2])
		if e != nil {
			return e
		}
		commitments = append(commitments, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	agg := dex.NewBatchAggregator()
	for _, c := range commitments {
		record, e := s.GetSwap(c)
		if e != nil {
			return nil, e
		}
		if e = agg.AddSwap(record.Pair, record.Delta1, record.Delta2); e != nil {
			return nil, e
		}
	}
	return agg, nil
}

// SwapClaimOutputCommitment() derives the commitment of the outputs paid to a claimed swap
func SwapClaimOutputCommitment(c dex.Commitment) dex.Commitment {
	return crypto.DomainHash("swap-claim-output", c.Bytes())
}

// SwapClaimResult is the event payload of a claimed swap
type SwapClaimResult struct {
	Commitment       dex.Commitment `json:"commitment"`
	Outputs          []dex.Value    `json:"outputs"`
	OutputCommitment dex.Commitment `json:"outputCommitment"`
	Position         uint64         `json:"position"` // the leaf index of the output commitment
}
