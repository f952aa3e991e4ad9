package dex

import (
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/codec"
)

/* This file implements the canonical binary encoding of every persisted dex object */

func (v Value) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, v.Amount.Bytes())
	e.PutBytes(2, v.Asset.Bytes())
	return e.Encoded(), nil
}

func (v *Value) UnmarshalBinary(bz []byte) error {
	*v = Value{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return amountField(f, &v.Amount)
		case 2:
			return assetField(f, &v.Asset)
		}
		return nil
	})
}

func (p TradingPair) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, p.Asset1.Bytes())
	e.PutBytes(2, p.Asset2.Bytes())
	return e.Encoded(), nil
}

func (p *TradingPair) UnmarshalBinary(bz []byte) error {
	*p = TradingPair{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return assetField(f, &p.Asset1)
		case 2:
			return assetField(f, &p.Asset2)
		}
		return nil
	})
}

func (d DirectedTradingPair) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, d.Start.Bytes())
	e.PutBytes(2, d.End.Bytes())
	return e.Encoded(), nil
}

func (d *DirectedTradingPair) UnmarshalBinary(bz []byte) error {
	*d = DirectedTradingPair{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return assetField(f, &d.Start)
		case 2:
			return assetField(f, &d.End)
		}
		return nil
	})
}

func (b BareTradingFunction) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutUint64(1, uint64(b.Fee))
	e.PutBytes(2, b.P.Bytes())
	e.PutBytes(3, b.Q.Bytes())
	return e.Encoded(), nil
}

func (b *BareTradingFunction) UnmarshalBinary(bz []byte) error {
	*b = BareTradingFunction{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			b.Fee = uint32(f.Uint64())
		case 2:
			return amountField(f, &b.P)
		case 3:
			return amountField(f, &b.Q)
		}
		return nil
	})
}

func (t TradingFunction) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, t.Component); err != nil {
		return nil, err
	}
	if err := e.PutMessage(2, t.Pair); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (t *TradingFunction) UnmarshalBinary(bz []byte) error {
	*t = TradingFunction{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return f.Message(&t.Component)
		case 2:
			return f.Message(&t.Pair)
		}
		return nil
	})
}

func (r Reserves) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, r.R1.Bytes())
	e.PutBytes(2, r.R2.Bytes())
	return e.Encoded(), nil
}

func (r *Reserves) UnmarshalBinary(bz []byte) error {
	*r = Reserves{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return amountField(f, &r.R1)
		case 2:
			return amountField(f, &r.R2)
		}
		return nil
	})
}

func (p Position) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, p.Phi); err != nil {
		return nil, err
	}
	e.PutBytes(2, p.Nonce[:])
	e.PutUint64(3, uint64(p.State))
	if err := e.PutMessage(4, p.Reserves); err != nil {
		return nil, err
	}
	e.PutBool(5, p.CloseOnFill)
	return e.Encoded(), nil
}

func (p *Position) UnmarshalBinary(bz []byte) error {
	*p = Position{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return f.Message(&p.Phi)
		case 2:
			if len(f.Bytes()) != NonceSize {
				return ErrInvalidNonce()
			}
			copy(p.Nonce[:], f.Bytes())
		case 3:
			p.State = PositionState(f.Uint64())
		case 4:
			return f.Message(&p.Reserves)
		case 5:
			p.CloseOnFill = f.Bool()
		}
		return nil
	})
}

func (b BatchSwapOutputData) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, b.Delta1.Bytes())
	e.PutBytes(2, b.Delta2.Bytes())
	e.PutBytes(3, b.Lambda1.Bytes())
	e.PutBytes(4, b.Lambda2.Bytes())
	e.PutBytes(5, b.Unfilled1.Bytes())
	e.PutBytes(6, b.Unfilled2.Bytes())
	e.PutUint64(7, b.Height)
	if err := e.PutMessage(8, b.TradingPair); err != nil {
		return nil, err
	}
	e.PutUint64(9, b.EpochStartingHeight)
	return e.Encoded(), nil
}

func (b *BatchSwapOutputData) UnmarshalBinary(bz []byte) error {
	*b = BatchSwapOutputData{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return amountField(f, &b.Delta1)
		case 2:
			return amountField(f, &b.Delta2)
		case 3:
			return amountField(f, &b.Lambda1)
		case 4:
			return amountField(f, &b.Lambda2)
		case 5:
			return amountField(f, &b.Unfilled1)
		case 6:
			return amountField(f, &b.Unfilled2)
		case 7:
			b.Height = f.Uint64()
		case 8:
			return f.Message(&b.TradingPair)
		case 9:
			b.EpochStartingHeight = f.Uint64()
		}
		return nil
	})
}

func (t Trace) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	for _, v := range t {
		if err := e.PutMessage(1, v); err != nil {
			return nil, err
		}
	}
	return e.Encoded(), nil
}

func (t *Trace) UnmarshalBinary(bz []byte) error {
	*t = nil
	return codec.Decode(bz, func(f *codec.Field) error {
		if f.Num == 1 {
			var v Value
			if err := f.Message(&v); err != nil {
				return err
			}
			*t = append(*t, v)
		}
		return nil
	})
}

func (s SwapExecution) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	for _, t := range s.Traces {
		if err := e.PutMessage(1, t); err != nil {
			return nil, err
		}
	}
	if err := e.PutMessage(2, s.Input); err != nil {
		return nil, err
	}
	if err := e.PutMessage(3, s.Output); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (s *SwapExecution) UnmarshalBinary(bz []byte) error {
	*s = SwapExecution{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			var t Trace
			if err := f.Message(&t); err != nil {
				return err
			}
			s.Traces = append(s.Traces, t)
		case 2:
			return f.Message(&s.Input)
		case 3:
			return f.Message(&s.Output)
		}
		return nil
	})
}

func (r ExecutionRecord) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutUint64(1, r.Height)
	if err := e.PutMessage(2, r.Pair); err != nil {
		return nil, err
	}
	if err := e.PutMessage(3, r.Execution); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (r *ExecutionRecord) UnmarshalBinary(bz []byte) error {
	*r = ExecutionRecord{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			r.Height = f.Uint64()
		case 2:
			return f.Message(&r.Pair)
		case 3:
			return f.Message(&r.Execution)
		}
		return nil
	})
}

func (d DutchAuctionDescription) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, d.Input); err != nil {
		return nil, err
	}
	e.PutBytes(2, d.OutputId.Bytes())
	e.PutBytes(3, d.MaxOutput.Bytes())
	e.PutBytes(4, d.MinOutput.Bytes())
	e.PutUint64(5, d.StartHeight)
	e.PutUint64(6, d.EndHeight)
	e.PutUint64(7, d.StepCount)
	e.PutBytes(8, d.Nonce[:])
	return e.Encoded(), nil
}

func (d *DutchAuctionDescription) UnmarshalBinary(bz []byte) error {
	*d = DutchAuctionDescription{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return f.Message(&d.Input)
		case 2:
			return assetField(f, &d.OutputId)
		case 3:
			return amountField(f, &d.MaxOutput)
		case 4:
			return amountField(f, &d.MinOutput)
		case 5:
			d.StartHeight = f.Uint64()
		case 6:
			d.EndHeight = f.Uint64()
		case 7:
			d.StepCount = f.Uint64()
		case 8:
			if len(f.Bytes()) != NonceSize {
				return ErrInvalidNonce()
			}
			copy(d.Nonce[:], f.Bytes())
		}
		return nil
	})
}

func (s DutchAuctionState) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutUint64(1, s.Seq)
	e.PutUint64(2, uint64(s.Status))
	e.PutUint64(3, uint64(s.EndReason))
	if s.CurrentPosition != nil {
		e.PutBytes(4, s.CurrentPosition.Bytes())
	}
	e.PutUint64(5, s.NextTrigger)
	e.PutBytes(6, s.InputReserves.Bytes())
	e.PutBytes(7, s.OutputReserves.Bytes())
	return e.Encoded(), nil
}

func (s *DutchAuctionState) UnmarshalBinary(bz []byte) error {
	*s = DutchAuctionState{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			s.Seq = f.Uint64()
		case 2:
			s.Status = AuctionStatus(f.Uint64())
		case 3:
			s.EndReason = EndReason(f.Uint64())
		case 4:
			id, err := NewPositionId(f.Bytes())
			if err != nil {
				return err
			}
			s.CurrentPosition = &id
		case 5:
			s.NextTrigger = f.Uint64()
		case 6:
			return amountField(f, &s.InputReserves)
		case 7:
			return amountField(f, &s.OutputReserves)
		}
		return nil
	})
}

func (a DutchAuction) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, a.Description); err != nil {
		return nil, err
	}
	if err := e.PutMessage(2, a.State); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (a *DutchAuction) UnmarshalBinary(bz []byte) error {
	*a = DutchAuction{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return f.Message(&a.Description)
		case 2:
			return f.Message(&a.State)
		}
		return nil
	})
}

func (s SwapRecord) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, s.Commitment.Bytes())
	if err := e.PutMessage(2, s.Pair); err != nil {
		return nil, err
	}
	e.PutBytes(3, s.Delta1.Bytes())
	e.PutBytes(4, s.Delta2.Bytes())
	e.PutUint64(5, s.Height)
	e.PutBool(6, s.Claimed)
	return e.Encoded(), nil
}

func (s *SwapRecord) UnmarshalBinary(bz []byte) error {
	*s = SwapRecord{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return commitmentField(f, &s.Commitment)
		case 2:
			return f.Message(&s.Pair)
		case 3:
			return amountField(f, &s.Delta1)
		case 4:
			return amountField(f, &s.Delta2)
		case 5:
			s.Height = f.Uint64()
		case 6:
			s.Claimed = f.Bool()
		}
		return nil
	})
}

// ACTIONS BELOW

func (a PositionOpen) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, a.Position); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (a *PositionOpen) UnmarshalBinary(bz []byte) error {
	*a = PositionOpen{}
	return codec.Decode(bz, func(f *codec.Field) error {
		if f.Num == 1 {
			return f.Message(&a.Position)
		}
		return nil
	})
}

func (a PositionClose) MarshalBinary() ([]byte, error) { return marshalPositionId(a.PositionId) }
func (a *PositionClose) UnmarshalBinary(bz []byte) error {
	return unmarshalPositionId(bz, &a.PositionId)
}

func (a PositionWithdraw) MarshalBinary() ([]byte, error) { return marshalPositionId(a.PositionId) }
func (a *PositionWithdraw) UnmarshalBinary(bz []byte) error {
	return unmarshalPositionId(bz, &a.PositionId)
}

func (a PositionRewardClaim) MarshalBinary() ([]byte, error) { return marshalPositionId(a.PositionId) }
func (a *PositionRewardClaim) UnmarshalBinary(bz []byte) error {
	return unmarshalPositionId(bz, &a.PositionId)
}

func (a Swap) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, a.Pair); err != nil {
		return nil, err
	}
	e.PutBytes(2, a.Delta1.Bytes())
	e.PutBytes(3, a.Delta2.Bytes())
	e.PutBytes(4, a.Commitment.Bytes())
	return e.Encoded(), nil
}

func (a *Swap) UnmarshalBinary(bz []byte) error {
	*a = Swap{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return f.Message(&a.Pair)
		case 2:
			return amountField(f, &a.Delta1)
		case 3:
			return amountField(f, &a.Delta2)
		case 4:
			return commitmentField(f, &a.Commitment)
		}
		return nil
	})
}

func (a SwapClaim) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, a.Commitment.Bytes())
	return e.Encoded(), nil
}

func (a *SwapClaim) UnmarshalBinary(bz []byte) error {
	*a = SwapClaim{}
	return codec.Decode(bz, func(f *codec.Field) error {
		if f.Num == 1 {
			return commitmentField(f, &a.Commitment)
		}
		return nil
	})
}

func (a DutchAuctionSchedule) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	if err := e.PutMessage(1, a.Description); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (a *DutchAuctionSchedule) UnmarshalBinary(bz []byte) error {
	*a = DutchAuctionSchedule{}
	return codec.Decode(bz, func(f *codec.Field) error {
		if f.Num == 1 {
			return f.Message(&a.Description)
		}
		return nil
	})
}

func (a DutchAuctionEnd) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, a.AuctionId.Bytes())
	return e.Encoded(), nil
}

func (a *DutchAuctionEnd) UnmarshalBinary(bz []byte) error {
	*a = DutchAuctionEnd{}
	return codec.Decode(bz, func(f *codec.Field) error {
		if f.Num == 1 {
			return auctionIdField(f, &a.AuctionId)
		}
		return nil
	})
}

func (a DutchAuctionWithdraw) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, a.AuctionId.Bytes())
	e.PutUint64(2, a.Seq)
	return e.Encoded(), nil
}

func (a *DutchAuctionWithdraw) UnmarshalBinary(bz []byte) error {
	*a = DutchAuctionWithdraw{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			return auctionIdField(f, &a.AuctionId)
		case 2:
			a.Seq = f.Uint64()
		}
		return nil
	})
}

// actionEnvelope tags an encoded action with its variant
type actionEnvelope struct{ action Action }

func (a actionEnvelope) MarshalBinary() ([]byte, error) {
	if a.action == nil {
		return nil, ErrInvalidAction()
	}
	tag := 0
	for i, t := range actionTypes {
		if t == a.action.Type() {
			tag = i + 1
		}
	}
	if tag == 0 {
		return nil, ErrUnknownAction(string(a.action.Type()))
	}
	e := codec.NewEncoder()
	e.PutUint64(1, uint64(tag))
	if err := e.PutMessage(2, a.action); err != nil {
		return nil, err
	}
	return e.Encoded(), nil
}

func (a *actionEnvelope) UnmarshalBinary(bz []byte) error {
	var (
		tag uint64
		msg []byte
	)
	err := codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			tag = f.Uint64()
		case 2:
			msg = f.Bytes()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if tag == 0 || tag > uint64(len(actionTypes)) {
		return ErrUnknownAction("")
	}
	action, e := NewAction(actionTypes[tag-1])
	if e != nil {
		return e
	}
	if err = action.UnmarshalBinary(msg); err != nil {
		return err
	}
	a.action = action
	return nil
}

func (t *Transaction) MarshalBinary() ([]byte, error) {
	e := codec.NewEncoder()
	for _, a := range t.Actions {
		if err := e.PutMessage(1, actionEnvelope{action: a}); err != nil {
			return nil, err
		}
	}
	proofs := make([][]byte, len(t.Proofs))
	for i, p := range t.Proofs {
		proofs[i] = p
	}
	e.PutRepeatedBytes(2, proofs)
	e.PutString(3, t.Memo)
	return e.Encoded(), nil
}

func (t *Transaction) UnmarshalBinary(bz []byte) error {
	*t = Transaction{}
	return codec.Decode(bz, func(f *codec.Field) error {
		switch f.Num {
		case 1:
			var env actionEnvelope
			if err := f.Message(&env); err != nil {
				return err
			}
			t.Actions = append(t.Actions, env.action)
		case 2:
			t.Proofs = append(t.Proofs, f.Bytes())
		case 3:
			t.Memo = f.String()
		}
		return nil
	})
}

// HELPERS BELOW

func marshalPositionId(id PositionId) ([]byte, error) {
	e := codec.NewEncoder()
	e.PutBytes(1, id.Bytes())
	return e.Encoded(), nil
}

func unmarshalPositionId(bz []byte, id *PositionId) error {
	*id = PositionId{}
	return codec.Decode(bz, func(f *codec.Field) error {
		if f.Num != 1 {
			return nil
		}
		parsed, err := NewPositionId(f.Bytes())
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	})
}

func amountField(f *codec.Field, dst *lib.Amount) error {
	a, err := lib.AmountFromBytes(f.Bytes())
	if err != nil {
		return err
	}
	*dst = a
	return nil
}

func assetField(f *codec.Field, dst *AssetId) error {
	a, err := NewAssetId(f.Bytes())
	if err != nil {
		return err
	}
	*dst = a
	return nil
}

func commitmentField(f *codec.Field, dst *Commitment) error {
	c, err := NewCommitment(f.Bytes())
	if err != nil {
		return err
	}
	*dst = c
	return nil
}

func auctionIdField(f *codec.Field, dst *AuctionId) error {
	id, err := NewAuctionId(f.Bytes())
	if err != nil {
		return err
	}
	*dst = id
	return nil
}
