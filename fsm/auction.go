package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/*
	Dutch auctions sell a fixed input for a declining price. The auction never trades itself: at every trigger
	height it retires its current position (collecting whatever was sold) and opens a fresh close-on-fill
	position priced at the current step. Triggers are stored by height with the auction sequence number they
	were scheduled under; any change to the auction increments the sequence, so a trigger that outlived a
	change is recognized as stale and dropped.
*/

// GetAuction() loads an auction by id
func (s *StateMachine) GetAuction(id dex.AuctionId) (*dex.DutchAuction, lib.ErrorI) {
	a := new(dex.DutchAuction)
	found, err := s.getObject(KeyForAuction(id), a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dex.ErrAuctionNotFound(id)
	}
	return a, nil
}

// SetAuction() writes an auction under its id
func (s *StateMachine) SetAuction(id dex.AuctionId, a *dex.DutchAuction) lib.ErrorI {
	return s.setObject(KeyForAuction(id), a)
}

// HandleDutchAuctionSchedule() escrows the auction input and schedules its first trigger
func (s *StateMachine) HandleDutchAuctionSchedule(msg *dex.DutchAuctionSchedule) lib.ErrorI {
	d := msg.Description
	if err := d.Validate(); err != nil {
		return err
	}
	// an auction can't start in the past
	if d.StartHeight < s.height {
		return dex.ErrInvalidAuctionHeights()
	}
	id := d.Id()
	bz, err := s.Get(KeyForAuction(id))
	if err != nil {
		return err
	}
	if bz != nil {
		return dex.ErrDuplicateAuction(id)
	}
	auction := dex.NewDutchAuction(d)
	if err = s.VCBCredit(d.Input); err != nil {
		return err
	}
	if err = s.SetAuction(id, auction); err != nil {
		return err
	}
	if err = s.scheduleTrigger(d.StartHeight, id, auction.State.Seq); err != nil {
		return err
	}
	s.addEvent(lib.EventTypeAuctionSchedule, &dex.AuctionView{Id: id, DutchAuction: auction})
	return nil
}

// HandleDutchAuctionEnd() stops an auction early, collecting the reserves of its current position
// the pending trigger is left in place and is discarded as stale when reached
func (s *StateMachine) HandleDutchAuctionEnd(msg *dex.DutchAuctionEnd) lib.ErrorI {
	auction, err := s.GetAuction(msg.AuctionId)
	if err != nil {
		return err
	}
	if auction.IsEnded() {
		return dex.ErrAuctionEnded()
	}
	if err = s.retireAuctionPosition(auction); err != nil {
		return err
	}
	auction.End(dex.EndReasonClosedByOwner)
	if err = s.SetAuction(msg.AuctionId, auction); err != nil {
		return err
	}
	s.addEvent(lib.EventTypeAuctionEnd, &dex.AuctionView{Id: msg.AuctionId, DutchAuction: auction})
	return nil
}

// HandleDutchAuctionWithdraw() releases the reserves of an ended auction
// the sequence number must match so a withdrawal can't be replayed against a later state
func (s *StateMachine) HandleDutchAuctionWithdraw(msg *dex.DutchAuctionWithdraw) lib.ErrorI {
	auction, err := s.GetAuction(msg.AuctionId)
	if err != nil {
		return err
	}
	if msg.Seq != auction.State.Seq {
		return dex.ErrStaleAuctionSeq(msg.Seq, auction.State.Seq)
	}
	if auction.State.Status != dex.AuctionStatusEnded {
		if auction.State.Status == dex.AuctionStatusWithdrawn {
			return dex.ErrAuctionEnded()
		}
		return dex.ErrAuctionNotEnded()
	}
	withdrawn := []dex.Value{
		dex.NewValue(auction.Description.Input.Asset, auction.State.InputReserves),
		dex.NewValue(auction.Description.OutputId, auction.State.OutputReserves),
	}
	for _, v := range withdrawn {
		if err = s.VCBDebit(v); err != nil {
			return err
		}
	}
	auction.State.Status = dex.AuctionStatusWithdrawn
	auction.State.InputReserves, auction.State.OutputReserves = lib.Amount{}, lib.Amount{}
	auction.State.Seq++
	if err = s.SetAuction(msg.AuctionId, auction); err != nil {
		return err
	}
	s.addEvent(lib.EventTypeAuctionWithdraw, &AuctionWithdrawal{Id: msg.AuctionId, Seq: auction.State.Seq, Withdrawn: withdrawn})
	return nil
}

// auctionTrigger is a scheduled trigger read from the index
type auctionTrigger struct {
	key    []byte
	height uint64
	id     dex.AuctionId
	seq    uint64
}

// ProcessAuctionTriggers() executes every trigger scheduled at or below the current height in (height, id) order
func (s *StateMachine) ProcessAuctionTriggers() lib.ErrorI {
	var due []auctionTrigger
	it, err := s.Iterator(AuctionTriggerPrefix())
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		height, id, e := AuctionTriggerFromKey(it.Key())
		if e != nil {
			it.Close()
			return e
		}
		// keys are sorted by big endian height
		if height > s.height {
			break
		}
		due = append(due, auctionTrigger{key: it.Key(), height: height, id: id, seq: lib.BytesToUint64(it.Value())})
	}
	it.Close()
	for _, t := range due {
		if err = s.Delete(t.key); err != nil {
			return err
		}
		auction, e := s.GetAuction(t.id)
		if e != nil {
			s.log.Errorf("Dropping trigger of auction %s: %s", lib.BytesToTruncatedString(t.id.Bytes()), e.Error())
			continue
		}
		if auction.IsEnded() || t.seq != auction.State.Seq {
			s.log.Debugf("Dropping stale trigger of auction %s: %s", lib.BytesToTruncatedString(t.id.Bytes()), dex.ErrStaleAuctionSeq(t.seq, auction.State.Seq).Error())
			continue
		}
		// a failing trigger leaves the auction untouched and waiting for its owner
		if e = s.Atomic(func() lib.ErrorI { return s.triggerAuction(t.id, auction, t.height) }); e != nil {
			s.log.Errorf("Trigger of auction %s at height %d failed: %s", lib.BytesToTruncatedString(t.id.Bytes()), t.height, e.Error())
		}
	}
	return s.updateActiveAuctions()
}

// triggerAuction() retires the current position and either ends the auction or reprices it at the trigger step
func (s *StateMachine) triggerAuction(id dex.AuctionId, auction *dex.DutchAuction, height uint64) lib.ErrorI {
	if err := s.retireAuctionPosition(auction); err != nil {
		return err
	}
	d := &auction.Description
	switch {
	case auction.State.InputReserves.IsZero():
		auction.End(dex.EndReasonFilled)
	case height >= d.EndHeight:
		auction.End(dex.EndReasonExpired)
	default:
		k, _ := d.StepAt(height)
		position, err := d.PositionAt(k, auction.State.InputReserves, auction.State.Seq)
		if err != nil {
			return err
		}
		// the input moves from the auction into the position, the circuit breaker total is unchanged
		positionId, err := s.openPosition(position)
		if err != nil {
			return err
		}
		if err = s.Set(KeyForAuctionPosition(positionId), id.Bytes()); err != nil {
			return err
		}
		auction.State.Status, auction.State.CurrentPosition = dex.AuctionStatusActive, &positionId
		auction.State.InputReserves, auction.State.NextTrigger = lib.Amount{}, height+d.StepSize()
		auction.State.Seq++
		if err = s.scheduleTrigger(auction.State.NextTrigger, id, auction.State.Seq); err != nil {
			return err
		}
	}
	if err := s.SetAuction(id, auction); err != nil {
		return err
	}
	s.addEvent(lib.EventTypeAuctionTrigger, &dex.AuctionView{Id: id, DutchAuction: auction})
	return nil
}

// retireAuctionPosition() closes and withdraws the current position of an auction into the auction reserves
func (s *StateMachine) retireAuctionPosition(auction *dex.DutchAuction) lib.ErrorI {
	if auction.State.CurrentPosition == nil {
		return nil
	}
	p, err := s.GetPosition(*auction.State.CurrentPosition)
	if err != nil {
		return err
	}
	// a filled close-on-fill position is already closed
	if p.State == dex.PositionStateOpened {
		if err = s.closePosition(p); err != nil {
			return err
		}
	}
	reserves, err := s.withdrawPosition(p)
	if err != nil {
		return err
	}
	pair := p.Phi.Pair
	in, err := reserves.ReserveOf(pair, auction.Description.Input.Asset)
	if err != nil {
		return err
	}
	out, err := reserves.ReserveOf(pair, auction.Description.OutputId)
	if err != nil {
		return err
	}
	if auction.State.InputReserves, err = auction.State.InputReserves.Add(in); err != nil {
		return err
	}
	if auction.State.OutputReserves, err = auction.State.OutputReserves.Add(out); err != nil {
		return err
	}
	auction.State.CurrentPosition = nil
	return nil
}

// scheduleTrigger() indexes a trigger at a height under the auction sequence it was scheduled with
func (s *StateMachine) scheduleTrigger(height uint64, id dex.AuctionId, seq uint64) lib.ErrorI {
	return s.Set(KeyForAuctionTrigger(height, id), lib.Uint64ToBytes(seq))
}

// updateActiveAuctions() reports the number of pending triggers
func (s *StateMachine) updateActiveAuctions() lib.ErrorI {
	if s.Metrics == nil {
		return nil
	}
	n := 0
	err := s.IterateAndExecute(AuctionTriggerPrefix(), func(_, _ []byte) lib.ErrorI {
		n++
		return nil
	})
	s.Metrics.SetActiveAuctions(n)
	return err
}

// GetAuctionsPaginated() returns a page of auctions in id order
func (s *StateMachine) GetAuctionsPaginated(p lib.PageParams) (page *lib.Page, err lib.ErrorI) {
	page, res := lib.NewPage(p, AuctionsPageName), make(Auctions, 0)
	err = page.Load(AuctionPrefix(), false, &res, s.store, func(_, v []byte) lib.ErrorI {
		a := new(dex.DutchAuction)
		if e := lib.Unmarshal(v, a); e != nil {
			return e
		}
		res = append(res, &dex.AuctionView{Id: a.Description.Id(), DutchAuction: a})
		return nil
	})
	return
}

// AuctionWithdrawal is the event payload of a withdrawn auction
type AuctionWithdrawal struct {
	Id        dex.AuctionId `json:"id"`
	Seq       uint64        `json:"seq"`
	Withdrawn []dex.Value   `json:"withdrawn"`
}

// Auctions is a pageable list of auctions
type Auctions []*dex.AuctionView

const AuctionsPageName = "auctions"

func (a *Auctions) New() lib.Pageable { return &Auctions{} }

func init() {
	lib.RegisteredPageables[AuctionsPageName] = new(Auctions)
}
