package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

// HandleAction() routes the action to the correct `handler` based on its `type`
func (s *StateMachine) HandleAction(action dex.Action) lib.ErrorI {
	switch x := action.(type) {
	case *dex.PositionOpen:
		return s.HandlePositionOpen(x)
	case *dex.PositionClose:
		return s.HandlePositionClose(x)
	case *dex.PositionWithdraw:
		return s.HandlePositionWithdraw(x)
	case *dex.PositionRewardClaim:
		return s.HandlePositionRewardClaim(x)
	case *dex.Swap:
		return s.HandleSwap(x)
	case *dex.SwapClaim:
		return s.HandleSwapClaim(x)
	case *dex.DutchAuctionSchedule:
		return s.HandleDutchAuctionSchedule(x)
	case *dex.DutchAuctionEnd:
		return s.HandleDutchAuctionEnd(x)
	case *dex.DutchAuctionWithdraw:
		return s.HandleDutchAuctionWithdraw(x)
	default:
		return dex.ErrInvalidAction()
	}
}

// HandlePositionOpen() opens a user funded position, crediting its reserves to the circuit breaker
func (s *StateMachine) HandlePositionOpen(a *dex.PositionOpen) lib.ErrorI {
	position := a.Position
	_, err := s.OpenPosition(&position)
	return err
}

// HandlePositionClose() stops a position from trading, the reserves stay in the position until withdrawn
func (s *StateMachine) HandlePositionClose(a *dex.PositionClose) lib.ErrorI {
	if err := s.checkUserOwned(a.PositionId); err != nil {
		return err
	}
	return s.ClosePosition(a.PositionId)
}

// HandlePositionWithdraw() releases the reserves of a closed position, debiting them from the circuit breaker
func (s *StateMachine) HandlePositionWithdraw(a *dex.PositionWithdraw) lib.ErrorI {
	if err := s.checkUserOwned(a.PositionId); err != nil {
		return err
	}
	_, err := s.WithdrawPosition(a.PositionId)
	return err
}

// HandlePositionRewardClaim() moves a withdrawn position into its terminal state
func (s *StateMachine) HandlePositionRewardClaim(a *dex.PositionRewardClaim) lib.ErrorI {
	if err := s.checkUserOwned(a.PositionId); err != nil {
		return err
	}
	return s.ClaimPosition(a.PositionId)
}

// checkUserOwned() rejects user lifecycle actions on positions that are managed by an auction
func (s *StateMachine) checkUserOwned(id dex.PositionId) lib.ErrorI {
	bz, err := s.Get(KeyForAuctionPosition(id))
	if err != nil {
		return err
	}
	if bz != nil {
		return dex.ErrInvalidAction()
	}
	return nil
}
