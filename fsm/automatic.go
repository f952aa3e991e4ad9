package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

/* This file handles 'automatic' (non-transaction-induced) state changes that occur at the beginning and ending of a block */

// BeginBlock() is code that is executed at the start of `applying` the block
func (s *StateMachine) BeginBlock() lib.ErrorI {
	s.events.Height = s.height
	s.events.Refer(lib.EventStageBeginBlock)
	return nil
}

// EndBlock() is code that is executed at the end of `applying` the block
// The function:
// - (1) executes the auction triggers due at this height, repricing or ending auctions before the batches meet the book
// - (2) aggregates the swaps of the block into one flow per trading pair
// - (3) clears every flow against the book and stores the batch outputs and executions
// - (4) runs the arbitrage executor on the resulting book
// - (5) checks the circuit breaker covers every balance the dex can still owe
func (s *StateMachine) EndBlock() (outputs []*dex.BatchSwapOutputData, executions []*dex.ExecutionRecord, arb *dex.SwapExecution, err lib.ErrorI) {
	s.events.Refer(lib.EventStageEndBlock)
	// (1) auction triggers
	if err = s.ProcessAuctionTriggers(); err != nil {
		return
	}
	// (2) aggregate the swaps of this height
	agg, err := s.AggregateSwaps(s.height)
	if err != nil {
		return
	}
	// (3) clear the batches
	if outputs, executions, err = s.ExecuteBatches(agg); err != nil {
		return
	}
	// (4) arbitrage
	if arb, err = s.Arbitrage(); err != nil {
		return
	}
	// (5) circuit breaker
	err = s.CheckCustody()
	return
}
