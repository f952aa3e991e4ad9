package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

// ExecuteBatches() clears every aggregated flow of the current height in canonical pair order
func (s *StateMachine) ExecuteBatches(agg *dex.BatchAggregator) (outputs []*dex.BatchSwapOutputData, executions []*dex.ExecutionRecord, err lib.ErrorI) {
	for _, flow := range agg.Flows() {
		bsod, records, e := s.ExecuteBatch(flow)
		if e != nil {
			return nil, nil, e
		}
		outputs, executions = append(outputs, bsod), append(executions, records...)
	}
	return
}

// ExecuteBatch() routes both directions of a pair flow through the book and stores the batch outputs
// the asset 1 input is routed first; both directions meet the book independently
func (s *StateMachine) ExecuteBatch(flow dex.SwapFlow) (bsod *dex.BatchSwapOutputData, records []*dex.ExecutionRecord, err lib.ErrorI) {
	bsod = &dex.BatchSwapOutputData{
		Delta1:              flow.Delta1,
		Delta2:              flow.Delta2,
		Height:              s.height,
		TradingPair:         flow.Pair,
		EpochStartingHeight: dex.EpochStartingHeight(s.height, s.Config.EpochLength),
	}
	// asset 1 -> asset 2
	if !flow.Delta1.IsZero() {
		record, unfilled, e := s.executeDirection(dex.NewValue(flow.Pair.Asset1, flow.Delta1), flow.Pair.Asset2)
		if e != nil {
			return nil, nil, e
		}
		bsod.Lambda2, bsod.Unfilled1 = record.Execution.Output.Amount, unfilled
		records = append(records, record)
	}
	// asset 2 -> asset 1
	if !flow.Delta2.IsZero() {
		record, unfilled, e := s.executeDirection(dex.NewValue(flow.Pair.Asset2, flow.Delta2), flow.Pair.Asset1)
		if e != nil {
			return nil, nil, e
		}
		bsod.Lambda1, bsod.Unfilled2 = record.Execution.Output.Amount, unfilled
		records = append(records, record)
	}
	if err = bsod.Validate(); err != nil {
		return nil, nil, err
	}
	if err = s.setObject(KeyForBatchOutput(s.height, flow.Pair), bsod); err != nil {
		return nil, nil, err
	}
	s.log.Debugf("Cleared batch %s at height %d: in (%s, %s) out (%s, %s)", flow.Pair, s.height, bsod.Delta1, bsod.Delta2, bsod.Lambda1, bsod.Lambda2)
	s.addEvent(lib.EventTypeBatchSwap, bsod)
	return
}

// executeDirection() routes one side of a batch and stores its execution record
func (s *StateMachine) executeDirection(input dex.Value, target dex.AssetId) (*dex.ExecutionRecord, lib.Amount, lib.ErrorI) {
	exec, unfilled, err := s.RouteAndFill(input, target, dex.RoutingDefault{})
	if err != nil {
		return nil, unfilled, err
	}
	// the unfilled remainder plus the consumed input must be the whole input
	total, err := unfilled.Add(exec.Input.Amount)
	if err != nil {
		return nil, unfilled, err
	}
	if !total.Equal(input.Amount) {
		pair, _ := dex.NewTradingPair(input.Asset, target)
		return nil, unfilled, dex.ErrConservationViolated(pair)
	}
	record := &dex.ExecutionRecord{Height: s.height, Pair: dex.DirectedTradingPair{Start: input.Asset, End: target}, Execution: *exec}
	if err = s.setObject(KeyForExecution(s.height, record.Pair), record); err != nil {
		return nil, unfilled, err
	}
	return record, unfilled, nil
}

// GetBatchOutput() loads the clearing result of a pair at a height
func (s *StateMachine) GetBatchOutput(height uint64, pair dex.TradingPair) (*dex.BatchSwapOutputData, lib.ErrorI) {
	bsod := new(dex.BatchSwapOutputData)
	found, err := s.getObject(KeyForBatchOutput(height, pair), bsod)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dex.ErrBatchOutputNotFound(height, pair)
	}
	return bsod, nil
}

// GetBatchOutputs() loads every clearing result of a height
func (s *StateMachine) GetBatchOutputs(height uint64) (outputs []*dex.BatchSwapOutputData, err lib.ErrorI) {
	err = s.IterateAndExecute(BatchOutputPrefix(height), func(_, value []byte) lib.ErrorI {
		bsod := new(dex.BatchSwapOutputData)
		if e := lib.Unmarshal(value, bsod); e != nil {
			return e
		}
		outputs = append(outputs, bsod)
		return nil
	})
	return
}

// GetExecution() loads the routed execution of a direction at a height, nil if the direction didn't trade
func (s *StateMachine) GetExecution(height uint64, d dex.DirectedTradingPair) (*dex.ExecutionRecord, lib.ErrorI) {
	record := new(dex.ExecutionRecord)
	found, err := s.getObject(KeyForExecution(height, d), record)
	if err != nil || !found {
		return nil, err
	}
	return record, nil
}

// GetExecutionsPaginated() returns a page of the routed executions of a height
func (s *StateMachine) GetExecutionsPaginated(height uint64, p lib.PageParams) (page *lib.Page, err lib.ErrorI) {
	page, res := lib.NewPage(p, dex.ExecutionRecordsPageName), make(dex.ExecutionRecords, 0)
	err = page.Load(ExecutionPrefix(height), false, &res, s.store, func(_, v []byte) lib.ErrorI {
		record := new(dex.ExecutionRecord)
		if e := lib.Unmarshal(v, record); e != nil {
			return e
		}
		res = append(res, record)
		return nil
	})
	return
}
