package dex

import (
	"github.com/canopy-network/canopy-dex/lib"
)

// Trace is the path of one unit of routed flow: the input followed by the output of every hop
type Trace []Value

// SwapExecution is the result of routing an input toward a target asset
type SwapExecution struct {
	Traces []Trace `json:"traces"`
	Input  Value   `json:"input"`  // consumed input
	Output Value   `json:"output"` // total output
}

// AddTrace() appends a trace and accumulates its endpoints into the execution totals
func (s *SwapExecution) AddTrace(t Trace) lib.ErrorI {
	if len(t) < 2 {
		return ErrInvalidRoute()
	}
	in, err := s.Input.Amount.Add(t[0].Amount)
	if err != nil {
		return err
	}
	out, err := s.Output.Amount.Add(t[len(t)-1].Amount)
	if err != nil {
		return err
	}
	s.Traces = append(s.Traces, t)
	s.Input.Amount, s.Output.Amount = in, out
	return nil
}

// Surplus() returns output minus input for a closed loop execution
func (s *SwapExecution) Surplus() lib.Amount { return s.Output.Amount.SaturatingSub(s.Input.Amount) }

// ExecutionRecord is a persisted execution of a routed direction at a height
type ExecutionRecord struct {
	Height    uint64              `json:"height"`
	Pair      DirectedTradingPair `json:"pair"`
	Execution SwapExecution       `json:"execution"`
}

// ExecutionRecords is a pageable list of execution records
type ExecutionRecords []*ExecutionRecord

const ExecutionRecordsPageName = "executions"

func (e *ExecutionRecords) New() lib.Pageable { return &ExecutionRecords{} }

func init() {
	lib.RegisteredPageables[ExecutionRecordsPageName] = new(ExecutionRecords)
	lib.RegisteredPageables[PositionsPageName] = new(Positions)
}

// Routing selects how the router may reach the target asset
type Routing interface{ isRouting() }

// RoutingDefault searches multi hop paths through the configured routing candidates
type RoutingDefault struct{}

// RoutingSingleHop restricts the router to the direct pair
type RoutingSingleHop struct{}

func (RoutingDefault) isRouting()   {}
func (RoutingSingleHop) isRouting() {}

// ParseRouting() converts the query parameter form of a routing strategy
func ParseRouting(s string) Routing {
	switch s {
	case "single-hop", "single_hop", "singleHop":
		return RoutingSingleHop{}
	default:
		return RoutingDefault{}
	}
}

// Positions is a pageable list of positions
type Positions []PositionView

const PositionsPageName = "positions"

func (p *Positions) New() lib.Pageable { return &Positions{} }
