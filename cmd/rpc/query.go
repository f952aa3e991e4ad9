package rpc

import (
	"net/http"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/julienschmidt/httprouter"
)

// maxExecutionRange is the largest height range of a single executions query
const maxExecutionRange = 1000

// Version writes the software version
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.write(w, 0, SoftwareVersion, http.StatusOK)
}

// Height responds with the last committed height
func (s *Server) Height(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.heightParams(w, r, new(heightRequest), func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.LastHeight(), nil
	})
}

// BatchOutput responds with the clearing result of a pair at a block height
func (s *Server) BatchOutput(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(pairRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		pair, err := req.pair()
		if err != nil {
			return nil, err
		}
		return sm.GetBatchOutput(req.block(sm), pair)
	})
}

// BatchOutputs responds with every clearing result of a block height
func (s *Server) BatchOutputs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(blockHeightRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetBatchOutputs(req.block(sm))
	})
}

// Spread responds with the best offers of the pair and the price of the requested direction
func (s *Server) Spread(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(directedPairRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		spread, err := sm.GetSpread(req.ToCanonical())
		if err != nil {
			return nil, err
		}
		resp := &spreadResponse{Spread: spread, Best: spread.Backward}
		if req.StartsAtAsset1() {
			resp.Best = spread.Forward
		}
		if resp.Best != nil {
			resp.Price = priceString(resp.Best.Phi.Component.EffectivePrice(req.StartsAtAsset1()))
		}
		return resp, nil
	})
}

// Position responds with a position by id
func (s *Server) Position(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(idRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		id, err := dex.PositionIdFromString(req.Id)
		if err != nil {
			return nil, err
		}
		p, err := sm.GetPosition(id)
		if err != nil {
			return nil, err
		}
		return p.View(), nil
	})
}

// Positions responds with a filtered page of positions
func (s *Server) Positions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(positionsRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		filter, err := req.filter()
		if err != nil {
			return nil, err
		}
		return sm.GetPositionsPaginated(req.PageParams, filter)
	})
}

// Executions responds with a page of the routed executions of a block or every execution of a height range
func (s *Server) Executions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(executionsRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		end := req.block(sm)
		if req.StartHeight == 0 {
			return sm.GetExecutionsPaginated(end, req.PageParams)
		}
		if req.StartHeight > end || end-req.StartHeight >= maxExecutionRange {
			return nil, ErrInvalidParams(lib.ErrInvalidArgument())
		}
		resp := &executionsResponse{StartHeight: req.StartHeight, EndHeight: end}
		for h := req.StartHeight; h <= end; h++ {
			page, err := sm.GetExecutionsPaginated(h, lib.PageParams{PerPage: maxExecutionRange})
			if err != nil {
				return nil, err
			}
			if records, ok := page.Results.(*dex.ExecutionRecords); ok {
				resp.Executions = append(resp.Executions, *records...)
			}
		}
		return resp, nil
	})
}

// ArbExecution responds with the arbitrage execution of a block, empty if none ran
func (s *Server) ArbExecution(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(blockHeightRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetArbitrageExecution(req.block(sm))
	})
}

// Auction responds with an auction by id
func (s *Server) Auction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(idRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		id, err := dex.AuctionIdFromString(req.Id)
		if err != nil {
			return nil, err
		}
		a, err := sm.GetAuction(id)
		if err != nil {
			return nil, err
		}
		return &dex.AuctionView{Id: id, DutchAuction: a}, nil
	})
}

// Auctions responds with a page of auctions
func (s *Server) Auctions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(paginatedHeightRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetAuctionsPaginated(req.PageParams)
	})
}

// VCBBalance responds with the circuit breaker balance of an asset, or every balance
func (s *Server) VCBBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(assetRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		if req.Asset == nil {
			return sm.VCBBalances()
		}
		balance, err := sm.VCBBalance(*req.Asset)
		if err != nil {
			return nil, err
		}
		return dex.NewValue(*req.Asset, balance), nil
	})
}

// Swap responds with a swap record by commitment
func (s *Server) Swap(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(commitmentRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetSwap(req.Commitment)
	})
}

// Events responds with a page of the events of a block
func (s *Server) Events(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(paginatedBlockRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetEventsPaginated(req.block(sm), req.PageParams)
	})
}

// State responds with a full export of the latest committed state
func (s *Server) State(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.heightParams(w, r, new(heightRequest), func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.ExportState()
	})
}

// SimulateTrade runs the router against a snapshot of the book without changing it
func (s *Server) SimulateTrade(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(simulateRequest)
	s.heightParams(w, r, req, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		result, err := sm.SimulateTrade(req.Input, req.Target, dex.ParseRouting(req.Routing))
		if err != nil {
			return nil, err
		}
		return &simulateResponse{SimulationResult: result, Price: averagePrice(result.Execution)}, nil
	})
}
