package rpc

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/shopspring/decimal"
)

// priceDecimals is the precision of the human readable prices of query responses
const priceDecimals = 18

// =====================================================
// Query Request Types
// =====================================================

type heightRequest struct {
	Height uint64 `json:"height"` // 0 is the latest committed height
}

func (h *heightRequest) GetHeight() uint64 { return h.Height }

type queryWithHeight interface {
	GetHeight() uint64
}

// blockHeightRequest addresses the records of a block, which never change once committed
type blockHeightRequest struct {
	Height uint64 `json:"height"` // 0 is the last committed block
}

// GetHeight() reads block records from the latest snapshot
func (b *blockHeightRequest) GetHeight() uint64 { return 0 }

// block() returns the requested block height, defaulting to the last committed
func (b *blockHeightRequest) block(sm *fsm.StateMachine) uint64 {
	if b.Height == 0 {
		return sm.LastHeight()
	}
	return b.Height
}

type pairRequest struct {
	blockHeightRequest
	Asset1 dex.AssetId `json:"asset1"`
	Asset2 dex.AssetId `json:"asset2"`
}

// pair() canonicalizes the requested assets
func (p *pairRequest) pair() (dex.TradingPair, lib.ErrorI) { return dex.NewTradingPair(p.Asset1, p.Asset2) }

type directedPairRequest struct {
	heightRequest
	dex.DirectedTradingPair
}

type idRequest struct {
	heightRequest
	Id string `json:"id"`
}

type assetRequest struct {
	heightRequest
	Asset *dex.AssetId `json:"assetId,omitempty"` // nil lists every asset
}

type commitmentRequest struct {
	heightRequest
	Commitment dex.Commitment `json:"commitment"`
}

type paginatedHeightRequest struct {
	heightRequest
	lib.PageParams
}

type paginatedBlockRequest struct {
	blockHeightRequest
	lib.PageParams
}

type positionsRequest struct {
	paginatedHeightRequest
	Asset1 *dex.AssetId `json:"asset1,omitempty"`
	Asset2 *dex.AssetId `json:"asset2,omitempty"`
	State  string       `json:"state,omitempty"`
}

// filter() converts the request into a position filter
func (p *positionsRequest) filter() (f fsm.PositionFilter, err lib.ErrorI) {
	if p.Asset1 != nil && p.Asset2 != nil {
		pair, e := dex.NewTradingPair(*p.Asset1, *p.Asset2)
		if e != nil {
			return f, e
		}
		f.Pair = &pair
	}
	if p.State != "" {
		f.State, err = dex.ParsePositionState(p.State)
	}
	return
}

type executionsRequest struct {
	paginatedBlockRequest
	StartHeight uint64 `json:"startHeight"` // if set, every execution from start height to height
}

type simulateRequest struct {
	heightRequest
	Input   dex.Value   `json:"input"`
	Target  dex.AssetId `json:"target"`
	Routing string      `json:"routing,omitempty"` // 'single-hop' or the default multi hop search
}

// =====================================================
// Response Types
// =====================================================

// response is the envelope of every rpc reply
type response struct {
	ChainId string         `json:"chainId"`
	Height  uint64         `json:"height,omitempty"` // the committed height the result was read at
	Result  any            `json:"result,omitempty"`
	Error   *lib.Error     `json:"error,omitempty"`
	Class   dex.ErrorClass `json:"class,omitempty"` // the class of the error
}

// spreadResponse is the spread of a pair plus the best offer of the requested direction
type spreadResponse struct {
	*fsm.Spread
	Best  *dex.PositionView `json:"best,omitempty"`  // the cheapest position selling end for start
	Price string            `json:"price,omitempty"` // start units paid per end unit at the best position
}

// simulateResponse is a trade simulation plus its average price
type simulateResponse struct {
	*fsm.SimulationResult
	Price string `json:"price,omitempty"` // input units paid per output unit over the whole route
}

// blockResponse is the result of an admin applied block
type blockResponse struct {
	*fsm.BlockResult
	Version uint64 `json:"version"` // the committed version
}

// executionsResponse lists the routed executions of a height range
type executionsResponse struct {
	StartHeight uint64                 `json:"startHeight"`
	EndHeight   uint64                 `json:"endHeight"`
	Executions  []*dex.ExecutionRecord `json:"executions"`
}

// priceString() renders a rational price with fixed precision
func priceString(p dex.Price) string {
	if p.Den == nil || p.Den.Sign() == 0 {
		return ""
	}
	num, den := decimal.NewFromBigInt(p.Num, 0), decimal.NewFromBigInt(p.Den, 0)
	return num.DivRound(den, priceDecimals).String()
}

// averagePrice() renders input over output of an execution
func averagePrice(exec *dex.SwapExecution) string {
	if exec == nil || exec.Output.Amount.IsZero() {
		return ""
	}
	return priceString(dex.Price{Num: exec.Input.Amount.Big(), Den: exec.Output.Amount.Big()})
}
