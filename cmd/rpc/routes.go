package rpc

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Dex RPC Paths
const (
	VersionRoutePath        = "/v1/"
	HeightRoutePath         = "/v1/query/height"
	BatchOutputRoutePath    = "/v1/query/batch-output"
	BatchOutputsRoutePath   = "/v1/query/batch-outputs"
	SpreadRoutePath         = "/v1/query/spread"
	PositionRoutePath       = "/v1/query/position"
	PositionsRoutePath      = "/v1/query/positions"
	ExecutionsRoutePath     = "/v1/query/executions"
	ArbExecutionRoutePath   = "/v1/query/arb-execution"
	AuctionRoutePath        = "/v1/query/auction"
	AuctionsRoutePath       = "/v1/query/auctions"
	VCBBalanceRoutePath     = "/v1/query/vcb-balance"
	SwapRoutePath           = "/v1/query/swap"
	EventsRoutePath         = "/v1/query/events"
	StateRoutePath          = "/v1/query/state"
	SimulateTradeRoutePath  = "/v1/simulate/trade"
	SubscribeExecutionsPath = "/v1/subscribe/executions"
	// admin
	BlockRoutePath         = "/v1/admin/block"
	ConfigRoutePath        = "/v1/admin/config"
	LogsRoutePath          = "/v1/admin/log"
	ResourceUsageRoutePath = "/v1/admin/resource-usage"
)

const (
	VersionRouteName        = "version"
	HeightRouteName         = "height"
	BatchOutputRouteName    = "batch-output"
	BatchOutputsRouteName   = "batch-outputs"
	SpreadRouteName         = "spread"
	PositionRouteName       = "position"
	PositionsRouteName      = "positions"
	ExecutionsRouteName     = "executions"
	ArbExecutionRouteName   = "arb-execution"
	AuctionRouteName        = "auction"
	AuctionsRouteName       = "auctions"
	VCBBalanceRouteName     = "vcb-balance"
	SwapRouteName           = "swap"
	EventsRouteName         = "events"
	StateRouteName          = "state"
	SimulateTradeRouteName  = "simulate-trade"
	SubscribeExecutionsName = "subscribe-executions"
	// admin
	BlockRouteName         = "block"
	ConfigRouteName        = "config"
	LogsRouteName          = "logs"
	ResourceUsageRouteName = "resource-usage"
)

// routes contains the method and path for a dex command
type routes map[string]struct {
	Method string
	Path   string
}

// routePaths is a mapping from route names to their corresponding HTTP methods and paths.
var routePaths = routes{
	VersionRouteName:        {Method: http.MethodGet, Path: VersionRoutePath},
	HeightRouteName:         {Method: http.MethodPost, Path: HeightRoutePath},
	BatchOutputRouteName:    {Method: http.MethodPost, Path: BatchOutputRoutePath},
	BatchOutputsRouteName:   {Method: http.MethodPost, Path: BatchOutputsRoutePath},
	SpreadRouteName:         {Method: http.MethodPost, Path: SpreadRoutePath},
	PositionRouteName:       {Method: http.MethodPost, Path: PositionRoutePath},
	PositionsRouteName:      {Method: http.MethodPost, Path: PositionsRoutePath},
	ExecutionsRouteName:     {Method: http.MethodPost, Path: ExecutionsRoutePath},
	ArbExecutionRouteName:   {Method: http.MethodPost, Path: ArbExecutionRoutePath},
	AuctionRouteName:        {Method: http.MethodPost, Path: AuctionRoutePath},
	AuctionsRouteName:       {Method: http.MethodPost, Path: AuctionsRoutePath},
	VCBBalanceRouteName:     {Method: http.MethodPost, Path: VCBBalanceRoutePath},
	SwapRouteName:           {Method: http.MethodPost, Path: SwapRoutePath},
	EventsRouteName:         {Method: http.MethodPost, Path: EventsRoutePath},
	StateRouteName:          {Method: http.MethodGet, Path: StateRoutePath},
	SimulateTradeRouteName:  {Method: http.MethodPost, Path: SimulateTradeRoutePath},
	SubscribeExecutionsName: {Method: http.MethodGet, Path: SubscribeExecutionsPath},
	// admin
	BlockRouteName:         {Method: http.MethodPost, Path: BlockRoutePath},
	ConfigRouteName:        {Method: http.MethodGet, Path: ConfigRoutePath},
	LogsRouteName:          {Method: http.MethodGet, Path: LogsRoutePath},
	ResourceUsageRouteName: {Method: http.MethodGet, Path: ResourceUsageRoutePath},
}

// httpRouteHandlers is a custom type that maps strings to httprouter handle functions
type httpRouteHandlers map[string]httprouter.Handle

// createRouter initializes and returns a new HTTP router with the query route handlers
func createRouter(s *Server) *httprouter.Router {
	return newRouter(httpRouteHandlers{
		VersionRouteName:        s.Version,
		HeightRouteName:         s.Height,
		BatchOutputRouteName:    s.BatchOutput,
		BatchOutputsRouteName:   s.BatchOutputs,
		SpreadRouteName:         s.Spread,
		PositionRouteName:       s.Position,
		PositionsRouteName:      s.Positions,
		ExecutionsRouteName:     s.Executions,
		ArbExecutionRouteName:   s.ArbExecution,
		AuctionRouteName:        s.Auction,
		AuctionsRouteName:       s.Auctions,
		VCBBalanceRouteName:     s.VCBBalance,
		SwapRouteName:           s.Swap,
		EventsRouteName:         s.Events,
		StateRouteName:          s.State,
		SimulateTradeRouteName:  s.SimulateTrade,
		SubscribeExecutionsName: s.executions.Subscribe,
	})
}

// createAdminRouter initializes and returns a new HTTP router with the admin route handlers
func createAdminRouter(s *Server) *httprouter.Router {
	return newRouter(httpRouteHandlers{
		BlockRouteName:         s.ApplyBlock,
		ConfigRouteName:        s.Config,
		LogsRouteName:          logsHandler(s),
		ResourceUsageRouteName: s.ResourceUsage,
	})
}

// newRouter() registers each handler under the method and path of its route name
func newRouter(r httpRouteHandlers) *httprouter.Router {
	router := httprouter.New()
	for name, handler := range r {
		path := routePaths[name]
		router.Handle(path.Method, path.Path, handler)
	}
	return router
}
