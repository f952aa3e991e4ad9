package rpc

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
)

// defaultClientRetries is the number of retries of a request that failed in transport
const defaultClientRetries = 3

// Client is a thin http client of the dex query and admin APIs
type Client struct {
	rpcURL   string
	adminURL string
	chainId  string
	client   http.Client
	retries  uint64
}

// NewClient() constructs a client of the query and admin endpoints that only accepts responses of chainId
func NewClient(rpcURL, adminURL, chainId string) *Client {
	return &Client{
		rpcURL:   strings.TrimSuffix(rpcURL, "/"),
		adminURL: strings.TrimSuffix(adminURL, "/"),
		chainId:  chainId,
		client:   http.Client{Timeout: 30 * time.Second},
		retries:  defaultClientRetries,
	}
}

func (c *Client) Version() (version *string, err lib.ErrorI) {
	version = new(string)
	err = c.get(VersionRouteName, version)
	return
}

func (c *Client) Height() (p *uint64, err lib.ErrorI) {
	p = new(uint64)
	err = c.post(HeightRouteName, nil, p)
	return
}

func (c *Client) BatchOutput(height uint64, asset1, asset2 dex.AssetId) (p *dex.BatchSwapOutputData, err lib.ErrorI) {
	p = new(dex.BatchSwapOutputData)
	err = c.request(BatchOutputRouteName, pairRequest{blockHeightRequest: blockHeightRequest{height}, Asset1: asset1, Asset2: asset2}, p)
	return
}

func (c *Client) BatchOutputs(height uint64) (p []*dex.BatchSwapOutputData, err lib.ErrorI) {
	err = c.request(BatchOutputsRouteName, blockHeightRequest{height}, &p)
	return
}

func (c *Client) Spread(height uint64, d dex.DirectedTradingPair) (p *spreadResponse, err lib.ErrorI) {
	p = new(spreadResponse)
	err = c.request(SpreadRouteName, directedPairRequest{heightRequest{height}, d}, p)
	return
}

func (c *Client) Position(height uint64, id string) (p *dex.PositionView, err lib.ErrorI) {
	p = new(dex.PositionView)
	err = c.request(PositionRouteName, idRequest{heightRequest{height}, id}, p)
	return
}

func (c *Client) Positions(height uint64, params lib.PageParams, asset1, asset2 *dex.AssetId, state string) (p *lib.Page, err lib.ErrorI) {
	p = new(lib.Page)
	err = c.request(PositionsRouteName, positionsRequest{
		paginatedHeightRequest: paginatedHeightRequest{heightRequest{height}, params},
		Asset1:                 asset1,
		Asset2:                 asset2,
		State:                  state,
	}, p)
	return
}

func (c *Client) Executions(height uint64, params lib.PageParams) (p *lib.Page, err lib.ErrorI) {
	p = new(lib.Page)
	err = c.request(ExecutionsRouteName, executionsRequest{paginatedBlockRequest: paginatedBlockRequest{blockHeightRequest{height}, params}}, p)
	return
}

func (c *Client) ExecutionsRange(startHeight, endHeight uint64) (p *executionsResponse, err lib.ErrorI) {
	p = new(executionsResponse)
	err = c.request(ExecutionsRouteName, executionsRequest{paginatedBlockRequest: paginatedBlockRequest{blockHeightRequest: blockHeightRequest{endHeight}}, StartHeight: startHeight}, p)
	return
}

func (c *Client) ArbExecution(height uint64) (p *dex.SwapExecution, err lib.ErrorI) {
	err = c.request(ArbExecutionRouteName, blockHeightRequest{height}, &p)
	return
}

func (c *Client) Auction(height uint64, id string) (p *dex.AuctionView, err lib.ErrorI) {
	p = new(dex.AuctionView)
	err = c.request(AuctionRouteName, idRequest{heightRequest{height}, id}, p)
	return
}

func (c *Client) Auctions(height uint64, params lib.PageParams) (p *lib.Page, err lib.ErrorI) {
	p = new(lib.Page)
	err = c.request(AuctionsRouteName, paginatedHeightRequest{heightRequest{height}, params}, p)
	return
}

func (c *Client) VCBBalance(height uint64, asset dex.AssetId) (p *dex.Value, err lib.ErrorI) {
	p = new(dex.Value)
	err = c.request(VCBBalanceRouteName, assetRequest{heightRequest{height}, &asset}, p)
	return
}

func (c *Client) VCBBalances(height uint64) (p []dex.Value, err lib.ErrorI) {
	err = c.request(VCBBalanceRouteName, assetRequest{heightRequest: heightRequest{height}}, &p)
	return
}

func (c *Client) Swap(height uint64, commitment dex.Commitment) (p *dex.SwapRecord, err lib.ErrorI) {
	p = new(dex.SwapRecord)
	err = c.request(SwapRouteName, commitmentRequest{heightRequest{height}, commitment}, p)
	return
}

func (c *Client) Events(height uint64, params lib.PageParams) (p *lib.Page, err lib.ErrorI) {
	p = new(lib.Page)
	err = c.request(EventsRouteName, paginatedBlockRequest{blockHeightRequest{height}, params}, p)
	return
}

func (c *Client) State() (p *fsm.StateExport, err lib.ErrorI) {
	p = new(fsm.StateExport)
	err = c.get(StateRouteName, p)
	return
}

func (c *Client) SimulateTrade(height uint64, input dex.Value, target dex.AssetId, routing string) (p *simulateResponse, err lib.ErrorI) {
	p = new(simulateResponse)
	err = c.request(SimulateTradeRouteName, simulateRequest{heightRequest{height}, input, target, routing}, p)
	return
}

// ApplyBlock() submits a block to the admin API, a zero height extends the last committed block
func (c *Client) ApplyBlock(block *fsm.Block) (p *blockResponse, err lib.ErrorI) {
	p = new(blockResponse)
	bz, err := lib.MarshalJSON(block)
	if err != nil {
		return nil, err
	}
	err = c.post(BlockRouteName, bz, p, true)
	return
}

func (c *Client) Config() (p *lib.Config, err lib.ErrorI) {
	p = new(lib.Config)
	err = c.get(ConfigRouteName, p, true)
	return
}

func (c *Client) ResourceUsage() (p *lib.ResourceUsage, err lib.ErrorI) {
	p = new(lib.ResourceUsage)
	err = c.get(ResourceUsageRouteName, p, true)
	return
}

// request() marshals the request object and posts it to a route
func (c *Client) request(routeName string, req any, ptr any) lib.ErrorI {
	bz, err := lib.MarshalJSON(req)
	if err != nil {
		return err
	}
	return c.post(routeName, bz, ptr)
}

func (c *Client) url(routeName string, admin ...bool) string {
	if len(admin) == 1 && admin[0] {
		return c.adminURL + routePaths[routeName].Path
	}
	return c.rpcURL + routePaths[routeName].Path
}

func (c *Client) post(routeName string, json []byte, ptr any, admin ...bool) lib.ErrorI {
	return c.do(ptr, func() (*http.Response, lib.ErrorI) {
		resp, err := c.client.Post(c.url(routeName, admin...), ApplicationJSON, bytes.NewBuffer(json))
		if err != nil {
			return nil, lib.ErrPostRequest(err)
		}
		return resp, nil
	})
}

func (c *Client) get(routeName string, ptr any, admin ...bool) lib.ErrorI {
	return c.do(ptr, func() (*http.Response, lib.ErrorI) {
		resp, err := c.client.Get(c.url(routeName, admin...))
		if err != nil {
			return nil, lib.ErrGetRequest(err)
		}
		return resp, nil
	})
}

// do() retries a request that failed in transport, a reply from the server is final
func (c *Client) do(ptr any, send func() (*http.Response, lib.ErrorI)) (err lib.ErrorI) {
	operation := func() error {
		resp, e := send()
		if e != nil {
			err = e
			return e
		}
		err = c.unmarshal(resp, ptr)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	_ = backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries))
	return
}

// unmarshal() decodes the response envelope into ptr or returns the error it carries
func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	defer func() { _ = resp.Body.Close() }()
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return lib.ErrReadBody(err)
	}
	envelope := new(clientResponse)
	if e := json.Unmarshal(bz, envelope); e != nil {
		if resp.StatusCode != http.StatusOK {
			return lib.ErrHttpStatus(resp.Status, resp.StatusCode, bz)
		}
		return lib.ErrJSONUnmarshal(e)
	}
	if envelope.ChainId != c.chainId {
		return ErrWrongChainId(c.chainId, envelope.ChainId)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if resp.StatusCode != http.StatusOK {
		return lib.ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	if len(envelope.Result) == 0 || ptr == nil {
		return nil
	}
	return lib.UnmarshalJSON(envelope.Result, ptr)
}

// clientResponse is the response envelope with a deferred result
type clientResponse struct {
	ChainId string          `json:"chainId"`
	Height  uint64          `json:"height"`
	Result  json.RawMessage `json:"result"`
	Error   *lib.Error      `json:"error"`
}
