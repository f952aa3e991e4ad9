package rpc

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/store"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testChainId = "dex-rpc-test"

var (
	testAssetA = dex.AssetIdFromDenom("upenumbra")
	testAssetB = dex.AssetIdFromDenom("ugm")
)

func TestApplyBlockAndQuery(t *testing.T) {
	s, client := newTestServer(t)
	position := newTestPosition(t, testAssetB, testAssetA, 100)
	id := position.Id()
	// the admin api applies and commits the block
	block, err := client.ApplyBlock(&fsm.Block{Transactions: []*dex.Transaction{newTestTx(t, &dex.PositionOpen{Position: *position})}})
	require.NoError(t, err)
	require.EqualValues(t, 1, block.Version)
	require.Len(t, block.TxResults, 1)
	require.Nil(t, block.TxResults[0].Error)
	require.EqualValues(t, 2, s.sm.Height())
	// the query api reads the committed snapshot
	height, err := client.Height()
	require.NoError(t, err)
	require.EqualValues(t, 1, *height)
	got, err := client.Position(0, id.String())
	require.NoError(t, err)
	require.Equal(t, id, got.Id)
	require.Equal(t, dex.PositionStateOpened, got.State)
	spread, err := client.Spread(0, dex.DirectedTradingPair{Start: testAssetA, End: testAssetB})
	require.NoError(t, err)
	require.NotNil(t, spread.Best)
	require.Equal(t, id, spread.Best.Id)
	require.Equal(t, "1", spread.Price)
	balance, err := client.VCBBalance(0, testAssetB)
	require.NoError(t, err)
	require.Equal(t, lib.NewAmount(100), balance.Amount)
	simulation, err := client.SimulateTrade(0, dex.NewValue(testAssetA, lib.NewAmount(10)), testAssetB, "")
	require.NoError(t, err)
	require.Equal(t, lib.NewAmount(10), simulation.Execution.Output.Amount)
	require.True(t, simulation.Unfilled.Amount.IsZero())
	require.Equal(t, "1", simulation.Price)
	// the simulation left the book untouched
	got, err = client.Position(0, id.String())
	require.NoError(t, err)
	require.Equal(t, position.Reserves, got.Reserves)
	export, err := client.State()
	require.NoError(t, err)
	require.EqualValues(t, 1, export.Height)
	require.Len(t, export.Positions, 1)
}

func TestApplyBlockWrongHeight(t *testing.T) {
	s, client := newTestServer(t)
	_, err := client.ApplyBlock(&fsm.Block{Height: 5})
	require.ErrorIs(t, err, fsm.ErrWrongHeight(5, 1))
	// nothing was committed
	require.EqualValues(t, 1, s.sm.Height())
}

func TestQueryErrors(t *testing.T) {
	s, client := newTestServer(t)
	missing := newTestPosition(t, testAssetB, testAssetA, 100).Id()
	tests := []struct {
		name   string
		detail string
		path   string
		body   string
		error  lib.ErrorI
		class  dex.ErrorClass
	}{
		{
			name:   "malformed id",
			detail: "a position id must be hex encoded",
			path:   PositionRoutePath,
			body:   `{"id":"zz"}`,
			error:  dex.ErrInvalidPositionId(),
			class:  dex.ClassValidation,
		},
		{
			name:   "unknown position",
			detail: "a well formed id that isn't in the book",
			path:   PositionRoutePath,
			body:   `{"id":"` + missing.String() + `"}`,
			error:  dex.ErrPositionNotFound(missing),
			class:  dex.ClassConflict,
		},
		{
			name:   "malformed body",
			detail: "the body must be json",
			path:   SpreadRoutePath,
			body:   `{`,
			error:  ErrInvalidParams(lib.ErrInvalidArgument()),
		},
	}
	handler := s.QueryHandler()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, test.path, strings.NewReader(test.body)))
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := new(clientResponse)
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
			require.Equal(t, testChainId, resp.ChainId)
			require.NotNil(t, resp.Error)
			require.ErrorIs(t, resp.Error, test.error)
			if test.class != "" {
				var class struct {
					Class dex.ErrorClass `json:"class"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &class))
				require.Equal(t, test.class, class.Class)
			}
		})
	}
	// the client surfaces the same error
	_, err := client.Position(0, missing.String())
	require.ErrorIs(t, err, dex.ErrPositionNotFound(missing))
}

func TestSubscribeExecutions(t *testing.T) {
	s, client := newTestServer(t)
	query := httptest.NewServer(s.QueryHandler())
	t.Cleanup(query.Close)
	url := "ws" + strings.TrimPrefix(query.URL, "http") + SubscribeExecutionsPath
	// a subscriber pinned to another chain is refused
	_, resp, err := websocket.DefaultDialer.Dial(url+"?chainId=other", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?chainId="+testChainId, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.executions.Count() == 1 }, time.Second, 10*time.Millisecond)
	// a block with a filled swap is pushed to the subscriber
	pair, e := dex.NewTradingPair(testAssetA, testAssetB)
	require.NoError(t, e)
	_, err = client.ApplyBlock(&fsm.Block{Transactions: []*dex.Transaction{newTestTx(t, &dex.PositionOpen{Position: *newTestPosition(t, testAssetB, testAssetA, 100)})}})
	require.NoError(t, err)
	swap := &dex.Swap{Pair: pair, Commitment: dex.Commitment{0xff, 1}}
	if pair.Asset1 == testAssetA {
		swap.Delta1 = lib.NewAmount(10)
	} else {
		swap.Delta2 = lib.NewAmount(10)
	}
	_, err = client.ApplyBlock(&fsm.Block{Transactions: []*dex.Transaction{newTestTx(t, swap)}})
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var updates []*ExecutionUpdate
	for len(updates) < 2 {
		_, bz, err := conn.ReadMessage()
		require.NoError(t, err)
		update := new(ExecutionUpdate)
		require.NoError(t, json.Unmarshal(bz, update))
		updates = append(updates, update)
	}
	require.Equal(t, testChainId, updates[1].ChainId)
	require.EqualValues(t, 2, updates[1].Height)
	require.Len(t, updates[1].BatchOutputs, 1)
	// closing the manager drops the subscriber
	s.executions.Close()
	require.Eventually(t, func() bool { return s.executions.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSubscriberCap(t *testing.T) {
	s, _ := newTestServer(t)
	s.executions.max = 1
	query := httptest.NewServer(s.QueryHandler())
	t.Cleanup(query.Close)
	url := "ws" + strings.TrimPrefix(query.URL, "http") + SubscribeExecutionsPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.executions.Count() == 1 }, time.Second, 10*time.Millisecond)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSubscriberCapConcurrent(t *testing.T) {
	s, _ := newTestServer(t)
	s.executions.max = 3
	query := httptest.NewServer(s.QueryHandler())
	t.Cleanup(query.Close)
	url := "ws" + strings.TrimPrefix(query.URL, "http") + SubscribeExecutionsPath
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		conns []*websocket.Conn
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}()
	}
	wg.Wait()
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()
	require.NotEmpty(t, conns)
	require.LessOrEqual(t, len(conns), 3)
	require.LessOrEqual(t, s.executions.Count(), 3)
	// an upgrade in progress holds its slot
	s.executions.l.Lock()
	s.executions.pending = 3 - s.executions.Count()
	s.executions.l.Unlock()
	w := httptest.NewRecorder()
	s.executions.Subscribe(w, httptest.NewRequest(http.MethodGet, SubscribeExecutionsPath, nil), nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestClientChainId(t *testing.T) {
	_, client := newTestServer(t)
	_, err := client.Version()
	require.NoError(t, err)
	// a client of another chain rejects the responses
	other := NewClient(client.rpcURL, client.adminURL, "other-chain")
	_, err = other.Version()
	require.ErrorIs(t, err, ErrWrongChainId("other-chain", testChainId))
	_, err = other.Config()
	require.ErrorIs(t, err, ErrWrongChainId("other-chain", testChainId))
}

func TestResourceUsage(t *testing.T) {
	_, client := newTestServer(t)
	usage, err := client.ResourceUsage()
	require.NoError(t, err)
	require.NotZero(t, usage.Process.RSS)
	require.NotZero(t, usage.System.TotalRAM)
}

func TestLogsHandler(t *testing.T) {
	s, _ := newTestServer(t)
	dir := filepath.Join(s.config.DataDirPath, lib.LogDirectory)
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, lib.LogFileName), []byte("first\nsecond"), os.ModePerm))
	w := httptest.NewRecorder()
	s.AdminHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, LogsRoutePath, nil))
	require.Equal(t, http.StatusOK, w.Code)
	// newest line first
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("second\nfirst")))
}

// newTestServer() creates a server over an in memory store and a client of its query and admin handlers
func newTestServer(t *testing.T) (*Server, *Client) {
	t.Helper()
	log := lib.NewNullLogger()
	db, err := store.NewStoreInMemory(log)
	require.NoError(t, err)
	c := lib.DefaultConfig()
	c.ChainId = testChainId
	c.DataDirPath = t.TempDir()
	sm, err := fsm.New(c, db, nil, log)
	require.NoError(t, err)
	s := NewServer(sm, c, log)
	query, admin := httptest.NewServer(s.QueryHandler()), httptest.NewServer(s.AdminHandler())
	t.Cleanup(func() {
		s.executions.Close()
		query.Close()
		admin.Close()
		_ = db.Close()
	})
	return s, NewClient(query.URL, admin.URL, testChainId)
}

// newTestPosition() creates a fee-less 1:1 position selling reserve of sell for buy
func newTestPosition(t *testing.T, sell, buy dex.AssetId, reserve uint64) *dex.Position {
	pair, err := dex.NewTradingPair(sell, buy)
	require.NoError(t, err)
	reserves := dex.Reserves{R2: lib.NewAmount(reserve)}
	if sell == pair.Asset1 {
		reserves = dex.Reserves{R1: lib.NewAmount(reserve)}
	}
	phi, err := dex.NewTradingFunction(pair, 0, lib.NewAmount(1), lib.NewAmount(1))
	require.NoError(t, err)
	return &dex.Position{Phi: phi, Nonce: dex.Nonce{1}, State: dex.PositionStateOpened, Reserves: reserves}
}

// newTestTx() creates a transaction authorizing every action for the test chain
func newTestTx(t *testing.T, actions ...dex.Action) *dex.Transaction {
	tx := &dex.Transaction{Actions: actions}
	for _, a := range actions {
		proof, err := fsm.SignAction(testChainId, a)
		require.NoError(t, err)
		tx.Proofs = append(tx.Proofs, proof)
	}
	return tx
}
