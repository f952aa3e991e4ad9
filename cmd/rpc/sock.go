package rpc

import (
	"net/http"
	"sync"
	"time"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

/* This file implements the websocket stream of the batch outputs and routed executions of every applied block */

const chainIdParamName = "chainId"

const (
	subscriberReadLimitBytes = int64(4 * 1024)
	subscriberWriteTimeout   = 10 * time.Second
	subscriberPongWait       = 60 * time.Second
	subscriberPingPeriod     = 50 * time.Second
	defaultMaxSubscribers    = 256
)

// ExecutionUpdate is the message pushed to every subscriber after a block is committed
type ExecutionUpdate struct {
	ChainId      string                     `json:"chainId"`
	Height       uint64                     `json:"height"`
	BatchOutputs []*dex.BatchSwapOutputData `json:"batchOutputs"`
	Executions   []*dex.ExecutionRecord     `json:"executions"`
	Arbitrage    *dex.SwapExecution         `json:"arbitrage,omitempty"`
}

// ExecutionsManager handles the group of execution stream subscribers
type ExecutionsManager struct {
	chainId     string                            // the chain id echoed in every update
	subscribers map[*ExecutionSubscriber]struct{} // the connected subscribers
	max         int                               // the maximum number of subscribers
	pending     int                               // slots held by upgrades in progress
	closed      bool                              // no new subscribers after close
	l           sync.Mutex                        // thread safety
	upgrader    websocket.Upgrader                // upgrade http connection to ws
	log         lib.LoggerI                       // stdout log
}

// ExecutionSubscriber is a single websocket client of the execution stream
type ExecutionSubscriber struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	stop    sync.Once
	manager *ExecutionsManager
}

// NewExecutionsManager() constructs a new instance of an ExecutionsManager
func NewExecutionsManager(config lib.Config, log lib.LoggerI) *ExecutionsManager {
	limit := config.MaxSubscribers
	if limit <= 0 {
		limit = defaultMaxSubscribers
	}
	return &ExecutionsManager{
		chainId:     config.ChainId,
		subscribers: make(map[*ExecutionSubscriber]struct{}),
		max:         limit,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:         log,
	}
}

// Subscribe upgrades the connection and adds the client to the stream
func (m *ExecutionsManager) Subscribe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// a client may pin the chain it expects
	if chainId := r.URL.Query().Get(chainIdParamName); chainId != "" && chainId != m.chainId {
		http.Error(w, ErrWrongChainId(m.chainId, chainId).Error(), http.StatusBadRequest)
		return
	}
	// hold a slot for the duration of the upgrade
	m.l.Lock()
	full := m.closed || len(m.subscribers)+m.pending >= m.max
	if !full {
		m.pending++
	}
	m.l.Unlock()
	if full {
		http.Error(w, ErrSubscriberCap(m.max).Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := m.upgrader.Upgrade(w, r, nil)
	m.l.Lock()
	m.pending--
	closed := m.closed
	subscriber := &ExecutionSubscriber{conn: conn, manager: m}
	if err == nil && !closed {
		m.subscribers[subscriber] = struct{}{}
	}
	m.l.Unlock()
	if err != nil {
		m.log.Errorf("Execution subscriber upgrade failed with err: %s", err.Error())
		return
	}
	if closed {
		_ = conn.Close()
		return
	}
	m.log.Infof("New execution subscriber %s", r.RemoteAddr)
	go subscriber.readLoop()
	go subscriber.pingLoop()
}

// Publish() writes the execution update of a committed block to each subscriber
func (m *ExecutionsManager) Publish(result *fsm.BlockResult) {
	if result == nil {
		return
	}
	bz, err := json.Marshal(&ExecutionUpdate{
		ChainId:      m.chainId,
		Height:       result.Height,
		BatchOutputs: result.BatchOutputs,
		Executions:   result.Executions,
		Arbitrage:    result.Arbitrage,
	})
	if err != nil {
		m.log.Error(err.Error())
		return
	}
	for _, subscriber := range m.list() {
		if e := subscriber.write(websocket.TextMessage, bz); e != nil {
			subscriber.Stop(e)
		}
	}
}

// Count() returns the number of connected subscribers
func (m *ExecutionsManager) Count() int {
	m.l.Lock()
	defer m.l.Unlock()
	return len(m.subscribers)
}

// Close() disconnects every subscriber and refuses new ones
func (m *ExecutionsManager) Close() {
	m.l.Lock()
	m.closed = true
	m.l.Unlock()
	for _, subscriber := range m.list() {
		subscriber.Stop(nil)
	}
}

// list() copies the subscribers under lock
func (m *ExecutionsManager) list() (list []*ExecutionSubscriber) {
	m.l.Lock()
	defer m.l.Unlock()
	for subscriber := range m.subscribers {
		list = append(list, subscriber)
	}
	return
}

// remove() drops a subscriber from the stream
func (m *ExecutionsManager) remove(subscriber *ExecutionSubscriber) {
	m.l.Lock()
	defer m.l.Unlock()
	delete(m.subscribers, subscriber)
}

// readLoop() discards inbound messages and keeps the read deadline alive with pongs
func (s *ExecutionSubscriber) readLoop() {
	defer lib.CatchPanic(s.manager.log)
	s.conn.SetReadLimit(subscriberReadLimitBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(subscriberPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(subscriberPongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.Stop(err)
			return
		}
	}
}

// pingLoop() pings the client until the subscriber stops
func (s *ExecutionSubscriber) pingLoop() {
	defer lib.CatchPanic(s.manager.log)
	ticker := time.NewTicker(subscriberPingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := s.write(websocket.PingMessage, nil); err != nil {
			s.Stop(err)
			return
		}
	}
}

// write() writes a single message with a deadline
func (s *ExecutionSubscriber) write(messageType int, bz []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(subscriberWriteTimeout))
	return s.conn.WriteMessage(messageType, bz)
}

// Stop() closes the connection and removes the subscriber
func (s *ExecutionSubscriber) Stop(err error) {
	s.stop.Do(func() {
		if err != nil {
			s.manager.log.Debugf("Execution subscriber stopped with err: %s", err.Error())
		}
		s.manager.remove(s)
		_ = s.conn.Close()
	})
}
