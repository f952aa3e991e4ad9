package rpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/goccy/go-json"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

const (
	colon = ":"

	SoftwareVersion = "0.1.0-alpha"
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json; charset=utf-8"

	shutdownTimeout = 5 * time.Second
)

// Server represents a dex RPC server: a query API over committed snapshots and an admin API that applies blocks
type Server struct {
	// the writable state machine of the node
	sm *fsm.StateMachine

	// guards the state machine between admin blocks and query snapshots
	mu *sync.RWMutex

	// node configuration
	config lib.Config

	// websocket subscribers of the block executions
	executions *ExecutionsManager

	log lib.LoggerI
}

// NewServer constructs and returns a new dex RPC server
func NewServer(sm *fsm.StateMachine, config lib.Config, log lib.LoggerI) *Server {
	return &Server{
		sm:         sm,
		mu:         &sync.RWMutex{},
		config:     config,
		executions: NewExecutionsManager(config, log),
		log:        log,
	}
}

// Start() serves the query and admin RPC until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	query := &http.Server{Addr: colon + s.config.RPCPort, Handler: s.QueryHandler()}
	admin := &http.Server{Addr: colon + s.config.AdminPort, Handler: s.AdminHandler()}
	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{query, admin} {
		srv := srv
		g.Go(func() error {
			defer lib.CatchPanic(s.log)
			s.log.Infof("Starting RPC server at 0.0.0.0%s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		defer lib.CatchPanic(s.log)
		<-ctx.Done()
		s.executions.Close()
		shutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(query.Shutdown(shutdown), admin.Shutdown(shutdown))
	})
	return g.Wait()
}

// QueryHandler() returns the http handler of the query API
func (s *Server) QueryHandler() http.Handler { return s.handler(createRouter(s)) }

// AdminHandler() returns the http handler of the admin API
func (s *Server) AdminHandler() http.Handler { return s.handler(createAdminRouter(s)) }

// handler() wraps a router with the CORS policy and the request timeout
// the websocket stream is exempt from the timeout as it must hijack the connection
func (s *Server) handler(router *httprouter.Router) http.Handler {
	cor := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions, http.MethodPost},
	})
	timeout := http.TimeoutHandler(router, time.Duration(s.config.TimeoutS)*time.Second, lib.ErrServerTimeout().Error())
	return cor.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == SubscribeExecutionsPath {
			router.ServeHTTP(w, r)
			return
		}
		timeout.ServeHTTP(w, r)
	}))
}

// readOnlyState is a helper function to safely wrap TimeMachine access
func (s *Server) readOnlyState(height uint64, callback func(sm *fsm.StateMachine) lib.ErrorI) lib.ErrorI {
	// only the snapshot creation needs the lock, the snapshot itself is immutable
	s.mu.RLock()
	state, err := s.sm.TimeMachine(height)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	defer func() { _ = state.Close() }()
	return callback(state)
}

// heightParams is a helper function to abstract the common workflow of a query at a committed height
func (s *Server) heightParams(w http.ResponseWriter, r *http.Request, ptr queryWithHeight, callback func(sm *fsm.StateMachine) (any, lib.ErrorI)) {
	if ok := s.unmarshal(w, r, ptr); !ok {
		return
	}
	var (
		height uint64
		result any
	)
	err := s.readOnlyState(ptr.GetHeight(), func(sm *fsm.StateMachine) (e lib.ErrorI) {
		height = sm.LastHeight()
		result, e = callback(sm)
		return
	})
	if err != nil {
		s.writeError(w, err, http.StatusBadRequest)
		return
	}
	s.write(w, height, result, http.StatusOK)
}

// logsHandler writes the dex logfile, newest line first
func logsHandler(s *Server) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		f, _ := os.ReadFile(filepath.Join(s.config.DataDirPath, lib.LogDirectory, lib.LogFileName))
		split := bytes.Split(f, []byte("\n"))
		var flipped []byte
		for i := len(split) - 1; i >= 0; i-- {
			flipped = append(append(flipped, split[i]...), '\n')
		}
		if _, err := w.Write(flipped); err != nil {
			s.log.Error(err.Error())
		}
	}
}

// unmarshal reads the request body and unmarshals it into ptr, an empty body keeps the defaults
func (s *Server) unmarshal(w http.ResponseWriter, r *http.Request, ptr any) bool {
	defer func() { _ = r.Body.Close() }()
	bz, err := io.ReadAll(io.LimitReader(r.Body, s.config.RequestLimit()))
	if err != nil {
		s.writeError(w, lib.ErrReadBody(err), http.StatusBadRequest)
		return false
	}
	if len(bytes.TrimSpace(bz)) == 0 {
		return true
	}
	if err = json.Unmarshal(bz, ptr); err != nil {
		s.writeError(w, ErrInvalidParams(err), http.StatusBadRequest)
		return false
	}
	return true
}

// write marshals a result in the response envelope
func (s *Server) write(w http.ResponseWriter, height uint64, payload any, code int) {
	s.writeJSON(w, response{ChainId: s.config.ChainId, Height: height, Result: payload}, code)
}

// writeError marshals an error and its class in the response envelope
func (s *Server) writeError(w http.ResponseWriter, err lib.ErrorI, code int) {
	e, ok := err.(*lib.Error)
	if !ok {
		e = lib.NewError(err.Code(), err.Module(), err.Error())
	}
	s.writeJSON(w, response{ChainId: s.config.ChainId, Error: e, Class: dex.ClassOf(err)}, code)
}

// writeJSON marshals and indents the payload
func (s *Server) writeJSON(w http.ResponseWriter, payload any, code int) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)
	bz, _ := json.MarshalIndent(payload, "", "  ")
	if _, err := w.Write(bz); err != nil {
		s.log.Error(err.Error())
	}
}
