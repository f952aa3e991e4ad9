package rpc

import (
	"net/http"

	"github.com/canopy-network/canopy-dex/fsm"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/julienschmidt/httprouter"
)

// ApplyBlock applies a block of transactions on top of the last committed height and commits it
func (s *Server) ApplyBlock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	block := new(fsm.Block)
	if ok := s.unmarshal(w, r, block); !ok {
		return
	}
	s.mu.Lock()
	// an unset height extends the last committed block
	if block.Height == 0 {
		block.Height = s.sm.Height()
	}
	result, err := s.sm.ApplyBlock(block)
	if err != nil {
		s.mu.Unlock()
		s.writeError(w, err, http.StatusBadRequest)
		return
	}
	version, err := s.sm.Commit()
	if err != nil {
		s.sm.Discard()
		s.mu.Unlock()
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.mu.Unlock()
	s.log.Infof("Committed block %d with %d txs and %d executions", result.Height, len(result.TxResults), len(result.Executions))
	s.executions.Publish(result)
	s.write(w, version, &blockResponse{BlockResult: result, Version: version}, http.StatusOK)
}

// Config responds with the node configuration
func (s *Server) Config(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.write(w, 0, s.config, http.StatusOK)
}

// ResourceUsage responds with a sample of the node process and its host
func (s *Server) ResourceUsage(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	usage, err := lib.NewResourceUsage(s.config.DataDirPath)
	if err != nil {
		s.writeError(w, err, http.StatusInternalServerError)
		return
	}
	s.write(w, 0, usage, http.StatusOK)
}
