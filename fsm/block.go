package fsm

import (
	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

// Block is the ordered list of transactions applied at a single height
type Block struct {
	Height       uint64             `json:"height"`
	Transactions []*dex.Transaction `json:"transactions"`
}

// TxResult is the outcome of a single transaction of a block
type TxResult struct {
	Index   int              `json:"index"`
	Height  uint64           `json:"height"`
	TxHash  string           `json:"txHash"`
	Actions []dex.ActionType `json:"actions"`
	Memo    string           `json:"memo,omitempty"`
	Error   *lib.Error       `json:"error,omitempty"` // set if the transaction was rejected
	Class   dex.ErrorClass   `json:"class,omitempty"` // the class of the rejection
}

// Accepted() returns true if the transaction was applied
func (r *TxResult) Accepted() bool { return r.Error == nil }

// BlockResult is everything observable about an applied block
type BlockResult struct {
	Height       uint64                     `json:"height"`
	TxResults    []*TxResult                `json:"txResults"`
	BatchOutputs []*dex.BatchSwapOutputData `json:"batchOutputs"`
	Executions   []*dex.ExecutionRecord     `json:"executions"`
	Arbitrage    *dex.SwapExecution         `json:"arbitrage,omitempty"`
	Events       lib.Events                 `json:"events"`
}

// newTxResult() describes a transaction and its optional rejection
func newTxResult(index int, height uint64, hash string, tx *dex.Transaction, err lib.ErrorI) *TxResult {
	result := &TxResult{Index: index, Height: height, TxHash: hash}
	if tx != nil {
		result.Memo = tx.Memo
		for _, a := range tx.Actions {
			if a != nil {
				result.Actions = append(result.Actions, a.Type())
			}
		}
	}
	if err != nil {
		result.Class = dex.ClassOf(err)
		if e, ok := err.(*lib.Error); ok {
			result.Error = e
		} else {
			result.Error = lib.NewError(err.Code(), err.Module(), err.Error())
		}
	}
	return result
}
