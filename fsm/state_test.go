package fsm

import (
	"testing"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/store"
	"github.com/stretchr/testify/require"
)

var (
	testAssetA = dex.AssetIdFromDenom("upenumbra")
	testAssetB = dex.AssetIdFromDenom("ugm")
	testAssetC = dex.AssetIdFromDenom("ugn")
)

func TestApplyBlockHeight(t *testing.T) {
	sm := newTestStateMachine(t)
	require.EqualValues(t, 1, sm.Height())
	tests := []struct {
		name   string
		detail string
		block  *Block
		error  lib.ErrorI
	}{
		{name: "nil block", detail: "a block is required", block: nil, error: ErrBlockNotStarted()},
		{name: "behind", detail: "the block must extend the last committed height", block: &Block{Height: 0}, error: ErrWrongHeight(0, 1)},
		{name: "ahead", detail: "heights can't be skipped", block: &Block{Height: 2}, error: ErrWrongHeight(2, 1)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := sm.ApplyBlock(test.block)
			require.ErrorIs(t, err, test.error)
		})
	}
	// an empty block at the right height commits
	result := applyTestBlock(t, sm)
	require.EqualValues(t, 1, result.Height)
	require.EqualValues(t, 2, sm.Height())
	require.EqualValues(t, 1, sm.LastHeight())
}

func TestApplyBlockBatchExample(t *testing.T) {
	sm := newTestStateMachine(t)
	pair := newTestPair(t, testAssetA, testAssetB)
	// a 1:1 fee-less position selling 100 of asset 2
	position := newTestPosition(t, pair.Asset2, pair.Asset1, 1, 1, 0, 100, 1)
	id := position.Id()
	requireAccepted(t, applyTestBlock(t, sm, newTestTx(t, sm, &dex.PositionOpen{Position: *position})))
	// swap 50 of asset 1 and try to claim in the same block
	swap := newTestSwap(pair, dex.NewValue(pair.Asset1, lib.NewAmount(50)), 1)
	claim := &dex.SwapClaim{Commitment: swap.Commitment}
	result := applyTestBlock(t, sm, newTestTx(t, sm, swap), newTestTx(t, sm, claim))
	require.True(t, result.TxResults[0].Accepted())
	require.False(t, result.TxResults[1].Accepted())
	require.Equal(t, dex.ClassConflict, result.TxResults[1].Class)
	require.ErrorIs(t, result.TxResults[1].Error, dex.ErrSwapNotYetExecuted())
	require.Len(t, result.BatchOutputs, 1)
	bsod := result.BatchOutputs[0]
	require.Equal(t, lib.NewAmount(50), bsod.Delta1)
	require.Equal(t, lib.NewAmount(50), bsod.Lambda2)
	require.True(t, bsod.Unfilled1.IsZero())
	require.True(t, bsod.Lambda1.IsZero())
	require.EqualValues(t, 2, bsod.Height)
	// the position absorbed the input and paid the output
	got, err := sm.GetPosition(id)
	require.NoError(t, err)
	require.Equal(t, dex.Reserves{R1: lib.NewAmount(50), R2: lib.NewAmount(50)}, got.Reserves)
	// the execution is stored by height and direction
	d, err := pair.Directed(pair.Asset1)
	require.NoError(t, err)
	record, err := sm.GetExecution(2, d)
	require.NoError(t, err)
	require.Len(t, record.Execution.Traces, 1)
	// claim in the next block
	result = applyTestBlock(t, sm, newTestTx(t, sm, claim))
	requireAccepted(t, result)
	stored, err := sm.GetSwap(swap.Commitment)
	require.NoError(t, err)
	require.True(t, stored.Claimed)
	// the ledger holds exactly the position reserves
	for _, expected := range []dex.Value{dex.NewValue(pair.Asset1, lib.NewAmount(50)), dex.NewValue(pair.Asset2, lib.NewAmount(50))} {
		balance, e := sm.VCBBalance(expected.Asset)
		require.NoError(t, e)
		require.Equal(t, expected.Amount, balance)
	}
	// a swap is claimed once
	result = applyTestBlock(t, sm, newTestTx(t, sm, claim, &dex.PositionClose{PositionId: id}))
	require.ErrorIs(t, result.TxResults[0].Error, dex.ErrSwapAlreadyClaimed())
	// the swap and its claim output are in the commitment tree
	count, err := sm.Get(KeyForCommitmentCount())
	require.NoError(t, err)
	require.EqualValues(t, 2, lib.BytesToUint64(count))
}

func TestApplyTransactionAtomic(t *testing.T) {
	sm := newTestStateMachine(t)
	position := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 1)
	missing := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 2)
	tx := newTestTx(t, sm, &dex.PositionOpen{Position: *position}, &dex.PositionClose{PositionId: missing.Id()})
	result := applyTestBlock(t, sm, tx)
	require.Len(t, result.TxResults, 1)
	require.False(t, result.TxResults[0].Accepted())
	require.Equal(t, dex.ClassConflict, result.TxResults[0].Class)
	require.Equal(t, []dex.ActionType{dex.ActionTypePositionOpen, dex.ActionTypePositionClose}, result.TxResults[0].Actions)
	// nothing of the rejected transaction survived
	_, err := sm.GetPosition(position.Id())
	require.ErrorIs(t, err, dex.ErrPositionNotFound(position.Id()))
	balances, err := sm.VCBBalances()
	require.NoError(t, err)
	require.Empty(t, balances)
	for _, e := range result.Events {
		require.NotEqual(t, lib.EventTypePositionOpen, e.Type)
	}
}

func TestCheckTx(t *testing.T) {
	sm := newTestStateMachine(t)
	position := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 1)
	open := &dex.PositionOpen{Position: *position}
	wrongChain, err := SignAction("other-chain", open)
	require.NoError(t, err)
	tests := []struct {
		name   string
		detail string
		tx     *dex.Transaction
		error  lib.ErrorI
		class  dex.ErrorClass
	}{
		{
			name:   "empty",
			detail: "a transaction needs at least one action",
			tx:     &dex.Transaction{},
			error:  ErrEmptyTransaction(),
			class:  dex.ClassValidation,
		},
		{
			name:   "missing proof",
			detail: "every action needs a proof",
			tx:     &dex.Transaction{Actions: []dex.Action{open}},
			error:  dex.ErrInvalidAction(),
			class:  dex.ClassValidation,
		},
		{
			name:   "wrong chain",
			detail: "a proof is bound to the chain id",
			tx:     &dex.Transaction{Actions: []dex.Action{open}, Proofs: []lib.HexBytes{wrongChain}},
			error:  dex.ErrInvalidProof(),
			class:  dex.ClassValidation,
		},
		{
			name:   "invalid action",
			detail: "a closed position can't be opened",
			tx: newTestTx(t, sm, &dex.PositionOpen{Position: func() dex.Position {
				p := *position
				p.State = dex.PositionStateClosed
				return p
			}()}),
			error: dex.ErrInvalidPositionState(),
			class: dex.ClassValidation,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			hash, err := test.tx.Hash()
			require.NoError(t, err)
			require.ErrorIs(t, sm.CheckTx(test.tx, hash), test.error)
			require.Equal(t, test.class, dex.ClassOf(test.error))
		})
	}
}

func TestDuplicateTransactions(t *testing.T) {
	sm := newTestStateMachine(t)
	position := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 1)
	tx := newTestTx(t, sm, &dex.PositionOpen{Position: *position})
	// the same transaction twice in a block
	result := applyTestBlock(t, sm, tx, tx)
	require.True(t, result.TxResults[0].Accepted())
	require.Equal(t, dex.ClassConflict, result.TxResults[1].Class)
	hash, err := tx.Hash()
	require.NoError(t, err)
	require.ErrorIs(t, result.TxResults[1].Error, ErrDuplicateTx(hash))
	// the same transaction in a later block
	result = applyTestBlock(t, sm, tx)
	require.ErrorIs(t, result.TxResults[0].Error, ErrDuplicateTx(hash))
	// a different transaction opening the same position conflicts on the id
	other := newTestTx(t, sm, &dex.PositionOpen{Position: *position})
	other.Memo = "again"
	result = applyTestBlock(t, sm, other)
	require.ErrorIs(t, result.TxResults[0].Error, dex.ErrDuplicatePosition(position.Id()))
	require.Equal(t, dex.ClassConflict, result.TxResults[0].Class)
}

func TestMalformedTransactionsFailAlone(t *testing.T) {
	sm := newTestStateMachine(t)
	position := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 1)
	nilAction := &dex.Transaction{Actions: []dex.Action{nil}, Proofs: []lib.HexBytes{{1}}}
	// a null transaction and a null action reject only themselves
	result := applyTestBlock(t, sm, nil, newTestTx(t, sm, &dex.PositionOpen{Position: *position}), nilAction)
	require.Len(t, result.TxResults, 3)
	require.ErrorIs(t, result.TxResults[0].Error, ErrEmptyTransaction())
	require.Equal(t, dex.ClassValidation, result.TxResults[0].Class)
	require.True(t, result.TxResults[1].Accepted())
	require.False(t, result.TxResults[2].Accepted())
	got, err := sm.GetPosition(position.Id())
	require.NoError(t, err)
	require.Equal(t, dex.PositionStateOpened, got.State)
}

func TestCustodyViolationDiscardsBlock(t *testing.T) {
	sm := newTestStateMachine(t)
	// a position written without crediting the circuit breaker
	position := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 1)
	require.NoError(t, sm.SetPosition(position))
	_, err := sm.ApplyBlock(&Block{Height: sm.Height()})
	require.Error(t, err)
	require.Equal(t, dex.ClassInvariant, dex.ClassOf(err))
	// the whole block was discarded
	_, err = sm.GetPosition(position.Id())
	require.ErrorIs(t, err, dex.ErrPositionNotFound(position.Id()))
	require.EqualValues(t, 1, sm.Height())
	// the next attempt at the same height succeeds
	applyTestBlock(t, sm)
}

func TestReplayDeterminism(t *testing.T) {
	a, b := newTestStateMachine(t), newTestStateMachine(t)
	for _, sm := range []*StateMachine{a, b} {
		for _, block := range newTestBlocks(t, sm) {
			block.Height = sm.Height()
			result, err := sm.ApplyBlock(block)
			require.NoError(t, err)
			_, err = sm.Commit()
			require.NoError(t, err)
			requireAccepted(t, result)
		}
	}
	require.Equal(t, dumpStore(t, a), dumpStore(t, b))
	for height := uint64(1); height <= a.LastHeight(); height++ {
		expected, err := a.GetBatchOutputs(height)
		require.NoError(t, err)
		got, err := b.GetBatchOutputs(height)
		require.NoError(t, err)
		require.Equal(t, expected, got)
	}
	rootA, err := a.CommitmentRoot()
	require.NoError(t, err)
	rootB, err := b.CommitmentRoot()
	require.NoError(t, err)
	require.Equal(t, rootA, rootB)
}

func TestTimeMachine(t *testing.T) {
	sm := newTestStateMachine(t)
	position := newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 100, 1)
	applyTestBlock(t, sm)
	applyTestBlock(t, sm, newTestTx(t, sm, &dex.PositionOpen{Position: *position}))
	applyTestBlock(t, sm, newTestTx(t, sm, &dex.PositionClose{PositionId: position.Id()}))
	tests := []struct {
		name   string
		detail string
		height uint64
		found  bool
		state  dex.PositionState
	}{
		{name: "before open", detail: "the position doesn't exist yet", height: 1},
		{name: "opened", detail: "the position is open at the height it was opened", height: 2, found: true, state: dex.PositionStateOpened},
		{name: "closed", detail: "the latest height sees the close", height: 3, found: true, state: dex.PositionStateClosed},
		{name: "zero", detail: "zero means the latest height", height: 0, found: true, state: dex.PositionStateClosed},
		{name: "future", detail: "heights above the latest fall back to the latest", height: 10, found: true, state: dex.PositionStateClosed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			view, err := sm.TimeMachine(test.height)
			require.NoError(t, err)
			defer view.Close()
			p, err := view.GetPosition(position.Id())
			if !test.found {
				require.ErrorIs(t, err, dex.ErrPositionNotFound(position.Id()))
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.state, p.State)
		})
	}
}

func TestAtomicAndSimulate(t *testing.T) {
	sm := newTestStateMachine(t)
	key, value := []byte("key"), []byte("value")
	// a failing function leaves nothing behind
	err := sm.Atomic(func() lib.ErrorI {
		require.NoError(t, sm.Set(key, value))
		return dex.ErrInvalidSwap()
	})
	require.ErrorIs(t, err, dex.ErrInvalidSwap())
	got, err := sm.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
	// a simulation never writes
	require.NoError(t, sm.Simulate(func() lib.ErrorI { return sm.Set(key, value) }))
	got, err = sm.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
	// a successful atomic function writes
	require.NoError(t, sm.Atomic(func() lib.ErrorI { return sm.Set(key, value) }))
	got, err = sm.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

// newTestStateMachine() creates a state machine over an in memory store with three routing candidates
func newTestStateMachine(t *testing.T) *StateMachine {
	t.Helper()
	log := lib.NewNullLogger()
	db, err := store.NewStoreInMemory(log)
	require.NoError(t, err)
	c := lib.DefaultConfig()
	c.ChainId = "dex-test"
	c.RoutingCandidates = []lib.HexBytes{testAssetA.Bytes(), testAssetB.Bytes(), testAssetC.Bytes()}
	sm, err := New(c, db, nil, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sm
}

// newTestPair() returns the canonical pair of two assets
func newTestPair(t *testing.T, a, b dex.AssetId) dex.TradingPair {
	pair, err := dex.NewTradingPair(a, b)
	require.NoError(t, err)
	return pair
}

// newTestPosition() creates an opened position holding reserve of sell, paying num/den sell per unit of buy
func newTestPosition(t *testing.T, sell, buy dex.AssetId, num, den uint64, fee uint32, reserve uint64, nonce byte) *dex.Position {
	pair := newTestPair(t, sell, buy)
	// selling asset 1 pays p/q of asset 2, selling asset 2 pays q/p of asset 1
	p, q, reserves := lib.NewAmount(num), lib.NewAmount(den), dex.Reserves{R2: lib.NewAmount(reserve)}
	if sell == pair.Asset1 {
		p, q, reserves = q, p, dex.Reserves{R1: lib.NewAmount(reserve)}
	}
	phi, err := dex.NewTradingFunction(pair, fee, p, q)
	require.NoError(t, err)
	return &dex.Position{Phi: phi, Nonce: dex.Nonce{nonce}, State: dex.PositionStateOpened, Reserves: reserves}
}

// newTestSwap() creates a swap of a single input on a pair
func newTestSwap(pair dex.TradingPair, input dex.Value, seed byte) *dex.Swap {
	swap := &dex.Swap{Pair: pair, Commitment: dex.Commitment{0xff, seed}}
	if input.Asset == pair.Asset1 {
		swap.Delta1 = input.Amount
	} else {
		swap.Delta2 = input.Amount
	}
	return swap
}

// newTestTx() creates a transaction authorizing every action for the chain of the state machine
func newTestTx(t *testing.T, sm *StateMachine, actions ...dex.Action) *dex.Transaction {
	tx := &dex.Transaction{Actions: actions}
	for _, a := range actions {
		proof, err := SignAction(sm.Config.ChainId, a)
		require.NoError(t, err)
		tx.Proofs = append(tx.Proofs, proof)
	}
	return tx
}

// applyTestBlock() applies and commits a block of transactions at the current height
func applyTestBlock(t *testing.T, sm *StateMachine, txs ...*dex.Transaction) *BlockResult {
	t.Helper()
	result, err := sm.ApplyBlock(&Block{Height: sm.Height(), Transactions: txs})
	require.NoError(t, err)
	_, err = sm.Commit()
	require.NoError(t, err)
	return result
}

// requireAccepted() fails the test if any transaction of the block was rejected
func requireAccepted(t *testing.T, result *BlockResult) {
	t.Helper()
	for _, r := range result.TxResults {
		require.Truef(t, r.Accepted(), "tx %d rejected: %v", r.Index, r.Error)
	}
}

// newTestBlocks() builds a sequence of blocks touching every subsystem
func newTestBlocks(t *testing.T, sm *StateMachine) []*Block {
	ab, bc := newTestPair(t, testAssetA, testAssetB), newTestPair(t, testAssetB, testAssetC)
	positions := []*dex.Position{
		newTestPosition(t, testAssetB, testAssetA, 1, 1, 30, 1_000, 1),
		newTestPosition(t, testAssetA, testAssetB, 1, 1, 30, 1_000, 2),
		newTestPosition(t, testAssetC, testAssetB, 2, 1, 10, 5_000, 3),
		newTestPosition(t, testAssetB, testAssetC, 1, 3, 50, 700, 4),
	}
	var opens []*dex.Transaction
	for _, p := range positions {
		opens = append(opens, newTestTx(t, sm, &dex.PositionOpen{Position: *p}))
	}
	auction := &dex.DutchAuctionSchedule{Description: dex.DutchAuctionDescription{
		Input:       dex.NewValue(testAssetC, lib.NewAmount(300)),
		OutputId:    testAssetA,
		MaxOutput:   lib.NewAmount(600),
		MinOutput:   lib.NewAmount(150),
		StartHeight: 2,
		EndHeight:   6,
		StepCount:   2,
	}}
	swaps := []*dex.Swap{
		newTestSwap(ab, dex.NewValue(testAssetA, lib.NewAmount(120)), 1),
		newTestSwap(ab, dex.NewValue(testAssetB, lib.NewAmount(80)), 2),
		newTestSwap(bc, dex.NewValue(testAssetB, lib.NewAmount(333)), 3),
	}
	var swapTxs, claimTxs []*dex.Transaction
	for _, s := range swaps {
		swapTxs = append(swapTxs, newTestTx(t, sm, s))
		claimTxs = append(claimTxs, newTestTx(t, sm, &dex.SwapClaim{Commitment: s.Commitment}))
	}
	return []*Block{
		{Transactions: append(opens, newTestTx(t, sm, auction))},
		{Transactions: swapTxs},
		{Transactions: claimTxs},
		{Transactions: []*dex.Transaction{newTestTx(t, sm, &dex.PositionClose{PositionId: positions[0].Id()})}},
		{Transactions: []*dex.Transaction{newTestTx(t, sm, &dex.PositionWithdraw{PositionId: positions[0].Id()})}},
		{},
	}
}

// dumpStore() returns every committed key value pair of the state machine
func dumpStore(t *testing.T, sm *StateMachine) (kvs [][2]string) {
	it, err := sm.Iterator(nil)
	require.NoError(t, err)
	defer it.Close()
	for ; it.Valid(); it.Next() {
		kvs = append(kvs, [2]string{string(it.Key()), string(it.Value())})
	}
	return
}
