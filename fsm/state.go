package fsm

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/canopy-network/canopy-dex/dex"
	"github.com/canopy-network/canopy-dex/lib"
)

// StateMachine the core protocol component responsible for maintaining and updating the state of the dex as it progresses
// it owns the liquidity positions, the batch swap records and outputs, the dutch auctions and the value circuit breaker
type StateMachine struct {
	store lib.RWStoreI

	height   uint64             // the height of the block being applied, one above the last committed version
	Config   lib.Config         // protocol constants and node options
	events   *lib.EventsTracker // the observable state changes of the current block
	verifier ProofVerifierI     // authorizes the actions of a transaction
	tree     CommitmentTreeI    // receives the commitments of swaps and swap claim outputs
	Metrics  *lib.Metrics       // telemetry
	log      lib.LoggerI
}

// New() creates a new instance of a StateMachine
func New(c lib.Config, store lib.StoreI, metrics *lib.Metrics, log lib.LoggerI) (*StateMachine, lib.ErrorI) {
	sm := &StateMachine{
		store:    nil,
		Config:   c,
		events:   new(lib.EventsTracker),
		verifier: BindingVerifier{},
		tree:     StateCommitmentTree{},
		Metrics:  metrics,
		log:      log,
	}
	return sm, sm.Initialize(store)
}

// Initialize() initializes a StateMachine object using the StoreI
func (s *StateMachine) Initialize(db lib.StoreI) lib.ErrorI {
	if db == nil {
		return ErrWrongStoreType()
	}
	s.height, s.store = db.Version()+1, db
	s.events.Height = s.height
	return nil
}

// SetProofVerifier() replaces the authorization of transaction actions
func (s *StateMachine) SetProofVerifier(v ProofVerifierI) { s.verifier = v }

// SetCommitmentTree() replaces the sink of swap and claim commitments
func (s *StateMachine) SetCommitmentTree(t CommitmentTreeI) { s.tree = t }

// ApplyBlock processes a given block, updating the state machine's state accordingly
// The function:
// - executes `BeginBlock`
// - applies all transactions within the block, a rejected transaction leaves no trace in the state
// - executes `EndBlock` which clears the batches, runs the arbitrage and checks the circuit breaker
// - persists the events of the block and returns the result
// NOTE: the result is not committed, on error every pending write of the block is discarded
func (s *StateMachine) ApplyBlock(b *Block) (result *BlockResult, err lib.ErrorI) {
	start := time.Now()
	// catch incase there's a panic
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf(string(debug.Stack()))
			// handle the panic and set the error
			err = lib.ErrPanic()
		}
		if err != nil {
			s.Discard()
		}
	}()
	if b == nil {
		return nil, ErrBlockNotStarted()
	}
	// a block must extend the last committed height
	if b.Height != s.height {
		return nil, ErrWrongHeight(b.Height, s.height)
	}
	// automated execution at the 'beginning of a block'
	if err = s.BeginBlock(); err != nil {
		return nil, err
	}
	// apply all Transactions in the block
	txResults, err := s.ApplyTransactions(b)
	if err != nil {
		return nil, err
	}
	// automated execution at the 'ending of a block'
	outputs, executions, arb, err := s.EndBlock()
	if err != nil {
		return nil, err
	}
	// persist the events so they may be queried by height
	events := s.events.Reset()
	if err = s.saveEvents(events); err != nil {
		return nil, err
	}
	s.Metrics.UpdateBlockMetrics(s.height, len(b.Transactions), time.Since(start))
	return &BlockResult{
		Height:       s.height,
		TxResults:    txResults,
		BatchOutputs: outputs,
		Executions:   executions,
		Arbitrage:    arb,
		Events:       events,
	}, nil
}

// ApplyTransactions() applies each transaction of the block in order, rejecting duplicates
func (s *StateMachine) ApplyTransactions(b *Block) (results []*TxResult, err lib.ErrorI) {
	// use a deduplicator to check the block transactions for replays
	deDupe := lib.NewDeDuplicator[string]()
	for index, tx := range b.Transactions {
		if tx == nil {
			results = append(results, s.rejectTx(index, "", nil, ErrEmptyTransaction()))
			continue
		}
		// calculate the hex string of the hash of the transaction
		hash, e := tx.Hash()
		if e != nil {
			results = append(results, s.rejectTx(index, "", tx, e))
			continue
		}
		// check if it's a duplicate within the block
		if deDupe.Found(hash) {
			results = append(results, s.rejectTx(index, hash, tx, ErrDuplicateTx(hash)))
			continue
		}
		results = append(results, s.ApplyTransaction(index, tx, hash))
	}
	return
}

// Commit() persists the pending state as the applied height and moves to the next
func (s *StateMachine) Commit() (uint64, lib.ErrorI) {
	store, ok := s.store.(lib.StoreI)
	if !ok {
		return 0, ErrWrongStoreType()
	}
	version, err := store.Commit()
	if err != nil {
		return 0, err
	}
	s.height = version + 1
	s.events.Height = s.height
	return version, nil
}

// Discard() drops every pending write of the current block
func (s *StateMachine) Discard() {
	s.events.Reset()
	if store, ok := s.store.(lib.StoreI); ok {
		store.Discard()
	}
}

// TimeMachine() creates a new StateMachine instance representing the dex state at the end of a committed height
// allowing for a read-only view of the past state
func (s *StateMachine) TimeMachine(height uint64) (*StateMachine, lib.ErrorI) {
	store, ok := s.store.(lib.StoreI)
	if !ok {
		return nil, ErrWrongStoreType()
	}
	latest := store.Version()
	if height == 0 || height > latest {
		height = latest
	}
	heightStore, err := store.NewReadOnly(height)
	if err != nil {
		return nil, lib.ErrTimeMachine(err)
	}
	sm, err := New(s.Config, heightStore, nil, s.log)
	if err != nil {
		return nil, err
	}
	sm.verifier, sm.tree = s.verifier, s.tree
	return sm, nil
}

// Atomic() runs fn against a nested buffer of the current store, keeping its writes and events only if fn succeeds
func (s *StateMachine) Atomic(fn func() lib.ErrorI) (err lib.ErrorI) {
	return s.nested(fn, false)
}

// Simulate() runs fn against a nested buffer of the current store and always discards its writes and events
func (s *StateMachine) Simulate(fn func() lib.ErrorI) (err lib.ErrorI) {
	return s.nested(fn, true)
}

// nested() layers a discardable buffer over the store for the duration of fn
func (s *StateMachine) nested(fn func() lib.ErrorI, discard bool) (err lib.ErrorI) {
	parent := s.store
	nester, ok := parent.(interface{ NewTxn() lib.TxnI })
	if !ok {
		return ErrWrongStoreType()
	}
	txn, mark := nester.NewTxn(), s.events.Mark()
	s.store = txn
	defer func() {
		s.store = parent
		if err != nil || discard {
			txn.Discard()
			s.events.Truncate(mark)
			return
		}
		err = txn.Write()
	}()
	return fn()
}

// Height() returns the height of the block being applied
func (s *StateMachine) Height() uint64 { return s.height }

// LastHeight() returns the last committed height
func (s *StateMachine) LastHeight() uint64 { return s.height - 1 }

// Store() returns the store under the state machine
func (s *StateMachine) Store() lib.RWStoreI { return s.store }

// Close() closes the underlying store
func (s *StateMachine) Close() lib.ErrorI {
	if store, ok := s.store.(lib.StoreI); ok {
		return store.Close()
	}
	return nil
}

// Set() upserts a key-value pair under a key
func (s *StateMachine) Set(k, v []byte) lib.ErrorI { return s.store.Set(k, v) }

// Get() retrieves a key-value pair under a key
// NOTE: returns (nil, nil) if no value is found for that key
func (s *StateMachine) Get(key []byte) ([]byte, lib.ErrorI) { return s.store.Get(key) }

// Delete() deletes a key-value pair under a key
func (s *StateMachine) Delete(key []byte) lib.ErrorI { return s.store.Delete(key) }

// Iterator() creates and returns an iterator for the state machine's underlying store
// starting at the specified key and iterating lexicographically
func (s *StateMachine) Iterator(key []byte) (lib.IteratorI, lib.ErrorI) { return s.store.Iterator(key) }

// RevIterator() creates and returns an iterator for the state machine's underlying store
// starting at the end-prefix of the specified key and iterating reverse lexicographically
func (s *StateMachine) RevIterator(key []byte) (lib.IteratorI, lib.ErrorI) {
	return s.store.RevIterator(key)
}

// IterateAndExecute() creates an iterator and executes a callback function for each key-value pair
// NOTE: the callback must not write to the store being iterated
func (s *StateMachine) IterateAndExecute(prefix []byte, callback func(key, value []byte) lib.ErrorI) lib.ErrorI {
	it, err := s.Iterator(prefix)
	if err != nil {
		return err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err = callback(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return nil
}

// getObject() loads and decodes the object under a key, returning false if it doesn't exist
func (s *StateMachine) getObject(key []byte, ptr interface {
	UnmarshalBinary([]byte) error
}) (found bool, err lib.ErrorI) {
	bz, err := s.Get(key)
	if err != nil || bz == nil {
		return false, err
	}
	return true, lib.Unmarshal(bz, ptr)
}

// setObject() encodes and stores the object under a key
func (s *StateMachine) setObject(key []byte, obj interface{ MarshalBinary() ([]byte, error) }) lib.ErrorI {
	bz, err := lib.Marshal(obj)
	if err != nil {
		return err
	}
	return s.Set(key, bz)
}

// getAmount() loads an amount balance, missing keys are zero
func (s *StateMachine) getAmount(key []byte) (lib.Amount, lib.ErrorI) {
	bz, err := s.Get(key)
	if err != nil {
		return lib.Amount{}, err
	}
	return lib.AmountFromBytes(bz)
}

// setAmount() stores an amount balance, deleting the key when it reaches zero
func (s *StateMachine) setAmount(key []byte, amount lib.Amount) lib.ErrorI {
	if amount.IsZero() {
		return s.Delete(key)
	}
	return s.Set(key, amount.Bytes())
}

// addEvent() records an observable state change under the current reference
func (s *StateMachine) addEvent(eventType lib.EventType, msg any) {
	s.events.Add(eventType, msg)
}

// describe() renders a value for logs
func describe(v dex.Value) string { return fmt.Sprintf("%s %s", v.Amount, lib.BytesToTruncatedString(v.Asset.Bytes())) }
