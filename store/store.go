package store

import (
	"math"
	"path/filepath"
	"sync"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/dgraph-io/badger/v4"
)

const (
	maxKeyBytes = 1024 // maximum size of a state key
)

var (
	statePrefix = lib.JoinLenPrefix([]byte("s/")) // prefix designated for the dex state
	versionKey  = lib.JoinLenPrefix([]byte("v/")) // key holding the last committed version

	_ lib.StoreI = &Store{} // enforce the Store interface
)

/*
The Store is a versioned key value store built on a single managed-mode BadgerDB instance.

Every committed height is a badger timestamp: Commit() writes all pending operations of the height in a
single WriteBatch at version+1, so a reader pinned at any committed version observes exactly the state as
of the end of that height. This gives point in time queries (NewReadOnly) for free and guarantees that a
block is either fully persisted or not at all.

Uncommitted writes live in an in-memory Txn layered over the read snapshot of the last committed version.
Callers nest further Txns on top to apply a single transaction or a simulation tentatively.
*/

type Store struct {
	version  uint64       // version of the store (the last committed height)
	db       *badger.DB   // underlying database
	reader   *TxnWrapper  // snapshot of the last committed version
	writer   *Txn         // pending writes of the next version
	log      lib.LoggerI  // logger
	readOnly bool         // historical views can't be committed
	mu       sync.RWMutex // guards the version against concurrent historical views
}

// New() creates a new instance of a Store using the storage configuration
func New(config lib.StoreConfig, log lib.LoggerI) (*Store, lib.ErrorI) {
	blockCache, indexCache, valueLog := config.Sizes()
	opts := badger.DefaultOptions(filepath.Join(config.DataDirPath, config.DBName))
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{log: log}).
		WithBlockCacheSize(blockCache).
		WithIndexCacheSize(indexCache).
		WithValueLogFileSize(valueLog).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.OpenManaged(opts)
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return NewStoreWithDB(db, log)
}

// NewStoreInMemory() returns an empty store backed by an in-memory badger instance
func NewStoreInMemory(log lib.LoggerI) (*Store, lib.ErrorI) {
	db, err := badger.OpenManaged(badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(badgerLogger{log: log}).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return NewStoreWithDB(db, log)
}

// NewStoreWithDB() loads the last committed version of an opened database
func NewStoreWithDB(db *badger.DB, log lib.LoggerI) (*Store, lib.ErrorI) {
	version, err := lastVersion(db)
	if err != nil {
		return nil, err
	}
	reader := NewTxnWrapper(db.NewTransactionAt(version, false), log, statePrefix)
	return &Store{
		version: version,
		db:      db,
		reader:  reader,
		writer:  NewTxn(reader),
		log:     log,
	}, nil
}

// lastVersion() reads the version marker written by the most recent Commit()
func lastVersion(db *badger.DB) (uint64, lib.ErrorI) {
	txn := db.NewTransactionAt(math.MaxUint64, false)
	defer txn.Discard()
	item, err := txn.Get(versionKey)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, ErrStoreGet(err)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return 0, ErrStoreGet(err)
	}
	return lib.BytesToUint64(v), nil
}

// NewReadOnly() returns a view of the state as of a committed version
// writes to the view are buffered in memory and can never be committed
func (s *Store) NewReadOnly(version uint64) (lib.StoreI, lib.ErrorI) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if version > s.version {
		return nil, ErrInvalidVersion(version, s.version)
	}
	reader := NewTxnWrapper(s.db.NewTransactionAt(version, false), s.log, statePrefix)
	return &Store{
		version:  version,
		db:       s.db,
		reader:   reader,
		writer:   NewTxn(reader),
		log:      s.log,
		readOnly: true,
	}, nil
}

// Commit() atomically persists the pending writes as the next version and increments the version
func (s *Store) Commit() (uint64, lib.ErrorI) {
	if s.readOnly {
		return 0, ErrReadOnlyStore()
	}
	next := s.version + 1
	batch := s.db.NewWriteBatchAt(next)
	for _, k := range s.writer.sorted {
		v, key := s.writer.ops[k], prefixed(statePrefix, []byte(k))
		if v.delete {
			if err := batch.Delete(key); err != nil {
				batch.Cancel()
				return 0, ErrStoreDelete(err)
			}
			continue
		}
		if err := batch.Set(key, v.value); err != nil {
			batch.Cancel()
			return 0, ErrStoreSet(err)
		}
	}
	if err := batch.Set(versionKey, lib.Uint64ToBytes(next)); err != nil {
		batch.Cancel()
		return 0, ErrStoreSet(err)
	}
	if err := batch.Flush(); err != nil {
		return 0, ErrFlushBatch(err)
	}
	s.log.Debugf("Committed %d operations at version %d", len(s.writer.sorted), next)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reader.Close()
	s.version = next
	s.reader = NewTxnWrapper(s.db.NewTransactionAt(next, false), s.log, statePrefix)
	s.writer = NewTxn(s.reader)
	return next, nil
}

// Get() returns the value under key including pending writes
func (s *Store) Get(key []byte) ([]byte, lib.ErrorI) { return s.writer.Get(key) }

// Set() buffers a write for the next version
func (s *Store) Set(key, value []byte) lib.ErrorI {
	if len(key) > maxKeyBytes {
		return ErrKeyTooLarge(len(key))
	}
	return s.writer.Set(key, value)
}

// Delete() buffers a delete for the next version
func (s *Store) Delete(key []byte) lib.ErrorI { return s.writer.Delete(key) }

// Iterator() iterates the merged committed and pending state in ascending key order
func (s *Store) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) { return s.writer.Iterator(prefix) }

// RevIterator() iterates the merged committed and pending state in descending key order
func (s *Store) RevIterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return s.writer.RevIterator(prefix)
}

// NewTxn() layers a discardable write buffer over the pending state
func (s *Store) NewTxn() lib.TxnI { return NewTxn(s) }

// Version() returns the last committed version
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Discard() drops every pending write of the next version
func (s *Store) Discard() { s.writer.Discard() }

// Close() releases the snapshot and, for the primary store, the database
func (s *Store) Close() lib.ErrorI {
	s.reader.Close()
	if s.readOnly {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}
