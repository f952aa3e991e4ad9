package store

import (
	"bytes"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/dgraph-io/badger/v4"
)

// RStoreI interface enforcement
var _ lib.RStoreI = &TxnWrapper{}

// TxnWrapper is a read only view over a badgerDB Txn pinned at a single committed version
// every key is transparently namespaced under prefix
type TxnWrapper struct {
	logger lib.LoggerI
	db     *badger.Txn
	prefix []byte
}

// NewTxnWrapper() creates a new TxnWrapper with the provided params
func NewTxnWrapper(db *badger.Txn, logger lib.LoggerI, prefix []byte) *TxnWrapper {
	return &TxnWrapper{
		logger: logger,
		db:     db,
		prefix: prefix,
	}
}

// Get() retrieves the value associated with the key, nil if not found
func (t *TxnWrapper) Get(k []byte) ([]byte, lib.ErrorI) {
	item, err := t.db.Get(prefixed(t.prefix, k))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, ErrStoreGet(err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return val, nil
}

// Iterator() creates a new ascending iterator for the given prefix
func (t *TxnWrapper) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	full := prefixed(t.prefix, prefix)
	parent := t.db.NewIterator(badger.IteratorOptions{
		Prefix:         full,
		PrefetchValues: true,
		PrefetchSize:   100,
	})
	parent.Seek(full)
	return &Iterator{logger: t.logger, parent: parent, prefix: full, trim: len(t.prefix)}, nil
}

// RevIterator() creates a new descending iterator for the given prefix
func (t *TxnWrapper) RevIterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	full := prefixed(t.prefix, prefix)
	// the Prefix option is not used so the seek may land on the exact end key and step back from it
	parent := t.db.NewIterator(badger.IteratorOptions{
		Reverse:        true,
		PrefetchValues: true,
		PrefetchSize:   100,
	})
	if end := prefixEnd(full); end == nil {
		parent.Rewind()
	} else {
		parent.Seek(end)
		if parent.Valid() && !bytes.HasPrefix(parent.Item().Key(), full) {
			parent.Next()
		}
	}
	return &Iterator{logger: t.logger, parent: parent, prefix: full, trim: len(t.prefix)}, nil
}

// Close() discards the underlying read transaction
func (t *TxnWrapper) Close() { t.db.Discard() }

// IteratorI interface enforcement
var _ lib.IteratorI = &Iterator{}

// Iterator wraps a badgerDB iterator, bounding it to a prefix and stripping the namespace from keys
type Iterator struct {
	logger lib.LoggerI
	parent *badger.Iterator
	prefix []byte
	trim   int
}

func (i *Iterator) Valid() bool { return i.parent.ValidForPrefix(i.prefix) }
func (i *Iterator) Next()       { i.parent.Next() }
func (i *Iterator) Close()      { i.parent.Close() }

// Key() returns a copy of the current key without the store namespace
func (i *Iterator) Key() []byte {
	return i.parent.Item().KeyCopy(nil)[i.trim:]
}

// Value() returns a copy of the current value
func (i *Iterator) Value() []byte {
	v, err := i.parent.Item().ValueCopy(nil)
	if err != nil {
		i.logger.Error(ErrStoreGet(err).Error())
	}
	return v
}

// badgerLogger adapts the node logger to the badgerDB logging interface
type badgerLogger struct {
	log lib.LoggerI
}

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.log.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.log.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.log.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.log.Debugf(format, args...) }
