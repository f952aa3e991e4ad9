package store

import (
	"bytes"
	"sort"

	"github.com/canopy-network/canopy-dex/lib"
)

// enforce the TxnI interface
var _ lib.TxnI = &Txn{}

/*
	Txn acts like a database transaction
	It saves set/del operations in memory and allows the caller to Write() to the parent or Discard()
	When read from, it merges with the parent as if Write() had already been called

	Nesting a Txn on top of another Txn is how a single dex transaction, a simulated route or an arbitrage
	probe is applied tentatively and then either kept or thrown away.

	CONTRACT:
	- not thread safe
	- writes made while an iterator is open are not visible to that iterator
	- nil values are supported; deleted values are tracked as tombstones until Write()
*/

type Txn struct {
	parent lib.RStoreI   // store to read through to and Write() into
	ops    map[string]op // [string(key)] -> set/del operations saved in memory
	sorted []string      // ops keys sorted lexicographically; needed for iteration
}

// op or Operation has the value portion of the operation and if it's a *delete* or a *set*
type op struct {
	value  []byte
	delete bool
}

// NewTxn() creates a new instance of a Txn with the specified parent store
func NewTxn(parent lib.RStoreI) *Txn {
	return &Txn{parent: parent, ops: make(map[string]op)}
}

// NewTxn() nests another discardable Txn on top of this one
func (c *Txn) NewTxn() lib.TxnI { return NewTxn(c) }

// Get() retrieves the value for a given key from either the in-memory operations or the parent store
func (c *Txn) Get(key []byte) ([]byte, lib.ErrorI) {
	if v, found := c.ops[string(key)]; found {
		if v.delete {
			return nil, nil
		}
		return v.value, nil
	}
	return c.parent.Get(key)
}

// Set() adds or updates the value for a key in the in-memory operations
func (c *Txn) Set(key, value []byte) lib.ErrorI {
	c.update(string(key), value, false)
	return nil
}

// Delete() marks a key for deletion in the in-memory operations
func (c *Txn) Delete(key []byte) lib.ErrorI {
	c.update(string(key), nil, true)
	return nil
}

// update() modifies or adds an operation for a key while keeping the sorted index current
func (c *Txn) update(key string, v []byte, delete bool) {
	if _, found := c.ops[key]; !found {
		i := sort.SearchStrings(c.sorted, key)
		c.sorted = append(c.sorted, "")
		copy(c.sorted[i+1:], c.sorted[i:])
		c.sorted[i] = key
	}
	c.ops[key] = op{value: v, delete: delete}
}

// Iterator() returns an ascending merged iterator of the in-memory operations and the parent
func (c *Txn) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	parent, err := c.parent.Iterator(prefix)
	if err != nil {
		return nil, err
	}
	return newMergedIterator(parent, c.ops, c.keysWithPrefix(prefix, false), false), nil
}

// RevIterator() returns a descending merged iterator of the in-memory operations and the parent
func (c *Txn) RevIterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	parent, err := c.parent.RevIterator(prefix)
	if err != nil {
		return nil, err
	}
	return newMergedIterator(parent, c.ops, c.keysWithPrefix(prefix, true), true), nil
}

// keysWithPrefix() returns a snapshot of the operation keys under prefix in iteration order
func (c *Txn) keysWithPrefix(prefix []byte, reverse bool) []string {
	start := sort.SearchStrings(c.sorted, string(prefix))
	end := len(c.sorted)
	if e := prefixEnd(prefix); e != nil {
		end = sort.SearchStrings(c.sorted, string(e))
	}
	keys := make([]string, end-start)
	copy(keys, c.sorted[start:end])
	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return keys
}

// Discard() clears all in-memory operations
func (c *Txn) Discard() { c.ops, c.sorted = make(map[string]op), nil }

// Write() flushes the in-memory operations to the parent store in key order and clears them
func (c *Txn) Write() lib.ErrorI {
	parent, ok := c.parent.(lib.WStoreI)
	if !ok {
		return ErrParentNotWritable()
	}
	for _, k := range c.sorted {
		v := c.ops[k]
		if v.delete {
			if err := parent.Delete([]byte(k)); err != nil {
				return err
			}
			continue
		}
		if err := parent.Set([]byte(k), v.value); err != nil {
			return err
		}
	}
	c.Discard()
	return nil
}

// enforce the Iterator interface
var _ lib.IteratorI = &mergedIterator{}

// mergedIterator walks the parent and a snapshot of the in-memory operations in lock step
// on equal keys the operation shadows the parent and tombstones are skipped
type mergedIterator struct {
	parent  lib.IteratorI
	ops     map[string]op
	keys    []string
	pos     int
	reverse bool
	useOp   bool
}

func newMergedIterator(parent lib.IteratorI, ops map[string]op, keys []string, reverse bool) *mergedIterator {
	it := &mergedIterator{parent: parent, ops: ops, keys: keys, reverse: reverse}
	it.settle()
	return it
}

// settle() positions the iterator on the next visible entry
func (m *mergedIterator) settle() {
	for {
		opValid, parentValid := m.pos < len(m.keys), m.parent.Valid()
		if !opValid {
			m.useOp = false
			return
		}
		if parentValid {
			switch m.compare([]byte(m.keys[m.pos]), m.parent.Key()) {
			case 1: // parent comes first
				m.useOp = false
				return
			case 0: // shadowed
				m.parent.Next()
				continue
			}
		}
		if m.ops[m.keys[m.pos]].delete {
			m.pos++
			continue
		}
		m.useOp = true
		return
	}
}

// compare() orders two keys in the direction of travel
func (m *mergedIterator) compare(a, b []byte) int {
	if m.reverse {
		return -bytes.Compare(a, b)
	}
	return bytes.Compare(a, b)
}

func (m *mergedIterator) Valid() bool { return m.useOp || m.parent.Valid() }
func (m *mergedIterator) Close()      { m.parent.Close() }

// Next() advances whichever source the current entry came from
func (m *mergedIterator) Next() {
	if m.useOp {
		m.pos++
	} else {
		m.parent.Next()
	}
	m.settle()
}

// Key() returns the current key
func (m *mergedIterator) Key() []byte {
	if m.useOp {
		return []byte(m.keys[m.pos])
	}
	return m.parent.Key()
}

// Value() returns the current value
func (m *mergedIterator) Value() []byte {
	if m.useOp {
		return m.ops[m.keys[m.pos]].value
	}
	return m.parent.Value()
}
