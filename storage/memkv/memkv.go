// Package memkv implements an ordered in-memory key-value tree with
// cheap copy-on-write checkpoints.
package memkv

import (
	"bytes"

	"github.com/google/btree"
)

const btreeDegree = 32

type item struct {
	key   []byte
	value []byte
}

func (it *item) Less(other btree.Item) bool {
	return bytes.Compare(it.key, other.(*item).key) < 0
}

// Tree is an ordered in-memory key-value tree.
//
// All methods copy keys and values passed to and returned from the tree,
// so callers are free to modify their buffers.
type Tree struct {
	bt *btree.BTree
}

// New creates a new empty tree.
func New() *Tree {
	return &Tree{
		bt: btree.New(btreeDegree),
	}
}

// Get returns the value stored under the given key, or nil if no such
// key exists.
func (t *Tree) Get(key []byte) []byte {
	it := t.bt.Get(&item{key: key})
	if it == nil {
		return nil
	}
	value := it.(*item).value
	return append([]byte{}, value...)
}

// Insert inserts a key/value pair into the tree, replacing any
// previously stored value.
func (t *Tree) Insert(key, value []byte) {
	t.bt.ReplaceOrInsert(&item{
		key:   append([]byte{}, key...),
		value: append([]byte{}, value...),
	})
}

// Remove removes the given key from the tree.  Removing a non-existent
// key is a no-op.
func (t *Tree) Remove(key []byte) {
	t.bt.Delete(&item{key: key})
}

// Checkpoint returns a copy-on-write snapshot of the tree.  The snapshot
// is cheap to take and can later be used to roll the tree back.
func (t *Tree) Checkpoint() *Tree {
	return &Tree{
		bt: t.bt.Clone(),
	}
}

// Rollback replaces the tree's contents with those of the given
// checkpoint.
func (t *Tree) Rollback(cp *Tree) {
	t.bt = cp.bt
}

// NewIterator creates a new iterator positioned over all keys starting
// with the given prefix, in ascending byte order.
func (t *Tree) NewIterator(prefix []byte) *Iterator {
	it := &Iterator{
		tree:   t,
		prefix: append([]byte{}, prefix...),
	}
	it.seek(it.prefix, true)
	return it
}

// Iterator is an in-order iterator over a key prefix.
//
// The iterator operates on the tree as it was when the iterator was
// created; mutating the tree invalidates the iterator.
type Iterator struct {
	tree   *Tree
	prefix []byte

	key   []byte
	value []byte
	valid bool
}

// Valid returns true iff the iterator is positioned over a key.
func (it *Iterator) Valid() bool {
	return it.valid
}

// Key returns the key the iterator is positioned over.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the value the iterator is positioned over.
func (it *Iterator) Value() []byte {
	return it.value
}

// Next advances the iterator to the next key.
func (it *Iterator) Next() {
	if !it.valid {
		return
	}
	it.seek(it.key, false)
}

func (it *Iterator) seek(start []byte, inclusive bool) {
	it.valid = false
	it.tree.bt.AscendGreaterOrEqual(&item{key: start}, func(i btree.Item) bool {
		cur := i.(*item)
		if !inclusive && bytes.Equal(cur.key, start) {
			return true
		}
		if !bytes.HasPrefix(cur.key, it.prefix) {
			return false
		}

		it.key = append([]byte{}, cur.key...)
		it.value = append([]byte{}, cur.value...)
		it.valid = true
		return false
	})
}
