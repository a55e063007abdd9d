package bptree

import (
	"github.com/Think5UP/bustub-private/buffer"
	"github.com/Think5UP/bustub-private/common"
)

// Iterator is an ordered cursor over a leaf chain. It pins and read-
// latches at most one leaf at a time; advancing across a leaf boundary
// latches the next leaf before releasing the current one (coupling).
type Iterator struct {
	tree  *BPlusTree
	page  *buffer.Page
	leaf  *LeafPage
	index int
	ended bool
}

// Begin returns an iterator positioned at the first key of the tree's
// leftmost leaf. On an empty tree it equals End().
func (t *BPlusTree) Begin() *Iterator {
	rootID := t.getRootPageID()
	if rootID == common.InvalidPageID {
		return t.End()
	}
	page := t.bpm.FetchPage(rootID)
	if page == nil {
		return t.End()
	}
	page.RLock()
	for !t.isLeaf(page) {
		internal := t.asInternal(page)
		childID := internal.ValueAt(0)
		child := t.bpm.FetchPage(childID)
		if child == nil {
			page.RUnlock()
			t.bpm.UnpinPage(page.ID(), false)
			return t.End()
		}
		child.RLock()
		page.RUnlock()
		t.bpm.UnpinPage(page.ID(), false)
		page = child
	}
	return &Iterator{tree: t, page: page, leaf: t.asLeaf(page), index: 0}
}

// BeginAt returns an iterator positioned at key, or at the first key
// greater than key if key is absent.
func (t *BPlusTree) BeginAt(key Key) (*Iterator, error) {
	if err := t.validateKey(key); err != nil {
		return nil, err
	}
	set, err := t.findLeaf(key, opRead)
	if err == errEmptyTree {
		return t.End(), nil
	}
	if err != nil {
		return nil, err
	}
	page := set.pages[len(set.pages)-1]
	leaf := t.asLeaf(page)
	index := leaf.KeyIndex(key, t.cmp)
	it := &Iterator{tree: t, page: page, leaf: leaf, index: index}
	it.skipToNextLeafIfExhausted()
	return it, nil
}

// End returns the past-the-last-leaf sentinel.
func (t *BPlusTree) End() *Iterator {
	return &Iterator{tree: t, ended: true}
}

// Valid reports whether the iterator currently references a live entry.
func (it *Iterator) Valid() bool { return !it.ended }

// Key returns the current entry's key. Valid must be true.
func (it *Iterator) Key() Key { return it.leaf.KeyAt(it.index) }

// Value returns the current entry's record id. Valid must be true.
func (it *Iterator) Value() Value { return it.leaf.ValueAt(it.index) }

// Next advances to the following entry, coupling across leaf boundaries.
func (it *Iterator) Next() {
	if it.ended {
		return
	}
	it.index++
	it.skipToNextLeafIfExhausted()
}

func (it *Iterator) skipToNextLeafIfExhausted() {
	for !it.ended && it.index >= it.leaf.Size() {
		nextID := it.leaf.NextPageID()
		if nextID == common.InvalidPageID {
			it.page.RUnlock()
			it.tree.bpm.UnpinPage(it.page.ID(), false)
			it.ended = true
			it.page = nil
			it.leaf = nil
			return
		}

		// Couple latches across the leaf boundary: acquire the next
		// leaf's read latch before releasing the current one, so a
		// concurrent delete can never merge/deallocate nextID in the
		// gap between them.
		next := it.tree.bpm.FetchPage(nextID)
		if next == nil {
			it.page.RUnlock()
			it.tree.bpm.UnpinPage(it.page.ID(), false)
			it.ended = true
			it.page = nil
			it.leaf = nil
			return
		}
		next.RLock()

		it.page.RUnlock()
		it.tree.bpm.UnpinPage(it.page.ID(), false)

		it.page = next
		it.leaf = it.tree.asLeaf(next)
		it.index = 0
	}
}

// Close releases the iterator's currently held leaf, if any. Safe to
// call multiple times or on an already-ended iterator.
func (it *Iterator) Close() {
	if it.ended || it.page == nil {
		return
	}
	it.page.RUnlock()
	it.tree.bpm.UnpinPage(it.page.ID(), false)
	it.ended = true
	it.page = nil
	it.leaf = nil
}
