package bptree

import "github.com/Think5UP/bustub-private/common"

// reparent rewrites childID's parent pointer. Safe without re-checking
// latch-crabbing invariants: callers only invoke this on children reached
// through a parent they already hold write-latched, so no concurrent
// mutator can be descending into childID at the same time.
func (t *BPlusTree) reparent(childID, newParent common.PageID) {
	page := t.bpm.FetchPage(childID)
	if page == nil {
		return
	}
	page.Lock()
	h := newHeader(page.Data())
	h.setParentPageID(newParent)
	page.Unlock()
	t.bpm.UnpinPage(childID, true)
}

func containsPageID(ids []common.PageID, target common.PageID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// Insert adds (key, value). Returns false without modifying the tree if
// key is already present.
func (t *BPlusTree) Insert(key Key, value Value) (bool, error) {
	if err := t.validateKey(key); err != nil {
		return false, err
	}

	if t.IsEmpty() {
		if err := t.bootstrapRoot(key, value); err != nil {
			return false, err
		}
	}

	set, err := t.findLeaf(key, opInsert)
	if err == errEmptyTree {
		// Lost a race with a concurrent delete that emptied the tree
		// again; bootstrap once more and retry the descent.
		if err := t.bootstrapRoot(key, value); err != nil {
			return false, err
		}
		set, err = t.findLeaf(key, opInsert)
	}
	if err != nil {
		return false, err
	}

	leafPage := set.pages[len(set.pages)-1]
	leaf := t.asLeaf(leafPage)
	if !leaf.Insert(key, value, t.cmp) {
		set.releaseAll(opInsert, t)
		return false, nil
	}

	if leaf.Size() <= leaf.MaxSize() {
		set.releaseAll(opInsert, t)
		return true, nil
	}

	t.splitLeafAndPropagate(set, leaf)
	return true, nil
}

// bootstrapRoot installs a fresh single-leaf root if the tree is still
// empty once bootstrapMu is held, so the caller can retry its descent
// against a now-nonempty tree.
func (t *BPlusTree) bootstrapRoot(key Key, value Value) error {
	t.bootstrapMu.Lock()
	defer t.bootstrapMu.Unlock()
	if !t.IsEmpty() {
		return nil
	}
	page := t.bpm.NewPage()
	if page == nil {
		return ErrBufferExhausted
	}
	leaf := t.asLeaf(page)
	leaf.Init(page.ID(), common.InvalidPageID, t.leafMaxSize)
	t.bpm.UnpinPage(page.ID(), true)
	t.setRootPageID(page.ID())
	return nil
}

// splitLeafAndPropagate is called once leaf has overflowed by exactly
// one entry. It allocates a sibling, splits, and propagates the new
// separator upward through set's remaining ancestors, splitting internal
// nodes as needed and installing a new root if the split reaches the
// top.
func (t *BPlusTree) splitLeafAndPropagate(set *pageSet, leaf *LeafPage) {
	siblingPage := t.bpm.NewPage()
	sibling := t.asLeaf(siblingPage)
	sibling.Init(siblingPage.ID(), leaf.ParentPageID(), t.leafMaxSize)
	leaf.Split(sibling)

	promotedKey := sibling.KeyAt(0)
	t.propagateSplit(set, leaf.PageID(), promotedKey, sibling.PageID())
}

// propagateSplit is the shared upward-propagation loop used after both a
// leaf split and an internal-node split: given a (left, key, right)
// triple where right is a freshly created, not-yet-attached sibling
// page, attach it to left's parent (inserting if there's room, else
// splitting the parent too and recursing), or install a new root if left
// was the root.
func (t *BPlusTree) propagateSplit(set *pageSet, left common.PageID, key Key, right common.PageID) {
	idx := len(set.pages) - 1
	for {
		if idx == 0 {
			newRootPage := t.bpm.NewPage()
			newRoot := NewInternalPage(newRootPage.Data(), t.keySize)
			newRoot.Init(newRootPage.ID(), common.InvalidPageID, t.internalMaxSize)
			newRoot.InitRootEntries(left, key, right)

			t.reparentDirect(left, newRootPage.ID())
			t.reparentDirect(right, newRootPage.ID())
			t.bpm.UnpinPage(newRootPage.ID(), true)
			t.setRootPageID(newRootPage.ID())

			t.bpm.UnpinPage(right, true)
			set.releaseAll(opInsert, t)
			return
		}

		parentPage := set.pages[idx-1]
		parent := t.asInternal(parentPage)

		if parent.Size() < parent.MaxSize() {
			parent.Insert(key, right, t.cmp)
			t.reparentDirect(right, parent.PageID())
			t.bpm.UnpinPage(right, true)
			set.releaseAll(opInsert, t)
			return
		}

		newSiblingPage := t.bpm.NewPage()
		newSibling := NewInternalPage(newSiblingPage.Data(), t.keySize)
		newSibling.Init(newSiblingPage.ID(), parent.ParentPageID(), t.internalMaxSize)

		promoted, entries := parent.Split(key, right, t.cmp)
		migrated := newSibling.LoadSplitEntries(entries)
		for _, child := range migrated {
			if child == left {
				// left is still write-latched in set; latching it again
				// through reparent would block on our own latch.
				t.reparentDirect(child, newSiblingPage.ID())
			} else {
				t.reparent(child, newSiblingPage.ID())
			}
		}

		if containsPageID(migrated, right) {
			t.reparentDirect(right, newSiblingPage.ID())
		} else {
			t.reparentDirect(right, parent.PageID())
		}
		t.bpm.UnpinPage(right, true)
		t.bpm.UnpinPage(newSiblingPage.ID(), true)

		left, key, right = parent.PageID(), promoted, newSiblingPage.ID()
		idx--
	}
}

// reparentDirect sets newParent on a page this goroutine already
// exclusively owns (freshly allocated and not yet linked into the tree,
// or already write-latched as part of the current page set) — no
// fetch/latch round trip needed.
func (t *BPlusTree) reparentDirect(pageID, newParent common.PageID) {
	page := t.bpm.FetchPage(pageID)
	if page == nil {
		return
	}
	h := newHeader(page.Data())
	h.setParentPageID(newParent)
	t.bpm.UnpinPage(pageID, true)
}
