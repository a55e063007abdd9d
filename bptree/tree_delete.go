package bptree

import (
	"github.com/Think5UP/bustub-private/buffer"
	"github.com/Think5UP/bustub-private/common"
)

// siblingInfo locates a page's sibling through its parent, preferring
// the left sibling and falling back to the right only when the page is
// its parent's first child.
type siblingInfo struct {
	id           common.PageID
	separatorKey Key
	isLeft       bool
	siblingIndex int
	childIndex   int
}

func (t *BPlusTree) findSibling(parent *InternalPage, childID common.PageID) siblingInfo {
	i := parent.ChildIndex(childID)
	if i-1 >= 0 {
		return siblingInfo{id: parent.ValueAt(i - 1), separatorKey: parent.KeyAt(i), isLeft: true, siblingIndex: i - 1, childIndex: i}
	}
	return siblingInfo{id: parent.ValueAt(i + 1), separatorKey: parent.KeyAt(i + 1), isLeft: false, siblingIndex: i + 1, childIndex: i}
}

// Remove deletes key if present; no-op (no error) if absent.
func (t *BPlusTree) Remove(key Key) error {
	if err := t.validateKey(key); err != nil {
		return err
	}
	if t.IsEmpty() {
		return nil
	}
	set, err := t.findLeaf(key, opDelete)
	if err == errEmptyTree {
		return nil
	}
	if err != nil {
		return err
	}

	leafPage := set.pages[len(set.pages)-1]
	leaf := t.asLeaf(leafPage)
	if !leaf.Delete(key, t.cmp) {
		set.releaseAll(opDelete, t)
		return nil
	}

	t.deleteEntryPropagate(set)
	return nil
}

// deleteEntryPropagate ascends set's page chain from the leaf that just
// lost an entry, merging or redistributing at every underflowing node.
func (t *BPlusTree) deleteEntryPropagate(set *pageSet) {
	idx := len(set.pages) - 1

	for {
		cur := set.pages[idx]
		isRoot := cur.ID() == t.getRootPageID()
		leaf := t.isLeaf(cur)

		if isRoot {
			if leaf {
				if t.asLeaf(cur).Size() == 0 {
					set.pages = set.pages[:idx]
					cur.Unlock()
					t.bpm.UnpinPage(cur.ID(), false)
					t.bpm.DeletePage(cur.ID())
					t.setRootPageID(common.InvalidPageID)
				}
			} else if t.asInternal(cur).Size() == 1 {
				onlyChild := t.asInternal(cur).ValueAt(0)
				set.pages = set.pages[:idx]
				cur.Unlock()
				t.bpm.UnpinPage(cur.ID(), false)
				t.bpm.DeletePage(cur.ID())
				t.reparent(onlyChild, common.InvalidPageID)
				t.setRootPageID(onlyChild)
			}
			set.releaseAll(opDelete, t)
			return
		}

		var size, minSize int
		if leaf {
			l := t.asLeaf(cur)
			size, minSize = l.Size(), l.GetMinSize()
		} else {
			n := t.asInternal(cur)
			size, minSize = n.Size(), n.GetMinSize()
		}
		if size >= minSize {
			set.releaseAll(opDelete, t)
			return
		}

		parentPage := set.pages[idx-1]
		parent := t.asInternal(parentPage)
		sib := t.findSibling(parent, cur.ID())

		siblingPage := t.bpm.FetchPage(sib.id)
		siblingPage.Lock()

		var siblingSize, maxSize int
		if leaf {
			siblingSize, maxSize = t.asLeaf(siblingPage).Size(), t.asLeaf(cur).MaxSize()
		} else {
			siblingSize, maxSize = t.asInternal(siblingPage).Size(), t.asInternal(cur).MaxSize()
		}

		if size+siblingSize <= maxSize {
			t.mergeSiblings(leaf, cur, siblingPage, sib, parent)
			set.pages = set.pages[:idx]
			idx--
			continue
		}

		t.redistributeSiblings(leaf, cur, siblingPage, sib, parent)
		siblingPage.Unlock()
		t.bpm.UnpinPage(sib.id, true)
		set.releaseAll(opDelete, t)
		return
	}
}

// mergeSiblings merges cur and its sibling into whichever of the pair is
// left-hand, deletes the now-empty right-hand page, and removes the
// separator from parent. Neither curPage nor siblingPage remains
// latched or pinned on return; the caller continues deleteEntryPropagate
// at parent next.
func (t *BPlusTree) mergeSiblings(leaf bool, curPage, siblingPage *buffer.Page, sib siblingInfo, parent *InternalPage) {
	var survivor, deleted *buffer.Page
	if sib.isLeft {
		survivor, deleted = siblingPage, curPage
	} else {
		survivor, deleted = curPage, siblingPage
	}

	if leaf {
		if sib.isLeft {
			t.asLeaf(siblingPage).Merge(t.asLeaf(curPage))
		} else {
			t.asLeaf(curPage).Merge(t.asLeaf(siblingPage))
		}
	} else {
		var migrated []common.PageID
		if sib.isLeft {
			migrated = t.asInternal(siblingPage).Merge(sib.separatorKey, t.asInternal(curPage))
		} else {
			migrated = t.asInternal(curPage).Merge(sib.separatorKey, t.asInternal(siblingPage))
		}
		for _, child := range migrated {
			t.reparent(child, survivor.ID())
		}
	}

	parent.Delete(sib.separatorKey, t.cmp)

	deleted.Unlock()
	t.bpm.UnpinPage(deleted.ID(), false)
	t.bpm.DeletePage(deleted.ID())

	survivor.Unlock()
	t.bpm.UnpinPage(survivor.ID(), true)
}

// redistributeSiblings moves exactly one entry across the cur/sibling
// boundary (rightmost of a left sibling, or leftmost of a right sibling)
// and rewrites the parent's separator accordingly.
func (t *BPlusTree) redistributeSiblings(leaf bool, curPage, siblingPage *buffer.Page, sib siblingInfo, parent *InternalPage) {
	if leaf {
		curLeaf := t.asLeaf(curPage)
		sibLeaf := t.asLeaf(siblingPage)
		if sib.isLeft {
			last := sibLeaf.Size() - 1
			k, v := sibLeaf.KeyAt(last), sibLeaf.ValueAt(last)
			sibLeaf.DeleteLast()
			curLeaf.InsertFirst(k, v)
			parent.SetKeyAt(sib.childIndex, curLeaf.KeyAt(0))
		} else {
			k, v := sibLeaf.KeyAt(0), sibLeaf.ValueAt(0)
			sibLeaf.DeleteFirst()
			curLeaf.InsertLast(k, v)
			parent.SetKeyAt(sib.siblingIndex, sibLeaf.KeyAt(0))
		}
		return
	}

	curInternal := t.asInternal(curPage)
	sibInternal := t.asInternal(siblingPage)
	if sib.isLeft {
		last := sibInternal.Size() - 1
		movedKey := sibInternal.KeyAt(last)
		movedChild := sibInternal.ValueAt(last)
		sibInternal.DeleteLast()
		curInternal.InsertFirst(sib.separatorKey, movedChild)
		t.reparent(movedChild, curInternal.PageID())
		parent.SetKeyAt(sib.childIndex, movedKey)
	} else {
		movedChild := sibInternal.ValueAt(0)
		newSiblingFirstKey := sibInternal.KeyAt(1)
		sibInternal.DeleteFirst()
		curInternal.InsertLast(sib.separatorKey, movedChild)
		t.reparent(movedChild, curInternal.PageID())
		parent.SetKeyAt(sib.siblingIndex, newSiblingFirstKey)
	}
}
