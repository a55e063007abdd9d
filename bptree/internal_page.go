package bptree

import (
	"encoding/binary"

	"github.com/Think5UP/bustub-private/common"
)

// internalEntrySize is the on-disk size of one (key, child-page-id) pair.
func internalEntrySize(keySize int) int { return keySize + 4 }

const internalEntriesOffset = headerSize

// MaxInternalSize returns the largest internal max-size that physically
// fits a page of keySize-byte keys. Unlike a leaf, Insert is only ever
// called while size < MaxSize() (the caller splits before the node can
// overflow) and Split works over an off-buffer scratch slice, so an
// internal page never needs more than MaxSize() entries of room.
func MaxInternalSize(keySize int) int {
	return (common.PageSize - internalEntriesOffset) / internalEntrySize(keySize)
}

// InternalPage views a page's raw bytes as a B+-tree internal node: a
// header followed by a packed (key, child-page-id) array where entry 0's
// key is unused (the "n+1 children / n keys" convention).
type InternalPage struct {
	header
	buf     []byte
	keySize int
}

// NewInternalPage wraps buf as an internal node view using keySize-byte
// keys.
func NewInternalPage(buf []byte, keySize int) *InternalPage {
	return &InternalPage{header: newHeader(buf), buf: buf, keySize: keySize}
}

// Init formats buf as a brand-new, empty internal page.
func (n *InternalPage) Init(pageID, parentID common.PageID, maxSize int) {
	n.setPageType(InternalPageType)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setParentPageID(parentID)
	n.setPageID(pageID)
}

func (n *InternalPage) entryOffset(i int) int {
	return internalEntriesOffset + i*internalEntrySize(n.keySize)
}

// KeyAt returns the separator key at slot i. Slot 0's key is semantically
// unused.
func (n *InternalPage) KeyAt(i int) Key {
	off := n.entryOffset(i)
	return cloneKey(Key(n.buf[off : off+n.keySize]))
}

// SetKeyAt overwrites the separator key at slot i.
func (n *InternalPage) SetKeyAt(i int, key Key) {
	off := n.entryOffset(i)
	copy(n.buf[off:off+n.keySize], key)
}

// ValueAt returns the child page id at slot i.
func (n *InternalPage) ValueAt(i int) common.PageID {
	off := n.entryOffset(i) + n.keySize
	return common.PageID(binary.LittleEndian.Uint32(n.buf[off:]))
}

// SetValueAt overwrites the child page id at slot i.
func (n *InternalPage) SetValueAt(i int, child common.PageID) {
	off := n.entryOffset(i) + n.keySize
	binary.LittleEndian.PutUint32(n.buf[off:], uint32(child))
}

func (n *InternalPage) setEntryAt(i int, key Key, child common.PageID) {
	n.SetKeyAt(i, key)
	n.SetValueAt(i, child)
}

// GetMinSize returns the minimum live entry count for a non-root
// internal node: ceil(max/2).
func (n *InternalPage) GetMinSize() int {
	max := n.maxSize()
	return (max + 1) / 2
}

// KeyIndex returns the first slot in [1, size) whose key is >= target, a
// lower bound used to locate a separator for deletion.
func (n *InternalPage) KeyIndex(target Key, cmp Comparator) int {
	lo, hi := 1, n.size()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.KeyAt(mid), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the child whose subtree may hold key: the last c_i with
// k_i <= key, or c_0 when key < k_1.
func (n *InternalPage) Lookup(key Key, cmp Comparator) common.PageID {
	lo, hi := 1, n.size()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.KeyAt(mid), key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return n.ValueAt(lo - 1)
}

// ChildIndex returns the slot holding child, or -1 if absent.
func (n *InternalPage) ChildIndex(child common.PageID) int {
	for i := 0; i < n.size(); i++ {
		if n.ValueAt(i) == child {
			return i
		}
	}
	return -1
}

// Insert places a new (key, child) separator pair in sorted position
// among slots [1, size). Assumes the caller has verified there is room.
func (n *InternalPage) Insert(key Key, child common.PageID, cmp Comparator) {
	i := n.KeyIndex(key, cmp)
	sz := n.size()
	for j := sz; j > i; j-- {
		n.setEntryAt(j, n.KeyAt(j-1), n.ValueAt(j-1))
	}
	n.setEntryAt(i, key, child)
	n.setSize(sz + 1)
}

// InsertFirst prepends a new child at slot 0, pushing the previous slot
// 0 (and its unused key) and all following entries right by one, and
// installing key as the new slot-1 separator. Used for adopting the
// rightmost child of a left sibling during redistribution.
func (n *InternalPage) InsertFirst(key Key, child common.PageID) {
	sz := n.size()
	for j := sz; j > 0; j-- {
		n.setEntryAt(j, n.KeyAt(j-1), n.ValueAt(j-1))
	}
	n.SetValueAt(0, child)
	n.SetKeyAt(1, key)
	n.setSize(sz + 1)
}

// InsertLast appends a new (key, child) pair as the new last entry, for
// the O(1) fast path of adopting the leftmost child of a right sibling
// during redistribution.
func (n *InternalPage) InsertLast(key Key, child common.PageID) {
	n.setEntryAt(n.size(), key, child)
	n.setSize(n.size() + 1)
}

// DeleteFirst removes slot 0 (promoting slot 1's child into slot 0,
// discarding its now-unused separator key) and shifts the remainder
// left by one.
func (n *InternalPage) DeleteFirst() {
	sz := n.size()
	for i := 1; i < sz; i++ {
		n.setEntryAt(i-1, n.KeyAt(i), n.ValueAt(i))
	}
	n.setSize(sz - 1)
}

// DeleteLast removes the last entry.
func (n *InternalPage) DeleteLast() {
	n.setSize(n.size() - 1)
}

// Delete removes the entry whose separator key exactly matches key.
// Returns false if no such entry exists.
func (n *InternalPage) Delete(key Key, cmp Comparator) bool {
	i := n.KeyIndex(key, cmp)
	if i >= n.size() || cmp(n.KeyAt(i), key) != 0 {
		return false
	}
	sz := n.size()
	for j := i; j < sz-1; j++ {
		n.setEntryAt(j, n.KeyAt(j+1), n.ValueAt(j+1))
	}
	n.setSize(sz - 1)
	return true
}

// splitEntry pairs a separator key with the child it precedes, used as
// the padded scratch array Split works over.
type splitEntry struct {
	key   Key
	child common.PageID
}

// Split inserts (insertKey, insertChild) into a conceptual copy of this
// full node's entries, keeps the lower half in self, and returns the
// promoted separator key plus the entries that belong in a new right
// sibling. The caller (the tree) is responsible for writing those
// entries into the sibling page and reparenting any migrated children,
// since node-level code has no buffer-pool access of its own.
func (n *InternalPage) Split(insertKey Key, insertChild common.PageID, cmp Comparator) (promoted Key, siblingEntries []splitEntry) {
	sz := n.size()
	temp := make([]splitEntry, 0, sz+1)
	temp = append(temp, splitEntry{child: n.ValueAt(0)})
	inserted := false
	for i := 1; i < sz; i++ {
		k, c := n.KeyAt(i), n.ValueAt(i)
		if !inserted && cmp(k, insertKey) > 0 {
			temp = append(temp, splitEntry{key: insertKey, child: insertChild})
			inserted = true
		}
		temp = append(temp, splitEntry{key: k, child: c})
	}
	if !inserted {
		temp = append(temp, splitEntry{key: insertKey, child: insertChild})
	}

	mid := (len(temp) + 1) / 2
	for i := 0; i < mid; i++ {
		n.setEntryAt(i, temp[i].key, temp[i].child)
	}
	n.setSize(mid)

	promoted = temp[mid].key
	siblingEntries = append(siblingEntries, splitEntry{child: temp[mid].child})
	siblingEntries = append(siblingEntries, temp[mid+1:]...)
	return promoted, siblingEntries
}

// LoadSplitEntries installs entries produced by a sibling's Split call
// into this freshly initialized node and returns the child ids it now
// owns, for the caller to reparent.
func (n *InternalPage) LoadSplitEntries(entries []splitEntry) []common.PageID {
	children := make([]common.PageID, len(entries))
	for i, e := range entries {
		n.setEntryAt(i, e.key, e.child)
		children[i] = e.child
	}
	n.setSize(len(entries))
	return children
}

// Merge appends separatorKey paired with right's first child, then all
// of right's remaining entries, onto the end of self. Returns the child
// ids that migrated from right, for the caller to reparent.
func (n *InternalPage) Merge(separatorKey Key, right *InternalPage) []common.PageID {
	base := n.size()
	n.setEntryAt(base, separatorKey, right.ValueAt(0))
	for i := 1; i < right.size(); i++ {
		n.setEntryAt(base+i, right.KeyAt(i), right.ValueAt(i))
	}
	n.setSize(base + right.size())

	migrated := make([]common.PageID, right.size())
	for i := 0; i < right.size(); i++ {
		migrated[i] = n.ValueAt(base + i)
	}
	return migrated
}

// InitRootEntries formats this freshly initialized internal page as a
// brand-new root with a single separator: child0=left, then (key,right).
func (n *InternalPage) InitRootEntries(left common.PageID, key Key, right common.PageID) {
	n.SetValueAt(0, left)
	n.setSize(1)
	n.InsertLast(key, right)
}

// Size returns the current live entry count.
func (n *InternalPage) Size() int { return n.size() }

// MaxSize returns the configured capacity.
func (n *InternalPage) MaxSize() int { return n.maxSize() }

// PageID returns this page's own id.
func (n *InternalPage) PageID() common.PageID { return n.pageID() }

// ParentPageID returns the parent internal page's id, or InvalidPageID
// for a root.
func (n *InternalPage) ParentPageID() common.PageID { return n.parentPageID() }

// SetParentPageID rewrites the parent pointer.
func (n *InternalPage) SetParentPageID(id common.PageID) { n.header.setParentPageID(id) }
