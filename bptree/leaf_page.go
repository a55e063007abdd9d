package bptree

import (
	"encoding/binary"

	"github.com/Think5UP/bustub-private/common"
)

const (
	leafTailOffset    = headerSize
	offNextPageID     = leafTailOffset
	leafEntriesOffset = leafTailOffset + 4
)

// leafEntrySize is the on-disk size of one (key, record-id) pair: the
// key's fixed width plus an 8-byte RID (page id + slot number).
func leafEntrySize(keySize int) int { return keySize + 8 }

// MaxLeafSize returns the largest leaf max-size that physically fits a
// page of keySize-byte keys. Insert writes the new entry into the page
// buffer before the caller checks whether the page overflowed, so a
// leaf holding MaxSize() entries must still have room for one more at
// the instant just before a split; the -1 reserves that slot.
func MaxLeafSize(keySize int) int {
	return (common.PageSize-leafEntriesOffset)/leafEntrySize(keySize) - 1
}

// LeafPage views a page's raw bytes as a B+-tree leaf node: header, a
// next-page-id sibling pointer, then a packed array of (key, record-id)
// pairs in ascending key order.
type LeafPage struct {
	header
	buf     []byte
	keySize int
}

// NewLeafPage wraps buf (a page's Data(), exactly common.PageSize bytes)
// as a leaf node view using keySize-byte keys.
func NewLeafPage(buf []byte, keySize int) *LeafPage {
	return &LeafPage{header: newHeader(buf), buf: buf, keySize: keySize}
}

// Init formats buf as a brand-new, empty leaf page.
func (l *LeafPage) Init(pageID, parentID common.PageID, maxSize int) {
	l.setPageType(LeafPageType)
	l.setSize(0)
	l.setMaxSize(maxSize)
	l.setParentPageID(parentID)
	l.setPageID(pageID)
	l.SetNextPageID(common.InvalidPageID)
}

// NextPageID returns the sibling leaf in key order, or InvalidPageID if
// this is the last leaf.
func (l *LeafPage) NextPageID() common.PageID {
	return common.PageID(binary.LittleEndian.Uint32(l.buf[offNextPageID:]))
}

// SetNextPageID rewrites the sibling pointer.
func (l *LeafPage) SetNextPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(l.buf[offNextPageID:], uint32(id))
}

func (l *LeafPage) entryOffset(i int) int {
	return leafEntriesOffset + i*leafEntrySize(l.keySize)
}

// KeyAt returns the key stored at slot i.
func (l *LeafPage) KeyAt(i int) Key {
	off := l.entryOffset(i)
	return cloneKey(Key(l.buf[off : off+l.keySize]))
}

// ValueAt returns the record id stored at slot i.
func (l *LeafPage) ValueAt(i int) Value {
	off := l.entryOffset(i) + l.keySize
	return Value{
		PageID:  common.PageID(binary.LittleEndian.Uint32(l.buf[off:])),
		SlotNum: binary.LittleEndian.Uint32(l.buf[off+4:]),
	}
}

func (l *LeafPage) setEntryAt(i int, key Key, value Value) {
	off := l.entryOffset(i)
	copy(l.buf[off:off+l.keySize], key)
	binary.LittleEndian.PutUint32(l.buf[off+l.keySize:], uint32(value.PageID))
	binary.LittleEndian.PutUint32(l.buf[off+l.keySize+4:], value.SlotNum)
}

// GetMinSize returns the minimum live entry count for a non-root leaf:
// ceil(capacity/2), where capacity is the configured leaf max size. This
// matches the split-trigger convention of treating capacity as the
// literal maximum (a leaf splits once its size exceeds capacity), the
// same way InternalPage.GetMinSize computes ceil(max/2) for internal
// nodes.
func (l *LeafPage) GetMinSize() int {
	return (l.maxSize() + 1) / 2
}

// KeyIndex returns the first slot whose key is >= target (lower bound),
// via binary search over the strictly-increasing key array.
func (l *LeafPage) KeyIndex(target Key, cmp Comparator) int {
	lo, hi := 0, l.size()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(l.KeyAt(mid), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the value for an exact key match.
func (l *LeafPage) Lookup(key Key, cmp Comparator) (Value, bool) {
	i := l.KeyIndex(key, cmp)
	if i < l.size() && cmp(l.KeyAt(i), key) == 0 {
		return l.ValueAt(i), true
	}
	return Value{}, false
}

// Insert places (key, value) in sorted position. Returns false without
// modifying the page if key is already present.
func (l *LeafPage) Insert(key Key, value Value, cmp Comparator) bool {
	i := l.KeyIndex(key, cmp)
	if i < l.size() && cmp(l.KeyAt(i), key) == 0 {
		return false
	}
	n := l.size()
	for j := n; j > i; j-- {
		l.setEntryAt(j, l.KeyAt(j-1), l.ValueAt(j-1))
	}
	l.setEntryAt(i, key, value)
	l.setSize(n + 1)
	return true
}

// Delete removes key if present, shifting the tail left. Returns false
// if key was not found.
func (l *LeafPage) Delete(key Key, cmp Comparator) bool {
	i := l.KeyIndex(key, cmp)
	if i >= l.size() || cmp(l.KeyAt(i), key) != 0 {
		return false
	}
	n := l.size()
	for j := i; j < n-1; j++ {
		l.setEntryAt(j, l.KeyAt(j+1), l.ValueAt(j+1))
	}
	l.setSize(n - 1)
	return true
}

// Split moves the upper half of this leaf's entries into sibling (freshly
// initialized, empty) and splices it into the sibling chain immediately
// after self.
func (l *LeafPage) Split(sibling *LeafPage) {
	n := l.size()
	mid := (n + 1) / 2
	for i := mid; i < n; i++ {
		sibling.setEntryAt(i-mid, l.KeyAt(i), l.ValueAt(i))
	}
	sibling.setSize(n - mid)
	l.setSize(mid)

	sibling.SetNextPageID(l.NextPageID())
	l.SetNextPageID(sibling.pageID())
}

// Merge appends every entry of right onto the end of self and adopts
// right's sibling pointer. right is left structurally empty; the caller
// is responsible for freeing its page.
func (l *LeafPage) Merge(right *LeafPage) {
	base := l.size()
	for i := 0; i < right.size(); i++ {
		l.setEntryAt(base+i, right.KeyAt(i), right.ValueAt(i))
	}
	l.setSize(base + right.size())
	l.SetNextPageID(right.NextPageID())
}

// InsertLast appends (key, value) as the new last entry, for the O(1)
// fast path of pulling the leftmost entry of a right sibling onto the
// end of self during redistribution.
func (l *LeafPage) InsertLast(key Key, value Value) {
	l.setEntryAt(l.size(), key, value)
	l.setSize(l.size() + 1)
}

// InsertFirst prepends (key, value) as the new first entry, shifting
// every existing entry right by one, for pulling the rightmost entry of a
// left sibling onto the front of self during redistribution.
func (l *LeafPage) InsertFirst(key Key, value Value) {
	n := l.size()
	for j := n; j > 0; j-- {
		l.setEntryAt(j, l.KeyAt(j-1), l.ValueAt(j-1))
	}
	l.setEntryAt(0, key, value)
	l.setSize(n + 1)
}

// DeleteFirst removes the first entry, shifting the tail left by one.
func (l *LeafPage) DeleteFirst() {
	n := l.size()
	for j := 0; j < n-1; j++ {
		l.setEntryAt(j, l.KeyAt(j+1), l.ValueAt(j+1))
	}
	l.setSize(n - 1)
}

// DeleteLast removes the last entry.
func (l *LeafPage) DeleteLast() {
	l.setSize(l.size() - 1)
}

// Size returns the current live entry count.
func (l *LeafPage) Size() int { return l.size() }

// MaxSize returns the configured capacity.
func (l *LeafPage) MaxSize() int { return l.maxSize() }

// PageID returns this page's own id.
func (l *LeafPage) PageID() common.PageID { return l.pageID() }

// ParentPageID returns the parent internal page's id, or InvalidPageID
// for a root leaf.
func (l *LeafPage) ParentPageID() common.PageID { return l.parentPageID() }

// SetParentPageID rewrites the parent pointer.
func (l *LeafPage) SetParentPageID(id common.PageID) { l.header.setParentPageID(id) }
