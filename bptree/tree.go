package bptree

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Think5UP/bustub-private/buffer"
	"github.com/Think5UP/bustub-private/common"
	"github.com/Think5UP/bustub-private/logger"
)

// ErrEmptyKey is returned for an insert or delete carrying a key of the
// wrong length — a caller bug, not a runtime condition.
var ErrEmptyKey = errors.New("bptree: key must be exactly the configured key size")

// ErrBufferExhausted surfaces when the buffer pool has no evictable
// frame mid-descent. The caller's expectation is that the working set
// fits; this design does not retry.
var ErrBufferExhausted = errors.New("bptree: buffer pool exhausted during descent")

type opMode int

const (
	opRead opMode = iota
	opInsert
	opDelete
)

// Config fixes a tree's shape at construction; all fields are immutable
// afterward.
type Config struct {
	IndexName       string
	KeySize         int
	LeafMaxSize     int
	InternalMaxSize int
	Comparator      Comparator
}

// BPlusTree is a disk-resident, latch-crabbing concurrent B+-tree index
// whose pages are fetched through a buffer pool.
type BPlusTree struct {
	bpm *buffer.BufferPoolManager

	name            string
	keySize         int
	leafMaxSize     int
	internalMaxSize int
	cmp             Comparator

	// rootMu guards rootPageID; insert's empty-tree bootstrap additionally
	// takes bootstrapMu so only one writer installs the first root.
	rootMu      sync.RWMutex
	rootPageID  common.PageID
	bootstrapMu sync.Mutex
}

// New constructs a tree with no root. It does not read the header page;
// call LoadRootFromHeader to attach to a root already registered there
// under cfg.IndexName.
func New(cfg Config, bpm *buffer.BufferPoolManager) *BPlusTree {
	common.Assert(cfg.KeySize > 0, "bptree: key size must be positive")
	common.Assert(cfg.LeafMaxSize >= 2, "bptree: leaf max size must be >= 2")
	common.Assert(cfg.InternalMaxSize >= 3, "bptree: internal max size must be >= 3")
	common.Assert(cfg.LeafMaxSize <= MaxLeafSize(cfg.KeySize),
		"bptree: leaf max size %d does not fit a page for key size %d (max %d)",
		cfg.LeafMaxSize, cfg.KeySize, MaxLeafSize(cfg.KeySize))
	common.Assert(cfg.InternalMaxSize <= MaxInternalSize(cfg.KeySize),
		"bptree: internal max size %d does not fit a page for key size %d (max %d)",
		cfg.InternalMaxSize, cfg.KeySize, MaxInternalSize(cfg.KeySize))
	cmp := cfg.Comparator
	if cmp == nil {
		cmp = DefaultComparator
	}
	return &BPlusTree{
		bpm:             bpm,
		name:            cfg.IndexName,
		keySize:         cfg.KeySize,
		leafMaxSize:     cfg.LeafMaxSize,
		internalMaxSize: cfg.InternalMaxSize,
		cmp:             cmp,
		rootPageID:      common.InvalidPageID,
	}
}

// Name returns the index name this tree is registered under on the
// header page.
func (t *BPlusTree) Name() string { return t.name }

// IsEmpty reports whether the tree currently has no root.
func (t *BPlusTree) IsEmpty() bool {
	t.rootMu.RLock()
	defer t.rootMu.RUnlock()
	return t.rootPageID == common.InvalidPageID
}

func (t *BPlusTree) getRootPageID() common.PageID {
	t.rootMu.RLock()
	defer t.rootMu.RUnlock()
	return t.rootPageID
}

// setRootPageID installs a new root id and mirrors it onto the header
// page, fetched-dirty-unpinned atomically.
func (t *BPlusTree) setRootPageID(id common.PageID) {
	t.rootMu.Lock()
	t.rootPageID = id
	t.rootMu.Unlock()

	header := t.bpm.FetchPage(common.HeaderPageID)
	if header == nil {
		logger.Errorf("bptree: header page unavailable updating root for %q", t.name)
		return
	}
	header.Lock()
	if id == common.InvalidPageID {
		NewHeaderPage(header.Data()).DeleteRecord(t.name)
	} else {
		NewHeaderPage(header.Data()).SetRootID(t.name, id)
	}
	header.Unlock()
	t.bpm.UnpinPage(common.HeaderPageID, true)
}

// LoadRootFromHeader recovers rootPageID from the header page, for
// attaching to an index that already existed on disk.
func (t *BPlusTree) LoadRootFromHeader() {
	header := t.bpm.FetchPage(common.HeaderPageID)
	if header == nil {
		return
	}
	header.RLock()
	id, ok := NewHeaderPage(header.Data()).GetRootID(t.name)
	header.RUnlock()
	t.bpm.UnpinPage(common.HeaderPageID, false)
	if ok {
		t.rootMu.Lock()
		t.rootPageID = id
		t.rootMu.Unlock()
	}
}

func (t *BPlusTree) validateKey(key Key) error {
	if len(key) != t.keySize {
		return ErrEmptyKey
	}
	return nil
}

func (t *BPlusTree) isLeaf(page *buffer.Page) bool {
	return newHeader(page.Data()).pageType() == LeafPageType
}

func (t *BPlusTree) asLeaf(page *buffer.Page) *LeafPage {
	return NewLeafPage(page.Data(), t.keySize)
}

func (t *BPlusTree) asInternal(page *buffer.Page) *InternalPage {
	return NewInternalPage(page.Data(), t.keySize)
}

// latchPage acquires page's latch in the mode appropriate for op.
func (t *BPlusTree) latchPage(page *buffer.Page, op opMode) {
	if op == opRead {
		page.RLock()
	} else {
		page.Lock()
	}
}

func (t *BPlusTree) unlatchPage(page *buffer.Page, op opMode) {
	if op == opRead {
		page.RUnlock()
	} else {
		page.Unlock()
	}
}

// isSafe reports whether page cannot cascade a structural change to its
// parent under op. The internal-root exception for deletion uses the
// exact bound size > 2, not size >= 2: a root with exactly two children
// still needs one more deletion to risk collapsing to a single child.
func (t *BPlusTree) isSafe(page *buffer.Page, op opMode, isRoot bool) bool {
	leaf := t.isLeaf(page)
	var size, maxSize, minSize int
	if leaf {
		l := t.asLeaf(page)
		size, maxSize, minSize = l.Size(), l.MaxSize(), l.GetMinSize()
	} else {
		n := t.asInternal(page)
		size, maxSize, minSize = n.Size(), n.MaxSize(), n.GetMinSize()
	}
	switch op {
	case opInsert:
		return size < maxSize
	case opDelete:
		if isRoot {
			return leaf || size > 2
		}
		return size > minSize
	default:
		return true
	}
}

// pageSet tracks the latches a write-mode descent currently holds, in
// root-to-leaf order, so the tree's epilogue can release exactly what
// remains on every return path.
type pageSet struct {
	pages []*buffer.Page
}

func (s *pageSet) push(p *buffer.Page) { s.pages = append(s.pages, p) }

// releaseAncestors drops every page except the most recently pushed one
// (the current descent frontier), unlatching and unpinning each.
func (s *pageSet) releaseAncestors(op opMode, tree *BPlusTree) {
	if len(s.pages) <= 1 {
		return
	}
	for _, p := range s.pages[:len(s.pages)-1] {
		tree.unlatchPage(p, op)
		tree.bpm.UnpinPage(p.ID(), false)
	}
	s.pages = s.pages[len(s.pages)-1:]
}

// releaseAll drops every remaining page, marking dirty for write
// operations since a write-mode descent may have mutated any of them.
func (s *pageSet) releaseAll(op opMode, tree *BPlusTree) {
	dirty := op != opRead
	for _, p := range s.pages {
		tree.unlatchPage(p, op)
		tree.bpm.UnpinPage(p.ID(), dirty)
	}
	s.pages = nil
}

// findLeaf descends from the root to the leaf that may hold key, using
// latch-crabbing appropriate to op. On success, the returned pageSet
// contains the latches still held (for opRead: always exactly [leaf];
// for opInsert/opDelete: every ancestor since the last proven-safe node,
// through leaf). Callers must call releaseAll on the returned set.
func (t *BPlusTree) findLeaf(key Key, op opMode) (*pageSet, error) {
	for {
		rootID := t.getRootPageID()
		if rootID == common.InvalidPageID {
			return nil, errEmptyTree
		}
		root := t.bpm.FetchPage(rootID)
		if root == nil {
			return nil, ErrBufferExhausted
		}
		t.latchPage(root, op)
		if t.getRootPageID() != rootID {
			// Root changed concurrently between fetch and latch; retry.
			t.unlatchPage(root, op)
			t.bpm.UnpinPage(rootID, false)
			continue
		}

		set := &pageSet{}
		set.push(root)
		cur := root

		for !t.isLeaf(cur) {
			internal := t.asInternal(cur)
			childID := internal.Lookup(key, t.cmp)
			child := t.bpm.FetchPage(childID)
			if child == nil {
				set.releaseAll(op, t)
				return nil, ErrBufferExhausted
			}
			t.latchPage(child, op)

			if op == opRead {
				t.unlatchPage(cur, op)
				t.bpm.UnpinPage(cur.ID(), false)
				set.pages = set.pages[:0]
			}
			set.push(child)

			if op != opRead && t.isSafe(child, op, false) {
				set.releaseAncestors(op, t)
			}

			cur = child
		}
		return set, nil
	}
}

var errEmptyTree = errors.New("bptree: tree is empty")

// GetValue returns the record id stored for key, if any.
func (t *BPlusTree) GetValue(key Key) (Value, bool, error) {
	if err := t.validateKey(key); err != nil {
		return Value{}, false, err
	}
	set, err := t.findLeaf(key, opRead)
	if err == errEmptyTree {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	leaf := t.asLeaf(set.pages[len(set.pages)-1])
	v, ok := leaf.Lookup(key, t.cmp)
	set.releaseAll(opRead, t)
	return v, ok, nil
}
