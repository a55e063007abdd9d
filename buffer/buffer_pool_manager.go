// Package buffer implements the buffer pool manager: a fixed array of
// frames mediating all page I/O through a block device, maintaining pin
// counts and dirty flags, and delegating eviction policy to the replacer
// package and page-table lookups to the hashtable package. It is a
// mutex-guarded struct owning its sub-managers, with atomic stat
// counters for the hit/miss/eviction totals callers can observe.
package buffer

import (
	"container/list"
	"encoding/binary"
	"sync"

	"go.uber.org/atomic"

	"github.com/Think5UP/bustub-private/common"
	"github.com/Think5UP/bustub-private/disk"
	"github.com/Think5UP/bustub-private/hashtable"
	"github.com/Think5UP/bustub-private/logger"
	"github.com/Think5UP/bustub-private/replacer"
	"github.com/Think5UP/bustub-private/wal"
)

const pageTableBuckets = 64

func pageIDBytes(id common.PageID) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(id))
	return buf
}

// BufferPoolManager owns pool-size frames, the replacer, the page table,
// and the free list, mediating every Page's lifecycle.
type BufferPoolManager struct {
	mu sync.Mutex

	poolSize int
	pages    []Page
	freeList *list.List // common.FrameID at front/back, newest-free at front

	pageTable *hashtable.ExtendibleHashTable[common.PageID, common.FrameID]
	replacer  *replacer.LRUKReplacer

	device     disk.BlockDevice
	logManager wal.LogManager

	nextPageID atomic.Uint32

	statHits    atomic.Uint64
	statMisses  atomic.Uint64
	statEvicted atomic.Uint64
}

// New creates a buffer pool of poolSize frames over device, using
// replacerK as the LRU-K history length.
func New(poolSize int, replacerK int, device disk.BlockDevice, logManager wal.LogManager) *BufferPoolManager {
	common.Assert(poolSize > 0, "buffer: pool size must be positive")
	bpm := &BufferPoolManager{
		poolSize:   poolSize,
		pages:      make([]Page, poolSize),
		freeList:   list.New(),
		pageTable:  hashtable.New[common.PageID, common.FrameID](pageTableBuckets, pageIDBytes),
		replacer:   replacer.New(poolSize, replacerK),
		device:     device,
		logManager: logManager,
	}
	bpm.nextPageID.Store(uint32(device.PageCount()))
	for i := 0; i < poolSize; i++ {
		bpm.pages[i].id = common.InvalidPageID
		bpm.freeList.PushBack(common.FrameID(i))
	}
	return bpm
}

// anyFrameUnpinned returns true if any frame currently has pin count
// zero; NewPage/FetchPage must fail fast when no frame is a candidate,
// scanning for that up front before touching the free list.
func (b *BufferPoolManager) anyFrameUnpinned() bool {
	for i := range b.pages {
		if b.pages[i].pinCount == 0 {
			return true
		}
	}
	return false
}

// victimFrame returns a frame ready for reuse: from the free list if
// non-empty, else evicted via the replacer (writing back if dirty).
// Returns ok=false if neither source yields one.
func (b *BufferPoolManager) victimFrame() (common.FrameID, bool) {
	if el := b.freeList.Back(); el != nil {
		b.freeList.Remove(el)
		return el.Value.(common.FrameID), true
	}

	frameID, ok := b.replacer.Evict()
	if !ok {
		return 0, false
	}
	b.statEvicted.Inc()

	frame := &b.pages[frameID]
	evictedPageID := frame.id
	if frame.isDirty {
		if err := b.logManager.Flush(evictedPageID); err != nil {
			logger.Errorf("buffer: wal flush failed for page %d: %v", evictedPageID, err)
		}
		if err := b.device.WritePage(evictedPageID, frame.data[:]); err != nil {
			logger.Errorf("buffer: write-back failed for page %d: %v", evictedPageID, err)
		}
		frame.isDirty = false
	}
	frame.reset()
	b.pageTable.Remove(evictedPageID)
	return frameID, true
}

// NewPage allocates a fresh page id, pins it into a frame, and returns
// it. Fails (returns nil) when every frame is currently pinned.
func (b *BufferPoolManager) NewPage() *Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.anyFrameUnpinned() {
		return nil
	}
	frameID, ok := b.victimFrame()
	if !ok {
		return nil
	}

	pageID := common.PageID(b.nextPageID.Add(1) - 1)
	b.pageTable.Insert(pageID, frameID)
	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)

	frame := &b.pages[frameID]
	frame.id = pageID
	frame.pinCount = 1
	logger.Debugf("buffer: NewPage id=%d frame=%d", pageID, frameID)
	return frame
}

// FetchPage returns the page for id, pinning it. On a cache hit it
// increments the pin count directly; on a miss it selects a victim
// frame, reads the page from the block device, and pins it. Fails
// (returns nil) on a miss when no frame is evictable.
func (b *BufferPoolManager) FetchPage(id common.PageID) *Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable.Find(id); ok {
		frame := &b.pages[frameID]
		frame.pinCount++
		b.replacer.RecordAccess(frameID)
		b.replacer.SetEvictable(frameID, false)
		b.statHits.Inc()
		return frame
	}
	b.statMisses.Inc()

	if !b.anyFrameUnpinned() {
		return nil
	}
	frameID, ok := b.victimFrame()
	if !ok {
		return nil
	}

	b.pageTable.Insert(id, frameID)
	frame := &b.pages[frameID]
	frame.id = id
	frame.pinCount = 1

	if err := b.device.ReadPage(id, frame.data[:]); err != nil {
		logger.Errorf("buffer: read failed for page %d: %v", id, err)
	}

	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)
	logger.Debugf("buffer: FetchPage miss id=%d frame=%d", id, frameID)
	return frame
}

// UnpinPage decrements id's pin count and, if it reaches zero, marks its
// frame evictable. dirty is sticky: once true for a page it is never
// cleared except by FlushPage. Returns false if id is unresident, the
// pin count is already zero, or id is invalid.
func (b *BufferPoolManager) UnpinPage(id common.PageID, dirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == common.InvalidPageID {
		return false
	}
	frameID, ok := b.pageTable.Find(id)
	if !ok {
		return false
	}
	frame := &b.pages[frameID]
	if frame.pinCount <= 0 {
		return false
	}
	if dirty {
		frame.isDirty = true
	}
	frame.pinCount--
	if frame.pinCount == 0 {
		b.replacer.SetEvictable(frameID, true)
	}
	return true
}

// FlushPage writes id's current bytes to the block device and clears
// its dirty flag. Returns false if id is not resident.
func (b *BufferPoolManager) FlushPage(id common.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushPageLocked(id)
}

func (b *BufferPoolManager) flushPageLocked(id common.PageID) bool {
	if id == common.InvalidPageID {
		return false
	}
	frameID, ok := b.pageTable.Find(id)
	if !ok {
		return false
	}
	frame := &b.pages[frameID]
	if frame.isDirty {
		if err := b.logManager.Flush(id); err != nil {
			logger.Errorf("buffer: wal flush failed for page %d: %v", id, err)
		}
	}
	if err := b.device.WritePage(id, frame.data[:]); err != nil {
		logger.Errorf("buffer: flush failed for page %d: %v", id, err)
		return false
	}
	frame.isDirty = false
	return true
}

// FlushAllPages writes every resident page back to the block device.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.pages {
		if b.pages[i].id != common.InvalidPageID {
			b.flushPageLocked(b.pages[i].id)
		}
	}
}

// DeletePage removes id from the pool, returning its frame to the free
// list and telling the block device to deallocate it. Returns true if
// id was already absent or was successfully deleted; false if pinned.
func (b *BufferPoolManager) DeletePage(id common.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id == common.InvalidPageID {
		return true
	}
	frameID, ok := b.pageTable.Find(id)
	if !ok {
		return true
	}
	frame := &b.pages[frameID]
	if frame.pinCount > 0 {
		return false
	}

	b.replacer.Remove(frameID)
	frame.reset()
	b.pageTable.Remove(id)
	b.freeList.PushFront(frameID)

	if err := b.device.DeallocatePage(id); err != nil {
		logger.Errorf("buffer: deallocate failed for page %d: %v", id, err)
	}
	return true
}

// PoolSize returns the number of frames in the pool.
func (b *BufferPoolManager) PoolSize() int { return b.poolSize }

// Stats reports cumulative hit/miss/eviction counters for diagnostics.
func (b *BufferPoolManager) Stats() (hits, misses, evictions uint64) {
	return b.statHits.Load(), b.statMisses.Load(), b.statEvicted.Load()
}
