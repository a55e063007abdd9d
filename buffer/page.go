package buffer

import (
	"github.com/Think5UP/bustub-private/common"
	"github.com/Think5UP/bustub-private/latch"
)

// Page is a fixed-size in-memory buffer plus the metadata the buffer pool
// tracks for it: identity, pin count, dirty flag, and its own
// reader-writer latch.
type Page struct {
	latch latch.Latch

	id       common.PageID
	data     [common.PageSize]byte
	pinCount int
	isDirty  bool
}

// ID returns the page's identifier, or common.InvalidPageID if unbound.
func (p *Page) ID() common.PageID { return p.id }

// Data returns the page's raw byte buffer. Callers holding the
// appropriate latch may read or write through the returned slice.
func (p *Page) Data() []byte { return p.data[:] }

// PinCount returns the current pin count.
func (p *Page) PinCount() int { return p.pinCount }

// IsDirty reports whether the page's bytes differ from disk.
func (p *Page) IsDirty() bool { return p.isDirty }

// RLock/RUnlock/Lock/Unlock expose the page's latch directly to callers
// (the tree package) that need to hold it across multiple buffer-pool
// calls: the page latch outlives the buffer pool's own bookkeeping
// mutex.
func (p *Page) RLock()    { p.latch.RLock() }
func (p *Page) RUnlock()  { p.latch.RUnlock() }
func (p *Page) Lock()     { p.latch.Lock() }
func (p *Page) Unlock()   { p.latch.Unlock() }

func (p *Page) reset() {
	for i := range p.data {
		p.data[i] = 0
	}
	p.id = common.InvalidPageID
	p.pinCount = 0
	p.isDirty = false
}
