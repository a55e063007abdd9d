// Package disk names the on-disk block device contract the buffer pool
// consumes. Durability concerns like checksums and torn-write protection
// are deliberately left out, but a concrete implementation is still
// needed to exercise the rest of the module, so two are provided: an
// in-memory device for tests and a real file-backed one.
package disk

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/Think5UP/bustub-private/common"
)

// BlockDevice reads and writes fixed-size blocks addressed by page id. It
// has no notion of pinning, caching, or dirtiness — those live one layer up
// in the buffer pool.
type BlockDevice interface {
	// ReadPage copies the on-disk block for id into buf, which must be
	// exactly common.PageSize bytes.
	ReadPage(id common.PageID, buf []byte) error
	// WritePage persists buf (exactly common.PageSize bytes) as the block
	// for id.
	WritePage(id common.PageID, buf []byte) error
	// DeallocatePage tells the device a page id's block may be reclaimed.
	// Page ids are never recycled; this exists purely so the buffer pool's
	// DeletePage has somewhere to report to.
	DeallocatePage(id common.PageID) error
	// PageCount returns one past the highest page id ever written to this
	// device, so a buffer pool opened over a pre-populated device can
	// resume allocating fresh page ids above the existing ones instead of
	// starting over at zero and colliding with them.
	PageCount() common.PageID
}

// MemoryBlockDevice is a BlockDevice backed by a map, used by the buffer
// pool and B+-tree tests so they never touch the filesystem.
type MemoryBlockDevice struct {
	mu       sync.Mutex
	blocks   map[common.PageID][]byte
	reads    uint64
	writes   uint64
	pageHigh common.PageID
}

// NewMemoryBlockDevice creates an empty in-memory device.
func NewMemoryBlockDevice() *MemoryBlockDevice {
	return &MemoryBlockDevice{blocks: make(map[common.PageID][]byte)}
}

func (d *MemoryBlockDevice) ReadPage(id common.PageID, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if len(buf) != common.PageSize {
		return errors.Errorf("disk: read buffer must be %d bytes, got %d", common.PageSize, len(buf))
	}
	block, ok := d.blocks[id]
	if !ok {
		// An unwritten page reads as zeroes, matching a freshly
		// allocated block on a real device.
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, block)
	return nil
}

func (d *MemoryBlockDevice) WritePage(id common.PageID, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	if len(buf) != common.PageSize {
		return errors.Errorf("disk: write buffer must be %d bytes, got %d", common.PageSize, len(buf))
	}
	block := make([]byte, common.PageSize)
	copy(block, buf)
	d.blocks[id] = block
	if id+1 > d.pageHigh {
		d.pageHigh = id + 1
	}
	return nil
}

func (d *MemoryBlockDevice) DeallocatePage(id common.PageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.blocks, id)
	return nil
}

// PageCount returns one past the highest page id ever written.
func (d *MemoryBlockDevice) PageCount() common.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageHigh
}

// Stats returns the number of ReadPage/WritePage calls served, for tests
// that assert the buffer pool issues exactly the I/O it should.
func (d *MemoryBlockDevice) Stats() (reads, writes uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads, d.writes
}

// FileBlockDevice is a BlockDevice backed by a single flat file, pages
// addressed by page-id * PageSize offset via seek-then-read/write over a
// single *os.File.
type FileBlockDevice struct {
	mu   sync.Mutex
	file *os.File
}

// OpenFileBlockDevice opens (creating if absent) the backing file at path.
func OpenFileBlockDevice(path string) (*FileBlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "disk: open %s", path)
	}
	return &FileBlockDevice{file: f}, nil
}

func (d *FileBlockDevice) offset(id common.PageID) int64 {
	return int64(id) * int64(common.PageSize)
}

func (d *FileBlockDevice) ReadPage(id common.PageID, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(buf) != common.PageSize {
		return errors.Errorf("disk: read buffer must be %d bytes, got %d", common.PageSize, len(buf))
	}
	n, err := d.file.ReadAt(buf, d.offset(id))
	if err != nil && n == 0 {
		// Never-written page: treat as all-zero, same as a sparse file
		// would read on a POSIX filesystem.
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	return err
}

func (d *FileBlockDevice) WritePage(id common.PageID, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(buf) != common.PageSize {
		return errors.Errorf("disk: write buffer must be %d bytes, got %d", common.PageSize, len(buf))
	}
	_, err := d.file.WriteAt(buf, d.offset(id))
	return errors.Wrap(err, "disk: write page")
}

func (d *FileBlockDevice) DeallocatePage(common.PageID) error {
	// Page ids are never recycled; punching a hole in the file is an
	// optimization, not a correctness requirement.
	return nil
}

// PageCount derives the page watermark from the file's current size, so
// reopening an existing data file resumes allocating ids above whatever
// pages are already on disk.
func (d *FileBlockDevice) PageCount() common.PageID {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, err := d.file.Stat()
	if err != nil {
		return 0
	}
	return common.PageID(info.Size() / int64(common.PageSize))
}

// Close releases the backing file.
func (d *FileBlockDevice) Close() error {
	return d.file.Close()
}
