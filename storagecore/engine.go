// Package storagecore wires disk, wal, replacer, hashtable, buffer, and
// bptree into one storage engine instance. Nothing downstream of the
// buffer pool knows an Engine exists; this package exists purely to give
// callers a single construction path instead of five.
package storagecore

import (
	"github.com/pkg/errors"

	"github.com/Think5UP/bustub-private/bptree"
	"github.com/Think5UP/bustub-private/buffer"
	"github.com/Think5UP/bustub-private/common"
	"github.com/Think5UP/bustub-private/config"
	"github.com/Think5UP/bustub-private/disk"
	"github.com/Think5UP/bustub-private/logger"
	"github.com/Think5UP/bustub-private/wal"
)

// Engine owns one buffer pool over one block device and the single
// named B+-tree index registered on that pool's header page. Multiple
// indexes over the same pool are possible (see OpenIndex) but an Engine
// always has one "primary" tree, named by its Config.IndexName.
type Engine struct {
	cfg config.Config

	device disk.BlockDevice
	log    wal.LogManager
	bpm    *buffer.BufferPoolManager

	primary *bptree.BPlusTree
}

// Open constructs an Engine from cfg: a file-backed block device if
// cfg.DataFile is set, an in-memory one otherwise, a buffer pool sized
// and replacer-tuned per cfg, and the primary index attached (or
// bootstrapped, if the header page has no record for cfg.IndexName yet).
func Open(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)

	device, err := openDevice(cfg)
	if err != nil {
		return nil, err
	}

	logManager := wal.NewNoopLogManager()
	fresh := device.PageCount() == 0
	bpm := buffer.New(cfg.PoolSize, cfg.ReplacerK, device, logManager)

	if fresh {
		if err := createHeaderPage(bpm); err != nil {
			return nil, err
		}
	}

	tree := bptree.New(bptree.Config{
		IndexName:       cfg.IndexName,
		KeySize:         cfg.KeySize,
		LeafMaxSize:     cfg.LeafMaxSize,
		InternalMaxSize: cfg.InternalMaxSize,
		Comparator:      bptree.DefaultComparator,
	}, bpm)
	tree.LoadRootFromHeader()

	return &Engine{
		cfg:     cfg,
		device:  device,
		log:     logManager,
		bpm:     bpm,
		primary: tree,
	}, nil
}

func openDevice(cfg config.Config) (disk.BlockDevice, error) {
	if cfg.DataFile == "" {
		return disk.NewMemoryBlockDevice(), nil
	}
	device, err := disk.OpenFileBlockDevice(cfg.DataFile)
	if err != nil {
		return nil, errors.Wrapf(err, "storagecore: open data file %s", cfg.DataFile)
	}
	return device, nil
}

// createHeaderPage allocates and formats the index-name -> root-page-id
// map at page id common.HeaderPageID. Only called when the device has no
// pages yet: a device already holding pages is assumed to already carry
// a formatted header page at id 0 from whichever process wrote it.
func createHeaderPage(bpm *buffer.BufferPoolManager) error {
	page := bpm.NewPage()
	if page == nil {
		return errors.New("storagecore: buffer pool exhausted allocating header page")
	}
	if page.ID() != common.HeaderPageID {
		bpm.UnpinPage(page.ID(), false)
		return errors.Errorf("storagecore: expected header page at id %d, got %d", common.HeaderPageID, page.ID())
	}
	page.Lock()
	bptree.NewHeaderPage(page.Data()).Init()
	page.Unlock()
	bpm.UnpinPage(page.ID(), true)
	return nil
}

// Primary returns the engine's named index.
func (e *Engine) Primary() *bptree.BPlusTree { return e.primary }

// OpenIndex attaches to (or bootstraps) a second B+-tree index sharing
// this engine's buffer pool, registered under its own name on the same
// header page. Distinct indexes never collide: each owns a disjoint set
// of pages, and the header page keys root pointers by name.
func (e *Engine) OpenIndex(name string, keySize int) *bptree.BPlusTree {
	tree := bptree.New(bptree.Config{
		IndexName:       name,
		KeySize:         keySize,
		LeafMaxSize:     e.cfg.LeafMaxSize,
		InternalMaxSize: e.cfg.InternalMaxSize,
		Comparator:      bptree.DefaultComparator,
	}, e.bpm)
	tree.LoadRootFromHeader()
	return tree
}

// BufferPool exposes the underlying manager for callers that need raw
// page access (catalog pages, future heap files) alongside the index.
func (e *Engine) BufferPool() *buffer.BufferPoolManager { return e.bpm }

// Flush writes every dirty page back through the block device.
func (e *Engine) Flush() {
	e.bpm.FlushAllPages()
}

// Close flushes all dirty pages and releases the backing device. An
// in-memory device has nothing to release; only *disk.FileBlockDevice
// needs an explicit close.
func (e *Engine) Close() error {
	e.bpm.FlushAllPages()
	if closer, ok := e.device.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
