package bptree

import (
	"encoding/binary"

	"github.com/Think5UP/bustub-private/common"
)

// PageType discriminates a tree page's byte buffer, since pages are raw
// bytes with no vtable to dispatch through.
type PageType uint32

const (
	// InvalidPageType marks a freshly allocated, not-yet-initialized page.
	InvalidPageType PageType = 0
	LeafPageType    PageType = 1
	InternalPageType PageType = 2
)

// headerSize is the 24-byte common tree-page header: page_type, size,
// max_size, parent_page_id, page_id, lsn.
const headerSize = 24

const (
	offPageType   = 0
	offSize       = 4
	offMaxSize    = 8
	offParentID   = 12
	offPageID     = 16
	offLSN        = 20
)

type header struct {
	buf []byte
}

func newHeader(buf []byte) header { return header{buf: buf} }

func (h header) pageType() PageType {
	return PageType(binary.LittleEndian.Uint32(h.buf[offPageType:]))
}
func (h header) setPageType(t PageType) {
	binary.LittleEndian.PutUint32(h.buf[offPageType:], uint32(t))
}

func (h header) size() int { return int(binary.LittleEndian.Uint32(h.buf[offSize:])) }
func (h header) setSize(n int) {
	binary.LittleEndian.PutUint32(h.buf[offSize:], uint32(n))
}

func (h header) maxSize() int { return int(binary.LittleEndian.Uint32(h.buf[offMaxSize:])) }
func (h header) setMaxSize(n int) {
	binary.LittleEndian.PutUint32(h.buf[offMaxSize:], uint32(n))
}

func (h header) parentPageID() common.PageID {
	return common.PageID(binary.LittleEndian.Uint32(h.buf[offParentID:]))
}
func (h header) setParentPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(h.buf[offParentID:], uint32(id))
}

func (h header) pageID() common.PageID {
	return common.PageID(binary.LittleEndian.Uint32(h.buf[offPageID:]))
}
func (h header) setPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(h.buf[offPageID:], uint32(id))
}

func (h header) lsn() common.LSN { return common.LSN(binary.LittleEndian.Uint32(h.buf[offLSN:])) }
func (h header) setLSN(lsn common.LSN) {
	binary.LittleEndian.PutUint32(h.buf[offLSN:], uint32(lsn))
}
