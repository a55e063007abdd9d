package bptree

import (
	"encoding/binary"

	"github.com/Think5UP/bustub-private/common"
)

// HeaderPage is the well-known page-id-0 root-pointer map: a name ->
// root-page-id table that survives flush/refetch, so a tree can recover
// its root after the process restarts. Format: a 4-byte record count
// followed by, per record, a 4-byte name length, the name bytes, and a
// 4-byte root page id.
type HeaderPage struct {
	buf []byte
}

// NewHeaderPage wraps buf (page 0's Data()) as a root-pointer map.
func NewHeaderPage(buf []byte) *HeaderPage { return &HeaderPage{buf: buf} }

// Init formats buf as an empty map. Call once, on the index's very first
// creation.
func (h *HeaderPage) Init() {
	binary.LittleEndian.PutUint32(h.buf[0:], 0)
}

type headerRecord struct {
	name string
	root common.PageID
}

func (h *HeaderPage) records() []headerRecord {
	count := binary.LittleEndian.Uint32(h.buf[0:])
	recs := make([]headerRecord, 0, count)
	off := 4
	for i := uint32(0); i < count; i++ {
		nameLen := int(binary.LittleEndian.Uint32(h.buf[off:]))
		off += 4
		name := string(h.buf[off : off+nameLen])
		off += nameLen
		root := common.PageID(binary.LittleEndian.Uint32(h.buf[off:]))
		off += 4
		recs = append(recs, headerRecord{name: name, root: root})
	}
	return recs
}

func (h *HeaderPage) writeRecords(recs []headerRecord) {
	binary.LittleEndian.PutUint32(h.buf[0:], uint32(len(recs)))
	off := 4
	for _, r := range recs {
		binary.LittleEndian.PutUint32(h.buf[off:], uint32(len(r.name)))
		off += 4
		copy(h.buf[off:], r.name)
		off += len(r.name)
		binary.LittleEndian.PutUint32(h.buf[off:], uint32(r.root))
		off += 4
	}
	common.Assert(off <= len(h.buf), "bptree: header page overflow, too many indexes registered")
}

// GetRootID returns the root page id registered for name.
func (h *HeaderPage) GetRootID(name string) (common.PageID, bool) {
	for _, r := range h.records() {
		if r.name == name {
			return r.root, true
		}
	}
	return common.InvalidPageID, false
}

// SetRootID upserts the root page id for name.
func (h *HeaderPage) SetRootID(name string, root common.PageID) {
	recs := h.records()
	for i := range recs {
		if recs[i].name == name {
			recs[i].root = root
			h.writeRecords(recs)
			return
		}
	}
	recs = append(recs, headerRecord{name: name, root: root})
	h.writeRecords(recs)
}

// DeleteRecord drops name's entry entirely.
func (h *HeaderPage) DeleteRecord(name string) bool {
	recs := h.records()
	for i, r := range recs {
		if r.name == name {
			recs = append(recs[:i], recs[i+1:]...)
			h.writeRecords(recs)
			return true
		}
	}
	return false
}
