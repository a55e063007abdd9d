package bptree

import (
	"encoding/binary"

	"github.com/Think5UP/bustub-private/buffer"
	"github.com/Think5UP/bustub-private/common"
	"github.com/Think5UP/bustub-private/disk"
	"github.com/Think5UP/bustub-private/wal"
)

func intKey(n int) Key {
	k := make(Key, 8)
	binary.BigEndian.PutUint64(k, uint64(n))
	return k
}

func keyToInt(k Key) int {
	return int(binary.BigEndian.Uint64(k))
}

func newTestTree(poolSize, leafMax, internalMax int) *BPlusTree {
	bpm := buffer.New(poolSize, 2, disk.NewMemoryBlockDevice(), wal.NewNoopLogManager())
	// Reserve page 0 for the header page so bptree's own pages start at 1.
	header := bpm.NewPage()
	common.Assert(header.ID() == common.HeaderPageID, "test setup: header page must be id 0")
	NewHeaderPage(header.Data()).Init()
	bpm.UnpinPage(header.ID(), true)

	return New(Config{
		IndexName:       "test-index",
		KeySize:         8,
		LeafMaxSize:     leafMax,
		InternalMaxSize: internalMax,
		Comparator:      DefaultComparator,
	}, bpm)
}

func leafKeys(l *LeafPage) []Key {
	var got []Key
	for i := 0; i < l.Size(); i++ {
		got = append(got, l.KeyAt(i))
	}
	return got
}

func collectKeys(t *BPlusTree) []int {
	var got []int
	it := t.Begin()
	for it.Valid() {
		got = append(got, keyToInt(it.Key()))
		it.Next()
	}
	return got
}
