// Package bptree implements a disk-resident, latch-crabbing concurrent
// B+-tree index whose nodes are pages fetched through a buffer pool.
// Keys are runtime-sized fixed-length byte strings rather than a
// compile-time generic key type, so one tree implementation serves any
// configured key width.
package bptree

import (
	"bytes"

	"github.com/Think5UP/bustub-private/common"
)

// Key is a fixed-length byte string. Its length is fixed at tree
// instantiation and every key passed to a tree must share that length.
type Key []byte

// Comparator orders two keys, returning <0, 0, or >0 like bytes.Compare.
// The default comparator is exactly bytes.Compare; callers may supply a
// different one for keys that are not meant to compare lexicographically
// byte-for-byte (e.g. big-endian integer keys, which bytes.Compare already
// orders correctly, but a caller encoding floats or signed integers would
// need a custom one).
type Comparator func(a, b Key) int

// DefaultComparator orders keys by raw byte value.
func DefaultComparator(a, b Key) int { return bytes.Compare(a, b) }

func cloneKey(k Key) Key {
	c := make(Key, len(k))
	copy(c, k)
	return c
}

// Value is the payload a leaf entry maps a key to: a record id.
type Value = common.RID
