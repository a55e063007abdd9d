// Package hashtable implements the extendible hash table used by the
// buffer pool as its page-id-to-frame-id table, hashed with
// github.com/OneOfOne/xxhash rather than a language built-in hash.
package hashtable

import (
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/Think5UP/bustub-private/common"
)

// KeyBytes converts a key into the byte sequence fed to the hash
// function. The table has no built-in notion of how to serialize an
// arbitrary K, so callers supply one, the same way record ids and
// comparators are supplied externally rather than baked in.
type KeyBytes[K comparable] func(key K) []byte

type pair[K comparable, V any] struct {
	key   K
	value V
}

type bucket[K comparable, V any] struct {
	size  int
	depth int
	items []pair[K, V]
}

func newBucket[K comparable, V any](size, depth int) *bucket[K, V] {
	return &bucket[K, V]{size: size, depth: depth}
}

func (b *bucket[K, V]) isFull() bool { return len(b.items) >= b.size }

func (b *bucket[K, V]) find(key K) (V, bool) {
	for _, it := range b.items {
		if it.key == key {
			return it.value, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) remove(key K) bool {
	for i, it := range b.items {
		if it.key == key {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// insert upserts key (assumes not full; caller enforces). Returns false
// only if the bucket is at capacity without key already present.
func (b *bucket[K, V]) insert(key K, value V) bool {
	for i, it := range b.items {
		if it.key == key {
			b.items[i].value = value
			return true
		}
	}
	if b.isFull() {
		return false
	}
	b.items = append(b.items, pair[K, V]{key: key, value: value})
	return true
}

// ExtendibleHashTable is a thread-safe map from K to V sized for small
// bucket scans, growing by directory doubling and bucket splitting. The
// entire table is guarded by a single coarse mutex, which the buffer
// pool takes innermost relative to its own locks.
type ExtendibleHashTable[K comparable, V any] struct {
	mu sync.Mutex

	bucketSize  int
	globalDepth int
	numBuckets  int
	dir         []*bucket[K, V]
	keyBytes    KeyBytes[K]
}

// New creates an extendible hash table with the given per-bucket
// capacity and key-to-bytes function, starting at global depth 0 with a
// single bucket.
func New[K comparable, V any](bucketSize int, keyBytes KeyBytes[K]) *ExtendibleHashTable[K, V] {
	common.Assert(bucketSize > 0, "hashtable: bucket size must be positive")
	t := &ExtendibleHashTable[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		keyBytes:   keyBytes,
	}
	t.dir = []*bucket[K, V]{newBucket[K, V](bucketSize, 0)}
	return t
}

func (t *ExtendibleHashTable[K, V]) hash(key K) uint64 {
	h := xxhash.New64()
	h.Write(t.keyBytes(key))
	return h.Sum64()
}

func (t *ExtendibleHashTable[K, V]) indexOf(key K) int {
	mask := uint64(1<<t.globalDepth) - 1
	return int(t.hash(key) & mask)
}

// Find returns the value for key and whether it was present.
func (t *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].find(key)
}

// Remove deletes key if present. It never merges the now-possibly-empty
// bucket back; buckets shrink only on table destruction.
func (t *ExtendibleHashTable[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].remove(key)
}

// Insert upserts key/value, growing the directory and splitting buckets
// as many times as a pathological hash requires.
func (t *ExtendibleHashTable[K, V]) Insert(key K, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.dir[t.indexOf(key)].isFull() {
		if !t.dir[t.indexOf(key)].insertIfNotPresent(key, value) {
			t.splitBucket(t.indexOf(key))
			continue
		}
		return
	}
	t.dir[t.indexOf(key)].insert(key, value)
}

// insertIfNotPresent updates an existing key in place even when the
// bucket is "full" (upsert must not be blocked by capacity); returns
// true if key was already present.
func (b *bucket[K, V]) insertIfNotPresent(key K, value V) bool {
	for i, it := range b.items {
		if it.key == key {
			b.items[i].value = value
			return true
		}
	}
	return false
}

func (t *ExtendibleHashTable[K, V]) splitBucket(index int) {
	target := t.dir[index]
	localDepth := target.depth

	if t.globalDepth == localDepth {
		capacity := len(t.dir)
		grown := make([]*bucket[K, V], capacity<<1)
		copy(grown, t.dir)
		for i := 0; i < capacity; i++ {
			grown[capacity+i] = t.dir[i]
		}
		t.dir = grown
		t.globalDepth++
	}

	mask := uint64(1) << uint(localDepth)
	bucket0 := newBucket[K, V](t.bucketSize, localDepth+1)
	bucket1 := newBucket[K, V](t.bucketSize, localDepth+1)

	for _, it := range target.items {
		if t.hash(it.key)&mask != 0 {
			bucket1.items = append(bucket1.items, it)
		} else {
			bucket0.items = append(bucket0.items, it)
		}
	}

	if len(bucket0.items) > 0 && len(bucket1.items) > 0 {
		t.numBuckets++
	}

	for i := range t.dir {
		if t.dir[i] == target {
			if uint64(i)&mask != 0 {
				t.dir[i] = bucket1
			} else {
				t.dir[i] = bucket0
			}
		}
	}
}

// GetGlobalDepth returns the directory's bit-length.
func (t *ExtendibleHashTable[K, V]) GetGlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// GetLocalDepth returns the local depth of the bucket referenced by a
// directory index.
func (t *ExtendibleHashTable[K, V]) GetLocalDepth(dirIndex int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[dirIndex].depth
}

// GetNumBuckets returns the table's bucket count. It starts at 1 and
// grows by one for each split that leaves both halves non-empty; a split
// with an empty half is not counted, so the count can be lower than the
// number of distinct buckets the directory references.
func (t *ExtendibleHashTable[K, V]) GetNumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}

// Destroy drops every bucket reference so the garbage collector can
// reclaim them deterministically at destruction rather than relying on
// process exit.
func (t *ExtendibleHashTable[K, V]) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dir = nil
	t.numBuckets = 0
	t.globalDepth = 0
}
