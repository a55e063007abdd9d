// Package replacer implements the LRU-K frame eviction policy consumed by
// the buffer pool: frames are split into a "seen fewer than k times"
// history list and a "seen at least k times" cache list, generalizing
// the usual young/old split into an exact K-distance rule.
package replacer

import (
	"container/list"

	"github.com/pkg/errors"

	"github.com/Think5UP/bustub-private/common"
)

// ErrInvalidFrame is returned when a caller names a frame id outside
// [0, num_frames) — a caller bug, not a runtime condition.
var ErrInvalidFrame = errors.New("replacer: frame id out of range")

type entry struct {
	frameID   common.FrameID
	accesses  int
	evictable bool
}

// LRUKReplacer tracks eviction eligibility for up to numFrames frames.
// Frames seen fewer than k times live in the history list (backward
// k-distance = +Inf, preferred victims); once a frame accumulates k
// accesses it moves to the cache list, ordered by true recency.
type LRUKReplacer struct {
	k         int
	numFrames int

	history *list.List // least-recent at Back, most-recent at Front
	cache   *list.List // least-recent at Back, most-recent at Front

	historyElems map[common.FrameID]*list.Element
	cacheElems   map[common.FrameID]*list.Element

	evictableCount int
}

// New creates a replacer for numFrames candidate frames using history
// length k, the LRU-K parameter.
func New(numFrames int, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:            k,
		numFrames:    numFrames,
		history:      list.New(),
		cache:        list.New(),
		historyElems: make(map[common.FrameID]*list.Element),
		cacheElems:   make(map[common.FrameID]*list.Element),
	}
}

func (r *LRUKReplacer) checkBounds(frame common.FrameID) error {
	// Strict "<": frame == numFrames is out of range, not a valid edge case.
	if frame < 0 || int(frame) >= r.numFrames {
		return errors.Wrapf(ErrInvalidFrame, "frame %d (num_frames=%d)", frame, r.numFrames)
	}
	return nil
}

// RecordAccess records a reference to frame at the current logical time.
// The frame moves to the front of its list; once its access count
// reaches k, it migrates from the history list to the cache list.
func (r *LRUKReplacer) RecordAccess(frame common.FrameID) error {
	if err := r.checkBounds(frame); err != nil {
		return err
	}

	if el, ok := r.cacheElems[frame]; ok {
		e := el.Value.(*entry)
		e.accesses++
		r.cache.MoveToFront(el)
		return nil
	}

	if el, ok := r.historyElems[frame]; ok {
		e := el.Value.(*entry)
		e.accesses++
		if e.accesses >= r.k {
			r.history.Remove(el)
			delete(r.historyElems, frame)
			r.cacheElems[frame] = r.cache.PushFront(e)
		} else {
			r.history.MoveToFront(el)
		}
		return nil
	}

	e := &entry{frameID: frame, accesses: 1}
	if r.k <= 1 {
		r.cacheElems[frame] = r.cache.PushFront(e)
	} else {
		r.historyElems[frame] = r.history.PushFront(e)
	}
	return nil
}

// SetEvictable toggles whether frame is a candidate for Evict. It is a
// no-op for a frame that has never been accessed.
func (r *LRUKReplacer) SetEvictable(frame common.FrameID, evictable bool) error {
	if err := r.checkBounds(frame); err != nil {
		return err
	}
	e := r.find(frame)
	if e == nil {
		return nil
	}
	if e.evictable == evictable {
		return nil
	}
	e.evictable = evictable
	if evictable {
		r.evictableCount++
	} else {
		r.evictableCount--
	}
	return nil
}

func (r *LRUKReplacer) find(frame common.FrameID) *entry {
	if el, ok := r.historyElems[frame]; ok {
		return el.Value.(*entry)
	}
	if el, ok := r.cacheElems[frame]; ok {
		return el.Value.(*entry)
	}
	return nil
}

// Evict selects a victim: the least-recently-touched evictable frame in
// the history list if one exists (infinite backward-k-distance beats any
// finite one), else the least-recently-touched evictable frame in the
// cache list. Returns ok=false if no evictable frame exists anywhere.
func (r *LRUKReplacer) Evict() (frame common.FrameID, ok bool) {
	if el := r.evictableFromBack(r.history); el != nil {
		e := el.Value.(*entry)
		r.history.Remove(el)
		delete(r.historyElems, e.frameID)
		return r.finishEvict(e), true
	}
	if el := r.evictableFromBack(r.cache); el != nil {
		e := el.Value.(*entry)
		r.cache.Remove(el)
		delete(r.cacheElems, e.frameID)
		return r.finishEvict(e), true
	}
	return 0, false
}

func (r *LRUKReplacer) evictableFromBack(l *list.List) *list.Element {
	for el := l.Back(); el != nil; el = el.Prev() {
		if el.Value.(*entry).evictable {
			return el
		}
	}
	return nil
}

func (r *LRUKReplacer) finishEvict(e *entry) common.FrameID {
	r.evictableCount--
	return e.frameID
}

// Remove forcibly drops frame from whichever list holds it, clearing its
// history. Used by the buffer pool when a page is explicitly deleted; the
// caller must not invoke this on a frame that is evictable=false with a
// pin still outstanding elsewhere (caller invariant, not checked here).
func (r *LRUKReplacer) Remove(frame common.FrameID) error {
	if err := r.checkBounds(frame); err != nil {
		return err
	}
	if el, ok := r.historyElems[frame]; ok {
		e := el.Value.(*entry)
		if e.evictable {
			r.evictableCount--
		}
		r.history.Remove(el)
		delete(r.historyElems, frame)
		return nil
	}
	if el, ok := r.cacheElems[frame]; ok {
		e := el.Value.(*entry)
		if e.evictable {
			r.evictableCount--
		}
		r.cache.Remove(el)
		delete(r.cacheElems, frame)
		return nil
	}
	return nil
}

// Size returns the number of frames currently marked evictable.
func (r *LRUKReplacer) Size() int {
	return r.evictableCount
}
