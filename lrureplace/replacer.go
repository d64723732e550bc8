// Package lrureplace implements the LRU-K frame replacement policy: frames
// with fewer than k recorded accesses are preferred eviction victims over
// frames with k or more, and ties within either class break by recency.
//
// Grounded in jobala-petro/buffer/lru_k_replacer.go (whose SetEvictable and
// Evict are unimplemented stubs) and the original BusTub
// temp_pool/cache_pool design in
// original_source/src/buffer/lru_k_replacer.cpp.
package lrureplace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cairndb/cairn/disk"
)

// ErrNotEvictable is returned by Remove when asked to drop a frame that is
// not currently marked evictable — a precondition violation, per spec.
var ErrNotEvictable = errors.New("lrureplace: frame is not evictable")

// Replacer tracks access history for up to replacerSize frames and selects
// eviction victims using the LRU-K heuristic.
type Replacer struct {
	mu sync.Mutex

	k             int
	replacerSize  int
	evictableSize int

	nodes map[disk.FrameID]*node

	historyHead, historyTail *node
	cacheHead, cacheTail     *node
}

// New builds a Replacer tracking up to replacerSize frames, evicting frames
// with fewer than k accesses before any frame with k or more.
func New(replacerSize, k int) *Replacer {
	historyHead, historyTail := &node{}, &node{}
	historyHead.next, historyTail.prev = historyTail, historyHead

	cacheHead, cacheTail := &node{}, &node{}
	cacheHead.next, cacheTail.prev = cacheTail, cacheHead

	return &Replacer{
		k:            k,
		replacerSize: replacerSize,
		nodes:        make(map[disk.FrameID]*node),
		historyHead:  historyHead,
		historyTail:  historyTail,
		cacheHead:    cacheHead,
		cacheTail:    cacheTail,
	}
}

// RecordAccess records one access to frameID. A frame not seen before starts
// a new history record with count 1. A frame already in history has its
// count bumped, graduating to the cache list (at its tail) once the count
// reaches k; its history position is left untouched until then, since that
// position is the timestamp of its oldest access, not its most recent one.
// A frame already in the cache list moves to its tail.
func (r *Replacer) RecordAccess(frameID disk.FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, tracked := r.nodes[frameID]
	if !tracked {
		n = &node{frameID: frameID, accessCount: 1}
		r.nodes[frameID] = n
		r.appendTail(r.historyHead, r.historyTail, n)
		return
	}

	if n.inCache {
		r.unlink(n)
		r.appendTail(r.cacheHead, r.cacheTail, n)
		return
	}

	n.accessCount++
	if n.hasKAccesses(r.k) {
		r.unlink(n)
		n.inCache = true
		r.appendTail(r.cacheHead, r.cacheTail, n)
	}
}

// SetEvictable flips whether frameID may be chosen by Evict. A no-op if the
// frame is not tracked.
func (r *Replacer) SetEvictable(frameID disk.FrameID, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, tracked := r.nodes[frameID]
	if !tracked || n.evictable == evictable {
		return
	}

	n.evictable = evictable
	if evictable {
		r.evictableSize++
	} else {
		r.evictableSize--
	}
}

// Evict picks a victim: the oldest evictable record in history if one
// exists, else the oldest evictable record in cache. Returns
// (disk.InvalidFrameID, false) if no record is evictable.
func (r *Replacer) Evict() (disk.FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := r.firstEvictable(r.historyHead, r.historyTail); n != nil {
		r.removeNodeLocked(n)
		return n.frameID, true
	}
	if n := r.firstEvictable(r.cacheHead, r.cacheTail); n != nil {
		r.removeNodeLocked(n)
		return n.frameID, true
	}
	return disk.InvalidFrameID, false
}

// Remove drops frameID's record entirely. It is a precondition violation to
// remove a record that is not evictable; unknown frames are a no-op.
func (r *Replacer) Remove(frameID disk.FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, tracked := r.nodes[frameID]
	if !tracked {
		return nil
	}
	if !n.evictable {
		return fmt.Errorf("%w: frame %d", ErrNotEvictable, frameID)
	}
	r.removeNodeLocked(n)
	return nil
}

// Size reports the number of records currently marked evictable.
func (r *Replacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictableSize
}

func (r *Replacer) firstEvictable(head, tail *node) *node {
	for n := head.next; n != tail; n = n.next {
		if n.evictable {
			return n
		}
	}
	return nil
}

func (r *Replacer) removeNodeLocked(n *node) {
	r.unlink(n)
	delete(r.nodes, n.frameID)
	if n.evictable {
		r.evictableSize--
	}
}

func (r *Replacer) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

func (r *Replacer) appendTail(head, tail *node, n *node) {
	last := tail.prev
	last.next = n
	n.prev = last
	n.next = tail
	tail.prev = n
}
