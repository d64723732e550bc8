package buffer

import "github.com/cairndb/cairn/disk"

// PageGuard is a scoped handle over a pinned page, returned by NewPage and
// FetchPage. The caller owes exactly one Unpin per successful call that
// returned a guard; the guard's Data is only valid until then.
//
// Grounded in jobala-petro/buffer/page_guard.go, simplified: the teacher's
// ReadPageGuard/WritePageGuard split and its per-frame sync.RWMutex are
// dropped along with frame's own lock (see frame.go) — spec.md §5 only
// requires the buffer pool's single mutex, not per-frame read/write
// latches, and a reader/writer split buys nothing without the latter.
type PageGuard struct {
	bpm *BufferPoolManager
	f   *frame

	dirty   bool
	unpinned bool
}

// PageID returns the id of the page this guard pins.
func (g *PageGuard) PageID() disk.PageID {
	return g.f.pageID
}

// Data returns the page's byte buffer. The caller may read and write it
// directly; call MarkDirty (or pass dirty=true to Unpin) after writing.
func (g *PageGuard) Data() []byte {
	return g.f.data
}

// MarkDirty flags that this guard's writes must be persisted before
// eviction. Equivalent to passing dirty=true to Unpin, but usable
// mid-operation before the guard is dropped.
func (g *PageGuard) MarkDirty() {
	g.dirty = true
}

// Unpin releases the pin this guard holds, marking the frame evictable if
// its pin count reaches zero. dirty, if true, marks the frame dirty (in
// addition to any prior MarkDirty call); it is never used to clear an
// already-set dirty flag. Unpin is idempotent: calling it more than once has
// no effect after the first call.
func (g *PageGuard) Unpin(dirty bool) {
	if g.unpinned {
		return
	}
	g.unpinned = true
	g.bpm.UnpinPage(g.f.pageID, dirty || g.dirty)
}
