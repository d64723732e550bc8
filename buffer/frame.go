package buffer

import "github.com/cairndb/cairn/disk"

// frame is one in-memory slot of the buffer pool: a fixed-size byte buffer
// plus the metadata spec.md §3 requires (owning page id, pin count, dirty
// flag). Grounded in jobala-petro/buffer/frame.go, minus its per-frame
// sync.RWMutex — spec.md §5 explicitly does not require per-frame latches,
// and the buffer pool's single mutex already serializes every access to a
// frame's metadata and data.
type frame struct {
	id     disk.FrameID
	pageID disk.PageID
	data   []byte
	pinCnt int
	dirty  bool
}

func newFrame(id disk.FrameID) *frame {
	return &frame{
		id:     id,
		pageID: disk.InvalidPageID,
		data:   make([]byte, disk.PageSize),
	}
}

// reset clears a frame's metadata and zeroes its buffer, readying it to take
// on a new page identity.
func (f *frame) reset() {
	f.pageID = disk.InvalidPageID
	f.pinCnt = 0
	f.dirty = false
	clear(f.data)
}
