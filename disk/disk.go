// Package disk provides the page-addressed storage abstraction the rest of
// the engine builds on: fixed-size pages identified by a monotonically
// allocated id, read and written through a small Manager interface.
package disk

// PageSize is the fixed size, in bytes, of every page the engine reads or
// writes. Variable-size pages are an explicit non-goal.
const PageSize = 4096

// PageID identifies a page. InvalidPageID denotes absence.
type PageID = int64

// InvalidPageID is the sentinel page id meaning "no page".
const InvalidPageID PageID = -1

// FrameID names a slot in the buffer pool's in-memory frame array.
type FrameID = int

// InvalidFrameID is the sentinel frame id meaning "no frame".
const InvalidFrameID FrameID = -1

// Manager is the block-device abstraction the buffer pool reads through and
// writes back to. Its durability semantics are the underlying device's; the
// engine treats it as a reliable, opaque collaborator.
type Manager interface {
	// ReadPage fills out, which must be exactly PageSize bytes long, with
	// the contents of page id. Contents are undefined if id was never
	// written.
	ReadPage(id PageID, out []byte) error
	// WritePage writes exactly PageSize bytes of data to page id.
	WritePage(id PageID, data []byte) error
}
