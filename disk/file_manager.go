package disk

import (
	"fmt"
	"os"
	"sync"
)

// defaultPageCapacity is the page count FileManager assumes before it first
// grows the backing file; NewFileManager does not size the file, and
// FileManager doubles the capacity (truncating the file to match) on demand.
const defaultPageCapacity = 16

// FileManager is the one concrete Manager this module ships: a flat file on
// disk, pages addressed by a growable offset table. It is the engine's
// stand-in for the out-of-scope block device.
//
// Grounded in jobala-petro/storage/disk/disk_manager.go. FileManager assigns
// a page id its offset once, the first time ReadPage or WritePage sees the
// id, and keeps that offset for the rest of its life. The offset table lives
// only in memory: a FileManager opened over a file written by an earlier one
// knows none of that file's pages, and ReadPage returns zeroed contents for
// them.
type FileManager struct {
	mu           sync.Mutex
	file         *os.File
	offsets      map[PageID]int64
	freeOffsets  []int64
	pageCapacity int64
}

// NewFileManager wraps an already-open file. The caller owns closing it.
func NewFileManager(file *os.File) *FileManager {
	return &FileManager{
		file:         file,
		offsets:      make(map[PageID]int64),
		pageCapacity: defaultPageCapacity,
	}
}

// WritePage implements Manager.
func (fm *FileManager) WritePage(id PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("disk: WritePage(%d): data must be %d bytes, got %d", id, PageSize, len(data))
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset, err := fm.offsetForLocked(id)
	if err != nil {
		return err
	}

	if _, err := fm.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("disk: WritePage(%d) at offset %d: %w", id, offset, err)
	}
	return nil
}

// ReadPage implements Manager.
func (fm *FileManager) ReadPage(id PageID, out []byte) error {
	if len(out) != PageSize {
		return fmt.Errorf("disk: ReadPage(%d): out must be %d bytes, got %d", id, PageSize, len(out))
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	offset, known := fm.offsets[id]
	if !known {
		// Never written: undefined contents, per spec. Zero the buffer and
		// reserve the offset so a later write lands in the same place.
		var err error
		offset, err = fm.allocateLocked(id)
		if err != nil {
			return err
		}
		clear(out)
		return nil
	}

	if _, err := fm.file.ReadAt(out, offset); err != nil {
		return fmt.Errorf("disk: ReadPage(%d) at offset %d: %w", id, offset, err)
	}
	return nil
}

// DeletePage reclaims a page's on-disk offset for reuse by a later page id.
// The page id itself is never reused by the engine (see buffer pool's
// next-page-id counter); this just recycles file space.
func (fm *FileManager) DeletePage(id PageID) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if offset, ok := fm.offsets[id]; ok {
		fm.freeOffsets = append(fm.freeOffsets, offset)
		delete(fm.offsets, id)
	}
}

func (fm *FileManager) offsetForLocked(id PageID) (int64, error) {
	if offset, ok := fm.offsets[id]; ok {
		return offset, nil
	}
	return fm.allocateLocked(id)
}

func (fm *FileManager) allocateLocked(id PageID) (int64, error) {
	var offset int64
	if n := len(fm.freeOffsets); n > 0 {
		offset = fm.freeOffsets[0]
		fm.freeOffsets = fm.freeOffsets[1:]
	} else {
		offset = int64(len(fm.offsets)) * PageSize
		if int64(len(fm.offsets)+1) > fm.pageCapacity {
			fm.pageCapacity *= 2
			if err := fm.file.Truncate(fm.pageCapacity * PageSize); err != nil {
				return 0, fmt.Errorf("disk: growing backing file to %d pages: %w", fm.pageCapacity, err)
			}
		}
	}
	fm.offsets[id] = offset
	return offset, nil
}
