package buffer_test

import (
	"os"
	"testing"

	"github.com/cairndb/cairn/buffer"
	"github.com/cairndb/cairn/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, poolSize, replacerK int) *buffer.BufferPoolManager {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cairn-*.db")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return buffer.New(poolSize, replacerK, disk.NewFileManager(f))
}

func TestPinExhaustion(t *testing.T) {
	// spec.md §8 scenario 1.
	bpm := newTestPool(t, 3, 2)

	g1, err := bpm.NewPage()
	require.NoError(t, err)
	_, err = bpm.NewPage()
	require.NoError(t, err)
	_, err = bpm.NewPage()
	require.NoError(t, err)

	_, err = bpm.NewPage()
	assert.ErrorIs(t, err, buffer.ErrPoolExhausted)

	g1.Unpin(false)

	_, err = bpm.NewPage()
	assert.NoError(t, err)
}

func TestDirtyWriteBackOnEviction(t *testing.T) {
	// spec.md §8 scenario 2.
	bpm := newTestPool(t, 2, 2)

	g, err := bpm.NewPage()
	require.NoError(t, err)
	pageID := g.PageID()
	g.Data()[0] = 0xAB
	g.Unpin(true)

	// Force eviction of pageID by fetching enough distinct pages to exhaust
	// the pool's free frames.
	for i := 0; i < 4; i++ {
		np, err := bpm.NewPage()
		require.NoError(t, err)
		np.Unpin(false)
	}

	fetched, err := bpm.FetchPage(pageID)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), fetched.Data()[0])
	fetched.Unpin(false)
}

func TestUnpinUnknownOrAlreadyUnpinnedPageFails(t *testing.T) {
	bpm := newTestPool(t, 2, 2)

	assert.False(t, bpm.UnpinPage(999, false))

	g, err := bpm.NewPage()
	require.NoError(t, err)
	id := g.PageID()
	g.Unpin(false)

	assert.False(t, bpm.UnpinPage(id, false))
}

func TestFlushPageClearsDirtyAndPersists(t *testing.T) {
	// k=3 keeps the page in the replacer's history list after its second
	// access, so it is the first victim of the evictions below.
	bpm := newTestPool(t, 2, 3)

	g, err := bpm.NewPage()
	require.NoError(t, err)
	id := g.PageID()
	g.Data()[0] = 0x7F
	g.Unpin(true)

	// Re-pin the dirty page, flush it, then overwrite the resident copy and
	// unpin it as clean. Since FlushPage cleared the dirty flag, eviction
	// drops the overwrite instead of writing it back.
	g, err = bpm.FetchPage(id)
	require.NoError(t, err)
	assert.True(t, bpm.FlushPage(id))
	g.Data()[0] = 0x00
	g.Unpin(false)

	for i := 0; i < bpm.PoolSize(); i++ {
		np, err := bpm.NewPage()
		require.NoError(t, err)
		np.Unpin(false)
	}

	fetched, err := bpm.FetchPage(id)
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), fetched.Data()[0])
	fetched.Unpin(false)
}

func TestFlushPageOnAbsentOrInvalidID(t *testing.T) {
	bpm := newTestPool(t, 2, 2)
	assert.False(t, bpm.FlushPage(disk.InvalidPageID))
	assert.False(t, bpm.FlushPage(42))
}

func TestDeletePageReturnsFrameToFreeList(t *testing.T) {
	bpm := newTestPool(t, 1, 2)

	g, err := bpm.NewPage()
	require.NoError(t, err)
	id := g.PageID()

	assert.False(t, bpm.DeletePage(id), "still pinned")
	g.Unpin(false)
	assert.True(t, bpm.DeletePage(id))

	// frame is free again
	_, err = bpm.NewPage()
	assert.NoError(t, err)
}

func TestDeletePageOnAbsentPageIsNoop(t *testing.T) {
	bpm := newTestPool(t, 2, 2)
	assert.True(t, bpm.DeletePage(12345))
}

func TestDeletedPageIDIsNeverReused(t *testing.T) {
	// spec.md §8: after delete_page followed by new_page x pool_size, the
	// deleted page never reappears in the directory.
	bpm := newTestPool(t, 2, 2)

	g, err := bpm.NewPage()
	require.NoError(t, err)
	deletedID := g.PageID()
	g.Unpin(false)
	require.True(t, bpm.DeletePage(deletedID))

	for i := 0; i < bpm.PoolSize(); i++ {
		np, err := bpm.NewPage()
		require.NoError(t, err)
		assert.NotEqual(t, deletedID, np.PageID())
		np.Unpin(false)
	}
}

func TestRoundTripNewThenFetchPreservesContents(t *testing.T) {
	bpm := newTestPool(t, 4, 2)

	ids := make([]disk.PageID, 0, bpm.PoolSize())
	for i := 0; i < bpm.PoolSize(); i++ {
		g, err := bpm.NewPage()
		require.NoError(t, err)
		g.Data()[0] = byte(i)
		ids = append(ids, g.PageID())
		g.Unpin(true)
	}

	for i, id := range ids {
		g, err := bpm.FetchPage(id)
		require.NoError(t, err)
		assert.Equal(t, byte(i), g.Data()[0])
		g.Unpin(false)
	}
}
