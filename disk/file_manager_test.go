package disk_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/cairndb/cairn/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFileManager(t *testing.T) *disk.FileManager {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cairn-*.db")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return disk.NewFileManager(f)
}

func TestFileManagerWriteThenRead(t *testing.T) {
	fm := tempFileManager(t)

	page := make([]byte, disk.PageSize)
	page[0] = 0xAB
	page[disk.PageSize-1] = 0xCD

	require.NoError(t, fm.WritePage(0, page))

	out := make([]byte, disk.PageSize)
	require.NoError(t, fm.ReadPage(0, out))
	assert.True(t, bytes.Equal(page, out))
}

func TestFileManagerReadUnwrittenPageIsZeroed(t *testing.T) {
	fm := tempFileManager(t)

	out := make([]byte, disk.PageSize)
	for i := range out {
		out[i] = 0x11
	}
	require.NoError(t, fm.ReadPage(42, out))

	assert.True(t, bytes.Equal(out, make([]byte, disk.PageSize)))
}

func TestFileManagerGrowsBackingFile(t *testing.T) {
	fm := tempFileManager(t)

	page := make([]byte, disk.PageSize)
	for i := int64(0); i < 64; i++ {
		page[0] = byte(i)
		require.NoError(t, fm.WritePage(i, page))
	}

	for i := int64(0); i < 64; i++ {
		out := make([]byte, disk.PageSize)
		require.NoError(t, fm.ReadPage(i, out))
		assert.Equal(t, byte(i), out[0])
	}
}

func TestFileManagerRejectsWrongSizedBuffers(t *testing.T) {
	fm := tempFileManager(t)

	err := fm.WritePage(0, make([]byte, 10))
	assert.Error(t, err)

	err = fm.ReadPage(0, make([]byte, 10))
	assert.Error(t, err)
}

func TestFileManagerDeletePageFreesOffsetForReuse(t *testing.T) {
	fm := tempFileManager(t)

	page := make([]byte, disk.PageSize)
	page[0] = 1
	require.NoError(t, fm.WritePage(0, page))
	fm.DeletePage(0)

	page[0] = 2
	require.NoError(t, fm.WritePage(1, page))

	out := make([]byte, disk.PageSize)
	require.NoError(t, fm.ReadPage(1, out))
	assert.Equal(t, byte(2), out[0])
}
