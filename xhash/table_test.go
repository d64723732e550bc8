package xhash_test

import (
	"fmt"
	"testing"

	"github.com/cairndb/cairn/xhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMissOnEmptyTable(t *testing.T) {
	tbl := xhash.New[int64, int](4, xhash.HashInt64)
	_, ok := tbl.Find(1)
	assert.False(t, ok)
}

func TestInsertThenFind(t *testing.T) {
	tbl := xhash.New[int64, int](4, xhash.HashInt64)
	tbl.Insert(1, 100)
	tbl.Insert(2, 200)

	v, ok := tbl.Find(1)
	require.True(t, ok)
	assert.Equal(t, 100, v)

	v, ok = tbl.Find(2)
	require.True(t, ok)
	assert.Equal(t, 200, v)
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	tbl := xhash.New[int64, int](4, xhash.HashInt64)
	tbl.Insert(1, 100)
	tbl.Insert(1, 999)

	v, ok := tbl.Find(1)
	require.True(t, ok)
	assert.Equal(t, 999, v)
}

func TestRemove(t *testing.T) {
	tbl := xhash.New[int64, int](4, xhash.HashInt64)
	tbl.Insert(1, 100)

	assert.True(t, tbl.Remove(1))
	assert.False(t, tbl.Remove(1))

	_, ok := tbl.Find(1)
	assert.False(t, ok)
}

func TestDirectoryGrowsOnOverflow(t *testing.T) {
	// spec.md §8 scenario 4: bucket_size=2, global_depth=0, insert three
	// keys with distinct hashes; global_depth becomes at least 1, num
	// buckets >= 2, all three keys remain findable.
	tbl := xhash.New[int64, int](2, xhash.HashInt64)

	for i := int64(1); i <= 3; i++ {
		tbl.Insert(i, int(i*10))
	}

	assert.GreaterOrEqual(t, tbl.GlobalDepth(), 1)
	assert.GreaterOrEqual(t, tbl.NumBuckets(), 2)

	for i := int64(1); i <= 3; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok, "key %d should be findable", i)
		assert.Equal(t, int(i*10), v)
	}
}

func TestDirectoryInvariantsHoldUnderManyInserts(t *testing.T) {
	tbl := xhash.New[int64, int](3, xhash.HashInt64)

	const n = 500
	for i := int64(0); i < n; i++ {
		tbl.Insert(i, int(i))
	}

	dirLen := tbl.DirectoryLen()
	assert.Equal(t, 1<<tbl.GlobalDepth(), dirLen)

	// every directory slot's local depth must not exceed global depth.
	for i := 0; i < dirLen; i++ {
		assert.LessOrEqual(t, tbl.LocalDepthAt(i), tbl.GlobalDepth())
	}

	for i := int64(0); i < n; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok, "key %d should be findable", i)
		assert.Equal(t, int(i), v)
	}
}

func TestStringKeyedTable(t *testing.T) {
	tbl := xhash.New[string, int](2, xhash.HashString)
	for i := 0; i < 20; i++ {
		tbl.Insert(fmt.Sprintf("key-%d", i), i)
	}
	for i := 0; i < 20; i++ {
		v, ok := tbl.Find(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}
