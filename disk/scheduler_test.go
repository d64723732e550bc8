package disk_test

import (
	"sync"
	"testing"

	"github.com/cairndb/cairn/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerWriteThenRead(t *testing.T) {
	fm := tempFileManager(t)
	sched := disk.NewScheduler(fm)

	page := make([]byte, disk.PageSize)
	page[0] = 0x42

	writeResp := <-sched.Schedule(disk.NewWriteRequest(7, page))
	require.NoError(t, writeResp.Err)

	readResp := <-sched.Schedule(disk.NewReadRequest(7))
	require.NoError(t, readResp.Err)
	assert.Equal(t, byte(0x42), readResp.Data[0])
}

func TestSchedulerHandlesConcurrentPages(t *testing.T) {
	fm := tempFileManager(t)
	sched := disk.NewScheduler(fm)

	var wg sync.WaitGroup
	for i := disk.PageID(0); i < 32; i++ {
		wg.Add(1)
		go func(id disk.PageID) {
			defer wg.Done()
			page := make([]byte, disk.PageSize)
			page[0] = byte(id)
			resp := <-sched.Schedule(disk.NewWriteRequest(id, page))
			assert.NoError(t, resp.Err)
		}(i)
	}
	wg.Wait()

	for i := disk.PageID(0); i < 32; i++ {
		resp := <-sched.Schedule(disk.NewReadRequest(i))
		require.NoError(t, resp.Err)
		assert.Equal(t, byte(i), resp.Data[0])
	}
}
