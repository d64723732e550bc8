package xhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashInt64 is the HashFunc used to key the buffer pool's page_id -> frame_id
// directory (see buffer.New), and is generally useful for
// any Table keyed by a 64-bit integer id.
func HashInt64(key int64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return xxhash.Sum64(buf[:])
}

// HashString is a HashFunc for Tables keyed by strings.
func HashString(key string) uint64 {
	return xxhash.Sum64String(key)
}
