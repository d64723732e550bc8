// Package util holds the msgpack page codec shared by the storage packages.
package util

import (
	"fmt"

	"github.com/cairndb/cairn/disk"
	"github.com/vmihailenco/msgpack"
)

// EncodePage msgpack-encodes obj into a fresh, PageSize-length buffer
// suitable for handing to a buffer pool page. Completes
// jobala-petro/util/convert.go's ToByteSlice, which never checked that the
// encoded form actually fit in a page.
func EncodePage[T any](obj T) ([]byte, error) {
	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("util: encoding page: %w", err)
	}
	if len(data) > disk.PageSize {
		return nil, fmt.Errorf("util: encoded page is %d bytes, exceeds page size %d", len(data), disk.PageSize)
	}

	buf := make([]byte, disk.PageSize)
	copy(buf, data)
	return buf, nil
}

// DecodePage msgpack-decodes a page buffer produced by EncodePage back into
// a T. Completes jobala-petro/util/convert.go's ToStruct, which swallowed
// unmarshal errors (`return res, nil` on the err != nil branch).
func DecodePage[T any](data []byte) (T, error) {
	var res T
	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("util: decoding page: %w", err)
	}
	return res, nil
}
