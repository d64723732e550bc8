package buffer

import "errors"

// ErrPoolExhausted is returned by NewPage/FetchPage when the pool has
// neither a free frame nor an evictable one.
var ErrPoolExhausted = errors.New("buffer: pool exhausted, no free or evictable frame")
