package lrureplace

import "github.com/cairndb/cairn/disk"

// node is one tracked frame's access history, kept on an intrusive doubly
// linked list (either history or cache — see Replacer). Its list position
// encodes recency: closer to the list's head is older, closer to the tail is
// newer.
//
// Grounded in jobala-petro/buffer/lru_k_node.go, completed: in place of the
// teacher's timestamp slice this version keeps only accessCount (checked by
// hasKAccesses) and uses the list position itself as recency, matching the
// original BusTub FrameInfo (times + timestamp) more directly and avoiding
// an unbounded-looking history buffer for a value the spec only needs as a
// counter.
type node struct {
	prev, next *node

	frameID     disk.FrameID
	accessCount int
	evictable   bool
	inCache     bool
}

func (n *node) hasKAccesses(k int) bool {
	return n.accessCount >= k
}
