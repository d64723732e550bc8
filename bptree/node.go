package bptree

import (
	"cmp"
	"sort"

	"github.com/cairndb/cairn/disk"
)

// nodeKind tags which concrete node a page holds, mirroring spec.md §6's
// page_type header field. Grounded in
// original_source/src/storage/page/b_plus_tree_page.h's IndexPageType enum,
// generalized to a Go polymorphism-by-tag rather than subtype dispatch.
type nodeKind uint8

const (
	kindLeaf nodeKind = iota
	kindInternal
)

// leafNode is a B+ tree leaf: a sorted run of (key, value) pairs plus the
// next leaf in the sibling chain. Grounded in
// original_source/src/storage/page/b_plus_tree_leaf_page.cpp, transliterated
// from BusTub's packed fixed-size array into a plain slice that rides whole
// through the buffer pool via msgpack (see page.go).
type leafNode[K cmp.Ordered, V any] struct {
	PageID       disk.PageID
	ParentPageID disk.PageID
	NextPageID   disk.PageID
	MaxSize      int
	Keys         []K
	Values       []V
}

func newLeaf[K cmp.Ordered, V any](pageID, parentID disk.PageID, maxSize int) *leafNode[K, V] {
	return &leafNode[K, V]{
		PageID:       pageID,
		ParentPageID: parentID,
		NextPageID:   disk.InvalidPageID,
		MaxSize:      maxSize,
	}
}

// Size returns the number of entries currently stored.
func (n *leafNode[K, V]) Size() int { return len(n.Keys) }

// MinSize is the fewest entries a non-root leaf may hold before it underflows.
func (n *leafNode[K, V]) MinSize() int { return (n.MaxSize + 1) / 2 }

// IsOverfull reports whether the leaf exceeds MaxSize and must split.
func (n *leafNode[K, V]) IsOverfull() bool { return len(n.Keys) > n.MaxSize }

// keyIndex returns the first index whose key is >= target (sort.Search lower
// bound), equal to Size() if every key is smaller.
func (n *leafNode[K, V]) keyIndex(key K) int {
	return sort.Search(len(n.Keys), func(i int) bool { return n.Keys[i] >= key })
}

// Lookup returns the value stored under key, if present.
func (n *leafNode[K, V]) Lookup(key K) (V, bool) {
	idx := n.keyIndex(key)
	if idx < len(n.Keys) && n.Keys[idx] == key {
		return n.Values[idx], true
	}
	var zero V
	return zero, false
}

// Insert adds (key, value) in sorted order. Reports false without modifying
// the leaf if key is already present (spec.md's unique-key duplicate rule).
func (n *leafNode[K, V]) Insert(key K, value V) bool {
	idx := n.keyIndex(key)
	if idx < len(n.Keys) && n.Keys[idx] == key {
		return false
	}
	n.Keys = append(n.Keys, key)
	n.Values = append(n.Values, value)
	copy(n.Keys[idx+1:], n.Keys[idx:len(n.Keys)-1])
	copy(n.Values[idx+1:], n.Values[idx:len(n.Values)-1])
	n.Keys[idx] = key
	n.Values[idx] = value
	return true
}

// RemoveAt deletes the entry at idx.
func (n *leafNode[K, V]) RemoveAt(idx int) {
	n.Keys = append(n.Keys[:idx], n.Keys[idx+1:]...)
	n.Values = append(n.Values[:idx], n.Values[idx+1:]...)
}

// MoveHalfTo splits off the upper size-MinSize entries into dst, keeping the
// lower MinSize entries in n. Grounded in
// B_PLUS_TREE_LEAF_PAGE_TYPE::MoveHalfTo.
func (n *leafNode[K, V]) MoveHalfTo(dst *leafNode[K, V]) {
	keep := n.MinSize()
	dst.Keys = append(dst.Keys, n.Keys[keep:]...)
	dst.Values = append(dst.Values, n.Values[keep:]...)
	n.Keys = n.Keys[:keep]
	n.Values = n.Values[:keep]
}

// MoveFirstTo moves n's first entry onto the end of dst (right-borrow during
// redistribution).
func (n *leafNode[K, V]) MoveFirstTo(dst *leafNode[K, V]) {
	dst.Keys = append(dst.Keys, n.Keys[0])
	dst.Values = append(dst.Values, n.Values[0])
	n.RemoveAt(0)
}

// MoveLastTo moves n's last entry onto the front of dst (left-borrow during
// redistribution).
func (n *leafNode[K, V]) MoveLastTo(dst *leafNode[K, V]) {
	last := len(n.Keys) - 1
	dst.Keys = append([]K{n.Keys[last]}, dst.Keys...)
	dst.Values = append([]V{n.Values[last]}, dst.Values...)
	n.RemoveAt(last)
}

// MoveAllTo appends every entry of n onto the end of dst, leaving n empty.
func (n *leafNode[K, V]) MoveAllTo(dst *leafNode[K, V]) {
	dst.Keys = append(dst.Keys, n.Keys...)
	dst.Values = append(dst.Values, n.Values...)
	n.Keys = nil
	n.Values = nil
}

// internalNode routes keys to children: Keys[0] is unused padding (per
// spec.md §6, slot 0's key is padding) and Keys[i] for i>=1 is the lower
// bound separator for Children[i]. Grounded in
// original_source/src/storage/page/b_plus_tree_internal_page.cpp.
type internalNode[K cmp.Ordered] struct {
	PageID       disk.PageID
	ParentPageID disk.PageID
	MaxSize      int
	Keys         []K
	Children     []disk.PageID
}

func newInternal[K cmp.Ordered](pageID, parentID disk.PageID, maxSize int) *internalNode[K] {
	return &internalNode[K]{
		PageID:       pageID,
		ParentPageID: parentID,
		MaxSize:      maxSize,
	}
}

func (n *internalNode[K]) Size() int        { return len(n.Children) }
func (n *internalNode[K]) MinSize() int     { return (n.MaxSize + 1) / 2 }
func (n *internalNode[K]) IsOverfull() bool { return len(n.Children) > n.MaxSize }

// Lookup returns the child page id whose subtree may contain key: the
// rightmost child whose separator is <= key.
func (n *internalNode[K]) Lookup(key K) disk.PageID {
	idx := sort.Search(len(n.Keys)-1, func(i int) bool { return n.Keys[i+1] > key }) + 1
	return n.Children[idx-1]
}

// childIndex returns the index of child in Children.
func (n *internalNode[K]) childIndex(child disk.PageID) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// InsertAfter inserts (key, newChild) immediately after oldChild.
func (n *internalNode[K]) InsertAfter(oldChild disk.PageID, key K, newChild disk.PageID) {
	idx := n.childIndex(oldChild) + 1
	n.Keys = append(n.Keys, key)
	n.Children = append(n.Children, newChild)
	copy(n.Keys[idx+1:], n.Keys[idx:len(n.Keys)-1])
	copy(n.Children[idx+1:], n.Children[idx:len(n.Children)-1])
	n.Keys[idx] = key
	n.Children[idx] = newChild
}

// RemoveAt deletes the key/child pair at idx.
func (n *internalNode[K]) RemoveAt(idx int) {
	n.Keys = append(n.Keys[:idx], n.Keys[idx+1:]...)
	n.Children = append(n.Children[:idx], n.Children[idx+1:]...)
}

// MoveHalfTo splits off the upper half into dst, raw array positions intact.
// dst.Keys[0] lands holding what was a real separator in n (n.Keys[keep]);
// the caller promotes that value into the parent as the split key and it
// becomes unused padding in dst from then on — this mirrors
// B_PLUS_TREE_INTERNAL_PAGE_TYPE::MoveHalfTo exactly, where the promoted key
// is read back via dst_page->KeyAt(0) after the raw copy. Re-parenting of
// moved children is the caller's job (tree.go), since it requires the buffer
// pool.
func (n *internalNode[K]) MoveHalfTo(dst *internalNode[K]) {
	keep := n.MinSize()
	dst.Keys = append(dst.Keys, n.Keys[keep:]...)
	dst.Children = append(dst.Children, n.Children[keep:]...)
	n.Keys = n.Keys[:keep]
	n.Children = n.Children[:keep]
}
