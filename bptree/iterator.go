package bptree

import (
	"cmp"
	"fmt"

	"github.com/cairndb/cairn/buffer"
	"github.com/cairndb/cairn/disk"
)

// Iterator walks a tree's leaf chain in ascending key order. It holds
// exactly one pinned leaf page at a time — per spec.md §9's noted open
// question, a long-lived iterator therefore blocks eviction of whichever
// leaf it currently rests on, and callers should Close (or exhaust) it
// promptly rather than hold it across unrelated work.
//
// Grounded in spec.md §4.4's iteration prose; BusTub's own INDEXITERATOR_TYPE
// (original_source/src/storage/index/b_plus_tree.cpp's Begin/End) is a
// stub returning a default-constructed iterator, so the walk itself is
// authored fresh here.
type Iterator[K cmp.Ordered, V any] struct {
	tree *Tree[K, V]
	g    *buffer.PageGuard
	leaf *leafNode[K, V]
	idx  int
	done bool
}

// Begin returns an iterator positioned at the first entry of the leftmost
// leaf.
func (t *Tree[K, V]) Begin() (*Iterator[K, V], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.IsEmpty() {
		return &Iterator[K, V]{tree: t, done: true}, nil
	}
	g, err := t.descendToEdge(true)
	if err != nil {
		return nil, err
	}
	leaf, err := readLeaf[K, V](g)
	if err != nil {
		g.Unpin(false)
		return nil, err
	}
	it := &Iterator[K, V]{tree: t, g: g, leaf: leaf}
	if len(leaf.Keys) == 0 {
		if err := it.rollForward(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// BeginAt returns an iterator positioned at the first entry whose key is
// >= key.
func (t *Tree[K, V]) BeginAt(key K) (*Iterator[K, V], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.IsEmpty() {
		return &Iterator[K, V]{tree: t, done: true}, nil
	}
	g, err := t.descendToLeaf(key)
	if err != nil {
		return nil, err
	}
	leaf, err := readLeaf[K, V](g)
	if err != nil {
		g.Unpin(false)
		return nil, err
	}
	it := &Iterator[K, V]{tree: t, g: g, leaf: leaf, idx: leaf.keyIndex(key)}
	if it.idx >= len(leaf.Keys) {
		if err := it.rollForward(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// End returns an exhausted iterator, positioned one past the last entry of
// the rightmost leaf.
func (t *Tree[K, V]) End() (*Iterator[K, V], error) {
	return &Iterator[K, V]{tree: t, done: true}, nil
}

// descendToEdge descends to the leftmost (leftmost=true) or rightmost leaf.
func (t *Tree[K, V]) descendToEdge(leftmost bool) (*buffer.PageGuard, error) {
	g, err := t.bpm.FetchPage(t.rootPageID)
	if err != nil {
		return nil, fmt.Errorf("bptree: fetching root page %d: %w", t.rootPageID, err)
	}
	for {
		kind, err := peekKind(g)
		if err != nil {
			g.Unpin(false)
			return nil, err
		}
		if kind == kindLeaf {
			return g, nil
		}
		internal, err := readInternal[K, V](g)
		if err != nil {
			g.Unpin(false)
			return nil, err
		}
		var childID disk.PageID
		if leftmost {
			childID = internal.Children[0]
		} else {
			childID = internal.Children[len(internal.Children)-1]
		}
		g.Unpin(false)
		g, err = t.bpm.FetchPage(childID)
		if err != nil {
			return nil, fmt.Errorf("bptree: fetching child page %d: %w", childID, err)
		}
	}
}

// Valid reports whether the iterator currently rests on an entry.
func (it *Iterator[K, V]) Valid() bool { return !it.done }

// Key returns the current entry's key. Only valid while Valid() is true.
func (it *Iterator[K, V]) Key() K { return it.leaf.Keys[it.idx] }

// Value returns the current entry's value. Only valid while Valid() is true.
func (it *Iterator[K, V]) Value() V { return it.leaf.Values[it.idx] }

// Next advances to the following entry, crossing into the next leaf via its
// sibling pointer if the current leaf is exhausted.
func (it *Iterator[K, V]) Next() error {
	if it.done {
		return nil
	}
	it.idx++
	if it.idx < len(it.leaf.Keys) {
		return nil
	}
	return it.rollForward()
}

// rollForward advances past the current leaf (unpinning it) to the first
// entry of the next leaf in the sibling chain, marking the iterator done if
// none remains.
func (it *Iterator[K, V]) rollForward() error {
	for {
		nextID := it.leaf.NextPageID
		it.g.Unpin(false)
		it.g, it.leaf, it.idx = nil, nil, 0

		if nextID == disk.InvalidPageID {
			it.done = true
			return nil
		}

		g, err := it.tree.bpm.FetchPage(nextID)
		if err != nil {
			return fmt.Errorf("bptree: fetching next leaf page %d: %w", nextID, err)
		}
		leaf, err := readLeaf[K, V](g)
		if err != nil {
			g.Unpin(false)
			return err
		}
		it.g, it.leaf = g, leaf
		if len(leaf.Keys) > 0 {
			return nil
		}
	}
}

// Close releases the iterator's pinned leaf, if any. Safe to call more than
// once and after the iterator is already exhausted.
func (it *Iterator[K, V]) Close() {
	if it.g != nil {
		it.g.Unpin(false)
		it.g = nil
	}
	it.done = true
}
