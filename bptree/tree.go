// Package bptree implements a persistent, disk-resident B+ tree index whose
// nodes occupy pages obtained from a buffer pool, per spec.md §4.4.
//
// Grounded in original_source/src/storage/index/b_plus_tree.cpp (CMU 15-445's
// BusTub), transliterated from direct pointer/reinterpret_cast manipulation
// of in-memory pages into decode-mutate-encode round trips through
// util.EncodePage/DecodePage (see page.go), since this module's buffer pool
// hands back raw bytes rather than a cast-able struct pointer.
package bptree

import (
	"cmp"
	"fmt"
	"sync"

	"github.com/cairndb/cairn/buffer"
	"github.com/cairndb/cairn/disk"
)

// Tree is a named, persistent B+ tree index over unique keys of type K
// mapping to values of type V. A single reader/writer mutex serializes all
// structural operations, per spec.md §4.4's "this spec does not require
// crabbing" concurrency note.
type Tree[K cmp.Ordered, V any] struct {
	mu sync.RWMutex

	name string
	bpm  *buffer.BufferPoolManager

	rootPageID disk.PageID

	leafMaxSize     int
	internalMaxSize int
}

// Open binds a named index to bpm, loading its root page id from the header
// page if the index already exists, or registering a fresh empty index
// otherwise. The header page (see NewHeaderPage) must already exist on bpm.
func Open[K cmp.Ordered, V any](bpm *buffer.BufferPoolManager, name string, leafMaxSize, internalMaxSize int) (*Tree[K, V], error) {
	root, ok, err := lookupRoot(bpm, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		root = disk.InvalidPageID
		if err := setRoot(bpm, name, root); err != nil {
			return nil, err
		}
	}
	return &Tree[K, V]{
		name:            name,
		bpm:             bpm,
		rootPageID:      root,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}, nil
}

// Name returns the index's registered name.
func (t *Tree[K, V]) Name() string { return t.name }

// IsEmpty reports whether the tree currently has no root.
func (t *Tree[K, V]) IsEmpty() bool { return t.rootPageID == disk.InvalidPageID }

// RootPageID returns the tree's current root page id, or disk.InvalidPageID
// if empty.
func (t *Tree[K, V]) RootPageID() disk.PageID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootPageID
}

/*****************************************************************************
 * SEARCH
 *****************************************************************************/

// Get returns the value stored under key, if present. Grounded in
// BPLUSTREE_TYPE::GetValue.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var zero V
	if t.IsEmpty() {
		return zero, false
	}

	g, err := t.descendToLeaf(key)
	if err != nil {
		return zero, false
	}
	defer g.Unpin(false)

	leaf, err := readLeaf[K, V](g)
	if err != nil {
		return zero, false
	}
	return leaf.Lookup(key)
}

// descendToLeaf returns a pinned guard over the leaf that may contain key.
// The caller owes exactly one Unpin on the returned guard.
func (t *Tree[K, V]) descendToLeaf(key K) (*buffer.PageGuard, error) {
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
		childID := internal.Lookup(key)
		g.Unpin(false)
		g, err = t.bpm.FetchPage(childID)
		if err != nil {
			return nil, fmt.Errorf("bptree: fetching child page %d: %w", childID, err)
		}
	}
}

/*****************************************************************************
 * INSERTION
 *****************************************************************************/

// Insert adds key -> value. Reports false, leaving the tree unmodified, if
// key is already present. Grounded in BPLUSTREE_TYPE::Insert.
func (t *Tree[K, V]) Insert(key K, value V) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		g, err := t.bpm.NewPage()
		if err != nil {
			return false, fmt.Errorf("bptree: allocating root leaf: %w", err)
		}
		leaf := newLeaf[K, V](g.PageID(), disk.InvalidPageID, t.leafMaxSize)
		leaf.Insert(key, value)
		if err := writeLeaf(g, leaf); err != nil {
			g.Unpin(false)
			return false, err
		}
		g.Unpin(true)

		t.rootPageID = leaf.PageID
		if err := setRoot(t.bpm, t.name, t.rootPageID); err != nil {
			return false, err
		}
		return true, nil
	}

	g, err := t.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	leaf, err := readLeaf[K, V](g)
	if err != nil {
		g.Unpin(false)
		return false, err
	}

	if !leaf.Insert(key, value) {
		g.Unpin(false)
		return false, nil
	}

	if !leaf.IsOverfull() {
		if err := writeLeaf(g, leaf); err != nil {
			g.Unpin(false)
			return false, err
		}
		g.Unpin(true)
		return true, nil
	}

	newLeafG, newLeafNode, err := t.splitLeaf(leaf)
	if err != nil {
		g.Unpin(false)
		return false, err
	}
	newLeafNode.NextPageID = leaf.NextPageID
	leaf.NextPageID = newLeafNode.PageID

	if err := writeLeaf(g, leaf); err != nil {
		g.Unpin(false)
		newLeafG.Unpin(false)
		return false, err
	}
	if err := writeLeaf(newLeafG, newLeafNode); err != nil {
		g.Unpin(true)
		newLeafG.Unpin(false)
		return false, err
	}

	promoted := newLeafNode.Keys[0]
	if err := t.insertToParent(leaf.PageID, newLeafNode.PageID, promoted); err != nil {
		g.Unpin(true)
		newLeafG.Unpin(true)
		return false, err
	}

	g.Unpin(true)
	newLeafG.Unpin(true)
	return true, nil
}

// splitLeaf allocates a new leaf page and moves the upper half of leaf's
// entries into it.
func (t *Tree[K, V]) splitLeaf(leaf *leafNode[K, V]) (*buffer.PageGuard, *leafNode[K, V], error) {
	g, err := t.bpm.NewPage()
	if err != nil {
		return nil, nil, fmt.Errorf("bptree: allocating split leaf: %w", err)
	}
	n := newLeaf[K, V](g.PageID(), leaf.ParentPageID, t.leafMaxSize)
	leaf.MoveHalfTo(n)
	return g, n, nil
}

// splitInternal allocates a new internal page and moves the upper half of
// node's entries into it. Children moved to the new node are re-parented.
func (t *Tree[K, V]) splitInternal(node *internalNode[K]) (*buffer.PageGuard, *internalNode[K], error) {
	g, err := t.bpm.NewPage()
	if err != nil {
		return nil, nil, fmt.Errorf("bptree: allocating split internal node: %w", err)
	}
	n := newInternal[K](g.PageID(), node.ParentPageID, t.internalMaxSize)
	node.MoveHalfTo(n)
	if err := t.reparentChildren(n.PageID, n.Children); err != nil {
		g.Unpin(false)
		return nil, nil, err
	}
	return g, n, nil
}

// reparentChildren sets ParentPageID on every page in children to parent.
// Grounded in B_PLUS_TREE_INTERNAL_PAGE_TYPE::CopyData's re-parenting loop.
func (t *Tree[K, V]) reparentChildren(parent disk.PageID, children []disk.PageID) error {
	for _, childID := range children {
		if err := t.setParent(childID, parent); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree[K, V]) setParent(pageID, parent disk.PageID) error {
	g, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return fmt.Errorf("bptree: fetching page %d to re-parent: %w", pageID, err)
	}
	kind, err := peekKind(g)
	if err != nil {
		g.Unpin(false)
		return err
	}
	if kind == kindLeaf {
		leaf, err := readLeaf[K, V](g)
		if err != nil {
			g.Unpin(false)
			return err
		}
		leaf.ParentPageID = parent
		if err := writeLeaf(g, leaf); err != nil {
			g.Unpin(false)
			return err
		}
	} else {
		internal, err := readInternal[K, V](g)
		if err != nil {
			g.Unpin(false)
			return err
		}
		internal.ParentPageID = parent
		if err := writeInternal[K, V](g, internal); err != nil {
			g.Unpin(false)
			return err
		}
	}
	g.Unpin(true)
	return nil
}

// insertToParent installs (key, rightID) into leftID's parent, creating a
// new root if leftID currently has none, and recursively splitting the
// parent if it is already full. Grounded in BPLUSTREE_TYPE::InsertToParent.
func (t *Tree[K, V]) insertToParent(leftID, rightID disk.PageID, key K) error {
	leftParent, err := t.parentOf(leftID)
	if err != nil {
		return err
	}

	if leftParent == disk.InvalidPageID {
		g, err := t.bpm.NewPage()
		if err != nil {
			return fmt.Errorf("bptree: allocating new root: %w", err)
		}
		root := newInternal[K](g.PageID(), disk.InvalidPageID, t.internalMaxSize)
		root.Keys = []K{key, key}
		root.Children = []disk.PageID{leftID, rightID}
		if err := writeInternal[K, V](g, root); err != nil {
			g.Unpin(false)
			return err
		}
		g.Unpin(true)

		if err := t.setParent(leftID, root.PageID); err != nil {
			return err
		}
		if err := t.setParent(rightID, root.PageID); err != nil {
			return err
		}

		t.rootPageID = root.PageID
		return setRoot(t.bpm, t.name, t.rootPageID)
	}

	pg, err := t.bpm.FetchPage(leftParent)
	if err != nil {
		return fmt.Errorf("bptree: fetching parent page %d: %w", leftParent, err)
	}
	parent, err := readInternal[K, V](pg)
	if err != nil {
		pg.Unpin(false)
		return err
	}

	parent.InsertAfter(leftID, key, rightID)
	if err := t.setParent(rightID, parent.PageID); err != nil {
		pg.Unpin(false)
		return err
	}

	if !parent.IsOverfull() {
		if err := writeInternal[K, V](pg, parent); err != nil {
			pg.Unpin(false)
			return err
		}
		pg.Unpin(true)
		return nil
	}

	newParentG, newParent, err := t.splitInternal(parent)
	if err != nil {
		pg.Unpin(false)
		return err
	}
	if err := writeInternal[K, V](pg, parent); err != nil {
		pg.Unpin(false)
		newParentG.Unpin(false)
		return err
	}
	if err := writeInternal[K, V](newParentG, newParent); err != nil {
		pg.Unpin(true)
		newParentG.Unpin(false)
		return err
	}
	promoted := newParent.Keys[0]
	pg.Unpin(true)
	newParentG.Unpin(true)
	return t.insertToParent(parent.PageID, newParent.PageID, promoted)
}

// parentOf returns pageID's parent page id as currently recorded on its own
// header.
func (t *Tree[K, V]) parentOf(pageID disk.PageID) (disk.PageID, error) {
	g, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return disk.InvalidPageID, fmt.Errorf("bptree: fetching page %d: %w", pageID, err)
	}
	defer g.Unpin(false)
	kind, err := peekKind(g)
	if err != nil {
		return disk.InvalidPageID, err
	}
	if kind == kindLeaf {
		leaf, err := readLeaf[K, V](g)
		if err != nil {
			return disk.InvalidPageID, err
		}
		return leaf.ParentPageID, nil
	}
	internal, err := readInternal[K, V](g)
	if err != nil {
		return disk.InvalidPageID, err
	}
	return internal.ParentPageID, nil
}

/*****************************************************************************
 * DELETION
 *****************************************************************************/

// Remove deletes key, if present. Reports whether a matching entry was
// found. Grounded in spec.md §4.4's redistribute_or_merge prose — BusTub's
// own Remove is an intentionally empty stub left to the student, so this
// algorithm is authored fresh from the spec rather than ported.
func (t *Tree[K, V]) Remove(key K) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return false, nil
	}

	g, err := t.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	leaf, err := readLeaf[K, V](g)
	if err != nil {
		g.Unpin(false)
		return false, err
	}

	idx := leaf.keyIndex(key)
	if idx >= len(leaf.Keys) || leaf.Keys[idx] != key {
		g.Unpin(false)
		return false, nil
	}
	leaf.RemoveAt(idx)

	if leaf.PageID == t.rootPageID {
		if len(leaf.Keys) == 0 {
			g.Unpin(false)
			if ok := t.bpm.DeletePage(leaf.PageID); !ok {
				return false, fmt.Errorf("bptree: page %d still pinned, cannot free emptied root leaf", leaf.PageID)
			}
			t.rootPageID = disk.InvalidPageID
			return true, setRoot(t.bpm, t.name, t.rootPageID)
		}
		if err := writeLeaf(g, leaf); err != nil {
			g.Unpin(false)
			return false, err
		}
		g.Unpin(true)
		return true, nil
	}

	if leaf.Size() >= leaf.MinSize() {
		if err := writeLeaf(g, leaf); err != nil {
			g.Unpin(false)
			return false, err
		}
		g.Unpin(true)
		return true, nil
	}

	if err := writeLeaf(g, leaf); err != nil {
		g.Unpin(false)
		return false, err
	}
	g.Unpin(true)

	if err := t.redistributeOrMergeLeaf(leaf.PageID); err != nil {
		return false, err
	}
	return true, nil
}

// redistributeOrMergeLeaf repairs an underflowed non-root leaf, per spec.md
// §4.4's redistribute_or_merge: borrow from the left sibling, else the
// right, else merge (left preferred).
func (t *Tree[K, V]) redistributeOrMergeLeaf(nodeID disk.PageID) error {
	parentID, err := t.parentOf(nodeID)
	if err != nil {
		return err
	}
	pg, err := t.bpm.FetchPage(parentID)
	if err != nil {
		return fmt.Errorf("bptree: fetching parent page %d: %w", parentID, err)
	}
	parent, err := readInternal[K, V](pg)
	if err != nil {
		pg.Unpin(false)
		return err
	}
	idx := parent.childIndex(nodeID)

	ng, node, err := t.fetchLeaf(nodeID)
	if err != nil {
		pg.Unpin(false)
		return err
	}

	if idx > 0 {
		lg, left, err := t.fetchLeaf(parent.Children[idx-1])
		if err != nil {
			pg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		if left.Size() > left.MinSize() {
			left.MoveLastTo(node)
			parent.Keys[idx] = node.Keys[0]
			if err := t.commitRedistribution(pg, parent, lg, left, ng, node); err != nil {
				return err
			}
			return nil
		}
		lg.Unpin(false)
	}

	if idx < len(parent.Children)-1 {
		rg, right, err := t.fetchLeaf(parent.Children[idx+1])
		if err != nil {
			pg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		if right.Size() > right.MinSize() {
			right.MoveFirstTo(node)
			parent.Keys[idx+1] = right.Keys[0]
			if err := t.commitRedistribution(pg, parent, rg, right, ng, node); err != nil {
				return err
			}
			return nil
		}
		rg.Unpin(false)
	}

	// Merge: prefer the left sibling.
	if idx > 0 {
		lg, left, err := t.fetchLeaf(parent.Children[idx-1])
		if err != nil {
			pg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		node.MoveAllTo(left)
		left.NextPageID = node.NextPageID
		if err := writeLeaf(lg, left); err != nil {
			pg.Unpin(false)
			lg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		lg.Unpin(true)
		ng.Unpin(false)
		if _, err := t.deletePageChecked(node.PageID); err != nil {
			pg.Unpin(false)
			return err
		}
		parent.RemoveAt(idx)
		return t.finishMergeParent(pg, parent)
	}

	rg, right, err := t.fetchLeaf(parent.Children[idx+1])
	if err != nil {
		pg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	right.MoveAllTo(node)
	node.NextPageID = right.NextPageID
	if err := writeLeaf(ng, node); err != nil {
		pg.Unpin(false)
		rg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	ng.Unpin(true)
	rg.Unpin(false)
	if _, err := t.deletePageChecked(right.PageID); err != nil {
		pg.Unpin(false)
		return err
	}
	parent.RemoveAt(idx + 1)
	return t.finishMergeParent(pg, parent)
}

// commitRedistribution persists a redistribution's three touched pages
// (parent, sibling, node) and releases their pins.
func (t *Tree[K, V]) commitRedistribution(pg *buffer.PageGuard, parent *internalNode[K], sg *buffer.PageGuard, sibling *leafNode[K, V], ng *buffer.PageGuard, node *leafNode[K, V]) error {
	if err := writeInternal[K, V](pg, parent); err != nil {
		pg.Unpin(false)
		sg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	if err := writeLeaf(sg, sibling); err != nil {
		pg.Unpin(true)
		sg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	if err := writeLeaf(ng, node); err != nil {
		pg.Unpin(true)
		sg.Unpin(true)
		ng.Unpin(false)
		return err
	}
	pg.Unpin(true)
	sg.Unpin(true)
	ng.Unpin(true)
	return nil
}

// finishMergeParent persists parent after a child merge, recursing into
// redistribute/merge if parent now underflows, or collapsing the root if
// parent is the root left with a single child.
func (t *Tree[K, V]) finishMergeParent(pg *buffer.PageGuard, parent *internalNode[K]) error {
	if parent.PageID == t.rootPageID {
		if len(parent.Children) == 1 {
			onlyChild := parent.Children[0]
			if err := writeInternal[K, V](pg, parent); err != nil {
				pg.Unpin(false)
				return err
			}
			pg.Unpin(true)
			if _, err := t.deletePageChecked(parent.PageID); err != nil {
				return err
			}
			if err := t.setParent(onlyChild, disk.InvalidPageID); err != nil {
				return err
			}
			t.rootPageID = onlyChild
			return setRoot(t.bpm, t.name, t.rootPageID)
		}
		if err := writeInternal[K, V](pg, parent); err != nil {
			pg.Unpin(false)
			return err
		}
		pg.Unpin(true)
		return nil
	}

	if parent.Size() >= parent.MinSize() {
		if err := writeInternal[K, V](pg, parent); err != nil {
			pg.Unpin(false)
			return err
		}
		pg.Unpin(true)
		return nil
	}

	if err := writeInternal[K, V](pg, parent); err != nil {
		pg.Unpin(false)
		return err
	}
	pg.Unpin(true)
	return t.redistributeOrMergeInternal(parent.PageID)
}

// redistributeOrMergeInternal is redistributeOrMergeLeaf's counterpart for
// internal nodes: same borrow-left/borrow-right/merge-left preference, but
// moved children must be re-parented.
func (t *Tree[K, V]) redistributeOrMergeInternal(nodeID disk.PageID) error {
	parentID, err := t.parentOf(nodeID)
	if err != nil {
		return err
	}
	pg, err := t.bpm.FetchPage(parentID)
	if err != nil {
		return fmt.Errorf("bptree: fetching parent page %d: %w", parentID, err)
	}
	parent, err := readInternal[K, V](pg)
	if err != nil {
		pg.Unpin(false)
		return err
	}
	idx := parent.childIndex(nodeID)

	ng, node, err := t.fetchInternal(nodeID)
	if err != nil {
		pg.Unpin(false)
		return err
	}

	// Borrow-left: move left's last child to node's front. The parent
	// separator at idx (the boundary between left and node) becomes node's
	// new first real key; left's own last key (the boundary it had between
	// its last two children) rises to take the parent's place.
	if idx > 0 {
		lg, left, err := t.fetchInternal(parent.Children[idx-1])
		if err != nil {
			pg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		if left.Size() > left.MinSize() {
			lastIdx := len(left.Children) - 1
			movedChild := left.Children[lastIdx]
			risingSeparator := left.Keys[lastIdx]
			left.Children = left.Children[:lastIdx]
			left.Keys = left.Keys[:lastIdx]

			node.Children = append([]disk.PageID{movedChild}, node.Children...)
			newKeys := make([]K, 0, len(node.Keys)+1)
			newKeys = append(newKeys, node.Keys[0], parent.Keys[idx])
			newKeys = append(newKeys, node.Keys[1:]...)
			node.Keys = newKeys

			parent.Keys[idx] = risingSeparator
			if err := t.setParent(movedChild, node.PageID); err != nil {
				pg.Unpin(false)
				lg.Unpin(false)
				ng.Unpin(false)
				return err
			}
			return t.commitInternalRedistribution(pg, parent, lg, left, ng, node)
		}
		lg.Unpin(false)
	}

	// Borrow-right: symmetric — move right's first child to node's end, the
	// parent separator at idx+1 descends to become node's new last real
	// key, right's new first key rises to replace it.
	if idx < len(parent.Children)-1 {
		rg, right, err := t.fetchInternal(parent.Children[idx+1])
		if err != nil {
			pg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		if right.Size() > right.MinSize() {
			movedChild := right.Children[0]
			risingSeparator := right.Keys[1]
			right.Children = right.Children[1:]
			right.Keys = append([]K{right.Keys[0]}, right.Keys[2:]...)

			node.Children = append(node.Children, movedChild)
			node.Keys = append(node.Keys, parent.Keys[idx+1])

			parent.Keys[idx+1] = risingSeparator
			if err := t.setParent(movedChild, node.PageID); err != nil {
				pg.Unpin(false)
				rg.Unpin(false)
				ng.Unpin(false)
				return err
			}
			return t.commitInternalRedistribution(pg, parent, rg, right, ng, node)
		}
		rg.Unpin(false)
	}

	// Merge, left sibling preferred: node's children, with the parent
	// separator at idx reinserted as the boundary key, all fold into left.
	if idx > 0 {
		lg, left, err := t.fetchInternal(parent.Children[idx-1])
		if err != nil {
			pg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		left.Children = append(left.Children, node.Children...)
		left.Keys = append(left.Keys, parent.Keys[idx])
		left.Keys = append(left.Keys, node.Keys[1:]...)
		if err := t.reparentChildren(left.PageID, node.Children); err != nil {
			pg.Unpin(false)
			lg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		if err := writeInternal[K, V](lg, left); err != nil {
			pg.Unpin(false)
			lg.Unpin(false)
			ng.Unpin(false)
			return err
		}
		lg.Unpin(true)
		ng.Unpin(false)
		if _, err := t.deletePageChecked(node.PageID); err != nil {
			pg.Unpin(false)
			return err
		}
		parent.RemoveAt(idx)
		return t.finishMergeParent(pg, parent)
	}

	// No left sibling: merge right into node, the parent separator at
	// idx+1 reinserted as the boundary key.
	rg, right, err := t.fetchInternal(parent.Children[idx+1])
	if err != nil {
		pg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	node.Children = append(node.Children, right.Children...)
	node.Keys = append(node.Keys, parent.Keys[idx+1])
	node.Keys = append(node.Keys, right.Keys[1:]...)
	if err := t.reparentChildren(node.PageID, right.Children); err != nil {
		pg.Unpin(false)
		rg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	if err := writeInternal[K, V](ng, node); err != nil {
		pg.Unpin(false)
		rg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	ng.Unpin(true)
	rg.Unpin(false)
	if _, err := t.deletePageChecked(right.PageID); err != nil {
		pg.Unpin(false)
		return err
	}
	parent.RemoveAt(idx + 1)
	return t.finishMergeParent(pg, parent)
}

func (t *Tree[K, V]) commitInternalRedistribution(pg *buffer.PageGuard, parent *internalNode[K], sg *buffer.PageGuard, sibling *internalNode[K], ng *buffer.PageGuard, node *internalNode[K]) error {
	if err := writeInternal[K, V](pg, parent); err != nil {
		pg.Unpin(false)
		sg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	if err := writeInternal[K, V](sg, sibling); err != nil {
		pg.Unpin(true)
		sg.Unpin(false)
		ng.Unpin(false)
		return err
	}
	if err := writeInternal[K, V](ng, node); err != nil {
		pg.Unpin(true)
		sg.Unpin(true)
		ng.Unpin(false)
		return err
	}
	pg.Unpin(true)
	sg.Unpin(true)
	ng.Unpin(true)
	return nil
}

func (t *Tree[K, V]) fetchLeaf(pageID disk.PageID) (*buffer.PageGuard, *leafNode[K, V], error) {
	g, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("bptree: fetching leaf page %d: %w", pageID, err)
	}
	n, err := readLeaf[K, V](g)
	if err != nil {
		g.Unpin(false)
		return nil, nil, err
	}
	return g, n, nil
}

func (t *Tree[K, V]) fetchInternal(pageID disk.PageID) (*buffer.PageGuard, *internalNode[K], error) {
	g, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("bptree: fetching internal page %d: %w", pageID, err)
	}
	n, err := readInternal[K, V](g)
	if err != nil {
		g.Unpin(false)
		return nil, nil, err
	}
	return g, n, nil
}

// deletePageChecked deletes pageID from the buffer pool, failing loudly if
// it is unexpectedly still pinned (a programmer-error precondition
// violation, per spec.md §7).
func (t *Tree[K, V]) deletePageChecked(pageID disk.PageID) (bool, error) {
	if ok := t.bpm.DeletePage(pageID); !ok {
		return false, fmt.Errorf("bptree: page %d still pinned, cannot free after merge", pageID)
	}
	return true, nil
}

/*****************************************************************************
 * CONVENIENCE
 *****************************************************************************/

// BatchInsert inserts every (key, value) pair in order, stopping at the
// first error or first duplicate key. Returns the number of pairs actually
// inserted.
func (t *Tree[K, V]) BatchInsert(keys []K, values []V) (int, error) {
	if len(keys) != len(values) {
		return 0, fmt.Errorf("bptree: BatchInsert: %d keys but %d values", len(keys), len(values))
	}
	for i := range keys {
		ok, err := t.Insert(keys[i], values[i])
		if err != nil {
			return i, err
		}
		if !ok {
			return i, nil
		}
	}
	return len(keys), nil
}

// GetKeyRange returns every (key, value) pair with lo <= key <= hi, in
// ascending key order.
func (t *Tree[K, V]) GetKeyRange(lo, hi K) ([]K, []V, error) {
	var keys []K
	var values []V

	it, err := t.BeginAt(lo)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	for it.Valid() {
		k, v := it.Key(), it.Value()
		if k > hi {
			break
		}
		keys = append(keys, k)
		values = append(values, v)
		if err := it.Next(); err != nil {
			return nil, nil, err
		}
	}
	return keys, values, nil
}
