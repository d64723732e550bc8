package bptree

import (
	"fmt"
	"strings"

	"github.com/cairndb/cairn/disk"
)

// DebugString renders the tree's structure depth-first, root to leaves, one
// node per line with its key array indented by depth. Grounded in
// BPLUSTREE_TYPE::ToString (original_source/src/storage/index/b_plus_tree.cpp),
// translated from stdout printing into a returned string per SPEC_FULL.md's
// Supplemented Features.
func (t *Tree[K, V]) DebugString() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.IsEmpty() {
		return fmt.Sprintf("index %q: empty\n", t.name), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "index %q:\n", t.name)
	if err := t.debugNode(&sb, t.rootPageID, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (t *Tree[K, V]) debugNode(sb *strings.Builder, pageID disk.PageID, depth int) error {
	g, err := t.bpm.FetchPage(pageID)
	if err != nil {
		return fmt.Errorf("bptree: fetching page %d for debug dump: %w", pageID, err)
	}
	kind, err := peekKind(g)
	if err != nil {
		g.Unpin(false)
		return err
	}

	indent := strings.Repeat("  ", depth)
	if kind == kindLeaf {
		leaf, err := readLeaf[K, V](g)
		if err != nil {
			g.Unpin(false)
			return err
		}
		g.Unpin(false)
		fmt.Fprintf(sb, "%sleaf(page=%d, parent=%d, next=%d): %v\n", indent, leaf.PageID, leaf.ParentPageID, leaf.NextPageID, leaf.Keys)
		return nil
	}

	internal, err := readInternal[K, V](g)
	if err != nil {
		g.Unpin(false)
		return err
	}
	g.Unpin(false)
	fmt.Fprintf(sb, "%sinternal(page=%d, parent=%d): %v\n", indent, internal.PageID, internal.ParentPageID, internal.Keys[1:])
	for _, child := range internal.Children {
		if err := t.debugNode(sb, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
