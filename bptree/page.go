package bptree

import (
	"cmp"
	"fmt"

	"github.com/cairndb/cairn/buffer"
	"github.com/cairndb/cairn/util"
)

// envelope is the on-page wire format: a kind tag plus exactly one of Leaf or
// Internal populated. msgpack's default map encoding (see util.EncodePage)
// lets peekKind decode just the Kind field cheaply, without materializing
// the rest of the node — the Go analogue of BusTub's page_type header byte
// plus reinterpret_cast.
type envelope[K cmp.Ordered, V any] struct {
	Kind     nodeKind
	Leaf     *leafNode[K, V]
	Internal *internalNode[K]
}

type kindOnly struct {
	Kind nodeKind
}

// peekKind reads a page's node kind without decoding its payload.
func peekKind(g *buffer.PageGuard) (nodeKind, error) {
	ko, err := util.DecodePage[kindOnly](g.Data())
	if err != nil {
		return 0, fmt.Errorf("bptree: reading page %d kind: %w", g.PageID(), err)
	}
	return ko.Kind, nil
}

func readLeaf[K cmp.Ordered, V any](g *buffer.PageGuard) (*leafNode[K, V], error) {
	env, err := util.DecodePage[envelope[K, V]](g.Data())
	if err != nil {
		return nil, fmt.Errorf("bptree: decoding leaf page %d: %w", g.PageID(), err)
	}
	if env.Kind != kindLeaf || env.Leaf == nil {
		return nil, fmt.Errorf("bptree: page %d is not a leaf", g.PageID())
	}
	return env.Leaf, nil
}

func readInternal[K cmp.Ordered, V any](g *buffer.PageGuard) (*internalNode[K], error) {
	env, err := util.DecodePage[envelope[K, V]](g.Data())
	if err != nil {
		return nil, fmt.Errorf("bptree: decoding internal page %d: %w", g.PageID(), err)
	}
	if env.Kind != kindInternal || env.Internal == nil {
		return nil, fmt.Errorf("bptree: page %d is not an internal node", g.PageID())
	}
	return env.Internal, nil
}

func writeLeaf[K cmp.Ordered, V any](g *buffer.PageGuard, n *leafNode[K, V]) error {
	buf, err := util.EncodePage(envelope[K, V]{Kind: kindLeaf, Leaf: n})
	if err != nil {
		return fmt.Errorf("bptree: encoding leaf page %d: %w", n.PageID, err)
	}
	copy(g.Data(), buf)
	g.MarkDirty()
	return nil
}

func writeInternal[K cmp.Ordered, V any](g *buffer.PageGuard, n *internalNode[K]) error {
	buf, err := util.EncodePage(envelope[K, V]{Kind: kindInternal, Internal: n})
	if err != nil {
		return fmt.Errorf("bptree: encoding internal page %d: %w", n.PageID, err)
	}
	copy(g.Data(), buf)
	g.MarkDirty()
	return nil
}
