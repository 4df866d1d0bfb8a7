package trie

import (
	"fmt"
)

// Layout describes the structural variant of the trie: the node hasher and
// the way single-child chains are represented. With extensions enabled a
// shared key segment lives in a dedicated extension node and branches carry
// no partial key of their own. Without extensions branches absorb the
// shared segment into an explicit partial key. The two variants use
// disjoint node tag spaces, so their roots never collide.
type Layout struct {
	hasher        Hasher
	useExtensions bool
}

// noExtFlag is OR'ed into node tags by layouts without extension nodes.
const noExtFlag = byte(0x10)

// NewLayout returns a layout over the given hasher. Passing nil hasher
// selects Blake2b256.
func NewLayout(h Hasher, useExtensions bool) *Layout {
	if h == nil {
		h = Blake2b256
	}
	return &Layout{hasher: h, useExtensions: useExtensions}
}

// DefaultLayout returns the extension-node variant over Blake2b256.
func DefaultLayout() *Layout {
	return NewLayout(Blake2b256, true)
}

// Hasher returns the layout's hasher.
func (l *Layout) Hasher() Hasher {
	return l.hasher
}

// UsesExtensions reports whether the layout represents shared key segments
// with dedicated extension nodes.
func (l *Layout) UsesExtensions() bool {
	return l.useExtensions
}

// EmptyRoot returns the canonical root of an empty trie, an all-zero
// digest of the hasher's length.
func (l *Layout) EmptyRoot() []byte {
	return make([]byte, l.hasher.Size())
}

// IsEmptyRoot checks h against the canonical empty root.
func (l *Layout) IsEmptyRoot(h []byte) bool {
	if len(h) != l.hasher.Size() {
		return false
	}
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

func (l *Layout) hashSize() int {
	return l.hasher.Size()
}

// tag returns the wire tag of the given node type in this layout.
func (l *Layout) tag(t NodeType) byte {
	if !l.useExtensions {
		if t == ExtensionT {
			panic("extension node in layout without extensions")
		}
		return byte(t) | noExtFlag
	}
	return byte(t)
}

// nodeType maps a wire tag back to a node type, rejecting tags from the
// other layout's tag space.
func (l *Layout) nodeType(tag byte) (NodeType, error) {
	if (tag&noExtFlag != 0) == l.useExtensions {
		return 0, fmt.Errorf("node tag %#x doesn't match trie layout", tag)
	}
	t := NodeType(tag &^ noExtFlag)
	switch t {
	case BranchT, HashT, LeafT, EmptyT:
		return t, nil
	case ExtensionT:
		if l.useExtensions {
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid node tag: %#x", tag)
}
