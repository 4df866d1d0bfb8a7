package trie

import (
	"errors"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/io"
)

// childrenCount is the number of child slots in a branch node, one per
// nibble value.
const childrenCount = 16

// BranchNode represents a 16-way fork. A nil child slot means no child.
// The value, if non-nil, belongs to the key ending exactly at this branch.
// The key field holds the branch's own partial key and is used only by
// layouts without extension nodes.
type BranchNode struct {
	BaseNode
	key      []byte
	value    []byte
	Children [childrenCount]Node
}

var _ Node = (*BranchNode)(nil)

// NewBranchNode returns a new branch node with no children and no value.
func NewBranchNode() *BranchNode {
	return new(BranchNode)
}

// Type implements Node interface.
func (b BranchNode) Type() NodeType { return BranchT }

// Hash implements Node interface.
func (b *BranchNode) Hash(l *Layout) []byte {
	return b.getHash(l, b)
}

// Bytes implements Node interface.
func (b *BranchNode) Bytes(l *Layout) []byte {
	return b.getBytes(l, b)
}

// clone returns a copy of b with invalid caches. Key, value and children
// are shared with the original, they are immutable once built.
func (b *BranchNode) clone() *BranchNode {
	res := new(BranchNode)
	res.key = b.key
	res.value = b.value
	res.Children = b.Children
	return res
}

func (b *BranchNode) encode(l *Layout, w *io.BinWriter) {
	if !l.useExtensions {
		writeNibbles(w, b.key)
	}
	w.WriteBool(b.value != nil)
	if b.value != nil {
		w.WriteVarBytes(b.value)
	}
	var bm uint16
	for i, c := range b.Children {
		if c != nil {
			bm |= 1 << uint(i)
		}
	}
	w.WriteU16BE(bm)
	for _, c := range b.Children {
		if c != nil {
			encodeChild(l, c, w)
		}
	}
}

func (b *BranchNode) decode(l *Layout, r *io.BinReader, compact bool) {
	if !l.useExtensions {
		b.key = readNibbles(r, maxPathLength)
	}
	// Strictly 0 or 1: node encoding must be canonical for the node hash
	// to be unambiguous.
	switch vb := r.ReadB(); vb {
	case 0:
	case 1:
		b.value = r.ReadVarBytes(MaxValueLength)
	default:
		r.Err = fmt.Errorf("invalid value marker: %#x", vb)
		return
	}
	bm := r.ReadU16BE()
	if r.Err != nil {
		return
	}
	if bm == 0 && b.value == nil {
		r.Err = errors.New("branch node without children and value")
		return
	}
	for i := 0; i < childrenCount; i++ {
		if bm&(1<<uint(i)) != 0 {
			b.Children[i] = decodeChild(l, r, compact)
			if r.Err != nil {
				return
			}
		}
	}
	b.invalidateCache()
}
