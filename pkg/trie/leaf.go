package trie

import (
	"github.com/patriciadb/patriciadb/pkg/io"
)

// LeafNode represents a trie leaf: the unconsumed tail of a key and the
// value stored under it.
type LeafNode struct {
	BaseNode
	key   []byte
	value []byte
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode returns a leaf node with the specified partial key (in
// nibbles) and value.
func NewLeafNode(key, value []byte) *LeafNode {
	return &LeafNode{key: key, value: value}
}

// Type implements Node interface.
func (n LeafNode) Type() NodeType { return LeafT }

// Hash implements Node interface.
func (n *LeafNode) Hash(l *Layout) []byte {
	return n.getHash(l, n)
}

// Bytes implements Node interface.
func (n *LeafNode) Bytes(l *Layout) []byte {
	return n.getBytes(l, n)
}

func (n *LeafNode) encode(l *Layout, w *io.BinWriter) {
	writeNibbles(w, n.key)
	w.WriteVarBytes(n.value)
}

func (n *LeafNode) decode(l *Layout, r *io.BinReader, _ bool) {
	n.key = readNibbles(r, maxPathLength)
	n.value = r.ReadVarBytes(MaxValueLength)
	n.invalidateCache()
}
