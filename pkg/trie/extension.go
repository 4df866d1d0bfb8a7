package trie

import (
	"errors"

	"github.com/patriciadb/patriciadb/pkg/io"
)

// ExtensionNode represents a shared key segment with a single child below
// it. It exists only in layouts with extension nodes enabled; the other
// layout absorbs the segment into the child branch's partial key.
type ExtensionNode struct {
	BaseNode
	key  []byte
	next Node
}

var _ Node = (*ExtensionNode)(nil)

// NewExtensionNode returns an extension node with the specified key (in
// nibbles) and the next node.
func NewExtensionNode(key []byte, next Node) *ExtensionNode {
	return &ExtensionNode{
		key:  key,
		next: next,
	}
}

// Type implements Node interface.
func (e ExtensionNode) Type() NodeType { return ExtensionT }

// Hash implements Node interface.
func (e *ExtensionNode) Hash(l *Layout) []byte {
	return e.getHash(l, e)
}

// Bytes implements Node interface.
func (e *ExtensionNode) Bytes(l *Layout) []byte {
	return e.getBytes(l, e)
}

func (e *ExtensionNode) encode(l *Layout, w *io.BinWriter) {
	writeNibbles(w, e.key)
	encodeChild(l, e.next, w)
}

func (e *ExtensionNode) decode(l *Layout, r *io.BinReader, compact bool) {
	e.key = readNibbles(r, maxPathLength)
	if r.Err == nil && len(e.key) == 0 {
		r.Err = errors.New("extension node with empty key")
		return
	}
	e.next = decodeChild(l, r, compact)
	e.invalidateCache()
}
