package trie

import (
	"github.com/patriciadb/patriciadb/pkg/io"
	"github.com/patriciadb/patriciadb/pkg/util/slice"
)

// HashNode represents a reference to a node stored elsewhere, identified by
// the hash of its serialized form.
type HashNode struct {
	BaseNode
}

var _ Node = (*HashNode)(nil)

// NewHashNode returns a hash node with the specified hash.
func NewHashNode(h []byte) *HashNode {
	n := new(HashNode)
	n.hash = slice.Copy(h)
	n.hashValid = true
	return n
}

// Type implements Node interface.
func (h *HashNode) Type() NodeType { return HashT }

// Hash implements Node interface.
func (h *HashNode) Hash(_ *Layout) []byte {
	if !h.hashValid {
		panic("can't get hash of an empty HashNode")
	}
	return h.hash
}

// Bytes implements Node interface.
func (h *HashNode) Bytes(l *Layout) []byte {
	return h.getBytes(l, h)
}

func (h *HashNode) encode(l *Layout, w *io.BinWriter) {
	w.WriteBytes(h.hash)
}

func (h *HashNode) decode(l *Layout, r *io.BinReader, _ bool) {
	h.hash = make([]byte, l.hashSize())
	r.ReadBytes(h.hash)
	h.hashValid = true
	h.bytesValid = false
	h.isFlushed = false
}
