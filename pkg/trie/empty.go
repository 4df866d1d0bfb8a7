package trie

import (
	"github.com/patriciadb/patriciadb/pkg/io"
)

// EmptyNode represents an empty trie.
type EmptyNode struct{}

var _ Node = EmptyNode{}

// Type implements Node interface.
func (e EmptyNode) Type() NodeType {
	return EmptyT
}

// Hash implements Node interface.
func (e EmptyNode) Hash(*Layout) []byte {
	panic("can't get hash of an EmptyNode")
}

// Bytes implements Node interface.
func (e EmptyNode) Bytes(l *Layout) []byte {
	return []byte{l.tag(EmptyT)}
}

func (e EmptyNode) encode(*Layout, *io.BinWriter) {
}

func (e EmptyNode) decode(*Layout, *io.BinReader, bool) {
}
