package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/io"
)

// NodeType represents a node type.
type NodeType byte

// Node types definitions. Layouts without extension nodes use the same
// values OR'ed with noExtFlag on the wire.
const (
	BranchT    NodeType = 0x00
	ExtensionT NodeType = 0x01
	HashT      NodeType = 0x02
	LeafT      NodeType = 0x03
	EmptyT     NodeType = 0x04
)

const (
	// MaxKeyLength is the max length of the key to put in the trie
	// before transforming to nibbles.
	MaxKeyLength = 2048

	// maxPathLength is the max length of a partial key in nibbles.
	maxPathLength = MaxKeyLength * 2

	// MaxValueLength is the max length of a leaf or branch value.
	MaxValueLength = 65535
)

// Node represents a common interface of all trie nodes. The variant set is
// closed: every node is either empty, a leaf, an extension, a branch or a
// hash reference.
type Node interface {
	Type() NodeType
	Hash(*Layout) []byte
	Bytes(*Layout) []byte
	encode(*Layout, *io.BinWriter)
	decode(*Layout, *io.BinReader, bool)
}

// encodeNode encodes a node together with its layout-specific tag.
func encodeNode(l *Layout, n Node, w *io.BinWriter) {
	w.WriteB(l.tag(n.Type()))
	n.encode(l, w)
}

// toBytes is a helper for serializing a node.
func toBytes(l *Layout, n Node) []byte {
	buf := io.NewBufBinWriter()
	encodeNode(l, n, buf.BinWriter)
	return buf.Bytes()
}

// decodeNode reads a tagged node from r. In compact mode empty child
// references are allowed and decode to placeholder nodes.
func decodeNode(l *Layout, r *io.BinReader, compact bool) Node {
	tag := r.ReadB()
	if r.Err != nil {
		return nil
	}
	t, err := l.nodeType(tag)
	if err != nil {
		r.Err = err
		return nil
	}
	var n Node
	switch t {
	case BranchT:
		n = new(BranchNode)
	case ExtensionT:
		n = new(ExtensionNode)
	case HashT:
		n = new(HashNode)
	case LeafT:
		n = new(LeafNode)
	case EmptyT:
		n = EmptyNode{}
	}
	n.decode(l, r, compact)
	if r.Err != nil {
		return nil
	}
	return n
}

// DecodeNode decodes a node from its canonical serialized form. It is safe
// to call on untrusted input: malformed data results in an error, never a
// panic or out-of-bounds read.
func DecodeNode(l *Layout, data []byte) (Node, error) {
	return decodeNodeBytes(l, data, false)
}

func decodeNodeBytes(l *Layout, data []byte, compact bool) (Node, error) {
	br := bytes.NewReader(data)
	r := io.NewBinReaderFromIO(br)
	n := decodeNode(l, r, compact)
	if r.Err != nil {
		return nil, r.Err
	}
	if br.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after node", br.Len())
	}
	return n, nil
}

// encodeChild writes a child reference: children encoding to less than the
// hash length are inlined, the rest are referenced by hash.
func encodeChild(l *Layout, n Node, w *io.BinWriter) {
	if _, ok := n.(omitNode); ok {
		w.WriteVarBytes(nil)
		return
	}
	if hn, ok := n.(*HashNode); ok {
		w.WriteVarBytes(hn.Hash(l))
		return
	}
	b := n.Bytes(l)
	if len(b) < l.hashSize() {
		w.WriteVarBytes(b)
	} else {
		w.WriteVarBytes(n.Hash(l))
	}
}

// decodeChild is the inverse of encodeChild. The reference length alone
// distinguishes inline children from hash references.
func decodeChild(l *Layout, r *io.BinReader, compact bool) Node {
	b := r.ReadVarBytes(l.hashSize())
	if r.Err != nil {
		return nil
	}
	switch {
	case len(b) == 0:
		if compact {
			return omitNode{}
		}
		r.Err = errors.New("empty child reference")
		return nil
	case len(b) == l.hashSize():
		return NewHashNode(b)
	default:
		n, err := decodeNodeBytes(l, b, compact)
		if err != nil {
			r.Err = fmt.Errorf("invalid inline child: %w", err)
			return nil
		}
		switch n.Type() {
		case LeafT, ExtensionT, BranchT:
			return n
		default:
			r.Err = fmt.Errorf("invalid inline child type: %#x", byte(n.Type()))
			return nil
		}
	}
}

// omitNode is a placeholder for a child elided from a compact proof. It
// never appears outside of compact proof processing.
type omitNode struct{}

func (omitNode) Type() NodeType                      { panic("omitted node") }
func (omitNode) Hash(*Layout) []byte                 { panic("omitted node") }
func (omitNode) Bytes(*Layout) []byte                { panic("omitted node") }
func (omitNode) encode(*Layout, *io.BinWriter)       {}
func (omitNode) decode(*Layout, *io.BinReader, bool) {}
