package trie

// BaseNode implements basic things every node needs like caching hash and
// serialized representation. It's a basic node building block intended to be
// included into all node types.
type BaseNode struct {
	hash       []byte
	bytes      []byte
	hashValid  bool
	bytesValid bool

	isFlushed bool
}

type flushedNode interface {
	setCache([]byte, []byte)
	IsFlushed() bool
	SetFlushed()
}

func (b *BaseNode) setCache(bs, h []byte) {
	b.bytes = bs
	b.hash = h
	b.bytesValid = true
	b.hashValid = true
	b.isFlushed = true
}

// getHash returns a hash of this BaseNode.
func (b *BaseNode) getHash(l *Layout, n Node) []byte {
	if !b.hashValid {
		if n.Type() == HashT {
			panic("can't update hash for hash node")
		}
		b.hash = l.hasher.Sum(b.getBytes(l, n))
		b.hashValid = true
	}
	return b.hash
}

// getBytes returns a slice of bytes representing this node.
func (b *BaseNode) getBytes(l *Layout, n Node) []byte {
	if !b.bytesValid {
		b.bytes = toBytes(l, n)
		b.bytesValid = true
	}
	return b.bytes
}

// invalidateCache sets all cache fields to invalid state.
func (b *BaseNode) invalidateCache() {
	b.bytesValid = false
	b.hashValid = false
	b.isFlushed = false
}

// IsFlushed checks for node flush status.
func (b *BaseNode) IsFlushed() bool {
	return b.isFlushed
}

// SetFlushed sets 'flushed' flag to true for this node.
func (b *BaseNode) SetFlushed() {
	b.isFlushed = true
}
