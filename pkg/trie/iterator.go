package trie

import (
	"bytes"

	"github.com/patriciadb/patriciadb/pkg/util/slice"
)

// Iterator walks the trie in ascending key order. A freshly created
// iterator is positioned before the first entry; Next advances it and
// reports whether an entry is available.
type Iterator struct {
	trie   *Trie
	stack  []iterFrame
	prefix []byte // nibbles, empty means unbounded

	key   []byte
	value []byte
	err   error
}

// iterFrame tracks the in-progress traversal of a single node. path holds
// the nibbles accumulated above the node, excluding the node's own key.
// For branch nodes child is the next slot to visit, -1 meaning the
// branch's own value has not been emitted yet.
type iterFrame struct {
	node  Node
	path  []byte
	child int
}

// NewIterator returns an iterator over all entries of t.
func NewIterator(t *Trie) *Iterator {
	return newIterator(t, nil, nil)
}

// NewPrefixIterator returns an iterator over the entries of t whose keys
// start with the given prefix.
func NewPrefixIterator(t *Trie, prefix []byte) *Iterator {
	return newIterator(t, toNibbles(prefix), nil)
}

// NewSeekIterator returns an iterator positioned at the first entry of t
// with a key greater than or equal to seek.
func NewSeekIterator(t *Trie, seek []byte) *Iterator {
	return newIterator(t, nil, toNibbles(seek))
}

// NewPrefixSeekIterator combines NewPrefixIterator and NewSeekIterator:
// entries start at seek and stay within prefix.
func NewPrefixSeekIterator(t *Trie, prefix, seek []byte) *Iterator {
	return newIterator(t, toNibbles(prefix), toNibbles(seek))
}

func newIterator(t *Trie, prefix, seek []byte) *Iterator {
	it := &Iterator{trie: t, prefix: prefix}
	// Keys are visited in order, so the effective lower bound is the
	// larger of the prefix and the seek position.
	lower := prefix
	if bytes.Compare(seek, lower) > 0 {
		lower = seek
	}
	if len(lower) == 0 {
		it.push(t.root, nil, -1)
		return it
	}
	if err := it.descend(t.root, nil, lower); err != nil {
		// Frames seeded before the failure must not leak entries.
		it.err = err
		it.stack = nil
	}
	return it
}

func (it *Iterator) push(n Node, path []byte, child int) {
	it.stack = append(it.stack, iterFrame{node: n, path: path, child: child})
}

// descend seeds the stack with the frames covering keys >= s, where s is
// the remaining lower bound relative to the node's position.
func (it *Iterator) descend(n Node, path []byte, s []byte) error {
	r, err := it.trie.resolve(n)
	if err != nil {
		return err
	}
	switch v := r.(type) {
	case EmptyNode:
		return nil
	case *LeafNode:
		if bytes.Compare(v.key, s) >= 0 {
			it.push(v, path, -1)
		}
		return nil
	case *ExtensionNode:
		return it.descendKeyed(v, v.key, path, s, func(rest []byte) error {
			return it.descend(v.next, concat(path, v.key), rest)
		})
	case *BranchNode:
		return it.descendKeyed(v, v.key, path, s, func(rest []byte) error {
			i, rest := splitPath(rest)
			// Frame resuming at the next slot goes first: the sought
			// child is visited before its right siblings.
			it.push(v, path, int(i)+1)
			if v.Children[i] == nil {
				return nil
			}
			base := concat(path, v.key, []byte{i})
			return it.descend(v.Children[i], base, rest)
		})
	default:
		return nil
	}
}

// descendKeyed handles the shared partial-key comparison for extension and
// branch nodes: the whole subtree is either fully above the bound, fully
// below it, or split by it.
func (it *Iterator) descendKeyed(n Node, key, path, s []byte, into func(rest []byte) error) error {
	m := len(key)
	if len(s) < m {
		m = len(s)
	}
	switch bytes.Compare(key[:m], s[:m]) {
	case 1:
		it.push(n, path, -1)
		return nil
	case -1:
		return nil
	}
	if len(s) <= len(key) {
		it.push(n, path, -1)
		return nil
	}
	return into(s[len(key):])
}

// Next advances the iterator to the next entry. It returns false when the
// iteration is exhausted or an error occurred, see Err.
func (it *Iterator) Next() bool {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		r, err := it.trie.resolve(top.node)
		if err != nil {
			it.err = err
			return false
		}
		top.node = r
		switch n := r.(type) {
		case EmptyNode:
			it.pop()
		case *LeafNode:
			key := concat(top.path, n.key)
			value := n.value
			it.pop()
			if it.emit(key, value) {
				return true
			}
		case *ExtensionNode:
			base := concat(top.path, n.key)
			next := n.next
			it.pop()
			it.push(next, base, -1)
		case *BranchNode:
			if top.child == -1 {
				top.child = 0
				if n.value != nil {
					if it.emit(concat(top.path, n.key), n.value) {
						return true
					}
					if it.err != nil || len(it.stack) == 0 {
						return false
					}
					continue
				}
			}
			i := top.child
			for ; i < childrenCount; i++ {
				if n.Children[i] != nil {
					break
				}
			}
			if i == childrenCount {
				it.pop()
				continue
			}
			top.child = i + 1
			it.push(n.Children[i], concat(top.path, n.key, []byte{byte(i)}), -1)
		default:
			it.pop()
		}
	}
	return false
}

// emit records the entry at the given nibble path, reporting whether it is
// within the iterator's prefix. Keys are visited in order, so the first
// entry past the prefix ends the iteration.
func (it *Iterator) emit(path, value []byte) bool {
	if len(it.prefix) > 0 && !bytes.HasPrefix(path, it.prefix) {
		it.stack = nil
		return false
	}
	it.key = fromNibbles(path)
	it.value = slice.Copy(value)
	return true
}

func (it *Iterator) pop() {
	it.stack = it.stack[:len(it.stack)-1]
}

// Key returns the key of the current entry. It is only valid after a Next
// call that returned true.
func (it *Iterator) Key() []byte {
	return it.key
}

// Value returns the value of the current entry.
func (it *Iterator) Value() []byte {
	return it.value
}

// Err returns the first error encountered during iteration.
func (it *Iterator) Err() error {
	return it.err
}
