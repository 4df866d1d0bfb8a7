package trie

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/storage"
	"github.com/patriciadb/patriciadb/pkg/util/slice"
)

// Trie is a Merkle-Patricia trie mapping byte-string keys to byte-string
// values. It is persistent: every mutation produces a new root while nodes
// reachable from previously flushed roots stay valid in the store.
type Trie struct {
	root            Node
	store           storage.Store
	layout          *Layout
	refcountEnabled bool

	// deathRow holds drop counts for nodes orphaned by mutations, applied
	// on Flush when refcounting is enabled.
	deathRow map[string]int
	// pendingDrops collects orphan candidates of an in-flight mutation,
	// committed to deathRow only when the mutation succeeds.
	pendingDrops []string
}

// ErrNotFound is returned when the requested trie item is missing.
var ErrNotFound = errors.New("item not found")

// ErrCorrupted is returned when a stored node violates structural
// invariants. It indicates a damaged store, not a bad argument.
var ErrCorrupted = errors.New("inconsistent trie store")

// Config is a set of options for NewTrie.
type Config struct {
	// Store keeps serialized nodes keyed by their hash.
	Store storage.Store
	// Layout selects the structural variant, DefaultLayout() if nil.
	Layout *Layout
	// RefCountEnabled makes Flush maintain per-node reference counters and
	// drop orphaned nodes. Pruning is advisory: disabling it never affects
	// correctness, old roots just stay around.
	RefCountEnabled bool
}

// NewTrie returns a new trie with the given root node. A nil root makes an
// empty trie.
func NewTrie(root Node, cfg Config) *Trie {
	if root == nil {
		root = EmptyNode{}
	}
	l := cfg.Layout
	if l == nil {
		l = DefaultLayout()
	}
	return &Trie{
		root:            root,
		store:           cfg.Store,
		layout:          l,
		refcountEnabled: cfg.RefCountEnabled,
		deathRow:        make(map[string]int),
	}
}

// NewTrieFromRoot returns a trie rooted at the given root hash. The
// canonical empty root makes an empty trie.
func NewTrieFromRoot(root []byte, cfg Config) *Trie {
	l := cfg.Layout
	if l == nil {
		l = DefaultLayout()
	}
	cfg.Layout = l
	if len(root) == 0 || l.IsEmptyRoot(root) {
		return NewTrie(EmptyNode{}, cfg)
	}
	return NewTrie(NewHashNode(root), cfg)
}

// Layout returns the trie's structural layout.
func (t *Trie) Layout() *Layout {
	return t.layout
}

// Root returns the root hash of t. An empty trie has the canonical
// all-zero root.
func (t *Trie) Root() []byte {
	if _, ok := t.root.(EmptyNode); ok {
		return t.layout.EmptyRoot()
	}
	return slice.Copy(t.root.Hash(t.layout))
}

func makeStorageKey(h []byte) []byte {
	return storage.AppendPrefix(storage.DataTrie, h)
}

// getFromStore loads a node by its hash. storage.ErrKeyNotFound propagates
// when the node is missing; a node that fails to decode means a corrupted
// store.
func (t *Trie) getFromStore(h []byte) (Node, error) {
	data, err := t.store.Get(makeStorageKey(h))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve node %x: %w", h, err)
	}
	if t.refcountEnabled {
		if len(data) < 5 {
			return nil, fmt.Errorf("%w: node %x is too short for refcount", ErrCorrupted, h)
		}
		data = data[:len(data)-4]
	}
	n, err := DecodeNode(t.layout, data)
	if err != nil {
		return nil, fmt.Errorf("%w: node %x: %v", ErrCorrupted, h, err)
	}
	switch n.Type() {
	case HashT, EmptyT:
		return nil, fmt.Errorf("%w: node %x has invalid stored type", ErrCorrupted, h)
	}
	n.(flushedNode).setCache(data, slice.Copy(h))
	return n, nil
}

// resolve replaces a hash node with the node it references, leaving other
// nodes untouched.
func (t *Trie) resolve(n Node) (Node, error) {
	hn, ok := n.(*HashNode)
	if !ok {
		return n, nil
	}
	return t.getFromStore(hn.hash)
}

// resolveMut is resolve for mutating operations: resolved nodes become
// orphan candidates, since a successful mutation rewrites the whole path.
func (t *Trie) resolveMut(n Node) (Node, error) {
	hn, ok := n.(*HashNode)
	if !ok {
		return n, nil
	}
	r, err := t.getFromStore(hn.hash)
	if err != nil {
		return nil, err
	}
	t.pendingDrops = append(t.pendingDrops, string(hn.hash))
	return r, nil
}

func (t *Trie) commitDrops() {
	if t.refcountEnabled {
		for _, h := range t.pendingDrops {
			t.deathRow[h]++
		}
	}
	t.pendingDrops = t.pendingDrops[:0]
}

func (t *Trie) abortDrops() {
	t.pendingDrops = t.pendingDrops[:0]
}

// Get returns the value for the provided key in t, or ErrNotFound when the
// key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if len(key) > MaxKeyLength {
		return nil, errors.New("key is too big")
	}
	return t.getFromNode(t.root, toNibbles(key))
}

func (t *Trie) getFromNode(curr Node, path []byte) ([]byte, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return nil, ErrNotFound
	case *HashNode:
		r, err := t.getFromStore(n.hash)
		if err != nil {
			return nil, err
		}
		return t.getFromNode(r, path)
	case *LeafNode:
		if bytes.Equal(n.key, path) {
			return slice.Copy(n.value), nil
		}
		return nil, ErrNotFound
	case *ExtensionNode:
		if bytes.HasPrefix(path, n.key) {
			return t.getFromNode(n.next, path[len(n.key):])
		}
		return nil, ErrNotFound
	case *BranchNode:
		if !bytes.HasPrefix(path, n.key) {
			return nil, ErrNotFound
		}
		rest := path[len(n.key):]
		if len(rest) == 0 {
			if n.value == nil {
				return nil, ErrNotFound
			}
			return slice.Copy(n.value), nil
		}
		i, rest := splitPath(rest)
		if n.Children[i] == nil {
			return nil, ErrNotFound
		}
		return t.getFromNode(n.Children[i], rest)
	default:
		panic("invalid trie node type")
	}
}

// Put puts a key-value pair into t. A nil value removes the key; an empty
// non-nil value is stored as a regular value.
func (t *Trie) Put(key, value []byte) error {
	if len(key) > MaxKeyLength {
		return errors.New("key is too big")
	}
	if len(value) > MaxValueLength {
		return errors.New("value is too big")
	}
	if value == nil {
		return t.Delete(key)
	}
	r, err := t.putIntoNode(t.root, toNibbles(key), slice.Copy(value))
	if err != nil {
		t.abortDrops()
		return err
	}
	t.commitDrops()
	t.root = r
	return nil
}

// wrap attaches a key prefix on top of a branch node the way the layout
// represents it: a fresh extension node or the branch's own partial key.
func (t *Trie) wrap(prefix []byte, b *BranchNode) Node {
	if t.layout.useExtensions {
		if len(prefix) == 0 {
			return b
		}
		return NewExtensionNode(slice.Copy(prefix), b)
	}
	b.key = slice.Copy(prefix)
	return b
}

// putIntoNode puts value at the given path inside curr and returns a new
// node replacing it. Touched nodes are rebuilt, never mutated in place.
func (t *Trie) putIntoNode(curr Node, path []byte, value []byte) (Node, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return NewLeafNode(slice.Copy(path), value), nil
	case *HashNode:
		r, err := t.resolveMut(n)
		if err != nil {
			return nil, err
		}
		return t.putIntoNode(r, path, value)
	case *LeafNode:
		return t.putIntoLeaf(n, path, value)
	case *ExtensionNode:
		return t.putIntoExtension(n, path, value)
	case *BranchNode:
		return t.putIntoBranch(n, path, value)
	default:
		panic("invalid trie node type")
	}
}

func (t *Trie) putIntoLeaf(n *LeafNode, path []byte, value []byte) (Node, error) {
	com := lcp(n.key, path)
	if com == len(n.key) && com == len(path) {
		return NewLeafNode(slice.Copy(path), value), nil
	}

	b := NewBranchNode()
	if com == len(n.key) {
		b.value = n.value
	} else {
		b.Children[n.key[com]] = NewLeafNode(slice.Copy(n.key[com+1:]), n.value)
	}
	if com == len(path) {
		b.value = value
	} else {
		b.Children[path[com]] = NewLeafNode(slice.Copy(path[com+1:]), value)
	}
	return t.wrap(path[:com], b), nil
}

func (t *Trie) putIntoExtension(n *ExtensionNode, path []byte, value []byte) (Node, error) {
	if bytes.HasPrefix(path, n.key) {
		next, err := t.resolveMut(n.next)
		if err != nil {
			return nil, err
		}
		r, err := t.putIntoNode(next, path[len(n.key):], value)
		if err != nil {
			return nil, err
		}
		return NewExtensionNode(n.key, r), nil
	}

	com := lcp(n.key, path)
	keyTail := n.key[com:]
	pathTail := path[com:]

	b := NewBranchNode()
	if len(keyTail) == 1 {
		b.Children[keyTail[0]] = n.next
	} else {
		b.Children[keyTail[0]] = NewExtensionNode(slice.Copy(keyTail[1:]), n.next)
	}
	if len(pathTail) == 0 {
		b.value = value
	} else {
		b.Children[pathTail[0]] = NewLeafNode(slice.Copy(pathTail[1:]), value)
	}
	return t.wrap(path[:com], b), nil
}

func (t *Trie) putIntoBranch(n *BranchNode, path []byte, value []byte) (Node, error) {
	com := lcp(n.key, path)
	if com == len(n.key) {
		rest := path[com:]
		nb := n.clone()
		if len(rest) == 0 {
			nb.value = value
			return nb, nil
		}
		i, rest := splitPath(rest)
		if n.Children[i] == nil {
			nb.Children[i] = NewLeafNode(slice.Copy(rest), value)
			return nb, nil
		}
		child, err := t.resolveMut(n.Children[i])
		if err != nil {
			return nil, err
		}
		r, err := t.putIntoNode(child, rest, value)
		if err != nil {
			return nil, err
		}
		nb.Children[i] = r
		return nb, nil
	}

	// The path diverges inside the branch's own partial key, which only
	// layouts without extension nodes have.
	lower := n.clone()
	lower.key = slice.Copy(n.key[com+1:])
	top := NewBranchNode()
	top.Children[n.key[com]] = lower
	rest := path[com:]
	if len(rest) == 0 {
		top.value = value
	} else {
		top.Children[rest[0]] = NewLeafNode(slice.Copy(rest[1:]), value)
	}
	return t.wrap(path[:com], top), nil
}

// Delete removes the key from t. Removing an absent key is a no-op keeping
// the same root.
func (t *Trie) Delete(key []byte) error {
	if len(key) > MaxKeyLength {
		return errors.New("key is too big")
	}
	r, err := t.deleteFromNode(t.root, toNibbles(key))
	if err != nil {
		t.abortDrops()
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	t.commitDrops()
	t.root = r
	return nil
}

func (t *Trie) deleteFromNode(curr Node, path []byte) (Node, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return nil, ErrNotFound
	case *HashNode:
		r, err := t.resolveMut(n)
		if err != nil {
			return nil, err
		}
		return t.deleteFromNode(r, path)
	case *LeafNode:
		if bytes.Equal(n.key, path) {
			return EmptyNode{}, nil
		}
		return nil, ErrNotFound
	case *ExtensionNode:
		return t.deleteFromExtension(n, path)
	case *BranchNode:
		return t.deleteFromBranch(n, path)
	default:
		panic("invalid trie node type")
	}
}

func (t *Trie) deleteFromExtension(n *ExtensionNode, path []byte) (Node, error) {
	if !bytes.HasPrefix(path, n.key) {
		return nil, ErrNotFound
	}
	next, err := t.resolveMut(n.next)
	if err != nil {
		return nil, err
	}
	r, err := t.deleteFromNode(next, path[len(n.key):])
	if err != nil {
		return nil, err
	}
	switch nxt := r.(type) {
	case EmptyNode:
		return EmptyNode{}, nil
	case *ExtensionNode:
		return NewExtensionNode(concat(n.key, nxt.key), nxt.next), nil
	case *LeafNode:
		return NewLeafNode(concat(n.key, nxt.key), nxt.value), nil
	case *BranchNode:
		return NewExtensionNode(slice.Copy(n.key), nxt), nil
	default:
		panic("invalid trie node type")
	}
}

func (t *Trie) deleteFromBranch(n *BranchNode, path []byte) (Node, error) {
	com := lcp(n.key, path)
	if com != len(n.key) {
		return nil, ErrNotFound
	}
	rest := path[com:]
	nb := n.clone()
	if len(rest) == 0 {
		if n.value == nil {
			return nil, ErrNotFound
		}
		nb.value = nil
		return t.collapseBranch(nb)
	}
	i, rest := splitPath(rest)
	if n.Children[i] == nil {
		return nil, ErrNotFound
	}
	child, err := t.resolveMut(n.Children[i])
	if err != nil {
		return nil, err
	}
	r, err := t.deleteFromNode(child, rest)
	if err != nil {
		return nil, err
	}
	if _, ok := r.(EmptyNode); ok {
		nb.Children[i] = nil
		return t.collapseBranch(nb)
	}
	nb.Children[i] = r
	return nb, nil
}

// collapseBranch restores the branch invariant after a removal: a branch
// left with a single child and no value merges with that child, a branch
// left with only a value becomes a leaf.
func (t *Trie) collapseBranch(b *BranchNode) (Node, error) {
	var count, index int
	for i, c := range b.Children {
		if c != nil {
			count++
			index = i
		}
	}
	if count > 1 || (count == 1 && b.value != nil) {
		return b, nil
	}
	if count == 1 {
		c, err := t.resolveMut(b.Children[index])
		if err != nil {
			return nil, err
		}
		if t.layout.useExtensions {
			switch v := c.(type) {
			case *LeafNode:
				return NewLeafNode(concat([]byte{byte(index)}, v.key), v.value), nil
			case *ExtensionNode:
				return NewExtensionNode(concat([]byte{byte(index)}, v.key), v.next), nil
			case *BranchNode:
				return NewExtensionNode([]byte{byte(index)}, v), nil
			}
		} else {
			switch v := c.(type) {
			case *LeafNode:
				return NewLeafNode(concat(b.key, []byte{byte(index)}, v.key), v.value), nil
			case *BranchNode:
				nb := v.clone()
				nb.key = concat(b.key, []byte{byte(index)}, v.key)
				return nb, nil
			}
		}
		return nil, fmt.Errorf("%w: unexpected child type on branch collapse", ErrCorrupted)
	}
	if b.value != nil {
		return NewLeafNode(slice.Copy(b.key), b.value), nil
	}
	// A branch that is down to zero children and no value only appears
	// when the stored structure was invalid to begin with.
	return nil, fmt.Errorf("%w: branch collapsed to nothing", ErrCorrupted)
}

func concat(parts ...[]byte) []byte {
	var size int
	for _, p := range parts {
		size += len(p)
	}
	res := make([]byte, 0, size)
	for _, p := range parts {
		res = append(res, p...)
	}
	return res
}

// Flush puts every hash-referenced node reachable from the root to the
// storage and, with refcounting enabled, applies pending orphan drops.
// Inline children stay embedded in their parents.
func (t *Trie) Flush() error {
	if _, ok := t.root.(EmptyNode); !ok {
		if err := t.flushNode(t.root, true); err != nil {
			return err
		}
	}
	if t.refcountEnabled {
		for h, cnt := range t.deathRow {
			for i := 0; i < cnt; i++ {
				if err := t.dropRef([]byte(h)); err != nil {
					return err
				}
			}
		}
	}
	t.deathRow = make(map[string]int)
	return nil
}

func (t *Trie) flushNode(n Node, force bool) error {
	switch n.(type) {
	case *HashNode, EmptyNode:
		return nil
	}
	fn := n.(flushedNode)
	if fn.IsFlushed() {
		return nil
	}
	b := n.Bytes(t.layout)
	if !force && len(b) < t.layout.hashSize() {
		return nil
	}
	switch v := n.(type) {
	case *BranchNode:
		for _, c := range v.Children {
			if c != nil {
				if err := t.flushNode(c, false); err != nil {
					return err
				}
			}
		}
	case *ExtensionNode:
		if err := t.flushNode(v.next, false); err != nil {
			return err
		}
	}
	return t.putToStore(n)
}

func (t *Trie) putToStore(n Node) error {
	key := makeStorageKey(n.Hash(t.layout))
	b := n.Bytes(t.layout)
	if t.refcountEnabled {
		data, err := t.store.Get(key)
		if err == nil {
			if len(data) < 5 {
				return fmt.Errorf("%w: node %x is too short for refcount", ErrCorrupted, n.Hash(t.layout))
			}
			cnt := binary.LittleEndian.Uint32(data[len(data)-4:])
			binary.LittleEndian.PutUint32(data[len(data)-4:], cnt+1)
		} else if errors.Is(err, storage.ErrKeyNotFound) {
			data = append(slice.Copy(b), 1, 0, 0, 0)
		} else {
			return err
		}
		if err := t.store.Put(key, data); err != nil {
			return err
		}
	} else {
		if err := t.store.Put(key, b); err != nil {
			return err
		}
	}
	n.(flushedNode).SetFlushed()
	return nil
}

// dropRef decrements a node's reference counter, removing the node when it
// hits zero. Missing nodes are ignored, pruning is advisory.
func (t *Trie) dropRef(h []byte) error {
	key := makeStorageKey(h)
	data, err := t.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	if len(data) < 5 {
		return fmt.Errorf("%w: node %x is too short for refcount", ErrCorrupted, h)
	}
	cnt := binary.LittleEndian.Uint32(data[len(data)-4:])
	if cnt <= 1 {
		return t.store.Delete(key)
	}
	binary.LittleEndian.PutUint32(data[len(data)-4:], cnt-1)
	return t.store.Put(key, data)
}
