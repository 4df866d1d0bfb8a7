package trie

import (
	"bytes"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/storage"
)

// GetCompactProof returns a proof for the given keys with redundant child
// hashes stripped: when a referenced node itself follows in the proof, the
// reference is elided and the verifier recomputes it. The nodes are
// ordered by a pre-order walk from the root.
func (t *Trie) GetCompactProof(keys ...[]byte) ([][]byte, error) {
	proof, err := t.GetProof(keys...)
	if err != nil {
		return nil, err
	}
	return t.compactify(proof)
}

func (t *Trie) compactify(proof [][]byte) ([][]byte, error) {
	if len(proof) == 0 {
		return nil, nil
	}
	nodes := make(map[string][]byte, len(proof))
	for _, p := range proof {
		nodes[string(t.layout.hasher.Sum(p))] = p
	}
	var (
		res     [][]byte
		visited = make(map[string]bool, len(proof))
	)
	// The first proof node is the root, GetProof emits it first.
	root := string(t.layout.hasher.Sum(proof[0]))
	if err := t.compactNode(root, nodes, visited, &res); err != nil {
		return nil, err
	}
	// Nodes unreachable from the root through elided references are kept
	// standalone, trailing the walk.
	for _, p := range proof {
		h := string(t.layout.hasher.Sum(p))
		if !visited[h] {
			visited[h] = true
			res = append(res, p)
		}
	}
	return res, nil
}

// compactNode re-encodes the node at hash h with every child reference
// that points into the proof set replaced by an elision mark, then recurses
// into the elided children in reference order.
func (t *Trie) compactNode(h string, nodes map[string][]byte, visited map[string]bool, res *[][]byte) error {
	visited[h] = true
	n, err := DecodeNode(t.layout, nodes[h])
	if err != nil {
		return err
	}
	var elided []string
	mark := func(c Node) Node {
		hn, ok := c.(*HashNode)
		if !ok {
			return c
		}
		ch := string(hn.hash)
		if _, in := nodes[ch]; !in || visited[ch] {
			return c
		}
		visited[ch] = true
		elided = append(elided, ch)
		return omitNode{}
	}
	switch v := n.(type) {
	case *BranchNode:
		for i, c := range v.Children {
			if c != nil {
				v.Children[i] = mark(c)
			}
		}
		v.invalidateCache()
	case *ExtensionNode:
		v.next = mark(v.next)
		v.invalidateCache()
	}
	*res = append(*res, toBytes(t.layout, n))
	for _, ch := range elided {
		if err := t.compactNode(ch, nodes, visited, res); err != nil {
			return err
		}
	}
	return nil
}

// VerifyCompactProof checks claims against a compact proof. The nodes are
// decoded in order, elided references are filled with the hashes of the
// nodes that follow, and the reconstructed root must match the expected
// one before the claims are replayed.
func VerifyCompactProof(l *Layout, root []byte, pairs []ProofPair, proof [][]byte) error {
	if l == nil {
		l = DefaultLayout()
	}
	st := storage.NewMemoryStore()
	if len(proof) == 0 {
		return verifyWithStore(l, root, pairs, st)
	}
	pos := 0
	var next func() ([]byte, error)
	next = func() ([]byte, error) {
		if pos >= len(proof) {
			return nil, fmt.Errorf("%w: truncated compact proof", ErrProofInvalid)
		}
		raw := proof[pos]
		pos++
		n, err := decodeNodeBytes(l, raw, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProofInvalid, err)
		}
		fill := func(c Node) (Node, error) {
			if _, ok := c.(omitNode); !ok {
				return c, nil
			}
			ch, err := next()
			if err != nil {
				return nil, err
			}
			return NewHashNode(ch), nil
		}
		switch v := n.(type) {
		case *BranchNode:
			for i, c := range v.Children {
				if c == nil {
					continue
				}
				if v.Children[i], err = fill(c); err != nil {
					return nil, err
				}
			}
			v.invalidateCache()
		case *ExtensionNode:
			if v.next, err = fill(v.next); err != nil {
				return nil, err
			}
			v.invalidateCache()
		}
		b := toBytes(l, n)
		h := l.hasher.Sum(b)
		if err := st.Put(makeStorageKey(h), b); err != nil {
			return nil, err
		}
		return h, nil
	}
	first, err := next()
	if err != nil {
		return err
	}
	if !bytes.Equal(first, root) {
		return fmt.Errorf("%w: got %x, want %x", ErrRootMismatch, first, root)
	}
	for pos < len(proof) {
		if _, err := next(); err != nil {
			return err
		}
	}
	return verifyWithStore(l, root, pairs, st)
}
