package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/storage"
	"github.com/patriciadb/patriciadb/pkg/util/slice"
)

// Proof verification errors.
var (
	// ErrProofIncomplete means the proof lacks a node needed to decide
	// one of the claims.
	ErrProofIncomplete = errors.New("proof is missing a required node")
	// ErrProofInvalid means a proof node is malformed or structurally
	// inconsistent.
	ErrProofInvalid = errors.New("invalid proof")
	// ErrRootMismatch means the proof does not reconstruct the expected
	// root hash.
	ErrRootMismatch = errors.New("proof root mismatch")
	// ErrValueMismatch means the proof is sound but contradicts a claim.
	ErrValueMismatch = errors.New("proof contradicts the claimed value")
)

// ProofPair is a single claim checked against a proof: the key maps to
// Value, or is absent from the trie when Value is nil.
type ProofPair struct {
	Key   []byte
	Value []byte
}

// GetProof returns a proof of membership or non-membership for the given
// keys against the current root. The proof is the set of serialized nodes
// on the lookup paths, deduplicated and in no particular order.
func (t *Trie) GetProof(keys ...[]byte) ([][]byte, error) {
	var (
		proof [][]byte
		seen  = make(map[string]bool)
	)
	for _, key := range keys {
		if len(key) > MaxKeyLength {
			return nil, errors.New("key is too big")
		}
		if err := t.getProof(t.root, toNibbles(key), true, seen, &proof); err != nil {
			return nil, err
		}
	}
	return proof, nil
}

func (t *Trie) getProof(curr Node, path []byte, isRoot bool, seen map[string]bool, proof *[][]byte) error {
	r, err := t.resolve(curr)
	if err != nil {
		return err
	}
	switch n := r.(type) {
	case EmptyNode:
		return nil
	case *LeafNode:
		t.addToProof(n, isRoot, seen, proof)
		return nil
	case *ExtensionNode:
		t.addToProof(n, isRoot, seen, proof)
		if bytes.HasPrefix(path, n.key) {
			return t.getProof(n.next, path[len(n.key):], false, seen, proof)
		}
		return nil
	case *BranchNode:
		t.addToProof(n, isRoot, seen, proof)
		if !bytes.HasPrefix(path, n.key) {
			return nil
		}
		rest := path[len(n.key):]
		if len(rest) == 0 {
			return nil
		}
		i, rest := splitPath(rest)
		if n.Children[i] == nil {
			return nil
		}
		return t.getProof(n.Children[i], rest, false, seen, proof)
	default:
		panic("invalid trie node type")
	}
}

// addToProof appends the node's serialized form to the proof. Inline nodes
// are already embedded in their parent's bytes, only the root and
// hash-referenced nodes stand alone.
func (t *Trie) addToProof(n Node, isRoot bool, seen map[string]bool, proof *[][]byte) {
	b := n.Bytes(t.layout)
	if !isRoot && len(b) < t.layout.hashSize() {
		return
	}
	h := string(n.Hash(t.layout))
	if seen[h] {
		return
	}
	seen[h] = true
	*proof = append(*proof, slice.Copy(b))
}

// VerifyProof checks the given claims against a proof and the expected
// root hash. It returns nil when every claim holds, ErrValueMismatch when
// the proof disproves a claim and ErrProofIncomplete or ErrProofInvalid
// when the proof itself is unusable.
func VerifyProof(l *Layout, root []byte, pairs []ProofPair, proof [][]byte) error {
	if l == nil {
		l = DefaultLayout()
	}
	st := storage.NewMemoryStore()
	for _, p := range proof {
		h := l.hasher.Sum(p)
		if err := st.Put(makeStorageKey(h), p); err != nil {
			return err
		}
	}
	return verifyWithStore(l, root, pairs, st)
}

// verifyWithStore replays a lookup for every claim against a store holding
// the proof nodes. An untrusted proof can only fail the lookups, it can
// never make a wrong value hash up to the root.
func verifyWithStore(l *Layout, root []byte, pairs []ProofPair, st storage.Store) error {
	tr := NewTrieFromRoot(root, Config{Store: st, Layout: l})
	for _, p := range pairs {
		v, err := tr.Get(p.Key)
		switch {
		case err == nil:
			if p.Value == nil {
				return fmt.Errorf("%w: key %x is present", ErrValueMismatch, p.Key)
			}
			if !bytes.Equal(v, p.Value) {
				return fmt.Errorf("%w: key %x", ErrValueMismatch, p.Key)
			}
		case errors.Is(err, ErrNotFound):
			if p.Value != nil {
				return fmt.Errorf("%w: key %x is absent", ErrValueMismatch, p.Key)
			}
		case errors.Is(err, storage.ErrKeyNotFound):
			return fmt.Errorf("%w: key %x", ErrProofIncomplete, p.Key)
		default:
			return fmt.Errorf("%w: %v", ErrProofInvalid, err)
		}
	}
	return nil
}
