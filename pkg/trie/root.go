package trie

// Pair is a key-value pair for batch root computation.
type Pair struct {
	Key   []byte
	Value []byte
}

// ComputeRoot returns the root hash of a trie holding exactly the given
// pairs, without touching any persistent storage. Pair order does not
// affect the result; later values win for duplicate keys.
func ComputeRoot(l *Layout, pairs []Pair) ([]byte, error) {
	if l == nil {
		l = DefaultLayout()
	}
	t := NewTrie(nil, Config{Layout: l})
	for _, p := range pairs {
		if err := t.Put(p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	return t.Root(), nil
}
