package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzDecodeNode(f *testing.F) {
	l := DefaultLayout()
	f.Add(NewLeafNode([]byte{0x06, 0x04}, []byte("value")).Bytes(l))
	f.Add(EmptyNode{}.Bytes(l))
	f.Add(NewHashNode(l.hasher.Sum([]byte("seed"))).Bytes(l))
	b := NewBranchNode()
	b.value = []byte("v")
	b.Children[3] = NewLeafNode(nil, []byte("c"))
	f.Add(b.Bytes(l))
	f.Add([]byte{0x13, 0x01, 0x10, 0x01, 0x76})

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, l := range layoutsToTest() {
			n, err := DecodeNode(l, data)
			if err != nil {
				continue
			}
			// Decoding is canonical: anything accepted re-encodes to the
			// exact input bytes.
			require.Equal(t, data, n.Bytes(l))
		}
	})
}

func FuzzVerifyProof(f *testing.F) {
	l := DefaultLayout()
	tr := newTestTrie(l)
	require.NoError(f, tr.Put([]byte("dog"), []byte("puppy")))
	require.NoError(f, tr.Put([]byte("doge"), []byte("coin")))
	root := tr.Root()
	proof, err := tr.GetProof([]byte("dog"))
	require.NoError(f, err)
	for _, p := range proof {
		f.Add(p)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		pairs := []ProofPair{{Key: []byte("dog"), Value: []byte("puppy")}}
		// Arbitrary garbage mixed into a proof may fail verification but
		// must never panic or prove a false claim.
		mixed := append([][]byte{data}, proof...)
		_ = VerifyProof(l, root, pairs, mixed)

		bad := []ProofPair{{Key: []byte("dog"), Value: []byte("kitten")}}
		require.Error(t, VerifyProof(l, root, bad, mixed))
	})
}

func FuzzVerifyCompactProof(f *testing.F) {
	l := DefaultLayout()
	tr := newTestTrie(l)
	require.NoError(f, tr.Put([]byte("dog"), []byte("puppy")))
	require.NoError(f, tr.Put([]byte("doge"), []byte("coin")))
	require.NoError(f, tr.Put([]byte("horse"), []byte("stallion")))
	root := tr.Root()
	proof, err := tr.GetCompactProof([]byte("doge"))
	require.NoError(f, err)
	for _, p := range proof {
		f.Add(p)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		pairs := []ProofPair{{Key: []byte("doge"), Value: []byte("coin")}}
		_ = VerifyCompactProof(l, root, pairs, [][]byte{data})
		_ = VerifyCompactProof(l, root, pairs, append([][]byte{data}, proof...))
	})
}

func FuzzPutGet(f *testing.F) {
	f.Add([]byte("dog"), []byte("puppy"))
	f.Add([]byte{}, []byte{})
	f.Add([]byte{0xff, 0x00}, []byte("x"))

	f.Fuzz(func(t *testing.T, key, value []byte) {
		if len(key) > MaxKeyLength || len(value) > MaxValueLength {
			t.Skip()
		}
		if value == nil {
			value = []byte{}
		}
		for _, l := range layoutsToTest() {
			tr := newTestTrie(l)
			require.NoError(t, tr.Put(key, value))
			got, err := tr.Get(key)
			require.NoError(t, err)
			require.Equal(t, append([]byte{}, value...), got)

			require.NoError(t, tr.Delete(key))
			require.Equal(t, l.EmptyRoot(), tr.Root())
		}
	})
}
