package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func proofSize(proof [][]byte) int {
	var size int
	for _, p := range proof {
		size += len(p)
	}
	return size
}

func TestCompactProof_RoundTrip(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)
		root := tr.Root()

		for k, v := range iterPairs {
			proof, err := tr.GetCompactProof([]byte(k))
			require.NoError(t, err)

			pairs := []ProofPair{{Key: []byte(k), Value: []byte(v)}}
			require.NoError(t, VerifyCompactProof(l, root, pairs, proof), "key %q", k)
		}
	})
}

func TestCompactProof_MultipleKeys(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)
		root := tr.Root()

		keys := [][]byte{[]byte("do"), []byte("dogecoin"), []byte("horse")}
		proof, err := tr.GetCompactProof(keys...)
		require.NoError(t, err)

		pairs := []ProofPair{
			{Key: []byte("do"), Value: []byte("verb")},
			{Key: []byte("dogecoin"), Value: []byte("memes")},
			{Key: []byte("horse"), Value: []byte("stallion")},
		}
		require.NoError(t, VerifyCompactProof(l, root, pairs, proof))
	})
}

func TestCompactProof_SmallerThanFull(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)

		full, err := tr.GetProof([]byte("dogecoin"))
		require.NoError(t, err)
		compact, err := tr.GetCompactProof([]byte("dogecoin"))
		require.NoError(t, err)

		require.Equal(t, len(full), len(compact))
		// Every elided child reference saves a hash worth of bytes.
		if len(full) > 1 {
			require.Less(t, proofSize(compact), proofSize(full))
		}
	})
}

func TestCompactProof_Absence(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)
		root := tr.Root()

		proof, err := tr.GetCompactProof([]byte("dogs"))
		require.NoError(t, err)
		pairs := []ProofPair{{Key: []byte("dogs"), Value: nil}}
		require.NoError(t, VerifyCompactProof(l, root, pairs, proof))
	})
}

func TestCompactProof_TamperingDetected(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)
		root := tr.Root()
		pairs := []ProofPair{{Key: []byte("doge"), Value: []byte("coin")}}

		proof, err := tr.GetCompactProof([]byte("doge"))
		require.NoError(t, err)
		require.NoError(t, VerifyCompactProof(l, root, pairs, proof))

		// Any single-byte change anywhere in the proof must be caught.
		for i := range proof {
			for j := range proof[i] {
				for _, bit := range []byte{0x01, 0x80} {
					tampered := make([][]byte, len(proof))
					for k := range proof {
						tampered[k] = append([]byte(nil), proof[k]...)
					}
					tampered[i][j] ^= bit
					require.Error(t, VerifyCompactProof(l, root, pairs, tampered),
						"node %d byte %d bit %#x", i, j, bit)
				}
			}
		}
	})
}

func TestCompactProof_WrongRoot(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)
		proof, err := tr.GetCompactProof([]byte("dog"))
		require.NoError(t, err)

		pairs := []ProofPair{{Key: []byte("dog"), Value: []byte("puppy")}}
		badRoot := l.hasher.Sum([]byte("not the root"))
		require.ErrorIs(t, VerifyCompactProof(l, badRoot, pairs, proof), ErrRootMismatch)
	})
}

func TestCompactProof_Truncated(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := prepareProofTrie(t, l)
		root := tr.Root()
		proof, err := tr.GetCompactProof([]byte("dog"))
		require.NoError(t, err)
		require.True(t, len(proof) > 1)

		pairs := []ProofPair{{Key: []byte("dog"), Value: []byte("puppy")}}
		require.Error(t, VerifyCompactProof(l, root, pairs, proof[:len(proof)-1]))
	})
}

func TestCompactProof_Empty(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		tr := newTestTrie(l)
		proof, err := tr.GetCompactProof([]byte("dog"))
		require.NoError(t, err)
		require.Empty(t, proof)

		pairs := []ProofPair{{Key: []byte("dog"), Value: nil}}
		require.NoError(t, VerifyCompactProof(l, l.EmptyRoot(), pairs, proof))
	})
}
