package trie

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testRoundTrip(t *testing.T, l *Layout, n Node) Node {
	data := n.Bytes(l)
	got, err := DecodeNode(l, data)
	require.NoError(t, err)
	require.Equal(t, n.Type(), got.Type())
	require.Equal(t, data, got.Bytes(l))
	require.Equal(t, n.Hash(l), got.Hash(l))
	return got
}

func TestNode_RoundTrip(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		t.Run("leaf", func(t *testing.T) {
			testRoundTrip(t, l, NewLeafNode([]byte{0x06, 0x04, 0x06, 0x0f}, []byte("value")))
			testRoundTrip(t, l, NewLeafNode(nil, []byte("no key")))
			testRoundTrip(t, l, NewLeafNode([]byte{0x01}, []byte{}))
		})
		t.Run("hash", func(t *testing.T) {
			h := l.hasher.Sum([]byte("some node"))
			testRoundTrip(t, l, NewHashNode(h))
		})
		t.Run("branch with inline children", func(t *testing.T) {
			b := NewBranchNode()
			b.value = []byte("mid")
			b.Children[0] = NewLeafNode([]byte{0x02}, []byte("a"))
			b.Children[15] = NewLeafNode(nil, []byte("b"))
			if !l.useExtensions {
				b.key = []byte{0x0a, 0x0b}
			}
			testRoundTrip(t, l, b)
		})
		t.Run("branch with hash children", func(t *testing.T) {
			b := NewBranchNode()
			b.Children[3] = NewHashNode(l.hasher.Sum([]byte("left")))
			b.Children[7] = NewHashNode(l.hasher.Sum([]byte("right")))
			got := testRoundTrip(t, l, b).(*BranchNode)
			require.IsType(t, (*HashNode)(nil), got.Children[3])
			require.Nil(t, got.Children[0])
		})
		t.Run("branch with big child by hash", func(t *testing.T) {
			big := NewLeafNode([]byte{0x01}, make([]byte, 100))
			b := NewBranchNode()
			b.Children[5] = big
			got := testRoundTrip(t, l, b).(*BranchNode)
			hn, ok := got.Children[5].(*HashNode)
			require.True(t, ok)
			require.Equal(t, big.Hash(l), hn.Hash(l))
		})
	})
}

func TestNode_ExtensionRoundTrip(t *testing.T) {
	l := NewLayout(Blake2b256, true)
	testRoundTrip(t, l, NewExtensionNode([]byte{0x01, 0x02, 0x03},
		NewLeafNode([]byte{0x04}, []byte("v"))))
	testRoundTrip(t, l, NewExtensionNode([]byte{0x0f},
		NewHashNode(l.hasher.Sum([]byte("next")))))
}

func TestNode_LayoutTagMismatch(t *testing.T) {
	withExt := NewLayout(Blake2b256, true)
	withoutExt := NewLayout(Blake2b256, false)

	leaf := NewLeafNode([]byte{0x01}, []byte("v"))
	_, err := DecodeNode(withoutExt, leaf.Bytes(withExt))
	require.Error(t, err)

	leaf2 := NewLeafNode([]byte{0x01}, []byte("v"))
	_, err = DecodeNode(withExt, leaf2.Bytes(withoutExt))
	require.Error(t, err)
}

func TestNode_DecodeInvalid(t *testing.T) {
	l := NewLayout(Blake2b256, true)

	t.Run("empty input", func(t *testing.T) {
		_, err := DecodeNode(l, nil)
		require.Error(t, err)
	})
	t.Run("unknown tag", func(t *testing.T) {
		_, err := DecodeNode(l, []byte{0x0f})
		require.Error(t, err)
	})
	t.Run("trailing bytes", func(t *testing.T) {
		data := NewLeafNode([]byte{0x01}, []byte("v")).Bytes(l)
		_, err := DecodeNode(l, append(data, 0x00))
		require.Error(t, err)
	})
	t.Run("truncated", func(t *testing.T) {
		data := NewLeafNode([]byte{0x01}, []byte("value")).Bytes(l)
		for i := 1; i < len(data); i++ {
			_, err := DecodeNode(l, data[:i])
			require.Error(t, err, "length %d", i)
		}
	})
	t.Run("extension with empty key", func(t *testing.T) {
		// Tag, zero nibble count, then an inline leaf child.
		child := NewLeafNode([]byte{0x01}, []byte("v")).Bytes(l)
		data := []byte{l.tag(ExtensionT), 0x00, byte(len(child))}
		data = append(data, child...)
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
	t.Run("branch without children and value", func(t *testing.T) {
		data := []byte{l.tag(BranchT), 0x00, 0x00, 0x00}
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
	t.Run("branch with bad value marker", func(t *testing.T) {
		b := NewBranchNode()
		b.value = []byte("v")
		b.Children[0] = NewLeafNode(nil, []byte("c"))
		data := append([]byte(nil), b.Bytes(l)...)
		data[1] = 0x02
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
	t.Run("empty child reference", func(t *testing.T) {
		// An elided child is only meaningful inside a compact proof.
		data := []byte{l.tag(ExtensionT), 0x01, 0x10, 0x00}
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
	t.Run("non-canonical length encoding", func(t *testing.T) {
		// A value length of one written in the three-byte varint form.
		data := []byte{l.tag(LeafT), 0x01, 0x10, 0xfd, 0x01, 0x00, 0x76}
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
	t.Run("non-canonical nibble padding", func(t *testing.T) {
		data := append([]byte(nil), NewLeafNode([]byte{0x01}, []byte("v")).Bytes(l)...)
		// The odd-count padding half must be zero.
		data[2] |= 0x0f
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
	t.Run("inline child of invalid type", func(t *testing.T) {
		// Only leaves, extensions and branches can be inlined.
		data := []byte{l.tag(ExtensionT), 0x01, 0x10, 0x01, l.tag(EmptyT)}
		_, err := DecodeNode(l, data)
		require.Error(t, err)
	})
}

func TestNode_DecodeDoesNotPanic(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		inputs := [][]byte{
			{},
			{0x00},
			{0x10},
			{0xff},
			{0x00, 0xff, 0xff, 0xff},
			{0x01, 0xfd, 0xff, 0xff},
			{0x03, 0xfe, 0xff, 0xff, 0xff, 0xff},
			{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		}
		for _, in := range inputs {
			require.NotPanics(t, func() {
				_, _ = DecodeNode(l, in)
			})
		}
	})
}

func TestNode_InlineThreshold(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		// A child strictly shorter than the hash stays inline, anything
		// else is referenced by hash.
		small := NewLeafNode(nil, []byte("x"))
		require.Less(t, len(small.Bytes(l)), l.hashSize())

		b := NewBranchNode()
		b.Children[0] = small
		got := testRoundTrip(t, l, b).(*BranchNode)
		inlined, ok := got.Children[0].(*LeafNode)
		require.True(t, ok)
		require.Equal(t, small.Bytes(l), inlined.Bytes(l))
	})
}

func TestEmptyNode(t *testing.T) {
	testWithLayouts(t, func(t *testing.T, l *Layout) {
		n := EmptyNode{}
		got, err := DecodeNode(l, n.Bytes(l))
		require.NoError(t, err)
		require.Equal(t, EmptyT, got.Type())
		require.Panics(t, func() { n.Hash(l) })
	})
}
