package trie

import (
	"testing"

	"github.com/patriciadb/patriciadb/pkg/io"
	"github.com/stretchr/testify/require"
)

func TestToNibbles(t *testing.T) {
	require.Equal(t, []byte{}, toNibbles(nil))
	require.Equal(t, []byte{0x06, 0x04}, toNibbles([]byte{0x64}))
	require.Equal(t, []byte{0x0f, 0x00, 0x00, 0x0f}, toNibbles([]byte{0xf0, 0x0f}))

	for _, b := range [][]byte{nil, {0x00}, {0x12, 0x34, 0x56}, {0xff, 0x00, 0xff}} {
		require.Equal(t, append([]byte{}, b...), fromNibbles(toNibbles(b)))
	}
}

func TestLcp(t *testing.T) {
	require.Equal(t, 0, lcp(nil, nil))
	require.Equal(t, 0, lcp([]byte{0x01}, []byte{0x02}))
	require.Equal(t, 1, lcp([]byte{0x01}, []byte{0x01, 0x02}))
	require.Equal(t, 2, lcp([]byte{0x01, 0x02, 0x03}, []byte{0x01, 0x02, 0x04}))
	require.Equal(t, 3, lcp([]byte{0x01, 0x02, 0x03}, []byte{0x01, 0x02, 0x03}))
}

func TestNibblesCodec(t *testing.T) {
	for _, nib := range [][]byte{
		nil,
		{0x01},
		{0x01, 0x02},
		{0x0f, 0x0e, 0x0d},
		toNibbles([]byte("dogecoin")),
	} {
		buf := io.NewBufBinWriter()
		writeNibbles(buf.BinWriter, nib)
		require.NoError(t, buf.Err)

		r := io.NewBinReaderFromBuf(buf.Bytes())
		got := readNibbles(r, maxPathLength)
		require.NoError(t, r.Err)
		require.Equal(t, len(nib), len(got))
		for i := range nib {
			require.Equal(t, nib[i], got[i])
		}
	}
}

func TestNibblesCodec_Invalid(t *testing.T) {
	t.Run("too long", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		writeNibbles(buf.BinWriter, make([]byte, 10))
		r := io.NewBinReaderFromBuf(buf.Bytes())
		readNibbles(r, 5)
		require.Error(t, r.Err)
	})
	t.Run("non-zero padding", func(t *testing.T) {
		// One nibble packed as 0x1f: the low half must be zero.
		r := io.NewBinReaderFromBuf([]byte{0x01, 0x1f})
		readNibbles(r, maxPathLength)
		require.Error(t, r.Err)
	})
	t.Run("truncated", func(t *testing.T) {
		r := io.NewBinReaderFromBuf([]byte{0x04, 0x12})
		readNibbles(r, maxPathLength)
		require.Error(t, r.Err)
	})
}
