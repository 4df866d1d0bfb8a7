package trie

import (
	"errors"
	"fmt"

	"github.com/patriciadb/patriciadb/pkg/io"
)

// toNibbles mangles the path so that the trie can use it. Every byte is
// split into two nibbles, high half first.
func toNibbles(path []byte) []byte {
	result := make([]byte, len(path)*2)
	for i := range path {
		result[i*2] = path[i] >> 4
		result[i*2+1] = path[i] & 0x0F
	}
	return result
}

// fromNibbles performs an operation opposite to toNibbles and does no path
// validity checks.
func fromNibbles(path []byte) []byte {
	result := make([]byte, len(path)/2)
	for i := range result {
		result[i] = path[2*i]<<4 + path[2*i+1]
	}
	return result
}

// lcp returns the length of the longest common prefix of a and b.
func lcp(a, b []byte) int {
	lim := len(a)
	if len(b) < lim {
		lim = len(b)
	}
	var i int
	for i = 0; i < lim; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// splitPath splits path into the first nibble and the rest.
func splitPath(path []byte) (byte, []byte) {
	return path[0], path[1:]
}

// writeNibbles encodes a nibble sequence as a nibble count followed by the
// packed nibbles, two per byte, high half first. An odd sequence is padded
// with a zero low half in the last byte.
func writeNibbles(w *io.BinWriter, nib []byte) {
	w.WriteVarUint(uint64(len(nib)))
	for i := 0; i < len(nib); i += 2 {
		b := nib[i] << 4
		if i+1 < len(nib) {
			b |= nib[i+1]
		}
		w.WriteB(b)
	}
}

// readNibbles is the inverse of writeNibbles. It rejects sequences longer
// than max and non-zero padding.
func readNibbles(r *io.BinReader, max int) []byte {
	sz := r.ReadVarUint()
	if r.Err != nil {
		return nil
	}
	if sz > uint64(max) {
		r.Err = fmt.Errorf("partial key is too big: %d", sz)
		return nil
	}
	packed := make([]byte, (sz+1)/2)
	r.ReadBytes(packed)
	if r.Err != nil {
		return nil
	}
	nib := make([]byte, sz)
	for i := range nib {
		if i%2 == 0 {
			nib[i] = packed[i/2] >> 4
		} else {
			nib[i] = packed[i/2] & 0x0F
		}
	}
	if sz%2 == 1 && packed[len(packed)-1]&0x0F != 0 {
		r.Err = errors.New("non-canonical partial key padding")
		return nil
	}
	return nib
}
