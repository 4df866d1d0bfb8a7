package trie

import (
	"crypto/sha256"

	"golang.org/x/crypto/blake2b"
)

// Hasher is a fixed-output-length digest function used for node hashing
// and root computation. Implementations must be deterministic and safe for
// concurrent use.
type Hasher interface {
	// Size returns the digest length in bytes.
	Size() int
	// Sum returns the digest of data.
	Sum(data []byte) []byte
}

type blake2b256 struct{}

func (blake2b256) Size() int { return blake2b.Size256 }

func (blake2b256) Sum(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// Blake2b256 is the default node hasher.
var Blake2b256 Hasher = blake2b256{}

type sha256d struct{}

func (sha256d) Size() int { return sha256.Size }

func (sha256d) Sum(data []byte) []byte {
	h := sha256.Sum256(data)
	h = sha256.Sum256(h[:])
	return h[:]
}

// Sha256d is a double-SHA256 hasher.
var Sha256d Hasher = sha256d{}
