// Package fingerprint hashes discretized code vectors into 64-bit signatures.
//
// The hash input is the canonical wire form of a code vector: one byte per
// feature, the two's-complement encoding of the int8 code, in feature order.
// The digest is unkeyed BLAKE2b with an 8-byte output, read as a
// little-endian uint64. Signatures are fingerprints, not integrity checks.
package fingerprint

import (
	"encoding/binary"
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest size in bytes.
const Size = 8

// Signature is the 64-bit fingerprint of a code vector.
type Signature = uint64

// Bytes appends the canonical byte form of codes to dst[:0].
func Bytes(dst []byte, codes []int8) []byte {
	dst = dst[:0]
	for _, c := range codes {
		dst = append(dst, byte(c))
	}
	return dst
}

var hasherPool = sync.Pool{
	New: func() any { return NewHasher() },
}

// Sum returns the signature of codes.
// It is safe for concurrent use.
func Sum(codes []int8) Signature {
	h := hasherPool.Get().(*Hasher)
	defer hasherPool.Put(h)
	return h.Sum(codes)
}

// SumBytes returns the signature of an already serialized code vector.
func SumBytes(b []byte) Signature {
	h := hasherPool.Get().(*Hasher)
	defer hasherPool.Put(h)
	return h.SumBytes(b)
}

// Hasher computes signatures with reusable buffers.
// A Hasher is not safe for concurrent use; give each worker its own.
type Hasher struct {
	h      hash.Hash
	buf    []byte
	digest [Size]byte
}

// NewHasher creates a Hasher.
func NewHasher() *Hasher {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// Only reachable for sizes outside [1, 64] or oversized keys.
		panic(err)
	}
	return &Hasher{h: h}
}

// Sum returns the signature of codes.
func (h *Hasher) Sum(codes []int8) Signature {
	h.buf = Bytes(h.buf, codes)
	return h.SumBytes(h.buf)
}

// SumBytes returns the signature of b.
func (h *Hasher) SumBytes(b []byte) Signature {
	h.h.Reset()
	_, _ = h.h.Write(b)
	return binary.LittleEndian.Uint64(h.h.Sum(h.digest[:0]))
}
