// Package sigset implements the signature set learned from normal traffic.
//
// A Set is a plain hash set: the only query is membership. Sorting only
// happens when a set is exported for persistence.
package sigset

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a set of 64-bit signatures.
// The zero value is an empty set ready to use.
//
// A Set is not safe for concurrent mutation. Concurrent reads are safe
// while no writer is active.
type Set struct {
	m map[uint64]struct{}
}

// New creates an empty set with room for n signatures.
func New(n int) Set {
	return Set{m: make(map[uint64]struct{}, n)}
}

// Of creates a set from the given signatures. Duplicates collapse.
func Of(sigs ...uint64) Set {
	s := New(len(sigs))
	for _, sig := range sigs {
		s.m[sig] = struct{}{}
	}
	return s
}

// Add inserts sig.
func (s *Set) Add(sig uint64) {
	if s.m == nil {
		s.m = make(map[uint64]struct{})
	}
	s.m[sig] = struct{}{}
}

// Merge inserts every signature of other.
func (s *Set) Merge(other Set) {
	if s.m == nil {
		s.m = make(map[uint64]struct{}, len(other.m))
	}
	for sig := range other.m {
		s.m[sig] = struct{}{}
	}
}

// Contains reports whether sig is in the set.
func (s Set) Contains(sig uint64) bool {
	_, ok := s.m[sig]
	return ok
}

// Len returns the number of signatures.
func (s Set) Len() int { return len(s.m) }

// Sorted returns the signatures in ascending order.
func (s Set) Sorted() []uint64 {
	out := make([]uint64, 0, len(s.m))
	for sig := range s.m {
		out = append(out, sig)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := New(len(s.m))
	for sig := range s.m {
		c.m[sig] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold the same signatures.
func (s Set) Equal(other Set) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for sig := range s.m {
		if _, ok := other.m[sig]; !ok {
			return false
		}
	}
	return true
}

// Bitmap converts the set into a compressed 64-bit roaring bitmap.
func (s Set) Bitmap() *roaring64.Bitmap {
	bm := roaring64.New()
	bm.AddMany(s.Sorted())
	bm.RunOptimize()
	return bm
}

// FromBitmap builds a set from a roaring bitmap.
func FromBitmap(bm *roaring64.Bitmap) Set {
	s := New(int(bm.GetCardinality()))
	it := bm.Iterator()
	for it.HasNext() {
		s.m[it.Next()] = struct{}{}
	}
	return s
}
