package sigset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Basic(t *testing.T) {
	var s Set
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(1))

	s.Add(42)
	s.Add(42)
	s.Add(7)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(42))
	assert.True(t, s.Contains(7))
	assert.False(t, s.Contains(8))
}

func TestSet_Sorted(t *testing.T) {
	s := Of(math.MaxUint64, 3, 1<<63, 0, 3)
	assert.Equal(t, []uint64{0, 3, 1 << 63, math.MaxUint64}, s.Sorted())
}

func TestSet_CloneEqual(t *testing.T) {
	s := Of(1, 2, 3)
	c := s.Clone()
	require.True(t, s.Equal(c))

	c.Add(4)
	assert.False(t, s.Equal(c))
	assert.Equal(t, 3, s.Len())

	assert.False(t, Of(1, 2).Equal(Of(1, 3)))
}

func TestSet_Merge(t *testing.T) {
	var s Set
	s.Merge(Of(1, 2))
	s.Merge(Of(2, 3))
	assert.Equal(t, []uint64{1, 2, 3}, s.Sorted())
}

func TestSet_Bitmap(t *testing.T) {
	s := Of(0, 17, 1<<40, math.MaxUint64)

	bm := s.Bitmap()
	assert.Equal(t, uint64(4), bm.GetCardinality())
	assert.True(t, bm.Contains(1<<40))

	back := FromBitmap(bm)
	assert.True(t, s.Equal(back))
}
