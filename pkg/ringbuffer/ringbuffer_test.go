package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentEviction(t *testing.T) {
	r := New[string](3)
	r.Push("a")
	r.Push("b")
	r.Push("c")
	assert.Equal(t, []string{"a", "b", "c"}, r.Items())
	r.Push("d")
	assert.Equal(t, []string{"b", "c", "d"}, r.Items())
	assert.True(t, r.Contains("b"))
	assert.False(t, r.Contains("a"))
}

func TestRecentLast(t *testing.T) {
	r := New[int](8)
	_, ok := r.Last()
	assert.False(t, ok)
	r.Push(1)
	r.Push(2)
	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 2, last)
}

func TestRecentZeroSizeClampedToOne(t *testing.T) {
	r := New[int](0)
	r.Push(1)
	r.Push(2)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []int{2}, r.Items())
}
