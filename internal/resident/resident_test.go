package resident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddRemove(t *testing.T) {
	s := NewSet()

	assert.False(t, s.Contains("poi-1", 0, 0))

	s.Add("poi-1", 0, 0)
	s.Add("poi-1", -3, 7)
	assert.True(t, s.Contains("poi-1", 0, 0))
	assert.True(t, s.Contains("poi-1", -3, 7))
	assert.Equal(t, 2, s.Count("poi-1"))

	// Owners are isolated.
	assert.False(t, s.Contains("poi-2", 0, 0))
	assert.Equal(t, 0, s.Count("poi-2"))

	s.Remove("poi-1", 0, 0)
	assert.False(t, s.Contains("poi-1", 0, 0))
	assert.Equal(t, 1, s.Count("poi-1"))

	// Removing an absent coordinate is a no-op.
	s.Remove("poi-1", 99, 99)
	s.Remove("unknown", 0, 0)
	assert.Equal(t, 1, s.Count("poi-1"))
}

func TestSetNegativeCoordinates(t *testing.T) {
	s := NewSet()

	coords := [][2]int{
		{0, 0}, {-1, -1}, {-1, 1}, {1, -1},
		{-32768, -32768}, {32767, 32767}, {-32768, 32767},
	}
	for _, c := range coords {
		s.Add("o", c[0], c[1])
	}
	for _, c := range coords {
		assert.True(t, s.Contains("o", c[0], c[1]), "(%d,%d)", c[0], c[1])
	}
	assert.Equal(t, len(coords), s.Count("o"))

	// Sign-adjacent coordinates must not collide.
	assert.False(t, s.Contains("o", 1, 1))
	assert.False(t, s.Contains("o", 0, -1))
}

func TestSetCountInRadius(t *testing.T) {
	s := NewSet()

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			s.Add("o", dx, dy)
		}
	}
	s.Add("o", 5, 5)

	assert.Equal(t, 9, s.CountInRadius("o", 0, 0, 1))
	assert.Equal(t, 10, s.CountInRadius("o", 0, 0, 5))
	assert.Equal(t, 1, s.CountInRadius("o", 0, 0, 0))
	assert.Equal(t, 0, s.CountInRadius("absent", 0, 0, 3))
}

func TestSetClearAndReset(t *testing.T) {
	s := NewSet()
	s.Add("a", 1, 1)
	s.Add("b", 2, 2)

	s.Clear("a")
	assert.Equal(t, 0, s.Count("a"))
	assert.Equal(t, 1, s.Count("b"))

	s.Reset()
	assert.Equal(t, 0, s.Count("b"))
}

func TestPackZigzag(t *testing.T) {
	assert.Equal(t, uint16(0), zigzag(0))
	assert.Equal(t, uint16(1), zigzag(-1))
	assert.Equal(t, uint16(2), zigzag(1))
	assert.Equal(t, uint16(65535), zigzag(-32768))

	assert.NotEqual(t, pack(1, 0), pack(0, 1))
	assert.NotEqual(t, pack(-1, 0), pack(0, -1))
}
