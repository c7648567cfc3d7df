package gridcache

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkKey identifies a cached chunk: the owning context (e.g. a POI or
// session) plus integer grid coordinates. Keys are immutable values; two keys
// are equal iff all three fields are equal.
type ChunkKey struct {
	OwnerID string
	X       int
	Y       int
}

// String encodes the key as "{owner}:{x}:{y}". The encoding is stable and is
// what byte-oriented backends use to derive object names.
func (k ChunkKey) String() string {
	return fmt.Sprintf("%s:%d:%d", k.OwnerID, k.X, k.Y)
}

// ParseChunkKey parses the "{owner}:{x}:{y}" encoding produced by String.
// The owner itself may contain colons; the last two segments are coordinates.
func ParseChunkKey(s string) (ChunkKey, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return ChunkKey{}, fmt.Errorf("malformed chunk key %q", s)
	}
	j := strings.LastIndexByte(s[:i], ':')
	if j < 0 {
		return ChunkKey{}, fmt.Errorf("malformed chunk key %q", s)
	}

	x, err := strconv.Atoi(s[j+1 : i])
	if err != nil {
		return ChunkKey{}, fmt.Errorf("malformed chunk key %q: %w", s, err)
	}
	y, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return ChunkKey{}, fmt.Errorf("malformed chunk key %q: %w", s, err)
	}

	return ChunkKey{OwnerID: s[:j], X: x, Y: y}, nil
}

// Point is a position in world coordinates. Chunk coordinates are derived by
// flooring against the configured chunk size.
type Point struct {
	X int
	Y int
}

// chunkOf maps a world coordinate to its chunk coordinate. Plain integer
// division truncates toward zero, which is wrong for negative world
// coordinates, so we floor explicitly.
func chunkOf(p Point, size int) (int, int) {
	return floorDiv(p.X, size), floorDiv(p.Y, size)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// chebyshev returns max(|dx|, |dy|), the square-radius distance metric used
// for both prefetch enumeration and priority tiers.
func chebyshev(dx, dy int) int {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
