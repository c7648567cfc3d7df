package gridcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkKeyString(t *testing.T) {
	key := ChunkKey{OwnerID: "poi-1", X: -3, Y: 7}
	assert.Equal(t, "poi-1:-3:7", key.String())
}

func TestParseChunkKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ChunkKey
		wantErr bool
	}{
		{name: "simple", input: "poi-1:2:3", want: ChunkKey{OwnerID: "poi-1", X: 2, Y: 3}},
		{name: "negative coords", input: "poi-1:-2:-3", want: ChunkKey{OwnerID: "poi-1", X: -2, Y: -3}},
		{name: "owner with colon", input: "region:north:0:0", want: ChunkKey{OwnerID: "region:north", X: 0, Y: 0}},
		{name: "missing coords", input: "poi-1", wantErr: true},
		{name: "non-numeric", input: "poi-1:a:b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChunkKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChunkKeyRoundTrip(t *testing.T) {
	key := ChunkKey{OwnerID: "world:alpha", X: -17, Y: 42}
	got, err := ParseChunkKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestChunkOf(t *testing.T) {
	tests := []struct {
		p        Point
		size     int
		wantX    int
		wantY    int
	}{
		{Point{0, 0}, 16, 0, 0},
		{Point{15, 15}, 16, 0, 0},
		{Point{16, 31}, 16, 1, 1},
		{Point{-1, -16}, 16, -1, -1},
		{Point{-17, 0}, 16, -2, 0},
	}

	for _, tt := range tests {
		x, y := chunkOf(tt.p, tt.size)
		assert.Equal(t, tt.wantX, x, "x for %+v", tt.p)
		assert.Equal(t, tt.wantY, y, "y for %+v", tt.p)
	}
}

func TestChebyshev(t *testing.T) {
	assert.Equal(t, 0, chebyshev(0, 0))
	assert.Equal(t, 3, chebyshev(3, 1))
	assert.Equal(t, 5, chebyshev(-5, 2))
	assert.Equal(t, 4, chebyshev(1, -4))
}
