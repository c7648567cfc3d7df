package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Tiles []int  `json:"tiles"`
	Biome string `json:"biome"`
}

func TestCodecRoundTrip(t *testing.T) {
	codecs := []Codec{JSON{}, GoJSON{}}

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			want := payload{Tiles: []int{1, 2, 3}, Biome: "forest"}

			data, err := c.Marshal(want)
			require.NoError(t, err)

			var got payload
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestCodecsProduceIdenticalBytes(t *testing.T) {
	v := payload{Tiles: []int{7, 8}, Biome: "tundra"}

	std, err := JSON{}.Marshal(v)
	require.NoError(t, err)
	fast, err := GoJSON{}.Marshal(v)
	require.NoError(t, err)

	assert.Equal(t, std, fast)
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestMustMarshal(t *testing.T) {
	data := MustMarshal(nil, payload{Biome: "swamp"})
	assert.NotEmpty(t, data)

	assert.Panics(t, func() {
		MustMarshal(JSON{}, make(chan int))
	})
}
