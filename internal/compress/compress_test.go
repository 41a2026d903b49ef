package compress

import (
	"compress/gzip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	payload := []byte(strings.Repeat("DocumentName: Products -> Products and services\n", 40))

	for _, name := range []string{"nop", "gzip", "brotli", "lz4"} {
		t.Run(name, func(t *testing.T) {
			c, err := New(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			encoded, err := c.Encode(payload)
			require.NoError(t, err)
			if name != "nop" {
				assert.Less(t, len(encoded), len(payload))
			}

			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("zstd")
	assert.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "nop", c.Name())
}

func TestNewGZipLevel(t *testing.T) {
	fast, err := NewGZipLevel(gzip.BestSpeed)
	require.NoError(t, err)

	payload := []byte(strings.Repeat("NodeAliasPath: /A -> /B\n", 20))
	encoded, err := fast.Encode(payload)
	require.NoError(t, err)
	decoded, err := NewGZip().Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	_, err = NewGZipLevel(42)
	assert.Error(t, err)

	_, err = NewGZip().Decode([]byte("not gzip"))
	assert.Error(t, err)
}
