package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"general case", []float32{0.6, 0.8}, []float32{0.8, 0.6}, 0.96},
		{"empty vectors", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, dotProduct(tt.a, tt.b), 0.0001)
		})
	}
}

func TestKeys(t *testing.T) {
	t.Run("synonym key round trip", func(t *testing.T) {
		key := makeSynonymKey("asd", "HP:0000729", 4, 3)
		prefix := makeSynonymScanPrefix("asd")
		require.True(t, len(key) > len(prefix))

		id, category, synonymType, ok := parseSynonymKey(key[len(prefix):])
		require.True(t, ok)
		assert.EqualValues(t, "HP:0000729", id)
		assert.EqualValues(t, 4, category)
		assert.EqualValues(t, 3, synonymType)
	})

	t.Run("index keys sort by row", func(t *testing.T) {
		assert.Less(t, string(makeIndexKey(2)), string(makeIndexKey(10)))
		row, ok := parseIndexKey(makeIndexKey(300))
		require.True(t, ok)
		assert.Equal(t, 300, row)
	})

	t.Run("label prefix does not match longer label", func(t *testing.T) {
		key := makeLabelKey("asthma attack", "HP:1")
		assert.NotContains(t, string(key), string(makeLabelScanPrefix("asthma")))
	})
}
