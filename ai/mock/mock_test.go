package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/deft/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder()
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "asthma")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "asthma")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 384)
	assert.Equal(t, 2, e.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_Reset(t *testing.T) {
	e := NewMockEmbedder()
	e.Dimensions = 8
	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 8)

	e.Reset()
	assert.Zero(t, e.CallCount())
}

func TestMockEmbedder_Model(t *testing.T) {
	e := NewMockEmbedder()
	assert.Equal(t, "mock", e.Model())
	e.ModelName = "nomic-embed-text"
	assert.Equal(t, "nomic-embed-text", e.Model())
}

func TestMockDisambiguator_DefaultPicksFirst(t *testing.T) {
	d := NewMockDisambiguator()
	id, err := d.Disambiguate(context.Background(), "x", []core.Candidate{{Id: "HP:1"}, {Id: "HP:2"}})
	require.NoError(t, err)
	assert.Equal(t, "HP:1", id)
	assert.Equal(t, "mock", d.Model())

	id, err = d.Disambiguate(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 2, d.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp, ok := p.(*MockProvider)
	require.True(t, ok)
	assert.Same(t, mp.GetMockEmbedder(), p.Embedder())
	assert.Same(t, mp.GetMockDisambiguator(), p.Disambiguator())
	assert.NoError(t, p.Close())
}
