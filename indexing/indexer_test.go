package indexing

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/deft/ai/mock"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTerms() []*core.Term {
	return []*core.Term{
		{Id: "HP:0002099", Label: "Asthma"},
		{
			Id:    "HP:0000365",
			Label: "Hearing impairment",
			Synonyms: []core.Synonym{
				{Name: "Hearing loss"},
				{Name: "hearing IMPAIRMENT"},
				{Name: "Deafness"},
			},
		},
		{Id: "MONDO:0004979", Label: "asthma"},
	}
}

func newTestRepositories(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	require.NoError(t, repos.Vocabulary.AddTerms(context.Background(), testTerms()...))
	return repos
}

func fastConfig() Config {
	config := DefaultConfig()
	config.BatchSize = 2
	config.Concurrency = 3
	config.ReportInterval = 1
	config.RetryDelay = time.Millisecond
	return config
}

func TestTermTexts(t *testing.T) {
	entries := TermTexts(testTerms()[1])

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
		assert.Equal(t, core.Identifier("HP:0000365"), e.Id)
	}
	assert.Equal(t, []string{"Hearing impairment", "Hearing loss", "Deafness"}, texts)
}

func TestIndexer_Run(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	var progress bytes.Buffer

	ix, err := NewIndexer(repos.Vocabulary, repos.Index, mock.NewMockEmbedder(),
		WithConfig(fastConfig()), WithPrefix("HP"), WithProgress(&progress))
	require.NoError(t, err)

	rows, err := ix.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, rows)

	entries, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byText := map[string]core.Identifier{}
	for _, e := range entries {
		byText[e.Text] = e.Id

		var norm float64
		for _, v := range e.Vector {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4, "vectors are unit length")
	}
	assert.Equal(t, map[string]core.Identifier{
		"Asthma":             "HP:0002099",
		"Hearing impairment": "HP:0000365",
		"Hearing loss":       "HP:0000365",
		"Deafness":           "HP:0000365",
	}, byText)

	texts := make([]string, len(entries))
	for i, e := range entries {
		assert.Equal(t, i, e.Row)
		texts[i] = e.Text
	}
	assert.Equal(t, []string{"Hearing impairment", "Hearing loss", "Deafness", "Asthma"}, texts)

	assert.Contains(t, progress.String(), "Indexing 4 labels and synonyms")
	assert.Contains(t, progress.String(), "4/4")
}

func TestIndexer_RowsFollowVocabularyOrder(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	// The first batch finishes last.
	secondStarted := make(chan struct{})
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if texts[0] == "Hearing impairment" {
			<-secondStarted
			time.Sleep(20 * time.Millisecond)
		} else {
			close(secondStarted)
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	config := fastConfig()
	config.MaxRetries = 1
	ix, err := NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(config), WithPrefix("HP"))
	require.NoError(t, err)
	_, err = ix.Run(ctx)
	require.NoError(t, err)

	entries, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	assert.Equal(t, []string{"Hearing impairment", "Hearing loss", "Deafness", "Asthma"}, texts)
}

func TestIndexer_MixedVectorLengthsFail(t *testing.T) {
	repos := newTestRepositories(t)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		dims := 8
		if texts[0] == "Deafness" {
			dims = 4
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, dims)
		}
		return vectors, nil
	}

	config := fastConfig()
	config.Concurrency = 1
	ix, err := NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(config), WithPrefix("HP"))
	require.NoError(t, err)

	_, err = ix.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrDataIntegrity)

	_, ok, err := repos.Index.Fingerprint(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexer_RebuildReplacesRows(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	ix, err := NewIndexer(repos.Vocabulary, repos.Index, mock.NewMockEmbedder(), WithConfig(fastConfig()))
	require.NoError(t, err)

	_, err = ix.Run(ctx)
	require.NoError(t, err)
	rows, err := ix.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, rows)

	count, err := repos.Index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestIndexer_RetriesEmbedding(t *testing.T) {
	repos := newTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	var failures atomic.Int32
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failures.Add(1) <= 2 {
			return nil, errors.New("model loading")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	config := fastConfig()
	config.BatchSize = 10
	config.Concurrency = 1
	ix, err := NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(config), WithPrefix("HP"))
	require.NoError(t, err)

	rows, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, embedder.CallCount())
}

func TestIndexer_EmbeddingFailure(t *testing.T) {
	repos := newTestRepositories(t)

	t.Run("embedder never recovers", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("connection refused")
		}
		ix, err := NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(fastConfig()))
		require.NoError(t, err)

		_, err = ix.Run(context.Background())
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("wrong number of vectors", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}
		config := fastConfig()
		config.BatchSize = 10
		ix, err := NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(config))
		require.NoError(t, err)

		_, err = ix.Run(context.Background())
		assert.ErrorIs(t, err, ErrEmbeddingCount)
	})
}

func TestIndexer_Stale(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	ix, err := NewIndexer(repos.Vocabulary, repos.Index, mock.NewMockEmbedder(), WithConfig(fastConfig()), WithPrefix("HP"))
	require.NoError(t, err)

	stale, err := ix.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "never built")

	_, err = ix.Run(ctx)
	require.NoError(t, err)
	stale, err = ix.Stale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	all, err := NewIndexer(repos.Vocabulary, repos.Index, mock.NewMockEmbedder())
	require.NoError(t, err)
	stale, err = all.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "built for another prefix")

	otherModel := mock.NewMockEmbedder()
	otherModel.ModelName = "other-model"
	switched, err := NewIndexer(repos.Vocabulary, repos.Index, otherModel, WithPrefix("HP"))
	require.NoError(t, err)
	stale, err = switched.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "embedding model changed")

	resized := mock.NewMockEmbedder()
	resized.Dimensions = 16
	shorter, err := NewIndexer(repos.Vocabulary, repos.Index, resized, WithPrefix("HP"))
	require.NoError(t, err)
	stale, err = shorter.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "vector length changed")

	require.NoError(t, repos.Vocabulary.AddTerms(ctx, &core.Term{Id: "HP:0001250", Label: "Seizure"}))
	stale, err = ix.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "vocabulary changed")
}

func TestIndexer_StaleAfterFailedBuild(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	ix, err := NewIndexer(repos.Vocabulary, repos.Index, mock.NewMockEmbedder(), WithConfig(fastConfig()))
	require.NoError(t, err)
	_, err = ix.Run(ctx)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("connection refused")
	}
	broken, err := NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(fastConfig()))
	require.NoError(t, err)
	_, err = broken.Run(ctx)
	require.Error(t, err)

	stale, err := ix.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestFingerprint(t *testing.T) {
	a := []*core.IndexEntry{{Id: "HP:1", Text: "ab"}, {Id: "HP:2", Text: "c"}}
	b := []*core.IndexEntry{{Id: "HP:1", Text: "a"}, {Id: "HP:2", Text: "bc"}}
	same := []*core.IndexEntry{{Id: "HP:1", Text: "ab"}, {Id: "HP:2", Text: "c"}}

	assert.Equal(t, Fingerprint(a, "m", 384), Fingerprint(same, "m", 384))
	assert.NotEqual(t, Fingerprint(a, "m", 384), Fingerprint(b, "m", 384))
	assert.NotEqual(t, Fingerprint(a, "m", 384), Fingerprint(a, "n", 384))
	assert.NotEqual(t, Fingerprint(a, "m", 384), Fingerprint(a, "m", 768))
}

func TestIndexer_EmptyVocabulary(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ix, err := NewIndexer(repos.Vocabulary, repos.Index, mock.NewMockEmbedder())
	require.NoError(t, err)

	rows, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestNewIndexer_Errors(t *testing.T) {
	repos := newTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewIndexer(nil, repos.Index, embedder)
	assert.Equal(t, ErrVocabularyRequired, err)

	_, err = NewIndexer(repos.Vocabulary, nil, embedder)
	assert.Equal(t, ErrIndexRequired, err)

	_, err = NewIndexer(repos.Vocabulary, repos.Index, nil)
	assert.Equal(t, ErrEmbedderRequired, err)

	config := DefaultConfig()
	config.BatchSize = 0
	_, err = NewIndexer(repos.Vocabulary, repos.Index, embedder, WithConfig(config))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
