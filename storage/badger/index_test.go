package badger

import (
	"context"
	"testing"

	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []*core.IndexEntry {
	return []*core.IndexEntry{
		{Row: 0, Id: "HP:0002099", Text: "Asthma", Vector: []float32{1, 0, 0}},
		{Row: 1, Id: "HP:0030828", Text: "Wheezing", Vector: []float32{0.8, 0.6, 0}},
		{Row: 2, Id: "HP:0001631", Text: "Atrial septal defect", Vector: []float32{0, 0, 1}},
		{Row: 3, Id: "HP:0001631", Text: "ASD", Vector: []float32{0, 0.6, 0.8}},
	}
}

func TestIndex_PutEntries(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	// Rows are stored under the caller's numbers whatever the write order.
	shuffled := sampleEntries()
	require.NoError(t, repos.Index.PutEntries(ctx, shuffled[2], shuffled[3]))
	require.NoError(t, repos.Index.PutEntries(ctx, shuffled[0], shuffled[1]))

	entries, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, i, e.Row)
		assert.Equal(t, sampleEntries()[i].Id, e.Id)
		assert.Equal(t, sampleEntries()[i].Text, e.Text)
	}

	count, err := repos.Index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestIndex_PutEntriesRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid entry", func(t *testing.T) {
		repos := newTestRepositories(t)
		err := repos.Index.PutEntries(ctx, &core.IndexEntry{Id: "HP:1", Text: "x"})
		assert.ErrorIs(t, err, core.ErrInvalidIndexEntry)
	})

	t.Run("negative row", func(t *testing.T) {
		repos := newTestRepositories(t)
		err := repos.Index.PutEntries(ctx, &core.IndexEntry{Row: -1, Id: "HP:1", Text: "x", Vector: []float32{1}})
		assert.ErrorIs(t, err, core.ErrInvalidIndexEntry)
	})

	t.Run("row already stored", func(t *testing.T) {
		repos := newTestRepositories(t)
		require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()[0]))

		err := repos.Index.PutEntries(ctx, &core.IndexEntry{Row: 0, Id: "HP:1", Text: "x", Vector: []float32{0, 1, 0}})
		assert.ErrorIs(t, err, core.ErrDataIntegrity)
	})

	t.Run("duplicate row in one call", func(t *testing.T) {
		repos := newTestRepositories(t)
		a, b := sampleEntries()[0], sampleEntries()[1]
		b.Row = a.Row

		err := repos.Index.PutEntries(ctx, a, b)
		assert.ErrorIs(t, err, core.ErrDataIntegrity)
		count, err := repos.Index.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count, "a rejected call stores nothing")
	})

	t.Run("vector length differs from stored rows", func(t *testing.T) {
		repos := newTestRepositories(t)
		require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()[0]))

		err := repos.Index.PutEntries(ctx, &core.IndexEntry{Row: 7, Id: "HP:1", Text: "x", Vector: []float32{1, 0}})
		assert.ErrorIs(t, err, core.ErrDataIntegrity)
	})

	t.Run("vector lengths differ within one call", func(t *testing.T) {
		repos := newTestRepositories(t)
		err := repos.Index.PutEntries(ctx,
			&core.IndexEntry{Row: 0, Id: "HP:1", Text: "x", Vector: []float32{1, 0, 0}},
			&core.IndexEntry{Row: 1, Id: "HP:2", Text: "y", Vector: []float32{1, 0}},
		)
		assert.ErrorIs(t, err, core.ErrDataIntegrity)
	})

	t.Run("any length after clear", func(t *testing.T) {
		repos := newTestRepositories(t)
		require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()[0]))
		require.NoError(t, repos.Index.Clear(ctx))

		err := repos.Index.PutEntries(ctx, &core.IndexEntry{Row: 0, Id: "HP:1", Text: "x", Vector: []float32{1, 0}})
		assert.NoError(t, err)
	})
}

func TestIndex_Search(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()...))

	neighbors, err := repos.Index.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.Equal(t, 0, neighbors[0].Row)
	assert.InDelta(t, 1.0, neighbors[0].Score, 1e-6)
	assert.Equal(t, 1, neighbors[1].Row)
	assert.InDelta(t, 0.8, neighbors[1].Score, 1e-6)

	all, err := repos.Index.Search(ctx, []float32{1, 0, 0}, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}

	_, err = repos.Index.Search(ctx, []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestIndex_SearchTiesByRow(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Index.PutEntries(ctx,
		&core.IndexEntry{Row: 5, Id: "HP:5", Text: "e", Vector: []float32{0, 1}},
		&core.IndexEntry{Row: 2, Id: "HP:2", Text: "b", Vector: []float32{0, 1}},
		&core.IndexEntry{Row: 9, Id: "HP:9", Text: "i", Vector: []float32{0, 1}},
	))

	neighbors, err := repos.Index.Search(ctx, []float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, neighbors, 3)
	assert.Equal(t, []int{2, 5, 9}, []int{neighbors[0].Row, neighbors[1].Row, neighbors[2].Row})
}

func TestIndex_SearchRejectsMismatchedQuery(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()...))

	_, err := repos.Index.Search(ctx, []float32{1, 0}, 3)
	assert.ErrorIs(t, err, core.ErrDataIntegrity)

	_, err = repos.Index.Search(ctx, []float32{1, 0, 0, 0}, 3)
	assert.ErrorIs(t, err, core.ErrDataIntegrity)
}

func TestIndex_SearchSeesNewEntries(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	neighbors, err := repos.Index.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, neighbors)

	require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()[0]))

	neighbors, err = repos.Index.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, neighbors, 1)
}

func TestIndex_EntriesAreCopies(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()...))

	entries, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	entries[0].Vector[0] = -1
	entries[0].Text = "changed"

	again, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(1), again[0].Vector[0])
	assert.Equal(t, "Asthma", again[0].Text)
}

func TestIndex_Clear(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	require.NoError(t, repos.Index.PutEntries(ctx, sampleEntries()...))

	require.NoError(t, repos.Index.Clear(ctx))

	count, err := repos.Index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	entries, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndex_Fingerprint(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, ok, err := repos.Index.Fingerprint(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repos.Index.SetFingerprint(ctx, core.IDFromContent("build")))
	fingerprint, ok, err := repos.Index.Fingerprint(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, core.IDFromContent("build"), fingerprint)

	require.NoError(t, repos.Index.Clear(ctx))
	_, ok, err = repos.Index.Fingerprint(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "clear drops the fingerprint")
}

func TestIndex_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	added := sampleEntries()

	repos, err := OpenRepositories(dir, false)
	require.NoError(t, err)
	require.NoError(t, repos.Index.PutEntries(ctx, added...))
	require.NoError(t, repos.Close())

	repos, err = OpenRepositories(dir, false)
	require.NoError(t, err)
	defer repos.Close()

	entries, err := repos.Index.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, len(added))
	for i := range added {
		assert.Equal(t, added[i].Row, entries[i].Row)
		assert.Equal(t, added[i].Vector, entries[i].Vector)
	}

	err = repos.Index.PutEntries(ctx, &core.IndexEntry{Row: 4, Id: "HP:1", Text: "x", Vector: []float32{1}})
	assert.ErrorIs(t, err, core.ErrDataIntegrity, "dimension survives reopen")
}
