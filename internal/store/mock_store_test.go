package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

func testVector(cos float32) []float32 {
	return []float32{cos, 1 - cos}
}

func newTestRecord(id, userID string, category models.MemoryCategory) models.MemoryRecord {
	rec := models.MemoryRecord{
		ID:         id,
		Text:       "memory " + id,
		UserID:     userID,
		Category:   category,
		Importance: 0.5,
		Source:     "test",
	}
	switch category {
	case models.CategoryEpisodic:
		rec.Episodic = &models.EpisodicAttributes{Speaker: "alice"}
	case models.CategorySemantic:
		rec.Semantic = &models.SemanticAttributes{FactType: "profile"}
	}
	return rec
}

func TestMockStore_InsertAndSearch(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	id, err := st.Insert(ctx, newTestRecord("m1", "u1", models.CategoryEpisodic), testVector(1))
	require.NoError(t, err)
	assert.Equal(t, "m1", id)

	hits, err := st.Search(ctx, testVector(1), "u1", models.CategoryEpisodic, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].Record.ID)
	assert.Equal(t, models.CategoryEpisodic, hits[0].Collection)
	assert.Greater(t, hits[0].Score, 0.99)
}

func TestMockStore_InsertGeneratesID(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	rec := newTestRecord("", "u1", models.CategorySemantic)
	id, err := st.Insert(ctx, rec, testVector(1))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestMockStore_SearchFiltersByUser(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	_, err := st.Insert(ctx, newTestRecord("m1", "u1", models.CategoryEpisodic), testVector(1))
	require.NoError(t, err)
	_, err = st.Insert(ctx, newTestRecord("m2", "u2", models.CategoryEpisodic), testVector(1))
	require.NoError(t, err)

	hits, err := st.Search(ctx, testVector(1), "u1", models.CategoryEpisodic, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].Record.ID)
}

func TestMockStore_SearchExtraFilters(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	a := newTestRecord("a", "u1", models.CategoryEpisodic)
	b := newTestRecord("b", "u1", models.CategoryEpisodic)
	b.Episodic.Speaker = "bob"
	_, err := st.Insert(ctx, a, testVector(1))
	require.NoError(t, err)
	_, err = st.Insert(ctx, b, testVector(1))
	require.NoError(t, err)

	speaker := "bob"
	hits, err := st.Search(ctx, testVector(1), "u1", models.CategoryEpisodic, 10, &SearchFilters{Speaker: &speaker})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Record.ID)
}

func TestMockStore_CountPerUserAndCategory(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	_, _ = st.Insert(ctx, newTestRecord("m1", "u1", models.CategoryEpisodic), testVector(1))
	_, _ = st.Insert(ctx, newTestRecord("m2", "u1", models.CategoryEpisodic), testVector(1))
	_, _ = st.Insert(ctx, newTestRecord("m3", "u1", models.CategorySemantic), testVector(1))
	_, _ = st.Insert(ctx, newTestRecord("m4", "u2", models.CategoryEpisodic), testVector(1))

	n, err := st.Count(ctx, "u1", models.CategoryEpisodic)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = st.Count(ctx, "u1", models.CategorySemantic)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMockStore_DeleteUser(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	_, _ = st.Insert(ctx, newTestRecord("m1", "u1", models.CategoryEpisodic), testVector(1))
	_, _ = st.Insert(ctx, newTestRecord("m2", "u2", models.CategoryEpisodic), testVector(1))

	require.NoError(t, st.DeleteUser(ctx, "u1", models.CategoryEpisodic))

	n, err := st.Count(ctx, "u1", models.CategoryEpisodic)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.Count(ctx, "u2", models.CategoryEpisodic)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMockStore_StatsAndReset(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()

	_, _ = st.Insert(ctx, newTestRecord("m1", "u1", models.CategorySemantic), testVector(1))

	stats, err := st.Stats(ctx, models.CategorySemantic)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.PointCount)
	assert.Equal(t, models.CategorySemantic, stats.Category)

	require.NoError(t, st.Reset(ctx, models.CategorySemantic))

	stats, err = st.Stats(ctx, models.CategorySemantic)
	require.NoError(t, err)
	assert.Zero(t, stats.PointCount)
}

func TestMockStore_FailCategories(t *testing.T) {
	ctx := context.Background()
	st := NewMockStore()
	st.FailCategories[models.CategoryEpisodic] = true

	_, err := st.Search(ctx, testVector(1), "u1", models.CategoryEpisodic, 10, nil)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = st.Insert(ctx, newTestRecord("m1", "u1", models.CategoryEpisodic), testVector(1))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched or empty inputs score zero.
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
