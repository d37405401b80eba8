package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motortribe/motortribe/internal/search/domain/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func seedPosts(t *testing.T, e *Engine) {
	t.Helper()

	require.NoError(t, e.Index([]model.PostDocument{
		{PostID: 1, Title: "Brake pads squealing", Description: "Front brake pads squeal when stopping at low speed"},
		{PostID: 2, Title: "Oil change interval", Description: "How often should I change synthetic oil"},
		{PostID: 3, Title: "Engine misfire on cold start", Description: "Cylinder 3 misfires until the engine warms up"},
		{PostID: 4, Title: "Best all season tires", Description: "Recommendations for quiet all season tires"},
	}))
}

func postIDs(hits []model.SearchHit) []int64 {
	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.Document.PostID)
	}
	return ids
}

func TestSearchEmptyQuery(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	for _, query := range []string{"", "   ", "\t\n"} {
		hits, err := e.Search(query, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	}
}

func TestSearchExactToken(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	hits, err := e.Search("brake", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, postIDs(hits), int64(1))
}

func TestSearchMisspelledToken(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	// within edit distance 2 of "brake"
	for _, query := range []string{"braek", "brkae"} {
		hits, err := e.Search(query, 10)
		require.NoError(t, err, "query %q", query)
		assert.Contains(t, postIDs(hits), int64(1), "query %q", query)
	}
}

func TestSearchDescriptionField(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	hits, err := e.Search("synthetic", 10)
	require.NoError(t, err)
	assert.Contains(t, postIDs(hits), int64(2))
}

func TestSearchNoDuplicates(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	// matches post 1 on both the token branch and the similarity branch
	hits, err := e.Search("brake pads squealing", 10)
	require.NoError(t, err)

	seen := make(map[int64]int)
	for _, hit := range hits {
		seen[hit.Document.PostID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "post %d returned more than once", id)
	}
	assert.Contains(t, postIDs(hits), int64(1))
}

func TestSearchUnrelatedQuery(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	hits, err := e.Search("zzzzqqqq", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)
	seedPosts(t, e)

	assert.Equal(t, uint64(4), e.Size())

	hits, err := e.Search("brake", 10)
	require.NoError(t, err)

	count := 0
	for _, hit := range hits {
		if hit.Document.PostID == 1 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestIndexUpdatesExistingDocument(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	require.NoError(t, e.Index([]model.PostDocument{
		{PostID: 1, Title: "Suspension clunk", Description: "Knocking noise over bumps"},
	}))

	hits, err := e.Search("suspension", 10)
	require.NoError(t, err)
	assert.Contains(t, postIDs(hits), int64(1))

	hits, err = e.Search("brake", 10)
	require.NoError(t, err)
	assert.NotContains(t, postIDs(hits), int64(1))
}

func TestIndexRejectsNegativeID(t *testing.T) {
	e := newTestEngine(t)

	err := e.Index([]model.PostDocument{{PostID: -1, Title: "bad"}})
	assert.ErrorIs(t, err, model.ErrInvalidDocumentID)
	assert.Equal(t, uint64(0), e.Size())
}

func TestRemove(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	require.NoError(t, e.Remove(1))
	assert.Equal(t, uint64(3), e.Size())

	hits, err := e.Search("brake", 10)
	require.NoError(t, err)
	assert.NotContains(t, postIDs(hits), int64(1))

	// unknown ID is a no-op
	require.NoError(t, e.Remove(999))
}

func TestRebuildReplacesContents(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	require.NoError(t, e.Rebuild([]model.PostDocument{
		{PostID: 10, Title: "Turbo lag", Description: "Noticeable lag below 2500 rpm"},
	}))

	assert.Equal(t, uint64(1), e.Size())

	hits, err := e.Search("brake", 10)
	require.NoError(t, err)
	assert.NotContains(t, postIDs(hits), int64(1))

	hits, err = e.Search("turbo", 10)
	require.NoError(t, err)
	assert.Contains(t, postIDs(hits), int64(10))
}

func TestSimilarityBranchCatchesPhrases(t *testing.T) {
	e := newTestEngine(t)
	seedPosts(t, e)

	// close to the full title of post 2 but with no exact token overlap
	// guaranteed, the whole-string ratio should still clear the cutoff
	hits, err := e.Search("oil change intervals", 10)
	require.NoError(t, err)
	assert.Contains(t, postIDs(hits), int64(2))
}

func TestSearchMaxResultsBoundsTokenBranch(t *testing.T) {
	e := newTestEngine(t)

	docs := make([]model.PostDocument, 0, 20)
	for i := int64(1); i <= 20; i++ {
		docs = append(docs, model.PostDocument{PostID: i, Title: "coolant leak", Description: "coolant level drops"})
	}
	require.NoError(t, e.Index(docs))

	hits, err := e.Search("radiator coolant", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	seen := make(map[int64]bool)
	for _, hit := range hits {
		assert.False(t, seen[hit.Document.PostID])
		seen[hit.Document.PostID] = true
	}
}
