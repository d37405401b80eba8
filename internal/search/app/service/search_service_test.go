package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motortribe/motortribe/internal/platform/config"
	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/search/domain/model"
	"github.com/motortribe/motortribe/internal/shared/events"
)

type fakeEngine struct {
	docs      map[int64]model.PostDocument
	searchErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{docs: make(map[int64]model.PostDocument)}
}

func (f *fakeEngine) Index(docs []model.PostDocument) error {
	for _, doc := range docs {
		f.docs[doc.PostID] = doc
	}
	return nil
}

func (f *fakeEngine) Remove(postID int64) error {
	delete(f.docs, postID)
	return nil
}

func (f *fakeEngine) Rebuild(docs []model.PostDocument) error {
	f.docs = make(map[int64]model.PostDocument, len(docs))
	return f.Index(docs)
}

func (f *fakeEngine) Search(query string, maxResults int) ([]model.SearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []model.SearchHit
	for _, doc := range f.docs {
		hits = append(hits, model.SearchHit{Document: doc, Score: 1})
	}
	return hits, nil
}

func (f *fakeEngine) Size() uint64 { return uint64(len(f.docs)) }
func (f *fakeEngine) Close() error { return nil }

type fakePostSource struct {
	posts []model.PostDocument
	err   error
}

func (f *fakePostSource) FetchPostsForIndexing(ctx context.Context) ([]model.PostDocument, error) {
	return f.posts, f.err
}

func newTestSearchService(engine *fakeEngine, posts *fakePostSource) *SearchService {
	return NewSearchService(engine, posts, nil, nil, logger.NewNop(), config.SearchConfig{MaxResults: 10})
}

func postEvent(t *testing.T, eventType string, payload interface{}) *events.Event {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &events.Event{EventType: eventType, Payload: raw}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	engine := newFakeEngine()
	require.NoError(t, engine.Index([]model.PostDocument{{PostID: 1, Title: "brakes"}}))
	svc := newTestSearchService(engine, &fakePostSource{})

	assert.Empty(t, svc.Search(context.Background(), "   ", 10))
}

func TestSearchDegradesOnEngineFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.searchErr = model.ErrIndexUnavailable
	svc := newTestSearchService(engine, &fakePostSource{})

	assert.Empty(t, svc.Search(context.Background(), "brakes", 10))
}

func TestRebuildFetchesFromSource(t *testing.T) {
	engine := newFakeEngine()
	require.NoError(t, engine.Index([]model.PostDocument{{PostID: 99, Title: "stale"}}))

	posts := &fakePostSource{posts: []model.PostDocument{
		{PostID: 1, Title: "Brake pads"},
		{PostID: 2, Title: "Oil change"},
	}}
	svc := newTestSearchService(engine, posts)

	require.NoError(t, svc.Rebuild(context.Background()))
	assert.Equal(t, uint64(2), engine.Size())
	assert.NotContains(t, engine.docs, int64(99))
}

func TestRebuildPropagatesSourceFailure(t *testing.T) {
	engine := newFakeEngine()
	svc := newTestSearchService(engine, &fakePostSource{err: assert.AnError})

	assert.Error(t, svc.Rebuild(context.Background()))
}

func TestHandleEventPostLifecycle(t *testing.T) {
	engine := newFakeEngine()
	svc := newTestSearchService(engine, &fakePostSource{})
	ctx := context.Background()

	err := svc.HandleEvent(ctx, postEvent(t, events.PostCreated, events.PostPayload{
		PostID: 1, Title: "Brake pads", Description: "squealing",
	}))
	require.NoError(t, err)
	assert.Contains(t, engine.docs, int64(1))

	err = svc.HandleEvent(ctx, postEvent(t, events.PostUpdated, events.PostPayload{
		PostID: 1, Title: "Brake rotors",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Brake rotors", engine.docs[1].Title)

	err = svc.HandleEvent(ctx, postEvent(t, events.PostDeleted, events.PostPayload{PostID: 1}))
	require.NoError(t, err)
	assert.NotContains(t, engine.docs, int64(1))
}

func TestHandleEventContentBlocked(t *testing.T) {
	engine := newFakeEngine()
	require.NoError(t, engine.Index([]model.PostDocument{{PostID: 5, Title: "spam"}}))
	svc := newTestSearchService(engine, &fakePostSource{})
	ctx := context.Background()

	// blocked post is dropped from the index
	err := svc.HandleEvent(ctx, postEvent(t, events.ContentBlocked, events.ContentBlockedPayload{PostID: 5, UserID: 7}))
	require.NoError(t, err)
	assert.NotContains(t, engine.docs, int64(5))

	// blocked comment is a no-op
	err = svc.HandleEvent(ctx, postEvent(t, events.ContentBlocked, events.ContentBlockedPayload{CommentID: 9, UserID: 7}))
	require.NoError(t, err)
}

func TestHandleEventMalformedPayload(t *testing.T) {
	engine := newFakeEngine()
	svc := newTestSearchService(engine, &fakePostSource{})

	err := svc.HandleEvent(context.Background(), &events.Event{
		EventType: events.PostCreated,
		Payload:   json.RawMessage(`{`),
	})
	assert.Error(t, err)
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	engine := newFakeEngine()
	svc := newTestSearchService(engine, &fakePostSource{})

	err := svc.HandleEvent(context.Background(), &events.Event{EventType: "user.created"})
	assert.NoError(t, err)
}
