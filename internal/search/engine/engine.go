// Package engine implements the in-memory post search engine.
//
// Two matching strategies back every query: a tokenized full-text branch
// over a bleve index with per-term fuzziness, and an approximate
// whole-string branch scoring a similarity ratio against each document's
// concatenated text. Results are unioned and deduplicated by post ID.
package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/motortribe/motortribe/internal/search/domain/model"
)

const (
	// DefaultMaxResults bounds the tokenized branch when the caller passes no limit
	DefaultMaxResults = 10
	// DefaultFuzziness is the per-term edit distance tolerance
	DefaultFuzziness = 2
	// DefaultSimilarityCutoff is the approximate-branch ratio cutoff, out of 100
	DefaultSimilarityCutoff = 60
)

// Options tune the two matching branches
type Options struct {
	Fuzziness        int
	SimilarityCutoff int
}

// Engine is a process-wide, mutable search index over post documents.
// Writers are serialized by a mutex; readers search a committed index.
type Engine struct {
	mu   sync.RWMutex
	idx  bleve.Index
	docs map[int64]model.PostDocument
	opts Options
}

type indexedPost struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// New creates an empty in-memory engine
func New(opts Options) (*Engine, error) {
	if opts.Fuzziness <= 0 {
		opts.Fuzziness = DefaultFuzziness
	}
	if opts.SimilarityCutoff <= 0 {
		opts.SimilarityCutoff = DefaultSimilarityCutoff
	}

	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
	}

	return &Engine{
		idx:  idx,
		docs: make(map[int64]model.PostDocument),
		opts: opts,
	}, nil
}

func buildMapping() mapping.IndexMapping {
	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name

	descriptionField := bleve.NewTextFieldMapping()
	descriptionField.Analyzer = standard.Name

	postMapping := bleve.NewDocumentMapping()
	postMapping.AddFieldMappingsAt("title", titleField)
	postMapping.AddFieldMappingsAt("description", descriptionField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = postMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Index adds or updates documents. Indexing is keyed on post ID, so
// re-indexing an already indexed document set never duplicates postings.
func (e *Engine) Index(docs []model.PostDocument) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		if doc.PostID < 0 {
			return fmt.Errorf("%w: %d", model.ErrInvalidDocumentID, doc.PostID)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	batch := e.idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(docID(doc.PostID), indexedPost{
			Title:       doc.Title,
			Description: doc.Description,
		}); err != nil {
			return fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
		}
	}
	if err := e.idx.Batch(batch); err != nil {
		return fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
	}

	for _, doc := range docs {
		e.docs[doc.PostID] = doc
	}
	return nil
}

// Remove deletes a document from the index; unknown IDs are a no-op
func (e *Engine) Remove(postID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.idx.Delete(docID(postID)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
	}
	delete(e.docs, postID)
	return nil
}

// Rebuild replaces the index contents with the given document set.
// Used by the periodic full-rebuild recovery path.
func (e *Engine) Rebuild(docs []model.PostDocument) error {
	for _, doc := range docs {
		if doc.PostID < 0 {
			return fmt.Errorf("%w: %d", model.ErrInvalidDocumentID, doc.PostID)
		}
	}

	fresh, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
	}

	batch := fresh.NewBatch()
	freshDocs := make(map[int64]model.PostDocument, len(docs))
	for _, doc := range docs {
		if err := batch.Index(docID(doc.PostID), indexedPost{
			Title:       doc.Title,
			Description: doc.Description,
		}); err != nil {
			fresh.Close()
			return fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
		}
		freshDocs[doc.PostID] = doc
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
	}

	e.mu.Lock()
	old := e.idx
	e.idx = fresh
	e.docs = freshDocs
	e.mu.Unlock()

	old.Close()
	return nil
}

// Search runs both matching branches and unions them by post ID.
// The tokenized branch is capped at maxResults; the approximate branch
// returns everything above the similarity cutoff, so the unioned count
// may exceed maxResults. An empty query returns no results.
func (e *Engine) Search(query string, maxResults int) ([]model.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	hits, err := e.tokenSearch(query, maxResults)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(hits))
	for _, hit := range hits {
		seen[hit.Document.PostID] = true
	}

	for _, hit := range e.similaritySearch(query) {
		if seen[hit.Document.PostID] {
			continue
		}
		seen[hit.Document.PostID] = true
		hits = append(hits, hit)
	}

	return hits, nil
}

// tokenSearch is the fuzzy-tolerant full-text branch, ordered by
// descending relevance score.
func (e *Engine) tokenSearch(query string, maxResults int) ([]model.SearchHit, error) {
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetFuzziness(e.opts.Fuzziness)

	descriptionQuery := bleve.NewMatchQuery(query)
	descriptionQuery.SetField("description")
	descriptionQuery.SetFuzziness(e.opts.Fuzziness)

	request := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(titleQuery, descriptionQuery))
	request.Size = maxResults

	result, err := e.idx.Search(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrIndexUnavailable, err)
	}

	hits := make([]model.SearchHit, 0, len(result.Hits))
	for _, match := range result.Hits {
		id, err := strconv.ParseInt(match.ID, 10, 64)
		if err != nil {
			continue
		}
		doc, ok := e.docs[id]
		if !ok {
			continue
		}
		hits = append(hits, model.SearchHit{Document: doc, Score: match.Score})
	}
	return hits, nil
}

// similaritySearch is the approximate whole-string branch: every document
// whose concatenated text scores at least the cutoff against the raw
// query is kept, ordered by descending ratio.
func (e *Engine) similaritySearch(query string) []model.SearchHit {
	var hits []model.SearchHit
	for _, doc := range e.docs {
		ratio := fuzzy.WRatio(query, doc.Title+" "+doc.Description)
		if ratio < e.opts.SimilarityCutoff {
			continue
		}
		hits = append(hits, model.SearchHit{Document: doc, Score: float64(ratio) / 100})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.PostID < hits[j].Document.PostID
	})
	return hits
}

// Size returns the number of indexed documents
func (e *Engine) Size() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count, err := e.idx.DocCount()
	if err != nil {
		return uint64(len(e.docs))
	}
	return count
}

// Close releases the underlying index
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idx.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
