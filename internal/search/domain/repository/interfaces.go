// Package repository defines the search domain's collaborator interfaces
package repository

import (
	"context"

	"github.com/motortribe/motortribe/internal/search/domain/model"
)

// PostSource provides post snapshots for indexing
type PostSource interface {
	// FetchPostsForIndexing returns all visible posts as searchable documents
	FetchPostsForIndexing(ctx context.Context) ([]model.PostDocument, error)
}

// Engine provides core indexing and querying functionality
type Engine interface {
	// Index adds or updates documents in the index; re-indexing a document is an upsert
	Index(docs []model.PostDocument) error

	// Remove deletes a document from the index
	Remove(postID int64) error

	// Rebuild replaces the entire index with the given document set
	Rebuild(docs []model.PostDocument) error

	// Search returns a ranked, deduplicated result set for a free-text query
	Search(query string, maxResults int) ([]model.SearchHit, error)

	// Size returns the number of documents in the index
	Size() uint64

	// Close releases the index
	Close() error
}
