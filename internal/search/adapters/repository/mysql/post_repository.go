// Package mysql implements the search module's MySQL post source
package mysql

import (
	"context"
	"fmt"

	"github.com/motortribe/motortribe/internal/platform/database"
	"github.com/motortribe/motortribe/internal/search/domain/model"
)

// PostRepository reads post snapshots for indexing
type PostRepository struct {
	db *database.DB
}

// NewPostRepository creates a new MySQL post repository
func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db}
}

// FetchPostsForIndexing returns all posts visible to normal listing
func (r *PostRepository) FetchPostsForIndexing(ctx context.Context) ([]model.PostDocument, error) {
	query := `
		SELECT P.PostID, P.Title, COALESCE(P.Description, '')
		FROM Posts P
		WHERE P.StatusID = 1
		ORDER BY P.PostID
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var docs []model.PostDocument
	for rows.Next() {
		var doc model.PostDocument
		if err := rows.Scan(&doc.PostID, &doc.Title, &doc.Description); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return docs, nil
}
