// Package model defines search domain models
package model

import "errors"

var (
	// ErrInvalidDocumentID is returned when a document carries a negative identifier
	ErrInvalidDocumentID = errors.New("invalid document id")
	// ErrIndexUnavailable is returned when the underlying index cannot be opened or committed
	ErrIndexUnavailable = errors.New("search index unavailable")
)

// PostDocument is the searchable snapshot of a community post
type PostDocument struct {
	PostID      int64  `json:"postId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SearchHit is a single ranked match
type SearchHit struct {
	Document PostDocument `json:"document"`
	Score    float64      `json:"score"`
}
