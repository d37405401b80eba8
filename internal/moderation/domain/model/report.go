// Package model defines moderation domain models
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation is returned for malformed or contradictory input
	ErrValidation = errors.New("validation error")
	// ErrTargetNotFound is returned when the reported content has no resolvable owner
	ErrTargetNotFound = errors.New("report target not found")
)

// Action is a moderator decision on reported content
type Action string

const (
	ActionBlock Action = "BLOCK"
	ActionAllow Action = "ALLOW"
)

// ParseAction normalizes and validates an action literal
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionBlock:
		return ActionBlock, nil
	case ActionAllow:
		return ActionAllow, nil
	default:
		return "", fmt.Errorf("%w: invalid action %q", ErrValidation, raw)
	}
}

// Target identifies the reported content: exactly one of PostID or
// CommentID must be set.
type Target struct {
	PostID    *int64
	CommentID *int64
}

// Validate enforces the exactly-one-of invariant
func (t Target) Validate() error {
	if t.PostID == nil && t.CommentID == nil {
		return fmt.Errorf("%w: either postId or commentId is required", ErrValidation)
	}
	if t.PostID != nil && t.CommentID != nil {
		return fmt.Errorf("%w: only one of postId or commentId may be set", ErrValidation)
	}
	return nil
}

// IsComment reports whether the target is a comment
func (t Target) IsComment() bool {
	return t.CommentID != nil
}

// ReportAction is the audit record of a moderator decision
type ReportAction struct {
	ReportedUserID int64
	ActingUserID   int64
	Action         Action
	CreatedAt      time.Time
}

// ReportSummary is the head of the moderation queue: the unprocessed
// target with the most outstanding reports
type ReportSummary struct {
	PostID      *int64 `json:"postId,omitempty"`
	CommentID   *int64 `json:"commentId,omitempty"`
	ReportCount int    `json:"reportCount"`
}

// Result is the caller-facing outcome of a report resolution
type Result struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
}
