// Package mysql implements the moderation store on MySQL
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/motortribe/motortribe/internal/moderation/domain/model"
	"github.com/motortribe/motortribe/internal/platform/database"
)

const statusBlocked = 3

// ReportRepository implements the report repository on MySQL
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new MySQL report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// MarkReportsProcessed stamps pending reports for the target in one
// conditional UPDATE. Zero affected rows means another moderator got
// there first; that is not an error.
func (r *ReportRepository) MarkReportsProcessed(ctx context.Context, target model.Target) (int64, error) {
	var (
		query string
		arg   int64
	)
	if target.IsComment() {
		query = `UPDATE Reports SET ProcessedIn = NOW() WHERE ProcessedIn IS NULL AND CommentID = ?`
		arg = *target.CommentID
	} else {
		query = `UPDATE Reports SET ProcessedIn = NOW() WHERE ProcessedIn IS NULL AND PostID = ?`
		arg = *target.PostID
	}

	result, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to mark reports processed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// ResolveOwningUser returns the author of the reported post or comment
func (r *ReportRepository) ResolveOwningUser(ctx context.Context, target model.Target) (int64, error) {
	var (
		query string
		arg   int64
	)
	if target.IsComment() {
		query = `SELECT UserID FROM Comments WHERE CommentID = ?`
		arg = *target.CommentID
	} else {
		query = `SELECT UserID FROM Posts WHERE PostID = ?`
		arg = *target.PostID
	}

	var userID int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrTargetNotFound
		}
		return 0, fmt.Errorf("failed to resolve owning user: %w", err)
	}
	return userID, nil
}

// InsertReportAction records the audit row for a moderation decision
func (r *ReportRepository) InsertReportAction(ctx context.Context, reportedUserID, actingUserID int64, action model.Action, at time.Time) error {
	query := `
		INSERT INTO ReportActions (ReportedUserID, ActionUserID, Action, CreatedIn)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, reportedUserID, actingUserID, string(action), at); err != nil {
		return fmt.Errorf("failed to insert report action: %w", err)
	}
	return nil
}

// BlockContent transitions the reported content to the blocked status
func (r *ReportRepository) BlockContent(ctx context.Context, target model.Target) error {
	var (
		query string
		arg   int64
	)
	if target.IsComment() {
		query = `UPDATE Comments SET StatusID = ? WHERE CommentID = ?`
		arg = *target.CommentID
	} else {
		query = `UPDATE Posts SET StatusID = ? WHERE PostID = ?`
		arg = *target.PostID
	}

	if _, err := r.db.ExecContext(ctx, query, statusBlocked, arg); err != nil {
		return fmt.Errorf("failed to block content: %w", err)
	}
	return nil
}

// CountBlockActions returns the cumulative BLOCK count for a user
func (r *ReportRepository) CountBlockActions(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM ReportActions WHERE ReportedUserID = ? AND Action = 'BLOCK'`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count block actions: %w", err)
	}
	return count, nil
}

// NextPendingReport returns the unprocessed target with the most
// outstanding reports across both posts and comments
func (r *ReportRepository) NextPendingReport(ctx context.Context) (*model.ReportSummary, error) {
	query := `
		SELECT PostID, CommentID, ReportCount FROM (
			SELECT NULL AS PostID, CommentID, COUNT(*) AS ReportCount
			FROM Reports
			WHERE ProcessedIn IS NULL AND CommentID IS NOT NULL
			GROUP BY CommentID
			UNION ALL
			SELECT PostID, NULL AS CommentID, COUNT(*) AS ReportCount
			FROM Reports
			WHERE ProcessedIn IS NULL AND PostID IS NOT NULL
			GROUP BY PostID
		) AS Pending
		ORDER BY ReportCount DESC
		LIMIT 1
	`

	var (
		summary   model.ReportSummary
		postID    sql.NullInt64
		commentID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&postID, &commentID, &summary.ReportCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query pending reports: %w", err)
	}

	if commentID.Valid {
		summary.CommentID = &commentID.Int64
	} else if postID.Valid {
		summary.PostID = &postID.Int64
	}
	return &summary, nil
}
