// Package repository defines the moderation domain's store interface
package repository

import (
	"context"
	"time"

	"github.com/motortribe/motortribe/internal/moderation/domain/model"
)

// ReportRepository persists reports and moderation decisions
type ReportRepository interface {
	// MarkReportsProcessed stamps all pending reports for the target as
	// processed in a single conditional update and returns the number of
	// rows affected. The ProcessedIn IS NULL guard is the concurrency
	// control: it must stay a single atomic statement.
	MarkReportsProcessed(ctx context.Context, target model.Target) (int64, error)

	// ResolveOwningUser returns the author of the reported content,
	// or model.ErrTargetNotFound
	ResolveOwningUser(ctx context.Context, target model.Target) (int64, error)

	// InsertReportAction records one audit row for the decision
	InsertReportAction(ctx context.Context, reportedUserID, actingUserID int64, action model.Action, at time.Time) error

	// BlockContent makes the reported content invisible to normal listing
	BlockContent(ctx context.Context, target model.Target) error

	// CountBlockActions returns the user's cumulative BLOCK count
	CountBlockActions(ctx context.Context, userID int64) (int, error)

	// NextPendingReport returns the unprocessed target with the most
	// reports across posts and comments, or nil when the queue is empty
	NextPendingReport(ctx context.Context) (*model.ReportSummary, error)
}
