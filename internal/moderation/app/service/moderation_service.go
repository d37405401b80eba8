// Package service implements the moderation business logic
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/motortribe/motortribe/internal/moderation/domain/model"
	"github.com/motortribe/motortribe/internal/moderation/domain/repository"
	notification "github.com/motortribe/motortribe/internal/notification/domain/model"
	"github.com/motortribe/motortribe/internal/platform/config"
	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/platform/metrics"
	"github.com/motortribe/motortribe/internal/shared/events"
)

const (
	blockedPushTitle = "Blocked"
	blockedPushBody  = "You have been blocked from the MotorTribe community!"
)

// PushDispatcher hands notifications to the asynchronous delivery pool
type PushDispatcher interface {
	Enqueue(notification notification.PushNotification) bool
}

// DeviceTokens looks up a user's registered push token
type DeviceTokens interface {
	LookupDeviceToken(ctx context.Context, userID int64) (string, error)
}

// EventPublisher publishes moderation domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

// ModerationService resolves reports and escalates repeat offenders
type ModerationService struct {
	reports    repository.ReportRepository
	tokens     DeviceTokens
	dispatcher PushDispatcher
	publisher  EventPublisher
	metrics    *metrics.Metrics
	logger     logger.Logger
	config     config.ModerationConfig
}

// NewModerationService creates a new moderation service. The publisher
// and dispatcher are optional: without them block events and escalation
// pushes are skipped.
func NewModerationService(
	reports repository.ReportRepository,
	tokens DeviceTokens,
	dispatcher PushDispatcher,
	publisher EventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
	cfg config.ModerationConfig,
) *ModerationService {
	return &ModerationService{
		reports:    reports,
		tokens:     tokens,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    m,
		logger:     log,
		config:     cfg,
	}
}

// ResolveReport applies a moderator decision to all pending reports for
// one target. The conditional mark is the concurrency control: of two
// concurrent resolutions for the same target, exactly one observes
// affected rows and carries out the decision.
func (s *ModerationService) ResolveReport(ctx context.Context, rawAction string, target model.Target, actingUserID int64) (model.Result, error) {
	action, err := model.ParseAction(rawAction)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ReportsRejected.Inc()
		}
		return model.Result{}, err
	}
	if err := target.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.ReportsRejected.Inc()
		}
		return model.Result{}, err
	}

	affected, err := s.reports.MarkReportsProcessed(ctx, target)
	if err != nil {
		s.logger.Error("failed to mark reports processed", "error", err)
		return model.Result{Succeeded: false, Message: fmt.Sprintf("failed to process reports: %v", err)}, nil
	}
	if affected == 0 {
		// another moderator already took this target
		return model.Result{Succeeded: true, Message: "reports already processed"}, nil
	}

	reportedUserID, err := s.reports.ResolveOwningUser(ctx, target)
	if err != nil {
		if errors.Is(err, model.ErrTargetNotFound) {
			return model.Result{Succeeded: false, Message: err.Error()}, nil
		}
		s.logger.Error("failed to resolve reported user", "error", err)
		return model.Result{Succeeded: false, Message: fmt.Sprintf("failed to resolve reported user: %v", err)}, nil
	}

	if err := s.reports.InsertReportAction(ctx, reportedUserID, actingUserID, action, time.Now()); err != nil {
		s.logger.Error("failed to record report action", "error", err)
		return model.Result{Succeeded: false, Message: fmt.Sprintf("failed to record decision: %v", err)}, nil
	}

	if action == model.ActionBlock {
		if err := s.block(ctx, target, reportedUserID); err != nil {
			return model.Result{Succeeded: false, Message: err.Error()}, nil
		}
	}

	if s.metrics != nil {
		s.metrics.ReportsResolved.WithLabelValues(string(action)).Inc()
	}
	s.logger.Info("report resolved",
		"action", action,
		"reportedUserId", reportedUserID,
		"actingUserId", actingUserID,
	)

	return model.Result{Succeeded: true}, nil
}

// NextPendingReport returns the head of the moderation queue, or nil
// when nothing is pending
func (s *ModerationService) NextPendingReport(ctx context.Context) (*model.ReportSummary, error) {
	summary, err := s.reports.NextPendingReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending report: %w", err)
	}
	return summary, nil
}

// block hides the content, announces the block, and escalates when the
// user crosses the repeat-offender threshold. Store failures surface to
// the caller; only the event publish and the escalation push stay
// best-effort, since by then the decision has committed.
func (s *ModerationService) block(ctx context.Context, target model.Target, reportedUserID int64) error {
	if err := s.reports.BlockContent(ctx, target); err != nil {
		s.logger.Error("failed to block content", "error", err, "userId", reportedUserID)
		return fmt.Errorf("failed to block content: %w", err)
	}

	s.publishBlocked(ctx, target, reportedUserID)

	count, err := s.reports.CountBlockActions(ctx, reportedUserID)
	if err != nil {
		s.logger.Error("failed to count block actions", "error", err, "userId", reportedUserID)
		return fmt.Errorf("failed to count block actions: %w", err)
	}

	if count >= s.config.BlockThreshold {
		s.escalate(ctx, reportedUserID, count)
	}
	return nil
}

func (s *ModerationService) publishBlocked(ctx context.Context, target model.Target, reportedUserID int64) {
	if s.publisher == nil {
		return
	}

	payload := events.ContentBlockedPayload{UserID: reportedUserID}
	aggregateID := ""
	if target.IsComment() {
		payload.CommentID = *target.CommentID
		aggregateID = strconv.FormatInt(*target.CommentID, 10)
	} else {
		payload.PostID = *target.PostID
		aggregateID = strconv.FormatInt(*target.PostID, 10)
	}

	event, err := events.NewEvent(aggregateID, "content", events.ContentBlocked, payload)
	if err != nil {
		s.logger.Error("failed to build block event", "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish block event", "error", err)
	}
}

func (s *ModerationService) escalate(ctx context.Context, userID int64, blockCount int) {
	if s.dispatcher == nil {
		return
	}

	token, err := s.tokens.LookupDeviceToken(ctx, userID)
	if err != nil {
		s.logger.Error("failed to look up device token", "error", err, "userId", userID)
		return
	}
	if token == "" {
		return
	}

	s.dispatcher.Enqueue(notification.PushNotification{
		DeviceToken: token,
		Title:       blockedPushTitle,
		Body:        blockedPushBody,
	})

	if s.metrics != nil {
		s.metrics.EscalationsTriggered.Inc()
	}
	s.logger.Info("repeat offender escalated", "userId", userID, "blockCount", blockCount)
}
