package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motortribe/motortribe/internal/moderation/domain/model"
	notification "github.com/motortribe/motortribe/internal/notification/domain/model"
	"github.com/motortribe/motortribe/internal/platform/config"
	"github.com/motortribe/motortribe/internal/platform/logger"
)

type fakeReportRepository struct {
	mu sync.Mutex

	pendingReports int64
	owningUserID   int64
	markErr        error
	ownerErr       error
	blockErr       error
	countErr       error
	blockCount     int

	auditRows    []model.ReportAction
	blockedCount int
}

func (f *fakeReportRepository) MarkReportsProcessed(ctx context.Context, target model.Target) (int64, error) {
	if f.markErr != nil {
		return 0, f.markErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	affected := f.pendingReports
	f.pendingReports = 0
	return affected, nil
}

func (f *fakeReportRepository) ResolveOwningUser(ctx context.Context, target model.Target) (int64, error) {
	if f.ownerErr != nil {
		return 0, f.ownerErr
	}
	return f.owningUserID, nil
}

func (f *fakeReportRepository) InsertReportAction(ctx context.Context, reportedUserID, actingUserID int64, action model.Action, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auditRows = append(f.auditRows, model.ReportAction{
		ReportedUserID: reportedUserID,
		ActingUserID:   actingUserID,
		Action:         action,
		CreatedAt:      at,
	})
	return nil
}

func (f *fakeReportRepository) BlockContent(ctx context.Context, target model.Target) error {
	if f.blockErr != nil {
		return f.blockErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.blockedCount++
	return nil
}

func (f *fakeReportRepository) CountBlockActions(ctx context.Context, userID int64) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.blockCount + len(f.auditRowsLocked(model.ActionBlock)), nil
}

func (f *fakeReportRepository) auditRowsLocked(action model.Action) []model.ReportAction {
	var rows []model.ReportAction
	for _, row := range f.auditRows {
		if row.Action == action {
			rows = append(rows, row)
		}
	}
	return rows
}

func (f *fakeReportRepository) NextPendingReport(ctx context.Context) (*model.ReportSummary, error) {
	return nil, nil
}

type fakeDeviceTokens struct {
	token string
	err   error
}

func (f *fakeDeviceTokens) LookupDeviceToken(ctx context.Context, userID int64) (string, error) {
	return f.token, f.err
}

type fakeDispatcher struct {
	mu       sync.Mutex
	enqueued []notification.PushNotification
	reject   bool
}

func (f *fakeDispatcher) Enqueue(n notification.PushNotification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reject {
		return false
	}
	f.enqueued = append(f.enqueued, n)
	return true
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func newTestService(repo *fakeReportRepository, tokens *fakeDeviceTokens, dispatcher *fakeDispatcher) *ModerationService {
	return NewModerationService(
		repo,
		tokens,
		dispatcher,
		nil,
		nil,
		logger.NewNop(),
		config.ModerationConfig{BlockThreshold: 3},
	)
}

func commentTarget(id int64) model.Target {
	return model.Target{CommentID: &id}
}

func TestResolveReportInvalidAction(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 2, owningUserID: 7}
	svc := newTestService(repo, &fakeDeviceTokens{}, &fakeDispatcher{})

	_, err := svc.ResolveReport(context.Background(), "DELETE", commentTarget(5), 1)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, repo.auditRows)
	assert.Zero(t, repo.blockedCount)
}

func TestResolveReportTargetValidation(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 2, owningUserID: 7}
	svc := newTestService(repo, &fakeDeviceTokens{}, &fakeDispatcher{})

	postID, commentID := int64(1), int64(2)

	// neither target
	_, err := svc.ResolveReport(context.Background(), "BLOCK", model.Target{}, 1)
	assert.ErrorIs(t, err, model.ErrValidation)

	// both targets
	_, err = svc.ResolveReport(context.Background(), "BLOCK", model.Target{PostID: &postID, CommentID: &commentID}, 1)
	assert.ErrorIs(t, err, model.ErrValidation)

	assert.Empty(t, repo.auditRows)
}

func TestResolveReportAllow(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 2, owningUserID: 7}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{token: "device-1"}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "allow", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)

	require.Len(t, repo.auditRows, 1)
	assert.Equal(t, model.ActionAllow, repo.auditRows[0].Action)
	assert.Equal(t, int64(7), repo.auditRows[0].ReportedUserID)
	assert.Equal(t, int64(42), repo.auditRows[0].ActingUserID)

	assert.Zero(t, repo.blockedCount)
	assert.Zero(t, dispatcher.count())
}

func TestResolveReportBlockBelowThreshold(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 1, owningUserID: 7, blockCount: 1}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{token: "device-1"}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)

	// 1 prior + this one = 2, below the threshold of 3
	assert.Equal(t, 1, repo.blockedCount)
	assert.Zero(t, dispatcher.count())
}

func TestResolveReportBlockAtThreshold(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 1, owningUserID: 7, blockCount: 2}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{token: "device-1"}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)

	require.Equal(t, 1, dispatcher.count())
	sent := dispatcher.enqueued[0]
	assert.Equal(t, "device-1", sent.DeviceToken)
	assert.Equal(t, "Blocked", sent.Title)
	assert.NotEmpty(t, sent.Body)
}

func TestResolveReportNoDeviceToken(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 1, owningUserID: 7, blockCount: 2}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{token: ""}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Zero(t, dispatcher.count())
}

func TestResolveReportTokenLookupFailure(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 1, owningUserID: 7, blockCount: 2}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{err: assert.AnError}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Zero(t, dispatcher.count())
	require.Len(t, repo.auditRows, 1)
}

func TestResolveReportPushRejectionDoesNotFail(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 1, owningUserID: 7, blockCount: 2}
	dispatcher := &fakeDispatcher{reject: true}
	svc := newTestService(repo, &fakeDeviceTokens{token: "device-1"}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
}

func TestResolveReportBlockContentFailure(t *testing.T) {
	repo := &fakeReportRepository{
		pendingReports: 1,
		owningUserID:   7,
		blockErr:       errors.New("connection reset"),
	}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{token: "device-1"}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Message, "connection reset")
	assert.Zero(t, dispatcher.count())
}

func TestResolveReportCountFailure(t *testing.T) {
	repo := &fakeReportRepository{
		pendingReports: 1,
		owningUserID:   7,
		blockCount:     2,
		countErr:       errors.New("connection reset"),
	}
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, &fakeDeviceTokens{token: "device-1"}, dispatcher)

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Message, "connection reset")

	// the content transition itself went through before the count failed
	assert.Equal(t, 1, repo.blockedCount)
	assert.Zero(t, dispatcher.count())
}

func TestResolveReportMarkFailureSurfacesMessage(t *testing.T) {
	repo := &fakeReportRepository{markErr: errors.New("lock wait timeout")}
	svc := newTestService(repo, &fakeDeviceTokens{}, &fakeDispatcher{})

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Contains(t, result.Message, "lock wait timeout")
	assert.Empty(t, repo.auditRows)
}

func TestResolveReportAlreadyProcessed(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 0, owningUserID: 7}
	svc := newTestService(repo, &fakeDeviceTokens{}, &fakeDispatcher{})

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Empty(t, repo.auditRows)
	assert.Zero(t, repo.blockedCount)
}

func TestResolveReportTargetNotFound(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 1, ownerErr: model.ErrTargetNotFound}
	svc := newTestService(repo, &fakeDeviceTokens{}, &fakeDispatcher{})

	result, err := svc.ResolveReport(context.Background(), "BLOCK", commentTarget(5), 42)
	require.NoError(t, err)
	assert.False(t, result.Succeeded)
	assert.Empty(t, repo.auditRows)
}

func TestResolveReportConcurrentDoubleResolve(t *testing.T) {
	repo := &fakeReportRepository{pendingReports: 3, owningUserID: 7}
	svc := newTestService(repo, &fakeDeviceTokens{}, &fakeDispatcher{})

	var wg sync.WaitGroup
	results := make([]model.Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ResolveReport(context.Background(), "ALLOW", commentTarget(5), 42)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// both calls succeed but only the one that claimed the reports
	// writes the audit row
	assert.True(t, results[0].Succeeded)
	assert.True(t, results[1].Succeeded)
	assert.Len(t, repo.auditRows, 1)
}
