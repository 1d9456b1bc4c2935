package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issueTask issues one task and returns it with its live access token
func issueTask(t *testing.T, svc *TaskService, employeeID, templateID uint) *models.DeclarationTask {
	t.Helper()
	task, skipped, err := svc.Issue(context.Background(), &IssueInput{
		EmployeeID: employeeID,
		TemplateID: templateID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	require.NoError(t, err)
	require.False(t, skipped)
	return task
}

func TestSaveDraft_CreateAndUpdateInPlace(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task := issueTask(t, taskService, employee.ID, template.ID)

	draft, err := svc.SaveDraft(ctx, *task.AccessToken, `{"holdings":[]}`)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusDraft, draft.Status)
	assert.Equal(t, 1, draft.VersionNo)

	// A second save edits the same row, no new version
	again, err := svc.SaveDraft(ctx, *task.AccessToken, `{"holdings":["ACME"]}`)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, again.ID)
	assert.Equal(t, `{"holdings":["ACME"]}`, again.FormData)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Where("task_id = ?", task.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmit_ConsumesTokenAndSnapshotsManager(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	manager := seedEmployee(t, db, "M001", nil)
	employee := seedEmployee(t, db, "E001", &manager.ID)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)
	accessToken := *task.AccessToken

	result, err := svc.Submit(ctx, accessToken, `{"holdings":[]}`, "I attest")
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, models.SubmissionStatusSubmitted, result.Submission.Status)
	require.NotNil(t, result.Submission.AssignedManagerID)
	assert.Equal(t, manager.ID, *result.Submission.AssignedManagerID)
	assert.Equal(t, manager.FullName, result.Submission.AssignedManagerName)
	require.NotNil(t, result.Submission.SubmittedDate)

	reloaded, err := taskService.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSubmitted, reloaded.Status)
	assert.Nil(t, reloaded.AccessToken)

	// The link is dead for anything but a retried submit
	_, err = taskService.ResolveToken(ctx, accessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
}

func TestSubmit_RetryWithConsumedTokenIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, creditService := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)
	accessToken := *task.AccessToken

	first, err := svc.Submit(ctx, accessToken, `{"a":1}`, "I attest")
	require.NoError(t, err)

	// Client timed out and retries with the same token
	second, err := svc.Submit(ctx, accessToken, `{"a":1}`, "I attest")
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.Submission.ID, second.Submission.ID)

	// The retry must not double-charge
	available, err := creditService.AvailableCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, available)
}

func TestSubmit_LosingRaceIsSoftSuccessWithoutCharge(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, creditService := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)

	// A concurrent submit already landed its row while this caller was
	// between token resolution and the write transaction
	now := time.Now()
	winner := &models.Submission{
		TaskID:        task.ID,
		FormData:      `{"a":1}`,
		Status:        models.SubmissionStatusSubmitted,
		SubmittedDate: &now,
		VersionNo:     1,
	}
	require.NoError(t, db.Create(winner).Error)

	result, err := svc.Submit(ctx, *task.AccessToken, `{"a":2}`, "I attest")
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, winner.ID, result.Submission.ID)

	// The loser's consumed credit was refunded
	available, err := creditService.AvailableCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, available)

	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Where("task_id = ?", task.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubmit_AttestationRequired(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)

	_, err := svc.Submit(context.Background(), *task.AccessToken, `{}`, "")
	assert.ErrorIs(t, err, domain.ErrAttestationRequired)
}

func TestSubmit_InsufficientCreditsLeavesEverythingUntouched(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task := issueTask(t, taskService, employee.ID, template.ID)

	_, err := svc.Submit(ctx, *task.AccessToken, `{}`, "I attest")
	var insufficient *domain.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Required)
	assert.Equal(t, 0, insufficient.Available)

	// Nothing persisted: no submission, task still open, token still live
	var count int64
	require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
	assert.Zero(t, count)

	reloaded, err := taskService.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOutstanding, reloaded.Status)

	_, err = taskService.ResolveToken(ctx, *task.AccessToken)
	assert.NoError(t, err)
}

func TestSubmit_GateDisabledNeedsNoCredits(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.Credit.GateSubmissions = false
	svc, taskService, _ := newSubmissionStack(t, db, cfg, validLicense(), &stubNotifier{})

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task := issueTask(t, taskService, employee.ID, template.ID)

	result, err := svc.Submit(context.Background(), *task.AccessToken, `{}`, "I attest")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, result.Submission.Status)

	var count int64
	require.NoError(t, db.Model(&models.CreditConsumption{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReview_OnlyAssignedManagerMayAct(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	manager := seedEmployee(t, db, "M001", nil)
	other := seedEmployee(t, db, "M002", nil)
	employee := seedEmployee(t, db, "E001", &manager.ID)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)

	result, err := svc.Submit(ctx, *task.AccessToken, `{}`, "I attest")
	require.NoError(t, err)

	_, err = svc.Review(ctx, result.Submission.ID, other.ID, &ReviewInput{Action: domain.ReviewActionApprove})
	assert.ErrorIs(t, err, domain.ErrNotAssignedReviewer)
}

func TestReview_ApproveClosesTask(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	manager := seedEmployee(t, db, "M001", nil)
	employee := seedEmployee(t, db, "E001", &manager.ID)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)

	submitted, err := svc.Submit(ctx, *task.AccessToken, `{}`, "I attest")
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, submitted.Submission.ID, manager.ID, &ReviewInput{
		Action:    domain.ReviewActionApprove,
		Notes:     "all clear",
		Signature: "M. Manager",
	})
	require.NoError(t, err)
	assert.False(t, reviewed.AlreadyProcessed)
	assert.Equal(t, models.SubmissionStatusReviewed, reviewed.Submission.Status)
	require.NotNil(t, reviewed.Submission.ReviewedDate)

	reloaded, err := taskService.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusReviewed, reloaded.Status)

	// Repeat decisions are soft no-ops
	again, err := svc.Review(ctx, submitted.Submission.ID, manager.ID, &ReviewInput{Action: domain.ReviewActionApprove})
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
}

func TestReview_RejectRequiresNotesAndRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	notifier := &stubNotifier{}
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), notifier)
	ctx := context.Background()

	manager := seedEmployee(t, db, "M001", nil)
	employee := seedEmployee(t, db, "E001", &manager.ID)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)
	consumedToken := *task.AccessToken

	submitted, err := svc.Submit(ctx, consumedToken, `{}`, "I attest")
	require.NoError(t, err)

	_, err = svc.Review(ctx, submitted.Submission.ID, manager.ID, &ReviewInput{Action: domain.ReviewActionReject})
	assert.ErrorIs(t, err, domain.ErrNotesRequired)

	rejected, err := svc.Review(ctx, submitted.Submission.ID, manager.ID, &ReviewInput{
		Action: domain.ReviewActionReject,
		Notes:  "missing directorships",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusRevisionRequired, rejected.Submission.Status)

	// Rejection reopens the task as OUTSTANDING; the revision state lives
	// on the submission
	reloaded, err := taskService.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOutstanding, reloaded.Status)
	require.NotNil(t, reloaded.AccessToken)
	assert.NotEqual(t, consumedToken, *reloaded.AccessToken)

	// Issue + rejection re-notify
	assert.Equal(t, 2, notifier.sent())

	// The exercised link never works again
	_, err = taskService.ResolveToken(ctx, consumedToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
}

func TestReview_ResubmitBuildsAmendmentChain(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	manager := seedEmployee(t, db, "M001", nil)
	employee := seedEmployee(t, db, "E001", &manager.ID)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)
	task := issueTask(t, taskService, employee.ID, template.ID)

	first, err := svc.Submit(ctx, *task.AccessToken, `{"v":1}`, "I attest")
	require.NoError(t, err)

	_, err = svc.Review(ctx, first.Submission.ID, manager.ID, &ReviewInput{
		Action: domain.ReviewActionReject,
		Notes:  "incomplete",
	})
	require.NoError(t, err)

	reopened, err := taskService.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, reopened.AccessToken)

	second, err := svc.Submit(ctx, *reopened.AccessToken, `{"v":2}`, "I attest")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Submission.VersionNo)
	require.NotNil(t, second.Submission.AmendmentOfSubmissionID)
	assert.Equal(t, first.Submission.ID, *second.Submission.AmendmentOfSubmissionID)

	// The rejected version is superseded, not edited
	v1, err := svc.GetByID(ctx, first.Submission.ID)
	require.NoError(t, err)
	assert.True(t, v1.Superseded)
	assert.Equal(t, `{"v":1}`, v1.FormData)

	chain, err := svc.AmendmentChain(ctx, second.Submission.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, second.Submission.ID, chain[0].ID)
	assert.Equal(t, first.Submission.ID, chain[1].ID)

	// Approving the amendment closes the cycle
	_, err = svc.Review(ctx, second.Submission.ID, manager.ID, &ReviewInput{Action: domain.ReviewActionApprove})
	require.NoError(t, err)

	closed, err := taskService.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusReviewed, closed.Status)
}

func TestPendingSubmissions_FilteredByAssignedManager(t *testing.T) {
	db := setupTestDB(t)
	svc, taskService, _ := newSubmissionStack(t, db, testConfig(), validLicense(), &stubNotifier{})
	ctx := context.Background()

	managerA := seedEmployee(t, db, "M001", nil)
	managerB := seedEmployee(t, db, "M002", nil)
	empA := seedEmployee(t, db, "E001", &managerA.ID)
	empB := seedEmployee(t, db, "E002", &managerB.ID)
	template := seedTemplate(t, db, "COI")
	seedCredits(t, db, 5)

	taskA := issueTask(t, taskService, empA.ID, template.ID)
	taskB := issueTask(t, taskService, empB.ID, template.ID)

	_, err := svc.Submit(ctx, *taskA.AccessToken, `{}`, "I attest")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, *taskB.AccessToken, `{}`, "I attest")
	require.NoError(t, err)

	review := NewReviewService(svc.submissionRepo)
	pending, err := review.PendingSubmissions(ctx, managerA.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, taskA.ID, pending[0].TaskID)
}
