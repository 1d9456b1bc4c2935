package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue_CreatesTaskWithTokenAndNotifies(t *testing.T) {
	db := setupTestDB(t)
	notifier := &stubNotifier{}
	svc := newTaskService(t, db, validLicense(), notifier)
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	dueDate := time.Now().Add(14 * 24 * time.Hour)

	task, skipped, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    dueDate,
	}, 1)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, models.TaskStatusOutstanding, task.Status)
	require.NotNil(t, task.AccessToken)
	assert.NotEmpty(t, *task.AccessToken)
	require.NotNil(t, task.TokenExpiry)

	// Token expires the day after the due date
	assert.WithinDuration(t, dueDate.Add(24*time.Hour), *task.TokenExpiry, time.Second)

	require.Equal(t, 1, notifier.sent())
	assert.True(t, strings.Contains(notifier.links[0], *task.AccessToken))
}

func TestIssue_DuplicateOpenTaskIsSkipped(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	input := &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}

	_, skipped, err := svc.Issue(ctx, input, 1)
	require.NoError(t, err)
	require.False(t, skipped)

	_, skipped, err = svc.Issue(ctx, input, 1)
	require.NoError(t, err)
	assert.True(t, skipped)

	var count int64
	require.NoError(t, db.Model(&models.DeclarationTask{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIssue_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	future := time.Now().Add(7 * 24 * time.Hour)

	_, _, err := svc.Issue(ctx, &IssueInput{EmployeeID: employee.ID, TemplateID: template.ID, DueDate: time.Now().Add(-time.Hour)}, 1)
	assert.ErrorIs(t, err, domain.ErrDueDateInPast)

	_, _, err = svc.Issue(ctx, &IssueInput{EmployeeID: 999, TemplateID: template.ID, DueDate: future}, 1)
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

	_, _, err = svc.Issue(ctx, &IssueInput{EmployeeID: employee.ID, TemplateID: 999, DueDate: future}, 1)
	assert.ErrorIs(t, err, domain.ErrTemplateNotActive)

	inactive := seedTemplate(t, db, "OLD")
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	_, _, err = svc.Issue(ctx, &IssueInput{EmployeeID: employee.ID, TemplateID: inactive.ID, DueDate: future}, 1)
	assert.ErrorIs(t, err, domain.ErrTemplateNotActive)
}

func TestIssue_ExpiredLicenseRefused(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, &stubLicense{valid: false}, &stubNotifier{})

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")

	_, _, err := svc.Issue(context.Background(), &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	assert.ErrorIs(t, err, domain.ErrLicenseExpired)
}

func TestIssueBulk_PartialFailureTolerant(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	a := seedEmployee(t, db, "E001", nil)
	b := seedEmployee(t, db, "E002", nil)
	template := seedTemplate(t, db, "COI")
	dueDate := time.Now().Add(7 * 24 * time.Hour)

	// b already has an open task from an earlier run
	_, _, err := svc.Issue(ctx, &IssueInput{EmployeeID: b.ID, TemplateID: template.ID, DueDate: dueDate}, 1)
	require.NoError(t, err)

	summary, err := svc.IssueBulk(ctx, &BulkIssueInput{
		EmployeeIDs: []uint{a.ID, b.ID, 999},
		TemplateID:  template.ID,
		DueDate:     dueDate,
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "999")
}

func TestIssueBulk_DefaultsToAllActiveEmployees(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})

	seedEmployee(t, db, "E001", nil)
	seedEmployee(t, db, "E002", nil)
	inactive := seedEmployee(t, db, "E003", nil)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	template := seedTemplate(t, db, "COI")

	summary, err := svc.IssueBulk(context.Background(), &BulkIssueInput{
		TemplateID: template.ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
}

func TestResolveToken_FailuresIndistinguishable(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	require.NoError(t, err)

	// Live token resolves
	resolved, err := svc.ResolveToken(ctx, *task.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, task.ID, resolved.ID)

	// Empty, unknown and expired all return the same error
	_, err = svc.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)

	_, err = svc.ResolveToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.DeclarationTask{}).Where("id = ?", task.ID).Update("token_expiry", past).Error)
	_, err = svc.ResolveToken(ctx, *task.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)
}

func TestExtendDueDate_RevertsOverdue(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    time.Now().Add(time.Hour),
	}, 1)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.DeclarationTask{}).Where("id = ?", task.ID).
		Updates(map[string]interface{}{"status": models.TaskStatusOverdue, "due_date": time.Now().Add(-time.Hour)}).Error)

	newDue := time.Now().Add(14 * 24 * time.Hour)
	updated, err := svc.ExtendDueDate(ctx, task.ID, newDue)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOutstanding, updated.Status)
	require.NotNil(t, updated.TokenExpiry)
	assert.WithinDuration(t, newDue.Add(24*time.Hour), *updated.TokenExpiry, time.Second)
}

func TestCancel_OnlyBeforeSubmission(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.AccessToken)
	assert.Nil(t, cancelled.TokenExpiry)

	// Already cancelled
	_, err = svc.Cancel(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotCancellable)

	// Submitted tasks are locked in for audit
	other, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: seedTemplate(t, db, "GIFTS").ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.DeclarationTask{}).Where("id = ?", other.ID).Update("status", models.TaskStatusSubmitted).Error)
	_, err = svc.Cancel(ctx, other.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotCancellable)
}

func TestResendLink_RotatesToken(t *testing.T) {
	db := setupTestDB(t)
	notifier := &stubNotifier{}
	svc := newTaskService(t, db, validLicense(), notifier)
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	template := seedTemplate(t, db, "COI")
	task, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID,
		TemplateID: template.ID,
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
	}, 1)
	require.NoError(t, err)
	original := *task.AccessToken

	resent, err := svc.ResendLink(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, resent.AccessToken)
	assert.NotEqual(t, original, *resent.AccessToken)
	assert.Equal(t, 2, notifier.sent())

	// The old link is dead
	_, err = svc.ResolveToken(ctx, original)
	assert.ErrorIs(t, err, domain.ErrTokenInvalidOrExpired)

	// Closed tasks cannot be resent
	require.NoError(t, db.Model(&models.DeclarationTask{}).Where("id = ?", task.ID).Update("status", models.TaskStatusReviewed).Error)
	_, err = svc.ResendLink(ctx, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotOpen)
}

func TestSweepOverdue_FlipsOnlyPastDueOutstanding(t *testing.T) {
	db := setupTestDB(t)
	svc := newTaskService(t, db, validLicense(), &stubNotifier{})
	ctx := context.Background()

	employee := seedEmployee(t, db, "E001", nil)
	dueSoon := seedTemplate(t, db, "COI")
	duePast := seedTemplate(t, db, "GIFTS")

	current, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID, TemplateID: dueSoon.ID, DueDate: time.Now().Add(24 * time.Hour),
	}, 1)
	require.NoError(t, err)

	lapsed, _, err := svc.Issue(ctx, &IssueInput{
		EmployeeID: employee.ID, TemplateID: duePast.ID, DueDate: time.Now().Add(time.Minute),
	}, 1)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.DeclarationTask{}).Where("id = ?", lapsed.ID).Update("due_date", time.Now().Add(-time.Minute)).Error)

	flipped, err := svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	reloaded, err := svc.GetByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOverdue, reloaded.Status)

	reloaded, err = svc.GetByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOutstanding, reloaded.Status)

	// Overdue task's token still resolves until its own expiry
	_, err = svc.ResolveToken(ctx, *lapsed.AccessToken)
	assert.NoError(t, err)

	// Second sweep is a no-op
	flipped, err = svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, flipped)
}
