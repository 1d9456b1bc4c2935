package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/config"
	"declarehub/internal/core/domain"
	"declarehub/internal/pkg/token"

	"gorm.io/gorm"
)

// TaskService owns the declaration task state machine: issuance, the
// overdue sweep, due-date extension, cancellation and the access-token
// lifecycle that travels with each task.
type TaskService struct {
	taskRepo     *repositories.TaskRepository
	employeeRepo repositories.EmployeeRepository
	templateRepo repositories.TemplateRepository
	license      LicenseChecker
	notifier     Notifier
	cfg          *config.Config
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo *repositories.TaskRepository,
	employeeRepo repositories.EmployeeRepository,
	templateRepo repositories.TemplateRepository,
	license LicenseChecker,
	notifier Notifier,
	cfg *config.Config,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		employeeRepo: employeeRepo,
		templateRepo: templateRepo,
		license:      license,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// IssueInput represents single task issuance input
type IssueInput struct {
	EmployeeID uint      `json:"employee_id" validate:"required"`
	TemplateID uint      `json:"template_id" validate:"required"`
	DueDate    time.Time `json:"due_date" validate:"required"`
}

// Issue creates one declaration task with a fresh access token and
// notifies the employee. Skips (does not fail) when an open task already
// exists for the same employee+template combination.
func (s *TaskService) Issue(ctx context.Context, input *IssueInput, createdBy uint) (*models.DeclarationTask, bool, error) {
	if !s.license.IsValid() {
		return nil, false, domain.ErrLicenseExpired
	}
	if !input.DueDate.After(time.Now()) {
		return nil, false, domain.ErrDueDateInPast
	}

	employee, err := s.employeeRepo.GetByID(ctx, input.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, domain.ErrEmployeeNotFound
		}
		return nil, false, err
	}

	template, err := s.templateRepo.GetActive(ctx, input.TemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, domain.ErrTemplateNotActive
		}
		return nil, false, err
	}

	// Duplicate prevention is per (employee, template), not per request
	exists, err := s.taskRepo.HasOpenTask(ctx, employee.ID, template.ID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, true, nil
	}

	accessToken, err := token.Generate()
	if err != nil {
		return nil, false, err
	}
	tokenExpiry := token.ExpiryForDueDate(input.DueDate, time.Now())

	task := &models.DeclarationTask{
		EmployeeID:  employee.ID,
		TemplateID:  template.ID,
		DueDate:     input.DueDate,
		Status:      models.TaskStatusOutstanding,
		AccessToken: &accessToken,
		TokenExpiry: &tokenExpiry,
		CreatedBy:   createdBy,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, false, err
	}

	// Fire-and-forget: a failed notification is logged by the notifier
	// and retried out of band, never rolled back here
	s.notifier.SendTaskLink(employee.Email, s.cfg.DeclareLink(accessToken), tokenExpiry)

	log.Printf("✅ Task #%d issued: employee %s, template %s, due %s",
		task.ID, employee.EmpNo, template.Code, input.DueDate.Format("2006-01-02"))
	return task, false, nil
}

// BulkIssueInput represents bulk issuance input. Empty EmployeeIDs means
// every active employee.
type BulkIssueInput struct {
	EmployeeIDs []uint    `json:"employee_ids"`
	TemplateID  uint      `json:"template_id" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// IssueBulk issues tasks for many employees. Partial-failure tolerant:
// one employee's failure is logged and counted, the batch continues.
func (s *TaskService) IssueBulk(ctx context.Context, input *BulkIssueInput, createdBy uint) (*domain.BulkIssueSummary, error) {
	if !s.license.IsValid() {
		return nil, domain.ErrLicenseExpired
	}

	employeeIDs := input.EmployeeIDs
	if len(employeeIDs) == 0 {
		var err error
		employeeIDs, err = s.employeeRepo.ListActiveIDs(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(employeeIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	summary := &domain.BulkIssueSummary{}
	for _, employeeID := range employeeIDs {
		_, skipped, err := s.Issue(ctx, &IssueInput{
			EmployeeID: employeeID,
			TemplateID: input.TemplateID,
			DueDate:    input.DueDate,
		}, createdBy)
		switch {
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("employee %d: %v", employeeID, err))
			log.Printf("⚠️ Bulk issue: employee %d failed: %v", employeeID, err)
		case skipped:
			summary.Skipped++
		default:
			summary.Created++
		}
	}

	log.Printf("✅ Bulk issue completed: %d created, %d skipped, %d failed",
		summary.Created, summary.Skipped, summary.Failed)
	return summary, nil
}

// ResolveToken resolves an access token to its open task. Unknown,
// expired and already-consumed tokens are indistinguishable to the caller.
func (s *TaskService) ResolveToken(ctx context.Context, accessToken string) (*models.DeclarationTask, error) {
	if accessToken == "" {
		return nil, domain.ErrTokenInvalidOrExpired
	}

	task, err := s.taskRepo.GetByToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	if task.TokenExpiry == nil || time.Now().After(*task.TokenExpiry) {
		return nil, domain.ErrTokenInvalidOrExpired
	}
	return task, nil
}

// GetByID gets a task by ID
func (s *TaskService) GetByID(ctx context.Context, id uint) (*models.DeclarationTask, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// List lists tasks with filters and pagination
func (s *TaskService) List(ctx context.Context, status string, employeeID *uint, offset, limit int) ([]*models.DeclarationTask, int64, error) {
	return s.taskRepo.List(ctx, status, employeeID, offset, limit)
}

// ExtendDueDate sets a new due date. An OVERDUE task whose new date lies
// in the future reverts to OUTSTANDING.
func (s *TaskService) ExtendDueDate(ctx context.Context, taskID uint, newDueDate time.Time) (*models.DeclarationTask, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task.DueDate = newDueDate
	if task.Status == models.TaskStatusOverdue && newDueDate.After(time.Now()) {
		task.Status = models.TaskStatusOutstanding
	}
	if task.IsOpen() {
		tokenExpiry := token.ExpiryForDueDate(newDueDate, time.Now())
		task.TokenExpiry = &tokenExpiry
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	log.Printf("✅ Task #%d due date extended to %s", task.ID, newDueDate.Format("2006-01-02"))
	return task, nil
}

// ExtendDueDateBulk extends many tasks; per-task failures are collected,
// not fatal
func (s *TaskService) ExtendDueDateBulk(ctx context.Context, taskIDs []uint, newDueDate time.Time) (*domain.BulkIssueSummary, error) {
	if len(taskIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	summary := &domain.BulkIssueSummary{}
	for _, id := range taskIDs {
		if _, err := s.ExtendDueDate(ctx, id, newDueDate); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("task %d: %v", id, err))
			continue
		}
		summary.Created++
	}
	return summary, nil
}

// Cancel cancels a task. Only permitted while the task has not been
// submitted, to protect audit integrity.
func (s *TaskService) Cancel(ctx context.Context, taskID uint) (*models.DeclarationTask, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status != models.TaskStatusOutstanding && task.Status != models.TaskStatusOverdue {
		return nil, domain.ErrTaskNotCancellable
	}

	task.Status = models.TaskStatusCancelled
	task.AccessToken = nil
	task.TokenExpiry = nil
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	log.Printf("✅ Task #%d cancelled", task.ID)
	return task, nil
}

// ResendLink regenerates the access token on a fixed 30-day window and
// re-sends the task link (reminder path)
func (s *TaskService) ResendLink(ctx context.Context, taskID uint) (*models.DeclarationTask, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsOpen() {
		return nil, domain.ErrTaskNotOpen
	}

	accessToken, err := token.Generate()
	if err != nil {
		return nil, err
	}
	tokenExpiry := time.Now().Add(token.ReminderWindow)
	task.AccessToken = &accessToken
	task.TokenExpiry = &tokenExpiry
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	if task.Employee != nil {
		s.notifier.SendTaskLink(task.Employee.Email, s.cfg.DeclareLink(accessToken), tokenExpiry)
	}

	log.Printf("✅ Task #%d link regenerated", task.ID)
	return task, nil
}

// SweepOverdue flips every OUTSTANDING task past its due date to OVERDUE.
// Idempotent; run periodically. Token validity is untouched - an overdue
// task's link still works until tokenExpiry.
func (s *TaskService) SweepOverdue(ctx context.Context) (int64, error) {
	flipped, err := s.taskRepo.SweepOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		log.Printf("🧹 Overdue sweep: %d task(s) flipped", flipped)
	}
	return flipped, nil
}
