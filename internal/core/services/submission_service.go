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
	"declarehub/internal/pkg/password"
	"declarehub/internal/pkg/token"

	"gorm.io/gorm"
)

// SubmissionService owns the versioned submission record: draft saving,
// final submission with optional credit gating, and the review cycle
// executed through the reviewer gate.
//
// Every mutating path that touches more than one entity (submit = token +
// task + submission, review = submission + task) runs inside a single
// transaction so a failure partway leaves no partial state.
type SubmissionService struct {
	db             *gorm.DB
	submissionRepo *repositories.SubmissionRepository
	taskService    *TaskService
	reviewGate     *ReviewService
	creditService  *CreditService
	license        LicenseChecker
	notifier       Notifier
	cfg            *config.Config
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	db *gorm.DB,
	submissionRepo *repositories.SubmissionRepository,
	taskService *TaskService,
	reviewGate *ReviewService,
	creditService *CreditService,
	license LicenseChecker,
	notifier Notifier,
	cfg *config.Config,
) *SubmissionService {
	return &SubmissionService{
		db:             db,
		submissionRepo: submissionRepo,
		taskService:    taskService,
		reviewGate:     reviewGate,
		creditService:  creditService,
		license:        license,
		notifier:       notifier,
		cfg:            cfg,
	}
}

// SaveDraft upserts the draft submission for the task behind the token.
// Touches neither credits nor task status, and is safe to call repeatedly.
func (s *SubmissionService) SaveDraft(ctx context.Context, accessToken, formData string) (*models.Submission, error) {
	task, err := s.taskService.ResolveToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !task.IsOpen() {
		return nil, domain.ErrTaskNotOpen
	}

	active, err := s.submissionRepo.GetActiveByTaskID(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case active == nil:
		draft := &models.Submission{
			TaskID:    task.ID,
			FormData:  formData,
			Status:    models.SubmissionStatusDraft,
			VersionNo: 1,
		}
		if err := s.submissionRepo.Create(ctx, draft); err != nil {
			return nil, err
		}
		return draft, nil

	case active.Status == models.SubmissionStatusDraft:
		active.FormData = formData
		if err := s.submissionRepo.Update(ctx, active); err != nil {
			return nil, err
		}
		return active, nil

	case active.Status == models.SubmissionStatusRevisionRequired:
		// Reviewed submissions are never edited in place; drafting after a
		// rejection starts the next version of the amendment chain
		var draft *models.Submission
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txRepo := repositories.NewSubmissionRepository(tx)
			active.Superseded = true
			if err := txRepo.Update(ctx, active); err != nil {
				return err
			}
			draft = &models.Submission{
				TaskID:                  task.ID,
				FormData:                formData,
				Status:                  models.SubmissionStatusDraft,
				VersionNo:               active.VersionNo + 1,
				AmendmentOfSubmissionID: &active.ID,
			}
			return txRepo.Create(ctx, draft)
		})
		if err != nil {
			return nil, err
		}
		return draft, nil

	default:
		return nil, domain.ErrTaskNotOpen
	}
}

// SubmitResult is the outcome of a final submit. AlreadyProcessed marks
// the duplicate-submit soft success (client retries after a timeout).
type SubmitResult struct {
	Submission       *models.Submission `json:"submission"`
	AlreadyProcessed bool               `json:"already_processed"`
}

// Submit finalises the submission for the task behind the token: snapshots
// the employee's current manager as the assigned reviewer, optionally
// consumes a credit, persists the submission and transitions the task to
// SUBMITTED with its token revoked.
//
// Idempotent at the task level: a retry with the same (already consumed)
// token returns the original result instead of erroring or duplicating.
func (s *SubmissionService) Submit(ctx context.Context, accessToken, formData, attestation string) (*SubmitResult, error) {
	if !s.license.IsValid() {
		return nil, domain.ErrLicenseExpired
	}
	if attestation == "" {
		return nil, domain.ErrAttestationRequired
	}

	tokenHash := password.HashToken(accessToken)

	task, err := s.taskService.ResolveToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalidOrExpired) {
			// The token may already have been consumed by a submit whose
			// response the client never saw
			if prior, lookupErr := s.submissionRepo.GetByTokenHash(ctx, tokenHash); lookupErr == nil && prior != nil {
				log.Printf("ℹ️ Duplicate submit for task #%d ignored", prior.TaskID)
				return &SubmitResult{Submission: prior, AlreadyProcessed: true}, nil
			}
		}
		return nil, err
	}
	if !task.IsOpen() {
		if prior, lookupErr := s.submissionRepo.GetActiveByTaskID(ctx, task.ID); lookupErr == nil && prior != nil {
			log.Printf("ℹ️ Duplicate submit for task #%d ignored", task.ID)
			return &SubmitResult{Submission: prior, AlreadyProcessed: true}, nil
		}
		return nil, domain.ErrTaskNotOpen
	}

	// Reviewer assignment is recomputed from the employee's current manager
	// at submission time and immutable once review starts
	var managerID *uint
	var managerName string
	if task.Employee != nil {
		managerID = task.Employee.ManagerID
		if task.Employee.Manager != nil {
			managerName = task.Employee.Manager.FullName
		}
	}

	// Credit gating is a policy decision; when enabled, consumption happens
	// before persistence and is compensated if persistence fails after it
	consumed := false
	if s.cfg.Credit.GateSubmissions {
		reason := fmt.Sprintf("declaration submission (task #%d)", task.ID)
		if err := s.creditService.Consume(ctx, 1, reason); err != nil {
			return nil, err
		}
		consumed = true
	}

	now := time.Now()
	var submission *models.Submission
	alreadyProcessed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSubmissions := repositories.NewSubmissionRepository(tx)
		txTasks := repositories.NewTaskRepository(tx)

		active, err := txSubmissions.GetActiveByTaskID(ctx, task.ID)
		if err != nil {
			return err
		}

		switch {
		case active == nil:
			submission = &models.Submission{
				TaskID:    task.ID,
				VersionNo: 1,
			}
		case active.Status == models.SubmissionStatusDraft:
			submission = active
		case active.Status == models.SubmissionStatusRevisionRequired:
			active.Superseded = true
			if err := txSubmissions.Update(ctx, active); err != nil {
				return err
			}
			submission = &models.Submission{
				TaskID:                  task.ID,
				VersionNo:               active.VersionNo + 1,
				AmendmentOfSubmissionID: &active.ID,
			}
		default:
			// Concurrent duplicate; surface as soft success outside
			submission = active
			alreadyProcessed = true
			return nil
		}

		submission.FormData = formData
		submission.Status = models.SubmissionStatusSubmitted
		submission.SubmittedDate = &now
		submission.DigitalAttestation = attestation
		submission.AssignedManagerID = managerID
		submission.AssignedManagerName = managerName
		submission.SubmitTokenHash = tokenHash

		if submission.ID == 0 {
			if err := txSubmissions.Create(ctx, submission); err != nil {
				return err
			}
		} else {
			if err := txSubmissions.Update(ctx, submission); err != nil {
				return err
			}
		}

		// Accepting the submission consumes the link and closes the task
		return txTasks.UpdateFields(ctx, task.ID, map[string]interface{}{
			"status":       models.TaskStatusSubmitted,
			"access_token": nil,
			"token_expiry": nil,
		})
	})
	if err != nil {
		if consumed {
			if refundErr := s.creditService.Refund(ctx, 1, fmt.Sprintf("submit rollback (task #%d)", task.ID)); refundErr != nil {
				log.Printf("❌ Credit refund failed for task #%d: %v", task.ID, refundErr)
			}
		}
		return nil, err
	}
	if alreadyProcessed {
		// The race loser must not be charged for the winner's submission
		if consumed {
			if refundErr := s.creditService.Refund(ctx, 1, fmt.Sprintf("duplicate submit (task #%d)", task.ID)); refundErr != nil {
				log.Printf("❌ Credit refund failed for task #%d: %v", task.ID, refundErr)
			}
		}
		log.Printf("ℹ️ Duplicate submit for task #%d ignored", task.ID)
		return &SubmitResult{Submission: submission, AlreadyProcessed: true}, nil
	}

	log.Printf("✅ Task #%d submitted (submission #%d, version %d)", task.ID, submission.ID, submission.VersionNo)
	return &SubmitResult{Submission: submission}, nil
}

// ActiveByTaskID returns the current (non-superseded) submission for a
// task, nil when none exists yet
func (s *SubmissionService) ActiveByTaskID(ctx context.Context, taskID uint) (*models.Submission, error) {
	return s.submissionRepo.GetActiveByTaskID(ctx, taskID)
}

// GetByID gets a submission by ID
func (s *SubmissionService) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

// AmendmentChain returns a submission and all versions it amends,
// newest first
func (s *SubmissionService) AmendmentChain(ctx context.Context, id uint) ([]*models.Submission, error) {
	chain, err := s.submissionRepo.ChainByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return chain, nil
}

// ReviewInput represents a reviewer decision
type ReviewInput struct {
	Action    domain.ReviewAction `json:"action" validate:"required"`
	Notes     string              `json:"notes,omitempty"`
	Signature string              `json:"signature,omitempty"`
}

// Review executes an approve/reject decision. Only the assigned manager
// may act; an already-reviewed submission is a soft no-op. Rejection
// requires notes, reopens the task and rotates its access token so the
// exercised link cannot be replayed.
func (s *SubmissionService) Review(ctx context.Context, submissionID, reviewerEmployeeID uint, input *ReviewInput) (*SubmitResult, error) {
	submission, err := s.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if submission.Status == models.SubmissionStatusReviewed {
		log.Printf("ℹ️ Submission #%d already reviewed, no-op", submission.ID)
		return &SubmitResult{Submission: submission, AlreadyProcessed: true}, nil
	}
	if !s.reviewGate.CanReview(submission, reviewerEmployeeID) {
		if submission.Status != models.SubmissionStatusSubmitted {
			return nil, domain.ErrNotReviewable
		}
		return nil, domain.ErrNotAssignedReviewer
	}

	switch input.Action {
	case domain.ReviewActionApprove:
		return s.approve(ctx, submission, input)
	case domain.ReviewActionReject:
		return s.reject(ctx, submission, input)
	default:
		return nil, domain.ErrInvalidInput
	}
}

func (s *SubmissionService) approve(ctx context.Context, submission *models.Submission, input *ReviewInput) (*SubmitResult, error) {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSubmissions := repositories.NewSubmissionRepository(tx)
		txTasks := repositories.NewTaskRepository(tx)

		submission.Status = models.SubmissionStatusReviewed
		submission.ReviewerNotes = input.Notes
		submission.ReviewerSignature = input.Signature
		submission.ReviewedDate = &now
		if err := txSubmissions.Update(ctx, submission); err != nil {
			return err
		}

		return txTasks.UpdateFields(ctx, submission.TaskID, map[string]interface{}{
			"status": models.TaskStatusReviewed,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Submission #%d approved", submission.ID)
	return &SubmitResult{Submission: submission}, nil
}

func (s *SubmissionService) reject(ctx context.Context, submission *models.Submission, input *ReviewInput) (*SubmitResult, error) {
	if input.Notes == "" {
		return nil, domain.ErrNotesRequired
	}

	task, err := s.taskService.GetByID(ctx, submission.TaskID)
	if err != nil {
		return nil, err
	}

	newToken, err := token.Generate()
	if err != nil {
		return nil, err
	}
	tokenExpiry := token.ExpiryForDueDate(task.DueDate, time.Now())

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSubmissions := repositories.NewSubmissionRepository(tx)
		txTasks := repositories.NewTaskRepository(tx)

		submission.Status = models.SubmissionStatusRevisionRequired
		submission.ReviewerNotes = input.Notes
		submission.ReviewerSignature = input.Signature
		submission.ReviewedDate = &now
		if err := txSubmissions.Update(ctx, submission); err != nil {
			return err
		}

		// Reopen the task as OUTSTANDING on a rotated token; the due date
		// stays put unless explicitly extended afterwards
		return txTasks.UpdateFields(ctx, submission.TaskID, map[string]interface{}{
			"status":       models.TaskStatusOutstanding,
			"access_token": newToken,
			"token_expiry": tokenExpiry,
		})
	})
	if err != nil {
		return nil, err
	}

	if task.Employee != nil {
		s.notifier.SendTaskLink(task.Employee.Email, s.cfg.DeclareLink(newToken), tokenExpiry)
	}

	log.Printf("✅ Submission #%d sent back for revision", submission.ID)
	return &SubmitResult{Submission: submission}, nil
}
