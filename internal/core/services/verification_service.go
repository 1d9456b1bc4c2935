package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/core/domain"

	"github.com/google/uuid"
)

// VerificationService runs third-party checks (CIPC lookups, credit
// checks) against the employee behind a submission. Each run costs one
// credit; a check that fails after the credit was consumed is refunded.
type VerificationService struct {
	verificationRepo *repositories.VerificationRepository
	submissionRepo   *repositories.SubmissionRepository
	employeeRepo     repositories.EmployeeRepository
	creditService    *CreditService
	license          LicenseChecker
	checkers         map[domain.VerificationType]Checker
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	verificationRepo *repositories.VerificationRepository,
	submissionRepo *repositories.SubmissionRepository,
	employeeRepo repositories.EmployeeRepository,
	creditService *CreditService,
	license LicenseChecker,
	checkers ...Checker,
) *VerificationService {
	byType := make(map[domain.VerificationType]Checker, len(checkers))
	for _, c := range checkers {
		byType[c.Type()] = c
	}
	return &VerificationService{
		verificationRepo: verificationRepo,
		submissionRepo:   submissionRepo,
		employeeRepo:     employeeRepo,
		creditService:    creditService,
		license:          license,
		checkers:         byType,
	}
}

// RunCheck executes a verification of the given type for a submission's
// employee and attaches the result. The credit is consumed before the
// external call and refunded if the check itself fails.
func (s *VerificationService) RunCheck(ctx context.Context, submissionID uint, checkType domain.VerificationType, initiatedByEmployeeID uint) (*models.VerificationAttachment, error) {
	if !s.license.IsValid() {
		return nil, domain.ErrLicenseExpired
	}

	checker, ok := s.checkers[checkType]
	if !ok {
		return nil, domain.ErrInvalidInput
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, domain.ErrSubmissionNotFound
	}
	if submission.Task == nil || submission.Task.Employee == nil {
		return nil, domain.ErrSubmissionNotFound
	}
	employee := submission.Task.Employee

	reason := fmt.Sprintf("%s verification (submission #%d)", checkType, submissionID)
	if err := s.creditService.Consume(ctx, 1, reason); err != nil {
		return nil, err
	}

	// The external call runs outside any ledger transaction so a slow
	// provider never holds batch row locks
	payload, err := checker.Run(ctx, employee)
	if err != nil {
		log.Printf("⚠️ %s check failed for submission #%d: %v", checkType, submissionID, err)
		if refundErr := s.creditService.Refund(ctx, 1, fmt.Sprintf("failed %s verification (submission #%d)", checkType, submissionID)); refundErr != nil {
			log.Printf("❌ Credit refund failed after %s check: %v", checkType, refundErr)
		}
		return nil, err
	}

	now := time.Now()
	attachment := &models.VerificationAttachment{
		SubmissionID:          submissionID,
		Type:                  string(checkType),
		Reference:             uuid.New().String(),
		ResultPayload:         payload,
		VerifiedDate:          &now,
		InitiatedByEmployeeID: initiatedByEmployeeID,
	}
	if err := s.verificationRepo.Create(ctx, attachment); err != nil {
		// A result that was never persisted must not stay paid for
		if refundErr := s.creditService.Refund(ctx, 1, fmt.Sprintf("unrecorded %s verification (submission #%d)", checkType, submissionID)); refundErr != nil {
			log.Printf("❌ Credit refund failed after %s check: %v", checkType, refundErr)
		}
		return nil, err
	}

	log.Printf("✅ %s verification attached to submission #%d (ref %s)", checkType, submissionID, attachment.Reference)
	return attachment, nil
}

// ListForSubmission lists verification attachments for a submission
func (s *VerificationService) ListForSubmission(ctx context.Context, submissionID uint) ([]*models.VerificationAttachment, error) {
	return s.verificationRepo.ListBySubmissionID(ctx, submissionID)
}
