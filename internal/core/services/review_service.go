package services

import (
	"context"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
)

// ReviewService answers the reviewer gate question: which submissions may
// this manager act on. The assignment was snapshotted at submission time,
// so a later manager change never shifts an in-flight review.
type ReviewService struct {
	submissionRepo *repositories.SubmissionRepository
}

// NewReviewService creates a new review service
func NewReviewService(submissionRepo *repositories.SubmissionRepository) *ReviewService {
	return &ReviewService{submissionRepo: submissionRepo}
}

// CanReview reports whether the employee is the assigned reviewer of a
// submission that is currently awaiting review.
func (s *ReviewService) CanReview(submission *models.Submission, reviewerEmployeeID uint) bool {
	if submission.Status != models.SubmissionStatusSubmitted {
		return false
	}
	return submission.AssignedManagerID != nil && *submission.AssignedManagerID == reviewerEmployeeID
}

// PendingSubmissions lists submissions awaiting the manager's review
func (s *ReviewService) PendingSubmissions(ctx context.Context, managerEmployeeID uint) ([]*models.Submission, error) {
	return s.submissionRepo.ListPendingByManager(ctx, managerEmployeeID)
}

// PendingReviewTaskIDs returns the task IDs behind the manager's review queue
func (s *ReviewService) PendingReviewTaskIDs(ctx context.Context, managerEmployeeID uint) ([]uint, error) {
	return s.submissionRepo.PendingTaskIDsByManager(ctx, managerEmployeeID)
}
