package repositories

import (
	"context"

	"declarehub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// SubmissionRepository handles submission data access
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create creates a new submission
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// GetByID gets a submission by ID with its task
func (r *SubmissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Task.Employee").
		Preload("Task.Template").
		First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetActiveByTaskID gets the single non-superseded submission for a task,
// or nil when none exists
func (r *SubmissionRepository) GetActiveByTaskID(ctx context.Context, taskID uint) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Where("superseded = ?", false).
		First(&submission).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

// GetByTokenHash finds the submission recorded for an already-consumed
// access token, or nil. Backs the idempotent submit retry: the public
// resolve path never uses this lookup.
func (r *SubmissionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("submit_token_hash = ?", tokenHash).
		First(&submission).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

// ListPendingByManager lists SUBMITTED submissions assigned to a manager
func (r *SubmissionRepository) ListPendingByManager(ctx context.Context, managerID uint) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Task.Employee").
		Preload("Task.Template").
		Where("assigned_manager_id = ?", managerID).
		Where("status = ?", models.SubmissionStatusSubmitted).
		Where("superseded = ?", false).
		Order("submitted_date ASC").
		Find(&submissions).Error
	return submissions, err
}

// PendingTaskIDsByManager returns the task IDs awaiting a manager's review
// (badge counts; read-only projection)
func (r *SubmissionRepository) PendingTaskIDsByManager(ctx context.Context, managerID uint) ([]uint, error) {
	var taskIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assigned_manager_id = ?", managerID).
		Where("status = ?", models.SubmissionStatusSubmitted).
		Where("superseded = ?", false).
		Pluck("task_id", &taskIDs).Error
	return taskIDs, err
}

// Update saves a submission
func (r *SubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// ChainByID walks the amendment chain backwards from a submission, by
// repeated lookup of amendment_of_submission_id
func (r *SubmissionRepository) ChainByID(ctx context.Context, id uint) ([]*models.Submission, error) {
	var chain []*models.Submission
	next := &id
	for next != nil {
		var submission models.Submission
		if err := r.db.WithContext(ctx).First(&submission, *next).Error; err != nil {
			return nil, err
		}
		chain = append(chain, &submission)
		next = submission.AmendmentOfSubmissionID
	}
	return chain, nil
}

// VerificationRepository handles verification attachment data access
type VerificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create appends a verification attachment
func (r *VerificationRepository) Create(ctx context.Context, attachment *models.VerificationAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// ListBySubmissionID lists verification attachments for a submission
func (r *VerificationRepository) ListBySubmissionID(ctx context.Context, submissionID uint) ([]*models.VerificationAttachment, error) {
	var attachments []*models.VerificationAttachment
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC").
		Find(&attachments).Error
	return attachments, err
}
