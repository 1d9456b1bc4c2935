package repositories

import (
	"context"
	"time"

	"declarehub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// TaskRepository handles declaration task data access
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new declaration task
func (r *TaskRepository) Create(ctx context.Context, task *models.DeclarationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID gets a task by ID with relations
func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*models.DeclarationTask, error) {
	var task models.DeclarationTask
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Employee.Manager").
		Preload("Template").
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetByToken gets a task by exact access token match. Token expiry is
// evaluated by the caller so unknown and expired tokens surface identically.
func (r *TaskRepository) GetByToken(ctx context.Context, token string) (*models.DeclarationTask, error) {
	var task models.DeclarationTask
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Employee.Manager").
		Preload("Template").
		Where("access_token = ?", token).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// HasOpenTask reports whether an open task already exists for the
// employee+template combination (duplicate-issue prevention)
func (r *TaskRepository) HasOpenTask(ctx context.Context, employeeID, templateID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeclarationTask{}).
		Where("employee_id = ? AND template_id = ?", employeeID, templateID).
		Where("status IN ?", []string{models.TaskStatusOutstanding, models.TaskStatusOverdue}).
		Count(&count).Error
	return count > 0, err
}

// List lists tasks with optional status/employee filters and pagination
func (r *TaskRepository) List(ctx context.Context, status string, employeeID *uint, offset, limit int) ([]*models.DeclarationTask, int64, error) {
	var tasks []*models.DeclarationTask
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DeclarationTask{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if employeeID != nil {
		query = query.Where("employee_id = ?", *employeeID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Employee").
		Preload("Template").
		Order("due_date ASC").
		Offset(offset).
		Limit(limit).
		Find(&tasks).Error

	return tasks, total, err
}

// Update saves a task
func (r *TaskRepository) Update(ctx context.Context, task *models.DeclarationTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// UpdateFields applies a partial update to a task
func (r *TaskRepository) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.DeclarationTask{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SweepOverdue flips every OUTSTANDING task past its due date to OVERDUE.
// Derived-status refresh only; token validity is untouched.
func (r *TaskRepository) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DeclarationTask{}).
		Where("status = ?", models.TaskStatusOutstanding).
		Where("due_date < ?", now).
		Update("status", models.TaskStatusOverdue)
	return result.RowsAffected, result.Error
}
