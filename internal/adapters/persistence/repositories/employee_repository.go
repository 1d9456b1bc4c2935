package repositories

import (
	"context"

	"declarehub/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// employeeRepository implements EmployeeRepository interface
type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

// GetByID gets an employee by ID with the manager preloaded
func (r *employeeRepository) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Preload("Manager").
		First(&employee, id).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

// GetByEmpNo gets an employee by employee number
func (r *employeeRepository) GetByEmpNo(ctx context.Context, empNo string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).
		Where("emp_no = ?", empNo).
		First(&employee).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

// List lists employees with pagination
func (r *employeeRepository) List(ctx context.Context, offset, limit int) ([]*models.Employee, int64, error) {
	var employees []*models.Employee
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Employee{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("Manager").
		Order("emp_no ASC").
		Offset(offset).
		Limit(limit).
		Find(&employees).Error

	return employees, total, err
}

// ListActiveIDs lists IDs of all active employees (for bulk issuance)
func (r *employeeRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("is_active = ?", true).
		Pluck("id", &ids).Error
	return ids, err
}

// Create creates a new employee record
func (r *employeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

// templateRepository implements TemplateRepository interface
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// GetActive gets a template by ID only if it is active
func (r *templateRepository) GetActive(ctx context.Context, id uint) (*models.DeclarationTemplate, error) {
	var template models.DeclarationTemplate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("is_active = ?", true).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetByID gets a template by ID regardless of active flag
func (r *templateRepository) GetByID(ctx context.Context, id uint) (*models.DeclarationTemplate, error) {
	var template models.DeclarationTemplate
	err := r.db.WithContext(ctx).First(&template, id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// List lists all templates
func (r *templateRepository) List(ctx context.Context) ([]*models.DeclarationTemplate, error) {
	var templates []*models.DeclarationTemplate
	err := r.db.WithContext(ctx).Order("code ASC").Find(&templates).Error
	return templates, err
}

// Create creates a new template
func (r *templateRepository) Create(ctx context.Context, template *models.DeclarationTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}
