package repositories

import (
	"context"

	"declarehub/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmployeeID(ctx context.Context, employeeID uint) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// EmployeeRepository defines employee directory access.
// The directory is the source of truth for the manager relationship that
// gets snapshotted onto submissions.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Employee, error)
	GetByEmpNo(ctx context.Context, empNo string) (*models.Employee, error)
	List(ctx context.Context, offset, limit int) ([]*models.Employee, int64, error)
	ListActiveIDs(ctx context.Context) ([]uint, error)
	Create(ctx context.Context, employee *models.Employee) error
}

// TemplateRepository defines declaration template access
type TemplateRepository interface {
	GetActive(ctx context.Context, id uint) (*models.DeclarationTemplate, error)
	GetByID(ctx context.Context, id uint) (*models.DeclarationTemplate, error)
	List(ctx context.Context) ([]*models.DeclarationTemplate, error)
	Create(ctx context.Context, template *models.DeclarationTemplate) error
}
