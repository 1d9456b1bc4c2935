package services

import (
	"context"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/core/domain"
)

// LicenseChecker is the entitlement gate consulted before any gated
// operation touches the ledger or the task state machine. The license
// server protocol itself lives behind this interface.
type LicenseChecker interface {
	IsValid() bool
	ExpiryDate() time.Time
	SyncEntitlement(ctx context.Context) error
}

// Notifier delivers task links to employees. Fire-and-forget: a delivery
// failure never rolls back the operation that triggered it.
type Notifier interface {
	SendTaskLink(email, link string, expiry time.Time)
}

// Checker runs one external verification (company registry, credit bureau)
// against an employee and returns the raw result payload.
type Checker interface {
	Type() domain.VerificationType
	Run(ctx context.Context, employee *models.Employee) (string, error)
}
