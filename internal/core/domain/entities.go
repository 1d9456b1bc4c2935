package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleHR      Role = "HR"
	RoleManager Role = "MANAGER"
)

// User represents a back-office user in the domain layer
type User struct {
	ID         uint
	EmployeeID *uint
	Username   string
	Email      string
	Password   string // Hashed
	Role       Role
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RefreshToken represents a refresh token in the domain
type RefreshToken struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ReviewAction is a reviewer decision on a submission
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "APPROVE"
	ReviewActionReject  ReviewAction = "REJECT"
)

// VerificationType identifies an external check run against a submission
type VerificationType string

const (
	VerificationCIPC        VerificationType = "CIPC"
	VerificationCreditCheck VerificationType = "CREDIT_CHECK"
)

// BulkIssueSummary reports the outcome of a bulk task issuance.
// One employee failing does not abort the batch.
type BulkIssueSummary struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
