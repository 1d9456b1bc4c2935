package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & Directory Tables
// ============================================================

// User represents users table (back-office: admin, HR, managers)
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	EmployeeID *uint          `gorm:"index" json:"employee_id"`
	Username   string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email      string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password   string         `gorm:"size:255;not null" json:"-"`
	Role       string         `gorm:"size:20;default:'HR'" json:"role"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint      `json:"id"`
	EmployeeID *uint     `json:"employee_id,omitempty"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		EmployeeID: u.EmployeeID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// Employee represents the employee directory
type Employee struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EmpNo     string         `gorm:"uniqueIndex;size:20;not null" json:"emp_no"`
	FullName  string         `gorm:"size:200;not null" json:"full_name"`
	Email     string         `gorm:"size:100;not null" json:"email"`
	DeptName  string         `gorm:"size:100" json:"dept_name"`
	ManagerID *uint          `gorm:"index" json:"manager_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Manager *Employee `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
}

func (Employee) TableName() string {
	return "employees"
}

// DeclarationTemplate is the form definition a task is issued against.
// FormSchema is an opaque JSON document; the core never parses it.
type DeclarationTemplate struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	FormSchema  string         `gorm:"type:text" json:"form_schema"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DeclarationTemplate) TableName() string {
	return "declaration_templates"
}

// ============================================================
// Credit Ledger Tables
// ============================================================

// CreditBatch is one loaded pool of consumable credits with its own expiry.
// Batches are append-only; only consumption and expiry cleanup mutate
// remaining_amount.
type CreditBatch struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BatchAmount     int       `gorm:"not null" json:"batch_amount"`
	RemainingAmount int       `gorm:"not null" json:"remaining_amount"`
	LoadDate        time.Time `gorm:"not null;index" json:"load_date"`
	ExpiryDate      time.Time `gorm:"not null;index" json:"expiry_date"`
	Source          string    `gorm:"size:50" json:"source"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CreditBatch) TableName() string {
	return "credit_batches"
}

func (b *CreditBatch) IsExpired(now time.Time) bool {
	return !b.ExpiryDate.After(now)
}

// Credit batch sources
const (
	CreditSourceManual      = "MANUAL"
	CreditSourceLicenseSync = "LICENSE_SYNC"
	CreditSourceRefund      = "REFUND"
)

// CreditConsumption is an append-only audit row for one consume call.
// BatchBreakdown records the per-batch decrements as JSON.
type CreditConsumption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Amount         int       `gorm:"not null" json:"amount"`
	Reason         string    `gorm:"size:255" json:"reason"`
	BatchBreakdown string    `gorm:"type:text" json:"batch_breakdown"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CreditConsumption) TableName() string {
	return "credit_consumptions"
}

// ============================================================
// Declaration Task Tables
// ============================================================

// Task statuses
const (
	TaskStatusOutstanding = "OUTSTANDING"
	TaskStatusOverdue     = "OVERDUE"
	TaskStatusSubmitted   = "SUBMITTED"
	TaskStatusReviewed    = "REVIEWED"
	TaskStatusCancelled   = "CANCELLED"
)

// DeclarationTask assigns one template to one employee with a due date and
// a single-use access token. AccessToken is non-nil only while the task is
// open for submission (OUTSTANDING, OVERDUE). A rejected review reopens the
// task as OUTSTANDING on a rotated token; revision state lives on the
// submission, not the task.
type DeclarationTask struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EmployeeID  uint       `gorm:"not null;index" json:"employee_id"`
	TemplateID  uint       `gorm:"not null;index" json:"template_id"`
	DueDate     time.Time  `gorm:"not null;index" json:"due_date"`
	Status      string     `gorm:"size:20;not null;default:'OUTSTANDING';index" json:"status"`
	AccessToken *string    `gorm:"size:64;index" json:"-"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Employee *Employee            `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Template *DeclarationTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Creator  *User                `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (DeclarationTask) TableName() string {
	return "declaration_tasks"
}

// IsOpen reports whether the task still accepts a submission.
func (t *DeclarationTask) IsOpen() bool {
	switch t.Status {
	case TaskStatusOutstanding, TaskStatusOverdue:
		return true
	}
	return false
}

// TaskResponse DTO
type TaskResponse struct {
	ID           uint       `json:"id"`
	EmployeeID   uint       `json:"employee_id"`
	EmployeeName string     `json:"employee_name,omitempty"`
	TemplateID   uint       `json:"template_id"`
	TemplateName string     `json:"template_name,omitempty"`
	DueDate      time.Time  `json:"due_date"`
	Status       string     `json:"status"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (t *DeclarationTask) ToResponse() *TaskResponse {
	resp := &TaskResponse{
		ID:          t.ID,
		EmployeeID:  t.EmployeeID,
		TemplateID:  t.TemplateID,
		DueDate:     t.DueDate,
		Status:      t.Status,
		TokenExpiry: t.TokenExpiry,
		CreatedAt:   t.CreatedAt,
	}
	if t.Employee != nil {
		resp.EmployeeName = t.Employee.FullName
	}
	if t.Template != nil {
		resp.TemplateName = t.Template.Name
	}
	return resp
}

// ============================================================
// Submission Tables
// ============================================================

// Submission statuses
const (
	SubmissionStatusDraft            = "DRAFT"
	SubmissionStatusSubmitted        = "SUBMITTED"
	SubmissionStatusReviewed         = "REVIEWED"
	SubmissionStatusRevisionRequired = "REVISION_REQUIRED"
)

// Submission is the employee's answer set for a task. At most one
// non-superseded submission exists per task; reject→resubmit cycles link
// versions through AmendmentOfSubmissionID rather than editing in place.
// AssignedManagerName is a deliberate snapshot so historical submissions
// keep showing who reviewed them regardless of later org changes.
type Submission struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	TaskID                  uint       `gorm:"not null;index" json:"task_id"`
	FormData                string     `gorm:"type:text" json:"form_data"`
	Status                  string     `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	SubmittedDate           *time.Time `json:"submitted_date"`
	DigitalAttestation      string     `gorm:"size:255" json:"digital_attestation"`
	AssignedManagerID       *uint      `gorm:"index" json:"assigned_manager_id"`
	AssignedManagerName     string     `gorm:"size:200" json:"assigned_manager_name"`
	ReviewerNotes           string     `gorm:"type:text" json:"reviewer_notes"`
	ReviewerSignature       string     `gorm:"size:255" json:"reviewer_signature"`
	ReviewedDate            *time.Time `json:"reviewed_date"`
	VersionNo               int        `gorm:"not null;default:1" json:"version_no"`
	AmendmentOfSubmissionID *uint      `gorm:"index" json:"amendment_of_submission_id"`
	Superseded              bool       `gorm:"default:false;index" json:"superseded"`
	SubmitTokenHash         string     `gorm:"size:64;index" json:"-"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Task *DeclarationTask `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// VerificationAttachment is an append-only audit record of one external
// check run against a submission. One credit-consumption event backs each.
type VerificationAttachment struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	SubmissionID          uint       `gorm:"not null;index" json:"submission_id"`
	Type                  string     `gorm:"size:20;not null" json:"type"`
	Reference             string     `gorm:"size:64" json:"reference"`
	ResultPayload         string     `gorm:"type:text" json:"result_payload"`
	VerifiedDate          *time.Time `json:"verified_date"`
	InitiatedByEmployeeID uint       `gorm:"not null" json:"initiated_by_employee_id"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
}

func (VerificationAttachment) TableName() string {
	return "verification_attachments"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Auth & directory
		&User{},
		&RefreshToken{},
		&Employee{},
		&DeclarationTemplate{},
		// Credit ledger
		&CreditBatch{},
		&CreditConsumption{},
		// Declaration lifecycle
		&DeclarationTask{},
		&Submission{},
		&VerificationAttachment{},
	)
}
