package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/config"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		BaseURL: "http://localhost:3000",
		License: config.LicenseConfig{
			ExpiryDate: time.Now().AddDate(1, 0, 0),
			SyncAmount: 100,
		},
		Credit: config.CreditConfig{
			GateSubmissions: true,
			AlertDays:       30,
		},
	}
}

// stubLicense is a LicenseChecker with a switchable validity
type stubLicense struct {
	valid  bool
	expiry time.Time
}

func (s *stubLicense) IsValid() bool                           { return s.valid }
func (s *stubLicense) ExpiryDate() time.Time                   { return s.expiry }
func (s *stubLicense) SyncEntitlement(ctx context.Context) error { return nil }

func validLicense() *stubLicense {
	return &stubLicense{valid: true, expiry: time.Now().AddDate(1, 0, 0)}
}

// stubNotifier records every delivered link
type stubNotifier struct {
	mu    sync.Mutex
	links []string
}

func (n *stubNotifier) SendTaskLink(email, link string, expiry time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, link)
}

func (n *stubNotifier) sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.links)
}

func seedEmployee(t *testing.T, db *gorm.DB, empNo string, managerID *uint) *models.Employee {
	t.Helper()
	employee := &models.Employee{
		EmpNo:     empNo,
		FullName:  "Employee " + empNo,
		Email:     empNo + "@example.com",
		DeptName:  "Engineering",
		ManagerID: managerID,
		IsActive:  true,
	}
	require.NoError(t, db.Create(employee).Error)
	return employee
}

func seedTemplate(t *testing.T, db *gorm.DB, code string) *models.DeclarationTemplate {
	t.Helper()
	template := &models.DeclarationTemplate{
		Code:       code,
		Name:       "Template " + code,
		FormSchema: `{"fields":[]}`,
		IsActive:   true,
	}
	require.NoError(t, db.Create(template).Error)
	return template
}

func seedCredits(t *testing.T, db *gorm.DB, amount int) *models.CreditBatch {
	t.Helper()
	now := time.Now()
	batch := &models.CreditBatch{
		BatchAmount:     amount,
		RemainingAmount: amount,
		LoadDate:        now,
		ExpiryDate:      now.AddDate(1, 0, 0),
		Source:          models.CreditSourceManual,
	}
	require.NoError(t, db.Create(batch).Error)
	return batch
}

// newTaskService wires a task service over the test database
func newTaskService(t *testing.T, db *gorm.DB, license LicenseChecker, notifier Notifier) *TaskService {
	t.Helper()
	return NewTaskService(
		repositories.NewTaskRepository(db),
		repositories.NewEmployeeRepository(db),
		repositories.NewTemplateRepository(db),
		license,
		notifier,
		testConfig(),
	)
}

// newSubmissionStack wires the submission service and its collaborators
func newSubmissionStack(t *testing.T, db *gorm.DB, cfg *config.Config, license LicenseChecker, notifier Notifier) (*SubmissionService, *TaskService, *CreditService) {
	t.Helper()
	creditService := NewCreditService(repositories.NewCreditRepository(db))
	taskService := NewTaskService(
		repositories.NewTaskRepository(db),
		repositories.NewEmployeeRepository(db),
		repositories.NewTemplateRepository(db),
		license,
		notifier,
		cfg,
	)
	submissionRepo := repositories.NewSubmissionRepository(db)
	submissionService := NewSubmissionService(
		db,
		submissionRepo,
		taskService,
		NewReviewService(submissionRepo),
		creditService,
		license,
		notifier,
		cfg,
	)
	return submissionService, taskService, creditService
}
