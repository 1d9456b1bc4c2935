package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronService runs the scheduled maintenance jobs: overdue sweeps,
// expired batch zeroing, expiring-credit alerts and token cleanup.
type CronService struct {
	cron          *cron.Cron
	taskService   *TaskService
	creditService *CreditService
	authService   *AuthService
	alertDays     int
}

// NewCronService creates a new cron service
func NewCronService(taskService *TaskService, creditService *CreditService, authService *AuthService, alertDays int) *CronService {
	return &CronService{
		cron:          cron.New(),
		taskService:   taskService,
		creditService: creditService,
		authService:   authService,
		alertDays:     alertDays,
	}
}

// Start registers and launches all scheduled jobs
func (s *CronService) Start() {
	// Overdue sweep hourly so an OUTSTANDING task crosses to OVERDUE
	// within the hour of its due date passing
	s.cron.AddFunc("0 * * * *", s.sweepOverdueTasks)

	// Ledger maintenance shortly after midnight
	s.cron.AddFunc("5 0 * * *", s.expireCreditBatches)
	s.cron.AddFunc("30 8 * * *", s.alertExpiringCredits)

	// Session hygiene
	s.cron.AddFunc("0 3 * * *", s.cleanupRefreshTokens)

	s.cron.Start()
	log.Println("🚀 CronService started")
}

// Stop gracefully stops the scheduler
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 CronService stopped")
}

func (s *CronService) sweepOverdueTasks() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := s.taskService.SweepOverdue(ctx)
	if err != nil {
		log.Printf("❌ Overdue sweep error: %v", err)
		return
	}
	if count > 0 {
		log.Printf("⏰ Marked %d tasks overdue", count)
	}
}

func (s *CronService) expireCreditBatches() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := s.creditService.ExpireBatches(ctx)
	if err != nil {
		log.Printf("❌ Credit batch expiry error: %v", err)
		return
	}
	if count > 0 {
		log.Printf("🧹 Zeroed %d expired credit batches", count)
	}
}

func (s *CronService) alertExpiringCredits() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	batches, err := s.creditService.ExpiringWithin(ctx, s.alertDays)
	if err != nil {
		log.Printf("❌ Expiring credit query error: %v", err)
		return
	}

	total := 0
	for _, b := range batches {
		total += b.RemainingAmount
	}
	if total > 0 {
		log.Printf("⚠️ %d credits across %d batches expire within %d days", total, len(batches), s.alertDays)
	}
}

func (s *CronService) cleanupRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.authService.CleanupExpiredTokens(ctx); err != nil {
		log.Printf("❌ Refresh token cleanup error: %v", err)
		return
	}
	log.Println("🧹 Expired refresh tokens cleaned up")
}
