package services

import (
	"context"
	"errors"
	"log"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/core/domain"
)

// Credit errors
var (
	ErrInvalidCreditAmount = errors.New("credit amount must be greater than zero")
)

// DefaultBatchLifetime is the expiry applied to a batch loaded without an
// explicit expiry date.
const DefaultBatchLifetime = 365 * 24 * time.Hour

// CreditService owns the prepaid credit ledger: batch loading, expiry and
// FIFO consumption. It is the one genuinely shared mutable resource in the
// system; all consumption goes through the repository's transactional path.
type CreditService struct {
	creditRepo *repositories.CreditRepository
}

// NewCreditService creates a new credit service
func NewCreditService(creditRepo *repositories.CreditRepository) *CreditService {
	return &CreditService{creditRepo: creditRepo}
}

// AvailableCredits returns the live spendable balance. Expired batches
// contribute zero even before the cleanup job has run.
func (s *CreditService) AvailableCredits(ctx context.Context) (int, error) {
	return s.creditRepo.SumAvailable(ctx, time.Now())
}

// HasSufficient reports whether the balance covers amount
func (s *CreditService) HasSufficient(ctx context.Context, amount int) (bool, error) {
	available, err := s.creditRepo.SumAvailable(ctx, time.Now())
	if err != nil {
		return false, err
	}
	return available >= amount, nil
}

// Consume draws amount credits from the ledger oldest-batch-first.
// The reason string is audit text only; it is never parsed.
func (s *CreditService) Consume(ctx context.Context, amount int, reason string) error {
	if amount <= 0 {
		return ErrInvalidCreditAmount
	}

	_, remaining, err := s.creditRepo.ConsumeFIFO(ctx, amount, reason, time.Now())
	if err != nil {
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			return &domain.InsufficientCreditsError{Required: amount, Available: remaining}
		}
		return err
	}

	log.Printf("✅ Consumed %d credit(s): %s (remaining: %d)", amount, reason, remaining)
	return nil
}

// Refund loads a compensating batch after a downstream failure, so a
// consumed credit is returned without rewriting the append-only ledger.
func (s *CreditService) Refund(ctx context.Context, amount int, reason string) error {
	if amount <= 0 {
		return ErrInvalidCreditAmount
	}

	now := time.Now()
	batch := &models.CreditBatch{
		BatchAmount:     amount,
		RemainingAmount: amount,
		LoadDate:        now,
		ExpiryDate:      now.Add(DefaultBatchLifetime),
		Source:          models.CreditSourceRefund,
	}
	if err := s.creditRepo.Create(ctx, batch); err != nil {
		return err
	}

	log.Printf("↩️ Refunded %d credit(s): %s", amount, reason)
	return nil
}

// LoadBatch appends a new credit batch. Default expiry is one year from
// the load date.
func (s *CreditService) LoadBatch(ctx context.Context, amount int, expiry *time.Time, source string) (*models.CreditBatch, error) {
	if amount <= 0 {
		return nil, ErrInvalidCreditAmount
	}

	now := time.Now()
	expiryDate := now.Add(DefaultBatchLifetime)
	if expiry != nil {
		expiryDate = *expiry
	}

	batch := &models.CreditBatch{
		BatchAmount:     amount,
		RemainingAmount: amount,
		LoadDate:        now,
		ExpiryDate:      expiryDate,
		Source:          source,
	}
	if err := s.creditRepo.Create(ctx, batch); err != nil {
		return nil, err
	}

	log.Printf("✅ Loaded credit batch #%d: %d credit(s), expires %s", batch.ID, amount, expiryDate.Format("2006-01-02"))
	return batch, nil
}

// ExpireBatches zeroes every lapsed batch. Idempotent; safe to run on a
// schedule or repeatedly.
func (s *CreditService) ExpireBatches(ctx context.Context) (int64, error) {
	expired, err := s.creditRepo.ExpireBatches(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		log.Printf("🧹 Expired %d credit batch(es)", expired)
	}
	return expired, nil
}

// ExpiringWithin lists batches whose credit will lapse inside the window,
// soonest first, for proactive low-balance alerts
func (s *CreditService) ExpiringWithin(ctx context.Context, days int) ([]models.CreditBatch, error) {
	return s.creditRepo.ExpiringWithin(ctx, time.Now(), days)
}

// ListBatches lists the batch ledger (audit view)
func (s *CreditService) ListBatches(ctx context.Context, offset, limit int) ([]models.CreditBatch, int64, error) {
	return s.creditRepo.ListBatches(ctx, offset, limit)
}

// ListConsumptions lists the consumption audit trail
func (s *CreditService) ListConsumptions(ctx context.Context, offset, limit int) ([]models.CreditConsumption, int64, error) {
	return s.creditRepo.ListConsumptions(ctx, offset, limit)
}
