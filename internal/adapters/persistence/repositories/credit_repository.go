package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"declarehub/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientBalance is returned by ConsumeFIFO when the re-checked
// balance inside the transaction cannot cover the requested amount.
var ErrInsufficientBalance = errors.New("insufficient credit balance")

// CreditRepository handles credit batch and consumption data access
type CreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new credit repository
func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Create appends a new credit batch
func (r *CreditRepository) Create(ctx context.Context, batch *models.CreditBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// SumAvailable sums remaining_amount over non-expired batches.
// Computed live over persisted rows so expiry is reflected immediately,
// without depending on the cleanup job having run.
func (r *CreditRepository) SumAvailable(ctx context.Context, now time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.CreditBatch{}).
		Where("expiry_date > ?", now).
		Where("remaining_amount > ?", 0).
		Select("COALESCE(SUM(remaining_amount), 0)").
		Scan(&total).Error
	return int(total), err
}

// batchDecrement records one batch's share of a consumption, stored as the
// JSON breakdown on the audit row.
type batchDecrement struct {
	BatchID uint `json:"batch_id"`
	Amount  int  `json:"amount"`
}

// ConsumeFIFO atomically consumes amount credits oldest-batch-first.
//
// The sufficiency check and the per-batch decrements run inside a single
// transaction with the candidate rows locked FOR UPDATE, so two concurrent
// consumers cannot both observe sufficient balance and jointly overdraw.
// On shortfall it returns the available total with ErrInsufficientBalance
// and no batch is mutated.
func (r *CreditRepository) ConsumeFIFO(ctx context.Context, amount int, reason string, now time.Time) (*models.CreditConsumption, int, error) {
	var consumption *models.CreditConsumption
	var available int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "mysql" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var batches []models.CreditBatch
		if err := query.
			Where("expiry_date > ?", now).
			Where("remaining_amount > ?", 0).
			Order("load_date ASC").
			Find(&batches).Error; err != nil {
			return err
		}

		available = 0
		for _, b := range batches {
			available += b.RemainingAmount
		}
		if available < amount {
			return ErrInsufficientBalance
		}

		remaining := amount
		var breakdown []batchDecrement
		for _, b := range batches {
			if remaining == 0 {
				break
			}
			take := b.RemainingAmount
			if take > remaining {
				take = remaining
			}
			if err := tx.
				Model(&models.CreditBatch{}).
				Where("id = ?", b.ID).
				Update("remaining_amount", b.RemainingAmount-take).Error; err != nil {
				return err
			}
			breakdown = append(breakdown, batchDecrement{BatchID: b.ID, Amount: take})
			remaining -= take
		}

		breakdownJSON, err := json.Marshal(breakdown)
		if err != nil {
			return err
		}
		consumption = &models.CreditConsumption{
			Amount:         amount,
			Reason:         reason,
			BatchBreakdown: string(breakdownJSON),
		}
		return tx.Create(consumption).Error
	})
	if err != nil {
		return nil, available, err
	}
	return consumption, available - amount, nil
}

// ExpireBatches zeroes remaining_amount on every lapsed batch. Idempotent.
func (r *CreditRepository) ExpireBatches(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CreditBatch{}).
		Where("expiry_date < ?", now).
		Where("remaining_amount > ?", 0).
		Update("remaining_amount", 0)
	return result.RowsAffected, result.Error
}

// ExpiringWithin lists non-expired batches with remaining credit whose
// expiry falls inside the window, soonest first
func (r *CreditRepository) ExpiringWithin(ctx context.Context, now time.Time, days int) ([]models.CreditBatch, error) {
	cutoff := now.AddDate(0, 0, days)
	var batches []models.CreditBatch
	err := r.db.WithContext(ctx).
		Where("expiry_date > ?", now).
		Where("expiry_date <= ?", cutoff).
		Where("remaining_amount > ?", 0).
		Order("expiry_date ASC").
		Find(&batches).Error
	return batches, err
}

// ListBatches lists all batches, newest load first (audit view)
func (r *CreditRepository) ListBatches(ctx context.Context, offset, limit int) ([]models.CreditBatch, int64, error) {
	var batches []models.CreditBatch
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.CreditBatch{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("load_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&batches).Error

	return batches, total, err
}

// ListConsumptions lists consumption audit rows, newest first
func (r *CreditRepository) ListConsumptions(ctx context.Context, offset, limit int) ([]models.CreditConsumption, int64, error) {
	var consumptions []models.CreditConsumption
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.CreditConsumption{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&consumptions).Error

	return consumptions, total, err
}
