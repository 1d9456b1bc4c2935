package repositories

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"declarehub/internal/adapters/persistence/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
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

	// A single connection keeps the private in-memory database alive and
	// serializes access the way SQLite expects
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func loadBatch(t *testing.T, repo *CreditRepository, amount int, loadDate, expiry time.Time) *models.CreditBatch {
	t.Helper()
	batch := &models.CreditBatch{
		BatchAmount:     amount,
		RemainingAmount: amount,
		LoadDate:        loadDate,
		ExpiryDate:      expiry,
		Source:          models.CreditSourceManual,
	}
	require.NoError(t, repo.Create(context.Background(), batch))
	return batch
}

func TestConsumeFIFO_OldestBatchFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()
	now := time.Now()

	older := loadBatch(t, repo, 3, now.Add(-48*time.Hour), now.Add(30*24*time.Hour))
	newer := loadBatch(t, repo, 5, now.Add(-1*time.Hour), now.Add(60*24*time.Hour))

	// 4 credits: drain the older batch fully, then 1 from the newer
	consumption, remaining, err := repo.ConsumeFIFO(ctx, 4, "test", now)
	require.NoError(t, err)
	assert.Equal(t, 4, consumption.Amount)
	assert.Equal(t, 4, remaining)

	var breakdown []struct {
		BatchID uint `json:"batch_id"`
		Amount  int  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(consumption.BatchBreakdown), &breakdown))
	require.Len(t, breakdown, 2)
	assert.Equal(t, older.ID, breakdown[0].BatchID)
	assert.Equal(t, 3, breakdown[0].Amount)
	assert.Equal(t, newer.ID, breakdown[1].BatchID)
	assert.Equal(t, 1, breakdown[1].Amount)

	var reloaded models.CreditBatch
	require.NoError(t, db.First(&reloaded, older.ID).Error)
	assert.Equal(t, 0, reloaded.RemainingAmount)
	reloaded = models.CreditBatch{}
	require.NoError(t, db.First(&reloaded, newer.ID).Error)
	assert.Equal(t, 4, reloaded.RemainingAmount)
}

func TestConsumeFIFO_SkipsExpiredBatches(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()
	now := time.Now()

	expired := loadBatch(t, repo, 10, now.Add(-48*time.Hour), now.Add(-1*time.Hour))
	live := loadBatch(t, repo, 2, now.Add(-1*time.Hour), now.Add(24*time.Hour))

	consumption, remaining, err := repo.ConsumeFIFO(ctx, 2, "test", now)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	var breakdown []struct {
		BatchID uint `json:"batch_id"`
		Amount  int  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(consumption.BatchBreakdown), &breakdown))
	require.Len(t, breakdown, 1)
	assert.Equal(t, live.ID, breakdown[0].BatchID)

	// Expired credit is never spendable, even before cleanup runs
	var untouched models.CreditBatch
	require.NoError(t, db.First(&untouched, expired.ID).Error)
	assert.Equal(t, 10, untouched.RemainingAmount)
}

func TestConsumeFIFO_InsufficientBalanceMutatesNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()
	now := time.Now()

	a := loadBatch(t, repo, 2, now.Add(-2*time.Hour), now.Add(24*time.Hour))
	b := loadBatch(t, repo, 1, now.Add(-1*time.Hour), now.Add(24*time.Hour))

	_, available, err := repo.ConsumeFIFO(ctx, 5, "test", now)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 3, available)

	// All-or-nothing: no partial draw on refusal
	var reloaded models.CreditBatch
	require.NoError(t, db.First(&reloaded, a.ID).Error)
	assert.Equal(t, 2, reloaded.RemainingAmount)
	reloaded = models.CreditBatch{}
	require.NoError(t, db.First(&reloaded, b.ID).Error)
	assert.Equal(t, 1, reloaded.RemainingAmount)

	var count int64
	require.NoError(t, db.Model(&models.CreditConsumption{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConsumeFIFO_ZeroBalance(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)

	_, available, err := repo.ConsumeFIFO(context.Background(), 1, "test", time.Now())
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, available)
}

func TestConsumeFIFO_ConcurrentConsumersNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	now := time.Now()

	loadBatch(t, repo, 10, now.Add(-1*time.Hour), now.Add(24*time.Hour))

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.ConsumeFIFO(context.Background(), 1, "concurrent", now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	refused := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case err == ErrInsufficientBalance:
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly the loaded amount can succeed, no matter the interleaving
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, refused)

	total, err := repo.SumAvailable(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSumAvailable_ExcludesExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	now := time.Now()

	loadBatch(t, repo, 5, now.Add(-2*time.Hour), now.Add(24*time.Hour))
	loadBatch(t, repo, 7, now.Add(-48*time.Hour), now.Add(-1*time.Minute))

	total, err := repo.SumAvailable(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestExpireBatches_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	ctx := context.Background()
	now := time.Now()

	loadBatch(t, repo, 5, now.Add(-48*time.Hour), now.Add(-1*time.Hour))
	loadBatch(t, repo, 3, now.Add(-1*time.Hour), now.Add(24*time.Hour))

	expired, err := repo.ExpireBatches(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	// Second run finds nothing left to zero
	expired, err = repo.ExpireBatches(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestExpiringWithin_WindowAndOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCreditRepository(db)
	now := time.Now()

	soon := loadBatch(t, repo, 1, now, now.Add(5*24*time.Hour))
	sooner := loadBatch(t, repo, 2, now, now.Add(2*24*time.Hour))
	loadBatch(t, repo, 3, now, now.Add(90*24*time.Hour)) // outside window

	batches, err := repo.ExpiringWithin(context.Background(), now, 30)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, sooner.ID, batches[0].ID)
	assert.Equal(t, soon.ID, batches[1].ID)
}
