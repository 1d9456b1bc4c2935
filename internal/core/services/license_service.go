package services

import (
	"context"
	"log"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/config"
	"declarehub/internal/core/domain"
)

// LicenseService is the default LicenseChecker. It works off the locally
// cached entitlement from config; talking to the license server is out of
// scope beyond the validity result.
type LicenseService struct {
	cfg           *config.Config
	creditService *CreditService
}

// NewLicenseService creates a new license service
func NewLicenseService(cfg *config.Config, creditService *CreditService) *LicenseService {
	return &LicenseService{
		cfg:           cfg,
		creditService: creditService,
	}
}

// IsValid reports whether the license is currently valid
func (s *LicenseService) IsValid() bool {
	return time.Now().Before(s.cfg.License.ExpiryDate)
}

// ExpiryDate returns the license expiry
func (s *LicenseService) ExpiryDate() time.Time {
	return s.cfg.License.ExpiryDate
}

// SyncEntitlement loads the entitled credit batch onto the ledger.
// Called on manual sync; the batch expires with the license.
func (s *LicenseService) SyncEntitlement(ctx context.Context) error {
	if !s.IsValid() {
		log.Printf("⚠️ Entitlement sync refused: license expired %s", s.cfg.License.ExpiryDate.Format("2006-01-02"))
		return domain.ErrLicenseExpired
	}

	expiry := s.cfg.License.ExpiryDate
	_, err := s.creditService.LoadBatch(ctx, s.cfg.License.SyncAmount, &expiry, models.CreditSourceLicenseSync)
	return err
}
