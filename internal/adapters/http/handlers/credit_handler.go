package handlers

import (
	"errors"
	"time"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/core/domain"
	"declarehub/internal/core/services"
	"declarehub/internal/pkg/pagination"
	"declarehub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CreditHandler handles credit ledger administration endpoints
type CreditHandler struct {
	creditService *services.CreditService
	license       services.LicenseChecker
}

// NewCreditHandler creates a new credit handler
func NewCreditHandler(creditService *services.CreditService, license services.LicenseChecker) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
		license:       license,
	}
}

// LoadRequest represents a manual credit load request
type LoadRequest struct {
	Amount     int    `json:"amount"`
	ExpiryDate string `json:"expiry_date"`
}

// Balance returns the live available credit balance
// @Summary Credit balance
// @Description Sum of unexpired remaining credits
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /credits/balance [get]
func (h *CreditHandler) Balance(c *fiber.Ctx) error {
	available, err := h.creditService.AvailableCredits(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to read credit balance")
	}

	return response.Success(c, "Balance retrieved", fiber.Map{
		"available": available,
	})
}

// Load handles a manual credit batch load
// @Summary Load credits
// @Description Load a new credit batch with an optional expiry date
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body LoadRequest true "Amount and optional expiry"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /credits/load [post]
func (h *CreditHandler) Load(c *fiber.Ctx) error {
	var req LoadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Amount <= 0 {
		return response.BadRequest(c, "Amount must be positive")
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return response.BadRequest(c, "Invalid expiry date (use YYYY-MM-DD)")
		}
		if !parsed.After(time.Now()) {
			return response.BadRequest(c, "Expiry date must be in the future")
		}
		expiry = &parsed
	}

	batch, err := h.creditService.LoadBatch(c.Context(), req.Amount, expiry, models.CreditSourceManual)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCreditAmount) {
			return response.BadRequest(c, "Amount must be positive")
		}
		return response.InternalServerError(c, "Failed to load credits")
	}

	return response.Created(c, "Credits loaded successfully", fiber.Map{
		"batch": batch,
	})
}

// Expiring lists batches expiring within the alert window
// @Summary Expiring credits
// @Description List credit batches expiring within the given number of days
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} response.Response
// @Router /credits/expiring [get]
func (h *CreditHandler) Expiring(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}

	batches, err := h.creditService.ExpiringWithin(c.Context(), days)
	if err != nil {
		return response.InternalServerError(c, "Failed to list expiring credits")
	}

	total := 0
	for _, b := range batches {
		total += b.RemainingAmount
	}

	return response.Success(c, "Expiring credits retrieved", fiber.Map{
		"batches":        batches,
		"expiring_total": total,
		"window_days":    days,
	})
}

// History returns the ledger audit trail
// @Summary Credit history
// @Description Paginated batches and consumption events
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /credits/history [get]
func (h *CreditHandler) History(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	switch c.Query("kind", "consumptions") {
	case "batches":
		batches, total, err := h.creditService.ListBatches(c.Context(), params.Offset, params.Limit)
		if err != nil {
			return response.InternalServerError(c, "Failed to list credit batches")
		}
		return response.Success(c, "Credit batches retrieved", pagination.NewResponse(batches, params, total))
	case "consumptions":
		consumptions, total, err := h.creditService.ListConsumptions(c.Context(), params.Offset, params.Limit)
		if err != nil {
			return response.InternalServerError(c, "Failed to list credit consumptions")
		}
		return response.Success(c, "Credit consumptions retrieved", pagination.NewResponse(consumptions, params, total))
	default:
		return response.BadRequest(c, "kind must be 'batches' or 'consumptions'")
	}
}

// Sync loads the license entitlement batch
// @Summary Sync license credits
// @Description Load the license entitlement as a credit batch expiring with the license
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /credits/sync [post]
func (h *CreditHandler) Sync(c *fiber.Ctx) error {
	if err := h.license.SyncEntitlement(c.Context()); err != nil {
		if errors.Is(err, domain.ErrLicenseExpired) {
			return response.ErrorWithCode(c, fiber.StatusForbidden, "LICENSE_EXPIRED", "License has expired")
		}
		return response.InternalServerError(c, "Failed to sync license credits")
	}

	available, err := h.creditService.AvailableCredits(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to read credit balance")
	}

	return response.Success(c, "License credits synced", fiber.Map{
		"available": available,
	})
}
