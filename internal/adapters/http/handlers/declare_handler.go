package handlers

import (
	"errors"

	"declarehub/internal/core/domain"
	"declarehub/internal/core/services"
	"declarehub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DeclareHandler handles the public token-addressed declaration endpoints.
// No session auth here; possession of a live access token is the only
// credential, so every failure collapses to the same 404.
type DeclareHandler struct {
	taskService       *services.TaskService
	submissionService *services.SubmissionService
}

// NewDeclareHandler creates a new declare handler
func NewDeclareHandler(taskService *services.TaskService, submissionService *services.SubmissionService) *DeclareHandler {
	return &DeclareHandler{
		taskService:       taskService,
		submissionService: submissionService,
	}
}

// DraftRequest represents a draft save request
type DraftRequest struct {
	FormData string `json:"form_data"`
}

// SubmitRequest represents a final submission request
type SubmitRequest struct {
	FormData           string `json:"form_data"`
	DigitalAttestation string `json:"digital_attestation"`
}

// Resolve handles form resolution for an access token
// @Summary Resolve declaration link
// @Description Resolve an access token to its task and form definition
// @Tags Declare
// @Accept json
// @Produce json
// @Param token path string true "Access token"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /declare/{token} [get]
func (h *DeclareHandler) Resolve(c *fiber.Ctx) error {
	task, err := h.taskService.ResolveToken(c.Context(), c.Params("token"))
	if err != nil {
		return declareNotFound(c)
	}

	data := fiber.Map{
		"task": task.ToResponse(),
	}
	if task.Template != nil {
		data["form_schema"] = task.Template.FormSchema
		data["form_description"] = task.Template.Description
	}
	if draft, err := h.submissionService.ActiveByTaskID(c.Context(), task.ID); err == nil && draft != nil {
		data["submission"] = draft
	}

	return response.Success(c, "Declaration form resolved", data)
}

// SaveDraft handles draft saving
// @Summary Save declaration draft
// @Description Save form data without submitting; repeatable
// @Tags Declare
// @Accept json
// @Produce json
// @Param token path string true "Access token"
// @Param body body DraftRequest true "Draft form data"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /declare/{token}/draft [put]
func (h *DeclareHandler) SaveDraft(c *fiber.Ctx) error {
	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	draft, err := h.submissionService.SaveDraft(c.Context(), c.Params("token"), req.FormData)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenInvalidOrExpired), errors.Is(err, domain.ErrTaskNotOpen):
			return declareNotFound(c)
		default:
			return response.InternalServerError(c, "Failed to save draft")
		}
	}

	return response.Success(c, "Draft saved", fiber.Map{
		"submission": draft,
	})
}

// Submit handles final submission
// @Summary Submit declaration
// @Description Finalise the declaration; consumes the access token
// @Tags Declare
// @Accept json
// @Produce json
// @Param token path string true "Access token"
// @Param body body SubmitRequest true "Form data and attestation"
// @Success 200 {object} response.Response
// @Failure 402 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /declare/{token}/submit [post]
func (h *DeclareHandler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.submissionService.Submit(c.Context(), c.Params("token"), req.FormData, req.DigitalAttestation)
	if err != nil {
		var insufficient *domain.InsufficientCreditsError
		switch {
		case errors.As(err, &insufficient):
			return response.ErrorWithData(c, fiber.StatusPaymentRequired, "INSUFFICIENT_CREDITS",
				"Insufficient credits to accept this submission", fiber.Map{
					"required":  insufficient.Required,
					"available": insufficient.Available,
				})
		case errors.Is(err, domain.ErrAttestationRequired):
			return response.BadRequest(c, "Digital attestation is required")
		case errors.Is(err, domain.ErrLicenseExpired):
			return response.ErrorWithCode(c, fiber.StatusForbidden, "LICENSE_EXPIRED", "License has expired")
		case errors.Is(err, domain.ErrTokenInvalidOrExpired), errors.Is(err, domain.ErrTaskNotOpen):
			return declareNotFound(c)
		default:
			return response.InternalServerError(c, "Failed to submit declaration")
		}
	}

	if result.AlreadyProcessed {
		return response.Success(c, "Declaration already submitted", fiber.Map{
			"submission": result.Submission,
		})
	}

	return response.Created(c, "Declaration submitted successfully", fiber.Map{
		"submission": result.Submission,
	})
}

// declareNotFound is the uniform refusal for the public surface. Unknown,
// expired and consumed tokens are indistinguishable from outside.
func declareNotFound(c *fiber.Ctx) error {
	return response.NotFound(c, "This link is invalid or has expired")
}
