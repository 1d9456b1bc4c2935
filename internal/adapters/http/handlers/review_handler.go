package handlers

import (
	"errors"

	"declarehub/internal/core/domain"
	"declarehub/internal/core/services"
	"declarehub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReviewHandler handles the manager review endpoints
type ReviewHandler struct {
	reviewService       *services.ReviewService
	submissionService   *services.SubmissionService
	verificationService *services.VerificationService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(
	reviewService *services.ReviewService,
	submissionService *services.SubmissionService,
	verificationService *services.VerificationService,
) *ReviewHandler {
	return &ReviewHandler{
		reviewService:       reviewService,
		submissionService:   submissionService,
		verificationService: verificationService,
	}
}

// ReviewRequest represents an approve/reject request body
type ReviewRequest struct {
	Notes     string `json:"notes"`
	Signature string `json:"signature"`
}

// VerifyRequest represents a verification run request
type VerifyRequest struct {
	Type string `json:"type"`
}

// reviewerEmployeeID pulls the caller's employee identity from the
// session. Users without a directory link cannot review.
func reviewerEmployeeID(c *fiber.Ctx) (uint, bool) {
	employeeID, ok := c.Locals("employeeID").(*uint)
	if !ok || employeeID == nil {
		return 0, false
	}
	return *employeeID, true
}

// Pending lists submissions awaiting the caller's review
// @Summary Pending reviews
// @Description List submissions assigned to the caller and awaiting review
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /review/pending [get]
func (h *ReviewHandler) Pending(c *fiber.Ctx) error {
	employeeID, ok := reviewerEmployeeID(c)
	if !ok {
		return response.Forbidden(c, "No employee record linked to this account")
	}

	submissions, err := h.reviewService.PendingSubmissions(c.Context(), employeeID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list pending reviews")
	}

	return response.Success(c, "Pending reviews retrieved", fiber.Map{
		"submissions": submissions,
		"count":       len(submissions),
	})
}

// Badge returns the caller's pending review count
// @Summary Review badge
// @Description Count of submissions awaiting the caller's review
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /review/badge [get]
func (h *ReviewHandler) Badge(c *fiber.Ctx) error {
	employeeID, ok := reviewerEmployeeID(c)
	if !ok {
		return response.Forbidden(c, "No employee record linked to this account")
	}

	taskIDs, err := h.reviewService.PendingReviewTaskIDs(c.Context(), employeeID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count pending reviews")
	}

	return response.Success(c, "Badge retrieved", fiber.Map{
		"count":    len(taskIDs),
		"task_ids": taskIDs,
	})
}

// GetSubmission returns one submission with its task context
// @Summary Get submission
// @Description Get a submission by ID
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /submissions/{id} [get]
func (h *ReviewHandler) GetSubmission(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID")
	}

	submission, err := h.submissionService.GetByID(c.Context(), submissionID)
	if err != nil {
		return response.NotFound(c, "Submission not found")
	}

	return response.Success(c, "Submission retrieved", fiber.Map{
		"submission": submission,
	})
}

// Chain returns the amendment chain for a submission
// @Summary Get amendment chain
// @Description Get a submission and every earlier version it amends
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /submissions/{id}/chain [get]
func (h *ReviewHandler) Chain(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID")
	}

	chain, err := h.submissionService.AmendmentChain(c.Context(), submissionID)
	if err != nil {
		return response.NotFound(c, "Submission not found")
	}

	return response.Success(c, "Amendment chain retrieved", fiber.Map{
		"chain": chain,
	})
}

// Approve handles submission approval
// @Summary Approve submission
// @Description Approve a submission; the task closes as reviewed
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param body body ReviewRequest true "Reviewer notes and signature"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /review/{id}/approve [put]
func (h *ReviewHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, domain.ReviewActionApprove)
}

// Reject handles submission rejection
// @Summary Reject submission
// @Description Send a submission back for revision; notes required
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param body body ReviewRequest true "Reviewer notes and signature"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /review/{id}/reject [put]
func (h *ReviewHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, domain.ReviewActionReject)
}

func (h *ReviewHandler) review(c *fiber.Ctx, action domain.ReviewAction) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID")
	}

	employeeID, ok := reviewerEmployeeID(c)
	if !ok {
		return response.Forbidden(c, "No employee record linked to this account")
	}

	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.ReviewInput{
		Action:    action,
		Notes:     req.Notes,
		Signature: req.Signature,
	}

	result, err := h.submissionService.Review(c.Context(), submissionID, employeeID, input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSubmissionNotFound):
			return response.NotFound(c, "Submission not found")
		case errors.Is(err, domain.ErrNotAssignedReviewer):
			return response.Forbidden(c, "Only the assigned reviewer may act on this submission")
		case errors.Is(err, domain.ErrNotReviewable):
			return response.Conflict(c, "Submission is not awaiting review")
		case errors.Is(err, domain.ErrNotesRequired):
			return response.BadRequest(c, "Revision notes are required when rejecting")
		default:
			return response.InternalServerError(c, "Failed to review submission")
		}
	}

	if result.AlreadyProcessed {
		return response.Success(c, "Submission already reviewed", fiber.Map{
			"submission": result.Submission,
		})
	}

	message := "Submission approved"
	if action == domain.ReviewActionReject {
		message = "Submission sent back for revision"
	}
	return response.Success(c, message, fiber.Map{
		"submission": result.Submission,
	})
}

// Verify handles a verification run against a submission
// @Summary Run verification
// @Description Run an external check against the submission's employee; consumes one credit
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Param body body VerifyRequest true "Verification type"
// @Success 201 {object} response.Response
// @Failure 402 {object} response.Response
// @Router /submissions/{id}/verify [post]
func (h *ReviewHandler) Verify(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID")
	}

	employeeID, ok := reviewerEmployeeID(c)
	if !ok {
		return response.Forbidden(c, "No employee record linked to this account")
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	attachment, err := h.verificationService.RunCheck(c.Context(), submissionID, domain.VerificationType(req.Type), employeeID)
	if err != nil {
		var insufficient *domain.InsufficientCreditsError
		switch {
		case errors.As(err, &insufficient):
			return response.ErrorWithData(c, fiber.StatusPaymentRequired, "INSUFFICIENT_CREDITS",
				"Insufficient credits to run this verification", fiber.Map{
					"required":  insufficient.Required,
					"available": insufficient.Available,
				})
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Unknown verification type")
		case errors.Is(err, domain.ErrSubmissionNotFound):
			return response.NotFound(c, "Submission not found")
		case errors.Is(err, domain.ErrLicenseExpired):
			return response.ErrorWithCode(c, fiber.StatusForbidden, "LICENSE_EXPIRED", "License has expired")
		default:
			return response.InternalServerError(c, "Verification failed")
		}
	}

	return response.Created(c, "Verification completed", fiber.Map{
		"verification": attachment,
	})
}

// Verifications lists verification attachments for a submission
// @Summary List verifications
// @Description List verification attachments for a submission
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submission ID"
// @Success 200 {object} response.Response
// @Router /submissions/{id}/verifications [get]
func (h *ReviewHandler) Verifications(c *fiber.Ctx) error {
	submissionID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission ID")
	}

	attachments, err := h.verificationService.ListForSubmission(c.Context(), submissionID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list verifications")
	}

	return response.Success(c, "Verifications retrieved", fiber.Map{
		"verifications": attachments,
	})
}
