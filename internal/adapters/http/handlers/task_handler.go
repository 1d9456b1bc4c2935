package handlers

import (
	"errors"
	"strconv"
	"time"

	"declarehub/internal/core/domain"
	"declarehub/internal/core/services"
	"declarehub/internal/pkg/pagination"
	"declarehub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles declaration task management endpoints (back office)
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// IssueRequest represents a single task issuance request
type IssueRequest struct {
	EmployeeID uint   `json:"employee_id"`
	TemplateID uint   `json:"template_id"`
	DueDate    string `json:"due_date"`
}

// BulkIssueRequest represents a bulk issuance request. Empty employee_ids
// targets every active employee.
type BulkIssueRequest struct {
	EmployeeIDs []uint `json:"employee_ids"`
	TemplateID  uint   `json:"template_id"`
	DueDate     string `json:"due_date"`
}

// DueDateRequest represents a due date change request
type DueDateRequest struct {
	DueDate string `json:"due_date"`
}

// BulkDueDateRequest represents a bulk due date change request
type BulkDueDateRequest struct {
	TaskIDs []uint `json:"task_ids"`
	DueDate string `json:"due_date"`
}

// Issue handles single task issuance
// @Summary Issue declaration task
// @Description Issue a declaration task to one employee
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body IssueRequest true "Task data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /tasks [post]
func (h *TaskHandler) Issue(c *fiber.Ctx) error {
	var req IssueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.EmployeeID == 0 {
		return response.BadRequest(c, "Employee ID is required")
	}
	if req.TemplateID == 0 {
		return response.BadRequest(c, "Template ID is required")
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return response.BadRequest(c, "Invalid due date (use RFC3339 or YYYY-MM-DD)")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	input := &services.IssueInput{
		EmployeeID: req.EmployeeID,
		TemplateID: req.TemplateID,
		DueDate:    dueDate,
	}

	task, skipped, err := h.taskService.Issue(c.Context(), input, userID)
	if err != nil {
		return handleTaskError(c, err)
	}
	if skipped {
		return response.Success(c, "Employee already has an open task for this template", fiber.Map{
			"task":    task.ToResponse(),
			"skipped": true,
		})
	}

	return response.Created(c, "Task issued successfully", fiber.Map{
		"task": task.ToResponse(),
	})
}

// IssueBulk handles bulk task issuance
// @Summary Issue declaration tasks in bulk
// @Description Issue a declaration task to many employees; failures do not stop the run
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkIssueRequest true "Bulk task data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /tasks/bulk [post]
func (h *TaskHandler) IssueBulk(c *fiber.Ctx) error {
	var req BulkIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.TemplateID == 0 {
		return response.BadRequest(c, "Template ID is required")
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return response.BadRequest(c, "Invalid due date (use RFC3339 or YYYY-MM-DD)")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	input := &services.BulkIssueInput{
		EmployeeIDs: req.EmployeeIDs,
		TemplateID:  req.TemplateID,
		DueDate:     dueDate,
	}

	summary, err := h.taskService.IssueBulk(c.Context(), input, userID)
	if err != nil {
		return handleTaskError(c, err)
	}

	return response.Success(c, "Bulk issuance completed", fiber.Map{
		"summary": summary,
	})
}

// List handles task listing with filters
// @Summary List declaration tasks
// @Description List tasks filtered by status and employee
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status query string false "Task status filter"
// @Param employee_id query int false "Employee filter"
// @Success 200 {object} response.Response
// @Router /tasks [get]
func (h *TaskHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := c.Query("status")

	var employeeID *uint
	if raw := c.Query("employee_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid employee_id")
		}
		parsed := uint(id)
		employeeID = &parsed
	}

	tasks, total, err := h.taskService.List(c.Context(), status, employeeID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list tasks")
	}

	return response.Success(c, "Tasks retrieved successfully", pagination.NewResponse(tasks, params, total))
}

// GetByID handles task detail retrieval
// @Summary Get declaration task
// @Description Get a task by its ID
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	task, err := h.taskService.GetByID(c.Context(), taskID)
	if err != nil {
		return handleTaskError(c, err)
	}

	return response.Success(c, "Task retrieved successfully", fiber.Map{
		"task": task.ToResponse(),
	})
}

// ExtendDueDate handles a due date change for one task
// @Summary Extend task due date
// @Description Move a task's due date; an overdue task with a future date returns to outstanding
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param body body DueDateRequest true "New due date"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /tasks/{id}/due-date [put]
func (h *TaskHandler) ExtendDueDate(c *fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	var req DueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return response.BadRequest(c, "Invalid due date (use RFC3339 or YYYY-MM-DD)")
	}

	task, err := h.taskService.ExtendDueDate(c.Context(), taskID, dueDate)
	if err != nil {
		return handleTaskError(c, err)
	}

	return response.Success(c, "Due date updated successfully", fiber.Map{
		"task": task.ToResponse(),
	})
}

// ExtendDueDateBulk handles a due date change for many tasks
// @Summary Extend due dates in bulk
// @Description Move the due date of many tasks; failures do not stop the run
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkDueDateRequest true "Task IDs and new due date"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /tasks/due-date [put]
func (h *TaskHandler) ExtendDueDateBulk(c *fiber.Ctx) error {
	var req BulkDueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.TaskIDs) == 0 {
		return response.BadRequest(c, "Task IDs are required")
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return response.BadRequest(c, "Invalid due date (use RFC3339 or YYYY-MM-DD)")
	}

	summary, err := h.taskService.ExtendDueDateBulk(c.Context(), req.TaskIDs, dueDate)
	if err != nil {
		return handleTaskError(c, err)
	}

	return response.Success(c, "Bulk due date update completed", fiber.Map{
		"summary": summary,
	})
}

// Cancel handles task cancellation
// @Summary Cancel declaration task
// @Description Cancel an outstanding or overdue task and void its link
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /tasks/{id}/cancel [put]
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	task, err := h.taskService.Cancel(c.Context(), taskID)
	if err != nil {
		return handleTaskError(c, err)
	}

	return response.Success(c, "Task cancelled successfully", fiber.Map{
		"task": task.ToResponse(),
	})
}

// ResendLink handles link re-delivery with a fresh token
// @Summary Resend declaration link
// @Description Rotate the task's access token and resend the link
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /tasks/{id}/resend-link [post]
func (h *TaskHandler) ResendLink(c *fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid task ID")
	}

	task, err := h.taskService.ResendLink(c.Context(), taskID)
	if err != nil {
		return handleTaskError(c, err)
	}

	return response.Success(c, "Link resent successfully", fiber.Map{
		"task": task.ToResponse(),
	})
}

// handleTaskError maps task domain errors to HTTP responses
func handleTaskError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return response.NotFound(c, "Task not found")
	case errors.Is(err, domain.ErrEmployeeNotFound):
		return response.NotFound(c, "Employee not found")
	case errors.Is(err, domain.ErrTemplateNotActive):
		return response.NotFound(c, "Template not found or not active")
	case errors.Is(err, domain.ErrDueDateInPast):
		return response.BadRequest(c, "Due date must be in the future")
	case errors.Is(err, domain.ErrTaskNotCancellable):
		return response.Conflict(c, "Task can no longer be cancelled")
	case errors.Is(err, domain.ErrTaskNotOpen):
		return response.Conflict(c, "Task is no longer open")
	case errors.Is(err, domain.ErrLicenseExpired):
		return response.ErrorWithCode(c, fiber.StatusForbidden, "LICENSE_EXPIRED", "License has expired")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}

// parseIDParam parses an unsigned integer path parameter
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// parseDueDate accepts RFC3339 or a bare date
func parseDueDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("due date required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	// Bare dates mean end of that day
	return t.Add(24*time.Hour - time.Second), nil
}
