package handlers

import (
	"strings"

	"declarehub/internal/adapters/persistence/models"
	"declarehub/internal/adapters/persistence/repositories"
	"declarehub/internal/pkg/pagination"
	"declarehub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DirectoryHandler handles employee directory and template master data
type DirectoryHandler struct {
	employeeRepo repositories.EmployeeRepository
	templateRepo repositories.TemplateRepository
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(employeeRepo repositories.EmployeeRepository, templateRepo repositories.TemplateRepository) *DirectoryHandler {
	return &DirectoryHandler{
		employeeRepo: employeeRepo,
		templateRepo: templateRepo,
	}
}

// EmployeeRequest represents an employee create request
type EmployeeRequest struct {
	EmpNo     string `json:"emp_no"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	DeptName  string `json:"dept_name"`
	ManagerID *uint  `json:"manager_id"`
}

// TemplateRequest represents a template create request
type TemplateRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FormSchema  string `json:"form_schema"`
}

// ============================================================
// Employees
// ============================================================

// ListEmployees lists employees
// @Summary List employees
// @Description Paginated employee directory
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /employees [get]
func (h *DirectoryHandler) ListEmployees(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	employees, total, err := h.employeeRepo.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list employees")
	}

	return response.Success(c, "Employees retrieved", pagination.NewResponse(employees, params, total))
}

// GetEmployee gets one employee with manager
// @Summary Get employee
// @Description Get an employee by ID
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /employees/{id} [get]
func (h *DirectoryHandler) GetEmployee(c *fiber.Ctx) error {
	employeeID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid employee ID")
	}

	employee, err := h.employeeRepo.GetByID(c.Context(), employeeID)
	if err != nil {
		return response.NotFound(c, "Employee not found")
	}

	return response.Success(c, "Employee retrieved", fiber.Map{
		"employee": employee,
	})
}

// CreateEmployee creates an employee record
// @Summary Create employee
// @Description Add an employee to the directory
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body EmployeeRequest true "Employee data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /employees [post]
func (h *DirectoryHandler) CreateEmployee(c *fiber.Ctx) error {
	var req EmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.EmpNo) == "" {
		return response.BadRequest(c, "Employee number is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return response.BadRequest(c, "Full name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return response.BadRequest(c, "Email is required")
	}

	if existing, err := h.employeeRepo.GetByEmpNo(c.Context(), strings.TrimSpace(req.EmpNo)); err == nil && existing != nil {
		return response.Conflict(c, "Employee number already exists")
	}

	employee := &models.Employee{
		EmpNo:     strings.TrimSpace(req.EmpNo),
		FullName:  strings.TrimSpace(req.FullName),
		Email:     strings.TrimSpace(req.Email),
		DeptName:  strings.TrimSpace(req.DeptName),
		ManagerID: req.ManagerID,
		IsActive:  true,
	}
	if err := h.employeeRepo.Create(c.Context(), employee); err != nil {
		return response.InternalServerError(c, "Failed to create employee")
	}

	return response.Created(c, "Employee created", fiber.Map{
		"employee": employee,
	})
}

// ============================================================
// Templates
// ============================================================

// ListTemplates lists declaration templates
// @Summary List templates
// @Description All declaration templates
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /templates [get]
func (h *DirectoryHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.templateRepo.List(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list templates")
	}

	return response.Success(c, "Templates retrieved", fiber.Map{
		"templates": templates,
	})
}

// CreateTemplate creates a declaration template
// @Summary Create template
// @Description Add a declaration template
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body TemplateRequest true "Template data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /templates [post]
func (h *DirectoryHandler) CreateTemplate(c *fiber.Ctx) error {
	var req TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Code) == "" {
		return response.BadRequest(c, "Template code is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return response.BadRequest(c, "Template name is required")
	}

	template := &models.DeclarationTemplate{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		FormSchema:  req.FormSchema,
		IsActive:    true,
	}
	if err := h.templateRepo.Create(c.Context(), template); err != nil {
		return response.InternalServerError(c, "Failed to create template")
	}

	return response.Created(c, "Template created", fiber.Map{
		"template": template,
	})
}
