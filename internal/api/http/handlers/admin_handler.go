package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AdminHandler exposes configuration, oversight and on-demand job runs.
type AdminHandler struct {
	complaints        *service.ComplaintService
	escalations       *service.EscalationService
	assignment        *service.AssignmentService
	maintenance       *service.MaintenanceService
	sla               *service.SLAService
	authService       *service.AuthService
	metrics           *observability.Metrics
	escalateThreshold time.Duration
}

// AdminDependencies bundles collaborators.
type AdminDependencies struct {
	Complaints        *service.ComplaintService
	Escalations       *service.EscalationService
	Assignment        *service.AssignmentService
	Maintenance       *service.MaintenanceService
	SLA               *service.SLAService
	Auth              *service.AuthService
	Metrics           *observability.Metrics
	EscalateThreshold time.Duration
}

// NewAdminHandler constructs handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{
		complaints:        deps.Complaints,
		escalations:       deps.Escalations,
		assignment:        deps.Assignment,
		maintenance:       deps.Maintenance,
		sla:               deps.SLA,
		authService:       deps.Auth,
		metrics:           deps.Metrics,
		escalateThreshold: deps.EscalateThreshold,
	}
}

// Dashboard GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	overview, err := h.maintenance.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": overview})
}

// ListComplaints GET /admin/complaints.
func (h *AdminHandler) ListComplaints(c *fiber.Ctx) error {
	complaints, err := h.complaints.ListComplaints(c.UserContext(), parseComplaintQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// RunBreachScan POST /admin/jobs/breach-scan.
func (h *AdminHandler) RunBreachScan(c *fiber.Ctx) error {
	report, err := h.maintenance.ScanSLABreaches(c.UserContext())
	if err != nil {
		return err
	}
	h.metrics.RecordJobRun("breach_scan", report.Failed)
	return c.JSON(fiber.Map{"data": report})
}

// RunAutoEscalate POST /admin/jobs/auto-escalate.
func (h *AdminHandler) RunAutoEscalate(c *fiber.Ctx) error {
	report, err := h.maintenance.AutoEscalateOverdue(c.UserContext(), h.escalateThreshold)
	if err != nil {
		return err
	}
	h.metrics.RecordJobRun("auto_escalate", report.Failed)
	return c.JSON(fiber.Map{"data": report})
}

// RunAssignment POST /admin/jobs/assign.
func (h *AdminHandler) RunAssignment(c *fiber.Ctx) error {
	report, err := h.assignment.AssignPendingComplaints(c.UserContext())
	if err != nil {
		return err
	}
	h.metrics.RecordJobRun("assignment", report.Failed)
	return c.JSON(fiber.Map{"data": report})
}

// RunDailyStats POST /admin/jobs/daily-stats.
func (h *AdminHandler) RunDailyStats(c *fiber.Ctx) error {
	stats, err := h.maintenance.GenerateDailyStats(c.UserContext())
	if err != nil {
		return err
	}
	h.metrics.RecordJobRun("daily_stats", 0)
	return c.JSON(fiber.Map{"data": stats})
}

// ListEscalations GET /admin/escalations.
func (h *AdminHandler) ListEscalations(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	escalations, err := h.escalations.ListUnresolved(c.UserContext(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		items = append(items, escalationResponse(&escalations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ResolveEscalation POST /admin/escalations/:id/resolve.
func (h *AdminHandler) ResolveEscalation(c *fiber.Ctx) error {
	escalation, err := h.escalations.ResolveEscalation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationResponse(escalation)})
}

// CreatePolicy POST /admin/sla-policies.
func (h *AdminHandler) CreatePolicy(c *fiber.Ctx) error {
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.sla.CreatePolicy(c.UserContext(), policyInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": policyResponse(policy)})
}

// UpdatePolicy PUT /admin/sla-policies/:id.
func (h *AdminHandler) UpdatePolicy(c *fiber.Ctx) error {
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.sla.UpdatePolicy(c.UserContext(), c.Params("id"), policyInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// ListPolicies GET /admin/sla-policies.
func (h *AdminHandler) ListPolicies(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)
	policies, err := h.sla.ListPolicies(c.UserContext(), includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /admin/categories.
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.sla.CreateCategory(c.UserContext(), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// UpdateCategory PUT /admin/categories/:id.
func (h *AdminHandler) UpdateCategory(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.sla.UpdateCategory(c.UserContext(), c.Params("id"), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListCategories GET /admin/categories.
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)
	categories, err := h.sla.ListCategories(c.UserContext(), includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateStaff POST /admin/users.
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.authService.CreateStaff(c.UserContext(), service.CreateStaffInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Department: req.Department,
		Role:       req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Limit:  parseInt(c.Query("page_size"), 50),
		Offset: (parseInt(c.Query("page"), 1) - 1) * parseInt(c.Query("page_size"), 50),
	}
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.Role(roleStr)
		filter.Role = &role
	}
	users, err := h.authService.ListUsers(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetUserActive PATCH /admin/users/:id/active.
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.authService.SetActive(c.UserContext(), c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

func policyInput(req dto.SLAPolicyRequest) service.SLAPolicyInput {
	return service.SLAPolicyInput{
		Name:                req.Name,
		Priority:            req.Priority,
		ResponseTimeHours:   req.ResponseTimeHours,
		ResolutionTimeHours: req.ResolutionTimeHours,
		IsActive:            req.IsActive,
	}
}

func policyResponse(policy *domain.SLAPolicy) dto.SLAPolicyResponse {
	return dto.SLAPolicyResponse{
		ID:                  policy.ID,
		Name:                policy.Name,
		Priority:            policy.Priority,
		ResponseTimeHours:   policy.ResponseTimeHours,
		ResolutionTimeHours: policy.ResolutionTimeHours,
		IsActive:            policy.IsActive,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		IsActive:    category.IsActive,
	}
}
