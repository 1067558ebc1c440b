package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// StaffComplaintsHandler manages the staff work queue.
type StaffComplaintsHandler struct {
	complaints  *service.ComplaintService
	escalations *service.EscalationService
}

// NewStaffComplaintsHandler constructs handler.
func NewStaffComplaintsHandler(complaints *service.ComplaintService, escalations *service.EscalationService) *StaffComplaintsHandler {
	return &StaffComplaintsHandler{complaints: complaints, escalations: escalations}
}

// ListAssigned GET /staff/complaints.
func (h *StaffComplaintsHandler) ListAssigned(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	filter := parseComplaintQuery(c)
	filter.AssignedStaffID = &principal.User.ID

	complaints, err := h.complaints.ListComplaints(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// ListUnassigned GET /staff/complaints/unassigned.
func (h *StaffComplaintsHandler) ListUnassigned(c *fiber.Ctx) error {
	filter := parseComplaintQuery(c)
	filter.Unassigned = true

	complaints, err := h.complaints.ListComplaints(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// GetComplaint GET /staff/complaints/:id.
func (h *StaffComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	complaint, comments, err := h.complaints.GetComplaintForStaff(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint, comments)})
}

// Claim POST /staff/complaints/:id/claim.
func (h *StaffComplaintsHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	complaint, err := h.complaints.Claim(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// UpdateStatus PATCH /staff/complaints/:id/status.
func (h *StaffComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.complaints.UpdateStatus(c.UserContext(), principal.User.ID, c.Params("id"), service.StatusUpdateInput{
		Status:        req.Status,
		Solution:      req.Solution,
		AssignedStaff: req.AssignedStaff,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// Escalate POST /staff/complaints/:id/escalate.
func (h *StaffComplaintsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	escalatedBy := principal.User.ID
	escalation, err := h.escalations.Escalate(c.UserContext(), service.EscalateInput{
		ComplaintID: c.Params("id"),
		Reason:      req.Reason,
		EscalatedBy: &escalatedBy,
		EscalatedTo: req.EscalatedTo,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": escalationResponse(escalation)})
}

// ListEscalations GET /staff/complaints/:id/escalations.
func (h *StaffComplaintsHandler) ListEscalations(c *fiber.Ctx) error {
	escalations, err := h.escalations.ListByComplaint(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		items = append(items, escalationResponse(&escalations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /staff/complaints/:id/comments.
func (h *StaffComplaintsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.complaints.AddComment(c.UserContext(), principal.User, c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// Dashboard GET /staff/dashboard.
func (h *StaffComplaintsHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("staff required")
	}
	counts, err := h.complaints.CountsForStaff(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}
