package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintsHandler manages student-facing complaint endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
	sla     *service.SLAService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService, slaService *service.SLAService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService, sla: slaService}
}

// CreateComplaint POST /complaints.
func (h *ComplaintsHandler) CreateComplaint(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("student required")
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.service.CreateComplaint(c.UserContext(), principal.User.ID, service.ComplaintCreateInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": complaintSummary(complaint)})
}

// ListComplaints GET /complaints.
func (h *ComplaintsHandler) ListComplaints(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("student required")
	}
	filter := parseComplaintQuery(c)
	filter.StudentID = &principal.User.ID

	complaints, err := h.service.ListComplaints(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// GetComplaint GET /complaints/:id.
func (h *ComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("student required")
	}
	complaint, comments, err := h.service.GetComplaintForStudent(c.UserContext(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint, comments)})
}

// AddComment POST /complaints/:id/comments.
func (h *ComplaintsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("student required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.service.AddComment(c.UserContext(), principal.User, c.Params("id"), req.Content, false)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// Dashboard GET /complaints/dashboard.
func (h *ComplaintsHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("student required")
	}
	counts, err := h.service.CountsForStudent(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// ListCategories GET /categories. Active categories only; used when
// filing a complaint.
func (h *ComplaintsHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.sla.ListCategories(c.UserContext(), false)
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseComplaintQuery(c *fiber.Ctx) service.ComplaintListFilter {
	filter := service.ComplaintListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ComplaintStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.ComplaintPriority(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func complaintSummary(complaint *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		ID:            complaint.ID,
		ReferenceKey:  complaint.ReferenceKey,
		StudentID:     complaint.StudentID,
		AssignedStaff: complaint.AssignedStaff,
		CategoryID:    complaint.CategoryID,
		Title:         complaint.Title,
		Status:        complaint.Status,
		Priority:      complaint.Priority,
		SLADeadline:   complaint.SLADeadline,
		IsSLABreached: complaint.IsSLABreached,
		CreatedAt:     complaint.CreatedAt,
		UpdatedAt:     complaint.UpdatedAt,
		ResolvedAt:    complaint.ResolvedAt,
	}
}

func complaintSummaries(complaints []domain.Complaint) []dto.ComplaintSummary {
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return items
}

func complaintDetail(complaint *domain.Complaint, comments []domain.ComplaintComment) dto.ComplaintDetailResponse {
	resp := dto.ComplaintDetailResponse{
		ComplaintSummary: complaintSummary(complaint),
		Description:      complaint.Description,
		Solution:         complaint.Solution,
		Comments:         make([]dto.CommentResponse, 0, len(comments)),
	}
	for i := range comments {
		resp.Comments = append(resp.Comments, commentResponse(&comments[i]))
	}
	return resp
}

func commentResponse(comment *domain.ComplaintComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		Content:    comment.Content,
		IsInternal: comment.IsInternal,
		CreatedAt:  comment.CreatedAt,
	}
}

func escalationResponse(escalation *domain.Escalation) dto.EscalationResponse {
	return dto.EscalationResponse{
		ID:          escalation.ID,
		ComplaintID: escalation.ComplaintID,
		EscalatedBy: escalation.EscalatedBy,
		EscalatedTo: escalation.EscalatedTo,
		Reason:      escalation.Reason,
		Notes:       escalation.Notes,
		Resolved:    escalation.Resolved,
		CreatedAt:   escalation.CreatedAt,
		ResolvedAt:  escalation.ResolvedAt,
	}
}
