package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	CategoryID  *string                  `json:"category_id"`
	Priority    domain.ComplaintPriority `json:"priority"`
}

// UpdateStatusRequest payload for staff status mutations.
type UpdateStatusRequest struct {
	Status        domain.ComplaintStatus `json:"status"`
	Solution      *string                `json:"solution"`
	AssignedStaff *string                `json:"assigned_staff"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	Reason      domain.EscalationReason `json:"reason"`
	EscalatedTo *string                 `json:"escalated_to"`
	Notes       string                  `json:"notes"`
}

// ComplaintSummary response.
type ComplaintSummary struct {
	ID            string                   `json:"id"`
	ReferenceKey  string                   `json:"reference_key"`
	StudentID     string                   `json:"student_id"`
	AssignedStaff *string                  `json:"assigned_staff"`
	CategoryID    *string                  `json:"category_id"`
	Title         string                   `json:"title"`
	Status        domain.ComplaintStatus   `json:"status"`
	Priority      domain.ComplaintPriority `json:"priority"`
	SLADeadline   *time.Time               `json:"sla_deadline"`
	IsSLABreached bool                     `json:"is_sla_breached"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
	ResolvedAt    *time.Time               `json:"resolved_at"`
}

// ComplaintDetailResponse provides full complaint info.
type ComplaintDetailResponse struct {
	ComplaintSummary
	Description string            `json:"description"`
	Solution    *string           `json:"solution"`
	Comments    []CommentResponse `json:"comments"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   *string   `json:"author_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// EscalationResponse represents an escalation record.
type EscalationResponse struct {
	ID          string                  `json:"id"`
	ComplaintID string                  `json:"complaint_id"`
	EscalatedBy *string                 `json:"escalated_by"`
	EscalatedTo *string                 `json:"escalated_to"`
	Reason      domain.EscalationReason `json:"reason"`
	Notes       string                  `json:"notes"`
	Resolved    bool                    `json:"resolved"`
	CreatedAt   time.Time               `json:"created_at"`
	ResolvedAt  *time.Time              `json:"resolved_at"`
}

// CategoryResponse represents a complaint category.
type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// CategoryRequest payload for category writes.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// SLAPolicyRequest payload for policy writes.
type SLAPolicyRequest struct {
	Name                string                   `json:"name"`
	Priority            domain.ComplaintPriority `json:"priority"`
	ResponseTimeHours   int                      `json:"response_time_hours"`
	ResolutionTimeHours int                      `json:"resolution_time_hours"`
	IsActive            *bool                    `json:"is_active"`
}

// SLAPolicyResponse represents a policy.
type SLAPolicyResponse struct {
	ID                  string                   `json:"id"`
	Name                string                   `json:"name"`
	Priority            domain.ComplaintPriority `json:"priority"`
	ResponseTimeHours   int                      `json:"response_time_hours"`
	ResolutionTimeHours int                      `json:"resolution_time_hours"`
	IsActive            bool                     `json:"is_active"`
}
