package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintClaimed       EventType = "complaint_claimed"
	EventComplaintAssigned      EventType = "complaint_assigned"
	EventComplaintEscalated     EventType = "complaint_escalated"
	EventSLABreached            EventType = "sla_breached"
	EventCommentAdded           EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event. System events (the
// maintenance sweeps) carry no user id.
type Actor struct {
	Role   domain.Role `json:"role,omitempty"`
	UserID *string     `json:"user_id,omitempty"`
	System bool        `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	StudentID   string                   `json:"student_id"`
	CategoryID  *string                  `json:"category_id,omitempty"`
	Priority    domain.ComplaintPriority `json:"priority"`
	Title       string                   `json:"title"`
	SLADeadline *time.Time               `json:"sla_deadline,omitempty"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Breached  bool                   `json:"breached,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	StaffID string `json:"staff_id"`
	Claimed bool   `json:"claimed,omitempty"`
}

// ComplaintEscalatedPayload payload.
type ComplaintEscalatedPayload struct {
	EscalationID string                  `json:"escalation_id"`
	Reason       domain.EscalationReason `json:"reason"`
	EscalatedTo  *string                 `json:"escalated_to,omitempty"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Deadline time.Time `json:"deadline"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID  string `json:"comment_id"`
	IsInternal bool   `json:"is_internal"`
}
