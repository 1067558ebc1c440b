package domain

import "time"

// EscalationReason enumerates why a complaint was escalated.
type EscalationReason string

const (
	EscalationReasonSLABreach       EscalationReason = "SLA_BREACH"
	EscalationReasonCustomerRequest EscalationReason = "CUSTOMER_REQUEST"
	EscalationReasonComplexity      EscalationReason = "COMPLEXITY"
	EscalationReasonUnresolved      EscalationReason = "UNRESOLVED"
	EscalationReasonOther           EscalationReason = "OTHER"
)

// Escalation raises a complaint's visibility. Creating one forces the
// parent complaint into ESCALATED status in the same transaction.
type Escalation struct {
	ID          string
	ComplaintID string
	EscalatedBy *string
	EscalatedTo *string
	Reason      EscalationReason
	Notes       string
	Resolved    bool
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// ValidEscalationReason reports whether r is a known reason.
func ValidEscalationReason(r EscalationReason) bool {
	switch r {
	case EscalationReasonSLABreach, EscalationReasonCustomerRequest,
		EscalationReasonComplexity, EscalationReasonUnresolved, EscalationReasonOther:
		return true
	}
	return false
}

// MarkResolved flips the resolved flag and stamps ResolvedAt once.
func (e *Escalation) MarkResolved(now time.Time) {
	e.Resolved = true
	if e.ResolvedAt == nil {
		resolvedAt := now
		e.ResolvedAt = &resolvedAt
	}
}
