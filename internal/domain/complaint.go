package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "PENDING"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
	ComplaintStatusEscalated  ComplaintStatus = "ESCALATED"
	ComplaintStatusClosed     ComplaintStatus = "CLOSED"
)

// ComplaintPriority enumerates SLA urgency.
type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "LOW"
	ComplaintPriorityMedium ComplaintPriority = "MEDIUM"
	ComplaintPriorityHigh   ComplaintPriority = "HIGH"
	ComplaintPriorityUrgent ComplaintPriority = "URGENT"
)

// Complaint is the aggregate root for student grievances. Escalations
// and comments are owned by their complaint; the student and staff
// references point into the accounts subsystem.
type Complaint struct {
	ID            string
	ReferenceKey  string
	StudentID     string
	AssignedStaff *string
	CategoryID    *string
	Title         string
	Description   string
	Status        ComplaintStatus
	Priority      ComplaintPriority
	Solution      *string
	SLADeadline   *time.Time
	IsSLABreached bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// ValidStatus reports whether s is a known complaint status.
func ValidStatus(s ComplaintStatus) bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved,
		ComplaintStatusEscalated, ComplaintStatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p ComplaintPriority) bool {
	switch p {
	case ComplaintPriorityLow, ComplaintPriorityMedium, ComplaintPriorityHigh, ComplaintPriorityUrgent:
		return true
	}
	return false
}

// IsTerminal reports whether the complaint reached a terminal status.
// Terminal complaints are excluded from deadline accounting.
func (c *Complaint) IsTerminal() bool {
	return c.Status == ComplaintStatusResolved || c.Status == ComplaintStatusClosed
}

// ApplyStatus moves the complaint to newStatus and stamps ResolvedAt on
// the first transition into RESOLVED. ResolvedAt is never cleared or
// overwritten afterwards, even if the status later leaves RESOLVED.
func (c *Complaint) ApplyStatus(newStatus ComplaintStatus, now time.Time) {
	c.Status = newStatus
	if newStatus == ComplaintStatusResolved && c.ResolvedAt == nil {
		resolvedAt := now
		c.ResolvedAt = &resolvedAt
	}
}

// StampDeadline computes the SLA deadline from the active policy for
// the complaint's priority. Called once at creation; the deadline is
// never recomputed, even when the priority or the policy table change.
// A nil policy leaves the deadline unset (not an error).
func (c *Complaint) StampDeadline(policy *SLAPolicy, now time.Time) {
	if c.SLADeadline != nil || policy == nil {
		return
	}
	deadline := now.Add(policy.ResolutionBudget())
	c.SLADeadline = &deadline
}

// RefreshBreach flips IsSLABreached when the deadline has passed while
// the complaint is still open. One-directional: once breached, a
// complaint stays breached for its lifetime.
func (c *Complaint) RefreshBreach(now time.Time) bool {
	if c.IsSLABreached {
		return false
	}
	if c.SLADeadline == nil || c.IsTerminal() {
		return false
	}
	if now.After(*c.SLADeadline) {
		c.IsSLABreached = true
		return true
	}
	return false
}

// IsOverdue reports whether the complaint is currently past its
// deadline and still open.
func (c *Complaint) IsOverdue(now time.Time) bool {
	return c.SLADeadline != nil && !c.IsTerminal() && now.After(*c.SLADeadline)
}
