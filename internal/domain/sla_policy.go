package domain

import "time"

// SLAPolicy maps a priority to response/resolution time budgets. At
// most one active policy exists per priority.
type SLAPolicy struct {
	ID                  string
	Name                string
	Priority            ComplaintPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ResponseBudget returns the response window as a duration.
func (p *SLAPolicy) ResponseBudget() time.Duration {
	return time.Duration(p.ResponseTimeHours) * time.Hour
}

// ResolutionBudget returns the resolution window as a duration.
func (p *SLAPolicy) ResolutionBudget() time.Duration {
	return time.Duration(p.ResolutionTimeHours) * time.Hour
}
