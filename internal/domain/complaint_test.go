package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestApplyStatus_StampsResolvedAtOnce(t *testing.T) {
	c := &Complaint{Status: ComplaintStatusInProgress}

	c.ApplyStatus(ComplaintStatusResolved, baseTime)
	require.NotNil(t, c.ResolvedAt)
	assert.Equal(t, baseTime, *c.ResolvedAt)

	// Reopening and resolving again must not move the stamp.
	c.ApplyStatus(ComplaintStatusInProgress, baseTime.Add(time.Hour))
	c.ApplyStatus(ComplaintStatusResolved, baseTime.Add(2*time.Hour))
	assert.Equal(t, baseTime, *c.ResolvedAt)
}

func TestStampDeadline(t *testing.T) {
	policy := &SLAPolicy{Priority: ComplaintPriorityUrgent, ResponseTimeHours: 1, ResolutionTimeHours: 4, IsActive: true}

	c := &Complaint{Priority: ComplaintPriorityUrgent}
	c.StampDeadline(policy, baseTime)
	require.NotNil(t, c.SLADeadline)
	assert.Equal(t, baseTime.Add(4*time.Hour), *c.SLADeadline)

	// Never recomputed once set.
	later := &SLAPolicy{Priority: ComplaintPriorityUrgent, ResolutionTimeHours: 1, IsActive: true}
	c.StampDeadline(later, baseTime.Add(time.Hour))
	assert.Equal(t, baseTime.Add(4*time.Hour), *c.SLADeadline)
}

func TestStampDeadline_NoPolicy(t *testing.T) {
	c := &Complaint{Priority: ComplaintPriorityLow}
	c.StampDeadline(nil, baseTime)
	assert.Nil(t, c.SLADeadline)

	// Without a deadline the breach path never activates.
	assert.False(t, c.RefreshBreach(baseTime.Add(1000*time.Hour)))
	assert.False(t, c.IsSLABreached)
}

func TestRefreshBreach(t *testing.T) {
	deadline := baseTime.Add(4 * time.Hour)
	c := &Complaint{Status: ComplaintStatusPending, SLADeadline: &deadline}

	assert.False(t, c.RefreshBreach(baseTime.Add(3*time.Hour)))
	assert.False(t, c.IsSLABreached)

	assert.True(t, c.RefreshBreach(baseTime.Add(5*time.Hour)))
	assert.True(t, c.IsSLABreached)

	// Already breached: no further flips reported.
	assert.False(t, c.RefreshBreach(baseTime.Add(6*time.Hour)))
	assert.True(t, c.IsSLABreached)
}

func TestRefreshBreach_TerminalStatusExcluded(t *testing.T) {
	deadline := baseTime.Add(time.Hour)
	for _, status := range []ComplaintStatus{ComplaintStatusResolved, ComplaintStatusClosed} {
		c := &Complaint{Status: status, SLADeadline: &deadline}
		assert.False(t, c.RefreshBreach(baseTime.Add(2*time.Hour)), string(status))
		assert.False(t, c.IsSLABreached)
	}
}

func TestRefreshBreach_Monotonic(t *testing.T) {
	deadline := baseTime.Add(time.Hour)
	c := &Complaint{Status: ComplaintStatusPending, SLADeadline: &deadline}
	require.True(t, c.RefreshBreach(baseTime.Add(2*time.Hour)))

	// Resolving after a breach does not clear the flag.
	c.ApplyStatus(ComplaintStatusResolved, baseTime.Add(3*time.Hour))
	c.RefreshBreach(baseTime.Add(4 * time.Hour))
	assert.True(t, c.IsSLABreached)
}

func TestMarkResolved_StampsOnce(t *testing.T) {
	e := &Escalation{Reason: EscalationReasonComplexity}
	e.MarkResolved(baseTime)
	require.NotNil(t, e.ResolvedAt)
	assert.Equal(t, baseTime, *e.ResolvedAt)

	e.MarkResolved(baseTime.Add(time.Hour))
	assert.Equal(t, baseTime, *e.ResolvedAt)
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidStatus(ComplaintStatusEscalated))
	assert.False(t, ValidStatus(ComplaintStatus("OPEN")))
	assert.True(t, ValidPriority(ComplaintPriorityHigh))
	assert.False(t, ValidPriority(ComplaintPriority("CRITICAL")))
	assert.True(t, ValidEscalationReason(EscalationReasonSLABreach))
	assert.False(t, ValidEscalationReason(EscalationReason("PANIC")))
}
