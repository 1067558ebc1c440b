package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

type escalationFixture struct {
	service     *EscalationService
	escalations *fakeEscalationRepo
	complaints  *fakeComplaintRepo
	dispatcher  *recordingDispatcher
	clock       *clock.Fixed
}

func newEscalationFixture() *escalationFixture {
	f := &escalationFixture{
		escalations: newFakeEscalationRepo(),
		complaints:  newFakeComplaintRepo(),
		dispatcher:  &recordingDispatcher{},
		clock:       &clock.Fixed{Instant: testBase},
	}
	f.service = NewEscalationService(EscalationDependencies{
		EscalationRepo: f.escalations,
		ComplaintRepo:  f.complaints,
		TxManager:      fakeTxManager{},
		Dispatcher:     f.dispatcher,
		Clock:          f.clock,
	})
	return f
}

func TestEscalate_ForcesEscalatedStatus(t *testing.T) {
	f := newEscalationFixture()
	id := f.complaints.put(domain.Complaint{
		StudentID: "student-1",
		Status:    domain.ComplaintStatusInProgress,
		CreatedAt: testBase,
	})
	staffID := "staff-1"

	escalation, err := f.service.Escalate(context.Background(), EscalateInput{
		ComplaintID: id,
		Reason:      domain.EscalationReasonComplexity,
		EscalatedBy: &staffID,
		Notes:       "needs facilities team",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, escalation.ID)
	assert.False(t, escalation.Resolved)

	stored, err := f.complaints.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusEscalated, stored.Status)

	published := f.dispatcher.ofType(events.EventComplaintEscalated)
	require.Len(t, published, 1)
	assert.Equal(t, id, published[0].ComplaintID)
}

func TestEscalate_ReopensTerminalComplaint(t *testing.T) {
	f := newEscalationFixture()
	resolvedAt := testBase
	id := f.complaints.put(domain.Complaint{
		StudentID:  "student-1",
		Status:     domain.ComplaintStatusResolved,
		CreatedAt:  testBase,
		ResolvedAt: &resolvedAt,
	})

	_, err := f.service.Escalate(context.Background(), EscalateInput{
		ComplaintID: id,
		Reason:      domain.EscalationReasonCustomerRequest,
	})
	require.NoError(t, err)

	stored, err := f.complaints.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusEscalated, stored.Status)
	// the original resolution stamp survives the reopen
	require.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, resolvedAt, *stored.ResolvedAt)
}

func TestEscalate_UnknownReason(t *testing.T) {
	f := newEscalationFixture()
	_, err := f.service.Escalate(context.Background(), EscalateInput{
		ComplaintID: "whatever",
		Reason:      "LOUD_NOISES",
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestEscalate_MissingComplaint(t *testing.T) {
	f := newEscalationFixture()
	_, err := f.service.Escalate(context.Background(), EscalateInput{
		ComplaintID: "nope",
		Reason:      domain.EscalationReasonOther,
	})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestResolveEscalation_StampsOnce(t *testing.T) {
	f := newEscalationFixture()
	escalation := &domain.Escalation{ComplaintID: "c-1", Reason: domain.EscalationReasonOther}
	require.NoError(t, f.escalations.Create(context.Background(), escalation))

	resolved, err := f.service.ResolveEscalation(context.Background(), escalation.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	firstStamp := *resolved.ResolvedAt

	f.clock.Advance(3 * time.Hour)
	again, err := f.service.ResolveEscalation(context.Background(), escalation.ID)
	require.NoError(t, err)
	assert.Equal(t, firstStamp, *again.ResolvedAt)
}

func TestResolveEscalation_Missing(t *testing.T) {
	f := newEscalationFixture()
	_, err := f.service.ResolveEscalation(context.Background(), "nope")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
