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
)

type assignmentFixture struct {
	service    *AssignmentService
	complaints *fakeComplaintRepo
	users      *fakeUserRepo
	dispatcher *recordingDispatcher
}

func newAssignmentFixture() *assignmentFixture {
	f := &assignmentFixture{
		complaints: newFakeComplaintRepo(),
		users:      newFakeUserRepo(),
		dispatcher: &recordingDispatcher{},
	}
	f.service = NewAssignmentService(AssignmentDependencies{
		ComplaintRepo: f.complaints,
		UserRepo:      f.users,
		Dispatcher:    f.dispatcher,
		Clock:         &clock.Fixed{Instant: testBase},
	})
	return f
}

func (f *assignmentFixture) seedPending(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = f.complaints.put(domain.Complaint{
			StudentID: "student-1",
			Status:    domain.ComplaintStatusPending,
			CreatedAt: testBase.Add(time.Duration(i) * time.Minute),
		})
	}
	return ids
}

func TestAssignPending_RoundRobin(t *testing.T) {
	f := newAssignmentFixture()
	ids := f.seedPending(5)
	f.users.staff = []domain.StaffWorkload{
		{StaffID: "staff-a", Workload: 0},
		{StaffID: "staff-b", Workload: 0},
	}

	report, err := f.service.AssignPendingComplaints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	perStaff := map[string]int{}
	for _, id := range ids {
		stored, err := f.complaints.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, stored.AssignedStaff)
		perStaff[*stored.AssignedStaff]++
		// assignment never promotes the status
		assert.Equal(t, domain.ComplaintStatusPending, stored.Status)
	}
	// 5 complaints over 2 staff: ceil split 3/2, least-loaded first
	assert.Equal(t, 3, perStaff["staff-a"])
	assert.Equal(t, 2, perStaff["staff-b"])

	assert.Len(t, f.dispatcher.ofType(events.EventComplaintAssigned), 5)
}

func TestAssignPending_OrderingFavorsLeastLoaded(t *testing.T) {
	f := newAssignmentFixture()
	ids := f.seedPending(1)
	f.users.staff = []domain.StaffWorkload{
		{StaffID: "staff-idle", Workload: 0},
		{StaffID: "staff-busy", Workload: 7},
	}

	_, err := f.service.AssignPendingComplaints(context.Background())
	require.NoError(t, err)

	stored, err := f.complaints.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "staff-idle", *stored.AssignedStaff)
}

func TestAssignPending_NoPendingComplaints(t *testing.T) {
	f := newAssignmentFixture()
	f.users.staff = []domain.StaffWorkload{{StaffID: "staff-a"}}

	report, err := f.service.AssignPendingComplaints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
}

func TestAssignPending_NoActiveStaff(t *testing.T) {
	f := newAssignmentFixture()
	f.seedPending(3)

	report, err := f.service.AssignPendingComplaints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, f.dispatcher.ofType(events.EventComplaintAssigned))
}

func TestAssignPending_SkipsConcurrentlyClaimed(t *testing.T) {
	f := newAssignmentFixture()
	ids := f.seedPending(3)
	f.users.staff = []domain.StaffWorkload{{StaffID: "staff-a"}}

	// freeze the batch snapshot, then let someone claim one entry
	snapshot, err := f.complaints.ListPendingUnassigned(context.Background())
	require.NoError(t, err)
	f.complaints.pendingOverride = snapshot
	_, err = f.complaints.Claim(context.Background(), ids[1], "staff-z")
	require.NoError(t, err)

	report, err := f.service.AssignPendingComplaints(context.Background())
	require.NoError(t, err)
	// the claimed complaint is skipped, not reported as a failure
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	stored, err := f.complaints.GetByID(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, "staff-z", *stored.AssignedStaff)
}
