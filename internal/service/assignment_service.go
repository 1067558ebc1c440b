package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// BatchReport summarizes a best-effort batch run. Per-entity failures
// are collected here instead of aborting the remaining entities.
type BatchReport struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *BatchReport) failure(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err.Error())
}

// AssignmentService distributes unassigned pending complaints across
// active staff.
type AssignmentService struct {
	complaints repository.ComplaintRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      clock.Clock
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UserRepo      repository.UserRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         clock.Clock
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		complaints: deps.ComplaintRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		clock:      c,
	}
}

// AssignPendingComplaints walks unassigned PENDING complaints in
// creation order and hands complaint i to staff[i mod n], where the
// staff list is ordered by workload ascending (id as tiebreak). The
// ordering is computed once at the start of the batch and not
// rebalanced between assignments. Status stays PENDING; only an
// explicit claim moves a complaint to IN_PROGRESS.
func (s *AssignmentService) AssignPendingComplaints(ctx context.Context) (*BatchReport, error) {
	report := &BatchReport{}

	pending, err := s.complaints.ListPendingUnassigned(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(pending) == 0 {
		return report, nil
	}

	staff, err := s.users.ListActiveStaffByWorkload(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(staff) == 0 {
		s.logger.Warn("no active staff available for assignment",
			zap.Int("pending", len(pending)))
		return report, nil
	}

	for i := range pending {
		complaint := &pending[i]
		staffID := staff[i%len(staff)].StaffID

		if err := s.complaints.Assign(ctx, complaint.ID, staffID); err != nil {
			if errors.Is(err, repository.ErrAlreadyAssigned) {
				// claimed concurrently; nothing to do
				continue
			}
			report.failure(fmt.Errorf("assign complaint %s: %w", complaint.ID, err))
			s.logger.Error("assignment failed",
				zap.String("complaint_id", complaint.ID),
				zap.String("staff_id", staffID),
				zap.Error(err))
			continue
		}

		report.Succeeded++
		s.logger.Info("complaint assigned",
			zap.String("complaint_id", complaint.ID),
			zap.String("staff_id", staffID))
		s.publishAssigned(ctx, complaint.ID, staffID)
	}
	return report, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, complaintID, staffID string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventComplaintAssigned,
		ComplaintID: complaintID,
		Actor:       systemActor(),
		Timestamp:   s.clock.Now(),
		Payload:     events.ComplaintAssignedPayload{StaffID: staffID},
	})
}
