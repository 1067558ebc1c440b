package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// EscalationService records escalations and their complaint side
// effects.
type EscalationService struct {
	escalations repository.EscalationRepository
	complaints  repository.ComplaintRepository
	tx          repository.TxManager
	dispatcher  events.Dispatcher
	clock       clock.Clock
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	EscalationRepo repository.EscalationRepository
	ComplaintRepo  repository.ComplaintRepository
	TxManager      repository.TxManager
	Dispatcher     events.Dispatcher
	Clock          clock.Clock
}

// EscalateInput describes an escalation request.
type EscalateInput struct {
	ComplaintID string
	Reason      domain.EscalationReason
	EscalatedBy *string
	EscalatedTo *string
	Notes       string
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	return &EscalationService{
		escalations: deps.EscalationRepo,
		complaints:  deps.ComplaintRepo,
		tx:          deps.TxManager,
		dispatcher:  deps.Dispatcher,
		clock:       c,
	}
}

// Escalate creates an escalation record and forces the complaint into
// ESCALATED status in the same transaction. There is no terminal-state
// guard: escalating a RESOLVED or CLOSED complaint reopens it as
// ESCALATED.
func (s *EscalationService) Escalate(ctx context.Context, input EscalateInput) (*domain.Escalation, error) {
	if !domain.ValidEscalationReason(input.Reason) {
		return nil, apperrors.NewValidationError("unknown escalation reason", map[string]any{"reason": input.Reason})
	}

	var escalation *domain.Escalation
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		complaint, err := s.complaints.GetByID(ctx, input.ComplaintID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("complaint", map[string]any{"complaint_id": input.ComplaintID})
			}
			return apperrors.MapError(err)
		}

		escalation = &domain.Escalation{
			ComplaintID: complaint.ID,
			EscalatedBy: input.EscalatedBy,
			EscalatedTo: input.EscalatedTo,
			Reason:      input.Reason,
			Notes:       strings.TrimSpace(input.Notes),
		}
		if err := s.escalations.Create(ctx, escalation); err != nil {
			return apperrors.MapError(err)
		}

		now := s.clock.Now()
		complaint.ApplyStatus(domain.ComplaintStatusEscalated, now)
		complaint.RefreshBreach(now)
		if err := s.complaints.Update(ctx, complaint); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintEscalated,
		ComplaintID: escalation.ComplaintID,
		Actor:       escalationActor(input.EscalatedBy),
		Payload: events.ComplaintEscalatedPayload{
			EscalationID: escalation.ID,
			Reason:       escalation.Reason,
			EscalatedTo:  escalation.EscalatedTo,
		},
	})
	return escalation, nil
}

// ResolveEscalation flips the resolved flag and stamps resolved_at once.
func (s *EscalationService) ResolveEscalation(ctx context.Context, escalationID string) (*domain.Escalation, error) {
	escalation, err := s.escalations.GetByID(ctx, escalationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("escalation", map[string]any{"escalation_id": escalationID})
		}
		return nil, apperrors.MapError(err)
	}

	escalation.MarkResolved(s.clock.Now())
	if err := s.escalations.Update(ctx, escalation); err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalation, nil
}

// ListByComplaint returns the escalation history of a complaint.
func (s *EscalationService) ListByComplaint(ctx context.Context, complaintID string) ([]domain.Escalation, error) {
	escalations, err := s.escalations.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalations, nil
}

// ListUnresolved returns open escalations for the admin view.
func (s *EscalationService) ListUnresolved(ctx context.Context, limit, offset int) ([]domain.Escalation, error) {
	escalations, err := s.escalations.ListUnresolved(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalations, nil
}

func (s *EscalationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func escalationActor(userID *string) events.Actor {
	if userID == nil {
		return systemActor()
	}
	return events.Actor{Role: domain.RoleStaff, UserID: userID}
}
