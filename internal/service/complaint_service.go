package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintService coordinates the complaint lifecycle.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	policies   repository.SLAPolicyRepository
	tx         repository.TxManager
	dispatcher events.Dispatcher
	clock      clock.Clock
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	CommentRepo   repository.CommentRepository
	CategoryRepo  repository.CategoryRepository
	PolicyRepo    repository.SLAPolicyRepository
	TxManager     repository.TxManager
	Dispatcher    events.Dispatcher
	Clock         clock.Clock
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Title       string
	Description string
	CategoryID  *string
	Priority    domain.ComplaintPriority
}

// StatusUpdateInput describes a staff status mutation.
type StatusUpdateInput struct {
	Status        domain.ComplaintStatus
	Solution      *string
	AssignedStaff *string
}

// ComplaintListFilter describes listing filters for the query surface.
type ComplaintListFilter struct {
	StudentID       *string
	AssignedStaffID *string
	Unassigned      bool
	Statuses        []domain.ComplaintStatus
	Priorities      []domain.ComplaintPriority
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// StatusCounts summarizes complaints per lifecycle state.
type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Escalated  int `json:"escalated"`
	Closed     int `json:"closed"`
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		comments:   deps.CommentRepo,
		categories: deps.CategoryRepo,
		policies:   deps.PolicyRepo,
		tx:         deps.TxManager,
		dispatcher: deps.Dispatcher,
		clock:      c,
	}
}

// CreateComplaint files a new complaint for a student. The SLA deadline
// is stamped from the active policy for the chosen priority; a missing
// policy is tolerated and simply leaves the deadline unset.
func (s *ComplaintService) CreateComplaint(ctx context.Context, studentID string, input ComplaintCreateInput) (*domain.Complaint, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.ComplaintPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	if input.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *input.CategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("category", map[string]any{"category_id": *input.CategoryID})
			}
			return nil, apperrors.MapError(err)
		}
		if !category.IsActive {
			return nil, apperrors.NewValidationError("category inactive", map[string]any{"category_id": category.ID})
		}
	}

	policy, err := s.policies.GetActiveByPriority(ctx, priority)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		policy = nil
	}

	now := s.clock.Now()
	complaint := &domain.Complaint{
		ReferenceKey: generateComplaintKey(),
		StudentID:    studentID,
		CategoryID:   input.CategoryID,
		Title:        title,
		Description:  description,
		Status:       domain.ComplaintStatusPending,
		Priority:     priority,
	}
	complaint.StampDeadline(policy, now)

	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Actor:       studentActor(studentID),
		Payload: events.ComplaintCreatedPayload{
			StudentID:   complaint.StudentID,
			CategoryID:  complaint.CategoryID,
			Priority:    complaint.Priority,
			Title:       complaint.Title,
			SLADeadline: complaint.SLADeadline,
		},
	})
	return complaint, nil
}

// UpdateStatus mutates complaint status on behalf of staff. ResolvedAt
// stamping and the breach check run inside the same transaction as the
// status write, so readers never observe a half-applied transition.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actorID, complaintID string, input StatusUpdateInput) (*domain.Complaint, error) {
	if !domain.ValidStatus(input.Status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": input.Status})
	}

	var complaint *domain.Complaint
	var oldStatus domain.ComplaintStatus
	var breachedNow bool

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		complaint, err = s.complaints.GetByID(ctx, complaintID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
			}
			return apperrors.MapError(err)
		}

		now := s.clock.Now()
		oldStatus = complaint.Status
		complaint.ApplyStatus(input.Status, now)
		if input.Solution != nil {
			solution := strings.TrimSpace(*input.Solution)
			complaint.Solution = &solution
		}
		if input.AssignedStaff != nil {
			complaint.AssignedStaff = input.AssignedStaff
		}
		breachedNow = complaint.RefreshBreach(now)

		if err := s.complaints.Update(ctx, complaint); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintStatusChanged,
		ComplaintID: complaint.ID,
		Actor:       staffActor(actorID),
		Payload: events.ComplaintStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: complaint.Status,
			Breached:  breachedNow,
		},
	})
	if breachedNow {
		s.publishBreach(ctx, complaint)
	}
	return complaint, nil
}

// Claim assigns an unassigned complaint to the calling staff member and
// moves it to IN_PROGRESS. The write is a compare-and-set against
// "assigned_staff is null": under concurrent claims exactly one caller
// wins, the rest receive ALREADY_ASSIGNED.
func (s *ComplaintService) Claim(ctx context.Context, staffID, complaintID string) (*domain.Complaint, error) {
	var complaint *domain.Complaint
	var breachedNow bool

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		complaint, err = s.complaints.Claim(ctx, complaintID, staffID)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrAlreadyAssigned):
				return apperrors.NewAlreadyAssigned(complaintID)
			case errors.Is(err, pgx.ErrNoRows):
				return apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
			default:
				return apperrors.MapError(err)
			}
		}

		if breachedNow = complaint.RefreshBreach(s.clock.Now()); breachedNow {
			if err := s.complaints.MarkBreached(ctx, complaint.ID); err != nil {
				return apperrors.MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintClaimed,
		ComplaintID: complaint.ID,
		Actor:       staffActor(staffID),
		Payload:     events.ComplaintAssignedPayload{StaffID: staffID, Claimed: true},
	})
	if breachedNow {
		s.publishBreach(ctx, complaint)
	}
	return complaint, nil
}

// GetComplaintForStudent fetches a complaint ensuring ownership.
// Internal comments are hidden from students.
func (s *ComplaintService) GetComplaintForStudent(ctx context.Context, studentID, complaintID string) (*domain.Complaint, []domain.ComplaintComment, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	if complaint.StudentID != studentID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByComplaint(ctx, complaint.ID, false)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return complaint, comments, nil
}

// GetComplaintForStaff fetches a complaint with the full comment thread.
func (s *ComplaintService) GetComplaintForStaff(ctx context.Context, complaintID string) (*domain.Complaint, []domain.ComplaintComment, error) {
	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByComplaint(ctx, complaint.ID, true)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return complaint, comments, nil
}

// ListComplaints applies the query surface filters.
func (s *ComplaintService) ListComplaints(ctx context.Context, filter ComplaintListFilter) ([]domain.Complaint, error) {
	complaints, err := s.complaints.ListWithFilter(ctx, toRepoFilter(filter))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return complaints, nil
}

// AddComment appends a comment. Students may only comment on their own
// complaints and may not post internal notes.
func (s *ComplaintService) AddComment(ctx context.Context, author *domain.User, complaintID, content string, isInternal bool) (*domain.ComplaintComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	complaint, err := s.getComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if author.Role == domain.RoleStudent {
		if complaint.StudentID != author.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
		if isInternal {
			return nil, apperrors.NewForbidden("students cannot post internal comments")
		}
	}

	authorID := author.ID
	comment := &domain.ComplaintComment{
		ComplaintID: complaint.ID,
		AuthorID:    &authorID,
		Content:     content,
		IsInternal:  isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventCommentAdded,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{Role: author.Role, UserID: &authorID},
		Payload:     events.CommentAddedPayload{CommentID: comment.ID, IsInternal: comment.IsInternal},
	})
	return comment, nil
}

// CountsForStudent returns per-status totals of a student's complaints.
func (s *ComplaintService) CountsForStudent(ctx context.Context, studentID string) (*StatusCounts, error) {
	return s.statusCounts(ctx, repository.ComplaintFilter{StudentID: &studentID})
}

// CountsForStaff returns per-status totals of complaints assigned to a
// staff member.
func (s *ComplaintService) CountsForStaff(ctx context.Context, staffID string) (*StatusCounts, error) {
	return s.statusCounts(ctx, repository.ComplaintFilter{AssignedStaffID: &staffID})
}

func (s *ComplaintService) statusCounts(ctx context.Context, base repository.ComplaintFilter) (*StatusCounts, error) {
	counts := &StatusCounts{}
	total, err := s.complaints.Count(ctx, base)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts.Total = total

	perStatus := []struct {
		status domain.ComplaintStatus
		target *int
	}{
		{domain.ComplaintStatusPending, &counts.Pending},
		{domain.ComplaintStatusInProgress, &counts.InProgress},
		{domain.ComplaintStatusResolved, &counts.Resolved},
		{domain.ComplaintStatusEscalated, &counts.Escalated},
		{domain.ComplaintStatusClosed, &counts.Closed},
	}
	for _, entry := range perStatus {
		filter := base
		filter.Statuses = []domain.ComplaintStatus{entry.status}
		count, err := s.complaints.Count(ctx, filter)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		*entry.target = count
	}
	return counts, nil
}

func (s *ComplaintService) getComplaint(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, apperrors.MapError(err)
	}
	return complaint, nil
}

func (s *ComplaintService) publishBreach(ctx context.Context, complaint *domain.Complaint) {
	if complaint.SLADeadline == nil {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventSLABreached,
		ComplaintID: complaint.ID,
		Actor:       systemActor(),
		Payload:     events.SLABreachedPayload{Deadline: *complaint.SLADeadline},
	})
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
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

func toRepoFilter(filter ComplaintListFilter) repository.ComplaintFilter {
	return repository.ComplaintFilter{
		StudentID:       filter.StudentID,
		AssignedStaffID: filter.AssignedStaffID,
		Unassigned:      filter.Unassigned,
		Statuses:        filter.Statuses,
		Priorities:      filter.Priorities,
		SearchTerm:      filter.SearchTerm,
		CreatedFrom:     filter.CreatedFrom,
		CreatedTo:       filter.CreatedTo,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	}
}

func generateComplaintKey() string {
	return "CMP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func studentActor(userID string) events.Actor {
	return events.Actor{Role: domain.RoleStudent, UserID: &userID}
}

func staffActor(userID string) events.Actor {
	return events.Actor{Role: domain.RoleStaff, UserID: &userID}
}

func systemActor() events.Actor {
	return events.Actor{System: true}
}
