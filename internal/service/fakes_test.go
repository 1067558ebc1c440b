package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// fakeTxManager runs the function directly; the fakes below mutate
// shared maps, so there is nothing to commit or roll back.
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingDispatcher collects published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// fakeComplaintRepo mirrors the SQL repository's behavior in memory.
type fakeComplaintRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.Complaint

	// hasUnresolvedEscalation stands in for the NOT EXISTS subquery of
	// the SQL repository; nil means "no escalations anywhere".
	hasUnresolvedEscalation func(complaintID string) bool

	// pendingOverride, when set, is returned verbatim by
	// ListPendingUnassigned to simulate a stale batch snapshot.
	pendingOverride []domain.Complaint
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{items: map[string]*domain.Complaint{}}
}

func (r *fakeComplaintRepo) put(c domain.Complaint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		r.seq++
		c.ID = fmt.Sprintf("c-%d", r.seq)
	}
	stored := c
	r.items[stored.ID] = &stored
	return stored.ID
}

func (r *fakeComplaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	complaint.ID = fmt.Sprintf("c-%d", r.seq)
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = time.Now()
	}
	complaint.UpdatedAt = complaint.CreatedAt
	stored := *complaint
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeComplaintRepo) Update(_ context.Context, complaint *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[complaint.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := *complaint
	// immutable columns keep their stored values
	updated.StudentID = current.StudentID
	updated.CreatedAt = current.CreatedAt
	updated.SLADeadline = current.SLADeadline
	r.items[complaint.ID] = &updated
	return nil
}

func (r *fakeComplaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *current
	return &copied, nil
}

func (r *fakeComplaintRepo) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		if filter.OrderCreatedAsc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeComplaintRepo) Count(_ context.Context, filter repository.ComplaintFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}

func (r *fakeComplaintRepo) matching(filter repository.ComplaintFilter) []domain.Complaint {
	var matched []domain.Complaint
	for _, c := range r.items {
		if filter.StudentID != nil && c.StudentID != *filter.StudentID {
			continue
		}
		if filter.AssignedStaffID != nil && (c.AssignedStaff == nil || *c.AssignedStaff != *filter.AssignedStaffID) {
			continue
		}
		if filter.Unassigned && c.AssignedStaff != nil {
			continue
		}
		if filter.CategoryID != nil && (c.CategoryID == nil || *c.CategoryID != *filter.CategoryID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, c.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, c.Priority) {
			continue
		}
		if filter.SLABreached != nil && c.IsSLABreached != *filter.SLABreached {
			continue
		}
		if filter.CreatedFrom != nil && c.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && !c.CreatedAt.Before(*filter.CreatedTo) {
			continue
		}
		if filter.ResolvedFrom != nil && (c.ResolvedAt == nil || c.ResolvedAt.Before(*filter.ResolvedFrom)) {
			continue
		}
		if filter.ResolvedTo != nil && (c.ResolvedAt == nil || !c.ResolvedAt.Before(*filter.ResolvedTo)) {
			continue
		}
		if filter.SearchTerm != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if needle != "" &&
				!strings.Contains(strings.ToLower(c.Title), needle) &&
				!strings.Contains(strings.ToLower(c.Description), needle) {
				continue
			}
		}
		matched = append(matched, *c)
	}
	return matched
}

func (r *fakeComplaintRepo) Claim(_ context.Context, complaintID, staffID string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[complaintID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if current.AssignedStaff != nil {
		return nil, repository.ErrAlreadyAssigned
	}
	assignee := staffID
	current.AssignedStaff = &assignee
	current.Status = domain.ComplaintStatusInProgress
	copied := *current
	return &copied, nil
}

func (r *fakeComplaintRepo) Assign(_ context.Context, complaintID, staffID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[complaintID]
	if !ok || current.AssignedStaff != nil {
		return repository.ErrAlreadyAssigned
	}
	assignee := staffID
	current.AssignedStaff = &assignee
	return nil
}

func (r *fakeComplaintRepo) ListPendingUnassigned(_ context.Context) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingOverride != nil {
		return append([]domain.Complaint{}, r.pendingOverride...), nil
	}
	var matched []domain.Complaint
	for _, c := range r.items {
		if c.Status == domain.ComplaintStatusPending && c.AssignedStaff == nil {
			matched = append(matched, *c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

func (r *fakeComplaintRepo) ListBreachCandidates(_ context.Context, now time.Time) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Complaint
	for _, c := range r.items {
		if c.SLADeadline == nil || c.IsSLABreached {
			continue
		}
		if c.Status != domain.ComplaintStatusPending && c.Status != domain.ComplaintStatusInProgress {
			continue
		}
		if c.SLADeadline.Before(now) {
			matched = append(matched, *c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SLADeadline.Before(*matched[j].SLADeadline) })
	return matched, nil
}

func (r *fakeComplaintRepo) MarkBreached(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[id]; ok && !current.IsSLABreached {
		current.IsSLABreached = true
	}
	return nil
}

func (r *fakeComplaintRepo) ListOverdueUnescalated(_ context.Context, createdBefore time.Time) ([]domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Complaint
	for _, c := range r.items {
		if !c.IsSLABreached {
			continue
		}
		if c.Status != domain.ComplaintStatusPending && c.Status != domain.ComplaintStatusInProgress {
			continue
		}
		if !c.CreatedAt.Before(createdBefore) {
			continue
		}
		if r.hasUnresolvedEscalation != nil && r.hasUnresolvedEscalation(c.ID) {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

func (r *fakeComplaintRepo) AverageResolutionHours(_ context.Context) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	var count int
	for _, c := range r.items {
		if c.ResolvedAt == nil {
			continue
		}
		total += c.ResolvedAt.Sub(c.CreatedAt).Hours()
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}

func containsStatus(list []domain.ComplaintStatus, status domain.ComplaintStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.ComplaintPriority, priority domain.ComplaintPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}

// fakeEscalationRepo keeps escalations in memory.
type fakeEscalationRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.Escalation
}

func newFakeEscalationRepo() *fakeEscalationRepo {
	return &fakeEscalationRepo{items: map[string]*domain.Escalation{}}
}

func (r *fakeEscalationRepo) Create(_ context.Context, escalation *domain.Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	escalation.ID = fmt.Sprintf("e-%d", r.seq)
	if escalation.CreatedAt.IsZero() {
		escalation.CreatedAt = time.Now()
	}
	stored := *escalation
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeEscalationRepo) Update(_ context.Context, escalation *domain.Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[escalation.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *escalation
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeEscalationRepo) GetByID(_ context.Context, id string) (*domain.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *current
	return &copied, nil
}

func (r *fakeEscalationRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Escalation
	for _, e := range r.items {
		if e.ComplaintID == complaintID {
			matched = append(matched, *e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

func (r *fakeEscalationRepo) ListUnresolved(_ context.Context, _, _ int) ([]domain.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Escalation
	for _, e := range r.items {
		if !e.Resolved {
			matched = append(matched, *e)
		}
	}
	return matched, nil
}

func (r *fakeEscalationRepo) CountUnresolved(ctx context.Context) (int, error) {
	unresolved, err := r.ListUnresolved(ctx, 0, 0)
	return len(unresolved), err
}

func (r *fakeEscalationRepo) HasUnresolved(_ context.Context, complaintID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.items {
		if e.ComplaintID == complaintID && !e.Resolved {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEscalationRepo) hasUnresolvedLocal(complaintID string) bool {
	ok, _ := r.HasUnresolved(context.Background(), complaintID)
	return ok
}

// fakeUserRepo serves accounts and a canned workload ordering.
type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.User
	staff []domain.StaffWorkload
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{items: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("u-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *current
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.User
	for _, u := range r.items {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		matched = append(matched, *u)
	}
	return matched, nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.items {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) ListActiveStaffByWorkload(_ context.Context) ([]domain.StaffWorkload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.StaffWorkload{}, r.staff...), nil
}

// fakeCommentRepo keeps comments in memory.
type fakeCommentRepo struct {
	mu    sync.Mutex
	seq   int
	items []domain.ComplaintComment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.ComplaintComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	comment.ID = fmt.Sprintf("cm-%d", r.seq)
	comment.CreatedAt = time.Now()
	r.items = append(r.items, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByComplaint(_ context.Context, complaintID string, includeInternal bool) ([]domain.ComplaintComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.ComplaintComment
	for _, c := range r.items {
		if c.ComplaintID != complaintID {
			continue
		}
		if c.IsInternal && !includeInternal {
			continue
		}
		matched = append(matched, c)
	}
	return matched, nil
}

// fakeCategoryRepo keeps categories in memory.
type fakeCategoryRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{items: map[string]*domain.Category{}}
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	category.ID = fmt.Sprintf("cat-%d", r.seq)
	category.CreatedAt = time.Now()
	stored := *category
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *category
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *current
	return &copied, nil
}

func (r *fakeCategoryRepo) List(_ context.Context, includeInactive bool) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Category
	for _, c := range r.items {
		if !c.IsActive && !includeInactive {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched, nil
}

// fakePolicyRepo keeps SLA policies in memory.
type fakePolicyRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]*domain.SLAPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{items: map[string]*domain.SLAPolicy{}}
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	policy.ID = fmt.Sprintf("p-%d", r.seq)
	policy.CreatedAt = time.Now()
	policy.UpdatedAt = policy.CreatedAt
	stored := *policy
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakePolicyRepo) Update(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[policy.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *policy
	r.items[stored.ID] = &stored
	return nil
}

func (r *fakePolicyRepo) GetByID(_ context.Context, id string) (*domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *current
	return &copied, nil
}

func (r *fakePolicyRepo) GetActiveByPriority(_ context.Context, priority domain.ComplaintPriority) (*domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.Priority == priority && p.IsActive {
			copied := *p
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) List(_ context.Context, includeInactive bool) ([]domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.SLAPolicy
	for _, p := range r.items {
		if !p.IsActive && !includeInactive {
			continue
		}
		matched = append(matched, *p)
	}
	return matched, nil
}
