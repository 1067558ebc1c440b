package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrAlreadyAssigned is returned when a claim loses the race for an
// unassigned complaint.
var ErrAlreadyAssigned = errors.New("complaint already assigned")

// ComplaintFilter captures listing parameters.
type ComplaintFilter struct {
	StudentID       *string
	AssignedStaffID *string
	Unassigned      bool
	CategoryID      *string
	Statuses        []domain.ComplaintStatus
	Priorities      []domain.ComplaintPriority
	SLABreached     *bool
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	ResolvedFrom    *time.Time
	ResolvedTo      *time.Time
	OrderCreatedAsc bool
	Limit           int
	Offset          int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	Count(ctx context.Context, filter ComplaintFilter) (int, error)

	// Claim atomically assigns staffID and moves the complaint to
	// IN_PROGRESS, guarded by assigned_staff_id IS NULL. Exactly one
	// of two concurrent claimers wins; the loser gets ErrAlreadyAssigned.
	Claim(ctx context.Context, complaintID, staffID string) (*domain.Complaint, error)

	// Assign sets the assignee without touching status; used by the
	// assignment engine on PENDING complaints. A complaint assigned
	// concurrently is reported via ErrAlreadyAssigned.
	Assign(ctx context.Context, complaintID, staffID string) error

	ListPendingUnassigned(ctx context.Context) ([]domain.Complaint, error)
	ListBreachCandidates(ctx context.Context, now time.Time) ([]domain.Complaint, error)
	MarkBreached(ctx context.Context, id string) error
	ListOverdueUnescalated(ctx context.Context, createdBefore time.Time) ([]domain.Complaint, error)
	AverageResolutionHours(ctx context.Context) (float64, error)
}

const complaintColumns = `id, reference_key, student_id, assigned_staff_id, category_id,
               title, description, status, priority, solution,
               sla_deadline, is_sla_breached, created_at, updated_at, resolved_at`

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

func (r *complaintRepository) db(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (reference_key, student_id, assigned_staff_id, category_id, title, description,
            status, priority, solution, sla_deadline, is_sla_breached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		complaint.ReferenceKey,
		complaint.StudentID,
		complaint.AssignedStaff,
		complaint.CategoryID,
		complaint.Title,
		complaint.Description,
		complaint.Status,
		complaint.Priority,
		complaint.Solution,
		complaint.SLADeadline,
		complaint.IsSLABreached,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	// student_id, created_at and sla_deadline are deliberately not in
	// the SET list: immutable after creation.
	const query = `
        UPDATE complaints SET assigned_staff_id=$1, category_id=$2, title=$3, description=$4,
            status=$5, priority=$6, solution=$7, is_sla_breached=$8, resolved_at=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.db(ctx).Exec(ctx, query,
		complaint.AssignedStaff,
		complaint.CategoryID,
		complaint.Title,
		complaint.Description,
		complaint.Status,
		complaint.Priority,
		complaint.Solution,
		complaint.IsSLABreached,
		complaint.ResolvedAt,
		complaint.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := scanComplaint(r.db(ctx).QueryRow(ctx, query, args...), &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) Claim(ctx context.Context, complaintID, staffID string) (*domain.Complaint, error) {
	query := `
        UPDATE complaints
        SET assigned_staff_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3 AND assigned_staff_id IS NULL
        RETURNING ` + complaintColumns
	var complaint domain.Complaint
	err := scanComplaint(r.db(ctx).QueryRow(ctx, query, staffID, domain.ComplaintStatusInProgress, complaintID), &complaint)
	if err == nil {
		return &complaint, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// zero rows: distinguish missing complaint from a lost race
	if _, getErr := r.GetByID(ctx, complaintID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyAssigned
}

func (r *complaintRepository) Assign(ctx context.Context, complaintID, staffID string) error {
	const query = `
        UPDATE complaints SET assigned_staff_id=$1, updated_at=NOW()
        WHERE id=$2 AND assigned_staff_id IS NULL`
	cmd, err := r.db(ctx).Exec(ctx, query, staffID, complaintID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyAssigned
	}
	return nil
}

func (r *complaintRepository) ListPendingUnassigned(ctx context.Context) ([]domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + `
        FROM complaints
        WHERE status=$1 AND assigned_staff_id IS NULL
        ORDER BY created_at ASC`
	rows, err := r.db(ctx).Query(ctx, query, domain.ComplaintStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) ListBreachCandidates(ctx context.Context, now time.Time) ([]domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + `
        FROM complaints
        WHERE sla_deadline < $1 AND is_sla_breached=FALSE AND status IN ($2,$3)
        ORDER BY sla_deadline ASC`
	rows, err := r.db(ctx).Query(ctx, query, now, domain.ComplaintStatusPending, domain.ComplaintStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) MarkBreached(ctx context.Context, id string) error {
	const query = `
        UPDATE complaints SET is_sla_breached=TRUE, updated_at=NOW()
        WHERE id=$1 AND is_sla_breached=FALSE`
	_, err := r.db(ctx).Exec(ctx, query, id)
	return err
}

func (r *complaintRepository) ListOverdueUnescalated(ctx context.Context, createdBefore time.Time) ([]domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + `
        FROM complaints c
        WHERE c.is_sla_breached=TRUE AND c.status IN ($1,$2) AND c.created_at < $3
          AND NOT EXISTS (
              SELECT 1 FROM escalations e
              WHERE e.complaint_id = c.id AND e.resolved = FALSE
          )
        ORDER BY c.created_at ASC`
	rows, err := r.db(ctx).Query(ctx, query, domain.ComplaintStatusPending, domain.ComplaintStatusInProgress, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) AverageResolutionHours(ctx context.Context) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM resolved_at - created_at) / 3600.0), 0)
        FROM complaints WHERE resolved_at IS NOT NULL`
	var avg float64
	if err := r.db(ctx).QueryRow(ctx, query).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses, args := buildComplaintClauses(filter)

	order := "ORDER BY created_at DESC"
	if filter.OrderCreatedAsc {
		order = "ORDER BY created_at ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s %s LIMIT %d OFFSET %d`,
		complaintColumns, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) Count(ctx context.Context, filter ComplaintFilter) (int, error) {
	clauses, args := buildComplaintClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM complaints WHERE %s`, strings.Join(clauses, " AND "))

	var count int
	if err := r.db(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildComplaintClauses(filter ComplaintFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		clauses = append(clauses, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if filter.AssignedStaffID != nil {
		args = append(args, *filter.AssignedStaffID)
		clauses = append(clauses, fmt.Sprintf("assigned_staff_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_staff_id IS NULL")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SLABreached != nil {
		args = append(args, *filter.SLABreached)
		clauses = append(clauses, fmt.Sprintf("is_sla_breached=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.ResolvedFrom != nil {
		args = append(args, *filter.ResolvedFrom)
		clauses = append(clauses, fmt.Sprintf("resolved_at >= $%d", len(args)))
	}
	if filter.ResolvedTo != nil {
		args = append(args, *filter.ResolvedTo)
		clauses = append(clauses, fmt.Sprintf("resolved_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	return clauses, args
}

func scanComplaint(row pgx.Row, complaint *domain.Complaint) error {
	return row.Scan(
		&complaint.ID,
		&complaint.ReferenceKey,
		&complaint.StudentID,
		&complaint.AssignedStaff,
		&complaint.CategoryID,
		&complaint.Title,
		&complaint.Description,
		&complaint.Status,
		&complaint.Priority,
		&complaint.Solution,
		&complaint.SLADeadline,
		&complaint.IsSLABreached,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.ResolvedAt,
	)
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := scanComplaint(rows, &complaint); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
