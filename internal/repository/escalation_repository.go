package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EscalationRepository handles persistence for escalations.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.Escalation) error
	Update(ctx context.Context, escalation *domain.Escalation) error
	GetByID(ctx context.Context, id string) (*domain.Escalation, error)
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.Escalation, error)
	ListUnresolved(ctx context.Context, limit, offset int) ([]domain.Escalation, error)
	CountUnresolved(ctx context.Context) (int, error)
	HasUnresolved(ctx context.Context, complaintID string) (bool, error)
}

const escalationColumns = `id, complaint_id, escalated_by, escalated_to, reason, notes, resolved, created_at, resolved_at`

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) db(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        INSERT INTO escalations (complaint_id, escalated_by, escalated_to, reason, notes, resolved)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db(ctx).QueryRow(ctx, query,
		escalation.ComplaintID,
		escalation.EscalatedBy,
		escalation.EscalatedTo,
		escalation.Reason,
		escalation.Notes,
		escalation.Resolved,
	).Scan(&escalation.ID, &escalation.CreatedAt)
}

func (r *escalationRepository) Update(ctx context.Context, escalation *domain.Escalation) error {
	const query = `
        UPDATE escalations SET escalated_to=$1, notes=$2, resolved=$3, resolved_at=$4
        WHERE id=$5`
	cmd, err := r.db(ctx).Exec(ctx, query,
		escalation.EscalatedTo,
		escalation.Notes,
		escalation.Resolved,
		escalation.ResolvedAt,
		escalation.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *escalationRepository) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE id=$1`
	var escalation domain.Escalation
	if err := scanEscalation(r.db(ctx).QueryRow(ctx, query, id), &escalation); err != nil {
		return nil, err
	}
	return &escalation, nil
}

func (r *escalationRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.Escalation, error) {
	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE complaint_id=$1 ORDER BY created_at DESC`
	rows, err := r.db(ctx).Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalations(rows)
}

func (r *escalationRepository) ListUnresolved(ctx context.Context, limit, offset int) ([]domain.Escalation, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM escalations WHERE resolved=FALSE ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		escalationColumns, limit, offset)
	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscalations(rows)
}

func (r *escalationRepository) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM escalations WHERE resolved=FALSE`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *escalationRepository) HasUnresolved(ctx context.Context, complaintID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM escalations WHERE complaint_id=$1 AND resolved=FALSE)`
	var exists bool
	if err := r.db(ctx).QueryRow(ctx, query, complaintID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanEscalation(row pgx.Row, escalation *domain.Escalation) error {
	return row.Scan(
		&escalation.ID,
		&escalation.ComplaintID,
		&escalation.EscalatedBy,
		&escalation.EscalatedTo,
		&escalation.Reason,
		&escalation.Notes,
		&escalation.Resolved,
		&escalation.CreatedAt,
		&escalation.ResolvedAt,
	)
}

func scanEscalations(rows pgx.Rows) ([]domain.Escalation, error) {
	var result []domain.Escalation
	for rows.Next() {
		var escalation domain.Escalation
		if err := scanEscalation(rows, &escalation); err != nil {
			return nil, err
		}
		result = append(result, escalation)
	}
	return result, rows.Err()
}
