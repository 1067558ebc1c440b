package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// SLAPolicyRepository handles persistence for SLA policies.
type SLAPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	// GetActiveByPriority returns pgx.ErrNoRows when no active policy
	// exists for the priority; callers treat that as "no deadline".
	GetActiveByPriority(ctx context.Context, priority domain.ComplaintPriority) (*domain.SLAPolicy, error)
	List(ctx context.Context, includeInactive bool) ([]domain.SLAPolicy, error)
}

const slaPolicyColumns = `id, name, priority, response_time_hours, resolution_time_hours, is_active, created_at, updated_at`

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository instantiates the repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

func (r *slaPolicyRepository) db(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (name, priority, response_time_hours, resolution_time_hours, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseTimeHours,
		policy.ResolutionTimeHours,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies
        SET name=$1, priority=$2, response_time_hours=$3, resolution_time_hours=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.db(ctx).Exec(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseTimeHours,
		policy.ResolutionTimeHours,
		policy.IsActive,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *slaPolicyRepository) GetActiveByPriority(ctx context.Context, priority domain.ComplaintPriority) (*domain.SLAPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies WHERE priority=$1 AND is_active=TRUE`
	return r.fetchSingle(ctx, query, priority)
}

func (r *slaPolicyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	if err := r.db(ctx).QueryRow(ctx, query, arg).Scan(
		&policy.ID,
		&policy.Name,
		&policy.Priority,
		&policy.ResponseTimeHours,
		&policy.ResolutionTimeHours,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context, includeInactive bool) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies`
	if !includeInactive {
		query += ` WHERE is_active=TRUE`
	}
	query += ` ORDER BY priority ASC`

	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.Name,
			&policy.Priority,
			&policy.ResponseTimeHours,
			&policy.ResolutionTimeHours,
			&policy.IsActive,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}
