package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// UserRepository handles persistence for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)

	// ListActiveStaffByWorkload returns active staff ordered by count
	// of assigned complaints in {PENDING, IN_PROGRESS} ascending, ties
	// broken by id. The assignment engine consumes this ordering once
	// per batch.
	ListActiveStaffByWorkload(ctx context.Context) ([]domain.StaffWorkload, error)
}

// UserFilter defines query params for account listing.
type UserFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

const userColumns = `id, name, email, password_hash, role, phone, department, student_external_id, active_flag, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates the repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) db(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, phone, department, student_external_id, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Phone,
		user.Department,
		user.StudentID,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users
        SET name=$1, email=$2, password_hash=$3, role=$4, phone=$5, department=$6, student_external_id=$7,
            active_flag=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.db(ctx).Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Phone,
		user.Department,
		user.StudentID,
		user.Active,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.db(ctx).QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) ListActiveStaffByWorkload(ctx context.Context) ([]domain.StaffWorkload, error) {
	const query = `
        SELECT u.id,
               COUNT(c.id) FILTER (WHERE c.status IN ($1,$2)) AS workload
        FROM users u
        LEFT JOIN complaints c ON c.assigned_staff_id = u.id
        WHERE u.role = $3 AND u.active_flag = TRUE
        GROUP BY u.id
        ORDER BY workload ASC, u.id ASC`
	rows, err := r.db(ctx).Query(ctx, query,
		domain.ComplaintStatusPending,
		domain.ComplaintStatusInProgress,
		domain.RoleStaff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffWorkload
	for rows.Next() {
		var entry domain.StaffWorkload
		if err := rows.Scan(&entry.StaffID, &entry.Workload); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.Department,
		&user.StudentID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
