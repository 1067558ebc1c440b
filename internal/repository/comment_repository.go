package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CommentRepository handles persistence for complaint comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.ComplaintComment) error
	// ListByComplaint returns comments in thread order. Internal
	// comments are filtered out unless includeInternal is set.
	ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]domain.ComplaintComment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository instantiates the repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) db(ctx context.Context) Querier {
	return querierFrom(ctx, r.pool)
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.ComplaintComment) error {
	const query = `
        INSERT INTO complaint_comments (complaint_id, author_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.db(ctx).QueryRow(ctx, query,
		comment.ComplaintID,
		comment.AuthorID,
		comment.Content,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]domain.ComplaintComment, error) {
	query := `
        SELECT id, complaint_id, author_id, content, is_internal, created_at
        FROM complaint_comments WHERE complaint_id=$1`
	if !includeInternal {
		query += ` AND is_internal=FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db(ctx).Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintComment
	for rows.Next() {
		var comment domain.ComplaintComment
		if err := rows.Scan(
			&comment.ID,
			&comment.ComplaintID,
			&comment.AuthorID,
			&comment.Content,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
