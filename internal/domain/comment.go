package domain

import "time"

// ComplaintComment is a threaded note on a complaint. Internal
// comments are visible to staff and admins only.
type ComplaintComment struct {
	ID          string
	ComplaintID string
	AuthorID    *string
	Content     string
	IsInternal  bool
	CreatedAt   time.Time
}
