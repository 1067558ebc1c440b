package domain

import "time"

// Category groups complaints by topic.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}
