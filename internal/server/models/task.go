package models

import "time"

type Task struct {
	ID          string
	OwnerID     string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch carries the sanitized fields of a task update.
type TaskPatch struct {
	Description *string
	Completed   *bool
}

// TaskFilter selects and orders a page of one owner's tasks.
type TaskFilter struct {
	Completed *bool
	SortBy    string
	Desc      bool
	Limit     int
	Skip      int
}
