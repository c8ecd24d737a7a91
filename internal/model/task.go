package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is an entry in the standalone to-do list. It is unrelated to the
// enrollment records.
type Task struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the task has a non-blank title.
func (t *Task) Valid() bool {
	return strings.TrimSpace(t.Title) != ""
}

// TaskFilter narrows a task listing. Results are ordered by title.
type TaskFilter struct {
	HideCompleted bool
}

// CreateTaskRequest is the payload for adding a task.
type CreateTaskRequest struct {
	Title string `json:"title" binding:"required,notblank,max=200"`
}

// UpdateTaskRequest is the payload for editing a task.
type UpdateTaskRequest struct {
	Title     string `json:"title" binding:"required,notblank,max=200"`
	Completed *bool  `json:"completed" binding:"required"`
}
