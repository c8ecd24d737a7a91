package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity names a kind of stored record.
type Entity string

const (
	EntityStudent    Entity = "student"
	EntityCourse     Entity = "course"
	EntityEnrollment Entity = "enrollment"
	EntityTask       Entity = "task"
)

// ChangeAction names the mutation that produced a Change.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// Change is published after every successful mutation so that views can
// re-run their queries.
type Change struct {
	Entity Entity       `json:"entity"`
	Action ChangeAction `json:"action"`
	ID     uuid.UUID    `json:"id"`
	// Affected counts dependent enrollments removed or detached by a delete.
	Affected int       `json:"affected,omitempty"`
	At       time.Time `json:"at"`
}

// NewChange stamps a change with the current time.
func NewChange(entity Entity, action ChangeAction, id uuid.UUID) Change {
	return Change{Entity: entity, Action: action, ID: id, At: time.Now().UTC()}
}

// TouchesEnrollments reports whether the change can alter any enrollment listing.
func (c Change) TouchesEnrollments() bool {
	return c.Entity == EntityEnrollment || c.Entity == EntityStudent || c.Entity == EntityCourse
}
