package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Course represents an offered course.
type Course struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Credits    int       `json:"credits"`
	Instructor string    `json:"instructor"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Valid reports whether all required fields are present.
func (c *Course) Valid() bool {
	return strings.TrimSpace(c.Code) != "" &&
		strings.TrimSpace(c.Name) != "" &&
		strings.TrimSpace(c.Instructor) != "" &&
		c.Credits >= 0
}

// CourseDetail is a course with the students reached through its enrollments.
type CourseDetail struct {
	Course
	Students []Student `json:"students"`
}

// CourseFilter narrows a course listing.
type CourseFilter struct {
	// NameContains is a case-sensitive substring match on code or name.
	NameContains string
}

// CourseRequest is the payload for creating or updating a course.
type CourseRequest struct {
	Code       string `json:"code" binding:"required,notblank,max=20"`
	Name       string `json:"name" binding:"required,notblank,max=150"`
	Credits    *int   `json:"credits" binding:"required,min=0,max=60"`
	Instructor string `json:"instructor" binding:"required,notblank,max=100"`
}
