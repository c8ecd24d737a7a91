package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Student represents a learner.
type Student struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate time.Time `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Valid reports whether the student carries a name and an email containing "@".
func (s *Student) Valid() bool {
	return ValidStudentContact(s.Name, s.Email)
}

// ValidStudentContact is the single validity rule shared by the form and the service.
func ValidStudentContact(name, email string) bool {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	return name != "" && email != "" && strings.Contains(email, "@")
}

// StudentSummary is a student list row with its derived course count.
type StudentSummary struct {
	Student
	CourseCount int `json:"course_count"`
}

// StudentDetail is a student with the courses and enrollments reached through its enrollments.
type StudentDetail struct {
	Student
	Courses     []Course           `json:"courses"`
	Enrollments []EnrollmentDetail `json:"enrollments"`
}

// StudentFilter narrows a student listing.
type StudentFilter struct {
	// NameContains is a case-sensitive substring match on the name.
	NameContains string
	Limit        int
	Offset       int
}

// CreateStudentRequest is the payload for creating a new student.
type CreateStudentRequest struct {
	Name      string `json:"name" binding:"required,notblank,max=100"`
	Email     string `json:"email" binding:"required,contains=@,max=255"`
	BirthDate *Date  `json:"birth_date"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	Name      string `json:"name" binding:"required,notblank,max=100"`
	Email     string `json:"email" binding:"required,contains=@,max=255"`
	BirthDate *Date  `json:"birth_date" binding:"required"`
}
