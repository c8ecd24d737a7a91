package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PassingGrade is the lowest grade counted as a pass.
const PassingGrade = 5.0

// Enrollment links one student to one course for a term. Both references are
// optional: deleting a course leaves its enrollments without a course.
type Enrollment struct {
	ID         uuid.UUID  `json:"id"`
	EnrolledAt time.Time  `json:"enrolled_at"`
	Grade      *float64   `json:"grade"`
	Term       string     `json:"term"`
	StudentID  *uuid.UUID `json:"student_id"`
	CourseID   *uuid.UUID `json:"course_id"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Passing reports whether the enrollment has a grade at or above PassingGrade.
// Ungraded enrollments never pass.
func (e *Enrollment) Passing() bool {
	return e.Grade != nil && *e.Grade >= PassingGrade
}

// EnrollmentDetail is an enrollment with its student and course resolved at query time.
type EnrollmentDetail struct {
	Enrollment
	Student *Student `json:"student"`
	Course  *Course  `json:"course"`
}

// EnrollmentFilter narrows an enrollment listing. Results are always ordered
// by enrollment date, newest first.
type EnrollmentFilter struct {
	StudentID *uuid.UUID
	CourseID  *uuid.UUID
	// StudentNameContains is a case-sensitive substring match on the student's name.
	StudentNameContains string
	Term                string
	PassingOnly         bool
}

// Matches reports whether d satisfies every set criterion of f.
func (f EnrollmentFilter) Matches(d *EnrollmentDetail) bool {
	if f.StudentID != nil && (d.StudentID == nil || *d.StudentID != *f.StudentID) {
		return false
	}
	if f.CourseID != nil && (d.CourseID == nil || *d.CourseID != *f.CourseID) {
		return false
	}
	if f.StudentNameContains != "" && (d.Student == nil || !strings.Contains(d.Student.Name, f.StudentNameContains)) {
		return false
	}
	if f.Term != "" && d.Term != f.Term {
		return false
	}
	if f.PassingOnly && !d.Passing() {
		return false
	}
	return true
}

// EnrollmentRequest is the payload for creating or updating an enrollment.
type EnrollmentRequest struct {
	StudentID *string  `json:"student_id" binding:"omitempty,uuid"`
	CourseID  *string  `json:"course_id" binding:"omitempty,uuid"`
	Term      string   `json:"term" binding:"required,notblank,max=20"`
	Grade     *float64 `json:"grade" binding:"omitempty,min=0,max=10"`
}
