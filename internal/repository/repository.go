package repository

import (
	"context"
	"errors"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateCourseCode = errors.New("course with this code already exists")
	ErrDuplicateEmail      = errors.New("operator with this email already exists")
	ErrReferenceNotFound   = errors.New("referenced student or course does not exist")
)

// StudentRepository handles student data access.
type StudentRepository interface {
	// List returns one page of students ordered by name, plus the total match count.
	List(ctx context.Context, filter model.StudentFilter) ([]model.StudentSummary, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	// Delete removes the student and, in the same transaction, every
	// enrollment that references it. It returns how many enrollments went
	// with it.
	Delete(ctx context.Context, id uuid.UUID) (int, error)
}

// CourseRepository handles course data access.
type CourseRepository interface {
	List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	Create(ctx context.Context, c *model.Course) error
	Update(ctx context.Context, c *model.Course) error
	// Delete removes the course and, in the same transaction, clears the
	// course reference on every enrollment that pointed at it. Those
	// enrollments are kept. It returns how many were detached.
	Delete(ctx context.Context, id uuid.UUID) (int, error)
}

// EnrollmentRepository handles enrollment data access.
type EnrollmentRepository interface {
	// List returns matching enrollments, newest first, with their student and
	// course resolved at query time.
	List(ctx context.Context, filter model.EnrollmentFilter) ([]model.EnrollmentDetail, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.EnrollmentDetail, error)
	Create(ctx context.Context, e *model.Enrollment) error
	Update(ctx context.Context, e *model.Enrollment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CoursesOfStudent walks the student's enrollments and returns each
	// referenced course once.
	CoursesOfStudent(ctx context.Context, studentID uuid.UUID) ([]model.Course, error)
	// StudentsOfCourse walks the course's enrollments and returns each
	// referenced student once.
	StudentsOfCourse(ctx context.Context, courseID uuid.UUID) ([]model.Student, error)
}

// TaskRepository handles to-do task data access.
type TaskRepository interface {
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, t *model.Task) error
	Update(ctx context.Context, t *model.Task) error
	// Toggle flips the completion flag in a single atomic step and returns
	// the task as stored afterwards.
	Toggle(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OperatorRepository handles operator account data access.
type OperatorRepository interface {
	GetByID(ctx context.Context, id int) (*model.Operator, error)
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
	Create(ctx context.Context, o *model.Operator) error
}

// DashboardRepository computes read-only aggregates across the other tables.
type DashboardRepository interface {
	Counts(ctx context.Context) (*model.DashboardCounts, error)
	// TermStats returns per-term figures for the latest terms, newest term first.
	TermStats(ctx context.Context, limit int) ([]model.TermStats, error)
}

// Store bundles the repositories of one backing store.
type Store struct {
	Students    StudentRepository
	Courses     CourseRepository
	Enrollments EnrollmentRepository
	Tasks       TaskRepository
	Operators   OperatorRepository
	Dashboard   DashboardRepository
}

// uniqueCourses keeps the first occurrence of every course.
func uniqueCourses(in []model.Course) []model.Course {
	seen := make(map[uuid.UUID]struct{}, len(in))
	out := make([]model.Course, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// uniqueStudents keeps the first occurrence of every student.
func uniqueStudents(in []model.Student) []model.Student {
	seen := make(map[uuid.UUID]struct{}, len(in))
	out := make([]model.Student, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
