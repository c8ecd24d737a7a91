package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/cursolab/campus-backend/internal/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidStudent is returned when a student lacks a name or a valid email.
var ErrInvalidStudent = errors.New("student requires a name and an email containing @")

// StudentService handles student business logic.
type StudentService struct {
	students    repository.StudentRepository
	enrollments repository.EnrollmentRepository
	bus         events.Bus
	log         zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(store *repository.Store, bus events.Bus, log zerolog.Logger) *StudentService {
	return &StudentService{
		students:    store.Students,
		enrollments: store.Enrollments,
		bus:         bus,
		log:         log.With().Str("component", "student_service").Logger(),
	}
}

// List returns one page of students whose name contains q, with their course counts.
func (s *StudentService) List(ctx context.Context, q string, page, perPage int) ([]model.StudentSummary, *response.Pagination, error) {
	p := response.NewPagination(page, perPage, 0)

	rows, total, err := s.students.List(ctx, model.StudentFilter{
		NameContains: q,
		Limit:        p.PerPage,
		Offset:       p.Offset(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list students: %w", err)
	}
	if rows == nil {
		rows = []model.StudentSummary{}
	}

	return rows, response.NewPagination(p.Page, p.PerPage, total), nil
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return s.students.GetByID(ctx, id)
}

// Get retrieves a student with the courses and enrollments derived from its enrollments.
func (s *StudentService) Get(ctx context.Context, id uuid.UUID) (*model.StudentDetail, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	courses, err := s.enrollments.CoursesOfStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("courses of student: %w", err)
	}
	enrollments, err := s.enrollments.List(ctx, model.EnrollmentFilter{StudentID: &id})
	if err != nil {
		return nil, fmt.Errorf("enrollments of student: %w", err)
	}
	if courses == nil {
		courses = []model.Course{}
	}
	if enrollments == nil {
		enrollments = []model.EnrollmentDetail{}
	}

	return &model.StudentDetail{Student: *student, Courses: courses, Enrollments: enrollments}, nil
}

// Create validates and inserts a new student.
func (s *StudentService) Create(ctx context.Context, student *model.Student) error {
	normalizeStudent(student)
	if !student.Valid() {
		return ErrInvalidStudent
	}
	if err := s.students.Create(ctx, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityStudent, model.ActionCreated, student.ID))
	return nil
}

// Update validates and saves a student's details.
func (s *StudentService) Update(ctx context.Context, student *model.Student) error {
	normalizeStudent(student)
	if !student.Valid() {
		return ErrInvalidStudent
	}
	if err := s.students.Update(ctx, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityStudent, model.ActionUpdated, student.ID))
	return nil
}

// Delete removes a student together with all of its enrollments and
// returns how many enrollments were removed.
func (s *StudentService) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	removed, err := s.students.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}

	s.log.Info().
		Str("student_id", id.String()).
		Int("removed_enrollments", removed).
		Msg("Student deleted")

	change := model.NewChange(model.EntityStudent, model.ActionDeleted, id)
	change.Affected = removed
	s.bus.Publish(ctx, change)
	return removed, nil
}

func normalizeStudent(st *model.Student) {
	st.Name = strings.TrimSpace(st.Name)
	st.Email = strings.TrimSpace(st.Email)
}
