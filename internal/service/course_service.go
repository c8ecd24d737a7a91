package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidCourse is returned when a course misses a required field or has negative credits.
var ErrInvalidCourse = errors.New("course requires code, name, instructor and non-negative credits")

// CourseService handles course business logic.
type CourseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	bus         events.Bus
	log         zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(store *repository.Store, bus events.Bus, log zerolog.Logger) *CourseService {
	return &CourseService{
		courses:     store.Courses,
		enrollments: store.Enrollments,
		bus:         bus,
		log:         log.With().Str("component", "course_service").Logger(),
	}
}

// List returns courses ordered by code, optionally filtered by code or name.
func (s *CourseService) List(ctx context.Context, q string) ([]model.Course, error) {
	courses, err := s.courses.List(ctx, model.CourseFilter{NameContains: q})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// Get retrieves a course with the students derived from its enrollments.
func (s *CourseService) Get(ctx context.Context, id uuid.UUID) (*model.CourseDetail, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	students, err := s.enrollments.StudentsOfCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("students of course: %w", err)
	}
	if students == nil {
		students = []model.Student{}
	}

	return &model.CourseDetail{Course: *course, Students: students}, nil
}

func (s *CourseService) Create(ctx context.Context, course *model.Course) error {
	normalizeCourse(course)
	if !course.Valid() {
		return ErrInvalidCourse
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityCourse, model.ActionCreated, course.ID))
	return nil
}

func (s *CourseService) Update(ctx context.Context, course *model.Course) error {
	normalizeCourse(course)
	if !course.Valid() {
		return ErrInvalidCourse
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityCourse, model.ActionUpdated, course.ID))
	return nil
}

// Delete removes a course. Its enrollments are kept with the course
// reference cleared; the number of detached enrollments is returned.
func (s *CourseService) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	detached, err := s.courses.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete course: %w", err)
	}

	s.log.Info().
		Str("course_id", id.String()).
		Int("detached_enrollments", detached).
		Msg("Course deleted")

	change := model.NewChange(model.EntityCourse, model.ActionDeleted, id)
	change.Affected = detached
	s.bus.Publish(ctx, change)
	return detached, nil
}

func normalizeCourse(c *model.Course) {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	c.Instructor = strings.TrimSpace(c.Instructor)
}
