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
)

// ErrInvalidEnrollment is returned for a blank term or a grade outside 0–10.
var ErrInvalidEnrollment = errors.New("enrollment requires a term and a grade between 0 and 10")

// EnrollmentService handles enrollment queries and mutations.
type EnrollmentService struct {
	enrollments repository.EnrollmentRepository
	bus         events.Bus
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(store *repository.Store, bus events.Bus) *EnrollmentService {
	return &EnrollmentService{enrollments: store.Enrollments, bus: bus}
}

// List returns the enrollments matching filter, newest first, with their
// student and course resolved against the current records.
func (s *EnrollmentService) List(ctx context.Context, filter model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	rows, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if rows == nil {
		rows = []model.EnrollmentDetail{}
	}
	return rows, nil
}

// ListAll returns every enrollment, newest first.
func (s *EnrollmentService) ListAll(ctx context.Context) ([]model.EnrollmentDetail, error) {
	return s.List(ctx, model.EnrollmentFilter{})
}

// ListPassing returns the graded enrollments at or above model.PassingGrade.
func (s *EnrollmentService) ListPassing(ctx context.Context) ([]model.EnrollmentDetail, error) {
	return s.List(ctx, model.EnrollmentFilter{PassingOnly: true})
}

func (s *EnrollmentService) Get(ctx context.Context, id uuid.UUID) (*model.EnrollmentDetail, error) {
	return s.enrollments.GetByID(ctx, id)
}

// Create stamps the enrollment date and inserts the enrollment.
func (s *EnrollmentService) Create(ctx context.Context, e *model.Enrollment) error {
	if err := validateEnrollment(e); err != nil {
		return err
	}
	if err := s.enrollments.Create(ctx, e); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityEnrollment, model.ActionCreated, e.ID))
	return nil
}

// Update changes the term, grade and references. The enrollment date is kept.
func (s *EnrollmentService) Update(ctx context.Context, e *model.Enrollment) error {
	if err := validateEnrollment(e); err != nil {
		return err
	}
	if err := s.enrollments.Update(ctx, e); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityEnrollment, model.ActionUpdated, e.ID))
	return nil
}

func (s *EnrollmentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.enrollments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	s.bus.Publish(ctx, model.NewChange(model.EntityEnrollment, model.ActionDeleted, id))
	return nil
}

func validateEnrollment(e *model.Enrollment) error {
	e.Term = strings.TrimSpace(e.Term)
	if e.Term == "" {
		return ErrInvalidEnrollment
	}
	if e.Grade != nil && (*e.Grade < 0 || *e.Grade > 10) {
		return ErrInvalidEnrollment
	}
	return nil
}
