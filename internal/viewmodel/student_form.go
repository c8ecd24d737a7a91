package viewmodel

import (
	"context"
	"errors"
	"time"

	"github.com/cursolab/campus-backend/internal/model"
)

// ErrInvalidForm is returned by Save when the form is not submittable.
var ErrInvalidForm = errors.New("student form is not valid")

// StudentCreator inserts a student.
type StudentCreator interface {
	Create(ctx context.Context, s *model.Student) error
}

// StudentForm collects the fields of a new student.
type StudentForm struct {
	Name      string
	Email     string
	BirthDate time.Time

	creator StudentCreator
}

// NewStudentForm returns an empty form whose birth date defaults to today.
func NewStudentForm(creator StudentCreator) *StudentForm {
	return &StudentForm{
		BirthDate: model.NewDate(time.Now()).Time,
		creator:   creator,
	}
}

// Valid reports whether the form can be submitted.
func (f *StudentForm) Valid() bool {
	return model.ValidStudentContact(f.Name, f.Email)
}

// Save inserts exactly one student built from the form. An invalid form
// returns ErrInvalidForm without reaching the store.
func (f *StudentForm) Save(ctx context.Context) (*model.Student, error) {
	if !f.Valid() {
		return nil, ErrInvalidForm
	}

	s := &model.Student{
		Name:      f.Name,
		Email:     f.Email,
		BirthDate: f.BirthDate,
	}
	if err := f.creator.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
