// Package seed loads fixture data into a store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/cursolab/campus-backend/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is the YAML document accepted by Apply.
type Fixture struct {
	Students    []StudentFixture    `yaml:"students"`
	Courses     []CourseFixture     `yaml:"courses"`
	Enrollments []EnrollmentFixture `yaml:"enrollments"`
	Tasks       []TaskFixture       `yaml:"tasks"`
}

// StudentFixture describes a student. Key is how enrollments refer to it.
type StudentFixture struct {
	Key       string `yaml:"key"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	BirthDate string `yaml:"birth_date"`
}

type CourseFixture struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Credits    int    `yaml:"credits"`
	Instructor string `yaml:"instructor"`
}

// EnrollmentFixture links a student key and a course code. Either may be
// empty to create an enrollment without that reference.
type EnrollmentFixture struct {
	Student string   `yaml:"student"`
	Course  string   `yaml:"course"`
	Term    string   `yaml:"term"`
	Grade   *float64 `yaml:"grade"`
}

type TaskFixture struct {
	Title     string `yaml:"title"`
	Completed bool   `yaml:"completed"`
}

// Summary counts the records Apply inserted.
type Summary struct {
	Students    int
	Courses     int
	Enrollments int
	Tasks       int
}

// Default returns the built-in sample fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &fx, nil
}

// Apply inserts the fixture through the services so the usual validation
// applies. Courses that already exist (by code) and students that already
// exist (same name and email) are reused rather than duplicated; enrollments
// and tasks are always inserted.
func Apply(ctx context.Context, store *repository.Store, bus events.Bus, log zerolog.Logger, fx *Fixture) (Summary, error) {
	var sum Summary

	students := service.NewStudentService(store, bus, log)
	courses := service.NewCourseService(store, bus, log)
	enrollments := service.NewEnrollmentService(store, bus)
	tasks := service.NewTaskService(store, bus)

	studentIDs := make(map[string]uuid.UUID, len(fx.Students))
	for _, sf := range fx.Students {
		if sf.Key == "" {
			return sum, fmt.Errorf("student %q has no key", sf.Name)
		}
		if _, dup := studentIDs[sf.Key]; dup {
			return sum, fmt.Errorf("duplicate student key %q", sf.Key)
		}

		if id, ok, err := findStudent(ctx, store, sf.Name, sf.Email); err != nil {
			return sum, err
		} else if ok {
			studentIDs[sf.Key] = id
			continue
		}

		st := &model.Student{Name: sf.Name, Email: sf.Email}
		if sf.BirthDate != "" {
			t, err := time.Parse(model.DateLayout, sf.BirthDate)
			if err != nil {
				return sum, fmt.Errorf("student %q: birth_date: %w", sf.Key, err)
			}
			st.BirthDate = t
		}
		if err := students.Create(ctx, st); err != nil {
			return sum, fmt.Errorf("student %q: %w", sf.Key, err)
		}
		studentIDs[sf.Key] = st.ID
		sum.Students++
	}

	courseIDs := make(map[string]uuid.UUID, len(fx.Courses))
	for _, cf := range fx.Courses {
		existing, err := store.Courses.GetByCode(ctx, cf.Code)
		switch {
		case err == nil:
			courseIDs[cf.Code] = existing.ID
			continue
		case !errors.Is(err, repository.ErrNotFound):
			return sum, fmt.Errorf("course %q: %w", cf.Code, err)
		}

		c := &model.Course{Code: cf.Code, Name: cf.Name, Credits: cf.Credits, Instructor: cf.Instructor}
		if err := courses.Create(ctx, c); err != nil {
			return sum, fmt.Errorf("course %q: %w", cf.Code, err)
		}
		courseIDs[c.Code] = c.ID
		sum.Courses++
	}

	for i, ef := range fx.Enrollments {
		e := &model.Enrollment{Term: ef.Term, Grade: ef.Grade}
		if ef.Student != "" {
			id, ok := studentIDs[ef.Student]
			if !ok {
				return sum, fmt.Errorf("enrollment %d: unknown student key %q", i, ef.Student)
			}
			e.StudentID = &id
		}
		if ef.Course != "" {
			id, ok := courseIDs[ef.Course]
			if !ok {
				return sum, fmt.Errorf("enrollment %d: unknown course code %q", i, ef.Course)
			}
			e.CourseID = &id
		}
		if err := enrollments.Create(ctx, e); err != nil {
			return sum, fmt.Errorf("enrollment %d: %w", i, err)
		}
		sum.Enrollments++
	}

	for _, tf := range fx.Tasks {
		t, err := tasks.Create(ctx, tf.Title)
		if err != nil {
			return sum, fmt.Errorf("task %q: %w", tf.Title, err)
		}
		if tf.Completed {
			if _, err := tasks.Toggle(ctx, t.ID); err != nil {
				return sum, fmt.Errorf("task %q: %w", tf.Title, err)
			}
		}
		sum.Tasks++
	}

	return sum, nil
}

func findStudent(ctx context.Context, store *repository.Store, name, email string) (uuid.UUID, bool, error) {
	rows, _, err := store.Students.List(ctx, model.StudentFilter{NameContains: name})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("look up student %q: %w", name, err)
	}
	for _, r := range rows {
		if r.Name == name && r.Email == email {
			return r.ID, true, nil
		}
	}
	return uuid.Nil, false, nil
}
