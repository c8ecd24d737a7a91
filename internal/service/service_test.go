package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cursolab/campus-backend/internal/config"
	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/rs/zerolog"
)

type testEnv struct {
	store       *repository.Store
	bus         *events.LocalBus
	changes     []model.Change
	students    *StudentService
	courses     *CourseService
	enrollments *EnrollmentService
	tasks       *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: repository.NewMemoryStore(), bus: events.NewLocalBus()}
	env.bus.Subscribe(func(c model.Change) { env.changes = append(env.changes, c) })

	log := zerolog.Nop()
	env.students = NewStudentService(env.store, env.bus, log)
	env.courses = NewCourseService(env.store, env.bus, log)
	env.enrollments = NewEnrollmentService(env.store, env.bus)
	env.tasks = NewTaskService(env.store, env.bus)
	return env
}

func (env *testEnv) lastChange(t *testing.T) model.Change {
	t.Helper()
	if len(env.changes) == 0 {
		t.Fatal("no change published")
	}
	return env.changes[len(env.changes)-1]
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func grade(v float64) *float64 { return &v }

func TestStudentCreateValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bad := []model.Student{
		{Name: "", Email: "a@b.c"},
		{Name: "  ", Email: "a@b.c"},
		{Name: "Ana", Email: ""},
		{Name: "Ana", Email: "ana.uni.edu"},
	}
	for _, st := range bad {
		st := st
		if err := env.students.Create(ctx, &st); !errors.Is(err, ErrInvalidStudent) {
			t.Errorf("Create(%q, %q) err = %v, want ErrInvalidStudent", st.Name, st.Email, err)
		}
	}
	if len(env.changes) != 0 {
		t.Fatalf("invalid creates published %d changes", len(env.changes))
	}

	ana := model.Student{Name: " Ana García ", Email: "ana.garcia@uni.edu"}
	mustNil(t, env.students.Create(ctx, &ana))
	if ana.Name != "Ana García" {
		t.Errorf("name not trimmed: %q", ana.Name)
	}
	if c := env.lastChange(t); c.Entity != model.EntityStudent || c.Action != model.ActionCreated || c.ID != ana.ID {
		t.Errorf("change = %+v", c)
	}
}

func TestStudentListPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"Ana", "Berta", "Carlos"} {
		st := model.Student{Name: name, Email: name + "@uni.edu"}
		mustNil(t, env.students.Create(ctx, &st))
	}

	rows, p, err := env.students.List(ctx, "", 2, 2)
	mustNil(t, err)
	if len(rows) != 1 || rows[0].Name != "Carlos" {
		t.Fatalf("page 2 = %+v", rows)
	}
	if p.TotalItems != 3 || p.TotalPages != 2 || p.Page != 2 {
		t.Fatalf("pagination = %+v", p)
	}

	rows, p, err = env.students.List(ctx, "zzz", 0, 0)
	mustNil(t, err)
	if rows == nil || len(rows) != 0 || p.PerPage != 20 {
		t.Fatalf("empty search = %v, %+v", rows, p)
	}
}

// Ana enrolls in CAL101 for 2026-1 with 8.5: her derived courses hold
// CAL101 exactly once and the passing query includes the enrollment.
func TestEnrollmentScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ana := model.Student{Name: "Ana García", Email: "ana.garcia@uni.edu", BirthDate: time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC)}
	mustNil(t, env.students.Create(ctx, &ana))
	cal := model.Course{Code: "CAL101", Name: "Cálculo I", Credits: 4, Instructor: "Sr. Gómez"}
	mustNil(t, env.courses.Create(ctx, &cal))

	e := model.Enrollment{Term: "2026-1", Grade: grade(8.5), StudentID: &ana.ID, CourseID: &cal.ID}
	mustNil(t, env.enrollments.Create(ctx, &e))
	if e.EnrolledAt.IsZero() {
		t.Fatal("enrollment date not stamped")
	}

	detail, err := env.students.Get(ctx, ana.ID)
	mustNil(t, err)
	if len(detail.Courses) != 1 || detail.Courses[0].Code != "CAL101" {
		t.Fatalf("derived courses = %+v", detail.Courses)
	}
	if len(detail.Enrollments) != 1 {
		t.Fatalf("derived enrollments = %d", len(detail.Enrollments))
	}

	passing, err := env.enrollments.ListPassing(ctx)
	mustNil(t, err)
	if len(passing) != 1 || passing[0].ID != e.ID {
		t.Fatalf("passing = %+v", passing)
	}

	course, err := env.courses.Get(ctx, cal.ID)
	mustNil(t, err)
	if len(course.Students) != 1 || course.Students[0].ID != ana.ID {
		t.Fatalf("derived students = %+v", course.Students)
	}
}

func TestEnrollmentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []model.Enrollment{
		{Term: " "},
		{Term: "2026-1", Grade: grade(-1)},
		{Term: "2026-1", Grade: grade(10.5)},
	}
	for _, e := range cases {
		e := e
		if err := env.enrollments.Create(ctx, &e); !errors.Is(err, ErrInvalidEnrollment) {
			t.Errorf("Create(%+v) err = %v", e, err)
		}
	}
}

func TestDeletesReportAffectedEnrollments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ana := model.Student{Name: "Ana", Email: "ana@uni.edu"}
	carlos := model.Student{Name: "Carlos", Email: "carlos@uni.edu"}
	mustNil(t, env.students.Create(ctx, &ana))
	mustNil(t, env.students.Create(ctx, &carlos))
	cal := model.Course{Code: "CAL101", Name: "Cálculo I", Credits: 4, Instructor: "Sr. Gómez"}
	mustNil(t, env.courses.Create(ctx, &cal))

	for _, st := range []model.Student{ana, carlos} {
		id := st.ID
		e := model.Enrollment{Term: "2026-1", StudentID: &id, CourseID: &cal.ID}
		mustNil(t, env.enrollments.Create(ctx, &e))
	}

	detached, err := env.courses.Delete(ctx, cal.ID)
	mustNil(t, err)
	if detached != 2 {
		t.Fatalf("detached = %d", detached)
	}
	if c := env.lastChange(t); c.Entity != model.EntityCourse || c.Affected != 2 {
		t.Fatalf("change = %+v", c)
	}

	removed, err := env.students.Delete(ctx, ana.ID)
	mustNil(t, err)
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}

	left, err := env.enrollments.ListAll(ctx)
	mustNil(t, err)
	if len(left) != 1 || left[0].Student == nil || left[0].Student.ID != carlos.ID || left[0].Course != nil {
		t.Fatalf("left = %+v", left)
	}

	if _, err := env.students.Delete(ctx, ana.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("delete missing student err = %v", err)
	}
}

func TestCourseValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bad := model.Course{Code: "X1", Name: "X", Credits: -1, Instructor: "Y"}
	if err := env.courses.Create(ctx, &bad); !errors.Is(err, ErrInvalidCourse) {
		t.Fatalf("negative credits err = %v", err)
	}
	blank := model.Course{Code: "X1", Name: "X", Credits: 1, Instructor: " "}
	if err := env.courses.Create(ctx, &blank); !errors.Is(err, ErrInvalidCourse) {
		t.Fatalf("blank instructor err = %v", err)
	}

	ok := model.Course{Code: "X1", Name: "X", Credits: 0, Instructor: "Y"}
	mustNil(t, env.courses.Create(ctx, &ok))
	dup := model.Course{Code: "X1", Name: "Z", Credits: 0, Instructor: "Y"}
	if err := env.courses.Create(ctx, &dup); !errors.Is(err, repository.ErrDuplicateCourseCode) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.tasks.Create(ctx, "   "); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("blank title err = %v", err)
	}

	milk, err := env.tasks.Create(ctx, "Comprar leche")
	mustNil(t, err)
	_, err = env.tasks.Create(ctx, "Arreglar bici")
	mustNil(t, err)

	toggled, err := env.tasks.Toggle(ctx, milk.ID)
	mustNil(t, err)
	if !toggled.Completed {
		t.Fatal("toggle did not complete the task")
	}

	open, err := env.tasks.List(ctx, true)
	mustNil(t, err)
	if len(open) != 1 || open[0].Title != "Arreglar bici" {
		t.Fatalf("open = %+v", open)
	}

	toggled, err = env.tasks.Toggle(ctx, milk.ID)
	mustNil(t, err)
	if toggled.Completed {
		t.Fatal("second toggle did not reopen the task")
	}

	mustNil(t, env.tasks.Delete(ctx, milk.ID))
	if _, err := env.tasks.Toggle(ctx, milk.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("toggle deleted err = %v", err)
	}
}

func TestAuthLoginAndToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	store := repository.NewMemoryStore()
	auth := NewAuthService(cfg, store.Operators, zerolog.Nop())
	ctx := context.Background()

	op, err := auth.CreateOperator(ctx, " Ops@Uni.edu ", "Ops", "secret123")
	mustNil(t, err)
	if op.Email != "ops@uni.edu" || op.PasswordHash == "secret123" {
		t.Fatalf("operator = %+v", op)
	}

	if _, err := auth.Login(ctx, "ops@uni.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := auth.Login(ctx, "nobody@uni.edu", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}

	res, err := auth.Login(ctx, "OPS@uni.edu", "secret123")
	mustNil(t, err)

	claims, err := auth.ValidateToken(res.Token)
	mustNil(t, err)
	if claims.OperatorID != op.ID || claims.Email != "ops@uni.edu" {
		t.Fatalf("claims = %+v", claims)
	}

	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour, BcryptCost: 4}, store.Operators, zerolog.Nop())
	if _, err := other.ValidateToken(res.Token); err == nil {
		t.Fatal("token accepted with a different secret")
	}
}
