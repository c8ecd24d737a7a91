package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
	"github.com/cursolab/campus-backend/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeLister struct {
	all, passing []model.EnrollmentDetail
	err          error
	calls        int
}

func (f *fakeLister) ListAll(context.Context) ([]model.EnrollmentDetail, error) {
	f.calls++
	return f.all, f.err
}

func (f *fakeLister) ListPassing(context.Context) ([]model.EnrollmentDetail, error) {
	return f.passing, f.err
}

func detail(term string) model.EnrollmentDetail {
	return model.EnrollmentDetail{Enrollment: model.Enrollment{ID: uuid.New(), Term: term}}
}

func TestEnrollmentListKeepsDataOnFailure(t *testing.T) {
	lister := &fakeLister{
		all:     []model.EnrollmentDetail{detail("2026-1"), detail("2025-1")},
		passing: []model.EnrollmentDetail{detail("2026-1")},
	}
	list := NewEnrollmentList(context.Background(), lister, zerolog.Nop())

	if got := list.Snapshot(); got.Stale || len(got.All) != 2 || len(got.Passing) != 1 {
		t.Fatalf("initial snapshot = %+v", got)
	}

	lister.err = errors.New("connection reset")
	lister.all = nil
	if err := list.Reload(context.Background()); err == nil {
		t.Fatal("Reload returned nil on failure")
	}

	snap := list.Snapshot()
	if !snap.Stale || snap.LastError != "connection reset" {
		t.Fatalf("stale flag not set: %+v", snap)
	}
	if len(snap.All) != 2 || len(list.All()) != 2 || len(list.Passing()) != 1 {
		t.Fatal("previous data was dropped")
	}

	lister.err = nil
	lister.all = []model.EnrollmentDetail{detail("2027-1")}
	if err := list.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if snap := list.Snapshot(); snap.Stale || len(snap.All) != 1 {
		t.Fatalf("recovered snapshot = %+v", snap)
	}
}

func TestEnrollmentListFirstLoadFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("down")}
	list := NewEnrollmentList(context.Background(), lister, zerolog.Nop())

	snap := list.Snapshot()
	if !snap.Stale || snap.All == nil || len(snap.All) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

// gatedLister returns results[n] for the n-th ListAll call. Calls with a gate
// report on entered and block until the gate is closed.
type gatedLister struct {
	mu      sync.Mutex
	calls   int
	results [][]model.EnrollmentDetail
	gates   map[int]chan struct{}
	entered chan int
}

func (g *gatedLister) ListAll(context.Context) ([]model.EnrollmentDetail, error) {
	g.mu.Lock()
	n := g.calls
	g.calls++
	rows, gate := g.results[n], g.gates[n]
	g.mu.Unlock()

	if gate != nil {
		g.entered <- n
		<-gate
	}
	return rows, nil
}

func (g *gatedLister) ListPassing(context.Context) ([]model.EnrollmentDetail, error) {
	return []model.EnrollmentDetail{}, nil
}

func TestEnrollmentListIgnoresOutOfOrderReload(t *testing.T) {
	release := make(chan struct{})
	lister := &gatedLister{
		results: [][]model.EnrollmentDetail{
			{},
			{detail("2026-1")},
			{detail("2026-1"), detail("2026-2")},
		},
		gates:   map[int]chan struct{}{1: release},
		entered: make(chan int, 1),
	}
	list := NewEnrollmentList(context.Background(), lister, zerolog.Nop())

	slow := make(chan error, 1)
	go func() { slow <- list.Reload(context.Background()) }()
	<-lister.entered

	if err := list.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(list.All()); n != 2 {
		t.Fatalf("after later reload: %d rows, want 2", n)
	}

	close(release)
	if err := <-slow; err != nil {
		t.Fatal(err)
	}
	snap := list.Snapshot()
	if len(snap.All) != 2 || snap.Stale {
		t.Fatalf("earlier reload overwrote newer data: %d rows, stale=%t", len(snap.All), snap.Stale)
	}
}

func TestEnrollmentListReloadsOnChanges(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	bus := events.NewLocalBus()
	log := zerolog.Nop()

	students := service.NewStudentService(store, bus, log)
	courses := service.NewCourseService(store, bus, log)
	enrollments := service.NewEnrollmentService(store, bus)
	tasks := service.NewTaskService(store, bus)

	list := NewEnrollmentList(ctx, enrollments, log)
	defer list.ReloadOn(bus, time.Second)()

	ana := model.Student{Name: "Ana García", Email: "ana.garcia@uni.edu"}
	if err := students.Create(ctx, &ana); err != nil {
		t.Fatal(err)
	}
	cal := model.Course{Code: "CAL101", Name: "Cálculo I", Credits: 4, Instructor: "Sr. Gómez"}
	if err := courses.Create(ctx, &cal); err != nil {
		t.Fatal(err)
	}

	g := 8.5
	e := model.Enrollment{Term: "2026-1", Grade: &g, StudentID: &ana.ID, CourseID: &cal.ID}
	if err := enrollments.Create(ctx, &e); err != nil {
		t.Fatal(err)
	}

	snap := list.Snapshot()
	if len(snap.All) != 1 || len(snap.Passing) != 1 {
		t.Fatalf("after insert: all=%d passing=%d", len(snap.All), len(snap.Passing))
	}

	// Renaming the student shows up in the derived pair right away.
	ana.Name = "Ana G. López"
	if err := students.Update(ctx, &ana); err != nil {
		t.Fatal(err)
	}
	if got := list.All()[0].Student.Name; got != "Ana G. López" {
		t.Fatalf("derived student name = %q", got)
	}

	if _, err := courses.Delete(ctx, cal.ID); err != nil {
		t.Fatal(err)
	}
	if got := list.All()[0]; got.Course != nil || got.CourseID != nil {
		t.Fatalf("course still attached: %+v", got)
	}

	loaded := list.Snapshot().LoadedAt
	if _, err := tasks.Create(ctx, "Comprar leche"); err != nil {
		t.Fatal(err)
	}
	if !list.Snapshot().LoadedAt.Equal(loaded) {
		t.Fatal("task change triggered an enrollment reload")
	}
}

type recordingCreator struct {
	created []model.Student
}

func (r *recordingCreator) Create(_ context.Context, s *model.Student) error {
	s.ID = uuid.New()
	r.created = append(r.created, *s)
	return nil
}

func TestStudentForm(t *testing.T) {
	creator := &recordingCreator{}
	form := NewStudentForm(creator)

	if form.BirthDate.IsZero() {
		t.Fatal("birth date has no default")
	}
	if form.Valid() {
		t.Fatal("empty form is valid")
	}

	form.Name = "Ana"
	form.Email = "ana.uni.edu"
	if _, err := form.Save(context.Background()); !errors.Is(err, ErrInvalidForm) {
		t.Fatalf("Save err = %v, want ErrInvalidForm", err)
	}
	if len(creator.created) != 0 {
		t.Fatal("invalid form reached the store")
	}

	form.Email = "ana@uni.edu"
	if !form.Valid() {
		t.Fatal("complete form is invalid")
	}
	st, err := form.Save(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(creator.created) != 1 || creator.created[0].ID != st.ID {
		t.Fatalf("created = %+v", creator.created)
	}
}
