package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
)

type fixture struct {
	store       *Store
	ana, carlos model.Student
	cal, swf    model.Course
	anaCal      model.Enrollment
	anaSwf      model.Enrollment
	carlosCal   model.Enrollment
}

func gradePtr(v float64) *float64 { return &v }

func idPtr(id uuid.UUID) *uuid.UUID { return &id }

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// newFixture loads the sample campus: two students, two courses, three enrollments.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: NewMemoryStore()}

	f.ana = model.Student{Name: "Ana García", Email: "ana.garcia@uni.edu", BirthDate: time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC)}
	f.carlos = model.Student{Name: "Carlos Pérez", Email: "carlos.perez@uni.edu", BirthDate: time.Date(2000, 2, 11, 0, 0, 0, 0, time.UTC)}
	mustNil(t, f.store.Students.Create(ctx, &f.ana))
	mustNil(t, f.store.Students.Create(ctx, &f.carlos))

	f.cal = model.Course{Code: "CAL101", Name: "Cálculo I", Credits: 4, Instructor: "Sr. Gómez"}
	f.swf = model.Course{Code: "SWF1", Name: "Intro a Swift", Credits: 3, Instructor: "Sr. Eduardo"}
	mustNil(t, f.store.Courses.Create(ctx, &f.cal))
	mustNil(t, f.store.Courses.Create(ctx, &f.swf))

	f.anaCal = model.Enrollment{Term: "2026-1", Grade: gradePtr(8.5), StudentID: idPtr(f.ana.ID), CourseID: idPtr(f.cal.ID)}
	f.anaSwf = model.Enrollment{Term: "2026-1", StudentID: idPtr(f.ana.ID), CourseID: idPtr(f.swf.ID)}
	f.carlosCal = model.Enrollment{Term: "2025-1", Grade: gradePtr(3), StudentID: idPtr(f.carlos.ID), CourseID: idPtr(f.cal.ID)}
	mustNil(t, f.store.Enrollments.Create(ctx, &f.anaCal))
	mustNil(t, f.store.Enrollments.Create(ctx, &f.anaSwf))
	mustNil(t, f.store.Enrollments.Create(ctx, &f.carlosCal))

	return f
}

func TestMemoryStudentListCountsDistinctCourses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A second enrollment in the same course must not raise the count.
	again := model.Enrollment{Term: "2026-2", StudentID: idPtr(f.ana.ID), CourseID: idPtr(f.cal.ID)}
	mustNil(t, f.store.Enrollments.Create(ctx, &again))

	list, total, err := f.store.Students.List(ctx, model.StudentFilter{})
	mustNil(t, err)
	if total != 2 || len(list) != 2 {
		t.Fatalf("got %d rows, total %d; want 2, 2", len(list), total)
	}
	if list[0].Name != "Ana García" || list[0].CourseCount != 2 {
		t.Errorf("first row = %s/%d, want Ana García/2", list[0].Name, list[0].CourseCount)
	}
	if list[1].CourseCount != 1 {
		t.Errorf("Carlos course count = %d, want 1", list[1].CourseCount)
	}
}

func TestMemoryStudentListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, total, err := f.store.Students.List(ctx, model.StudentFilter{Limit: 1, Offset: 1})
	mustNil(t, err)
	if total != 2 || len(page) != 1 || page[0].ID != f.carlos.ID {
		t.Fatalf("page = %+v, total %d", page, total)
	}

	page, _, err = f.store.Students.List(ctx, model.StudentFilter{Limit: 5, Offset: 10})
	mustNil(t, err)
	if len(page) != 0 {
		t.Fatalf("offset past end returned %d rows", len(page))
	}

	page, total, err = f.store.Students.List(ctx, model.StudentFilter{NameContains: "Pérez"})
	mustNil(t, err)
	if total != 1 || page[0].ID != f.carlos.ID {
		t.Fatalf("name filter returned %+v", page)
	}
}

func TestMemoryStudentDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	removed, err := f.store.Students.Delete(ctx, f.ana.ID)
	mustNil(t, err)
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	all, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{})
	mustNil(t, err)
	if len(all) != 1 || all[0].ID != f.carlosCal.ID {
		t.Fatalf("remaining enrollments = %+v", all)
	}
	if _, err := f.store.Students.GetByID(ctx, f.ana.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID after delete: err = %v", err)
	}

	// Courses survive the student.
	if _, err := f.store.Courses.GetByID(ctx, f.swf.ID); err != nil {
		t.Fatalf("course deleted with student: %v", err)
	}

	if _, err := f.store.Students.Delete(ctx, f.ana.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func TestMemoryCourseDeleteNullifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	detached, err := f.store.Courses.Delete(ctx, f.cal.ID)
	mustNil(t, err)
	if detached != 2 {
		t.Fatalf("detached = %d, want 2", detached)
	}

	all, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{})
	mustNil(t, err)
	if len(all) != 3 {
		t.Fatalf("enrollments = %d, want 3", len(all))
	}
	for _, d := range all {
		if d.ID == f.anaSwf.ID {
			if d.Course == nil || d.Course.ID != f.swf.ID {
				t.Errorf("unrelated enrollment lost its course")
			}
			continue
		}
		if d.CourseID != nil || d.Course != nil {
			t.Errorf("enrollment %s still references the deleted course", d.ID)
		}
		if d.Student == nil {
			t.Errorf("enrollment %s lost its student", d.ID)
		}
	}

	courses, err := f.store.Enrollments.CoursesOfStudent(ctx, f.ana.ID)
	mustNil(t, err)
	if len(courses) != 1 || courses[0].ID != f.swf.ID {
		t.Fatalf("Ana's courses after delete = %+v", courses)
	}
}

func TestMemoryCourseCodeIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dup := model.Course{Code: "CAL101", Name: "Otro", Instructor: "X"}
	if err := f.store.Courses.Create(ctx, &dup); !errors.Is(err, ErrDuplicateCourseCode) {
		t.Fatalf("create duplicate: err = %v", err)
	}

	swf := f.swf
	swf.Code = "CAL101"
	if err := f.store.Courses.Update(ctx, &swf); !errors.Is(err, ErrDuplicateCourseCode) {
		t.Fatalf("update to duplicate: err = %v", err)
	}

	// Keeping its own code is fine.
	cal := f.cal
	cal.Name = "Cálculo I (2)"
	mustNil(t, f.store.Courses.Update(ctx, &cal))

	got, err := f.store.Courses.GetByCode(ctx, "CAL101")
	mustNil(t, err)
	if got.Name != "Cálculo I (2)" || !got.CreatedAt.Equal(f.cal.CreatedAt) {
		t.Fatalf("GetByCode = %+v", got)
	}
}

func TestMemoryEnrollmentFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	passing, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{PassingOnly: true})
	mustNil(t, err)
	if len(passing) != 1 || passing[0].ID != f.anaCal.ID {
		t.Fatalf("passing = %+v", passing)
	}

	byName, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{StudentNameContains: "Ana"})
	mustNil(t, err)
	if len(byName) != 2 {
		t.Fatalf("Ana's enrollments = %d, want 2", len(byName))
	}
	// Newest first.
	if byName[0].ID != f.anaSwf.ID || byName[1].ID != f.anaCal.ID {
		t.Errorf("order = %s, %s", byName[0].ID, byName[1].ID)
	}

	lower, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{StudentNameContains: "ana"})
	mustNil(t, err)
	if len(lower) != 0 {
		t.Errorf("name match should be case-sensitive, got %d rows", len(lower))
	}

	term, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{Term: "2025-1", CourseID: idPtr(f.cal.ID)})
	mustNil(t, err)
	if len(term) != 1 || term[0].ID != f.carlosCal.ID {
		t.Fatalf("term filter = %+v", term)
	}
}

func TestMemoryEnrollmentReferencesMustExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := model.Enrollment{Term: "2026-1", StudentID: idPtr(uuid.New())}
	if err := f.store.Enrollments.Create(ctx, &bad); !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("create with unknown student: err = %v", err)
	}

	orphan := model.Enrollment{Term: "2026-1"}
	mustNil(t, f.store.Enrollments.Create(ctx, &orphan))

	orphan.CourseID = idPtr(uuid.New())
	if err := f.store.Enrollments.Update(ctx, &orphan); !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("update with unknown course: err = %v", err)
	}
}

func TestMemoryEnrollmentUpdateIsVisibleImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upd := f.anaSwf
	upd.Grade = gradePtr(9)
	mustNil(t, f.store.Enrollments.Update(ctx, &upd))

	passing, err := f.store.Enrollments.List(ctx, model.EnrollmentFilter{PassingOnly: true})
	mustNil(t, err)
	if len(passing) != 2 {
		t.Fatalf("passing after grading = %d, want 2", len(passing))
	}

	got, err := f.store.Enrollments.GetByID(ctx, upd.ID)
	mustNil(t, err)
	if !got.EnrolledAt.Equal(f.anaSwf.EnrolledAt) {
		t.Errorf("EnrolledAt changed on update")
	}

	// Mutating the returned grade must not reach the store.
	*got.Grade = 1
	again, err := f.store.Enrollments.GetByID(ctx, upd.ID)
	mustNil(t, err)
	if *again.Grade != 9 {
		t.Errorf("stored grade = %v, want 9", *again.Grade)
	}
}

func TestMemoryDerivedListsAreDeduplicated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repeat := model.Enrollment{Term: "2026-2", StudentID: idPtr(f.carlos.ID), CourseID: idPtr(f.cal.ID)}
	mustNil(t, f.store.Enrollments.Create(ctx, &repeat))

	students, err := f.store.Enrollments.StudentsOfCourse(ctx, f.cal.ID)
	mustNil(t, err)
	if len(students) != 2 {
		t.Fatalf("students of CAL101 = %d, want 2", len(students))
	}
	if students[0].ID != f.carlos.ID {
		t.Errorf("first student = %s, want the most recent enrollee", students[0].Name)
	}

	courses, err := f.store.Enrollments.CoursesOfStudent(ctx, f.carlos.ID)
	mustNil(t, err)
	if len(courses) != 1 {
		t.Fatalf("Carlos courses = %d, want 1", len(courses))
	}
}

func TestMemoryTasks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, title := range []string{"Comprar leche", "Arreglar bici", "Comprar leche"} {
		task := model.Task{Title: title}
		mustNil(t, store.Tasks.Create(ctx, &task))
	}

	all, err := store.Tasks.List(ctx, model.TaskFilter{})
	mustNil(t, err)
	if len(all) != 3 || all[0].Title != "Arreglar bici" {
		t.Fatalf("tasks = %+v", all)
	}
	if !all[1].CreatedAt.Before(all[2].CreatedAt) {
		t.Errorf("equal titles not ordered by creation")
	}

	done := all[1]
	done.Completed = true
	mustNil(t, store.Tasks.Update(ctx, &done))

	open, err := store.Tasks.List(ctx, model.TaskFilter{HideCompleted: true})
	mustNil(t, err)
	if len(open) != 2 {
		t.Fatalf("open tasks = %d, want 2", len(open))
	}
	for _, task := range open {
		if task.ID == done.ID {
			t.Errorf("completed task listed with HideCompleted")
		}
	}

	mustNil(t, store.Tasks.Delete(ctx, done.ID))
	if err := store.Tasks.Delete(ctx, done.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func TestMemoryTaskToggleIsAtomic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	task := model.Task{Title: "Comprar leche"}
	mustNil(t, store.Tasks.Create(ctx, &task))

	const flips = 101
	var wg sync.WaitGroup
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Tasks.Toggle(ctx, task.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Tasks.GetByID(ctx, task.ID)
	mustNil(t, err)
	if !got.Completed || got.Title != task.Title || !got.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("after %d toggles: %+v", flips, got)
	}

	if _, err := store.Tasks.Toggle(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("toggle unknown task: err = %v", err)
	}
}

func TestMemoryOperators(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	op := model.Operator{Email: "ops@uni.edu", Name: "Ops", PasswordHash: "x"}
	mustNil(t, store.Operators.Create(ctx, &op))
	if op.ID != 1 {
		t.Fatalf("first operator ID = %d", op.ID)
	}

	dup := model.Operator{Email: "ops@uni.edu", Name: "Other"}
	if err := store.Operators.Create(ctx, &dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate email: err = %v", err)
	}

	got, err := store.Operators.GetByEmail(ctx, "ops@uni.edu")
	mustNil(t, err)
	if got.ID != op.ID {
		t.Fatalf("GetByEmail = %+v", got)
	}
	if _, err := store.Operators.GetByID(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID unknown: err = %v", err)
	}
}

func TestMemoryDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := model.Task{Title: "Comprar leche"}
	mustNil(t, f.store.Tasks.Create(ctx, &open))
	_, err := f.store.Courses.Delete(ctx, f.swf.ID)
	mustNil(t, err)

	counts, err := f.store.Dashboard.Counts(ctx)
	mustNil(t, err)
	want := model.DashboardCounts{Students: 2, Courses: 1, Enrollments: 3, Passing: 1, Ungraded: 1, Orphaned: 1, OpenTasks: 1}
	if *counts != want {
		t.Fatalf("counts = %+v, want %+v", *counts, want)
	}

	terms, err := f.store.Dashboard.TermStats(ctx, 10)
	mustNil(t, err)
	if len(terms) != 2 || terms[0].Term != "2026-1" || terms[1].Term != "2025-1" {
		t.Fatalf("terms = %+v", terms)
	}
	if terms[0].Enrollments != 2 || terms[0].Passing != 1 || terms[0].AverageGrade == nil || *terms[0].AverageGrade != 8.5 {
		t.Errorf("2026-1 = %+v", terms[0])
	}
	if terms[1].Passing != 0 || *terms[1].AverageGrade != 3 {
		t.Errorf("2025-1 = %+v", terms[1])
	}

	latest, err := f.store.Dashboard.TermStats(ctx, 1)
	mustNil(t, err)
	if len(latest) != 1 || latest[0].Term != "2026-1" {
		t.Fatalf("limited terms = %+v", latest)
	}
}
