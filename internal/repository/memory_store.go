package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
)

// memoryDB is the shared state behind the in-memory repositories. A single
// lock guards every table so the cascade and nullify routines see and change
// students, courses and enrollments atomically.
type memoryDB struct {
	mu          sync.RWMutex
	students    map[uuid.UUID]model.Student
	courses     map[uuid.UUID]model.Course
	enrollments map[uuid.UUID]model.Enrollment
	tasks       map[uuid.UUID]model.Task
	operators   map[int]model.Operator
	lastOpID    int
	lastTick    time.Time
}

// NewMemoryStore returns a Store backed by process memory. Data is lost on exit.
func NewMemoryStore() *Store {
	db := &memoryDB{
		students:    make(map[uuid.UUID]model.Student),
		courses:     make(map[uuid.UUID]model.Course),
		enrollments: make(map[uuid.UUID]model.Enrollment),
		tasks:       make(map[uuid.UUID]model.Task),
		operators:   make(map[int]model.Operator),
	}
	return &Store{
		Students:    &memStudentRepository{db: db},
		Courses:     &memCourseRepository{db: db},
		Enrollments: &memEnrollmentRepository{db: db},
		Tasks:       &memTaskRepository{db: db},
		Operators:   &memOperatorRepository{db: db},
		Dashboard:   &memDashboardRepository{db: db},
	}
}

// now returns a strictly increasing UTC timestamp. Caller must hold the write lock.
func (db *memoryDB) now() time.Time {
	t := time.Now().UTC()
	if !t.After(db.lastTick) {
		t = db.lastTick.Add(time.Microsecond)
	}
	db.lastTick = t
	return t
}

func cloneEnrollment(e model.Enrollment) model.Enrollment {
	if e.Grade != nil {
		g := *e.Grade
		e.Grade = &g
	}
	if e.StudentID != nil {
		id := *e.StudentID
		e.StudentID = &id
	}
	if e.CourseID != nil {
		id := *e.CourseID
		e.CourseID = &id
	}
	return e
}

// detail resolves the references of e. Caller must hold the lock.
func (db *memoryDB) detail(e model.Enrollment) model.EnrollmentDetail {
	d := model.EnrollmentDetail{Enrollment: cloneEnrollment(e)}
	if e.StudentID != nil {
		if s, ok := db.students[*e.StudentID]; ok {
			d.Student = &s
		}
	}
	if e.CourseID != nil {
		if c, ok := db.courses[*e.CourseID]; ok {
			d.Course = &c
		}
	}
	return d
}

// sortedEnrollments returns every enrollment, newest first. Caller must hold the lock.
func (db *memoryDB) sortedEnrollments() []model.Enrollment {
	out := make([]model.Enrollment, 0, len(db.enrollments))
	for _, e := range db.enrollments {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].EnrolledAt.After(out[j].EnrolledAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// checkRefs verifies that the references held by e exist. Caller must hold the lock.
func (db *memoryDB) checkRefs(e *model.Enrollment) error {
	if e.StudentID != nil {
		if _, ok := db.students[*e.StudentID]; !ok {
			return ErrReferenceNotFound
		}
	}
	if e.CourseID != nil {
		if _, ok := db.courses[*e.CourseID]; !ok {
			return ErrReferenceNotFound
		}
	}
	return nil
}

// ─── Students ──────────────────────────────────────────────────────────────

type memStudentRepository struct {
	db *memoryDB
}

func (r *memStudentRepository) List(_ context.Context, filter model.StudentFilter) ([]model.StudentSummary, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var matched []model.Student
	for _, s := range r.db.students {
		if filter.NameContains != "" && !strings.Contains(s.Name, filter.NameContains) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	// Distinct courses per student, counted by walking enrollments.
	courseSets := make(map[uuid.UUID]map[uuid.UUID]struct{})
	for _, e := range r.db.enrollments {
		if e.StudentID == nil || e.CourseID == nil {
			continue
		}
		set, ok := courseSets[*e.StudentID]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			courseSets[*e.StudentID] = set
		}
		set[*e.CourseID] = struct{}{}
	}

	out := make([]model.StudentSummary, 0, len(matched))
	for _, s := range matched {
		out = append(out, model.StudentSummary{Student: s, CourseCount: len(courseSets[s.ID])})
	}
	return out, total, nil
}

func (r *memStudentRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memStudentRepository) Create(_ context.Context, s *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := r.db.now()
	s.CreatedAt, s.UpdatedAt = now, now
	r.db.students[s.ID] = *s
	return nil
}

func (r *memStudentRepository) Update(_ context.Context, s *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.students[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = r.db.now()
	r.db.students[s.ID] = *s
	return nil
}

func (r *memStudentRepository) Delete(_ context.Context, id uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[id]; !ok {
		return 0, ErrNotFound
	}

	removed := 0
	for eid, e := range r.db.enrollments {
		if e.StudentID != nil && *e.StudentID == id {
			delete(r.db.enrollments, eid)
			removed++
		}
	}
	delete(r.db.students, id)
	return removed, nil
}

// ─── Courses ───────────────────────────────────────────────────────────────

type memCourseRepository struct {
	db *memoryDB
}

func (r *memCourseRepository) List(_ context.Context, filter model.CourseFilter) ([]model.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []model.Course
	for _, c := range r.db.courses {
		if filter.NameContains != "" &&
			!strings.Contains(c.Code, filter.NameContains) &&
			!strings.Contains(c.Name, filter.NameContains) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCourseRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memCourseRepository) GetByCode(_ context.Context, code string) (*model.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, c := range r.db.courses {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// codeTaken reports whether another course already uses code. Caller must hold the lock.
func (r *memCourseRepository) codeTaken(code string, except uuid.UUID) bool {
	for id, c := range r.db.courses {
		if id != except && c.Code == code {
			return true
		}
	}
	return false
}

func (r *memCourseRepository) Create(_ context.Context, c *model.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.codeTaken(c.Code, uuid.Nil) {
		return ErrDuplicateCourseCode
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := r.db.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.db.courses[c.ID] = *c
	return nil
}

func (r *memCourseRepository) Update(_ context.Context, c *model.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.courses[c.ID]
	if !ok {
		return ErrNotFound
	}
	if r.codeTaken(c.Code, c.ID) {
		return ErrDuplicateCourseCode
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.db.now()
	r.db.courses[c.ID] = *c
	return nil
}

func (r *memCourseRepository) Delete(_ context.Context, id uuid.UUID) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.courses[id]; !ok {
		return 0, ErrNotFound
	}

	detached := 0
	now := r.db.now()
	for eid, e := range r.db.enrollments {
		if e.CourseID != nil && *e.CourseID == id {
			e.CourseID = nil
			e.UpdatedAt = now
			r.db.enrollments[eid] = e
			detached++
		}
	}
	delete(r.db.courses, id)
	return detached, nil
}

// ─── Enrollments ───────────────────────────────────────────────────────────

type memEnrollmentRepository struct {
	db *memoryDB
}

func (r *memEnrollmentRepository) List(_ context.Context, filter model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []model.EnrollmentDetail
	for _, e := range r.db.sortedEnrollments() {
		d := r.db.detail(e)
		if filter.Matches(&d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memEnrollmentRepository) GetByID(_ context.Context, id uuid.UUID) (*model.EnrollmentDetail, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	e, ok := r.db.enrollments[id]
	if !ok {
		return nil, ErrNotFound
	}
	d := r.db.detail(e)
	return &d, nil
}

func (r *memEnrollmentRepository) Create(_ context.Context, e *model.Enrollment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.db.checkRefs(e); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := r.db.now()
	e.EnrolledAt, e.UpdatedAt = now, now
	r.db.enrollments[e.ID] = cloneEnrollment(*e)
	return nil
}

func (r *memEnrollmentRepository) Update(_ context.Context, e *model.Enrollment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.enrollments[e.ID]
	if !ok {
		return ErrNotFound
	}
	if err := r.db.checkRefs(e); err != nil {
		return err
	}
	e.EnrolledAt = existing.EnrolledAt
	e.UpdatedAt = r.db.now()
	r.db.enrollments[e.ID] = cloneEnrollment(*e)
	return nil
}

func (r *memEnrollmentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.enrollments[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.enrollments, id)
	return nil
}

func (r *memEnrollmentRepository) CoursesOfStudent(_ context.Context, studentID uuid.UUID) ([]model.Course, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var courses []model.Course
	for _, e := range r.db.sortedEnrollments() {
		if e.StudentID == nil || *e.StudentID != studentID || e.CourseID == nil {
			continue
		}
		if c, ok := r.db.courses[*e.CourseID]; ok {
			courses = append(courses, c)
		}
	}
	return uniqueCourses(courses), nil
}

func (r *memEnrollmentRepository) StudentsOfCourse(_ context.Context, courseID uuid.UUID) ([]model.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var students []model.Student
	for _, e := range r.db.sortedEnrollments() {
		if e.CourseID == nil || *e.CourseID != courseID || e.StudentID == nil {
			continue
		}
		if s, ok := r.db.students[*e.StudentID]; ok {
			students = append(students, s)
		}
	}
	return uniqueStudents(students), nil
}

// ─── Tasks ─────────────────────────────────────────────────────────────────

type memTaskRepository struct {
	db *memoryDB
}

func (r *memTaskRepository) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []model.Task
	for _, t := range r.db.tasks {
		if filter.HideCompleted && t.Completed {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memTaskRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *memTaskRepository) Create(_ context.Context, t *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.db.now()
	r.db.tasks[t.ID] = *t
	return nil
}

func (r *memTaskRepository) Update(_ context.Context, t *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	r.db.tasks[t.ID] = *t
	return nil
}

func (r *memTaskRepository) Toggle(_ context.Context, id uuid.UUID) (*model.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Completed = !t.Completed
	r.db.tasks[id] = t
	return &t, nil
}

func (r *memTaskRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

// ─── Operators ─────────────────────────────────────────────────────────────

type memOperatorRepository struct {
	db *memoryDB
}

func (r *memOperatorRepository) GetByID(_ context.Context, id int) (*model.Operator, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	o, ok := r.db.operators[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *memOperatorRepository) GetByEmail(_ context.Context, email string) (*model.Operator, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, o := range r.db.operators {
		if o.Email == email {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memOperatorRepository) Create(_ context.Context, o *model.Operator) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.operators {
		if existing.Email == o.Email {
			return ErrDuplicateEmail
		}
	}
	r.db.lastOpID++
	o.ID = r.db.lastOpID
	now := r.db.now()
	o.CreatedAt, o.UpdatedAt = now, now
	r.db.operators[o.ID] = *o
	return nil
}

// ─── Dashboard ───────────────────────────────────────────────────────

type memDashboardRepository struct {
	db *memoryDB
}

func (r *memDashboardRepository) Counts(_ context.Context) (*model.DashboardCounts, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c := &model.DashboardCounts{
		Students:    len(r.db.students),
		Courses:     len(r.db.courses),
		Enrollments: len(r.db.enrollments),
	}
	for _, e := range r.db.enrollments {
		switch {
		case e.Grade == nil:
			c.Ungraded++
		case e.Passing():
			c.Passing++
		}
		if e.CourseID == nil {
			c.Orphaned++
		}
	}
	for _, t := range r.db.tasks {
		if !t.Completed {
			c.OpenTasks++
		}
	}
	return c, nil
}

func (r *memDashboardRepository) TermStats(_ context.Context, limit int) ([]model.TermStats, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	type acc struct {
		stats  model.TermStats
		sum    float64
		graded int
	}
	byTerm := make(map[string]*acc)
	for _, e := range r.db.enrollments {
		a, ok := byTerm[e.Term]
		if !ok {
			a = &acc{stats: model.TermStats{Term: e.Term}}
			byTerm[e.Term] = a
		}
		a.stats.Enrollments++
		if e.Grade != nil {
			a.sum += *e.Grade
			a.graded++
		}
		if e.Passing() {
			a.stats.Passing++
		}
	}

	stats := make([]model.TermStats, 0, len(byTerm))
	for _, a := range byTerm {
		if a.graded > 0 {
			avg := a.sum / float64(a.graded)
			a.stats.AverageGrade = &avg
		}
		stats = append(stats, a.stats)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Term > stats[j].Term })
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}
