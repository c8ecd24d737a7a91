package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const enrollmentDetailSelect = `
	SELECT e.id, e.enrolled_at, e.grade, e.term, e.student_id, e.course_id, e.updated_at,
	       s.name, s.email, s.birth_date, s.created_at, s.updated_at,
	       c.code, c.name, c.credits, c.instructor, c.created_at, c.updated_at
	FROM enrollments e
	LEFT JOIN students s ON s.id = e.student_id
	LEFT JOIN courses c ON c.id = e.course_id`

type enrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a PostgreSQL-backed EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepository{pool: pool}
}

// scanEnrollmentDetail reads one row of enrollmentDetailSelect. The joined
// student and course columns are NULL when the reference is empty.
func scanEnrollmentDetail(row pgx.Row) (model.EnrollmentDetail, error) {
	var (
		d                          model.EnrollmentDetail
		sName, sEmail              *string
		sBirth, sCreated, sUpdated *time.Time
		cCode, cName, cInstructor  *string
		cCredits                   *int
		cCreated, cUpdated         *time.Time
	)
	err := row.Scan(
		&d.ID, &d.EnrolledAt, &d.Grade, &d.Term, &d.StudentID, &d.CourseID, &d.UpdatedAt,
		&sName, &sEmail, &sBirth, &sCreated, &sUpdated,
		&cCode, &cName, &cCredits, &cInstructor, &cCreated, &cUpdated,
	)
	if err != nil {
		return d, err
	}

	if d.StudentID != nil && sName != nil {
		d.Student = &model.Student{
			ID:        *d.StudentID,
			Name:      *sName,
			Email:     deref(sEmail),
			BirthDate: derefTime(sBirth),
			CreatedAt: derefTime(sCreated),
			UpdatedAt: derefTime(sUpdated),
		}
	}
	if d.CourseID != nil && cCode != nil {
		d.Course = &model.Course{
			ID:         *d.CourseID,
			Code:       *cCode,
			Name:       deref(cName),
			Instructor: deref(cInstructor),
			CreatedAt:  derefTime(cCreated),
			UpdatedAt:  derefTime(cUpdated),
		}
		if cCredits != nil {
			d.Course.Credits = *cCredits
		}
	}
	return d, nil
}

func (r *enrollmentRepository) List(ctx context.Context, filter model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	query := enrollmentDetailSelect
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StudentID != nil {
		conds = append(conds, `e.student_id = `+arg(*filter.StudentID))
	}
	if filter.CourseID != nil {
		conds = append(conds, `e.course_id = `+arg(*filter.CourseID))
	}
	if filter.StudentNameContains != "" {
		conds = append(conds, `strpos(s.name, `+arg(filter.StudentNameContains)+`) > 0`)
	}
	if filter.Term != "" {
		conds = append(conds, `e.term = `+arg(filter.Term))
	}
	if filter.PassingOnly {
		conds = append(conds, `e.grade IS NOT NULL AND e.grade >= `+arg(model.PassingGrade))
	}

	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY e.enrolled_at DESC, e.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []model.EnrollmentDetail
	for rows.Next() {
		d, err := scanEnrollmentDetail(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, d)
	}
	return enrollments, rows.Err()
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.EnrollmentDetail, error) {
	d, err := scanEnrollmentDetail(r.pool.QueryRow(ctx, enrollmentDetailSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *enrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO enrollments (id, grade, term, student_id, course_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING enrolled_at, updated_at`,
		e.ID, e.Grade, e.Term, e.StudentID, e.CourseID,
	).Scan(&e.EnrolledAt, &e.UpdatedAt)
	return mapEnrollmentError(err)
}

func (r *enrollmentRepository) Update(ctx context.Context, e *model.Enrollment) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE enrollments SET grade = $1, term = $2, student_id = $3, course_id = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5
		 RETURNING enrolled_at, updated_at`,
		e.Grade, e.Term, e.StudentID, e.CourseID, e.ID,
	).Scan(&e.EnrolledAt, &e.UpdatedAt)
	return mapEnrollmentError(err)
}

func (r *enrollmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *enrollmentRepository) CoursesOfStudent(ctx context.Context, studentID uuid.UUID) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+`
		 FROM enrollments e
		 JOIN courses c ON c.id = e.course_id
		 WHERE e.student_id = $1
		 ORDER BY e.enrolled_at DESC, e.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uniqueCourses(courses), nil
}

func (r *enrollmentRepository) StudentsOfCourse(ctx context.Context, courseID uuid.UUID) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+`
		 FROM enrollments e
		 JOIN students s ON s.id = e.student_id
		 WHERE e.course_id = $1
		 ORDER BY e.enrolled_at DESC, e.id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.BirthDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uniqueStudents(students), nil
}

func mapEnrollmentError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key violation
		return ErrReferenceNotFound
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
