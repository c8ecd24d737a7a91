package repository

import (
	"context"
	"errors"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const courseColumns = `c.id, c.code, c.name, c.credits, c.instructor, c.created_at, c.updated_at`

type courseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a PostgreSQL-backed CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) CourseRepository {
	return &courseRepository{pool: pool}
}

func scanCourse(row pgx.Row, c *model.Course) error {
	return row.Scan(&c.ID, &c.Code, &c.Name, &c.Credits, &c.Instructor, &c.CreatedAt, &c.UpdatedAt)
}

func (r *courseRepository) List(ctx context.Context, filter model.CourseFilter) ([]model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c`
	var args []interface{}
	if filter.NameContains != "" {
		query += ` WHERE strpos(c.code, $1) > 0 OR strpos(c.name, $1) > 0`
		args = append(args, filter.NameContains)
	}
	query += ` ORDER BY c.code`

	rows, err := r.pool.Query(ctx, query, args...)
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
	return courses, rows.Err()
}

func (r *courseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c := &model.Course{}
	if err := scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id), c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *courseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	c := &model.Course{}
	if err := scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.code = $1`, code), c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *courseRepository) Create(ctx context.Context, c *model.Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO courses (id, code, name, credits, instructor)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		c.ID, c.Code, c.Name, c.Credits, c.Instructor,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapCourseError(err)
}

func (r *courseRepository) Update(ctx context.Context, c *model.Course) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE courses SET code = $1, name = $2, credits = $3, instructor = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5
		 RETURNING created_at, updated_at`,
		c.Code, c.Name, c.Credits, c.Instructor, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapCourseError(err)
}

// Delete removes a course and nullifies the course reference on its enrollments.
func (r *courseRepository) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// 1. Lock the course row so no enrollment can reference it until commit
	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	// 2. Nullify: enrollments stay, without a course
	tag, err := tx.Exec(ctx,
		`UPDATE enrollments SET course_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE course_id = $1`, id)
	if err != nil {
		return 0, err
	}
	detached := int(tag.RowsAffected())

	// 3. Drop the course itself
	tag, err = tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return detached, nil
}

func mapCourseError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateCourseCode
	}
	return err
}
