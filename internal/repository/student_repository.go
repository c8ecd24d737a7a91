package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const studentColumns = `s.id, s.name, s.email, s.birth_date, s.created_at, s.updated_at`

type studentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a PostgreSQL-backed StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) StudentRepository {
	return &studentRepository{pool: pool}
}

// List retrieves students with pagination and an optional name filter.
func (r *studentRepository) List(ctx context.Context, filter model.StudentFilter) ([]model.StudentSummary, int, error) {
	where := ""
	var args []interface{}
	if filter.NameContains != "" {
		where = ` WHERE strpos(s.name, $1) > 0`
		args = append(args, filter.NameContains)
	}

	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get the page, with the number of distinct courses reached through enrollments
	query := `SELECT ` + studentColumns + `,
	                 (SELECT COUNT(DISTINCT e.course_id) FROM enrollments e
	                  WHERE e.student_id = s.id AND e.course_id IS NOT NULL)
	          FROM students s` + where + ` ORDER BY s.name, s.id`
	if filter.Limit > 0 {
		argIdx := len(args) + 1
		query += ` LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.StudentSummary
	for rows.Next() {
		var s model.StudentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.BirthDate, &s.CreatedAt, &s.UpdatedAt, &s.CourseCount); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// GetByID retrieves a student by ID.
func (r *studentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students s WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.BirthDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// Create inserts a new student. The ID is assigned here when unset.
func (r *studentRepository) Create(ctx context.Context, s *model.Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (id, name, email, birth_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Email, s.BirthDate,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// Update modifies a student's name, email and birth date.
func (r *studentRepository) Update(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE students SET name = $1, email = $2, birth_date = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4
		 RETURNING created_at, updated_at`,
		s.Name, s.Email, s.BirthDate, s.ID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a student and cascades to its enrollments.
func (r *studentRepository) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// 1. Lock the student row so no enrollment can reference it until commit
	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	// 2. Cascade: drop the student's enrollments
	tag, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE student_id = $1`, id)
	if err != nil {
		return 0, err
	}
	removed := int(tag.RowsAffected())

	// 3. Drop the student itself
	tag, err = tx.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}
