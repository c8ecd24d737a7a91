package repository

import (
	"context"
	"errors"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a PostgreSQL-backed TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT id, title, completed, created_at FROM tasks`
	if filter.HideCompleted {
		query += ` WHERE NOT completed`
	}
	query += ` ORDER BY title, created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	t := &model.Task{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, completed, created_at FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *taskRepository) Create(ctx context.Context, t *model.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, title, completed) VALUES ($1, $2, $3) RETURNING created_at`,
		t.ID, t.Title, t.Completed,
	).Scan(&t.CreatedAt)
}

func (r *taskRepository) Update(ctx context.Context, t *model.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, completed = $2 WHERE id = $3`,
		t.Title, t.Completed, t.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) Toggle(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	t := &model.Task{}
	err := r.pool.QueryRow(ctx,
		`UPDATE tasks SET completed = NOT completed WHERE id = $1
		 RETURNING id, title, completed, created_at`, id,
	).Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
