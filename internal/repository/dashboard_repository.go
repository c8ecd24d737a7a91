package repository

import (
	"context"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a Postgres-backed DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{pool: pool}
}

func (r *dashboardRepository) Counts(ctx context.Context) (*model.DashboardCounts, error) {
	c := &model.DashboardCounts{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM enrollments),
			(SELECT COUNT(*) FROM enrollments WHERE grade >= $1),
			(SELECT COUNT(*) FROM enrollments WHERE grade IS NULL),
			(SELECT COUNT(*) FROM enrollments WHERE course_id IS NULL),
			(SELECT COUNT(*) FROM tasks WHERE NOT completed)`,
		model.PassingGrade,
	).Scan(&c.Students, &c.Courses, &c.Enrollments, &c.Passing, &c.Ungraded, &c.Orphaned, &c.OpenTasks)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *dashboardRepository) TermStats(ctx context.Context, limit int) ([]model.TermStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT term,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE grade >= $1),
		        AVG(grade)
		 FROM enrollments
		 GROUP BY term
		 ORDER BY term DESC
		 LIMIT $2`,
		model.PassingGrade, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.TermStats{}
	for rows.Next() {
		var s model.TermStats
		if err := rows.Scan(&s.Term, &s.Enrollments, &s.Passing, &s.AverageGrade); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
