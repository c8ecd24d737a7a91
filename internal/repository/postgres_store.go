package repository

import "github.com/jackc/pgx/v5/pgxpool"

// NewPostgresStore wires every repository to the same connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Students:    NewStudentRepository(pool),
		Courses:     NewCourseRepository(pool),
		Enrollments: NewEnrollmentRepository(pool),
		Tasks:       NewTaskRepository(pool),
		Operators:   NewOperatorRepository(pool),
		Dashboard:   NewDashboardRepository(pool),
	}
}
