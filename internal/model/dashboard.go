package model

// DashboardCounts holds the headline totals shown on the dashboard.
type DashboardCounts struct {
	Students    int `json:"total_students"`
	Courses     int `json:"total_courses"`
	Enrollments int `json:"total_enrollments"`
	Passing     int `json:"passing_enrollments"`
	Ungraded    int `json:"ungraded_enrollments"`
	// Orphaned counts enrollments whose course was deleted.
	Orphaned  int `json:"orphaned_enrollments"`
	OpenTasks int `json:"open_tasks"`
}

// TermStats summarizes the enrollments of one term.
type TermStats struct {
	Term         string   `json:"term"`
	Enrollments  int      `json:"enrollments"`
	Passing      int      `json:"passing"`
	AverageGrade *float64 `json:"average_grade"`
}
