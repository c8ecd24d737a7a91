package service

import (
	"context"

	"github.com/cursolab/campus-backend/internal/model"
	"github.com/cursolab/campus-backend/internal/repository"
)

// dashboardTermLimit caps how many terms the dashboard reports.
const dashboardTermLimit = 6

// DashboardData consolidates the campus metrics for the operator dashboard.
type DashboardData struct {
	model.DashboardCounts
	Terms []model.TermStats `json:"terms"`
}

// DashboardService handles dashboard business logic.
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store *repository.Store) *DashboardService {
	return &DashboardService{repo: store.Dashboard}
}

// GetDashboardData fetches the totals and the latest term figures.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	terms, err := s.repo.TermStats(ctx, dashboardTermLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardData{DashboardCounts: *counts, Terms: terms}, nil
}
