// Package viewmodel holds the screen-level state that sits between the HTTP
// handlers and the services.
package viewmodel

import (
	"context"
	"sync"
	"time"

	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/model"
	"github.com/rs/zerolog"
)

// EnrollmentLister is the query side EnrollmentList needs.
type EnrollmentLister interface {
	ListAll(ctx context.Context) ([]model.EnrollmentDetail, error)
	ListPassing(ctx context.Context) ([]model.EnrollmentDetail, error)
}

// EnrollmentOverview is a point-in-time copy of an EnrollmentList.
type EnrollmentOverview struct {
	All      []model.EnrollmentDetail `json:"all"`
	Passing  []model.EnrollmentDetail `json:"passing"`
	LoadedAt time.Time                `json:"loaded_at"`
	// Stale is set when the latest reload failed and the lists are older data.
	Stale     bool   `json:"stale"`
	LastError string `json:"last_error,omitempty"`
}

// EnrollmentList caches all enrollments and the passing ones. The lists are
// refreshed only by Reload.
type EnrollmentList struct {
	lister EnrollmentLister
	log    zerolog.Logger

	mu       sync.RWMutex
	all      []model.EnrollmentDetail
	passing  []model.EnrollmentDetail
	loadedAt time.Time
	lastErr  error
	// started counts reloads begun; committed is the generation of the
	// reload whose outcome the list currently reflects.
	started   uint64
	committed uint64
}

// NewEnrollmentList builds the view-model and performs the first load.
// A failed first load leaves both lists empty and marks the snapshot stale.
func NewEnrollmentList(ctx context.Context, lister EnrollmentLister, log zerolog.Logger) *EnrollmentList {
	l := &EnrollmentList{
		lister:  lister,
		log:     log.With().Str("component", "enrollment_list").Logger(),
		all:     []model.EnrollmentDetail{},
		passing: []model.EnrollmentDetail{},
	}
	_ = l.Reload(ctx)
	return l
}

// Reload re-runs both queries. On failure the error is logged, the previous
// lists are kept and the error is returned. A reload that finishes after a
// later-started one has already committed is discarded.
func (l *EnrollmentList) Reload(ctx context.Context) error {
	l.mu.Lock()
	l.started++
	gen := l.started
	l.mu.Unlock()

	all, err := l.lister.ListAll(ctx)
	var passing []model.EnrollmentDetail
	if err == nil {
		passing, err = l.lister.ListPassing(ctx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen < l.committed {
		l.log.Debug().Uint64("generation", gen).Msg("Discarding superseded reload")
		return err
	}
	l.committed = gen

	if err != nil {
		l.log.Error().Err(err).Msg("Failed to reload enrollments, keeping previous data")
		l.lastErr = err
		return err
	}
	l.all, l.passing = all, passing
	l.loadedAt = time.Now().UTC()
	l.lastErr = nil
	return nil
}

// All returns the cached enrollments, newest first.
func (l *EnrollmentList) All() []model.EnrollmentDetail {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.EnrollmentDetail(nil), l.all...)
}

// Passing returns the cached passing enrollments.
func (l *EnrollmentList) Passing() []model.EnrollmentDetail {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.EnrollmentDetail(nil), l.passing...)
}

func (l *EnrollmentList) Snapshot() EnrollmentOverview {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ov := EnrollmentOverview{
		All:      append([]model.EnrollmentDetail{}, l.all...),
		Passing:  append([]model.EnrollmentDetail{}, l.passing...),
		LoadedAt: l.loadedAt,
	}
	if l.lastErr != nil {
		ov.Stale = true
		ov.LastError = l.lastErr.Error()
	}
	return ov
}

// ReloadOn subscribes the list to changes that can alter an enrollment
// listing and returns the unsubscribe function.
func (l *EnrollmentList) ReloadOn(bus events.Bus, timeout time.Duration) func() {
	return bus.Subscribe(func(c model.Change) {
		if !c.TouchesEnrollments() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = l.Reload(ctx)
	})
}
