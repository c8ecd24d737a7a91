package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cursolab/campus-backend/internal/config"
	"github.com/cursolab/campus-backend/internal/database"
	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/handler"
	"github.com/cursolab/campus-backend/internal/logger"
	"github.com/cursolab/campus-backend/internal/middleware"
	"github.com/cursolab/campus-backend/internal/router"
	"github.com/cursolab/campus-backend/internal/service"
	"github.com/cursolab/campus-backend/internal/validator"
	"github.com/cursolab/campus-backend/internal/viewmodel"
	"github.com/rs/zerolog"
)

const overviewReloadTimeout = 5 * time.Second

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("event_bus", cfg.EventBus).
		Msg("Starting Campus Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Store ────────────────────────────────────────────────────
	store, closeStore, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	// ─── Change Bus ────────────────────────────────────────────────────
	var bus events.Bus
	switch cfg.EventBus {
	case config.EventBusRedis:
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		redisBus := events.NewRedisBus(rdb, log)
		go redisBus.Start(ctx)
		bus = redisBus
	default:
		bus = events.NewLocalBus()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, store.Operators, log)
	studentService := service.NewStudentService(store, bus, log)
	courseService := service.NewCourseService(store, bus, log)
	enrollmentService := service.NewEnrollmentService(store, bus)
	taskService := service.NewTaskService(store, bus)
	dashboardService := service.NewDashboardService(store)

	// ─── View-models ───────────────────────────────────────────────────
	overview := viewmodel.NewEnrollmentList(ctx, enrollmentService, log)
	unsubscribe := overview.ReloadOn(bus, overviewReloadTimeout)
	defer unsubscribe()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, log),
		Student:    handler.NewStudentHandler(studentService, log),
		Course:     handler.NewCourseHandler(courseService, log),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService, overview, log),
		Task:       handler.NewTaskHandler(taskService, log),
		Dashboard:  handler.NewDashboardHandler(dashboardService, log),
		WS:         handler.NewWSHandler(bus, log, cfg.AllowedOrigins),
	}

	loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRatePerMinute, time.Minute)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, loginLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the change listener and the limiter sweeper.
	cancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
