package main

import (
	"context"
	"flag"

	"github.com/cursolab/campus-backend/internal/config"
	"github.com/cursolab/campus-backend/internal/database"
	"github.com/cursolab/campus-backend/internal/events"
	"github.com/cursolab/campus-backend/internal/logger"
	"github.com/cursolab/campus-backend/internal/seed"
)

func main() {
	var fixturePath string
	flag.StringVar(&fixturePath, "file", "", "YAML fixture to load (defaults to the built-in sample data)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Fatal().Msg("Seeding the memory store has no lasting effect; set STORE_DRIVER=postgres")
	}

	// ─── Load Fixture ──────────────────────────────────────────────────
	var (
		fx  *seed.Fixture
		err error
	)
	if fixturePath == "" {
		fx, err = seed.Default()
	} else {
		fx, err = seed.LoadFile(fixturePath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", fixturePath).Msg("Failed to load fixture")
	}

	ctx := context.Background()

	// ─── Open Store ────────────────────────────────────────────────────
	store, closeStore, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	sum, err := seed.Apply(ctx, store, events.NewLocalBus(), log, fx)
	if err != nil {
		log.Error().Err(err).
			Int("students", sum.Students).
			Int("courses", sum.Courses).
			Int("enrollments", sum.Enrollments).
			Int("tasks", sum.Tasks).
			Msg("Seeding stopped part way")
		return
	}

	log.Info().
		Int("students", sum.Students).
		Int("courses", sum.Courses).
		Int("enrollments", sum.Enrollments).
		Int("tasks", sum.Tasks).
		Msg("Seed complete")
}
