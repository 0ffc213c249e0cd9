// Package main is the entry point for the allocator service: a sector-aware
// portfolio optimizer that turns stored price history into a max-Sharpe
// allocation under per-sector weight bounds.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/allocator/internal/config"
	"github.com/aristath/allocator/internal/database"
	"github.com/aristath/allocator/internal/modules/calculations"
	"github.com/aristath/allocator/internal/modules/optimization"
	optimizationhandlers "github.com/aristath/allocator/internal/modules/optimization/handlers"
	"github.com/aristath/allocator/internal/modules/universe"
	universehandlers "github.com/aristath/allocator/internal/modules/universe/handlers"
	"github.com/aristath/allocator/internal/scheduler"
	"github.com/aristath/allocator/internal/server"
	"github.com/aristath/allocator/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting allocator")

	// Two-database layout: durable universe data and recomputable cache data.
	universeDB, err := database.New(database.Config{
		Path:    cfg.UniverseDBPath(),
		Profile: database.ProfileStandard,
		Name:    "universe",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open universe database")
	}
	defer universeDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := universeDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate universe database")
	}
	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Repositories and services.
	universeRepo := universe.NewRepository(universeDB.Conn(), log)
	historyDB := universe.NewHistoryDB(universeDB.Conn(), log)
	calcCache := calculations.NewCache(cacheDB.Conn(), log)
	resultRepo := optimization.NewResultRepository(cacheDB.Conn(), log)
	runner := optimization.NewRunner(universeRepo, historyDB, calcCache, resultRepo, cfg.LookbackDays, log)

	// Background jobs: nightly re-optimization and hourly maintenance.
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.CronSchedule, scheduler.NewOptimizeJob(runner, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register optimization job")
	}
	maintenanceJob := scheduler.NewMaintenanceJob([]*database.DB{universeDB, cacheDB}, calcCache, log)
	if err := sched.AddJob("@hourly", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:                 cfg.Port,
		DevMode:              cfg.DevMode,
		Log:                  log,
		Config:               cfg,
		UniverseDB:           universeDB,
		CacheDB:              cacheDB,
		UniverseHandlers:     universehandlers.NewHandler(universeRepo, historyDB, log),
		OptimizationHandlers: optimizationhandlers.NewHandler(runner, resultRepo, log),
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Allocator stopped")
}
