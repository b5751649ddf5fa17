package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/pinggolf/breadplan/internal/api"
	"github.com/pinggolf/breadplan/internal/config"
	"github.com/pinggolf/breadplan/internal/db"
	"github.com/pinggolf/breadplan/internal/queue"
	"github.com/pinggolf/breadplan/internal/solver"
	"github.com/pinggolf/breadplan/internal/workers"
)

func main() {
	if err := godotenv.Load("../../.env"); err != nil {
		fmt.Fprintln(os.Stderr, "warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(cfg, logger)
		return
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	database.SetMaxOpenConns(cfg.DatabaseMaxConnections)
	database.SetMaxIdleConns(cfg.DatabaseMaxIdleConnections)
	database.SetConnMaxLifetime(cfg.DatabaseConnectionLifetime)

	if err := database.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping database")
	}
	logger.Info().Msg("database connection established")

	if cfg.RunMigrations {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(database, "migrations"); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		logger.Info().Msg("database migrations completed")
	} else {
		logger.Info().Msg("skipping migrations (RUN_MIGRATIONS=false)")
	}

	queries := db.New(database)

	logger.Info().Str("url", cfg.NATSURL).Msg("connecting to nats")
	natsManager, err := queue.NewManager(cfg.NATSURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer natsManager.Close()
	logger.Info().Msg("nats connection established")

	cbcSolver := solver.NewCBC(solver.Config{
		BinaryPath:     cfg.SolverBinaryPath,
		TimeLimit:      cfg.SolverTimeLimit,
		MIPGap:         cfg.SolverMIPGap,
		WorkDir:        cfg.SolverWorkDir,
		CompressLPDump: cfg.SolverCompressDumps,
		Logger:         logger,
	})

	solveWorker := workers.NewSolveWorker(natsManager, queries, cbcSolver, logger)
	if err := solveWorker.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to start solve worker")
	}
	logger.Info().Msg("solve worker started")

	server := api.NewServer(cfg, queries, natsManager, database, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AppPort),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped gracefully")
}

func runMigrations(cfg *config.Config, logger zerolog.Logger) {
	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("running database migrations")
	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("migrations completed")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := os.Stdout
	if cfg.LogFormat == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
