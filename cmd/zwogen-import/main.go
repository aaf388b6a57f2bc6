package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/zwogen/internal/config"
	"github.com/claude/zwogen/internal/importer"
	"github.com/claude/zwogen/internal/library"
	"github.com/claude/zwogen/internal/storage"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "path to config file")
	sourcePath := pflag.StringP("path", "p", "", "directory of .workout files (required)")
	migrationsPath := pflag.String("migrations", "migrations", "path to the SQL migrations directory")
	login := pflag.String("user", "local", "login of the library owner")
	dryRun := pflag.Bool("dry-run", false, "compile and report counts without writing to the database")
	pflag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *sourcePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: zwogen-import --config config.yaml --path /path/to/workouts [--user login] [--dry-run]\n")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	// Verify source directory exists
	info, err := os.Stat(*sourcePath)
	if err != nil || !info.IsDir() {
		log.Error("source path does not exist or is not a directory", "path", *sourcePath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, *migrationsPath); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no workouts will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	lib := library.NewService(db, log, library.Options{
		DefaultAuthor:  cfg.Library.DefaultAuthor,
		MaxSourceBytes: cfg.Library.MaxSourceBytes,
	})

	// Run import
	imp := importer.New(lib, userID, log, *dryRun)
	stats, err := imp.Import(ctx, *sourcePath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"workouts_saved", stats.WorkoutsSaved,
		"total_seconds", stats.TotalSeconds,
	)
	if len(stats.Failed) > 0 {
		log.Info("files that did not compile", "files", stats.Failed)
	}
}
