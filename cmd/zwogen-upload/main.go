package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/claude/zwogen/internal/upload"
	"github.com/claude/zwogen/internal/workout"
	"github.com/spf13/pflag"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := pflag.StringP("server", "s", "", "zwogen server URL (e.g. https://zwogen.tail1234.ts.net)")
	sourcePath := pflag.StringP("path", "p", "", "directory of .workout files")
	apiKey := pflag.String("api-key", os.Getenv("ZWOGEN_API_KEY"), "server API key (default $ZWOGEN_API_KEY)")
	stateDir := pflag.String("state-dir", "", "directory for upload state (default ~/.zwogen-upload)")
	dryRun := pflag.Bool("dry-run", false, "compile locally but don't send to server")
	version := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *version {
		fmt.Println("zwogen-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *sourcePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: zwogen-upload --server <URL> --path <workout dir> [--api-key KEY] [--dry-run]\n\n")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: --server is required (or use --dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*sourcePath)
	if err != nil || !info.IsDir() {
		log.Error("workout directory not found", "path", *sourcePath)
		os.Exit(1)
	}
	log.Info("using workout directory", "path", *sourcePath, "ext", workout.SourceExt)

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".zwogen-upload")
	}

	lock, err := upload.LockStateDir(*stateDir)
	if err != nil {
		log.Error("another upload is running", "error", err)
		os.Exit(1)
	}
	defer func() { _ = lock.Unlock() }()

	// Open state database
	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	}

	if *dryRun {
		log.Info("DRY RUN mode, files will be compiled but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run upload
	uploader := upload.New(client, state, *sourcePath, *dryRun, log)
	stats, err := uploader.Run(ctx)
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded or empty)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Printf("  Files forgotten:  %d (deleted since last run)\n", stats.FilesForgotten)
	fmt.Println()
	fmt.Printf("  Total time:       %s h\n", workout.FormatDuration(int(stats.TotalSeconds)))
	fmt.Println()
}
