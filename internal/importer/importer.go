package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/claude/zwogen/internal/library"
	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/workout"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	WorkoutsSaved int
	TotalSeconds  int64

	// Failed lists the files that did not compile, relative to the import root.
	Failed []string
}

// Importer reads .workout files from a directory tree and saves them to a
// user's library.
type Importer struct {
	lib    *library.Service
	log    *slog.Logger
	userID int
	dryRun bool
	stats  Stats
}

// New creates a new Importer. In dry-run mode workouts are compiled but not saved.
func New(lib *library.Service, userID int, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{lib: lib, log: log, userID: userID, dryRun: dryRun}
}

// Import processes all workout files under dir in path order. Files that fail
// to compile are counted and skipped; a storage failure aborts the import.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	files, err := workout.FindSources(dir)
	if err != nil {
		return &imp.stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, dir, f); err != nil {
			return &imp.stats, err
		}
	}
	return &imp.stats, nil
}

// importFile loads, compiles and saves a single file. It returns an error
// only for failures that should stop the whole import.
func (imp *Importer) importFile(ctx context.Context, root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	src, err := workout.LoadSource(path)
	if errors.Is(err, workout.ErrEmptySource) {
		imp.log.Info("skipping empty workout file", "file", rel)
		imp.stats.FilesSkipped++
		return nil
	}
	if err != nil {
		imp.log.Warn("read failed", "file", rel, "error", err)
		imp.fail(rel)
		return nil
	}

	req := library.Request{
		Name:        src.Meta.Name,
		Author:      src.Meta.Author,
		Description: src.Meta.Description,
		Workout:     src.Text,
	}

	if imp.dryRun {
		out, err := imp.lib.Compile(ctx, req)
		if err != nil {
			imp.compileFailed(rel, err)
			return nil
		}
		imp.stats.FilesProcessed++
		imp.stats.TotalSeconds += int64(out.TotalSeconds)
		imp.log.Info("dry-run: would save", "file", rel, "name", out.Name, "duration", out.Duration)
		return nil
	}

	row, err := imp.lib.Save(ctx, req, imp.userID, models.OriginImport)
	if err != nil {
		if workout.ErrorKind(err) != "" || errors.Is(err, library.ErrInvalidRequest) {
			imp.compileFailed(rel, err)
			return nil
		}
		return fmt.Errorf("saving %s: %w", rel, err)
	}

	imp.stats.FilesProcessed++
	imp.stats.WorkoutsSaved++
	imp.stats.TotalSeconds += int64(row.DurationSec)
	return nil
}

func (imp *Importer) compileFailed(rel string, err error) {
	attrs := []any{"file", rel, "error", err}
	if kind := workout.ErrorKind(err); kind != "" {
		attrs = append(attrs, "kind", kind)
	}
	if tokens := workout.RemainingTokens(err); len(tokens) > 0 {
		attrs = append(attrs, "tokens", workout.Notation(tokens))
	}
	imp.log.Warn("compile failed", attrs...)
	imp.fail(rel)
}

func (imp *Importer) fail(rel string) {
	imp.stats.FilesErrored++
	imp.stats.Failed = append(imp.stats.Failed, rel)
}
