package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/claude/zwogen/internal/workout"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal     int
	FilesUploaded  int
	FilesSkipped   int
	FilesErrored   int
	FilesForgotten int // state rows dropped for files no longer on disk

	TotalSeconds int64
}

// Uploader walks a directory of .workout files, compiles each one locally and
// POSTs the ones that compile to the zwogen server.
type Uploader struct {
	client *Client
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, root string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		root:   root,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the upload pipeline. Files that fail locally or are rejected
// by the server are counted and retried on the next run; a server that stays
// unreachable aborts the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := workout.FindSources(u.root)
	if err != nil {
		return &u.stats, err
	}

	present := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.processFile(ctx, f); err != nil {
			return &u.stats, err
		}
		rel, _ := filepath.Rel(u.root, f)
		present = append(present, rel)
	}

	if !u.dryRun {
		n, err := u.state.Prune(present)
		if err != nil {
			return &u.stats, err
		}
		u.stats.FilesForgotten = n
		if n > 0 {
			u.log.Info("forgot deleted files", "count", n)
		}
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) error {
	u.stats.FilesTotal++

	relPath, _ := filepath.Rel(u.root, path)
	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	uploaded, err := u.state.IsUploaded(relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	src, err := workout.LoadSource(path)
	if errors.Is(err, workout.ErrEmptySource) {
		u.stats.FilesSkipped++
		// Mark empty files as uploaded so we don't re-check them
		if !u.dryRun {
			_ = u.state.MarkUploaded(relPath, info.Size(), hash, "")
		}
		return nil
	}
	if err != nil {
		u.log.Warn("read failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}

	// Compile locally so broken files never reach the server
	res, err := workout.Compile(src.Text, src.Meta)
	if err != nil {
		u.log.Warn("compile failed", "file", relPath, "kind", workout.ErrorKind(err), "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if res.ZeroDuration {
		u.log.Warn("workout has zero duration", "file", relPath)
	}

	if u.dryRun {
		u.log.Info("dry-run: would send", "file", relPath, "name", src.Meta.Name,
			"duration", workout.FormatDuration(res.TotalSeconds))
		u.stats.FilesUploaded++
		u.stats.TotalSeconds += int64(res.TotalSeconds)
		return nil
	}

	id, err := u.client.SendWorkout(ctx, Workout{
		Name:        src.Meta.Name,
		Author:      src.Meta.Author,
		Description: src.Meta.Description,
		Workout:     src.Text,
	})
	if errors.Is(err, ErrRejected) {
		u.log.Warn("server rejected workout", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return nil
	}
	if err != nil {
		return fmt.Errorf("sending %s: %w", relPath, err)
	}

	if err := u.state.MarkUploaded(relPath, info.Size(), hash, id); err != nil {
		u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
	}
	u.stats.FilesUploaded++
	u.stats.TotalSeconds += int64(res.TotalSeconds)
	u.log.Info("uploaded workout", "file", relPath, "name", src.Meta.Name, "id", id)
	return nil
}
