package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/storage"
	"github.com/claude/zwogen/internal/workout"
	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned for workouts that do not exist for the user.
	ErrNotFound = storage.ErrNotFound
)

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	UpsertWorkout(ctx context.Context, row models.WorkoutRow) (*models.WorkoutRow, error)
	QueryWorkouts(ctx context.Context, userID int, f storage.WorkoutFilter) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutRow, error)
	DeleteWorkout(ctx context.Context, id uuid.UUID, userID int) error
	InsertCompileLog(ctx context.Context, log storage.CompileLog) (int64, error)
	QueryCompileLogs(ctx context.Context, userID, limit int) ([]storage.CompileLog, error)
	GetLibraryStats(ctx context.Context, userID int) (*storage.LibraryStats, error)
}

var _ Store = (*storage.DB)(nil)

// Request is a workout to compile, as received from a client.
type Request struct {
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Workout     string `json:"workout"`
}

// Outcome holds the result of a successful compilation.
type Outcome struct {
	Name         string   `json:"name"`
	Author       string   `json:"author"`
	Description  string   `json:"description"`
	FTP          int      `json:"ftp"`
	Stages       []string `json:"stages"`
	TotalSeconds int      `json:"total_seconds"`
	Duration     string   `json:"duration"`
	ZeroDuration bool     `json:"zero_duration,omitempty"`
	Document     string   `json:"document"`
}

// Options configures a Service.
type Options struct {
	DefaultAuthor  string
	MaxSourceBytes int
}

// Service compiles workouts and manages a user's workout library.
type Service struct {
	store Store
	log   *slog.Logger
	opts  Options
}

// NewService creates a new workout library service.
func NewService(store Store, log *slog.Logger, opts Options) *Service {
	return &Service{store: store, log: log, opts: opts}
}

// Compile validates and compiles a request without storing it.
func (s *Service) Compile(ctx context.Context, req Request) (*Outcome, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	res, err := workout.Compile(req.Workout, s.metadata(req))
	if err != nil {
		return nil, err
	}
	return s.outcome(req, res), nil
}

// Save compiles a request and stores it in the user's library, replacing a
// workout with the same name. Every attempt is recorded as a compile log.
func (s *Service) Save(ctx context.Context, req Request, userID int, origin string) (*models.WorkoutRow, error) {
	start := time.Now()
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	meta := s.metadata(req)
	res, err := workout.Compile(req.Workout, meta)
	if err != nil {
		s.recordFailure(ctx, userID, origin, req.Name, err, start)
		return nil, err
	}

	row, err := s.store.UpsertWorkout(ctx, models.WorkoutRow{
		UserID:      userID,
		Name:        req.Name,
		Author:      meta.Author,
		Description: meta.Description,
		Source:      strings.TrimSpace(req.Workout),
		FTP:         res.Workout.FTP,
		Stages:      len(res.Workout.Program),
		DurationSec: res.TotalSeconds,
		Origin:      origin,
		Document:    res.Document,
	})
	if err != nil {
		s.recordFailure(ctx, userID, origin, req.Name, err, start)
		return nil, fmt.Errorf("storing workout: %w", err)
	}

	total := res.TotalSeconds
	s.record(ctx, storage.CompileLog{
		UserID:      userID,
		Origin:      origin,
		WorkoutName: req.Name,
		Status:      "success",
		DurationSec: &total,
		ElapsedMs:   int(time.Since(start).Milliseconds()),
	})
	if res.ZeroDuration {
		s.log.Warn("saved workout has zero duration", "name", req.Name, "user_id", userID)
	}
	s.log.Info("workout saved", "name", req.Name, "id", row.ID, "user_id", userID,
		"origin", origin, "duration_sec", total)
	return row, nil
}

// List returns the user's workouts matching the filter.
func (s *Service) List(ctx context.Context, userID int, f storage.WorkoutFilter) ([]models.WorkoutRow, error) {
	rows, err := s.store.QueryWorkouts(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.WorkoutRow{}
	}
	return rows, nil
}

// Get returns a single workout with its document.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutRow, error) {
	return s.store.GetWorkout(ctx, id, userID)
}

// Delete removes a workout from the user's library.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID int) error {
	if err := s.store.DeleteWorkout(ctx, id, userID); err != nil {
		return err
	}
	s.log.Info("workout deleted", "id", id, "user_id", userID)
	return nil
}

// Stats returns aggregate statistics for the user's library.
func (s *Service) Stats(ctx context.Context, userID int) (*storage.LibraryStats, error) {
	return s.store.GetLibraryStats(ctx, userID)
}

// CompileLogs returns the user's most recent compile logs.
func (s *Service) CompileLogs(ctx context.Context, userID, limit int) ([]storage.CompileLog, error) {
	logs, err := s.store.QueryCompileLogs(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []storage.CompileLog{}
	}
	return logs, nil
}

func (s *Service) validate(req *Request) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Workout) == "" {
		return fmt.Errorf("%w: workout is required", ErrInvalidRequest)
	}
	if s.opts.MaxSourceBytes > 0 && len(req.Workout) > s.opts.MaxSourceBytes {
		return fmt.Errorf("%w: workout exceeds %d bytes", ErrInvalidRequest, s.opts.MaxSourceBytes)
	}
	return nil
}

func (s *Service) metadata(req Request) workout.Metadata {
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = s.opts.DefaultAuthor
	}
	return workout.Metadata{
		Author:      author,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	}
}

func (s *Service) outcome(req Request, res *workout.Result) *Outcome {
	meta := s.metadata(req)
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(req.Workout)
	}
	return &Outcome{
		Name:         meta.Name,
		Author:       meta.Author,
		Description:  meta.Description,
		FTP:          res.Workout.FTP,
		Stages:       res.Workout.Stages(),
		TotalSeconds: res.TotalSeconds,
		Duration:     workout.FormatDuration(res.TotalSeconds),
		ZeroDuration: res.ZeroDuration,
		Document:     res.Document,
	}
}

func (s *Service) recordFailure(ctx context.Context, userID int, origin, name string, err error, start time.Time) {
	msg := err.Error()
	entry := storage.CompileLog{
		UserID:       userID,
		Origin:       origin,
		WorkoutName:  name,
		Status:       "error",
		ErrorMessage: &msg,
		ElapsedMs:    int(time.Since(start).Milliseconds()),
	}
	if kind := workout.ErrorKind(err); kind != "" {
		entry.ErrorKind = &kind
	}
	if tokens := workout.RemainingTokens(err); len(tokens) > 0 {
		raw, mErr := json.Marshal(map[string]string{"tokens": workout.Notation(tokens)})
		if mErr == nil {
			meta := json.RawMessage(raw)
			entry.Metadata = &meta
		}
	}
	s.record(ctx, entry)
}

func (s *Service) record(ctx context.Context, entry storage.CompileLog) {
	if _, err := s.store.InsertCompileLog(ctx, entry); err != nil {
		s.log.Warn("failed to record compile log", "name", entry.WorkoutName, "error", err)
	}
}
