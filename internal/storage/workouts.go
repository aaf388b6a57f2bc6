package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/zwogen/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WorkoutFilter narrows QueryWorkouts. Name and Author match
// case-insensitive substrings; empty fields match everything.
type WorkoutFilter struct {
	Name   string
	Author string
	Limit  int
}

// UpsertWorkout stores a workout, replacing an existing one with the same
// name for the same user. The stored row (with its id and timestamps) is
// returned; a replaced workout keeps its original id.
func (db *DB) UpsertWorkout(ctx context.Context, row models.WorkoutRow) (*models.WorkoutRow, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO workouts (id, user_id, name, author, description, source, ftp, stages,
		 duration_sec, origin, document)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (user_id, name) DO UPDATE SET
			author = EXCLUDED.author, description = EXCLUDED.description,
			source = EXCLUDED.source, ftp = EXCLUDED.ftp, stages = EXCLUDED.stages,
			duration_sec = EXCLUDED.duration_sec, origin = EXCLUDED.origin,
			document = EXCLUDED.document, updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		row.ID, row.UserID, row.Name, row.Author, row.Description, row.Source, row.FTP,
		row.Stages, row.DurationSec, row.Origin, row.Document,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting workout %q: %w", row.Name, err)
	}
	return &row, nil
}

// QueryWorkouts lists a user's workouts, most recently updated first,
// without their documents.
func (db *DB) QueryWorkouts(ctx context.Context, userID int, f WorkoutFilter) ([]models.WorkoutRow, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, author, description, source, ftp, stages,
		 duration_sec, origin, created_at, updated_at
		 FROM workouts
		 WHERE user_id = $1
		   AND ($2::text = '' OR name ILIKE '%' || $2::text || '%')
		   AND ($3::text = '' OR author ILIKE '%' || $3::text || '%')
		 ORDER BY updated_at DESC
		 LIMIT $4`,
		userID, f.Name, f.Author, limit)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRow
	for rows.Next() {
		var w models.WorkoutRow
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Author, &w.Description, &w.Source,
			&w.FTP, &w.Stages, &w.DurationSec, &w.Origin, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single workout, including its document.
func (db *DB) GetWorkout(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutRow, error) {
	var w models.WorkoutRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, author, description, source, ftp, stages,
		 duration_sec, origin, created_at, updated_at, document
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&w.ID, &w.UserID, &w.Name, &w.Author, &w.Description, &w.Source,
		&w.FTP, &w.Stages, &w.DurationSec, &w.Origin, &w.CreatedAt, &w.UpdatedAt, &w.Document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout %s: %w", id, err)
	}
	return &w, nil
}

// DeleteWorkout removes a workout. Returns ErrNotFound if it does not exist.
func (db *DB) DeleteWorkout(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
