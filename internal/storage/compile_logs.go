package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CompileLog records the outcome of a single compile or save request.
type CompileLog struct {
	ID           int64            `json:"id"`
	UserID       int              `json:"user_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Origin       string           `json:"origin"`
	WorkoutName  string           `json:"workout_name"`
	Status       string           `json:"status"`
	ErrorKind    *string          `json:"error_kind"`
	ErrorMessage *string          `json:"error_message"`
	DurationSec  *int             `json:"duration_sec"`
	ElapsedMs    int              `json:"elapsed_ms"`
	Metadata     *json.RawMessage `json:"metadata"`
}

// InsertCompileLog creates a new compile log entry and returns its ID.
func (db *DB) InsertCompileLog(ctx context.Context, log CompileLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO compile_logs (user_id, origin, workout_name, status, error_kind,
		 error_message, duration_sec, elapsed_ms, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		log.UserID, log.Origin, log.WorkoutName, log.Status, log.ErrorKind,
		log.ErrorMessage, log.DurationSec, log.ElapsedMs, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting compile log: %w", err)
	}
	return id, nil
}

// QueryCompileLogs returns the most recent compile logs for a user.
func (db *DB) QueryCompileLogs(ctx context.Context, userID, limit int) ([]CompileLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, origin, workout_name, status, error_kind,
		 error_message, duration_sec, elapsed_ms, metadata
		 FROM compile_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying compile logs: %w", err)
	}
	defer rows.Close()

	var result []CompileLog
	for rows.Next() {
		var l CompileLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.Origin, &l.WorkoutName, &l.Status,
			&l.ErrorKind, &l.ErrorMessage, &l.DurationSec, &l.ElapsedMs, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning compile log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
