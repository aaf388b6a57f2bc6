package storage

import (
	"context"
	"fmt"
	"time"
)

// LibraryStats holds aggregate statistics about a user's workout library.
type LibraryStats struct {
	TotalWorkouts    int64        `json:"total_workouts"`
	TotalDurationSec int64        `json:"total_duration_sec"`
	TotalCompiles    int64        `json:"total_compiles"`
	FailedCompiles   int64        `json:"failed_compiles"`
	EarliestWorkout  *time.Time   `json:"earliest_workout"`
	LatestWorkout    *time.Time   `json:"latest_workout"`
	ByAuthor         []AuthorStat `json:"by_author"`
}

// AuthorStat holds summary stats for the workouts of a single author.
type AuthorStat struct {
	Author        string `json:"author"`
	Count         int64  `json:"count"`
	TotalDuration int64  `json:"total_duration_sec"`
}

// GetLibraryStats returns aggregate statistics for a user's workouts and compile history.
func (db *DB) GetLibraryStats(ctx context.Context, userID int) (*LibraryStats, error) {
	stats := &LibraryStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_sec), 0), MIN(created_at), MAX(updated_at)
		 FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.TotalDurationSec, &stats.EarliestWorkout, &stats.LatestWorkout)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'error')
		 FROM compile_logs WHERE user_id = $1`, userID,
	).Scan(&stats.TotalCompiles, &stats.FailedCompiles)
	if err != nil {
		return nil, fmt.Errorf("counting compile logs: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT author, COUNT(*), COALESCE(SUM(duration_sec), 0)
		 FROM workouts
		 WHERE user_id = $1
		 GROUP BY author
		 ORDER BY COUNT(*) DESC, author`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by author: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s AuthorStat
		if err := rows.Scan(&s.Author, &s.Count, &s.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning author stat: %w", err)
		}
		stats.ByAuthor = append(stats.ByAuthor, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
