package library

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/storage"
	"github.com/google/uuid"
)

// MemStore is an in-memory Store for development servers and tests. It
// keeps the same uniqueness and ordering rules as the PostgreSQL schema.
type MemStore struct {
	mu       sync.Mutex
	users    map[string]int
	workouts map[uuid.UUID]models.WorkoutRow
	logs     []storage.CompileLog
	now      func() time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:    map[string]int{},
		workouts: map[uuid.UUID]models.WorkoutRow{},
		now:      time.Now,
	}
}

// GetOrCreateUser assigns IDs in order of first sight, starting at 1.
func (m *MemStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.users[login]; ok {
		return id, nil
	}
	id := len(m.users) + 1
	m.users[login] = id
	return id, nil
}

func (m *MemStore) UpsertWorkout(_ context.Context, row models.WorkoutRow) (*models.WorkoutRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, existing := range m.workouts {
		if existing.UserID == row.UserID && existing.Name == row.Name {
			row.ID = id
			row.CreatedAt = existing.CreatedAt
			row.UpdatedAt = now
			m.workouts[id] = row
			return &row, nil
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt, row.UpdatedAt = now, now
	m.workouts[row.ID] = row
	return &row, nil
}

func (m *MemStore) QueryWorkouts(_ context.Context, userID int, f storage.WorkoutFilter) ([]models.WorkoutRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.WorkoutRow
	for _, w := range m.workouts {
		if w.UserID != userID || !containsFold(w.Name, f.Name) || !containsFold(w.Author, f.Author) {
			continue
		}
		w.Document = ""
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].Name < result[j].Name
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemStore) GetWorkout(_ context.Context, id uuid.UUID, userID int) (*models.WorkoutRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workouts[id]
	if !ok || w.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

func (m *MemStore) DeleteWorkout(_ context.Context, id uuid.UUID, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workouts[id]
	if !ok || w.UserID != userID {
		return storage.ErrNotFound
	}
	delete(m.workouts, id)
	return nil
}

func (m *MemStore) InsertCompileLog(_ context.Context, log storage.CompileLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.ID = int64(len(m.logs) + 1)
	log.CreatedAt = m.now()
	m.logs = append(m.logs, log)
	return log.ID, nil
}

func (m *MemStore) QueryCompileLogs(_ context.Context, userID, limit int) ([]storage.CompileLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var result []storage.CompileLog
	for i := len(m.logs) - 1; i >= 0 && len(result) < limit; i-- {
		if m.logs[i].UserID == userID {
			result = append(result, m.logs[i])
		}
	}
	return result, nil
}

func (m *MemStore) GetLibraryStats(_ context.Context, userID int) (*storage.LibraryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &storage.LibraryStats{}
	byAuthor := map[string]*storage.AuthorStat{}
	for _, w := range m.workouts {
		if w.UserID != userID {
			continue
		}
		stats.TotalWorkouts++
		stats.TotalDurationSec += int64(w.DurationSec)
		if stats.EarliestWorkout == nil || w.CreatedAt.Before(*stats.EarliestWorkout) {
			t := w.CreatedAt
			stats.EarliestWorkout = &t
		}
		if stats.LatestWorkout == nil || w.UpdatedAt.After(*stats.LatestWorkout) {
			t := w.UpdatedAt
			stats.LatestWorkout = &t
		}
		a, ok := byAuthor[w.Author]
		if !ok {
			a = &storage.AuthorStat{Author: w.Author}
			byAuthor[w.Author] = a
		}
		a.Count++
		a.TotalDuration += int64(w.DurationSec)
	}
	for _, l := range m.logs {
		if l.UserID != userID {
			continue
		}
		stats.TotalCompiles++
		if l.Status == "error" {
			stats.FailedCompiles++
		}
	}
	for _, a := range byAuthor {
		stats.ByAuthor = append(stats.ByAuthor, *a)
	}
	sort.Slice(stats.ByAuthor, func(i, j int) bool {
		if stats.ByAuthor[i].Count != stats.ByAuthor[j].Count {
			return stats.ByAuthor[i].Count > stats.ByAuthor[j].Count
		}
		return stats.ByAuthor[i].Author < stats.ByAuthor[j].Author
	})
	return stats, nil
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
