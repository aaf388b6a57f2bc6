package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// ErrLocked is returned when another upload holds the state directory lock.
var ErrLocked = errors.New("another upload is running")

// StateDB tracks which files have been successfully uploaded to avoid re-sending.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_files (
		path        TEXT PRIMARY KEY,
		size        INTEGER NOT NULL,
		hash        TEXT NOT NULL,
		workout_id  TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsUploaded checks if a file has already been uploaded with the same size and hash.
func (s *StateDB) IsUploaded(relPath string, size int64, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM uploaded_files WHERE path = ? AND size = ? AND hash = ?`,
		relPath, size, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkUploaded records that a file was successfully uploaded. workoutID is
// empty for files that had nothing to send.
func (s *StateDB) MarkUploaded(relPath string, size int64, hash, workoutID string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO uploaded_files (path, size, hash, workout_id) VALUES (?, ?, ?, ?)`,
		relPath, size, hash, workoutID,
	)
	return err
}

// Prune forgets every recorded path not in present, so a file that is
// deleted and later restored is uploaded again. It returns the number of
// rows removed.
func (s *StateDB) Prune(present []string) (int, error) {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}

	rows, err := s.db.Query(`SELECT path FROM uploaded_files`)
	if err != nil {
		return 0, fmt.Errorf("listing uploaded files: %w", err)
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning uploaded file: %w", err)
		}
		if !keep[p] {
			stale = append(stale, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing uploaded files: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning prune: %w", err)
	}
	for _, p := range stale {
		if _, err := tx.Exec(`DELETE FROM uploaded_files WHERE path = ?`, p); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("forgetting %s: %w", p, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return len(stale), nil
}

// UploadedCount returns the number of files recorded as uploaded.
func (s *StateDB) UploadedCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM uploaded_files`).Scan(&count)
	return count, err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// LockStateDir takes an exclusive lock on dir so that only one upload runs
// against a state database at a time. The caller must Unlock the result.
func LockStateDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	lock := flock.New(filepath.Join(dir, "upload.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock held: %s)", ErrLocked, lock.Path())
	}
	return lock, nil
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
