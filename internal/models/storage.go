package models

import (
	"time"

	"github.com/google/uuid"
)

// Workout origins recorded with each saved workout and compile log.
const (
	OriginAPI    = "api"
	OriginMCP    = "mcp"
	OriginImport = "import"
	OriginUpload = "upload"
)

// WorkoutRow is a row of the workouts table. Document holds the rendered
// .zwo file and is only loaded for single-workout reads.
type WorkoutRow struct {
	ID          uuid.UUID `json:"id"`
	UserID      int       `json:"user_id"`
	Name        string    `json:"name"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	FTP         int       `json:"ftp"`
	Stages      int       `json:"stages"`
	DurationSec int       `json:"duration_sec"`
	Origin      string    `json:"origin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Document    string    `json:"document,omitempty"`
}
