package mcp

import (
	"context"

	"github.com/claude/zwogen/internal/library"
	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the workout library for MCP tools. Both
// *library.Service (local) and HTTPClient (remote via REST API) satisfy
// this interface.
type DataSource interface {
	Compile(ctx context.Context, req library.Request) (*library.Outcome, error)
	Save(ctx context.Context, req library.Request, userID int, origin string) (*models.WorkoutRow, error)
	List(ctx context.Context, userID int, f storage.WorkoutFilter) ([]models.WorkoutRow, error)
	Get(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutRow, error)
	Stats(ctx context.Context, userID int) (*storage.LibraryStats, error)
}

// Compile-time check: *library.Service satisfies DataSource.
var _ DataSource = (*library.Service)(nil)
