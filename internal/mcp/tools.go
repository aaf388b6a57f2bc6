package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/claude/zwogen/internal/library"
	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/storage"
	"github.com/claude/zwogen/internal/workout"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultCompileName is used when compile_workout is called without a name.
const defaultCompileName = "Untitled workout"

// --- Tool definitions ---

var toolCompileWorkout = mcp.NewTool("compile_workout",
	mcp.WithDescription("Compile workout notation into a Zwift .zwo document without saving it. Returns the stage list, total duration (H:MM:SS) and the XML document. Compile errors report their kind (lex, syntax, semantic) and the remaining tokens."),
	mcp.WithString("workout", mcp.Required(), mcp.Description("Workout notation, e.g. '10m@100w-200w + 3*(5m@250w/90c-100c + 2m@_) | 250w'")),
	mcp.WithString("name", mcp.Description("Workout name. Defaults to 'Untitled workout'.")),
	mcp.WithString("author", mcp.Description("Author shown in Zwift. Defaults to the server's default author.")),
	mcp.WithString("description", mcp.Description("Description shown in Zwift. Defaults to the workout notation.")),
)

var toolSaveWorkout = mcp.NewTool("save_workout",
	mcp.WithDescription("Compile a workout and save it to the library. A workout with the same name is replaced."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Workout name, unique within the library")),
	mcp.WithString("workout", mcp.Required(), mcp.Description("Workout notation")),
	mcp.WithString("author", mcp.Description("Author shown in Zwift")),
	mcp.WithString("description", mcp.Description("Description shown in Zwift. Defaults to the workout notation.")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List saved workouts, most recently updated first. Returns name, author, FTP, stage count and duration but not the document."),
	mcp.WithString("name", mcp.Description("Filter by workout name (partial match, case-insensitive)")),
	mcp.WithString("author", mcp.Description("Filter by author (partial match, case-insensitive)")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts. Defaults to 100.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get a saved workout by ID, including its source notation and .zwo document."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID (UUID) as returned by list_workouts")),
	mcp.WithString("format", mcp.Description("'json' for the full record, 'zwo' for the bare XML document. Defaults to 'json'."), mcp.Enum("json", "zwo")),
)

var toolGetLibraryStats = mcp.NewTool("get_library_stats",
	mcp.WithDescription("Aggregate library statistics: workout count, total duration, compile success/failure counts and per-author totals."),
)

// --- Tool handlers ---

func (h *handlers) compileWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("workout")
	if err != nil {
		return mcp.NewToolResultError("workout parameter is required"), nil
	}

	out, err := h.ds.Compile(ctx, library.Request{
		Name:        req.GetString("name", defaultCompileName),
		Author:      req.GetString("author", ""),
		Description: req.GetString("description", ""),
		Workout:     text,
	})
	if err != nil {
		return mcp.NewToolResultError(describeFailure("compile", err)), nil
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) saveWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	text, err := req.RequireString("workout")
	if err != nil {
		return mcp.NewToolResultError("workout parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	row, err := h.ds.Save(ctx, library.Request{
		Name:        name,
		Author:      req.GetString("author", ""),
		Description: req.GetString("description", ""),
		Workout:     text,
	}, uid, models.OriginMCP)
	if err != nil {
		if !isClientError(err) {
			h.log.Error("mcp save_workout", "error", err)
		}
		return mcp.NewToolResultError(describeFailure("save", err)), nil
	}

	result, err := mcp.NewToolResultJSON(row)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	uid := UserIDFromContext(ctx)
	rows, err := h.ds.List(ctx, uid, storage.WorkoutFilter{
		Name:   req.GetString("name", ""),
		Author: req.GetString("author", ""),
		Limit:  limit,
	})
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid workout ID: " + raw), nil
	}

	uid := UserIDFromContext(ctx)
	row, err := h.ds.Get(ctx, id, uid)
	if errors.Is(err, library.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + raw), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if req.GetString("format", "json") == "zwo" {
		return mcp.NewToolResultText(row.Document), nil
	}
	result, err := mcp.NewToolResultJSON(row)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getLibraryStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	stats, err := h.ds.Stats(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_library_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"stats":          stats,
		"total_duration": workout.FormatDuration(int(stats.TotalDurationSec)),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// describeFailure renders a compile or save error for a tool result. Lex,
// syntax and semantic errors carry their kind and the remaining tokens,
// whether they were raised locally or returned by a remote server.
func describeFailure(op string, err error) string {
	kind := workout.ErrorKind(err)
	msg := err.Error()
	tokens := workout.Notation(workout.RemainingTokens(err))

	var apiErr *APIError
	if kind == "" && errors.As(err, &apiErr) && apiErr.Kind != "" {
		kind, msg, tokens = apiErr.Kind, apiErr.Message, apiErr.Tokens
	}
	if kind == "" {
		return op + " failed: " + msg
	}

	out := fmt.Sprintf("%s error: %s", kind, msg)
	if tokens != "" {
		out += "\nremaining tokens: " + tokens
	}
	return out
}

// isClientError reports errors caused by the request rather than the library.
func isClientError(err error) bool {
	if workout.ErrorKind(err) != "" || errors.Is(err, library.ErrInvalidRequest) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}
