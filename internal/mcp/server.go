package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("zwogen", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("zwogen compiles compact bike workout notation such as '3*(1m@300w+1m@100w)|250w' into Zwift .zwo files and keeps a per-user workout library. Read zwogen://grammar before writing workouts."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolCompileWorkout, Handler: h.compileWorkout},
		server.ServerTool{Tool: toolSaveWorkout, Handler: h.saveWorkout},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolGetLibraryStats, Handler: h.getLibraryStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resGrammar, Handler: h.grammar},
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resGrammar = mcp.NewResource(
	"zwogen://grammar",
	"Workout Grammar",
	mcp.WithResourceDescription("The workout notation accepted by compile_workout and save_workout, with examples"),
	mcp.WithMIMEType("text/markdown"),
)

var resRecentWorkouts = mcp.NewResource(
	"zwogen://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("The 20 most recently updated workouts in the library"),
	mcp.WithMIMEType("application/json"),
)
