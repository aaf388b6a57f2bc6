package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/zwogen/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// recentLimit is the number of workouts listed by zwogen://recent_workouts.
const recentLimit = 20

const grammarGuide = "# Workout notation\n" +
	"\n" +
	"A workout is a `+`-separated list of stages followed by the rider's FTP:\n" +
	"\n" +
	"    Workout  = Stages \"|\" Integer \"w\"\n" +
	"    Stages   = Stage { \"+\" Stage }\n" +
	"    Stage    = Integer \"*\" \"(\" Stages \")\" | Time \"@\" Effort\n" +
	"    Time     = Number (\"h\" | \"m\" | \"s\")\n" +
	"    Effort   = Watts [ \"/\" Integer \"c\" \"-\" Integer \"c\" ]\n" +
	"    Watts    = \"_\" | Integer \"w\" [ \"-\" Integer \"w\" ]\n" +
	"\n" +
	"- `5m@_` rides five minutes without a power target.\n" +
	"- `1m@300w` holds 300 watts for one minute.\n" +
	"- `10m@100w-200w` ramps from 100 to 200 watts (a falling ramp becomes a cooldown).\n" +
	"- `/85c-95c` adds a cadence band in rpm; the lower bound must not exceed the upper.\n" +
	"- `3*( ... )` repeats a group of stages.\n" +
	"- Times may be fractional (`1.5m`) and are rounded to whole seconds.\n" +
	"- Unit letters are case-insensitive and whitespace is ignored.\n" +
	"- Power is written relative to the FTP after `|`, which must be positive.\n" +
	"\n" +
	"Example: `10m@100w-200w + 3*(5m@250w/90c-100c + 2m@_) + 5m@150w-80w | 250w`\n"

func (h *handlers) grammar(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     grammarGuide,
		},
	}, nil
}

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	workouts, err := h.ds.List(ctx, uid, storage.WorkoutFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(workouts)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
