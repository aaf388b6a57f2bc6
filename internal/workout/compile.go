package workout

import (
	"fmt"
	"strings"
)

// Result is the outcome of a successful compilation.
type Result struct {
	Workout      *Workout
	Tokens       []Token
	Document     string
	TotalSeconds int
	// ZeroDuration is set when the workout lasts zero seconds. The document
	// is still produced.
	ZeroDuration bool
}

// Compile runs the whole pipeline on workout text: tokenize, parse and
// render. An empty description defaults to the trimmed workout text. On
// error no document is returned.
func Compile(text string, meta Metadata) (*Result, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	wo, err := Parse(tokens)
	if err != nil {
		return nil, err
	}

	// The default is the workout text as given, minus surrounding whitespace.
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(text)
	}
	doc, err := RenderString(wo, meta)
	if err != nil {
		return nil, fmt.Errorf("rendering workout: %w", err)
	}

	total := wo.TotalSeconds()
	return &Result{
		Workout:      wo,
		Tokens:       tokens,
		Document:     doc,
		TotalSeconds: total,
		ZeroDuration: total == 0,
	}, nil
}

// FormatDuration renders seconds as H:MM:SS. Hours are not wrapped at 24.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		return "-" + FormatDuration(-seconds)
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}
