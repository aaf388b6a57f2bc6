package workout

import (
	"errors"
	"strings"
	"testing"
)

// TestCompileScenarios verifies the end-to-end pipeline on the reference inputs.
func TestCompileScenarios(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		total   int
		stages  int
		element string
	}{
		{"ramp", "10m@200w-250w|250w", 600, 1, `<Warmup Duration="600" PowerLow="0.8" PowerHigh="1.0" pace="0"/>`},
		{"repeat", "3*(1m@300w+1m@100w)|250w", 360, 6, `<SteadyState Duration="60" Power="1.2" pace="0"/>`},
		{"free ride", "5m@_|200w", 300, 1, `<Freeride Duration="300"/>`},
		{"cadence", "1m@150w/80c-90c|200w", 60, 1, `<SteadyState Duration="60" Power="0.75" CadenceLow="80" CadenceHigh="90" pace="0"/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.input, Metadata{Name: "W1"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.TotalSeconds != tt.total {
				t.Errorf("TotalSeconds = %d, want %d", res.TotalSeconds, tt.total)
			}
			if len(res.Workout.Program) != tt.stages {
				t.Errorf("stages = %d, want %d", len(res.Workout.Program), tt.stages)
			}
			if !strings.Contains(res.Document, tt.element) {
				t.Errorf("expected %s in\n%s", tt.element, res.Document)
			}
			if res.ZeroDuration {
				t.Error("ZeroDuration = true, want false")
			}
		})
	}
}

// TestCompileRepeatAlternates verifies the repeated fragment keeps its order.
func TestCompileRepeatAlternates(t *testing.T) {
	res, err := Compile("3*(1m@300w+1m@100w)|250w", Metadata{Name: "W"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, tr := range res.Workout.Program {
		want := 300
		if i%2 == 1 {
			want = 100
		}
		s, ok := tr.(*SteadyEffort)
		if !ok || s.Watts != want || s.Seconds != 60 {
			t.Errorf("stage %d = %v, want power(60s, %dw)", i, tr, want)
		}
	}
}

// TestCompileErrors verifies that failures return no result and the right error kind.
func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  string
	}{
		{"inverted cadence", "1m@150w/90c-80c|200w", "semantic"},
		{"missing ftp", "1m@150w", "syntax"},
		{"bad character", "1m@150w|200k", "lex"},
		{"zero ftp", "1m@150w|0w", "semantic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.input, Metadata{Name: "W"})
			if err == nil {
				t.Fatalf("expected error, got document:\n%s", res.Document)
			}
			if res != nil {
				t.Errorf("expected nil result on error, got %+v", res)
			}
			if got := ErrorKind(err); got != tt.kind {
				t.Errorf("ErrorKind = %q, want %q", got, tt.kind)
			}
		})
	}
}

// TestCompileMissingFTPReportsPipe verifies the syntax error names '|' as expected.
func TestCompileMissingFTPReportsPipe(t *testing.T) {
	_, err := Compile("10m@200w+5m@_", Metadata{Name: "W"})
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if len(synErr.Expected) != 1 || synErr.Expected[0] != Pipe {
		t.Errorf("Expected = %v, want [|]", synErr.Expected)
	}
}

// TestCompileZeroDuration verifies the non-fatal warning flag.
func TestCompileZeroDuration(t *testing.T) {
	res, err := Compile("0s@100w+0*(5m@_)|200w", Metadata{Name: "W"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ZeroDuration {
		t.Error("ZeroDuration = false, want true")
	}
	if res.Document == "" {
		t.Error("expected a document for a zero-duration workout")
	}
}

// TestCompileDefaultDescription verifies that an empty description falls
// back to the trimmed workout text.
func TestCompileDefaultDescription(t *testing.T) {
	res, err := Compile("  5m@_ | 200w \n", Metadata{Name: "W"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Document, "<description>5m@_ | 200w</description>") {
		t.Errorf("expected default description in\n%s", res.Document)
	}

	res, err = Compile("5m@_|200w", Metadata{Name: "W", Description: "easy spin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Document, "<description>easy spin</description>") {
		t.Errorf("expected given description in\n%s", res.Document)
	}
}

// TestFormatDuration verifies H:MM:SS rendering.
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00:00"},
		{360, "0:06:00"},
		{3661, "1:01:01"},
		{90000, "25:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
