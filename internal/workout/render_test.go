package workout

import (
	"strings"
	"testing"
)

func render(t *testing.T, input string, meta Metadata) string {
	t.Helper()
	doc, err := RenderString(mustParse(t, input), meta)
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	return doc
}

// TestRenderDocument verifies the complete document layout for a mixed workout.
func TestRenderDocument(t *testing.T) {
	got := render(t, "5m@_+1m@150w/80c-90c+10m@200w-250w+5m@250w-100w|250w",
		Metadata{Author: "Jane", Name: "Mixed", Description: "all kinds"})
	want := `<workout_file>
  <author>Jane</author>
  <name>Mixed</name>
  <description>all kinds</description>
  <sportType>bike</sportType>
  <tags></tags>
  <workout>
    <Freeride Duration="300"/>
    <SteadyState Duration="60" Power="0.6" CadenceLow="80" CadenceHigh="90" pace="0"/>
    <Warmup Duration="600" PowerLow="0.8" PowerHigh="1.0" pace="0"/>
    <Cooldown Duration="300" PowerLow="0.4" PowerHigh="1.0" pace="0"/>
  </workout>
</workout_file>
`
	if got != want {
		t.Errorf("document mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

// TestRenderEmptyProgram verifies that a zero-stage workout renders an empty body.
func TestRenderEmptyProgram(t *testing.T) {
	got := render(t, "0*(1m@100w)|200w", Metadata{Name: "Nothing"})
	if !strings.Contains(got, "  <workout>\n  </workout>\n") {
		t.Errorf("expected empty workout body, got:\n%s", got)
	}
}

// TestRenderRampDirection verifies Warmup for start <= end, Cooldown otherwise,
// with PowerLow never above PowerHigh.
func TestRenderRampDirection(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1m@100w-200w|200w", `<Warmup Duration="60" PowerLow="0.5" PowerHigh="1.0" pace="0"/>`},
		{"1m@200w-200w|200w", `<Warmup Duration="60" PowerLow="1.0" PowerHigh="1.0" pace="0"/>`},
		{"1m@200w-100w|200w", `<Cooldown Duration="60" PowerLow="0.5" PowerHigh="1.0" pace="0"/>`},
		{"1m@0w-50w/60c-70c|200w", `<Warmup Duration="60" PowerLow="0.0" PowerHigh="0.25" CadenceLow="60" CadenceHigh="70" pace="0"/>`},
	}

	for _, tt := range tests {
		got := render(t, tt.input, Metadata{Name: "R"})
		if !strings.Contains(got, "    "+tt.want+"\n") {
			t.Errorf("%s: expected %s in\n%s", tt.input, tt.want, got)
		}
	}
}

// TestRatio verifies two-decimal rounding, half away from zero, and formatting.
func TestRatio(t *testing.T) {
	tests := []struct {
		watts, ftp int
		want       string
	}{
		{200, 250, "0.8"},
		{250, 250, "1.0"},
		{0, 250, "0.0"},
		{212, 250, "0.85"},
		{29, 200, "0.15"},
		{1, 200, "0.01"},
		{1, 201, "0.0"},
		{500, 200, "2.5"},
		{1000, 3, "333.33"},
		{2, 3, "0.67"},
		{1, 8, "0.13"},
		{273, 250, "1.09"},
	}

	for _, tt := range tests {
		if got := Ratio(tt.watts, tt.ftp); got != tt.want {
			t.Errorf("Ratio(%d, %d) = %q, want %q", tt.watts, tt.ftp, got, tt.want)
		}
	}
}

// TestRatioScaleInvariance verifies that scaling watts and FTP together
// leaves the ratio unchanged.
func TestRatioScaleInvariance(t *testing.T) {
	for watts := 0; watts <= 400; watts += 7 {
		for _, ftp := range []int{150, 199, 250, 333} {
			base := Ratio(watts, ftp)
			for _, k := range []int{2, 3, 10, 1000} {
				if got := Ratio(watts*k, ftp*k); got != base {
					t.Errorf("Ratio(%d, %d) = %q, Ratio(%d, %d) = %q", watts, ftp, base, watts*k, ftp*k, got)
				}
			}
		}
	}
}

// TestRenderEscapesMetadata verifies reserved XML characters in free text
// are escaped.
func TestRenderEscapesMetadata(t *testing.T) {
	got := render(t, "1m@100w|200w", Metadata{
		Author:      `Tom & "Jerry"`,
		Name:        "<Sweet> spot",
		Description: "a<b",
	})
	for _, want := range []string{
		"<author>Tom &amp; &#34;Jerry&#34;</author>",
		"<name>&lt;Sweet&gt; spot</name>",
		"<description>a&lt;b</description>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in\n%s", want, got)
		}
	}
}

// TestRenderIdempotent verifies that rendering the same workout twice is byte-identical.
func TestRenderIdempotent(t *testing.T) {
	wo := mustParse(t, "2*(3m@280w/95c-100c+2m@_)+10m@250w-120w|260w")
	meta := Metadata{Author: "a", Name: "n", Description: "d"}
	first, err := RenderString(wo, meta)
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	second, err := RenderString(wo, meta)
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	if first != second {
		t.Errorf("renderings differ:\n%s\n---\n%s", first, second)
	}
}
