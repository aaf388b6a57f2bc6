package workout

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

func mustParse(t *testing.T, input string) *Workout {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", input, err)
	}
	wo, err := Parse(tokens)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return wo
}

func parseErr(t *testing.T, input string) error {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", input, err)
	}
	wo, err := Parse(tokens)
	if err == nil {
		t.Fatalf("Parse(%q) = %v, want error", input, wo.Stages())
	}
	return err
}

// TestParsePrograms verifies the flattened program for the supported stage forms.
func TestParsePrograms(t *testing.T) {
	tests := []struct {
		input string
		want  []string
		ftp   int
	}{
		{"10m@200w-250w|250w", []string{"power(600s, 200w-250w)"}, 250},
		{"5m@_|200w", []string{"free(300s)"}, 200},
		{"1m@150w/80c-90c|200w", []string{"power(60s, 150w, 80c-90c)"}, 200},
		{"5m@_/85c-95c|200w", []string{"free(300s, 85c-95c)"}, 200},
		{"2m@300w-100w/90c-90c|250w", []string{"power(120s, 300w-100w, 90c-90c)"}, 250},
		{"30s@100w + 1h@_ | 200w", []string{"power(30s, 100w)", "free(3600s)"}, 200},
		{"3*(1m@300w+1m@100w)|250w", []string{
			"power(60s, 300w)", "power(60s, 100w)",
			"power(60s, 300w)", "power(60s, 100w)",
			"power(60s, 300w)", "power(60s, 100w)",
		}, 250},
		{"2*(1m@100w+2*(10s@400w))|200w", []string{
			"power(60s, 100w)", "power(10s, 400w)", "power(10s, 400w)",
			"power(60s, 100w)", "power(10s, 400w)", "power(10s, 400w)",
		}, 200},
		{"0*(1m@100w)+1m@150w|200w", []string{"power(60s, 150w)"}, 200},
		{"0*(1m@100w)|200w", []string{}, 200},
		{"2*(1*(3*(5s@_)))|200w", []string{
			"free(5s)", "free(5s)", "free(5s)", "free(5s)", "free(5s)", "free(5s)",
		}, 200},
	}

	for _, tt := range tests {
		wo := mustParse(t, tt.input)
		if got := wo.Stages(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if wo.FTP != tt.ftp {
			t.Errorf("Parse(%q).FTP = %d, want %d", tt.input, wo.FTP, tt.ftp)
		}
	}
}

// TestParseTimeUnits verifies unit conversion with half-away-from-zero rounding.
func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		time string
		want int
	}{
		{"1h", 3600},
		{"0.5h", 1800},
		{"0.0001h", 0},
		{"0.00015h", 1},
		{"10m", 600},
		{"1.5m", 90},
		{"0.125m", 8},
		{"0.0083m", 0},
		{"45s", 45},
		{"2.5s", 3},
		{"2.4s", 2},
		{"0.5s", 1},
		{"0s", 0},
	}

	for _, tt := range tests {
		wo := mustParse(t, tt.time+"@_|200w")
		if got := wo.Program[0].Duration(); got != tt.want {
			t.Errorf("%s = %ds, want %ds", tt.time, got, tt.want)
		}
	}
}

// TestRepeatDurationAdditivity verifies that N*(X) contributes N times the
// duration of X.
func TestRepeatDurationAdditivity(t *testing.T) {
	single := mustParse(t, "1m@300w+30s@_+2m@100w-200w|250w").TotalSeconds()
	for _, n := range []int{0, 1, 2, 7, 25} {
		wo := mustParse(t, strconv.Itoa(n)+"*(1m@300w+30s@_+2m@100w-200w)|250w")
		if got, want := wo.TotalSeconds(), n*single; got != want {
			t.Errorf("%d*(...) total = %d, want %d", n, got, want)
		}
	}
}

// TestParseSyntaxErrors verifies the expected kinds reported for malformed input.
func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
		found    TokenKind
	}{
		{"10m@200w", []TokenKind{Pipe}, EndOfInput},
		{"10m200w|250w", []TokenKind{At}, IntegerLiteral},
		{"10@200w|250w", []TokenKind{HourUnit, MinuteUnit, SecondUnit}, At},
		{"m@200w|250w", []TokenKind{IntegerLiteral, FloatLiteral}, MinuteUnit},
		{"10m@200w-|250w", []TokenKind{IntegerLiteral}, Pipe},
		{"10m@200w-250|250w", []TokenKind{WattUnit}, Pipe},
		{"10m@w|250w", []TokenKind{DontCare, IntegerLiteral}, WattUnit},
		{"3*(1m@100w|250w", []TokenKind{CloseParen}, Pipe},
		{"3*1m@100w|250w", []TokenKind{OpenParen}, IntegerLiteral},
		{"1.5*(1m@100w)|250w", []TokenKind{HourUnit, MinuteUnit, SecondUnit}, Multiply},
		{"1m@100w/80c|250w", []TokenKind{Minus}, Pipe},
		{"1m@100w/80-90c|250w", []TokenKind{CadenceUnit}, Minus},
		{"1m@100w|_", []TokenKind{IntegerLiteral}, DontCare},
		{"", []TokenKind{IntegerLiteral, FloatLiteral}, EndOfInput},
	}

	for _, tt := range tests {
		err := parseErr(t, tt.input)
		var synErr *SyntaxError
		if !errors.As(err, &synErr) {
			t.Errorf("Parse(%q): expected *SyntaxError, got %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(synErr.Expected, tt.expected) {
			t.Errorf("Parse(%q).Expected = %v, want %v", tt.input, synErr.Expected, tt.expected)
		}
		if synErr.Found.Kind != tt.found {
			t.Errorf("Parse(%q).Found = %v, want %v", tt.input, synErr.Found, tt.found)
		}
		if len(synErr.Remaining) == 0 || synErr.Remaining[0] != synErr.Found {
			t.Errorf("Parse(%q).Remaining = %v, want it to start with %v", tt.input, synErr.Remaining, synErr.Found)
		}
	}
}

// TestSyntaxErrorMessage verifies the wording for single and multiple expected kinds.
func TestSyntaxErrorMessage(t *testing.T) {
	err := parseErr(t, "10m200w|250w")
	if got, want := err.Error(), "'@' expected, found <Integer, 200>"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = parseErr(t, "10@200w|250w")
	if got, want := err.Error(), "one of 'h', 'm', 's' expected, found @"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// TestParseSemanticErrors verifies the invariants checked after a structurally valid parse.
func TestParseSemanticErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"1m@150w/90c-80c|200w", ErrCadenceOrder},
		{"1m@150w|0w", ErrNonPositiveFTP},
		{"1m@150w|200w 5m@_", ErrSuperfluousInput},
		{"1m@150w|200w|200w", ErrSuperfluousInput},
		{"100001*(1s@100w)|200w", ErrTooManyStages},
		{"1000*(1000*(1s@100w))|200w", ErrTooManyStages},
		{"60000*(1s@_)+60000*(1s@_)|200w", ErrTooManyStages},
		{"999999999h@_|200w", ErrDurationRange},
		{"1m@100w|3000000000w", ErrFTPRange},
		{"2*(596523h@_)|200w", ErrWorkoutDuration},
		{"596523h@_+596523h@_|200w", ErrWorkoutDuration},
	}

	for _, tt := range tests {
		err := parseErr(t, tt.input)
		var semErr *SemanticError
		if !errors.As(err, &semErr) {
			t.Errorf("Parse(%q): expected *SemanticError, got %v", tt.input, err)
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, err, tt.want)
		}
		if ErrorKind(err) != "semantic" {
			t.Errorf("ErrorKind(%q) = %q, want semantic", tt.input, ErrorKind(err))
		}
	}
}

// TestCadenceEqualBoundsAccepted verifies low == high is a valid band.
func TestCadenceEqualBoundsAccepted(t *testing.T) {
	wo := mustParse(t, "1m@150w/90c-90c|200w")
	band := wo.Program[0].Band()
	if band == nil || band.Low != 90 || band.High != 90 {
		t.Errorf("Band = %+v, want 90-90", band)
	}
}

// TestSuperfluousInputTokens verifies the remaining tokens start at the
// first unconsumed token.
func TestSuperfluousInputTokens(t *testing.T) {
	err := parseErr(t, "1m@150w|200w 5m")
	got := Notation(RemainingTokens(err))
	if want := "<Integer, 5> m <EndOfInput>"; got != want {
		t.Errorf("RemainingTokens = %q, want %q", got, want)
	}
}

// TestParseWithoutEndOfInput verifies that a token slice lacking the
// sentinel is accepted without modifying the caller's slice.
func TestParseWithoutEndOfInput(t *testing.T) {
	tokens := []Token{
		{Kind: IntegerLiteral, Value: 1}, {Kind: MinuteUnit}, {Kind: At}, {Kind: DontCare},
		{Kind: Pipe}, {Kind: IntegerLiteral, Value: 200}, {Kind: WattUnit},
	}
	orig := append([]Token(nil), tokens...)
	wo, err := Parse(tokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(wo.Stages(), ","); got != "free(60s)" {
		t.Errorf("Stages = %q, want free(60s)", got)
	}
	if !reflect.DeepEqual(tokens, orig) {
		t.Errorf("Parse modified its input: %v", tokens)
	}
}

// TestParseRangeLimitsAccepted verifies the largest reference power and
// workout duration still parse.
func TestParseRangeLimitsAccepted(t *testing.T) {
	wo := mustParse(t, "1m@100w|2147483647w")
	if wo.FTP != MaxFTP {
		t.Errorf("FTP = %d, want %d", wo.FTP, MaxFTP)
	}
	wo = mustParse(t, "596523h@_+847s@_|200w")
	if got := wo.TotalSeconds(); got != MaxWorkoutSeconds {
		t.Errorf("TotalSeconds = %d, want %d", got, MaxWorkoutSeconds)
	}
}

// TestParseDeepNestingIsFast verifies deeply nested groups of a single
// repetition expand in time proportional to the output, including under an
// outer repeat.
func TestParseDeepNestingIsFast(t *testing.T) {
	const depth = 16000
	inputs := []string{
		strings.Repeat("1*(", depth) + "100000*(1s@_)" + strings.Repeat(")", depth) + "|200w",
		"100000*(" + strings.Repeat("1*(", depth) + "1s@_" + strings.Repeat(")", depth) + ")|200w",
	}
	for i, input := range inputs {
		start := time.Now()
		wo := mustParse(t, input)
		elapsed := time.Since(start)
		if len(wo.Program) != MaxTreatments {
			t.Errorf("input %d: stages = %d, want %d", i, len(wo.Program), MaxTreatments)
		}
		if elapsed > 2*time.Second {
			t.Errorf("input %d: parse took %v", i, elapsed)
		}
	}
}

// TestRepeatedStagesDoNotAlias verifies that editing one repetition leaves
// the others untouched.
func TestRepeatedStagesDoNotAlias(t *testing.T) {
	wo := mustParse(t, "3*(1m@200w/80c-90c+2m@100w-150w+30s@_/70c-75c)|250w")
	first := wo.Program[0].(*SteadyEffort)
	first.Watts = 999
	first.Cadence.Low = 1
	wo.Program[1].(*RampEffort).EndWatts = 999
	wo.Program[2].(*FreeRide).Seconds = 1

	want := []string{"power(60s, 200w, 80c-90c)", "power(120s, 100w-150w)", "free(30s, 70c-75c)"}
	for rep := 1; rep < 3; rep++ {
		for j, w := range want {
			if got := wo.Program[rep*3+j].String(); got != w {
				t.Errorf("repetition %d stage %d = %q, want %q", rep, j, got, w)
			}
		}
	}
}
