package workout

import "math"

// MaxTreatments bounds the size of a flattened program so that nested
// repeated groups cannot expand without limit.
const MaxTreatments = 100000

// MaxStageSeconds bounds the duration of a single stage.
const MaxStageSeconds = math.MaxInt32

// MaxWorkoutSeconds bounds the total duration of a workout.
const MaxWorkoutSeconds = math.MaxInt32

// MaxFTP bounds the reference power in watts.
const MaxFTP = math.MaxInt32

// group is a stage sequence whose repetitions are not yet expanded. size and
// seconds describe the flattened result.
type group struct {
	parts   []part
	size    int
	seconds int64
}

// part is a single treatment, or body repeated factor times.
type part struct {
	t      Treatment
	factor int
	body   *group
}

// flatten appends the expanded program to out. Every appended treatment is
// a fresh copy, so no two program entries share state.
func (g *group) flatten(out []Treatment) []Treatment {
	for _, pt := range g.parts {
		if pt.body == nil {
			out = append(out, pt.t.clone())
			continue
		}
		for range pt.factor {
			out = pt.body.flatten(out)
		}
	}
	return out
}

// parser consumes the token slice produced by Tokenize and builds a Workout.
//
// Grammar:
//
//	Workout  = Stages FTP .
//	Stages   = Stage { "+" Stage } .
//	Stage    = Integer "*" "(" Stages ")" | Time "@" Effort .
//	Time     = (Integer | Float) TimeUnit .
//	Effort   = Watts [ "/" Cadence "-" Cadence ] .
//	Watts    = "_" | Integer "w" [ "-" Integer "w" ] .
//	Cadence  = Integer "c" .
//	FTP      = "|" Integer "w" .
type parser struct {
	tokens []Token
	pos    int
}

// Parse builds a Workout from a token stream ending in EndOfInput. Tokens
// left after the FTP clause are an error.
func Parse(tokens []Token) (*Workout, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != EndOfInput {
		tokens = append(append([]Token(nil), tokens...), Token{Kind: EndOfInput})
	}
	p := &parser{tokens: tokens}

	g, err := p.parseStages()
	if err != nil {
		return nil, err
	}
	ftp, err := p.parseFTP()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != EndOfInput {
		return nil, p.semantic(ErrSuperfluousInput)
	}
	program := g.flatten(make([]Treatment, 0, g.size))
	return &Workout{Program: program, FTP: ftp}, nil
}

// peek returns the current token without consuming it. The EndOfInput
// sentinel is never consumed, so peek never runs past the slice.
func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

// peekAt returns the token at the given offset from the current position,
// clamped to the trailing EndOfInput.
func (p *parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *parser) advance() Token {
	tok := p.peek()
	if tok.Kind != EndOfInput {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it is of kind k.
func (p *parser) expect(k TokenKind) (Token, error) {
	return p.expectOneOf(k)
}

// expectOneOf consumes the current token if its kind is one of kinds.
func (p *parser) expectOneOf(kinds ...TokenKind) (Token, error) {
	tok := p.peek()
	for _, k := range kinds {
		if tok.Kind == k {
			return p.advance(), nil
		}
	}
	return tok, &SyntaxError{Expected: kinds, Found: tok, Remaining: p.tokens[p.pos:]}
}

func (p *parser) semantic(err error) *SemanticError {
	return &SemanticError{Err: err, Remaining: p.tokens[p.pos:]}
}

// parseStages handles Stage { "+" Stage }.
func (p *parser) parseStages() (*group, error) {
	g := &group{}
	for {
		if err := p.parseStage(g); err != nil {
			return nil, err
		}
		if p.peek().Kind != Plus {
			return g, nil
		}
		p.advance()
	}
}

// push appends pt to g, charging its flattened size and duration against
// MaxTreatments and MaxWorkoutSeconds.
func (p *parser) push(g *group, pt part, size int, seconds int64) error {
	if size > MaxTreatments-g.size {
		return p.semantic(ErrTooManyStages)
	}
	if seconds > MaxWorkoutSeconds-g.seconds {
		return p.semantic(ErrWorkoutDuration)
	}
	g.parts = append(g.parts, pt)
	g.size += size
	g.seconds += seconds
	return nil
}

// parseStage handles a repeated group or a single timed effort and appends
// it to g. A group is recognized by an Integer followed by "*".
func (p *parser) parseStage(g *group) error {
	if p.peek().Kind == IntegerLiteral && p.peekAt(1).Kind == Multiply {
		return p.parseRepeat(g)
	}

	seconds, err := p.parseTime()
	if err != nil {
		return err
	}
	if _, err := p.expect(At); err != nil {
		return err
	}
	t, err := p.parseEffort(seconds)
	if err != nil {
		return err
	}
	return p.push(g, part{t: t}, 1, int64(seconds))
}

// parseRepeat handles Integer "*" "(" Stages ")". The inner fragment is
// repeated as a whole, preserving its order. Expansion is deferred to
// flatten, so the work done here is bounded by the input size.
func (p *parser) parseRepeat(g *group) error {
	factor := p.advance().Int()
	p.advance() // *
	if _, err := p.expect(OpenParen); err != nil {
		return err
	}
	body, err := p.parseStages()
	if err != nil {
		return err
	}
	if _, err := p.expect(CloseParen); err != nil {
		return err
	}
	if factor == 0 || body.size == 0 {
		return nil
	}
	if factor > MaxTreatments/body.size {
		return p.semantic(ErrTooManyStages)
	}

	// A body holding exactly one repeated group merges into it.
	pt := part{factor: factor, body: body}
	if len(body.parts) == 1 && body.parts[0].body != nil {
		inner := body.parts[0]
		pt = part{factor: factor * inner.factor, body: inner.body}
	}
	return p.push(g, pt, factor*body.size, int64(factor)*body.seconds)
}

// parseTime handles (Integer | Float) TimeUnit and returns whole seconds,
// rounded half away from zero.
func (p *parser) parseTime() (int, error) {
	num, err := p.expectOneOf(IntegerLiteral, FloatLiteral)
	if err != nil {
		return 0, err
	}
	unit, err := p.expectOneOf(HourUnit, MinuteUnit, SecondUnit)
	if err != nil {
		return 0, err
	}
	seconds := toSeconds(num.Value, unit.Kind)
	if seconds > MaxStageSeconds {
		return 0, p.semantic(ErrDurationRange)
	}
	return int(seconds), nil
}

func toSeconds(v float64, unit TokenKind) float64 {
	switch unit {
	case HourUnit:
		return math.Round(v * 3600)
	case MinuteUnit:
		return math.Round(v * 60)
	default:
		return math.Round(v)
	}
}

// parseEffort handles Watts [ "/" Cadence "-" Cadence ] and dresses the
// resulting treatment with its duration.
func (p *parser) parseEffort(seconds int) (Treatment, error) {
	var t Treatment
	switch p.peek().Kind {
	case DontCare:
		p.advance()
		t = &FreeRide{Seconds: seconds}
	case IntegerLiteral:
		start := p.advance().Int()
		if _, err := p.expect(WattUnit); err != nil {
			return nil, err
		}
		if p.peek().Kind != Minus {
			t = &SteadyEffort{Seconds: seconds, Watts: start}
			break
		}
		p.advance()
		end, err := p.parseWatts()
		if err != nil {
			return nil, err
		}
		t = &RampEffort{Seconds: seconds, StartWatts: start, EndWatts: end}
	default:
		_, err := p.expectOneOf(DontCare, IntegerLiteral)
		return nil, err
	}

	if p.peek().Kind != Slash {
		return t, nil
	}
	p.advance()
	band, err := p.parseCadenceBand()
	if err != nil {
		return nil, err
	}
	switch v := t.(type) {
	case *FreeRide:
		v.Cadence = band
	case *SteadyEffort:
		v.Cadence = band
	case *RampEffort:
		v.Cadence = band
	}
	return t, nil
}

// parseWatts handles Integer "w".
func (p *parser) parseWatts() (int, error) {
	num, err := p.expect(IntegerLiteral)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(WattUnit); err != nil {
		return 0, err
	}
	return num.Int(), nil
}

// parseCadenceBand handles Cadence "-" Cadence after the "/".
func (p *parser) parseCadenceBand() (*CadenceBand, error) {
	low, err := p.parseCadence()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Minus); err != nil {
		return nil, err
	}
	high, err := p.parseCadence()
	if err != nil {
		return nil, err
	}
	if low > high {
		return nil, p.semantic(ErrCadenceOrder)
	}
	return &CadenceBand{Low: low, High: high}, nil
}

// parseCadence handles Integer "c".
func (p *parser) parseCadence() (int, error) {
	num, err := p.expect(IntegerLiteral)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(CadenceUnit); err != nil {
		return 0, err
	}
	return num.Int(), nil
}

// parseFTP handles "|" Integer "w". The reference power must be positive
// and at most MaxFTP.
func (p *parser) parseFTP() (int, error) {
	if _, err := p.expect(Pipe); err != nil {
		return 0, err
	}
	ftp, err := p.parseWatts()
	if err != nil {
		return 0, err
	}
	if ftp <= 0 {
		return 0, p.semantic(ErrNonPositiveFTP)
	}
	if ftp > MaxFTP {
		return 0, p.semantic(ErrFTPRange)
	}
	return ftp, nil
}
