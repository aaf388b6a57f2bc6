package workout

import (
	"errors"
	"fmt"
)

var (
	// ErrCadenceOrder reports a cadence band whose lower bound exceeds its upper bound.
	ErrCadenceOrder = errors.New("lower cadence exceeds upper cadence")
	// ErrNonPositiveFTP reports a reference power of 0w.
	ErrNonPositiveFTP = errors.New("reference power must be positive")
	// ErrSuperfluousInput reports tokens left over after a complete workout.
	ErrSuperfluousInput = errors.New("there is superfluous input")
	// ErrDurationRange reports a stage longer than MaxStageSeconds.
	ErrDurationRange = errors.New("stage duration out of range")
	// ErrTooManyStages reports a program that expands beyond MaxTreatments.
	ErrTooManyStages = errors.New("workout expands to too many stages")
	// ErrWorkoutDuration reports a workout longer than MaxWorkoutSeconds.
	ErrWorkoutDuration = errors.New("workout duration out of range")
	// ErrFTPRange reports a reference power above MaxFTP.
	ErrFTPRange = errors.New("reference power out of range")
)

// LexError reports a character the lexer does not recognize.
type LexError struct {
	Char      rune
	Remaining string // unconsumed input, starting at Char
	Reason    string // empty for plain unrecognized characters
}

func (e *LexError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s at %q", e.Reason, e.Remaining)
	}
	return fmt.Sprintf("unrecognized character '%c'", e.Char)
}

// SyntaxError reports a token that does not match what the grammar requires.
type SyntaxError struct {
	Expected  []TokenKind
	Found     Token
	Remaining []Token // starts with Found
}

func (e *SyntaxError) Error() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("'%s' expected, found %s", e.Expected[0], e.Found)
	}
	return fmt.Sprintf("one of %s expected, found %s", quoteKinds(e.Expected), e.Found)
}

// Tokens returns the token stream left when the error was detected.
func (e *SyntaxError) Tokens() []Token { return e.Remaining }

// SemanticError reports a structurally valid workout that violates an
// invariant. Err is one of the package's sentinel errors.
type SemanticError struct {
	Err       error
	Remaining []Token
}

func (e *SemanticError) Error() string { return e.Err.Error() }

func (e *SemanticError) Unwrap() error { return e.Err }

// Tokens returns the token stream left when the error was detected.
func (e *SemanticError) Tokens() []Token { return e.Remaining }

// ErrorKind classifies a pipeline error as "lex", "syntax" or "semantic".
// It returns "" for errors that did not originate in this package.
func ErrorKind(err error) string {
	var lexErr *LexError
	var synErr *SyntaxError
	var semErr *SemanticError
	switch {
	case errors.As(err, &lexErr):
		return "lex"
	case errors.As(err, &synErr):
		return "syntax"
	case errors.As(err, &semErr):
		return "semantic"
	}
	return ""
}

// RemainingTokens returns the diagnostic token stream carried by err, if any.
func RemainingTokens(err error) []Token {
	var carrier interface{ Tokens() []Token }
	if errors.As(err, &carrier) {
		return carrier.Tokens()
	}
	return nil
}
