package workout

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind identifies the category of a lexed token.
type TokenKind int

const (
	EndOfInput TokenKind = iota // sentinel: always the last token

	// Punctuation
	Plus       // +
	Minus      // -
	Multiply   // *
	OpenParen  // (
	CloseParen // )
	Pipe       // |
	At         // @
	Slash      // /

	// Literals
	IntegerLiteral // 42
	FloatLiteral   // 1.5

	// Units
	WattUnit    // w
	CadenceUnit // c
	HourUnit    // h
	MinuteUnit  // m
	SecondUnit  // s
	DontCare    // _
)

// tokenSymbols is indexed by TokenKind and holds the notation used in
// diagnostics.
var tokenSymbols = [...]string{
	EndOfInput:     "<EndOfInput>",
	Plus:           "+",
	Minus:          "-",
	Multiply:       "*",
	OpenParen:      "(",
	CloseParen:     ")",
	Pipe:           "|",
	At:             "@",
	Slash:          "/",
	IntegerLiteral: "Integer",
	FloatLiteral:   "Float",
	WattUnit:       "w",
	CadenceUnit:    "c",
	HourUnit:       "h",
	MinuteUnit:     "m",
	SecondUnit:     "s",
	DontCare:       "_",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(tokenSymbols) {
		return tokenSymbols[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexed unit. Value is only meaningful for IntegerLiteral
// and FloatLiteral.
type Token struct {
	Kind  TokenKind
	Value float64
}

// Int returns the value of an IntegerLiteral.
func (t Token) Int() int {
	return int(t.Value)
}

func (t Token) String() string {
	switch t.Kind {
	case IntegerLiteral:
		return fmt.Sprintf("<%s, %d>", t.Kind, t.Int())
	case FloatLiteral:
		return fmt.Sprintf("<%s, %s>", t.Kind, strconv.FormatFloat(t.Value, 'f', -1, 64))
	default:
		return t.Kind.String()
	}
}

// Notation renders a token stream in a readable form, one token after the
// other separated by spaces:
//
//	<Integer, 10> m @ <Integer, 200> w | <Integer, 250> w <EndOfInput>
func Notation(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

func quoteKinds(kinds []TokenKind) string {
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = "'" + k.String() + "'"
	}
	return strings.Join(quoted, ", ")
}
