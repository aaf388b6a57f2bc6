package workout

import (
	"strconv"
	"unicode"
)

// singles maps one-character tokens to their kind. Unit letters are matched
// case-insensitively by lowering the rune first.
var singles = map[rune]TokenKind{
	'+': Plus,
	'-': Minus,
	'*': Multiply,
	'(': OpenParen,
	')': CloseParen,
	'|': Pipe,
	'@': At,
	'/': Slash,
	'w': WattUnit,
	'c': CadenceUnit,
	'h': HourUnit,
	'm': MinuteUnit,
	's': SecondUnit,
	'_': DontCare,
}

// lexer holds the state of a single scanning pass over src.
type lexer struct {
	src    []rune
	pos    int // index of the next rune to consume
	tokens []Token
}

// Tokenize converts workout text into tokens. The result always ends with
// exactly one EndOfInput token. An unrecognized character aborts with a
// *LexError.
func Tokenize(text string) ([]Token, error) {
	l := &lexer{src: []rune(text)}
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case unicode.IsSpace(r):
			l.pos++
		case isDigit(r):
			if err := l.scanNumber(); err != nil {
				return nil, err
			}
		default:
			kind, ok := singles[unicode.ToLower(r)]
			if !ok {
				return nil, &LexError{Char: r, Remaining: string(l.src[l.pos:])}
			}
			l.tokens = append(l.tokens, Token{Kind: kind})
			l.pos++
		}
	}
	l.tokens = append(l.tokens, Token{Kind: EndOfInput})
	return l.tokens, nil
}

// scanNumber collects an integer or, when the digit run is followed by '.',
// a float with an optional fractional digit run. The first digit must be at
// l.pos.
func (l *lexer) scanNumber() error {
	start := l.pos
	l.skipDigits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		l.skipDigits()
		lexeme := string(l.src[start:l.pos])
		v, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return &LexError{Char: l.src[start], Remaining: string(l.src[start:]), Reason: "number out of range"}
		}
		l.tokens = append(l.tokens, Token{Kind: FloatLiteral, Value: v})
		return nil
	}

	// Integers are held in a float64 token value, so they are limited to the
	// range it represents exactly.
	lexeme := string(l.src[start:l.pos])
	n, err := strconv.ParseUint(lexeme, 10, 53)
	if err != nil {
		return &LexError{Char: l.src[start], Remaining: string(l.src[start:]), Reason: "number out of range"}
	}
	l.tokens = append(l.tokens, Token{Kind: IntegerLiteral, Value: float64(n)})
	return nil
}

func (l *lexer) skipDigits() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
}

// isDigit accepts ASCII digits only; other Unicode digits are not part of
// the grammar.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
