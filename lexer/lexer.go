// Package lexer implements Bish's tokenizer: a lazy, peekable stream of
// classified token.Token values produced from source text.
package lexer

import (
	"fmt"
	"strings"

	"github.com/tdenniston/bish/token"
)

// Error is a fatal lexical error carrying source position, per spec §7.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: lex error: %s", e.Pos, e.Msg)
}

// Lexer turns source text into a stream of tokens. Whitespace (including
// newlines) separates tokens and is never itself emitted; a newline
// advances the line counter.
type Lexer struct {
	path   string
	src    []rune
	cursor int
	line   int
	column int

	peeked    *token.Token
	peekedErr error
}

// New creates a Lexer over src, associated with path for diagnostics.
func New(path, src string) *Lexer {
	return &Lexer{
		path:   path,
		src:    []rune(src),
		line:   1,
		column: 1,
	}
}

func (l *Lexer) pos() token.Position {
	return token.Position{Path: l.path, Line: l.line, Column: l.column}
}

func (l *Lexer) atEnd() bool {
	return l.cursor >= len(l.src)
}

func (l *Lexer) peekRune() (rune, bool) {
	if l.atEnd() {
		return 0, false
	}
	return l.src[l.cursor], true
}

func (l *Lexer) peekRuneAt(offset int) (rune, bool) {
	idx := l.cursor + offset
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advanceRune() rune {
	r := l.src[l.cursor]
	l.cursor++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advanceRune()
			continue
		}
		if r == '#' {
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advanceRune()
			}
			continue
		}
		return
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Peek returns the token at the head without consuming it. Calling Peek
// any number of times without an intervening Next returns the same token
// and leaves the cursor unchanged (peek idempotence).
func (l *Lexer) Peek() (token.Token, error) {
	if l.peeked == nil && l.peekedErr == nil {
		tok, err := l.lex()
		l.peeked = &tok
		l.peekedErr = err
	}
	if l.peekedErr != nil {
		return token.Token{}, l.peekedErr
	}
	return *l.peeked, nil
}

// Next consumes and returns the token at the head.
func (l *Lexer) Next() (token.Token, error) {
	if l.peeked != nil || l.peekedErr != nil {
		tok, err := *l.peeked, l.peekedErr
		l.peeked, l.peekedErr = nil, nil
		return tok, err
	}
	return l.lex()
}

// Line reports the current (1-indexed) line of the cursor, used by the
// parser to tag debug info when no token is convenient.
func (l *Lexer) Line() int { return l.line }

func (l *Lexer) lex() (token.Token, error) {
	l.skipWhitespaceAndComments()
	start := l.pos()
	r, ok := l.peekRune()
	if !ok {
		return token.Token{Type: token.EOS, Pos: start}, nil
	}

	switch {
	case isIdentStart(r):
		return l.lexIdent(start), nil
	case isDigit(r):
		return l.lexNumber(start)
	case r == '"':
		return l.lexQuote(start)
	}

	two := func(second rune, twoType, oneType token.Type) (token.Token, bool) {
		if nr, ok := l.peekRuneAt(1); ok && nr == second {
			l.advanceRune()
			l.advanceRune()
			return token.Token{Type: twoType, Literal: string(r) + string(nr), Pos: start}, true
		}
		l.advanceRune()
		return token.Token{Type: oneType, Literal: string(r), Pos: start}, true
	}

	switch r {
	case '(':
		l.advanceRune()
		return token.Token{Type: token.LParen, Literal: "(", Pos: start}, nil
	case ')':
		l.advanceRune()
		return token.Token{Type: token.RParen, Literal: ")", Pos: start}, nil
	case '{':
		l.advanceRune()
		return token.Token{Type: token.LBrace, Literal: "{", Pos: start}, nil
	case '}':
		l.advanceRune()
		return token.Token{Type: token.RBrace, Literal: "}", Pos: start}, nil
	case '[':
		l.advanceRune()
		return token.Token{Type: token.LBracket, Literal: "[", Pos: start}, nil
	case ']':
		l.advanceRune()
		return token.Token{Type: token.RBracket, Literal: "]", Pos: start}, nil
	case ';':
		l.advanceRune()
		return token.Token{Type: token.Semicolon, Literal: ";", Pos: start}, nil
	case ',':
		l.advanceRune()
		return token.Token{Type: token.Comma, Literal: ",", Pos: start}, nil
	case '|':
		l.advanceRune()
		return token.Token{Type: token.Pipe, Literal: "|", Pos: start}, nil
	case '@':
		l.advanceRune()
		return token.Token{Type: token.At, Literal: "@", Pos: start}, nil
	case '$':
		l.advanceRune()
		return token.Token{Type: token.Dollar, Literal: "$", Pos: start}, nil
	case '\\':
		l.advanceRune()
		return token.Token{Type: token.Backslash, Literal: `\`, Pos: start}, nil
	case '+':
		l.advanceRune()
		return token.Token{Type: token.Plus, Literal: "+", Pos: start}, nil
	case '-':
		l.advanceRune()
		return token.Token{Type: token.Minus, Literal: "-", Pos: start}, nil
	case '*':
		l.advanceRune()
		return token.Token{Type: token.Star, Literal: "*", Pos: start}, nil
	case '/':
		l.advanceRune()
		return token.Token{Type: token.Slash, Literal: "/", Pos: start}, nil
	case '%':
		l.advanceRune()
		return token.Token{Type: token.Percent, Literal: "%", Pos: start}, nil
	case '.':
		tok, _ := two('.', token.DoubleDot, token.Dot)
		return tok, nil
	case '=':
		tok, _ := two('=', token.DoubleEquals, token.Equals)
		return tok, nil
	case '!':
		if nr, ok := l.peekRuneAt(1); ok && nr == '=' {
			l.advanceRune()
			l.advanceRune()
			return token.Token{Type: token.NotEquals, Literal: "!=", Pos: start}, nil
		}
		return token.Token{}, &Error{Pos: start, Msg: fmt.Sprintf("unrecognised character %q", r)}
	case '<':
		tok, _ := two('=', token.LAngleEquals, token.LAngle)
		return tok, nil
	case '>':
		tok, _ := two('=', token.RAngleEquals, token.RAngle)
		return tok, nil
	}

	l.advanceRune()
	return token.Token{}, &Error{Pos: start, Msg: fmt.Sprintf("unrecognised character %q", r)}
}

func (l *Lexer) lexIdent(start token.Position) token.Token {
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}
		sb.WriteRune(l.advanceRune())
	}
	lit := sb.String()
	return token.Token{Type: token.Lookup(lit), Literal: lit, Pos: start}
}

func (l *Lexer) lexNumber(start token.Position) (token.Token, error) {
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !isDigit(r) {
			break
		}
		sb.WriteRune(l.advanceRune())
	}
	isFractional := false
	if r, ok := l.peekRune(); ok && r == '.' {
		if nr, ok := l.peekRuneAt(1); ok && isDigit(nr) {
			isFractional = true
			sb.WriteRune(l.advanceRune()) // '.'
			for {
				r, ok := l.peekRune()
				if !ok || !isDigit(r) {
					break
				}
				sb.WriteRune(l.advanceRune())
			}
		}
	}
	ty := token.Int
	if isFractional {
		ty = token.Fractional
	}
	return token.Token{Type: ty, Literal: sb.String(), Pos: start}, nil
}

// lexQuote scans a `"..."` literal verbatim, including any `$name` or
// `$(...)` interpolation markers; the parser re-scans the literal body to
// split it into an InterpolatedString. Escapes (`\"`) are honoured so the
// terminating quote is not mistaken for an escaped one.
func (l *Lexer) lexQuote(start token.Position) (token.Token, error) {
	l.advanceRune() // opening quote
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok {
			return token.Token{}, &Error{Pos: start, Msg: "unterminated interpolated string"}
		}
		if r == '\\' {
			sb.WriteRune(l.advanceRune())
			if r2, ok := l.peekRune(); ok {
				sb.WriteRune(l.advanceRune())
				_ = r2
			}
			continue
		}
		if r == '"' {
			l.advanceRune()
			break
		}
		sb.WriteRune(l.advanceRune())
	}
	return token.Token{Type: token.Quote, Literal: sb.String(), Pos: start}, nil
}

// ScanUntil returns the substring from the current cursor up to (but not
// including) the first occurrence of any rune in terminators, honouring
// backslash-escapes of those terminators. When keepBackslash is true, an
// escaping backslash is copied through verbatim into the output; otherwise
// it is stripped. The cursor is left positioned at the terminator (not
// consumed). Used by the parser for `@( ... )` extern-call bodies.
func (l *Lexer) ScanUntil(terminators []rune, keepBackslash bool) string {
	isTerm := func(r rune) bool {
		for _, t := range terminators {
			if r == t {
				return true
			}
		}
		return false
	}
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok {
			break
		}
		if r == '\\' {
			if nr, ok := l.peekRuneAt(1); ok && isTerm(nr) {
				if keepBackslash {
					sb.WriteRune(r)
				}
				l.advanceRune()
				sb.WriteRune(l.advanceRune())
				continue
			}
		}
		if isTerm(r) {
			break
		}
		sb.WriteRune(l.advanceRune())
	}
	return sb.String()
}

// ScanUntilChar is the character-granularity variant of ScanUntil.
func (l *Lexer) ScanUntilChar(terminator rune) string {
	return l.ScanUntil([]rune{terminator}, false)
}

// AdvanceRune consumes and returns the rune at the cursor; used by callers
// (the parser) that need raw character-level scanning alongside token-level
// lexing, e.g. immediately after an `@(`.
func (l *Lexer) AdvanceRune() (rune, bool) {
	_, ok := l.peekRune()
	if !ok {
		return 0, false
	}
	return l.advanceRune(), true
}

// PeekRune exposes the next raw rune without consuming it.
func (l *Lexer) PeekRune() (rune, bool) { return l.peekRune() }

// Path returns the source path associated with this lexer.
func (l *Lexer) Path() string { return l.path }
