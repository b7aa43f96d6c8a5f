// Package lexer converts script source code into a stream of tokens.
package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/risor-io/vmctx/token"
)

// Lexer tokenizes an input string.
type Lexer struct {
	input     []rune
	pos       int
	line      int
	lineStart int
	filename  string
	lines     []string
}

// New returns a Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		lines: strings.Split(input, "\n"),
	}
}

// SetFilename sets the filename recorded in token positions.
func (l *Lexer) SetFilename(filename string) {
	l.filename = filename
}

// Filename returns the filename recorded in token positions.
func (l *Lexer) Filename() string {
	return l.filename
}

// GetLineText returns the line of source text that contains the token.
func (l *Lexer) GetLineText(tok token.Token) string {
	line := tok.StartPosition.Line
	if line < 0 || line >= len(l.lines) {
		return ""
	}
	return strings.TrimRight(l.lines[line], "\r")
}

func (l *Lexer) peekRune(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) position() token.Position {
	var value rune
	if l.pos < len(l.input) {
		value = l.input[l.pos]
	}
	return token.Position{
		Value:     value,
		Char:      l.pos,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    l.pos - l.lineStart,
		File:      l.filename,
	}
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line++
		l.lineStart = l.pos + 1
	}
	l.pos++
}

// skip consumes whitespace and comments.
func (l *Lexer) skip() error {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case unicode.IsSpace(ch):
			l.advance()
		case ch == '/' && l.peekRune(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekRune(1) == '*':
			start := l.position()
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.input) {
					return fmt.Errorf("unterminated comment starting at line %d", start.LineNumber())
				}
				if l.input[l.pos] == '*' && l.peekRune(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// Next returns the next token. At the end of the input it returns EOF
// tokens indefinitely.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skip(); err != nil {
		pos := l.position()
		return token.Token{Type: token.ILLEGAL, StartPosition: pos, EndPosition: pos}, err
	}
	start := l.position()
	if l.pos >= len(l.input) {
		return token.Token{Type: token.EOF, StartPosition: start, EndPosition: start}, nil
	}
	ch := l.input[l.pos]
	switch {
	case isIdentStart(ch):
		return l.readIdent(start), nil
	case isDigit(ch) || (ch == '.' && isDigit(l.peekRune(1))):
		return l.readNumber(start)
	case ch == '"' || ch == '\'':
		return l.readString(start, ch)
	}

	two := string(ch) + string(l.peekRune(1))
	switch two {
	case "&&", "||", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "++", "--":
		l.advance()
		l.advance()
		return l.token(token.Type(two), two, start), nil
	}
	if two == "!i" && l.peekRune(2) == 's' && !isIdentPart(l.peekRune(3)) {
		l.advance()
		l.advance()
		l.advance()
		return l.token(token.NOT_IS, "!is", start), nil
	}

	var typ token.Type
	switch ch {
	case '&':
		typ = token.AMPERSAND
	case '=':
		typ = token.ASSIGN
	case '*':
		typ = token.ASTERISK
	case '@':
		typ = token.AT
	case '!':
		typ = token.BANG
	case ',':
		typ = token.COMMA
	case '>':
		typ = token.GT
	case '{':
		typ = token.LBRACE
	case '[':
		typ = token.LBRACKET
	case '(':
		typ = token.LPAREN
	case '<':
		typ = token.LT
	case '-':
		typ = token.MINUS
	case '%':
		typ = token.MOD
	case '.':
		typ = token.PERIOD
	case '+':
		typ = token.PLUS
	case '}':
		typ = token.RBRACE
	case ']':
		typ = token.RBRACKET
	case ')':
		typ = token.RPAREN
	case ';':
		typ = token.SEMICOLON
	case '/':
		typ = token.SLASH
	case '~':
		typ = token.TILDE
	default:
		l.advance()
		return l.token(token.ILLEGAL, string(ch), start),
			fmt.Errorf("unexpected character %q at line %d", ch, start.LineNumber())
	}
	l.advance()
	return l.token(typ, string(ch), start), nil
}

func (l *Lexer) token(typ token.Type, literal string, start token.Position) token.Token {
	return token.Token{
		Type:          typ,
		Literal:       literal,
		StartPosition: start,
		EndPosition:   l.position(),
	}
}

func (l *Lexer) readIdent(start token.Position) token.Token {
	begin := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance()
	}
	literal := string(l.input[begin:l.pos])
	return l.token(token.LookupIdentifier(literal), literal, start)
}

// readNumber reads an integer or a float. Floats may carry an f suffix, as in
// 3.14f, which is dropped from the literal.
func (l *Lexer) readNumber(start token.Position) (token.Token, error) {
	begin := l.pos
	isFloat := false
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.advance()
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' && isDigit(l.peekRune(1)) {
		isFloat = true
		l.advance()
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.advance()
		}
	}
	literal := string(l.input[begin:l.pos])
	if ch := l.peekRune(0); ch == 'f' || ch == 'F' {
		isFloat = true
		l.advance()
	}
	if isIdentPart(l.peekRune(0)) {
		l.advance()
		return l.token(token.ILLEGAL, string(l.input[begin:l.pos]), start),
			fmt.Errorf("invalid number literal at line %d", start.LineNumber())
	}
	if isFloat {
		return l.token(token.FLOAT, literal, start), nil
	}
	return l.token(token.INT, literal, start), nil
}

func (l *Lexer) readString(start token.Position, quote rune) (token.Token, error) {
	l.advance()
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) || l.input[l.pos] == '\n' {
			return l.token(token.ILLEGAL, sb.String(), start),
				fmt.Errorf("unterminated string literal at line %d", start.LineNumber())
		}
		ch := l.input[l.pos]
		if ch == quote {
			l.advance()
			return l.token(token.STRING, sb.String(), start), nil
		}
		if ch == '\\' {
			l.advance()
			switch esc := l.peekRune(0); esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\\', '\'', '"':
				sb.WriteRune(esc)
			default:
				return l.token(token.ILLEGAL, sb.String(), start),
					fmt.Errorf("invalid escape sequence \\%c at line %d", esc, l.line+1)
			}
			l.advance()
			continue
		}
		sb.WriteRune(ch)
		l.advance()
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
