package lexer

import (
	"testing"

	"github.com/risor-io/vmctx/token"
	"github.com/stretchr/testify/require"
)

type expectedToken struct {
	expectedType    token.Type
	expectedLiteral string
}

func requireTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	l := New(input)
	for i, tt := range tests {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equal(t, tt.expectedType, tok.Type, "tests[%d] - tokentype wrong", i)
		require.Equal(t, tt.expectedLiteral, tok.Literal, "tests[%d] - literal wrong", i)
	}
}

func TestNull(t *testing.T) {
	requireTokens(t, "a = null;", []expectedToken{
		{token.IDENT, "a"},
		{token.ASSIGN, "="},
		{token.NULL, "null"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	})
}

func TestNextToken1(t *testing.T) {
	requireTokens(t, "%=+(){},;|| &&++--*=.&@~[]", []expectedToken{
		{token.MOD, "%"},
		{token.ASSIGN, "="},
		{token.PLUS, "+"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.COMMA, ","},
		{token.SEMICOLON, ";"},
		{token.OR, "||"},
		{token.AND, "&&"},
		{token.PLUS_PLUS, "++"},
		{token.MINUS_MINUS, "--"},
		{token.ASTERISK_EQUALS, "*="},
		{token.PERIOD, "."},
		{token.AMPERSAND, "&"},
		{token.AT, "@"},
		{token.TILDE, "~"},
		{token.LBRACKET, "["},
		{token.RBRACKET, "]"},
		{token.EOF, ""},
	})
}

func TestClassDeclaration(t *testing.T) {
	input := `class A
{
	~A() { print('destruct'); }
	float v = 3.14f;
}`
	requireTokens(t, input, []expectedToken{
		{token.CLASS, "class"},
		{token.IDENT, "A"},
		{token.LBRACE, "{"},
		{token.TILDE, "~"},
		{token.IDENT, "A"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "print"},
		{token.LPAREN, "("},
		{token.STRING, "destruct"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.IDENT, "float"},
		{token.IDENT, "v"},
		{token.ASSIGN, "="},
		{token.FLOAT, "3.14"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	})
}

func TestIdentityOperators(t *testing.T) {
	requireTokens(t, "a !is null && b is c && !isOk", []expectedToken{
		{token.IDENT, "a"},
		{token.NOT_IS, "!is"},
		{token.NULL, "null"},
		{token.AND, "&&"},
		{token.IDENT, "b"},
		{token.IS, "is"},
		{token.IDENT, "c"},
		{token.AND, "&&"},
		{token.BANG, "!"},
		{token.IDENT, "isOk"},
		{token.EOF, ""},
	})
}

func TestNumbers(t *testing.T) {
	requireTokens(t, "0 10 1.5 .5 2f", []expectedToken{
		{token.INT, "0"},
		{token.INT, "10"},
		{token.FLOAT, "1.5"},
		{token.FLOAT, ".5"},
		{token.FLOAT, "2"},
		{token.EOF, ""},
	})

	_, err := New("12abc").Next()
	require.Error(t, err)
}

func TestStrings(t *testing.T) {
	requireTokens(t, `'single' "double" 'it\'s' "a\tb"`, []expectedToken{
		{token.STRING, "single"},
		{token.STRING, "double"},
		{token.STRING, "it's"},
		{token.STRING, "a\tb"},
		{token.EOF, ""},
	})

	_, err := New(`'unterminated`).Next()
	require.Error(t, err)

	_, err = New(`'\q'`).Next()
	require.Error(t, err)
}

func TestComments(t *testing.T) {
	input := `// line comment
int a; /* block
comment */ a`
	requireTokens(t, input, []expectedToken{
		{token.IDENT, "int"},
		{token.IDENT, "a"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "a"},
		{token.EOF, ""},
	})

	_, err := New("/* open").Next()
	require.Error(t, err)
}

func TestLineNumbers(t *testing.T) {
	l := New("int a = 0;\na = 10/a;")
	var last token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		if tok.Type == token.EOF {
			break
		}
		last = tok
		if tok.Literal == "10" {
			require.Equal(t, 2, tok.StartPosition.LineNumber())
			require.Equal(t, 5, tok.StartPosition.ColumnNumber())
			require.Equal(t, "a = 10/a;", l.GetLineText(tok))
		}
	}
	require.Equal(t, token.Type(token.SEMICOLON), last.Type)
	require.Equal(t, 2, last.StartPosition.LineNumber())
}

func TestInvalidCharacter(t *testing.T) {
	tok, err := New("#").Next()
	require.Error(t, err)
	require.Equal(t, token.Type(token.ILLEGAL), tok.Type)
}

func TestMultipleEOFReads(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equal(t, token.Type(token.EOF), tok.Type)
	}
}

func TestFilename(t *testing.T) {
	l := New("x")
	l.SetFilename("main.as")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, "main.as", tok.StartPosition.File)
	require.Equal(t, "main.as", l.Filename())
}
