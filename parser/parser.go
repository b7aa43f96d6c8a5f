// Package parser is used to generate the abstract syntax tree (AST) for a
// script section.
//
// A parser is created by calling New() with a lexer as input. The parser
// should then be used only once, by calling Parse() or ParseBody().
package parser

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/internal/lexer"
	"github.com/risor-io/vmctx/token"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// maxErrors caps the number of errors collected before parsing stops.
const maxErrors = 10

// Parse the provided input as a script section and return the AST.
func Parse(ctx context.Context, input string, options ...Option) (*ast.Program, error) {
	return New(newLexer(input, options), options...).Parse(ctx)
}

// ParseBody parses the input as the statements of a function body, as used
// by ExecuteString.
func ParseBody(ctx context.Context, input string, options ...Option) (*ast.Block, error) {
	return New(newLexer(input, options), options...).ParseBody(ctx)
}

func newLexer(input string, options []Option) *lexer.Lexer {
	l := lexer.New(input)
	var cfg Parser
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.filename != "" {
		l.SetFilename(cfg.filename)
	}
	return l
}

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name recorded in positions and errors.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser.
// The default is 500.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// Parser object
type Parser struct {
	ctx context.Context

	l *lexer.Lexer

	// tokens holds the full token stream, ending with EOF.
	tokens []token.Token

	// pos is the index of the current token.
	pos int

	errors []error

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	filename string
	depth    int
	maxDepth int
}

// New returns a Parser for the program provided by the given Lexer.
func New(l *lexer.Lexer, options ...Option) *Parser {
	p := &Parser{
		l:              l,
		prefixParseFns: map[token.Type]prefixParseFn{},
		infixParseFns:  map[token.Type]infixParseFn{},
		maxDepth:       DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(p)
	}
	p.tokenize()

	p.registerPrefix(token.BANG, p.parsePrefixExpr)
	p.registerPrefix(token.MINUS, p.parsePrefixExpr)
	p.registerPrefix(token.PLUS_PLUS, p.parsePrefixExpr)
	p.registerPrefix(token.MINUS_MINUS, p.parsePrefixExpr)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FLOAT, p.parseFloat)
	p.registerPrefix(token.INT, p.parseInt)
	p.registerPrefix(token.STRING, p.parseString)
	p.registerPrefix(token.NULL, p.parseNull)
	p.registerPrefix(token.IDENT, p.parseIdent)
	p.registerPrefix(token.THIS, p.parseThis)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpr)
	p.registerPrefix(token.LBRACE, p.parseInitList)

	p.registerInfix(token.AND, p.parseInfixExpr)
	p.registerInfix(token.OR, p.parseInfixExpr)
	p.registerInfix(token.EQ, p.parseInfixExpr)
	p.registerInfix(token.NOT_EQ, p.parseInfixExpr)
	p.registerInfix(token.IS, p.parseInfixExpr)
	p.registerInfix(token.NOT_IS, p.parseInfixExpr)
	p.registerInfix(token.LT, p.parseInfixExpr)
	p.registerInfix(token.LT_EQUALS, p.parseInfixExpr)
	p.registerInfix(token.GT, p.parseInfixExpr)
	p.registerInfix(token.GT_EQUALS, p.parseInfixExpr)
	p.registerInfix(token.PLUS, p.parseInfixExpr)
	p.registerInfix(token.MINUS, p.parseInfixExpr)
	p.registerInfix(token.ASTERISK, p.parseInfixExpr)
	p.registerInfix(token.SLASH, p.parseInfixExpr)
	p.registerInfix(token.MOD, p.parseInfixExpr)
	p.registerInfix(token.ASSIGN, p.parseAssign)
	p.registerInfix(token.PLUS_EQUALS, p.parseAssign)
	p.registerInfix(token.MINUS_EQUALS, p.parseAssign)
	p.registerInfix(token.ASTERISK_EQUALS, p.parseAssign)
	p.registerInfix(token.SLASH_EQUALS, p.parseAssign)
	p.registerInfix(token.PLUS_PLUS, p.parsePostfix)
	p.registerInfix(token.MINUS_MINUS, p.parsePostfix)
	p.registerInfix(token.LPAREN, p.parseCall)
	p.registerInfix(token.LBRACKET, p.parseIndex)
	p.registerInfix(token.PERIOD, p.parseGetAttr)
	return p
}

// tokenize reads the whole input. A lexer error is recorded and ends the
// stream.
func (p *Parser) tokenize() {
	for {
		tok, err := p.l.Next()
		if err != nil {
			p.errors = append(p.errors, errz.CompileErrorf(p.location(tok), "syntax error: %s", err))
			tok.Type = token.EOF
		}
		p.tokens = append(p.tokens, tok)
		if tok.Type == token.EOF {
			return
		}
	}
}

// Parse the program that is provided via the lexer. If there are errors, the
// AST may be partial.
func (p *Parser) Parse(ctx context.Context) (*ast.Program, error) {
	p.ctx = ctx
	if len(p.errors) > 0 {
		return nil, p.result()
	}
	var statements []ast.Stmt
	for !p.curTokenIs(token.EOF) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(p.errors) >= maxErrors {
			break
		}
		count := len(p.errors)
		stmt := p.parseTopLevel()
		if stmt != nil {
			statements = append(statements, stmt)
		} else if len(p.errors) > count {
			p.synchronize()
		}
		p.nextToken()
	}
	return &ast.Program{Stmts: statements}, p.result()
}

// ParseBody parses the input as a list of statements.
func (p *Parser) ParseBody(ctx context.Context) (*ast.Block, error) {
	p.ctx = ctx
	if len(p.errors) > 0 {
		return nil, p.result()
	}
	block := &ast.Block{Lbrace: p.curToken().StartPosition}
	for !p.curTokenIs(token.EOF) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(p.errors) >= maxErrors {
			break
		}
		count := len(p.errors)
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		} else if len(p.errors) > count {
			p.synchronize()
		}
		p.nextToken()
	}
	return block, p.result()
}

func (p *Parser) result() error {
	if len(p.errors) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, err := range p.errors {
		result = multierror.Append(result, err)
	}
	return result
}

// synchronize skips to the end of the current statement after an error.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.EOF) && !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.RBRACE) {
		p.nextToken()
	}
}

func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) curToken() token.Token {
	return p.tokens[p.pos]
}

// peekTokenN returns the token n positions after the current one.
func (p *Parser) peekTokenN(n int) token.Token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) peekToken() token.Token {
	return p.peekTokenN(1)
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken().Type == t
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken().Type == t
}

// expectPeek advances if the next token has the given type, and records an
// error otherwise.
func (p *Parser) expectPeek(context string, t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(context, t, p.peekToken())
	return false
}

func (p *Parser) enter() bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.errorf(p.curToken(), "maximum nesting depth exceeded")
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}
