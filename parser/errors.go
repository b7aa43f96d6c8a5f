package parser

import (
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/token"
)

func (p *Parser) location(tok token.Token) errz.SourceLocation {
	return errz.SourceLocation{
		Filename: tok.StartPosition.File,
		Line:     tok.StartPosition.LineNumber(),
		Column:   tok.StartPosition.ColumnNumber(),
		Source:   p.l.GetLineText(tok),
	}
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	p.errors = append(p.errors, errz.CompileErrorf(p.location(tok), format, args...))
}

func (p *Parser) peekError(context string, expected token.Type, got token.Token) {
	p.errorf(got, "unexpected %s while parsing %s (expected %s)",
		tokenDescription(got), context, expected)
}

func tokenDescription(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of file"
	case token.IDENT:
		return "identifier " + tok.Literal
	case token.STRING:
		return "string literal"
	case token.INT, token.FLOAT:
		return "number " + tok.Literal
	}
	if tok.Literal != "" {
		return `"` + tok.Literal + `"`
	}
	return string(tok.Type)
}
