package parser

import (
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/token"
)

// parseExpr parses an expression starting at the current token. On return
// the current token is the last token of the expression.
func (p *Parser) parseExpr(precedence int) ast.Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	tok := p.curToken()
	prefix := p.prefixParseFns[tok.Type]
	if prefix == nil {
		p.errorf(tok, "unexpected %s", tokenDescription(tok))
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}
	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken().Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parseIdent() ast.Expr {
	tok := p.curToken()
	return &ast.Ident{NamePos: tok.StartPosition, Name: tok.Literal}
}

func (p *Parser) parseThis() ast.Expr {
	return &ast.This{ThisPos: p.curToken().StartPosition}
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	tok := p.curToken()
	p.nextToken()
	x := p.parseExpr(PREFIX)
	if x == nil {
		return nil
	}
	if tok.Type == token.PLUS_PLUS || tok.Type == token.MINUS_MINUS {
		if !p.assignable(x) {
			return nil
		}
	}
	return &ast.Prefix{OpPos: tok.StartPosition, Op: tok.Literal, X: x}
}

func (p *Parser) parseInfixExpr(left ast.Expr) ast.Expr {
	tok := p.curToken()
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpr(precedence)
	if right == nil {
		return nil
	}
	return &ast.Infix{X: left, OpPos: tok.StartPosition, Op: tok.Literal, Y: right}
}

func (p *Parser) parsePostfix(left ast.Expr) ast.Expr {
	tok := p.curToken()
	if !p.assignable(left) {
		return nil
	}
	return &ast.Postfix{X: left, OpPos: tok.StartPosition, Op: tok.Literal}
}

// parseAssign is right associative: "a = b = c" assigns c to b first.
func (p *Parser) parseAssign(left ast.Expr) ast.Expr {
	tok := p.curToken()
	if !p.assignable(left) {
		return nil
	}
	p.nextToken()
	value := p.parseExpr(ASSIGN - 1)
	if value == nil {
		return nil
	}
	return &ast.Assign{Target: left, OpPos: tok.StartPosition, Op: tok.Literal, Value: value}
}

func (p *Parser) assignable(x ast.Expr) bool {
	switch x.(type) {
	case *ast.Ident, *ast.GetAttr, *ast.Index:
		return true
	}
	p.errorf(p.curToken(), "cannot assign to %s", x.String())
	return false
}

func (p *Parser) parseGroupedExpr() ast.Expr {
	p.nextToken()
	x := p.parseExpr(LOWEST)
	if x == nil {
		return nil
	}
	if !p.expectPeek("grouped expression", token.RPAREN) {
		return nil
	}
	return x
}

func (p *Parser) parseCall(fn ast.Expr) ast.Expr {
	lparen := p.curToken().StartPosition
	args, ok := p.parseExprList("call arguments", token.RPAREN)
	if !ok {
		return nil
	}
	return &ast.Call{Fn: fn, Lparen: lparen, Args: args}
}

func (p *Parser) parseIndex(x ast.Expr) ast.Expr {
	lbrack := p.curToken().StartPosition
	p.nextToken()
	index := p.parseExpr(LOWEST)
	if index == nil {
		return nil
	}
	if !p.expectPeek("index expression", token.RBRACKET) {
		return nil
	}
	return &ast.Index{X: x, Lbrack: lbrack, Index: index}
}

func (p *Parser) parseGetAttr(x ast.Expr) ast.Expr {
	period := p.curToken().StartPosition
	if !p.expectPeek("member access", token.IDENT) {
		return nil
	}
	attr := p.parseIdent().(*ast.Ident)
	return &ast.GetAttr{X: x, Period: period, Attr: attr}
}

// parseExprList parses a comma separated list of expressions. The current
// token is the opening delimiter; on return it is the closing one.
func (p *Parser) parseExprList(context string, end token.Type) ([]ast.Expr, bool) {
	var list []ast.Expr
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	for {
		p.nextToken()
		x := p.parseExpr(LOWEST)
		if x == nil {
			return nil, false
		}
		list = append(list, x)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(context, end) {
		return nil, false
	}
	return list, true
}
