package parser

import (
	"strconv"

	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/token"
)

func (p *Parser) parseInt() ast.Expr {
	tok := p.curToken()
	value, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.errorf(tok, "invalid integer: %s", tok.Literal)
		return nil
	}
	return &ast.Int{ValuePos: tok.StartPosition, Literal: tok.Literal, Value: value}
}

func (p *Parser) parseFloat() ast.Expr {
	tok := p.curToken()
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.errorf(tok, "invalid float: %s", tok.Literal)
		return nil
	}
	return &ast.Float{ValuePos: tok.StartPosition, Literal: tok.Literal, Value: value}
}

func (p *Parser) parseString() ast.Expr {
	tok := p.curToken()
	return &ast.String{ValuePos: tok.StartPosition, Value: tok.Literal}
}

func (p *Parser) parseBoolean() ast.Expr {
	tok := p.curToken()
	return &ast.Bool{ValuePos: tok.StartPosition, Value: tok.Type == token.TRUE}
}

func (p *Parser) parseNull() ast.Expr {
	return &ast.Null{NullPos: p.curToken().StartPosition}
}

func (p *Parser) parseInitList() ast.Expr {
	lbrace := p.curToken().StartPosition
	items, ok := p.parseExprList("initialization list", token.RBRACE)
	if !ok {
		return nil
	}
	return &ast.InitList{Lbrace: lbrace, Items: items}
}
