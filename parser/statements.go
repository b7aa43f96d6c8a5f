package parser

import (
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/token"
)

// parseTopLevel parses a class, a function or a global variable declaration.
func (p *Parser) parseTopLevel() ast.Stmt {
	switch p.curToken().Type {
	case token.SEMICOLON:
		return nil
	case token.CLASS:
		if class := p.parseClass(); class != nil {
			return class
		}
		return nil
	case token.IDENT, token.CONST:
		typ := p.parseType()
		if typ == nil {
			return nil
		}
		if !p.expectPeek("declaration", token.IDENT) {
			return nil
		}
		if p.peekTokenIs(token.LPAREN) {
			if fn := p.parseFunc(ast.FuncFree, typ); fn != nil {
				return fn
			}
			return nil
		}
		if decl := p.parseVarSpecs(typ); decl != nil {
			return decl
		}
		return nil
	default:
		p.errorf(p.curToken(), "unexpected %s at top level", tokenDescription(p.curToken()))
		return nil
	}
}

// isDeclStart reports whether the tokens at the current position begin a
// variable declaration rather than an expression.
func (p *Parser) isDeclStart() bool {
	if p.curTokenIs(token.CONST) {
		return true
	}
	if !p.curTokenIs(token.IDENT) {
		return false
	}
	switch p.peekToken().Type {
	case token.IDENT, token.AT:
		return true
	case token.LBRACKET:
		return p.peekTokenN(2).Type == token.RBRACKET
	}
	return false
}

// parseType parses a type such as "int", "A@" or "const string[]". On return
// the current token is the last token of the type.
func (p *Parser) parseType() *ast.Type {
	typ := &ast.Type{NamePos: p.curToken().StartPosition}
	if p.curTokenIs(token.CONST) {
		typ.Const = true
		if !p.expectPeek("type", token.IDENT) {
			return nil
		}
	}
	if !p.curTokenIs(token.IDENT) {
		p.errorf(p.curToken(), "expected a type name, got %s", tokenDescription(p.curToken()))
		return nil
	}
	typ.Name = p.curToken().Literal
	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		if !p.expectPeek("array type", token.RBRACKET) {
			return nil
		}
		typ.Array = true
	}
	if p.peekTokenIs(token.AT) {
		p.nextToken()
		typ.Handle = true
	}
	return typ
}

// parseVarSpecs parses the variables of a declaration. The current token is
// the first variable name; on return it is the terminating semicolon.
func (p *Parser) parseVarSpecs(typ *ast.Type) *ast.Var {
	decl := &ast.Var{Type: typ}
	for {
		spec := &ast.VarSpec{Name: p.parseIdent().(*ast.Ident)}
		switch {
		case p.peekTokenIs(token.ASSIGN):
			p.nextToken()
			p.nextToken()
			spec.Value = p.parseExpr(ASSIGN)
			if spec.Value == nil {
				return nil
			}
		case p.peekTokenIs(token.LPAREN):
			p.nextToken()
			args, ok := p.parseExprList("constructor arguments", token.RPAREN)
			if !ok {
				return nil
			}
			spec.Args = args
			spec.HasArgs = true
		}
		decl.Vars = append(decl.Vars, spec)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if !p.expectPeek("declaration", token.IDENT) {
			return nil
		}
	}
	if !p.expectPeek("declaration", token.SEMICOLON) {
		return nil
	}
	return decl
}

// parseFunc parses a function after its name. The current token is the name;
// on return it is the closing brace of the body.
func (p *Parser) parseFunc(kind ast.FuncKind, returns *ast.Type) *ast.Func {
	name := p.parseIdent().(*ast.Ident)
	pos := name.NamePos
	if returns != nil {
		pos = returns.NamePos
	}
	fn := &ast.Func{FuncPos: pos, Kind: kind, Returns: returns, Name: name}
	if !p.expectPeek("function declaration", token.LPAREN) {
		return nil
	}
	params, ok := p.parseParams()
	if !ok {
		return nil
	}
	fn.Params = params
	if !p.expectPeek("function body", token.LBRACE) {
		return nil
	}
	fn.Body = p.parseBlock()
	if fn.Body == nil {
		return nil
	}
	return fn
}

// parseParams parses a parameter list. The current token is "("; on return
// it is ")".
func (p *Parser) parseParams() ([]*ast.Param, bool) {
	var params []*ast.Param
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params, true
	}
	for {
		p.nextToken()
		typ := p.parseType()
		if typ == nil {
			return nil, false
		}
		if typ.Name == "void" && len(params) == 0 && p.peekTokenIs(token.RPAREN) {
			p.nextToken()
			return params, true
		}
		param := &ast.Param{Type: typ}
		if p.peekTokenIs(token.AMPERSAND) {
			p.nextToken()
			param.Mode = "&inout"
			if p.peekTokenIs(token.IDENT) {
				switch p.peekToken().Literal {
				case "in", "out", "inout":
					p.nextToken()
					param.Mode = "&" + p.curToken().Literal
				}
			}
		}
		if p.peekTokenIs(token.IDENT) {
			p.nextToken()
			param.Name = p.parseIdent().(*ast.Ident)
		}
		params = append(params, param)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek("parameter list", token.RPAREN) {
		return nil, false
	}
	return params, true
}

// parseClass parses a class declaration. On return the current token is the
// closing brace.
func (p *Parser) parseClass() *ast.Class {
	class := &ast.Class{ClassPos: p.curToken().StartPosition}
	if !p.expectPeek("class declaration", token.IDENT) {
		return nil
	}
	class.Name = p.parseIdent().(*ast.Ident)
	if !p.expectPeek("class declaration", token.LBRACE) {
		return nil
	}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) {
		switch {
		case p.curTokenIs(token.EOF):
			p.errorf(p.curToken(), "unterminated class %s", class.Name.Name)
			return nil
		case p.curTokenIs(token.SEMICOLON):
		case p.curTokenIs(token.TILDE):
			if !p.expectPeek("destructor", token.IDENT) {
				return nil
			}
			if p.curToken().Literal != class.Name.Name {
				p.errorf(p.curToken(), "destructor name %s does not match class %s",
					p.curToken().Literal, class.Name.Name)
				return nil
			}
			fn := p.parseFunc(ast.FuncDestructor, nil)
			if fn == nil {
				return nil
			}
			fn.FuncPos = fn.Name.NamePos
			if len(fn.Params) > 0 {
				p.errorf(p.curToken(), "destructor of %s cannot take parameters", class.Name.Name)
				return nil
			}
			class.Methods = append(class.Methods, fn)
		case p.curTokenIs(token.IDENT) && p.curToken().Literal == class.Name.Name && p.peekTokenIs(token.LPAREN):
			fn := p.parseFunc(ast.FuncConstructor, nil)
			if fn == nil {
				return nil
			}
			class.Methods = append(class.Methods, fn)
		default:
			typ := p.parseType()
			if typ == nil {
				return nil
			}
			if !p.expectPeek("class member", token.IDENT) {
				return nil
			}
			if p.peekTokenIs(token.LPAREN) {
				fn := p.parseFunc(ast.FuncMethod, typ)
				if fn == nil {
					return nil
				}
				class.Methods = append(class.Methods, fn)
			} else {
				field := p.parseVarSpecs(typ)
				if field == nil {
					return nil
				}
				class.Fields = append(class.Fields, field)
			}
		}
		p.nextToken()
	}
	return class
}

// parseBlock parses statements up to the matching closing brace. The current
// token is "{"; on return it is "}".
func (p *Parser) parseBlock() *ast.Block {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	block := &ast.Block{Lbrace: p.curToken().StartPosition}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorf(p.curToken(), "unterminated block")
			return nil
		}
		if !p.curTokenIs(token.SEMICOLON) {
			stmt := p.parseStatement()
			if stmt == nil {
				return nil
			}
			block.Stmts = append(block.Stmts, stmt)
		}
		p.nextToken()
	}
	return block
}

// parseStatement parses one statement. On return the current token is its
// last token.
func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken().Type {
	case token.SEMICOLON:
		return nil
	case token.LBRACE:
		if block := p.parseBlock(); block != nil {
			return block
		}
		return nil
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.WHILE:
		return p.parseWhile()
	case token.RETURN:
		return p.parseReturn()
	}
	if p.isDeclStart() {
		return p.parseVarDecl()
	}
	return p.parseExprStmt()
}

func (p *Parser) parseVarDecl() ast.Stmt {
	typ := p.parseType()
	if typ == nil {
		return nil
	}
	if !p.expectPeek("declaration", token.IDENT) {
		return nil
	}
	if decl := p.parseVarSpecs(typ); decl != nil {
		return decl
	}
	return nil
}

func (p *Parser) parseExprStmt() ast.Stmt {
	x := p.parseExpr(LOWEST)
	if x == nil {
		return nil
	}
	if !p.expectPeek("statement", token.SEMICOLON) {
		return nil
	}
	return &ast.ExprStmt{X: x}
}

func (p *Parser) parseReturn() ast.Stmt {
	stmt := &ast.Return{ReturnPos: p.curToken().StartPosition}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.Value = p.parseExpr(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	if !p.expectPeek("return statement", token.SEMICOLON) {
		return nil
	}
	return stmt
}

// parseBody parses the statement controlled by if, for or while.
func (p *Parser) parseBody(context string) ast.Stmt {
	p.nextToken()
	if p.curTokenIs(token.EOF) {
		p.errorf(p.curToken(), "missing body of %s", context)
		return nil
	}
	if p.curTokenIs(token.SEMICOLON) {
		return &ast.Block{Lbrace: p.curToken().StartPosition}
	}
	return p.parseStatement()
}

func (p *Parser) parseCondition(context string) ast.Expr {
	if !p.expectPeek(context, token.LPAREN) {
		return nil
	}
	p.nextToken()
	cond := p.parseExpr(LOWEST)
	if cond == nil {
		return nil
	}
	if !p.expectPeek(context, token.RPAREN) {
		return nil
	}
	return cond
}

func (p *Parser) parseIf() ast.Stmt {
	stmt := &ast.If{IfPos: p.curToken().StartPosition}
	if stmt.Cond = p.parseCondition("if statement"); stmt.Cond == nil {
		return nil
	}
	if stmt.Then = p.parseBody("if statement"); stmt.Then == nil {
		return nil
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if stmt.Else = p.parseBody("else"); stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	stmt := &ast.While{WhilePos: p.curToken().StartPosition}
	if stmt.Cond = p.parseCondition("while statement"); stmt.Cond == nil {
		return nil
	}
	if stmt.Body = p.parseBody("while statement"); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseFor() ast.Stmt {
	stmt := &ast.For{ForPos: p.curToken().StartPosition}
	if !p.expectPeek("for statement", token.LPAREN) {
		return nil
	}
	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		if p.isDeclStart() {
			stmt.Init = p.parseVarDecl()
		} else {
			stmt.Init = p.parseExprStmt()
		}
		if stmt.Init == nil {
			return nil
		}
	}
	// The current token is the semicolon ending the initializer.
	if !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		if stmt.Cond = p.parseExpr(LOWEST); stmt.Cond == nil {
			return nil
		}
	}
	if !p.expectPeek("for statement", token.SEMICOLON) {
		return nil
	}
	for !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		post := p.parseExpr(LOWEST)
		if post == nil {
			return nil
		}
		stmt.Post = append(stmt.Post, post)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek("for statement", token.RPAREN) {
		return nil
	}
	if stmt.Body = p.parseBody("for statement"); stmt.Body == nil {
		return nil
	}
	return stmt
}
