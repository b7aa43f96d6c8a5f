package bytecode

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseDeclaration parses a function declaration such as
// "void print(const string &in)" or "A@ make(int[] xs, int n)" into a
// Function without code. It is used to register host functions.
func ParseDeclaration(decl string) (*Function, error) {
	p := &declParser{tokens: tokenizeDecl(decl)}
	returns, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("declaration %q: %w", decl, err)
	}
	name := p.next()
	if !isIdent(name) {
		return nil, fmt.Errorf("declaration %q: expected function name, got %q", decl, name)
	}
	if tok := p.next(); tok != "(" {
		return nil, fmt.Errorf("declaration %q: expected '(', got %q", decl, tok)
	}
	var params []Param
	if p.peek() == ")" {
		p.next()
	} else {
		for {
			param, err := p.parseParam()
			if err != nil {
				return nil, fmt.Errorf("declaration %q: %w", decl, err)
			}
			params = append(params, param)
			tok := p.next()
			if tok == ")" {
				break
			}
			if tok != "," {
				return nil, fmt.Errorf("declaration %q: expected ',' or ')', got %q", decl, tok)
			}
		}
	}
	if tok := p.next(); tok != "" {
		return nil, fmt.Errorf("declaration %q: unexpected %q", decl, tok)
	}
	return NewFunction(FunctionParams{
		Name:        name,
		Declaration: decl,
		Params:      params,
		Returns:     returns,
	}), nil
}

type declParser struct {
	tokens []string
	pos    int
}

func (p *declParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *declParser) next() string {
	tok := p.peek()
	if tok != "" {
		p.pos++
	}
	return tok
}

func (p *declParser) parseType() (TypeRef, error) {
	var t TypeRef
	if p.peek() == "const" {
		p.next()
		t.Const = true
	}
	name := p.next()
	if !isIdent(name) {
		return t, fmt.Errorf("expected type name, got %q", name)
	}
	t.Name = name
	if p.peek() == "[" {
		p.next()
		if tok := p.next(); tok != "]" {
			return t, fmt.Errorf("expected ']', got %q", tok)
		}
		t.Array = true
	}
	if p.peek() == "@" {
		p.next()
		t.Handle = true
	}
	return t, nil
}

func (p *declParser) parseParam() (Param, error) {
	t, err := p.parseType()
	if err != nil {
		return Param{}, err
	}
	param := Param{Type: t, Mode: ParamByValue}
	if t.Handle {
		param.Mode = ParamHandle
	}
	if p.peek() == "&" {
		p.next()
		param.Mode = ParamInOutRef
		switch p.peek() {
		case "in":
			p.next()
			param.Mode = ParamInRef
		case "out":
			p.next()
			param.Mode = ParamOutRef
		case "inout":
			p.next()
		}
	}
	if isIdent(p.peek()) {
		param.Name = p.next()
	}
	return param, nil
}

func tokenizeDecl(s string) []string {
	var tokens []string
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
