// Package ast defines the abstract syntax tree of the script language.
package ast

import (
	"strings"

	"github.com/risor-io/vmctx/token"
)

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node. Statements cause side effects but
// do not evaluate to a value.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Program is the root of a parsed script section.
type Program struct {
	Stmts []Stmt
}

// Pos returns the position of the first statement.
func (p *Program) Pos() token.Position {
	if len(p.Stmts) == 0 {
		return token.Position{}
	}
	return p.Stmts[0].Pos()
}

func (p *Program) String() string {
	lines := make([]string, 0, len(p.Stmts))
	for _, stmt := range p.Stmts {
		lines = append(lines, stmt.String())
	}
	return strings.Join(lines, "\n")
}

// Type is a type as written in a declaration, e.g. "const string[]@".
type Type struct {
	NamePos token.Position
	Name    string
	Const   bool
	Array   bool
	Handle  bool
}

func (t *Type) String() string {
	var sb strings.Builder
	if t.Const {
		sb.WriteString("const ")
	}
	sb.WriteString(t.Name)
	if t.Array {
		sb.WriteString("[]")
	}
	if t.Handle {
		sb.WriteString("@")
	}
	return sb.String()
}
