package ast

import (
	"bytes"
	"strings"

	"github.com/risor-io/vmctx/token"
)

// Ident is an expression node that refers to a variable by name.
type Ident struct {
	NamePos token.Position // position of identifier
	Name    string         // identifier name
}

func (x *Ident) exprNode() {}

func (x *Ident) Pos() token.Position { return x.NamePos }

func (x *Ident) String() string { return x.Name }

// This refers to the object a method runs on.
type This struct {
	ThisPos token.Position
}

func (x *This) exprNode() {}

func (x *This) Pos() token.Position { return x.ThisPos }

func (x *This) String() string { return "this" }

// Prefix is an operator expression where the operator precedes the operand.
// Examples include "!done", "-x" and "++i".
type Prefix struct {
	OpPos token.Position // position of operator
	Op    string         // operator: "!", "-", "++", "--"
	X     Expr           // operand
}

func (x *Prefix) exprNode() {}

func (x *Prefix) Pos() token.Position { return x.OpPos }

func (x *Prefix) String() string {
	return "(" + x.Op + x.X.String() + ")"
}

// Infix is an operator expression where the operator is between the
// operands. Examples include "a / b", "i < n" and "a !is null".
type Infix struct {
	X     Expr           // left operand
	OpPos token.Position // position of operator
	Op    string         // operator
	Y     Expr           // right operand
}

func (x *Infix) exprNode() {}

func (x *Infix) Pos() token.Position { return x.X.Pos() }

func (x *Infix) String() string {
	return "(" + x.X.String() + " " + x.Op + " " + x.Y.String() + ")"
}

// Postfix is an increment or decrement following its operand, as in "i++".
// It evaluates to the value before the update.
type Postfix struct {
	X     Expr           // operand
	OpPos token.Position // position of operator
	Op    string         // "++" or "--"
}

func (x *Postfix) exprNode() {}

func (x *Postfix) Pos() token.Position { return x.X.Pos() }

func (x *Postfix) String() string {
	return "(" + x.X.String() + x.Op + ")"
}

// Assign stores a value into a variable, field or array element. Compound
// operators such as "+=" combine the current value first. The expression
// evaluates to the stored value.
type Assign struct {
	Target Expr           // variable, field or element
	OpPos  token.Position // position of operator
	Op     string         // "=", "+=", "-=", "*=" or "/="
	Value  Expr           // value to assign
}

func (x *Assign) exprNode() {}

func (x *Assign) Pos() token.Position { return x.Target.Pos() }

func (x *Assign) String() string {
	return x.Target.String() + " " + x.Op + " " + x.Value.String()
}

// Call is a function, method or constructor call.
type Call struct {
	Fn     Expr           // function expression
	Lparen token.Position // position of "("
	Args   []Expr         // function arguments
}

func (x *Call) exprNode() {}

func (x *Call) Pos() token.Position { return x.Fn.Pos() }

func (x *Call) String() string {
	args := make([]string, 0, len(x.Args))
	for _, a := range x.Args {
		args = append(args, a.String())
	}
	var out bytes.Buffer
	out.WriteString(x.Fn.String())
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")
	return out.String()
}

// GetAttr is a member access, as in "obj.field".
type GetAttr struct {
	X      Expr           // object expression
	Period token.Position // position of "."
	Attr   *Ident         // member name
}

func (x *GetAttr) exprNode() {}

func (x *GetAttr) Pos() token.Position { return x.X.Pos() }

func (x *GetAttr) String() string {
	return x.X.String() + "." + x.Attr.String()
}

// Index is an array subscript, as in "list[1]".
type Index struct {
	X      Expr           // array expression
	Lbrack token.Position // position of "["
	Index  Expr           // index expression
}

func (x *Index) exprNode() {}

func (x *Index) Pos() token.Position { return x.X.Pos() }

func (x *Index) String() string {
	return x.X.String() + "[" + x.Index.String() + "]"
}
