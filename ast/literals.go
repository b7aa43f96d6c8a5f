package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/risor-io/vmctx/token"
)

// Int is an integer literal.
type Int struct {
	ValuePos token.Position
	Literal  string
	Value    int64
}

func (x *Int) exprNode() {}

func (x *Int) Pos() token.Position { return x.ValuePos }

func (x *Int) String() string { return x.Literal }

// Float is a floating point literal. A trailing "f" is accepted and ignored.
type Float struct {
	ValuePos token.Position
	Literal  string
	Value    float64
}

func (x *Float) exprNode() {}

func (x *Float) Pos() token.Position { return x.ValuePos }

func (x *Float) String() string {
	if strings.Contains(x.Literal, ".") {
		return x.Literal
	}
	return fmt.Sprintf("%s.0", x.Literal)
}

// String is a string literal in single or double quotes.
type String struct {
	ValuePos token.Position
	Value    string
}

func (x *String) exprNode() {}

func (x *String) Pos() token.Position { return x.ValuePos }

func (x *String) String() string { return strconv.Quote(x.Value) }

// Bool is a true or false literal.
type Bool struct {
	ValuePos token.Position
	Value    bool
}

func (x *Bool) exprNode() {}

func (x *Bool) Pos() token.Position { return x.ValuePos }

func (x *Bool) String() string { return strconv.FormatBool(x.Value) }

// Null is the null handle literal.
type Null struct {
	NullPos token.Position
}

func (x *Null) exprNode() {}

func (x *Null) Pos() token.Position { return x.NullPos }

func (x *Null) String() string { return "null" }

// InitList is a brace enclosed list of values used to initialize an array,
// as in "string[] list = {'a', 'b'}".
type InitList struct {
	Lbrace token.Position
	Items  []Expr
}

func (x *InitList) exprNode() {}

func (x *InitList) Pos() token.Position { return x.Lbrace }

func (x *InitList) String() string {
	items := make([]string, 0, len(x.Items))
	for _, item := range x.Items {
		items = append(items, item.String())
	}
	return "{" + strings.Join(items, ", ") + "}"
}
