package ast

import (
	"bytes"
	"strings"

	"github.com/risor-io/vmctx/token"
)

// VarSpec is one variable of a declaration. A variable may have an
// initializer ("int a = 0") or constructor arguments ("A a(1, 2)").
type VarSpec struct {
	Name    *Ident
	Value   Expr
	Args    []Expr
	HasArgs bool
}

func (s *VarSpec) String() string {
	switch {
	case s.Value != nil:
		return s.Name.String() + " = " + s.Value.String()
	case s.HasArgs:
		args := make([]string, 0, len(s.Args))
		for _, a := range s.Args {
			args = append(args, a.String())
		}
		return s.Name.String() + "(" + strings.Join(args, ", ") + ")"
	default:
		return s.Name.String()
	}
}

// Var declares one or more variables of the same type, as in
// "int a = 0, b = 0;". It is used for locals, globals and class fields.
type Var struct {
	Type *Type
	Vars []*VarSpec
}

func (s *Var) stmtNode() {}

func (s *Var) Pos() token.Position { return s.Type.NamePos }

func (s *Var) String() string {
	specs := make([]string, 0, len(s.Vars))
	for _, v := range s.Vars {
		specs = append(specs, v.String())
	}
	return s.Type.String() + " " + strings.Join(specs, ", ") + ";"
}

// Block is a brace enclosed list of statements.
type Block struct {
	Lbrace token.Position
	Stmts  []Stmt
}

func (s *Block) stmtNode() {}

func (s *Block) Pos() token.Position { return s.Lbrace }

func (s *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{\n")
	for _, stmt := range s.Stmts {
		out.WriteString("\t")
		out.WriteString(stmt.String())
		out.WriteString("\n")
	}
	out.WriteString("}")
	return out.String()
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) stmtNode() {}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }

func (s *ExprStmt) String() string { return s.X.String() + ";" }

// Return exits the current function, optionally with a value.
type Return struct {
	ReturnPos token.Position
	Value     Expr
}

func (s *Return) stmtNode() {}

func (s *Return) Pos() token.Position { return s.ReturnPos }

func (s *Return) String() string {
	if s.Value == nil {
		return "return;"
	}
	return "return " + s.Value.String() + ";"
}

// If is a conditional statement with an optional else branch.
type If struct {
	IfPos token.Position
	Cond  Expr
	Then  Stmt
	Else  Stmt
}

func (s *If) stmtNode() {}

func (s *If) Pos() token.Position { return s.IfPos }

func (s *If) String() string {
	out := "if (" + s.Cond.String() + ") " + s.Then.String()
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

// For is a C style loop. Init, Cond and Post are optional.
type For struct {
	ForPos token.Position
	Init   Stmt
	Cond   Expr
	Post   []Expr
	Body   Stmt
}

func (s *For) stmtNode() {}

func (s *For) Pos() token.Position { return s.ForPos }

func (s *For) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	if s.Init != nil {
		out.WriteString(strings.TrimSuffix(s.Init.String(), ";"))
	}
	out.WriteString("; ")
	if s.Cond != nil {
		out.WriteString(s.Cond.String())
	}
	out.WriteString("; ")
	post := make([]string, 0, len(s.Post))
	for _, p := range s.Post {
		post = append(post, p.String())
	}
	out.WriteString(strings.Join(post, ", "))
	out.WriteString(") ")
	out.WriteString(s.Body.String())
	return out.String()
}

// While loops while its condition is true.
type While struct {
	WhilePos token.Position
	Cond     Expr
	Body     Stmt
}

func (s *While) stmtNode() {}

func (s *While) Pos() token.Position { return s.WhilePos }

func (s *While) String() string {
	return "while (" + s.Cond.String() + ") " + s.Body.String()
}

// FuncKind distinguishes free functions from class members.
type FuncKind int

const (
	FuncFree FuncKind = iota
	FuncMethod
	FuncConstructor
	FuncDestructor
)

// Param is one parameter of a function declaration. Mode is empty for
// by-value and handle parameters, or one of "&in", "&out" and "&inout".
type Param struct {
	Type *Type
	Mode string
	Name *Ident
}

func (p *Param) String() string {
	s := p.Type.String()
	if p.Mode != "" {
		s += " " + p.Mode
	}
	if p.Name != nil {
		s += " " + p.Name.String()
	}
	return s
}

// Func declares a free function or a member of a class. Constructors and
// destructors have no return type.
type Func struct {
	FuncPos token.Position
	Kind    FuncKind
	Returns *Type
	Name    *Ident
	Params  []*Param
	Body    *Block
}

func (s *Func) stmtNode() {}

func (s *Func) Pos() token.Position { return s.FuncPos }

func (s *Func) String() string {
	var out bytes.Buffer
	if s.Returns != nil {
		out.WriteString(s.Returns.String())
		out.WriteString(" ")
	}
	if s.Kind == FuncDestructor {
		out.WriteString("~")
	}
	out.WriteString(s.Name.String())
	out.WriteString("(")
	params := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(s.Body.String())
	return out.String()
}

// Class declares a script class with its fields and member functions.
type Class struct {
	ClassPos token.Position
	Name     *Ident
	Fields   []*Var
	Methods  []*Func
}

func (s *Class) stmtNode() {}

func (s *Class) Pos() token.Position { return s.ClassPos }

func (s *Class) String() string {
	var out bytes.Buffer
	out.WriteString("class ")
	out.WriteString(s.Name.String())
	out.WriteString(" {\n")
	for _, f := range s.Fields {
		out.WriteString("\t")
		out.WriteString(f.String())
		out.WriteString("\n")
	}
	for _, m := range s.Methods {
		out.WriteString("\t")
		out.WriteString(m.String())
		out.WriteString("\n")
	}
	out.WriteString("}")
	return out.String()
}
