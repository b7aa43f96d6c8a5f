package compiler

import (
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/op"
)

var binaryOps = map[string]op.BinaryOpType{
	"+":  op.Add,
	"-":  op.Subtract,
	"*":  op.Multiply,
	"/":  op.Divide,
	"%":  op.Modulo,
	"+=": op.Add,
	"-=": op.Subtract,
	"*=": op.Multiply,
	"/=": op.Divide,
	"++": op.Add,
	"--": op.Subtract,
}

var compareOps = map[string]op.CompareOpType{
	"<":   op.LessThan,
	"<=":  op.LessThanOrEqual,
	"==":  op.Equal,
	"!=":  op.NotEqual,
	">":   op.GreaterThan,
	">=":  op.GreaterThanOrEqual,
	"is":  op.Equal,
	"!is": op.NotEqual,
}

// compileExpr emits code that leaves the value of x on the stack.
func (c *Compiler) compileExpr(x ast.Expr) error {
	fn := c.current
	switch x := x.(type) {
	case *ast.Int:
		fn.emitConst(x.Value)
	case *ast.Float:
		fn.emitConst(x.Value)
	case *ast.String:
		fn.emitConst(x.Value)
	case *ast.Bool:
		if x.Value {
			fn.emit(op.True)
		} else {
			fn.emit(op.False)
		}
	case *ast.Null:
		fn.emit(op.Null)
	case *ast.This:
		if !fn.hasThis() {
			return fn.errorf(x.Pos(), "this is only available in class members")
		}
		fn.emit(op.LoadFast, 0)
	case *ast.Ident:
		return c.compileIdent(x)
	case *ast.GetAttr:
		if err := c.compileExpr(x.X); err != nil {
			return err
		}
		fn.setPos(x.Period)
		fn.emit(op.LoadAttr, fn.builder.AddName(x.Attr.Name))
	case *ast.Index:
		if err := c.compileExpr(x.X); err != nil {
			return err
		}
		if err := c.compileExpr(x.Index); err != nil {
			return err
		}
		fn.setPos(x.Lbrack)
		fn.emit(op.BinarySubscr)
	case *ast.Prefix:
		return c.compilePrefix(x)
	case *ast.Postfix:
		return c.compilePostfix(x)
	case *ast.Infix:
		return c.compileInfix(x)
	case *ast.Assign:
		return c.compileAssign(x)
	case *ast.Call:
		return c.compileCall(x)
	case *ast.InitList:
		return fn.errorf(x.Pos(), "initialization lists are only allowed in declarations")
	default:
		return fn.errorf(x.Pos(), "unexpected expression %s", x.String())
	}
	return nil
}

func (c *Compiler) compileIdent(x *ast.Ident) error {
	fn := c.current
	if l, ok := fn.resolve(x.Name); ok {
		fn.emit(op.LoadFast, l.slot)
		return nil
	}
	if fn.class != nil && fn.class.hasField(x.Name) {
		fn.emit(op.LoadFast, 0)
		fn.setPos(x.Pos())
		fn.emit(op.LoadAttr, fn.builder.AddName(x.Name))
		return nil
	}
	if g, ok := c.globals[x.Name]; ok {
		fn.emit(op.LoadGlobal, uint16(g.index))
		return nil
	}
	return fn.errorf(x.Pos(), "%s is not declared", x.Name)
}

func (c *Compiler) compileArgs(args []ast.Expr) error {
	if len(args) > MaxArgs {
		return c.current.errorf(args[0].Pos(), "too many arguments")
	}
	for _, arg := range args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileCall(x *ast.Call) error {
	fn := c.current
	argc := len(x.Args)
	switch callee := x.Fn.(type) {
	case *ast.GetAttr:
		if err := c.compileExpr(callee.X); err != nil {
			return err
		}
		if err := c.compileArgs(x.Args); err != nil {
			return err
		}
		fn.setPos(callee.Period)
		fn.emit(op.CallMethod, fn.builder.AddName(callee.Attr.Name), uint16(argc))
		return nil
	case *ast.Ident:
		name := callee.Name
		if fn.class != nil && fn.hasThis() && fn.class.methods[name] {
			fn.emit(op.LoadFast, 0)
			if err := c.compileArgs(x.Args); err != nil {
				return err
			}
			fn.setPos(x.Pos())
			fn.emit(op.CallMethod, fn.builder.AddName(name), uint16(argc))
			return nil
		}
		if err := c.compileArgs(x.Args); err != nil {
			return err
		}
		fn.setPos(x.Pos())
		if sym := c.function(name, argc); sym != nil {
			fn.emit(op.Call, uint16(sym.index), uint16(argc))
			return nil
		}
		if _, ok := c.classes[name]; ok {
			return c.emitNew(x.Pos(), name, argc)
		}
		if c.hostFunction != nil && !c.hostFunction(name, argc) {
			if c.hasFunctionNamed(name) {
				return fn.errorf(x.Pos(), "no matching signature for %s taking %d arguments", name, argc)
			}
			return fn.errorf(x.Pos(), "no function named %s", name)
		}
		fn.emit(op.CallNative, fn.builder.AddName(name), uint16(argc))
		return nil
	default:
		return fn.errorf(x.Pos(), "%s is not callable", x.Fn.String())
	}
}

func (c *Compiler) compilePrefix(x *ast.Prefix) error {
	fn := c.current
	switch x.Op {
	case "++", "--":
		t, err := c.lvalue(x.X)
		if err != nil {
			return err
		}
		if err := t.stash(); err != nil {
			return err
		}
		t.load()
		fn.setPos(x.OpPos)
		fn.emitConst(int64(1))
		fn.emit(op.BinaryOp, uint16(binaryOps[x.Op]))
		fn.emit(op.Copy, 0)
		t.store()
		t.clear()
		return nil
	case "-":
		switch lit := x.X.(type) {
		case *ast.Int:
			fn.emitConst(-lit.Value)
			return nil
		case *ast.Float:
			fn.emitConst(-lit.Value)
			return nil
		}
		if err := c.compileExpr(x.X); err != nil {
			return err
		}
		fn.setPos(x.OpPos)
		fn.emit(op.UnaryNegative)
		return nil
	case "!":
		if err := c.compileExpr(x.X); err != nil {
			return err
		}
		fn.emit(op.UnaryNot)
		return nil
	default:
		return fn.errorf(x.OpPos, "unknown operator %s", x.Op)
	}
}

// compilePostfix leaves the value from before the update on the stack.
func (c *Compiler) compilePostfix(x *ast.Postfix) error {
	fn := c.current
	t, err := c.lvalue(x.X)
	if err != nil {
		return err
	}
	if err := t.stash(); err != nil {
		return err
	}
	t.load()
	fn.setPos(x.OpPos)
	fn.emit(op.Copy, 0)
	fn.emitConst(int64(1))
	fn.emit(op.BinaryOp, uint16(binaryOps[x.Op]))
	t.store()
	t.clear()
	return nil
}

func (c *Compiler) compileInfix(x *ast.Infix) error {
	fn := c.current
	switch x.Op {
	case "&&", "||":
		if err := c.compileExpr(x.X); err != nil {
			return err
		}
		fn.emit(op.Copy, 0)
		var jump int
		if x.Op == "&&" {
			jump = fn.emitJump(op.PopJumpIfFalse)
		} else {
			jump = fn.emitJump(op.PopJumpIfTrue)
		}
		fn.emit(op.PopTop)
		if err := c.compileExpr(x.Y); err != nil {
			return err
		}
		fn.patchJump(jump)
		return nil
	}
	if err := c.compileExpr(x.X); err != nil {
		return err
	}
	if err := c.compileExpr(x.Y); err != nil {
		return err
	}
	fn.setPos(x.OpPos)
	if opType, ok := binaryOps[x.Op]; ok {
		fn.emit(op.BinaryOp, uint16(opType))
		return nil
	}
	if opType, ok := compareOps[x.Op]; ok {
		fn.emit(op.CompareOp, uint16(opType))
		return nil
	}
	return fn.errorf(x.OpPos, "unknown operator %s", x.Op)
}

// compileAssign leaves the assigned value on the stack.
func (c *Compiler) compileAssign(x *ast.Assign) error {
	fn := c.current
	t, err := c.lvalue(x.Target)
	if err != nil {
		return err
	}
	if x.Op == "=" {
		if err := c.compileExpr(x.Value); err != nil {
			return err
		}
		fn.emit(op.Copy, 0)
		if err := t.push(); err != nil {
			return err
		}
		fn.setPos(x.OpPos)
		t.storePushed()
		return nil
	}
	opType, ok := binaryOps[x.Op]
	if !ok {
		return fn.errorf(x.OpPos, "unknown operator %s", x.Op)
	}
	if err := t.stash(); err != nil {
		return err
	}
	t.load()
	if err := c.compileExpr(x.Value); err != nil {
		return err
	}
	fn.setPos(x.OpPos)
	fn.emit(op.BinaryOp, uint16(opType))
	fn.emit(op.Copy, 0)
	t.store()
	t.clear()
	return nil
}
