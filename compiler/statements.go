package compiler

import (
	"sort"

	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/op"
)

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	fn := c.current
	fn.setPos(stmt.Pos())
	switch stmt := stmt.(type) {
	case *ast.Var:
		return c.compileVar(stmt)
	case *ast.ExprStmt:
		if err := c.compileExpr(stmt.X); err != nil {
			return err
		}
		fn.emit(op.PopTop)
		return nil
	case *ast.Block:
		return c.compileBlock(stmt)
	case *ast.Return:
		return c.compileReturn(stmt)
	case *ast.If:
		return c.compileIf(stmt)
	case *ast.For:
		return c.compileFor(stmt)
	case *ast.While:
		return c.compileWhile(stmt)
	default:
		return fn.errorf(stmt.Pos(), "unexpected statement %s", stmt.String())
	}
}

func (c *Compiler) compileVar(decl *ast.Var) error {
	fn := c.current
	typ, err := c.resolveType(fn.section, decl.Type, false)
	if err != nil {
		return err
	}
	for _, spec := range decl.Vars {
		fn.setPos(spec.Name.Pos())
		// The variable is not visible in its own initializer.
		if err := c.compileInitializer(spec, typ); err != nil {
			return err
		}
		if err := fn.declare(spec.Name.Pos(), spec.Name.Name, typ); err != nil {
			return err
		}
		l, _ := fn.resolve(spec.Name.Name)
		fn.emit(op.StoreFast, l.slot)
	}
	return nil
}

// compileBlock compiles a nested block. Variables that hold references are
// released when the block ends normally.
func (c *Compiler) compileBlock(block *ast.Block) error {
	fn := c.current
	fn.pushScope()
	for _, stmt := range block.Stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.releaseScope(fn.popScope())
	return nil
}

func (c *Compiler) releaseScope(scope map[string]local) {
	fn := c.current
	slots := make([]uint16, 0, len(scope))
	for _, l := range scope {
		if !l.typ.IsPrimitive() {
			slots = append(slots, l.slot)
		}
	}
	// Release in reverse declaration order.
	sort.Slice(slots, func(i, j int) bool { return slots[i] > slots[j] })
	for _, slot := range slots {
		fn.emit(op.Null)
		fn.emit(op.StoreFast, slot)
	}
}

func (c *Compiler) compileReturn(stmt *ast.Return) error {
	fn := c.current
	void := fn.returns.IsVoid() || fn.kind == bytecode.KindConstructor || fn.kind == bytecode.KindDestructor
	if stmt.Value == nil {
		if !void {
			return fn.errorf(stmt.Pos(), "%s must return a value", fn.name)
		}
		fn.emit(op.Return)
		return nil
	}
	if void {
		return fn.errorf(stmt.Pos(), "%s cannot return a value", fn.name)
	}
	if err := c.compileExpr(stmt.Value); err != nil {
		return err
	}
	fn.emit(op.ReturnValue)
	return nil
}

// compileBody compiles the statement controlled by if, for or while in its
// own scope.
func (c *Compiler) compileBody(stmt ast.Stmt) error {
	if block, ok := stmt.(*ast.Block); ok {
		return c.compileBlock(block)
	}
	return c.compileBlock(&ast.Block{Lbrace: stmt.Pos(), Stmts: []ast.Stmt{stmt}})
}

func (c *Compiler) compileCondition(cond ast.Expr) (int, error) {
	fn := c.current
	fn.setPos(cond.Pos())
	if err := c.compileExpr(cond); err != nil {
		return 0, err
	}
	return fn.emitJump(op.PopJumpIfFalse), nil
}

func (c *Compiler) compileIf(stmt *ast.If) error {
	fn := c.current
	jumpElse, err := c.compileCondition(stmt.Cond)
	if err != nil {
		return err
	}
	if err := c.compileBody(stmt.Then); err != nil {
		return err
	}
	if stmt.Else == nil {
		fn.patchJump(jumpElse)
		return nil
	}
	jumpEnd := fn.emitJump(op.Jump)
	fn.patchJump(jumpElse)
	if err := c.compileBody(stmt.Else); err != nil {
		return err
	}
	fn.patchJump(jumpEnd)
	return nil
}

func (c *Compiler) compileWhile(stmt *ast.While) error {
	fn := c.current
	start := fn.builder.Offset()
	jumpEnd, err := c.compileCondition(stmt.Cond)
	if err != nil {
		return err
	}
	if err := c.compileBody(stmt.Body); err != nil {
		return err
	}
	fn.setPos(stmt.Pos())
	fn.emit(op.Jump, uint16(start))
	fn.patchJump(jumpEnd)
	return nil
}

func (c *Compiler) compileFor(stmt *ast.For) error {
	fn := c.current
	fn.pushScope()
	if stmt.Init != nil {
		if err := c.compileStmt(stmt.Init); err != nil {
			return err
		}
	}
	start := fn.builder.Offset()
	jumpEnd := -1
	if stmt.Cond != nil {
		var err error
		if jumpEnd, err = c.compileCondition(stmt.Cond); err != nil {
			return err
		}
	}
	if err := c.compileBody(stmt.Body); err != nil {
		return err
	}
	for _, post := range stmt.Post {
		fn.setPos(post.Pos())
		if err := c.compileExpr(post); err != nil {
			return err
		}
		fn.emit(op.PopTop)
	}
	fn.setPos(stmt.Pos())
	fn.emit(op.Jump, uint16(start))
	if jumpEnd >= 0 {
		fn.patchJump(jumpEnd)
	}
	c.releaseScope(fn.popScope())
	return nil
}
