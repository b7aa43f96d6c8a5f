package compiler

import (
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/op"
	"github.com/risor-io/vmctx/token"
)

func isBuiltinType(name string) bool {
	switch name {
	case bytecode.TypeVoid, bytecode.TypeInt, bytecode.TypeFloat, bytecode.TypeBool, bytecode.TypeString:
		return true
	}
	return false
}

func typeRef(t *ast.Type) bytecode.TypeRef {
	return bytecode.TypeRef{Name: t.Name, Const: t.Const, Handle: t.Handle, Array: t.Array}
}

// isValueClass reports whether variables of the type hold an instance that
// is created along with the variable.
func isValueClass(t bytecode.TypeRef) bool {
	return t.IsClass() && !t.Handle
}

func (c *Compiler) resolveType(sec *section, t *ast.Type, allowVoid bool) (bytecode.TypeRef, error) {
	return c.resolveTypeRef(sec, t.NamePos, typeRef(t), allowVoid)
}

// resolveTypeRef checks that a type names a builtin type or a known class.
func (c *Compiler) resolveTypeRef(sec *section, pos token.Position, t bytecode.TypeRef, allowVoid bool) (bytecode.TypeRef, error) {
	if t.Name == bytecode.TypeVoid {
		if !allowVoid || t.Array || t.Handle {
			return t, c.errorf(sec, pos, "invalid use of void")
		}
		return t, nil
	}
	if !isBuiltinType(t.Name) {
		if _, ok := c.classes[t.Name]; !ok {
			return t, c.errorf(sec, pos, "unknown type %s", t.Name)
		}
	} else if t.Handle && !t.Array {
		return t, c.errorf(sec, pos, "handle to %s is not allowed", t.Name)
	}
	return t, nil
}

func paramMode(p *ast.Param) bytecode.ParamMode {
	switch p.Mode {
	case "&in":
		return bytecode.ParamInRef
	case "&out":
		return bytecode.ParamOutRef
	case "&inout":
		return bytecode.ParamInOutRef
	}
	if p.Type.Handle {
		return bytecode.ParamHandle
	}
	return bytecode.ParamByValue
}

// emitZero pushes the default value of a variable of the given type.
func (c *Compiler) emitZero(pos token.Position, t bytecode.TypeRef) error {
	fn := c.current
	switch {
	case t.Handle:
		fn.emit(op.Null)
	case t.Array:
		fn.emit(op.BuildArray, 0)
	case t.Name == bytecode.TypeInt:
		fn.emitConst(int64(0))
	case t.Name == bytecode.TypeFloat:
		fn.emitConst(float64(0))
	case t.Name == bytecode.TypeBool:
		fn.emit(op.False)
	case t.Name == bytecode.TypeString:
		fn.emitConst("")
	case isValueClass(t):
		return c.emitNew(pos, t.Name, 0)
	default:
		fn.emit(op.Null)
	}
	return nil
}

// emitNew emits the creation of a class instance from argc arguments that
// are already on the stack.
func (c *Compiler) emitNew(pos token.Position, class string, argc int) error {
	sym, ok := c.classes[class]
	if !ok {
		return c.current.errorf(pos, "unknown class %s", class)
	}
	if !sym.hasConstructor(argc) {
		return c.current.errorf(pos, "%s has no constructor taking %d arguments", class, argc)
	}
	fn := c.current
	fn.setPos(pos)
	fn.emit(op.New, fn.builder.AddName(class), uint16(argc))
	return nil
}

// compileInitializer pushes the initial value of a variable declared with
// spec.
func (c *Compiler) compileInitializer(spec *ast.VarSpec, t bytecode.TypeRef) error {
	fn := c.current
	switch {
	case spec.HasArgs:
		if !isValueClass(t) {
			return fn.errorf(spec.Name.Pos(), "%s cannot be initialized with constructor arguments", t)
		}
		if err := c.compileArgs(spec.Args); err != nil {
			return err
		}
		return c.emitNew(spec.Name.Pos(), t.Name, len(spec.Args))
	case spec.Value != nil:
		if list, ok := spec.Value.(*ast.InitList); ok {
			if !t.Array {
				return fn.errorf(list.Pos(), "initialization list for non-array type %s", t)
			}
			if err := c.compileArgs(list.Items); err != nil {
				return err
			}
			fn.emit(op.BuildArray, uint16(len(list.Items)))
			return nil
		}
		return c.compileExpr(spec.Value)
	default:
		return c.emitZero(spec.Name.Pos(), t)
	}
}
