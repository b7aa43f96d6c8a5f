package compiler

import (
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/op"
	"github.com/risor-io/vmctx/token"
)

// local is a variable in a function scope.
type local struct {
	slot uint16
	typ  bytecode.TypeRef
}

// function is the state of one function being compiled.
type function struct {
	c       *Compiler
	section *section
	builder *bytecode.Builder
	name    string
	kind    bytecode.FunctionKind
	class   *classSymbol
	returns bytecode.TypeRef
	scopes  []map[string]local
}

func newFunction(c *Compiler, sec *section, name string, kind bytecode.FunctionKind, class *classSymbol, returns bytecode.TypeRef) *function {
	b := bytecode.NewBuilder(name)
	b.SetSource(sec.name, sec.source)
	return &function{
		c:       c,
		section: sec,
		builder: b,
		name:    name,
		kind:    kind,
		class:   class,
		returns: returns,
	}
}

func (f *function) hasThis() bool {
	return f.kind != bytecode.KindFunction
}

func (f *function) pushScope() {
	f.scopes = append(f.scopes, map[string]local{})
}

// popScope closes the innermost scope and returns its variables.
func (f *function) popScope() map[string]local {
	scope := f.scopes[len(f.scopes)-1]
	f.scopes = f.scopes[:len(f.scopes)-1]
	return scope
}

// declare adds a variable to the innermost scope and returns its slot.
func (f *function) declare(pos token.Position, name string, typ bytecode.TypeRef) error {
	if name == "" {
		// Unnamed parameters still occupy a slot.
		f.builder.DeclareLocal("")
		return nil
	}
	scope := f.scopes[len(f.scopes)-1]
	if _, exists := scope[name]; exists {
		return f.c.errorf(f.section, pos, "%s is already declared", name)
	}
	scope[name] = local{slot: f.builder.DeclareLocal(name), typ: typ}
	return nil
}

func (f *function) resolve(name string) (local, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if l, ok := f.scopes[i][name]; ok {
			return l, true
		}
	}
	return local{}, false
}

// temp reserves an unnamed slot for an intermediate value.
func (f *function) temp() uint16 {
	return f.builder.DeclareLocal("")
}

func (f *function) setPos(pos token.Position) {
	f.builder.SetLocation(bytecode.SourceLocation{
		Line:   pos.LineNumber(),
		Column: pos.ColumnNumber(),
	})
}

func (f *function) emit(code op.Code, operands ...uint16) int {
	return f.builder.Emit(code, operands...)
}

func (f *function) emitConst(value any) {
	f.builder.EmitConst(value)
}

// emitJump emits a jump with a placeholder target and returns its position
// for patchJump.
func (f *function) emitJump(code op.Code) int {
	return f.emit(code, Placeholder)
}

// patchJump points the jump at pos to the next instruction.
func (f *function) patchJump(pos int) {
	f.builder.Patch(pos, 0, uint16(f.builder.Offset()))
}

func (f *function) errorf(pos token.Position, format string, args ...any) error {
	return f.c.errorf(f.section, pos, format, args...)
}
