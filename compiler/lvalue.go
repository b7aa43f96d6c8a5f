package compiler

import (
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/op"
)

type targetKind int

const (
	targetLocal targetKind = iota
	targetGlobal
	targetField
	targetIndex
)

// target is an assignable location: a variable, a field or an array element.
//
// A plain assignment evaluates the value, then pushes the object (and index)
// with push and stores with storePushed. Updates that read the location
// first evaluate the object once with stash, then use load and store, and
// finally drop the stashed references with clear.
type target struct {
	c    *Compiler
	kind targetKind
	slot uint16 // local slot or global index
	name uint16 // field name

	object ast.Expr // nil for a field of this
	key    ast.Expr

	objTemp  uint16
	keyTemp  uint16
	hasTemps bool
}

func (c *Compiler) lvalue(x ast.Expr) (*target, error) {
	fn := c.current
	switch x := x.(type) {
	case *ast.Ident:
		if l, ok := fn.resolve(x.Name); ok {
			return &target{c: c, kind: targetLocal, slot: l.slot}, nil
		}
		if fn.class != nil && fn.hasThis() && fn.class.hasField(x.Name) {
			return &target{c: c, kind: targetField, name: fn.builder.AddName(x.Name)}, nil
		}
		if g, ok := c.globals[x.Name]; ok {
			return &target{c: c, kind: targetGlobal, slot: uint16(g.index)}, nil
		}
		return nil, fn.errorf(x.Pos(), "%s is not declared", x.Name)
	case *ast.GetAttr:
		return &target{c: c, kind: targetField, name: fn.builder.AddName(x.Attr.Name), object: x.X}, nil
	case *ast.Index:
		return &target{c: c, kind: targetIndex, object: x.X, key: x.Index}, nil
	default:
		return nil, fn.errorf(x.Pos(), "cannot assign to %s", x.String())
	}
}

// push evaluates the object and index of a field or element.
func (t *target) push() error {
	fn := t.c.current
	switch t.kind {
	case targetField:
		if t.object == nil {
			fn.emit(op.LoadFast, 0)
			return nil
		}
		return t.c.compileExpr(t.object)
	case targetIndex:
		if err := t.c.compileExpr(t.object); err != nil {
			return err
		}
		return t.c.compileExpr(t.key)
	}
	return nil
}

// storePushed stores the value below the pushed object and index.
func (t *target) storePushed() {
	fn := t.c.current
	switch t.kind {
	case targetLocal:
		fn.emit(op.StoreFast, t.slot)
	case targetGlobal:
		fn.emit(op.StoreGlobal, t.slot)
	case targetField:
		fn.emit(op.StoreAttr, t.name)
	case targetIndex:
		fn.emit(op.StoreSubscr)
	}
}

func (t *target) stash() error {
	fn := t.c.current
	switch {
	case t.kind == targetField && t.object != nil:
		if err := t.push(); err != nil {
			return err
		}
		t.objTemp = fn.temp()
		t.hasTemps = true
		fn.emit(op.StoreFast, t.objTemp)
	case t.kind == targetIndex:
		if err := t.push(); err != nil {
			return err
		}
		t.objTemp = fn.temp()
		t.keyTemp = fn.temp()
		t.hasTemps = true
		fn.emit(op.StoreFast, t.keyTemp)
		fn.emit(op.StoreFast, t.objTemp)
	}
	return nil
}

func (t *target) pushStashed() {
	fn := t.c.current
	switch t.kind {
	case targetField:
		// slot 0 holds this when no object was stashed
		fn.emit(op.LoadFast, t.objTemp)
	case targetIndex:
		fn.emit(op.LoadFast, t.objTemp)
		fn.emit(op.LoadFast, t.keyTemp)
	}
}

// load pushes the current value of the location.
func (t *target) load() {
	fn := t.c.current
	switch t.kind {
	case targetLocal:
		fn.emit(op.LoadFast, t.slot)
	case targetGlobal:
		fn.emit(op.LoadGlobal, t.slot)
	case targetField:
		t.pushStashed()
		fn.emit(op.LoadAttr, t.name)
	case targetIndex:
		t.pushStashed()
		fn.emit(op.BinarySubscr)
	}
}

// store pops the value on top of the stack into the location.
func (t *target) store() {
	t.pushStashed()
	t.storePushed()
}

func (t *target) clear() {
	if !t.hasTemps {
		return
	}
	fn := t.c.current
	fn.emit(op.Null)
	fn.emit(op.StoreFast, t.objTemp)
	if t.kind == targetIndex {
		fn.emit(op.Null)
		fn.emit(op.StoreFast, t.keyTemp)
	}
}
