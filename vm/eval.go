package vm

import (
	"fmt"

	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
	"github.com/risor-io/vmctx/op"
)

// eval runs instructions until only height frames remain, leaving the
// result of the last returning frame on the operand stack. A fault is raised
// at the instruction that caused it and returned without unwinding: the
// caller decides how far to unwind.
func (c *Context) eval(height int) error {
	interval := c.engine.contextCheckInterval
	for len(c.frames) > height {
		f := c.top()
		if f.ip >= f.code.InstructionCount() {
			if err := c.returnFrom(object.Null); err != nil {
				return err
			}
			continue
		}
		opcode := f.code.InstructionAt(f.ip)

		// Loop back-edges and calls are safe points, as is the return from
		// a host function (see exec).
		if c.backEdge || isCall(opcode) {
			c.backEdge = false
			if err := c.safePoint(); err != nil {
				return err
			}
		}

		// Deterministic check of ctx.Done() every N instructions.
		if interval > 0 {
			c.instructionCount++
			if c.instructionCount >= interval {
				c.instructionCount = 0
				select {
				case <-c.goCtx.Done():
					c.abortRequested.Store(true)
					return errAborted
				default:
				}
			}
		}

		if !c.obs.step(c, f, opcode) {
			return errAborted
		}

		f.opIP = f.ip
		f.ip++
		if err := c.exec(f, opcode); err != nil {
			return c.raise(err)
		}
	}
	return nil
}

func isCall(opcode op.Code) bool {
	switch opcode {
	case op.Call, op.CallMethod, op.CallNative, op.New:
		return true
	}
	return false
}

// safePoint reports a pending abort or suspension. Suspension is honored only
// by the outermost evaluation, whose frames can be resumed by Execute.
func (c *Context) safePoint() error {
	if c.abortRequested.Load() {
		return errAborted
	}
	if c.nestedDepth == 0 && c.suspendRequested.CompareAndSwap(true, false) {
		return errSuspended
	}
	return nil
}

func (c *Context) fetch(f *frame) int {
	operand := f.code.InstructionAt(f.ip)
	f.ip++
	return int(operand)
}

// exec executes one instruction. Instructions that can fault inspect their
// operands in place and only pop them once they succeed, so that a fault
// leaves every operand on the stack for the unwind to release.
func (c *Context) exec(f *frame, opcode op.Code) error {
	heap := c.engine.heap
	switch opcode {
	case op.Nop:
	case op.LoadConst:
		c.push(f.code.loadConstant(heap, c.fetch(f)))
	case op.LoadFast:
		obj := f.locals[c.fetch(f)].Value
		if obj == nil {
			obj = object.Null
		}
		c.push(object.AddRef(obj))
	case op.StoreFast:
		idx := c.fetch(f)
		obj := c.pop()
		old := f.locals[idx]
		f.locals[idx] = Slot{Value: obj, Ownership: ownershipOf(obj)}
		c.releaseSlot(old)
	case op.LoadGlobal:
		c.push(object.AddRef(f.module.globals[c.fetch(f)]))
	case op.StoreGlobal:
		idx := c.fetch(f)
		obj := c.pop()
		old := f.module.globals[idx]
		f.module.globals[idx] = obj
		c.release(old)
	case op.LoadAttr:
		name := f.code.NameAt(c.fetch(f))
		inst, err := instanceOf(c.peek(0))
		if err != nil {
			return err
		}
		value, ok := inst.Field(name)
		if !ok {
			return object.TypeErrorf("%s has no field %q", inst.Class().Name(), name)
		}
		value = object.AddRef(value)
		c.drop(1)
		c.push(value)
	case op.StoreAttr:
		name := f.code.NameAt(c.fetch(f))
		inst, err := instanceOf(c.peek(0))
		if err != nil {
			return err
		}
		old, err := inst.SetField(name, c.peek(1))
		if err != nil {
			return err
		}
		obj := c.pop()
		c.pop() // now owned by the field
		c.release(obj)
		c.release(old)
	case op.BinaryOp:
		opType := op.BinaryOpType(c.fetch(f))
		result, err := object.BinaryOp(heap, opType, c.peek(1), c.peek(0))
		if err != nil {
			return err
		}
		c.drop(2)
		c.push(result)
	case op.CompareOp:
		opType := op.CompareOpType(c.fetch(f))
		result, err := object.Compare(opType, c.peek(1), c.peek(0))
		if err != nil {
			return err
		}
		c.drop(2)
		c.push(result)
	case op.UnaryNegative:
		result, err := object.Negate(c.peek(0))
		if err != nil {
			return err
		}
		c.drop(1)
		c.push(result)
	case op.UnaryNot:
		result := object.NewBool(!c.peek(0).IsTruthy())
		c.drop(1)
		c.push(result)
	case op.Jump:
		c.jump(f, c.fetch(f))
	case op.PopJumpIfFalse, op.PopJumpIfTrue:
		target := c.fetch(f)
		obj := c.pop()
		truthy := obj.IsTruthy()
		c.release(obj)
		if truthy == (opcode == op.PopJumpIfTrue) {
			c.jump(f, target)
		}
	case op.BuildArray:
		count := c.fetch(f)
		items := c.truncate(len(c.stack) - count)
		c.push(heap.NewArray(items))
	case op.BinarySubscr:
		arr, index, err := subscript(c.peek(1), c.peek(0))
		if err != nil {
			return err
		}
		item, err := arr.Get(index)
		if err != nil {
			return err
		}
		item = object.AddRef(item)
		c.drop(2)
		c.push(item)
	case op.StoreSubscr:
		arr, index, err := subscript(c.peek(1), c.peek(0))
		if err != nil {
			return err
		}
		old, err := arr.Set(index, c.peek(2))
		if err != nil {
			return err
		}
		c.drop(2)
		c.pop() // now owned by the array
		c.release(old)
	case op.Length:
		n, err := length(c.peek(0))
		if err != nil {
			return err
		}
		c.drop(1)
		c.push(object.NewInt(int64(n)))
	case op.Copy:
		c.push(object.AddRef(c.peek(c.fetch(f))))
	case op.PopTop:
		c.drop(1)
	case op.Null:
		c.push(object.Null)
	case op.True:
		c.push(object.True)
	case op.False:
		c.push(object.False)
	case op.Call:
		index := c.fetch(f)
		argc := c.fetch(f)
		fn := f.module.mod.FunctionAt(index)
		if fn == nil {
			return fmt.Errorf("%w: function %d not found", errz.ErrNoFunction, index)
		}
		return c.call(f, fn, argc, false, nil)
	case op.CallMethod:
		name := f.code.NameAt(c.fetch(f))
		argc := c.fetch(f)
		return c.callMethod(f, name, argc)
	case op.New:
		name := f.code.NameAt(c.fetch(f))
		argc := c.fetch(f)
		class := f.module.mod.ClassByName(name)
		if class == nil {
			return object.TypeErrorf("class %q not found", name)
		}
		ctor := class.Constructor(argc)
		if ctor == nil {
			if argc == 0 && class.ConstructorCount() == 0 {
				c.push(heap.NewInstance(class))
				return nil
			}
			return object.TypeErrorf("%s has no constructor taking %d arguments", name, argc)
		}
		return c.call(f, ctor, argc, false, class)
	case op.CallNative:
		name := f.code.NameAt(c.fetch(f))
		argc := c.fetch(f)
		nf, ok := c.engine.native(name, argc)
		if !ok {
			return fmt.Errorf("%w: host function %s taking %d arguments", errz.ErrNoFunction, name, argc)
		}
		args := make([]object.Object, argc)
		copy(args, c.stack[len(c.stack)-argc:])
		result, err := c.callNative(nf, args)
		if err != nil {
			return err
		}
		c.drop(argc)
		c.push(result)
		// A host function may have asked the context to stop.
		return c.safePoint()
	case op.Return:
		return c.returnFrom(object.Null)
	case op.ReturnValue:
		return c.returnFrom(c.pop())
	default:
		return fmt.Errorf("unknown opcode: %d", opcode)
	}
	return nil
}

func (c *Context) jump(f *frame, target int) {
	if target <= f.opIP {
		c.backEdge = true
	}
	f.ip = target
}

// call enters fn with argc arguments on top of the operand stack. With
// receiver set, the object is the entry below the arguments. With class set,
// a new instance of class is created for the constructor fn to initialize.
func (c *Context) call(caller *frame, fn *bytecode.Function, argc int, receiver bool, class *bytecode.Class) error {
	if err := checkCallArgs(fn, argc); err != nil {
		return err
	}
	if fn.Code() == nil {
		return fmt.Errorf("%w: %s has no script body", errz.ErrNoFunction, fn.Declaration())
	}
	state := caller.module
	if fn.Module() != state.mod.Name() {
		if state = c.engine.moduleState(fn.Module()); state == nil {
			return fmt.Errorf("%w: module %q is not loaded", errz.ErrNoFunction, fn.Module())
		}
	}
	if len(c.frames) >= c.engine.maxFrameDepth {
		return errStackOverflow
	}

	n := argc
	if receiver {
		n++
	}
	entries := c.truncate(len(c.stack) - n)
	f := newFrame(fn, c.engine.loadCode(fn.Code()), state, len(c.stack))
	slot := 0
	if receiver {
		f.locals[0] = Slot{Value: entries[0], Ownership: ownershipOf(entries[0])}
		entries = entries[1:]
		slot = 1
	} else if class != nil {
		inst := c.engine.heap.NewInstance(class)
		f.locals[0] = Slot{Value: object.AddRef(inst), Ownership: Owned}
		f.constructing = inst
		slot = 1
	}
	for i, arg := range entries {
		param := fn.Param(i)
		if !param.Type.Handle && !param.Mode.IsReference() {
			copied := c.engine.heap.Copy(arg)
			c.release(arg)
			arg = copied
		}
		f.locals[slot+i] = Slot{Value: arg, Ownership: ownershipOf(arg)}
	}
	c.pushFrame(f)
	if !c.obs.call(c, fn, argc, caller.location()) {
		return errAborted
	}
	return nil
}

// callMethod calls a method on the object below the arguments. Arrays and
// strings provide a few built-in methods.
func (c *Context) callMethod(f *frame, name string, argc int) error {
	switch recv := c.peek(argc).(type) {
	case *object.Instance:
		fn := recv.Class().Method(name, argc)
		if fn == nil {
			return object.TypeErrorf("%s has no method %s taking %d arguments", recv.Class().Name(), name, argc)
		}
		return c.call(f, fn, argc, true, nil)
	case *object.Array:
		return c.callArrayMethod(recv, name, argc)
	case *object.String:
		if name == "length" && argc == 0 {
			n := recv.Len()
			c.drop(1)
			c.push(object.NewInt(int64(n)))
			return nil
		}
		return object.TypeErrorf("string has no method %s taking %d arguments", name, argc)
	default:
		if object.IsNull(recv) {
			return object.ErrNullPointer
		}
		return object.TypeErrorf("cannot call method %s on %s", name, recv.Type())
	}
}

func (c *Context) callArrayMethod(arr *object.Array, name string, argc int) error {
	var result object.Object = object.Null
	switch {
	case name == "length" && argc == 0:
		result = object.NewInt(int64(arr.Len()))
	case name == "insertLast" && argc == 1:
		arr.Append(object.AddRef(c.peek(0)))
	case name == "removeLast" && argc == 0:
		last, err := arr.Pop()
		if err != nil {
			return err
		}
		c.release(last)
	default:
		return object.TypeErrorf("array has no method %s taking %d arguments", name, argc)
	}
	c.drop(argc + 1)
	c.push(result)
	return nil
}

func instanceOf(obj object.Object) (*object.Instance, error) {
	switch obj := obj.(type) {
	case *object.Instance:
		return obj, nil
	default:
		if object.IsNull(obj) {
			return nil, object.ErrNullPointer
		}
		return nil, object.TypeErrorf("expected an object (got %s)", obj.Type())
	}
}

func subscript(container, index object.Object) (*object.Array, int64, error) {
	arr, ok := container.(*object.Array)
	if !ok {
		if object.IsNull(container) {
			return nil, 0, object.ErrNullPointer
		}
		return nil, 0, object.TypeErrorf("%s is not subscriptable", container.Type())
	}
	i, ok := index.(*object.Int)
	if !ok {
		return nil, 0, object.TypeErrorf("array index must be an int (got %s)", index.Type())
	}
	return arr, i.Value(), nil
}

func length(obj object.Object) (int, error) {
	switch obj := obj.(type) {
	case *object.Array:
		return obj.Len(), nil
	case *object.String:
		return obj.Len(), nil
	default:
		if object.IsNull(obj) {
			return 0, object.ErrNullPointer
		}
		return 0, object.TypeErrorf("%s has no length", obj.Type())
	}
}
