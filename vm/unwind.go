package vm

import (
	"errors"
	"fmt"

	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
)

// release drops one reference to obj, running script destructors for
// instances whose count reaches zero.
func (c *Context) release(obj object.Object) {
	if obj == nil {
		return
	}
	c.engine.heap.Release(obj, c.finalize)
}

// releaseSlot releases the slot's value if the slot owns it.
func (c *Context) releaseSlot(s Slot) {
	if s.Ownership == Owned {
		c.release(s.Value)
	}
}

// finalize runs the destructor of inst as a nested evaluation. A fault in
// the destructor is unwound within the destructor and recorded; it never
// becomes the exception of the call that released the instance.
func (c *Context) finalize(inst *object.Instance) {
	dtor := inst.Class().Destructor()
	if dtor == nil || dtor.Code() == nil {
		return
	}
	c.destructorDepth++
	defer func() { c.destructorDepth-- }()

	result, err := c.invoke(dtor, []Slot{{Value: inst, Ownership: Addressed}})
	c.release(result)
	if err == nil {
		return
	}
	if errors.Is(err, errAborted) {
		c.logger.Debug().Str("class", inst.Class().Name()).Msg("destructor aborted")
		return
	}
	c.destructorFaults = append(c.destructorFaults, err)
	if c.state == StateExceptionRaised {
		c.suppress(err)
		return
	}
	c.logger.Warn().Err(err).Str("class", inst.Class().Name()).Msg("destructor raised an exception")
}

// unwindTo pops frames until height remain. Each frame releases what it
// owns, innermost frame first.
func (c *Context) unwindTo(height int) {
	if len(c.frames) <= height {
		return
	}
	// Destructors run to completion unless aborted again while unwinding.
	aborted := c.abortRequested.Swap(false)
	defer func() {
		if aborted {
			c.abortRequested.Store(true)
		}
	}()
	var count int
	for len(c.frames) > height {
		c.releaseFrame(c.popFrame())
		count++
	}
	c.logger.Debug().Int("frames", count).Msg("unwound")
}

// releaseFrame releases a detached frame: the object and arguments, the
// remaining locals, the operand stack temporaries above the frame's base
// and finally an instance left under construction.
func (c *Context) releaseFrame(f *frame) {
	temps := c.truncate(f.base)
	for i := range f.locals {
		s := f.locals[i]
		f.locals[i] = Slot{}
		c.releaseSlot(s)
	}
	for _, obj := range temps {
		c.release(obj)
	}
	if inst := f.constructing; inst != nil {
		f.constructing = nil
		// The constructor did not complete, so the destructor is skipped.
		c.engine.heap.Release(inst, func(o *object.Instance) {
			if o != inst {
				c.finalize(o)
			}
		})
	}
}

// returnFrom pops the innermost frame and pushes its result. A constructor
// returns the instance it initialized.
func (c *Context) returnFrom(result object.Object) error {
	f := c.popFrame()
	if f.constructing != nil {
		c.release(result)
		result = f.constructing
		f.constructing = nil
	}
	c.releaseFrame(f)
	c.push(result)
	if !c.obs.ret(c, f) {
		return errAborted
	}
	return nil
}

// invoke runs fn as a nested evaluation on the context's stacks and returns
// its result. slots holds the object, for members, followed by the
// arguments; the new frame takes them over. On failure the nested frames are
// unwound before the error is returned.
func (c *Context) invoke(fn *bytecode.Function, slots []Slot) (object.Object, error) {
	state := c.engine.moduleState(fn.Module())
	if state == nil || fn.Code() == nil {
		for _, s := range slots {
			c.releaseSlot(s)
		}
		return nil, fmt.Errorf("%w: %s is not loaded", errz.ErrNoFunction, fn.Declaration())
	}
	height := len(c.frames)
	if height >= c.engine.maxFrameDepth {
		for _, s := range slots {
			c.releaseSlot(s)
		}
		return nil, c.raise(errStackOverflow)
	}
	f := newFrame(fn, c.engine.loadCode(fn.Code()), state, len(c.stack))
	copy(f.locals, slots)
	c.pushFrame(f)

	c.nestedDepth++
	defer func() { c.nestedDepth-- }()

	var err error
	if !c.obs.call(c, fn, fn.ParamCount(), bytecode.SourceLocation{}) {
		err = errAborted
	} else {
		err = c.eval(height)
	}
	if err != nil {
		c.unwindTo(height)
		return nil, err
	}
	return c.pop(), nil
}
