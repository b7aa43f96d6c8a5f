package vm

import (
	"github.com/risor-io/vmctx/object"
)

// The operand stack and the frame stack are plain slices owned by the
// context. Nested evaluations (destructors, host callbacks into script) grow
// the same stacks, so frames are held by pointer and looked up again after
// anything that may have run script code.

func (c *Context) push(obj object.Object) {
	c.stack = append(c.stack, obj)
}

// pop removes the top of the operand stack and hands its reference to the
// caller.
func (c *Context) pop() object.Object {
	n := len(c.stack) - 1
	obj := c.stack[n]
	c.stack[n] = nil
	c.stack = c.stack[:n]
	return obj
}

// peek returns the object depth entries below the top without removing it.
func (c *Context) peek(depth int) object.Object {
	return c.stack[len(c.stack)-1-depth]
}

// drop pops n entries and releases them.
func (c *Context) drop(n int) {
	for i := 0; i < n; i++ {
		c.release(c.pop())
	}
}

// truncate removes every entry above height and returns them, bottom first.
// The caller takes over their references.
func (c *Context) truncate(height int) []object.Object {
	if len(c.stack) <= height {
		return nil
	}
	temps := make([]object.Object, len(c.stack)-height)
	copy(temps, c.stack[height:])
	for i := height; i < len(c.stack); i++ {
		c.stack[i] = nil
	}
	c.stack = c.stack[:height]
	return temps
}

func (c *Context) pushFrame(f *frame) {
	c.frames = append(c.frames, f)
}

// popFrame detaches the innermost frame. Its slots are not released.
func (c *Context) popFrame() *frame {
	n := len(c.frames) - 1
	f := c.frames[n]
	c.frames[n] = nil
	c.frames = c.frames[:n]
	return f
}

// top returns the innermost frame, or nil if the frame stack is empty.
func (c *Context) top() *frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// frameAt returns the frame at the given level, where level 0 is the
// innermost frame.
func (c *Context) frameAt(level int) *frame {
	if level < 0 || level >= len(c.frames) {
		return nil
	}
	return c.frames[len(c.frames)-1-level]
}
