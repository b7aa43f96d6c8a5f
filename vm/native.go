package vm

import (
	"errors"
	"fmt"

	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
)

// callNative calls a host function with borrowed arguments. A panic or a
// returned error is a native fault: the translator gets one chance to set a
// message and the fault is returned as a *nativeFault. Exceptions raised by
// nested script calls are returned as they are.
func (c *Context) callNative(nf *nativeFunc, args []object.Object) (result object.Object, err error) {
	c.nativeDepth++
	defer func() {
		c.nativeDepth--
		c.hasPending = false
		c.pendingMessage = ""
	}()

	result, fault := c.runNative(nf, args)

	if c.exception != nil && c.destructorDepth == 0 {
		// A nested call raised an exception that the host function did not
		// return. It still propagates.
		c.release(result)
		return nil, c.exception
	}
	var exc *errz.Exception
	if err, ok := fault.(error); ok {
		if errors.As(err, &exc) || isControl(err) {
			c.release(result)
			return nil, err
		}
	}
	if fault == nil && !c.hasPending {
		if result == nil {
			result = object.Null
		}
		return result, nil
	}
	c.release(result)

	var cause error
	switch f := fault.(type) {
	case nil:
	case error:
		cause = f
	default:
		cause = fmt.Errorf("panic: %v", f)
	}
	if fault != nil && !c.hasPending {
		c.translate(fault)
	}
	if c.hasPending {
		return nil, &nativeFault{message: c.pendingMessage, translated: true, cause: cause}
	}
	return nil, &nativeFault{message: errz.Unknown.Message(), cause: cause}
}

// runNative runs the host function, recovering a panic into fault. A
// returned error is also reported as the fault.
func (c *Context) runNative(nf *nativeFunc, args []object.Object) (result object.Object, fault any) {
	defer func() {
		if r := recover(); r != nil {
			result, fault = nil, r
		}
	}()
	result, err := nf.fn(c, args)
	if err != nil {
		return result, err
	}
	return result, nil
}
