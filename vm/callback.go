package vm

import (
	"fmt"
)

// ExceptionCallback is called once when a script exception is raised, before
// any frame is unwound. The context can be inspected with ExceptionString,
// ExceptionFunction, LineNumberAt and similar methods. A method value such as
// handler.OnException is registered the same way as a plain function.
type ExceptionCallback func(ctx *Context)

// Translator is called when a host function called from script panics or
// returns an error. fault is the recovered panic value or the returned
// error. The translator may call ctx.SetException to give the resulting
// script exception a message; otherwise the exception is reported as
// "Unknown exception".
type Translator func(ctx *Context, fault any)

// SetExceptionCallback sets the callback for this context, replacing the
// engine-wide callback. A nil callback disables exception callbacks for the
// context.
func (c *Context) SetExceptionCallback(cb ExceptionCallback) {
	c.callback = cb
	c.hasCallback = true
}

// SetTranslateNativeExceptionCallback sets the translator for this context,
// replacing the engine-wide translator. A nil translator disables
// translation for the context.
func (c *Context) SetTranslateNativeExceptionCallback(tr Translator) {
	c.translator = tr
	c.hasTranslator = true
}

func (c *Context) exceptionCallback() ExceptionCallback {
	if c.hasCallback {
		return c.callback
	}
	return c.engine.callback
}

func (c *Context) nativeTranslator() Translator {
	if c.hasTranslator {
		return c.translator
	}
	return c.engine.translator
}

// dispatch runs the exception callback. A panicking callback is logged and
// does not change how the exception propagates.
func (c *Context) dispatch() {
	cb := c.exceptionCallback()
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("exception callback panicked")
		}
	}()
	cb(c)
}

// translate gives the translator a chance to describe a native fault. It
// reports whether a message was set.
func (c *Context) translate(fault any) (translated bool) {
	tr := c.nativeTranslator()
	if tr == nil {
		c.logger.Warn().Str("fault", fmt.Sprint(fault)).Msg("native fault without translator")
		return c.hasPending
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("translator panicked")
		}
		translated = c.hasPending
	}()
	tr(c, fault)
	return c.hasPending
}
