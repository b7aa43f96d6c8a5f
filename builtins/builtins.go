// Package builtins defines a default set of host functions for scripts.
package builtins

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/object"
	"github.com/risor-io/vmctx/vm"
)

// Print returns the print host function, which writes its argument and a
// newline to w.
func Print(w io.Writer) vm.NativeFunction {
	return func(ctx *vm.Context, args []object.Object) (object.Object, error) {
		if _, err := fmt.Fprintln(w, text(args[0])); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func Assert(ctx *vm.Context, args []object.Object) (object.Object, error) {
	if args[0].IsTruthy() {
		return nil, nil
	}
	if len(args) == 2 {
		return nil, fmt.Errorf("%s", text(args[1]))
	}
	return nil, fmt.Errorf("assertion failed")
}

// Throw raises a script exception with the given message.
func Throw(ctx *vm.Context, args []object.Object) (object.Object, error) {
	return nil, ctx.SetException(text(args[0]))
}

func ParseInt(ctx *vm.Context, args []object.Object) (object.Object, error) {
	s, ok := args[0].(*object.String)
	if !ok {
		return nil, fmt.Errorf("type error: parseInt() expected a string (%s given)", args[0].Type())
	}
	i, err := strconv.ParseInt(s.Value(), 0, 64)
	if err != nil {
		return nil, fmt.Errorf("value error: invalid literal for parseInt(): %q", s.Value())
	}
	return object.NewInt(i), nil
}

func ParseFloat(ctx *vm.Context, args []object.Object) (object.Object, error) {
	s, ok := args[0].(*object.String)
	if !ok {
		return nil, fmt.Errorf("type error: parseFloat() expected a string (%s given)", args[0].Type())
	}
	f, err := strconv.ParseFloat(s.Value(), 64)
	if err != nil {
		return nil, fmt.Errorf("value error: invalid literal for parseFloat(): %q", s.Value())
	}
	return object.NewFloat(f), nil
}

// String converts any value to its string form.
func String(ctx *vm.Context, args []object.Object) (object.Object, error) {
	return ctx.Engine().Heap().NewString(text(args[0])), nil
}

func text(obj object.Object) string {
	if s, ok := obj.(*object.String); ok {
		return s.Value()
	}
	return obj.Inspect()
}

// Builtins returns the default host functions keyed by declaration.
func Builtins(out io.Writer) map[string]vm.NativeFunction {
	return map[string]vm.NativeFunction{
		"void print(const string &in)":        Print(out),
		"void assert(bool)":                   Assert,
		"void assert(bool, const string &in)": Assert,
		"void throw(const string &in)":        Throw,
		"int parseInt(const string &in)":      ParseInt,
		"float parseFloat(const string &in)":  ParseFloat,
		"string str(int)":                     String,
	}
}

// Register adds the default host functions to the engine.
func Register(e *vm.Engine, out io.Writer) error {
	funcs := Builtins(out)
	decls := make([]string, 0, len(funcs))
	for decl := range funcs {
		decls = append(decls, decl)
	}
	sort.Strings(decls)
	var result *multierror.Error
	for _, decl := range decls {
		if err := e.RegisterFunction(decl, funcs[decl]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Translator reports the error or panic value of a failed host function as
// the message of the script exception.
func Translator(ctx *vm.Context, fault any) {
	switch f := fault.(type) {
	case error:
		ctx.SetException(f.Error())
	default:
		ctx.SetException(fmt.Sprint(f))
	}
}
